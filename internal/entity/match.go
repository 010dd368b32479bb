package entity

import (
	"errors"
	"fmt"
	"time"
)

type Status string

const (
	StatusPending    Status = "PENDING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
)

// Draw - winner sentinel of a completed match without a winning line.
const Draw = "-"

var ErrBrokenInvariant = errors.New("match invariant violated")

// rank orders statuses so transitions can be checked for monotonicity.
func (that Status) rank() int {
	switch that {
	case StatusPending:
		return 1
	case StatusInProgress:
		return 2
	case StatusCompleted:
		return 3
	default:
		return 0
	}
}

// Precedes - reports whether moving from that to next is a forward transition.
func (that Status) Precedes(next Status) bool {
	return that.rank() > 0 && next.rank() == that.rank()+1
}

type Move struct {
	Player    string    `json:"player"`
	Position  int       `json:"position"`
	Sequence  int       `json:"sequence"`
	CreatedAt time.Time `json:"created_at"`
}

// Match - the authoritative record of one game.
type Match struct {
	RoomCode  string    `json:"room_code"`
	Player1   string    `json:"player1"`
	Player2   string    `json:"player2,omitempty"`
	Board     Board     `json:"board"`
	Turn      string    `json:"current_turn,omitempty"`
	Status    Status    `json:"status"`
	Winner    string    `json:"winner,omitempty"`
	Moves     []Move    `json:"moves,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewMatch(roomCode, player1 string, now time.Time) *Match {
	return &Match{
		RoomCode:  roomCode,
		Player1:   player1,
		Board:     NewBoard(),
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (that *Match) IsPending() bool {
	return that.Status == StatusPending
}

func (that *Match) IsInProgress() bool {
	return that.Status == StatusInProgress
}

func (that *Match) IsCompleted() bool {
	return that.Status == StatusCompleted
}

func (that *Match) IsDraw() bool {
	return that.IsCompleted() && that.Winner == Draw
}

func (that *Match) HasPlayer(playerID string) bool {
	return playerID != "" && (playerID == that.Player1 || playerID == that.Player2)
}

// MarkOf - player1 plays X, player2 plays O, anyone else has no mark.
func (that *Match) MarkOf(playerID string) Mark {
	switch {
	case playerID == "":
		return MarkEmpty
	case playerID == that.Player1:
		return MarkX
	case playerID == that.Player2:
		return MarkO
	default:
		return MarkEmpty
	}
}

// Opponent - returns the other seat's player, empty when playerID holds no seat.
func (that *Match) Opponent(playerID string) string {
	switch playerID {
	case that.Player1:
		return that.Player2
	case that.Player2:
		return that.Player1
	default:
		return ""
	}
}

// Clone - returns a deep copy safe to hand out of the owning coordinator.
func (that *Match) Clone() *Match {
	clone := *that
	if that.Moves != nil {
		clone.Moves = make([]Move, len(that.Moves))
		copy(clone.Moves, that.Moves)
	}

	return &clone
}

// IsBehind - reports whether that is an older state of the same match than other.
// Status comes first, then the number of moves, then the update time.
func (that *Match) IsBehind(other *Match) bool {
	if that.Status.rank() != other.Status.rank() {
		return that.Status.rank() < other.Status.rank()
	}

	if len(that.Moves) != len(other.Moves) {
		return len(that.Moves) < len(other.Moves)
	}

	return that.UpdatedAt.Before(other.UpdatedAt)
}

// Validate - checks the structural invariants of the match record.
func (that *Match) Validate() error {
	if that.Board.Filled() != len(that.Moves) {
		return fmt.Errorf("%w: %d marks on board, %d moves logged", ErrBrokenInvariant, that.Board.Filled(), len(that.Moves))
	}

	for i, move := range that.Moves {
		if move.Sequence != i+1 {
			return fmt.Errorf("%w: move %d has sequence %d", ErrBrokenInvariant, i, move.Sequence)
		}
	}

	_, winnerMark, hasLine := that.Board.WinningLine()

	switch that.Status {
	case StatusPending:
		if that.Player2 != "" || that.Turn != "" || len(that.Moves) != 0 {
			return fmt.Errorf("%w: pending match has player2, turn or moves", ErrBrokenInvariant)
		}
	case StatusInProgress:
		if that.Player2 == "" || that.Turn == "" || that.Winner != "" {
			return fmt.Errorf("%w: in-progress match without player2 or turn", ErrBrokenInvariant)
		}
		if hasLine || that.Board.IsFull() {
			return fmt.Errorf("%w: in-progress match has a decided board", ErrBrokenInvariant)
		}
		if n := len(that.Moves); n > 0 && that.Turn == that.Moves[n-1].Player {
			return fmt.Errorf("%w: turn belongs to the player who just moved", ErrBrokenInvariant)
		}
	case StatusCompleted:
		if that.Turn != "" || that.Winner == "" {
			return fmt.Errorf("%w: completed match has a turn or no winner", ErrBrokenInvariant)
		}
		if hasLine && that.MarkOf(that.Winner) != winnerMark {
			return fmt.Errorf("%w: winner does not own the winning line", ErrBrokenInvariant)
		}
		if !hasLine && (that.Winner != Draw || !that.Board.IsFull()) {
			return fmt.Errorf("%w: completed without line must be a full-board draw", ErrBrokenInvariant)
		}
	default:
		return fmt.Errorf("%w: unknown status %q", ErrBrokenInvariant, that.Status)
	}

	return nil
}
