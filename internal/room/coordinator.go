package room

import (
	"fmt"
	"sync"
	"time"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/tictactoe"
)

type AttachResult int

const (
	JoinedAsPlayer1 AttachResult = iota
	JoinedAsPlayer2
	Observing
	RejectedRoomFull
	RejectedSelfJoin
)

func (that AttachResult) String() string {
	switch that {
	case JoinedAsPlayer1:
		return "joined_as_player1"
	case JoinedAsPlayer2:
		return "joined_as_player2"
	case Observing:
		return "observing"
	case RejectedRoomFull:
		return "rejected_room_full"
	case RejectedSelfJoin:
		return "rejected_self_join"
	default:
		return fmt.Sprintf("attach_result(%d)", int(that))
	}
}

// Err - membership error of a rejected attach, nil otherwise.
func (that AttachResult) Err() error {
	switch that {
	case RejectedRoomFull:
		return apperror.ErrRoomFull
	case RejectedSelfJoin:
		return apperror.ErrSelfJoin
	default:
		return nil
	}
}

func (that AttachResult) IsPlayer() bool {
	return that == JoinedAsPlayer1 || that == JoinedAsPlayer2
}

// Recorder receives accepted moves and match snapshots. Implementations must not block.
type Recorder interface {
	RecordMove(roomCode string, move entity.Move)
	RecordMatch(match *entity.Match)
}

// MoveResult - Event is set for accepted moves and must be broadcast; Err is set for rejections.
type MoveResult struct {
	Decision tictactoe.Decision
	Event    Event
	Err      error
}

// Coordinator is the only writer of its match. Every operation runs under one mutex.
type Coordinator struct {
	mu       sync.Mutex
	match    *entity.Match
	present  map[string]int
	recorder Recorder
	now      func() time.Time
}

func NewCoordinator(match *entity.Match, recorder Recorder) *Coordinator {
	return &Coordinator{
		match:    match,
		present:  make(map[string]int),
		recorder: recorder,
		now:      time.Now,
	}
}

// Attach - registers a live connection of playerID. The returned event, if any, must be broadcast.
func (that *Coordinator) Attach(playerID string) (AttachResult, Event) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.present[playerID]++

	match := that.match

	switch {
	case playerID == "":
		return Observing, nil
	case playerID == match.Player1:
		return JoinedAsPlayer1, nil
	case playerID == match.Player2:
		return JoinedAsPlayer2, nil
	case match.IsPending():
		return JoinedAsPlayer2, that.claimSeat(playerID)
	case match.IsCompleted():
		return Observing, nil
	default:
		return RejectedRoomFull, nil
	}
}

// Join - explicit seat claim without a live connection.
func (that *Coordinator) Join(playerID string) (AttachResult, Event) {
	that.mu.Lock()
	defer that.mu.Unlock()

	match := that.match

	switch {
	case playerID == match.Player1:
		return RejectedSelfJoin, nil
	case playerID != "" && playerID == match.Player2:
		return JoinedAsPlayer2, nil
	case match.Player2 != "" || !match.IsPending():
		return RejectedRoomFull, nil
	default:
		return JoinedAsPlayer2, that.claimSeat(playerID)
	}
}

// claimSeat assigns player2 and starts the match. Caller holds mu.
func (that *Coordinator) claimSeat(playerID string) Event {
	match := that.match

	match.Player2 = playerID
	match.Status = entity.StatusInProgress
	match.Turn = match.Player1
	match.UpdatedAt = that.now()

	that.recorder.RecordMatch(match.Clone())

	return PlayerJoinedEvent{
		Action:      ActionPlayerJoined,
		Player2:     playerID,
		Status:      match.Status,
		CurrentTurn: match.Turn,
		Board:       match.Board.String(),
	}
}

func (that *Coordinator) SubmitMove(playerID string, position int) MoveResult {
	that.mu.Lock()
	defer that.mu.Unlock()

	decision := tictactoe.Validate(that.match, playerID, position)
	if !decision.IsAccepted() {
		return MoveResult{Decision: decision, Err: decision.Verdict.Err()}
	}

	match := that.match
	now := that.now()

	move := entity.Move{
		Player:    playerID,
		Position:  position,
		Sequence:  len(match.Moves) + 1,
		CreatedAt: now,
	}

	match.Board = decision.Board
	match.Moves = append(match.Moves, move)
	match.UpdatedAt = now

	var event Event

	switch decision.Outcome.Kind {
	case tictactoe.Win:
		match.Status = entity.StatusCompleted
		match.Winner = playerID
		match.Turn = ""

		event = GameOverEvent{
			Action:       ActionGameOver,
			Winner:       optional(playerID),
			Board:        match.Board.String(),
			WinningCombo: decision.Outcome.Line[:],
		}
	case tictactoe.Draw:
		match.Status = entity.StatusCompleted
		match.Winner = entity.Draw
		match.Turn = ""

		event = GameOverEvent{
			Action: ActionGameOver,
			Board:  match.Board.String(),
			Status: drawStatus,
		}
	default:
		match.Turn = match.Opponent(playerID)

		event = MoveMadeEvent{
			Action:   ActionMoveMade,
			Position: position,
			Symbol:   decision.Mark,
			NextTurn: match.Turn,
			Board:    match.Board.String(),
		}
	}

	that.recorder.RecordMove(match.RoomCode, move)
	that.recorder.RecordMatch(match.Clone())

	return MoveResult{Decision: decision, Event: event}
}

// Detach - forgets one live connection of playerID. The match is left as is.
func (that *Coordinator) Detach(playerID string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.present[playerID] <= 1 {
		delete(that.present, playerID)
		return
	}

	that.present[playerID]--
}

// IsPresent - reports whether playerID has at least one attached connection.
func (that *Coordinator) IsPresent(playerID string) bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.present[playerID] > 0
}

func (that *Coordinator) Snapshot() *entity.Match {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.match.Clone()
}
