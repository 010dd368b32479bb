package tictactoe

import (
	"fmt"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
)

type Verdict int

const (
	Accepted Verdict = iota
	RejectedGameNotInProgress
	RejectedNotAPlayer
	RejectedNotYourTurn
	RejectedInvalidPosition
	RejectedCellOccupied
)

func (that Verdict) String() string {
	switch that {
	case Accepted:
		return "accepted"
	case RejectedGameNotInProgress:
		return "rejected_game_not_in_progress"
	case RejectedNotAPlayer:
		return "rejected_not_a_player"
	case RejectedNotYourTurn:
		return "rejected_not_your_turn"
	case RejectedInvalidPosition:
		return "rejected_invalid_position"
	case RejectedCellOccupied:
		return "rejected_cell_occupied"
	default:
		return fmt.Sprintf("verdict(%d)", int(that))
	}
}

// Err - maps a rejection to its sentinel error, nil for Accepted.
func (that Verdict) Err() error {
	switch that {
	case Accepted:
		return nil
	case RejectedGameNotInProgress:
		return apperror.ErrGameNotInProgress
	case RejectedNotAPlayer:
		return apperror.ErrNotAPlayer
	case RejectedNotYourTurn:
		return apperror.ErrNotYourTurn
	case RejectedInvalidPosition:
		return apperror.ErrInvalidPosition
	case RejectedCellOccupied:
		return apperror.ErrCellOccupied
	default:
		return apperror.ErrInternal
	}
}

type OutcomeKind int

const (
	Continue OutcomeKind = iota
	Win
	Draw
)

type Outcome struct {
	Kind   OutcomeKind
	Line   [3]int
	Player string
}

// Decision - result of validating one move. Board and Outcome are set only when Accepted.
type Decision struct {
	Verdict Verdict
	Mark    entity.Mark
	Board   entity.Board
	Outcome Outcome
}

func (that Decision) IsAccepted() bool {
	return that.Verdict == Accepted
}

// Validate - decides legality and outcome of player's move at position against the match.
// It never modifies the match.
func Validate(match *entity.Match, player string, position int) Decision {
	if !match.IsInProgress() {
		return Decision{Verdict: RejectedGameNotInProgress}
	}

	if !match.HasPlayer(player) {
		return Decision{Verdict: RejectedNotAPlayer}
	}

	if match.Turn != player {
		return Decision{Verdict: RejectedNotYourTurn}
	}

	if position < 0 || position >= entity.BoardSize {
		return Decision{Verdict: RejectedInvalidPosition}
	}

	if !match.Board.IsEmptyCell(position) {
		return Decision{Verdict: RejectedCellOccupied}
	}

	mark := match.MarkOf(player)
	board := match.Board
	board[position] = mark

	return Decision{
		Verdict: Accepted,
		Mark:    mark,
		Board:   board,
		Outcome: Evaluate(board, mark, player),
	}
}

// Evaluate - outcome of the board right after mark was placed by player.
func Evaluate(board entity.Board, mark entity.Mark, player string) Outcome {
	for _, combo := range entity.WinCombos {
		if board[combo[0]] == mark && board[combo[1]] == mark && board[combo[2]] == mark {
			return Outcome{Kind: Win, Line: combo, Player: player}
		}
	}

	if board.IsFull() {
		return Outcome{Kind: Draw}
	}

	return Outcome{Kind: Continue}
}
