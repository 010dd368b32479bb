package tictactoe

import (
	"testing"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	alice = "alice"
	bob   = "bob"
)

func ongoingMatch(board string, turn string) *entity.Match {
	parsed, err := entity.ParseBoard(board)
	if err != nil {
		panic(err)
	}

	return &entity.Match{
		RoomCode: "ROOM01",
		Player1:  alice,
		Player2:  bob,
		Board:    parsed,
		Turn:     turn,
		Status:   entity.StatusInProgress,
	}
}

func TestValidate(t *testing.T) {
	t.Run("Accepts a legal move and reports Continue", func(t *testing.T) {
		// Given: an empty board with alice to move
		match := ongoingMatch("---------", alice)

		// When: alice plays the centre
		decision := Validate(match, alice, 4)

		// Then: the move is accepted with X on the new board
		require.True(t, decision.IsAccepted())
		assert.Equal(t, entity.MarkX, decision.Mark)
		assert.Equal(t, "----X----", decision.Board.String())
		assert.Equal(t, Continue, decision.Outcome.Kind)
		assert.NoError(t, decision.Verdict.Err())

		// And: the match itself is untouched
		assert.Equal(t, "---------", match.Board.String())
	})

	t.Run("Rejects a move from the player whose turn it is not", func(t *testing.T) {
		match := ongoingMatch("---------", alice)

		decision := Validate(match, bob, 0)

		assert.Equal(t, RejectedNotYourTurn, decision.Verdict)
		assert.ErrorIs(t, decision.Verdict.Err(), apperror.ErrNotYourTurn)
	})

	t.Run("Rejects a move from someone who holds no seat", func(t *testing.T) {
		match := ongoingMatch("---------", alice)

		decision := Validate(match, "mallory", 0)

		assert.Equal(t, RejectedNotAPlayer, decision.Verdict)
		assert.ErrorIs(t, decision.Verdict.Err(), apperror.ErrNotAPlayer)
	})

	t.Run("Rejects positions outside the board", func(t *testing.T) {
		match := ongoingMatch("---------", alice)

		for _, position := range []int{-1, 9, 20} {
			decision := Validate(match, alice, position)
			assert.Equal(t, RejectedInvalidPosition, decision.Verdict, "position %d", position)
		}
	})

	t.Run("Rejects an occupied cell", func(t *testing.T) {
		match := ongoingMatch("----X----", bob)

		decision := Validate(match, bob, 4)

		assert.Equal(t, RejectedCellOccupied, decision.Verdict)
		assert.ErrorIs(t, decision.Verdict.Err(), apperror.ErrCellOccupied)
	})

	t.Run("Rejects any move when the match is pending or completed", func(t *testing.T) {
		for _, status := range []entity.Status{entity.StatusPending, entity.StatusCompleted} {
			match := ongoingMatch("---------", alice)
			match.Status = status

			decision := Validate(match, alice, 0)

			assert.Equal(t, RejectedGameNotInProgress, decision.Verdict, "status %s", status)
		}
	})

	t.Run("Reports a win with the completed line", func(t *testing.T) {
		// Given: moves 4, 0, 1, 3 were played and alice holds 1 and 4
		match := ongoingMatch("OX-OX----", alice)

		// When: alice completes the middle column
		decision := Validate(match, alice, 7)

		// Then: alice wins on [1,4,7]
		require.True(t, decision.IsAccepted())
		assert.Equal(t, Win, decision.Outcome.Kind)
		assert.Equal(t, [3]int{1, 4, 7}, decision.Outcome.Line)
		assert.Equal(t, alice, decision.Outcome.Player)
	})

	t.Run("Reports a draw on the last empty cell", func(t *testing.T) {
		// Given: one empty cell left and no line possible
		match := ongoingMatch("XOXXOOOX-", alice)

		// When: alice fills it
		decision := Validate(match, alice, 8)

		// Then: the board is full and nobody wins
		require.True(t, decision.IsAccepted())
		assert.Equal(t, Draw, decision.Outcome.Kind)
		assert.True(t, decision.Board.IsFull())
	})
}

// TestValidate_Exhaustive walks every (status, cell state, mover) combination.
func TestValidate_Exhaustive(t *testing.T) {
	statuses := []entity.Status{entity.StatusPending, entity.StatusInProgress, entity.StatusCompleted}
	cells := []entity.Mark{entity.MarkEmpty, entity.MarkX, entity.MarkO}
	movers := []string{alice, bob}

	for _, status := range statuses {
		for _, cell := range cells {
			for _, mover := range movers {
				for position := 0; position < entity.BoardSize; position++ {
					// Given: alice to move, with the target cell in the given state
					match := ongoingMatch("---------", alice)
					match.Status = status
					match.Board[position] = cell

					// When: mover plays position
					decision := Validate(match, mover, position)

					// Then: only an in-progress, empty, on-turn move is accepted
					shouldAccept := status == entity.StatusInProgress && cell == entity.MarkEmpty && mover == alice
					assert.Equal(t, shouldAccept, decision.IsAccepted(),
						"status=%s cell=%s mover=%s position=%d", status, cell, mover, position)

					if !shouldAccept {
						assert.Equal(t, entity.Board{}, decision.Board)
					}
				}
			}
		}
	}
}

func TestEvaluate_AllLines(t *testing.T) {
	for _, combo := range entity.WinCombos {
		// Given: a board where only combo is filled by X
		board := entity.NewBoard()
		for _, cell := range combo {
			board[cell] = entity.MarkX
		}

		// When: evaluating after X's move
		outcome := Evaluate(board, entity.MarkX, alice)

		// Then: X wins on exactly that line
		assert.Equal(t, Win, outcome.Kind, "combo %v", combo)
		assert.Equal(t, combo, outcome.Line)
	}

	t.Run("A full board without any line is a draw", func(t *testing.T) {
		board, err := entity.ParseBoard("XOXXOOOXX")
		require.NoError(t, err)

		assert.Equal(t, Draw, Evaluate(board, entity.MarkX, alice).Kind)
	})

	t.Run("A line of the opponent's mark is not a win for the mover", func(t *testing.T) {
		board, err := entity.ParseBoard("OOOX-X---")
		require.NoError(t, err)

		assert.Equal(t, Continue, Evaluate(board, entity.MarkX, alice).Kind)
	})
}

func TestVerdict_String(t *testing.T) {
	assert.Equal(t, "accepted", Accepted.String())
	assert.Equal(t, "rejected_cell_occupied", RejectedCellOccupied.String())
	assert.Equal(t, "verdict(42)", Verdict(42).String())
}
