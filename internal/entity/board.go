package entity

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

type Mark string

const (
	MarkX     Mark = "X"
	MarkO     Mark = "O"
	MarkEmpty Mark = "-"
)

const BoardSize = 9

var (
	ErrInvalidBoard = errors.New("invalid board")

	// WinCombos - the 8 canonical lines: rows, columns, diagonals.
	WinCombos = [8][3]int{
		{0, 1, 2},
		{3, 4, 5},
		{6, 7, 8},
		{0, 3, 6},
		{1, 4, 7},
		{2, 5, 8},
		{0, 4, 8},
		{2, 4, 6},
	}
)

// Board is encoded on the wire as a 9 character string, "-" for an empty cell.
type Board [BoardSize]Mark

func NewBoard() Board {
	var board Board
	for i := range board {
		board[i] = MarkEmpty
	}

	return board
}

func ParseBoard(raw string) (Board, error) {
	var board Board
	if len(raw) != BoardSize {
		return board, fmt.Errorf("%w: length %d", ErrInvalidBoard, len(raw))
	}

	for i, r := range raw {
		switch mark := Mark(r); mark {
		case MarkX, MarkO, MarkEmpty:
			board[i] = mark
		default:
			return board, fmt.Errorf("%w: unexpected cell %q at %d", ErrInvalidBoard, r, i)
		}
	}

	return board, nil
}

func (that Board) String() string {
	var sb strings.Builder
	for _, cell := range that {
		if cell == "" {
			cell = MarkEmpty
		}
		sb.WriteString(string(cell))
	}

	return sb.String()
}

func (that Board) MarshalJSON() ([]byte, error) {
	return json.Marshal(that.String())
}

func (that *Board) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidBoard, err)
	}

	board, err := ParseBoard(raw)
	if err != nil {
		return err
	}

	*that = board

	return nil
}

func (that Board) IsEmptyCell(position int) bool {
	return that[position] == MarkEmpty || that[position] == ""
}

// Filled - number of non-empty cells.
func (that Board) Filled() int {
	filled := 0
	for i := range that {
		if !that.IsEmptyCell(i) {
			filled++
		}
	}

	return filled
}

func (that Board) IsFull() bool {
	return that.Filled() == BoardSize
}

// WinningLine - returns the first canonical line held by a single mark.
func (that Board) WinningLine() ([3]int, Mark, bool) {
	for _, combo := range WinCombos {
		a, b, c := that[combo[0]], that[combo[1]], that[combo[2]]
		if !that.IsEmptyCell(combo[0]) && a == b && b == c {
			return combo, a, true
		}
	}

	return [3]int{}, MarkEmpty, false
}
