package room

import (
	"errors"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
)

const (
	ActionGameState    = "game_state"
	ActionPlayerJoined = "player_joined"
	ActionMoveMade     = "move_made"
	ActionGameOver     = "game_over"
	ActionError        = "error"
)

const drawStatus = "draw"

// Event is an outbound message tagged by its action.
type Event interface {
	Name() string
}

type GameStateEvent struct {
	Action      string        `json:"action"`
	RoomCode    string        `json:"room_code"`
	Board       string        `json:"board"`
	Status      entity.Status `json:"status"`
	CurrentTurn *string       `json:"current_turn"`
	Player1     string        `json:"player1"`
	Player2     *string       `json:"player2"`
	Winner      *string       `json:"winner"`
}

func (that GameStateEvent) Name() string { return that.Action }

type PlayerJoinedEvent struct {
	Action      string        `json:"action"`
	Player2     string        `json:"player2"`
	Status      entity.Status `json:"status"`
	CurrentTurn string        `json:"current_turn"`
	Board       string        `json:"board"`
}

func (that PlayerJoinedEvent) Name() string { return that.Action }

type MoveMadeEvent struct {
	Action   string      `json:"action"`
	Position int         `json:"position"`
	Symbol   entity.Mark `json:"symbol"`
	NextTurn string      `json:"next_turn"`
	Board    string      `json:"board"`
}

func (that MoveMadeEvent) Name() string { return that.Action }

// GameOverEvent carries either a winner with its line, or a null winner with status "draw".
type GameOverEvent struct {
	Action       string  `json:"action"`
	Winner       *string `json:"winner"`
	Board        string  `json:"board"`
	WinningCombo []int   `json:"winning_combo,omitempty"`
	Status       string  `json:"status,omitempty"`
}

func (that GameOverEvent) Name() string { return that.Action }

type ErrorEvent struct {
	Action  string `json:"action"`
	Message string `json:"message"`
}

func (that ErrorEvent) Name() string { return that.Action }

// NewGameState - full snapshot of the match. A draw is reported with a null winner.
func NewGameState(match *entity.Match) GameStateEvent {
	event := GameStateEvent{
		Action:      ActionGameState,
		RoomCode:    match.RoomCode,
		Board:       match.Board.String(),
		Status:      match.Status,
		CurrentTurn: optional(match.Turn),
		Player1:     match.Player1,
		Player2:     optional(match.Player2),
	}

	if !match.IsDraw() {
		event.Winner = optional(match.Winner)
	}

	return event
}

func NewError(err error) ErrorEvent {
	return ErrorEvent{Action: ActionError, Message: messageOf(err)}
}

func messageOf(err error) string {
	switch {
	case errors.Is(err, apperror.ErrMalformedMessage):
		return "Invalid JSON format"
	case apperror.KindOf(err) == apperror.KindInternal:
		return "Internal server error"
	default:
		return err.Error()
	}
}

func optional(value string) *string {
	if value == "" {
		return nil
	}

	return &value
}
