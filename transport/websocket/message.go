package websocket

import (
	"encoding/json"
	"fmt"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/apperror"
)

const actionMakeMove = "make_move"

// Message is an inbound client message. Position is decoded only for make_move.
type Message struct {
	Action   string          `json:"action"`
	Position json.RawMessage `json:"position,omitempty"`
}

type MakeMove struct {
	Position int
}

// ParseMessage - decodes one inbound frame into a known action.
func ParseMessage(data []byte) (MakeMove, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return MakeMove{}, fmt.Errorf("%w: %w", apperror.ErrMalformedMessage, err)
	}

	switch msg.Action {
	case actionMakeMove:
		var position int
		if len(msg.Position) == 0 || string(msg.Position) == "null" {
			return MakeMove{}, apperror.ErrMissingPosition
		}

		if err := json.Unmarshal(msg.Position, &position); err != nil {
			if isNumber(msg.Position) {
				return MakeMove{}, fmt.Errorf("%w: got %s", apperror.ErrInvalidPosition, msg.Position)
			}

			return MakeMove{}, apperror.ErrMissingPosition
		}

		return MakeMove{Position: position}, nil
	default:
		return MakeMove{}, fmt.Errorf("%w: %s", apperror.ErrUnknownAction, msg.Action)
	}
}

// isNumber reports whether raw is a JSON number literal.
func isNumber(raw json.RawMessage) bool {
	return len(raw) > 0 && (raw[0] == '-' || (raw[0] >= '0' && raw[0] <= '9'))
}
