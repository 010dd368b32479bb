package apperror

import "errors"

// auth.
var (
	ErrMissingToken = errors.New("auth token is missing")
	ErrInvalidToken = errors.New("auth token is invalid")
)

// protocol.
var (
	ErrMalformedMessage = errors.New("invalid JSON format")
	ErrUnknownAction    = errors.New("unknown action")
	ErrMissingPosition  = errors.New("position is required")
)

// rooms.
var (
	ErrRoomNotFound      = errors.New("room not found")
	ErrRoomAlreadyExists = errors.New("room already exists")
)

// moves.
var (
	ErrGameNotInProgress = errors.New("game is not in progress")
	ErrNotYourTurn       = errors.New("it's not your turn")
	ErrInvalidPosition   = errors.New("position must be between 0 and 8")
	ErrCellOccupied      = errors.New("cell is already occupied")
)

// membership.
var (
	ErrNotAPlayer = errors.New("you are not a player in this game")
	ErrRoomFull   = errors.New("room is full")
	ErrSelfJoin   = errors.New("you cannot join your own game")
)

// connections.
var (
	ErrConnectionClosed = errors.New("connection is closed")
	ErrSendBufferFull   = errors.New("send buffer is full")
)

var ErrInternal = errors.New("internal server error")
