package apperror

import "errors"

// Kind groups errors by how the gateway reacts to them.
type Kind string

const (
	KindAuth         Kind = "auth"
	KindProtocol     Kind = "protocol"
	KindRoomNotFound Kind = "room_not_found"
	KindIllegalMove  Kind = "illegal_move"
	KindMembership   Kind = "membership"
	KindConnection   Kind = "connection"
	KindInternal     Kind = "internal"
)

var kinds = []struct {
	err  error
	kind Kind
}{
	{ErrMissingToken, KindAuth},
	{ErrInvalidToken, KindAuth},
	{ErrMalformedMessage, KindProtocol},
	{ErrUnknownAction, KindProtocol},
	{ErrMissingPosition, KindProtocol},
	{ErrRoomNotFound, KindRoomNotFound},
	{ErrGameNotInProgress, KindIllegalMove},
	{ErrNotYourTurn, KindIllegalMove},
	{ErrInvalidPosition, KindIllegalMove},
	{ErrCellOccupied, KindIllegalMove},
	{ErrNotAPlayer, KindMembership},
	{ErrRoomFull, KindMembership},
	{ErrSelfJoin, KindMembership},
	{ErrConnectionClosed, KindConnection},
	{ErrSendBufferFull, KindConnection},
}

// KindOf - returns the kind of the first known sentinel found in err's chain.
// Unknown errors are internal.
func KindOf(err error) Kind {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}

	return KindInternal
}

// IsFatal - reports whether the connection must be closed because of err.
func IsFatal(err error) bool {
	switch KindOf(err) {
	case KindAuth, KindRoomNotFound, KindConnection:
		return true
	default:
		return false
	}
}
