package secure

import stderrors "errors"

// Kind categorises engine errors so callers can decide how to react.
// KindAuthFailed and KindReplay indicate attack-like conditions and should
// be logged as security events, not silently dropped.
type Kind uint8

const (
	KindHandshakeFailed Kind = iota + 1
	KindAuthFailed
	KindReplay
	KindSessionClosed
	KindTimeout
)

func (k Kind) String() string {
	switch k {
	case KindHandshakeFailed:
		return "handshake failed"
	case KindAuthFailed:
		return "authentication failed"
	case KindReplay:
		return "replay detected"
	case KindSessionClosed:
		return "session closed"
	case KindTimeout:
		return "timed out"
	default:
		return "unknown"
	}
}

type Error struct {
	Kind  Kind
	Msg   string
	Inner error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Inner == nil {
		return e.Msg
	}
	return e.Msg + ": " + e.Inner.Error()
}

func (e *Error) Unwrap() error { return e.Inner }

func newError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

func wrapError(kind Kind, msg string, inner error) *Error {
	return &Error{Kind: kind, Msg: msg, Inner: inner}
}

// IsKind reports whether err is an engine error of the given kind.
func IsKind(err error, kind Kind) bool {
	var se *Error
	if stderrors.As(err, &se) {
		return se.Kind == kind
	}
	return false
}
