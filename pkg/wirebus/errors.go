package wirebus

import (
	"errors"
	"fmt"
)

// Kind classifies bus errors so callers can branch on failure class without
// string matching.
type Kind int

const (
	// KindIo indicates a socket or filesystem I/O failure.
	KindIo Kind = iota

	// KindSerialization indicates an event could not be encoded.
	KindSerialization

	// KindDeserialization indicates bytes could not be decoded into an event.
	KindDeserialization

	// KindConnectionFailed indicates a dial attempt failed.
	KindConnectionFailed

	// KindChannelClosed indicates the receive path was closed by Stop.
	KindChannelClosed

	// KindInvalidAddress indicates a malformed bind or dial address.
	KindInvalidAddress

	// KindTimeout indicates a caller-imposed deadline expired.
	KindTimeout

	// KindAlreadyRunning indicates Start was called on a running component.
	KindAlreadyRunning

	// KindNotRunning indicates an operation that requires a running component.
	KindNotRunning

	// KindInvalidTopic indicates a topic failed validation.
	KindInvalidTopic

	// KindAuthFailed indicates a capability check rejected the operation.
	KindAuthFailed
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindIo:
		return "io"
	case KindSerialization:
		return "serialization"
	case KindDeserialization:
		return "deserialization"
	case KindConnectionFailed:
		return "connection_failed"
	case KindChannelClosed:
		return "channel_closed"
	case KindInvalidAddress:
		return "invalid_address"
	case KindTimeout:
		return "timeout"
	case KindAlreadyRunning:
		return "already_running"
	case KindNotRunning:
		return "not_running"
	case KindInvalidTopic:
		return "invalid_topic"
	case KindAuthFailed:
		return "auth_failed"
	default:
		return "unknown"
	}
}

// BusError wraps an error with its kind and context.
type BusError struct {
	// Kind classifies the failure.
	Kind Kind

	// Msg describes what failed.
	Msg string

	// Err is the underlying error, if any.
	Err error
}

// Error implements the error interface.
func (e *BusError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *BusError) Unwrap() error {
	return e.Err
}

// newError creates a BusError without an underlying cause.
func newError(kind Kind, format string, args ...any) *BusError {
	return &BusError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// wrapError creates a BusError wrapping an underlying cause.
func wrapError(kind Kind, err error, format string, args ...any) *BusError {
	return &BusError{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the kind of err, or ok=false if err is not a BusError.
func KindOf(err error) (Kind, bool) {
	var be *BusError
	if errors.As(err, &be) {
		return be.Kind, true
	}
	return 0, false
}

// IsKind reports whether err is a BusError of the given kind.
func IsKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
