package types

import (
	"errors"
	"fmt"
)

// Kind is one of the ten abstract error kinds the design assigns every
// failure the bridge can surface to a caller. Kinds are compared by value,
// never by pointer identity, so callers across package boundaries can
// branch on them with errors.As.
type Kind int

const (
	_ Kind = iota
	KindConfigError
	KindSpawnError
	KindProtocolError
	KindRPCError
	KindTimeout
	KindTransportClosed
	KindUnknownWorkspace
	KindUnavailable
	KindIOError
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindConfigError:
		return "configError"
	case KindSpawnError:
		return "spawnError"
	case KindProtocolError:
		return "protocolError"
	case KindRPCError:
		return "rpcError"
	case KindTimeout:
		return "timeout"
	case KindTransportClosed:
		return "transportClosed"
	case KindUnknownWorkspace:
		return "unknownWorkspace"
	case KindUnavailable:
		return "unavailable"
	case KindIOError:
		return "ioError"
	case KindNotFound:
		return "notFound"
	default:
		return "unknown"
	}
}

// Error is the single error type that crosses the capability-facade
// boundary. It always carries a Kind; Cause and Message are optional detail
// layered on top.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a *Error with the same Kind, so callers can
// write errors.Is(err, types.NewError(types.KindNotFound, "")).
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return other.Kind == e.Kind
}

// NewError builds an *Error with no wrapped cause.
func NewError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an *Error wrapping cause under the given kind. Wrapping a nil
// cause with a message is the common construction for a bare occurrence of
// a kind (e.g. NotFound has no underlying error).
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// KindOf extracts the Kind carried anywhere in err's chain, defaulting to
// the zero Kind (unknown) if err is nil or carries no *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
