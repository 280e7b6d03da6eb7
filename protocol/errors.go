package protocol

import (
	"errors"
	"fmt"
)

// ErrorKind is a closed enumeration of the ways a protocol exchange can
// fail. Callers branch on the kind rather than on concrete error types.
type ErrorKind int

const (
	// KindUnknownCommand is an ERROR response: the server did not
	// recognize the command. Indicates a protocol version skew.
	KindUnknownCommand ErrorKind = iota

	// KindClientError is a CLIENT_ERROR response, or a request rejected
	// locally before any bytes were sent (bad key, unencodable value).
	KindClientError

	// KindServerError is a SERVER_ERROR response.
	KindServerError

	// KindUnknownResponse is a response line that matches no known
	// grammar for the command that was issued.
	KindUnknownResponse

	// KindUnexpectedClose is an EOF before a complete line or value was
	// read.
	KindUnexpectedClose

	// KindTransport wraps an I/O error from the underlying stream
	// (timeout, reset, refused connection).
	KindTransport
)

func (k ErrorKind) String() string {
	switch k {
	case KindUnknownCommand:
		return "unknown command"
	case KindClientError:
		return "client error"
	case KindServerError:
		return "server error"
	case KindUnknownResponse:
		return "unknown response"
	case KindUnexpectedClose:
		return "unexpected close"
	case KindTransport:
		return "transport error"
	default:
		return "unknown"
	}
}

// Error is the error type returned by this package and by the client for
// every protocol-level failure.
type Error struct {
	Kind    ErrorKind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.Message == "" {
		if e.cause != nil {
			return fmt.Sprintf("memcache: %s: %v", e.Kind, e.cause)
		}
		return "memcache: " + e.Kind.String()
	}
	return fmt.Sprintf("memcache: %s: %s", e.Kind, e.Message)
}

// Unwrap exposes the underlying cause, if any, so transport errors remain
// reachable with errors.Is and errors.As.
func (e *Error) Unwrap() error {
	return e.cause
}

// NewError builds a protocol error of the given kind.
func NewError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// WrapTransport wraps an I/O error from the stream layer.
func WrapTransport(err error) *Error {
	return &Error{Kind: KindTransport, cause: err}
}

// KindOf reports the protocol error kind of err. ok is false when err is
// not a protocol error.
func KindOf(err error) (kind ErrorKind, ok bool) {
	var e *Error
	if !errors.As(err, &e) {
		return 0, false
	}
	return e.Kind, true
}

// IsKind reports whether err is a protocol error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
