package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so callers can branch on it without string matching.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindAuthFailure
	KindAuthorizationExpired
	KindNotFound
	KindNetwork
	KindServer
	KindDocument
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthFailure:
		return "auth_failure"
	case KindAuthorizationExpired:
		return "authorization_expired"
	case KindNotFound:
		return "not_found"
	case KindNetwork:
		return "network"
	case KindServer:
		return "server"
	case KindDocument:
		return "document"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is; an *Error matches the sentinel of its Kind.
var (
	ErrValidation           = errors.New("validation error")
	ErrAuthFailure          = errors.New("authentication failed")
	ErrAuthorizationExpired = errors.New("authorization expired")
	ErrNotFound             = errors.New("not found")
	ErrNetwork              = errors.New("network failure")
	ErrServer               = errors.New("server error")
	ErrDocument             = errors.New("document unavailable")
)

// Error carries a human-readable Message meant for the end user.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func New(kind Kind, msg string) *Error { return &Error{Kind: kind, Message: msg} }

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	return target == sentinel(e.Kind)
}

func sentinel(k Kind) error {
	switch k {
	case KindValidation:
		return ErrValidation
	case KindAuthFailure:
		return ErrAuthFailure
	case KindAuthorizationExpired:
		return ErrAuthorizationExpired
	case KindNotFound:
		return ErrNotFound
	case KindNetwork:
		return ErrNetwork
	case KindServer:
		return ErrServer
	case KindDocument:
		return ErrDocument
	}
	return nil
}

// KindOf reports the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Message returns the user-facing text of err, or fallback when err carries none.
func Message(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return fallback
}
