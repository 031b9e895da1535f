package services

import (
	"fmt"

	"github.com/pkg/errors"

	"foodorder/internal/repositories"
)

// Kind classifies a service error for callers and transports.
type Kind string

const (
	KindValidation      Kind = "validation"
	KindNotFound        Kind = "not_found"
	KindAuthorization   Kind = "authorization"
	KindUnauthenticated Kind = "unauthenticated"
	KindInvalidState    Kind = "invalid_state"
	KindWindowExpired   Kind = "window_expired"
	KindTransport       Kind = "transport"
	KindInternal        Kind = "internal"
)

// Error is a classified service failure with a client-safe message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap exposes the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: cause}
}

func ValidationError(format string, args ...interface{}) *Error {
	return newError(KindValidation, nil, format, args...)
}

func NotFoundError(format string, args ...interface{}) *Error {
	return newError(KindNotFound, nil, format, args...)
}

func AuthorizationError(format string, args ...interface{}) *Error {
	return newError(KindAuthorization, nil, format, args...)
}

func UnauthenticatedError(format string, args ...interface{}) *Error {
	return newError(KindUnauthenticated, nil, format, args...)
}

func InvalidStateError(format string, args ...interface{}) *Error {
	return newError(KindInvalidState, nil, format, args...)
}

func WindowExpiredError(format string, args ...interface{}) *Error {
	return newError(KindWindowExpired, nil, format, args...)
}

// TransportError marks a failed best-effort delivery.
func TransportError(cause error, format string, args ...interface{}) *Error {
	return newError(KindTransport, cause, format, args...)
}

// KindOf returns the Kind of err, or KindInternal for unclassified errors.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}

// IsKind reports whether err is a service error of kind k.
func IsKind(err error, k Kind) bool {
	return err != nil && KindOf(err) == k
}

// fromRepo maps repositories.ErrNotFound to a NotFoundError and wraps anything else.
func fromRepo(err error, format string, args ...interface{}) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return NotFoundError(format, args...)
	}
	return errors.Wrapf(err, format, args...)
}
