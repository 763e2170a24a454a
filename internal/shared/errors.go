package shared

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies an error for transport mapping.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindAuthentication
	KindAuthorization
	KindConflict
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthentication:
		return "authentication"
	case KindAuthorization:
		return "authorization"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	default:
		return "internal"
	}
}

// Error is the classified error returned by services. Message is safe to show
// to clients; Err keeps the cause for logging.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Kind == KindInternal {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrUnauthorized is returned when no bearer token was presented.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden is returned when the session lacks the required role.
	ErrForbidden = errors.New("insufficient permission")
)

// Validation reports malformed or missing input.
func Validation(format string, args ...any) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// Authentication reports a missing, invalid or expired credential.
func Authentication(reason string) error {
	return &Error{Kind: KindAuthentication, Message: reason}
}

// Authorization reports a valid session lacking the required role.
func Authorization() error {
	return &Error{Kind: KindAuthorization, Message: ErrForbidden.Error(), Err: ErrForbidden}
}

// Conflict reports a uniqueness violation.
func Conflict(message string, cause error) error {
	return &Error{Kind: KindConflict, Message: message, Err: cause}
}

// NotFound reports an absent entity.
func NotFound(entity string) error {
	return &Error{Kind: KindNotFound, Message: entity + " not found", Err: ErrNotFound}
}

// Internal wraps a collaborator failure. The message shown to clients is generic.
func Internal(op string, cause error) error {
	return &Error{Kind: KindInternal, Message: op, Err: cause}
}

// KindOf returns the classification of err. Unclassified errors are internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, ErrNotFound) {
		return KindNotFound
	}
	return KindInternal
}

// UserSafeMessage returns the message that may be sent to a client.
func UserSafeMessage(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindInternal {
		return e.Message
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "request timed out"
	}
	return "internal server error"
}
