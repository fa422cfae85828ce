// Package apperr defines the typed failures returned by the domain services.
// The HTTP layer maps a Kind to a status code and renders Key through the
// i18n catalog of the caller's language.
package apperr

import (
	"errors"

	"github.com/terra-clan/course-engine/internal/i18n"
)

// Kind classifies a failure
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindInvalidState
	KindAlreadyExists
	KindUpstream
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindInvalidState:
		return "invalid_state"
	case KindAlreadyExists:
		return "already_exists"
	case KindUpstream:
		return "upstream_failure"
	case KindValidation:
		return "validation_error"
	default:
		return "internal_error"
	}
}

// Error is a domain failure carrying a localizable message
type Error struct {
	Kind Kind
	Key  string
	Args []string

	// Fields holds per-field messages for validation failures
	Fields map[string]string

	Err error
}

// Sentinels for errors.Is. They match any *Error of the same kind.
var (
	ErrNotFound      = &Error{Kind: KindNotFound}
	ErrInvalidState  = &Error{Kind: KindInvalidState}
	ErrAlreadyExists = &Error{Kind: KindAlreadyExists}
	ErrUpstream      = &Error{Kind: KindUpstream}
	ErrValidation    = &Error{Kind: KindValidation}
)

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Key != "" {
		msg = i18n.English(e.Key, e.Args...)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches sentinels by kind
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Key == "" && t.Kind == e.Kind
}

// NotFound reports a missing entity; key is the entity's not-found message.
func NotFound(key, id string) *Error {
	return &Error{Kind: KindNotFound, Key: key, Args: []string{id}}
}

// InvalidState reports an operation that would break a hierarchy invariant
func InvalidState(key string, args ...string) *Error {
	return &Error{Kind: KindInvalidState, Key: key, Args: args}
}

// AlreadyExists reports a duplicate
func AlreadyExists(key string, args ...string) *Error {
	return &Error{Kind: KindAlreadyExists, Key: key, Args: args}
}

// Upstream wraps a collaborator failure
func Upstream(key string, err error) *Error {
	return &Error{Kind: KindUpstream, Key: key, Err: err}
}

// Validation reports invalid input with per-field messages
func Validation(fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Key: i18n.KeyValidationFailed, Fields: fields}
}

// KindOf returns the kind of the first *Error in err's chain, or
// KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// As returns the first *Error in err's chain
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
