package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for the client
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindUnauthorized
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindUnauthorized:
		return "unauthorized"
	default:
		return "internal"
	}
}

// Error is the error type every service returns to the HTTP layer.
// Message is safe to show to clients, Err is for logs only.
type Error struct {
	Kind       Kind
	HTTPStatus int
	Message    string
	Code       string
	Err        error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches on Kind so callers can write errors.Is(err, apperror.ErrNotFound)
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil {
		return false
	}
	return t.Message == "" && t.Kind == e.Kind
}

// WithStatus overrides the HTTP status derived from the kind
func (e *Error) WithStatus(status int) *Error {
	e.HTTPStatus = status
	return e
}

// Sentinels for errors.Is, they carry only a Kind
var (
	ErrValidation   = &Error{Kind: KindValidation}
	ErrNotFound     = &Error{Kind: KindNotFound}
	ErrConflict     = &Error{Kind: KindConflict}
	ErrUnauthorized = &Error{Kind: KindUnauthorized}
	ErrInternal     = &Error{Kind: KindInternal}
)

func newError(kind Kind, status int, message string, err error) *Error {
	return &Error{Kind: kind, HTTPStatus: status, Message: message, Err: err}
}

func Validation(message string) *Error {
	return newError(KindValidation, http.StatusBadRequest, message, nil)
}

func NotFound(message string) *Error {
	return newError(KindNotFound, http.StatusNotFound, message, nil)
}

func Conflict(message, code string) *Error {
	e := newError(KindConflict, http.StatusConflict, message, nil)
	e.Code = code
	return e
}

func Unauthorized(message string) *Error {
	return newError(KindUnauthorized, http.StatusUnauthorized, message, nil)
}

// Internal hides err behind a generic message
func Internal(err error) *Error {
	return newError(KindInternal, http.StatusInternalServerError, "Internal server error", err)
}

// From converts any error into an *Error, unknown errors become internal
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal(err)
}

// IsDomain reports whether err is an expected, client-caused error
func IsDomain(err error) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Kind != KindInternal
}
