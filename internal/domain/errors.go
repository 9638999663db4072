package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an error for transport mapping.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindAuthentication
	KindAuthorization
	KindNotFound
	KindConflict
	KindDelivery
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation_error"
	case KindAuthentication:
		return "authentication_error"
	case KindAuthorization:
		return "authorization_error"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindDelivery:
		return "delivery_error"
	default:
		return "internal_error"
	}
}

// Error is the error type every service returns for expected failures.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Details []string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if len(e.Details) > 0 {
		msg += ": " + strings.Join(e.Details, "; ")
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches sentinels by code so that wrapped copies still compare equal.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code != "" && t.Code == e.Code
}

// Wrap returns a copy of e carrying cause.
func (e *Error) Wrap(cause error) *Error {
	cp := *e
	cp.Err = cause
	return &cp
}

// WithMessage returns a copy of e with a different human-readable message.
func (e *Error) WithMessage(msg string) *Error {
	cp := *e
	cp.Message = msg
	return &cp
}

func newError(kind Kind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Message: msg}
}

var (
	ErrMissingToken       = newError(KindAuthentication, "MISSING_TOKEN", "missing token")
	ErrInvalidToken       = newError(KindAuthentication, "INVALID_TOKEN", "invalid token")
	ErrExpiredToken       = newError(KindAuthentication, "EXPIRED_TOKEN", "token expired")
	ErrSubjectGone        = newError(KindAuthentication, "SUBJECT_GONE", "subject no longer exists")
	ErrPasswordChanged    = newError(KindAuthentication, "PASSWORD_CHANGED", "password changed; re-authenticate")
	ErrInvalidCredentials = newError(KindAuthentication, "INVALID_CREDENTIALS", "incorrect email or password")

	ErrForbidden = newError(KindAuthorization, "FORBIDDEN", "you do not have permission to perform this action")

	ErrNotFound             = newError(KindNotFound, "NOT_FOUND", "resource not found")
	ErrUserNotFound         = newError(KindNotFound, "USER_NOT_FOUND", "user not found")
	ErrEstateNotFound       = newError(KindNotFound, "ESTATE_NOT_FOUND", "estate not found")
	ErrFavoriteNotFound     = newError(KindNotFound, "FAVORITE_NOT_FOUND", "favorite not found")
	ErrInvalidOrExpiredCode = newError(KindValidation, "INVALID_OR_EXPIRED_CODE", "code is invalid or has expired")

	ErrOverlap   = newError(KindConflict, "OVERLAPPING_BOOKING", "overlapping rental period")
	ErrDuplicate = newError(KindConflict, "DUPLICATE", "resource already exists")

	ErrDelivery = newError(KindDelivery, "DELIVERY_FAILED", "there was an error sending the email, try again later")

	ErrInternal = newError(KindInternal, "INTERNAL", "something went wrong")
)

// NewValidationError builds a validation error with an itemized list.
func NewValidationError(details ...string) *Error {
	return &Error{
		Kind:    KindValidation,
		Code:    "VALIDATION_FAILED",
		Message: "validation failed",
		Details: details,
	}
}

// KindOf reports the kind of err. Errors outside the taxonomy are internal.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// AsError extracts the domain error from err's chain.
func AsError(err error) (*Error, bool) {
	var de *Error
	ok := errors.As(err, &de)
	return de, ok
}

// Validator collects field problems before a request reaches storage.
type Validator struct {
	problems []string
}

func (v *Validator) Check(ok bool, problem string) {
	if !ok {
		v.problems = append(v.problems, problem)
	}
}

func (v *Validator) Addf(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

// Err returns nil when no problem was recorded.
func (v *Validator) Err() error {
	if len(v.problems) == 0 {
		return nil
	}
	return NewValidationError(v.problems...)
}
