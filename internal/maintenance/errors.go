package maintenance

import (
	"errors"
	"fmt"

	"github.com/ukydev/maintenance-hub/internal/db"
)

// Kind classifies an error for callers deciding how to surface it.
type Kind string

const (
	KindNotFound      Kind = "not_found"
	KindValidation    Kind = "validation"
	KindAuthorization Kind = "authorization"
	KindConflict      Kind = "conflict"
	KindExternal      Kind = "external_failure"
)

// Stable machine-readable error codes.
const (
	CodeNotFound               = "NOT_FOUND"
	CodeValidation             = "VALIDATION_ERROR"
	CodeInvalidStatus          = "INVALID_STATUS"
	CodeForbidden              = "FORBIDDEN"
	CodeInvalidTechnician      = "INVALID_TECHNICIAN"
	CodeInvalidTeam            = "INVALID_TEAM"
	CodeNoAvailableTechnicians = "NO_AVAILABLE_TECHNICIANS"
	CodeCreationFailed         = "CREATION_FAILED"
	CodeRequestClosed          = "REQUEST_CLOSED"
	CodeConcurrentUpdate       = "CONCURRENT_UPDATE"
)

// Error is a domain error with a kind and a stable code.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func validationError(format string, args ...interface{}) *Error {
	return newError(KindValidation, CodeValidation, fmt.Sprintf(format, args...))
}

func notFound(what string) *Error {
	return newError(KindNotFound, CodeNotFound, what+" not found")
}

// errForbidden never says why; callers must not learn whether the request
// exists under another assignment.
var errForbidden = newError(KindAuthorization, CodeForbidden, "not allowed to perform this action")

var errClosed = newError(KindConflict, CodeRequestClosed, "request is closed")

// KindOf returns the kind of err, or "" for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// CodeOf returns the code of err, or "" for unclassified errors.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// storageErr maps a storage failure for what onto a domain error.
func storageErr(what string, err error) error {
	switch {
	case errors.Is(err, db.ErrNotFound):
		return notFound(what)
	case errors.Is(err, db.ErrRequestClosed):
		return errClosed
	}
	return fmt.Errorf("%s: %w", what, err)
}
