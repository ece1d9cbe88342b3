package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrNotFound     = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrValidation   = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrConflict     = New("CONFLICT", http.StatusConflict, "conflict")
	ErrInternal     = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrUnauthorized = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrRepository   = New("REPOSITORY_FAILURE", http.StatusInternalServerError, "repository failure")

	// ErrCacheMiss signals a cache lookup found nothing. Callers fall back to
	// the database.
	ErrCacheMiss = New("CACHE_MISS", http.StatusNotFound, "cache miss")

	// Scheduling pipeline.
	ErrInfeasible    = New("INFEASIBLE", http.StatusUnprocessableEntity, "timetable data is infeasible")
	ErrUnschedulable = New("UNSCHEDULABLE", http.StatusConflict, "no conflict-free timetable exists")
	ErrTimeout       = New("TIMEOUT", http.StatusRequestTimeout, "scheduling deadline exceeded")

	// Attendance capture.
	ErrTokenMissing       = New("TOKEN_MISSING", http.StatusNotFound, "attendance token not found")
	ErrTokenExpired       = New("TOKEN_EXPIRED", http.StatusGone, "attendance token expired")
	ErrTokenConsumed      = New("TOKEN_CONSUMED", http.StatusConflict, "attendance token already consumed")
	ErrNotYetStarted      = New("NOT_YET_STARTED", http.StatusConflict, "class has not started yet")
	ErrEnded              = New("ENDED", http.StatusConflict, "class has ended")
	ErrAlreadyMarked      = New("ALREADY_MARKED", http.StatusConflict, "attendance already marked")
	ErrUnauthorizedMarker = New("UNAUTHORIZED_MARKER", http.StatusForbidden, "marker is not allowed to record attendance for this class")
	ErrWrongGroup         = New("WRONG_GROUP", http.StatusForbidden, "student is not a member of the class group")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}

// Is reports whether err carries the same error code as kind.
func Is(err error, kind *Error) bool {
	if err == nil || kind == nil {
		return false
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code == kind.Code
	}
	return false
}
