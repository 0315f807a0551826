// Package apperror defines the errors surfaced to tracking callers.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	CodeBadRequest   = "bad_request"
	CodeUnauthorized = "unauthorized"
	CodeForbidden    = "forbidden"
	CodeNotFound     = "not_found"
	CodeInternal     = "internal_server_error"
)

type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches on code so callers can compare against the sentinel values.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func New(status int, code, message string) *AppError {
	return &AppError{Code: code, Message: message, Status: status}
}

func NotFound(format string, args ...any) *AppError {
	return New(http.StatusNotFound, CodeNotFound, fmt.Sprintf(format, args...))
}

func Forbidden(format string, args ...any) *AppError {
	return New(http.StatusForbidden, CodeForbidden, fmt.Sprintf(format, args...))
}

func BadRequest(format string, args ...any) *AppError {
	return New(http.StatusBadRequest, CodeBadRequest, fmt.Sprintf(format, args...))
}

func Unauthorized(format string, args ...any) *AppError {
	return New(http.StatusUnauthorized, CodeUnauthorized, fmt.Sprintf(format, args...))
}

func Internal(err error, message string) *AppError {
	return &AppError{
		Code:    CodeInternal,
		Message: message,
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

var (
	ErrNotFound  = New(http.StatusNotFound, CodeNotFound, "not found")
	ErrForbidden = New(http.StatusForbidden, CodeForbidden, "forbidden")
)

// From returns err as an *AppError, wrapping unknown errors as internal.
func From(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal(err, "An internal error occurred.")
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden)
}
