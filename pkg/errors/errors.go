package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Standard sentinel errors for common cases.
var (
	ErrNotFound       = errors.New("resource not found")
	ErrAlreadyExists  = errors.New("resource already exists")
	ErrInvalidInput   = errors.New("invalid input")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrInvalidToken   = errors.New("invalid token")
	ErrForbidden      = errors.New("forbidden")
	ErrInternal       = errors.New("internal error")
	ErrConflict       = errors.New("conflict")
	ErrServiceUnavail = errors.New("service unavailable")
)

// AppError represents a structured application error with HTTP status mapping.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound creates a 404 error.
func NotFound(resource, id string) *AppError {
	return &AppError{
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s with id %s not found", resource, id),
		Status:  http.StatusNotFound,
		Err:     ErrNotFound,
	}
}

// AlreadyExists creates a 409 error.
func AlreadyExists(resource, field, value string) *AppError {
	return &AppError{
		Code:    "ALREADY_EXISTS",
		Message: fmt.Sprintf("%s with %s %q already exists", resource, field, value),
		Status:  http.StatusConflict,
		Err:     ErrAlreadyExists,
	}
}

// Conflict creates a 409 error with a free-form message.
func Conflict(message string) *AppError {
	return &AppError{
		Code:    "CONFLICT",
		Message: message,
		Status:  http.StatusConflict,
		Err:     ErrConflict,
	}
}

// InvalidInput creates a 400 error.
func InvalidInput(message string) *AppError {
	return &AppError{
		Code:    "INVALID_INPUT",
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     ErrInvalidInput,
	}
}

// Unauthorized creates a 401 error.
func Unauthorized(message string) *AppError {
	return &AppError{
		Code:    "UNAUTHORIZED",
		Message: message,
		Status:  http.StatusUnauthorized,
		Err:     ErrUnauthorized,
	}
}

// InvalidToken creates a 401 error for tokens that fail verification.
// It carries a distinct code so clients can tell a malformed or expired
// credential apart from a missing one.
func InvalidToken(message string) *AppError {
	return &AppError{
		Code:    "INVALID_TOKEN",
		Message: message,
		Status:  http.StatusUnauthorized,
		Err:     ErrInvalidToken,
	}
}

// Forbidden creates a 403 error.
func Forbidden(message string) *AppError {
	return &AppError{
		Code:    "FORBIDDEN",
		Message: message,
		Status:  http.StatusForbidden,
		Err:     ErrForbidden,
	}
}

// Internal creates a 500 error.
func Internal(err error) *AppError {
	return &AppError{
		Code:    "INTERNAL_ERROR",
		Message: "an internal error occurred",
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// ServiceUnavailable creates a 503 error for an unreachable dependency.
func ServiceUnavailable(service, message string) *AppError {
	return &AppError{
		Code:    "SERVICE_UNAVAILABLE",
		Message: fmt.Sprintf("%s: %s", service, message),
		Status:  http.StatusServiceUnavailable,
		Err:     ErrServiceUnavail,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	return fmt.Errorf("%s: %w", message, err)
}

// HTTPStatus returns the HTTP status code for the given error.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrAlreadyExists), errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrServiceUnavail):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
