package apperror

import (
	"fmt"
	"net/http"
)

// ErrorType identifies the category of error
type ErrorType string

const (
	TypeValidation     ErrorType = "validation_error"
	TypeAuthentication ErrorType = "authentication_error"
	TypeNotFound       ErrorType = "not_found"
	TypeConflict       ErrorType = "conflict"
	TypeRateLimit      ErrorType = "rate_limit_exceeded"
	TypeInternal       ErrorType = "internal_error"
)

// AppError represents RFC 7807 Problem Details
type AppError struct {
	Type      string            `json:"type"`
	Title     string            `json:"title"`
	Status    int               `json:"status"`
	Detail    string            `json:"detail"`
	Instance  string            `json:"instance,omitempty"`
	Action    string            `json:"action,omitempty"`
	Errors    map[string]string `json:"errors,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
	err       error             // internal error for logging
}

func (e *AppError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.Title, e.err)
	}
	return e.Title
}

func (e *AppError) Unwrap() error {
	return e.err
}

func (e *AppError) WithError(err error) *AppError {
	e.err = err
	return e
}

func (e *AppError) WithRequestID(id string) *AppError {
	e.RequestID = id
	return e
}

func (e *AppError) WithInstance(instance string) *AppError {
	e.Instance = instance
	return e
}

func (e *AppError) WithErrors(errs map[string]string) *AppError {
	e.Errors = errs
	return e
}

func ValidationError(detail, action string) *AppError {
	return &AppError{
		Type:   "https://acmeid.dev/errors/validation",
		Title:  "Invalid request",
		Status: http.StatusBadRequest,
		Detail: detail,
		Action: action,
	}
}

func AuthenticationError(detail, action string) *AppError {
	return &AppError{
		Type:   "https://acmeid.dev/errors/authentication",
		Title:  "Authentication failed",
		Status: http.StatusUnauthorized,
		Detail: detail,
		Action: action,
	}
}

func NotFoundError(resource string) *AppError {
	return &AppError{
		Type:   "https://acmeid.dev/errors/not-found",
		Title:  "Not found",
		Status: http.StatusNotFound,
		Detail: fmt.Sprintf("%s not found", resource),
		Action: "Check the identifier and try again",
	}
}

func ConflictError(detail, action string) *AppError {
	return &AppError{
		Type:   "https://acmeid.dev/errors/conflict",
		Title:  "Conflict",
		Status: http.StatusConflict,
		Detail: detail,
		Action: action,
	}
}

func RateLimitError() *AppError {
	return &AppError{
		Type:   "https://acmeid.dev/errors/rate-limit",
		Title:  "Too many requests",
		Status: http.StatusTooManyRequests,
		Detail: "You have sent too many requests in a short period",
		Action: "Wait a moment and try again",
	}
}

func InternalError(detail, action string) *AppError {
	return &AppError{
		Type:   "https://acmeid.dev/errors/internal",
		Title:  "Internal error",
		Status: http.StatusInternalServerError,
		Detail: detail,
		Action: action,
	}
}
