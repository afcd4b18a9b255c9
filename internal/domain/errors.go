package domain

import (
	"fmt"
	"net/http"
)

// AppError is the base domain error type.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"error"`
	Status  int    `json:"-"`
	Cause   error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Cause }

// Standard domain error constructors.

func ErrNotFound(entity, id string) *AppError {
	return &AppError{Code: "NOT_FOUND", Message: fmt.Sprintf("%s %s not found", entity, id), Status: http.StatusNotFound}
}

func ErrValidation(msg string) *AppError {
	return &AppError{Code: "VALIDATION_ERROR", Message: msg, Status: http.StatusBadRequest}
}

func ErrUnauthorized(msg string) *AppError {
	return &AppError{Code: "UNAUTHORIZED", Message: msg, Status: http.StatusUnauthorized}
}

func ErrForbidden(msg string) *AppError {
	return &AppError{Code: "FORBIDDEN", Message: msg, Status: http.StatusForbidden}
}

// ErrRateLimited signals an active cooldown window.
func ErrRateLimited(msg string) *AppError {
	return &AppError{Code: "RATE_LIMITED", Message: msg, Status: http.StatusTooManyRequests}
}

// ErrUpstream signals that the streaming platform API could not serve the request.
func ErrUpstream(msg string, cause error) *AppError {
	return &AppError{Code: "UPSTREAM_UNAVAILABLE", Message: msg, Status: http.StatusBadGateway, Cause: cause}
}

// ErrInternal is the storage failure error. Message is the operation name;
// the cause is kept for logs and never rendered to clients.
func ErrInternal(msg string, cause error) *AppError {
	return &AppError{Code: "INTERNAL_ERROR", Message: msg, Status: http.StatusInternalServerError, Cause: cause}
}
