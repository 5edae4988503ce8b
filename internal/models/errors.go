package models

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies failures for the HTTP layer
type ErrorKind string

const (
	KindInvalidData      ErrorKind = "invalid_data"
	KindUnauthorized     ErrorKind = "unauthorized"
	KindNotFound         ErrorKind = "not_found"
	KindCapacityExceeded ErrorKind = "capacity_exceeded"
	KindRateLimited      ErrorKind = "rate_limited"
	KindInternal         ErrorKind = "internal_error"
)

// Stable error codes returned to clients
const (
	CodeInvalidData             = "INVALID_DATA"
	CodeTourMismatch            = "TOUR_MISMATCH"
	CodePriceTierNotFound       = "PRICE_TIER_NOT_FOUND"
	CodeDepartureClosed         = "DEPARTURE_CLOSED"
	CodeDepartureNotEmpty       = "DEPARTURE_NOT_EMPTY"
	CodeInvalidStatusTransition = "INVALID_STATUS_TRANSITION"
	CodeBookingCancelled        = "BOOKING_CANCELLED"
	CodeTourInactive            = "TOUR_INACTIVE"
	CodeCapacityExceeded        = "CAPACITY_EXCEEDED"
	CodeRateLimitExceeded       = "RATE_LIMIT_EXCEEDED"
	CodeNotFound                = "NOT_FOUND"
	CodeUnauthorized            = "UNAUTHORIZED"
	CodeInternal                = "INTERNAL_ERROR"
)

// AppError is a classified domain error
type AppError struct {
	Kind    ErrorKind
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Err
}

// HTTPStatus maps the error kind to a response status
func (e *AppError) HTTPStatus() int {
	switch e.Kind {
	case KindInvalidData:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindCapacityExceeded:
		return http.StatusUnprocessableEntity
	case KindRateLimited:
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

// NewInvalidData returns an InvalidData error with the generic code
func NewInvalidData(format string, args ...interface{}) *AppError {
	return &AppError{Kind: KindInvalidData, Code: CodeInvalidData, Message: fmt.Sprintf(format, args...)}
}

// NewInvalidDataCode returns an InvalidData error with a specific code
func NewInvalidDataCode(code, format string, args ...interface{}) *AppError {
	return &AppError{Kind: KindInvalidData, Code: code, Message: fmt.Sprintf(format, args...)}
}

// NewNotFound returns a NotFound error for an entity
func NewNotFound(entity, id string) *AppError {
	return &AppError{Kind: KindNotFound, Code: CodeNotFound, Message: fmt.Sprintf("%s %s not found", entity, id)}
}

// NewCapacityExceeded returns a CapacityExceeded error
func NewCapacityExceeded(format string, args ...interface{}) *AppError {
	return &AppError{Kind: KindCapacityExceeded, Code: CodeCapacityExceeded, Message: fmt.Sprintf(format, args...)}
}

// NewRateLimited returns a RateLimited error wrapping the limiter decision
func NewRateLimited(message string, err error) *AppError {
	return &AppError{Kind: KindRateLimited, Code: CodeRateLimitExceeded, Message: message, Err: err}
}

// NewUnauthorized returns an Unauthorized error
func NewUnauthorized(message string) *AppError {
	return &AppError{Kind: KindUnauthorized, Code: CodeUnauthorized, Message: message}
}

// NewInternal wraps an unexpected failure
func NewInternal(message string, err error) *AppError {
	return &AppError{Kind: KindInternal, Code: CodeInternal, Message: message, Err: err}
}

// AsAppError extracts an AppError from an error chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsKind reports whether err carries an AppError of the given kind
func IsKind(err error, kind ErrorKind) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Kind == kind
}

// HasCode reports whether err carries an AppError with the given code
func HasCode(err error, code string) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}
