package types

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"upmon/internal/core"
	"upmon/internal/storage"
)

// Error codes.
const (
	CodeValidation = "VALIDATION_ERROR"
	CodeNotFound   = "NOT_FOUND"
	CodeConflict   = "CONFLICT"
	CodeInternal   = "INTERNAL_ERROR"
)

// Error represents error information in API responses
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// ErrorWithContext is an API error together with its HTTP status and cause.
//
// The cause is logged but never sent to the client.
type ErrorWithContext struct {
	Status int
	Error  Error
	Cause  error
}

// ErrorResponse creates an error API response
func ErrorResponse(code, message, details string) Response {
	return Response{
		Success: false,
		Error: &Error{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

// ValidationError creates a 400 error.
func ValidationError(details string) *ErrorWithContext {
	return &ErrorWithContext{
		Status: http.StatusBadRequest,
		Error:  Error{Code: CodeValidation, Message: "Invalid input data", Details: details},
	}
}

// NotFoundError creates a 404 error for resource.
func NotFoundError(resource string) *ErrorWithContext {
	return &ErrorWithContext{
		Status: http.StatusNotFound,
		Error:  Error{Code: CodeNotFound, Message: "Resource not found", Details: resource + " not found"},
	}
}

// ConflictError creates a 409 error.
func ConflictError(details string) *ErrorWithContext {
	return &ErrorWithContext{
		Status: http.StatusConflict,
		Error:  Error{Code: CodeConflict, Message: "Resource conflict", Details: details},
	}
}

// InternalError creates a 500 error. details is sent to the client, err is only logged.
func InternalError(details string, err error) *ErrorWithContext {
	return &ErrorWithContext{
		Status: http.StatusInternalServerError,
		Error:  Error{Code: CodeInternal, Message: "Internal server error", Details: details},
		Cause:  err,
	}
}

// FromError translates domain errors to HTTP errors:
// validation -> 400, not found -> 404, check in flight -> 409, anything else -> 500.
func FromError(err error, resource, action string) *ErrorWithContext {
	var verr *storage.ValidationError
	switch {
	case errors.As(err, &verr):
		return ValidationError(verr.Error())
	case errors.Is(err, storage.ErrValidation):
		return ValidationError(err.Error())
	case errors.Is(err, storage.ErrNotFound):
		return NotFoundError(resource)
	case errors.Is(err, core.ErrCheckInFlight):
		return ConflictError("a check of this monitor is already running")
	case errors.Is(err, core.ErrUnsupportedType):
		return ValidationError(err.Error())
	default:
		return InternalError(action, err)
	}
}

// AbortWithError writes e as the response and stops the handler chain.
func AbortWithError(c *gin.Context, e *ErrorWithContext) {
	event := log.Debug()
	if e.Status >= http.StatusInternalServerError {
		event = log.Error()
	}
	event.
		Str("request_id", c.GetString(RequestIDKey)).
		Str("method", c.Request.Method).
		Str("path", c.FullPath()).
		Int("status", e.Status).
		Str("code", e.Error.Code).
		Err(e.Cause).
		Msg(e.Error.Details)

	c.AbortWithStatusJSON(e.Status, ErrorResponse(e.Error.Code, e.Error.Message, e.Error.Details))
}
