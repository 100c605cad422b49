package dto

import (
	"errors"
	"fmt"
	"time"

	"github.com/Gangireddy387/OnlineNotebook/internal/pkg/apperrors"
)

// ErrorCode represents standardized error codes
type ErrorCode string

// Standard error codes for the application
const (
	// Authentication errors
	ErrorCodeInvalidToken    ErrorCode = "AUTH_005"
	ErrorCodeExpiredToken    ErrorCode = "AUTH_006"
	ErrorCodeTokenNotFound   ErrorCode = "AUTH_007"
	ErrorCodeUnauthorized    ErrorCode = "AUTH_008"
	ErrorCodePendingApproval ErrorCode = "AUTH_009"

	// Authorization errors
	ErrorCodeForbidden ErrorCode = "PERM_001"

	// Resource errors
	ErrorCodeResourceNotFound ErrorCode = "RES_001"
	ErrorCodeConflict         ErrorCode = "RES_004"

	// Chat request errors
	ErrorCodeSelfRequest      ErrorCode = "CHAT_001"
	ErrorCodeDuplicateRequest ErrorCode = "CHAT_002"
	ErrorCodeAlreadyConnected ErrorCode = "CHAT_003"
	ErrorCodeAlreadyResponded ErrorCode = "CHAT_004"

	// Validation errors
	ErrorCodeValidationFailed ErrorCode = "VAL_001"

	// Server errors
	ErrorCodeInternalServer ErrorCode = "SRV_001"
	ErrorCodeDatabaseError  ErrorCode = "SRV_002"
	ErrorCodeBusy           ErrorCode = "SRV_003"
)

// ErrorSeverity represents the severity level of an error
type ErrorSeverity string

// Severity levels
const (
	ErrorSeverityInfo     ErrorSeverity = "INFO"
	ErrorSeverityWarning  ErrorSeverity = "WARNING"
	ErrorSeverityError    ErrorSeverity = "ERROR"
	ErrorSeverityCritical ErrorSeverity = "CRITICAL"
)

// ErrorDetail represents detailed error information
type ErrorDetail struct {
	Code      ErrorCode     `json:"code" example:"RES_001"`
	Message   string        `json:"message" example:"Chat not found"`
	Field     string        `json:"field,omitempty" example:"receiverId"`
	Severity  ErrorSeverity `json:"severity" example:"ERROR"`
	Details   interface{}   `json:"details,omitempty"`
	DebugInfo string        `json:"debugInfo,omitempty"`
}

// ErrorResponse represents the standard error response structure
type ErrorResponse struct {
	Success   bool         `json:"success" example:"false"`
	Error     *ErrorDetail `json:"error"`
	Timestamp time.Time    `json:"timestamp" example:"2025-04-23T12:01:05.123Z"`
}

// NewErrorDetail creates a new error detail
func NewErrorDetail(code ErrorCode, message string) *ErrorDetail {
	return &ErrorDetail{
		Code:     code,
		Message:  message,
		Severity: ErrorSeverityError,
	}
}

// WithField adds a field name to the error detail
func (e *ErrorDetail) WithField(field string) *ErrorDetail {
	e.Field = field
	return e
}

// WithSeverity sets the severity level of the error
func (e *ErrorDetail) WithSeverity(severity ErrorSeverity) *ErrorDetail {
	e.Severity = severity
	return e
}

// WithDetails adds additional details to the error
func (e *ErrorDetail) WithDetails(details interface{}) *ErrorDetail {
	e.Details = details
	return e
}

// WithDebugInfo adds debug information (for development/testing only)
func (e *ErrorDetail) WithDebugInfo(format string, args ...interface{}) *ErrorDetail {
	e.DebugInfo = fmt.Sprintf(format, args...)
	return e
}

// NewErrorResponse creates a standard error response
func NewErrorResponse(errorDetail *ErrorDetail) *ErrorResponse {
	return &ErrorResponse{
		Success:   false,
		Error:     errorDetail,
		Timestamp: time.Now(),
	}
}

// ErrorCodeFor classifies an application error into a wire code
func ErrorCodeFor(err error) ErrorCode {
	switch {
	case errors.Is(err, apperrors.ErrTokenExpired):
		return ErrorCodeExpiredToken
	case errors.Is(err, apperrors.ErrTokenNotFound):
		return ErrorCodeTokenNotFound
	case errors.Is(err, apperrors.ErrTokenInvalid):
		return ErrorCodeInvalidToken
	case errors.Is(err, apperrors.ErrAuthentication):
		return ErrorCodeUnauthorized
	case errors.Is(err, apperrors.ErrPendingApproval):
		return ErrorCodePendingApproval
	case errors.Is(err, apperrors.ErrPermissionDenied):
		return ErrorCodeForbidden
	case errors.Is(err, apperrors.ErrNotFound):
		return ErrorCodeResourceNotFound
	case errors.Is(err, apperrors.ErrSelfRequest):
		return ErrorCodeSelfRequest
	case errors.Is(err, apperrors.ErrDuplicateRequest):
		return ErrorCodeDuplicateRequest
	case errors.Is(err, apperrors.ErrAlreadyConnected):
		return ErrorCodeAlreadyConnected
	case errors.Is(err, apperrors.ErrAlreadyResponded):
		return ErrorCodeAlreadyResponded
	case errors.Is(err, apperrors.ErrConflict):
		return ErrorCodeConflict
	case errors.Is(err, apperrors.ErrValidationFailed), errors.Is(err, apperrors.ErrBadRequest):
		return ErrorCodeValidationFailed
	case errors.Is(err, apperrors.ErrPersistence):
		return ErrorCodeDatabaseError
	default:
		return ErrorCodeInternalServer
	}
}

// PublicMessage returns the text safe to show to a client; storage details are hidden
func PublicMessage(err error) string {
	switch ErrorCodeFor(err) {
	case ErrorCodeDatabaseError, ErrorCodeInternalServer:
		return "Internal server error"
	}
	return err.Error()
}
