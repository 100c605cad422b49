package apperrors

import (
	"errors"
	"fmt"
)

// Common errors
var (
	// Resource errors
	ErrNotFound = errors.New("resource not found")
	ErrConflict = errors.New("conflict")

	// Authentication errors
	ErrAuthentication = errors.New("authentication failed")
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenInvalid   = errors.New("invalid token")
	ErrTokenNotFound  = errors.New("token not found")

	// Authorization errors
	ErrPermissionDenied = errors.New("permission denied")
	ErrPendingApproval  = errors.New("account is pending approval")

	// Validation errors
	ErrValidationFailed = errors.New("validation failed")
	ErrBadRequest       = errors.New("bad request")

	// Storage errors
	ErrPersistence = errors.New("persistence failure")
)

// Chat request errors
var (
	ErrSelfRequest      = errors.New("cannot send a chat request to yourself")
	ErrDuplicateRequest = errors.New("a pending chat request already exists")
	ErrAlreadyConnected = errors.New("a chat already exists between these users")
	ErrAlreadyResponded = errors.New("chat request has already been responded to")
)

// ErrForbidden is the authorization failure raised for non-members and non-receivers
var ErrForbidden = ErrPermissionDenied

// NewNotFoundError creates a new custom error for resource not found with a message
func NewNotFoundError(message string) error {
	return &CustomError{
		Err:     ErrNotFound,
		Message: message,
	}
}

// NewConflictError creates a new custom error for conflict situations with a message
func NewConflictError(message string) error {
	return &CustomError{
		Err:     ErrConflict,
		Message: message,
	}
}

// NewForbiddenError creates a new custom error for permission denied with a message
func NewForbiddenError(message string) error {
	return &CustomError{
		Err:     ErrPermissionDenied,
		Message: message,
	}
}

// NewBadRequestError creates a new custom error for bad request with a message
func NewBadRequestError(message string) error {
	return &CustomError{
		Err:     ErrBadRequest,
		Message: message,
	}
}

// NewValidationError creates a validation error carrying per-field details
func NewValidationError(message string, details map[string]interface{}) error {
	return (&CustomError{
		Err:     ErrValidationFailed,
		Message: message,
	}).WithDetails(details)
}

// NewAuthenticationError creates an authentication error wrapping the underlying cause
func NewAuthenticationError(message string, cause error) error {
	err := &CustomError{
		Err:     ErrAuthentication,
		Message: message,
	}
	if cause != nil {
		err.Details = map[string]interface{}{"cause": cause.Error()}
	}
	return err
}

// NewSelfRequestError reports a chat request addressed to its own sender
func NewSelfRequestError() error {
	return &CustomError{Err: ErrSelfRequest, Message: ErrSelfRequest.Error()}
}

// NewDuplicateRequestError reports a second pending request for the same ordered pair
func NewDuplicateRequestError() error {
	return &CustomError{Err: ErrDuplicateRequest, Message: "Chat request already sent"}
}

// NewReciprocalRequestError reports that the receiver already has a pending request to the sender
func NewReciprocalRequestError() error {
	return &CustomError{Err: ErrDuplicateRequest, Message: "This user already sent you a chat request"}
}

// NewAlreadyConnectedError reports that both principals already share a chat
func NewAlreadyConnectedError() error {
	return &CustomError{Err: ErrAlreadyConnected, Message: "Chat already exists with this user"}
}

// NewAlreadyRespondedError reports a respond call on a request that left the pending state
func NewAlreadyRespondedError() error {
	return &CustomError{Err: ErrAlreadyResponded, Message: "Chat request already responded to"}
}

// PersistenceError wraps a storage failure with the operation that triggered it
type PersistenceError struct {
	Op  string
	Err error
}

// NewPersistenceError wraps err as a PersistenceError unless it is already a domain error
func NewPersistenceError(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsDomainError(err) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() []error {
	return []error{ErrPersistence, e.Err}
}

// IsDomainError reports whether err belongs to the recoverable domain taxonomy
func IsDomainError(err error) bool {
	return Is(err, ErrNotFound,
		ErrPermissionDenied,
		ErrPendingApproval,
		ErrAuthentication,
		ErrValidationFailed,
		ErrBadRequest,
		ErrConflict,
		ErrSelfRequest,
		ErrDuplicateRequest,
		ErrAlreadyConnected,
		ErrAlreadyResponded,
		ErrPersistence,
	)
}

// Is returns whether err matches target or any of the errors in errList
func Is(err, target error, errList ...error) bool {
	if errors.Is(err, target) {
		return true
	}

	for _, e := range errList {
		if errors.Is(err, e) {
			return true
		}
	}

	return false
}

// CustomError represents application-specific errors with additional context
type CustomError struct {
	Err       error
	Message   string
	StatusMsg string
	Code      string
	Details   map[string]interface{}
}

// Error implements error interface
func (e *CustomError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown error"
}

// Unwrap implements errors.Unwrap interface
func (e *CustomError) Unwrap() error {
	return e.Err
}

// NewCustomError creates a CustomError with underlying error
func NewCustomError(err error, message string) *CustomError {
	return &CustomError{
		Err:     err,
		Message: message,
	}
}

// WithDetails adds context details to the error
func (e *CustomError) WithDetails(details map[string]interface{}) *CustomError {
	e.Details = details
	return e
}

// WithCode adds an error code
func (e *CustomError) WithCode(code string) *CustomError {
	e.Code = code
	return e
}

// WithStatusMsg adds a user-friendly status message
func (e *CustomError) WithStatusMsg(msg string) *CustomError {
	e.StatusMsg = msg
	return e
}
