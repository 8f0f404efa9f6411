package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors of the signal and event domain. Adapters wrap them with
// fmt.Errorf so the HTTP layer can map them with errors.Is.
var (
	// Authentication & Authorization
	ErrForbidden    = errors.New("action forbidden")
	ErrUnauthorized = errors.New("unauthorized")

	// Events
	ErrInvalidEventID   = errors.New("invalid event id")
	ErrUnknownEventType = errors.New("unknown event type")
	ErrUnknownAction    = errors.New("unknown resource action")
	ErrInvalidResource  = errors.New("resource url has no identifier")

	// Signals
	ErrUnknownSignalType    = errors.New("unknown signal type")
	ErrSubjectKindMismatch  = errors.New("subject kind does not match signal type")
	ErrTargetKindNotAllowed = errors.New("target kind not allowed for signal type")
	ErrTargetRequired       = errors.New("signal target is required")
	ErrSubjectRequired      = errors.New("signal subject is required")
	ErrInvalidDetail        = errors.New("invalid signal detail")

	// Preferences
	ErrAmbiguousOwner = errors.New("exactly one of group or user must be set")

	// Maintenance
	ErrInvalidBatchSize     = errors.New("batch size must be positive")
	ErrInvalidRetentionDays = errors.New("retention days must not be negative")
	ErrBatchRunning         = errors.New("a signal batch is already running")

	ErrNotFound = errors.New("resource not found")
)

// AppError wraps errors with additional context for HTTP responses
type AppError struct {
	Err        error  // The underlying error
	Message    string // User-friendly message
	Code       string // Machine-readable error code
	StatusCode int    // HTTP status code
	Details    map[string]interface{}
}

func (e *AppError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetails attaches machine readable context to the error response.
func (e *AppError) WithDetails(details map[string]interface{}) *AppError {
	e.Details = details
	return e
}

// NewBadRequestError reports malformed input. err stays available to
// errors.Is so callers can tell which rule was broken.
func NewBadRequestError(err error, message string) *AppError {
	return &AppError{
		Err:        err,
		Message:    message,
		Code:       "BAD_REQUEST",
		StatusCode: 400,
	}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Err:        ErrUnauthorized,
		Message:    message,
		Code:       "UNAUTHORIZED",
		StatusCode: 401,
	}
}

// ValidationErrors holds multiple field validation errors
type ValidationErrors struct {
	Errors map[string][]string `json:"errors"`
}

func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{
		Errors: make(map[string][]string),
	}
}

func (v *ValidationErrors) Add(field, message string) {
	v.Errors[field] = append(v.Errors[field], message)
}

func (v *ValidationErrors) HasErrors() bool {
	return len(v.Errors) > 0
}

func (v *ValidationErrors) Error() string {
	return fmt.Sprintf("validation failed: %d field(s) have errors", len(v.Errors))
}
