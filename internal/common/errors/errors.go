package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorCode classifies an application error.
type ErrorCode string

const (
	ErrCodeInternal      ErrorCode = "INTERNAL_ERROR"
	ErrCodeValidation    ErrorCode = "VALIDATION_ERROR"
	ErrCodeConfiguration ErrorCode = "CONFIGURATION_ERROR"

	ErrCodeDatabaseError    ErrorCode = "DATABASE_ERROR"
	ErrCodeConnectionFailed ErrorCode = "CONNECTION_FAILED"

	ErrCodeMessengerAPI ErrorCode = "MESSENGER_API_ERROR"
	ErrCodeEventPublish ErrorCode = "EVENT_PUBLISH_ERROR"
)

// AppError is a typed application error. None of them reach the webhook
// response; they are logged at the component boundary.
type AppError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Cause     error                  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetail attaches a key/value to the error.
func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New creates an application error.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// Wrap wraps an existing error.
func Wrap(err error, code ErrorCode, message string) *AppError {
	appErr := New(code, message)
	appErr.Cause = err
	return appErr
}

// NewDatabaseError wraps a storage failure.
func NewDatabaseError(operation string, err error) *AppError {
	return Wrap(err, ErrCodeDatabaseError, fmt.Sprintf("Database operation failed: %s", operation)).
		WithDetail("operation", operation)
}

// NewConnectionError reports a backend that could not be reached.
func NewConnectionError(backend string, err error) *AppError {
	return Wrap(err, ErrCodeConnectionFailed, fmt.Sprintf("Connection to %s failed", backend)).
		WithDetail("backend", backend)
}

// NewValidationError reports input that was rejected.
func NewValidationError(message string, err error) *AppError {
	return Wrap(err, ErrCodeValidation, message)
}

// NewEventPublishError wraps a broker publish failure.
func NewEventPublishError(event string, err error) *AppError {
	return Wrap(err, ErrCodeEventPublish, fmt.Sprintf("Event publish failed: %s", event)).
		WithDetail("event", event)
}

// NewMessengerAPIError wraps a send API failure.
func NewMessengerAPIError(operation string, err error) *AppError {
	return Wrap(err, ErrCodeMessengerAPI, fmt.Sprintf("Messenger API operation failed: %s", operation)).
		WithDetail("operation", operation)
}

// NewConfigurationError reports a missing or invalid setting discovered at use time.
func NewConfigurationError(setting, reason string) *AppError {
	return New(ErrCodeConfiguration, fmt.Sprintf("Configuration %s: %s", setting, reason)).
		WithDetail("setting", setting)
}

// As returns the first AppError in err's chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// CodeOf returns the code of the first AppError in err's chain, or ErrCodeInternal.
func CodeOf(err error) ErrorCode {
	if appErr, ok := As(err); ok {
		return appErr.Code
	}
	return ErrCodeInternal
}
