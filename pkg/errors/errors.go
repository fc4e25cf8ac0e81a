package errors

import (
	"errors"
	"fmt"
)

// Common registry errors
var (
	// Input errors
	ErrInvalidModelName      = errors.New("invalid model name")
	ErrNilMetrics            = errors.New("metrics mapping is required")
	ErrNilHyperparameters    = errors.New("hyperparameters mapping is required")
	ErrInvalidStatus         = errors.New("invalid model status")
	ErrInvalidTransition     = errors.New("status transition not allowed")
	ErrInvalidRollbackTarget = errors.New("rollback target is already the production version")

	// Not-found errors
	ErrVersionNotFound   = errors.New("model version not found")
	ErrNoProductionModel = errors.New("no production model")
	ErrArtifactNotFound  = errors.New("artifact not found")

	// Storage errors
	ErrDuplicateVersion        = errors.New("version id already exists")
	ErrArtifactWrite           = errors.New("artifact write failed")
	ErrArtifactCorrupt         = errors.New("artifact deserialization failed")
	ErrStorageConnectionFailed = errors.New("storage connection failed")
	ErrStorageNotConnected     = errors.New("storage not connected")
	ErrStorageTimeout          = errors.New("storage operation timeout")

	// Configuration errors
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrMissingConfiguration = errors.New("missing configuration")
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeValidation    ErrorType = "validation"
	ErrorTypeNotFound      ErrorType = "not_found"
	ErrorTypeStorage       ErrorType = "storage"
	ErrorTypeConflict      ErrorType = "conflict"
	ErrorTypeConfiguration ErrorType = "configuration"
	ErrorTypeInternal      ErrorType = "internal"
)

// RegistryError represents a registry-specific error with additional context
type RegistryError struct {
	Type      ErrorType              `json:"type"`
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Cause     error                  `json:"-"`
	Context   map[string]interface{} `json:"context,omitempty"`
	Retryable bool                   `json:"retryable"`
}

// Error implements the error interface
func (e *RegistryError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s - %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *RegistryError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target
func (e *RegistryError) Is(target error) bool {
	t, ok := target.(*RegistryError)
	if !ok {
		return false
	}
	return e.Type == t.Type && e.Code == t.Code
}

// WithContext adds context to the error
func (e *RegistryError) WithContext(key string, value interface{}) *RegistryError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithDetails adds details to the error
func (e *RegistryError) WithDetails(details string) *RegistryError {
	e.Details = details
	return e
}

// NewRegistryError creates a new registry error
func NewRegistryError(errType ErrorType, code, message string) *RegistryError {
	return &RegistryError{
		Type:    errType,
		Code:    code,
		Message: message,
	}
}

// WrapError wraps an existing error with registry context
func WrapError(err error, errType ErrorType, code, message string) *RegistryError {
	return &RegistryError{
		Type:      errType,
		Code:      code,
		Message:   message,
		Cause:     err,
		Retryable: isRetryable(err),
	}
}

// NewValidationError creates a validation error
func NewValidationError(code, message string) *RegistryError {
	return NewRegistryError(ErrorTypeValidation, code, message)
}

// NewNotFoundError creates a not-found error wrapping the matching sentinel
func NewNotFoundError(code, message string, sentinel error) *RegistryError {
	return &RegistryError{
		Type:    ErrorTypeNotFound,
		Code:    code,
		Message: message,
		Cause:   sentinel,
	}
}

// NewStorageError creates a storage error
func NewStorageError(code, message string) *RegistryError {
	return NewRegistryError(ErrorTypeStorage, code, message)
}

// NewConflictError creates a conflict error
func NewConflictError(code, message string) *RegistryError {
	return NewRegistryError(ErrorTypeConflict, code, message)
}

// NewInternalError creates an internal error
func NewInternalError(message string) *RegistryError {
	return NewRegistryError(ErrorTypeInternal, CodeInternalError, message)
}

// isRetryable determines if an error is retryable
func isRetryable(err error) bool {
	if err == nil {
		return false
	}

	switch {
	case errors.Is(err, ErrStorageTimeout):
		return true
	case errors.Is(err, ErrStorageConnectionFailed):
		return true
	default:
		return false
	}
}

// Error codes for different error scenarios
const (
	// Validation error codes
	CodeInvalidInput      = "INVALID_INPUT"
	CodeMissingField      = "MISSING_FIELD"
	CodeInvalidStatus     = "INVALID_STATUS"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeInvalidRollback   = "INVALID_ROLLBACK_TARGET"

	// Not-found error codes
	CodeVersionNotFound   = "VERSION_NOT_FOUND"
	CodeNoProductionModel = "NO_PRODUCTION_MODEL"
	CodeArtifactNotFound  = "ARTIFACT_NOT_FOUND"

	// Storage error codes
	CodeDuplicateVersion  = "DUPLICATE_VERSION"
	CodeArtifactWrite     = "ARTIFACT_WRITE_FAILED"
	CodeArtifactCorrupt   = "ARTIFACT_CORRUPT"
	CodeConnectionFailed  = "CONNECTION_FAILED"
	CodeNotConnected      = "NOT_CONNECTED"
	CodeStorageTimeout    = "STORAGE_TIMEOUT"
	CodeWriteFailed       = "WRITE_FAILED"
	CodeReadFailed        = "READ_FAILED"
	CodeQueryFailed       = "QUERY_FAILED"
	CodeScanFailed        = "SCAN_FAILED"
	CodeTransactionFailed = "TRANSACTION_FAILED"
	CodeCommitFailed      = "COMMIT_FAILED"
	CodeSchemaInitFailed  = "SCHEMA_INIT_FAILED"

	// Configuration error codes
	CodeInvalidConfig = "INVALID_CONFIG"
	CodeMissingConfig = "MISSING_CONFIG"

	// Internal error codes
	CodeInternalError = "INTERNAL_ERROR"
)
