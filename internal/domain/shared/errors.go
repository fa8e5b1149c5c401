package shared

// ErrorCategory classifies domain errors by how callers should react
type ErrorCategory string

const (
	// CategoryValidation errors are recoverable and surfaced verbatim, never retried
	CategoryValidation ErrorCategory = "VALIDATION"
	// CategoryConcurrency errors are safe to retry from the start of the operation
	CategoryConcurrency ErrorCategory = "CONCURRENCY"
	// CategoryIntegrity errors are fatal for the affected data and need manual investigation
	CategoryIntegrity ErrorCategory = "INTEGRITY"
	// CategoryExternal errors come from downstream services and are retryable
	CategoryExternal ErrorCategory = "EXTERNAL"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code     string        `json:"code"`
	Message  string        `json:"message"`
	Category ErrorCategory `json:"category"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new validation-category domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message, Category: CategoryValidation}
}

// NewDomainErrorWithCategory creates a domain error with an explicit category
func NewDomainErrorWithCategory(code, message string, category ErrorCategory) *DomainError {
	return &DomainError{Code: code, Message: message, Category: category}
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists       = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput        = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrConcurrencyConflict = NewDomainErrorWithCategory("CONCURRENCY_CONFLICT", "Resource was modified by another process", CategoryConcurrency)
	ErrInvalidState        = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
)
