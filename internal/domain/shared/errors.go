package shared

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a DomainError for callers that need to decide how to react
// (reject input, report a rule violation, retry).
type ErrorKind string

const (
	KindValidation            ErrorKind = "validation"
	KindPolicy                ErrorKind = "policy"
	KindConflict              ErrorKind = "conflict"
	KindInsufficientInventory ErrorKind = "insufficient_inventory"
	KindNotFound              ErrorKind = "not_found"
)

// DomainError represents a domain-level error
type DomainError struct {
	Kind    ErrorKind `json:"-"`
	Code    string    `json:"code"`
	Message string    `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is matches on Code so wrapped copies of a sentinel still satisfy errors.Is.
func (e *DomainError) Is(target error) bool {
	var other *DomainError
	if !errors.As(target, &other) {
		return false
	}
	return e.Code == other.Code
}

// Retryable reports whether the caller may retry the failed operation unchanged
func (e *DomainError) Retryable() bool {
	return e.Kind == KindConflict
}

// NewValidationError creates an error for malformed or incomplete input
func NewValidationError(code, message string) *DomainError {
	return &DomainError{Kind: KindValidation, Code: code, Message: message}
}

// NewPolicyViolation creates an error for a request that is well formed but breaks a business rule
func NewPolicyViolation(code, message string) *DomainError {
	return &DomainError{Kind: KindPolicy, Code: code, Message: message}
}

// NewConflictError creates a retryable error for lost lock races and serialization failures
func NewConflictError(message string) *DomainError {
	return &DomainError{Kind: KindConflict, Code: CodeConflict, Message: message}
}

// NewInsufficientInventoryError creates an error for a stock movement that would go negative
func NewInsufficientInventoryError(message string) *DomainError {
	return &DomainError{Kind: KindInsufficientInventory, Code: CodeInsufficientInventory, Message: message}
}

// NewNotFoundError creates an error for a missing resource
func NewNotFoundError(resource string, id fmt.Stringer) *DomainError {
	return &DomainError{
		Kind:    KindNotFound,
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s %s not found", resource, id),
	}
}

// AsDomainError unwraps err into a DomainError if it carries one
func AsDomainError(err error) (*DomainError, bool) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr, true
	}
	return nil, false
}

// Error codes shared across bounded contexts
const (
	CodeNotFound               = "NOT_FOUND"
	CodeInvalidInput           = "INVALID_INPUT"
	CodeConflict               = "CONFLICT"
	CodeInsufficientInventory  = "INSUFFICIENT_INVENTORY"
	CodeDuplicateRequest       = "DUPLICATE_REQUEST"
	CodeReversalPartialFailure = "REVERSAL_PARTIAL_FAILURE"
)

// Common domain errors
var (
	ErrNotFound            = &DomainError{Kind: KindNotFound, Code: CodeNotFound, Message: "Resource not found"}
	ErrInvalidInput        = NewValidationError(CodeInvalidInput, "Invalid input provided")
	ErrConcurrencyConflict = NewConflictError("Resource was modified by another process")
	ErrDuplicateRequest    = NewPolicyViolation(CodeDuplicateRequest, "Request with this idempotency key was already processed")
)
