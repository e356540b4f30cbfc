// Package errors provides structured error handling for the application
// Following enterprise patterns for error management and observability
package errors

import (
	"fmt"
	"strings"
)

// ErrorCode represents an error code
type ErrorCode string

// Error codes for the import pipeline, cost engine and entity services
const (
	// Input and reference errors
	CodeInputMalformed      ErrorCode = "INPUT_MALFORMED"
	CodeReferenceUnresolved ErrorCode = "REFERENCE_UNRESOLVED"
	CodeDependencyCycle     ErrorCode = "DEPENDENCY_CYCLE"
	CodeMissingDependency   ErrorCode = "MISSING_DEPENDENCY"

	// Mutation errors
	CodeImmutableField     ErrorCode = "IMMUTABLE_FIELD"
	CodeInvariantViolation ErrorCode = "INVARIANT_VIOLATION"

	// Unit errors
	CodeUnitUnparseable  ErrorCode = "UNIT_UNPARSEABLE"
	CodeNoConversionPath ErrorCode = "NO_CONVERSION_PATH"

	// Engine errors
	CodeDepthExceeded ErrorCode = "DEPTH_EXCEEDED"

	// Infrastructure errors
	CodeStoreFailure ErrorCode = "STORE_FAILURE"
	CodeNotFound     ErrorCode = "NOT_FOUND"
	CodeInternal     ErrorCode = "INTERNAL_ERROR"
)

// AppError represents an application error with structured information
type AppError struct {
	Code     ErrorCode              `json:"code"`
	Message  string                 `json:"message"`
	Details  string                 `json:"details,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
	Cause    error                  `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithMetadata adds metadata to the error
func (e *AppError) WithMetadata(key string, value interface{}) *AppError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// WithCause adds a cause error
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// NewAppError creates a new application error
func NewAppError(code ErrorCode, message, details string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// Predefined error constructors for common scenarios

// NewInputMalformedError creates a per-file parse or schema error
func NewInputMalformedError(file string, cause error) *AppError {
	return NewAppError(
		CodeInputMalformed,
		"Entity file is malformed",
		fmt.Sprintf("Failed to parse or validate %s", file),
	).WithMetadata("file", file).WithCause(cause)
}

// NewReferenceUnresolvedError creates an unresolved reference error
func NewReferenceUnresolvedError(ref, file string) *AppError {
	return NewAppError(
		CodeReferenceUnresolved,
		"Reference cannot be resolved",
		fmt.Sprintf("Reference %q in %s does not point at a known entity", ref, file),
	).WithMetadata("reference", ref).WithMetadata("file", file)
}

// NewDependencyCycleError creates a cycle error carrying the offending path
func NewDependencyCycleError(path []string) *AppError {
	return NewAppError(
		CodeDependencyCycle,
		"Dependency cycle detected",
		strings.Join(path, " -> "),
	).WithMetadata("cycle", path)
}

// NewMissingDependencyError reports a referent that is not persisted yet
func NewMissingDependencyError(owner, referent string) *AppError {
	return NewAppError(
		CodeMissingDependency,
		"Referenced entity is not persisted",
		fmt.Sprintf("%s references %s which does not exist", owner, referent),
	).WithMetadata("owner", owner).WithMetadata("referent", referent)
}

// NewImmutableFieldError reports an attempt to mutate a frozen field
func NewImmutableFieldError(entity, field string) *AppError {
	return NewAppError(
		CodeImmutableField,
		"Field is immutable after creation",
		fmt.Sprintf("%s.%s cannot be changed; create a new entity instead", entity, field),
	).WithMetadata("entity", entity).WithMetadata("field", field)
}

// NewInvariantViolationError reports a broken entity invariant
func NewInvariantViolationError(details string) *AppError {
	return NewAppError(CodeInvariantViolation, "Invariant violation", details)
}

// NewUnitUnparseableError reports an invalid quantity string
func NewUnitUnparseableError(input string) *AppError {
	return NewAppError(
		CodeUnitUnparseable,
		"Quantity string cannot be parsed",
		input,
	).WithMetadata("input", input)
}

// NewNoConversionPathError reports incompatible units
func NewNoConversionPathError(from, to string) *AppError {
	return NewAppError(
		CodeNoConversionPath,
		"No conversion path between units",
		fmt.Sprintf("%s -> %s", from, to),
	).WithMetadata("from", from).WithMetadata("to", to)
}

// NewDepthExceededError reports recipe recursion beyond the engine limit
func NewDepthExceededError(slug string, limit int) *AppError {
	return NewAppError(
		CodeDepthExceeded,
		"Recipe nesting exceeds maximum depth",
		fmt.Sprintf("Recipe %s nests deeper than %d levels", slug, limit),
	).WithMetadata("recipe", slug).WithMetadata("limit", limit)
}

// NewStoreFailureError surfaces an underlying store error verbatim
func NewStoreFailureError(operation string, cause error) *AppError {
	return NewAppError(
		CodeStoreFailure,
		"Store operation failed",
		fmt.Sprintf("Failed to %s", operation),
	).WithCause(cause)
}

// NewNotFoundError creates a not found error
func NewNotFoundError(resource, slug string) *AppError {
	return NewAppError(
		CodeNotFound,
		fmt.Sprintf("%s not found", resource),
		slug,
	).WithMetadata("slug", slug)
}

// NewInternalError creates an internal error
func NewInternalError(message string) *AppError {
	if message == "" {
		message = "An unexpected error occurred"
	}
	return NewAppError(CodeInternal, message, "")
}

// Utility functions

// Wrap wraps an error as an internal error if it's not already an AppError
func Wrap(err error, message string) *AppError {
	if err == nil {
		return nil
	}

	if appErr, ok := err.(*AppError); ok {
		return appErr
	}

	return NewInternalError(message).WithCause(err)
}

// Is checks if an error is of a specific error code
func Is(err error, code ErrorCode) bool {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code == code
	}
	return false
}

// GetCode extracts the error code from an error
func GetCode(err error) ErrorCode {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code
	}
	return CodeInternal
}
