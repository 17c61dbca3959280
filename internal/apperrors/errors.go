// Package apperrors defines typed sentinel errors shared across layers.
package apperrors

import "fmt"

// ErrNotFound represents a "not found" error
// This should be used when a requested resource doesn't exist
var ErrNotFound = &NotFoundError{}

// NotFoundError is a sentinel error for resources that are not found
type NotFoundError struct {
	Resource string
	Message  string
}

// Error implements the error interface
func (e *NotFoundError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Resource != "" {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	return "resource not found"
}

// Is implements the error interface for error comparison
func (e *NotFoundError) Is(target error) bool {
	_, ok := target.(*NotFoundError)
	return ok
}

// NewNotFoundError creates a new NotFoundError with a custom message
func NewNotFoundError(resource, message string) *NotFoundError {
	return &NotFoundError{
		Resource: resource,
		Message:  message,
	}
}

// ErrValidation represents a validation error
// This should be used when client input fails validation
var ErrValidation = &ValidationError{}

// ValidationError is a sentinel error for validation failures
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field: %s", e.Field)
	}
	return "validation error"
}

// Is implements the error interface for error comparison
func (e *ValidationError) Is(target error) bool {
	_, ok := target.(*ValidationError)
	return ok
}

// NewValidationError creates a new ValidationError with a custom message
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// ErrClusteringInfeasible represents a clustering run that cannot produce the
// requested number of non-empty groups.
var ErrClusteringInfeasible = &ClusteringInfeasibleError{}

// ClusteringInfeasibleError is returned when fewer eligible records exist than
// the requested cluster count. It is a structured failure, never a partial result.
type ClusteringInfeasibleError struct {
	Requested int
	Eligible  int
}

// Error implements the error interface
func (e *ClusteringInfeasibleError) Error() string {
	if e.Requested > 0 || e.Eligible > 0 {
		return fmt.Sprintf("not enough eligible records (%d) for %d clusters", e.Eligible, e.Requested)
	}
	return "clustering infeasible"
}

// Is implements the error interface for error comparison
func (e *ClusteringInfeasibleError) Is(target error) bool {
	_, ok := target.(*ClusteringInfeasibleError)
	return ok
}

// NewClusteringInfeasibleError creates a new ClusteringInfeasibleError.
func NewClusteringInfeasibleError(requested, eligible int) *ClusteringInfeasibleError {
	return &ClusteringInfeasibleError{
		Requested: requested,
		Eligible:  eligible,
	}
}
