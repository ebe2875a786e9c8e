package model

import (
	"fmt"
	"strings"
)

// ErrorCode represents a structured API error code.
type ErrorCode string

const (
	ErrValidation ErrorCode = "VALIDATION_ERROR"
	ErrNotFound   ErrorCode = "NOT_FOUND"
	ErrCapacity   ErrorCode = "CAPACITY_ERROR"
	ErrToolFailed ErrorCode = "TOOL_FAILED"
	ErrInternal   ErrorCode = "INTERNAL_ERROR"
)

// APIError is a structured error returned by the mgasm API.
type APIError struct {
	Code    ErrorCode    `json:"code"`
	Message string       `json:"message"`
	Details []FieldError `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// FieldError describes a validation error on a specific field.
type FieldError struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// ValidationError lists every violated parameter rule of a pipeline request.
// It is always returned before any file system or subprocess activity.
type ValidationError struct {
	Details []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Details))
	for _, d := range e.Details {
		if d.Field != "" {
			msgs = append(msgs, fmt.Sprintf("%s: %s", d.Field, d.Message))
		} else {
			msgs = append(msgs, d.Message)
		}
	}
	return fmt.Sprintf("invalid pipeline parameters (%d): %s", len(e.Details), strings.Join(msgs, "; "))
}

// Add records another violated rule.
func (e *ValidationError) Add(field, msg string) {
	e.Details = append(e.Details, FieldError{Field: field, Message: msg})
}

// OrNil returns nil when no rule was violated, so callers can return it directly.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Details) == 0 {
		return nil
	}
	return e
}

// CapacityError aggregates all configured resource limits an input exceeds.
type CapacityError struct {
	Violations []string
}

func (e *CapacityError) Error() string {
	return "resource limits exceeded: " + strings.Join(e.Violations, "; ")
}

// NewValidationError creates an APIError with validation details.
func NewValidationError(msg string, details ...FieldError) *APIError {
	return &APIError{Code: ErrValidation, Message: msg, Details: details}
}

// NewNotFoundError creates a NOT_FOUND APIError.
func NewNotFoundError(resource, id string) *APIError {
	return &APIError{
		Code:    ErrNotFound,
		Message: fmt.Sprintf("%s '%s' not found", resource, id),
	}
}

// InvalidTransitionError is returned when a run state transition is invalid.
type InvalidTransitionError struct {
	RunID string
	From  RunState
	To    RunState
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid run state transition: %s → %s (run %s)", e.From, e.To, e.RunID)
}
