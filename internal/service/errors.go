// Package service provides the application-level services that orchestrate
// task, stage, user, and analytics operations over the store layer.
package service

import (
	"errors"
	"fmt"
)

// Common service errors - sentinel errors callers may check with errors.Is.
// The API layer maps these to HTTP status codes.
var (
	// ErrIdempotencyMismatch indicates an idempotency key was reused with
	// a different payload than the original request.
	ErrIdempotencyMismatch = errors.New("idempotency key reused with a different request")
)

// TaskServiceError wraps failures from task operations with the operation
// name for context. Unwrap supports errors.Is/errors.As against the cause.
type TaskServiceError struct {
	Operation string
	Message   string
	Err       error
}

func (e *TaskServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("task service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("task service %s failed: %s", e.Operation, e.Message)
}

func (e *TaskServiceError) Unwrap() error {
	return e.Err
}

// NewTaskServiceError creates a new TaskServiceError.
func NewTaskServiceError(operation, message string, err error) *TaskServiceError {
	return &TaskServiceError{Operation: operation, Message: message, Err: err}
}

// StageServiceError wraps failures from stage operations.
type StageServiceError struct {
	Operation string
	Message   string
	Err       error
}

func (e *StageServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("stage service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("stage service %s failed: %s", e.Operation, e.Message)
}

func (e *StageServiceError) Unwrap() error {
	return e.Err
}

// NewStageServiceError creates a new StageServiceError.
func NewStageServiceError(operation, message string, err error) *StageServiceError {
	return &StageServiceError{Operation: operation, Message: message, Err: err}
}
