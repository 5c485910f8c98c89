package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Priority is the urgency classification of a task.
type Priority string

// Possible task priorities
const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Common validation errors for Task
var (
	ErrEmptyTaskName    = errors.New("task name cannot be empty")
	ErrInvalidPriority  = errors.New("priority must be high, medium or low")
	ErrZeroDueDate      = errors.New("task due date cannot be empty")
	ErrTaskHasOpenStage = errors.New("cannot mark task as completed while stages are still open")
)

// Task is a unit of work owned by a user and composed of ordered stages.
// Its status is not set directly in the usual flow: it is derived from the
// stages' statuses and the due date by ResolveTaskStatus, except for the
// direct update path which must pass the open-stage guard.
//
// Tasks are soft-deleted: IsDeleted hides them from reads until the
// archival job physically removes long-completed rows.
type Task struct {
	ID             int64      `json:"id"`
	Name           string     `json:"name"`
	Description    string     `json:"description"`
	StateID        int16      `json:"state_id"`
	DueDate        time.Time  `json:"due_date"`
	CompletedDate  *time.Time `json:"completed_date,omitempty"`
	Priority       Priority   `json:"priority"`
	AssignedUserID *uuid.UUID `json:"assigned_user_id,omitempty"`
	CreatorID      *uuid.UUID `json:"creator_id,omitempty"`
	IdempotencyKey *string    `json:"idempotency_key,omitempty"`
	IsDeleted      bool       `json:"-"`
	DeletedAt      *time.Time `json:"-"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`

	// Stages is populated by reads that load the task together with its
	// ordered stage list. It is nil on reads that do not.
	Stages []*Stage `json:"stages,omitempty"`
}

// NewTask creates a task in the given initial state with a normalized due
// date. Returns an error if validation fails.
func NewTask(
	name, description string,
	dueDate time.Time,
	priority Priority,
	pendingStateID int16,
) (*Task, error) {
	now := time.Now().UTC()
	task := &Task{
		Name:        name,
		Description: description,
		StateID:     pendingStateID,
		DueDate:     DateOnly(dueDate),
		Priority:    priority,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}

	return task, nil
}

// Validate checks if the Task has valid data.
func (t *Task) Validate() error {
	if t.Name == "" {
		return ErrEmptyTaskName
	}
	if !isValidPriority(t.Priority) {
		return ErrInvalidPriority
	}
	if t.DueDate.IsZero() {
		return ErrZeroDueDate
	}
	return nil
}

// isValidPriority checks if the given priority is one of the known values.
func isValidPriority(p Priority) bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	default:
		return false
	}
}

// StatusDecision is the outcome of recomputing a task's status from its
// stages. When Changed is false the caller must leave the task untouched.
type StatusDecision struct {
	Changed       bool
	State         StateName
	CompletedDate *time.Time
}

// ResolveTaskStatus derives a task's status from its stages and due date.
// The precedence is fixed and must not be reordered:
//
//  1. every stage completed (and there is at least one) -> completed, with
//     completed date = max stage completed date, falling back to today;
//  2. due date strictly before today and not already completed -> overdue;
//  3. any stage in progress -> in-progress;
//  4. otherwise the current status is kept (no write).
//
// The function is deterministic over (stage states, due date, today) and
// rescans every stage on each call, so a recompute is O(stages).
func ResolveTaskStatus(
	task *Task,
	stages []*Stage,
	reg *StateRegistry,
	today time.Time,
) StatusDecision {
	today = DateOnly(today)
	completedID := reg.MustID(StateCompleted)
	inProgressID := reg.MustID(StateInProgress)

	allCompleted := len(stages) > 0
	anyInProgress := false
	var maxCompleted *time.Time
	for _, s := range stages {
		if s.StateID != completedID {
			allCompleted = false
		}
		if s.StateID == inProgressID {
			anyInProgress = true
		}
		if s.CompletedDate != nil &&
			(maxCompleted == nil || s.CompletedDate.After(*maxCompleted)) {
			maxCompleted = s.CompletedDate
		}
	}

	switch {
	case allCompleted:
		completedDate := today
		if maxCompleted != nil {
			completedDate = DateOnly(*maxCompleted)
		}
		return StatusDecision{
			Changed:       true,
			State:         StateCompleted,
			CompletedDate: &completedDate,
		}
	case DateOnly(task.DueDate).Before(today) && task.StateID != completedID:
		return StatusDecision{Changed: true, State: StateOverdue}
	case anyInProgress:
		return StatusDecision{Changed: true, State: StateInProgress}
	default:
		return StatusDecision{}
	}
}

// CanComplete reports whether a task may be marked completed directly,
// which requires every stage to already be completed. A zero-stage task
// passes this check; it is never auto-completed by ResolveTaskStatus but
// may be closed through the direct update path.
func (t *Task) CanComplete(stages []*Stage, completedID int16) error {
	for _, s := range stages {
		if s.StateID != completedID {
			return ErrTaskHasOpenStage
		}
	}
	return nil
}
