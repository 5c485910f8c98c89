package domain

import (
	"errors"
	"time"
)

// Common validation errors for Stage
var (
	ErrEmptyStageName         = errors.New("stage name cannot be empty")
	ErrNonPositiveEstimate    = errors.New("estimated hours must be greater than zero")
	ErrNonPositiveActualHours = errors.New("actual hours must be greater than zero")
	ErrInvalidOrderNumber     = errors.New("stage order number must be at least 1")

	// ErrActualHoursRequired is returned when a stage is transitioned to
	// completed without actual hours supplied or previously recorded.
	ErrActualHoursRequired = errors.New("actual time required to complete a stage")
)

// Stage is an ordered sub-unit of work within a task. Stages of a task form
// a contiguous 1..N order sequence; deleting a stage renumbers the rest.
type Stage struct {
	ID             int64      `json:"id"`
	TaskID         int64      `json:"task_id"`
	Name           string     `json:"name"`
	EstimatedHours float64    `json:"estimated_hours"`
	ActualHours    *float64   `json:"actual_hours,omitempty"`
	StateID        int16      `json:"state_id"`
	OrderNumber    int        `json:"order_number"`
	StartDate      *time.Time `json:"start_date,omitempty"`
	CompletedDate  *time.Time `json:"completed_date,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// NewStage creates a pending stage for the given task. Returns an error if
// validation fails.
func NewStage(
	taskID int64,
	name string,
	estimatedHours float64,
	orderNumber int,
	pendingStateID int16,
) (*Stage, error) {
	now := time.Now().UTC()
	stage := &Stage{
		TaskID:         taskID,
		Name:           name,
		EstimatedHours: estimatedHours,
		StateID:        pendingStateID,
		OrderNumber:    orderNumber,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := stage.Validate(); err != nil {
		return nil, err
	}

	return stage, nil
}

// Validate checks if the Stage has valid data.
func (s *Stage) Validate() error {
	if s.Name == "" {
		return ErrEmptyStageName
	}
	if s.EstimatedHours <= 0 {
		return ErrNonPositiveEstimate
	}
	if s.ActualHours != nil && *s.ActualHours <= 0 {
		return ErrNonPositiveActualHours
	}
	if s.OrderNumber < 1 {
		return ErrInvalidOrderNumber
	}
	return nil
}

// TransitionInput carries the optional fields a caller may supply alongside
// a stage status transition. Supplied values overwrite the stored ones
// unconditionally (last write wins, no cross-field re-validation).
type TransitionInput struct {
	ActualHours   *float64
	StartDate     *time.Time
	CompletedDate *time.Time
}

// ApplyTransition moves the stage into the target state and derives the
// stage-level dates:
//
//   - in-progress sets the start date to today unless one is already
//     recorded, so repeated transitions never reset it;
//   - completed requires actual hours (supplied now or recorded earlier)
//     and sets the completed date to the supplied value or today.
//
// The target id must resolve to the target name in the caller's registry;
// the stage is not mutated when an error is returned.
func (s *Stage) ApplyTransition(
	target StateName,
	targetID int16,
	in TransitionInput,
	today time.Time,
) error {
	if target == StateCompleted && in.ActualHours == nil && s.ActualHours == nil {
		return ErrActualHoursRequired
	}

	today = DateOnly(today)
	s.StateID = targetID

	if target == StateInProgress && s.StartDate == nil {
		d := today
		s.StartDate = &d
	}
	if target == StateCompleted {
		if in.CompletedDate != nil {
			s.CompletedDate = DatePtr(*in.CompletedDate)
		} else {
			d := today
			s.CompletedDate = &d
		}
	}

	if in.ActualHours != nil {
		s.ActualHours = in.ActualHours
	}
	if in.StartDate != nil {
		s.StartDate = DatePtr(*in.StartDate)
	}
	if in.CompletedDate != nil {
		s.CompletedDate = DatePtr(*in.CompletedDate)
	}

	s.UpdatedAt = time.Now().UTC()
	return nil
}

// Renumber assigns contiguous order numbers 1..N to the given stages in
// their current slice order. Callers sort by the prior order number first;
// this is the visible no-gaps invariant after a stage deletion.
func Renumber(stages []*Stage) {
	for i, s := range stages {
		s.OrderNumber = i + 1
	}
}
