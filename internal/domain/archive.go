package domain

import (
	"time"

	"github.com/google/uuid"
)

// ArchivedTask is the append-only snapshot of a task taken by the archival
// job. It keeps the live task's id and full field set but no relational
// integrity to live rows, and is never mutated after creation.
type ArchivedTask struct {
	TaskID         int64      `json:"task_id"`
	Name           string     `json:"name"`
	Description    string     `json:"description"`
	StateID        int16      `json:"state_id"`
	DueDate        time.Time  `json:"due_date"`
	CompletedDate  *time.Time `json:"completed_date,omitempty"`
	Priority       Priority   `json:"priority"`
	AssignedUserID *uuid.UUID `json:"assigned_user_id,omitempty"`
	CreatorID      *uuid.UUID `json:"creator_id,omitempty"`
	IdempotencyKey *string    `json:"idempotency_key,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	ArchivedAt     time.Time  `json:"archived_at"`
}

// ArchivedStage is the append-only snapshot of one stage of an archived task.
type ArchivedStage struct {
	StageID        int64      `json:"stage_id"`
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
	ArchivedAt     time.Time  `json:"archived_at"`
}

// SnapshotTask copies a task's field set into an archive record.
func SnapshotTask(t *Task, archivedAt time.Time) *ArchivedTask {
	return &ArchivedTask{
		TaskID:         t.ID,
		Name:           t.Name,
		Description:    t.Description,
		StateID:        t.StateID,
		DueDate:        t.DueDate,
		CompletedDate:  t.CompletedDate,
		Priority:       t.Priority,
		AssignedUserID: t.AssignedUserID,
		CreatorID:      t.CreatorID,
		IdempotencyKey: t.IdempotencyKey,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
		ArchivedAt:     archivedAt.UTC(),
	}
}

// SnapshotStage copies a stage's field set into an archive record.
func SnapshotStage(s *Stage, archivedAt time.Time) *ArchivedStage {
	return &ArchivedStage{
		StageID:        s.ID,
		TaskID:         s.TaskID,
		Name:           s.Name,
		EstimatedHours: s.EstimatedHours,
		ActualHours:    s.ActualHours,
		StateID:        s.StateID,
		OrderNumber:    s.OrderNumber,
		StartDate:      s.StartDate,
		CompletedDate:  s.CompletedDate,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
		ArchivedAt:     archivedAt.UTC(),
	}
}
