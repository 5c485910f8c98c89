package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/mwhitlock/tasktrack-api/internal/domain"
)

// Common request/response structures

// RegisterRequest defines the payload for the user registration endpoint.
type RegisterRequest struct {
	Username string `json:"username"  validate:"required,min=3,max=64"`
	Email    string `json:"email"     validate:"required,email"`
	FullName string `json:"full_name" validate:"max=128"`
	Password string `json:"password"  validate:"required,min=12,max=72"`
}

// LoginRequest defines the payload for the user login endpoint. Identifier
// accepts a username or an email address.
type LoginRequest struct {
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password"   validate:"required,min=1"`
}

// AuthResponse defines the successful response for authentication endpoints.
type AuthResponse struct {
	UserID uuid.UUID `json:"user_id"`
	Token  string    `json:"token"`
}

// StageResponse represents one stage of a task.
type StageResponse struct {
	ID             int64      `json:"id"`
	TaskID         int64      `json:"task_id"`
	Name           string     `json:"name"`
	EstimatedHours float64    `json:"estimated_hours"`
	ActualHours    *float64   `json:"actual_hours,omitempty"`
	State          string     `json:"state"`
	OrderNumber    int        `json:"order_number"`
	StartDate      *string    `json:"start_date,omitempty"`
	CompletedDate  *string    `json:"completed_date,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// TaskResponse represents a task, with state resolved to its name and
// dates rendered as calendar days.
type TaskResponse struct {
	ID             int64           `json:"id"`
	Name           string          `json:"name"`
	Description    string          `json:"description"`
	State          string          `json:"state"`
	DueDate        string          `json:"due_date"`
	CompletedDate  *string         `json:"completed_date,omitempty"`
	Priority       string          `json:"priority"`
	AssignedUserID *uuid.UUID      `json:"assigned_user_id,omitempty"`
	CreatorID      *uuid.UUID      `json:"creator_id,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	Stages         []StageResponse `json:"stages,omitempty"`
}

const dateLayout = "2006-01-02"

func formatDate(t time.Time) string {
	return t.Format(dateLayout)
}

func formatDatePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(dateLayout)
	return &s
}

// stateName resolves a state id, falling back to the raw id when the
// registry does not know it. The registry is seeded from the same table
// the rows reference, so the fallback should never fire.
func stateName(registry *domain.StateRegistry, id int16) string {
	name, err := registry.NameOf(id)
	if err != nil {
		return "unknown"
	}
	return string(name)
}

func stageToResponse(registry *domain.StateRegistry, stage *domain.Stage) StageResponse {
	return StageResponse{
		ID:             stage.ID,
		TaskID:         stage.TaskID,
		Name:           stage.Name,
		EstimatedHours: stage.EstimatedHours,
		ActualHours:    stage.ActualHours,
		State:          stateName(registry, stage.StateID),
		OrderNumber:    stage.OrderNumber,
		StartDate:      formatDatePtr(stage.StartDate),
		CompletedDate:  formatDatePtr(stage.CompletedDate),
		CreatedAt:      stage.CreatedAt,
		UpdatedAt:      stage.UpdatedAt,
	}
}

func taskToResponse(registry *domain.StateRegistry, task *domain.Task) TaskResponse {
	resp := TaskResponse{
		ID:             task.ID,
		Name:           task.Name,
		Description:    task.Description,
		State:          stateName(registry, task.StateID),
		DueDate:        formatDate(task.DueDate),
		CompletedDate:  formatDatePtr(task.CompletedDate),
		Priority:       string(task.Priority),
		AssignedUserID: task.AssignedUserID,
		CreatorID:      task.CreatorID,
		CreatedAt:      task.CreatedAt,
		UpdatedAt:      task.UpdatedAt,
	}
	for _, stage := range task.Stages {
		resp.Stages = append(resp.Stages, stageToResponse(registry, stage))
	}
	return resp
}
