package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/mwhitlock/tasktrack-api/internal/api/shared"
	"github.com/mwhitlock/tasktrack-api/internal/domain"
	"github.com/mwhitlock/tasktrack-api/internal/service"
)

// AddStageRequest represents the request body for adding a stage to a task.
type AddStageRequest struct {
	Name           string  `json:"name"            validate:"required,min=1,max=255"`
	EstimatedHours float64 `json:"estimated_hours" validate:"required,gt=0"`
}

// UpdateStageRequest represents the request body for updating a stage.
// Absent fields leave the stored value untouched; supplying state triggers
// the transition rules, including the completed-stage actual hours check.
type UpdateStageRequest struct {
	Name           *string  `json:"name,omitempty"            validate:"omitempty,min=1,max=255"`
	EstimatedHours *float64 `json:"estimated_hours,omitempty" validate:"omitempty,gt=0"`
	State          *string  `json:"state,omitempty"`
	ActualHours    *float64 `json:"actual_hours,omitempty"    validate:"omitempty,gt=0"`
	StartDate      *string  `json:"start_date,omitempty"`
	CompletedDate  *string  `json:"completed_date,omitempty"`
}

// StageManager is the slice of the stage service the stage endpoints need.
type StageManager interface {
	AddStage(ctx context.Context, taskID int64, input service.StageInput) (*domain.Stage, error)
	UpdateStage(ctx context.Context, stageID int64, input service.UpdateStageInput) (*domain.Stage, error)
	DeleteStage(ctx context.Context, stageID int64) error
}

// StageHandler handles stage-related HTTP requests.
type StageHandler struct {
	stages    StageManager
	registry  *domain.StateRegistry
	validator *validator.Validate
}

// NewStageHandler creates a new StageHandler.
func NewStageHandler(stages StageManager, registry *domain.StateRegistry) *StageHandler {
	return &StageHandler{
		stages:    stages,
		registry:  registry,
		validator: validator.New(),
	}
}

// AddStage handles POST /tasks/{id}/stages requests.
func (h *StageHandler) AddStage(w http.ResponseWriter, r *http.Request) {
	taskID, err := getPathID(r, "id")
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	var req AddStageRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	stage, err := h.stages.AddStage(r.Context(), taskID, service.StageInput{
		Name:           req.Name,
		EstimatedHours: req.EstimatedHours,
	})
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, stageToResponse(h.registry, stage))
}

// UpdateStage handles PUT /stages/{id} requests.
func (h *StageHandler) UpdateStage(w http.ResponseWriter, r *http.Request) {
	stageID, err := getPathID(r, "id")
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	var req UpdateStageRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	input := service.UpdateStageInput{
		Name:           req.Name,
		EstimatedHours: req.EstimatedHours,
		ActualHours:    req.ActualHours,
	}
	if req.State != nil {
		state := domain.StateName(*req.State)
		input.State = &state
	}
	if req.StartDate != nil {
		startDate, err := time.Parse(dateLayout, *req.StartDate)
		if err != nil {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid start_date: expected YYYY-MM-DD")
			return
		}
		input.StartDate = &startDate
	}
	if req.CompletedDate != nil {
		completedDate, err := time.Parse(dateLayout, *req.CompletedDate)
		if err != nil {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid completed_date: expected YYYY-MM-DD")
			return
		}
		input.CompletedDate = &completedDate
	}

	stage, err := h.stages.UpdateStage(r.Context(), stageID, input)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, stageToResponse(h.registry, stage))
}

// DeleteStage handles DELETE /stages/{id} requests. The surviving stages
// are renumbered and the owning task's status recomputed.
func (h *StageHandler) DeleteStage(w http.ResponseWriter, r *http.Request) {
	stageID, err := getPathID(r, "id")
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.stages.DeleteStage(r.Context(), stageID); err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
