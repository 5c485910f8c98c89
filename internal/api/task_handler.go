package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/mwhitlock/tasktrack-api/internal/api/shared"
	"github.com/mwhitlock/tasktrack-api/internal/domain"
	"github.com/mwhitlock/tasktrack-api/internal/notify"
	"github.com/mwhitlock/tasktrack-api/internal/platform/logger"
	"github.com/mwhitlock/tasktrack-api/internal/service"
	"github.com/mwhitlock/tasktrack-api/internal/store"
)

// CreateTaskRequest represents the request body for creating a task.
type CreateTaskRequest struct {
	Name           string              `json:"name"            validate:"required,min=1,max=255"`
	Description    string              `json:"description"     validate:"max=4000"`
	DueDate        string              `json:"due_date"        validate:"required"`
	Priority       string              `json:"priority"        validate:"required,oneof=high medium low"`
	AssignedUserID *uuid.UUID          `json:"assigned_user_id,omitempty"`
	TemplateID     *int64              `json:"template_id,omitempty"`
	IdempotencyKey *string             `json:"idempotency_key,omitempty"`
	Stages         []StageInputRequest `json:"stages,omitempty" validate:"dive"`
}

// StageInputRequest is one inline stage supplied with task creation.
type StageInputRequest struct {
	Name           string  `json:"name"            validate:"required,min=1,max=255"`
	EstimatedHours float64 `json:"estimated_hours" validate:"required,gt=0"`
}

// UpdateTaskRequest represents the request body for updating a task.
// Absent fields leave the stored value untouched.
type UpdateTaskRequest struct {
	Name           *string    `json:"name,omitempty"        validate:"omitempty,min=1,max=255"`
	Description    *string    `json:"description,omitempty" validate:"omitempty,max=4000"`
	DueDate        *string    `json:"due_date,omitempty"`
	Priority       *string    `json:"priority,omitempty"    validate:"omitempty,oneof=high medium low"`
	AssignedUserID *uuid.UUID `json:"assigned_user_id,omitempty"`
	State          *string    `json:"state,omitempty"`
}

// TaskListResponse wraps a task page. NextCursor carries the id to pass as
// the next page's cursor, and is absent on the last page.
type TaskListResponse struct {
	Tasks      []TaskResponse `json:"tasks"`
	NextCursor *int64         `json:"next_cursor,omitempty"`
}

// NotificationResponse represents a queued manual notification.
type NotificationResponse struct {
	ID      int64   `json:"id"`
	ToEmail *string `json:"to_email,omitempty"`
	Subject string  `json:"subject"`
	Status  string  `json:"status"`
}

// TaskManager is the slice of the task service the task endpoints need.
type TaskManager interface {
	CreateTask(ctx context.Context, input service.CreateTaskInput) (*domain.Task, error)
	GetTask(ctx context.Context, id int64) (*domain.Task, error)
	ListTasks(ctx context.Context, lastID int64, limit int) ([]*domain.Task, error)
	UpdateTask(ctx context.Context, id int64, input service.UpdateTaskInput) (*domain.Task, error)
	DeleteTask(ctx context.Context, id int64) error
}

// NotificationDispatcher queues a notification for asynchronous delivery.
type NotificationDispatcher interface {
	Enqueue(ctx context.Context, subject, body string, toEmail *string) (*domain.NotificationLog, error)
}

// TaskHandler handles task-related HTTP requests.
type TaskHandler struct {
	tasks      TaskManager
	users      UserService
	dispatcher NotificationDispatcher
	registry   *domain.StateRegistry
	validator  *validator.Validate
	logger     *slog.Logger
}

// NewTaskHandler creates a new TaskHandler. It panics if logger is nil.
func NewTaskHandler(
	tasks TaskManager,
	users UserService,
	dispatcher NotificationDispatcher,
	registry *domain.StateRegistry,
	logger *slog.Logger,
) *TaskHandler {
	if logger == nil {
		panic("logger cannot be nil for TaskHandler")
	}
	return &TaskHandler{
		tasks:      tasks,
		users:      users,
		dispatcher: dispatcher,
		registry:   registry,
		validator:  validator.New(),
		logger:     logger.With(slog.String("component", "task_handler")),
	}
}

// CreateTask handles POST /tasks requests.
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserIDFromContext(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return
	}

	var req CreateTaskRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	dueDate, err := time.Parse(dateLayout, req.DueDate)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid due_date: expected YYYY-MM-DD")
		return
	}

	input := service.CreateTaskInput{
		Name:           req.Name,
		Description:    req.Description,
		DueDate:        dueDate,
		Priority:       domain.Priority(req.Priority),
		AssignedUserID: req.AssignedUserID,
		CreatorID:      &userID,
		TemplateID:     req.TemplateID,
		IdempotencyKey: req.IdempotencyKey,
	}
	for _, stage := range req.Stages {
		input.Stages = append(input.Stages, service.StageInput{
			Name:           stage.Name,
			EstimatedHours: stage.EstimatedHours,
		})
	}

	task, err := h.tasks.CreateTask(r.Context(), input)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, taskToResponse(h.registry, task))
}

// GetTask handles GET /tasks/{id} requests.
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	id, err := getPathID(r, "id")
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	task, err := h.tasks.GetTask(r.Context(), id)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, taskToResponse(h.registry, task))
}

// ListTasks handles GET /tasks requests with keyset pagination: ?cursor=
// is the last id of the previous page and ?limit= caps the page size.
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	cursor := getQueryInt(r, "cursor", 0)
	limit := int(getQueryInt(r, "limit", 20))

	tasks, err := h.tasks.ListTasks(r.Context(), cursor, limit)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	resp := TaskListResponse{Tasks: []TaskResponse{}}
	for _, task := range tasks {
		resp.Tasks = append(resp.Tasks, taskToResponse(h.registry, task))
	}
	if limit > 0 && len(tasks) == limit {
		last := tasks[len(tasks)-1].ID
		resp.NextCursor = &last
	}

	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// UpdateTask handles PUT /tasks/{id} requests.
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	id, err := getPathID(r, "id")
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	var req UpdateTaskRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	input := service.UpdateTaskInput{
		Name:           req.Name,
		Description:    req.Description,
		AssignedUserID: req.AssignedUserID,
	}
	if req.DueDate != nil {
		dueDate, err := time.Parse(dateLayout, *req.DueDate)
		if err != nil {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid due_date: expected YYYY-MM-DD")
			return
		}
		input.DueDate = &dueDate
	}
	if req.Priority != nil {
		priority := domain.Priority(*req.Priority)
		input.Priority = &priority
	}
	if req.State != nil {
		state := domain.StateName(*req.State)
		input.State = &state
	}

	task, err := h.tasks.UpdateTask(r.Context(), id, input)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, taskToResponse(h.registry, task))
}

// DeleteTask handles DELETE /tasks/{id} requests. The delete is soft: the
// row survives for audit but disappears from every read.
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	id, err := getPathID(r, "id")
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.tasks.DeleteTask(r.Context(), id); err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// NotifyTask handles POST /tasks/{id}/notify requests. It queues a manual
// notification to the task's assignee; a task without an assigned user is
// rejected.
func (h *TaskHandler) NotifyTask(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	id, err := getPathID(r, "id")
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	task, err := h.tasks.GetTask(r.Context(), id)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	if task.AssignedUserID == nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Task has no assigned user")
		return
	}

	assignee, err := h.users.GetUser(r.Context(), *task.AssignedUserID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Task has no assigned user")
			return
		}
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError, "Failed to queue notification", err)
		return
	}

	subject, body := notify.ManualMessage(task, domain.StateName(stateName(h.registry, task.StateID)))
	notification, err := h.dispatcher.Enqueue(r.Context(), subject, body, &assignee.Email)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError, "Failed to queue notification", err)
		return
	}

	log.Info("manual notification queued",
		slog.Int64("task_id", task.ID),
		slog.Int64("notification_id", notification.ID))

	shared.RespondWithJSON(w, r, http.StatusAccepted, NotificationResponse{
		ID:      notification.ID,
		ToEmail: notification.ToEmail,
		Subject: notification.Subject,
		Status:  string(notification.Status),
	})
}
