package service_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwhitlock/tasktrack-api/internal/domain"
	"github.com/mwhitlock/tasktrack-api/internal/platform/postgres"
	"github.com/mwhitlock/tasktrack-api/internal/service"
	"github.com/mwhitlock/tasktrack-api/internal/store"
	"github.com/mwhitlock/tasktrack-api/internal/testdb"
)

// serviceHarness wires real stores against the test database. Services
// commit their own transactions, so each test hard-deletes what it creates.
type serviceHarness struct {
	db       *sql.DB
	registry *domain.StateRegistry
	tasks    store.TaskStore
	stages   store.StageStore
	taskSvc  *service.TaskService
	stageSvc *service.StageService
}

func newServiceHarness(t *testing.T) *serviceHarness {
	t.Helper()

	db := testdb.MustOpen(t)

	states, err := postgres.NewPostgresStateStore(db, nil).List(context.Background())
	require.NoError(t, err)
	registry, err := domain.NewStateRegistry(states)
	require.NoError(t, err)

	tasks := postgres.NewPostgresTaskStore(db, nil)
	stages := postgres.NewPostgresStageStore(db, nil)
	templates := postgres.NewPostgresTemplateStore(db, nil)

	return &serviceHarness{
		db:       db,
		registry: registry,
		tasks:    tasks,
		stages:   stages,
		taskSvc:  service.NewTaskService(db, tasks, stages, templates, registry, nil),
		stageSvc: service.NewStageService(db, tasks, stages, registry, nil),
	}
}

func (h *serviceHarness) cleanupTask(t *testing.T, id int64) {
	t.Helper()
	t.Cleanup(func() {
		_ = h.tasks.Delete(context.Background(), id)
	})
}

func TestTaskServiceCreateWithStages(t *testing.T) {
	h := newServiceHarness(t)
	ctx := context.Background()

	task, err := h.taskSvc.CreateTask(ctx, service.CreateTaskInput{
		Name:     "Ship feature",
		DueDate:  time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC),
		Priority: domain.PriorityHigh,
		Stages: []service.StageInput{
			{Name: "Design", EstimatedHours: 4},
			{Name: "Implement", EstimatedHours: 16},
		},
	})
	require.NoError(t, err)
	h.cleanupTask(t, task.ID)

	assert.Equal(t, h.registry.MustID(domain.StatePending), task.StateID)
	require.Len(t, task.Stages, 2)
	assert.Equal(t, 1, task.Stages[0].OrderNumber)
	assert.Equal(t, 2, task.Stages[1].OrderNumber)

	loaded, err := h.taskSvc.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ship feature", loaded.Name)
	require.Len(t, loaded.Stages, 2)
}

func TestTaskServiceIdempotentCreate(t *testing.T) {
	h := newServiceHarness(t)
	ctx := context.Background()

	key := "b3c70c2e-9a41-4a64-8f82-6f1f0a54a111"
	input := service.CreateTaskInput{
		Name:           "Invoice run",
		DueDate:        time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC),
		Priority:       domain.PriorityMedium,
		IdempotencyKey: &key,
		Stages:         []service.StageInput{{Name: "Generate", EstimatedHours: 1}},
	}

	first, err := h.taskSvc.CreateTask(ctx, input)
	require.NoError(t, err)
	h.cleanupTask(t, first.ID)

	second, err := h.taskSvc.CreateTask(ctx, input)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	require.Len(t, second.Stages, 1)
}

func TestTaskServiceIdempotencyKeyMismatch(t *testing.T) {
	h := newServiceHarness(t)
	ctx := context.Background()

	key := "5d0de1a7-33cf-4a0e-9f6b-2dc3a8b4c222"
	input := service.CreateTaskInput{
		Name:           "Quarterly close",
		DueDate:        time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC),
		Priority:       domain.PriorityMedium,
		IdempotencyKey: &key,
	}

	first, err := h.taskSvc.CreateTask(ctx, input)
	require.NoError(t, err)
	h.cleanupTask(t, first.ID)

	// Same key, different payload: the replay is refused rather than
	// silently returning a task that does not match the request.
	changed := input
	changed.Name = "Quarterly close, redone"
	_, err = h.taskSvc.CreateTask(ctx, changed)
	require.ErrorIs(t, err, service.ErrIdempotencyMismatch)

	changed = input
	changed.Priority = domain.PriorityHigh
	_, err = h.taskSvc.CreateTask(ctx, changed)
	require.ErrorIs(t, err, service.ErrIdempotencyMismatch)

	// The original stays retrievable under the unchanged payload.
	replay, err := h.taskSvc.CreateTask(ctx, input)
	require.NoError(t, err)
	assert.Equal(t, first.ID, replay.ID)
}

func TestTaskServiceCreateFromTemplate(t *testing.T) {
	h := newServiceHarness(t)
	ctx := context.Background()

	var tplID int64
	err := h.db.QueryRowContext(ctx,
		`INSERT INTO task_templates (name, description) VALUES ($1, $2) RETURNING id`,
		"Release checklist", "standard release").Scan(&tplID)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = h.db.ExecContext(context.Background(), `DELETE FROM task_templates WHERE id = $1`, tplID)
	})

	for i, name := range []string{"Tag", "Build", "Announce"} {
		_, err := h.db.ExecContext(ctx,
			`INSERT INTO task_template_stages (template_id, name, estimated_hours, order_number)
			 VALUES ($1, $2, $3, $4)`,
			tplID, name, 1.5, i+1)
		require.NoError(t, err)
	}

	task, err := h.taskSvc.CreateTask(ctx, service.CreateTaskInput{
		Name:       "Release 2.4",
		DueDate:    time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC),
		Priority:   domain.PriorityHigh,
		TemplateID: &tplID,
		// Inline stages are ignored when a template is given.
		Stages: []service.StageInput{{Name: "Ignored", EstimatedHours: 1}},
	})
	require.NoError(t, err)
	h.cleanupTask(t, task.ID)

	require.Len(t, task.Stages, 3)
	assert.Equal(t, "Tag", task.Stages[0].Name)
	assert.Equal(t, "Announce", task.Stages[2].Name)
}

func TestTaskServiceCompletionGuard(t *testing.T) {
	h := newServiceHarness(t)
	ctx := context.Background()

	task, err := h.taskSvc.CreateTask(ctx, service.CreateTaskInput{
		Name:     "Guarded",
		DueDate:  time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC),
		Priority: domain.PriorityLow,
		Stages:   []service.StageInput{{Name: "Open stage", EstimatedHours: 2}},
	})
	require.NoError(t, err)
	h.cleanupTask(t, task.ID)

	completed := domain.StateCompleted
	_, err = h.taskSvc.UpdateTask(ctx, task.ID, service.UpdateTaskInput{State: &completed})
	assert.ErrorIs(t, err, domain.ErrTaskHasOpenStage)

	// Complete the stage, then the direct completion goes through.
	hours := 2.0
	_, err = h.stageSvc.UpdateStage(ctx, task.Stages[0].ID, service.UpdateStageInput{
		State:       &completed,
		ActualHours: &hours,
	})
	require.NoError(t, err)

	loaded, err := h.taskSvc.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, h.registry.MustID(domain.StateCompleted), loaded.StateID)
	require.NotNil(t, loaded.CompletedDate)
}

func TestTaskServiceUpdateFields(t *testing.T) {
	h := newServiceHarness(t)
	ctx := context.Background()

	task, err := h.taskSvc.CreateTask(ctx, service.CreateTaskInput{
		Name:     "Rename me",
		DueDate:  time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC),
		Priority: domain.PriorityLow,
	})
	require.NoError(t, err)
	h.cleanupTask(t, task.ID)

	newName := "Renamed"
	newDue := time.Date(2025, 10, 1, 12, 30, 0, 0, time.UTC)
	updated, err := h.taskSvc.UpdateTask(ctx, task.ID, service.UpdateTaskInput{
		Name:    &newName,
		DueDate: &newDue,
	})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
	// Due dates are calendar dates: the time of day is dropped.
	assert.Equal(t, time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC), updated.DueDate)
}

func TestTaskServiceSoftDelete(t *testing.T) {
	h := newServiceHarness(t)
	ctx := context.Background()

	task, err := h.taskSvc.CreateTask(ctx, service.CreateTaskInput{
		Name:     "Short lived",
		DueDate:  time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC),
		Priority: domain.PriorityLow,
	})
	require.NoError(t, err)
	h.cleanupTask(t, task.ID)

	require.NoError(t, h.taskSvc.DeleteTask(ctx, task.ID))

	_, err = h.taskSvc.GetTask(ctx, task.ID)
	assert.ErrorIs(t, err, store.ErrTaskNotFound)
}
