package jobs_test

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/mwhitlock/tasktrack-api/internal/domain"
	"github.com/mwhitlock/tasktrack-api/internal/platform/postgres"
	"github.com/mwhitlock/tasktrack-api/internal/store"
	"github.com/mwhitlock/tasktrack-api/internal/testdb"
)

// jobsHarness wires real stores against the test database. The jobs
// commit their own transactions, so each test hard-deletes what it
// creates and keeps its fixture dates far away from the other suites.
type jobsHarness struct {
	db       *sql.DB
	registry *domain.StateRegistry
	tasks    store.TaskStore
	stages   store.StageStore
	archive  store.ArchiveStore
}

func newJobsHarness(t *testing.T) *jobsHarness {
	t.Helper()

	db := testdb.MustOpen(t)

	states, err := postgres.NewPostgresStateStore(db, nil).List(context.Background())
	require.NoError(t, err)
	registry, err := domain.NewStateRegistry(states)
	require.NoError(t, err)

	return &jobsHarness{
		db:       db,
		registry: registry,
		tasks:    postgres.NewPostgresTaskStore(db, nil),
		stages:   postgres.NewPostgresStageStore(db, nil),
		archive:  postgres.NewPostgresArchiveStore(db, nil),
	}
}

// createUser inserts a user with a unique username and email, registering
// cleanup. Register users before their tasks so the task rows go first.
func (h *jobsHarness) createUser(t *testing.T) *domain.User {
	t.Helper()

	suffix := uuid.NewString()[:8]
	user, err := domain.NewUser("jobs_"+suffix, "jobs_"+suffix+"@example.com", "Dana Reyes", "password12345")
	require.NoError(t, err)
	require.NoError(t, postgres.NewPostgresUserStore(h.db, 4, nil).Create(context.Background(), user))

	t.Cleanup(func() {
		_, _ = h.db.Exec("DELETE FROM users WHERE id = $1", user.ID)
	})
	return user
}

func (h *jobsHarness) createTask(t *testing.T, name string, due time.Time, assignee *uuid.UUID) *domain.Task {
	t.Helper()

	task, err := domain.NewTask(name, "", due, domain.PriorityMedium, h.registry.MustID(domain.StatePending))
	require.NoError(t, err)
	task.AssignedUserID = assignee
	require.NoError(t, h.tasks.Create(context.Background(), task))

	t.Cleanup(func() {
		ctx := context.Background()
		_ = h.tasks.Delete(ctx, task.ID)
		_, _ = h.db.Exec("DELETE FROM archived_task_stages WHERE task_id = $1", task.ID)
		_, _ = h.db.Exec("DELETE FROM archived_tasks WHERE task_id = $1", task.ID)
	})
	return task
}

func (h *jobsHarness) createStage(t *testing.T, taskID int64, name string, order int) *domain.Stage {
	t.Helper()

	stage, err := domain.NewStage(taskID, name, 2, order, h.registry.MustID(domain.StatePending))
	require.NoError(t, err)
	require.NoError(t, h.stages.Create(context.Background(), stage))
	return stage
}

// uniqueName keeps fixture names distinct so assertions on captured
// notifications cannot match rows left behind by other suites.
func uniqueName(prefix string) string {
	return fmt.Sprintf("%s %s", prefix, uuid.NewString()[:8])
}

// fixedClock pins the jobs to a single day.
type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

type queuedMessage struct {
	Subject string
	Body    string
	To      *string
}

// captureDispatcher records notifications instead of delivering them.
type captureDispatcher struct {
	mu       sync.Mutex
	messages []queuedMessage
}

func (d *captureDispatcher) Enqueue(ctx context.Context, subject, body string, toEmail *string) (*domain.NotificationLog, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.messages = append(d.messages, queuedMessage{Subject: subject, Body: body, To: toEmail})
	return domain.NewNotificationLog(subject, body, toEmail)
}

// withSubject returns the captured messages with the exact subject.
func (d *captureDispatcher) withSubject(subject string) []queuedMessage {
	d.mu.Lock()
	defer d.mu.Unlock()

	var out []queuedMessage
	for _, m := range d.messages {
		if m.Subject == subject {
			out = append(out, m)
		}
	}
	return out
}
