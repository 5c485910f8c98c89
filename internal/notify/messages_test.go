package notify_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mwhitlock/tasktrack-api/internal/domain"
	"github.com/mwhitlock/tasktrack-api/internal/notify"
)

func TestTaskOverdueMessage(t *testing.T) {
	task := &domain.Task{
		ID:       42,
		Name:     "Quarterly filing",
		DueDate:  time.Date(2025, 4, 30, 0, 0, 0, 0, time.UTC),
		Priority: domain.PriorityHigh,
	}

	subject, body := notify.TaskOverdueMessage(task, "Ada")
	assert.Equal(t, "Task Overdue: Quarterly filing", subject)
	assert.Equal(t,
		"Hello Ada,\n\n"+
			"The following task is now OVERDUE:\n"+
			"Task ID: 42\n"+
			"Name: Quarterly filing\n"+
			"Due Date: 2025-04-30\n"+
			"Priority: high\n\n"+
			"Please update the status or contact your manager.",
		body)

	// A blank assignee name falls back to the generic salutation.
	_, body = notify.TaskOverdueMessage(task, "")
	assert.Contains(t, body, "Hello User,")
}

func TestStageOverdueMessage(t *testing.T) {
	stage := &domain.Stage{ID: 7, TaskID: 42, Name: "Collect receipts"}

	subject, body := notify.StageOverdueMessage(stage, "Quarterly filing", "Ada")
	assert.Equal(t, "Stage Overdue in Task 42", subject)
	assert.Contains(t, body, "Stage: Collect receipts\n")
	assert.Contains(t, body, "Task: Quarterly filing (ID: 42)")
}

func TestReminderMessage(t *testing.T) {
	task := &domain.Task{
		ID:      9,
		Name:    "Renew domain",
		DueDate: time.Date(2025, 5, 2, 0, 0, 0, 0, time.UTC),
	}

	subject, body := notify.ReminderMessage(task, "Ada")
	assert.Equal(t, "Reminder: Task Due Soon - Renew domain", subject)
	assert.Contains(t, body, "Due Date: 2025-05-02\n")
}

func TestManualMessage(t *testing.T) {
	task := &domain.Task{ID: 3, Name: "Ship release", Priority: domain.PriorityLow}

	subject, body := notify.ManualMessage(task, domain.StateInProgress)
	assert.Equal(t, "Notification: Task Ship release", subject)
	assert.Contains(t, body, "Task: Ship release (ID: 3)\n")
	assert.Contains(t, body, "Status: in-progress\n")
	assert.Contains(t, body, "Priority: low\n")
}
