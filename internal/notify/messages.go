package notify

import (
	"fmt"

	"github.com/mwhitlock/tasktrack-api/internal/domain"
)

// dateLayout renders calendar dates in notification bodies.
const dateLayout = "2006-01-02"

func recipientName(name string) string {
	if name == "" {
		return "User"
	}
	return name
}

// TaskOverdueMessage composes the notification sent when a task goes
// overdue.
func TaskOverdueMessage(task *domain.Task, assigneeName string) (subject, body string) {
	subject = fmt.Sprintf("Task Overdue: %s", task.Name)
	body = fmt.Sprintf(
		"Hello %s,\n\n"+
			"The following task is now OVERDUE:\n"+
			"Task ID: %d\n"+
			"Name: %s\n"+
			"Due Date: %s\n"+
			"Priority: %s\n\n"+
			"Please update the status or contact your manager.",
		recipientName(assigneeName),
		task.ID,
		task.Name,
		task.DueDate.Format(dateLayout),
		task.Priority,
	)
	return subject, body
}

// StageOverdueMessage composes the notification sent when a started stage
// goes overdue. The subject carries the task id, matching the established
// alert format consumers already filter on.
func StageOverdueMessage(stage *domain.Stage, taskName, assigneeName string) (subject, body string) {
	subject = fmt.Sprintf("Stage Overdue in Task %d", stage.TaskID)
	body = fmt.Sprintf(
		"Hello %s,\n\n"+
			"A stage in your task is overdue:\n"+
			"Stage: %s\n"+
			"Task: %s (ID: %d)\n\n"+
			"Please attend to this immediately.",
		recipientName(assigneeName),
		stage.Name,
		taskName,
		stage.TaskID,
	)
	return subject, body
}

// ReminderMessage composes the look-ahead reminder for a task nearing its
// due date.
func ReminderMessage(task *domain.Task, assigneeName string) (subject, body string) {
	subject = fmt.Sprintf("Reminder: Task Due Soon - %s", task.Name)
	body = fmt.Sprintf(
		"Hello %s,\n\n"+
			"This is a reminder that your task is due soon:\n"+
			"Task ID: %d\n"+
			"Name: %s\n"+
			"Due Date: %s\n\n"+
			"Please ensure it is completed on time.",
		recipientName(assigneeName),
		task.ID,
		task.Name,
		task.DueDate.Format(dateLayout),
	)
	return subject, body
}

// ManualMessage composes the on-demand notification triggered through the
// API for a single task.
func ManualMessage(task *domain.Task, stateName domain.StateName) (subject, body string) {
	subject = fmt.Sprintf("Notification: Task %s", task.Name)
	body = fmt.Sprintf(
		"This is a manual notification for your task:\n"+
			"Task: %s (ID: %d)\n"+
			"Status: %s\n"+
			"Priority: %s\n",
		task.Name,
		task.ID,
		stateName,
		task.Priority,
	)
	return subject, body
}
