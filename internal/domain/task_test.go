package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRegistry(t *testing.T) *StateRegistry {
	t.Helper()
	reg, err := NewStateRegistry(seededStates())
	require.NoError(t, err)
	return reg
}

func stageInState(stateID int16, completed *time.Time) *Stage {
	return &Stage{
		Name:           "stage",
		EstimatedHours: 1,
		StateID:        stateID,
		OrderNumber:    1,
		CompletedDate:  completed,
	}
}

func TestNewTaskValidation(t *testing.T) {
	due := testToday.AddDate(0, 0, 7)

	task, err := NewTask("ship release", "cut and tag", due, PriorityHigh, 1)
	require.NoError(t, err)
	assert.Equal(t, DateOnly(due), task.DueDate)
	assert.Equal(t, int16(1), task.StateID)

	_, err = NewTask("", "", due, PriorityHigh, 1)
	assert.ErrorIs(t, err, ErrEmptyTaskName)

	_, err = NewTask("x", "", due, Priority("urgent"), 1)
	assert.ErrorIs(t, err, ErrInvalidPriority)

	_, err = NewTask("x", "", time.Time{}, PriorityLow, 1)
	assert.ErrorIs(t, err, ErrZeroDueDate)
}

func TestResolveTaskStatusAllCompleted(t *testing.T) {
	reg := testRegistry(t)
	task := &Task{StateID: reg.MustID(StateInProgress), DueDate: testToday.AddDate(0, 0, 5)}

	d1 := DateOnly(testToday.AddDate(0, 0, -2))
	d2 := DateOnly(testToday.AddDate(0, 0, -1))
	stages := []*Stage{
		stageInState(reg.MustID(StateCompleted), &d1),
		stageInState(reg.MustID(StateCompleted), &d2),
	}

	decision := ResolveTaskStatus(task, stages, reg, testToday)
	require.True(t, decision.Changed)
	assert.Equal(t, StateCompleted, decision.State)
	require.NotNil(t, decision.CompletedDate)
	assert.Equal(t, d2, *decision.CompletedDate, "completed date is the max stage completed date")
}

func TestResolveTaskStatusAllCompletedWithoutDatesFallsBackToToday(t *testing.T) {
	reg := testRegistry(t)
	task := &Task{StateID: reg.MustID(StatePending), DueDate: testToday.AddDate(0, 0, 5)}
	stages := []*Stage{stageInState(reg.MustID(StateCompleted), nil)}

	decision := ResolveTaskStatus(task, stages, reg, testToday)
	require.True(t, decision.Changed)
	assert.Equal(t, StateCompleted, decision.State)
	assert.Equal(t, DateOnly(testToday), *decision.CompletedDate)
}

func TestResolveTaskStatusZeroStagesNeverCompletes(t *testing.T) {
	reg := testRegistry(t)
	task := &Task{StateID: reg.MustID(StatePending), DueDate: testToday.AddDate(0, 0, 5)}

	decision := ResolveTaskStatus(task, nil, reg, testToday)
	assert.False(t, decision.Changed, "a task with zero stages keeps its status")
}

func TestResolveTaskStatusOverdueBeatsInProgress(t *testing.T) {
	reg := testRegistry(t)
	task := &Task{StateID: reg.MustID(StatePending), DueDate: testToday.AddDate(0, 0, -1)}
	stages := []*Stage{stageInState(reg.MustID(StateInProgress), nil)}

	decision := ResolveTaskStatus(task, stages, reg, testToday)
	require.True(t, decision.Changed)
	assert.Equal(t, StateOverdue, decision.State)
}

func TestResolveTaskStatusCompletedBeatsOverdue(t *testing.T) {
	reg := testRegistry(t)
	// Past due, but every stage is done: the completed rule wins.
	task := &Task{StateID: reg.MustID(StateInProgress), DueDate: testToday.AddDate(0, 0, -3)}
	done := DateOnly(testToday.AddDate(0, 0, -1))
	stages := []*Stage{stageInState(reg.MustID(StateCompleted), &done)}

	decision := ResolveTaskStatus(task, stages, reg, testToday)
	require.True(t, decision.Changed)
	assert.Equal(t, StateCompleted, decision.State)
}

func TestResolveTaskStatusAlreadyCompletedNeverGoesOverdue(t *testing.T) {
	reg := testRegistry(t)
	task := &Task{StateID: reg.MustID(StateCompleted), DueDate: testToday.AddDate(0, 0, -10)}
	stages := []*Stage{stageInState(reg.MustID(StatePending), nil)}

	decision := ResolveTaskStatus(task, stages, reg, testToday)
	assert.False(t, decision.Changed)
}

func TestResolveTaskStatusInProgressStage(t *testing.T) {
	reg := testRegistry(t)
	task := &Task{StateID: reg.MustID(StatePending), DueDate: testToday.AddDate(0, 0, 5)}
	stages := []*Stage{
		stageInState(reg.MustID(StateInProgress), nil),
		stageInState(reg.MustID(StatePending), nil),
	}

	decision := ResolveTaskStatus(task, stages, reg, testToday)
	require.True(t, decision.Changed)
	assert.Equal(t, StateInProgress, decision.State)
}

func TestResolveTaskStatusPendingStagesFallThrough(t *testing.T) {
	reg := testRegistry(t)
	task := &Task{StateID: reg.MustID(StatePending), DueDate: testToday.AddDate(0, 0, 5)}
	stages := []*Stage{stageInState(reg.MustID(StatePending), nil)}

	decision := ResolveTaskStatus(task, stages, reg, testToday)
	assert.False(t, decision.Changed, "pending stages before the due date leave the status unchanged")
}

func TestResolveTaskStatusIsDeterministic(t *testing.T) {
	reg := testRegistry(t)
	task := &Task{StateID: reg.MustID(StatePending), DueDate: testToday.AddDate(0, 0, -1)}
	stages := []*Stage{
		stageInState(reg.MustID(StateInProgress), nil),
		stageInState(reg.MustID(StatePending), nil),
	}

	first := ResolveTaskStatus(task, stages, reg, testToday)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, ResolveTaskStatus(task, stages, reg, testToday))
	}
}

func TestCanComplete(t *testing.T) {
	reg := testRegistry(t)
	task := &Task{StateID: reg.MustID(StatePending), DueDate: testToday}
	completedID := reg.MustID(StateCompleted)

	open := []*Stage{stageInState(reg.MustID(StatePending), nil)}
	assert.ErrorIs(t, task.CanComplete(open, completedID), ErrTaskHasOpenStage)

	done := []*Stage{stageInState(completedID, nil)}
	assert.NoError(t, task.CanComplete(done, completedID))

	// Zero stages: the direct path may close the task.
	assert.NoError(t, task.CanComplete(nil, completedID))
}
