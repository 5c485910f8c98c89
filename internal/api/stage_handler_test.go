package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwhitlock/tasktrack-api/internal/api"
	"github.com/mwhitlock/tasktrack-api/internal/domain"
	"github.com/mwhitlock/tasktrack-api/internal/service"
	"github.com/mwhitlock/tasktrack-api/internal/store"
)

type stubStageManager struct {
	updateErr  error
	lastUpdate service.UpdateStageInput
}

func (s *stubStageManager) AddStage(ctx context.Context, taskID int64, input service.StageInput) (*domain.Stage, error) {
	stage, err := domain.NewStage(taskID, input.Name, input.EstimatedHours, 1, 1)
	if err != nil {
		return nil, err
	}
	stage.ID = 1
	return stage, nil
}

func (s *stubStageManager) UpdateStage(ctx context.Context, stageID int64, input service.UpdateStageInput) (*domain.Stage, error) {
	if s.updateErr != nil {
		return nil, s.updateErr
	}
	s.lastUpdate = input
	stage, err := domain.NewStage(1, "Stage", 2, 1, 1)
	if err != nil {
		return nil, err
	}
	stage.ID = stageID
	return stage, nil
}

func (s *stubStageManager) DeleteStage(ctx context.Context, stageID int64) error {
	return s.updateErr
}

func newStageRouter(t *testing.T, stages *stubStageManager) chi.Router {
	t.Helper()

	handler := api.NewStageHandler(stages, testRegistry(t))
	r := chi.NewRouter()
	r.Post("/tasks/{id}/stages", handler.AddStage)
	r.Put("/stages/{id}", handler.UpdateStage)
	r.Delete("/stages/{id}", handler.DeleteStage)
	return r
}

func TestStageHandlerAdd(t *testing.T) {
	stages := &stubStageManager{}
	router := newStageRouter(t, stages)

	body := []byte(`{"name": "Review", "estimated_hours": 3}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPost, "/tasks/5/stages", body))

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp api.StageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Review", resp.Name)
	assert.Equal(t, int64(5), resp.TaskID)
	assert.Equal(t, "pending", resp.State)
}

func TestStageHandlerUpdateParsesDates(t *testing.T) {
	stages := &stubStageManager{}
	router := newStageRouter(t, stages)

	body := []byte(`{"state": "completed", "actual_hours": 2.5, "completed_date": "2025-06-05"}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPut, "/stages/9", body))

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, stages.lastUpdate.State)
	assert.Equal(t, domain.StateCompleted, *stages.lastUpdate.State)
	require.NotNil(t, stages.lastUpdate.CompletedDate)
	assert.Equal(t, "2025-06-05", stages.lastUpdate.CompletedDate.Format("2006-01-02"))
}

func TestStageHandlerUpdateMapsRuleViolations(t *testing.T) {
	stages := &stubStageManager{
		updateErr: service.NewStageServiceError("update", "transition failed", domain.ErrActualHoursRequired),
	}
	router := newStageRouter(t, stages)

	body := []byte(`{"state": "completed"}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPut, "/stages/9", body))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Actual hours are required to complete a stage")
}

func TestStageHandlerDeleteNotFound(t *testing.T) {
	stages := &stubStageManager{updateErr: store.ErrStageNotFound}
	router := newStageRouter(t, stages)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodDelete, "/stages/77", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
