package api

import (
	"context"
	"net/http"

	"github.com/mwhitlock/tasktrack-api/internal/api/shared"
	"github.com/mwhitlock/tasktrack-api/internal/service"
)

// Summarizer computes the workload summary.
type Summarizer interface {
	Summarize(ctx context.Context) (*service.Summary, error)
}

// AnalyticsHandler serves the analytics endpoints.
type AnalyticsHandler struct {
	analytics Summarizer
}

// NewAnalyticsHandler creates a new AnalyticsHandler.
func NewAnalyticsHandler(analytics Summarizer) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics}
}

// Summary handles GET /analytics/summary requests.
func (h *AnalyticsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.analytics.Summarize(r.Context())
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, summary)
}
