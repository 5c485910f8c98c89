package api

import (
	"net/http"

	"github.com/mwhitlock/tasktrack-api/internal/api/shared"
	"github.com/mwhitlock/tasktrack-api/internal/store"
)

// TemplateHandler serves the task template catalog. Templates are read
// only through the API; task creation references them by id.
type TemplateHandler struct {
	templates store.TemplateStore
}

// NewTemplateHandler creates a new TemplateHandler.
func NewTemplateHandler(templates store.TemplateStore) *TemplateHandler {
	return &TemplateHandler{templates: templates}
}

// ListTemplates handles GET /templates requests.
func (h *TemplateHandler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := h.templates.List(r.Context())
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, templates)
}

// GetTemplate handles GET /templates/{id} requests.
func (h *TemplateHandler) GetTemplate(w http.ResponseWriter, r *http.Request) {
	id, err := getPathID(r, "id")
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	template, err := h.templates.GetByID(r.Context(), id)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, template)
}
