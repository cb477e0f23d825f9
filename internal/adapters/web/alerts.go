package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"textile-backoffice/internal/core"
)

func (h *Handler) listAlerts(w http.ResponseWriter, r *http.Request) {
	var status *core.AlertStatus
	if v := r.URL.Query().Get("status"); v != "" {
		s := core.AlertStatus(v)
		status = &s
	}
	alerts, err := h.svc.ListAlerts(r.Context(), status)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, alerts)
}

func (h *Handler) markAlertViewed(w http.ResponseWriter, r *http.Request) {
	var req struct {
		By string `json:"by"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	alert, err := h.svc.MarkAlertViewed(r.Context(), chi.URLParam(r, "id"), req.By)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, alert)
}

func (h *Handler) markAlertResolved(w http.ResponseWriter, r *http.Request) {
	var req struct {
		By string `json:"by"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	alert, err := h.svc.MarkAlertResolved(r.Context(), chi.URLParam(r, "id"), req.By)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, alert)
}
