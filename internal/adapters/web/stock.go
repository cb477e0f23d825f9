package web

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"textile-backoffice/internal/app"
	"textile-backoffice/internal/core"
)

func (h *Handler) accountBalance(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.AccountBalance(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

func (h *Handler) accountMovements(w http.ResponseWriter, r *http.Request) {
	page := core.Page{}
	if v := r.URL.Query().Get("limit"); v != "" {
		page.Limit, _ = strconv.Atoi(v)
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		page.Offset, _ = strconv.Atoi(v)
	}
	movements, err := h.svc.AccountMovements(r.Context(), chi.URLParam(r, "id"), page)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, movements)
}

func (h *Handler) recordAdjustment(w http.ResponseWriter, r *http.Request) {
	var req app.AdjustmentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	movement, err := h.svc.RecordAdjustment(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeCreated(w, movement)
}

func (h *Handler) reconcileAccount(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ReconcileAccount(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}
