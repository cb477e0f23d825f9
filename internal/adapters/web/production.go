package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"textile-backoffice/internal/app"
	"textile-backoffice/internal/core"
)

func (h *Handler) createProduction(w http.ResponseWriter, r *http.Request) {
	var req app.CreateProductionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	order, err := h.svc.CreateProduction(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeCreated(w, order)
}

func (h *Handler) getProduction(w http.ResponseWriter, r *http.Request) {
	order, err := h.svc.GetProduction(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, order)
}

func (h *Handler) listProduction(w http.ResponseWriter, r *http.Request) {
	var status *core.ProductionStatus
	if v := r.URL.Query().Get("status"); v != "" {
		s := core.ProductionStatus(v)
		status = &s
	}
	orders, err := h.svc.ListProduction(r.Context(), status)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, orders)
}

func (h *Handler) transitionProduction(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Target core.ProductionStatus `json:"target"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	order, err := h.svc.TransitionProduction(r.Context(), chi.URLParam(r, "id"), req.Target)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, order)
}

func (h *Handler) addProductionLine(w http.ResponseWriter, r *http.Request) {
	var line core.OrderLineInput
	if err := decodeJSON(r, &line); err != nil {
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	order, err := h.svc.AddProductionLine(r.Context(), chi.URLParam(r, "id"), line)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, order)
}

func (h *Handler) updateProductionLine(w http.ResponseWriter, r *http.Request) {
	var line core.OrderLineInput
	if err := decodeJSON(r, &line); err != nil {
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	order, err := h.svc.UpdateProductionLine(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "lineID"), line)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, order)
}

func (h *Handler) removeProductionLine(w http.ResponseWriter, r *http.Request) {
	order, err := h.svc.RemoveProductionLine(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "lineID"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, order)
}

func (h *Handler) addTask(w http.ResponseWriter, r *http.Request) {
	var req core.TaskInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	order, err := h.svc.AddTask(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeCreated(w, order)
}

func (h *Handler) updateTask(w http.ResponseWriter, r *http.Request) {
	var req core.TaskUpdate
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	order, err := h.svc.UpdateTask(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "taskID"), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, order)
}
