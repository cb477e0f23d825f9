package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"textile-backoffice/internal/app"
	"textile-backoffice/internal/core"
)

func (h *Handler) createSale(w http.ResponseWriter, r *http.Request) {
	var req app.CreateSaleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	order, err := h.svc.CreateSale(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeCreated(w, order)
}

func (h *Handler) getSale(w http.ResponseWriter, r *http.Request) {
	order, err := h.svc.GetSale(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, order)
}

func (h *Handler) listSales(w http.ResponseWriter, r *http.Request) {
	var status *core.SaleStatus
	if v := r.URL.Query().Get("status"); v != "" {
		s := core.SaleStatus(v)
		status = &s
	}
	orders, err := h.svc.ListSales(r.Context(), status)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, orders)
}

func (h *Handler) transitionSale(w http.ResponseWriter, r *http.Request) {
	var req app.SaleTransitionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	order, err := h.svc.TransitionSale(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, order)
}

func (h *Handler) addSaleLine(w http.ResponseWriter, r *http.Request) {
	var line core.OrderLineInput
	if err := decodeJSON(r, &line); err != nil {
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	order, err := h.svc.AddSaleLine(r.Context(), chi.URLParam(r, "id"), line)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, order)
}

func (h *Handler) updateSaleLine(w http.ResponseWriter, r *http.Request) {
	var line core.OrderLineInput
	if err := decodeJSON(r, &line); err != nil {
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	order, err := h.svc.UpdateSaleLine(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "lineID"), line)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, order)
}

func (h *Handler) removeSaleLine(w http.ResponseWriter, r *http.Request) {
	order, err := h.svc.RemoveSaleLine(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "lineID"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, order)
}

func (h *Handler) recordPayment(w http.ResponseWriter, r *http.Request) {
	var req app.PaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	order, err := h.svc.RecordPayment(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeCreated(w, order)
}
