package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"textile-backoffice/internal/app"
	"textile-backoffice/internal/core"
)

func (h *Handler) createPurchase(w http.ResponseWriter, r *http.Request) {
	var req app.CreatePurchaseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	order, err := h.svc.CreatePurchase(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeCreated(w, order)
}

func (h *Handler) getPurchase(w http.ResponseWriter, r *http.Request) {
	order, err := h.svc.GetPurchase(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, order)
}

func (h *Handler) listPurchases(w http.ResponseWriter, r *http.Request) {
	var status *core.PurchaseStatus
	if v := r.URL.Query().Get("status"); v != "" {
		s := core.PurchaseStatus(v)
		status = &s
	}
	orders, err := h.svc.ListPurchases(r.Context(), status)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, orders)
}

func (h *Handler) transitionPurchase(w http.ResponseWriter, r *http.Request) {
	var req app.PurchaseTransitionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	order, err := h.svc.TransitionPurchase(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, order)
}

func (h *Handler) addPurchaseLine(w http.ResponseWriter, r *http.Request) {
	var line core.OrderLineInput
	if err := decodeJSON(r, &line); err != nil {
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	order, err := h.svc.AddPurchaseLine(r.Context(), chi.URLParam(r, "id"), line)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, order)
}

func (h *Handler) updatePurchaseLine(w http.ResponseWriter, r *http.Request) {
	var line core.OrderLineInput
	if err := decodeJSON(r, &line); err != nil {
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	order, err := h.svc.UpdatePurchaseLine(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "lineID"), line)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, order)
}

func (h *Handler) removePurchaseLine(w http.ResponseWriter, r *http.Request) {
	order, err := h.svc.RemovePurchaseLine(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "lineID"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, order)
}
