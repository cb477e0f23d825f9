package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"textile-backoffice/internal/app"
	"textile-backoffice/internal/core"
)

func (h *Handler) createItem(w http.ResponseWriter, r *http.Request) {
	var req app.CreateItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	item, err := h.svc.CreateItem(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeCreated(w, item)
}

func (h *Handler) getItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.svc.GetItem(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, item)
}

func (h *Handler) listItems(w http.ResponseWriter, r *http.Request) {
	var kind *core.ItemKind
	if v := r.URL.Query().Get("kind"); v != "" {
		k := core.ItemKind(v)
		kind = &k
	}
	items, err := h.svc.ListItems(r.Context(), kind)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, items)
}

func (h *Handler) updateThreshold(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MinStock decimal.Decimal `json:"min_stock"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	if err := h.svc.UpdateItemThreshold(r.Context(), chi.URLParam(r, "id"), req.MinStock); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, map[string]string{"status": "updated"})
}

func (h *Handler) createLocation(w http.ResponseWriter, r *http.Request) {
	var req app.CreateLocationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	loc, err := h.svc.CreateLocation(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeCreated(w, loc)
}

func (h *Handler) listLocations(w http.ResponseWriter, r *http.Request) {
	locs, err := h.svc.ListLocations(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, locs)
}

func (h *Handler) openAccount(w http.ResponseWriter, r *http.Request) {
	var req app.OpenAccountRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	acc, err := h.svc.OpenAccount(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeCreated(w, acc)
}

func (h *Handler) stockOverview(w http.ResponseWriter, r *http.Request) {
	rows, err := h.svc.StockOverview(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, rows)
}
