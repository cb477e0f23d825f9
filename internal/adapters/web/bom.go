package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"textile-backoffice/internal/app"
)

func (h *Handler) listBOM(w http.ResponseWriter, r *http.Request) {
	lines, err := h.svc.BOMLines(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, lines)
}

func (h *Handler) addBOMLine(w http.ResponseWriter, r *http.Request) {
	var req app.BOMLineRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	line, err := h.svc.AddBOMLine(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeCreated(w, line)
}

func (h *Handler) updateBOMLine(w http.ResponseWriter, r *http.Request) {
	var req struct {
		QtyPerUnit decimal.Decimal `json:"qty_per_unit"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	line, err := h.svc.UpdateBOMLine(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "materialID"), req.QtyPerUnit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, line)
}

func (h *Handler) removeBOMLine(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.RemoveBOMLine(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "materialID")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, map[string]string{"status": "removed"})
}
