package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"textile-backoffice/internal/app"
)

const maxBodyBytes = 1 << 20 // 1 MiB

// Handler holds the ApplicationService and the chi router.
type Handler struct {
	svc    app.ApplicationService
	router chi.Router
}

// NewHandler creates and wires the chi router with all routes. Everything
// except the health check sits behind the capability guard.
func NewHandler(svc app.ApplicationService, allowedOrigins string) http.Handler {
	h := &Handler{svc: svc}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger)
	r.Use(Recoverer)
	r.Use(CORS(allowedOrigins))
	r.Use(RequestBodyLimit(maxBodyBytes))

	r.Get("/api/health", h.health)

	// ── Stock reads ───────────────────────────────────────────────────────────
	r.Group(func(r chi.Router) {
		r.Use(RequireCapability("stock:read"))
		r.Get("/api/items", h.listItems)
		r.Get("/api/items/{id}", h.getItem)
		r.Get("/api/locations", h.listLocations)
		r.Get("/api/stock", h.stockOverview)
		r.Get("/api/accounts/{id}/balance", h.accountBalance)
		r.Get("/api/accounts/{id}/movements", h.accountMovements)
		r.Get("/api/accounts/{id}/reconcile", h.reconcileAccount)
		r.Get("/api/products/{id}/bom", h.listBOM)
		r.Get("/api/alerts", h.listAlerts)
	})

	// ── Stock writes ──────────────────────────────────────────────────────────
	r.Group(func(r chi.Router) {
		r.Use(RequireCapability("stock:write"))
		r.Post("/api/items", h.createItem)
		r.Patch("/api/items/{id}/threshold", h.updateThreshold)
		r.Post("/api/locations", h.createLocation)
		r.Post("/api/accounts", h.openAccount)
		r.Post("/api/accounts/{id}/movements", h.recordAdjustment)
		r.Post("/api/products/{id}/bom", h.addBOMLine)
		r.Put("/api/products/{id}/bom/{materialID}", h.updateBOMLine)
		r.Delete("/api/products/{id}/bom/{materialID}", h.removeBOMLine)
		r.Post("/api/alerts/{id}/viewed", h.markAlertViewed)
		r.Post("/api/alerts/{id}/resolved", h.markAlertResolved)
	})

	// ── Order reads ───────────────────────────────────────────────────────────
	r.Group(func(r chi.Router) {
		r.Use(RequireCapability("orders:read"))
		r.Get("/api/sales", h.listSales)
		r.Get("/api/sales/{id}", h.getSale)
		r.Get("/api/purchases", h.listPurchases)
		r.Get("/api/purchases/{id}", h.getPurchase)
		r.Get("/api/production", h.listProduction)
		r.Get("/api/production/{id}", h.getProduction)
	})

	// ── Order writes ──────────────────────────────────────────────────────────
	r.Group(func(r chi.Router) {
		r.Use(RequireCapability("orders:write"))
		r.Post("/api/sales", h.createSale)
		r.Post("/api/sales/{id}/transition", h.transitionSale)
		r.Post("/api/sales/{id}/lines", h.addSaleLine)
		r.Put("/api/sales/{id}/lines/{lineID}", h.updateSaleLine)
		r.Delete("/api/sales/{id}/lines/{lineID}", h.removeSaleLine)
		r.Post("/api/sales/{id}/payments", h.recordPayment)

		r.Post("/api/purchases", h.createPurchase)
		r.Post("/api/purchases/{id}/transition", h.transitionPurchase)
		r.Post("/api/purchases/{id}/lines", h.addPurchaseLine)
		r.Put("/api/purchases/{id}/lines/{lineID}", h.updatePurchaseLine)
		r.Delete("/api/purchases/{id}/lines/{lineID}", h.removePurchaseLine)

		r.Post("/api/production", h.createProduction)
		r.Post("/api/production/{id}/transition", h.transitionProduction)
		r.Post("/api/production/{id}/lines", h.addProductionLine)
		r.Put("/api/production/{id}/lines/{lineID}", h.updateProductionLine)
		r.Delete("/api/production/{id}/lines/{lineID}", h.removeProductionLine)
		r.Post("/api/production/{id}/tasks", h.addTask)
		r.Patch("/api/production/{id}/tasks/{taskID}", h.updateTask)
	})

	h.router = r
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}
