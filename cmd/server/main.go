package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	webAdapter "textile-backoffice/internal/adapters/web"
	"textile-backoffice/internal/app"
	"textile-backoffice/internal/core"
	"textile-backoffice/internal/db"
	"textile-backoffice/internal/store/memory"
	"textile-backoffice/internal/store/postgres"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	ctx := context.Background()

	var (
		store    core.Store
		registry core.Registry
	)
	switch os.Getenv("STORE") {
	case "", "postgres":
		pool, err := db.NewPool(ctx)
		if err != nil {
			log.Fatalf("database: %v", err)
		}
		defer pool.Close()
		store = postgres.NewStore(pool)
		registry = postgres.NewRegistry(pool)
	case "memory":
		log.Println("STORE=memory: state is not persisted across restarts")
		store = memory.NewStore()
		registry = memory.NewRegistry()
	default:
		log.Fatalf("unknown STORE %q (want postgres or memory)", os.Getenv("STORE"))
	}

	alerts := core.NewStockAlertEvaluator(store)
	inv := core.NewInventory(store, alerts)
	catalog := core.NewCatalogService(store)
	bom := core.NewBOMResolver(store)
	sales := core.NewSaleOrderService(store, registry, inv)
	purchases := core.NewPurchaseOrderService(store, registry, inv)
	production := core.NewProductionOrderService(store, registry, inv, bom)

	if interval := os.Getenv("ALERT_SWEEP_INTERVAL"); interval != "" {
		d, err := time.ParseDuration(interval)
		if err != nil {
			log.Fatalf("ALERT_SWEEP_INTERVAL: %v", err)
		}
		alerts.StartSweeper(ctx, d)
	}

	svc := app.NewAppService(store, inv, catalog, bom, alerts, sales, purchases, production)

	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	handler := webAdapter.NewHandler(svc, allowedOrigins)

	log.Printf("server starting on :%s", port)
	if err := http.ListenAndServe(":"+port, handler); err != nil {
		log.Fatalf("server: %v", err)
	}
}
