package core_test

import (
	"context"
	"errors"
	"testing"

	"textile-backoffice/internal/core"
)

func TestAlerts_RaisedOnThresholdBreach(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	yarn := e.item(t, core.ItemMaterial, "YARN-01", "10")
	acc := e.account(t, yarn, e.location(t, "WH1"))
	e.seed(t, acc, "15")

	// Still above threshold: no alert.
	alerts, err := e.alerts.List(ctx, nil)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(alerts) != 0 {
		t.Fatalf("alerts = %d, want 0", len(alerts))
	}

	// Drop below: the commit path evaluates and raises.
	if _, err := e.inv.Materials().RecordMovement(ctx, acc.ID, core.DirectionOut, dec("8"), "cutting", nil); err != nil {
		t.Fatalf("OUT: %v", err)
	}
	alerts, _ = e.alerts.List(ctx, nil)
	if len(alerts) != 1 {
		t.Fatalf("alerts = %d, want 1", len(alerts))
	}
	a := alerts[0]
	if a.Status != core.AlertNew {
		t.Errorf("status = %s, want NEW", a.Status)
	}
	if !a.Level.Equal(dec("7")) || !a.Threshold.Equal(dec("10")) {
		t.Errorf("snapshot level=%s threshold=%s, want 7 and 10", a.Level, a.Threshold)
	}

	// Further breaches while the alert is open do not duplicate.
	if _, err := e.inv.Materials().RecordMovement(ctx, acc.ID, core.DirectionOut, dec("2"), "cutting", nil); err != nil {
		t.Fatalf("second OUT: %v", err)
	}
	if err := e.alerts.Sweep(ctx); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if alerts, _ = e.alerts.List(ctx, nil); len(alerts) != 1 {
		t.Errorf("alerts after re-breach = %d, want 1", len(alerts))
	}
}

func TestAlerts_Lifecycle(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	yarn := e.item(t, core.ItemMaterial, "YARN-01", "10")
	acc := e.account(t, yarn, e.location(t, "WH1"))
	e.seed(t, acc, "5") // immediately below threshold
	if err := e.alerts.Sweep(ctx); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	alerts, _ := e.alerts.List(ctx, nil)
	if len(alerts) != 1 {
		t.Fatalf("alerts = %d, want 1", len(alerts))
	}
	id := alerts[0].ID

	viewed, err := e.alerts.MarkViewed(ctx, id, "ana")
	if err != nil {
		t.Fatalf("mark viewed: %v", err)
	}
	if viewed.Status != core.AlertViewed || viewed.ViewedBy == nil || *viewed.ViewedBy != "ana" {
		t.Errorf("viewed = %+v, want VIEWED by ana", viewed)
	}

	// Re-viewing is an idempotent no-op.
	again, err := e.alerts.MarkViewed(ctx, id, "bruno")
	if err != nil {
		t.Fatalf("re-view: %v", err)
	}
	if again.ViewedBy == nil || *again.ViewedBy != "ana" {
		t.Errorf("re-view changed ViewedBy to %v, want ana kept", again.ViewedBy)
	}

	resolved, err := e.alerts.MarkResolved(ctx, id, "bruno")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.Status != core.AlertResolved {
		t.Errorf("status = %s, want RESOLVED", resolved.Status)
	}

	// No regression from RESOLVED.
	if _, err := e.alerts.MarkResolved(ctx, id, "carla"); !errors.Is(err, core.ErrInvalidTransition) {
		t.Errorf("re-resolve err = %v, want ErrInvalidTransition", err)
	}
	if _, err := e.alerts.MarkViewed(ctx, id, "carla"); !errors.Is(err, core.ErrInvalidTransition) {
		t.Errorf("view resolved err = %v, want ErrInvalidTransition", err)
	}

	// A breach after resolution raises a fresh alert.
	if err := e.alerts.Sweep(ctx); err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	alerts, _ = e.alerts.List(ctx, nil)
	if len(alerts) != 2 {
		t.Fatalf("alerts after resolve+sweep = %d, want 2", len(alerts))
	}
}

func TestAlerts_ThresholdIsProspective(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	yarn := e.item(t, core.ItemMaterial, "YARN-01", "0")
	acc := e.account(t, yarn, e.location(t, "WH1"))
	e.seed(t, acc, "5")

	if err := e.alerts.Sweep(ctx); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if alerts, _ := e.alerts.List(ctx, nil); len(alerts) != 0 {
		t.Fatalf("alerts with zero threshold = %d, want 0", len(alerts))
	}

	// Raising the threshold above the balance fires on the next evaluation.
	if err := e.alerts.UpdateThreshold(ctx, yarn.ID, dec("10")); err != nil {
		t.Fatalf("update threshold: %v", err)
	}
	if err := e.alerts.Sweep(ctx); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if alerts, _ := e.alerts.List(ctx, nil); len(alerts) != 1 {
		t.Errorf("alerts after raise = %d, want 1", len(alerts))
	}

	if err := e.alerts.UpdateThreshold(ctx, yarn.ID, dec("-1")); !errors.Is(err, core.ErrInvalidQuantity) {
		t.Errorf("negative threshold err = %v, want ErrInvalidQuantity", err)
	}
}
