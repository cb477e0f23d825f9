package core

import "testing"

func TestSaleTransitionTable(t *testing.T) {
	allowed := []struct{ from, to SaleStatus }{
		{SalePending, SaleConfirmed},
		{SalePending, SaleCancelled},
		{SaleConfirmed, SaleInProduction},
		{SaleConfirmed, SaleCancelled},
		{SaleInProduction, SaleDelivered},
		{SaleInProduction, SaleCancelled},
	}
	for _, tr := range allowed {
		if !saleMachine.canTransition(tr.from, tr.to) {
			t.Errorf("%s → %s should be allowed", tr.from, tr.to)
		}
	}

	forbidden := []struct{ from, to SaleStatus }{
		{SalePending, SaleInProduction},
		{SalePending, SaleDelivered},
		{SaleConfirmed, SaleDelivered},
		{SaleDelivered, SaleCancelled},
		{SaleDelivered, SalePending},
		{SaleCancelled, SalePending},
		{SaleCancelled, SaleConfirmed},
	}
	for _, tr := range forbidden {
		if saleMachine.canTransition(tr.from, tr.to) {
			t.Errorf("%s → %s should be rejected", tr.from, tr.to)
		}
	}

	if !saleMachine.isTerminal(SaleDelivered) || !saleMachine.isTerminal(SaleCancelled) {
		t.Error("DELIVERED and CANCELLED must be terminal")
	}
	if saleMachine.isTerminal(SaleInProduction) {
		t.Error("IN_PRODUCTION must not be terminal")
	}
}

func TestPurchaseTransitionTable(t *testing.T) {
	allowed := []struct{ from, to PurchaseStatus }{
		{PurchasePending, PurchaseSent},
		{PurchasePending, PurchaseCancelled},
		{PurchaseSent, PurchasePartiallyReceived},
		{PurchaseSent, PurchaseFullyReceived}, // single full shipment
		{PurchaseSent, PurchaseCancelled},
		{PurchasePartiallyReceived, PurchasePartiallyReceived}, // repeat partials
		{PurchasePartiallyReceived, PurchaseFullyReceived},
		{PurchasePartiallyReceived, PurchaseCancelled},
	}
	for _, tr := range allowed {
		if !purchaseMachine.canTransition(tr.from, tr.to) {
			t.Errorf("%s → %s should be allowed", tr.from, tr.to)
		}
	}

	forbidden := []struct{ from, to PurchaseStatus }{
		{PurchasePending, PurchasePartiallyReceived},
		{PurchasePending, PurchaseFullyReceived},
		{PurchaseFullyReceived, PurchasePartiallyReceived},
		{PurchaseFullyReceived, PurchaseCancelled},
		{PurchaseCancelled, PurchaseSent},
	}
	for _, tr := range forbidden {
		if purchaseMachine.canTransition(tr.from, tr.to) {
			t.Errorf("%s → %s should be rejected", tr.from, tr.to)
		}
	}

	if !purchaseMachine.canEditLines(PurchasePending) {
		t.Error("lines must be editable in PENDING")
	}
	for _, s := range []PurchaseStatus{PurchaseSent, PurchasePartiallyReceived, PurchaseFullyReceived, PurchaseCancelled} {
		if purchaseMachine.canEditLines(s) {
			t.Errorf("lines must be frozen in %s", s)
		}
	}
}

func TestProductionTransitionTable(t *testing.T) {
	allowed := []struct{ from, to ProductionStatus }{
		{ProductionPending, ProductionInProgress},
		{ProductionPending, ProductionCancelled},
		{ProductionInProgress, ProductionCompleted},
		{ProductionInProgress, ProductionCancelled},
	}
	for _, tr := range allowed {
		if !productionMachine.canTransition(tr.from, tr.to) {
			t.Errorf("%s → %s should be allowed", tr.from, tr.to)
		}
	}

	forbidden := []struct{ from, to ProductionStatus }{
		{ProductionPending, ProductionCompleted},
		{ProductionCompleted, ProductionInProgress},
		{ProductionCompleted, ProductionCancelled},
		{ProductionCancelled, ProductionPending},
	}
	for _, tr := range forbidden {
		if productionMachine.canTransition(tr.from, tr.to) {
			t.Errorf("%s → %s should be rejected", tr.from, tr.to)
		}
	}
}
