package core_test

import (
	"context"
	"errors"
	"testing"

	"textile-backoffice/internal/core"
)

func seedParties(e *env) {
	e.registry.AddClient(core.PartyRef{ID: "c1", Name: "Tejidos Norte"})
	e.registry.AddSupplier(core.PartyRef{ID: "s1", Name: "Hilados del Sur"})
	e.registry.AddEmployee(core.PartyRef{ID: "e1", Name: "Marta"})
}

// ── Purchases ────────────────────────────────────────────────────────────────

func TestPurchaseOrder_PartialReceiptBooksMovement(t *testing.T) {
	e := newEnv(t)
	seedParties(e)
	ctx := context.Background()
	loc := e.location(t, "WH1")
	yarn := e.item(t, core.ItemMaterial, "YARN-01", "0")
	acc := e.account(t, yarn, loc)

	order, err := e.purchases.Create(ctx, "s1", []core.OrderLineInput{
		{ItemID: yarn.ID, Quantity: dec("100"), UnitPrice: dec("3.50")},
	}, "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if order.SupplierName != "Hilados del Sur" {
		t.Errorf("supplier name = %q", order.SupplierName)
	}
	if !order.Total.Equal(dec("350")) {
		t.Errorf("total = %s, want 350", order.Total)
	}

	if _, err := e.purchases.Transition(ctx, order.ID, core.PurchaseSent); err != nil {
		t.Fatalf("send: %v", err)
	}

	order, err = e.purchases.Receive(ctx, order.ID, loc.ID, []core.ReceivedLine{
		{LineID: order.Lines[0].ID, QtyReceived: dec("40")},
	})
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if order.Status != core.PurchasePartiallyReceived {
		t.Errorf("status = %s, want PARTIALLY_RECEIVED", order.Status)
	}
	if !order.Lines[0].ReceivedQty.Equal(dec("40")) {
		t.Errorf("received qty = %s, want 40", order.Lines[0].ReceivedQty)
	}
	if got := e.balance(t, acc); !got.Equal(dec("40")) {
		t.Errorf("balance = %s, want 40", got)
	}
	movs := e.movements(t, acc)
	if len(movs) != 1 || movs[0].Direction != core.DirectionIn || !movs[0].Quantity.Equal(dec("40")) {
		t.Errorf("movements = %+v, want one IN of 40", movs)
	}
	if movs[0].OrderRef == nil || *movs[0].OrderRef != order.ID {
		t.Errorf("movement order ref = %v, want %s", movs[0].OrderRef, order.ID)
	}
}

func TestPurchaseOrder_OverReceiptRejected(t *testing.T) {
	e := newEnv(t)
	seedParties(e)
	ctx := context.Background()
	loc := e.location(t, "WH1")
	yarn := e.item(t, core.ItemMaterial, "YARN-01", "0")
	acc := e.account(t, yarn, loc)

	order, _ := e.purchases.Create(ctx, "s1", []core.OrderLineInput{
		{ItemID: yarn.ID, Quantity: dec("100"), UnitPrice: dec("3.50")},
	}, "")
	if _, err := e.purchases.Transition(ctx, order.ID, core.PurchaseSent); err != nil {
		t.Fatalf("send: %v", err)
	}
	order, err := e.purchases.Receive(ctx, order.ID, loc.ID, []core.ReceivedLine{
		{LineID: order.Lines[0].ID, QtyReceived: dec("40")},
	})
	if err != nil {
		t.Fatalf("first receive: %v", err)
	}

	// 40 already in; 70 more would make 110 of 100 ordered.
	_, err = e.purchases.Receive(ctx, order.ID, loc.ID, []core.ReceivedLine{
		{LineID: order.Lines[0].ID, QtyReceived: dec("70")},
	})
	if !errors.Is(err, core.ErrOverReceipt) {
		t.Fatalf("err = %v, want ErrOverReceipt", err)
	}
	if got := e.balance(t, acc); !got.Equal(dec("40")) {
		t.Errorf("balance = %s, want 40 (unchanged)", got)
	}

	// Receiving exactly the remainder completes the order.
	order, err = e.purchases.Receive(ctx, order.ID, loc.ID, []core.ReceivedLine{
		{LineID: order.Lines[0].ID, QtyReceived: dec("60")},
	})
	if err != nil {
		t.Fatalf("final receive: %v", err)
	}
	if order.Status != core.PurchaseFullyReceived {
		t.Errorf("status = %s, want FULLY_RECEIVED", order.Status)
	}
	if got := e.balance(t, acc); !got.Equal(dec("100")) {
		t.Errorf("balance = %s, want 100", got)
	}

	// Terminal: no further receipts.
	if _, err := e.purchases.Receive(ctx, order.ID, loc.ID, []core.ReceivedLine{
		{LineID: order.Lines[0].ID, QtyReceived: dec("1")},
	}); !errors.Is(err, core.ErrInvalidTransition) {
		t.Errorf("receive on FULLY_RECEIVED err = %v, want ErrInvalidTransition", err)
	}
}

func TestPurchaseOrder_SingleFullShipment(t *testing.T) {
	e := newEnv(t)
	seedParties(e)
	ctx := context.Background()
	loc := e.location(t, "WH1")
	yarn := e.item(t, core.ItemMaterial, "YARN-01", "0")
	e.account(t, yarn, loc)

	order, _ := e.purchases.Create(ctx, "s1", []core.OrderLineInput{
		{ItemID: yarn.ID, Quantity: dec("50"), UnitPrice: dec("2")},
	}, "")
	if _, err := e.purchases.Transition(ctx, order.ID, core.PurchaseSent); err != nil {
		t.Fatalf("send: %v", err)
	}
	order, err := e.purchases.Receive(ctx, order.ID, loc.ID, []core.ReceivedLine{
		{LineID: order.Lines[0].ID, QtyReceived: dec("50")},
	})
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if order.Status != core.PurchaseFullyReceived {
		t.Errorf("status = %s, want FULLY_RECEIVED after one full shipment", order.Status)
	}
}

// ── Production ───────────────────────────────────────────────────────────────

func productionFixture(t *testing.T, e *env, materialStock string) (loc *core.StockLocation, matAcc, finAcc *core.StockAccount, order *core.ProductionOrder) {
	t.Helper()
	ctx := context.Background()
	loc = e.location(t, "PLANT")
	yarn := e.item(t, core.ItemMaterial, "YARN-01", "10")
	shirt := e.item(t, core.ItemFinishedGood, "SHIRT-01", "0")
	matAcc = e.account(t, yarn, loc)
	finAcc = e.account(t, shirt, loc)
	e.seed(t, matAcc, materialStock)

	if _, err := e.bom.AddLine(ctx, shirt.ID, yarn.ID, dec("2")); err != nil {
		t.Fatalf("bom line: %v", err)
	}

	order, err := e.production.Create(ctx, loc.ID, []core.OrderLineInput{
		{ItemID: shirt.ID, Quantity: dec("10")},
	}, "")
	if err != nil {
		t.Fatalf("create production order: %v", err)
	}
	if _, err := e.production.Transition(ctx, order.ID, core.ProductionInProgress); err != nil {
		t.Fatalf("start: %v", err)
	}
	return loc, matAcc, finAcc, order
}

func TestProductionOrder_CompletionFailsOnInsufficientStock(t *testing.T) {
	e := newEnv(t)
	seedParties(e)
	ctx := context.Background()
	// 10 units × 2 per unit = 20 needed, only 15 on hand.
	_, matAcc, finAcc, order := productionFixture(t, e, "15")

	_, err := e.production.Transition(ctx, order.ID, core.ProductionCompleted)
	if !errors.Is(err, core.ErrInsufficientStock) {
		t.Fatalf("err = %v, want ErrInsufficientStock", err)
	}
	if got := e.balance(t, matAcc); !got.Equal(dec("15")) {
		t.Errorf("material balance = %s, want 15", got)
	}
	if got := e.balance(t, finAcc); !got.Equal(dec("0")) {
		t.Errorf("finished balance = %s, want 0", got)
	}
	if movs := e.movements(t, finAcc); len(movs) != 0 {
		t.Errorf("finished movements = %d, want 0", len(movs))
	}

	// The failed completion leaves the order where it was.
	reread, _ := e.production.Get(ctx, order.ID)
	if reread.Status != core.ProductionInProgress {
		t.Errorf("status = %s, want IN_PROGRESS", reread.Status)
	}
}

func TestProductionOrder_CompletionConsumesAndProduces(t *testing.T) {
	e := newEnv(t)
	seedParties(e)
	ctx := context.Background()
	_, matAcc, finAcc, order := productionFixture(t, e, "25")

	order, err := e.production.Transition(ctx, order.ID, core.ProductionCompleted)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if order.Status != core.ProductionCompleted {
		t.Errorf("status = %s, want COMPLETED", order.Status)
	}
	if got := e.balance(t, matAcc); !got.Equal(dec("5")) {
		t.Errorf("material balance = %s, want 5", got)
	}
	if got := e.balance(t, finAcc); !got.Equal(dec("10")) {
		t.Errorf("finished balance = %s, want 10", got)
	}

	// Material dropped below its threshold of 10 → alert raised.
	alerts, err := e.alerts.List(ctx, nil)
	if err != nil {
		t.Fatalf("list alerts: %v", err)
	}
	if len(alerts) != 1 {
		t.Fatalf("alerts = %d, want 1", len(alerts))
	}
	if alerts[0].ItemID != matAcc.ItemID {
		t.Errorf("alert item = %s, want the material", alerts[0].ItemID)
	}
}

func TestProductionOrder_EmptyBOMMeansNoConsumption(t *testing.T) {
	e := newEnv(t)
	seedParties(e)
	ctx := context.Background()
	loc := e.location(t, "PLANT")
	scarf := e.item(t, core.ItemFinishedGood, "SCARF-01", "0")
	finAcc := e.account(t, scarf, loc)

	order, err := e.production.Create(ctx, loc.ID, []core.OrderLineInput{
		{ItemID: scarf.ID, Quantity: dec("5")},
	}, "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := e.production.Transition(ctx, order.ID, core.ProductionInProgress); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := e.production.Transition(ctx, order.ID, core.ProductionCompleted); err != nil {
		t.Fatalf("complete with empty BOM: %v", err)
	}
	if got := e.balance(t, finAcc); !got.Equal(dec("5")) {
		t.Errorf("finished balance = %s, want 5", got)
	}
}

func TestProductionOrder_CancelCascadesToOpenTasks(t *testing.T) {
	e := newEnv(t)
	seedParties(e)
	ctx := context.Background()
	loc := e.location(t, "PLANT")
	shirt := e.item(t, core.ItemFinishedGood, "SHIRT-01", "0")
	e.account(t, shirt, loc)

	order, err := e.production.Create(ctx, loc.ID, []core.OrderLineInput{
		{ItemID: shirt.ID, Quantity: dec("10")},
	}, "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	emp := "e1"
	order, err = e.production.AddTask(ctx, order.ID, core.TaskInput{Name: "cut", EmployeeID: &emp, EstimatedMins: 90})
	if err != nil {
		t.Fatalf("add task: %v", err)
	}
	order, err = e.production.AddTask(ctx, order.ID, core.TaskInput{Name: "sew", EstimatedMins: 120})
	if err != nil {
		t.Fatalf("add second task: %v", err)
	}

	done := core.TaskDone
	mins := 85
	order, err = e.production.UpdateTask(ctx, order.ID, order.Tasks[0].ID, core.TaskUpdate{Status: &done, ActualMins: &mins})
	if err != nil {
		t.Fatalf("finish task: %v", err)
	}

	order, err = e.production.Transition(ctx, order.ID, core.ProductionCancelled)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if order.Tasks[0].Status != core.TaskDone {
		t.Errorf("finished task became %s, want DONE kept", order.Tasks[0].Status)
	}
	if order.Tasks[1].Status != core.TaskCancelled {
		t.Errorf("open task = %s, want CANCELLED", order.Tasks[1].Status)
	}

	// No task work on a terminal order.
	if _, err := e.production.AddTask(ctx, order.ID, core.TaskInput{Name: "pack"}); !errors.Is(err, core.ErrInvalidTransition) {
		t.Errorf("add task on cancelled err = %v, want ErrInvalidTransition", err)
	}
}

// ── Sales ────────────────────────────────────────────────────────────────────

func deliveredSale(t *testing.T, e *env) (*core.SaleOrder, *core.StockAccount) {
	t.Helper()
	ctx := context.Background()
	loc := e.location(t, "SHOP")
	shirt := e.item(t, core.ItemFinishedGood, "SHIRT-01", "0")
	acc := e.account(t, shirt, loc)
	e.seed(t, acc, "20")

	order, err := e.sales.Create(ctx, "c1", []core.OrderLineInput{
		{ItemID: shirt.ID, Quantity: dec("8"), UnitPrice: dec("45")},
	}, "")
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}
	for _, next := range []core.SaleStatus{core.SaleConfirmed, core.SaleInProduction} {
		if order, err = e.sales.Transition(ctx, order.ID, next, core.SaleTransitionOptions{}); err != nil {
			t.Fatalf("transition to %s: %v", next, err)
		}
	}
	order, err = e.sales.Transition(ctx, order.ID, core.SaleDelivered, core.SaleTransitionOptions{LocationID: loc.ID})
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}
	return order, acc
}

func TestSaleOrder_DeliveryIssuesStock(t *testing.T) {
	e := newEnv(t)
	seedParties(e)
	order, acc := deliveredSale(t, e)

	if order.Status != core.SaleDelivered {
		t.Errorf("status = %s, want DELIVERED", order.Status)
	}
	if got := e.balance(t, acc); !got.Equal(dec("12")) {
		t.Errorf("balance = %s, want 12", got)
	}
	movs := e.movements(t, acc)
	if movs[0].Direction != core.DirectionOut || !movs[0].Quantity.Equal(dec("8")) {
		t.Errorf("latest movement = %+v, want OUT of 8", movs[0])
	}
}

func TestSaleOrder_LinesFrozenAfterConfirmedStates(t *testing.T) {
	e := newEnv(t)
	seedParties(e)
	ctx := context.Background()
	order, _ := deliveredSale(t, e)

	line := order.Lines[0]
	if _, err := e.sales.AddLine(ctx, order.ID, core.OrderLineInput{ItemID: line.ItemID, Quantity: dec("1"), UnitPrice: dec("45")}); !errors.Is(err, core.ErrInvalidTransition) {
		t.Errorf("add line on DELIVERED err = %v, want ErrInvalidTransition", err)
	}
	if _, err := e.sales.UpdateLine(ctx, order.ID, line.ID, core.OrderLineInput{ItemID: line.ItemID, Quantity: dec("2"), UnitPrice: dec("45")}); !errors.Is(err, core.ErrInvalidTransition) {
		t.Errorf("update line on DELIVERED err = %v, want ErrInvalidTransition", err)
	}
	if _, err := e.sales.RemoveLine(ctx, order.ID, line.ID); !errors.Is(err, core.ErrInvalidTransition) {
		t.Errorf("remove line on DELIVERED err = %v, want ErrInvalidTransition", err)
	}
}

func TestSaleOrder_PaymentOnlyWhenDelivered(t *testing.T) {
	e := newEnv(t)
	seedParties(e)
	ctx := context.Background()
	loc := e.location(t, "SHOP")
	shirt := e.item(t, core.ItemFinishedGood, "SHIRT-01", "0")
	e.account(t, shirt, loc)

	order, err := e.sales.Create(ctx, "c1", []core.OrderLineInput{
		{ItemID: shirt.ID, Quantity: dec("2"), UnitPrice: dec("45")},
	}, "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := e.sales.RecordPayment(ctx, order.ID, dec("90"), "transfer", "inv-1"); !errors.Is(err, core.ErrInvalidTransition) {
		t.Errorf("payment on PENDING err = %v, want ErrInvalidTransition", err)
	}
}

func TestSaleOrder_PaymentRecordedOnDelivered(t *testing.T) {
	e := newEnv(t)
	seedParties(e)
	ctx := context.Background()
	order, _ := deliveredSale(t, e)

	order, err := e.sales.RecordPayment(ctx, order.ID, dec("200"), "transfer", "inv-9")
	if err != nil {
		t.Fatalf("payment: %v", err)
	}
	if len(order.Payments) != 1 || !order.Payments[0].Amount.Equal(dec("200")) {
		t.Errorf("payments = %+v, want one of 200", order.Payments)
	}

	if _, err := e.sales.RecordPayment(ctx, order.ID, dec("0"), "cash", ""); !errors.Is(err, core.ErrInvalidQuantity) {
		t.Errorf("zero payment err = %v, want ErrInvalidQuantity", err)
	}
}

func TestSaleOrder_UnknownClientRejected(t *testing.T) {
	e := newEnv(t)
	seedParties(e)
	ctx := context.Background()
	shirt := e.item(t, core.ItemFinishedGood, "SHIRT-01", "0")

	_, err := e.sales.Create(ctx, "ghost", []core.OrderLineInput{
		{ItemID: shirt.ID, Quantity: dec("1"), UnitPrice: dec("45")},
	}, "")
	if !errors.Is(err, core.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
