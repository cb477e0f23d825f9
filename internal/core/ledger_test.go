package core_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"textile-backoffice/internal/core"
)

func TestLedger_RecordMovementUpdatesBalance(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	yarn := e.item(t, core.ItemMaterial, "YARN-01", "0")
	acc := e.account(t, yarn, e.location(t, "WH1"))

	if _, err := e.inv.Materials().RecordMovement(ctx, acc.ID, core.DirectionIn, dec("10.500"), "delivery", nil); err != nil {
		t.Fatalf("IN: %v", err)
	}
	if _, err := e.inv.Materials().RecordMovement(ctx, acc.ID, core.DirectionOut, dec("2.500"), "cutting", nil); err != nil {
		t.Fatalf("OUT: %v", err)
	}

	if got := e.balance(t, acc); !got.Equal(dec("8")) {
		t.Errorf("balance = %s, want 8", got)
	}

	movs := e.movements(t, acc)
	if len(movs) != 2 {
		t.Fatalf("history length = %d, want 2", len(movs))
	}
	// Newest first.
	if movs[0].Direction != core.DirectionOut || movs[1].Direction != core.DirectionIn {
		t.Errorf("history order = %s, %s; want OUT, IN", movs[0].Direction, movs[1].Direction)
	}

	sum, err := e.inv.Materials().Reconcile(ctx, acc.ID)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if !sum.Equal(dec("8")) {
		t.Errorf("reconciled sum = %s, want 8", sum)
	}
}

func TestLedger_QuantityValidation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	loc := e.location(t, "WH1")
	yarn := e.item(t, core.ItemMaterial, "YARN-01", "0")
	shirt := e.item(t, core.ItemFinishedGood, "SHIRT-01", "0")
	matAcc := e.account(t, yarn, loc)
	finAcc := e.account(t, shirt, loc)

	tests := []struct {
		name   string
		ledger *core.Ledger
		accID  string
		qty    string
	}{
		{"zero", e.inv.Materials(), matAcc.ID, "0"},
		{"negative", e.inv.Materials(), matAcc.ID, "-1"},
		{"materials reject 4 fractional digits", e.inv.Materials(), matAcc.ID, "1.0001"},
		{"finished goods reject fractions", e.inv.Finished(), finAcc.ID, "1.5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.ledger.RecordMovement(ctx, tt.accID, core.DirectionIn, dec(tt.qty), "test", nil)
			if !errors.Is(err, core.ErrInvalidQuantity) {
				t.Errorf("err = %v, want ErrInvalidQuantity", err)
			}
		})
	}

	// Three fractional digits are fine on the material ledger.
	if _, err := e.inv.Materials().RecordMovement(ctx, matAcc.ID, core.DirectionIn, dec("0.125"), "test", nil); err != nil {
		t.Errorf("3 fractional digits on materials: %v", err)
	}
}

func TestLedger_InsufficientStock(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	yarn := e.item(t, core.ItemMaterial, "YARN-01", "0")
	acc := e.account(t, yarn, e.location(t, "WH1"))
	e.seed(t, acc, "3")

	_, err := e.inv.Materials().RecordMovement(ctx, acc.ID, core.DirectionOut, dec("5"), "cutting", nil)
	if !errors.Is(err, core.ErrInsufficientStock) {
		t.Fatalf("err = %v, want ErrInsufficientStock", err)
	}
	if got := e.balance(t, acc); !got.Equal(dec("3")) {
		t.Errorf("balance = %s, want 3 (unchanged)", got)
	}
	if movs := e.movements(t, acc); len(movs) != 1 {
		t.Errorf("history length = %d, want 1 (failed OUT not recorded)", len(movs))
	}
}

func TestLedger_AccountMembership(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	loc := e.location(t, "WH1")
	shirt := e.item(t, core.ItemFinishedGood, "SHIRT-01", "0")
	finAcc := e.account(t, shirt, loc)

	// A finished-goods account is invisible to the material ledger.
	if _, err := e.inv.Materials().CurrentBalance(ctx, finAcc.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("cross-ledger balance err = %v, want ErrNotFound", err)
	}
	if _, err := e.inv.Materials().CurrentBalance(ctx, "no-such-account"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("unknown account err = %v, want ErrNotFound", err)
	}
}

func TestMovementBatch_AllOrNothing(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	loc := e.location(t, "WH1")
	yarn := e.item(t, core.ItemMaterial, "YARN-01", "0")
	dye := e.item(t, core.ItemMaterial, "DYE-01", "0")
	yarnAcc := e.account(t, yarn, loc)
	dyeAcc := e.account(t, dye, loc)
	e.seed(t, yarnAcc, "10")
	e.seed(t, dyeAcc, "2")

	// The dye OUT cannot be covered, so the yarn OUT must not land either.
	batch := e.inv.NewBatch()
	batch.Out(e.inv.Materials(), yarnAcc.ID, dec("5"), "dyeing", nil)
	batch.Out(e.inv.Materials(), dyeAcc.ID, dec("3"), "dyeing", nil)
	if _, err := batch.Commit(ctx); !errors.Is(err, core.ErrInsufficientStock) {
		t.Fatalf("commit err = %v, want ErrInsufficientStock", err)
	}

	if got := e.balance(t, yarnAcc); !got.Equal(dec("10")) {
		t.Errorf("yarn balance = %s, want 10", got)
	}
	if got := e.balance(t, dyeAcc); !got.Equal(dec("2")) {
		t.Errorf("dye balance = %s, want 2", got)
	}
}

func TestLedger_ConcurrentMovementsKeepBalanceConsistent(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	yarn := e.item(t, core.ItemMaterial, "YARN-01", "0")
	acc := e.account(t, yarn, e.location(t, "WH1"))
	e.seed(t, acc, "100")

	const workers = 20
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(in bool) {
			defer wg.Done()
			dir := core.DirectionIn
			if !in {
				dir = core.DirectionOut
			}
			if _, err := e.inv.Materials().RecordMovement(ctx, acc.ID, dir, dec("1"), "concurrent", nil); err != nil {
				t.Errorf("movement: %v", err)
			}
		}(i%2 == 0)
	}
	wg.Wait()

	// 10 IN and 10 OUT of 1 each cancel out.
	if got := e.balance(t, acc); !got.Equal(dec("100")) {
		t.Errorf("balance = %s, want 100", got)
	}
	if _, err := e.inv.Materials().Reconcile(ctx, acc.ID); err != nil {
		t.Errorf("reconcile after concurrency: %v", err)
	}
}
