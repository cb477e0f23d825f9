package core

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// keyedLocks hands out one mutex per string key. The inventory uses it to
// serialize movement recording and balance reads per stock account; the order
// services use it to serialize mutations per order. Distinct keys proceed
// fully in parallel.
type keyedLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedLocks() *keyedLocks {
	return &keyedLocks{locks: make(map[string]*sync.Mutex)}
}

func (a *keyedLocks) lockFor(accountID string) *sync.Mutex {
	a.mu.Lock()
	defer a.mu.Unlock()
	l, ok := a.locks[accountID]
	if !ok {
		l = &sync.Mutex{}
		a.locks[accountID] = l
	}
	return l
}

// lockAll acquires the locks for the given account IDs in sorted order so
// that overlapping multi-account commits cannot deadlock. It returns the
// unlock function.
func (a *keyedLocks) lockAll(accountIDs []string) func() {
	ids := make([]string, 0, len(accountIDs))
	seen := make(map[string]bool, len(accountIDs))
	for _, id := range accountIDs {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	held := make([]*sync.Mutex, 0, len(ids))
	for _, id := range ids {
		l := a.lockFor(id)
		l.Lock()
		held = append(held, l)
	}
	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}
}

// Inventory owns the two stock ledgers, the per-account lock manager, and the
// alert evaluator hook. Both ledgers share one store so a single commit can
// span material and finished-goods accounts.
type Inventory struct {
	store     Store
	locks     *keyedLocks
	alerts    *StockAlertEvaluator
	materials *Ledger
	finished  *Ledger
}

// NewInventory wires the two ledger instances. alerts may be nil in tests
// that do not care about alerting.
func NewInventory(store Store, alerts *StockAlertEvaluator) *Inventory {
	inv := &Inventory{store: store, locks: newKeyedLocks(), alerts: alerts}
	inv.materials = &Ledger{inv: inv, name: LedgerMaterials, places: 3}
	inv.finished = &Ledger{inv: inv, name: LedgerFinished, places: 0}
	return inv
}

// Materials is the raw-material ledger: decimal quantities, 3 fractional
// digits.
func (inv *Inventory) Materials() *Ledger { return inv.materials }

// Finished is the finished-goods ledger: whole units only.
func (inv *Inventory) Finished() *Ledger { return inv.finished }

// LedgerFor returns the ledger instance an item kind belongs to.
func (inv *Inventory) LedgerFor(kind ItemKind) *Ledger {
	if kind == ItemFinishedGood {
		return inv.finished
	}
	return inv.materials
}

// LedgerNamed returns the ledger instance with the given identity.
func (inv *Inventory) LedgerNamed(name LedgerName) *Ledger {
	if name == LedgerFinished {
		return inv.finished
	}
	return inv.materials
}

// Page bounds a history read.
type Page struct {
	Limit  int
	Offset int
}

// Ledger is one of the two append-only movement ledgers. The two instances
// share the contract but are distinct: quantities valid on one are not
// implicitly valid on the other.
type Ledger struct {
	inv    *Inventory
	name   LedgerName
	places int32
}

// Name returns the ledger identity.
func (l *Ledger) Name() LedgerName { return l.name }

// checkQuantity rejects non-positive quantities and quantities with more
// fractional digits than this ledger carries.
func (l *Ledger) checkQuantity(qty decimal.Decimal) error {
	if !qty.IsPositive() {
		return fmt.Errorf("quantity must be > 0, got %s: %w", qty, ErrInvalidQuantity)
	}
	if !qty.Equal(qty.Truncate(l.places)) {
		return fmt.Errorf("%s ledger allows %d fractional digits, got %s: %w",
			l.name, l.places, qty, ErrInvalidQuantity)
	}
	return nil
}

// RecordMovement appends a single movement and updates the cached balance in
// one critical section for the account. OUT movements that would drive the
// balance negative are rejected with ErrInsufficientStock and leave the
// balance unchanged.
func (l *Ledger) RecordMovement(ctx context.Context, accountID string, dir Direction,
	qty decimal.Decimal, reason string, orderRef *string) (*Movement, error) {

	b := l.inv.NewBatch()
	b.Add(l, accountID, dir, qty, reason, orderRef)
	movs, err := b.Commit(ctx)
	if err != nil {
		return nil, err
	}
	return &movs[0], nil
}

// CurrentBalance returns the cached balance, serialized against writers for
// the same account.
func (l *Ledger) CurrentBalance(ctx context.Context, accountID string) (decimal.Decimal, error) {
	lock := l.inv.locks.lockFor(accountID)
	lock.Lock()
	defer lock.Unlock()

	acc, err := l.account(ctx, accountID)
	if err != nil {
		return decimal.Zero, err
	}
	return acc.Balance, nil
}

// History returns movements for the account, newest first. Zero or negative
// limit falls back to a sane page size.
func (l *Ledger) History(ctx context.Context, accountID string, page Page) ([]Movement, error) {
	if _, err := l.account(ctx, accountID); err != nil {
		return nil, err
	}
	if page.Limit <= 0 {
		page.Limit = 50
	}
	if page.Offset < 0 {
		page.Offset = 0
	}
	return l.inv.store.Movements(ctx, accountID, page.Limit, page.Offset)
}

// Reconcile recomputes the balance from the full movement history and checks
// it against the cache. The recomputed value is returned; a mismatch is
// reported as an error because it means the materialized cache drifted from
// the source of truth.
func (l *Ledger) Reconcile(ctx context.Context, accountID string) (decimal.Decimal, error) {
	lock := l.inv.locks.lockFor(accountID)
	lock.Lock()
	defer lock.Unlock()

	acc, err := l.account(ctx, accountID)
	if err != nil {
		return decimal.Zero, err
	}
	sum, err := l.inv.store.SumMovements(ctx, accountID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum movements for account %s: %w", accountID, err)
	}
	if !sum.Equal(acc.Balance) {
		return sum, fmt.Errorf("account %s: cached balance %s != ledger sum %s",
			accountID, acc.Balance, sum)
	}
	return sum, nil
}

// account loads the account and verifies it belongs to this ledger.
func (l *Ledger) account(ctx context.Context, accountID string) (*StockAccount, error) {
	acc, err := l.inv.store.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if acc.Ledger != l.name {
		return nil, fmt.Errorf("account %s is not on the %s ledger: %w", accountID, l.name, ErrNotFound)
	}
	return acc, nil
}

// ── Batched multi-account commits ────────────────────────────────────────────

type batchEntry struct {
	ledger   *Ledger
	account  string
	dir      Direction
	qty      decimal.Decimal
	reason   string
	orderRef *string
}

// MovementBatch stages movements across any number of accounts on either
// ledger and commits them all-or-nothing: every staged OUT is validated for
// sufficiency before anything is written. An order aggregate can ride along
// in the same atomic commit.
type MovementBatch struct {
	inv     *Inventory
	entries []batchEntry
	commit  Commit
}

// NewBatch starts an empty batch.
func (inv *Inventory) NewBatch() *MovementBatch {
	return &MovementBatch{inv: inv}
}

// Add stages one movement against the given ledger.
func (b *MovementBatch) Add(l *Ledger, accountID string, dir Direction,
	qty decimal.Decimal, reason string, orderRef *string) *MovementBatch {
	b.entries = append(b.entries, batchEntry{
		ledger: l, account: accountID, dir: dir, qty: qty, reason: reason, orderRef: orderRef,
	})
	return b
}

// In stages an inbound movement.
func (b *MovementBatch) In(l *Ledger, accountID string, qty decimal.Decimal, reason string, orderRef *string) *MovementBatch {
	return b.Add(l, accountID, DirectionIn, qty, reason, orderRef)
}

// Out stages an outbound movement.
func (b *MovementBatch) Out(l *Ledger, accountID string, qty decimal.Decimal, reason string, orderRef *string) *MovementBatch {
	return b.Add(l, accountID, DirectionOut, qty, reason, orderRef)
}

// AttachSale includes a sale order upsert in the commit.
func (b *MovementBatch) AttachSale(o *SaleOrder) *MovementBatch {
	b.commit.Sale = o
	return b
}

// AttachPurchase includes a purchase order upsert in the commit.
func (b *MovementBatch) AttachPurchase(o *PurchaseOrder) *MovementBatch {
	b.commit.Purchase = o
	return b
}

// AttachProduction includes a production order upsert in the commit.
func (b *MovementBatch) AttachProduction(o *ProductionOrder) *MovementBatch {
	b.commit.Production = o
	return b
}

// Commit validates every staged movement, locks the touched accounts in
// deterministic order, re-checks sufficiency under the locks, and applies the
// whole batch atomically. On any failure nothing is written. After a
// successful apply every touched account is re-evaluated for stock alerts
// before the commit is considered settled.
func (b *MovementBatch) Commit(ctx context.Context) ([]Movement, error) {
	if len(b.entries) == 0 {
		if b.commit.Empty() {
			return nil, nil
		}
		if err := b.inv.store.Apply(ctx, b.commit); err != nil {
			return nil, err
		}
		return nil, nil
	}

	// Structural validation before taking any lock.
	accountIDs := make([]string, 0, len(b.entries))
	for _, e := range b.entries {
		if err := e.ledger.checkQuantity(e.qty); err != nil {
			return nil, err
		}
		accountIDs = append(accountIDs, e.account)
	}

	unlock := b.inv.locks.lockAll(accountIDs)
	defer unlock()

	// Load authoritative balances under the locks.
	balances := make(map[string]decimal.Decimal, len(accountIDs))
	for _, e := range b.entries {
		if _, ok := balances[e.account]; ok {
			continue
		}
		acc, err := e.ledger.account(ctx, e.account)
		if err != nil {
			return nil, err
		}
		balances[e.account] = acc.Balance
	}

	// Replay the staged movements against the balances; any OUT below zero
	// fails the whole batch.
	now := time.Now().UTC()
	movements := make([]Movement, 0, len(b.entries))
	for _, e := range b.entries {
		next := balances[e.account].Add(signedQty(e.dir, e.qty))
		if next.IsNegative() {
			return nil, fmt.Errorf(
				"account %s: OUT of %s exceeds balance %s: %w",
				e.account, e.qty, balances[e.account], ErrInsufficientStock)
		}
		balances[e.account] = next
		movements = append(movements, Movement{
			ID:        uuid.NewString(),
			AccountID: e.account,
			Ledger:    e.ledger.name,
			Direction: e.dir,
			Quantity:  e.qty,
			Reason:    e.reason,
			OrderRef:  e.orderRef,
			CreatedAt: now,
		})
	}

	commit := b.commit
	commit.Movements = movements
	for accountID, balance := range balances {
		commit.Balances = append(commit.Balances, BalanceUpdate{AccountID: accountID, Balance: balance})
	}
	sort.Slice(commit.Balances, func(i, j int) bool {
		return commit.Balances[i].AccountID < commit.Balances[j].AccountID
	})

	if err := b.inv.store.Apply(ctx, commit); err != nil {
		return nil, fmt.Errorf("apply movement batch: %w", err)
	}

	// Alert evaluation is part of settling the movement. Failures here do not
	// undo committed movements; they are logged and the sweep picks them up.
	if b.inv.alerts != nil {
		for accountID := range balances {
			if err := b.inv.alerts.Evaluate(ctx, accountID); err != nil {
				log.Printf("alert evaluation for account %s: %v", accountID, err)
			}
		}
	}

	return movements, nil
}

func signedQty(dir Direction, qty decimal.Decimal) decimal.Decimal {
	if dir == DirectionOut {
		return qty.Neg()
	}
	return qty
}
