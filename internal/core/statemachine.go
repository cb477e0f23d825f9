package core

// machine is the shared transition-table shape behind the three order kinds.
// Each kind supplies its own status enum and tables; transitions not listed
// are rejected with ErrInvalidTransition by the owning service.
type machine[S comparable] struct {
	transitions map[S][]S
	terminal    map[S]bool
	editable    map[S]bool // states in which order lines may be changed
}

func (m machine[S]) canTransition(from, to S) bool {
	for _, next := range m.transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func (m machine[S]) isTerminal(s S) bool { return m.terminal[s] }

func (m machine[S]) canEditLines(s S) bool { return m.editable[s] }

var saleMachine = machine[SaleStatus]{
	transitions: map[SaleStatus][]SaleStatus{
		SalePending:      {SaleConfirmed, SaleCancelled},
		SaleConfirmed:    {SaleInProduction, SaleCancelled},
		SaleInProduction: {SaleDelivered, SaleCancelled},
	},
	terminal: map[SaleStatus]bool{
		SaleDelivered: true,
		SaleCancelled: true,
	},
	editable: map[SaleStatus]bool{
		SalePending:   true,
		SaleConfirmed: true,
	},
}

var purchaseMachine = machine[PurchaseStatus]{
	transitions: map[PurchaseStatus][]PurchaseStatus{
		PurchasePending: {PurchaseSent, PurchaseCancelled},
		PurchaseSent: {
			PurchasePartiallyReceived, PurchaseFullyReceived, PurchaseCancelled,
		},
		PurchasePartiallyReceived: {
			PurchasePartiallyReceived, PurchaseFullyReceived, PurchaseCancelled,
		},
	},
	terminal: map[PurchaseStatus]bool{
		PurchaseFullyReceived: true,
		PurchaseCancelled:     true,
	},
	editable: map[PurchaseStatus]bool{
		PurchasePending: true,
	},
}

var productionMachine = machine[ProductionStatus]{
	transitions: map[ProductionStatus][]ProductionStatus{
		ProductionPending:    {ProductionInProgress, ProductionCancelled},
		ProductionInProgress: {ProductionCompleted, ProductionCancelled},
	},
	terminal: map[ProductionStatus]bool{
		ProductionCompleted: true,
		ProductionCancelled: true,
	},
	editable: map[ProductionStatus]bool{
		ProductionPending: true,
	},
}
