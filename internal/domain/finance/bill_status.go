package finance

// BillType distinguishes money owed by the academy from money owed to it.
// It only affects grouping, never the state machine.
type BillType string

const (
	BillTypePayable    BillType = "PAYABLE"
	BillTypeReceivable BillType = "RECEIVABLE"
)

// IsValid checks if the type is a valid BillType
func (t BillType) IsValid() bool {
	return t == BillTypePayable || t == BillTypeReceivable
}

// String returns the string representation of BillType
func (t BillType) String() string {
	return string(t)
}

// BillStatus represents the lifecycle status of a bill
type BillStatus string

const (
	BillStatusPending         BillStatus = "PENDING"          // Initial state
	BillStatusOverdue         BillStatus = "OVERDUE"          // Past due, set by the sweep
	BillStatusAwaitingReceipt BillStatus = "AWAITING_RECEIPT" // Reported, funds not yet settled
	BillStatusPaid            BillStatus = "PAID"             // Terminal
	BillStatusCancelled       BillStatus = "CANCELLED"        // Terminal
)

// billTransitions lists the legal target states for each source state
var billTransitions = map[BillStatus][]BillStatus{
	BillStatusPending: {
		BillStatusOverdue,
		BillStatusAwaitingReceipt,
		BillStatusPaid,
		BillStatusCancelled,
	},
	BillStatusOverdue: {
		BillStatusPaid,
		BillStatusCancelled,
	},
	BillStatusAwaitingReceipt: {
		BillStatusPaid,
		BillStatusCancelled,
	},
	BillStatusPaid:      {},
	BillStatusCancelled: {},
}

// AllBillStatuses returns every status in lifecycle order
func AllBillStatuses() []BillStatus {
	return []BillStatus{
		BillStatusPending,
		BillStatusOverdue,
		BillStatusAwaitingReceipt,
		BillStatusPaid,
		BillStatusCancelled,
	}
}

// IsValid checks if the status is a valid BillStatus
func (s BillStatus) IsValid() bool {
	_, ok := billTransitions[s]
	return ok
}

// String returns the string representation of BillStatus
func (s BillStatus) String() string {
	return string(s)
}

// IsTerminal returns true for PAID and CANCELLED
func (s BillStatus) IsTerminal() bool {
	return s == BillStatusPaid || s == BillStatusCancelled
}

// CanApplyPayment returns true if a payment may be recorded in this status
func (s BillStatus) CanApplyPayment() bool {
	return s.CanTransitionTo(BillStatusPaid)
}

// CanTransitionTo reports whether s -> target is a legal transition
func (s BillStatus) CanTransitionTo(target BillStatus) bool {
	for _, allowed := range billTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}
