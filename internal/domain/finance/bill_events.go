package finance

import (
	"time"

	"github.com/academy/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Bill event types
const (
	EventTypeBillCreated         = "BillCreated"
	EventTypeBillUpdated         = "BillUpdated"
	EventTypeBillPaid            = "BillPaid"
	EventTypeBillAwaitingReceipt = "BillAwaitingReceipt"
	EventTypeBillCancelled       = "BillCancelled"
	EventTypeBillOverdue         = "BillOverdue"
	EventTypeBillDeleted         = "BillDeleted"
	EventTypeBillChainRepaired   = "BillChainRepaired"
)

// BillEventTypes returns every event type a bill can raise
func BillEventTypes() []string {
	return []string{
		EventTypeBillCreated,
		EventTypeBillUpdated,
		EventTypeBillPaid,
		EventTypeBillAwaitingReceipt,
		EventTypeBillCancelled,
		EventTypeBillOverdue,
		EventTypeBillDeleted,
		EventTypeBillChainRepaired,
	}
}

// BillCreatedEvent is raised for every bill materialized from a template
type BillCreatedEvent struct {
	shared.EventEnvelope
	BillID            uuid.UUID       `json:"bill_id"`
	Type              BillType        `json:"type"`
	Amount            decimal.Decimal `json:"amount"`
	DueDate           time.Time       `json:"due_date"`
	InstallmentNumber int             `json:"installment_number"`
	Installments      int             `json:"installments"`
	ParentID          *uuid.UUID      `json:"parent_id,omitempty"`
}

// NewBillCreatedEvent creates a new BillCreatedEvent
func NewBillCreatedEvent(b *Bill, at time.Time) *BillCreatedEvent {
	return &BillCreatedEvent{
		EventEnvelope:   shared.NewEventEnvelope(EventTypeBillCreated, AggregateTypeBill, b.ID, b.TenantID, at),
		BillID:            b.ID,
		Type:              b.Type,
		Amount:            b.Amount,
		DueDate:           b.DueDate,
		InstallmentNumber: b.InstallmentNumber,
		Installments:      b.Installments,
		ParentID:          b.ParentID,
	}
}

// BillUpdatedEvent is raised when editable fields of a bill change
type BillUpdatedEvent struct {
	shared.EventEnvelope
	BillID  uuid.UUID       `json:"bill_id"`
	Amount  decimal.Decimal `json:"amount"`
	DueDate time.Time       `json:"due_date"`
	Status  BillStatus      `json:"status"`
}

// NewBillUpdatedEvent creates a new BillUpdatedEvent
func NewBillUpdatedEvent(b *Bill, at time.Time) *BillUpdatedEvent {
	return &BillUpdatedEvent{
		EventEnvelope: shared.NewEventEnvelope(EventTypeBillUpdated, AggregateTypeBill, b.ID, b.TenantID, at),
		BillID:          b.ID,
		Amount:          b.Amount,
		DueDate:         b.DueDate,
		Status:          b.Status,
	}
}

// BillPaidEvent is raised when a bill is settled
type BillPaidEvent struct {
	shared.EventEnvelope
	BillID         uuid.UUID       `json:"bill_id"`
	PreviousStatus BillStatus      `json:"previous_status"`
	Amount         decimal.Decimal `json:"amount"`
	AmountPaid     decimal.Decimal `json:"amount_paid"`
	PaymentDate    time.Time       `json:"payment_date"`
	BankID         *uuid.UUID      `json:"bank_id,omitempty"`
	SaleID         *uuid.UUID      `json:"sale_id,omitempty"`
}

// IsPartial reports a payment below the billed amount
func (e *BillPaidEvent) IsPartial() bool {
	return e.AmountPaid.LessThan(e.Amount)
}

// NewBillPaidEvent creates a new BillPaidEvent
func NewBillPaidEvent(b *Bill, previous BillStatus, at time.Time) *BillPaidEvent {
	e := &BillPaidEvent{
		EventEnvelope: shared.NewEventEnvelope(EventTypeBillPaid, AggregateTypeBill, b.ID, b.TenantID, at),
		BillID:          b.ID,
		PreviousStatus:  previous,
		Amount:          b.Amount,
		BankID:          b.BankID,
		SaleID:          b.SaleID,
	}
	if b.AmountPaid != nil {
		e.AmountPaid = *b.AmountPaid
	}
	if b.PaymentDate != nil {
		e.PaymentDate = *b.PaymentDate
	}
	return e
}

// BillAwaitingReceiptEvent is raised when collected funds are pending settlement
type BillAwaitingReceiptEvent struct {
	shared.EventEnvelope
	BillID              uuid.UUID       `json:"bill_id"`
	FormsOfReceiptID    uuid.UUID       `json:"forms_of_receipt_id"`
	ExpectedReceiptDate time.Time       `json:"expected_receipt_date"`
	FeeAmount           decimal.Decimal `json:"fee_amount"`
}

// NewBillAwaitingReceiptEvent creates a new BillAwaitingReceiptEvent
func NewBillAwaitingReceiptEvent(b *Bill, at time.Time) *BillAwaitingReceiptEvent {
	e := &BillAwaitingReceiptEvent{
		EventEnvelope: shared.NewEventEnvelope(EventTypeBillAwaitingReceipt, AggregateTypeBill, b.ID, b.TenantID, at),
		BillID:          b.ID,
	}
	if b.FormsOfReceiptID != nil {
		e.FormsOfReceiptID = *b.FormsOfReceiptID
	}
	if b.ExpectedReceiptDate != nil {
		e.ExpectedReceiptDate = *b.ExpectedReceiptDate
	}
	if b.FeeAmount != nil {
		e.FeeAmount = *b.FeeAmount
	}
	return e
}

// BillCancelledEvent is raised when a bill is cancelled
type BillCancelledEvent struct {
	shared.EventEnvelope
	BillID         uuid.UUID  `json:"bill_id"`
	PreviousStatus BillStatus `json:"previous_status"`
	Reason         string     `json:"reason"`
}

// NewBillCancelledEvent creates a new BillCancelledEvent
func NewBillCancelledEvent(b *Bill, previous BillStatus, at time.Time) *BillCancelledEvent {
	return &BillCancelledEvent{
		EventEnvelope: shared.NewEventEnvelope(EventTypeBillCancelled, AggregateTypeBill, b.ID, b.TenantID, at),
		BillID:          b.ID,
		PreviousStatus:  previous,
		Reason:          b.CancelReason,
	}
}

// BillOverdueEvent is raised by the overdue sweep
type BillOverdueEvent struct {
	shared.EventEnvelope
	BillID  uuid.UUID `json:"bill_id"`
	DueDate time.Time `json:"due_date"`
}

// NewBillOverdueEvent creates a new BillOverdueEvent
func NewBillOverdueEvent(b *Bill, at time.Time) *BillOverdueEvent {
	return &BillOverdueEvent{
		EventEnvelope: shared.NewEventEnvelope(EventTypeBillOverdue, AggregateTypeBill, b.ID, b.TenantID, at),
		BillID:          b.ID,
		DueDate:         b.DueDate,
	}
}

// BillDeletedEvent is raised for each bill removed by a deletion
type BillDeletedEvent struct {
	shared.EventEnvelope
	BillID            uuid.UUID     `json:"bill_id"`
	Scope             DeletionScope `json:"scope"`
	Status            BillStatus    `json:"status"`
	InstallmentNumber int           `json:"installment_number"`
	ParentID          *uuid.UUID    `json:"parent_id,omitempty"`
}

// NewBillDeletedEvent creates a new BillDeletedEvent
func NewBillDeletedEvent(b *Bill, scope DeletionScope, at time.Time) *BillDeletedEvent {
	return &BillDeletedEvent{
		EventEnvelope:   shared.NewEventEnvelope(EventTypeBillDeleted, AggregateTypeBill, b.ID, b.TenantID, at),
		BillID:            b.ID,
		Scope:             scope,
		Status:            b.Status,
		InstallmentNumber: b.InstallmentNumber,
		ParentID:          b.ParentID,
	}
}

// BillChainRepairedEvent is raised on a surviving chain member whose parent
// or installment count was rewritten by a deletion
type BillChainRepairedEvent struct {
	shared.EventEnvelope
	BillID        uuid.UUID  `json:"bill_id"`
	DeletedBillID uuid.UUID  `json:"deleted_bill_id"`
	ParentID      *uuid.UUID `json:"parent_id,omitempty"`
	Installments  int        `json:"installments"`
}

// NewBillChainRepairedEvent creates a new BillChainRepairedEvent
func NewBillChainRepairedEvent(b *Bill, deletedID uuid.UUID, at time.Time) *BillChainRepairedEvent {
	return &BillChainRepairedEvent{
		EventEnvelope: shared.NewEventEnvelope(EventTypeBillChainRepaired, AggregateTypeBill, b.ID, b.TenantID, at),
		BillID:          b.ID,
		DeletedBillID:   deletedID,
		ParentID:        b.ParentID,
		Installments:    b.Installments,
	}
}
