package finance

import (
	"fmt"
	"time"

	"github.com/academy/backend/internal/domain/shared"
	"github.com/academy/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AggregateTypeBill is the aggregate type used in bill events
const AggregateTypeBill = "Bill"

// maxDescriptionLength bounds the free-text description of a bill
const maxDescriptionLength = 255

// Bill is a single payable or receivable obligation. Bills created from a
// recurring template form a chain: the anchor has no ParentID and every other
// member points at it.
type Bill struct {
	shared.TenantAggregateRoot
	Description         string
	Type                BillType
	Amount              decimal.Decimal
	AmountPaid          *decimal.Decimal // set iff Status == PAID
	FeeAmount           *decimal.Decimal // withheld by the form of receipt
	Status              BillStatus
	DueDate             time.Time
	PaymentDate         *time.Time
	ExpectedReceiptDate *time.Time
	Recurrence          Recurrence
	InstallmentNumber   int
	Installments        int
	ParentID            *uuid.UUID
	CategoryID          *uuid.UUID
	BankID              *uuid.UUID
	FormsOfReceiptID    *uuid.UUID
	SupplierID          *uuid.UUID
	SaleID              *uuid.UUID
	CancelledAt         *time.Time
	CancelReason        string
}

// IsAnchor reports whether this bill is the origin of its chain
func (b *Bill) IsAnchor() bool {
	return b.ParentID == nil
}

// AnchorID returns the id of the chain anchor this bill belongs to
func (b *Bill) AnchorID() uuid.UUID {
	if b.ParentID != nil {
		return *b.ParentID
	}
	return b.ID
}

// IsStandalone is true for a bill that is the only member of its chain
func (b *Bill) IsStandalone() bool {
	return b.IsAnchor() && b.Installments <= 1
}

// NetAmount is the amount minus any fee withheld by the form of receipt
func (b *Bill) NetAmount() decimal.Decimal {
	amount := valueobject.NewMoney(b.Amount)
	if b.FeeAmount == nil {
		return amount.Amount()
	}
	return amount.Sub(valueobject.NewMoney(*b.FeeAmount)).Amount()
}

// IsOverdueAt reports whether the bill should be OVERDUE on the given day.
// A bill due today is not yet overdue.
func (b *Bill) IsOverdueAt(today time.Time) bool {
	return b.Status == BillStatusPending && b.DueDate.Before(shared.DateOf(today))
}

func (b *Bill) transitionError(target BillStatus) error {
	return shared.NewInvalidStateTransitionError(
		fmt.Sprintf("cannot move bill from %s to %s", b.Status, target))
}

func (b *Bill) touch(now time.Time) {
	b.UpdatedAt = now
	b.IncrementVersion()
}

// MarkOverdue moves a PENDING bill whose due date has passed to OVERDUE
func (b *Bill) MarkOverdue(now time.Time) error {
	if !b.Status.CanTransitionTo(BillStatusOverdue) {
		return b.transitionError(BillStatusOverdue)
	}
	if !b.IsOverdueAt(now) {
		return shared.NewValidationError(
			fmt.Sprintf("bill is due on %s and is not overdue yet", b.DueDate.Format(time.DateOnly)))
	}

	b.Status = BillStatusOverdue
	b.touch(now)
	b.AddDomainEvent(NewBillOverdueEvent(b, now))
	return nil
}

// PaymentDetails carries what the payer reports when settling a bill
type PaymentDetails struct {
	AmountPaid  decimal.Decimal
	PaymentDate time.Time
	BankID      *uuid.UUID
}

// Validate checks the payment details on their own
func (p PaymentDetails) Validate() error {
	if p.AmountPaid.IsNegative() {
		return shared.NewValidationError("amount paid cannot be negative")
	}
	if p.PaymentDate.IsZero() {
		return shared.NewValidationError("payment date is required")
	}
	return nil
}

// Pay settles the bill. Amounts below Amount are recorded as-is; there is no
// partially paid state.
func (b *Bill) Pay(details PaymentDetails, now time.Time) error {
	if !b.Status.CanApplyPayment() {
		return b.transitionError(BillStatusPaid)
	}
	if err := details.Validate(); err != nil {
		return err
	}

	amountPaid := details.AmountPaid
	paymentDate := shared.DateOf(details.PaymentDate)
	previous := b.Status

	b.Status = BillStatusPaid
	b.AmountPaid = &amountPaid
	b.PaymentDate = &paymentDate
	if details.BankID != nil {
		b.BankID = details.BankID
	}
	b.touch(now)
	b.AddDomainEvent(NewBillPaidEvent(b, previous, now))
	return nil
}

// ReportReceipt records that funds were collected through a form of receipt
// that settles later, moving a PENDING bill to AWAITING_RECEIPT.
func (b *Bill) ReportReceipt(method *PaymentMethod, paymentDate time.Time, bankID *uuid.UUID, now time.Time) error {
	if !b.Status.CanTransitionTo(BillStatusAwaitingReceipt) {
		return b.transitionError(BillStatusAwaitingReceipt)
	}
	if method == nil {
		return shared.NewValidationError("bill has no form of receipt")
	}
	if b.FormsOfReceiptID == nil || *b.FormsOfReceiptID != method.ID {
		return shared.NewValidationError("form of receipt does not match the bill")
	}
	if !method.HasReceiptDelay() {
		return shared.NewValidationError(
			fmt.Sprintf("form of receipt %q settles immediately, pay the bill instead", method.Name))
	}
	if paymentDate.IsZero() {
		return shared.NewValidationError("payment date is required")
	}

	reported := shared.DateOf(paymentDate)
	expected := method.ExpectedReceiptDate(reported)
	fee := method.FeeFor(valueobject.NewMoney(b.Amount)).Amount()

	b.Status = BillStatusAwaitingReceipt
	b.PaymentDate = &reported
	b.ExpectedReceiptDate = &expected
	b.FeeAmount = &fee
	if bankID != nil {
		b.BankID = bankID
	}
	b.touch(now)
	b.AddDomainEvent(NewBillAwaitingReceiptEvent(b, now))
	return nil
}

// Cancel moves any non-terminal bill to CANCELLED
func (b *Bill) Cancel(reason string, now time.Time) error {
	if !b.Status.CanTransitionTo(BillStatusCancelled) {
		return b.transitionError(BillStatusCancelled)
	}
	if len(reason) > 500 {
		return shared.NewValidationError("cancel reason cannot exceed 500 characters")
	}

	previous := b.Status
	b.Status = BillStatusCancelled
	b.CancelledAt = &now
	b.CancelReason = reason
	b.touch(now)
	b.AddDomainEvent(NewBillCancelledEvent(b, previous, now))
	return nil
}

// BillPatch lists the fields an update may change. Nil means unchanged.
// Chain shape (recurrence, installments, numbering, parent) is not patchable.
type BillPatch struct {
	Description      *string
	Amount           *decimal.Decimal
	DueDate          *time.Time
	CategoryID       *uuid.UUID
	BankID           *uuid.UUID
	FormsOfReceiptID *uuid.UUID
	SupplierID       *uuid.UUID
	Status           *BillStatus
}

// IsEmpty reports a patch that changes nothing
func (p BillPatch) IsEmpty() bool {
	return !p.changesFields() && p.Status == nil
}

func (p BillPatch) changesFields() bool {
	return p.Description != nil || p.Amount != nil || p.DueDate != nil ||
		p.CategoryID != nil || p.BankID != nil || p.FormsOfReceiptID != nil ||
		p.SupplierID != nil
}

// Update applies a patch. Terminal bills are read-only. A status in the
// patch must be reachable through the state machine; PAID and
// AWAITING_RECEIPT need their dedicated operations.
func (b *Bill) Update(patch BillPatch, now time.Time) error {
	if b.Status.IsTerminal() {
		return shared.NewInvalidStateTransitionError(
			fmt.Sprintf("bill is %s and can no longer be changed", b.Status))
	}
	if patch.IsEmpty() {
		return nil
	}

	if patch.Description != nil && len(*patch.Description) > maxDescriptionLength {
		return shared.NewValidationError(
			fmt.Sprintf("description cannot exceed %d characters", maxDescriptionLength))
	}
	if patch.Amount != nil && !patch.Amount.IsPositive() {
		return shared.NewValidationError("amount must be greater than zero")
	}
	if patch.DueDate != nil && patch.DueDate.IsZero() {
		return shared.NewValidationError("due date cannot be empty")
	}

	var target BillStatus
	if patch.Status != nil && *patch.Status != b.Status {
		target = *patch.Status
		if !target.IsValid() {
			return shared.NewValidationError(fmt.Sprintf("unknown status %q", target))
		}
		switch target {
		case BillStatusPaid, BillStatusAwaitingReceipt:
			return shared.NewInvalidStateTransitionError(
				fmt.Sprintf("status %s is set by paying or reporting receipt, not by update", target))
		}
		if !b.Status.CanTransitionTo(target) {
			return b.transitionError(target)
		}
		if target == BillStatusOverdue {
			due := b.DueDate
			if patch.DueDate != nil {
				due = shared.DateOf(*patch.DueDate)
			}
			if !due.Before(shared.DateOf(now)) {
				return shared.NewValidationError("bill is not past due")
			}
		}
	}

	if patch.Description != nil {
		b.Description = *patch.Description
	}
	if patch.Amount != nil {
		b.Amount = *patch.Amount
	}
	if patch.DueDate != nil {
		b.DueDate = shared.DateOf(*patch.DueDate)
	}
	if patch.CategoryID != nil {
		b.CategoryID = patch.CategoryID
	}
	if patch.BankID != nil {
		b.BankID = patch.BankID
	}
	if patch.FormsOfReceiptID != nil {
		b.FormsOfReceiptID = patch.FormsOfReceiptID
	}
	if patch.SupplierID != nil {
		b.SupplierID = patch.SupplierID
	}

	fieldsChanged := patch.changesFields()
	previous := b.Status
	switch target {
	case BillStatusOverdue:
		b.Status = BillStatusOverdue
	case BillStatusCancelled:
		b.Status = BillStatusCancelled
		b.CancelledAt = &now
		b.CancelReason = ""
	}

	b.touch(now)
	if fieldsChanged || target == BillStatusOverdue {
		b.AddDomainEvent(NewBillUpdatedEvent(b, now))
	}
	if target == BillStatusCancelled {
		b.AddDomainEvent(NewBillCancelledEvent(b, previous, now))
	}
	return nil
}

// repairMembership rewrites the chain fields of a surviving member after a
// deletion. It bumps the version once no matter how many fields change.
func (b *Bill) repairMembership(parentID *uuid.UUID, installments int, now time.Time) bool {
	sameParent := (b.ParentID == nil && parentID == nil) ||
		(b.ParentID != nil && parentID != nil && *b.ParentID == *parentID)
	if sameParent && b.Installments == installments {
		return false
	}
	b.ParentID = parentID
	b.Installments = installments
	b.touch(now)
	return true
}

// MarkDeleted records the deletion event on a bill about to be removed
func (b *Bill) MarkDeleted(scope DeletionScope, now time.Time) {
	b.AddDomainEvent(NewBillDeletedEvent(b, scope, now))
}
