package finance

import (
	"fmt"
	"time"

	"github.com/academy/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BillTemplate is the input from which one bill or a whole chain is built
type BillTemplate struct {
	Description      string
	Type             BillType
	Amount           decimal.Decimal
	DueDate          time.Time
	Recurrence       Recurrence
	Installments     int
	CategoryID       *uuid.UUID
	BankID           *uuid.UUID
	FormsOfReceiptID *uuid.UUID
	SupplierID       *uuid.UUID
	SaleID           *uuid.UUID
}

// Validate checks the template before any bill is generated
func (t BillTemplate) Validate() error {
	if !t.Type.IsValid() {
		return shared.NewValidationError(fmt.Sprintf("invalid bill type %q", t.Type))
	}
	if !t.Amount.IsPositive() {
		return shared.NewValidationError("amount must be greater than zero")
	}
	if t.DueDate.IsZero() {
		return shared.NewValidationError("due date is required")
	}
	if len(t.Description) > maxDescriptionLength {
		return shared.NewValidationError(
			fmt.Sprintf("description cannot exceed %d characters", maxDescriptionLength))
	}
	if !t.Recurrence.IsValid() {
		return shared.NewValidationError(fmt.Sprintf("invalid recurrence %q", t.Recurrence))
	}
	if t.Installments <= 0 {
		return shared.NewValidationError("installments must be at least 1")
	}
	if !t.Recurrence.IsRecurring() && t.Installments > 1 {
		return shared.NewValidationError("a non-recurring bill cannot have more than one installment")
	}
	if t.Installments > MaxInstallments {
		return shared.NewValidationError(
			fmt.Sprintf("installments cannot exceed %d", MaxInstallments))
	}
	return nil
}

// MaxInstallments caps how many bills one template may materialize
const MaxInstallments = 360

// GenerateChain expands a template into its concrete installments. The first
// element is the anchor; installment i is due (i-1) recurrence periods after
// it. All members share the template's amount and references.
func GenerateChain(tc shared.TenantContext, tpl BillTemplate, now time.Time) ([]*Bill, error) {
	if err := tc.Validate(); err != nil {
		return nil, err
	}
	if err := tpl.Validate(); err != nil {
		return nil, err
	}

	firstDue := shared.DateOf(tpl.DueDate)
	chain := make([]*Bill, 0, tpl.Installments)

	anchor := newBillFromTemplate(tc, tpl, firstDue, 1, nil, now)
	chain = append(chain, anchor)

	for i := 2; i <= tpl.Installments; i++ {
		parentID := anchor.ID
		due := tpl.Recurrence.Advance(firstDue, i-1)
		chain = append(chain, newBillFromTemplate(tc, tpl, due, i, &parentID, now))
	}

	for _, b := range chain {
		b.AddDomainEvent(NewBillCreatedEvent(b, now))
	}
	return chain, nil
}

func newBillFromTemplate(tc shared.TenantContext, tpl BillTemplate, due time.Time, number int, parentID *uuid.UUID, now time.Time) *Bill {
	return &Bill{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tc, now),
		Description:         tpl.Description,
		Type:                tpl.Type,
		Amount:              tpl.Amount,
		Status:              BillStatusPending,
		DueDate:             due,
		Recurrence:          tpl.Recurrence,
		InstallmentNumber:   number,
		Installments:        tpl.Installments,
		ParentID:            parentID,
		CategoryID:          tpl.CategoryID,
		BankID:              tpl.BankID,
		FormsOfReceiptID:    tpl.FormsOfReceiptID,
		SupplierID:          tpl.SupplierID,
		SaleID:              tpl.SaleID,
	}
}
