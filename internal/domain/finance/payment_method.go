package finance

import (
	"fmt"
	"strings"
	"time"

	"github.com/academy/backend/internal/domain/shared"
	"github.com/academy/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// maxReceiveInDays bounds the settlement delay of a form of receipt
const maxReceiveInDays = 365

// PaymentMethod is a form of receipt (card, boleto, pix...) with the fee the
// acquirer withholds and the delay before funds settle
type PaymentMethod struct {
	shared.TenantAggregateRoot
	Name          string
	FeePercentage valueobject.Percentage
	ReceiveInDays int
	IsActive      bool
}

// NewPaymentMethod creates a new form of receipt
func NewPaymentMethod(tc shared.TenantContext, name string, feePercentage decimal.Decimal, receiveInDays int, now time.Time) (*PaymentMethod, error) {
	if err := tc.Validate(); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewValidationError("payment method name cannot be empty")
	}
	if len(name) > 100 {
		return nil, shared.NewValidationError("payment method name cannot exceed 100 characters")
	}
	fee, err := valueobject.NewPercentage(feePercentage)
	if err != nil {
		return nil, shared.WrapDomainError(shared.CodeValidation, "invalid fee percentage", err)
	}
	if receiveInDays < 0 || receiveInDays > maxReceiveInDays {
		return nil, shared.NewValidationError(
			fmt.Sprintf("receive in days must be between 0 and %d", maxReceiveInDays))
	}

	return &PaymentMethod{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tc, now),
		Name:                name,
		FeePercentage:       fee,
		ReceiveInDays:       receiveInDays,
		IsActive:            true,
	}, nil
}

// HasReceiptDelay reports whether funds settle after the reported date
func (m *PaymentMethod) HasReceiptDelay() bool {
	return m.ReceiveInDays > 0
}

// ExpectedReceiptDate is the date funds reported on paymentDate settle
func (m *PaymentMethod) ExpectedReceiptDate(paymentDate time.Time) time.Time {
	return shared.DateOf(paymentDate).AddDate(0, 0, m.ReceiveInDays)
}

// FeeFor returns the fee withheld on amount, rounded to cents
func (m *PaymentMethod) FeeFor(amount valueobject.Money) valueobject.Money {
	if m.FeePercentage.IsZero() {
		return valueobject.NewMoney(decimal.Zero)
	}
	return amount.Percentage(m.FeePercentage)
}

// Deactivate hides the method from new bills
func (m *PaymentMethod) Deactivate(now time.Time) {
	if !m.IsActive {
		return
	}
	m.IsActive = false
	m.UpdatedAt = now
	m.IncrementVersion()
}
