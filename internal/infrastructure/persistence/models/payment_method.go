package models

import (
	"github.com/academy/backend/internal/domain/finance"
	"github.com/academy/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// PaymentMethodModel is the persistence model for forms of receipt
type PaymentMethodModel struct {
	TenantAggregateModel
	Name          string          `gorm:"type:varchar(100);not null"`
	FeePercentage decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0"`
	ReceiveInDays int             `gorm:"not null;default:0"`
	IsActive      bool            `gorm:"not null"`
}

// TableName returns the table name for GORM
func (PaymentMethodModel) TableName() string {
	return "payment_methods"
}

// ToDomain converts the persistence model to a domain PaymentMethod.
// A fee outside 0..100 can only come from a manual edit and reads as zero.
func (m *PaymentMethodModel) ToDomain() *finance.PaymentMethod {
	fee, err := valueobject.NewPercentage(m.FeePercentage)
	if err != nil {
		fee = valueobject.Percentage{}
	}
	return &finance.PaymentMethod{
		TenantAggregateRoot: m.ToTenantAggregateRoot(),
		Name:                m.Name,
		FeePercentage:       fee,
		ReceiveInDays:       m.ReceiveInDays,
		IsActive:            m.IsActive,
	}
}

// PaymentMethodModelFromDomain creates a persistence model from a domain PaymentMethod
func PaymentMethodModelFromDomain(p *finance.PaymentMethod) *PaymentMethodModel {
	m := &PaymentMethodModel{
		Name:          p.Name,
		FeePercentage: p.FeePercentage.Decimal(),
		ReceiveInDays: p.ReceiveInDays,
		IsActive:      p.IsActive,
	}
	m.FromDomainTenantAggregateRoot(p.TenantAggregateRoot)
	return m
}
