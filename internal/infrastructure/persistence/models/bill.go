package models

import (
	"time"

	"github.com/academy/backend/internal/domain/finance"
	"github.com/academy/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BillModel is the persistence model for the Bill aggregate root
type BillModel struct {
	TenantAggregateModel
	Description         string             `gorm:"type:varchar(255);not null;default:''"`
	Type                finance.BillType   `gorm:"type:varchar(20);not null"`
	Amount              decimal.Decimal    `gorm:"type:decimal(18,4);not null"`
	AmountPaid          *decimal.Decimal   `gorm:"type:decimal(18,4)"`
	FeeAmount           *decimal.Decimal   `gorm:"type:decimal(18,4)"`
	Status              finance.BillStatus `gorm:"type:varchar(20);not null;default:'PENDING';index"`
	DueDate             time.Time          `gorm:"type:date;not null;index"`
	PaymentDate         *time.Time         `gorm:"type:date"`
	ExpectedReceiptDate *time.Time         `gorm:"type:date"`
	Recurrence          finance.Recurrence `gorm:"type:varchar(20);not null;default:'NONE'"`
	InstallmentNumber   int                `gorm:"not null;default:1"`
	Installments        int                `gorm:"not null;default:1"`
	ParentID            *uuid.UUID         `gorm:"type:uuid;index"`
	CategoryID          *uuid.UUID         `gorm:"type:uuid"`
	BankID              *uuid.UUID         `gorm:"type:uuid"`
	FormsOfReceiptID    *uuid.UUID         `gorm:"type:uuid"`
	SupplierID          *uuid.UUID         `gorm:"type:uuid;index"`
	SaleID              *uuid.UUID         `gorm:"type:uuid;index"`
	CancelledAt         *time.Time
	CancelReason        string `gorm:"type:varchar(500);not null;default:''"`
}

// TableName returns the table name for GORM
func (BillModel) TableName() string {
	return "bills"
}

// ToDomain converts the persistence model to a domain Bill
func (m *BillModel) ToDomain() *finance.Bill {
	return &finance.Bill{
		TenantAggregateRoot: m.ToTenantAggregateRoot(),
		Description:         m.Description,
		Type:                m.Type,
		Amount:              m.Amount,
		AmountPaid:          m.AmountPaid,
		FeeAmount:           m.FeeAmount,
		Status:              m.Status,
		DueDate:             shared.DateOf(m.DueDate),
		PaymentDate:         datePtr(m.PaymentDate),
		ExpectedReceiptDate: datePtr(m.ExpectedReceiptDate),
		Recurrence:          m.Recurrence,
		InstallmentNumber:   m.InstallmentNumber,
		Installments:        m.Installments,
		ParentID:            m.ParentID,
		CategoryID:          m.CategoryID,
		BankID:              m.BankID,
		FormsOfReceiptID:    m.FormsOfReceiptID,
		SupplierID:          m.SupplierID,
		SaleID:              m.SaleID,
		CancelledAt:         utcPtr(m.CancelledAt),
		CancelReason:        m.CancelReason,
	}
}

// BillModelFromDomain creates a persistence model from a domain Bill
func BillModelFromDomain(b *finance.Bill) *BillModel {
	m := &BillModel{
		Description:         b.Description,
		Type:                b.Type,
		Amount:              b.Amount,
		AmountPaid:          b.AmountPaid,
		FeeAmount:           b.FeeAmount,
		Status:              b.Status,
		DueDate:             shared.DateOf(b.DueDate),
		PaymentDate:         datePtr(b.PaymentDate),
		ExpectedReceiptDate: datePtr(b.ExpectedReceiptDate),
		Recurrence:          b.Recurrence,
		InstallmentNumber:   b.InstallmentNumber,
		Installments:        b.Installments,
		ParentID:            b.ParentID,
		CategoryID:          b.CategoryID,
		BankID:              b.BankID,
		FormsOfReceiptID:    b.FormsOfReceiptID,
		SupplierID:          b.SupplierID,
		SaleID:              b.SaleID,
		CancelledAt:         utcPtr(b.CancelledAt),
		CancelReason:        b.CancelReason,
	}
	m.FromDomainTenantAggregateRoot(b.TenantAggregateRoot)
	return m
}
