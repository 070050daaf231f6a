package finance

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/academy/backend/internal/domain/finance"
	"github.com/academy/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateBillRequest is the template a caller submits to create one bill or a
// recurring chain
type CreateBillRequest struct {
	Description      string             `json:"description" validate:"max=255"`
	Type             finance.BillType   `json:"type" validate:"required,bill_type"`
	Amount           decimal.Decimal    `json:"amount" validate:"decimal_gt0"`
	DueDate          time.Time          `json:"due_date" validate:"required"`
	Recurrence       finance.Recurrence `json:"recurrence" validate:"omitempty,recurrence"`
	Installments     *int               `json:"installments" validate:"omitempty,gte=1,lte=360"`
	CategoryID       *uuid.UUID         `json:"category_id"`
	BankID           *uuid.UUID         `json:"bank_id"`
	FormsOfReceiptID *uuid.UUID         `json:"forms_of_receipt_id"`
	SupplierID       *uuid.UUID         `json:"supplier_id"`
	SaleID           *uuid.UUID         `json:"sale_id"`
}

// toTemplate fills defaults: no recurrence means NONE and no installment
// count means a single bill
func (r CreateBillRequest) toTemplate() finance.BillTemplate {
	recurrence := r.Recurrence
	if recurrence == "" {
		recurrence = finance.RecurrenceNone
	}
	installments := 1
	if r.Installments != nil {
		installments = *r.Installments
	}
	return finance.BillTemplate{
		Description:      r.Description,
		Type:             r.Type,
		Amount:           r.Amount,
		DueDate:          r.DueDate,
		Recurrence:       recurrence,
		Installments:     installments,
		CategoryID:       r.CategoryID,
		BankID:           r.BankID,
		FormsOfReceiptID: r.FormsOfReceiptID,
		SupplierID:       r.SupplierID,
		SaleID:           r.SaleID,
	}
}

// UpdateBillRequest is a partial update; nil fields are left unchanged
type UpdateBillRequest struct {
	Description      *string             `json:"description" validate:"omitempty,max=255"`
	Amount           *decimal.Decimal    `json:"amount" validate:"omitempty,decimal_gt0"`
	DueDate          *time.Time          `json:"due_date"`
	CategoryID       *uuid.UUID          `json:"category_id"`
	BankID           *uuid.UUID          `json:"bank_id"`
	FormsOfReceiptID *uuid.UUID          `json:"forms_of_receipt_id"`
	SupplierID       *uuid.UUID          `json:"supplier_id"`
	Status           *finance.BillStatus `json:"status" validate:"omitempty,bill_status"`

	// Chain shape is fixed at creation. These are decoded only so that an
	// attempt to change them is refused instead of silently dropped.
	Installments      json.RawMessage `json:"installments,omitempty"`
	InstallmentNumber json.RawMessage `json:"installment_number,omitempty"`
	ParentID          json.RawMessage `json:"parent_id,omitempty"`
	Recurrence        json.RawMessage `json:"recurrence,omitempty"`
}

// chainShapeError reports an update that names chain-shape fields
func (r UpdateBillRequest) chainShapeError() error {
	var fields []string
	for name, raw := range map[string]json.RawMessage{
		"installments":       r.Installments,
		"installment_number": r.InstallmentNumber,
		"parent_id":          r.ParentID,
		"recurrence":         r.Recurrence,
	} {
		if len(raw) > 0 {
			fields = append(fields, name)
		}
	}
	if len(fields) == 0 {
		return nil
	}
	sort.Strings(fields)
	return shared.NewChainIntegrityError(
		fmt.Sprintf("%s cannot be changed after the chain is created", strings.Join(fields, ", ")))
}

func (r UpdateBillRequest) toPatch() finance.BillPatch {
	return finance.BillPatch{
		Description:      r.Description,
		Amount:           r.Amount,
		DueDate:          r.DueDate,
		CategoryID:       r.CategoryID,
		BankID:           r.BankID,
		FormsOfReceiptID: r.FormsOfReceiptID,
		SupplierID:       r.SupplierID,
		Status:           r.Status,
	}
}

// PayBillRequest records a payment. A missing amount means the full bill
// amount. Status may be left empty (PAID) or set to AWAITING_RECEIPT for forms
// of receipt that settle later.
type PayBillRequest struct {
	AmountPaid     *decimal.Decimal    `json:"amount_paid" validate:"omitempty,decimal_gte0"`
	PaymentDate    time.Time           `json:"payment_date" validate:"required"`
	BankID         *uuid.UUID          `json:"bank_id"`
	Status         *finance.BillStatus `json:"status" validate:"omitempty,bill_status"`
	IdempotencyKey string              `json:"-" validate:"max=128"`
}

// ReportReceiptRequest reports funds collected through a delayed form of receipt
type ReportReceiptRequest struct {
	PaymentDate time.Time  `json:"payment_date" validate:"required"`
	BankID      *uuid.UUID `json:"bank_id"`
}

// CancelBillRequest cancels a non-terminal bill
type CancelBillRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

// DeleteBillsRequest deletes bills. Without a scope every id is deleted with
// ONE semantics.
type DeleteBillsRequest struct {
	IDs   []uuid.UUID            `json:"ids" validate:"required,min=1,max=500"`
	Scope *finance.DeletionScope `json:"scope" validate:"omitempty,delete_scope"`
}

// DeleteBillsResult lists what a deletion removed
type DeleteBillsResult struct {
	DeletedIDs   []uuid.UUID `json:"deleted_ids"`
	DeletedCount int         `json:"deleted_count"`
}

// SweepResult summarizes one overdue sweep for a tenant
type SweepResult struct {
	TenantID          uuid.UUID `json:"tenant_id"`
	TransitionedCount int       `json:"transitioned_count"`
	FailedCount       int       `json:"failed_count"`
	AsOf              time.Time `json:"as_of"`
}

// BillListFilter is the query accepted by ListBills
type BillListFilter struct {
	Page       int                 `form:"page" json:"page"`
	PageSize   int                 `form:"page_size" json:"page_size"`
	OrderBy    string              `form:"order_by" json:"order_by"`
	OrderDir   string              `form:"order_dir" json:"order_dir"`
	Search     string              `form:"search" json:"search"`
	Type       *finance.BillType   `form:"type" json:"type"`
	Status     *finance.BillStatus `form:"status" json:"status"`
	DueFrom    *time.Time          `form:"due_from" json:"due_from"`
	DueTo      *time.Time          `form:"due_to" json:"due_to"`
	ParentID   *uuid.UUID          `form:"parent_id" json:"parent_id"`
	SupplierID *uuid.UUID          `form:"supplier_id" json:"supplier_id"`
	CategoryID *uuid.UUID          `form:"category_id" json:"category_id"`
}

var billOrderColumns = map[string]bool{
	"due_date":           true,
	"created_at":         true,
	"amount":             true,
	"installment_number": true,
	"status":             true,
}

func (f BillListFilter) toDomain() finance.BillFilter {
	base := shared.DefaultFilter().WithPage(f.Page, f.PageSize)
	if billOrderColumns[f.OrderBy] {
		base.OrderBy = f.OrderBy
	}
	if f.OrderDir == "desc" {
		base.OrderDir = "desc"
	}
	base.Search = f.Search

	filter := finance.BillFilter{
		Filter:     base,
		Type:       f.Type,
		Status:     f.Status,
		ParentID:   f.ParentID,
		SupplierID: f.SupplierID,
		CategoryID: f.CategoryID,
	}
	if f.DueFrom != nil {
		d := shared.DateOf(*f.DueFrom)
		filter.DueFrom = &d
	}
	if f.DueTo != nil {
		d := shared.DateOf(*f.DueTo)
		filter.DueTo = &d
	}
	return filter
}

// BillResponse is the read model returned for a bill
type BillResponse struct {
	ID                  uuid.UUID          `json:"id"`
	TenantID            uuid.UUID          `json:"tenant_id"`
	Description         string             `json:"description"`
	Type                finance.BillType   `json:"type"`
	Amount              decimal.Decimal    `json:"amount"`
	AmountPaid          *decimal.Decimal   `json:"amount_paid,omitempty"`
	FeeAmount           *decimal.Decimal   `json:"fee_amount,omitempty"`
	NetAmount           decimal.Decimal    `json:"net_amount"`
	Status              finance.BillStatus `json:"status"`
	DueDate             time.Time          `json:"due_date"`
	PaymentDate         *time.Time         `json:"payment_date,omitempty"`
	ExpectedReceiptDate *time.Time         `json:"expected_receipt_date,omitempty"`
	Recurrence          finance.Recurrence `json:"recurrence"`
	InstallmentNumber   int                `json:"installment_number"`
	Installments        int                `json:"installments"`
	ParentID            *uuid.UUID         `json:"parent_id,omitempty"`
	CategoryID          *uuid.UUID         `json:"category_id,omitempty"`
	BankID              *uuid.UUID         `json:"bank_id,omitempty"`
	FormsOfReceiptID    *uuid.UUID         `json:"forms_of_receipt_id,omitempty"`
	SupplierID          *uuid.UUID         `json:"supplier_id,omitempty"`
	SaleID              *uuid.UUID         `json:"sale_id,omitempty"`
	CancelledAt         *time.Time         `json:"cancelled_at,omitempty"`
	CancelReason        string             `json:"cancel_reason,omitempty"`
	Version             int                `json:"version"`
	CreatedAt           time.Time          `json:"created_at"`
	UpdatedAt           time.Time          `json:"updated_at"`
}

// ToBillResponse converts a domain Bill to its response
func ToBillResponse(b *finance.Bill) BillResponse {
	return BillResponse{
		ID:                  b.ID,
		TenantID:            b.TenantID,
		Description:         b.Description,
		Type:                b.Type,
		Amount:              b.Amount,
		AmountPaid:          b.AmountPaid,
		FeeAmount:           b.FeeAmount,
		NetAmount:           b.NetAmount(),
		Status:              b.Status,
		DueDate:             b.DueDate,
		PaymentDate:         b.PaymentDate,
		ExpectedReceiptDate: b.ExpectedReceiptDate,
		Recurrence:          b.Recurrence,
		InstallmentNumber:   b.InstallmentNumber,
		Installments:        b.Installments,
		ParentID:            b.ParentID,
		CategoryID:          b.CategoryID,
		BankID:              b.BankID,
		FormsOfReceiptID:    b.FormsOfReceiptID,
		SupplierID:          b.SupplierID,
		SaleID:              b.SaleID,
		CancelledAt:         b.CancelledAt,
		CancelReason:        b.CancelReason,
		Version:             b.GetVersion(),
		CreatedAt:           b.CreatedAt,
		UpdatedAt:           b.UpdatedAt,
	}
}

// ToBillResponses converts a slice of bills
func ToBillResponses(bills []*finance.Bill) []BillResponse {
	out := make([]BillResponse, len(bills))
	for i, b := range bills {
		out[i] = ToBillResponse(b)
	}
	return out
}

// CreatePaymentMethodRequest creates a form of receipt
type CreatePaymentMethodRequest struct {
	Name          string          `json:"name" validate:"required,max=100"`
	FeePercentage decimal.Decimal `json:"fee_percentage" validate:"decimal_gte0"`
	ReceiveInDays int             `json:"receive_in_days" validate:"gte=0,lte=365"`
}

// PaymentMethodResponse is the read model of a form of receipt
type PaymentMethodResponse struct {
	ID            uuid.UUID       `json:"id"`
	Name          string          `json:"name"`
	FeePercentage decimal.Decimal `json:"fee_percentage"`
	ReceiveInDays int             `json:"receive_in_days"`
	IsActive      bool            `json:"is_active"`
	CreatedAt     time.Time       `json:"created_at"`
}

// ToPaymentMethodResponse converts a domain PaymentMethod to its response
func ToPaymentMethodResponse(m *finance.PaymentMethod) PaymentMethodResponse {
	return PaymentMethodResponse{
		ID:            m.ID,
		Name:          m.Name,
		FeePercentage: m.FeePercentage.Decimal(),
		ReceiveInDays: m.ReceiveInDays,
		IsActive:      m.IsActive,
		CreatedAt:     m.CreatedAt,
	}
}
