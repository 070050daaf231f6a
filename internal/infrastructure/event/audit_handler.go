package event

import (
	"context"

	"github.com/academy/backend/internal/domain/finance"
	"github.com/academy/backend/internal/domain/shared"
	"github.com/academy/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// BillAuditHandler writes one structured log line per bill event. It is the
// audit trail of the bill lifecycle.
type BillAuditHandler struct {
	logger *zap.Logger
}

// NewBillAuditHandler creates a BillAuditHandler
func NewBillAuditHandler(log *zap.Logger) *BillAuditHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &BillAuditHandler{logger: log.Named("bill_audit")}
}

// EventTypes implements EventHandler
func (h *BillAuditHandler) EventTypes() []string {
	return finance.BillEventTypes()
}

// Handle implements EventHandler
func (h *BillAuditHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	fields := []zap.Field{
		zap.String("event_type", event.EventType()),
		zap.String("event_id", event.EventID().String()),
		zap.String("bill_id", event.AggregateID().String()),
		zap.String("tenant_id", event.TenantID().String()),
		zap.Time("occurred_at", event.OccurredAt()),
	}
	fields = append(fields, eventFields(event)...)

	logger.Enrich(ctx, h.logger).Info("bill audit", fields...)
	return nil
}

func eventFields(event shared.DomainEvent) []zap.Field {
	switch e := event.(type) {
	case *finance.BillCreatedEvent:
		fields := []zap.Field{
			zap.String("amount", e.Amount.String()),
			zap.Time("due_date", e.DueDate),
			zap.Int("installment_number", e.InstallmentNumber),
			zap.Int("installments", e.Installments),
		}
		if e.ParentID != nil {
			fields = append(fields, zap.String("parent_id", e.ParentID.String()))
		}
		return fields
	case *finance.BillUpdatedEvent:
		return []zap.Field{
			zap.String("amount", e.Amount.String()),
			zap.Time("due_date", e.DueDate),
			zap.String("status", string(e.Status)),
		}
	case *finance.BillPaidEvent:
		return []zap.Field{
			zap.String("previous_status", string(e.PreviousStatus)),
			zap.String("amount", e.Amount.String()),
			zap.String("amount_paid", e.AmountPaid.String()),
			zap.Bool("partial", e.IsPartial()),
			zap.Time("payment_date", e.PaymentDate),
		}
	case *finance.BillAwaitingReceiptEvent:
		return []zap.Field{
			zap.String("forms_of_receipt_id", e.FormsOfReceiptID.String()),
			zap.Time("expected_receipt_date", e.ExpectedReceiptDate),
			zap.String("fee_amount", e.FeeAmount.String()),
		}
	case *finance.BillCancelledEvent:
		return []zap.Field{
			zap.String("previous_status", string(e.PreviousStatus)),
			zap.String("reason", e.Reason),
		}
	case *finance.BillOverdueEvent:
		return []zap.Field{zap.Time("due_date", e.DueDate)}
	case *finance.BillDeletedEvent:
		return []zap.Field{
			zap.String("scope", string(e.Scope)),
			zap.String("status", string(e.Status)),
			zap.Int("installment_number", e.InstallmentNumber),
		}
	case *finance.BillChainRepairedEvent:
		fields := []zap.Field{
			zap.String("deleted_bill_id", e.DeletedBillID.String()),
			zap.Int("installments", e.Installments),
		}
		if e.ParentID == nil {
			fields = append(fields, zap.Bool("promoted_to_anchor", true))
		}
		return fields
	}
	return nil
}

var _ shared.EventHandler = (*BillAuditHandler)(nil)
