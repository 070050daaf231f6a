package finance

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Change tags sent after a successful mutation
const (
	TagBills          = "bills"
	TagProducts       = "products"
	TagPaymentMethods = "payment-methods"
)

// ChangeNotifier tells external caches and views that a resource changed
type ChangeNotifier interface {
	NotifyChanged(ctx context.Context, tenantID uuid.UUID, tag string) error
}

// LogChangeNotifier only logs change notifications. It is the fallback when
// no message broker is configured.
type LogChangeNotifier struct {
	logger *zap.Logger
}

// NewLogChangeNotifier creates a LogChangeNotifier
func NewLogChangeNotifier(logger *zap.Logger) *LogChangeNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogChangeNotifier{logger: logger}
}

// NotifyChanged implements ChangeNotifier
func (n *LogChangeNotifier) NotifyChanged(_ context.Context, tenantID uuid.UUID, tag string) error {
	n.logger.Debug("resource changed",
		zap.String("tenant_id", tenantID.String()),
		zap.String("tag", tag),
	)
	return nil
}

var _ ChangeNotifier = (*LogChangeNotifier)(nil)
