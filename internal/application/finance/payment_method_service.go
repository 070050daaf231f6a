package finance

import (
	"context"
	"errors"
	"fmt"

	"github.com/academy/backend/internal/domain/finance"
	"github.com/academy/backend/internal/domain/shared"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PaymentMethodService manages forms of receipt
type PaymentMethodService struct {
	repo     finance.PaymentMethodRepository
	notifier ChangeNotifier
	clock    shared.Clock
	validate *validator.Validate
	logger   *zap.Logger
}

// NewPaymentMethodService creates a new PaymentMethodService
func NewPaymentMethodService(repo finance.PaymentMethodRepository, notifier ChangeNotifier, clock shared.Clock, logger *zap.Logger) *PaymentMethodService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = NewLogChangeNotifier(logger)
	}
	if clock == nil {
		clock = shared.NewSystemClock(nil)
	}
	return &PaymentMethodService{
		repo:     repo,
		notifier: notifier,
		clock:    clock,
		validate: NewValidator(),
		logger:   logger,
	}
}

// Create registers a new form of receipt
func (s *PaymentMethodService) Create(ctx context.Context, tc shared.TenantContext, req CreatePaymentMethodRequest) (*PaymentMethodResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, validationError(err)
	}

	method, err := finance.NewPaymentMethod(tc, req.Name, req.FeePercentage, req.ReceiveInDays, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, method); err != nil {
		return nil, fmt.Errorf("failed to save payment method: %w", err)
	}

	s.logger.Info("payment method created",
		zap.String("tenant_id", tc.TenantID.String()),
		zap.String("payment_method_id", method.ID.String()),
		zap.String("name", method.Name),
	)
	if err := s.notifier.NotifyChanged(ctx, tc.TenantID, TagPaymentMethods); err != nil {
		s.logger.Warn("failed to notify change", zap.String("tag", TagPaymentMethods), zap.Error(err))
	}

	resp := ToPaymentMethodResponse(method)
	return &resp, nil
}

// Get returns one form of receipt of the caller's tenant
func (s *PaymentMethodService) Get(ctx context.Context, tc shared.TenantContext, id uuid.UUID) (*PaymentMethodResponse, error) {
	if err := tc.Validate(); err != nil {
		return nil, err
	}
	method, err := s.repo.FindByIDForTenant(ctx, tc.TenantID, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewNotFoundError(fmt.Sprintf("payment method %s not found", id))
		}
		return nil, err
	}
	resp := ToPaymentMethodResponse(method)
	return &resp, nil
}

// Deactivate hides a form of receipt from new bills. Bills that already
// reference it keep it. Deactivating an inactive method changes nothing.
func (s *PaymentMethodService) Deactivate(ctx context.Context, tc shared.TenantContext, id uuid.UUID) (*PaymentMethodResponse, error) {
	if err := tc.Validate(); err != nil {
		return nil, err
	}
	method, err := s.repo.FindByIDForTenant(ctx, tc.TenantID, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewNotFoundError(fmt.Sprintf("payment method %s not found", id))
		}
		return nil, err
	}
	if !method.IsActive {
		resp := ToPaymentMethodResponse(method)
		return &resp, nil
	}

	method.Deactivate(s.clock.Now())
	if err := s.repo.Save(ctx, method); err != nil {
		return nil, fmt.Errorf("failed to save payment method: %w", err)
	}

	s.logger.Info("payment method deactivated",
		zap.String("tenant_id", tc.TenantID.String()),
		zap.String("payment_method_id", method.ID.String()),
	)
	if err := s.notifier.NotifyChanged(ctx, tc.TenantID, TagPaymentMethods); err != nil {
		s.logger.Warn("failed to notify change", zap.String("tag", TagPaymentMethods), zap.Error(err))
	}

	resp := ToPaymentMethodResponse(method)
	return &resp, nil
}

// List returns the tenant's forms of receipt
func (s *PaymentMethodService) List(ctx context.Context, tc shared.TenantContext, activeOnly bool) ([]PaymentMethodResponse, error) {
	if err := tc.Validate(); err != nil {
		return nil, err
	}
	filter := finance.PaymentMethodFilter{Filter: shared.DefaultFilter(), ActiveOnly: activeOnly}
	filter.OrderBy = "name"
	filter.OrderDir = "asc"
	filter.PageSize = 500

	methods, err := s.repo.FindAllForTenant(ctx, tc.TenantID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list payment methods: %w", err)
	}
	out := make([]PaymentMethodResponse, len(methods))
	for i, m := range methods {
		out[i] = ToPaymentMethodResponse(m)
	}
	return out, nil
}
