package finance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/academy/backend/internal/domain/finance"
	"github.com/academy/backend/internal/domain/shared"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// defaultSweepBatchSize bounds how many bills one sweep round loads
const defaultSweepBatchSize = 200

// BillService runs the bill lifecycle: chain creation, updates, payment,
// receipt reporting, cancellation, scoped deletion and the overdue sweep.
//
// Concurrent writers are serialized by optimistic versioning. Whoever commits
// first wins and the other call fails with CONCURRENCY_CONFLICT.
type BillService struct {
	billRepo       finance.BillRepository
	methodRepo     finance.PaymentMethodRepository
	txScope        TransactionScope
	notifier       ChangeNotifier
	publisher      shared.EventPublisher
	idempotency    shared.IdempotencyStore
	idempotencyTTL time.Duration
	clock          shared.Clock
	validate       *validator.Validate
	logger         *zap.Logger
	sweepBatchSize int
}

// BillServiceOption is a functional option for configuring BillService
type BillServiceOption func(*BillService)

// WithClock sets the clock used for due-date decisions and timestamps
func WithClock(clock shared.Clock) BillServiceOption {
	return func(s *BillService) {
		s.clock = clock
	}
}

// WithChangeNotifier sets the sink told about committed changes
func WithChangeNotifier(n ChangeNotifier) BillServiceOption {
	return func(s *BillService) {
		s.notifier = n
	}
}

// WithEventPublisher sets the publisher for domain events raised by bills
func WithEventPublisher(p shared.EventPublisher) BillServiceOption {
	return func(s *BillService) {
		s.publisher = p
	}
}

// WithIdempotencyStore enables Idempotency-Key handling on payments
func WithIdempotencyStore(store shared.IdempotencyStore, ttl time.Duration) BillServiceOption {
	return func(s *BillService) {
		s.idempotency = store
		s.idempotencyTTL = ttl
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) BillServiceOption {
	return func(s *BillService) {
		s.logger = logger
	}
}

// WithSweepBatchSize sets how many bills one sweep round loads
func WithSweepBatchSize(n int) BillServiceOption {
	return func(s *BillService) {
		if n > 0 {
			s.sweepBatchSize = n
		}
	}
}

// NewBillService creates a new BillService
func NewBillService(
	billRepo finance.BillRepository,
	methodRepo finance.PaymentMethodRepository,
	txScope TransactionScope,
	opts ...BillServiceOption,
) *BillService {
	s := &BillService{
		billRepo:       billRepo,
		methodRepo:     methodRepo,
		txScope:        txScope,
		clock:          shared.NewSystemClock(nil),
		validate:       NewValidator(),
		logger:         zap.NewNop(),
		sweepBatchSize: defaultSweepBatchSize,
		idempotencyTTL: shared.DefaultIdempotencyConfig().TTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.notifier == nil {
		s.notifier = NewLogChangeNotifier(s.logger)
	}
	return s
}

// CreateBill materializes a template into one bill or a full installment
// chain. The chain is inserted atomically.
func (s *BillService) CreateBill(ctx context.Context, tc shared.TenantContext, req CreateBillRequest) ([]BillResponse, error) {
	if err := tc.Validate(); err != nil {
		return nil, err
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, validationError(err)
	}
	if err := s.ensurePaymentMethod(ctx, tc.TenantID, req.FormsOfReceiptID); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	chain, err := finance.GenerateChain(tc, req.toTemplate(), now)
	if err != nil {
		return nil, err
	}

	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		return repos.BillRepo().CreateBatch(ctx, chain)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create bills: %w", err)
	}

	s.logger.Info("bills created",
		zap.String("tenant_id", tc.TenantID.String()),
		zap.String("anchor_id", chain[0].ID.String()),
		zap.String("recurrence", chain[0].Recurrence.String()),
		zap.Int("installments", len(chain)),
		zap.String("amount", chain[0].Amount.String()),
	)

	s.afterCommit(ctx, tc.TenantID, chain, TagBills)
	return ToBillResponses(chain), nil
}

// GetBill returns a bill of the caller's tenant
func (s *BillService) GetBill(ctx context.Context, tc shared.TenantContext, id uuid.UUID) (*BillResponse, error) {
	bill, err := s.loadBill(ctx, s.billRepo, tc, id)
	if err != nil {
		return nil, err
	}
	resp := ToBillResponse(bill)
	return &resp, nil
}

// GetChain returns every member of the chain the bill belongs to
func (s *BillService) GetChain(ctx context.Context, tc shared.TenantContext, id uuid.UUID) ([]BillResponse, error) {
	bill, err := s.loadBill(ctx, s.billRepo, tc, id)
	if err != nil {
		return nil, err
	}
	chain, err := s.billRepo.FindChain(ctx, tc.TenantID, bill.AnchorID())
	if err != nil {
		return nil, fmt.Errorf("failed to load chain: %w", err)
	}
	return ToBillResponses(chain), nil
}

// ListBills lists bills with filtering and pagination
func (s *BillService) ListBills(ctx context.Context, tc shared.TenantContext, filter BillListFilter) ([]BillResponse, int64, error) {
	if err := tc.Validate(); err != nil {
		return nil, 0, err
	}
	domainFilter := filter.toDomain()

	bills, err := s.billRepo.FindAllForTenant(ctx, tc.TenantID, domainFilter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list bills: %w", err)
	}
	total, err := s.billRepo.CountForTenant(ctx, tc.TenantID, domainFilter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count bills: %w", err)
	}
	return ToBillResponses(bills), total, nil
}

// UpdateBill applies a partial update to one bill
func (s *BillService) UpdateBill(ctx context.Context, tc shared.TenantContext, id uuid.UUID, req UpdateBillRequest) (*BillResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, validationError(err)
	}
	if err := req.chainShapeError(); err != nil {
		return nil, err
	}
	if err := s.ensurePaymentMethod(ctx, tc.TenantID, req.FormsOfReceiptID); err != nil {
		return nil, err
	}

	bill, err := s.loadBill(ctx, s.billRepo, tc, id)
	if err != nil {
		return nil, err
	}

	version := bill.GetVersion()
	if err := bill.Update(req.toPatch(), s.clock.Now()); err != nil {
		return nil, err
	}
	if bill.GetVersion() == version {
		resp := ToBillResponse(bill)
		return &resp, nil
	}

	if err := s.billRepo.SaveWithLock(ctx, bill); err != nil {
		return nil, err
	}

	s.afterCommit(ctx, tc.TenantID, []*finance.Bill{bill}, TagBills)
	resp := ToBillResponse(bill)
	return &resp, nil
}

// PayBill settles a bill. With status AWAITING_RECEIPT the call reports a
// delayed receipt instead. An Idempotency-Key is reserved before the payment
// runs, so a concurrent or repeated submission with the same key is rejected
// with DUPLICATE_SUBMISSION; the key is released again if the payment fails.
// Without a key the caller owns single-flight, and the version check still
// stops a second payment from committing.
func (s *BillService) PayBill(ctx context.Context, tc shared.TenantContext, id uuid.UUID, req PayBillRequest) (*BillResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, validationError(err)
	}

	if req.Status != nil && *req.Status != finance.BillStatusPaid {
		if *req.Status != finance.BillStatusAwaitingReceipt {
			return nil, shared.NewInvalidStateTransitionError(
				fmt.Sprintf("a payment cannot move a bill to %s", *req.Status))
		}
		return s.ReportReceipt(ctx, tc, id, ReportReceiptRequest{
			PaymentDate: req.PaymentDate,
			BankID:      req.BankID,
		})
	}

	key, err := s.reserveIdempotencyKey(ctx, tc, req.IdempotencyKey)
	if err != nil {
		return nil, err
	}
	resp, err := s.pay(ctx, tc, id, req)
	if err != nil {
		s.releaseIdempotencyKey(ctx, key)
		return nil, err
	}
	return resp, nil
}

func (s *BillService) pay(ctx context.Context, tc shared.TenantContext, id uuid.UUID, req PayBillRequest) (*BillResponse, error) {
	bill, err := s.loadBill(ctx, s.billRepo, tc, id)
	if err != nil {
		return nil, err
	}

	details := finance.PaymentDetails{
		AmountPaid:  bill.Amount,
		PaymentDate: req.PaymentDate,
		BankID:      req.BankID,
	}
	if req.AmountPaid != nil {
		details.AmountPaid = *req.AmountPaid
	}
	if err := bill.Pay(details, s.clock.Now()); err != nil {
		return nil, err
	}
	if err := s.billRepo.SaveWithLock(ctx, bill); err != nil {
		return nil, err
	}

	s.logger.Info("bill paid",
		zap.String("tenant_id", tc.TenantID.String()),
		zap.String("bill_id", bill.ID.String()),
		zap.String("amount", bill.Amount.String()),
		zap.String("amount_paid", bill.AmountPaid.String()),
	)

	s.afterCommit(ctx, tc.TenantID, []*finance.Bill{bill}, TagBills, TagProducts)
	resp := ToBillResponse(bill)
	return &resp, nil
}

// ReportReceipt moves a PENDING bill whose form of receipt settles later to
// AWAITING_RECEIPT
func (s *BillService) ReportReceipt(ctx context.Context, tc shared.TenantContext, id uuid.UUID, req ReportReceiptRequest) (*BillResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, validationError(err)
	}

	bill, err := s.loadBill(ctx, s.billRepo, tc, id)
	if err != nil {
		return nil, err
	}
	if bill.FormsOfReceiptID == nil {
		return nil, shared.NewValidationError("bill has no form of receipt")
	}
	method, err := s.methodRepo.FindByIDForTenant(ctx, tc.TenantID, *bill.FormsOfReceiptID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewValidationError("form of receipt of the bill no longer exists")
		}
		return nil, fmt.Errorf("failed to load form of receipt: %w", err)
	}

	if err := bill.ReportReceipt(method, req.PaymentDate, req.BankID, s.clock.Now()); err != nil {
		return nil, err
	}
	if err := s.billRepo.SaveWithLock(ctx, bill); err != nil {
		return nil, err
	}

	s.afterCommit(ctx, tc.TenantID, []*finance.Bill{bill}, TagBills)
	resp := ToBillResponse(bill)
	return &resp, nil
}

// CancelBill cancels a non-terminal bill
func (s *BillService) CancelBill(ctx context.Context, tc shared.TenantContext, id uuid.UUID, req CancelBillRequest) (*BillResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, validationError(err)
	}

	bill, err := s.loadBill(ctx, s.billRepo, tc, id)
	if err != nil {
		return nil, err
	}
	if err := bill.Cancel(req.Reason, s.clock.Now()); err != nil {
		return nil, err
	}
	if err := s.billRepo.SaveWithLock(ctx, bill); err != nil {
		return nil, err
	}

	s.afterCommit(ctx, tc.TenantID, []*finance.Bill{bill}, TagBills)
	resp := ToBillResponse(bill)
	return &resp, nil
}

// DeleteBills deletes the given bills inside one transaction. With a scope
// each id is resolved with it; without one every id uses ONE. Ids are
// processed in order, each against the chain as left by the previous one. Any
// failure rolls back the whole call.
func (s *BillService) DeleteBills(ctx context.Context, tc shared.TenantContext, req DeleteBillsRequest) (*DeleteBillsResult, error) {
	if err := tc.Validate(); err != nil {
		return nil, err
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, validationError(err)
	}

	scope := finance.DeletionScopeOne
	if req.Scope != nil {
		scope = *req.Scope
	}
	now := s.clock.Now()

	var (
		deletedIDs []uuid.UUID
		touched    []*finance.Bill
	)
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		repo := repos.BillRepo()
		deleted := make(map[uuid.UUID]bool)
		deletedIDs = deletedIDs[:0]
		touched = touched[:0]

		if err := s.requireBills(ctx, repo, tc, req.IDs); err != nil {
			return err
		}

		for _, id := range req.IDs {
			if deleted[id] {
				continue
			}
			bill, err := s.loadBill(ctx, repo, tc, id)
			if err != nil {
				return err
			}

			chain, err := repo.FindChain(ctx, tc.TenantID, bill.AnchorID())
			if err != nil {
				return fmt.Errorf("failed to load chain of bill %s: %w", id, err)
			}

			plan, err := finance.ResolveDeletion(bill, substitute(chain, bill), scope, now)
			if err != nil {
				return err
			}

			for _, survivor := range plan.Update {
				if err := repo.SaveWithLock(ctx, survivor); err != nil {
					return err
				}
			}
			for _, victim := range plan.Delete {
				if err := repo.DeleteWithLock(ctx, victim); err != nil {
					return err
				}
				deleted[victim.ID] = true
				deletedIDs = append(deletedIDs, victim.ID)
			}
			touched = append(touched, plan.Update...)
			touched = append(touched, plan.Delete...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("bills deleted",
		zap.String("tenant_id", tc.TenantID.String()),
		zap.String("scope", scope.String()),
		zap.Int("requested", len(req.IDs)),
		zap.Int("deleted", len(deletedIDs)),
	)

	s.afterCommit(ctx, tc.TenantID, touched, TagBills)
	return &DeleteBillsResult{DeletedIDs: deletedIDs, DeletedCount: len(deletedIDs)}, nil
}

// SweepOverdue moves the tenant's PENDING bills due before today to
// OVERDUE. Bills that fail to transition are logged and skipped; running it
// again on the same day transitions nothing new.
func (s *BillService) SweepOverdue(ctx context.Context, tc shared.TenantContext) (*SweepResult, error) {
	if err := tc.Validate(); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	today := shared.DateOf(now)
	result := &SweepResult{TenantID: tc.TenantID, AsOf: today}
	failed := make(map[uuid.UUID]bool)
	var transitioned []*finance.Bill

	for {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		// failed bills stay PENDING and sort ahead of unvisited ones
		limit := s.sweepBatchSize + len(failed)
		candidates, err := s.billRepo.FindOverdueCandidates(ctx, tc.TenantID, today, limit)
		if err != nil {
			return result, fmt.Errorf("failed to load overdue candidates: %w", err)
		}

		attempted := 0
		for _, bill := range candidates {
			if failed[bill.ID] {
				continue
			}
			attempted++
			if err := s.markOverdue(ctx, bill, now); err != nil {
				failed[bill.ID] = true
				s.logger.Warn("failed to mark bill overdue, skipping",
					zap.String("tenant_id", tc.TenantID.String()),
					zap.String("bill_id", bill.ID.String()),
					zap.Error(err),
				)
				continue
			}
			transitioned = append(transitioned, bill)
		}

		if len(candidates) < limit || attempted == 0 {
			break
		}
	}

	result.TransitionedCount = len(transitioned)
	result.FailedCount = len(failed)

	if result.TransitionedCount > 0 || result.FailedCount > 0 {
		s.logger.Info("overdue sweep finished",
			zap.String("tenant_id", tc.TenantID.String()),
			zap.Int("transitioned", result.TransitionedCount),
			zap.Int("failed", result.FailedCount),
		)
	}
	if result.TransitionedCount > 0 {
		s.afterCommit(ctx, tc.TenantID, transitioned, TagBills)
	}
	return result, nil
}

// TenantsWithOverdueBills lists tenants the sweep has work for today
func (s *BillService) TenantsWithOverdueBills(ctx context.Context) ([]uuid.UUID, error) {
	return s.billRepo.FindTenantsWithOverdueCandidates(ctx, shared.DateOf(s.clock.Now()))
}

func (s *BillService) markOverdue(ctx context.Context, bill *finance.Bill, now time.Time) error {
	if err := bill.MarkOverdue(now); err != nil {
		return err
	}
	return s.billRepo.SaveWithLock(ctx, bill)
}

// requireBills fails with NOT_FOUND naming every id the tenant does not own,
// so a bulk request is refused before its first write
func (s *BillService) requireBills(ctx context.Context, repo finance.BillRepository, tc shared.TenantContext, ids []uuid.UUID) error {
	found, err := repo.FindByIDsForTenant(ctx, tc.TenantID, ids)
	if err != nil {
		return fmt.Errorf("failed to load bills: %w", err)
	}
	present := make(map[uuid.UUID]bool, len(found))
	for _, b := range found {
		present[b.ID] = true
	}
	var missing []string
	for _, id := range ids {
		if !present[id] {
			missing = append(missing, id.String())
			present[id] = true
		}
	}
	if len(missing) > 0 {
		return shared.NewNotFoundError(fmt.Sprintf("bills not found: %s", strings.Join(missing, ", ")))
	}
	return nil
}

func (s *BillService) loadBill(ctx context.Context, repo finance.BillRepository, tc shared.TenantContext, id uuid.UUID) (*finance.Bill, error) {
	if err := tc.Validate(); err != nil {
		return nil, err
	}
	bill, err := repo.FindByIDForTenant(ctx, tc.TenantID, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewNotFoundError(fmt.Sprintf("bill %s not found", id))
		}
		return nil, fmt.Errorf("failed to load bill %s: %w", id, err)
	}
	if bill == nil || !bill.BelongsTo(tc.TenantID) {
		return nil, shared.NewNotFoundError(fmt.Sprintf("bill %s not found", id))
	}
	return bill, nil
}

func (s *BillService) ensurePaymentMethod(ctx context.Context, tenantID uuid.UUID, id *uuid.UUID) error {
	if id == nil {
		return nil
	}
	method, err := s.methodRepo.FindByIDForTenant(ctx, tenantID, *id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.NewValidationError(fmt.Sprintf("form of receipt %s not found", *id))
		}
		return fmt.Errorf("failed to load form of receipt: %w", err)
	}
	if !method.IsActive {
		return shared.NewValidationError(fmt.Sprintf("form of receipt %q is inactive", method.Name))
	}
	return nil
}

// reserveIdempotencyKey records the tenant-scoped key before the payment
// runs. It returns the scoped key to release on failure, or "" when there is
// nothing to release.
func (s *BillService) reserveIdempotencyKey(ctx context.Context, tc shared.TenantContext, key string) (string, error) {
	if s.idempotency == nil || key == "" {
		return "", nil
	}
	scoped := "bill-payment:" + tc.TenantID.String() + ":" + key
	reserved, err := s.idempotency.MarkProcessed(ctx, scoped, s.idempotencyTTL)
	if err != nil {
		// the version check still guards against double payment
		s.logger.Warn("idempotency store unavailable", zap.Error(err))
		return "", nil
	}
	if !reserved {
		return "", shared.ErrDuplicateSubmission
	}
	return scoped, nil
}

func (s *BillService) releaseIdempotencyKey(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.idempotency.Release(ctx, key); err != nil {
		s.logger.Warn("failed to release idempotency key", zap.String("key", key), zap.Error(err))
	}
}

// afterCommit publishes the bills' pending events and notifies the change
// sink. The mutation is already durable, so failures are only logged.
func (s *BillService) afterCommit(ctx context.Context, tenantID uuid.UUID, bills []*finance.Bill, tags ...string) {
	if s.publisher != nil {
		var events []shared.DomainEvent
		for _, b := range bills {
			events = append(events, b.GetDomainEvents()...)
		}
		if len(events) > 0 {
			if err := s.publisher.Publish(ctx, events...); err != nil {
				s.logger.Error("failed to publish bill events",
					zap.String("tenant_id", tenantID.String()),
					zap.Int("events", len(events)),
					zap.Error(err),
				)
			}
		}
	}
	for _, b := range bills {
		b.ClearDomainEvents()
	}

	for _, tag := range tags {
		if err := s.notifier.NotifyChanged(ctx, tenantID, tag); err != nil {
			s.logger.Warn("failed to notify change",
				zap.String("tenant_id", tenantID.String()),
				zap.String("tag", tag),
				zap.Error(err),
			)
		}
	}
}

// substitute swaps the freshly loaded copy of target into chain so the plan
// mutates one instance per bill
func substitute(chain []*finance.Bill, target *finance.Bill) []*finance.Bill {
	out := make([]*finance.Bill, len(chain))
	for i, b := range chain {
		if b.ID == target.ID {
			out[i] = target
		} else {
			out[i] = b
		}
	}
	return out
}
