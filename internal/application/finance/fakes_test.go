package finance

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/academy/backend/internal/domain/finance"
	"github.com/academy/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// =============================================================================
// In-memory repositories
// =============================================================================

// memoryBillRepo stores copies of bills so callers cannot mutate stored state
// without going through SaveWithLock, the same way a database behaves
type memoryBillRepo struct {
	mu    sync.Mutex
	bills map[uuid.UUID]*finance.Bill

	// failSave makes SaveWithLock fail for the given bill ids
	failSave map[uuid.UUID]error
	// beforeSave runs before every SaveWithLock, outside the lock
	beforeSave func(bill *finance.Bill)
}

func newMemoryBillRepo() *memoryBillRepo {
	return &memoryBillRepo{
		bills:    make(map[uuid.UUID]*finance.Bill),
		failSave: make(map[uuid.UUID]error),
	}
}

func cloneBill(b *finance.Bill) *finance.Bill {
	c := *b
	c.ClearDomainEvents()
	return &c
}

func (r *memoryBillRepo) get(id uuid.UUID) *finance.Bill {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.bills[id]; ok {
		return cloneBill(b)
	}
	return nil
}

func (r *memoryBillRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.bills)
}

func (r *memoryBillRepo) snapshot() map[uuid.UUID]*finance.Bill {
	r.mu.Lock()
	defer r.mu.Unlock()
	snap := make(map[uuid.UUID]*finance.Bill, len(r.bills))
	for id, b := range r.bills {
		snap[id] = cloneBill(b)
	}
	return snap
}

func (r *memoryBillRepo) restore(snap map[uuid.UUID]*finance.Bill) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bills = snap
}

func (r *memoryBillRepo) FindByIDForTenant(_ context.Context, tenantID, id uuid.UUID) (*finance.Bill, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bills[id]
	if !ok || b.TenantID != tenantID {
		return nil, shared.ErrNotFound
	}
	return cloneBill(b), nil
}

func (r *memoryBillRepo) FindByIDsForTenant(_ context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]*finance.Bill, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*finance.Bill
	for _, id := range ids {
		if b, ok := r.bills[id]; ok && b.TenantID == tenantID {
			out = append(out, cloneBill(b))
		}
	}
	return out, nil
}

func (r *memoryBillRepo) FindChain(_ context.Context, tenantID, anchorID uuid.UUID) ([]*finance.Bill, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*finance.Bill
	for _, b := range r.bills {
		if b.TenantID != tenantID {
			continue
		}
		if b.ID == anchorID || (b.ParentID != nil && *b.ParentID == anchorID) {
			out = append(out, cloneBill(b))
		}
	}
	finance.SortChain(out)
	return out, nil
}

func (r *memoryBillRepo) matching(tenantID uuid.UUID, f finance.BillFilter) []*finance.Bill {
	var out []*finance.Bill
	for _, b := range r.bills {
		if b.TenantID != tenantID {
			continue
		}
		if f.Status != nil && b.Status != *f.Status {
			continue
		}
		if f.Type != nil && b.Type != *f.Type {
			continue
		}
		if f.ParentID != nil && (b.ParentID == nil || *b.ParentID != *f.ParentID) {
			continue
		}
		if f.DueFrom != nil && b.DueDate.Before(*f.DueFrom) {
			continue
		}
		if f.DueTo != nil && b.DueDate.After(*f.DueTo) {
			continue
		}
		out = append(out, cloneBill(b))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DueDate.Equal(out[j].DueDate) {
			return out[i].InstallmentNumber < out[j].InstallmentNumber
		}
		return out[i].DueDate.Before(out[j].DueDate)
	})
	return out
}

func (r *memoryBillRepo) FindAllForTenant(_ context.Context, tenantID uuid.UUID, f finance.BillFilter) ([]*finance.Bill, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := r.matching(tenantID, f)
	start := f.Offset()
	if start >= len(all) {
		return []*finance.Bill{}, nil
	}
	end := start + f.PageSize
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], nil
}

func (r *memoryBillRepo) CountForTenant(_ context.Context, tenantID uuid.UUID, f finance.BillFilter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.matching(tenantID, f))), nil
}

func (r *memoryBillRepo) FindOverdueCandidates(_ context.Context, tenantID uuid.UUID, before time.Time, limit int) ([]*finance.Bill, error) {
	status := finance.BillStatusPending
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*finance.Bill
	for _, b := range r.matching(tenantID, finance.BillFilter{Status: &status}) {
		if b.DueDate.Before(before) {
			out = append(out, b)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memoryBillRepo) FindTenantsWithOverdueCandidates(_ context.Context, before time.Time) ([]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := make(map[uuid.UUID]bool)
	var out []uuid.UUID
	for _, b := range r.bills {
		if b.Status == finance.BillStatusPending && b.DueDate.Before(before) && !seen[b.TenantID] {
			seen[b.TenantID] = true
			out = append(out, b.TenantID)
		}
	}
	return out, nil
}

func (r *memoryBillRepo) CreateBatch(_ context.Context, bills []*finance.Bill) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range bills {
		r.bills[b.ID] = cloneBill(b)
	}
	return nil
}

func (r *memoryBillRepo) SaveWithLock(_ context.Context, bill *finance.Bill) error {
	if r.beforeSave != nil {
		r.beforeSave(bill)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err, ok := r.failSave[bill.ID]; ok {
		return err
	}
	stored, ok := r.bills[bill.ID]
	if !ok {
		return shared.ErrNotFound
	}
	if stored.Version != bill.Version-1 {
		return shared.ErrConcurrencyConflict
	}
	r.bills[bill.ID] = cloneBill(bill)
	return nil
}

func (r *memoryBillRepo) DeleteWithLock(_ context.Context, bill *finance.Bill) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.bills[bill.ID]
	if !ok {
		return shared.ErrNotFound
	}
	if stored.Version != bill.Version {
		return shared.ErrConcurrencyConflict
	}
	delete(r.bills, bill.ID)
	return nil
}

type memoryPaymentMethodRepo struct {
	mu      sync.Mutex
	methods map[uuid.UUID]*finance.PaymentMethod
}

func newMemoryPaymentMethodRepo(methods ...*finance.PaymentMethod) *memoryPaymentMethodRepo {
	r := &memoryPaymentMethodRepo{methods: make(map[uuid.UUID]*finance.PaymentMethod)}
	for _, m := range methods {
		r.methods[m.ID] = m
	}
	return r
}

func (r *memoryPaymentMethodRepo) FindByIDForTenant(_ context.Context, tenantID, id uuid.UUID) (*finance.PaymentMethod, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.methods[id]
	if !ok || m.TenantID != tenantID {
		return nil, shared.ErrNotFound
	}
	c := *m
	return &c, nil
}

func (r *memoryPaymentMethodRepo) FindAllForTenant(_ context.Context, tenantID uuid.UUID, f finance.PaymentMethodFilter) ([]*finance.PaymentMethod, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*finance.PaymentMethod
	for _, m := range r.methods {
		if m.TenantID != tenantID || (f.ActiveOnly && !m.IsActive) {
			continue
		}
		c := *m
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *memoryPaymentMethodRepo) Save(_ context.Context, m *finance.PaymentMethod) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *m
	r.methods[m.ID] = &c
	return nil
}

// memoryTxScope restores the bill store when fn fails
type memoryTxScope struct {
	bills   *memoryBillRepo
	methods *memoryPaymentMethodRepo
}

func (s *memoryTxScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	snap := s.bills.snapshot()
	if err := fn(s); err != nil {
		s.bills.restore(snap)
		return err
	}
	return nil
}

func (s *memoryTxScope) BillRepo() finance.BillRepository                  { return s.bills }
func (s *memoryTxScope) PaymentMethodRepo() finance.PaymentMethodRepository { return s.methods }

// =============================================================================
// Mocks
// =============================================================================

// MockChangeNotifier is a mock implementation of ChangeNotifier
type MockChangeNotifier struct {
	mock.Mock
}

func (m *MockChangeNotifier) NotifyChanged(ctx context.Context, tenantID uuid.UUID, tag string) error {
	args := m.Called(ctx, tenantID, tag)
	return args.Error(0)
}

// MockEventPublisher is a mock implementation of shared.EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

// memoryIdempotencyStore is a goroutine-safe store without expiry
type memoryIdempotencyStore struct {
	mu   sync.Mutex
	keys map[string]bool
}

func newMemoryIdempotencyStore() *memoryIdempotencyStore {
	return &memoryIdempotencyStore{keys: make(map[string]bool)}
}

func (s *memoryIdempotencyStore) MarkProcessed(_ context.Context, key string, _ time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.keys[key] {
		return false, nil
	}
	s.keys[key] = true
	return true, nil
}

func (s *memoryIdempotencyStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keys, key)
	return nil
}

func (s *memoryIdempotencyStore) Close() error { return nil }

// MockIdempotencyStore is a mock implementation of shared.IdempotencyStore
type MockIdempotencyStore struct {
	mock.Mock
}

func (m *MockIdempotencyStore) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, key, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) Release(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *MockIdempotencyStore) Close() error {
	return m.Called().Error(0)
}

// =============================================================================
// Fixture
// =============================================================================

type serviceFixture struct {
	bills     *memoryBillRepo
	methods   *memoryPaymentMethodRepo
	notifier  *MockChangeNotifier
	publisher *MockEventPublisher
	clock     *shared.FixedClock
	tc        shared.TenantContext
	service   *BillService
}

// newServiceFixture builds a BillService whose clock reads 2024-03-15 10:00 UTC.
// Notifier and publisher accept any call unless a test overrides them.
func newServiceFixture(opts ...BillServiceOption) *serviceFixture {
	f := &serviceFixture{
		bills:     newMemoryBillRepo(),
		methods:   newMemoryPaymentMethodRepo(),
		notifier:  new(MockChangeNotifier),
		publisher: new(MockEventPublisher),
		clock:     shared.NewFixedClock(time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)),
		tc:        shared.NewTenantContext(uuid.New(), uuid.New()),
	}
	base := []BillServiceOption{
		WithClock(f.clock),
		WithChangeNotifier(f.notifier),
		WithEventPublisher(f.publisher),
		WithSweepBatchSize(2),
	}
	f.service = NewBillService(f.bills, f.methods,
		&memoryTxScope{bills: f.bills, methods: f.methods},
		append(base, opts...)...)
	return f
}

func (f *serviceFixture) acceptSideEffects() {
	f.notifier.On("NotifyChanged", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	f.publisher.On("Publish", mock.Anything, mock.Anything).Return(nil).Maybe()
}
