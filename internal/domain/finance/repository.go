package finance

import (
	"context"
	"time"

	"github.com/academy/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// BillFilter defines filtering options for bill queries
type BillFilter struct {
	shared.Filter
	Type       *BillType   // Filter by payable/receivable
	Status     *BillStatus // Filter by status
	DueFrom    *time.Time  // Due date range start (inclusive)
	DueTo      *time.Time  // Due date range end (inclusive)
	ParentID   *uuid.UUID  // Members of a chain (excluding the anchor)
	SupplierID *uuid.UUID
	CategoryID *uuid.UUID
	SaleID     *uuid.UUID
}

// BillRepository defines the persistence contract for bills.
// Every method is tenant-scoped; a bill of another tenant is reported as
// shared.ErrNotFound.
type BillRepository interface {
	// FindByIDForTenant finds a bill by ID for a specific tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Bill, error)

	// FindByIDsForTenant finds several bills; missing ids are simply absent
	FindByIDsForTenant(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]*Bill, error)

	// FindChain returns the anchor and every member pointing at it,
	// ordered by installment number
	FindChain(ctx context.Context, tenantID, anchorID uuid.UUID) ([]*Bill, error)

	// FindAllForTenant lists bills with filtering and pagination
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter BillFilter) ([]*Bill, error)

	// CountForTenant counts bills matching the filter
	CountForTenant(ctx context.Context, tenantID uuid.UUID, filter BillFilter) (int64, error)

	// FindOverdueCandidates returns PENDING bills due strictly before the
	// given date, oldest first, at most limit rows
	FindOverdueCandidates(ctx context.Context, tenantID uuid.UUID, before time.Time, limit int) ([]*Bill, error)

	// FindTenantsWithOverdueCandidates lists tenants that have at least one
	// PENDING bill due strictly before the given date
	FindTenantsWithOverdueCandidates(ctx context.Context, before time.Time) ([]uuid.UUID, error)

	// CreateBatch inserts all bills or none
	CreateBatch(ctx context.Context, bills []*Bill) error

	// SaveWithLock updates a bill only if its stored version is Version-1;
	// otherwise it fails with shared.ErrConcurrencyConflict
	SaveWithLock(ctx context.Context, bill *Bill) error

	// DeleteWithLock removes a bill only if its stored version matches
	DeleteWithLock(ctx context.Context, bill *Bill) error
}

// PaymentMethodFilter defines filtering options for payment method queries
type PaymentMethodFilter struct {
	shared.Filter
	ActiveOnly bool
}

// PaymentMethodRepository defines the persistence contract for forms of receipt
type PaymentMethodRepository interface {
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*PaymentMethod, error)
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter PaymentMethodFilter) ([]*PaymentMethod, error)
	Save(ctx context.Context, method *PaymentMethod) error
}
