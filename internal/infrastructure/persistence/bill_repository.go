package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/academy/backend/internal/domain/finance"
	"github.com/academy/backend/internal/domain/shared"
	"github.com/academy/backend/internal/infrastructure/persistence/models"
	"github.com/academy/backend/internal/infrastructure/persistence/tenant"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// createBatchSize bounds the rows per INSERT when a chain is created
const createBatchSize = 100

// GormBillRepository implements BillRepository using GORM
type GormBillRepository struct {
	db *gorm.DB
}

// NewGormBillRepository creates a new GormBillRepository
func NewGormBillRepository(db *gorm.DB) *GormBillRepository {
	return &GormBillRepository{db: db}
}

// WithTx returns a new repository with the given transaction
func (r *GormBillRepository) WithTx(tx *gorm.DB) *GormBillRepository {
	return &GormBillRepository{db: tx}
}

func (r *GormBillRepository) scoped(ctx context.Context, tenantID uuid.UUID) *gorm.DB {
	return tenant.Scoped(r.db.WithContext(ctx).Model(&models.BillModel{}), tenantID)
}

// FindByIDForTenant finds a bill by ID for a specific tenant
func (r *GormBillRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*finance.Bill, error) {
	var model models.BillModel
	if err := r.scoped(ctx, tenantID).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find bill: %w", err)
	}
	return model.ToDomain(), nil
}

// FindByIDsForTenant finds several bills; ids that do not exist are absent from the result
func (r *GormBillRepository) FindByIDsForTenant(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]*finance.Bill, error) {
	if len(ids) == 0 {
		return []*finance.Bill{}, nil
	}
	var rows []models.BillModel
	if err := r.scoped(ctx, tenantID).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to find bills: %w", err)
	}
	return toBills(rows), nil
}

// FindChain returns the anchor and its members ordered by installment number
func (r *GormBillRepository) FindChain(ctx context.Context, tenantID, anchorID uuid.UUID) ([]*finance.Bill, error) {
	var rows []models.BillModel
	err := r.scoped(ctx, tenantID).
		Where(r.db.Where("id = ?", anchorID).Or("parent_id = ?", anchorID)).
		Order("installment_number ASC").
		Order("due_date ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load chain: %w", err)
	}
	bills := toBills(rows)
	finance.SortChain(bills)
	return bills, nil
}

// FindAllForTenant lists bills with filtering and pagination
func (r *GormBillRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter finance.BillFilter) ([]*finance.Bill, error) {
	query := r.applyFilter(r.scoped(ctx, tenantID), filter)

	orderBy := ValidateSortField(filter.OrderBy, BillSortFields, "due_date")
	orderDir := ValidateSortOrder(filter.OrderDir)
	query = query.Order(fmt.Sprintf("%s %s", orderBy, orderDir)).
		Order("installment_number ASC").
		Order("id ASC")

	if filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}

	var rows []models.BillModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list bills: %w", err)
	}
	return toBills(rows), nil
}

// CountForTenant counts bills matching the filter
func (r *GormBillRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter finance.BillFilter) (int64, error) {
	var count int64
	if err := r.applyFilter(r.scoped(ctx, tenantID), filter).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count bills: %w", err)
	}
	return count, nil
}

func (r *GormBillRepository) applyFilter(query *gorm.DB, filter finance.BillFilter) *gorm.DB {
	if filter.Type != nil {
		query = query.Where("type = ?", *filter.Type)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.DueFrom != nil {
		query = query.Where("due_date >= ?", shared.DateOf(*filter.DueFrom))
	}
	if filter.DueTo != nil {
		query = query.Where("due_date <= ?", shared.DateOf(*filter.DueTo))
	}
	if filter.ParentID != nil {
		query = query.Where("parent_id = ?", *filter.ParentID)
	}
	if filter.SupplierID != nil {
		query = query.Where("supplier_id = ?", *filter.SupplierID)
	}
	if filter.CategoryID != nil {
		query = query.Where("category_id = ?", *filter.CategoryID)
	}
	if filter.SaleID != nil {
		query = query.Where("sale_id = ?", *filter.SaleID)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		query = query.Where("LOWER(description) LIKE ?", "%"+strings.ToLower(search)+"%")
	}
	return query
}

// FindOverdueCandidates returns PENDING bills due strictly before the given
// date, oldest first
func (r *GormBillRepository) FindOverdueCandidates(ctx context.Context, tenantID uuid.UUID, before time.Time, limit int) ([]*finance.Bill, error) {
	var rows []models.BillModel
	err := r.scoped(ctx, tenantID).
		Where("status = ? AND due_date < ?", finance.BillStatusPending, shared.DateOf(before)).
		Order("due_date ASC").
		Order("id ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find overdue candidates: %w", err)
	}
	return toBills(rows), nil
}

// FindTenantsWithOverdueCandidates lists tenants owning at least one PENDING
// bill due before the given date. This is the only cross-tenant query.
func (r *GormBillRepository) FindTenantsWithOverdueCandidates(ctx context.Context, before time.Time) ([]uuid.UUID, error) {
	var tenantIDs []uuid.UUID
	err := r.db.WithContext(ctx).Model(&models.BillModel{}).
		Where("status = ? AND due_date < ?", finance.BillStatusPending, shared.DateOf(before)).
		Distinct().
		Order(tenant.Column).
		Pluck(tenant.Column, &tenantIDs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants with overdue bills: %w", err)
	}
	return tenantIDs, nil
}

// CreateBatch inserts all bills of a chain or none
func (r *GormBillRepository) CreateBatch(ctx context.Context, bills []*finance.Bill) error {
	if len(bills) == 0 {
		return nil
	}
	rows := make([]*models.BillModel, len(bills))
	for i, b := range bills {
		rows[i] = models.BillModelFromDomain(b)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.CreateInBatches(rows, createBatchSize).Error; err != nil {
			return fmt.Errorf("failed to create bills: %w", err)
		}
		return nil
	})
}

// SaveWithLock writes every mutable column of bill when the stored row is
// still at Version-1
func (r *GormBillRepository) SaveWithLock(ctx context.Context, bill *finance.Bill) error {
	model := models.BillModelFromDomain(bill)
	result := r.scoped(ctx, bill.TenantID).
		Where("id = ? AND version = ?", bill.ID, bill.Version-1).
		Select("*").
		Omit("id", "tenant_id", "created_at", "created_by").
		Updates(model)
	if result.Error != nil {
		return fmt.Errorf("failed to save bill: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return r.lockFailure(ctx, bill)
	}
	return nil
}

// DeleteWithLock removes bill when the stored row is still at bill.Version
func (r *GormBillRepository) DeleteWithLock(ctx context.Context, bill *finance.Bill) error {
	result := tenant.Scoped(r.db.WithContext(ctx), bill.TenantID).
		Where("id = ? AND version = ?", bill.ID, bill.Version).
		Delete(&models.BillModel{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete bill: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return r.lockFailure(ctx, bill)
	}
	return nil
}

// lockFailure tells a vanished row from a row another writer moved on
func (r *GormBillRepository) lockFailure(ctx context.Context, bill *finance.Bill) error {
	var count int64
	if err := r.scoped(ctx, bill.TenantID).Where("id = ?", bill.ID).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check bill: %w", err)
	}
	if count == 0 {
		return shared.ErrNotFound
	}
	return shared.ErrConcurrencyConflict
}

func toBills(rows []models.BillModel) []*finance.Bill {
	bills := make([]*finance.Bill, len(rows))
	for i := range rows {
		bills[i] = rows[i].ToDomain()
	}
	return bills
}

// Ensure GormBillRepository implements BillRepository
var _ finance.BillRepository = (*GormBillRepository)(nil)
