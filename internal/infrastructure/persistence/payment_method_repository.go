package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/academy/backend/internal/domain/finance"
	"github.com/academy/backend/internal/domain/shared"
	"github.com/academy/backend/internal/infrastructure/persistence/models"
	"github.com/academy/backend/internal/infrastructure/persistence/tenant"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormPaymentMethodRepository implements PaymentMethodRepository using GORM
type GormPaymentMethodRepository struct {
	db *gorm.DB
}

// NewGormPaymentMethodRepository creates a new GormPaymentMethodRepository
func NewGormPaymentMethodRepository(db *gorm.DB) *GormPaymentMethodRepository {
	return &GormPaymentMethodRepository{db: db}
}

// FindByIDForTenant finds a form of receipt by ID for a specific tenant
func (r *GormPaymentMethodRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*finance.PaymentMethod, error) {
	var model models.PaymentMethodModel
	err := tenant.Scoped(r.db.WithContext(ctx), tenantID).Where("id = ?", id).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find payment method: %w", err)
	}
	return model.ToDomain(), nil
}

// FindAllForTenant lists the tenant's forms of receipt
func (r *GormPaymentMethodRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter finance.PaymentMethodFilter) ([]*finance.PaymentMethod, error) {
	query := tenant.Scoped(r.db.WithContext(ctx).Model(&models.PaymentMethodModel{}), tenantID)
	if filter.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		query = query.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(search)+"%")
	}

	orderBy := ValidateSortField(filter.OrderBy, PaymentMethodSortFields, "name")
	orderDir := "ASC"
	if strings.TrimSpace(filter.OrderDir) != "" {
		orderDir = ValidateSortOrder(filter.OrderDir)
	}
	query = query.Order(fmt.Sprintf("%s %s", orderBy, orderDir)).Order("id ASC")
	if filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}

	var rows []models.PaymentMethodModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list payment methods: %w", err)
	}
	methods := make([]*finance.PaymentMethod, len(rows))
	for i := range rows {
		methods[i] = rows[i].ToDomain()
	}
	return methods, nil
}

// Save creates or updates a form of receipt
func (r *GormPaymentMethodRepository) Save(ctx context.Context, method *finance.PaymentMethod) error {
	if method.TenantID == uuid.Nil {
		return tenant.ErrTenantIDRequired
	}
	model := models.PaymentMethodModelFromDomain(method)
	if err := r.db.WithContext(ctx).Save(model).Error; err != nil {
		return fmt.Errorf("failed to save payment method: %w", err)
	}
	return nil
}

// Ensure GormPaymentMethodRepository implements PaymentMethodRepository
var _ finance.PaymentMethodRepository = (*GormPaymentMethodRepository)(nil)
