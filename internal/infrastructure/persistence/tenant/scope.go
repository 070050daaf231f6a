// Package tenant scopes GORM queries to one tenant.
//
// Repositories never query a tenant table without going through Scoped, so a
// missing tenant turns into a query error instead of a cross-tenant read.
package tenant

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Column is the tenant discriminator column shared by all tenant tables
const Column = "tenant_id"

// ErrTenantIDRequired is returned when a scoped query is built without a tenant
var ErrTenantIDRequired = errors.New("tenant_id is required")

// TenantScope applies tenant filtering to GORM queries
func TenantScope(tenantID uuid.UUID) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(Column+" = ?", tenantID)
	}
}

// Scoped returns db filtered to tenantID. A nil tenant yields a DB that fails
// on execution with ErrTenantIDRequired.
func Scoped(db *gorm.DB, tenantID uuid.UUID) *gorm.DB {
	if tenantID == uuid.Nil {
		db = db.Session(&gorm.Session{})
		_ = db.AddError(ErrTenantIDRequired)
		return db
	}
	return db.Where(Column+" = ?", tenantID)
}
