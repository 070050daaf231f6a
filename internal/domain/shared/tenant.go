package shared

import "github.com/google/uuid"

// TenantContext identifies who is calling. Every finance operation takes one
// explicitly instead of reading ambient session state.
type TenantContext struct {
	TenantID uuid.UUID
	UserID   uuid.UUID
}

// NewTenantContext builds a TenantContext
func NewTenantContext(tenantID, userID uuid.UUID) TenantContext {
	return TenantContext{TenantID: tenantID, UserID: userID}
}

// Validate rejects a context without a tenant
func (tc TenantContext) Validate() error {
	if tc.TenantID == uuid.Nil {
		return NewValidationError("tenant ID is required")
	}
	return nil
}
