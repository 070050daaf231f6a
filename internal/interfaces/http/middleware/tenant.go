package middleware

import (
	"net/http"

	"github.com/academy/backend/internal/domain/shared"
	"github.com/academy/backend/internal/infrastructure/logger"
	"github.com/academy/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Tenant headers and context keys
const (
	TenantHeaderKey  = "X-Tenant-ID"
	UserHeaderKey    = "X-User-ID"
	TenantContextKey = "tenant_context"
)

// TenantMiddlewareConfig holds configuration for tenant middleware
type TenantMiddlewareConfig struct {
	// HeaderEnabled allows X-Tenant-ID / X-User-ID when no JWT claim is
	// present. Production deployments run with JWT and leave this off.
	HeaderEnabled bool
	// SkipPaths are paths that don't require tenant context
	SkipPaths []string
	// Logger for middleware logging
	Logger *zap.Logger
}

// DefaultTenantConfig returns default tenant middleware configuration
func DefaultTenantConfig() TenantMiddlewareConfig {
	return TenantMiddlewareConfig{
		HeaderEnabled: false,
		SkipPaths:     []string{"/health"},
	}
}

// TenantMiddlewareWithConfig resolves the caller's shared.TenantContext.
// The JWT tenant claim wins over the X-Tenant-ID header. A request without a
// tenant is answered with UNAUTHORIZED.
func TenantMiddlewareWithConfig(cfg TenantMiddlewareConfig) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = struct{}{}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		if _, ok := skip[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		rawTenant, rawUser := GetJWTTenantID(c), GetJWTUserID(c)
		method := "jwt"
		if rawTenant == "" && cfg.HeaderEnabled {
			rawTenant, rawUser = c.GetHeader(TenantHeaderKey), c.GetHeader(UserHeaderKey)
			method = "header"
		}

		if rawTenant == "" {
			respondUnauthorized(c, "Tenant identification required")
			return
		}
		tenantID, err := uuid.Parse(rawTenant)
		if err != nil || tenantID == uuid.Nil {
			respondUnauthorized(c, "Invalid tenant ID format")
			return
		}
		userID := uuid.Nil
		if rawUser != "" {
			if userID, err = uuid.Parse(rawUser); err != nil {
				respondUnauthorized(c, "Invalid user ID format")
				return
			}
		}

		c.Set(TenantContextKey, shared.NewTenantContext(tenantID, userID))
		c.Request = c.Request.WithContext(logger.WithTenant(c.Request.Context(), tenantID, userID))

		cfg.Logger.Debug("Tenant identified",
			zap.String("tenant_id", tenantID.String()),
			zap.String("method", method),
		)
		c.Next()
	}
}

func respondUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(shared.CodeUnauthorized, message))
}

// GetTenantContext retrieves the tenant context resolved by the tenant
// middleware
func GetTenantContext(c *gin.Context) (shared.TenantContext, bool) {
	if v, exists := c.Get(TenantContextKey); exists {
		if tc, ok := v.(shared.TenantContext); ok {
			return tc, true
		}
	}
	return shared.TenantContext{}, false
}
