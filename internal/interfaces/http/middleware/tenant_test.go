package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/academy/backend/internal/domain/shared"
	"github.com/academy/backend/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tenantCapture struct {
	tc       shared.TenantContext
	found    bool
	ctxAfter uuid.UUID
}

func newTenantRouter(cfg TenantMiddlewareConfig, jwtTenant, jwtUser string, capture *tenantCapture) *gin.Engine {
	router := gin.New()
	router.Use(func(c *gin.Context) {
		if jwtTenant != "" {
			c.Set(JWTTenantIDKey, jwtTenant)
			c.Set(JWTUserIDKey, jwtUser)
		}
		c.Next()
	})
	router.Use(TenantMiddlewareWithConfig(cfg))
	handler := func(c *gin.Context) {
		capture.tc, capture.found = GetTenantContext(c)
		capture.ctxAfter = logger.GetTenantID(c.Request.Context())
		c.Status(http.StatusOK)
	}
	router.GET("/test", handler)
	router.GET("/health", handler)
	return router
}

func TestTenantMiddleware_JWTExtraction(t *testing.T) {
	tenantID, userID := uuid.New(), uuid.New()
	var capture tenantCapture

	w := httptest.NewRecorder()
	newTenantRouter(DefaultTenantConfig(), tenantID.String(), userID.String(), &capture).
		ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, capture.found)
	assert.Equal(t, tenantID, capture.tc.TenantID)
	assert.Equal(t, userID, capture.tc.UserID)
	assert.Equal(t, tenantID, capture.ctxAfter)
}

func TestTenantMiddleware_HeaderExtraction(t *testing.T) {
	tenantID, userID := uuid.New(), uuid.New()

	t.Run("header ignored unless enabled", func(t *testing.T) {
		var capture tenantCapture
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(TenantHeaderKey, tenantID.String())
		w := httptest.NewRecorder()
		newTenantRouter(DefaultTenantConfig(), "", "", &capture).ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, shared.CodeUnauthorized, decodeError(t, w).Code)
	})

	t.Run("header used when enabled", func(t *testing.T) {
		cfg := DefaultTenantConfig()
		cfg.HeaderEnabled = true
		var capture tenantCapture
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(TenantHeaderKey, tenantID.String())
		req.Header.Set(UserHeaderKey, userID.String())
		w := httptest.NewRecorder()
		newTenantRouter(cfg, "", "", &capture).ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, shared.NewTenantContext(tenantID, userID), capture.tc)
	})

	t.Run("header without user acts as nil user", func(t *testing.T) {
		cfg := DefaultTenantConfig()
		cfg.HeaderEnabled = true
		var capture tenantCapture
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(TenantHeaderKey, tenantID.String())
		w := httptest.NewRecorder()
		newTenantRouter(cfg, "", "", &capture).ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, uuid.Nil, capture.tc.UserID)
	})
}

func TestTenantMiddleware_JWTOverridesHeader(t *testing.T) {
	jwtTenant, headerTenant := uuid.New(), uuid.New()
	cfg := DefaultTenantConfig()
	cfg.HeaderEnabled = true
	var capture tenantCapture

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(TenantHeaderKey, headerTenant.String())
	w := httptest.NewRecorder()
	newTenantRouter(cfg, jwtTenant.String(), uuid.NewString(), &capture).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, jwtTenant, capture.tc.TenantID)
}

func TestTenantMiddleware_InvalidIDs(t *testing.T) {
	cfg := DefaultTenantConfig()
	cfg.HeaderEnabled = true

	for name, headers := range map[string]map[string]string{
		"not a uuid":   {TenantHeaderKey: "school-1"},
		"nil uuid":     {TenantHeaderKey: uuid.Nil.String()},
		"bad user id":  {TenantHeaderKey: uuid.NewString(), UserHeaderKey: "admin"},
		"missing both": {},
	} {
		t.Run(name, func(t *testing.T) {
			var capture tenantCapture
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			for k, v := range headers {
				req.Header.Set(k, v)
			}
			w := httptest.NewRecorder()
			newTenantRouter(cfg, "", "", &capture).ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.False(t, capture.found)
		})
	}
}

func TestTenantMiddleware_SkipPaths(t *testing.T) {
	var capture tenantCapture
	w := httptest.NewRecorder()
	newTenantRouter(DefaultTenantConfig(), "", "", &capture).
		ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.False(t, capture.found)
}
