package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	appfinance "github.com/academy/backend/internal/application/finance"
	"github.com/academy/backend/internal/domain/shared"
	"github.com/academy/backend/internal/interfaces/http/dto"
	"github.com/academy/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type mockBillService struct {
	mock.Mock
}

func (m *mockBillService) CreateBill(ctx context.Context, tc shared.TenantContext, req appfinance.CreateBillRequest) ([]appfinance.BillResponse, error) {
	args := m.Called(ctx, tc, req)
	if v := args.Get(0); v != nil {
		return v.([]appfinance.BillResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockBillService) GetBill(ctx context.Context, tc shared.TenantContext, id uuid.UUID) (*appfinance.BillResponse, error) {
	args := m.Called(ctx, tc, id)
	if v := args.Get(0); v != nil {
		return v.(*appfinance.BillResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockBillService) GetChain(ctx context.Context, tc shared.TenantContext, id uuid.UUID) ([]appfinance.BillResponse, error) {
	args := m.Called(ctx, tc, id)
	if v := args.Get(0); v != nil {
		return v.([]appfinance.BillResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockBillService) ListBills(ctx context.Context, tc shared.TenantContext, filter appfinance.BillListFilter) ([]appfinance.BillResponse, int64, error) {
	args := m.Called(ctx, tc, filter)
	if v := args.Get(0); v != nil {
		return v.([]appfinance.BillResponse), args.Get(1).(int64), args.Error(2)
	}
	return nil, 0, args.Error(2)
}

func (m *mockBillService) UpdateBill(ctx context.Context, tc shared.TenantContext, id uuid.UUID, req appfinance.UpdateBillRequest) (*appfinance.BillResponse, error) {
	args := m.Called(ctx, tc, id, req)
	if v := args.Get(0); v != nil {
		return v.(*appfinance.BillResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockBillService) PayBill(ctx context.Context, tc shared.TenantContext, id uuid.UUID, req appfinance.PayBillRequest) (*appfinance.BillResponse, error) {
	args := m.Called(ctx, tc, id, req)
	if v := args.Get(0); v != nil {
		return v.(*appfinance.BillResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockBillService) ReportReceipt(ctx context.Context, tc shared.TenantContext, id uuid.UUID, req appfinance.ReportReceiptRequest) (*appfinance.BillResponse, error) {
	args := m.Called(ctx, tc, id, req)
	if v := args.Get(0); v != nil {
		return v.(*appfinance.BillResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockBillService) CancelBill(ctx context.Context, tc shared.TenantContext, id uuid.UUID, req appfinance.CancelBillRequest) (*appfinance.BillResponse, error) {
	args := m.Called(ctx, tc, id, req)
	if v := args.Get(0); v != nil {
		return v.(*appfinance.BillResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockBillService) DeleteBills(ctx context.Context, tc shared.TenantContext, req appfinance.DeleteBillsRequest) (*appfinance.DeleteBillsResult, error) {
	args := m.Called(ctx, tc, req)
	if v := args.Get(0); v != nil {
		return v.(*appfinance.DeleteBillsResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockBillService) SweepOverdue(ctx context.Context, tc shared.TenantContext) (*appfinance.SweepResult, error) {
	args := m.Called(ctx, tc)
	if v := args.Get(0); v != nil {
		return v.(*appfinance.SweepResult), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockPaymentMethodService struct {
	mock.Mock
}

func (m *mockPaymentMethodService) Create(ctx context.Context, tc shared.TenantContext, req appfinance.CreatePaymentMethodRequest) (*appfinance.PaymentMethodResponse, error) {
	args := m.Called(ctx, tc, req)
	if v := args.Get(0); v != nil {
		return v.(*appfinance.PaymentMethodResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockPaymentMethodService) Get(ctx context.Context, tc shared.TenantContext, id uuid.UUID) (*appfinance.PaymentMethodResponse, error) {
	args := m.Called(ctx, tc, id)
	if v := args.Get(0); v != nil {
		return v.(*appfinance.PaymentMethodResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockPaymentMethodService) Deactivate(ctx context.Context, tc shared.TenantContext, id uuid.UUID) (*appfinance.PaymentMethodResponse, error) {
	args := m.Called(ctx, tc, id)
	if v := args.Get(0); v != nil {
		return v.(*appfinance.PaymentMethodResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockPaymentMethodService) List(ctx context.Context, tc shared.TenantContext, activeOnly bool) ([]appfinance.PaymentMethodResponse, error) {
	args := m.Called(ctx, tc, activeOnly)
	if v := args.Get(0); v != nil {
		return v.([]appfinance.PaymentMethodResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

// newTestRouter mounts routes behind a stub that installs tc, the way the
// tenant middleware does
func newTestRouter(tc *shared.TenantContext, register func(rg *gin.RouterGroup)) *gin.Engine {
	router := gin.New()
	router.Use(func(c *gin.Context) {
		if tc != nil {
			c.Set(middleware.TenantContextKey, *tc)
		}
		c.Next()
	})
	register(router.Group("/api/v1"))
	return router
}

func doRequest(t *testing.T, router http.Handler, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *dto.ErrorInfo  `json:"error"`
	Meta    *dto.Meta       `json:"meta"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}
