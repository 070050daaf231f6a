package finance

import (
	"context"
	"testing"
	"time"

	"github.com/academy/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newPaymentMethodService() (*PaymentMethodService, *MockChangeNotifier, shared.TenantContext) {
	notifier := new(MockChangeNotifier)
	clock := shared.NewFixedClock(time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC))
	svc := NewPaymentMethodService(newMemoryPaymentMethodRepo(), notifier, clock, nil)
	return svc, notifier, shared.NewTenantContext(uuid.New(), uuid.New())
}

func TestPaymentMethodService_Create(t *testing.T) {
	svc, notifier, tc := newPaymentMethodService()
	notifier.On("NotifyChanged", mock.Anything, tc.TenantID, TagPaymentMethods).Return(nil).Once()

	resp, err := svc.Create(context.Background(), tc, CreatePaymentMethodRequest{
		Name:          "  Boleto ",
		FeePercentage: decimal.RequireFromString("1.99"),
		ReceiveInDays: 2,
	})

	require.NoError(t, err)
	assert.Equal(t, "Boleto", resp.Name)
	assert.Equal(t, "1.99", resp.FeePercentage.String())
	assert.True(t, resp.IsActive)
	notifier.AssertExpectations(t)

	got, err := svc.Get(context.Background(), tc, resp.ID)
	require.NoError(t, err)
	assert.Equal(t, resp.ID, got.ID)
}

func TestPaymentMethodService_Create_Validation(t *testing.T) {
	tests := []struct {
		name string
		req  CreatePaymentMethodRequest
	}{
		{"empty name", CreatePaymentMethodRequest{Name: ""}},
		{"blank name", CreatePaymentMethodRequest{Name: "   "}},
		{"negative fee", CreatePaymentMethodRequest{Name: "Pix", FeePercentage: decimal.NewFromInt(-1)}},
		{"fee above 100", CreatePaymentMethodRequest{Name: "Pix", FeePercentage: decimal.NewFromInt(101)}},
		{"days above a year", CreatePaymentMethodRequest{Name: "Pix", ReceiveInDays: 400}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, tc := newPaymentMethodService()

			_, err := svc.Create(context.Background(), tc, tt.req)

			assert.True(t, shared.HasCode(err, shared.CodeValidation), "got %v", err)
		})
	}
}

func TestPaymentMethodService_ListIsTenantScoped(t *testing.T) {
	svc, notifier, tc := newPaymentMethodService()
	notifier.On("NotifyChanged", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	other := shared.NewTenantContext(uuid.New(), uuid.New())

	for _, name := range []string{"Pix", "Card"} {
		_, err := svc.Create(context.Background(), tc, CreatePaymentMethodRequest{Name: name})
		require.NoError(t, err)
	}
	_, err := svc.Create(context.Background(), other, CreatePaymentMethodRequest{Name: "Cash"})
	require.NoError(t, err)

	list, err := svc.List(context.Background(), tc, true)

	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Card", list[0].Name)

	_, err = svc.Get(context.Background(), other, list[0].ID)
	assert.True(t, shared.HasCode(err, shared.CodeNotFound))
}

func TestPaymentMethodService_Deactivate(t *testing.T) {
	svc, notifier, tc := newPaymentMethodService()
	notifier.On("NotifyChanged", mock.Anything, tc.TenantID, TagPaymentMethods).Return(nil).Twice()
	created, err := svc.Create(context.Background(), tc, CreatePaymentMethodRequest{Name: "Boleto"})
	require.NoError(t, err)

	resp, err := svc.Deactivate(context.Background(), tc, created.ID)
	require.NoError(t, err)
	assert.False(t, resp.IsActive)

	again, err := svc.Deactivate(context.Background(), tc, created.ID)
	require.NoError(t, err)
	assert.False(t, again.IsActive)
	notifier.AssertExpectations(t)

	active, err := svc.List(context.Background(), tc, true)
	require.NoError(t, err)
	assert.Empty(t, active)

	other := shared.NewTenantContext(uuid.New(), uuid.New())
	_, err = svc.Deactivate(context.Background(), other, created.ID)
	assert.True(t, shared.HasCode(err, shared.CodeNotFound))
}
