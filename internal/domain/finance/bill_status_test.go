package finance

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBillStatus_IsValid(t *testing.T) {
	for _, s := range AllBillStatuses() {
		assert.True(t, s.IsValid(), s)
	}
	assert.False(t, BillStatus("PARTIALLY_PAID").IsValid())
	assert.False(t, BillStatus("").IsValid())
}

func TestBillStatus_IsTerminal(t *testing.T) {
	tests := []struct {
		status   BillStatus
		expected bool
	}{
		{BillStatusPending, false},
		{BillStatusOverdue, false},
		{BillStatusAwaitingReceipt, false},
		{BillStatusPaid, true},
		{BillStatusCancelled, true},
	}
	for _, tc := range tests {
		t.Run(tc.status.String(), func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.status.IsTerminal())
		})
	}
}

func TestBillStatus_CanTransitionTo(t *testing.T) {
	legal := map[BillStatus][]BillStatus{
		BillStatusPending:         {BillStatusOverdue, BillStatusAwaitingReceipt, BillStatusPaid, BillStatusCancelled},
		BillStatusOverdue:         {BillStatusPaid, BillStatusCancelled},
		BillStatusAwaitingReceipt: {BillStatusPaid, BillStatusCancelled},
	}

	for _, from := range AllBillStatuses() {
		for _, to := range AllBillStatuses() {
			want := false
			for _, l := range legal[from] {
				if l == to {
					want = true
				}
			}
			assert.Equal(t, want, from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
}

func TestBillStatus_TerminalStatesHaveNoExits(t *testing.T) {
	for _, to := range AllBillStatuses() {
		assert.False(t, BillStatusPaid.CanTransitionTo(to))
		assert.False(t, BillStatusCancelled.CanTransitionTo(to))
	}
}

func TestBillType_IsValid(t *testing.T) {
	assert.True(t, BillTypePayable.IsValid())
	assert.True(t, BillTypeReceivable.IsValid())
	assert.False(t, BillType("OTHER").IsValid())
}
