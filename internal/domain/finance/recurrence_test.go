package finance

import (
	"testing"
	"time"

	"github.com/academy/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestRecurrence_Months(t *testing.T) {
	tests := []struct {
		recurrence Recurrence
		months     int
	}{
		{RecurrenceNone, 0},
		{RecurrenceMonthly, 1},
		{RecurrenceBimonthly, 2},
		{RecurrenceQuarterly, 3},
		{RecurrenceSemiannual, 6},
		{RecurrenceAnnual, 12},
	}
	for _, tt := range tests {
		t.Run(tt.recurrence.String(), func(t *testing.T) {
			assert.True(t, tt.recurrence.IsValid())
			assert.Equal(t, tt.months, tt.recurrence.Months())
		})
	}
	assert.False(t, Recurrence("WEEKLY").IsValid())
}

func TestAddMonthsClamped(t *testing.T) {
	tests := []struct {
		name   string
		start  time.Time
		months int
		want   time.Time
	}{
		{"jan 31 to feb in non-leap year", date(2023, 1, 31), 1, date(2023, 2, 28)},
		{"jan 31 to feb in leap year", date(2024, 1, 31), 1, date(2024, 2, 29)},
		{"jan 31 to mar keeps the day", date(2024, 1, 31), 2, date(2024, 3, 31)},
		{"mar 31 to apr clamps to 30", date(2024, 3, 31), 1, date(2024, 4, 30)},
		{"aug 31 plus a quarter", date(2024, 8, 31), 3, date(2024, 11, 30)},
		{"crosses the year", date(2024, 11, 30), 3, date(2025, 2, 28)},
		{"feb 29 plus a year", date(2024, 2, 29), 12, date(2025, 2, 28)},
		{"mid month unchanged day", date(2024, 5, 15), 6, date(2024, 11, 15)},
		{"zero months", date(2024, 5, 15), 0, date(2024, 5, 15)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AddMonthsClamped(tt.start, tt.months))
		})
	}
}

func TestRecurrence_AdvanceNeverRollsIntoNextMonth(t *testing.T) {
	got := RecurrenceMonthly.Advance(date(2023, 1, 31), 1)
	assert.Equal(t, time.February, got.Month())
	assert.Equal(t, 28, got.Day())
}

func newTemplate() BillTemplate {
	return BillTemplate{
		Description:  "Monthly tuition",
		Type:         BillTypeReceivable,
		Amount:       decimal.NewFromInt(100),
		DueDate:      date(2024, 1, 31),
		Recurrence:   RecurrenceMonthly,
		Installments: 3,
	}
}

func testTenant() shared.TenantContext {
	return shared.NewTenantContext(uuid.New(), uuid.New())
}

func TestGenerateChain_MonthlyFromJan31(t *testing.T) {
	now := date(2024, 1, 10)
	chain, err := GenerateChain(testTenant(), newTemplate(), now)
	require.NoError(t, err)
	require.Len(t, chain, 3)

	assert.Equal(t, date(2024, 1, 31), chain[0].DueDate)
	assert.Equal(t, date(2024, 2, 29), chain[1].DueDate)
	assert.Equal(t, date(2024, 3, 31), chain[2].DueDate)

	anchor := chain[0]
	assert.True(t, anchor.IsAnchor())
	assert.Equal(t, 1, anchor.InstallmentNumber)
	for i, b := range chain {
		assert.Equal(t, i+1, b.InstallmentNumber)
		assert.Equal(t, 3, b.Installments)
		assert.Equal(t, BillStatusPending, b.Status)
		assert.Equal(t, anchor.ID, b.AnchorID())
		assert.Nil(t, b.AmountPaid)
		assert.Len(t, b.GetDomainEvents(), 1)
		assert.Equal(t, EventTypeBillCreated, b.GetDomainEvents()[0].EventType())
	}
	assert.Equal(t, anchor.ID, *chain[1].ParentID)
	assert.Equal(t, anchor.ID, *chain[2].ParentID)
}

func TestGenerateChain_Properties(t *testing.T) {
	recurrences := []Recurrence{
		RecurrenceMonthly, RecurrenceBimonthly, RecurrenceQuarterly,
		RecurrenceSemiannual, RecurrenceAnnual,
	}
	starts := []time.Time{date(2024, 1, 31), date(2023, 8, 29), date(2025, 12, 1)}

	for _, r := range recurrences {
		for _, start := range starts {
			for _, n := range []int{2, 5, 13} {
				tpl := newTemplate()
				tpl.Recurrence = r
				tpl.DueDate = start
				tpl.Installments = n
				tpl.Amount = decimal.RequireFromString("123.45")

				chain, err := GenerateChain(testTenant(), tpl, start)
				require.NoError(t, err)
				require.Len(t, chain, n)

				seen := map[int]bool{}
				total := decimal.Zero
				for i, b := range chain {
					seen[b.InstallmentNumber] = true
					total = total.Add(b.Amount)
					if i > 0 {
						assert.True(t, b.DueDate.After(chain[i-1].DueDate), "%s: due dates must increase", r)
					}
				}
				for i := 1; i <= n; i++ {
					assert.True(t, seen[i], "installment %d missing", i)
				}
				assert.True(t, total.Equal(tpl.Amount.Mul(decimal.NewFromInt(int64(n)))))
			}
		}
	}
}

func TestGenerateChain_Standalone(t *testing.T) {
	tpl := newTemplate()
	tpl.Recurrence = RecurrenceNone
	tpl.Installments = 1

	chain, err := GenerateChain(testTenant(), tpl, date(2024, 1, 1))
	require.NoError(t, err)
	require.Len(t, chain, 1)
	assert.True(t, chain[0].IsStandalone())
}

func TestGenerateChain_RecurringWithOneInstallment(t *testing.T) {
	tpl := newTemplate()
	tpl.Installments = 1

	chain, err := GenerateChain(testTenant(), tpl, date(2024, 1, 1))
	require.NoError(t, err)
	assert.Len(t, chain, 1)
	assert.Equal(t, RecurrenceMonthly, chain[0].Recurrence)
}

func TestGenerateChain_CopiesReferences(t *testing.T) {
	categoryID, supplierID := uuid.New(), uuid.New()
	tpl := newTemplate()
	tpl.CategoryID = &categoryID
	tpl.SupplierID = &supplierID

	chain, err := GenerateChain(testTenant(), tpl, date(2024, 1, 1))
	require.NoError(t, err)
	for _, b := range chain {
		assert.Equal(t, categoryID, *b.CategoryID)
		assert.Equal(t, supplierID, *b.SupplierID)
		assert.Equal(t, tpl.Description, b.Description)
	}
}

func TestGenerateChain_ValidationErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*BillTemplate)
	}{
		{"zero installments", func(t *BillTemplate) { t.Installments = 0 }},
		{"negative installments", func(t *BillTemplate) { t.Installments = -2 }},
		{"none with several installments", func(t *BillTemplate) { t.Recurrence = RecurrenceNone; t.Installments = 2 }},
		{"zero amount", func(t *BillTemplate) { t.Amount = decimal.Zero }},
		{"negative amount", func(t *BillTemplate) { t.Amount = decimal.NewFromInt(-1) }},
		{"missing due date", func(t *BillTemplate) { t.DueDate = time.Time{} }},
		{"unknown type", func(t *BillTemplate) { t.Type = "DONATION" }},
		{"unknown recurrence", func(t *BillTemplate) { t.Recurrence = "WEEKLY" }},
		{"too many installments", func(t *BillTemplate) { t.Installments = MaxInstallments + 1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tpl := newTemplate()
			tt.mutate(&tpl)
			chain, err := GenerateChain(testTenant(), tpl, date(2024, 1, 1))
			assert.Nil(t, chain)
			assert.True(t, shared.HasCode(err, shared.CodeValidation), "got %v", err)
		})
	}
}

func TestGenerateChain_RequiresTenant(t *testing.T) {
	_, err := GenerateChain(shared.TenantContext{}, newTemplate(), date(2024, 1, 1))
	assert.True(t, shared.HasCode(err, shared.CodeValidation))
}
