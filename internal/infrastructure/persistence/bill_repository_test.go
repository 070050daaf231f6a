package persistence

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	appfinance "github.com/academy/backend/internal/application/finance"
	"github.com/academy/backend/internal/domain/finance"
	"github.com/academy/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var repoNow = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newChain(t *testing.T, tc shared.TenantContext, description string, due time.Time, installments int) []*finance.Bill {
	t.Helper()
	recurrence := finance.RecurrenceMonthly
	if installments == 1 {
		recurrence = finance.RecurrenceNone
	}
	bills, err := finance.GenerateChain(tc, finance.BillTemplate{
		Description:  description,
		Type:         finance.BillTypeReceivable,
		Amount:       decimal.RequireFromString("199.99"),
		DueDate:      due,
		Recurrence:   recurrence,
		Installments: installments,
	}, repoNow)
	require.NoError(t, err)
	return bills
}

func setupBillRepo(t *testing.T) (*GormBillRepository, *Database) {
	t.Helper()
	db := newTestDatabase(t)
	return NewGormBillRepository(db.DB), db
}

func TestGormBillRepository_CreateAndFindChain(t *testing.T) {
	repo, _ := setupBillRepo(t)
	ctx := context.Background()
	tc := shared.NewTenantContext(uuid.New(), uuid.New())
	chain := newChain(t, tc, "Monthly tuition", day(2024, 1, 31), 3)

	require.NoError(t, repo.CreateBatch(ctx, chain))

	loaded, err := repo.FindChain(ctx, tc.TenantID, chain[0].ID)
	require.NoError(t, err)
	require.Len(t, loaded, 3)
	wantDue := []time.Time{day(2024, 1, 31), day(2024, 2, 29), day(2024, 3, 31)}
	for i, b := range loaded {
		assert.Equal(t, i+1, b.InstallmentNumber)
		assert.Equal(t, 3, b.Installments)
		assert.True(t, wantDue[i].Equal(b.DueDate), "installment %d due %s", i+1, b.DueDate)
		assert.True(t, decimal.RequireFromString("199.99").Equal(b.Amount))
		assert.Equal(t, finance.BillStatusPending, b.Status)
		assert.Empty(t, b.GetDomainEvents())
	}
	assert.Nil(t, loaded[0].ParentID)
	require.NotNil(t, loaded[2].ParentID)
	assert.Equal(t, chain[0].ID, *loaded[2].ParentID)
}

func TestGormBillRepository_TenantIsolation(t *testing.T) {
	repo, _ := setupBillRepo(t)
	ctx := context.Background()
	owner := shared.NewTenantContext(uuid.New(), uuid.New())
	bill := newChain(t, owner, "Enrollment", day(2024, 4, 10), 1)[0]
	require.NoError(t, repo.CreateBatch(ctx, []*finance.Bill{bill}))

	_, err := repo.FindByIDForTenant(ctx, uuid.New(), bill.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	found, err := repo.FindByIDForTenant(ctx, owner.TenantID, bill.ID)
	require.NoError(t, err)
	assert.Equal(t, "Enrollment", found.Description)

	_, err = repo.FindByIDForTenant(ctx, uuid.Nil, bill.ID)
	assert.Error(t, err)

	some, err := repo.FindByIDsForTenant(ctx, owner.TenantID, []uuid.UUID{bill.ID, uuid.New()})
	require.NoError(t, err)
	assert.Len(t, some, 1)
}

func TestGormBillRepository_SaveWithLock(t *testing.T) {
	repo, _ := setupBillRepo(t)
	ctx := context.Background()
	tc := shared.NewTenantContext(uuid.New(), uuid.New())
	bill := newChain(t, tc, "Uniform", day(2024, 3, 1), 1)[0]
	require.NoError(t, repo.CreateBatch(ctx, []*finance.Bill{bill}))

	first, err := repo.FindByIDForTenant(ctx, tc.TenantID, bill.ID)
	require.NoError(t, err)
	second, err := repo.FindByIDForTenant(ctx, tc.TenantID, bill.ID)
	require.NoError(t, err)

	require.NoError(t, first.Pay(finance.PaymentDetails{
		AmountPaid:  decimal.RequireFromString("150"),
		PaymentDate: day(2024, 3, 14),
	}, repoNow))
	require.NoError(t, repo.SaveWithLock(ctx, first))

	require.NoError(t, second.Cancel("duplicate", repoNow))
	err = repo.SaveWithLock(ctx, second)
	assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)

	stored, err := repo.FindByIDForTenant(ctx, tc.TenantID, bill.ID)
	require.NoError(t, err)
	assert.Equal(t, finance.BillStatusPaid, stored.Status)
	assert.Equal(t, 2, stored.Version)
	require.NotNil(t, stored.AmountPaid)
	assert.True(t, decimal.RequireFromString("150").Equal(*stored.AmountPaid))
	require.NotNil(t, stored.PaymentDate)
	assert.True(t, day(2024, 3, 14).Equal(*stored.PaymentDate))
	assert.True(t, repoNow.Equal(stored.UpdatedAt))

	ghost := newChain(t, tc, "Never stored", day(2024, 3, 1), 1)[0]
	ghost.IncrementVersion()
	assert.ErrorIs(t, repo.SaveWithLock(ctx, ghost), shared.ErrNotFound)
}

func TestGormBillRepository_DeleteWithLock(t *testing.T) {
	repo, _ := setupBillRepo(t)
	ctx := context.Background()
	tc := shared.NewTenantContext(uuid.New(), uuid.New())
	bill := newChain(t, tc, "Books", day(2024, 3, 1), 1)[0]
	require.NoError(t, repo.CreateBatch(ctx, []*finance.Bill{bill}))

	stale := *bill
	stale.Version = 7
	assert.ErrorIs(t, repo.DeleteWithLock(ctx, &stale), shared.ErrConcurrencyConflict)

	require.NoError(t, repo.DeleteWithLock(ctx, bill))
	_, err := repo.FindByIDForTenant(ctx, tc.TenantID, bill.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	assert.ErrorIs(t, repo.DeleteWithLock(ctx, bill), shared.ErrNotFound)
}

func TestGormBillRepository_FindAllAndCount(t *testing.T) {
	repo, _ := setupBillRepo(t)
	ctx := context.Background()
	tc := shared.NewTenantContext(uuid.New(), uuid.New())
	tuition := newChain(t, tc, "Monthly Tuition", day(2024, 1, 10), 4)
	require.NoError(t, repo.CreateBatch(ctx, tuition))
	require.NoError(t, repo.CreateBatch(ctx, newChain(t, tc, "Field trip", day(2024, 2, 1), 1)))
	require.NoError(t, repo.CreateBatch(ctx, newChain(t, shared.NewTenantContext(uuid.New(), uuid.New()), "Tuition elsewhere", day(2024, 1, 10), 1)))

	from, to := day(2024, 2, 1), day(2024, 3, 31)
	filter := finance.BillFilter{Filter: shared.DefaultFilter(), DueFrom: &from, DueTo: &to}
	filter.OrderBy = "due_date"
	filter.OrderDir = "asc"

	bills, err := repo.FindAllForTenant(ctx, tc.TenantID, filter)
	require.NoError(t, err)
	require.Len(t, bills, 3)
	assert.Equal(t, "Field trip", bills[0].Description)
	assert.Equal(t, 2, bills[1].InstallmentNumber)

	count, err := repo.CountForTenant(ctx, tc.TenantID, filter)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	search := finance.BillFilter{Filter: shared.DefaultFilter()}
	search.Search = "tuition"
	search.PageSize = 2
	search.Page = 2
	bills, err = repo.FindAllForTenant(ctx, tc.TenantID, search)
	require.NoError(t, err)
	assert.Len(t, bills, 2)
	count, err = repo.CountForTenant(ctx, tc.TenantID, search)
	require.NoError(t, err)
	assert.Equal(t, int64(4), count)

	members := finance.BillFilter{Filter: shared.DefaultFilter(), ParentID: &tuition[0].ID}
	count, err = repo.CountForTenant(ctx, tc.TenantID, members)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestGormBillRepository_OverdueCandidates(t *testing.T) {
	repo, _ := setupBillRepo(t)
	ctx := context.Background()
	tenantA := shared.NewTenantContext(uuid.New(), uuid.New())
	tenantB := shared.NewTenantContext(uuid.New(), uuid.New())
	tenantC := shared.NewTenantContext(uuid.New(), uuid.New())

	chain := newChain(t, tenantA, "Tuition", day(2024, 1, 15), 3) // Jan 15, Feb 15, Mar 15
	require.NoError(t, repo.CreateBatch(ctx, chain))
	require.NoError(t, repo.CreateBatch(ctx, newChain(t, tenantB, "Old", day(2023, 12, 1), 1)))
	require.NoError(t, repo.CreateBatch(ctx, newChain(t, tenantC, "Future", day(2024, 6, 1), 1)))

	today := day(2024, 3, 15)
	candidates, err := repo.FindOverdueCandidates(ctx, tenantA.TenantID, today, 10)
	require.NoError(t, err)
	require.Len(t, candidates, 2, "a bill due today is not overdue")
	assert.Equal(t, 1, candidates[0].InstallmentNumber)

	limited, err := repo.FindOverdueCandidates(ctx, tenantA.TenantID, today, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	tenants, err := repo.FindTenantsWithOverdueCandidates(ctx, today)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{tenantA.TenantID, tenantB.TenantID}, tenants)
}

func TestGormBillRepository_OverdueCandidates_OnlyPending(t *testing.T) {
	repo, _ := setupBillRepo(t)
	ctx := context.Background()
	tc := shared.NewTenantContext(uuid.New(), uuid.New())
	card, err := finance.NewPaymentMethod(tc, "Credit card", decimal.RequireFromString("2.5"), 30, repoNow)
	require.NoError(t, err)

	chain := newChain(t, tc, "Tuition", day(2023, 11, 10), 4)
	chain[0].FormsOfReceiptID = &card.ID
	require.NoError(t, chain[0].ReportReceipt(card, day(2023, 11, 9), nil, repoNow))
	require.NoError(t, chain[1].Pay(finance.PaymentDetails{
		AmountPaid:  chain[1].Amount,
		PaymentDate: day(2023, 12, 9),
	}, repoNow))
	require.NoError(t, chain[2].Cancel("course cancelled", repoNow))
	require.NoError(t, repo.CreateBatch(ctx, chain))

	today := day(2024, 3, 15)
	candidates, err := repo.FindOverdueCandidates(ctx, tc.TenantID, today, 10)
	require.NoError(t, err)
	require.Len(t, candidates, 1, "settled and cancelled bills are never overdue candidates")
	assert.Equal(t, chain[3].ID, candidates[0].ID)

	require.NoError(t, chain[3].MarkOverdue(today))
	require.NoError(t, repo.SaveWithLock(ctx, chain[3]))

	candidates, err = repo.FindOverdueCandidates(ctx, tc.TenantID, today, 10)
	require.NoError(t, err)
	assert.Empty(t, candidates)
	tenants, err := repo.FindTenantsWithOverdueCandidates(ctx, today)
	require.NoError(t, err)
	assert.NotContains(t, tenants, tc.TenantID)
}

func TestGormTransactionScope_RollsBack(t *testing.T) {
	repo, db := setupBillRepo(t)
	ctx := context.Background()
	tc := shared.NewTenantContext(uuid.New(), uuid.New())
	chain := newChain(t, tc, "Tuition", day(2024, 1, 15), 2)
	require.NoError(t, repo.CreateBatch(ctx, chain))
	scope := NewGormTransactionScope(db.DB)
	boom := errors.New("boom")

	err := scope.Execute(ctx, func(repos appfinance.TransactionalRepositories) error {
		if err := repos.BillRepo().DeleteWithLock(ctx, chain[1]); err != nil {
			return err
		}
		return boom
	})

	assert.ErrorIs(t, err, boom)
	loaded, err := repo.FindChain(ctx, tc.TenantID, chain[0].ID)
	require.NoError(t, err)
	assert.Len(t, loaded, 2)
}

func TestGormBillRepository_SaveWithLock_SQL(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()
	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)

	repo := NewGormBillRepository(gormDB)
	tc := shared.NewTenantContext(uuid.New(), uuid.New())
	bill := newChain(t, tc, "Tuition", day(2024, 1, 15), 1)[0]
	bill.IncrementVersion()

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "bills" SET`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "bills" WHERE tenant_id = $1 AND id = $2`)).
		WithArgs(tc.TenantID, bill.ID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	err = repo.SaveWithLock(context.Background(), bill)

	assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}
