package finance

import (
	"context"

	"github.com/academy/backend/internal/domain/finance"
)

// TransactionScope provides transactional access to finance repositories.
// Everything fn does through repos is committed or rolled back as one unit.
type TransactionScope interface {
	// Execute runs fn within a database transaction.
	// If fn returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories exposes the repositories bound to one transaction
type TransactionalRepositories interface {
	BillRepo() finance.BillRepository
	PaymentMethodRepo() finance.PaymentMethodRepository
}

// NoOpTransactionScope runs fn directly against the given repositories.
// Useful for tests and for stores that are atomic on their own.
type NoOpTransactionScope struct {
	billRepo   finance.BillRepository
	methodRepo finance.PaymentMethodRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope
func NewNoOpTransactionScope(billRepo finance.BillRepository, methodRepo finance.PaymentMethodRepository) *NoOpTransactionScope {
	return &NoOpTransactionScope{billRepo: billRepo, methodRepo: methodRepo}
}

// Execute runs fn without a real transaction
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// BillRepo returns the bill repository
func (s *NoOpTransactionScope) BillRepo() finance.BillRepository {
	return s.billRepo
}

// PaymentMethodRepo returns the payment method repository
func (s *NoOpTransactionScope) PaymentMethodRepo() finance.PaymentMethodRepository {
	return s.methodRepo
}

var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
