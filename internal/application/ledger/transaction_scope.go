package ledger

import (
	"context"

	"github.com/rai1001/ChefOsv2-sub002/internal/domain/ledger"
)

// NoOpTransactionScope is a ledger store that doesn't actually use transactions.
// Writes inside Execute go straight to the given repositories, so a failing
// unit of work is not rolled back. Useful for testing with repository mocks.
type NoOpTransactionScope struct {
	batchRepo       ledger.BatchRepository
	transactionRepo ledger.StockTransactionRepository
	ingredients     ledger.IngredientCatalog
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(
	batchRepo ledger.BatchRepository,
	transactionRepo ledger.StockTransactionRepository,
	ingredients ledger.IngredientCatalog,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		batchRepo:       batchRepo,
		transactionRepo: transactionRepo,
		ingredients:     ingredients,
	}
}

// Execute runs the function directly without a transaction
func (s *NoOpTransactionScope) Execute(ctx context.Context, fn func(repos ledger.Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(s)
}

// Batches returns the batch repository
func (s *NoOpTransactionScope) Batches() ledger.BatchRepository {
	return s.batchRepo
}

// Transactions returns the stock transaction repository
func (s *NoOpTransactionScope) Transactions() ledger.StockTransactionRepository {
	return s.transactionRepo
}

// Ingredients returns the ingredient catalog
func (s *NoOpTransactionScope) Ingredients() ledger.IngredientCatalog {
	return s.ingredients
}

var _ ledger.Store = (*NoOpTransactionScope)(nil)
