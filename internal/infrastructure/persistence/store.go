package persistence

import (
	"context"
	"time"

	"github.com/rai1001/ChefOsv2-sub002/internal/domain/ledger"
	"gorm.io/gorm"
)

// GormStore is the relational ledger.Store. Execute runs the callback inside
// one database transaction; the repositories it hands out share that transaction.
type GormStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormStore creates a new GormStore
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db, now: time.Now}
}

// WithClock overrides the clock used for updated_at stamps
func (s *GormStore) WithClock(now func() time.Time) *GormStore {
	s.now = now
	return s
}

// Execute runs fn within a database transaction.
// If fn returns an error, the transaction is rolled back and fn's error is returned as is.
func (s *GormStore) Execute(ctx context.Context, fn func(repos ledger.Repositories) error) error {
	var fnErr error
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fnErr = fn(&gormRepositories{tx: tx, now: s.now})
		return fnErr
	})
	if fnErr != nil {
		return fnErr
	}
	return translateError(err)
}

// Batches returns the batch repository outside any transaction
func (s *GormStore) Batches() ledger.BatchRepository {
	return &GormBatchRepository{db: s.db, now: s.now}
}

// Transactions returns the transaction repository outside any transaction
func (s *GormStore) Transactions() ledger.StockTransactionRepository {
	return NewGormStockTransactionRepository(s.db)
}

// Ingredients returns the ingredient catalog
func (s *GormStore) Ingredients() ledger.IngredientCatalog {
	return &GormIngredientCatalog{db: s.db, now: s.now}
}

// gormRepositories provides access to all repositories within a transaction
type gormRepositories struct {
	tx  *gorm.DB
	now func() time.Time
}

// Batches returns the batch repository scoped to the current transaction
func (r *gormRepositories) Batches() ledger.BatchRepository {
	return &GormBatchRepository{db: r.tx, now: r.now}
}

// Transactions returns the transaction repository scoped to the current transaction
func (r *gormRepositories) Transactions() ledger.StockTransactionRepository {
	return NewGormStockTransactionRepository(r.tx)
}

var (
	_ ledger.Store        = (*GormStore)(nil)
	_ ledger.Repositories = (*gormRepositories)(nil)
)
