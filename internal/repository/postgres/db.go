package postgres

import (
	"context"
	"database/sql"

	"rideintel/internal/repository"
)

// Querier is an interface satisfied by both *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Ensure interfaces are satisfied.
var (
	_ Querier = (*sql.DB)(nil)
	_ Querier = (*sql.Tx)(nil)

	_ repository.RideRepository        = (*RideRepository)(nil)
	_ repository.AnomalyFlagRepository = (*AnomalyFlagRepository)(nil)
	_ repository.UnitOfWork            = (*UnitOfWork)(nil)
)

// UnitOfWork runs ride and flag writes in a single transaction.
type UnitOfWork struct {
	db *sql.DB
}

// NewUnitOfWork creates a new UnitOfWork.
func NewUnitOfWork(db *sql.DB) *UnitOfWork {
	return &UnitOfWork{db: db}
}

// WithinTx calls fn with transaction-scoped repositories and commits if fn returns nil.
func (u *UnitOfWork) WithinTx(ctx context.Context, fn func(rides repository.RideRepository, flags repository.AnomalyFlagRepository) error) (err error) {
	tx, err := u.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(NewRideRepositoryWithTx(tx), NewAnomalyFlagRepositoryWithTx(tx)); err != nil {
		return err
	}

	return tx.Commit()
}
