package repository

import "context"

// UnitOfWork runs ride and anomaly flag writes atomically.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(rides RideRepository, flags AnomalyFlagRepository) error) error
}
