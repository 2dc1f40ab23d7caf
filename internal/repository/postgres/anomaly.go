package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"rideintel/internal/domain"
	"rideintel/internal/repository"
)

const (
	flagColumns = `a.id, a.ride_id, a.reason, a.anomaly_score, a.type, a.flagged_at`

	uniqueViolation = pq.ErrorCode("23505")
)

// AnomalyFlagRepository is a PostgreSQL implementation of repository.AnomalyFlagRepository.
type AnomalyFlagRepository struct {
	q Querier
}

// NewAnomalyFlagRepository creates a new PostgreSQL anomaly flag repository.
func NewAnomalyFlagRepository(db *sql.DB) *AnomalyFlagRepository {
	return &AnomalyFlagRepository{q: db}
}

// NewAnomalyFlagRepositoryWithTx creates an anomaly flag repository using a transaction.
func NewAnomalyFlagRepositoryWithTx(tx *sql.Tx) *AnomalyFlagRepository {
	return &AnomalyFlagRepository{q: tx}
}

func scanFlag(s rowScanner) (*domain.AnomalyFlag, error) {
	var flag domain.AnomalyFlag
	if err := s.Scan(
		&flag.ID,
		&flag.RideID,
		&flag.Reason,
		&flag.AnomalyScore,
		&flag.Type,
		&flag.FlaggedAt,
	); err != nil {
		return nil, err
	}
	return &flag, nil
}

// Create persists a new flag. The UNIQUE(ride_id) constraint enforces one flag per ride.
func (r *AnomalyFlagRepository) Create(ctx context.Context, flag *domain.AnomalyFlag) error {
	query := `
		INSERT INTO anomaly_flags (id, ride_id, reason, anomaly_score, type, flagged_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.q.ExecContext(ctx, query,
		flag.ID,
		flag.RideID,
		flag.Reason,
		flag.AnomalyScore,
		flag.Type,
		flag.FlaggedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return repository.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// GetByRideID retrieves the flag of a ride.
func (r *AnomalyFlagRepository) GetByRideID(ctx context.Context, rideID string) (*domain.AnomalyFlag, error) {
	query := `SELECT ` + flagColumns + ` FROM anomaly_flags a WHERE a.ride_id = $1`

	flag, err := scanFlag(r.q.QueryRowContext(ctx, query, rideID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return flag, nil
}

// ListByType retrieves all flags of the given type, newest first.
func (r *AnomalyFlagRepository) ListByType(ctx context.Context, anomalyType domain.AnomalyType) ([]*domain.AnomalyFlag, error) {
	query := `SELECT ` + flagColumns + ` FROM anomaly_flags a WHERE a.type = $1 ORDER BY a.flagged_at DESC`
	return r.list(ctx, query, anomalyType)
}

// ListByMinScore retrieves flags scoring at least minScore, highest first.
func (r *AnomalyFlagRepository) ListByMinScore(ctx context.Context, minScore float64) ([]*domain.AnomalyFlag, error) {
	query := `SELECT ` + flagColumns + ` FROM anomaly_flags a WHERE a.anomaly_score >= $1 ORDER BY a.anomaly_score DESC`
	return r.list(ctx, query, minScore)
}

func (r *AnomalyFlagRepository) list(ctx context.Context, query string, args ...any) ([]*domain.AnomalyFlag, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	flags := make([]*domain.AnomalyFlag, 0)
	for rows.Next() {
		flag, err := scanFlag(rows)
		if err != nil {
			return nil, err
		}
		flags = append(flags, flag)
	}
	return flags, rows.Err()
}

// CountByCaptain counts flags on rides driven by the captain.
func (r *AnomalyFlagRepository) CountByCaptain(ctx context.Context, captainID string) (int64, error) {
	query := `
		SELECT COUNT(*)
		FROM anomaly_flags a
		JOIN rides r ON r.id = a.ride_id
		WHERE r.captain_id = $1
	`

	var count int64
	err := r.q.QueryRowContext(ctx, query, captainID).Scan(&count)
	return count, err
}

// CountByCity counts flags on rides picked up in the city.
func (r *AnomalyFlagRepository) CountByCity(ctx context.Context, city string) (int64, error) {
	query := `
		SELECT COUNT(*)
		FROM anomaly_flags a
		JOIN rides r ON r.id = a.ride_id
		WHERE r.pickup_city = $1
	`

	var count int64
	err := r.q.QueryRowContext(ctx, query, city).Scan(&count)
	return count, err
}
