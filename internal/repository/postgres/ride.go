package postgres

import (
	"context"
	"database/sql"
	"errors"

	"rideintel/internal/domain"
	"rideintel/internal/repository"
)

const rideColumns = `id, captain_id, customer_id, pickup_city, dropoff_city, distance_km, fare_amount, duration_minutes, status, vehicle_type, created_at, completed_at`

// RideRepository is a PostgreSQL implementation of repository.RideRepository.
type RideRepository struct {
	q Querier
}

// NewRideRepository creates a new PostgreSQL ride repository.
func NewRideRepository(db *sql.DB) *RideRepository {
	return &RideRepository{q: db}
}

// NewRideRepositoryWithTx creates a ride repository using a transaction.
func NewRideRepositoryWithTx(tx *sql.Tx) *RideRepository {
	return &RideRepository{q: tx}
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRide(s rowScanner) (*domain.Ride, error) {
	var ride domain.Ride
	var completed sql.NullTime

	if err := s.Scan(
		&ride.ID,
		&ride.CaptainID,
		&ride.CustomerID,
		&ride.PickupCity,
		&ride.DropoffCity,
		&ride.DistanceKm,
		&ride.FareAmount,
		&ride.DurationMinutes,
		&ride.Status,
		&ride.VehicleType,
		&ride.CreatedAt,
		&completed,
	); err != nil {
		return nil, err
	}

	if completed.Valid {
		ride.CompletedAt = completed.Time
	}
	return &ride, nil
}

func completedAt(ride *domain.Ride) sql.NullTime {
	if ride.CompletedAt.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: ride.CompletedAt, Valid: true}
}

// Create persists a new ride.
func (r *RideRepository) Create(ctx context.Context, ride *domain.Ride) error {
	query := `
		INSERT INTO rides (` + rideColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.q.ExecContext(ctx, query,
		ride.ID,
		ride.CaptainID,
		ride.CustomerID,
		ride.PickupCity,
		ride.DropoffCity,
		ride.DistanceKm,
		ride.FareAmount,
		ride.DurationMinutes,
		ride.Status,
		ride.VehicleType,
		ride.CreatedAt,
		completedAt(ride),
	)

	return err
}

// GetByID retrieves a ride by ID.
func (r *RideRepository) GetByID(ctx context.Context, id string) (*domain.Ride, error) {
	return r.getOne(ctx, `SELECT `+rideColumns+` FROM rides WHERE id = $1`, id)
}

// GetByIDForUpdate retrieves a ride by ID with SELECT ... FOR UPDATE.
// Only meaningful on a repository built with NewRideRepositoryWithTx.
func (r *RideRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Ride, error) {
	return r.getOne(ctx, `SELECT `+rideColumns+` FROM rides WHERE id = $1 FOR UPDATE`, id)
}

func (r *RideRepository) getOne(ctx context.Context, query string, id string) (*domain.Ride, error) {
	ride, err := scanRide(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return ride, nil
}

// Update updates an existing ride.
func (r *RideRepository) Update(ctx context.Context, ride *domain.Ride) error {
	query := `
		UPDATE rides
		SET captain_id = $1, customer_id = $2, pickup_city = $3, dropoff_city = $4, distance_km = $5, fare_amount = $6, duration_minutes = $7, status = $8, vehicle_type = $9, completed_at = $10
		WHERE id = $11
	`

	result, err := r.q.ExecContext(ctx, query,
		ride.CaptainID,
		ride.CustomerID,
		ride.PickupCity,
		ride.DropoffCity,
		ride.DistanceKm,
		ride.FareAmount,
		ride.DurationMinutes,
		ride.Status,
		ride.VehicleType,
		completedAt(ride),
		ride.ID,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// ListByCaptain retrieves all rides of a captain, newest first.
func (r *RideRepository) ListByCaptain(ctx context.Context, captainID string) ([]*domain.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides WHERE captain_id = $1 ORDER BY created_at DESC`
	return r.list(ctx, query, captainID)
}

// ListByCustomer retrieves all rides of a customer, newest first.
func (r *RideRepository) ListByCustomer(ctx context.Context, customerID string) ([]*domain.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides WHERE customer_id = $1 ORDER BY created_at DESC`
	return r.list(ctx, query, customerID)
}

func (r *RideRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Ride, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rides := make([]*domain.Ride, 0)
	for rows.Next() {
		ride, err := scanRide(rows)
		if err != nil {
			return nil, err
		}
		rides = append(rides, ride)
	}
	return rides, rows.Err()
}

// Count returns the total number of rides.
func (r *RideRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM rides`).Scan(&count)
	return count, err
}

// CityAggregates groups completed rides by pickup city.
func (r *RideRepository) CityAggregates(ctx context.Context) ([]repository.CityAggregate, error) {
	query := `
		SELECT pickup_city, COUNT(*), AVG(fare_amount), AVG(distance_km), AVG(duration_minutes)
		FROM rides
		WHERE status = $1
		GROUP BY pickup_city
		ORDER BY pickup_city
	`

	rows, err := r.q.QueryContext(ctx, query, domain.RideStatusCompleted)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	aggregates := make([]repository.CityAggregate, 0)
	for rows.Next() {
		var a repository.CityAggregate
		if err := rows.Scan(
			&a.City,
			&a.TotalRides,
			&a.AverageFare,
			&a.AverageDistanceKm,
			&a.AverageDurationMinutes,
		); err != nil {
			return nil, err
		}
		aggregates = append(aggregates, a)
	}
	return aggregates, rows.Err()
}
