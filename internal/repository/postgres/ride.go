package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"ridepool-backend/internal/domain"
	"ridepool-backend/internal/logger"
	"ridepool-backend/internal/repository"
)

const rideColumns = `id, owner_id, start_address, end_address, date_time, base_price, seats,
	status, is_recurring, contract_id, occurrence_day, created_at`

type rideRepository struct {
	db *sql.DB
}

func NewRideRepository(db *sql.DB) repository.RideRepository {
	return &rideRepository{db: db}
}

func (r *rideRepository) Create(ctx context.Context, ride *domain.Ride) error {
	if ride.CreatedAt.IsZero() {
		ride.CreatedAt = time.Now()
	}
	query := `INSERT INTO rides (owner_id, start_address, end_address, date_time, base_price, seats,
	          status, is_recurring, contract_id, occurrence_day, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) RETURNING id`
	return r.db.QueryRowContext(ctx, query, rideArgs(ride)...).Scan(&ride.ID)
}

func (r *rideRepository) CreateOccurrence(ctx context.Context, ride *domain.Ride) (bool, error) {
	if ride.ContractID == nil || ride.OccurrenceDay == nil {
		return false, errors.New("occurrence requires contract id and occurrence day")
	}
	if ride.CreatedAt.IsZero() {
		ride.CreatedAt = time.Now()
	}
	query := `INSERT INTO rides (owner_id, start_address, end_address, date_time, base_price, seats,
	          status, is_recurring, contract_id, occurrence_day, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	          ON CONFLICT (contract_id, occurrence_day) WHERE contract_id IS NOT NULL DO NOTHING
	          RETURNING id`
	logger.DatabaseCall("INSERT", "rides", "contractID", *ride.ContractID, "day", ride.OccurrenceDay.Format(time.DateOnly))
	err := r.db.QueryRowContext(ctx, query, rideArgs(ride)...).Scan(&ride.ID)
	if errors.Is(err, sql.ErrNoRows) {
		logger.DatabaseResult("INSERT", 0, nil, "contractID", *ride.ContractID)
		return false, nil
	}
	if err != nil {
		return false, err
	}
	logger.DatabaseResult("INSERT", 1, nil, "rideID", ride.ID)
	return true, nil
}

func rideArgs(ride *domain.Ride) []any {
	var contractID sql.NullInt32
	if ride.ContractID != nil {
		contractID = sql.NullInt32{Int32: *ride.ContractID, Valid: true}
	}
	var day sql.NullTime
	if ride.OccurrenceDay != nil {
		day = sql.NullTime{Time: *ride.OccurrenceDay, Valid: true}
	}
	return []any{
		ride.OwnerID, ride.StartLocation.Address, ride.EndLocation.Address, ride.DateTime,
		ride.BasePrice, ride.Seats, ride.Status, ride.IsRecurring, contractID, day, ride.CreatedAt,
	}
}

func (r *rideRepository) GetByID(ctx context.Context, id int32) (*domain.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides WHERE id = $1`
	ride, err := scanRide(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err, "ride")
	}
	return ride, nil
}

func (r *rideRepository) FindByContractAndDay(ctx context.Context, contractID int32, dayStart, dayEnd time.Time) (*domain.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides
	          WHERE contract_id = $1 AND date_time >= $2 AND date_time <= $3
	          ORDER BY id LIMIT 1`
	ride, err := scanRide(r.db.QueryRowContext(ctx, query, contractID, dayStart, dayEnd))
	if err != nil {
		return nil, notFound(err, "ride")
	}
	return ride, nil
}

func (r *rideRepository) ListOpen(ctx context.Context, filter domain.RideFilter) ([]domain.Ride, error) {
	conds := []string{"status = $1"}
	args := []any{domain.RideStatusOpen}
	if filter.Destination != "" {
		args = append(args, likePattern(filter.Destination))
		conds = append(conds, fmt.Sprintf("end_address ILIKE $%d", len(args)))
	}
	if filter.Date != nil {
		start := domain.StartOfDay(*filter.Date)
		args = append(args, start, domain.AddDays(start, 1))
		conds = append(conds, fmt.Sprintf("date_time >= $%d AND date_time < $%d", len(args)-1, len(args)))
	}
	query := `SELECT ` + rideColumns + ` FROM rides WHERE ` + strings.Join(conds, " AND ") + ` ORDER BY date_time`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	return r.list(ctx, query, args...)
}

func (r *rideRepository) ListByOwner(ctx context.Context, ownerID int32) ([]domain.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides WHERE owner_id = $1 ORDER BY date_time DESC`
	return r.list(ctx, query, ownerID)
}

func (r *rideRepository) ListFutureByContract(ctx context.Context, contractID int32, from time.Time) ([]domain.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides WHERE contract_id = $1 AND date_time >= $2 ORDER BY date_time`
	return r.list(ctx, query, contractID, from)
}

func (r *rideRepository) SearchOpenByDestination(ctx context.Context, destination string, excludeOwner int32, limit int32) ([]domain.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides
	          WHERE status = $1 AND end_address ILIKE $2 AND owner_id <> $3
	          ORDER BY date_time LIMIT $4`
	return r.list(ctx, query, domain.RideStatusOpen, likePattern(destination), excludeOwner, limit)
}

func (r *rideRepository) list(ctx context.Context, query string, args ...any) ([]domain.Ride, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rides []domain.Ride
	for rows.Next() {
		ride, err := scanRide(rows)
		if err != nil {
			return nil, err
		}
		rides = append(rides, *ride)
	}
	return rides, rows.Err()
}

func (r *rideRepository) UpdateStatus(ctx context.Context, id int32, status domain.RideStatus) error {
	res, err := r.db.ExecContext(ctx, `UPDATE rides SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return err
	}
	return expectRow(res, "ride")
}

func (r *rideRepository) UpdateSeats(ctx context.Context, id int32, seats int32) error {
	query := `UPDATE rides SET seats = $1 WHERE id = $2
	          AND (SELECT COUNT(*) FROM ride_requests WHERE ride_id = $2 AND status = $3) <= $1`
	logger.DatabaseCall("UPDATE", "rides", "rideID", id, "seats", seats)
	res, err := r.db.ExecContext(ctx, query, seats, id, domain.RideRequestStatusConfirmed)
	if err != nil {
		logger.DatabaseResult("UPDATE", 0, err, "rideID", id)
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	logger.DatabaseResult("UPDATE", n, nil, "rideID", id)
	if n > 0 {
		return nil
	}

	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM rides WHERE id = $1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("ride: %w", domain.ErrNotFound)
	}
	return fmt.Errorf("ride %d has more confirmed riders than %d seats: %w", id, seats, domain.ErrCapacityExceeded)
}

func (r *rideRepository) CountByStatus(ctx context.Context) ([]domain.StatusCount, error) {
	return countByStatus(ctx, r.db, "rides")
}

func scanRide(row rowScanner) (*domain.Ride, error) {
	var (
		ride       domain.Ride
		contractID sql.NullInt32
		day        sql.NullTime
	)
	err := row.Scan(&ride.ID, &ride.OwnerID, &ride.StartLocation.Address, &ride.EndLocation.Address,
		&ride.DateTime, &ride.BasePrice, &ride.Seats, &ride.Status, &ride.IsRecurring,
		&contractID, &day, &ride.CreatedAt)
	if err != nil {
		return nil, err
	}
	if contractID.Valid {
		id := contractID.Int32
		ride.ContractID = &id
	}
	if day.Valid {
		d := day.Time
		ride.OccurrenceDay = &d
	}
	return &ride, nil
}

func expectRow(res sql.Result, entity string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", entity, domain.ErrNotFound)
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern builds a case-insensitive substring match for ILIKE.
func likePattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}
