package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ridepool-backend/internal/domain"
	"ridepool-backend/internal/logger"
	"ridepool-backend/internal/repository"
)

const requestColumns = `id, ride_id, requester_id, bid_price, status, requested_at, updated_at`

type rideRequestRepository struct {
	db *sql.DB
}

func NewRideRequestRepository(db *sql.DB) repository.RideRequestRepository {
	return &rideRequestRepository{db: db}
}

func (r *rideRequestRepository) Create(ctx context.Context, req *domain.RideRequest) error {
	if req.RequestedAt.IsZero() {
		req.RequestedAt = time.Now()
	}
	query := `INSERT INTO ride_requests (ride_id, requester_id, bid_price, status, requested_at)
	          VALUES ($1, $2, $3, $4, $5) RETURNING id`
	err := r.db.QueryRowContext(ctx, query, req.RideID, req.RequesterID, req.BidPrice, req.Status, req.RequestedAt).Scan(&req.ID)
	if isUniqueViolation(err, "ride_requests_one_pending_key") {
		return domain.ErrDuplicatePending
	}
	return err
}

func (r *rideRequestRepository) GetByID(ctx context.Context, id int32) (*domain.RideRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM ride_requests WHERE id = $1`
	req, err := scanRequest(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err, "ride request")
	}
	return req, nil
}

func (r *rideRequestRepository) FindPending(ctx context.Context, rideID, requesterID int32) (*domain.RideRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM ride_requests
	          WHERE ride_id = $1 AND requester_id = $2 AND status = $3`
	req, err := scanRequest(r.db.QueryRowContext(ctx, query, rideID, requesterID, domain.RideRequestStatusPending))
	if err != nil {
		return nil, notFound(err, "ride request")
	}
	return req, nil
}

func (r *rideRequestRepository) ListByRide(ctx context.Context, rideID int32) ([]domain.RideRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM ride_requests WHERE ride_id = $1 ORDER BY requested_at`
	rows, err := r.db.QueryContext(ctx, query, rideID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reqs []domain.RideRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, *req)
	}
	return reqs, rows.Err()
}

func (r *rideRequestRepository) ListByRequester(ctx context.Context, requesterID int32) ([]domain.RideRequestWithRide, error) {
	query := `SELECT rr.id, rr.ride_id, rr.requester_id, rr.bid_price, rr.status, rr.requested_at, rr.updated_at,
	                 r.id, r.owner_id, r.start_address, r.end_address, r.date_time, r.base_price, r.seats,
	                 r.status, r.is_recurring, r.contract_id, r.occurrence_day, r.created_at
	          FROM ride_requests rr JOIN rides r ON r.id = rr.ride_id
	          WHERE rr.requester_id = $1 ORDER BY rr.requested_at DESC`
	return r.listWithRide(ctx, query, requesterID)
}

func (r *rideRequestRepository) ListConfirmedWithRide(ctx context.Context, requesterID int32) ([]domain.RideRequestWithRide, error) {
	query := `SELECT rr.id, rr.ride_id, rr.requester_id, rr.bid_price, rr.status, rr.requested_at, rr.updated_at,
	                 r.id, r.owner_id, r.start_address, r.end_address, r.date_time, r.base_price, r.seats,
	                 r.status, r.is_recurring, r.contract_id, r.occurrence_day, r.created_at
	          FROM ride_requests rr JOIN rides r ON r.id = rr.ride_id
	          WHERE rr.requester_id = $1 AND rr.status = $2 ORDER BY rr.requested_at`
	return r.listWithRide(ctx, query, requesterID, domain.RideRequestStatusConfirmed)
}

func (r *rideRequestRepository) listWithRide(ctx context.Context, query string, args ...any) ([]domain.RideRequestWithRide, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.RideRequestWithRide
	for rows.Next() {
		var (
			item       domain.RideRequestWithRide
			updatedAt  sql.NullTime
			contractID sql.NullInt32
			day        sql.NullTime
		)
		req, ride := &item.Request, &item.Ride
		err := rows.Scan(&req.ID, &req.RideID, &req.RequesterID, &req.BidPrice, &req.Status, &req.RequestedAt, &updatedAt,
			&ride.ID, &ride.OwnerID, &ride.StartLocation.Address, &ride.EndLocation.Address, &ride.DateTime,
			&ride.BasePrice, &ride.Seats, &ride.Status, &ride.IsRecurring, &contractID, &day, &ride.CreatedAt)
		if err != nil {
			return nil, err
		}
		if updatedAt.Valid {
			t := updatedAt.Time
			req.UpdatedAt = &t
		}
		if contractID.Valid {
			id := contractID.Int32
			ride.ContractID = &id
		}
		if day.Valid {
			d := day.Time
			ride.OccurrenceDay = &d
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func (r *rideRequestRepository) CountConfirmed(ctx context.Context, rideID int32) (int32, error) {
	var n int32
	query := `SELECT COUNT(*) FROM ride_requests WHERE ride_id = $1 AND status = $2`
	err := r.db.QueryRowContext(ctx, query, rideID, domain.RideRequestStatusConfirmed).Scan(&n)
	return n, err
}

func (r *rideRequestRepository) TransitionStatus(ctx context.Context, id int32, from, to domain.RideRequestStatus) (*domain.RideRequest, error) {
	query := `UPDATE ride_requests SET status = $1, updated_at = $2
	          WHERE id = $3 AND status = $4 RETURNING ` + requestColumns
	req, err := scanRequest(r.db.QueryRowContext(ctx, query, to, time.Now(), id, from))
	if errors.Is(err, sql.ErrNoRows) {
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, domain.ErrInvalidState
	}
	return req, err
}

func (r *rideRequestRepository) ConfirmWithinCapacity(ctx context.Context, id int32) (*domain.RideRequest, error) {
	logger.EnterMethod("rideRequestRepository.ConfirmWithinCapacity", "requestID", id)

	req, err := r.confirmTx(ctx, id)
	if err != nil {
		logger.ExitMethodWithError("rideRequestRepository.ConfirmWithinCapacity", err, "requestID", id)
		return nil, err
	}

	logger.ExitMethod("rideRequestRepository.ConfirmWithinCapacity", "requestID", id, "rideID", req.RideID)
	return req, nil
}

func (r *rideRequestRepository) confirmTx(ctx context.Context, id int32) (*domain.RideRequest, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	req, err := scanRequest(tx.QueryRowContext(ctx,
		`SELECT `+requestColumns+` FROM ride_requests WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, notFound(err, "ride request")
	}
	if !req.IsPending() {
		return nil, domain.ErrInvalidState
	}

	// The ride row lock serialises every confirmation for the same ride.
	var seats int32
	err = tx.QueryRowContext(ctx, `SELECT seats FROM rides WHERE id = $1 FOR UPDATE`, req.RideID).Scan(&seats)
	if err != nil {
		return nil, notFound(err, "ride")
	}

	var confirmed int32
	err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM ride_requests WHERE ride_id = $1 AND status = $2`,
		req.RideID, domain.RideRequestStatusConfirmed).Scan(&confirmed)
	if err != nil {
		return nil, err
	}
	if confirmed >= seats {
		return nil, fmt.Errorf("ride %d has %d of %d seats confirmed: %w", req.RideID, confirmed, seats, domain.ErrCapacityExceeded)
	}

	now := time.Now()
	_, err = tx.ExecContext(ctx, `UPDATE ride_requests SET status = $1, updated_at = $2 WHERE id = $3`,
		domain.RideRequestStatusConfirmed, now, id)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	req.Status = domain.RideRequestStatusConfirmed
	req.UpdatedAt = &now
	return req, nil
}

func scanRequest(row rowScanner) (*domain.RideRequest, error) {
	var (
		req       domain.RideRequest
		updatedAt sql.NullTime
	)
	if err := row.Scan(&req.ID, &req.RideID, &req.RequesterID, &req.BidPrice, &req.Status, &req.RequestedAt, &updatedAt); err != nil {
		return nil, err
	}
	if updatedAt.Valid {
		t := updatedAt.Time
		req.UpdatedAt = &t
	}
	return &req, nil
}

func (r *rideRequestRepository) CountByStatus(ctx context.Context) ([]domain.StatusCount, error) {
	return countByStatus(ctx, r.db, "ride_requests")
}
