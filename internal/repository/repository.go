package repository

import (
	"context"
	"time"

	"ridepool-backend/internal/domain"
)

type ContractRepository interface {
	Create(ctx context.Context, contract *domain.Contract) error
	GetByID(ctx context.Context, id int32) (*domain.Contract, error)
	ListByMember(ctx context.Context, userID int32) ([]domain.Contract, error)
	// ListAutoPostActive returns ACTIVE contracts with auto-post enabled whose end date is on or after the given day.
	ListAutoPostActive(ctx context.Context, onOrAfter time.Time) ([]domain.Contract, error)
	UpdateStatus(ctx context.Context, id int32, from, to domain.ContractStatus) error
	UpdateAutoPost(ctx context.Context, id int32, enabled bool) error
	UpdateSchedule(ctx context.Context, id int32, schedule domain.WeeklySchedule) error

	// AddMember appends userID atomically, re-checking membership, capacity and status.
	AddMember(ctx context.Context, id int32, userID int32) (*domain.Contract, error)
	CountByStatus(ctx context.Context) ([]domain.StatusCount, error)
}

type RideRepository interface {
	Create(ctx context.Context, ride *domain.Ride) error
	// CreateOccurrence inserts a contract-derived ride unless one already exists
	// for (contract, occurrence day). It reports whether a row was inserted.
	CreateOccurrence(ctx context.Context, ride *domain.Ride) (bool, error)
	GetByID(ctx context.Context, id int32) (*domain.Ride, error)
	FindByContractAndDay(ctx context.Context, contractID int32, dayStart, dayEnd time.Time) (*domain.Ride, error)
	ListOpen(ctx context.Context, filter domain.RideFilter) ([]domain.Ride, error)
	ListByOwner(ctx context.Context, ownerID int32) ([]domain.Ride, error)
	ListFutureByContract(ctx context.Context, contractID int32, from time.Time) ([]domain.Ride, error)
	// SearchOpenByDestination matches end addresses case-insensitively by substring, excluding the given owner.
	SearchOpenByDestination(ctx context.Context, destination string, excludeOwner int32, limit int32) ([]domain.Ride, error)
	UpdateStatus(ctx context.Context, id int32, status domain.RideStatus) error
	// UpdateSeats resizes a ride, failing with domain.ErrCapacityExceeded when
	// more riders than seats are already confirmed.
	UpdateSeats(ctx context.Context, id int32, seats int32) error
	CountByStatus(ctx context.Context) ([]domain.StatusCount, error)
}

type RideRequestRepository interface {
	Create(ctx context.Context, req *domain.RideRequest) error
	GetByID(ctx context.Context, id int32) (*domain.RideRequest, error)
	FindPending(ctx context.Context, rideID, requesterID int32) (*domain.RideRequest, error)
	ListByRide(ctx context.Context, rideID int32) ([]domain.RideRequest, error)
	ListByRequester(ctx context.Context, requesterID int32) ([]domain.RideRequestWithRide, error)
	ListConfirmedWithRide(ctx context.Context, requesterID int32) ([]domain.RideRequestWithRide, error)
	CountConfirmed(ctx context.Context, rideID int32) (int32, error)

	// TransitionStatus moves a request from one status to another, failing
	// with domain.ErrInvalidState if it is no longer in the from status.
	TransitionStatus(ctx context.Context, id int32, from, to domain.RideRequestStatus) (*domain.RideRequest, error)
	// ConfirmWithinCapacity confirms a pending request only if the ride still
	// has a free seat; the check and write are one atomic unit.
	ConfirmWithinCapacity(ctx context.Context, id int32) (*domain.RideRequest, error)
	CountByStatus(ctx context.Context) ([]domain.StatusCount, error)
}

// UserDirectory is the read-only view of the identity collaborator.
type UserDirectory interface {
	// Missing returns the ids that do not belong to a known user.
	Missing(ctx context.Context, ids []int32) ([]int32, error)
}
