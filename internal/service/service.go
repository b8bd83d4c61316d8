package service

import (
	"context"
	"time"

	"ridepool-backend/internal/domain"
)

// Clock returns the current time. Services take one so that "today" is testable.
type Clock func() time.Time

type Materializer interface {
	// Materialize generates the contract's rides for every scheduled day in
	// [windowStart, windowEnd] clipped to the contract's own date range.
	Materialize(ctx context.Context, c *domain.Contract, windowStart, windowEnd time.Time) (*domain.MaterializeResult, error)
	MaterializeFullRange(ctx context.Context, c *domain.Contract) (*domain.MaterializeResult, error)
	MaterializeRolling(ctx context.Context, c *domain.Contract, today time.Time) (*domain.MaterializeResult, error)
}

type SeatLedger interface {
	ConfirmedCount(ctx context.Context, rideID int32) (int32, error)
	AvailableSeats(ctx context.Context, ride *domain.Ride) (int32, error)
	CanAdmit(ctx context.Context, ride *domain.Ride, n int32) (bool, error)
}

type RideRequestService interface {
	CreateRequest(ctx context.Context, requesterID, rideID int32, bidPrice float64) (*domain.RideRequest, error)
	Transition(ctx context.Context, requestID int32, target domain.RideRequestStatus, actorID int32) (*domain.RideRequest, error)
	ListForRide(ctx context.Context, actorID, rideID int32) ([]domain.RideRequest, error)
	ListMine(ctx context.Context, requesterID int32) ([]domain.RideRequestWithRide, error)
}

type ContractService interface {
	CreateContract(ctx context.Context, creatorID int32, input domain.ContractInput) (*domain.Contract, error)
	GetContract(ctx context.Context, id, viewerID int32) (*domain.Contract, error)
	ListMyContracts(ctx context.Context, userID int32) ([]domain.Contract, error)
	Join(ctx context.Context, contractID, userID int32) (*domain.Contract, error)
	SetStatus(ctx context.Context, contractID int32, status domain.ContractStatus, actorID int32) (*domain.Contract, error)
	SetAutoPost(ctx context.Context, contractID int32, enabled bool, actorID int32) (*domain.Contract, error)
	UpdateSchedule(ctx context.Context, contractID int32, schedule domain.WeeklySchedule, actorID int32) (*domain.Contract, error)
	DailyTick(ctx context.Context) (*domain.TickReport, error)
}

type RideService interface {
	CreateRide(ctx context.Context, ownerID int32, input domain.RideInput) (*domain.Ride, error)
	GetRide(ctx context.Context, id int32) (*domain.Ride, error)
	ListOpenRides(ctx context.Context, filter domain.RideFilter) ([]domain.Ride, error)
	UpdateRideStatus(ctx context.Context, rideID int32, status domain.RideStatus, actorID int32) (*domain.Ride, error)
	RideHistory(ctx context.Context, userID int32) (*domain.RideHistory, error)
	Stats(ctx context.Context) (*domain.Stats, error)
}

type RecommendationService interface {
	RecommendedRides(ctx context.Context, userID int32) ([]domain.Ride, error)
}
