package service

import (
	"context"
	"fmt"
	"strings"

	"ridepool-backend/internal/domain"
	"ridepool-backend/internal/events"
	"ridepool-backend/internal/logger"
	"ridepool-backend/internal/repository"
)

type rideService struct {
	rideRepo     repository.RideRepository
	requestRepo  repository.RideRequestRepository
	contractRepo repository.ContractRepository
	pub          events.Publisher
}

func NewRideService(
	rideRepo repository.RideRepository,
	requestRepo repository.RideRequestRepository,
	contractRepo repository.ContractRepository,
	pub events.Publisher,
) RideService {
	return &rideService{
		rideRepo:     rideRepo,
		requestRepo:  requestRepo,
		contractRepo: contractRepo,
		pub:          pub,
	}
}

func (s *rideService) CreateRide(ctx context.Context, ownerID int32, input domain.RideInput) (*domain.Ride, error) {
	logger.EnterMethod("rideService.CreateRide", "ownerID", ownerID)

	start := strings.TrimSpace(input.StartLocation.Address)
	end := strings.TrimSpace(input.EndLocation.Address)
	var errs []string
	if start == "" || end == "" || input.DateTime.IsZero() {
		errs = append(errs, "Please fill all required fields")
	}
	if input.BasePrice < 0 {
		errs = append(errs, "Base price cannot be negative")
	}
	if input.Seats == 0 {
		input.Seats = 1
	}
	if input.Seats < 1 {
		errs = append(errs, "Seats must be at least 1")
	}
	if len(errs) > 0 {
		err := domain.NewValidationError(errs...)
		logger.ExitMethodWithError("rideService.CreateRide", err, "ownerID", ownerID)
		return nil, err
	}

	ride := &domain.Ride{
		OwnerID:       ownerID,
		StartLocation: domain.Address{Address: start},
		EndLocation:   domain.Address{Address: end},
		DateTime:      input.DateTime,
		BasePrice:     input.BasePrice,
		Seats:         input.Seats,
		Status:        domain.RideStatusOpen,
	}
	if err := s.rideRepo.Create(ctx, ride); err != nil {
		logger.ExitMethodWithError("rideService.CreateRide", err, "ownerID", ownerID)
		return nil, err
	}
	publish(ctx, s.pub, domain.EventRideCreated, ride.ID, string(ride.Status))

	logger.ExitMethod("rideService.CreateRide", "rideID", ride.ID)
	return ride, nil
}

func (s *rideService) GetRide(ctx context.Context, id int32) (*domain.Ride, error) {
	return s.rideRepo.GetByID(ctx, id)
}

func (s *rideService) ListOpenRides(ctx context.Context, filter domain.RideFilter) ([]domain.Ride, error) {
	filter.Destination = strings.TrimSpace(filter.Destination)
	return s.rideRepo.ListOpen(ctx, filter)
}

func (s *rideService) UpdateRideStatus(ctx context.Context, rideID int32, status domain.RideStatus, actorID int32) (*domain.Ride, error) {
	switch status {
	case domain.RideStatusOpen, domain.RideStatusClosed, domain.RideStatusCompleted:
	default:
		return nil, domain.NewValidationError("Invalid status")
	}

	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if ride.OwnerID != actorID {
		return nil, fmt.Errorf("not authorized: %w", domain.ErrForbidden)
	}
	if ride.Status == status {
		return ride, nil
	}
	if !ride.CanMoveTo(status) {
		return nil, fmt.Errorf("ride cannot move from %s to %s: %w", ride.Status, status, domain.ErrInvalidTransition)
	}
	if err := s.rideRepo.UpdateStatus(ctx, rideID, status); err != nil {
		return nil, err
	}
	ride.Status = status
	return ride, nil
}

func (s *rideService) RideHistory(ctx context.Context, userID int32) (*domain.RideHistory, error) {
	posted, err := s.rideRepo.ListByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}
	joined, err := s.requestRepo.ListConfirmedWithRide(ctx, userID)
	if err != nil {
		return nil, err
	}

	history := &domain.RideHistory{PostedRides: posted, JoinedRides: make([]domain.Ride, 0, len(joined))}
	if history.PostedRides == nil {
		history.PostedRides = []domain.Ride{}
	}
	for _, j := range joined {
		history.JoinedRides = append(history.JoinedRides, j.Ride)
	}
	return history, nil
}

func (s *rideService) Stats(ctx context.Context) (*domain.Stats, error) {
	contracts, err := s.contractRepo.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	rides, err := s.rideRepo.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	requests, err := s.requestRepo.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	return &domain.Stats{Contracts: contracts, Rides: rides, Requests: requests}, nil
}
