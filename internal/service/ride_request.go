package service

import (
	"context"
	"errors"
	"fmt"

	"ridepool-backend/internal/domain"
	"ridepool-backend/internal/events"
	"ridepool-backend/internal/lock"
	"ridepool-backend/internal/logger"
	"ridepool-backend/internal/metrics"
	"ridepool-backend/internal/repository"
)

type rideRequestService struct {
	rideRepo    repository.RideRepository
	requestRepo repository.RideRequestRepository
	ledger      SeatLedger
	locker      lock.Locker
	pub         events.Publisher
}

func NewRideRequestService(
	rideRepo repository.RideRepository,
	requestRepo repository.RideRequestRepository,
	ledger SeatLedger,
	locker lock.Locker,
	pub events.Publisher,
) RideRequestService {
	return &rideRequestService{
		rideRepo:    rideRepo,
		requestRepo: requestRepo,
		ledger:      ledger,
		locker:      locker,
		pub:         pub,
	}
}

func rideLockKey(rideID int32) string {
	return fmt.Sprintf("ride:%d", rideID)
}

func (s *rideRequestService) CreateRequest(ctx context.Context, requesterID, rideID int32, bidPrice float64) (*domain.RideRequest, error) {
	logger.EnterMethod("rideRequestService.CreateRequest", "requesterID", requesterID, "rideID", rideID)

	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		logger.ExitMethodWithError("rideRequestService.CreateRequest", err, "rideID", rideID)
		return nil, err
	}
	if !ride.IsOpen() {
		return nil, fmt.Errorf("ride %d is %s: %w", rideID, ride.Status, domain.ErrInvalidState)
	}
	if ride.OwnerID == requesterID {
		return nil, fmt.Errorf("cannot request a seat on your own ride: %w", domain.ErrForbidden)
	}
	if bidPrice < 0 {
		return nil, domain.NewValidationError("Bid price cannot be negative")
	}

	if _, err := s.requestRepo.FindPending(ctx, rideID, requesterID); err == nil {
		return nil, domain.ErrDuplicatePending
	} else if !errors.Is(err, domain.ErrNotFound) {
		logger.ExitMethodWithError("rideRequestService.CreateRequest", err, "rideID", rideID)
		return nil, err
	}

	req := &domain.RideRequest{
		RideID:      rideID,
		RequesterID: requesterID,
		BidPrice:    bidPrice,
		Status:      domain.RideRequestStatusPending,
	}
	if err := s.requestRepo.Create(ctx, req); err != nil {
		logger.ExitMethodWithError("rideRequestService.CreateRequest", err, "rideID", rideID)
		return nil, err
	}
	metrics.RequestTransitions.WithLabelValues(string(domain.RideRequestStatusPending)).Inc()

	logger.ExitMethod("rideRequestService.CreateRequest", "requestID", req.ID)
	return req, nil
}

func (s *rideRequestService) Transition(ctx context.Context, requestID int32, target domain.RideRequestStatus, actorID int32) (*domain.RideRequest, error) {
	logger.EnterMethod("rideRequestService.Transition", "requestID", requestID, "target", target, "actorID", actorID)

	var (
		req *domain.RideRequest
		err error
	)
	switch target {
	case domain.RideRequestStatusCancelled:
		req, err = s.cancel(ctx, requestID, actorID)
	case domain.RideRequestStatusConfirmed:
		req, err = s.confirm(ctx, requestID, actorID)
	default:
		err = fmt.Errorf("cannot move a request to %q: %w", target, domain.ErrInvalidTransition)
	}
	if err != nil {
		logger.ExitMethodWithError("rideRequestService.Transition", err, "requestID", requestID)
		return nil, err
	}

	metrics.RequestTransitions.WithLabelValues(string(req.Status)).Inc()
	logger.ExitMethod("rideRequestService.Transition", "requestID", requestID, "status", req.Status)
	return req, nil
}

func (s *rideRequestService) cancel(ctx context.Context, requestID, actorID int32) (*domain.RideRequest, error) {
	req, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.RequesterID != actorID {
		return nil, fmt.Errorf("only the requester can cancel: %w", domain.ErrForbidden)
	}
	if !req.IsPending() {
		return nil, fmt.Errorf("request %d is %s: %w", requestID, req.Status, domain.ErrInvalidState)
	}

	updated, err := s.requestRepo.TransitionStatus(ctx, requestID, domain.RideRequestStatusPending, domain.RideRequestStatusCancelled)
	if err != nil {
		return nil, err
	}
	publish(ctx, s.pub, domain.EventRequestCancelled, updated.ID, string(updated.Status))
	return updated, nil
}

func (s *rideRequestService) confirm(ctx context.Context, requestID, actorID int32) (*domain.RideRequest, error) {
	req, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	ride, err := s.rideRepo.GetByID(ctx, req.RideID)
	if err != nil {
		return nil, err
	}
	if ride.OwnerID != actorID {
		return nil, fmt.Errorf("only the ride host can confirm: %w", domain.ErrForbidden)
	}
	if !req.IsPending() {
		return nil, fmt.Errorf("request %d is %s: %w", requestID, req.Status, domain.ErrInvalidState)
	}

	updated, err := s.admit(ctx, ride, requestID)
	if err != nil {
		return nil, err
	}
	publish(ctx, s.pub, domain.EventRequestConfirmed, updated.ID, string(updated.Status))
	return updated, nil
}

// admit confirms the request under the ride lock. Events go out after the
// lock is released.
func (s *rideRequestService) admit(ctx context.Context, ride *domain.Ride, requestID int32) (*domain.RideRequest, error) {
	release, err := s.locker.Acquire(ctx, rideLockKey(ride.ID))
	if err != nil {
		return nil, err
	}
	defer release()

	// Fast rejection; ConfirmWithinCapacity repeats the check atomically.
	ok, err := s.ledger.CanAdmit(ctx, ride, 1)
	if err != nil {
		return nil, err
	}
	if !ok {
		metrics.CapacityRejections.Inc()
		return nil, fmt.Errorf("ride %d is full: %w", ride.ID, domain.ErrCapacityExceeded)
	}

	updated, err := s.requestRepo.ConfirmWithinCapacity(ctx, requestID)
	if err != nil {
		if errors.Is(err, domain.ErrCapacityExceeded) {
			metrics.CapacityRejections.Inc()
		}
		return nil, err
	}
	return updated, nil
}

func (s *rideRequestService) ListForRide(ctx context.Context, actorID, rideID int32) ([]domain.RideRequest, error) {
	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if ride.OwnerID != actorID {
		return nil, fmt.Errorf("only the ride host can list requests: %w", domain.ErrForbidden)
	}
	return s.requestRepo.ListByRide(ctx, rideID)
}

func (s *rideRequestService) ListMine(ctx context.Context, requesterID int32) ([]domain.RideRequestWithRide, error) {
	return s.requestRepo.ListByRequester(ctx, requesterID)
}
