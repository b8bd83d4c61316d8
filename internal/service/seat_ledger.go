package service

import (
	"context"

	"ridepool-backend/internal/domain"
	"ridepool-backend/internal/repository"
)

type seatLedger struct {
	requestRepo repository.RideRequestRepository
}

func NewSeatLedger(requestRepo repository.RideRequestRepository) SeatLedger {
	return &seatLedger{requestRepo: requestRepo}
}

func (l *seatLedger) ConfirmedCount(ctx context.Context, rideID int32) (int32, error) {
	return l.requestRepo.CountConfirmed(ctx, rideID)
}

// AvailableSeats is clamped at zero for display.
func (l *seatLedger) AvailableSeats(ctx context.Context, ride *domain.Ride) (int32, error) {
	confirmed, err := l.ConfirmedCount(ctx, ride.ID)
	if err != nil {
		return 0, err
	}
	if free := ride.Seats - confirmed; free > 0 {
		return free, nil
	}
	return 0, nil
}

func (l *seatLedger) CanAdmit(ctx context.Context, ride *domain.Ride, n int32) (bool, error) {
	confirmed, err := l.ConfirmedCount(ctx, ride.ID)
	if err != nil {
		return false, err
	}
	return confirmed+n <= ride.Seats, nil
}

// ContractExtraSeats is the number of seats a contract leaves to the marketplace.
func ContractExtraSeats(c *domain.Contract) int32 {
	return c.ExtraSeats()
}
