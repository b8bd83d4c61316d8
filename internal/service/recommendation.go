package service

import (
	"context"
	"sort"

	"ridepool-backend/internal/domain"
	"ridepool-backend/internal/repository"
)

type recommendationService struct {
	requestRepo     repository.RideRequestRepository
	rideRepo        repository.RideRepository
	topDestinations int
	perDestination  int
	maxResults      int
}

func NewRecommendationService(
	requestRepo repository.RideRequestRepository,
	rideRepo repository.RideRepository,
	topDestinations, perDestination, maxResults int,
) RecommendationService {
	return &recommendationService{
		requestRepo:     requestRepo,
		rideRepo:        rideRepo,
		topDestinations: topDestinations,
		perDestination:  perDestination,
		maxResults:      maxResults,
	}
}

// RecommendedRides suggests open rides to the destinations the user has
// ridden to most often.
func (s *recommendationService) RecommendedRides(ctx context.Context, userID int32) ([]domain.Ride, error) {
	history, err := s.requestRepo.ListConfirmedWithRide(ctx, userID)
	if err != nil {
		return nil, err
	}

	destinations := topDestinations(history, s.topDestinations)
	out := []domain.Ride{}
	for _, dest := range destinations {
		rides, err := s.rideRepo.SearchOpenByDestination(ctx, dest, userID, int32(s.perDestination))
		if err != nil {
			return nil, err
		}
		out = append(out, rides...)
		if s.maxResults > 0 && len(out) >= s.maxResults {
			return out[:s.maxResults], nil
		}
	}
	return out, nil
}

// topDestinations ranks exact end addresses by frequency. Ties keep the
// order in which the destinations were first seen.
func topDestinations(history []domain.RideRequestWithRide, n int) []string {
	counts := map[string]int{}
	var order []string
	for _, h := range history {
		dest := h.Ride.EndLocation.Address
		if dest == "" {
			continue
		}
		if counts[dest] == 0 {
			order = append(order, dest)
		}
		counts[dest]++
	}

	sort.SliceStable(order, func(i, j int) bool { return counts[order[i]] > counts[order[j]] })
	if len(order) > n {
		order = order[:n]
	}
	return order
}
