// Package memory keeps every repository in process memory. It backs the
// "memory" storage mode and the service tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"ridepool-backend/internal/domain"
	"ridepool-backend/internal/repository"
)

// state is shared by the three repositories so that a confirmation can read
// rides and requests under one lock.
type state struct {
	mu        sync.RWMutex
	contracts map[int32]*domain.Contract
	rides     map[int32]*domain.Ride
	requests  map[int32]*domain.RideRequest
	occurs    map[occurrenceKey]int32
	nextID    int32
	now       func() time.Time
}

type occurrenceKey struct {
	contractID int32
	day        string
}

type Store struct {
	repository.ContractRepository
	repository.RideRepository
	repository.RideRequestRepository
}

func NewStore() *Store {
	s := &state{
		contracts: make(map[int32]*domain.Contract),
		rides:     make(map[int32]*domain.Ride),
		requests:  make(map[int32]*domain.RideRequest),
		occurs:    make(map[occurrenceKey]int32),
		now:       time.Now,
	}
	return &Store{
		ContractRepository:    &contractRepository{s},
		RideRepository:        &rideRepository{s},
		RideRequestRepository: &rideRequestRepository{s},
	}
}

func (s *state) id() int32 {
	s.nextID++
	return s.nextID
}

func notFound(entity string) error {
	return fmt.Errorf("%s: %w", entity, domain.ErrNotFound)
}

func copyContract(c *domain.Contract) domain.Contract {
	out := *c
	out.Members = append([]int32(nil), c.Members...)
	out.WeeklySchedule = append(domain.WeeklySchedule(nil), c.WeeklySchedule...)
	return out
}

type contractRepository struct{ s *state }

func (r *contractRepository) Create(_ context.Context, c *domain.Contract) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.contracts {
		if existing.CreatorID == c.CreatorID && existing.Name == c.Name {
			return domain.ErrDuplicateContractName
		}
	}
	c.ID = r.s.id()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = r.s.now()
	}
	c.UpdatedAt = c.CreatedAt
	stored := copyContract(c)
	r.s.contracts[c.ID] = &stored
	return nil
}

func (r *contractRepository) GetByID(_ context.Context, id int32) (*domain.Contract, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	c, ok := r.s.contracts[id]
	if !ok {
		return nil, notFound("contract")
	}
	out := copyContract(c)
	return &out, nil
}

func (r *contractRepository) ListByMember(_ context.Context, userID int32) ([]domain.Contract, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []domain.Contract
	for _, c := range r.s.contracts {
		if c.IsMember(userID) {
			out = append(out, copyContract(c))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *contractRepository) ListAutoPostActive(_ context.Context, onOrAfter time.Time) ([]domain.Contract, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []domain.Contract
	for _, c := range r.s.contracts {
		if c.IsActive() && c.AutoPostExtraSeats && c.EndDate.Format(time.DateOnly) >= onOrAfter.Format(time.DateOnly) {
			out = append(out, copyContract(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *contractRepository) UpdateStatus(_ context.Context, id int32, from, to domain.ContractStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.contracts[id]
	if !ok {
		return notFound("contract")
	}
	if c.Status != from {
		return domain.ErrInvalidState
	}
	c.Status = to
	c.UpdatedAt = r.s.now()
	return nil
}

func (r *contractRepository) UpdateAutoPost(_ context.Context, id int32, enabled bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.contracts[id]
	if !ok {
		return notFound("contract")
	}
	c.AutoPostExtraSeats = enabled
	c.UpdatedAt = r.s.now()
	return nil
}

func (r *contractRepository) UpdateSchedule(_ context.Context, id int32, schedule domain.WeeklySchedule) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.contracts[id]
	if !ok {
		return notFound("contract")
	}
	c.WeeklySchedule = append(domain.WeeklySchedule(nil), schedule...)
	c.UpdatedAt = r.s.now()
	return nil
}

func (r *contractRepository) AddMember(_ context.Context, id int32, userID int32) (*domain.Contract, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.contracts[id]
	if !ok {
		return nil, notFound("contract")
	}
	switch {
	case c.IsMember(userID):
		return nil, domain.ErrAlreadyMember
	case int32(len(c.Members)) >= c.TotalSeats:
		return nil, domain.ErrContractFull
	case !c.IsActive():
		return nil, domain.ErrNotActive
	}
	c.Members = append(c.Members, userID)
	c.UpdatedAt = r.s.now()
	out := copyContract(c)
	return &out, nil
}

func (r *contractRepository) CountByStatus(_ context.Context) ([]domain.StatusCount, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	counts := map[string]int32{}
	for _, c := range r.s.contracts {
		counts[string(c.Status)]++
	}
	return sortedCounts(counts), nil
}

type rideRepository struct{ s *state }

func (r *rideRepository) Create(_ context.Context, ride *domain.Ride) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.insertRide(ride)
	return nil
}

func (s *state) insertRide(ride *domain.Ride) {
	ride.ID = s.id()
	if ride.CreatedAt.IsZero() {
		ride.CreatedAt = s.now()
	}
	stored := *ride
	s.rides[ride.ID] = &stored
}

func (r *rideRepository) CreateOccurrence(_ context.Context, ride *domain.Ride) (bool, error) {
	if ride.ContractID == nil || ride.OccurrenceDay == nil {
		return false, fmt.Errorf("occurrence requires contract id and occurrence day")
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := occurrenceKey{contractID: *ride.ContractID, day: ride.OccurrenceDay.Format(time.DateOnly)}
	if _, exists := r.s.occurs[key]; exists {
		return false, nil
	}
	r.s.insertRide(ride)
	r.s.occurs[key] = ride.ID
	return true, nil
}

func (r *rideRepository) GetByID(_ context.Context, id int32) (*domain.Ride, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	ride, ok := r.s.rides[id]
	if !ok {
		return nil, notFound("ride")
	}
	out := *ride
	return &out, nil
}

func (r *rideRepository) FindByContractAndDay(_ context.Context, contractID int32, dayStart, dayEnd time.Time) (*domain.Ride, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var found *domain.Ride
	for _, ride := range r.s.rides {
		if ride.ContractID == nil || *ride.ContractID != contractID {
			continue
		}
		if ride.DateTime.Before(dayStart) || ride.DateTime.After(dayEnd) {
			continue
		}
		if found == nil || ride.ID < found.ID {
			found = ride
		}
	}
	if found == nil {
		return nil, notFound("ride")
	}
	out := *found
	return &out, nil
}

func (r *rideRepository) ListOpen(_ context.Context, filter domain.RideFilter) ([]domain.Ride, error) {
	var dayStart, dayEnd time.Time
	if filter.Date != nil {
		dayStart = domain.StartOfDay(*filter.Date)
		dayEnd = domain.AddDays(dayStart, 1)
	}
	return r.filter(func(ride *domain.Ride) bool {
		if !ride.IsOpen() {
			return false
		}
		if filter.Destination != "" && !containsFold(ride.EndLocation.Address, filter.Destination) {
			return false
		}
		if filter.Date != nil && (ride.DateTime.Before(dayStart) || !ride.DateTime.Before(dayEnd)) {
			return false
		}
		return true
	}, byDateTime, filter.Limit), nil
}

func (r *rideRepository) ListByOwner(_ context.Context, ownerID int32) ([]domain.Ride, error) {
	return r.filter(func(ride *domain.Ride) bool { return ride.OwnerID == ownerID },
		func(a, b domain.Ride) bool { return a.DateTime.After(b.DateTime) }, 0), nil
}

func (r *rideRepository) ListFutureByContract(_ context.Context, contractID int32, from time.Time) ([]domain.Ride, error) {
	return r.filter(func(ride *domain.Ride) bool {
		return ride.ContractID != nil && *ride.ContractID == contractID && !ride.DateTime.Before(from)
	}, byDateTime, 0), nil
}

func (r *rideRepository) SearchOpenByDestination(_ context.Context, destination string, excludeOwner int32, limit int32) ([]domain.Ride, error) {
	return r.filter(func(ride *domain.Ride) bool {
		return ride.IsOpen() && ride.OwnerID != excludeOwner && containsFold(ride.EndLocation.Address, destination)
	}, byDateTime, limit), nil
}

func byDateTime(a, b domain.Ride) bool {
	if a.DateTime.Equal(b.DateTime) {
		return a.ID < b.ID
	}
	return a.DateTime.Before(b.DateTime)
}

func (r *rideRepository) filter(keep func(*domain.Ride) bool, less func(a, b domain.Ride) bool, limit int32) []domain.Ride {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []domain.Ride
	for _, ride := range r.s.rides {
		if keep(ride) {
			out = append(out, *ride)
		}
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	if limit > 0 && int(limit) < len(out) {
		out = out[:limit]
	}
	return out
}

func (r *rideRepository) UpdateStatus(_ context.Context, id int32, status domain.RideStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	ride, ok := r.s.rides[id]
	if !ok {
		return notFound("ride")
	}
	ride.Status = status
	return nil
}

func (r *rideRepository) UpdateSeats(_ context.Context, id int32, seats int32) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	ride, ok := r.s.rides[id]
	if !ok {
		return notFound("ride")
	}
	if r.s.confirmed(id) > seats {
		return fmt.Errorf("ride %d has more confirmed riders than %d seats: %w", id, seats, domain.ErrCapacityExceeded)
	}
	ride.Seats = seats
	return nil
}

func (r *rideRepository) CountByStatus(_ context.Context) ([]domain.StatusCount, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	counts := map[string]int32{}
	for _, ride := range r.s.rides {
		counts[string(ride.Status)]++
	}
	return sortedCounts(counts), nil
}

type rideRequestRepository struct{ s *state }

func (r *rideRequestRepository) Create(_ context.Context, req *domain.RideRequest) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if req.IsPending() {
		for _, existing := range r.s.requests {
			if existing.RideID == req.RideID && existing.RequesterID == req.RequesterID && existing.IsPending() {
				return domain.ErrDuplicatePending
			}
		}
	}
	req.ID = r.s.id()
	if req.RequestedAt.IsZero() {
		req.RequestedAt = r.s.now()
	}
	stored := *req
	r.s.requests[req.ID] = &stored
	return nil
}

func (r *rideRequestRepository) GetByID(_ context.Context, id int32) (*domain.RideRequest, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	req, ok := r.s.requests[id]
	if !ok {
		return nil, notFound("ride request")
	}
	out := *req
	return &out, nil
}

func (r *rideRequestRepository) FindPending(_ context.Context, rideID, requesterID int32) (*domain.RideRequest, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, req := range r.s.requests {
		if req.RideID == rideID && req.RequesterID == requesterID && req.IsPending() {
			out := *req
			return &out, nil
		}
	}
	return nil, notFound("ride request")
}

func (r *rideRequestRepository) ListByRide(_ context.Context, rideID int32) ([]domain.RideRequest, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []domain.RideRequest
	for _, req := range r.s.requests {
		if req.RideID == rideID {
			out = append(out, *req)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *rideRequestRepository) ListByRequester(_ context.Context, requesterID int32) ([]domain.RideRequestWithRide, error) {
	out := r.withRide(func(req *domain.RideRequest) bool { return req.RequesterID == requesterID })
	sort.Slice(out, func(i, j int) bool { return out[i].Request.ID > out[j].Request.ID })
	return out, nil
}

func (r *rideRequestRepository) ListConfirmedWithRide(_ context.Context, requesterID int32) ([]domain.RideRequestWithRide, error) {
	out := r.withRide(func(req *domain.RideRequest) bool {
		return req.RequesterID == requesterID && req.Status == domain.RideRequestStatusConfirmed
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Request.ID < out[j].Request.ID })
	return out, nil
}

func (r *rideRequestRepository) withRide(keep func(*domain.RideRequest) bool) []domain.RideRequestWithRide {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []domain.RideRequestWithRide
	for _, req := range r.s.requests {
		if !keep(req) {
			continue
		}
		ride, ok := r.s.rides[req.RideID]
		if !ok {
			continue
		}
		out = append(out, domain.RideRequestWithRide{Request: *req, Ride: *ride})
	}
	return out
}

func (r *rideRequestRepository) CountConfirmed(_ context.Context, rideID int32) (int32, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return r.s.confirmed(rideID), nil
}

func (r *rideRequestRepository) CountByStatus(_ context.Context) ([]domain.StatusCount, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	counts := map[string]int32{}
	for _, req := range r.s.requests {
		counts[string(req.Status)]++
	}
	return sortedCounts(counts), nil
}

func (s *state) confirmed(rideID int32) int32 {
	var n int32
	for _, req := range s.requests {
		if req.RideID == rideID && req.Status == domain.RideRequestStatusConfirmed {
			n++
		}
	}
	return n
}

func (r *rideRequestRepository) TransitionStatus(_ context.Context, id int32, from, to domain.RideRequestStatus) (*domain.RideRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	req, ok := r.s.requests[id]
	if !ok {
		return nil, notFound("ride request")
	}
	if req.Status != from {
		return nil, domain.ErrInvalidState
	}
	now := r.s.now()
	req.Status = to
	req.UpdatedAt = &now
	out := *req
	return &out, nil
}

func (r *rideRequestRepository) ConfirmWithinCapacity(_ context.Context, id int32) (*domain.RideRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	req, ok := r.s.requests[id]
	if !ok {
		return nil, notFound("ride request")
	}
	if !req.IsPending() {
		return nil, domain.ErrInvalidState
	}
	ride, ok := r.s.rides[req.RideID]
	if !ok {
		return nil, notFound("ride")
	}
	if confirmed := r.s.confirmed(ride.ID); confirmed >= ride.Seats {
		return nil, fmt.Errorf("ride %d has %d of %d seats confirmed: %w", ride.ID, confirmed, ride.Seats, domain.ErrCapacityExceeded)
	}
	now := r.s.now()
	req.Status = domain.RideRequestStatusConfirmed
	req.UpdatedAt = &now
	out := *req
	return &out, nil
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func sortedCounts(counts map[string]int32) []domain.StatusCount {
	out := make([]domain.StatusCount, 0, len(counts))
	for status, n := range counts {
		out = append(out, domain.StatusCount{Status: status, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Status < out[j].Status })
	return out
}
