package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"ridepool-backend/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRideRepository_CreateOccurrenceIsUnique(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	contractID := int32(1)
	day := time.Date(2026, 11, 2, 0, 0, 0, 0, time.UTC)

	newRide := func() *domain.Ride {
		return &domain.Ride{OwnerID: 1, Seats: 2, Status: domain.RideStatusOpen, DateTime: day.Add(8 * time.Hour),
			ContractID: &contractID, OccurrenceDay: &day, IsRecurring: true}
	}

	created, err := store.RideRepository.CreateOccurrence(ctx, newRide())
	require.NoError(t, err)
	assert.True(t, created)

	created, err = store.RideRepository.CreateOccurrence(ctx, newRide())
	require.NoError(t, err)
	assert.False(t, created)

	ride, err := store.FindByContractAndDay(ctx, contractID, day, day.Add(24*time.Hour-time.Nanosecond))
	require.NoError(t, err)
	assert.Equal(t, int32(2), ride.Seats)
}

func TestRideRequestRepository_ConfirmWithinCapacityConcurrent(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	ride := &domain.Ride{OwnerID: 1, Seats: 2, Status: domain.RideStatusOpen, DateTime: time.Now()}
	require.NoError(t, store.RideRepository.Create(ctx, ride))

	var ids []int32
	for requester := int32(10); requester < 20; requester++ {
		req := &domain.RideRequest{RideID: ride.ID, RequesterID: requester, Status: domain.RideRequestStatusPending}
		require.NoError(t, store.RideRequestRepository.Create(ctx, req))
		ids = append(ids, req.ID)
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok, full int
	)
	for _, id := range ids {
		wg.Add(1)
		go func(id int32) {
			defer wg.Done()
			_, err := store.ConfirmWithinCapacity(ctx, id)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				ok++
			} else if assert.ErrorIs(t, err, domain.ErrCapacityExceeded) {
				full++
			}
		}(id)
	}
	wg.Wait()

	assert.Equal(t, 2, ok)
	assert.Equal(t, 8, full)
	n, err := store.CountConfirmed(ctx, ride.ID)
	require.NoError(t, err)
	assert.Equal(t, int32(2), n)
}

func TestRideRequestRepository_DuplicatePending(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	first := &domain.RideRequest{RideID: 1, RequesterID: 2, Status: domain.RideRequestStatusPending}
	require.NoError(t, store.RideRequestRepository.Create(ctx, first))

	err := store.RideRequestRepository.Create(ctx, &domain.RideRequest{RideID: 1, RequesterID: 2, Status: domain.RideRequestStatusPending})
	assert.ErrorIs(t, err, domain.ErrDuplicatePending)

	_, err = store.TransitionStatus(ctx, first.ID, domain.RideRequestStatusPending, domain.RideRequestStatusCancelled)
	require.NoError(t, err)
	assert.NoError(t, store.RideRequestRepository.Create(ctx, &domain.RideRequest{RideID: 1, RequesterID: 2, Status: domain.RideRequestStatusPending}))
}

func TestContractRepository_AddMember(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	c := &domain.Contract{Name: "Carpool", CreatorID: 1, Members: []int32{1}, TotalSeats: 2, Status: domain.ContractStatusActive}
	require.NoError(t, store.ContractRepository.Create(ctx, c))

	updated, err := store.AddMember(ctx, c.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, []int32{1, 2}, updated.Members)

	_, err = store.AddMember(ctx, c.ID, 2)
	assert.ErrorIs(t, err, domain.ErrAlreadyMember)

	_, err = store.AddMember(ctx, c.ID, 3)
	assert.ErrorIs(t, err, domain.ErrContractFull)

	err = store.ContractRepository.Create(ctx, &domain.Contract{Name: "Carpool", CreatorID: 1})
	assert.ErrorIs(t, err, domain.ErrDuplicateContractName)
}

func TestRideRepository_UpdateSeatsKeepsConfirmedRiders(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	ride := &domain.Ride{OwnerID: 1, Seats: 3, Status: domain.RideStatusOpen, DateTime: time.Now().Add(time.Hour)}
	require.NoError(t, store.RideRepository.Create(ctx, ride))
	for _, requester := range []int32{2, 3} {
		req := &domain.RideRequest{RideID: ride.ID, RequesterID: requester, Status: domain.RideRequestStatusPending}
		require.NoError(t, store.RideRequestRepository.Create(ctx, req))
		_, err := store.ConfirmWithinCapacity(ctx, req.ID)
		require.NoError(t, err)
	}

	assert.ErrorIs(t, store.RideRepository.UpdateSeats(ctx, ride.ID, 1), domain.ErrCapacityExceeded)
	require.NoError(t, store.RideRepository.UpdateSeats(ctx, ride.ID, 2))

	got, err := store.RideRepository.GetByID(ctx, ride.ID)
	require.NoError(t, err)
	assert.Equal(t, int32(2), got.Seats)
	assert.ErrorIs(t, store.RideRepository.UpdateSeats(ctx, 999, 1), domain.ErrNotFound)
}

func TestContractRepository_ListAutoPostActiveComparesCalendarDays(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	end := time.Date(2026, 12, 2, 0, 0, 0, 0, time.UTC)
	c := &domain.Contract{Name: "Commute", CreatorID: 1, Members: []int32{1}, TotalSeats: 3,
		StartDate: end.AddDate(0, 0, -7), EndDate: end, AutoPostExtraSeats: true, Status: domain.ContractStatusActive}
	require.NoError(t, store.ContractRepository.Create(ctx, c))

	west := time.FixedZone("PST", -8*60*60)
	got, err := store.ListAutoPostActive(ctx, time.Date(2026, 12, 2, 0, 0, 0, 0, west))
	require.NoError(t, err)
	assert.Len(t, got, 1)

	got, err = store.ListAutoPostActive(ctx, time.Date(2026, 12, 3, 0, 0, 0, 0, west))
	require.NoError(t, err)
	assert.Empty(t, got)
}
