package service

import (
	"context"
	"testing"
	"time"

	"ridepool-backend/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rideInput() domain.RideInput {
	return domain.RideInput{
		StartLocation: domain.Address{Address: " Station "},
		EndLocation:   domain.Address{Address: "Harbour"},
		DateTime:      now.Add(48 * time.Hour),
		BasePrice:     12.5,
	}
}

func TestRideService_CreateRide(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		f := newFixture()
		ride, err := f.rides.CreateRide(ctx, 3, rideInput())
		require.NoError(t, err)

		assert.Equal(t, "Station", ride.StartLocation.Address)
		assert.Equal(t, int32(1), ride.Seats)
		assert.Equal(t, domain.RideStatusOpen, ride.Status)
		assert.False(t, ride.IsRecurring)
		assert.Nil(t, ride.ContractID)
		assert.Equal(t, []domain.EventType{domain.EventRideCreated}, f.pub.types())
	})

	t.Run("Validation", func(t *testing.T) {
		f := newFixture()
		_, err := f.rides.CreateRide(ctx, 3, domain.RideInput{BasePrice: -1, Seats: -2})
		assert.ErrorIs(t, err, domain.ErrValidation)
		assert.Equal(t, []string{
			"Please fill all required fields",
			"Base price cannot be negative",
			"Seats must be at least 1",
		}, validationMessages(t, err))
	})
}

func TestRideService_ListOpenRides(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	in := rideInput()
	first, err := f.rides.CreateRide(ctx, 1, in)
	require.NoError(t, err)

	in.EndLocation.Address = "Old Harbour Road"
	in.DateTime = now.Add(72 * time.Hour)
	second, err := f.rides.CreateRide(ctx, 2, in)
	require.NoError(t, err)

	in.EndLocation.Address = "Airport"
	_, err = f.rides.CreateRide(ctx, 2, in)
	require.NoError(t, err)

	closed, err := f.rides.CreateRide(ctx, 1, rideInput())
	require.NoError(t, err)
	_, err = f.rides.UpdateRideStatus(ctx, closed.ID, domain.RideStatusClosed, 1)
	require.NoError(t, err)

	t.Run("Destination", func(t *testing.T) {
		rides, err := f.rides.ListOpenRides(ctx, domain.RideFilter{Destination: "  harbour "})
		require.NoError(t, err)
		require.Len(t, rides, 2)
		assert.Equal(t, first.ID, rides[0].ID)
		assert.Equal(t, second.ID, rides[1].ID)
	})

	t.Run("Date", func(t *testing.T) {
		d := now.Add(72 * time.Hour)
		rides, err := f.rides.ListOpenRides(ctx, domain.RideFilter{Date: &d})
		require.NoError(t, err)
		assert.Len(t, rides, 2)
	})
}

func TestRideService_UpdateRideStatus(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	ride, err := f.rides.CreateRide(ctx, 1, rideInput())
	require.NoError(t, err)

	_, err = f.rides.UpdateRideStatus(ctx, ride.ID, "PARKED", 1)
	assert.Equal(t, []string{"Invalid status"}, validationMessages(t, err))

	_, err = f.rides.UpdateRideStatus(ctx, ride.ID, domain.RideStatusClosed, 2)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	same, err := f.rides.UpdateRideStatus(ctx, ride.ID, domain.RideStatusOpen, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.RideStatusOpen, same.Status)

	done, err := f.rides.UpdateRideStatus(ctx, ride.ID, domain.RideStatusCompleted, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.RideStatusCompleted, done.Status)

	_, err = f.rides.UpdateRideStatus(ctx, ride.ID, domain.RideStatusOpen, 1)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestRideService_HistoryAndStats(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	posted, err := f.rides.CreateRide(ctx, 1, rideInput())
	require.NoError(t, err)
	other, err := f.rides.CreateRide(ctx, 2, rideInput())
	require.NoError(t, err)

	req, err := f.requests.CreateRequest(ctx, 1, other.ID, 3)
	require.NoError(t, err)
	_, err = f.requests.Transition(ctx, req.ID, domain.RideRequestStatusConfirmed, 2)
	require.NoError(t, err)

	history, err := f.rides.RideHistory(ctx, 1)
	require.NoError(t, err)
	require.Len(t, history.PostedRides, 1)
	assert.Equal(t, posted.ID, history.PostedRides[0].ID)
	require.Len(t, history.JoinedRides, 1)
	assert.Equal(t, other.ID, history.JoinedRides[0].ID)

	empty, err := f.rides.RideHistory(ctx, 9)
	require.NoError(t, err)
	assert.NotNil(t, empty.PostedRides)
	assert.NotNil(t, empty.JoinedRides)

	_, err = f.contracts.CreateContract(ctx, 1, commuteInput())
	require.NoError(t, err)
	stats, err := f.rides.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.StatusCount{{Status: "ACTIVE", Count: 1}}, stats.Contracts)
	assert.Equal(t, []domain.StatusCount{{Status: "OPEN", Count: 2}}, stats.Rides)
	assert.Equal(t, []domain.StatusCount{{Status: "CONFIRMED", Count: 1}}, stats.Requests)
}
