package service

import (
	"context"
	"time"

	"ridepool-backend/internal/domain"

	"github.com/stretchr/testify/mock"
)

// MockRideRepo
type MockRideRepo struct {
	mock.Mock
}

func (m *MockRideRepo) Create(ctx context.Context, ride *domain.Ride) error {
	args := m.Called(ctx, ride)
	return args.Error(0)
}
func (m *MockRideRepo) CreateOccurrence(ctx context.Context, ride *domain.Ride) (bool, error) {
	args := m.Called(ctx, ride)
	return args.Bool(0), args.Error(1)
}
func (m *MockRideRepo) GetByID(ctx context.Context, id int32) (*domain.Ride, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ride), args.Error(1)
}
func (m *MockRideRepo) FindByContractAndDay(ctx context.Context, contractID int32, dayStart, dayEnd time.Time) (*domain.Ride, error) {
	args := m.Called(ctx, contractID, dayStart, dayEnd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ride), args.Error(1)
}
func (m *MockRideRepo) ListOpen(ctx context.Context, filter domain.RideFilter) ([]domain.Ride, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.Ride), args.Error(1)
}
func (m *MockRideRepo) ListByOwner(ctx context.Context, ownerID int32) ([]domain.Ride, error) {
	args := m.Called(ctx, ownerID)
	return args.Get(0).([]domain.Ride), args.Error(1)
}
func (m *MockRideRepo) ListFutureByContract(ctx context.Context, contractID int32, from time.Time) ([]domain.Ride, error) {
	args := m.Called(ctx, contractID, from)
	return args.Get(0).([]domain.Ride), args.Error(1)
}
func (m *MockRideRepo) SearchOpenByDestination(ctx context.Context, destination string, excludeOwner int32, limit int32) ([]domain.Ride, error) {
	args := m.Called(ctx, destination, excludeOwner, limit)
	return args.Get(0).([]domain.Ride), args.Error(1)
}
func (m *MockRideRepo) UpdateStatus(ctx context.Context, id int32, status domain.RideStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}
func (m *MockRideRepo) UpdateSeats(ctx context.Context, id int32, seats int32) error {
	args := m.Called(ctx, id, seats)
	return args.Error(0)
}
func (m *MockRideRepo) CountByStatus(ctx context.Context) ([]domain.StatusCount, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.StatusCount), args.Error(1)
}

// MockRideRequestRepo
type MockRideRequestRepo struct {
	mock.Mock
}

func (m *MockRideRequestRepo) Create(ctx context.Context, req *domain.RideRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}
func (m *MockRideRequestRepo) GetByID(ctx context.Context, id int32) (*domain.RideRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RideRequest), args.Error(1)
}
func (m *MockRideRequestRepo) FindPending(ctx context.Context, rideID, requesterID int32) (*domain.RideRequest, error) {
	args := m.Called(ctx, rideID, requesterID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RideRequest), args.Error(1)
}
func (m *MockRideRequestRepo) ListByRide(ctx context.Context, rideID int32) ([]domain.RideRequest, error) {
	args := m.Called(ctx, rideID)
	return args.Get(0).([]domain.RideRequest), args.Error(1)
}
func (m *MockRideRequestRepo) ListByRequester(ctx context.Context, requesterID int32) ([]domain.RideRequestWithRide, error) {
	args := m.Called(ctx, requesterID)
	return args.Get(0).([]domain.RideRequestWithRide), args.Error(1)
}
func (m *MockRideRequestRepo) ListConfirmedWithRide(ctx context.Context, requesterID int32) ([]domain.RideRequestWithRide, error) {
	args := m.Called(ctx, requesterID)
	return args.Get(0).([]domain.RideRequestWithRide), args.Error(1)
}
func (m *MockRideRequestRepo) CountConfirmed(ctx context.Context, rideID int32) (int32, error) {
	args := m.Called(ctx, rideID)
	return args.Get(0).(int32), args.Error(1)
}
func (m *MockRideRequestRepo) TransitionStatus(ctx context.Context, id int32, from, to domain.RideRequestStatus) (*domain.RideRequest, error) {
	args := m.Called(ctx, id, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RideRequest), args.Error(1)
}
func (m *MockRideRequestRepo) ConfirmWithinCapacity(ctx context.Context, id int32) (*domain.RideRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RideRequest), args.Error(1)
}

func (m *MockRideRequestRepo) CountByStatus(ctx context.Context) ([]domain.StatusCount, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.StatusCount), args.Error(1)
}
