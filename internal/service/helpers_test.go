package service

import (
	"context"
	"sync"
	"time"

	"ridepool-backend/internal/domain"
	"ridepool-backend/internal/lock"
	"ridepool-backend/internal/repository/memory"
)

// now is a Sunday; the following Monday is 2026-11-02.
var now = time.Date(2026, 11, 1, 9, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return now }

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.Event
}

func (p *recordingPublisher) Publish(_ context.Context, evt domain.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return nil
}

func (p *recordingPublisher) types() []domain.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []domain.EventType
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

// lockCheckingPublisher records events delivered while key was still locked.
type lockCheckingPublisher struct {
	locker lock.Locker
	key    string

	mu     sync.Mutex
	locked []domain.EventType
	seen   []domain.EventType
}

func (p *lockCheckingPublisher) Publish(ctx context.Context, evt domain.Event) error {
	ctx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()
	release, err := p.locker.Acquire(ctx, p.key)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.seen = append(p.seen, evt.Type)
	if err != nil {
		p.locked = append(p.locked, evt.Type)
		return nil
	}
	release()
	return nil
}

type fixture struct {
	store        *memory.Store
	users        *memory.UserDirectory
	pub          *recordingPublisher
	materializer Materializer
	ledger       SeatLedger
	locker       lock.Locker
	contracts    ContractService
	requests     RideRequestService
	rides        RideService
}

func newFixture() *fixture {
	store := memory.NewStore()
	users := memory.NewUserDirectory(1, 2, 3, 4, 5, 6, 7, 8, 9, 10)
	pub := &recordingPublisher{}
	locker := lock.NewLocal()

	mat := NewMaterializer(store.RideRepository, locker, pub, time.UTC, 7)
	ledger := NewSeatLedger(store.RideRequestRepository)
	return &fixture{
		store:        store,
		users:        users,
		pub:          pub,
		materializer: mat,
		ledger:       ledger,
		locker:       locker,
		contracts:    NewContractService(store.ContractRepository, store.RideRepository, ledger, locker, users, mat, pub, fixedClock, time.UTC),
		requests:     NewRideRequestService(store.RideRepository, store.RideRequestRepository, ledger, locker, pub),
		rides:        NewRideService(store.RideRepository, store.RideRequestRepository, store.ContractRepository, pub),
	}
}

// commuteInput is a two-week contract with one Monday slot: 5 seats, 3 members.
func commuteInput() domain.ContractInput {
	return domain.ContractInput{
		Name:       "Morning commute",
		MemberIDs:  []int32{1, 2, 3},
		StartDate:  day(2026, 11, 2),
		EndDate:    day(2026, 11, 15),
		TotalSeats: 5,
		Route: domain.Route{
			StartLocation: domain.Address{Address: "12 Elm St"},
			EndLocation:   domain.Address{Address: "Downtown Office"},
		},
		WeeklySchedule: domain.WeeklySchedule{{Day: "Monday", Time: "08:00"}},
	}
}
