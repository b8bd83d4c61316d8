package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ridepool-backend/internal/domain"
	"ridepool-backend/internal/events"
	"ridepool-backend/internal/lock"
	"ridepool-backend/internal/logger"
	"ridepool-backend/internal/metrics"
	"ridepool-backend/internal/repository"
)

const DefaultRollingHorizonDays = 7

type materializer struct {
	rideRepo repository.RideRepository
	locker   lock.Locker
	pub      events.Publisher
	loc      *time.Location
	horizon  int
}

func NewMaterializer(
	rideRepo repository.RideRepository,
	locker lock.Locker,
	pub events.Publisher,
	loc *time.Location,
	horizonDays int,
) Materializer {
	if loc == nil {
		loc = time.Local
	}
	if horizonDays <= 0 {
		horizonDays = DefaultRollingHorizonDays
	}
	return &materializer{
		rideRepo: rideRepo,
		locker:   locker,
		pub:      pub,
		loc:      loc,
		horizon:  horizonDays,
	}
}

// calendarDay reads t's calendar date and pins it to midnight in loc.
// DATE columns come back as UTC midnight, so the date fields are taken as-is.
func (m *materializer) calendarDay(t time.Time) time.Time {
	y, mo, d := t.Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, m.loc)
}

func (m *materializer) MaterializeFullRange(ctx context.Context, c *domain.Contract) (*domain.MaterializeResult, error) {
	return m.Materialize(ctx, c, c.StartDate, c.EndDate)
}

func (m *materializer) MaterializeRolling(ctx context.Context, c *domain.Contract, today time.Time) (*domain.MaterializeResult, error) {
	start := m.calendarDay(today.In(m.loc))
	return m.Materialize(ctx, c, start, domain.AddDays(start, m.horizon-1))
}

func (m *materializer) Materialize(ctx context.Context, c *domain.Contract, windowStart, windowEnd time.Time) (*domain.MaterializeResult, error) {
	logger.EnterMethod("materializer.Materialize", "contractID", c.ID,
		"windowStart", windowStart.Format(time.DateOnly), "windowEnd", windowEnd.Format(time.DateOnly))

	result := &domain.MaterializeResult{}
	if !c.IsActive() {
		err := fmt.Errorf("contract %d is %s: %w", c.ID, c.Status, domain.ErrInvalidState)
		logger.ExitMethodWithError("materializer.Materialize", err, "contractID", c.ID)
		return nil, err
	}

	extra := ContractExtraSeats(c)
	if extra <= 0 {
		logger.ExitMethod("materializer.Materialize", "contractID", c.ID, "extraSeats", extra)
		return result, nil
	}

	start := m.calendarDay(windowStart)
	if s := m.calendarDay(c.StartDate); s.After(start) {
		start = s
	}
	end := m.calendarDay(windowEnd)
	if e := m.calendarDay(c.EndDate); e.Before(end) {
		end = e
	}

	for day := start; !day.After(end); day = domain.AddDays(day, 1) {
		entry, ok := c.WeeklySchedule.EntryFor(day.Weekday())
		if !ok {
			continue
		}
		if err := ctx.Err(); err != nil {
			logger.ExitMethodWithError("materializer.Materialize", err, "contractID", c.ID)
			return result, err
		}

		rideID, created, err := m.materializeDay(ctx, c, day, entry, extra)
		switch {
		case err != nil:
			logger.Error("Failed to materialize ride", "contractID", c.ID, "day", day.Format(time.DateOnly), "error", err)
			metrics.DayFailures.Inc()
			result.Failed = append(result.Failed, domain.DayFailure{Day: day, Err: err.Error()})
		case created:
			metrics.RidesMaterialized.Inc()
			result.Created = append(result.Created, rideID)
			publish(ctx, m.pub, domain.EventRideCreated, rideID, string(domain.RideStatusOpen))
		default:
			metrics.DaysSkipped.Inc()
			result.Skipped = append(result.Skipped, day)
		}
	}

	logger.ExitMethod("materializer.Materialize", "contractID", c.ID,
		"created", len(result.Created), "skipped", len(result.Skipped), "failed", len(result.Failed))
	return result, nil
}

// materializeDay creates the ride for one scheduled day under the
// (contract, day) lock. It returns created=false when a ride already exists.
func (m *materializer) materializeDay(ctx context.Context, c *domain.Contract, day time.Time, entry domain.ScheduleEntry, seats int32) (int32, bool, error) {
	hour, minute, err := entry.Clock()
	if err != nil {
		return 0, false, err
	}

	release, err := m.locker.Acquire(ctx, fmt.Sprintf("contract:%d:%s", c.ID, day.Format(time.DateOnly)))
	if err != nil {
		return 0, false, err
	}
	defer release()

	existing, err := m.rideRepo.FindByContractAndDay(ctx, c.ID, day, domain.AddDays(day, 1).Add(-time.Nanosecond))
	if err == nil {
		return existing.ID, false, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return 0, false, err
	}

	contractID := c.ID
	occurrenceDay := day
	ride := &domain.Ride{
		OwnerID:       c.CreatorID,
		StartLocation: c.Route.StartLocation,
		EndLocation:   c.Route.EndLocation,
		DateTime:      time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, m.loc),
		BasePrice:     0,
		Seats:         seats,
		Status:        domain.RideStatusOpen,
		IsRecurring:   true,
		ContractID:    &contractID,
		OccurrenceDay: &occurrenceDay,
	}
	created, err := m.rideRepo.CreateOccurrence(ctx, ride)
	if err != nil {
		return 0, false, err
	}
	return ride.ID, created, nil
}
