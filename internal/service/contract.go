package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ridepool-backend/internal/domain"
	"ridepool-backend/internal/events"
	"ridepool-backend/internal/lock"
	"ridepool-backend/internal/logger"
	"ridepool-backend/internal/metrics"
	"ridepool-backend/internal/repository"
)

type contractService struct {
	contractRepo repository.ContractRepository
	rideRepo     repository.RideRepository
	ledger       SeatLedger
	locker       lock.Locker
	users        repository.UserDirectory
	materializer Materializer
	pub          events.Publisher
	clock        Clock
	loc          *time.Location
}

func NewContractService(
	contractRepo repository.ContractRepository,
	rideRepo repository.RideRepository,
	ledger SeatLedger,
	locker lock.Locker,
	users repository.UserDirectory,
	materializer Materializer,
	pub events.Publisher,
	clock Clock,
	loc *time.Location,
) ContractService {
	if clock == nil {
		clock = time.Now
	}
	if loc == nil {
		loc = time.Local
	}
	return &contractService{
		contractRepo: contractRepo,
		rideRepo:     rideRepo,
		ledger:       ledger,
		locker:       locker,
		users:        users,
		materializer: materializer,
		pub:          pub,
		clock:        clock,
		loc:          loc,
	}
}

func (s *contractService) today() time.Time {
	return domain.StartOfDay(s.clock().In(s.loc))
}

// dateOnly reads t's calendar date in the service location.
func (s *contractService) dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, s.loc)
}

func (s *contractService) validate(creatorID int32, in *domain.ContractInput) []string {
	var errs []string

	in.Name = strings.TrimSpace(in.Name)
	if len([]rune(in.Name)) < domain.MinContractNameLength {
		errs = append(errs, "Contract name must be at least 3 characters long")
	}

	if len(in.MemberIDs) == 0 {
		errs = append(errs, "At least one member is required")
	}

	if in.StartDate.IsZero() || in.EndDate.IsZero() {
		errs = append(errs, "Start date and end date are required")
	} else {
		start, end := s.dateOnly(in.StartDate), s.dateOnly(in.EndDate)
		switch {
		case start.Before(s.today()):
			errs = append(errs, "Start date cannot be in the past")
		case !end.After(start):
			errs = append(errs, "End date must be after start date")
		}
	}

	seatsOK := in.TotalSeats >= domain.MinContractSeats && in.TotalSeats <= domain.MaxContractSeats
	if !seatsOK {
		errs = append(errs, "Total seats must be between 2 and 20")
	}

	startAddr := strings.TrimSpace(in.Route.StartLocation.Address)
	endAddr := strings.TrimSpace(in.Route.EndLocation.Address)
	if startAddr == "" {
		errs = append(errs, "Start location address is required")
	}
	if endAddr == "" {
		errs = append(errs, "End location address is required")
	}
	if startAddr != "" && strings.EqualFold(startAddr, endAddr) {
		errs = append(errs, "Start and end locations cannot be the same")
	}
	in.Route.StartLocation.Address = startAddr
	in.Route.EndLocation.Address = endAddr

	errs = append(errs, in.WeeklySchedule.Validate()...)

	if len(in.MemberIDs) > 0 {
		in.MemberIDs = withCreator(dedupe(in.MemberIDs), creatorID)
		if seatsOK && int32(len(in.MemberIDs)) > in.TotalSeats {
			errs = append(errs, fmt.Sprintf("Number of members (%d) cannot exceed total seats (%d)", len(in.MemberIDs), in.TotalSeats))
		}
	}
	return errs
}

func dedupe(ids []int32) []int32 {
	seen := make(map[int32]bool, len(ids))
	out := make([]int32, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func withCreator(ids []int32, creatorID int32) []int32 {
	for _, id := range ids {
		if id == creatorID {
			return ids
		}
	}
	return append(ids, creatorID)
}

func (s *contractService) CreateContract(ctx context.Context, creatorID int32, input domain.ContractInput) (*domain.Contract, error) {
	logger.EnterMethod("contractService.CreateContract", "creatorID", creatorID, "name", input.Name)

	if errs := s.validate(creatorID, &input); len(errs) > 0 {
		err := domain.NewValidationError(errs...)
		logger.ExitMethodWithError("contractService.CreateContract", err, "creatorID", creatorID)
		return nil, err
	}

	missing, err := s.users.Missing(ctx, input.MemberIDs)
	if err != nil {
		logger.ExitMethodWithError("contractService.CreateContract", err, "creatorID", creatorID)
		return nil, err
	}
	if len(missing) > 0 {
		err := &domain.NotFoundError{Entity: "Some members", IDs: missing}
		logger.ExitMethodWithError("contractService.CreateContract", err, "missingIDs", missing)
		return nil, err
	}

	c := &domain.Contract{
		Name:               input.Name,
		CreatorID:          creatorID,
		Members:            input.MemberIDs,
		StartDate:          s.dateOnly(input.StartDate),
		EndDate:            s.dateOnly(input.EndDate),
		TotalSeats:         input.TotalSeats,
		Route:              input.Route,
		WeeklySchedule:     input.WeeklySchedule,
		AutoPostExtraSeats: input.AutoPostExtraSeats,
		Status:             domain.ContractStatusActive,
	}
	if err := s.contractRepo.Create(ctx, c); err != nil {
		logger.ExitMethodWithError("contractService.CreateContract", err, "creatorID", creatorID)
		return nil, err
	}

	if c.AutoPostExtraSeats && c.ExtraSeats() > 0 {
		if _, err := s.materializer.MaterializeFullRange(ctx, c); err != nil {
			logger.Error("Failed to create recurring rides", "contractID", c.ID, "error", err)
		}
	}

	logger.ExitMethod("contractService.CreateContract", "contractID", c.ID)
	return c, nil
}

func (s *contractService) GetContract(ctx context.Context, id, viewerID int32) (*domain.Contract, error) {
	c, err := s.contractRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !c.IsMember(viewerID) {
		return nil, fmt.Errorf("not authorized to view this contract: %w", domain.ErrForbidden)
	}
	return c, nil
}

func (s *contractService) ListMyContracts(ctx context.Context, userID int32) ([]domain.Contract, error) {
	return s.contractRepo.ListByMember(ctx, userID)
}

func (s *contractService) Join(ctx context.Context, contractID, userID int32) (*domain.Contract, error) {
	logger.EnterMethod("contractService.Join", "contractID", contractID, "userID", userID)

	c, err := s.contractRepo.AddMember(ctx, contractID, userID)
	if err != nil {
		logger.ExitMethodWithError("contractService.Join", err, "contractID", contractID)
		return nil, err
	}

	if err := s.shrinkOccurrences(ctx, c); err != nil {
		logger.Error("Failed to resize future rides after join", "contractID", c.ID, "error", err)
	}

	logger.ExitMethod("contractService.Join", "contractID", contractID, "members", len(c.Members))
	return c, nil
}

// shrinkOccurrences caps future open rides of c at its new extra seat count.
// A ride never drops below its confirmed riders; one left with no seats is closed.
func (s *contractService) shrinkOccurrences(ctx context.Context, c *domain.Contract) error {
	rides, err := s.rideRepo.ListFutureByContract(ctx, c.ID, s.today())
	if err != nil {
		return err
	}
	extra := c.ExtraSeats()
	var errs []error
	for i := range rides {
		ride := &rides[i]
		if !ride.IsOpen() || ride.Seats <= extra {
			continue
		}
		if err := s.shrinkRide(ctx, ride, extra); err != nil {
			errs = append(errs, fmt.Errorf("ride %d: %w", ride.ID, err))
		}
	}
	return errors.Join(errs...)
}

// shrinkRide holds the same ride lock as confirmation so the confirmed count
// cannot grow between the read and the resize.
func (s *contractService) shrinkRide(ctx context.Context, ride *domain.Ride, extra int32) error {
	release, err := s.locker.Acquire(ctx, rideLockKey(ride.ID))
	if err != nil {
		return err
	}
	defer release()

	confirmed, err := s.ledger.ConfirmedCount(ctx, ride.ID)
	if err != nil {
		return err
	}
	seats := max(extra, confirmed)
	switch {
	case seats <= 0:
		return s.rideRepo.UpdateStatus(ctx, ride.ID, domain.RideStatusClosed)
	case seats < ride.Seats:
		return s.rideRepo.UpdateSeats(ctx, ride.ID, seats)
	}
	return nil
}

func (s *contractService) SetStatus(ctx context.Context, contractID int32, status domain.ContractStatus, actorID int32) (*domain.Contract, error) {
	logger.EnterMethod("contractService.SetStatus", "contractID", contractID, "status", status, "actorID", actorID)

	c, err := s.contractRepo.GetByID(ctx, contractID)
	if err != nil {
		logger.ExitMethodWithError("contractService.SetStatus", err, "contractID", contractID)
		return nil, err
	}
	if c.CreatorID != actorID {
		return nil, fmt.Errorf("not authorized to update this contract: %w", domain.ErrForbidden)
	}
	if !c.IsActive() || (status != domain.ContractStatusCompleted && status != domain.ContractStatusCancelled) {
		return nil, fmt.Errorf("contract cannot move from %s to %s: %w", c.Status, status, domain.ErrInvalidTransition)
	}

	if err := s.contractRepo.UpdateStatus(ctx, contractID, domain.ContractStatusActive, status); err != nil {
		if errors.Is(err, domain.ErrInvalidState) {
			err = fmt.Errorf("contract changed concurrently: %w", domain.ErrInvalidTransition)
		}
		logger.ExitMethodWithError("contractService.SetStatus", err, "contractID", contractID)
		return nil, err
	}
	c.Status = status
	publish(ctx, s.pub, domain.EventContractStatusChanged, c.ID, string(status))

	logger.ExitMethod("contractService.SetStatus", "contractID", contractID, "status", status)
	return c, nil
}

func (s *contractService) SetAutoPost(ctx context.Context, contractID int32, enabled bool, actorID int32) (*domain.Contract, error) {
	logger.EnterMethod("contractService.SetAutoPost", "contractID", contractID, "enabled", enabled)

	c, err := s.contractRepo.GetByID(ctx, contractID)
	if err != nil {
		logger.ExitMethodWithError("contractService.SetAutoPost", err, "contractID", contractID)
		return nil, err
	}
	if c.CreatorID != actorID {
		return nil, fmt.Errorf("not authorized to update this contract: %w", domain.ErrForbidden)
	}

	wasEnabled := c.AutoPostExtraSeats
	if wasEnabled != enabled {
		if err := s.contractRepo.UpdateAutoPost(ctx, contractID, enabled); err != nil {
			logger.ExitMethodWithError("contractService.SetAutoPost", err, "contractID", contractID)
			return nil, err
		}
		c.AutoPostExtraSeats = enabled
	}

	if enabled && !wasEnabled && c.IsActive() {
		if _, err := s.materializer.MaterializeFullRange(ctx, c); err != nil {
			logger.Error("Failed to create recurring rides", "contractID", c.ID, "error", err)
		}
	}

	logger.ExitMethod("contractService.SetAutoPost", "contractID", contractID, "enabled", enabled)
	return c, nil
}

func (s *contractService) UpdateSchedule(ctx context.Context, contractID int32, schedule domain.WeeklySchedule, actorID int32) (*domain.Contract, error) {
	c, err := s.contractRepo.GetByID(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if c.CreatorID != actorID {
		return nil, fmt.Errorf("not authorized to update this contract: %w", domain.ErrForbidden)
	}
	if errs := schedule.Validate(); len(errs) > 0 {
		return nil, domain.NewValidationError(errs...)
	}
	if err := s.contractRepo.UpdateSchedule(ctx, contractID, schedule); err != nil {
		return nil, err
	}
	c.WeeklySchedule = schedule
	return c, nil
}

func (s *contractService) DailyTick(ctx context.Context) (*domain.TickReport, error) {
	logger.EnterMethod("contractService.DailyTick")
	started := time.Now()
	defer func() { metrics.TickDuration.Observe(time.Since(started).Seconds()) }()

	today := s.today()
	contracts, err := s.contractRepo.ListAutoPostActive(ctx, today)
	if err != nil {
		logger.ExitMethodWithError("contractService.DailyTick", err)
		return nil, err
	}

	report := &domain.TickReport{Contracts: len(contracts)}
	for i := range contracts {
		c := &contracts[i]
		res, err := s.materializer.MaterializeRolling(ctx, c, today)
		if err != nil {
			report.Failures++
			logger.Error("Rolling materialization failed", "contractID", c.ID, "error", err)
			continue
		}
		report.Created += len(res.Created)
		report.Skipped += len(res.Skipped)
		report.Failures += len(res.Failed)
	}

	logger.ExitMethod("contractService.DailyTick", "contracts", report.Contracts,
		"created", report.Created, "skipped", report.Skipped, "failures", report.Failures)
	return report, nil
}
