package scheduler

import (
	"fmt"
	"sync"
	"time"

	"ridepool-backend/internal/logger"

	"github.com/robfig/cron/v3"
)

// Ticker invokes registered jobs on a schedule.
type Ticker interface {
	OnTick(name, spec string, job func()) error
}

// Scheduler manages cron job scheduling
type Scheduler struct {
	cron *cron.Cron
}

// NewScheduler creates a seconds-precision cron in the given location
func NewScheduler(loc *time.Location) *Scheduler {
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithSeconds(),
	)
	return &Scheduler{cron: c}
}

// OnTick registers job under spec. The spec uses six fields, seconds first.
func (s *Scheduler) OnTick(name, spec string, job func()) error {
	if _, err := s.cron.AddFunc(spec, job); err != nil {
		return fmt.Errorf("failed to register %s job: %w", name, err)
	}
	logger.Info("Registered cron job", "job", name, "spec", spec)
	return nil
}

// Start begins the cron scheduler
func (s *Scheduler) Start() {
	logger.Info("Starting cron scheduler...")
	s.cron.Start()
	logger.Info("Cron scheduler started successfully")
}

// Stop gracefully stops the cron scheduler, waiting for running jobs
func (s *Scheduler) Stop() {
	logger.Info("Stopping cron scheduler...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Info("Cron scheduler stopped")
}

// IsRunning returns true if the scheduler has registered entries
func (s *Scheduler) IsRunning() bool {
	return len(s.cron.Entries()) > 0
}

// NextRun reports when the first registered job fires next.
func (s *Scheduler) NextRun() (time.Time, bool) {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}, false
	}
	return entries[0].Next, true
}

// Manual fires registered jobs only when Fire is called.
type Manual struct {
	mu   sync.Mutex
	jobs map[string]func()
}

func NewManual() *Manual {
	return &Manual{jobs: make(map[string]func())}
}

func (m *Manual) OnTick(name, _ string, job func()) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[name] = job
	return nil
}

// Fire runs the named job synchronously and reports whether it was registered.
func (m *Manual) Fire(name string) bool {
	m.mu.Lock()
	job, ok := m.jobs[name]
	m.mu.Unlock()
	if ok {
		job()
	}
	return ok
}
