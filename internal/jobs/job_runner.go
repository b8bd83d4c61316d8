package jobs

import (
	"fmt"

	"ridepool-backend/internal/config"
	"ridepool-backend/internal/logger"
	"ridepool-backend/internal/scheduler"
	"ridepool-backend/internal/service"
)

// Job names accepted by the cronjob binary's --run-once flag.
const (
	JobMaterializeRollingRides = "materialize-rolling-rides"
)

// JobRunner coordinates all scheduled jobs
type JobRunner struct {
	services *Services
	config   *config.Config
}

// Services holds all service dependencies needed by jobs
type Services struct {
	Contract service.ContractService
}

// NewJobRunner creates a new job runner with all dependencies
func NewJobRunner(services *Services, cfg *config.Config) *JobRunner {
	return &JobRunner{
		services: services,
		config:   cfg,
	}
}

// Register schedules every enabled job on t using the configured cron specs.
func (jr *JobRunner) Register(t scheduler.Ticker) error {
	if !jr.config.Scheduler.Enabled {
		logger.Info("Scheduler disabled, no jobs registered")
		return nil
	}
	return t.OnTick(JobMaterializeRollingRides, jr.config.Scheduler.MaterializeRollingRides, jr.MaterializeRollingRides)
}

// RunOnce executes the named job immediately (for manual execution)
func (jr *JobRunner) RunOnce(name string) error {
	switch name {
	case JobMaterializeRollingRides:
		jr.MaterializeRollingRides()
	default:
		return fmt.Errorf("unknown job: %s", name)
	}
	return nil
}

// runWithRecovery wraps job execution with panic recovery
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Job panicked", "job", jobName, "panic", r)
		}
	}()

	logger.Info("Starting job", "job", jobName)
	jobFunc()
	logger.Info("Job completed", "job", jobName)
}
