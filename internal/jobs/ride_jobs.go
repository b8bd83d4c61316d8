package jobs

import (
	"context"

	"ridepool-backend/internal/logger"
)

// MaterializeRollingRides posts the next week of contract rides for every
// active contract with auto-post enabled.
func (jr *JobRunner) MaterializeRollingRides() {
	jr.runWithRecovery("MaterializeRollingRides", func() {
		ctx := context.Background()

		report, err := jr.services.Contract.DailyTick(ctx)
		if err != nil {
			logger.Error("Failed to materialize rolling rides", "error", err)
			return
		}

		logger.Info("Materialized rolling rides",
			"contracts", report.Contracts,
			"created", report.Created,
			"skipped", report.Skipped,
			"failures", report.Failures)
	})
}
