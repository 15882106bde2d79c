package workers

import (
	"context"
	"log/slog"

	application "demesne/contexts/realm-economy/treasury-service/application"
	"demesne/contexts/realm-economy/treasury-service/application/commands"
)

// DistributionJob runs periodic distribution attempts for due settlements.
type DistributionJob struct {
	Commands  commands.UseCase
	BatchSize int
	Logger    *slog.Logger
}

func (j DistributionJob) RunOnce(ctx context.Context) error {
	logger := application.ResolveLogger(j.Logger)
	limit := j.BatchSize
	if limit <= 0 {
		limit = 100
	}
	if err := j.Commands.ProcessDueSettlements(ctx, limit); err != nil {
		logger.Error("distribution job cycle failed",
			"event", "treasury_distribution_job_cycle_failed",
			"module", "realm-economy/treasury-service",
			"layer", "worker",
			"error", err.Error(),
		)
		return err
	}
	logger.Debug("distribution job cycle succeeded",
		"event", "treasury_distribution_job_cycle_succeeded",
		"module", "realm-economy/treasury-service",
		"layer", "worker",
		"limit", limit,
	)
	return nil
}
