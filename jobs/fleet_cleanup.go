package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/fleetboard/fleetboard/internal/fleets"
	jobmetrics "github.com/fleetboard/fleetboard/internal/jobs"
)

// FleetCleanupJob deletes fleets whose start time fell out of the retention
// window. It runs on a cron schedule and can also be enqueued ad hoc.
type FleetCleanupJob struct {
	Fleets  *fleets.Service
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewFleetCleanupJob initialises the cleanup handler.
func NewFleetCleanupJob(service *fleets.Service, logger *slog.Logger, metrics *jobmetrics.Metrics) *FleetCleanupJob {
	return &FleetCleanupJob{
		Fleets:  service,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes one retention sweep.
func (j *FleetCleanupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Fleets == nil {
		return errors.New("fleet cleanup: handler not configured")
	}
	var payload FleetCleanupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.RetainFor <= 0 {
		payload.RetainFor = 30 * 24 * time.Hour
	}

	tracker := j.Metrics.Track(TaskFleetCleanup)
	cutoff := j.clock().Add(-payload.RetainFor)
	removed, err := j.Fleets.DeleteOlderThan(ctx, cutoff)
	if err = tracker.End(err); err != nil {
		j.Logger.Error("fleet cleanup failed", slog.Any("error", err))
		return err
	}

	j.Metrics.AddReapedFleets(removed)
	j.Logger.Info("fleet cleanup finished",
		slog.Time("cutoff", cutoff),
		slog.Int64("removed", removed))
	return nil
}
