package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskFleetCleanup removes fleets whose start time is past retention.
	TaskFleetCleanup = "fleet:cleanup"
)

// FleetCleanupPayload configures one retention sweep. RetainFor counts
// backwards from the time the job runs.
type FleetCleanupPayload struct {
	RetainFor time.Duration `json:"retain_for"`
}

// NewFleetCleanupTask constructs an Asynq task for a retention sweep.
func NewFleetCleanupTask(payload FleetCleanupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskFleetCleanup, data), nil
}
