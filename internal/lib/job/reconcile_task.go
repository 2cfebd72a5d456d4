package job

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

// TaskReconcile is the Asynq task type for a reconciliation run.
const TaskReconcile = "sequence:reconcile"

// Triggers recorded on the payload, in logs and in metrics.
const (
	TriggerQueue     = "queue"
	TriggerScheduled = "scheduled"
)

const (
	// ReconcileTaskTimeout kills a run that hangs on the database.
	ReconcileTaskTimeout = 5 * time.Minute

	// ScheduledUniqueTTL is how long a scheduled task blocks a duplicate.
	ScheduledUniqueTTL = 30 * time.Minute
)

// ReconcilePayload is the JSON task payload.
//
// An empty Sequences means the whole registry.
type ReconcilePayload struct {
	Sequences   []string `json:"sequences,omitempty"`
	Trigger     string   `json:"trigger"`
	RequestedBy string   `json:"requested_by,omitempty"`
	RequestID   string   `json:"request_id,omitempty"`
}

// NewReconcileTask builds the task. A run only writes values derived from
// the tables, so retries are safe.
func NewReconcileTask(p ReconcilePayload) (*asynq.Task, error) {
	if p.Trigger == "" {
		p.Trigger = TriggerQueue
	}
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(
		TaskReconcile,
		payload,
		asynq.MaxRetry(3),
		asynq.Queue(QueueCritical),
		asynq.Timeout(ReconcileTaskTimeout),
	), nil
}
