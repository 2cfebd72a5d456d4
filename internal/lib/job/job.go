// Package job runs sequence reconciliation in the background with Asynq.
//
// Asynq is a Redis-backed job queue:
//   - the API enqueues "sequence:reconcile" tasks through asynq.Client
//   - asynq.Server workers execute them through the Reconciler
//   - asynq.Scheduler enqueues the same task on reconciler.schedule
package job

import (
	"context"
	"fmt"
	"time"

	"github.com/deppfellow/instrument-relay/internal/config"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
)

// Queue names and their worker share.
const (
	QueueCritical = "critical"
	QueueDefault  = "default"
	QueueLow      = "low"
)

// JobService holds the Asynq client (enqueue), server (workers) and
// scheduler (cron).
type JobService struct {
	// Client is used to enqueue tasks into Redis.
	Client *asynq.Client

	server    *asynq.Server
	scheduler *asynq.Scheduler
	schedule  string

	logger *zerolog.Logger

	// Set by InitHandlers.
	reconciler Reconciler
	mailer     Mailer
	alertEmail string

	started bool
}

// NewJobService creates a JobService backed by the Redis from cfg. Nothing
// is started; call InitHandlers then Start.
func NewJobService(logger *zerolog.Logger, cfg *config.Config) *JobService {
	redisOpt := asynq.RedisClientOpt{Addr: cfg.Redis.Address}

	client := asynq.NewClient(redisOpt)

	// Reconciliation is a single, short task type. Concurrency stays low so
	// two runs never hammer the database at once from the same worker.
	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 2,
			Queues: map[string]int{
				QueueCritical: 6,
				QueueDefault:  3,
				QueueLow:      1,
			},
			Logger:   newAsynqLogger(logger),
			LogLevel: asynq.WarnLevel,
		},
	)

	var scheduler *asynq.Scheduler
	if cfg.Reconciler.Schedule != "" {
		scheduler = asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{
			Location: time.UTC,
			Logger:   newAsynqLogger(logger),
			LogLevel: asynq.WarnLevel,
			PostEnqueueFunc: func(info *asynq.TaskInfo, err error) {
				if err != nil {
					logger.Warn().Err(err).Msg("scheduled reconciliation was not enqueued")
					return
				}
				logger.Info().Str("task_id", info.ID).Msg("scheduled reconciliation enqueued")
			},
		})
	}

	return &JobService{
		Client:    client,
		server:    server,
		scheduler: scheduler,
		schedule:  cfg.Reconciler.Schedule,
		logger:    logger,
	}
}

// Start registers task handlers, starts the workers and, when a schedule is
// configured, the scheduler. Both run in their own goroutines.
func (j *JobService) Start() error {
	if j.reconciler == nil {
		return fmt.Errorf("job handlers not initialized")
	}

	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskReconcile, j.handleReconcileTask)

	j.logger.Info().Msg("Starting background job server")
	if err := j.server.Start(mux); err != nil {
		return fmt.Errorf("starting job server: %w", err)
	}
	j.started = true

	if j.scheduler != nil {
		task, err := NewReconcileTask(ReconcilePayload{Trigger: TriggerScheduled})
		if err != nil {
			return err
		}
		// Unique keeps a slow run from stacking up behind itself.
		entryID, err := j.scheduler.Register(j.schedule, task, asynq.Unique(ScheduledUniqueTTL))
		if err != nil {
			return fmt.Errorf("registering reconciliation schedule %q: %w", j.schedule, err)
		}
		if err := j.scheduler.Start(); err != nil {
			return fmt.Errorf("starting scheduler: %w", err)
		}
		j.logger.Info().
			Str("schedule", j.schedule).
			Str("entry_id", entryID).
			Msg("reconciliation schedule registered")
	}

	return nil
}

// Enqueue pushes a reconciliation task and returns its id.
func (j *JobService) Enqueue(ctx context.Context, payload ReconcilePayload) (string, error) {
	task, err := NewReconcileTask(payload)
	if err != nil {
		return "", err
	}
	info, err := j.Client.EnqueueContext(ctx, task)
	if err != nil {
		return "", fmt.Errorf("enqueue %s: %w", TaskReconcile, err)
	}
	return info.ID, nil
}

// Stop gracefully stops the scheduler and the workers and closes the client.
func (j *JobService) Stop() {
	j.logger.Info().Msg("Stopping background job server")
	if j.started {
		if j.scheduler != nil {
			j.scheduler.Shutdown()
		}
		j.server.Shutdown()
	}
	if err := j.Client.Close(); err != nil {
		j.logger.Warn().Err(err).Msg("closing asynq client")
	}
}
