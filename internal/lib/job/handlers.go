package job

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/deppfellow/instrument-relay/internal/config"
	"github.com/deppfellow/instrument-relay/internal/lib/email"
	"github.com/deppfellow/instrument-relay/internal/model"
	"github.com/deppfellow/instrument-relay/internal/reconcile"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
)

// Reconciler runs one reconciliation. The service layer implements it.
type Reconciler interface {
	Reconcile(ctx context.Context, trigger string, sequences []string) (*model.BatchResult, error)
}

// Mailer delivers failure reports. *email.Client implements it.
type Mailer interface {
	SendReconciliationReport(ctx context.Context, to string, report email.ReconciliationReport) error
}

// InitHandlers wires the dependencies the task handlers need.
//
// The email client is only created when both a Resend key and an alert
// address are configured.
func (j *JobService) InitHandlers(cfg *config.Config, logger *zerolog.Logger, reconciler Reconciler) {
	j.reconciler = reconciler
	j.alertEmail = cfg.Reconciler.AlertEmail
	if cfg.Integration.ResendAPIKey != "" && j.alertEmail != "" {
		j.mailer = email.NewClient(cfg, logger)
	}
}

// handleReconcileTask runs the reconciliation described by the payload.
//
// Only an orchestration error is returned to Asynq (and retried); entry
// failures are part of a normal run and end up in the report instead.
func (j *JobService) handleReconcileTask(ctx context.Context, t *asynq.Task) error {
	var p ReconcilePayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("failed to unmarshal reconcile payload: %w: %w", err, asynq.SkipRetry)
	}

	logger := j.logger.With().
		Str("task", TaskReconcile).
		Str("trigger", p.Trigger).
		Str("request_id", p.RequestID).
		Logger()
	if taskID, ok := asynq.GetTaskID(ctx); ok {
		logger = logger.With().Str("task_id", taskID).Logger()
	}

	logger.Info().
		Int("requested", len(p.Sequences)).
		Str("requested_by", p.RequestedBy).
		Msg("Processing reconciliation task")

	result, err := j.reconciler.Reconcile(ctx, p.Trigger, p.Sequences)
	var unknown *reconcile.UnknownNameError
	if errors.As(err, &unknown) {
		// The registry changed after the task was queued; retrying cannot help.
		logger.Error().Err(err).Msg("reconciliation task names unknown sequences")
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	}
	if err != nil {
		logger.Error().Err(err).Msg("reconciliation could not run")
		// Report once, on the attempt Asynq will not retry.
		retried, _ := asynq.GetRetryCount(ctx)
		maxRetry, _ := asynq.GetMaxRetry(ctx)
		if retried >= maxRetry {
			j.notify(ctx, logger, email.NewReconciliationReport(p.Trigger, nil, err))
		}
		return err
	}

	if len(result.Failures()) > 0 {
		j.notify(ctx, logger, email.NewReconciliationReport(p.Trigger, result, nil))
	}

	logger.Info().
		Str("status", string(result.Status())).
		Msg(result.Message())
	return nil
}

// notify sends report when alerts are configured. A failed email is logged
// and never fails the task.
func (j *JobService) notify(ctx context.Context, logger zerolog.Logger, report email.ReconciliationReport) {
	if j.mailer == nil || j.alertEmail == "" {
		return
	}
	if err := j.mailer.SendReconciliationReport(ctx, j.alertEmail, report); err != nil {
		logger.Error().Err(err).Str("to", j.alertEmail).Msg("Failed to send reconciliation report")
		return
	}
	logger.Info().Str("to", j.alertEmail).Msg("Sent reconciliation report")
}
