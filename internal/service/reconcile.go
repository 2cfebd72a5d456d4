package service

import (
	"context"
	"fmt"
	"time"

	"github.com/deppfellow/instrument-relay/internal/config"
	"github.com/deppfellow/instrument-relay/internal/lib/job"
	"github.com/deppfellow/instrument-relay/internal/logger"
	"github.com/deppfellow/instrument-relay/internal/metrics"
	"github.com/deppfellow/instrument-relay/internal/model"
	"github.com/deppfellow/instrument-relay/internal/reconcile"
	"github.com/deppfellow/instrument-relay/internal/repository"
	"github.com/deppfellow/instrument-relay/internal/server"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// ErrQueueUnavailable is returned when an async run cannot be enqueued.
var ErrQueueUnavailable = errors.New("background job queue is unavailable")

// Enqueuer hands a reconciliation over to the background workers.
// *job.JobService implements it.
type Enqueuer interface {
	Enqueue(ctx context.Context, payload job.ReconcilePayload) (string, error)
}

// ReconcileService runs sequence reconciliations for the HTTP handlers and
// the background workers. It implements job.Reconciler.
type ReconcileService struct {
	logger       zerolog.Logger
	loader       reconcile.Loader
	parser       reconcile.Parser
	synchronizer *reconcile.Synchronizer
	metrics      *metrics.Collector
	jobs         Enqueuer
	timeout      time.Duration
}

// NewReconcileService builds the service from the reconciler config, using
// the sequence repository as the datastore gateway.
func NewReconcileService(s *server.Server, repos *repository.Repositories) *ReconcileService {
	return newReconcileService(
		*s.Logger,
		s.Config.Reconciler,
		repos.Sequences,
		reconcile.NewLoader(s.Config.Reconciler.RegistryFile),
		s.Metrics,
		s.Job,
	)
}

func newReconcileService(
	base zerolog.Logger,
	cfg config.ReconcilerConfig,
	gateway reconcile.Gateway,
	loader reconcile.Loader,
	collector *metrics.Collector,
	jobs Enqueuer,
) *ReconcileService {
	log := base.With().Str("component", "reconciler").Logger()
	return &ReconcileService{
		logger: log,
		loader: loader,
		parser: reconcile.ConventionParser{},
		synchronizer: reconcile.NewSynchronizer(gateway,
			reconcile.WithLogger(log),
			reconcile.WithConcurrency(cfg.Concurrency),
			reconcile.WithSkipEmptyTables(cfg.SkipEmptyTables),
		),
		metrics: collector,
		jobs:    jobs,
		timeout: time.Duration(cfg.Timeout) * time.Second,
	}
}

// Reconcile runs one batch over the registry, or over the requested subset
// of it in registry order.
//
// Errors:
//   - *reconcile.UnknownNameError when sequences names something the
//     registry does not declare
//   - reconcile.ErrOrchestration (wrapped) when the registry cannot be loaded
//
// Entry failures are never returned as an error; they are in the result.
func (s *ReconcileService) Reconcile(ctx context.Context, trigger string, sequences []string) (*model.BatchResult, error) {
	if trigger == metrics.TriggerHTTP && s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	reg, err := s.registry(ctx, sequences)
	if err != nil {
		if errors.Is(err, reconcile.ErrOrchestration) {
			s.metrics.ObserveOrchestrationError(trigger)
		}
		return nil, err
	}

	logger.FromContext(ctx, logger.RequestLoggerKey, &s.logger).Info().
		Str("trigger", trigger).
		Int("registry_version", reg.Version()).
		Int("entries", reg.Len()).
		Msg("starting sequence reconciliation")

	result, err := s.synchronizer.Run(ctx, reg)
	if err != nil {
		s.metrics.ObserveOrchestrationError(trigger)
		return nil, err
	}

	s.metrics.ObserveBatch(trigger, result)
	return result, nil
}

// Enqueue validates the requested subset and queues a background run.
// It returns the task id.
func (s *ReconcileService) Enqueue(ctx context.Context, sequences []string, requestedBy, requestID string) (string, error) {
	if _, err := s.registry(ctx, sequences); err != nil {
		return "", err
	}

	taskID, err := s.jobs.Enqueue(ctx, job.ReconcilePayload{
		Sequences:   sequences,
		Trigger:     job.TriggerQueue,
		RequestedBy: requestedBy,
		RequestID:   requestID,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrQueueUnavailable, err)
	}

	logger.FromContext(ctx, logger.RequestLoggerKey, &s.logger).Info().
		Str("task_id", taskID).
		Str("requested_by", requestedBy).
		Int("requested", len(sequences)).
		Msg("queued sequence reconciliation")
	return taskID, nil
}

// Describe lists the registry with each entry decoded by the parser.
// Entries that cannot be decoded carry the parse error instead.
func (s *ReconcileService) Describe(ctx context.Context) (*model.RegistryListing, error) {
	reg, err := s.registry(ctx, nil)
	if err != nil {
		return nil, err
	}

	listing := &model.RegistryListing{
		RegistryVersion: reg.Version(),
		Sequences:       make([]model.RegistryEntry, 0, reg.Len()),
	}
	for _, name := range reg.Names() {
		entry := model.RegistryEntry{SequenceName: name}
		if d, err := s.parser.Parse(name); err != nil {
			entry.Error = err.Error()
		} else {
			entry.TableName = d.TableName
			entry.IDColumnName = d.IDColumnName
		}
		listing.Sequences = append(listing.Sequences, entry)
	}
	return listing, nil
}

func (s *ReconcileService) registry(ctx context.Context, only []string) (reconcile.Registry, error) {
	if s.loader == nil {
		return reconcile.Registry{}, errors.Wrap(reconcile.ErrOrchestration, "no registry loader configured")
	}
	reg, err := s.loader.Load(ctx)
	if err != nil {
		return reconcile.Registry{}, fmt.Errorf("%w: load registry: %w", reconcile.ErrOrchestration, err)
	}
	return reg.Subset(only)
}
