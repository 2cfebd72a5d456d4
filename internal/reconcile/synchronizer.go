package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/deppfellow/instrument-relay/internal/model"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// MaxConcurrency caps the fan-out accepted by WithConcurrency.
const MaxConcurrency = 16

// Synchronizer runs the reconciliation batch.
type Synchronizer struct {
	gateway     Gateway
	parser      Parser
	logger      zerolog.Logger
	concurrency int
	skipEmpty   bool
	now         func() time.Time
}

// Option customizes a Synchronizer.
type Option func(*Synchronizer)

// WithParser swaps the name decoder.
func WithParser(p Parser) Option {
	return func(s *Synchronizer) { s.parser = p }
}

// WithLogger sets the logger used for per-entry and summary lines.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Synchronizer) { s.logger = l }
}

// WithConcurrency processes up to n entries at once. Values below 1 mean
// sequential; values above MaxConcurrency are clamped.
func WithConcurrency(n int) Option {
	return func(s *Synchronizer) {
		switch {
		case n < 1:
			s.concurrency = 1
		case n > MaxConcurrency:
			s.concurrency = MaxConcurrency
		default:
			s.concurrency = n
		}
	}
}

// WithSkipEmptyTables leaves the counter of an empty table untouched and
// reports skipped-no-rows instead of resetting it to 0.
func WithSkipEmptyTables(skip bool) Option {
	return func(s *Synchronizer) { s.skipEmpty = skip }
}

// WithClock replaces time.Now for the run timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Synchronizer) { s.now = now }
}

// NewSynchronizer builds a Synchronizer around gateway.
func NewSynchronizer(gateway Gateway, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		gateway:     gateway,
		parser:      ConventionParser{},
		logger:      zerolog.Nop(),
		concurrency: 1,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Synchronize loads the registry and reconciles every entry.
//
// The returned error is always ErrOrchestration (wrapped) and only happens when
// the registry cannot be loaded or the Synchronizer has no gateway. Entry
// failures live in the BatchResult.
func (s *Synchronizer) Synchronize(ctx context.Context, loader Loader) (*model.BatchResult, error) {
	if loader == nil {
		return nil, errors.Wrap(ErrOrchestration, "no registry loader configured")
	}
	reg, err := loader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: load registry: %w", ErrOrchestration, err)
	}
	return s.Run(ctx, reg)
}

// Run reconciles every entry of reg in declaration order.
func (s *Synchronizer) Run(ctx context.Context, reg Registry) (*model.BatchResult, error) {
	if s.gateway == nil {
		return nil, errors.Wrap(ErrOrchestration, "no datastore gateway configured")
	}

	names := reg.Names()
	result := &model.BatchResult{
		RegistryVersion: reg.Version(),
		StartedAt:       s.now(),
		Outcomes:        make([]model.ReconciliationOutcome, len(names)),
	}

	if s.concurrency <= 1 {
		for i, name := range names {
			result.Outcomes[i] = s.reconcileOne(ctx, name)
		}
	} else {
		// Each goroutine owns one slot, so the report keeps registry order.
		var g errgroup.Group
		g.SetLimit(s.concurrency)
		for i, name := range names {
			g.Go(func() error {
				result.Outcomes[i] = s.reconcileOne(ctx, name)
				return nil
			})
		}
		_ = g.Wait()
	}

	result.FinishedAt = s.now()

	summary := result.Summary()
	s.logger.Info().
		Int("registry_version", result.RegistryVersion).
		Int("total", summary.Total).
		Int("applied", summary.Applied).
		Int("skipped", summary.Skipped).
		Int("failed", summary.Failed).
		Dur("duration", result.Duration()).
		Msg("sequence reconciliation finished")

	return result, nil
}

func (s *Synchronizer) reconcileOne(ctx context.Context, name string) model.ReconciliationOutcome {
	logger := s.logger.With().Str("sequence", name).Logger()

	desc, err := s.parser.Parse(name)
	if err != nil {
		logger.Warn().Err(err).Msg("skipping sequence with malformed name")
		return model.Failed(model.SequenceDescriptor{SequenceName: name}, model.FailureMalformedName, err)
	}

	maxID, hasRows, err := s.gateway.MaxIdentifier(ctx, desc.TableName, desc.IDColumnName)
	if err != nil {
		err = fmt.Errorf("%w: %s.%s: %w", ErrQuery, desc.TableName, desc.IDColumnName, err)
		logger.Warn().Err(err).Msg("max identifier lookup failed")
		return model.Failed(desc, model.FailureQuery, err)
	}

	if !hasRows {
		if s.skipEmpty {
			logger.Debug().Str("table", desc.TableName).Msg("table is empty, counter left unchanged")
			return model.SkippedNoRows(desc)
		}
		maxID = 0
	}

	if err := s.gateway.ResetSequenceCounter(ctx, name, maxID); err != nil {
		err = fmt.Errorf("%w: %w", ErrReset, err)
		logger.Warn().Err(err).Int64("value", maxID).Msg("counter reset failed")
		return model.Failed(desc, model.FailureReset, err)
	}

	logger.Debug().Int64("value", maxID).Msg("counter reset")
	return model.Applied(desc, maxID)
}
