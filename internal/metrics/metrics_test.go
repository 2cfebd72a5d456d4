package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/deppfellow/instrument-relay/internal/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func batch() *model.BatchResult {
	start := time.Date(2026, 3, 1, 3, 0, 0, 0, time.UTC)
	return &model.BatchResult{
		RegistryVersion: 1,
		StartedAt:       start,
		FinishedAt:      start.Add(250 * time.Millisecond),
		Outcomes: []model.ReconciliationOutcome{
			model.Applied(model.SequenceDescriptor{SequenceName: "user_user_id_seq", TableName: "user", IDColumnName: "user_id"}, 41),
			model.SkippedNoRows(model.SequenceDescriptor{SequenceName: "audio_instrument_audio_id_seq"}),
			model.Failed(model.SequenceDescriptor{SequenceName: "bad"}, model.FailureMalformedName, errors.New("malformed")),
		},
	}
}

func TestCollector_ObserveBatch(t *testing.T) {
	c := NewCollector()
	c.ObserveBatch(TriggerHTTP, batch())

	assert.Equal(t, 1.0, testutil.ToFloat64(c.runs.WithLabelValues(TriggerHTTP, "partial")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.outcomes.WithLabelValues("applied", "")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.outcomes.WithLabelValues("skipped-no-rows", "")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.outcomes.WithLabelValues("failed", "malformed_sequence_name")))
	assert.Equal(t, 41.0, testutil.ToFloat64(c.appliedValues.WithLabelValues("user_user_id_seq")))
	assert.Equal(t, 1, testutil.CollectAndCount(c.appliedValues))
	assert.Equal(t, float64(batch().FinishedAt.Unix()), testutil.ToFloat64(c.lastRun))

	c.ObserveOrchestrationError(TriggerScheduled)
	assert.Equal(t, 1.0, testutil.ToFloat64(c.runs.WithLabelValues(TriggerScheduled, "error")))
}

func TestCollector_RequestStarted(t *testing.T) {
	c := NewCollector()

	done := c.RequestStarted("POST")
	assert.Equal(t, 1.0, testutil.ToFloat64(c.httpInFlight))

	done("/admin/reset-all-sequences", 200)
	assert.Equal(t, 0.0, testutil.ToFloat64(c.httpInFlight))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.httpRequests.WithLabelValues("POST", "/admin/reset-all-sequences", "200")))
}

func TestNewRegistry(t *testing.T) {
	c := NewCollector()
	reg := NewRegistry(c)
	c.ObserveBatch(TriggerQueue, batch())

	families, err := reg.Gather()
	require.NoError(t, err)

	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["relay_reconciliation_runs_total"])
	assert.True(t, names["go_goroutines"])

	// Registering the same collector twice must fail.
	assert.Error(t, reg.Register(c))
	var already prometheus.AlreadyRegisteredError
	assert.ErrorAs(t, reg.Register(c), &already)
}
