package reconcile

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/deppfellow/instrument-relay/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeGateway keeps per-table maxima and per-sequence counters in memory.
type fakeGateway struct {
	mu sync.Mutex

	maxByTable  map[string]int64
	queryErrFor map[string]error
	resetErrFor map[string]error
	queryErrAll error

	counters   map[string]int64
	queryCalls []string
	resetCalls []string
}

var _ Gateway = (*fakeGateway)(nil)

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		maxByTable:  map[string]int64{},
		queryErrFor: map[string]error{},
		resetErrFor: map[string]error{},
		counters:    map[string]int64{},
	}
}

func (f *fakeGateway) MaxIdentifier(_ context.Context, table, column string) (int64, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queryCalls = append(f.queryCalls, table+"."+column)
	if f.queryErrAll != nil {
		return 0, false, f.queryErrAll
	}
	if err := f.queryErrFor[table]; err != nil {
		return 0, false, err
	}
	v, ok := f.maxByTable[table]
	return v, ok, nil
}

func (f *fakeGateway) ResetSequenceCounter(_ context.Context, seq string, value int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resetCalls = append(f.resetCalls, seq)
	if err := f.resetErrFor[seq]; err != nil {
		return err
	}
	f.counters[seq] = value
	return nil
}

type failingLoader struct{ err error }

func (l failingLoader) Load(context.Context) (Registry, error) { return Registry{}, l.err }

func mustRegistry(t *testing.T, names ...string) Registry {
	t.Helper()
	reg, err := NewRegistry(1, names...)
	require.NoError(t, err)
	return reg
}

func statuses(res *model.BatchResult) []model.OutcomeStatus {
	out := make([]model.OutcomeStatus, 0, len(res.Outcomes))
	for _, o := range res.Outcomes {
		out = append(out, o.Status)
	}
	return out
}

func TestSynchronizer_AppliesMaxIdentifier(t *testing.T) {
	gw := newFakeGateway()
	gw.maxByTable["thai_instrument"] = 42
	gw.maxByTable["user"] = 7

	s := NewSynchronizer(gw)
	res, err := s.Run(context.Background(), mustRegistry(t, "thai_instrument_thaiinstrument_id_seq", "user_user_id_seq"))
	require.NoError(t, err)

	require.Len(t, res.Outcomes, 2)
	assert.Equal(t, model.OutcomeApplied, res.Outcomes[0].Status)
	require.NotNil(t, res.Outcomes[0].AppliedValue)
	assert.Equal(t, int64(42), *res.Outcomes[0].AppliedValue)
	assert.Equal(t, "thai_instrument", res.Outcomes[0].TableName)
	assert.Equal(t, []string{"thai_instrument.thaiinstrument_id", "user.user_id"}, gw.queryCalls)
	assert.Equal(t, int64(42), gw.counters["thai_instrument_thaiinstrument_id_seq"])
	assert.Equal(t, int64(7), gw.counters["user_user_id_seq"])
	assert.Equal(t, model.BatchSuccess, res.Status())
}

func TestSynchronizer_Idempotent(t *testing.T) {
	gw := newFakeGateway()
	gw.maxByTable["a"] = 10
	gw.maxByTable["b"] = 3
	reg := mustRegistry(t, "a_a_id_seq", "b_b_id_seq")
	s := NewSynchronizer(gw)

	first, err := s.Run(context.Background(), reg)
	require.NoError(t, err)
	second, err := s.Run(context.Background(), reg)
	require.NoError(t, err)

	for i := range first.Outcomes {
		assert.Equal(t, *first.Outcomes[i].AppliedValue, *second.Outcomes[i].AppliedValue)
	}
	assert.Equal(t, int64(10), gw.counters["a_a_id_seq"])
}

func TestSynchronizer_EmptyTableFloor(t *testing.T) {
	gw := newFakeGateway()
	reg := mustRegistry(t, "empty_thing_id_seq")

	res, err := NewSynchronizer(gw).Run(context.Background(), reg)
	require.NoError(t, err)
	require.Len(t, res.Outcomes, 1)
	assert.Equal(t, model.OutcomeApplied, res.Outcomes[0].Status)
	assert.Equal(t, int64(0), *res.Outcomes[0].AppliedValue)
	v, ok := gw.counters["empty_thing_id_seq"]
	assert.True(t, ok)
	assert.Equal(t, int64(0), v)
}

func TestSynchronizer_SkipEmptyTables(t *testing.T) {
	gw := newFakeGateway()
	reg := mustRegistry(t, "empty_thing_id_seq")

	res, err := NewSynchronizer(gw, WithSkipEmptyTables(true)).Run(context.Background(), reg)
	require.NoError(t, err)
	assert.Equal(t, []model.OutcomeStatus{model.OutcomeSkippedNoRows}, statuses(res))
	assert.Nil(t, res.Outcomes[0].AppliedValue)
	assert.Empty(t, gw.resetCalls)
	assert.Equal(t, model.BatchSuccess, res.Status())
}

func TestSynchronizer_FailureIsolation(t *testing.T) {
	gw := newFakeGateway()
	gw.maxByTable["a"] = 1
	gw.maxByTable["c"] = 3
	gw.queryErrFor["b"] = errors.New(`relation "b" does not exist`)

	res, err := NewSynchronizer(gw).Run(context.Background(), mustRegistry(t, "a_a_id_seq", "b_b_id_seq", "c_c_id_seq"))
	require.NoError(t, err)

	assert.Equal(t, []model.OutcomeStatus{model.OutcomeApplied, model.OutcomeFailed, model.OutcomeApplied}, statuses(res))
	failed := res.Outcomes[1]
	assert.Equal(t, model.FailureQuery, failed.FailureKind)
	assert.Contains(t, failed.FailureDetail, `relation "b" does not exist`)
	assert.Nil(t, failed.AppliedValue)
	assert.Equal(t, []string{"a_a_id_seq", "c_c_id_seq"}, gw.resetCalls)
	assert.Equal(t, model.BatchPartial, res.Status())
}

func TestSynchronizer_ResetFailure(t *testing.T) {
	gw := newFakeGateway()
	gw.maxByTable["a"] = 5
	gw.resetErrFor["a_a_id_seq"] = errors.New("permission denied for sequence a_a_id_seq")

	res, err := NewSynchronizer(gw).Run(context.Background(), mustRegistry(t, "a_a_id_seq"))
	require.NoError(t, err)
	require.Len(t, res.Outcomes, 1)
	assert.Equal(t, model.OutcomeFailed, res.Outcomes[0].Status)
	assert.Equal(t, model.FailureReset, res.Outcomes[0].FailureKind)
	assert.Contains(t, res.Outcomes[0].FailureDetail, "permission denied")
}

func TestSynchronizer_MalformedNameDoesNotStopBatch(t *testing.T) {
	gw := newFakeGateway()
	gw.maxByTable["a"] = 2

	res, err := NewSynchronizer(gw).Run(context.Background(), mustRegistry(t, "not_a_sequence", "a_a_id_seq"))
	require.NoError(t, err)
	assert.Equal(t, []model.OutcomeStatus{model.OutcomeFailed, model.OutcomeApplied}, statuses(res))
	assert.Equal(t, model.FailureMalformedName, res.Outcomes[0].FailureKind)
	assert.Equal(t, "not_a_sequence", res.Outcomes[0].SequenceName)
	assert.Equal(t, []string{"a.a_id"}, gw.queryCalls)
}

func TestSynchronizer_GatewayOutageIsNotFatal(t *testing.T) {
	gw := newFakeGateway()
	gw.queryErrAll = errors.New("connection refused")

	res, err := NewSynchronizer(gw).Synchronize(context.Background(), StaticLoader{Registry: mustRegistry(t, "a_a_id_seq", "b_b_id_seq", "c_c_id_seq")})
	require.NoError(t, err)
	assert.Equal(t, []model.OutcomeStatus{model.OutcomeFailed, model.OutcomeFailed, model.OutcomeFailed}, statuses(res))
	assert.Equal(t, model.BatchFailed, res.Status())
	assert.Empty(t, gw.resetCalls)
}

func TestSynchronizer_UnreadableRegistryIsFatal(t *testing.T) {
	gw := newFakeGateway()

	res, err := NewSynchronizer(gw).Synchronize(context.Background(), failingLoader{err: errors.New("open registry.yaml: no such file")})
	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrOrchestration)
	assert.Contains(t, err.Error(), "no such file")
	assert.Empty(t, gw.queryCalls)
}

func TestSynchronizer_NoGatewayIsFatal(t *testing.T) {
	_, err := NewSynchronizer(nil).Run(context.Background(), mustRegistry(t, "a_a_id_seq"))
	assert.ErrorIs(t, err, ErrOrchestration)
}

func TestSynchronizer_OrderIsDeclarationOrder(t *testing.T) {
	names := []string{"e_e_id_seq", "bad", "c_c_id_seq", "a_a_id_seq", "d_d_id_seq", "b_b_id_seq"}
	gw := newFakeGateway()
	for _, table := range []string{"a", "c", "e"} {
		gw.maxByTable[table] = 1
	}
	gw.queryErrFor["d"] = errors.New("boom")

	for _, concurrency := range []int{1, 4} {
		res, err := NewSynchronizer(gw, WithConcurrency(concurrency)).Run(context.Background(), mustRegistry(t, names...))
		require.NoError(t, err)

		got := make([]string, 0, len(res.Outcomes))
		for _, o := range res.Outcomes {
			got = append(got, o.SequenceName)
		}
		assert.Equal(t, names, got, "concurrency %d", concurrency)
		assert.Equal(t, model.OutcomeFailed, res.Outcomes[1].Status)
		assert.Equal(t, model.OutcomeFailed, res.Outcomes[4].Status)
	}
}

func TestSynchronizer_CanceledContextFailsRemainingEntries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	gw := &ctxAwareGateway{}
	res, err := NewSynchronizer(gw).Run(ctx, mustRegistry(t, "a_a_id_seq", "b_b_id_seq"))
	require.NoError(t, err)
	for _, o := range res.Outcomes {
		assert.Equal(t, model.OutcomeFailed, o.Status)
		assert.Contains(t, o.FailureDetail, context.Canceled.Error())
	}
}

type ctxAwareGateway struct{}

func (ctxAwareGateway) MaxIdentifier(ctx context.Context, _, _ string) (int64, bool, error) {
	if err := ctx.Err(); err != nil {
		return 0, false, err
	}
	return 1, true, nil
}

func (ctxAwareGateway) ResetSequenceCounter(ctx context.Context, _ string, _ int64) error {
	return ctx.Err()
}

func TestWithConcurrencyClamps(t *testing.T) {
	assert.Equal(t, 1, NewSynchronizer(nil, WithConcurrency(0)).concurrency)
	assert.Equal(t, MaxConcurrency, NewSynchronizer(nil, WithConcurrency(100)).concurrency)
	assert.Equal(t, 3, NewSynchronizer(nil, WithConcurrency(3)).concurrency)
}

func TestSynchronizer_RunTimestamps(t *testing.T) {
	start := time.Date(2026, 5, 4, 3, 0, 0, 0, time.UTC)
	tick := start
	clock := func() time.Time {
		now := tick
		tick = tick.Add(time.Second)
		return now
	}

	res, err := NewSynchronizer(newFakeGateway(), WithClock(clock)).Run(context.Background(), mustRegistry(t, "a_a_id_seq"))
	require.NoError(t, err)
	assert.Equal(t, start, res.StartedAt)
	assert.Equal(t, start.Add(time.Second), res.FinishedAt)
}
