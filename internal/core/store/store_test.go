package store

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/metricstore/internal/core/metric"
	"github.com/zeusync/metricstore/internal/core/slowtx"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingSink struct {
	periods map[Timestamp]*Period
	order   []Timestamp
	failOn  Timestamp
}

func newRecordingSink() *recordingSink {
	return &recordingSink{periods: make(map[Timestamp]*Period)}
}

var errSinkDown = errors.New("sink down")

func (s *recordingSink) AddReportingPeriod(ts Timestamp, p *Period) error {
	if s.failOn != 0 && ts == s.failOn {
		return errSinkDown
	}
	s.periods[ts] = p.Clone()
	s.order = append(s.order, ts)
	return nil
}

func newTestStore(start time.Time) (*Store, *fakeClock) {
	clock := &fakeClock{now: start}
	return New(WithClock(clock.Now)), clock
}

var base = time.Date(2024, 3, 10, 12, 30, 15, 0, time.UTC)

func TestTimestampNormalization(t *testing.T) {
	ts := NewTimestamp(time.Date(2024, 3, 10, 12, 30, 59, 999, time.UTC))
	assert.Equal(t, Timestamp(time.Date(2024, 3, 10, 12, 30, 0, 0, time.UTC).Unix()), ts)
	assert.Equal(t, ts, NewTimestamp(base))
	assert.Equal(t, "2024-03-10T12:30:00Z", ts.String())

	// Display zone does not matter.
	zone := time.FixedZone("X", 5*3600+1800)
	assert.Equal(t, ts, NewTimestamp(base.In(zone)))
	assert.Equal(t, int64(15), ts.AgeInSeconds(base))
}

func TestTrackPassthroughKeepsIdentity(t *testing.T) {
	s, _ := newTestStore(base)
	id := metric.NewIdentity(metric.TypeController, "users/show", "")

	s.Track(metric.Set{id: metric.NewAggregate(1, 2)})
	s.Track(metric.Set{id: metric.NewAggregate(3)})

	agg, ok := s.CurrentPeriod().Metric(id)
	require.True(t, ok)
	assert.Equal(t, *metric.NewAggregate(1, 2, 3), agg)
}

func TestTrackOrderDoesNotMatter(t *testing.T) {
	id := metric.NewIdentity(metric.TypeCPU, "user", "")
	batches := []*metric.Aggregate{metric.NewAggregate(5), metric.NewAggregate(1, 8), metric.NewAggregate(2)}

	forward, _ := newTestStore(base)
	for _, b := range batches {
		forward.Track(metric.Set{id: b})
	}
	backward, _ := newTestStore(base)
	for i := len(batches) - 1; i >= 0; i-- {
		backward.Track(metric.Set{id: batches[i]})
	}

	f, _ := forward.CurrentPeriod().Metric(id)
	b, _ := backward.CurrentPeriod().Metric(id)
	assert.Equal(t, f, b)
	assert.Equal(t, uint64(4), f.CallCount)
}

func TestTrackErrorsKeepsDetailAndRollup(t *testing.T) {
	s, _ := newTestStore(base)
	id := metric.NewIdentity(metric.TypeErrors, "500", "Controller/users/show")

	s.Track(metric.Set{id: metric.NewAggregate(1)})

	p := s.CurrentPeriod()
	detail, ok := p.Metric(id)
	require.True(t, ok)
	assert.Equal(t, uint64(1), detail.CallCount)

	rollup, ok := p.Metric(metric.NewIdentity(metric.TypeErrors, "Request", "Controller/users/show"))
	require.True(t, ok)
	assert.Equal(t, uint64(1), rollup.CallCount)
	assert.Len(t, p.Metrics(), 2)
}

func TestTrackOtherTypesRollUp(t *testing.T) {
	s, _ := newTestStore(base)
	s.Track(metric.Set{metric.NewIdentity("ActiveRecord", "User#find", "S"): metric.NewAggregate(0.2)})
	s.Track(metric.Set{metric.NewIdentity("ActiveRecord", "Post#find", "S"): metric.NewAggregate(0.4)})

	metrics := s.CurrentPeriod().Metrics()
	require.Len(t, metrics, 1)
	agg, ok := metrics[metric.NewIdentity("ActiveRecord", "all", "S")]
	require.True(t, ok)
	assert.Equal(t, uint64(2), agg.CallCount)
	_, ok = metrics[metric.NewIdentity("ActiveRecord", "User#find", "S")]
	assert.False(t, ok)
}

func TestTrackOne(t *testing.T) {
	s, _ := newTestStore(base)
	s.TrackOne(metric.TypeQueue, "mailers", 0.25)

	agg, ok := s.CurrentPeriod().Metric(metric.NewIdentity(metric.TypeQueue, "all", ""))
	require.True(t, ok)
	assert.Equal(t, 0.25, agg.Sum)
}

func TestTrackSlowTransaction(t *testing.T) {
	s, _ := newTestStore(base)
	s.TrackSlowTransaction(nil)
	assert.Equal(t, 0, s.Len())

	s.TrackSlowTransaction(slowtx.New("Controller/users/show", "/users/1", base, 3*time.Second))
	txs := s.CurrentPeriod().SlowTransactions()
	require.Len(t, txs, 1)
	assert.Equal(t, "/users/1", txs[0].URI)
}

func TestSlowTransactionCapacityOption(t *testing.T) {
	s := New(WithClock(func() time.Time { return base }), WithSlowTransactionCapacity(2))
	for i := 0; i < 5; i++ {
		s.TrackSlowTransaction(slowtx.New("Controller/a", "/a", base, time.Second))
	}
	assert.Len(t, s.CurrentPeriod().SlowTransactions(), 2)
}

func TestCurrentPeriodIsACopy(t *testing.T) {
	s, _ := newTestStore(base)
	s.TrackOne(metric.TypeController, "a", 1)

	p := s.CurrentPeriod()
	p.Absorb(metric.NewIdentity(metric.TypeController, "a", ""), *metric.NewAggregate(1))

	agg, _ := s.CurrentPeriod().Metric(metric.NewIdentity(metric.TypeController, "a", ""))
	assert.Equal(t, uint64(1), agg.CallCount)
}

func TestWriteToLayawaySkipsCurrentMinute(t *testing.T) {
	s, clock := newTestStore(base)
	s.TrackOne(metric.TypeController, "old", 1)
	old := s.CurrentTimestamp()

	clock.Advance(time.Minute)
	s.TrackOne(metric.TypeController, "older-but-later", 1)
	middle := s.CurrentTimestamp()

	clock.Advance(time.Minute)
	s.TrackOne(metric.TypeController, "current", 1)
	current := s.CurrentTimestamp()

	sink := newRecordingSink()
	require.NoError(t, s.WriteToLayaway(sink, false))

	assert.Equal(t, []Timestamp{old, middle}, sink.order)
	assert.Equal(t, []Timestamp{current}, s.Timestamps())
	_, ok := s.Period(current)
	assert.True(t, ok)
}

func TestWriteToLayawayForceIncludesCurrent(t *testing.T) {
	s, clock := newTestStore(base)
	s.TrackOne(metric.TypeController, "old", 1)
	clock.Advance(time.Minute)
	s.TrackOne(metric.TypeController, "current", 1)

	sink := newRecordingSink()
	require.NoError(t, s.WriteToLayaway(sink, true))

	assert.Len(t, sink.order, 2)
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, uint64(1), sink.periods[s.CurrentTimestamp()].RequestCount())
}

func TestWriteToLayawayPropagatesSinkFailure(t *testing.T) {
	s, clock := newTestStore(base)
	s.TrackOne(metric.TypeController, "a", 1)
	first := s.CurrentTimestamp()
	clock.Advance(time.Minute)
	s.TrackOne(metric.TypeController, "b", 1)
	second := s.CurrentTimestamp()
	clock.Advance(time.Minute)
	s.TrackOne(metric.TypeController, "c", 1)
	third := s.CurrentTimestamp()

	sink := newRecordingSink()
	sink.failOn = second

	err := s.WriteToLayaway(sink, false)
	require.Error(t, err)
	assert.ErrorIs(t, err, errSinkDown)

	assert.Equal(t, []Timestamp{first}, sink.order)
	assert.Equal(t, []Timestamp{second, third}, s.Timestamps())
}

func TestWriteToLayawayNilSink(t *testing.T) {
	s, _ := newTestStore(base)
	assert.ErrorIs(t, s.WriteToLayaway(nil, true), ErrNilSink)
}

func TestConcurrentTrackLosesNothing(t *testing.T) {
	s := New()
	const workers, perWorker = 32, 500

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				s.TrackOne(metric.TypeController, "counter", 1)
			}
		}()
	}
	wg.Wait()

	// The run may straddle a minute boundary, so flush everything and sum.
	sink := newRecordingSink()
	require.NoError(t, s.WriteToLayaway(sink, true))

	var total uint64
	for _, p := range sink.periods {
		total += p.RequestCount()
	}
	assert.Equal(t, uint64(workers*perWorker), total)
}
