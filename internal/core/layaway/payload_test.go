package layaway

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/metricstore/internal/core/metric"
	"github.com/zeusync/metricstore/internal/core/slowtx"
	"github.com/zeusync/metricstore/internal/core/store"
)

func samplePeriod(ts store.Timestamp) *store.Period {
	p := store.NewPeriod(ts, 5)
	p.MergeMetrics(metric.Set{
		metric.NewIdentity(metric.TypeController, "users/index", ""):       metric.NewAggregate(0.12, 0.4),
		metric.NewIdentity(metric.TypeErrors, "500", "Controller/users"):   metric.NewAggregate(1),
		metric.NewIdentity("ActiveRecord", "User#find", "Controller/users"): metric.NewAggregate(0.01),
	})
	p.MergeSlowTransactions(slowtx.SlowTransaction{
		ID:        "7a0c",
		Endpoint:  "Controller/users/index",
		URI:       "/users",
		Duration:  2.5,
		StartedAt: 1700000000000000000,
		Context:   map[string]string{"user": "42"},
	})
	return p
}

func TestPayloadRoundTrip(t *testing.T) {
	in := NewPayload()
	in.Merge(1700000040, samplePeriod(1700000040))
	in.Merge(1700000100, samplePeriod(1700000100))

	data, err := in.Serialize()
	require.NoError(t, err)
	require.NotEmpty(t, data)

	out, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, in, out)
	assert.Equal(t, []store.Timestamp{1700000040, 1700000100}, out.Timestamps())
}

func TestPayloadSerializeIsDeterministic(t *testing.T) {
	in := NewPayload()
	in.Merge(60, samplePeriod(60))
	in.Merge(120, samplePeriod(120))

	first, err := in.Serialize()
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := in.Clone().Serialize()
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestPayloadEmpty(t *testing.T) {
	data, err := NewPayload().Serialize()
	require.NoError(t, err)
	assert.Empty(t, data)

	out, err := Decode(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, out.Len())

	var nilPayload *Payload
	data, err = nilPayload.Serialize()
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestPayloadDecodeRejectsGarbage(t *testing.T) {
	_, err := Decode([]byte{0xc1, 0x00, 0xff})
	assert.Error(t, err)
}

func TestPayloadMergeCombinesSamePeriod(t *testing.T) {
	p := NewPayload()
	p.Merge(60, samplePeriod(60))
	p.Merge(60, samplePeriod(60))

	require.Equal(t, 1, p.Len())
	period := p.Periods[60]
	assert.Equal(t, uint64(4), period.RequestCount())

	rollup, ok := period.Metric(metric.NewIdentity(metric.TypeErrors, "Request", "Controller/users"))
	require.True(t, ok)
	assert.Equal(t, uint64(2), rollup.CallCount)
	assert.Len(t, period.SlowTransactions(), 2)
}

func TestPayloadMergeCopiesInsertedPeriod(t *testing.T) {
	src := samplePeriod(60)
	p := NewPayload()
	p.Merge(60, src)

	src.Absorb(metric.NewIdentity(metric.TypeController, "users/index", ""), *metric.NewAggregate(9))
	assert.Equal(t, uint64(2), p.Periods[60].RequestCount())
}
