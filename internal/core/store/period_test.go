package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/metricstore/internal/core/metric"
	"github.com/zeusync/metricstore/internal/core/slowtx"
)

func TestPassthroughTypes(t *testing.T) {
	for _, typ := range []string{"CPU", "Memory", "Instance", "Controller", "SlowTransaction"} {
		assert.True(t, IsPassthrough(typ), typ)
	}
	assert.False(t, IsPassthrough("Errors"))
	assert.False(t, IsPassthrough("QueueTime"))
}

func TestRequestCount(t *testing.T) {
	p := NewPeriod(1, 0)
	p.MergeMetrics(metric.Set{
		metric.NewIdentity(metric.TypeController, "a", ""): metric.NewAggregate(1, 1),
		metric.NewIdentity(metric.TypeController, "b", ""): metric.NewAggregate(1),
		metric.NewIdentity(metric.TypeQueueTime, "Request", "Controller/a"): metric.NewAggregate(0.1),
		metric.NewIdentity(metric.TypeErrors, "500", "Controller/a"): metric.NewAggregate(1),
	})
	assert.Equal(t, uint64(3), p.RequestCount())
}

func TestMergeMetricsSkipsNilAggregates(t *testing.T) {
	p := NewPeriod(1, 0)
	p.MergeMetrics(metric.Set{metric.NewIdentity(metric.TypeController, "a", ""): nil})
	assert.Empty(t, p.Metrics())
}

func TestMergePeriodDoesNotDoubleCountErrorRollup(t *testing.T) {
	errID := metric.NewIdentity(metric.TypeErrors, "500", "Controller/a")
	rollupID := metric.NewIdentity(metric.TypeErrors, "Request", "Controller/a")

	left := NewPeriod(60, 0)
	left.Absorb(errID, *metric.NewAggregate(1))
	right := NewPeriod(60, 0)
	right.Absorb(errID, *metric.NewAggregate(1))
	right.MergeSlowTransactions(slowtx.SlowTransaction{ID: "x", Endpoint: "Controller/a"})

	left.MergePeriod(right)

	detail, ok := left.Metric(errID)
	require.True(t, ok)
	assert.Equal(t, uint64(2), detail.CallCount)
	rollup, ok := left.Metric(rollupID)
	require.True(t, ok)
	assert.Equal(t, uint64(2), rollup.CallCount)
	assert.Len(t, left.SlowTransactions(), 1)
}

func TestMergePeriodMatchesAbsorbingAllSamples(t *testing.T) {
	samples := []metric.Set{
		{metric.NewIdentity("View", "index", "S"): metric.NewAggregate(0.2)},
		{metric.NewIdentity(metric.TypeErrors, "404", "S"): metric.NewAggregate(1)},
		{metric.NewIdentity(metric.TypeController, "S", ""): metric.NewAggregate(0.5)},
		{metric.NewIdentity("View", "show", "S"): metric.NewAggregate(0.3)},
	}

	all := NewPeriod(60, 0)
	for _, s := range samples {
		all.MergeMetrics(s)
	}

	a, b := NewPeriod(60, 0), NewPeriod(60, 0)
	for i, s := range samples {
		if i%2 == 0 {
			a.MergeMetrics(s)
		} else {
			b.MergeMetrics(s)
		}
	}
	a.MergePeriod(b)

	assert.Equal(t, all.Metrics(), a.Metrics())
}
