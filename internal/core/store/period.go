package store

import (
	"github.com/zeusync/metricstore/internal/core/metric"
	"github.com/zeusync/metricstore/internal/core/slowtx"
)

// Types stored under their own name instead of Type/all.
var passthroughTypes = map[string]struct{}{
	metric.TypeCPU:             {},
	metric.TypeMemory:          {},
	metric.TypeInstance:        {},
	metric.TypeController:      {},
	metric.TypeSlowTransaction: {},
}

const (
	errorsRollupName = "Request"
	rollupName       = "all"
)

// IsPassthrough reports whether metrics of typ keep their own name.
func IsPassthrough(typ string) bool {
	_, ok := passthroughTypes[typ]
	return ok
}

// Period is one minute of aggregated metrics.
type Period struct {
	timestamp        Timestamp
	metrics          metric.Set
	slowTransactions *slowtx.Set
}

func NewPeriod(ts Timestamp, slowCapacity int) *Period {
	return &Period{
		timestamp:        ts,
		metrics:          make(metric.Set),
		slowTransactions: slowtx.NewSet(slowCapacity),
	}
}

func (p *Period) Timestamp() Timestamp {
	return p.timestamp
}

// Absorb folds one sample group into the period according to its type.
func (p *Period) Absorb(id metric.Identity, agg metric.Aggregate) {
	switch {
	case IsPassthrough(id.Type):
		p.metrics.Combine(id, agg)
	case id.Type == metric.TypeErrors:
		p.metrics.Combine(id, agg)
		p.metrics.Combine(metric.NewIdentity(metric.TypeErrors, errorsRollupName, id.Scope), agg)
	default:
		p.metrics.Combine(metric.NewIdentity(id.Type, rollupName, id.Scope), agg)
	}
}

func (p *Period) MergeMetrics(set metric.Set) *Period {
	for id, agg := range set {
		if agg == nil {
			continue
		}
		p.Absorb(id, *agg)
	}
	return p
}

func (p *Period) MergeSlowTransactions(txs ...slowtx.SlowTransaction) *Period {
	p.slowTransactions.Add(txs...)
	return p
}

// Combine merges an already absorbed aggregate under id without applying the
// absorption policy again.
func (p *Period) Combine(id metric.Identity, agg metric.Aggregate) {
	p.metrics.Combine(id, agg)
}

// MergePeriod folds another absorbed period into p. Aggregates combine
// pointwise; absorbing them again would count the Errors roll-up twice.
func (p *Period) MergePeriod(other *Period) *Period {
	for id, agg := range other.metrics {
		p.metrics.Combine(id, *agg)
	}
	p.slowTransactions.Add(other.slowTransactions.Items()...)
	return p
}

// Metrics returns a deep copy of the aggregate map.
func (p *Period) Metrics() metric.Set {
	return p.metrics.Clone()
}

func (p *Period) Metric(id metric.Identity) (metric.Aggregate, bool) {
	agg, ok := p.metrics[id]
	if !ok {
		return metric.Aggregate{}, false
	}
	return *agg, true
}

func (p *Period) SlowTransactions() []slowtx.SlowTransaction {
	return p.slowTransactions.Items()
}

func (p *Period) SlowTransactionCapacity() int {
	return p.slowTransactions.Capacity()
}

// RequestCount sums call counts of Controller metrics.
func (p *Period) RequestCount() uint64 {
	var total uint64
	for id, agg := range p.metrics {
		if id.Type == metric.TypeController {
			total += agg.CallCount
		}
	}
	return total
}

func (p *Period) Clone() *Period {
	return &Period{
		timestamp:        p.timestamp,
		metrics:          p.metrics.Clone(),
		slowTransactions: p.slowTransactions.Clone(),
	}
}
