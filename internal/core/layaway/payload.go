package layaway

import (
	"fmt"
	"sort"

	"github.com/zeusync/metricstore/internal/core/metric"
	"github.com/zeusync/metricstore/internal/core/slowtx"
	"github.com/zeusync/metricstore/internal/core/store"
	"github.com/zeusync/metricstore/pkg/encoding"
)

const payloadVersion = 1

var _ encoding.Serializable = (*Payload)(nil)

// Payload is the decoded content of the layaway file: every period merged in
// by any process since the reporter last drained it.
type Payload struct {
	Periods map[store.Timestamp]*store.Period
}

func NewPayload() *Payload {
	return &Payload{Periods: make(map[store.Timestamp]*store.Period)}
}

// Merge folds period into the entry for ts, or stores a copy when absent.
func (p *Payload) Merge(ts store.Timestamp, period *store.Period) {
	if existing, ok := p.Periods[ts]; ok {
		existing.MergePeriod(period)
		return
	}
	p.Periods[ts] = period.Clone()
}

func (p *Payload) Len() int {
	return len(p.Periods)
}

// Timestamps returns the held periods oldest first.
func (p *Payload) Timestamps() []store.Timestamp {
	out := make([]store.Timestamp, 0, len(p.Periods))
	for ts := range p.Periods {
		out = append(out, ts)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (p *Payload) Clone() *Payload {
	out := NewPayload()
	for ts, period := range p.Periods {
		out.Periods[ts] = period.Clone()
	}
	return out
}

type payloadRecord struct {
	Version int            `codec:"v"`
	Periods []periodRecord `codec:"p"`
}

type periodRecord struct {
	Timestamp        int64                    `codec:"t"`
	SlowCapacity     int                      `codec:"c"`
	Metrics          []metricRecord           `codec:"m"`
	SlowTransactions []slowtx.SlowTransaction `codec:"s"`
}

type metricRecord struct {
	Type      string           `codec:"y"`
	Name      string           `codec:"n"`
	Scope     string           `codec:"o"`
	Aggregate metric.Aggregate `codec:"a"`
}

// Serialize encodes the payload. Periods are ordered by timestamp and metrics
// by identity so equal payloads produce identical bytes. An empty payload
// encodes to zero bytes.
func (p *Payload) Serialize() ([]byte, error) {
	if p == nil || p.Len() == 0 {
		return nil, nil
	}

	rec := payloadRecord{Version: payloadVersion}
	for _, ts := range p.Timestamps() {
		period := p.Periods[ts]
		metrics := period.Metrics()
		pr := periodRecord{
			Timestamp:        int64(ts),
			SlowCapacity:     period.SlowTransactionCapacity(),
			Metrics:          make([]metricRecord, 0, len(metrics)),
			SlowTransactions: period.SlowTransactions(),
		}
		for _, id := range metrics.Identities() {
			pr.Metrics = append(pr.Metrics, metricRecord{
				Type:      id.Type,
				Name:      id.Name,
				Scope:     id.Scope,
				Aggregate: *metrics[id],
			})
		}
		rec.Periods = append(rec.Periods, pr)
	}

	return encoding.Marshal(rec)
}

// Deserialize replaces the payload with data. Zero-length data yields an
// empty payload.
func (p *Payload) Deserialize(data []byte) error {
	p.Periods = make(map[store.Timestamp]*store.Period)
	if len(data) == 0 {
		return nil
	}

	var rec payloadRecord
	if err := encoding.Unmarshal(data, &rec); err != nil {
		return err
	}
	if rec.Version != payloadVersion {
		return fmt.Errorf("layaway: unsupported payload version %d", rec.Version)
	}

	for _, pr := range rec.Periods {
		ts := store.Timestamp(pr.Timestamp)
		period := store.NewPeriod(ts, pr.SlowCapacity)
		for _, m := range pr.Metrics {
			period.Combine(metric.NewIdentity(m.Type, m.Name, m.Scope), m.Aggregate)
		}
		period.MergeSlowTransactions(pr.SlowTransactions...)
		p.Merge(ts, period)
	}
	return nil
}

// Decode parses file content. Empty content is an empty payload.
func Decode(data []byte) (*Payload, error) {
	p := NewPayload()
	if err := p.Deserialize(data); err != nil {
		return nil, err
	}
	return p, nil
}
