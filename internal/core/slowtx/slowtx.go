// Package slowtx holds the bounded per-period collection of slow request traces.
package slowtx

import (
	"time"

	"github.com/google/uuid"
)

// DefaultCapacity bounds a Set created with a non-positive capacity.
const DefaultCapacity = 10

// SlowTransaction is a summary of one request that exceeded the slow threshold.
type SlowTransaction struct {
	ID        string            `codec:"i" json:"id" yaml:"id"`
	Endpoint  string            `codec:"e" json:"endpoint" yaml:"endpoint"`
	URI       string            `codec:"u" json:"uri" yaml:"uri"`
	Duration  float64           `codec:"d" json:"duration" yaml:"duration"`
	StartedAt int64             `codec:"t" json:"started_at" yaml:"started_at"`
	Context   map[string]string `codec:"c,omitempty" json:"context,omitempty" yaml:"context,omitempty"`
}

func New(endpoint, uri string, start time.Time, duration time.Duration) *SlowTransaction {
	return &SlowTransaction{
		ID:        uuid.NewString(),
		Endpoint:  endpoint,
		URI:       uri,
		Duration:  duration.Seconds(),
		StartedAt: start.UnixNano(),
	}
}

func (s SlowTransaction) Start() time.Time {
	return time.Unix(0, s.StartedAt)
}

// Set is insertion ordered. Once full, each insert evicts the oldest sample
// of the endpoint holding the most samples.
type Set struct {
	capacity int
	items    []SlowTransaction
}

func NewSet(capacity int) *Set {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Set{capacity: capacity}
}

func (s *Set) Add(txs ...SlowTransaction) {
	for _, tx := range txs {
		s.items = append(s.items, tx)
		if len(s.items) > s.capacity {
			s.evict()
		}
	}
}

func (s *Set) evict() {
	counts := make(map[string]int, len(s.items))
	for _, tx := range s.items {
		counts[tx.Endpoint]++
	}

	largest, most := "", 0
	// Walking in insertion order breaks ties toward the endpoint whose
	// oldest sample is oldest overall.
	for _, tx := range s.items {
		if c := counts[tx.Endpoint]; c > most {
			largest, most = tx.Endpoint, c
		}
	}

	for i, tx := range s.items {
		if tx.Endpoint == largest {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return
		}
	}
}

// Items returns a copy in insertion order.
func (s *Set) Items() []SlowTransaction {
	if len(s.items) == 0 {
		return nil
	}
	out := make([]SlowTransaction, len(s.items))
	copy(out, s.items)
	return out
}

func (s *Set) Len() int {
	return len(s.items)
}

func (s *Set) Capacity() int {
	return s.capacity
}

func (s *Set) Clone() *Set {
	return &Set{capacity: s.capacity, items: s.Items()}
}
