package store

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/zeusync/metricstore/internal/core/metric"
	"github.com/zeusync/metricstore/internal/core/observability/log"
	"github.com/zeusync/metricstore/internal/core/slowtx"
)

// Sink receives completed periods during WriteToLayaway.
type Sink interface {
	AddReportingPeriod(ts Timestamp, period *Period) error
}

// Config holds Store settings.
type Config struct {
	Clock                   func() time.Time // Source of "now"
	Logger                  log.Log          // Debug output for handoffs
	SlowTransactionCapacity int              // Bound of each period's slow transaction set
}

type Option func(*Config)

// WithClock overrides time.Now.
func WithClock(clock func() time.Time) Option {
	return func(c *Config) { c.Clock = clock }
}

// WithLogger sets the store's logger.
func WithLogger(logger log.Log) Option {
	return func(c *Config) { c.Logger = logger }
}

// WithSlowTransactionCapacity bounds the slow transactions kept per period.
func WithSlowTransactionCapacity(capacity int) Option {
	return func(c *Config) { c.SlowTransactionCapacity = capacity }
}

// Store holds one or more minutes of metrics and slow transactions in memory
// until they are written to a sink. All access goes through one mutex.
type Store struct {
	mu      sync.Mutex
	periods map[Timestamp]*Period
	config  Config
	logger  log.Log
}

func New(opts ...Option) *Store {
	config := Config{
		Clock:                   time.Now,
		SlowTransactionCapacity: slowtx.DefaultCapacity,
	}
	for _, opt := range opts {
		opt(&config)
	}
	if config.Logger == nil {
		config.Logger = log.NewNop()
	}

	return &Store{
		periods: make(map[Timestamp]*Period),
		config:  config,
		logger:  config.Logger.With(log.String("component", "store")),
	}
}

func (s *Store) CurrentTimestamp() Timestamp {
	return NewTimestamp(s.config.Clock())
}

// Track absorbs every entry of set into the current period.
func (s *Store) Track(set metric.Set) {
	if len(set) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.currentPeriodLocked().MergeMetrics(set)
}

// TrackOne records a single observation of type/name.
func (s *Store) TrackOne(typ, name string, value float64) {
	s.Track(metric.Single(typ, name, value))
}

// TrackSlowTransaction stores tx in the current period. Nil is ignored.
func (s *Store) TrackSlowTransaction(tx *slowtx.SlowTransaction) {
	if tx == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.currentPeriodLocked().MergeSlowTransactions(*tx)
}

// CurrentPeriod returns a copy of the period for the current minute,
// creating it if needed.
func (s *Store) CurrentPeriod() *Period {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.currentPeriodLocked().Clone()
}

// Period returns a copy of the period stored under ts.
func (s *Store) Period(ts Timestamp) (*Period, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.periods[ts]
	if !ok {
		return nil, false
	}
	return p.Clone(), true
}

func (s *Store) currentPeriodLocked() *Period {
	ts := s.CurrentTimestamp()
	p, ok := s.periods[ts]
	if !ok {
		p = NewPeriod(ts, s.config.SlowTransactionCapacity)
		s.periods[ts] = p
	}
	return p
}

// Timestamps lists the held periods, oldest first.
func (s *Store) Timestamps() []Timestamp {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.timestampsLocked()
}

func (s *Store) timestampsLocked() []Timestamp {
	out := make([]Timestamp, 0, len(s.periods))
	for ts := range s.periods {
		out = append(out, ts)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.periods)
}

// WriteToLayaway hands every completed period to sink, oldest first, and
// drops it from memory once accepted. With force the current minute is
// included, which is what a shutdown wants.
//
// A sink error stops the walk and is returned; the failing period and any
// not yet handed off stay in the store.
func (s *Store) WriteToLayaway(sink Sink, force bool) error {
	if sink == nil {
		return ErrNilSink
	}

	s.logger.Debug("Writing to layaway", log.Bool("forced", force))

	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.CurrentTimestamp()
	written := 0
	for _, ts := range s.timestampsLocked() {
		if !force && !ts.Before(current) {
			continue
		}
		if err := sink.AddReportingPeriod(ts, s.periods[ts]); err != nil {
			return fmt.Errorf("store: hand off period %s: %w", ts, err)
		}
		delete(s.periods, ts)
		written++
	}

	s.logger.Debug("Finished writing to layaway", log.Int("periods", written))
	return nil
}
