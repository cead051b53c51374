// Package agent drives the periodic handoff of completed minutes from the
// in-process store to the layaway file.
package agent

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/zeusync/metricstore/internal/config"
	"github.com/zeusync/metricstore/internal/core/hooks"
	"github.com/zeusync/metricstore/internal/core/observability/log"
	"github.com/zeusync/metricstore/internal/core/store"
)

type Agent struct {
	id       string
	interval time.Duration
	store    *store.Store
	sink     store.Sink
	registry *hooks.Registry
	logger   log.Log
}

func New(cfg *config.Config, logger log.Log, s *store.Store, sink store.Sink, registry *hooks.Registry) *Agent {
	if logger == nil {
		logger = log.NewNop()
	}
	id := uuid.NewString()
	return &Agent{
		id:       id,
		interval: cfg.FlushInterval.Std(),
		store:    s,
		sink:     sink,
		registry: registry,
		logger:   logger.With(log.String("component", "agent"), log.String("agent_id", id)),
	}
}

func (a *Agent) ID() string {
	return a.id
}

func (a *Agent) Store() *store.Store {
	return a.store
}

func (a *Agent) Registry() *hooks.Registry {
	return a.registry
}

// Run flushes completed periods every interval until ctx is done, then
// flushes everything including the current minute.
func (a *Agent) Run(ctx context.Context) error {
	a.logger.Info("Agent started", log.Duration("flush_interval", a.interval))

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.Flush(true)
			a.logger.Info("Agent stopped")
			return nil
		case <-ticker.C:
			a.Flush(false)
		}
	}
}

// Flush hands periods to the sink. Failures are logged; what was not handed
// off stays in the store for the next attempt.
func (a *Agent) Flush(force bool) {
	if err := a.store.WriteToLayaway(a.sink, force); err != nil {
		a.logger.Error("Flush to layaway failed", log.Error(err), log.Int("pending_periods", a.store.Len()))
	}
}
