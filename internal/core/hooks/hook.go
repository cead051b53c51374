// Package hooks connects instrumentation points in a host application to the
// metric store. A Hook turns raw events into metric sets; the Registry routes
// events to hooks and records what they produce.
package hooks

import (
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/zeusync/metricstore/internal/core/metric"
	"github.com/zeusync/metricstore/internal/core/observability/log"
	"github.com/zeusync/metricstore/internal/core/slowtx"
)

// Hook is an instrumentable component
type Hook interface {
	// Name identifies the hook in logs
	Name() string
	// Install is called once on registration
	Install() error
	// OnEvent converts an event into metrics. Unknown events yield nil.
	OnEvent(name string, payload any) metric.Set
}

// Tracker is the part of the store hooks write into.
type Tracker interface {
	Track(set metric.Set)
	TrackSlowTransaction(tx *slowtx.SlowTransaction)
}

type Registry struct {
	mu      sync.RWMutex
	hooks   []Hook
	tracker Tracker
	logger  log.Log
}

func NewRegistry(tracker Tracker, logger log.Log) *Registry {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Registry{
		tracker: tracker,
		logger:  logger.With(log.String("component", "hooks")),
	}
}

// Register installs h and starts routing events to it. A hook whose Install
// fails is not registered.
func (r *Registry) Register(h Hook) error {
	if err := h.Install(); err != nil {
		r.logger.Warn("Hook install failed", log.String("hook", h.Name()), log.Error(err))
		return fmt.Errorf("hooks: install %s: %w", h.Name(), err)
	}

	r.mu.Lock()
	r.hooks = append(r.hooks, h)
	r.mu.Unlock()

	r.logger.Debug("Hook installed", log.String("hook", h.Name()))
	return nil
}

// Hooks returns the registered hooks in registration order.
func (r *Registry) Hooks() []Hook {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Hook, len(r.hooks))
	copy(out, r.hooks)
	return out
}

// Dispatch offers the event to every hook and tracks each non-empty result.
func (r *Registry) Dispatch(name string, payload any) {
	for _, h := range r.Hooks() {
		if set := r.invoke(h, name, payload); len(set) > 0 {
			r.tracker.Track(set)
		}
	}
}

// invoke keeps a misbehaving hook from taking the host down with it.
func (r *Registry) invoke(h Hook, name string, payload any) (set metric.Set) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("Hook panicked",
				log.String("hook", h.Name()),
				log.String("event", name),
				log.Any("panic", rec),
				log.String("stacktrace", string(debug.Stack())),
			)
			set = nil
		}
	}()
	return h.OnEvent(name, payload)
}

func (r *Registry) TrackSlowTransaction(tx *slowtx.SlowTransaction) {
	r.tracker.TrackSlowTransaction(tx)
}
