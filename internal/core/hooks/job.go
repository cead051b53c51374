package hooks

import (
	"context"
	"time"

	"github.com/zeusync/metricstore/internal/core/metric"
)

const EventJobRun = "job.run"

// JobEvent describes one finished background job run.
type JobEvent struct {
	Queue      string
	Name       string
	EnqueuedAt time.Time
	Start      time.Time
	Duration   time.Duration
	Err        error
}

// Job instruments background workers.
type Job struct {
	registry *Registry
	now      func() time.Time
}

func NewJob(registry *Registry) *Job {
	return &Job{registry: registry, now: time.Now}
}

func (j *Job) Name() string {
	return "jobs"
}

func (j *Job) Install() error {
	return nil
}

func (j *Job) OnEvent(name string, payload any) metric.Set {
	if name != EventJobRun {
		return nil
	}
	ev, ok := payload.(JobEvent)
	if !ok {
		return nil
	}

	set := metric.Set{
		metric.NewIdentity(metric.TypeJob, ev.Name, ""): metric.NewAggregate(ev.Duration.Seconds()),
	}
	if !ev.EnqueuedAt.IsZero() {
		if latency := ev.Start.Sub(ev.EnqueuedAt); latency >= 0 {
			set.Combine(metric.NewIdentity(metric.TypeQueue, ev.Queue, ""), *metric.NewAggregate(latency.Seconds()))
		}
	}
	if ev.Err != nil {
		set.Combine(metric.NewIdentity(metric.TypeErrors, "Job", metric.TypeJob+"/"+ev.Name), *metric.NewAggregate(1))
	}
	return set
}

// Run executes fn and reports it as a run of job name on queue. The error
// from fn is returned unchanged.
func (j *Job) Run(ctx context.Context, queue, name string, enqueuedAt time.Time, fn func(context.Context) error) error {
	start := j.now()
	err := fn(ctx)
	j.registry.Dispatch(EventJobRun, JobEvent{
		Queue:      queue,
		Name:       name,
		EnqueuedAt: enqueuedAt,
		Start:      start,
		Duration:   j.now().Sub(start),
		Err:        err,
	})
	return err
}
