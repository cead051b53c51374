package injector

import (
	"github.com/google/wire"

	"github.com/zeusync/metricstore/internal/agent"
	"github.com/zeusync/metricstore/internal/config"
	"github.com/zeusync/metricstore/internal/core/hooks"
	"github.com/zeusync/metricstore/internal/core/layaway"
	"github.com/zeusync/metricstore/internal/core/observability/log"
	"github.com/zeusync/metricstore/internal/core/store"
)

// App is everything a host process needs from the agent.
type App struct {
	Agent  *agent.Agent
	File   *layaway.File
	HTTP   *hooks.HTTP
	Jobs   *hooks.Job
	Logger *log.Logger
}

func NewApp(a *agent.Agent, file *layaway.File, http *hooks.HTTP, jobs *hooks.Job, logger *log.Logger) *App {
	return &App{Agent: a, File: file, HTTP: http, Jobs: jobs, Logger: logger}
}

var ProviderSet = wire.NewSet(
	ProvideLogger,
	ProvideStore,
	ProvideLayawayFile,
	ProvideRegistry,
	ProvideHTTPHook,
	ProvideJobHook,
	agent.New,
	NewApp,
	wire.Bind(new(log.Log), new(*log.Logger)),
	wire.Bind(new(store.Sink), new(*layaway.File)),
	wire.Bind(new(hooks.Tracker), new(*store.Store)),
)

// ProvideLogger builds the JSON logger; cleanup flushes it.
func ProvideLogger(cfg *config.Config) (*log.Logger, func()) {
	logger := log.New(cfg.Level())
	return logger, func() { _ = logger.Sync() }
}

func ProvideStore(cfg *config.Config, logger log.Log) *store.Store {
	return store.New(
		store.WithLogger(logger),
		store.WithSlowTransactionCapacity(cfg.SlowTransactions.Capacity),
	)
}

func ProvideLayawayFile(cfg *config.Config, logger log.Log) *layaway.File {
	return layaway.NewFile(cfg.LayawayPath(), logger)
}

func ProvideRegistry(tracker hooks.Tracker, logger log.Log) *hooks.Registry {
	return hooks.NewRegistry(tracker, logger)
}

func ProvideHTTPHook(cfg *config.Config, registry *hooks.Registry) (*hooks.HTTP, error) {
	h := hooks.NewHTTP(registry, hooks.WithSlowThreshold(cfg.SlowTransactions.Threshold.Std()))
	if err := registry.Register(h); err != nil {
		return nil, err
	}
	return h, nil
}

func ProvideJobHook(registry *hooks.Registry) (*hooks.Job, error) {
	j := hooks.NewJob(registry)
	if err := registry.Register(j); err != nil {
		return nil, err
	}
	return j, nil
}
