//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package injector

import (
	"github.com/google/wire"

	"github.com/zeusync/metricstore/internal/config"
)

// InitializeApp wires the agent for cfg. The cleanup flushes the logger.
func InitializeApp(cfg *config.Config) (*App, func(), error) {
	panic(wire.Build(ProviderSet))
}
