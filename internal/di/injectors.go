//go:build wireinject
// +build wireinject

package di

import (
	wire "github.com/google/wire"
	"pixeld/internal"
	"pixeld/internal/controllers"
	"pixeld/internal/persistence"
	"pixeld/internal/providers"
	"pixeld/internal/services"
	"pixeld/internal/structures"
)

func InitApp(cfg *structures.CliFlags) (*internal.App, error) {

	wire.Build(
		providers.NewConfigProvider,
		providers.NewLogProvider,
		providers.NewMetricsProvider,
		providers.NewInstrumentedCacheProvider,
		providers.NewTransportProvider,

		persistence.NewZstdCompressor,
		persistence.NewArchiveProvider,
		services.NewSessionService,
		persistence.NewFileManager,
		persistence.NewScheduler,
		controllers.NewTrackController,
		controllers.NewResolveController,
		controllers.NewHealthController,
		internal.InitRoutes,
		internal.NewApp,
	)

	return nil, nil
}
