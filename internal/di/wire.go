//go:build wireinject
// +build wireinject

package di

import (
	"GridCast/pkg/config"
	"GridCast/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Model families
		ProvideFamilies,

		// Infrastructure
		ProvideFrameSource,
		ProvideArtifactStore,
		ProvideDecisionSink,
		ProvideCache,

		// Use cases
		ProvideTrainer,
		ProvidePredictor,

		// HTTP
		ProvideAPIHandler,

		// Application
		ProvideApp,
	)
	return &server.App{}, nil
}
