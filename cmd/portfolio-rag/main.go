package main

import (
	"context"
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/portfolio-rag/internal/adapters/driven/ai"
	"github.com/custodia-labs/portfolio-rag/internal/adapters/driven/config/file"
	"github.com/custodia-labs/portfolio-rag/internal/adapters/driving/cli"
	"github.com/custodia-labs/portfolio-rag/internal/adapters/driving/httpapi"
	"github.com/custodia-labs/portfolio-rag/internal/app"
	"github.com/custodia-labs/portfolio-rag/internal/core/services"
	"github.com/custodia-labs/portfolio-rag/internal/logger"
)

func main() {
	// Environment overrides are read by the settings service, so .env must load first.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warn("loading .env: %v", err)
	}

	configStore, err := file.NewConfigStore("")
	if err != nil {
		logger.Error("opening config: %v", err)
		os.Exit(1)
	}
	settingsService := services.NewSettingsService(configStore)

	cli.SetSettingsService(settingsService)
	cli.SetEmbeddingChecker(ai.ValidateEmbeddingConfig)
	cli.SetServicesLoader(func(ctx context.Context) (*cli.Services, error) {
		settings, err := settingsService.Get()
		if err != nil {
			return nil, err
		}
		engine, err := app.New(ctx, *settings)
		if err != nil {
			return nil, err
		}
		return &cli.Services{
			Synchronizer: engine.Synchronizer,
			Retriever:    engine.Retriever,
			Index:        engine.Index,
			Watcher:      engine.Watcher,
			Server: httpapi.Config{
				WebhookSecret: settings.Server.WebhookSecret,
				AdminToken:    settings.Server.AdminToken,
				AllowedTypes:  settings.Sync.AllowedTypes,
				Debug:         settings.Server.Debug,
			},
			ServerAddr: settings.Server.Addr,
			Close:      engine.Close,
		}, nil
	})

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
