// Package cli implements the portfolio-rag command line interface.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/portfolio-rag/internal/adapters/driving/httpapi"
	"github.com/custodia-labs/portfolio-rag/internal/core/domain"
	"github.com/custodia-labs/portfolio-rag/internal/core/ports/driven"
	"github.com/custodia-labs/portfolio-rag/internal/core/ports/driving"
	"github.com/custodia-labs/portfolio-rag/internal/logger"
)

// version is set at build time with -ldflags "-X ...cli.version=x.y.z".
var version = "dev"

// Services bundles what commands need from the engine.
type Services struct {
	Synchronizer driving.Synchronizer
	Retriever    driving.Retriever
	Index        driving.IndexService

	// Watcher is nil unless the content source can push change events.
	Watcher driven.ContentWatcher

	// Server configures the HTTP ingress.
	Server     httpapi.Config
	ServerAddr string

	// Close releases the engine. May be nil.
	Close func() error
}

// ServicesLoader builds the engine on demand, after settings are final.
type ServicesLoader func(ctx context.Context) (*Services, error)

// EmbeddingChecker verifies that an embedding provider is reachable.
type EmbeddingChecker func(ctx context.Context, settings *domain.EmbeddingSettings) error

var (
	settingsService  driving.SettingsService
	servicesLoader   ServicesLoader
	embeddingChecker EmbeddingChecker
	verbose          bool
)

var rootCmd = &cobra.Command{
	Use:   "portfolio-rag",
	Short: "Keep a portfolio chatbot's vector index in sync with the CMS",
	Long: `portfolio-rag mirrors CMS content (profile, projects, AI projects and
showcases) into a vector store and answers similarity queries for a
portfolio chatbot.

Only documents whose indexable text changed are re-embedded. Documents
removed from the CMS are removed from the index.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// SetSettingsService sets the settings service used by config commands.
func SetSettingsService(s driving.SettingsService) {
	settingsService = s
}

// SetServicesLoader sets how engine-backed commands obtain their services.
func SetServicesLoader(l ServicesLoader) {
	servicesLoader = l
}

// SetEmbeddingChecker sets the provider check used by 'config check'.
func SetEmbeddingChecker(c EmbeddingChecker) {
	embeddingChecker = c
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// loadServices builds the engine. The returned func releases it.
func loadServices(ctx context.Context) (*Services, func(), error) {
	if servicesLoader == nil {
		return nil, nil, errors.New("engine not configured")
	}
	svc, err := servicesLoader(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("starting engine: %w", err)
	}
	cleanup := func() {
		if svc.Close == nil {
			return
		}
		if err := svc.Close(); err != nil {
			logger.Warn("closing engine: %v", err)
		}
	}
	return svc, cleanup, nil
}
