package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/portfolio-rag/internal/core/domain"
	"github.com/custodia-labs/portfolio-rag/internal/core/services"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `View and change settings stored in ~/.portfolio-rag/config.toml.

Environment variables override the file: every key can be set as
PORTFOLIO_RAG_<KEY> with dots replaced by underscores, for example
PORTFOLIO_RAG_EMBEDDING_PROVIDER. A .env file in the working directory is
loaded first.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value by dotted key, for example:

  portfolio-rag config set embedding.provider openai
  portfolio-rag config set sync.allowed_types project,aiProject

Run 'portfolio-rag config keys' for the list of keys.`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List configuration keys",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		for _, k := range services.Keys() {
			cmd.Println(k)
		}
	},
}

var configCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate settings and contact the embedding provider",
	Args:  cobra.NoArgs,
	RunE:  runConfigCheck,
}

func init() {
	configCmd.AddCommand(configCheckCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configKeysCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	s, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Printf("Config file: %s\n\n", settingsService.ConfigPath())
	cmd.Println("[Content]")
	cmd.Printf("  Backend: %s\n", s.Content.Backend)
	if s.Content.Backend == domain.ContentBackendFile {
		cmd.Printf("  Export path: %s\n", orUnset(s.Content.ExportPath))
	} else {
		cmd.Printf("  Project: %s\n", orUnset(s.Content.ProjectID))
		cmd.Printf("  Dataset: %s\n", s.Content.Dataset)
		cmd.Printf("  API version: %s\n", s.Content.APIVersion)
		cmd.Printf("  Token: %s\n", secret(s.Content.Token))
	}
	cmd.Println()

	cmd.Println("[Embedding]")
	cmd.Printf("  Provider: %s\n", s.Embedding.Provider.Description())
	cmd.Printf("  Model: %s\n", s.Embedding.Model)
	if s.Embedding.Provider.IsLocal() {
		cmd.Printf("  Base URL: %s\n", orUnset(s.Embedding.BaseURL))
	}
	if s.Embedding.Provider.RequiresAPIKey() {
		cmd.Printf("  API Key: %s\n", secret(s.Embedding.APIKey))
	}
	status := "configured"
	if !s.Embedding.IsConfigured() {
		status = "not configured"
	}
	cmd.Printf("  Status: %s\n", status)
	cmd.Println()

	cmd.Println("[Vector Store]")
	cmd.Printf("  Backend: %s\n", s.VectorStore.Backend)
	switch s.VectorStore.Backend {
	case domain.VectorBackendPostgres:
		cmd.Printf("  DSN: %s\n", secret(s.VectorStore.DSN))
		cmd.Printf("  Table: %s\n", s.VectorStore.Table)
	case domain.VectorBackendSQLite:
		cmd.Printf("  Data dir: %s\n", orDefault(s.VectorStore.DataDir, "~/.portfolio-rag/data"))
	}
	cmd.Println()

	cmd.Println("[Sync]")
	cmd.Printf("  Concurrency: %d\n", s.Sync.Concurrency)
	types := make([]string, len(s.Sync.AllowedTypes))
	for i, t := range s.Sync.AllowedTypes {
		types[i] = t.String()
	}
	cmd.Printf("  Allowed types: %s\n", strings.Join(types, ", "))
	cmd.Printf("  Chunking: %d chars, %d overlap\n", s.Chunking.MaxChunkChars, s.Chunking.OverlapChars)
	cmd.Printf("  Lock: %s\n", s.Lock.Backend)
	cmd.Println()

	cmd.Println("[Retrieval]")
	cmd.Printf("  Threshold: %.2f\n", s.Retrieval.Threshold)
	cmd.Printf("  Limit: %d\n", s.Retrieval.Limit)
	cmd.Printf("  Subject: %s\n", orUnset(s.Retrieval.SubjectName))
	cmd.Println()

	cmd.Println("[Server]")
	cmd.Printf("  Address: %s\n", s.Server.Addr)
	cmd.Printf("  Webhook secret: %s\n", secret(s.Server.WebhookSecret))
	cmd.Printf("  Admin token: %s\n", secret(s.Server.AdminToken))
	cmd.Println()

	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
	} else {
		cmd.Println("Configuration is valid.")
	}
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}
	key, value := args[0], args[1]
	if err := settingsService.Set(key, value); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}

	shown := value
	if services.IsSecretKey(key) {
		shown = maskSecret(value)
	}
	cmd.Printf("%s = %s\n", key, shown)
	return nil
}

func runConfigCheck(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}
	if err := settingsService.Validate(); err != nil {
		return err
	}
	cmd.Println("Settings: ok")

	if embeddingChecker == nil {
		return nil
	}
	s, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	if err := embeddingChecker(cmd.Context(), &s.Embedding); err != nil {
		return err
	}
	cmd.Printf("Embedding provider: ok (%s, %s)\n", s.Embedding.Provider, s.Embedding.Model)
	return nil
}

func secret(s string) string {
	if s == "" {
		return "(not set)"
	}
	return maskSecret(s)
}

func orUnset(s string) string {
	return orDefault(s, "(not set)")
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
