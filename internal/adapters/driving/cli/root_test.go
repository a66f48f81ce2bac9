package cli

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/portfolio-rag/internal/logger"
)

func TestRootCmd_Use(t *testing.T) {
	assert.Equal(t, "portfolio-rag", rootCmd.Use)
}

func TestRootCmd_HasCommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"sync", "retrieve", "status", "serve", "watch", "mcp", "config", "version"} {
		assert.True(t, names[want], "missing command %s", want)
	}
}

func TestRootCmd_VerboseFlag(t *testing.T) {
	setupTestServices(t)
	defer logger.SetVerbose(false)

	_, err := execute(t, "--verbose", "version")

	require.NoError(t, err)
	assert.True(t, logger.IsVerbose())
}

func TestLoadServices_LoaderError(t *testing.T) {
	setupTestServices(t)
	SetServicesLoader(func(context.Context) (*Services, error) {
		return nil, errors.New("no database")
	})

	_, _, err := loadServices(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "starting engine: no database")
}

func TestLoadServices_CleanupToleratesNilClose(t *testing.T) {
	setupTestServices(t)
	SetServicesLoader(func(context.Context) (*Services, error) {
		return &Services{}, nil
	})

	_, cleanup, err := loadServices(context.Background())

	require.NoError(t, err)
	assert.NotPanics(t, cleanup)
}
