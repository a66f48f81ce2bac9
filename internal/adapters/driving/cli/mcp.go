package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/portfolio-rag/internal/adapters/driving/mcp"
	"github.com/custodia-labs/portfolio-rag/internal/logger"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Model Context Protocol integration",
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Expose portfolio retrieval to MCP clients",
	Long: `Serves the portfolio index over the Model Context Protocol.

Tools:
  retrieve      ranked context chunks for a visitor question
  sync_status   index size and the last sync run

Resources:
  portfolio://index/stats
  portfolio://sync/last
  portfolio://types/{type}/search?q=...

Without --port the server speaks JSON-RPC on stdio, which is what desktop
assistants launch. With --port it serves the streamable HTTP transport.

  portfolio-rag mcp serve
  portfolio-rag mcp serve --port 8080`,
	Args: cobra.NoArgs,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}

	svc, cleanup, err := loadServices(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	server, err := mcp.NewServer(&mcp.Ports{
		Retriever:    svc.Retriever,
		Synchronizer: svc.Synchronizer,
		Index:        svc.Index,
	}, version)
	if err != nil {
		return err
	}

	if port <= 0 {
		// stdout carries the protocol; nothing else may be printed there.
		logger.Info("mcp: serving on stdio")
		return server.Run(cmd.Context())
	}
	addr := fmt.Sprintf(":%d", port)
	cmd.PrintErrf("MCP server listening on http://localhost%s\n", addr)
	return server.RunHTTP(cmd.Context(), addr)
}
