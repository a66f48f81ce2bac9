package cli

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/portfolio-rag/internal/adapters/driving/httpapi"
	"github.com/custodia-labs/portfolio-rag/internal/logger"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the webhook and retrieval HTTP server",
	Long: `Starts the HTTP server:

  POST /api/webhooks/cms   CMS webhook (HMAC signed)
  POST /api/retrieve       similarity search
  GET  /api/admin/sync     index statistics
  POST /api/admin/sync     full sync
  GET  /healthz            liveness

The server stops gracefully on SIGINT or SIGTERM.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default server.addr)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, cleanup, err := loadServices(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	if svc.Server.WebhookSecret == "" {
		logger.Warn("server.webhook_secret is not set; webhooks will be rejected")
	}

	addr := serveAddr
	if addr == "" {
		addr = svc.ServerAddr
	}

	server := httpapi.NewServer(svc.Server, svc.Synchronizer, svc.Retriever, svc.Index)
	cmd.Printf("Listening on %s\n", addr)
	return server.Run(ctx, addr)
}
