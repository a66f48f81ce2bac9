package cli

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/portfolio-rag/internal/core/domain"
	"github.com/custodia-labs/portfolio-rag/internal/core/ports/driving"
	"github.com/custodia-labs/portfolio-rag/internal/logger"
)

var watchInitial bool

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-index documents as the content export changes",
	Long: `Watches the file content source (content.backend = "file") and syncs each
document that changes. Deleted documents are removed from the index.

Runs until interrupted.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&watchInitial, "initial", true, "run a full sync before watching")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, cleanup, err := loadServices(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	if svc.Watcher == nil {
		return errors.New("the configured content source does not support watching; set content.backend = \"file\"")
	}

	if watchInitial {
		report, err := svc.Synchronizer.Sync(ctx)
		if err != nil {
			return err
		}
		outputReport(cmd, report)
	}

	events, err := svc.Watcher.Watch(ctx)
	if err != nil {
		return err
	}
	cmd.Println("Watching for changes. Press Ctrl+C to stop.")

	for ev := range events {
		applyEvent(ctx, cmd, svc.Synchronizer, ev)
	}
	return nil
}

// applyEvent syncs or deletes one document. Failures are logged and watching continues.
func applyEvent(ctx context.Context, cmd *cobra.Command, sync driving.Synchronizer, ev domain.ContentEvent) {
	var (
		report *domain.SyncReport
		err    error
	)
	if ev.Deleted {
		report, err = sync.DeleteOne(ctx, ev.SourceID)
	} else {
		report, err = sync.SyncOne(ctx, ev.SourceID)
	}
	if err != nil {
		logger.Warn("sync %s: %v", ev.SourceID, err)
		return
	}
	for _, c := range report.Changes {
		if c.Action == domain.ChangeUnchanged {
			continue
		}
		line := string(c.Action) + " " + c.SourceID
		if c.Error != "" {
			line += ": " + c.Error
		}
		cmd.Println(line)
	}
}
