package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/portfolio-rag/internal/core/domain"
)

var syncJSON bool

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Synchronise the index with the CMS",
	Long: `Fetches every allow-listed document from the CMS and reconciles the
vector index. Unchanged documents are not re-embedded, and documents that
left the CMS are removed.`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

var syncOneCmd = &cobra.Command{
	Use:   "one <document-id>",
	Short: "Synchronise a single document",
	Args:  cobra.ExactArgs(1),
	RunE:  runSyncOne,
}

var syncDeleteCmd = &cobra.Command{
	Use:   "delete <document-id>",
	Short: "Remove a document from the index",
	Args:  cobra.ExactArgs(1),
	RunE:  runSyncDelete,
}

func init() {
	syncCmd.PersistentFlags().BoolVar(&syncJSON, "json", false, "output the sync report as JSON")
	syncCmd.AddCommand(syncOneCmd)
	syncCmd.AddCommand(syncDeleteCmd)
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, _ []string) error {
	svc, cleanup, err := loadServices(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	if !syncJSON {
		cmd.Println("Synchronising all documents...")
	}
	report, err := svc.Synchronizer.Sync(cmd.Context())
	return finishSync(cmd, report, err)
}

func runSyncOne(cmd *cobra.Command, args []string) error {
	svc, cleanup, err := loadServices(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	report, err := svc.Synchronizer.SyncOne(cmd.Context(), args[0])
	return finishSync(cmd, report, err)
}

func runSyncDelete(cmd *cobra.Command, args []string) error {
	svc, cleanup, err := loadServices(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	report, err := svc.Synchronizer.DeleteOne(cmd.Context(), args[0])
	return finishSync(cmd, report, err)
}

// finishSync prints whatever the run produced before returning its error.
func finishSync(cmd *cobra.Command, report *domain.SyncReport, err error) error {
	if report != nil {
		if syncJSON {
			if jsonErr := outputReportJSON(cmd, report); jsonErr != nil {
				return jsonErr
			}
		} else {
			outputReport(cmd, report)
		}
	}
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}
	if report != nil && report.HasFailures() {
		return fmt.Errorf("sync finished with %d failed document(s)", report.Failed)
	}
	return nil
}

func outputReportJSON(cmd *cobra.Command, report *domain.SyncReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputReport(cmd *cobra.Command, report *domain.SyncReport) {
	cmd.Printf("Added: %d  Updated: %d  Deleted: %d  Unchanged: %d  Skipped: %d  Failed: %d\n",
		report.Added, report.Updated, report.Deleted, report.Unchanged, report.Skipped, report.Failed)
	cmd.Printf("Chunks written: %d  Duration: %s\n",
		report.TotalChunks, report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond))

	var changed []domain.ChangeRecord
	for _, c := range report.Changes {
		if c.Action != domain.ChangeUnchanged {
			changed = append(changed, c)
		}
	}
	if len(changed) == 0 {
		return
	}
	cmd.Println()

	if !isTerminal(cmd.OutOrStdout()) {
		for _, c := range changed {
			line := fmt.Sprintf("  %-9s %s", c.Action, c.SourceID)
			if c.Error != "" {
				line += ": " + c.Error
			}
			cmd.Println(line)
		}
		return
	}

	rows := make([][]string, 0, len(changed))
	for _, c := range changed {
		rows = append(rows, []string{
			string(c.Action),
			c.SourceID,
			c.SourceType.String(),
			fmt.Sprintf("%d", c.Chunks),
			c.Error,
		})
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(tableBorderStyle).
		Headers("Action", "Document", "Type", "Chunks", "Error").
		Rows(rows...)
	cmd.Println(t)
}
