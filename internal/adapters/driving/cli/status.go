package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/portfolio-rag/internal/core/domain"
	"github.com/custodia-labs/portfolio-rag/internal/core/ports/driving"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show index contents and the last sync",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "output status as JSON")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	svc, cleanup, err := loadServices(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	stats, err := svc.Index.Stats(cmd.Context())
	if err != nil {
		return fmt.Errorf("reading index stats: %w", err)
	}
	status, err := svc.Synchronizer.Status(cmd.Context())
	if err != nil {
		return fmt.Errorf("reading sync status: %w", err)
	}

	if statusJSON {
		data, err := json.MarshalIndent(struct {
			Index domain.IndexStats   `json:"index"`
			Sync  *driving.SyncStatus `json:"sync"`
		}{stats, status}, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal status: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	outputStatus(cmd, stats, status)
	return nil
}

func outputStatus(cmd *cobra.Command, stats domain.IndexStats, status *driving.SyncStatus) {
	rows := make([][]string, 0, len(domain.AllSourceTypes()))
	for _, t := range domain.AllSourceTypes() {
		rows = append(rows, []string{t.Description(), fmt.Sprintf("%d", stats.SourcesCount[t])})
	}

	if isTerminal(cmd.OutOrStdout()) {
		t := table.New().
			Border(lipgloss.NormalBorder()).
			BorderStyle(tableBorderStyle).
			Headers("Type", "Documents").
			Rows(rows...)
		cmd.Println(t)
	} else {
		for _, r := range rows {
			cmd.Printf("  %-12s %s\n", r[0]+":", r[1])
		}
	}

	cmd.Printf("Documents: %d  Chunks: %d\n", stats.TotalDocuments, stats.TotalChunks)
	if stats.LastSync != nil {
		cmd.Printf("Last sync: %s\n", stats.LastSync.Local().Format(time.RFC1123))
	} else {
		cmd.Println("Last sync: never")
	}

	if status == nil {
		return
	}
	if status.Running {
		cmd.Println("A sync is running.")
	}
	if r := status.LastReport; r != nil {
		cmd.Printf("Last run %s: %d added, %d updated, %d deleted, %d unchanged, %d failed\n",
			r.RunID, r.Added, r.Updated, r.Deleted, r.Unchanged, r.Failed)
	}
}
