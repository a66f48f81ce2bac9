package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/portfolio-rag/internal/core/domain"
	"github.com/custodia-labs/portfolio-rag/internal/core/services"
)

var (
	retrieveLimit     int
	retrieveThreshold float64
	retrieveTypes     []string
	retrieveJSON      bool
	retrieveContext   bool
)

var retrieveCmd = &cobra.Command{
	Use:   "retrieve <query>",
	Short: "Find indexed content relevant to a question",
	Long: `Embeds the query and returns the most similar chunks from the index.
Pronouns addressing the portfolio owner ("you", "your") are expanded to
retrieval.subject_name before embedding.

Use --context to print the chunks as numbered blocks ready for a prompt.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRetrieve,
}

func init() {
	retrieveCmd.Flags().IntVarP(&retrieveLimit, "limit", "n", 0, "maximum number of chunks (0 = retrieval.limit)")
	retrieveCmd.Flags().Float64Var(&retrieveThreshold, "threshold", 0, "minimum similarity (default retrieval.threshold)")
	retrieveCmd.Flags().StringSliceVarP(&retrieveTypes, "type", "t", nil, "restrict to document types")
	retrieveCmd.Flags().BoolVar(&retrieveJSON, "json", false, "output results as JSON")
	retrieveCmd.Flags().BoolVar(&retrieveContext, "context", false, "output results as prompt context")
	rootCmd.AddCommand(retrieveCmd)
}

func runRetrieve(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")

	opts := &domain.RetrieveOptions{Limit: retrieveLimit}
	if cmd.Flags().Changed("threshold") {
		opts.Threshold = &retrieveThreshold
	}
	for _, t := range retrieveTypes {
		st := domain.SourceType(t)
		if !st.IsValid() {
			return fmt.Errorf("unknown document type %q", t)
		}
		opts.SourceTypes = append(opts.SourceTypes, st)
	}

	svc, cleanup, err := loadServices(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	results, err := svc.Retriever.Retrieve(cmd.Context(), query, opts)
	if err != nil {
		return fmt.Errorf("retrieve failed: %w", err)
	}

	switch {
	case retrieveJSON:
		data, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal results: %w", err)
		}
		cmd.Println(string(data))
	case retrieveContext:
		cmd.Println(services.FormatContext(results))
	default:
		outputRetrieved(cmd, results)
	}
	return nil
}

func outputRetrieved(cmd *cobra.Command, results []domain.RetrievedChunk) {
	if len(results) == 0 {
		cmd.Println("No relevant content found.")
		return
	}

	for i, r := range results {
		title := r.Title
		if title == "" {
			title = r.SourceID
		}
		cmd.Printf("  [%d] %s (%s, %.2f)\n", i+1, title, r.SourceType.Description(), r.Score)
		cmd.Printf("      %s\n", snippet(r.Text, 160))
		cmd.Println()
	}
}

// snippet flattens text to one line of at most n runes.
func snippet(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n]) + "..."
}
