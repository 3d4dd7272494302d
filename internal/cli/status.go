package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"docrag/internal/marker"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show collection and store information",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	app, err := newApp(currentConfig, false)
	if err != nil {
		return err
	}
	defer app.Close()

	n, err := app.Store.Count(cmd.Context())
	if err != nil {
		return fmt.Errorf("count failed: %w", err)
	}
	out := cmd.OutOrStdout()
	cfg := app.Config
	fmt.Fprintf(out, "Collection:   %s\n", cfg.Collection)
	fmt.Fprintf(out, "Vector store: %s\n", cfg.VectorStore.Type)
	fmt.Fprintf(out, "Embedder:     %s\n", app.Embedder.Name())
	fmt.Fprintf(out, "Chunks:       %d\n", n)
	fmt.Fprintf(out, "Marker:       %s\n", cfg.Ingest.Marker)

	if ledger, ok := app.Marker.(*marker.Ledger); ok {
		entries, err := ledger.Entries(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Files:        %d\n", len(entries))
		for _, e := range entries {
			fmt.Fprintf(out, "  %s (%d chunks, %s)\n", e.Path, e.Chunks, e.IngestedAt.Local().Format("2006-01-02 15:04"))
		}
	}
	return nil
}
