package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var forgetCmd = &cobra.Command{
	Use:   "forget <path>...",
	Short: "Clear the ingestion marker so files are ingested again",
	Long: `Clears the record that a file was ingested. Chunks already stored are kept;
the next ingest adds a fresh set for the file.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runForget,
}

func init() {
	rootCmd.AddCommand(forgetCmd)
}

func runForget(cmd *cobra.Command, args []string) error {
	app, err := newApp(currentConfig, false)
	if err != nil {
		return err
	}
	defer app.Close()

	for _, p := range args {
		if err := app.Indexer.Forget(cmd.Context(), p); err != nil {
			return fmt.Errorf("forget %s: %w", p, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Forgot %s\n", p)
	}
	return nil
}
