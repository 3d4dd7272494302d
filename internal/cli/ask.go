package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"docrag/internal/domain"
	"docrag/internal/summarizer"
	"docrag/internal/vectorstore"
)

var askSources bool

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a single question",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func init() {
	askCmd.Flags().BoolVarP(&askSources, "sources", "s", false, "print the supporting chunks")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	app, err := newApp(currentConfig, true)
	if err != nil {
		return err
	}
	defer app.Close()

	out := cmd.OutOrStdout()
	question := strings.Join(args, " ")
	res := app.Pipeline.Answer(cmd.Context(), question)
	if res.Err != nil {
		return res.Err
	}
	fmt.Fprintf(out, "Assistant: %s\n", res.Answer)
	if askSources {
		printSources(out, question, res.Chunks)
	}
	return nil
}

// printSources lists each chunk with the sentences that best match the question.
func printSources(out io.Writer, question string, chunks []domain.SearchResult) {
	if len(chunks) == 0 {
		fmt.Fprintln(out, "No sources.")
		return
	}
	fmt.Fprintln(out, "Sources:")
	excerpts := summarizer.NewFrequencySummarizer()
	for i, c := range chunks {
		fmt.Fprintf(out, "  [%d] %s (%.2f)\n", i+1, vectorstore.SourceLabel(c.Record.Metadata), c.Score)
		fmt.Fprintf(out, "      %s\n", snippet(excerpts.Excerpt(c.Record.Text, question, 2), 240))
	}
}

func snippet(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	r := []rune(text)
	if len(r) <= n {
		return text
	}
	return string(r[:n]) + "..."
}
