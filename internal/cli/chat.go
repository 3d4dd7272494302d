package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"docrag/internal/domain"
	"docrag/internal/tui"
)

const replPrompt = "User (or type 'q', 'quit', or 'exit' to quit): "

var chatTUI bool

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Ask questions interactively",
	Args:  cobra.NoArgs,
	RunE:  runChat,
}

func init() {
	chatCmd.Flags().BoolVar(&chatTUI, "tui", false, "use the full-screen terminal UI")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
	app, err := newApp(currentConfig, true)
	if err != nil {
		return err
	}
	defer app.Close()

	if chatTUI {
		m := tui.New(cmd.Context(), app.Pipeline, app.Config.Collection)
		_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run()
		return err
	}
	return runREPL(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), app.Pipeline)
}

// answerer is the part of the pipeline the REPL needs.
type answerer interface {
	Answer(ctx context.Context, query string) domain.QueryResult
}

func isQuit(line string) bool {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "q", "quit", "exit":
		return true
	}
	return false
}

// runREPL reads one question per line until a quit word, end of input or cancellation.
func runREPL(ctx context.Context, in io.Reader, out io.Writer, p answerer) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for {
		fmt.Fprint(out, replPrompt)
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := scanner.Text()
		if isQuit(line) {
			fmt.Fprintln(out, "Goodbye!")
			return nil
		}
		res := p.Answer(ctx, line)
		if res.Err != nil {
			fmt.Fprintf(out, "Error: %v\n", res.Err)
		} else {
			fmt.Fprintf(out, "Assistant: %s\n", res.Answer)
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}
