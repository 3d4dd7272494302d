package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"docrag/internal/logger"
	"docrag/internal/service"
	"docrag/internal/watcher"
)

var (
	ingestWatch bool
	ingestForce bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [paths...]",
	Short: "Index documents into the vector store",
	Long: `Loads, chunks and embeds PDF and Markdown files.
Without arguments the configured pdf and markdown folders are scanned.
Files already ingested are skipped unless --force is given.`,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVarP(&ingestWatch, "watch", "w", false, "keep running and ingest files as they appear")
	ingestCmd.Flags().BoolVarP(&ingestForce, "force", "f", false, "ingest again even if already processed")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	app, err := newApp(currentConfig, false)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if ingestForce {
		if err := forgetAll(ctx, app, args); err != nil {
			return err
		}
	}

	var report service.FolderReport
	if len(args) == 0 {
		report, err = app.Indexer.IngestDataRoot(ctx)
	} else {
		report, err = app.Indexer.IngestPaths(ctx, args)
	}
	printReport(out, report)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	if !ingestWatch {
		return nil
	}
	dirs := app.Indexer.DataDirs()
	if len(args) > 0 {
		dirs = dirsOf(args)
	}
	return watchAndIngest(ctx, app, dirs, out)
}

func printReport(out io.Writer, r service.FolderReport) {
	fmt.Fprintf(out, "Ingested %d files (%d chunks), skipped %d, failed %d\n",
		len(r.Ingested), r.Chunks, len(r.Skipped), len(r.Failed))
	for _, f := range r.Failed {
		fmt.Fprintf(out, "  failed: %s\n", f)
	}
}

// forgetAll clears markers for the given paths, or every file in the data folders.
func forgetAll(ctx context.Context, app *App, args []string) error {
	paths := args
	if len(paths) == 0 {
		paths = app.Indexer.DataDirs()
	}
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			continue
		}
		if !info.IsDir() {
			if err := app.Indexer.Forget(ctx, p); err != nil {
				return err
			}
			continue
		}
		entries, err := os.ReadDir(p)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			if err := app.Indexer.Forget(ctx, filepath.Join(p, e.Name())); err != nil {
				return err
			}
		}
	}
	return nil
}

func dirsOf(paths []string) []string {
	seen := make(map[string]struct{})
	var dirs []string
	for _, p := range paths {
		dir := p
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			dir = filepath.Dir(p)
		}
		if _, ok := seen[dir]; ok {
			continue
		}
		seen[dir] = struct{}{}
		dirs = append(dirs, dir)
	}
	return dirs
}

// watchAndIngest blocks until ctx is done, ingesting files that settle in dirs.
func watchAndIngest(ctx context.Context, app *App, dirs []string, out io.Writer) error {
	w, err := watcher.New(app.Loaders.Extensions(), 0)
	if err != nil {
		return err
	}
	defer w.Stop()

	events, err := w.Watch(ctx, dirs...)
	if err != nil {
		return fmt.Errorf("watch failed: %w", err)
	}
	fmt.Fprintf(out, "Watching %v (Ctrl+C to stop)\n", dirs)
	for path := range events {
		n, skipped, err := app.Indexer.IngestFile(ctx, path)
		switch {
		case err != nil:
			logger.Error("failed to ingest %s: %v", path, err)
		case skipped:
			logger.Debug("already ingested %s", path)
		default:
			fmt.Fprintf(out, "Ingested %s (%d chunks)\n", path, n)
		}
	}
	return nil
}
