// Package cli implements the docrag command line.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"docrag/internal/config"
	"docrag/internal/logger"
)

var (
	cfgFile       string
	verbose       bool
	currentConfig *config.AppConfig
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "docrag",
	Short: "Ask questions about your PDF and Markdown documents",
	Long: `docrag ingests PDF and Markdown files into a vector store and answers
questions with a language model grounded on the retrieved passages.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var (
			cfg  *config.AppConfig
			path string
			err  error
		)
		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
			path = cfgFile
		} else {
			cfg, path, err = config.LoadDefault()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		currentConfig = cfg

		logger.SetVerbose(verbose || cfg.Log.Verbose)
		if cfg.Log.File != "" {
			if err := logger.OpenFile(cfg.Log.File); err != nil {
				return fmt.Errorf("failed to open log file: %w", err)
			}
		}
		logger.Debug("using config %s", path)
		return nil
	},
}

// Execute runs the root command. It is called by main.main().
func Execute() {
	// .env is optional; it usually carries API keys
	_ = godotenv.Load()

	if err := execute(); err != nil {
		os.Exit(1)
	}
}

func execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer logger.Close()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default ./config.yaml, then ~/.config/docrag/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}
