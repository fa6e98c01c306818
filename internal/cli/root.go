// Package cli provides the command-line interface for docanalyser.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"docanalyser/internal/config"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose bool

	cfg      *config.Config
	logger   *slog.Logger
	closeLog = func() error { return nil }
)

var rootCmd = &cobra.Command{
	Use:   "docanalyser",
	Short: "Classify documents and extract structured fields with a multimodal LLM",
	Long: `docanalyser ingests images and PDFs, asks a multimodal model what kind of
document each one is, and extracts the fields that matter for that category.

Supported inputs: png, jpg, jpeg, webp, bmp, tif, tiff, pdf.
Directories are searched recursively.`,
	Version:       Version,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}
		_ = godotenv.Load()

		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if verbose {
			cfg.Log.Level = "debug"
		}
		logger, closeLog = config.SetupLogger(cfg.Log)
		slog.SetDefault(logger)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = closeLog()
	},
}

// Execute runs the root command. Interrupts cancel in-flight work.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(analyseCmd)
	rootCmd.AddCommand(keyUsageCmd)
	rootCmd.AddCommand(versionCmd)
}
