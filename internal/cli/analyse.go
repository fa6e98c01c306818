package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"docanalyser/internal/bootstrap"
	"docanalyser/internal/domain"
	"docanalyser/internal/export"
)

var (
	analyseJSON        string
	analyseXLSX        string
	analyseCSV         string
	analyseConcurrency int
	analyseRPM         int
)

var analyseCmd = &cobra.Command{
	Use:     "analyse [paths...]",
	Aliases: []string{"analyze"},
	Short:   "Classify and extract fields from documents",
	Long: `Classify each document and extract the fields for its category.

Examples:
  docanalyser analyse ./scans
  docanalyser analyse invoice.pdf receipt.jpg --json results.json
  docanalyser analyse ./inbox --xlsx report.xlsx --concurrency 4 --rpm 30`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAnalyse,
}

func init() {
	analyseCmd.Flags().StringVar(&analyseJSON, "json", "", "save results to a JSON file keyed by file name")
	analyseCmd.Flags().StringVar(&analyseXLSX, "xlsx", "", "write an XLSX report")
	analyseCmd.Flags().StringVar(&analyseCSV, "csv", "", "write a CSV report")
	analyseCmd.Flags().IntVar(&analyseConcurrency, "concurrency", 0, "documents processed in parallel (default from config)")
	analyseCmd.Flags().IntVar(&analyseRPM, "rpm", -1, "max LLM requests per minute, 0 for unlimited (default from config)")
}

func runAnalyse(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if analyseJSON != "" {
		cfg.Results.Sink = bootstrap.SinkFile
		cfg.Results.FilePath = analyseJSON
	}
	if analyseConcurrency > 0 {
		cfg.Pipeline.Concurrency = analyseConcurrency
	}
	if analyseRPM >= 0 {
		cfg.Pipeline.RequestsPerMinute = analyseRPM
	}

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	outcomes, runErr := app.Service.AnalysePaths(ctx, args)
	if runErr != nil && outcomes == nil {
		return runErr
	}

	out := cmd.OutOrStdout()
	analysed := printOutcomes(out, outcomes)

	if analyseXLSX != "" {
		if err := writeReport(analyseXLSX, outcomes, export.WriteXLSX); err != nil {
			return err
		}
		fmt.Fprintf(out, "XLSX report: %s\n", analyseXLSX)
	}
	if analyseCSV != "" {
		if err := writeReport(analyseCSV, outcomes, export.WriteCSV); err != nil {
			return err
		}
		fmt.Fprintf(out, "CSV report: %s\n", analyseCSV)
	}
	if analyseJSON != "" && analysed > 0 {
		fmt.Fprintf(out, "Results saved to %s\n", analyseJSON)
	}

	if runErr != nil {
		return runErr
	}
	if analysed == 0 {
		return errors.New("no document could be analysed")
	}
	return nil
}

func printOutcomes(w io.Writer, outcomes []domain.DocumentOutcome) int {
	analysed := 0
	for i := range outcomes {
		o := &outcomes[i]
		if o.Status() == domain.DocumentStatusAnalysed {
			analysed++
			fmt.Fprintf(w, "ok    %s  %s (%.2f)\n", o.Path, o.Result.Category, o.Result.Confidence)
			continue
		}
		fmt.Fprintf(w, "fail  %s  %v\n", o.Path, o.Err)
	}
	fmt.Fprintf(w, "\n%d analysed, %d failed\n", analysed, len(outcomes)-analysed)
	return analysed
}

func writeReport(path string, outcomes []domain.DocumentOutcome, write func(io.Writer, []domain.DocumentOutcome) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f, outcomes); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
