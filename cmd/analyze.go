package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	flagAnalyzeRows   int
	flagAnalyzeReport bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [file]",
	Short: "Analyze a local file (pdf, docx, xlsx, html, text)",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyze,
}

func init() {
	analyzeCmd.Flags().IntVar(&flagAnalyzeRows, "rows", 0, "sample rows per spreadsheet sheet")
	analyzeCmd.Flags().BoolVar(&flagAnalyzeReport, "report", false, "render a markdown report instead of JSON")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, logger, err := setupApp(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	fileAgent, err := a.FileAgent()
	if err != nil {
		return fmt.Errorf("creating file agent: %w", err)
	}

	analysis, err := fileAgent.Analyze(ctx, args[0], flagAnalyzeRows)
	if err != nil {
		return fmt.Errorf("analyzing file: %w", err)
	}

	if flagAnalyzeReport {
		markdown, err := fileAgent.Report(ctx, analysis)
		if err != nil {
			return fmt.Errorf("rendering report: %w", err)
		}
		fmt.Println(markdown)
		return nil
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(analysis)
}
