package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kvistgaard/agentlab/internal/browser"
)

var webCmd = &cobra.Command{
	Use:   "web [steps.json]",
	Short: "Run browser automation steps from a JSON file",
	Long: `Run browser automation steps from a JSON file.

The file holds an array of steps, for example:

  [
    {"type": "goto", "url": "https://example.com"},
    {"type": "wait_for_selector", "selector": "h1"},
    {"type": "extract_text", "selector": "h1"},
    {"type": "screenshot", "name": "landing"}
  ]`,
	Args: cobra.ExactArgs(1),
	RunE: runWeb,
}

func init() {
	rootCmd.AddCommand(webCmd)
}

func runWeb(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading steps file: %w", err)
	}
	var steps []browser.Step
	if err := json.Unmarshal(data, &steps); err != nil {
		return fmt.Errorf("parsing steps file: %w", err)
	}

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

	webAgent, err := a.WebAgent()
	if err != nil {
		return fmt.Errorf("creating web agent: %w", err)
	}

	result, err := webAgent.Run(ctx, steps)
	if err != nil {
		return fmt.Errorf("running steps: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
