package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var flagPlanJSON bool

var planCmd = &cobra.Command{
	Use:   "plan [question]",
	Short: "Answer a question with the plan-and-execute agent",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runPlan,
}

func init() {
	planCmd.Flags().BoolVar(&flagPlanJSON, "json", false, "print the full run state as JSON")
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
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

	executor, err := a.Executor(ctx)
	if err != nil {
		return fmt.Errorf("creating executor: %w", err)
	}

	state, err := executor.Run(ctx, strings.Join(args, " "))
	if err != nil {
		return fmt.Errorf("running plan: %w", err)
	}

	if flagPlanJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(state)
	}

	fmt.Println("Plan:")
	for i, step := range state.Plan {
		fmt.Printf("  %d. %s (%s)\n", i+1, step.Goal, step.Action)
	}
	for _, out := range state.ToolOutputs {
		if out.Error != "" {
			fmt.Printf("  step %d failed: %s\n", out.Step+1, out.Error)
		}
	}
	fmt.Println()
	fmt.Println(state.FinalAnswer)
	return nil
}
