package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var flagAskNoMemory bool

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask the tool-calling QA agent a question",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&flagAskNoMemory, "no-memory", false, "disable long-term memory recall and writeback")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
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

	qa, err := a.QAAgent(ctx, !flagAskNoMemory)
	if err != nil {
		return fmt.Errorf("creating qa agent: %w", err)
	}

	answer, err := qa.Ask(ctx, strings.Join(args, " "))
	if err != nil {
		return fmt.Errorf("asking question: %w", err)
	}

	fmt.Println(answer.Text)
	if len(answer.ToolsUsed) > 0 {
		fmt.Printf("\n[tools used: %s]\n", strings.Join(answer.ToolsUsed, ", "))
	}
	if answer.Recalled > 0 {
		fmt.Printf("[memories recalled: %d]\n", answer.Recalled)
	}
	return nil
}
