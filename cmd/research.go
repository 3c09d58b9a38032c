package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kvistgaard/agentlab/internal/research"
)

var (
	flagResearchMaxResults int
	flagResearchPDFs       []string
	flagResearchOut        string
)

var researchCmd = &cobra.Command{
	Use:   "research [topic]",
	Short: "Generate a literature review for a topic",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runResearch,
}

func init() {
	researchCmd.Flags().IntVar(&flagResearchMaxResults, "max-results", 0, "results per search source")
	researchCmd.Flags().StringSliceVar(&flagResearchPDFs, "pdf", nil, "local PDF paths to summarize into the review (repeatable)")
	researchCmd.Flags().StringVar(&flagResearchOut, "out", "", "write the markdown review to a file instead of stdout")
	rootCmd.AddCommand(researchCmd)
}

func runResearch(cmd *cobra.Command, args []string) error {
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

	pipeline, err := a.ReviewPipeline()
	if err != nil {
		return fmt.Errorf("creating review pipeline: %w", err)
	}

	result, err := pipeline.Review(ctx, research.ReviewRequest{
		Topic:      strings.Join(args, " "),
		MaxResults: flagResearchMaxResults,
		PDFPaths:   flagResearchPDFs,
	})
	if err != nil {
		return fmt.Errorf("generating review: %w", err)
	}

	if flagResearchOut != "" {
		if err := os.WriteFile(flagResearchOut, []byte(result.Markdown), 0o644); err != nil {
			return fmt.Errorf("writing review: %w", err)
		}
		fmt.Printf("review written to %s (%d arxiv, %d semantic scholar, %d pdfs)\n",
			flagResearchOut, len(result.ArxivResults), len(result.SemanticResults), len(result.PDFSummaries))
		return nil
	}

	fmt.Println(result.Markdown)
	return nil
}
