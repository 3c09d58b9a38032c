package research

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kvistgaard/agentlab/internal/log"
	"github.com/kvistgaard/agentlab/internal/testutil"
)

type stubSearcher struct {
	papers []Paper
	err    error
}

func (s *stubSearcher) Search(ctx context.Context, query string, maxResults int) ([]Paper, error) {
	return s.papers, s.err
}

func newTestPipeline(t *testing.T, mock *testutil.MockLLM, arxiv, semantic Searcher) *Pipeline {
	t.Helper()

	client := newTestLLM(t, mock)
	summarizer, err := NewSummarizer(client, 1000, log.NewNop())
	require.NoError(t, err)

	p, err := NewPipeline(PipelineConfig{
		LLM:        client,
		Arxiv:      arxiv,
		Semantic:   semantic,
		Summarizer: summarizer,
		Logger:     log.NewNop(),
	})
	require.NoError(t, err)
	return p
}

func TestPipelineReview(t *testing.T) {
	mock := testutil.NewMockLLM("# Literature Review\n\nGenerated.")
	arxiv := &stubSearcher{papers: []Paper{{Title: "Paper A", Link: "https://arxiv.org/a"}}}
	semantic := &stubSearcher{papers: []Paper{{Title: "Paper B", Link: "https://example.org/b"}}}

	p := newTestPipeline(t, mock, arxiv, semantic)

	result, err := p.Review(context.Background(), ReviewRequest{Topic: "graph neural networks"})
	require.NoError(t, err)

	assert.Equal(t, "# Literature Review\n\nGenerated.", result.Markdown)
	assert.Len(t, result.ArxivResults, 1)
	assert.Len(t, result.SemanticResults, 1)
	assert.Empty(t, result.PDFSummaries)
}

func TestPipelineReviewSearchFailuresDegrade(t *testing.T) {
	mock := testutil.NewMockLLM("review without sources")
	arxiv := &stubSearcher{err: errors.New("arxiv down")}
	semantic := &stubSearcher{err: errors.New("semantic scholar down")}

	p := newTestPipeline(t, mock, arxiv, semantic)

	result, err := p.Review(context.Background(), ReviewRequest{Topic: "quantum error correction"})
	require.NoError(t, err)

	assert.Empty(t, result.ArxivResults)
	assert.Empty(t, result.SemanticResults)
	assert.Equal(t, "review without sources", result.Markdown)
}

func TestPipelineReviewFailingPDFIsPlaceholder(t *testing.T) {
	mock := testutil.NewMockLLM("review text")
	p := newTestPipeline(t, mock, &stubSearcher{}, &stubSearcher{})

	result, err := p.Review(context.Background(), ReviewRequest{
		Topic:    "diffusion models",
		PDFPaths: []string{"testdata/missing.pdf"},
	})
	require.NoError(t, err)

	require.Len(t, result.PDFSummaries, 1)
	assert.Contains(t, result.PDFSummaries[0], "failed")
}

func TestPipelineReviewEmptyTopic(t *testing.T) {
	p := newTestPipeline(t, testutil.NewMockLLM("unused"), &stubSearcher{}, &stubSearcher{})

	_, err := p.Review(context.Background(), ReviewRequest{Topic: " "})
	assert.Error(t, err)
}

func TestPipelineReviewGenerationFailure(t *testing.T) {
	mock := testutil.NewMockLLM("unused")
	mock.FailWith(errors.New("model offline"))
	p := newTestPipeline(t, mock, &stubSearcher{}, &stubSearcher{})

	_, err := p.Review(context.Background(), ReviewRequest{Topic: "anything"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "review generation failed")
}

func TestNewPipelineValidation(t *testing.T) {
	_, err := NewPipeline(PipelineConfig{})
	assert.Error(t, err)
}
