package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/kvistgaard/agentlab/internal/agent"
	"github.com/kvistgaard/agentlab/internal/browser"
	"github.com/kvistgaard/agentlab/internal/document"
	"github.com/kvistgaard/agentlab/internal/log"
	"github.com/kvistgaard/agentlab/internal/planner"
	"github.com/kvistgaard/agentlab/internal/research"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type stubQA struct {
	answer *agent.Answer
	err    error
	asked  []string
}

func (s *stubQA) Ask(ctx context.Context, question string) (*agent.Answer, error) {
	s.asked = append(s.asked, question)
	return s.answer, s.err
}

type stubExecutor struct {
	state *planner.State
	err   error
}

func (s *stubExecutor) Run(ctx context.Context, question string) (*planner.State, error) {
	return s.state, s.err
}

type stubReviewer struct {
	result *research.ReviewResult
	err    error
}

func (s *stubReviewer) Review(ctx context.Context, req research.ReviewRequest) (*research.ReviewResult, error) {
	return s.result, s.err
}

type stubAnalyzer struct {
	analysis  *document.Analysis
	markdown  string
	reportErr error
}

func (s *stubAnalyzer) Analyze(ctx context.Context, path string, maxPreviewRows int) (*document.Analysis, error) {
	return s.analysis, nil
}

func (s *stubAnalyzer) Report(ctx context.Context, analysis *document.Analysis) (string, error) {
	return s.markdown, s.reportErr
}

type stubRunner struct {
	result *browser.RunResult
	err    error
}

func (s *stubRunner) Run(ctx context.Context, steps []browser.Step) (*browser.RunResult, error) {
	return s.result, s.err
}

type serverStubs struct {
	qa        *stubQA
	ephemeral *stubQA
	executor  *stubExecutor
	reviewer  *stubReviewer
	analyzer  *stubAnalyzer
	runner    *stubRunner
}

func defaultStubs() *serverStubs {
	return &serverStubs{
		qa:        &stubQA{answer: &agent.Answer{Text: "42", ToolsUsed: []string{"calculator"}}},
		ephemeral: &stubQA{answer: &agent.Answer{Text: "42 (no memory)"}},
		executor:  &stubExecutor{state: &planner.State{FinalAnswer: "done", Completed: true}},
		reviewer:  &stubReviewer{result: &research.ReviewResult{Markdown: "# Review"}},
		analyzer:  &stubAnalyzer{analysis: &document.Analysis{FileType: document.TypeText}, markdown: "# Report"},
		runner:    &stubRunner{result: &browser.RunResult{Results: []browser.StepResult{{Step: 0, Type: "goto"}}}},
	}
}

func newTestServer(t *testing.T, stubs *serverStubs) *Server {
	t.Helper()

	srv, err := NewServer(ServerConfig{
		Logger:      log.NewNop(),
		QA:          stubs.qa,
		QAEphemeral: stubs.ephemeral,
		Executor:    stubs.executor,
		Reviewer:    stubs.reviewer,
		Analyzer:    stubs.analyzer,
		WebRunner:   stubs.runner,
		CORSOrigins: []string{"https://app.example.com"},
		RateBurst:   100,
	})
	require.NoError(t, err)
	return srv
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t, defaultStubs())

	w := doJSON(t, srv, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"ok"`)

	// Without a pool, readiness equals liveness.
	w = doJSON(t, srv, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"ready"`)
}

func TestQAEndpoint(t *testing.T) {
	stubs := defaultStubs()
	srv := newTestServer(t, stubs)

	w := doJSON(t, srv, http.MethodPost, "/api/v1/agent/qa", map[string]any{"question": "what is 6x7?"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp qaResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "42", resp.Answer)
	assert.Equal(t, []string{"calculator"}, resp.ToolsUsed)
	assert.Equal(t, []string{"what is 6x7?"}, stubs.qa.asked)
	assert.Empty(t, stubs.ephemeral.asked)
}

func TestQAEndpointMemoryDisabled(t *testing.T) {
	stubs := defaultStubs()
	srv := newTestServer(t, stubs)

	w := doJSON(t, srv, http.MethodPost, "/api/v1/agent/qa",
		map[string]any{"question": "hi", "enable_memory": false})
	require.Equal(t, http.StatusOK, w.Code)

	assert.Empty(t, stubs.qa.asked)
	assert.Equal(t, []string{"hi"}, stubs.ephemeral.asked)
}

func TestQAEndpointValidation(t *testing.T) {
	srv := newTestServer(t, defaultStubs())

	w := doJSON(t, srv, http.MethodPost, "/api/v1/agent/qa", map[string]any{"question": "  "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid_request")

	w = doJSON(t, srv, http.MethodPost, "/api/v1/agent/qa", map[string]any{"unknown_field": 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestQAEndpointAgentFailure(t *testing.T) {
	stubs := defaultStubs()
	stubs.qa.answer = nil
	stubs.qa.err = errors.New("model exploded")
	srv := newTestServer(t, stubs)

	w := doJSON(t, srv, http.MethodPost, "/api/v1/agent/qa", map[string]any{"question": "hi"})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "agent_error")
	// Internal error detail must not leak.
	assert.NotContains(t, w.Body.String(), "exploded")
}

func TestPlanExecuteEndpoint(t *testing.T) {
	srv := newTestServer(t, defaultStubs())

	w := doJSON(t, srv, http.MethodPost, "/api/v1/agent/plan-execute", map[string]any{"question": "do things"})
	require.Equal(t, http.StatusOK, w.Code)

	var state planner.State
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &state))
	assert.Equal(t, "done", state.FinalAnswer)
	assert.True(t, state.Completed)
}

func TestReviewEndpoint(t *testing.T) {
	srv := newTestServer(t, defaultStubs())

	w := doJSON(t, srv, http.MethodPost, "/api/v1/research/review", map[string]any{"topic": "GNNs"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "# Review")

	w = doJSON(t, srv, http.MethodPost, "/api/v1/research/review", map[string]any{"topic": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAnalyzeEndpoint(t *testing.T) {
	srv := newTestServer(t, defaultStubs())

	w := doJSON(t, srv, http.MethodPost, "/api/v1/file/analyze", map[string]any{"file_path": "notes.txt"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp analyzeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, document.TypeText, resp.Analysis.FileType)
	assert.Equal(t, "# Report", resp.Markdown)
}

func TestAnalyzeEndpointReportFailureIsTolerated(t *testing.T) {
	stubs := defaultStubs()
	stubs.analyzer.reportErr = errors.New("model offline")
	srv := newTestServer(t, stubs)

	w := doJSON(t, srv, http.MethodPost, "/api/v1/file/analyze", map[string]any{"file_path": "notes.txt"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp analyzeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotNil(t, resp.Analysis)
	assert.Empty(t, resp.Markdown)
}

func TestWebExecuteEndpoint(t *testing.T) {
	srv := newTestServer(t, defaultStubs())

	w := doJSON(t, srv, http.MethodPost, "/api/v1/web/execute", map[string]any{
		"steps": []map[string]any{{"type": "goto", "url": "https://example.com"}},
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, srv, http.MethodPost, "/api/v1/web/execute", map[string]any{"steps": []any{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, defaultStubs())

	w := doJSON(t, srv, http.MethodGet, "/api/v1/agent/qa", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestRequestIDHeader(t *testing.T) {
	srv := newTestServer(t, defaultStubs())

	w := doJSON(t, srv, http.MethodPost, "/api/v1/agent/qa", map[string]any{"question": "hi"})
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t, defaultStubs())

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/agent/qa", nil)
	req.Header.Set("Origin", "https://app.example.com")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	// Unlisted origins get no CORS headers.
	req = httptest.NewRequest(http.MethodOptions, "/api/v1/agent/qa", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimit(t *testing.T) {
	srv, err := NewServer(ServerConfig{
		Logger:    log.NewNop(),
		QA:        defaultStubs().qa,
		Executor:  defaultStubs().executor,
		Reviewer:  defaultStubs().reviewer,
		Analyzer:  defaultStubs().analyzer,
		WebRunner: defaultStubs().runner,
		RateBurst: 2,
	})
	require.NoError(t, err)

	var lastCode int
	for range 5 {
		w := doJSON(t, srv, http.MethodPost, "/api/v1/agent/qa", map[string]any{"question": "hi"})
		lastCode = w.Code
	}
	assert.Equal(t, http.StatusTooManyRequests, lastCode)
}

func TestNewServerValidation(t *testing.T) {
	_, err := NewServer(ServerConfig{Logger: log.NewNop()})
	assert.Error(t, err)

	_, err = NewServer(ServerConfig{})
	assert.Error(t, err)
}
