package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/kvistgaard/agentlab/internal/agent"
	"github.com/kvistgaard/agentlab/internal/browser"
	"github.com/kvistgaard/agentlab/internal/document"
	"github.com/kvistgaard/agentlab/internal/log"
	"github.com/kvistgaard/agentlab/internal/planner"
	"github.com/kvistgaard/agentlab/internal/research"
)

// Consumer interfaces over the agents, so handlers can be tested with
// stubs.
type (
	// QAAgent answers one question through the tool-calling loop.
	QAAgent interface {
		Ask(ctx context.Context, question string) (*agent.Answer, error)
	}

	// PlanExecutor runs the plan-and-execute state machine.
	PlanExecutor interface {
		Run(ctx context.Context, question string) (*planner.State, error)
	}

	// Reviewer generates a literature review.
	Reviewer interface {
		Review(ctx context.Context, req research.ReviewRequest) (*research.ReviewResult, error)
	}

	// Analyzer analyzes local files and renders reports.
	Analyzer interface {
		Analyze(ctx context.Context, path string, maxPreviewRows int) (*document.Analysis, error)
		Report(ctx context.Context, analysis *document.Analysis) (string, error)
	}

	// WebRunner executes browser automation steps.
	WebRunner interface {
		Run(ctx context.Context, steps []browser.Step) (*browser.RunResult, error)
	}
)

type agentHandler struct {
	qa          QAAgent
	qaEphemeral QAAgent
	executor    PlanExecutor
	logger      log.Logger
}

type qaRequest struct {
	Question     string `json:"question"`
	EnableMemory *bool  `json:"enable_memory,omitempty"`
}

type qaResponse struct {
	Answer    string   `json:"answer"`
	ToolsUsed []string `json:"tools_used,omitempty"`
	Recalled  int      `json:"recalled,omitempty"`
}

// ask handles POST /api/v1/agent/qa.
func (h *agentHandler) ask(w http.ResponseWriter, r *http.Request) {
	var req qaRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body: "+err.Error(), h.logger)
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "question is required", h.logger)
		return
	}

	// enable_memory defaults to true; false routes to the
	// memory-less agent when one is configured.
	qa := h.qa
	if req.EnableMemory != nil && !*req.EnableMemory && h.qaEphemeral != nil {
		qa = h.qaEphemeral
	}

	answer, err := qa.Ask(r.Context(), req.Question)
	if err != nil {
		h.logger.Error("qa request failed", "error", err)
		writeError(w, http.StatusBadGateway, "agent_error", "question answering failed", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, qaResponse{
		Answer:    answer.Text,
		ToolsUsed: answer.ToolsUsed,
		Recalled:  answer.Recalled,
	}, h.logger)
}

type planRequest struct {
	Question string `json:"question"`
}

// planExecute handles POST /api/v1/agent/plan-execute.
func (h *agentHandler) planExecute(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body: "+err.Error(), h.logger)
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "question is required", h.logger)
		return
	}

	state, err := h.executor.Run(r.Context(), req.Question)
	if err != nil {
		h.logger.Error("plan-execute request failed", "error", err)
		writeError(w, http.StatusBadGateway, "agent_error", "plan execution failed", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, state, h.logger)
}

type researchHandler struct {
	reviewer Reviewer
	logger   log.Logger
}

// review handles POST /api/v1/research/review.
func (h *researchHandler) review(w http.ResponseWriter, r *http.Request) {
	var req research.ReviewRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body: "+err.Error(), h.logger)
		return
	}
	if strings.TrimSpace(req.Topic) == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "topic is required", h.logger)
		return
	}

	result, err := h.reviewer.Review(r.Context(), req)
	if err != nil {
		h.logger.Error("review request failed", "error", err)
		writeError(w, http.StatusBadGateway, "agent_error", "review generation failed", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, result, h.logger)
}

type fileHandler struct {
	analyzer Analyzer
	logger   log.Logger
}

type analyzeRequest struct {
	FilePath       string `json:"file_path"`
	MaxPreviewRows int    `json:"max_preview_rows,omitempty"`
}

type analyzeResponse struct {
	Analysis *document.Analysis `json:"analysis"`
	Markdown string             `json:"markdown,omitempty"`
}

// analyze handles POST /api/v1/file/analyze.
func (h *fileHandler) analyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body: "+err.Error(), h.logger)
		return
	}
	if strings.TrimSpace(req.FilePath) == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "file_path is required", h.logger)
		return
	}

	analysis, err := h.analyzer.Analyze(r.Context(), req.FilePath, req.MaxPreviewRows)
	if err != nil {
		h.logger.Error("analyze request failed", "error", err)
		writeError(w, http.StatusBadGateway, "agent_error", "file analysis failed", h.logger)
		return
	}

	resp := analyzeResponse{Analysis: analysis}
	if markdown, err := h.analyzer.Report(r.Context(), analysis); err != nil {
		// The structured analysis is still useful without its report.
		h.logger.Warn("report generation failed", "error", err)
	} else {
		resp.Markdown = markdown
	}

	writeJSON(w, http.StatusOK, resp, h.logger)
}

type webHandler struct {
	runner WebRunner
	logger log.Logger
}

type webRequest struct {
	Steps []browser.Step `json:"steps"`
}

// execute handles POST /api/v1/web/execute.
func (h *webHandler) execute(w http.ResponseWriter, r *http.Request) {
	var req webRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body: "+err.Error(), h.logger)
		return
	}
	if len(req.Steps) == 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "at least one step is required", h.logger)
		return
	}

	result, err := h.runner.Run(r.Context(), req.Steps)
	if err != nil {
		h.logger.Error("web execute request failed", "error", err)
		status := http.StatusBadGateway
		if errors.Is(err, context.Canceled) {
			status = http.StatusRequestTimeout
		}
		writeError(w, status, "agent_error", "web automation failed", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, result, h.logger)
}
