// Package api is the JSON HTTP layer over the agents.
package api

import (
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kvistgaard/agentlab/internal/log"
)

// ServerConfig contains configuration for creating the API server.
type ServerConfig struct {
	Logger log.Logger

	QA QAAgent // Required
	// QAEphemeral answers without long-term memory; nil falls back to
	// QA when a request sets enable_memory=false.
	QAEphemeral QAAgent
	Executor    PlanExecutor // Required
	Reviewer    Reviewer     // Required
	Analyzer    Analyzer     // Required
	WebRunner   WebRunner    // Required

	Pool        *pgxpool.Pool // Optional: nil skips the DB ping in /ready
	CORSOrigins []string
	TrustProxy  bool // Trust X-Real-IP/X-Forwarded-For (behind reverse proxy)
	RateBurst   int  // Per-IP burst size (0 = default 60)
}

// Server is the JSON API HTTP server.
type Server struct {
	mux *http.ServeMux
}

// NewServer creates a server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if cfg.QA == nil || cfg.Executor == nil || cfg.Reviewer == nil || cfg.Analyzer == nil || cfg.WebRunner == nil {
		return nil, errors.New("all agents are required")
	}

	ah := &agentHandler{
		qa:          cfg.QA,
		qaEphemeral: cfg.QAEphemeral,
		executor:    cfg.Executor,
		logger:      cfg.Logger,
	}
	rh := &researchHandler{reviewer: cfg.Reviewer, logger: cfg.Logger}
	fh := &fileHandler{analyzer: cfg.Analyzer, logger: cfg.Logger}
	wh := &webHandler{runner: cfg.WebRunner, logger: cfg.Logger}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/agent/qa", ah.ask)
	mux.HandleFunc("POST /api/v1/agent/plan-execute", ah.planExecute)
	mux.HandleFunc("POST /api/v1/research/review", rh.review)
	mux.HandleFunc("POST /api/v1/file/analyze", fh.analyze)
	mux.HandleFunc("POST /api/v1/web/execute", wh.execute)

	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 60
	}
	rl := newRateLimiter(1.0, burst)

	// Middleware stack (outermost first):
	//   Recovery → RequestID → Logging → CORS → RateLimit → Routes
	// RequestID precedes Logging so request_id lands in log attributes;
	// CORS precedes RateLimit so preflight OPTIONS gets headers.
	var handler http.Handler = mux
	handler = rateLimitMiddleware(rl, cfg.TrustProxy, cfg.Logger)(handler)
	handler = corsMiddleware(cfg.CORSOrigins)(handler)
	handler = loggingMiddleware(cfg.Logger)(handler)
	handler = requestIDMiddleware()(handler)
	handler = recoveryMiddleware(cfg.Logger)(handler)

	// Health probes bypass the middleware stack.
	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /health", healthHandler(cfg.Logger))
	topMux.Handle("GET /ready", readinessHandler(cfg.Pool, cfg.Logger))
	topMux.Handle("/", handler)

	return &Server{mux: topMux}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}
