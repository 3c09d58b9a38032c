// Package llm wraps Genkit model calls with the resilience layer every
// agent in this repository shares: proactive rate limiting, retry with
// exponential backoff, and a circuit breaker.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"golang.org/x/time/rate"

	"github.com/kvistgaard/agentlab/internal/log"
)

// ErrEmptyResponse is returned when the model produces no text output.
var ErrEmptyResponse = errors.New("model returned empty response")

// Config contains all required parameters for the LLM client.
type Config struct {
	Genkit *genkit.Genkit
	Logger log.Logger

	// Model is the fully qualified model name, e.g. "googleai/gemini-2.5-flash".
	Model string

	Temperature float64
	MaxTokens   int

	// Resilience configuration (zero values use defaults)
	RetryConfig          RetryConfig
	CircuitBreakerConfig CircuitBreakerConfig
	RateLimiter          *rate.Limiter // nil = use default (10 rps, burst 30)
}

func (cfg Config) validate() error {
	if cfg.Genkit == nil {
		return errors.New("genkit instance is required")
	}
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.Model == "" {
		return errors.New("model name is required")
	}
	return nil
}

// Client executes model calls on behalf of agents.
//
// Client is stateless and safe for concurrent use. All configuration is
// captured immutably at construction time.
type Client struct {
	g      *genkit.Genkit
	logger log.Logger

	model       string
	temperature float64
	maxTokens   int

	retryConfig    RetryConfig
	circuitBreaker *circuitBreaker
	rateLimiter    *rate.Limiter
}

// New creates a new LLM client.
func New(cfg Config) (*Client, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	retryConfig := cfg.RetryConfig
	if retryConfig.MaxRetries == 0 {
		retryConfig = DefaultRetryConfig()
	}

	cbConfig := cfg.CircuitBreakerConfig
	if cbConfig.FailureThreshold == 0 {
		cbConfig = DefaultCircuitBreakerConfig()
	}

	rl := cfg.RateLimiter
	if rl == nil {
		rl = rate.NewLimiter(10, 30)
	}

	return &Client{
		g:              cfg.Genkit,
		logger:         cfg.Logger,
		model:          cfg.Model,
		temperature:    cfg.Temperature,
		maxTokens:      cfg.MaxTokens,
		retryConfig:    retryConfig,
		circuitBreaker: newCircuitBreaker(cbConfig),
		rateLimiter:    rl,
	}, nil
}

// Generate executes a model call with the client's resilience stack.
// The caller supplies message, tool, and output options; model name and
// generation parameters are applied by the client.
func (c *Client) Generate(ctx context.Context, opts ...ai.GenerateOption) (*ai.ModelResponse, error) {
	if err := c.circuitBreaker.allow(); err != nil {
		c.logger.Warn("circuit breaker is open, rejecting request",
			"state", c.circuitBreaker.current().String())
		return nil, fmt.Errorf("service unavailable: %w", err)
	}

	full := make([]ai.GenerateOption, 0, len(opts)+2)
	full = append(full,
		ai.WithModelName(c.model),
		ai.WithConfig(map[string]any{
			"temperature":     c.temperature,
			"maxOutputTokens": c.maxTokens,
		}),
	)
	full = append(full, opts...)

	resp, err := c.generateWithRetry(ctx, full)
	if err != nil {
		c.circuitBreaker.failure()
		return nil, err
	}

	c.circuitBreaker.success()
	return resp, nil
}

// GenerateText executes a single-prompt call and returns the text output.
// Returns ErrEmptyResponse when the model produces no text.
func (c *Client) GenerateText(ctx context.Context, system, prompt string) (string, error) {
	opts := []ai.GenerateOption{ai.WithPrompt(prompt)}
	if system != "" {
		opts = append(opts, ai.WithSystem(system))
	}

	resp, err := c.Generate(ctx, opts...)
	if err != nil {
		return "", err
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// Model returns the fully qualified model name the client calls.
func (c *Client) Model() string {
	return c.model
}
