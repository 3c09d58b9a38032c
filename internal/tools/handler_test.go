package tools

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/firebase/genkit/go/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kvistgaard/agentlab/internal/log"
)

// mockValidator implements HTTPValidator without SSRF blocking,
// so tests can hit httptest servers on 127.0.0.1.
type mockValidator struct {
	validateErr error
	maxSize     int64
}

func (m *mockValidator) Validate(url string) error { return m.validateErr }
func (m *mockValidator) Client() *http.Client      { return http.DefaultClient }
func (m *mockValidator) MaxResponseSize() int64 {
	if m.maxSize > 0 {
		return m.maxSize
	}
	return 5 * 1024 * 1024
}

func toolCtx() *ai.ToolContext {
	return &ai.ToolContext{Context: context.Background()}
}

func newTestHandler(t *testing.T, cfg HandlerConfig) *Handler {
	t.Helper()
	if cfg.HTTPVal == nil {
		cfg.HTTPVal = &mockValidator{}
	}
	if cfg.Logger == nil {
		cfg.Logger = log.NewNop()
	}
	h, err := NewHandler(cfg)
	require.NoError(t, err)
	return h
}

func TestNewHandlerValidation(t *testing.T) {
	_, err := NewHandler(HandlerConfig{Logger: log.NewNop()})
	assert.Error(t, err)

	_, err = NewHandler(HandlerConfig{HTTPVal: &mockValidator{}})
	assert.Error(t, err)
}

func TestHandlerCalculator(t *testing.T) {
	h := newTestHandler(t, HandlerConfig{})

	result, err := h.Calculator(toolCtx(), CalculatorInput{Expression: "(2 + 3) * 4"})
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, result.Status)
	assert.InDelta(t, 20.0, result.Data["result"], 1e-9)
}

func TestHandlerCalculatorError(t *testing.T) {
	h := newTestHandler(t, HandlerConfig{})

	result, err := h.Calculator(toolCtx(), CalculatorInput{Expression: "1 / 0"})
	// Agent Error pattern: tool failures are data, not Go errors
	require.NoError(t, err)
	require.Equal(t, StatusError, result.Status)
	require.NotNil(t, result.Error)
	assert.Equal(t, ErrCodeValidation, result.Error.Code)
}

func TestHandlerWebSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "golang concurrency", r.URL.Query().Get("q"))
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results":[
			{"title":"Goroutines","url":"https://example.com/1","content":"lightweight threads"},
			{"title":"Channels","url":"https://example.com/2","content":"typed conduits"},
			{"title":"Select","url":"https://example.com/3","content":"multiplexing"}
		]}`))
	}))
	defer srv.Close()

	h := newTestHandler(t, HandlerConfig{SearchBaseURL: srv.URL, SearchMaxResults: 2})

	result, err := h.WebSearch(toolCtx(), WebSearchInput{Query: "golang concurrency"})
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, result.Status)

	results, ok := result.Data["results"].([]map[string]any)
	require.True(t, ok)
	assert.Len(t, results, 2) // capped by SearchMaxResults
	assert.Equal(t, "Goroutines", results[0]["title"])
}

func TestHandlerWebSearchEmptyQuery(t *testing.T) {
	h := newTestHandler(t, HandlerConfig{SearchBaseURL: "http://localhost:1"})

	result, err := h.WebSearch(toolCtx(), WebSearchInput{Query: "   "})
	require.NoError(t, err)
	assert.Equal(t, StatusError, result.Status)
	assert.Equal(t, ErrCodeValidation, result.Error.Code)
}

func TestHandlerWebSearchUnconfigured(t *testing.T) {
	h := newTestHandler(t, HandlerConfig{})

	result, err := h.WebSearch(toolCtx(), WebSearchInput{Query: "anything"})
	require.NoError(t, err)
	assert.Equal(t, StatusError, result.Status)
}

func TestHandlerWebSearchServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	h := newTestHandler(t, HandlerConfig{SearchBaseURL: srv.URL})

	result, err := h.WebSearch(toolCtx(), WebSearchInput{Query: "anything"})
	require.NoError(t, err)
	assert.Equal(t, StatusError, result.Status)
	assert.Equal(t, ErrCodeNetwork, result.Error.Code)
}

func TestHandlerWebFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><head><title>Test Page</title></head>
			<body><article><h1>Heading</h1><p>Readable article body text that should survive extraction.</p></article></body></html>`))
	}))
	defer srv.Close()

	h := newTestHandler(t, HandlerConfig{})

	result, err := h.WebFetch(toolCtx(), WebFetchInput{URL: srv.URL})
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, result.Status)
	assert.Equal(t, http.StatusOK, result.Data["status"])

	text, ok := result.Data["text"].(string)
	require.True(t, ok)
	assert.Contains(t, text, "Readable article body text")
}

func TestHandlerWebFetchBlockedURL(t *testing.T) {
	h := newTestHandler(t, HandlerConfig{
		HTTPVal: &mockValidator{validateErr: errors.New("private IP not allowed")},
	})

	result, err := h.WebFetch(toolCtx(), WebFetchInput{URL: "http://10.0.0.1/"})
	require.NoError(t, err)
	require.Equal(t, StatusError, result.Status)
	assert.Equal(t, ErrCodeSecurity, result.Error.Code)
}

func TestHandlerWebFetchTruncates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		for range 1000 {
			_, _ = w.Write([]byte("0123456789"))
		}
	}))
	defer srv.Close()

	h := newTestHandler(t, HandlerConfig{FetchMaxChars: 100})

	result, err := h.WebFetch(toolCtx(), WebFetchInput{URL: srv.URL})
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, result.Status)
	assert.Equal(t, true, result.Data["truncated"])
	assert.Len(t, result.Data["text"], 100)
}

func TestHandlerWebFetchTruncatesOnRuneBoundary(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(strings.Repeat("日本語", 200)))
	}))
	defer srv.Close()

	h := newTestHandler(t, HandlerConfig{FetchMaxChars: 50})

	result, err := h.WebFetch(toolCtx(), WebFetchInput{URL: srv.URL})
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, result.Status)
	assert.Equal(t, true, result.Data["truncated"])

	text, ok := result.Data["text"].(string)
	require.True(t, ok)
	assert.True(t, utf8.ValidString(text))
	assert.Equal(t, 50, utf8.RuneCountInString(text))
}

func TestPlainHTMLText(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{
			name: "strips script style and noscript",
			html: `<html><head><script>var x = 1;</script><style>p{color:red}</style></head>
				<body><p>First   line</p><noscript>no js</noscript></body></html>`,
			want: "First line",
		},
		{
			name: "adjacent blocks keep a separator",
			html: `<body><p>First line</p><p>Second line</p></body>`,
			want: "First line Second line",
		},
		{
			name: "list items and line breaks keep separators",
			html: `<ul><li>one</li><li>two</li></ul><div>three<br>four</div>`,
			want: "one two three four",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, plainHTMLText([]byte(tt.html)))
		})
	}
}
