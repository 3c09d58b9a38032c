package browser

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kvistgaard/agentlab/internal/log"
)

// stubSession records calls and returns scripted failures.
type stubSession struct {
	calls    []string
	failOn   string
	texts    map[string]string
	closed   bool
	closeErr error
}

func (s *stubSession) record(op string) error {
	s.calls = append(s.calls, op)
	if s.failOn == op {
		return fmt.Errorf("%s failed", op)
	}
	return nil
}

func (s *stubSession) Navigate(ctx context.Context, url string) error {
	return s.record("goto " + url)
}

func (s *stubSession) WaitForSelector(ctx context.Context, selector string) error {
	return s.record("wait " + selector)
}

func (s *stubSession) Fill(ctx context.Context, selector, text string) error {
	return s.record("fill " + selector)
}

func (s *stubSession) Click(ctx context.Context, selector string) error {
	return s.record("click " + selector)
}

func (s *stubSession) ExtractText(ctx context.Context, selector string) (string, error) {
	if err := s.record("extract " + selector); err != nil {
		return "", err
	}
	return s.texts[selector], nil
}

func (s *stubSession) Screenshot(ctx context.Context, name string) (string, error) {
	if err := s.record("screenshot " + name); err != nil {
		return "", err
	}
	return "artifacts/web/" + name + ".png", nil
}

func (s *stubSession) Close() error {
	s.closed = true
	return s.closeErr
}

func newStubAgent(t *testing.T, session *stubSession) *Agent {
	t.Helper()
	agent, err := New(func(ctx context.Context) (Session, error) {
		return session, nil
	}, log.NewNop())
	require.NoError(t, err)
	return agent
}

func TestAgentRun(t *testing.T) {
	session := &stubSession{texts: map[string]string{"h1": "Welcome"}}
	agent := newStubAgent(t, session)

	result, err := agent.Run(context.Background(), []Step{
		{Type: ActionGoto, URL: "https://example.com"},
		{Type: ActionWaitForSelector, Selector: "h1"},
		{Type: ActionExtractText, Selector: "h1"},
		{Type: ActionScreenshot, Name: "landing"},
	})
	require.NoError(t, err)

	assert.Empty(t, result.Errors)
	require.Len(t, result.Results, 4)
	assert.Equal(t, "Welcome", result.Results[2].Output)
	assert.Equal(t, "artifacts/web/landing.png", result.Results[3].Output)
	assert.True(t, session.closed)
}

func TestAgentRunContinuesAfterFailure(t *testing.T) {
	session := &stubSession{failOn: "click #submit", texts: map[string]string{"p": "done"}}
	agent := newStubAgent(t, session)

	result, err := agent.Run(context.Background(), []Step{
		{Type: ActionGoto, URL: "https://example.com"},
		{Type: ActionClick, Selector: "#submit"},
		{Type: ActionExtractText, Selector: "p"},
	})
	require.NoError(t, err)

	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "step 1 (click)")
	// The step after the failure still ran.
	require.Len(t, result.Results, 2)
	assert.Equal(t, "done", result.Results[1].Output)
	assert.True(t, session.closed)
}

func TestAgentRunValidationErrorsAreRecorded(t *testing.T) {
	session := &stubSession{}
	agent := newStubAgent(t, session)

	result, err := agent.Run(context.Background(), []Step{
		{Type: "teleport"},
		{Type: ActionGoto},
		{Type: ActionFill, Text: "hello"},
		{Type: ActionScreenshot},
	})
	require.NoError(t, err)

	require.Len(t, result.Errors, 3)
	assert.Contains(t, result.Errors[0], "unknown action")
	assert.Contains(t, result.Errors[1], "requires url")
	assert.Contains(t, result.Errors[2], "requires selector")
	// Screenshot with no name still runs with the default.
	require.Len(t, result.Results, 1)
	assert.Equal(t, "artifacts/web/page.png", result.Results[0].Output)
}

func TestAgentRunSessionOpenFailure(t *testing.T) {
	agent, err := New(func(ctx context.Context) (Session, error) {
		return nil, errors.New("chrome not found")
	}, log.NewNop())
	require.NoError(t, err)

	_, err = agent.Run(context.Background(), []Step{{Type: ActionGoto, URL: "https://example.com"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open browser session")
}

func TestAgentRunNoSteps(t *testing.T) {
	agent := newStubAgent(t, &stubSession{})
	_, err := agent.Run(context.Background(), nil)
	assert.Error(t, err)
}

func TestAgentRunCanceledContext(t *testing.T) {
	session := &stubSession{}
	agent := newStubAgent(t, session)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := agent.Run(ctx, []Step{{Type: ActionGoto, URL: "https://example.com"}})
	require.Error(t, err)
	assert.True(t, session.closed)
}

func TestStepValidate(t *testing.T) {
	tests := []struct {
		name    string
		step    Step
		wantErr bool
	}{
		{"goto with url", Step{Type: ActionGoto, URL: "https://x.org"}, false},
		{"goto without url", Step{Type: ActionGoto}, true},
		{"wait with selector", Step{Type: ActionWaitForSelector, Selector: "h1"}, false},
		{"wait without selector", Step{Type: ActionWaitForSelector}, true},
		{"fill with selector", Step{Type: ActionFill, Selector: "#q", Text: "hi"}, false},
		{"fill without selector", Step{Type: ActionFill, Text: "hi"}, true},
		{"click without selector", Step{Type: ActionClick}, true},
		{"extract without selector", Step{Type: ActionExtractText}, true},
		{"screenshot without name", Step{Type: ActionScreenshot}, false},
		{"unknown type", Step{Type: "hover"}, true},
		{"empty type", Step{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.step.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestScreenshotFilename(t *testing.T) {
	assert.Equal(t, "landing.png", screenshotFilename("landing"))
	assert.Equal(t, "landing.png", screenshotFilename("landing.png"))
	assert.Equal(t, "page.png", screenshotFilename("  "))
	// Path components are stripped.
	assert.Equal(t, "passwd.png", screenshotFilename("../../etc/passwd"))
}
