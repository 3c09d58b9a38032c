package browser

import (
	"context"
	"fmt"
)

// Action names accepted in a Step.
const (
	ActionGoto            = "goto"
	ActionWaitForSelector = "wait_for_selector"
	ActionFill            = "fill"
	ActionClick           = "click"
	ActionExtractText     = "extract_text"
	ActionScreenshot      = "screenshot"
)

// Step is one browser action with its arguments. Unused fields are
// left empty.
type Step struct {
	Type     string `json:"type"`
	URL      string `json:"url,omitempty"`
	Selector string `json:"selector,omitempty"`
	Text     string `json:"text,omitempty"`
	Name     string `json:"name,omitempty"`
}

// Validate checks that the step names a known action and carries its
// required arguments.
func (s Step) Validate() error {
	switch s.Type {
	case ActionGoto:
		if s.URL == "" {
			return fmt.Errorf("%s requires url", ActionGoto)
		}
	case ActionWaitForSelector, ActionClick, ActionExtractText:
		if s.Selector == "" {
			return fmt.Errorf("%s requires selector", s.Type)
		}
	case ActionFill:
		if s.Selector == "" {
			return fmt.Errorf("%s requires selector", ActionFill)
		}
	case ActionScreenshot:
		// Name is optional; Screenshot defaults it.
	default:
		return fmt.Errorf("unknown action type %q", s.Type)
	}
	return nil
}

// executeStep dispatches one validated step against a session and
// returns the step's text output (empty for most actions).
func executeStep(ctx context.Context, session Session, step Step) (string, error) {
	if err := step.Validate(); err != nil {
		return "", err
	}

	switch step.Type {
	case ActionGoto:
		return "", session.Navigate(ctx, step.URL)
	case ActionWaitForSelector:
		return "", session.WaitForSelector(ctx, step.Selector)
	case ActionFill:
		return "", session.Fill(ctx, step.Selector, step.Text)
	case ActionClick:
		return "", session.Click(ctx, step.Selector)
	case ActionExtractText:
		return session.ExtractText(ctx, step.Selector)
	case ActionScreenshot:
		name := step.Name
		if name == "" {
			name = "page"
		}
		return session.Screenshot(ctx, name)
	default:
		return "", fmt.Errorf("unknown action type %q", step.Type)
	}
}
