// Package browser implements the web-automation agent: a rod-managed
// Chrome session and a small typed action set executed step by step.
package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/kvistgaard/agentlab/internal/config"
	"github.com/kvistgaard/agentlab/internal/log"
)

// Session is the subset of browser operations the agent drives.
// Screenshot returns the path the image was written to.
type Session interface {
	Navigate(ctx context.Context, url string) error
	WaitForSelector(ctx context.Context, selector string) error
	Fill(ctx context.Context, selector, text string) error
	Click(ctx context.Context, selector string) error
	ExtractText(ctx context.Context, selector string) (string, error)
	Screenshot(ctx context.Context, name string) (string, error)
	Close() error
}

// chromeSession drives one rod page over a launched Chrome instance.
type chromeSession struct {
	browser       *rod.Browser
	page          *rod.Page
	cfg           config.BrowserConfig
	logger        log.Logger
	cleanupChrome func()
}

// NewSession launches Chrome (or the configured binary), connects, and
// opens a blank page. The caller must Close the session.
func NewSession(ctx context.Context, cfg config.BrowserConfig, logger log.Logger) (Session, error) {
	if logger == nil {
		return nil, errors.New("logger is required")
	}

	l := launcher.New().Headless(cfg.Headless)
	if cfg.Bin != "" {
		l = l.Bin(cfg.Bin)
	}
	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch chrome: %w", err)
	}

	b := rod.New().ControlURL(controlURL).Context(ctx)
	if err := b.Connect(); err != nil {
		l.Cleanup()
		return nil, fmt.Errorf("connect to chrome: %w", err)
	}

	page, err := b.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = b.Close()
		l.Cleanup()
		return nil, fmt.Errorf("open page: %w", err)
	}

	logger.Info("browser session started", "headless", cfg.Headless)
	return &chromeSession{
		browser:       b,
		page:          page,
		cfg:           cfg,
		logger:        logger,
		cleanupChrome: l.Cleanup,
	}, nil
}

func (s *chromeSession) Navigate(ctx context.Context, url string) error {
	page := s.page.Context(ctx).Timeout(s.cfg.NavigationTimeout())
	if err := page.Navigate(url); err != nil {
		return fmt.Errorf("navigate: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("wait for load: %w", err)
	}
	return nil
}

func (s *chromeSession) WaitForSelector(ctx context.Context, selector string) error {
	_, err := s.element(ctx, selector)
	return err
}

func (s *chromeSession) Fill(ctx context.Context, selector, text string) error {
	el, err := s.element(ctx, selector)
	if err != nil {
		return err
	}
	if err := el.Input(text); err != nil {
		return fmt.Errorf("fill %s: %w", selector, err)
	}
	return nil
}

func (s *chromeSession) Click(ctx context.Context, selector string) error {
	el, err := s.element(ctx, selector)
	if err != nil {
		return err
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("click %s: %w", selector, err)
	}
	return nil
}

func (s *chromeSession) ExtractText(ctx context.Context, selector string) (string, error) {
	el, err := s.element(ctx, selector)
	if err != nil {
		return "", err
	}
	text, err := el.Text()
	if err != nil {
		return "", fmt.Errorf("extract text from %s: %w", selector, err)
	}
	return text, nil
}

func (s *chromeSession) Screenshot(ctx context.Context, name string) (string, error) {
	data, err := s.page.Context(ctx).Screenshot(false, nil)
	if err != nil {
		return "", fmt.Errorf("screenshot: %w", err)
	}

	dir := s.cfg.ScreenshotDir
	if dir == "" {
		dir = filepath.Join("artifacts", "web")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create screenshot dir: %w", err)
	}

	path := filepath.Join(dir, screenshotFilename(name))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write screenshot: %w", err)
	}
	return path, nil
}

func (s *chromeSession) Close() error {
	err := s.browser.Close()
	if s.cleanupChrome != nil {
		s.cleanupChrome()
	}
	if err != nil {
		return fmt.Errorf("close browser: %w", err)
	}
	return nil
}

func (s *chromeSession) element(ctx context.Context, selector string) (*rod.Element, error) {
	el, err := s.page.Context(ctx).Timeout(s.cfg.NavigationTimeout()).Element(selector)
	if err != nil {
		return nil, fmt.Errorf("element %s not found: %w", selector, err)
	}
	return el, nil
}

// screenshotFilename flattens a user-supplied name to a safe PNG file
// name inside the artifacts directory.
func screenshotFilename(name string) string {
	name = filepath.Base(strings.TrimSpace(name))
	name = strings.TrimSuffix(name, ".png")
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = "page"
	}
	return name + ".png"
}
