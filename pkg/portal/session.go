package portal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// SessionConfig configures the Chrome launch for a run.
type SessionConfig struct {
	Headless        bool
	IgnoreTLSErrors bool          // portal QA environments run on self-signed certs
	Timeout         time.Duration // default per-operation timeout (default: 30s)
}

// DefaultSessionConfig returns sensible defaults for a verification run.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		Headless:        true,
		IgnoreTLSErrors: true,
		Timeout:         30 * time.Second,
	}
}

// Session is the rod-backed Driver. One Session is acquired at process
// start, held exclusively for the run, and released on every exit path.
type Session struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
	timeout  time.Duration
}

var _ Driver = (*Session)(nil)

// NewSession launches Chrome and opens a blank page. Failure to acquire
// the browser is fatal for the run.
func NewSession(cfg SessionConfig) (*Session, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	l := launcher.New().
		Headless(cfg.Headless).
		Set("no-sandbox").
		Set("disable-gpu").
		Set("start-maximized")
	if cfg.IgnoreTLSErrors {
		l = l.Set("ignore-certificate-errors")
	}

	url, err := l.Launch()
	if err != nil {
		return nil, &FatalError{Reason: "failed to launch Chrome", Err: err}
	}

	browser := rod.New().ControlURL(url)
	if err := browser.Connect(); err != nil {
		l.Cleanup()
		return nil, &FatalError{Reason: "failed to connect to Chrome", Err: err}
	}

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = browser.Close()
		l.Cleanup()
		return nil, &FatalError{Reason: "failed to open page", Err: err}
	}

	return &Session{
		launcher: l,
		browser:  browser,
		page:     page,
		timeout:  cfg.Timeout,
	}, nil
}

// Navigate opens url and waits for the load event.
func (s *Session) Navigate(url string) error {
	p := s.page.Timeout(s.timeout)
	if err := p.Navigate(url); err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	if err := p.WaitLoad(); err != nil {
		return fmt.Errorf("wait load for %s: %w", url, err)
	}
	return nil
}

// Reload reloads the current page and waits for the load event.
func (s *Session) Reload() error {
	if err := s.page.Reload(); err != nil {
		return fmt.Errorf("reload: %w", err)
	}
	return s.page.Timeout(s.timeout).WaitLoad()
}

// URL returns the current page URL, or "" when it cannot be read.
func (s *Session) URL() string {
	info, err := s.page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

// WaitVisible blocks until the element is visible, mapping a deadline
// expiry to ErrNotFound.
func (s *Session) WaitVisible(selector string, timeout time.Duration) error {
	el, err := s.element(selector, timeout)
	if err != nil {
		return err
	}
	if err := el.WaitVisible(); err != nil {
		return notFound(selector, err)
	}
	return nil
}

// WaitStable waits until the DOM stops changing.
func (s *Session) WaitStable(timeout time.Duration) error {
	return s.page.Timeout(timeout).WaitStable(300 * time.Millisecond)
}

// Click clicks the element after waiting for it with the default timeout.
func (s *Session) Click(selector string) error {
	el, err := s.element(selector, s.timeout)
	if err != nil {
		return err
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("click %s: %w", selector, err)
	}
	return nil
}

// Fill replaces the element's current value with value.
func (s *Session) Fill(selector, value string) error {
	el, err := s.element(selector, s.timeout)
	if err != nil {
		return err
	}
	// Select any existing text so Input replaces rather than appends.
	_ = el.SelectAllText()
	if err := el.Input(value); err != nil {
		return fmt.Errorf("fill %s: %w", selector, err)
	}
	return nil
}

// Text returns the element's rendered text.
func (s *Session) Text(selector string) (string, error) {
	el, err := s.element(selector, s.timeout)
	if err != nil {
		return "", err
	}
	text, err := el.Text()
	if err != nil {
		return "", fmt.Errorf("read text of %s: %w", selector, err)
	}
	return text, nil
}

// HTML returns the element's outer HTML.
func (s *Session) HTML(selector string) (string, error) {
	el, err := s.element(selector, s.timeout)
	if err != nil {
		return "", err
	}
	html, err := el.HTML()
	if err != nil {
		return "", fmt.Errorf("read html of %s: %w", selector, err)
	}
	return html, nil
}

// SetFiles attaches local files to a file input.
func (s *Session) SetFiles(selector string, paths []string) error {
	el, err := s.element(selector, s.timeout)
	if err != nil {
		return err
	}
	if err := el.SetFiles(paths); err != nil {
		return fmt.Errorf("set files on %s: %w", selector, err)
	}
	return nil
}

// Eval runs js (a function expression, e.g. "() => 1+1") and returns the
// result as JSON text.
func (s *Session) Eval(js string) (string, error) {
	res, err := s.page.Timeout(s.timeout).Eval(js)
	if err != nil {
		return "", fmt.Errorf("eval: %w", err)
	}
	return res.Value.String(), nil
}

// Has reports element existence without waiting.
func (s *Session) Has(selector string) bool {
	var ok bool
	var err error
	if isXPath(selector) {
		ok, _, err = s.page.HasX(selector)
	} else {
		ok, _, err = s.page.Has(selector)
	}
	return err == nil && ok
}

// Close releases the browser and the launched Chrome process. Safe to
// call on every exit path.
func (s *Session) Close() error {
	var err error
	if s.browser != nil {
		err = s.browser.Close()
	}
	if s.launcher != nil {
		s.launcher.Cleanup()
	}
	return err
}

func (s *Session) element(selector string, timeout time.Duration) (*rod.Element, error) {
	p := s.page
	if timeout > 0 {
		p = p.Timeout(timeout)
	}
	var el *rod.Element
	var err error
	if isXPath(selector) {
		el, err = p.ElementX(selector)
	} else {
		el, err = p.Element(selector)
	}
	if err != nil {
		return nil, notFound(selector, err)
	}
	return el, nil
}

func isXPath(selector string) bool {
	return strings.HasPrefix(selector, "//") || strings.HasPrefix(selector, "(//")
}

func notFound(selector string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", selector, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", selector, err)
}
