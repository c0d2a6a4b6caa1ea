package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/IshaanNene/ChapterWatch/internal/config"
	"github.com/IshaanNene/ChapterWatch/internal/dom"
	"github.com/IshaanNene/ChapterWatch/internal/types"
)

// RodSession drives a headless Chromium through Rod. One tab is opened at
// start and reused for every navigation.
type RodSession struct {
	cfg      *config.BrowserConfig
	logger   *slog.Logger
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
}

// NewRodSession launches Chromium and opens the shared tab.
func NewRodSession(cfg *config.BrowserConfig, logger *slog.Logger) (*RodSession, error) {
	s := &RodSession{
		cfg:    cfg,
		logger: logger.With("component", "rod_session"),
	}

	l := s.newLauncher()
	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	s.launcher = l

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("connect browser: %w", err)
	}
	s.browser = browser

	var page *rod.Page
	if cfg.Stealth {
		page, err = stealth.Page(browser)
	} else {
		page, err = browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	}
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("open page: %w", err)
	}
	s.page = page

	ua := cfg.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: ua}); err != nil {
		s.logger.Warn("failed to set user agent", "error", err)
	}

	s.logger.Info("browser session ready",
		"headless", cfg.Headless,
		"stealth", cfg.Stealth,
	)
	return s, nil
}

// newLauncher builds the Chromium command line from the config.
func (s *RodSession) newLauncher() *launcher.Launcher {
	l := launcher.New().
		Set("disable-dev-shm-usage").
		Set("disable-blink-features", "AutomationControlled")

	if s.cfg.Headless {
		l = l.HeadlessNew(true)
	} else {
		l = l.Headless(false)
	}
	if s.cfg.DisableGPU {
		l = l.Set("disable-gpu")
	}
	if s.cfg.NoSandbox {
		l = l.NoSandbox(true)
	}
	if s.cfg.Bin != "" {
		l = l.Bin(s.cfg.Bin)
	}
	return l
}

// Open implements Session.
func (s *RodSession) Open(ctx context.Context, url string) (dom.Page, error) {
	if s.page == nil {
		return nil, types.ErrNoSession
	}

	start := time.Now()
	nav := s.page.Context(ctx).Timeout(s.cfg.NavigateTimeout)
	defer nav.CancelTimeout()

	if err := nav.Navigate(url); err != nil {
		return nil, &types.NavigateError{URL: url, Err: err}
	}
	if err := nav.WaitLoad(); err != nil {
		s.logger.Warn("page load wait failed, continuing", "url", url, "error", err)
	}

	finalURL := url
	if info, err := s.page.Info(); err == nil && info != nil && info.URL != "" {
		finalURL = info.URL
	}

	s.logger.Debug("page loaded", "url", url, "final_url", finalURL, "duration", time.Since(start))
	return &rodPage{page: s.page, url: finalURL}, nil
}

// Close implements Session.
func (s *RodSession) Close() error {
	var err error
	if s.page != nil {
		_ = s.page.Close()
		s.page = nil
	}
	if s.browser != nil {
		err = s.browser.Close()
		s.browser = nil
	}
	if s.launcher != nil {
		s.launcher.Cleanup()
		s.launcher = nil
	}
	return err
}

// Type implements Session.
func (s *RodSession) Type() string { return "rod" }

// rodPage adapts a live Rod tab to dom.Page.
type rodPage struct {
	page *rod.Page
	url  string
}

func (p *rodPage) URL() string { return p.url }

func (p *rodPage) HTML() (string, error) { return p.page.HTML() }

func (p *rodPage) WaitElement(ctx context.Context, sel dom.Selector, timeout time.Duration) (dom.Element, error) {
	if sel.IsZero() {
		return nil, dom.NotFound(sel)
	}

	wait := p.page.Context(ctx).Timeout(timeout)
	defer wait.CancelTimeout()

	var el *rod.Element
	var err error
	if sel.Kind == dom.XPath {
		el, err = wait.ElementX(sel.Expr)
	} else {
		el, err = wait.Element(sel.Expr)
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, dom.NotFound(sel)
		}
		return nil, err
	}

	// Detach from the wait deadline so later reads are not cancelled.
	return &rodElement{el: el.Context(ctx)}, nil
}

// rodElement adapts a Rod element to dom.Element.
type rodElement struct {
	el *rod.Element
}

func (e *rodElement) Text() (string, error) {
	text, err := e.el.Text()
	if err != nil {
		return "", err
	}
	return dom.NormalizeText(text), nil
}

func (e *rodElement) Attr(name string) (string, error) {
	// href/src properties are already absolute in the browser.
	lower := strings.ToLower(name)
	if lower == "href" || lower == "src" {
		prop, err := e.el.Property(lower)
		if err == nil && !prop.Nil() {
			if v := prop.Str(); v != "" {
				return v, nil
			}
		}
	}

	val, err := e.el.Attribute(name)
	if err != nil {
		return "", err
	}
	if val == nil {
		return "", fmt.Errorf("%w: %s", types.ErrNoAttribute, name)
	}
	return *val, nil
}

func (e *rodElement) Find(sel dom.Selector) (dom.Element, error) {
	if sel.IsZero() {
		return nil, dom.NotFound(sel)
	}

	var list rod.Elements
	var err error
	if sel.Kind == dom.XPath {
		list, err = e.el.ElementsX(sel.Expr)
	} else {
		list, err = e.el.Elements(sel.Expr)
	}
	if err != nil {
		return nil, err
	}
	if list.Empty() {
		return nil, dom.NotFound(sel)
	}
	return &rodElement{el: list.First()}, nil
}
