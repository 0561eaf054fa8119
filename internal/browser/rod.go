package browser

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/Linghan9/epsteinFilePull/internal/config"
	"github.com/Linghan9/epsteinFilePull/internal/types"
)

// Session owns one Chromium browser for the duration of one dataset
// crawl. It is never shared across datasets; the crawler closes it on
// every exit path.
type Session struct {
	cfg         *config.BrowserConfig
	browser     *rod.Browser
	page        *rodPage
	client      *http.Client
	maxBodySize int64
	logger      *slog.Logger
}

// SessionOption customizes a Session at construction.
type SessionOption func(*Session)

// WithMaxBodySize bounds how many response bytes an in-session Get will
// read. Zero means unbounded.
func WithMaxBodySize(n int64) SessionOption {
	return func(s *Session) { s.maxBodySize = n }
}

// NewSession launches Chromium and opens a blank page.
func NewSession(cfg *config.BrowserConfig, logger *slog.Logger, opts ...SessionOption) (*Session, error) {
	l := launcher.New().
		Headless(cfg.Headless).
		Set("disable-gpu").
		Set("disable-dev-shm-usage").
		Set("no-sandbox").
		Set("disable-setuid-sandbox").
		Set("disable-blink-features", "AutomationControlled")
	if cfg.UserDataDir != "" {
		l = l.UserDataDir(cfg.UserDataDir)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	s := &Session{
		cfg:     cfg,
		browser: b,
		client:  newRequestClient(cfg.RequestTimeout),
		logger:  logger.With("component", "browser_session"),
	}
	for _, opt := range opts {
		opt(s)
	}

	page, err := s.newPage()
	if err != nil {
		_ = b.Close()
		return nil, err
	}
	s.page = page

	s.logger.Info("browser session ready",
		"headless", cfg.Headless,
		"stealth", cfg.Stealth,
	)
	return s, nil
}

// newPage creates a page, stealth-patched when configured.
func (s *Session) newPage() (*rodPage, error) {
	var page *rod.Page
	var err error
	if s.cfg.Stealth {
		page, err = stealth.Page(s.browser)
	} else {
		page, err = s.browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	}
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}
	return &rodPage{page: page, cfg: s.cfg, logger: s.logger}, nil
}

// Page returns the session's current page.
func (s *Session) Page() Page {
	return s.page
}

// Recycle tears down the current page and recreates it with the cookies
// carried over, then reloads the URL it was on. Used as periodic
// housekeeping on long crawls to bound browser memory growth. Safe to
// skip; failure leaves the old page in place.
func (s *Session) Recycle(ctx context.Context) error {
	currentURL := s.page.URL()

	cookies, err := s.browser.GetCookies()
	if err != nil {
		return fmt.Errorf("read cookies: %w", err)
	}

	fresh, err := s.newPage()
	if err != nil {
		return err
	}

	params := make([]*proto.NetworkCookieParam, 0, len(cookies))
	for _, c := range cookies {
		params = append(params, &proto.NetworkCookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
		})
	}
	if err := fresh.page.SetCookies(params); err != nil {
		_ = fresh.page.Close()
		return fmt.Errorf("restore cookies: %w", err)
	}

	old := s.page
	s.page = fresh
	_ = old.page.Close()

	if currentURL != "" && currentURL != "about:blank" {
		if _, err := s.page.Navigate(ctx, currentURL); err != nil {
			return fmt.Errorf("reload after recycle: %w", err)
		}
	}

	s.logger.Debug("session recycled", "url", currentURL, "cookies", len(params))
	return nil
}

// Close shuts down the browser.
func (s *Session) Close() error {
	if s.browser != nil {
		return s.browser.Close()
	}
	return nil
}

// --- rod-backed Page ---

type rodPage struct {
	page   *rod.Page
	cfg    *config.BrowserConfig
	logger *slog.Logger
}

func (p *rodPage) URL() string {
	info, err := p.page.Info()
	if err != nil || info == nil {
		return ""
	}
	return info.URL
}

func (p *rodPage) Cookies() (string, error) {
	result, err := p.page.Eval(`() => document.cookie`)
	if err != nil {
		return "", err
	}
	return result.Value.Str(), nil
}

func (p *rodPage) HTML() string {
	html, err := p.page.HTML()
	if err != nil {
		return ""
	}
	return html
}

func (p *rodPage) Eval(js string) (string, error) {
	result, err := p.page.Eval(js)
	if err != nil {
		return "", err
	}
	return result.Value.String(), nil
}

func (p *rodPage) Element(selector string) (Element, bool) {
	has, el, err := p.page.Has(selector)
	if err != nil || !has {
		return nil, false
	}
	return &rodElement{el: el}, true
}

func (p *rodPage) Elements(selector string) []Element {
	els, err := p.page.Elements(selector)
	if err != nil {
		return nil
	}
	out := make([]Element, 0, len(els))
	for _, el := range els {
		out = append(out, &rodElement{el: el})
	}
	return out
}

// Frames enumerates nested iframes as queryable documents. Frames that
// cannot be attached are skipped.
func (p *rodPage) Frames() []Frame {
	iframes, err := p.page.Elements("iframe")
	if err != nil {
		return nil
	}
	out := make([]Frame, 0, len(iframes))
	for _, el := range iframes {
		frame, err := el.Frame()
		if err != nil {
			continue
		}
		out = append(out, &rodPage{page: frame, cfg: p.cfg, logger: p.logger})
	}
	return out
}

func (p *rodPage) WaitIdle(timeout time.Duration) {
	err := p.page.Timeout(timeout).WaitIdle(timeout)
	if err != nil {
		// Some pages never reach network idle; proceed anyway.
		p.logger.Debug("network idle timeout, continuing", "error", err)
	}
}

// Navigate loads the URL directly and reports the document response
// status, which click-based navigation cannot observe.
func (p *rodPage) Navigate(ctx context.Context, url string) (*types.Response, error) {
	start := time.Now()
	page := p.page.Context(ctx).Timeout(p.cfg.NavTimeout)

	var doc *proto.NetworkResponseReceived
	wait := page.EachEvent(func(e *proto.NetworkResponseReceived) bool {
		if e.Type == proto.NetworkResourceTypeDocument {
			doc = e
			return true
		}
		return false
	})

	if err := page.Navigate(url); err != nil {
		return nil, &types.NavigationError{URL: url, Err: err}
	}
	wait()
	p.WaitIdle(p.cfg.IdleTimeout)

	resp := &types.Response{
		Status:   200,
		Headers:  make(http.Header),
		URL:      url,
		FinalURL: p.URL(),
		Duration: time.Since(start),
	}
	if doc != nil {
		resp.Status = doc.Response.Status
		for k, v := range doc.Response.Headers {
			resp.Headers.Set(k, v.Str())
		}
	}
	return resp, nil
}

func (p *rodPage) Reload() error {
	if err := p.page.Reload(); err != nil {
		return err
	}
	p.WaitIdle(p.cfg.IdleTimeout)
	return nil
}

// --- rod-backed Element ---

type rodElement struct {
	el *rod.Element
}

func (e *rodElement) Text() string {
	text, err := e.el.Text()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(text)
}

func (e *rodElement) Attribute(name string) (string, bool) {
	val, err := e.el.Attribute(name)
	if err != nil || val == nil {
		return "", false
	}
	return *val, true
}

func (e *rodElement) Click() error {
	return e.el.Click(proto.InputMouseButtonLeft, 1)
}

func (e *rodElement) ScriptClick() error {
	_, err := e.el.Eval(`() => this.click()`)
	return err
}

func (e *rodElement) Check() error {
	checked, err := e.el.Property("checked")
	if err == nil && checked.Bool() {
		return nil
	}
	return e.Click()
}

func (e *rodElement) Visible() bool {
	visible, err := e.el.Visible()
	return err == nil && visible
}
