package verify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/Linghan9/epsteinFilePull/internal/browser"
	"github.com/Linghan9/epsteinFilePull/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeElement struct {
	text      string
	attrs     map[string]string
	visible   bool
	clickErr  error
	scriptErr error
	onClick   func()

	clicks       int
	scriptClicks int
	checks       int
}

func (e *fakeElement) Text() string { return e.text }

func (e *fakeElement) Attribute(name string) (string, bool) {
	v, ok := e.attrs[name]
	return v, ok
}

func (e *fakeElement) Click() error {
	e.clicks++
	if e.clickErr == nil && e.onClick != nil {
		e.onClick()
	}
	return e.clickErr
}

func (e *fakeElement) ScriptClick() error {
	e.scriptClicks++
	return e.scriptErr
}

func (e *fakeElement) Check() error {
	e.checks++
	return nil
}

func (e *fakeElement) Visible() bool { return e.visible }

// fakeFrame answers selector queries from a literal selector-to-elements
// map, the way the production selectors are used.
type fakeFrame struct {
	elements   map[string][]browser.Element
	evalResult string
	html       string

	waitIdles int
	evals     int
}

func (f *fakeFrame) Element(selector string) (browser.Element, bool) {
	els := f.elements[selector]
	if len(els) == 0 {
		return nil, false
	}
	return els[0], true
}

func (f *fakeFrame) Elements(selector string) []browser.Element {
	return f.elements[selector]
}

func (f *fakeFrame) Eval(js string) (string, error) {
	f.evals++
	if f.evalResult == "" {
		return "false", nil
	}
	return f.evalResult, nil
}

func (f *fakeFrame) WaitIdle(timeout time.Duration) { f.waitIdles++ }

func (f *fakeFrame) HTML() string { return f.html }

type fakePage struct {
	fakeFrame
	url        string
	cookies    string
	cookiesErr error
	frames     []browser.Frame

	cookieReads int
}

func (p *fakePage) URL() string { return p.url }

func (p *fakePage) Cookies() (string, error) {
	p.cookieReads++
	return p.cookies, p.cookiesErr
}

func (p *fakePage) Frames() []browser.Frame { return p.frames }

func (p *fakePage) Navigate(ctx context.Context, url string) (*types.Response, error) {
	p.url = url
	return &types.Response{Status: 200, URL: url}, nil
}

func (p *fakePage) Reload() error { return nil }

type fakeSnaps struct {
	events []string
}

func (s *fakeSnaps) WriteSnapshot(basename, event, html string) {
	s.events = append(s.events, event)
}

var errClickBlocked = errors.New("click intercepted")
