package paginate

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/Linghan9/epsteinFilePull/internal/browser"
	"github.com/Linghan9/epsteinFilePull/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeElement struct {
	text   string
	attrs  map[string]string
	clicks int
}

func (e *fakeElement) Text() string { return e.text }
func (e *fakeElement) Attribute(name string) (string, bool) {
	v, ok := e.attrs[name]
	return v, ok
}
func (e *fakeElement) Click() error       { e.clicks++; return nil }
func (e *fakeElement) ScriptClick() error { return nil }
func (e *fakeElement) Check() error       { return nil }
func (e *fakeElement) Visible() bool      { return true }

// navPage scripts the outcome of successive navigations.
type navPage struct {
	url      string
	html     string
	elements map[string][]browser.Element

	navResponses []*types.Response
	navTargets   []string
	waitIdles    int
	reloads      int
	onReload     func()
}

func (p *navPage) Element(selector string) (browser.Element, bool) {
	els := p.elements[selector]
	if len(els) == 0 {
		return nil, false
	}
	return els[0], true
}

func (p *navPage) Elements(selector string) []browser.Element { return p.elements[selector] }
func (p *navPage) Eval(js string) (string, error)             { return "", nil }
func (p *navPage) WaitIdle(timeout time.Duration)             { p.waitIdles++ }
func (p *navPage) HTML() string                               { return p.html }
func (p *navPage) URL() string                                { return p.url }
func (p *navPage) Cookies() (string, error)                   { return "", nil }
func (p *navPage) Frames() []browser.Frame                    { return nil }
func (p *navPage) Reload() error {
	p.reloads++
	if p.onReload != nil {
		p.onReload()
	}
	return nil
}

func (p *navPage) Navigate(ctx context.Context, url string) (*types.Response, error) {
	p.navTargets = append(p.navTargets, url)
	p.url = url
	if len(p.navResponses) == 0 {
		return &types.Response{Status: 200, URL: url}, nil
	}
	resp := p.navResponses[0]
	if len(p.navResponses) > 1 {
		p.navResponses = p.navResponses[1:]
	}
	return resp, nil
}

type fakeVerifier struct {
	ensures int
	result  bool
}

func (v *fakeVerifier) Ensure(page browser.Page, basename string) bool {
	v.ensures++
	return v.result
}

type fakeSnaps struct {
	events []string
}

func (s *fakeSnaps) WriteSnapshot(basename, event, html string) {
	s.events = append(s.events, event)
}

func newTestWalker(v *fakeVerifier, s *fakeSnaps) *Walker {
	return NewWalker(v, s, time.Second, testLogger)
}

func TestAdvanceFollowsNextAnchor(t *testing.T) {
	next := &fakeElement{attrs: map[string]string{"href": "?page=1"}}
	page := &navPage{
		url: "https://example.gov/catalog/data-set-1",
		elements: map[string][]browser.Element{
			nextPageSel: {next},
		},
	}
	snaps := &fakeSnaps{}

	ok := newTestWalker(&fakeVerifier{}, snaps).Advance(context.Background(), page, "https://example.gov/catalog/data-set-1", "ds", 1)
	if !ok {
		t.Fatal("expected advance to succeed")
	}
	if len(page.navTargets) != 1 || page.navTargets[0] != "https://example.gov/catalog/data-set-1?page=1" {
		t.Errorf("unexpected navigation targets: %v", page.navTargets)
	}
	if next.clicks != 0 {
		t.Error("href navigation must not fall back to clicking")
	}

	want := []string{"start_find_next_page_from_page_1", "page_2"}
	if len(snaps.events) != len(want) {
		t.Fatalf("expected snapshots %v, got %v", want, snaps.events)
	}
	for i := range want {
		if snaps.events[i] != want[i] {
			t.Errorf("snapshot %d: expected %q, got %q", i, want[i], snaps.events[i])
		}
	}
}

func TestAdvanceFindsNextByLinkText(t *testing.T) {
	next := &fakeElement{text: "Next ›", attrs: map[string]string{"href": "/catalog?page=3"}}
	page := &navPage{
		url: "https://example.gov/catalog",
		elements: map[string][]browser.Element{
			"a": {&fakeElement{text: "Home"}, next},
		},
	}

	ok := newTestWalker(&fakeVerifier{}, &fakeSnaps{}).Advance(context.Background(), page, "", "ds", 2)
	if !ok {
		t.Fatal("expected advance to succeed")
	}
	if len(page.navTargets) != 1 || page.navTargets[0] != "https://example.gov/catalog?page=3" {
		t.Errorf("unexpected navigation targets: %v", page.navTargets)
	}
}

func TestAdvanceNoControlNoFallbackEndsDataset(t *testing.T) {
	page := &navPage{url: "https://example.gov/catalog"}

	ok := newTestWalker(&fakeVerifier{}, &fakeSnaps{}).Advance(context.Background(), page, "", "ds", 4)
	if ok {
		t.Error("expected false when no next control exists and no fallback URL is given")
	}
	if len(page.navTargets) != 0 {
		t.Errorf("expected no navigation, got %v", page.navTargets)
	}
}

func TestAdvanceNoControlUsesPageNumberedURL(t *testing.T) {
	page := &navPage{url: "https://example.gov/catalog/data-set-1"}

	ok := newTestWalker(&fakeVerifier{}, &fakeSnaps{}).Advance(context.Background(), page, "https://example.gov/catalog/data-set-1", "ds", 1)
	if !ok {
		t.Fatal("expected page-numbered advance to succeed")
	}
	if len(page.navTargets) != 1 || page.navTargets[0] != "https://example.gov/catalog/data-set-1?page=2" {
		t.Errorf("unexpected navigation targets: %v", page.navTargets)
	}
}

func TestAdvanceBlockedThenRecovered(t *testing.T) {
	next := &fakeElement{attrs: map[string]string{"href": "?page=2"}}
	page := &navPage{
		url: "https://example.gov/catalog/data-set-1",
		elements: map[string][]browser.Element{
			nextPageSel: {next},
		},
		navResponses: []*types.Response{
			{Status: 403},
			{Status: 200},
		},
	}
	verifier := &fakeVerifier{result: true}
	snaps := &fakeSnaps{}

	ok := newTestWalker(verifier, snaps).Advance(context.Background(), page, "https://example.gov/catalog/data-set-1", "ds", 1)
	if !ok {
		t.Fatal("expected advance to recover after re-verification")
	}
	if verifier.ensures != 1 {
		t.Errorf("expected 1 re-verification, got %d", verifier.ensures)
	}
	if len(page.navTargets) != 2 {
		t.Errorf("expected block then retry, got navigations %v", page.navTargets)
	}

	found := false
	for _, event := range snaps.events {
		if event == "page_2_retry" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected page_2_retry snapshot, got %v", snaps.events)
	}
}

func TestAdvanceStillBlockedAfterRetryStops(t *testing.T) {
	next := &fakeElement{attrs: map[string]string{"href": "?page=2"}}
	page := &navPage{
		url: "https://example.gov/catalog/data-set-1",
		elements: map[string][]browser.Element{
			nextPageSel: {next},
		},
		navResponses: []*types.Response{{Status: 403}},
	}
	verifier := &fakeVerifier{result: true}

	ok := newTestWalker(verifier, &fakeSnaps{}).Advance(context.Background(), page, "https://example.gov/catalog/data-set-1", "ds", 1)
	if ok {
		t.Error("expected advance to stop when the block persists")
	}
	if len(page.navTargets) != 2 {
		t.Errorf("expected exactly one retry, got navigations %v", page.navTargets)
	}
}

func TestAdvanceClickOnlyBlockReloadsAfterVerify(t *testing.T) {
	// A JS-driven control with no href leaves no URL to re-request, so
	// the post-verification retry reloads the page in place.
	next := &fakeElement{text: "Next"}
	page := &navPage{
		url:  "https://example.gov/catalog/data-set-1",
		html: "<html>Access Denied</html>",
		elements: map[string][]browser.Element{
			"a": {next},
		},
	}
	page.onReload = func() { page.html = "<html>catalog</html>" }
	verifier := &fakeVerifier{result: true}

	ok := newTestWalker(verifier, &fakeSnaps{}).Advance(context.Background(), page, "", "ds", 1)
	if !ok {
		t.Fatal("expected advance to recover via reload")
	}
	if next.clicks != 1 {
		t.Errorf("expected 1 click, got %d", next.clicks)
	}
	if verifier.ensures != 1 {
		t.Errorf("expected 1 re-verification, got %d", verifier.ensures)
	}
	if page.reloads != 1 {
		t.Errorf("expected 1 reload, got %d", page.reloads)
	}
	if len(page.navTargets) != 0 {
		t.Errorf("click-only retry must not navigate, got %v", page.navTargets)
	}
}

func TestAdvanceDetectsBodyBlockMarkers(t *testing.T) {
	// Status looks fine but the body is a WAF interstitial.
	next := &fakeElement{attrs: map[string]string{"href": "?page=2"}}
	page := &navPage{
		url:  "https://example.gov/catalog/data-set-1",
		html: "<html>Access Denied. Reference errors.edgesuite.net</html>",
		elements: map[string][]browser.Element{
			nextPageSel: {next},
		},
	}
	verifier := &fakeVerifier{result: true}

	ok := newTestWalker(verifier, &fakeSnaps{}).Advance(context.Background(), page, "https://example.gov/catalog/data-set-1", "ds", 1)
	if ok {
		t.Error("expected advance to fail on persistent body block markers")
	}
	if verifier.ensures != 1 {
		t.Errorf("expected 1 re-verification, got %d", verifier.ensures)
	}
}
