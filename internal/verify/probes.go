package verify

import (
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/Linghan9/epsteinFilePull/internal/browser"
)

// keywordPattern matches text/attributes of controls that look like
// verification intent: robot checks, consent wording, and age prompts.
var keywordPattern = regexp.MustCompile(`(?i)\b(i am not a robot|i'm not a robot|not a robot|i am not a bot|i'm not a bot|verify|confirm|continue|agree|accept|proceed|over 18|18\+|age|cookie|submit)\b`)

// clickableSel covers every control worth probing on a challenge page.
const clickableSel = "button, a, input[type=button], input[type=submit], input[type=checkbox], label"

// candidateAttrs are concatenated with the element text before pattern
// matching; challenge buttons often carry their intent in attributes
// rather than visible text.
var candidateAttrs = []string{"aria-label", "title", "alt", "value", "id", "name"}

// Snapshotter receives debug snapshots at click transitions.
type Snapshotter interface {
	WriteSnapshot(basename, event, html string)
}

// Probes are the two independent gate-clearing actions. Each returns
// whether it clicked something; all failures inside are swallowed into
// "did not click".
type Probes struct {
	idleTimeout time.Duration
	snaps       Snapshotter
	logger      *slog.Logger
}

// NewProbes creates the gate-clearing probes.
func NewProbes(idleTimeout time.Duration, snaps Snapshotter, logger *slog.Logger) *Probes {
	return &Probes{
		idleTimeout: idleTimeout,
		snaps:       snaps,
		logger:      logger.With("component", "verify_probes"),
	}
}

// ClickVerificationControls scans clickable controls in the main
// document, then in nested frames only when the main document yields
// nothing, and clicks the first one whose text or attributes match the
// verification keyword pattern. Checkboxes are checked rather than
// clicked, with a plain click as fallback.
func (p *Probes) ClickVerificationControls(page browser.Page, basename string) bool {
	candidates := page.Elements(clickableSel)
	p.logger.Debug("scanning verification controls", "main_frame_candidates", len(candidates))
	for _, el := range candidates {
		if p.matchAndClick(el, page, basename) {
			return true
		}
	}

	for _, frame := range page.Frames() {
		cands := frame.Elements(clickableSel)
		p.logger.Debug("scanning nested frame", "candidates", len(cands))
		for _, el := range cands {
			if p.matchAndClick(el, frame, basename) {
				return true
			}
		}
	}
	return false
}

// matchAndClick clicks el if its combined text and attributes match the
// keyword pattern. The containing frame is waited on afterwards so the
// click's effects (cookie set, reload) land before the next check.
func (p *Probes) matchAndClick(el browser.Element, frame browser.Frame, basename string) bool {
	parts := []string{el.Text()}
	for _, attr := range candidateAttrs {
		if v, ok := el.Attribute(attr); ok {
			parts = append(parts, v)
		}
	}
	if !keywordPattern.MatchString(strings.Join(parts, " ")) {
		return false
	}

	var err error
	if t, ok := el.Attribute("type"); ok && strings.EqualFold(t, "checkbox") {
		if err = el.Check(); err != nil {
			err = el.Click()
		}
	} else {
		err = el.Click()
	}
	if err != nil {
		p.logger.Debug("verification control click failed", "error", err)
		return false
	}

	frame.WaitIdle(p.idleTimeout)
	p.snaps.WriteSnapshot(basename, "bot_click", frame.HTML())
	p.logger.Debug("clicked verification control")
	return true
}

// ClickAgeButtons targets the one known site-specific age gate: the
// explicit yes-button id, then yes-labelled buttons in the gate's button
// group, then the yes-button id inside each nested frame.
func (p *Probes) ClickAgeButtons(page browser.Page, basename string) bool {
	if el, ok := page.Element(ageYesButtonSel); ok {
		if p.clickWithFallback(el, page) {
			p.logger.Debug("clicked age yes button")
			return true
		}
	}

	if _, ok := page.Element(ageButtonGroupSel); ok {
		for _, b := range page.Elements(ageButtonGroupSel + " button") {
			text := strings.ToLower(b.Text())
			if text == "yes" || text == "i am 18 or older" || text == "i am over 18" || strings.Contains(text, "yes") {
				if p.clickWithFallback(b, page) {
					p.logger.Debug("clicked age gate button", "text", text)
					return true
				}
			}
		}
	}

	for _, frame := range page.Frames() {
		if el, ok := frame.Element(ageYesButtonSel); ok {
			if p.clickWithFallback(el, frame) {
				p.logger.Debug("clicked age yes button in frame")
				return true
			}
		}
	}
	return false
}

// ClickRobotControl clicks an explicit bot-challenge control if one is
// present.
func (p *Probes) ClickRobotControl(page browser.Page, basename string) bool {
	el, ok := page.Element(robotControlSel)
	if !ok {
		return false
	}
	if !p.clickWithFallback(el, page) {
		return false
	}
	p.snaps.WriteSnapshot(basename, "robot_click", page.HTML())
	return true
}

// TryReauth invokes the page's reauthentication hook directly when a
// function by the known name exists in the script environment. Last
// resort bypass for challenge pages whose controls we cannot find.
func (p *Probes) TryReauth(page browser.Page) bool {
	result, err := page.Eval(`() => { if (typeof reauth === 'function') { try { reauth(); return true; } catch (e) { return 'error'; } } return false }`)
	if err != nil || result == "false" || result == "" {
		return false
	}
	page.WaitIdle(p.idleTimeout)
	p.logger.Debug("invoked reauth hook", "result", result)
	return true
}

// clickWithFallback performs a native click, falling back to a scripted
// click when the native one throws.
func (p *Probes) clickWithFallback(el browser.Element, frame browser.Frame) bool {
	if err := el.Click(); err != nil {
		if err := el.ScriptClick(); err != nil {
			p.logger.Debug("click and script click failed", "error", err)
			return false
		}
	}
	frame.WaitIdle(p.idleTimeout)
	return true
}
