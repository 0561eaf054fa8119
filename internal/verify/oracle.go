// Package verify detects and clears the justice.gov age/bot gate.
package verify

import (
	"log/slog"
	"strings"

	"github.com/Linghan9/epsteinFilePull/internal/browser"
)

// Selectors for the known gate markup plus the incidental challenge UIs
// that show up in front of it.
const (
	ageCookieMarker   = "justiceGovAgeVerified"
	ageSuccessSel     = "#ageSuccess"
	ageBlockSel       = "#age-verify-block"
	ageYesButtonSel   = "#age-button-yes"
	ageButtonGroupSel = ".age-gate-buttons"
	robotControlSel   = "input[type=button][value*='robot'], button[value*='robot'], input[onclick*='reauth'], [onclick*='reauth']"
	catalogListSel    = ".item-list, .views-field, .item-list ul"
)

// Oracle decides whether the gate is currently satisfied on a page. It
// is a pure read; it never clicks anything.
type Oracle struct {
	logger *slog.Logger
}

// NewOracle creates an Oracle.
func NewOracle(logger *slog.Logger) *Oracle {
	return &Oracle{logger: logger.With("component", "verify_oracle")}
}

// IsVerified evaluates an ordered set of signals against the current
// page, first match wins. A failed read is treated as no signal and
// falls through to the next check. The outcome is derived fresh on
// every call: a navigation replaces the page, and the gate may have
// been cleared or re-armed with it.
func (o *Oracle) IsVerified(page browser.Page) bool {
	// 1. Session cookie carries the age-verified marker.
	if cookies, err := page.Cookies(); err == nil && strings.Contains(cookies, ageCookieMarker) {
		o.logger.Debug("verified by cookie")
		return true
	}

	// 2. Visible success marker.
	if el, ok := page.Element(ageSuccessSel); ok && el.Visible() {
		o.logger.Debug("verified by success marker")
		return true
	}

	// 3. A visible bot challenge is an explicit negative signal; do not
	// fall through to the weaker structural checks below.
	if el, ok := page.Element(robotControlSel); ok && el.Visible() {
		o.logger.Debug("not verified: bot challenge present")
		return false
	}

	// 4. No age block at all: trust catalog markup if it is there,
	// otherwise the page state is unknown and we stay conservative.
	block, ok := page.Element(ageBlockSel)
	if !ok {
		if _, ok := page.Element(catalogListSel); ok {
			o.logger.Debug("verified by catalog markup")
			return true
		}
		return false
	}

	// 5. Age block present but hidden means the gate was dismissed.
	if !block.Visible() {
		o.logger.Debug("verified by hidden age block")
		return true
	}

	return false
}
