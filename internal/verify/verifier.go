package verify

import (
	"log/slog"
	"time"

	"github.com/Linghan9/epsteinFilePull/internal/browser"
)

// Verifier drives the oracle and the gate-clearing probes in a bounded
// retry loop. It never returns an error: callers get a single boolean
// they must check before scraping or fetching.
type Verifier struct {
	oracle      *Oracle
	probes      *Probes
	maxAttempts int
	pause       time.Duration
	idleTimeout time.Duration
	snaps       Snapshotter
	sleep       func(time.Duration)
	logger      *slog.Logger
}

// NewVerifier creates a Verifier. pause is the base inter-round pause;
// round N waits pause*N before the next round.
func NewVerifier(oracle *Oracle, probes *Probes, maxAttempts int, pause, idleTimeout time.Duration, snaps Snapshotter, logger *slog.Logger) *Verifier {
	return &Verifier{
		oracle:      oracle,
		probes:      probes,
		maxAttempts: maxAttempts,
		pause:       pause,
		idleTimeout: idleTimeout,
		snaps:       snaps,
		sleep:       time.Sleep,
		logger:      logger.With("component", "verifier"),
	}
}

// Ensure returns true once the oracle reports the gate satisfied, either
// immediately or within maxAttempts rounds of probing. Each round runs
// the pattern-match probe, the explicit robot control and reauth hook,
// and the age-button probe; every action is best-effort and an attempt
// never aborts the round.
func (v *Verifier) Ensure(page browser.Page, basename string) bool {
	if v.oracle.IsVerified(page) {
		v.logger.Debug("page already verified")
		return true
	}

	for attempt := 1; attempt <= v.maxAttempts; attempt++ {
		v.logger.Debug("verification attempt", "attempt", attempt, "max", v.maxAttempts)

		if v.probes.ClickVerificationControls(page, basename) {
			v.snaps.WriteSnapshot(basename, "verify_clicked", page.HTML())
		}
		if v.probes.ClickRobotControl(page, basename) {
			page.WaitIdle(v.idleTimeout)
		}
		if v.probes.TryReauth(page) {
			v.snaps.WriteSnapshot(basename, "reauth_called", page.HTML())
		}
		if v.probes.ClickAgeButtons(page, basename) {
			v.snaps.WriteSnapshot(basename, "age_clicked", page.HTML())
		}

		page.WaitIdle(v.idleTimeout)

		if v.oracle.IsVerified(page) {
			v.logger.Info("page verification succeeded", "attempt", attempt)
			return true
		}
		if attempt < v.maxAttempts {
			v.sleep(v.pause * time.Duration(attempt))
		}
	}

	v.logger.Warn("page verification failed", "attempts", v.maxAttempts)
	return false
}
