// Package firewall reconciles the host's NAT/forwarding state with one
// AP attempt (spec §4.5). Two interchangeable backends exist — a
// zone-based manager and a direct-rules fallback — chosen by detecting
// whether a zone-based manager is active at the moment of Start
// (mirrors the teacher's wifi.go router/extender duality: one feature,
// two concrete code paths behind a uniform contract).
package firewall

import (
	"log/slog"

	"github.com/strct-org/hotspotd/internal/errs"
)

// Profile is the uniform input to Apply (spec §4.5).
type Profile struct {
	APInterface  string
	LANCIDR      string
	UplinkIfname string // optional
	Masquerade   bool
	Forward      bool
	Zone         string // optional, zone-backend only

	// DaemonID tags every artifact this profile creates so repair() can
	// find and remove only what this daemon instance added.
	DaemonID string
}

// RevertToken is opaque to callers; it carries whatever the backend
// needs to best-effort undo what Apply did.
type RevertToken struct {
	backend string
	steps   []revertStep
}

type revertStep struct {
	description string
	undo        func(commander) error
}

// commander is the narrow subset of executil.Runner this package
// needs (see executil.go's documented pattern).
type commander interface {
	Run(name string, args ...string) error
	Output(name string, args ...string) ([]byte, error)
}

// Reconciler is the contract spec §4.5 requires regardless of backend.
type Reconciler interface {
	Apply(profile Profile) (RevertToken, error)
	Revert(token RevertToken) error
}

// Detector reports whether a zone-based firewall manager is active on
// this host (e.g. firewalld). Backed by internal/platform/probes in
// production.
type Detector func() bool

// New picks Backend A (zone-based) when detect reports a zone manager
// active, Backend B (direct rules) otherwise.
func New(cmd commander, detect Detector) Reconciler {
	if detect != nil && detect() {
		return &zoneReconciler{cmd: cmd}
	}
	return &directReconciler{cmd: cmd}
}

const opApply errs.Op = "firewall.Apply"
const opRevert errs.Op = "firewall.Revert"

func logWarning(step string, err error) {
	slog.Warn("firewall: revert step failed, continuing", "step", step, "err", err)
}
