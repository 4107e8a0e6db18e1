package firewall

import (
	"fmt"
	"strings"

	"github.com/strct-org/hotspotd/internal/errs"
)

const firewallZone = "hotspotd-ap"

// zoneReconciler is Backend A: move the AP interface into firewall_zone
// and ensure masquerade + forward on the uplink zone, remembering each
// interface's prior zone for revert (spec §4.5).
type zoneReconciler struct {
	cmd commander
}

func (r *zoneReconciler) Apply(p Profile) (RevertToken, error) {
	tok := RevertToken{backend: "zone"}

	priorZone, err := r.currentZone(p.APInterface)
	if err != nil {
		return tok, errs.E(opApply, errs.KindFirewall, errs.CodeFirewallApplyFailed, err, "reading current zone failed")
	}
	if priorZone == firewallZone {
		// Idempotent: already reconciled for this interface.
		return tok, nil
	}

	if err := r.cmd.Run("firewall-cmd", "--zone="+firewallZone, "--change-interface="+p.APInterface, "--permanent"); err != nil {
		return tok, errs.E(opApply, errs.KindFirewall, errs.CodeFirewallApplyFailed, err, "moving AP interface to zone failed")
	}
	ifname := p.APInterface
	tok.steps = append(tok.steps, revertStep{
		description: "restore interface zone",
		undo: func(cmd commander) error {
			if priorZone == "" {
				return cmd.Run("firewall-cmd", "--zone="+firewallZone, "--remove-interface="+ifname, "--permanent")
			}
			return cmd.Run("firewall-cmd", "--zone="+priorZone, "--change-interface="+ifname, "--permanent")
		},
	})

	if p.Masquerade {
		if err := r.cmd.Run("firewall-cmd", "--zone="+firewallZone, "--add-masquerade", "--permanent"); err != nil {
			return tok, errs.E(opApply, errs.KindFirewall, errs.CodeFirewallApplyFailed, err, "enabling masquerade failed")
		}
		tok.steps = append(tok.steps, revertStep{
			description: "disable masquerade",
			undo: func(cmd commander) error {
				return cmd.Run("firewall-cmd", "--zone="+firewallZone, "--remove-masquerade", "--permanent")
			},
		})
	}

	if p.Forward && p.UplinkIfname != "" {
		rule := fmt.Sprintf("rule family=ipv4 source address=%s forward-port to-addr accept", p.LANCIDR)
		if err := r.cmd.Run("firewall-cmd", "--zone="+firewallZone, "--add-rich-rule="+rule, "--permanent"); err != nil {
			return tok, errs.E(opApply, errs.KindFirewall, errs.CodeFirewallApplyFailed, err, "adding forward rule failed")
		}
		tok.steps = append(tok.steps, revertStep{
			description: "remove forward rule",
			undo: func(cmd commander) error {
				return cmd.Run("firewall-cmd", "--zone="+firewallZone, "--remove-rich-rule="+rule, "--permanent")
			},
		})
	}

	if err := r.cmd.Run("firewall-cmd", "--reload"); err != nil {
		return tok, errs.E(opApply, errs.KindFirewall, errs.CodeFirewallApplyFailed, err, "reloading firewalld failed")
	}

	return tok, nil
}

func (r *zoneReconciler) Revert(tok RevertToken) error {
	var failed []string
	for i := len(tok.steps) - 1; i >= 0; i-- {
		step := tok.steps[i]
		if err := step.undo(r.cmd); err != nil {
			logWarning(step.description, err)
			failed = append(failed, step.description)
		}
	}
	_ = r.cmd.Run("firewall-cmd", "--reload")
	if len(failed) > 0 {
		return errs.E(opRevert, errs.KindFirewall, errs.CodeFirewallRevertIncomplete, fmt.Errorf("steps failed: %v", failed), "some revert steps failed")
	}
	return nil
}

// currentZone returns the zone firewalld currently reports for ifname,
// or "" if none.
func (r *zoneReconciler) currentZone(ifname string) (string, error) {
	out, err := r.cmd.Output("firewall-cmd", "--get-zone-of-interface="+ifname)
	if err != nil {
		// firewall-cmd exits non-zero when the interface has no zone yet.
		return "", nil
	}
	return strings.TrimSpace(string(out)), nil
}
