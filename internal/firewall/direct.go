package firewall

import (
	"fmt"

	"github.com/strct-org/hotspotd/internal/errs"
)

// ruleComment tags every rule this package inserts so Revert removes
// only what Apply added — never rules a human or another tool manages.
func ruleComment(daemonID string) string {
	return "hotspotd-" + daemonID
}

// directReconciler is Backend B: insert iptables rules for forwarding
// AP→uplink and reply, and (if masquerade) a NAT postrouting rule
// (spec §4.5).
type directReconciler struct {
	cmd commander
}

func (r *directReconciler) Apply(p Profile) (RevertToken, error) {
	tok := RevertToken{backend: "direct"}
	comment := ruleComment(p.DaemonID)

	if p.Forward && p.UplinkIfname != "" {
		fwdArgs := []string{"-A", "FORWARD", "-i", p.APInterface, "-o", p.UplinkIfname,
			"-m", "comment", "--comment", comment, "-j", "ACCEPT"}
		if alreadyApplied(r.cmd, fwdArgs) {
			// Idempotent: this exact rule already exists.
		} else if err := r.cmd.Run("iptables", fwdArgs...); err != nil {
			return tok, errs.E(opApply, errs.KindFirewall, errs.CodeFirewallApplyFailed, err, "inserting forward rule failed")
		} else {
			tok.steps = append(tok.steps, deleteRuleStep("iptables", fwdArgs))
		}

		replyArgs := []string{"-A", "FORWARD", "-i", p.UplinkIfname, "-o", p.APInterface,
			"-m", "state", "--state", "RELATED,ESTABLISHED",
			"-m", "comment", "--comment", comment, "-j", "ACCEPT"}
		if !alreadyApplied(r.cmd, replyArgs) {
			if err := r.cmd.Run("iptables", replyArgs...); err != nil {
				return tok, errs.E(opApply, errs.KindFirewall, errs.CodeFirewallApplyFailed, err, "inserting reply rule failed")
			}
			tok.steps = append(tok.steps, deleteRuleStep("iptables", replyArgs))
		}
	}

	if p.Masquerade && p.UplinkIfname != "" {
		natArgs := []string{"-t", "nat", "-A", "POSTROUTING", "-o", p.UplinkIfname,
			"-m", "comment", "--comment", comment, "-j", "MASQUERADE"}
		if !alreadyApplied(r.cmd, natArgs) {
			if err := r.cmd.Run("iptables", natArgs...); err != nil {
				return tok, errs.E(opApply, errs.KindFirewall, errs.CodeFirewallApplyFailed, err, "inserting NAT rule failed")
			}
			tok.steps = append(tok.steps, deleteRuleStep("iptables", natArgs))
		}
	}

	return tok, nil
}

func (r *directReconciler) Revert(tok RevertToken) error {
	var failed []string
	for i := len(tok.steps) - 1; i >= 0; i-- {
		step := tok.steps[i]
		if err := step.undo(r.cmd); err != nil {
			logWarning(step.description, err)
			failed = append(failed, step.description)
		}
	}
	if len(failed) > 0 {
		return errs.E(opRevert, errs.KindFirewall, errs.CodeFirewallRevertIncomplete, fmt.Errorf("steps failed: %v", failed), "some revert steps failed")
	}
	return nil
}

// deleteRuleStep builds the -D counterpart of an -A insert so Revert
// removes exactly the rule Apply added.
func deleteRuleStep(name string, insertArgs []string) revertStep {
	deleteArgs := make([]string, len(insertArgs))
	copy(deleteArgs, insertArgs)
	for i, a := range deleteArgs {
		if a == "-A" {
			deleteArgs[i] = "-D"
		}
	}
	return revertStep{
		description: fmt.Sprintf("%s %v", name, deleteArgs),
		undo: func(cmd commander) error {
			return cmd.Run(name, deleteArgs...)
		},
	}
}

// alreadyApplied checks for an existing rule before inserting, giving
// Apply its idempotency guarantee (spec §4.5 "re-applying an
// equivalent profile is a no-op").
func alreadyApplied(cmd commander, insertArgs []string) bool {
	checkArgs := make([]string, len(insertArgs))
	copy(checkArgs, insertArgs)
	for i, a := range checkArgs {
		if a == "-A" {
			checkArgs[i] = "-C"
		}
	}
	return cmd.Run("iptables", checkArgs...) == nil
}
