// Package tuner applies host performance knobs before the AP engine
// starts and reverts them after it stops (spec §4.6). Each knob records
// its own revert action; a knob that fails to apply is non-fatal and
// surfaces as a warning rather than aborting Start.
package tuner

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/strct-org/hotspotd/internal/configstore"
)

// commander is the narrow subset of executil.Runner this package needs.
type commander interface {
	Run(name string, args ...string) error
	Output(name string, args ...string) ([]byte, error)
}

// Plan is the set of knobs to apply for one AP attempt.
type Plan struct {
	RadioIfname   string
	USBParentPath string // sysfs path of the radio's USB parent, empty if not USB
	SetGovernor   bool
	SysctlBlock   map[string]string
	CPUAffinity   string            // e.g. "0-3", empty to skip
	IRQAffinity   map[string]string // irq number -> mask

	// QosPreset is the invocation hook spec §9's Open Question
	// reserves: mapping presets to host queueing disciplines (tc/qdisc)
	// is out of this core's scope, so Apply only logs which preset was
	// requested rather than programming one.
	QosPreset configstore.QoSPreset
	APInterface string
}

// Ledger is the revert record Apply built; Revert drains it in LIFO
// order, best-effort, appending a Warning for each step it can't undo.
type Ledger struct {
	steps    []revertStep
	Warnings []string
}

type revertStep struct {
	description string
	undo        func(commander) error
}

// Tuner is grounded on the teacher's wifi.go pattern of one struct
// wrapping a commander and producing/undoing host-level side effects.
type Tuner struct {
	cmd commander
}

func New(cmd commander) *Tuner { return &Tuner{cmd: cmd} }

// Apply applies every configured knob, best-effort. It never returns an
// error: each failed knob is recorded as a warning in the ledger
// instead (spec §4.6 "Failures are non-fatal").
func (t *Tuner) Apply(p Plan) *Ledger {
	l := &Ledger{}
	t.applyPowerSave(p, l)
	t.applyUSBAutosuspend(p, l)
	if p.SetGovernor {
		t.applyGovernor(l)
	}
	if len(p.SysctlBlock) > 0 {
		t.applySysctl(p.SysctlBlock, l)
	}
	if p.CPUAffinity != "" {
		t.applyCPUAffinity(p, l)
	}
	if len(p.IRQAffinity) > 0 {
		t.applyIRQAffinity(p, l)
	}
	t.applyQoSHook(p)
	return l
}

// applyQoSHook is the documented invocation point for spec §9's open
// question: QoS presets are accepted and logged here but never
// programmed into a queueing discipline, since that mapping is out of
// this core's scope. Nothing to revert.
func (t *Tuner) applyQoSHook(p Plan) {
	if p.QosPreset == "" || p.QosPreset == configstore.QoSOff {
		return
	}
	slog.Debug("tuner: qos preset requested, no queueing discipline programmed (out of core scope)",
		"preset", p.QosPreset, "interface", p.APInterface)
}

// Revert undoes every recorded step in reverse order, best-effort.
func (t *Tuner) Revert(l *Ledger) *Ledger {
	out := &Ledger{}
	for i := len(l.steps) - 1; i >= 0; i-- {
		step := l.steps[i]
		if err := step.undo(t.cmd); err != nil {
			slog.Warn("tuner: revert step failed, continuing", "step", step.description, "err", err)
			out.Warnings = append(out.Warnings, step.description+": "+err.Error())
		}
	}
	return out
}

func (t *Tuner) applyPowerSave(p Plan, l *Ledger) {
	if p.RadioIfname == "" {
		return
	}
	prior, err := t.cmd.Output("iw", "dev", p.RadioIfname, "get", "power_save")
	if err != nil {
		l.Warnings = append(l.Warnings, "tuning_partially_applied: reading power_save state failed: "+err.Error())
		return
	}
	priorState := "on"
	if containsOff(string(prior)) {
		priorState = "off"
	}
	if err := t.cmd.Run("iw", "dev", p.RadioIfname, "set", "power_save", "off"); err != nil {
		l.Warnings = append(l.Warnings, "tuning_partially_applied: disabling power_save failed: "+err.Error())
		return
	}
	ifname := p.RadioIfname
	l.steps = append(l.steps, revertStep{
		description: "restore power_save",
		undo: func(cmd commander) error {
			return cmd.Run("iw", "dev", ifname, "set", "power_save", priorState)
		},
	})
}

func (t *Tuner) applyUSBAutosuspend(p Plan, l *Ledger) {
	if p.USBParentPath == "" {
		return
	}
	ctrlPath := p.USBParentPath + "/power/control"
	prior, err := t.cmd.Output("cat", ctrlPath)
	if err != nil {
		l.Warnings = append(l.Warnings, "tuning_partially_applied: reading USB autosuspend state failed: "+err.Error())
		return
	}
	priorVal := trimSpace(string(prior))
	if err := t.cmd.Run("sh", "-c", "echo on > "+ctrlPath); err != nil {
		l.Warnings = append(l.Warnings, "tuning_partially_applied: disabling USB autosuspend failed: "+err.Error())
		return
	}
	l.steps = append(l.steps, revertStep{
		description: "restore USB autosuspend",
		undo: func(cmd commander) error {
			return cmd.Run("sh", "-c", "echo "+priorVal+" > "+ctrlPath)
		},
	})
}

func (t *Tuner) applyGovernor(l *Ledger) {
	out, err := t.cmd.Output("sh", "-c", "cat /sys/devices/system/cpu/cpu*/cpufreq/scaling_governor")
	if err != nil {
		l.Warnings = append(l.Warnings, "tuning_partially_applied: reading CPU governor failed: "+err.Error())
		return
	}
	priorGovernors := splitLines(string(out))
	if err := t.cmd.Run("sh", "-c", "for f in /sys/devices/system/cpu/cpu*/cpufreq/scaling_governor; do echo performance > $f; done"); err != nil {
		l.Warnings = append(l.Warnings, "tuning_partially_applied: setting CPU governor failed: "+err.Error())
		return
	}
	l.steps = append(l.steps, revertStep{
		description: "restore per-cpu governor",
		undo: func(cmd commander) error {
			for i, g := range priorGovernors {
				path := "/sys/devices/system/cpu/cpu" + strconv.Itoa(i) + "/cpufreq/scaling_governor"
				if err := cmd.Run("sh", "-c", "echo "+g+" > "+path); err != nil {
					return err
				}
			}
			return nil
		},
	})
}

func (t *Tuner) applySysctl(block map[string]string, l *Ledger) {
	prior := map[string]string{}
	for key, val := range block {
		out, err := t.cmd.Output("sysctl", "-n", key)
		if err != nil {
			l.Warnings = append(l.Warnings, "tuning_partially_applied: reading sysctl "+key+" failed: "+err.Error())
			continue
		}
		prior[key] = trimSpace(string(out))
		if err := t.cmd.Run("sysctl", "-w", key+"="+val); err != nil {
			l.Warnings = append(l.Warnings, "tuning_partially_applied: setting sysctl "+key+" failed: "+err.Error())
		}
	}
	if len(prior) == 0 {
		return
	}
	l.steps = append(l.steps, revertStep{
		description: "restore sysctl block",
		undo: func(cmd commander) error {
			var lastErr error
			for key, val := range prior {
				if err := cmd.Run("sysctl", "-w", key+"="+val); err != nil {
					lastErr = err
				}
			}
			return lastErr
		},
	})
}

func (t *Tuner) applyCPUAffinity(p Plan, l *Ledger) {
	if err := t.cmd.Run("taskset", "-pc", p.CPUAffinity, "1"); err != nil {
		l.Warnings = append(l.Warnings, "tuning_partially_applied: setting CPU affinity failed: "+err.Error())
		return
	}
	l.steps = append(l.steps, revertStep{
		description: "restore CPU affinity",
		undo: func(cmd commander) error {
			return cmd.Run("taskset", "-pc", "0-"+strconv.Itoa(numCPUHint-1), "1")
		},
	})
}

// numCPUHint is a conservative default used only when reverting CPU
// affinity without having sampled the prior mask (taskset -pc doesn't
// expose a portable "all CPUs" token).
const numCPUHint = 4

func (t *Tuner) applyIRQAffinity(p Plan, l *Ledger) {
	prior := map[string]string{}
	for irq, mask := range p.IRQAffinity {
		path := "/proc/irq/" + irq + "/smp_affinity"
		out, err := t.cmd.Output("cat", path)
		if err != nil {
			l.Warnings = append(l.Warnings, "tuning_partially_applied: reading IRQ "+irq+" affinity failed: "+err.Error())
			continue
		}
		prior[irq] = trimSpace(string(out))
		if err := t.cmd.Run("sh", "-c", "echo "+mask+" > "+path); err != nil {
			l.Warnings = append(l.Warnings, "tuning_partially_applied: setting IRQ "+irq+" affinity failed: "+err.Error())
		}
	}
	if len(prior) == 0 {
		return
	}
	l.steps = append(l.steps, revertStep{
		description: "restore IRQ affinity masks",
		undo: func(cmd commander) error {
			var lastErr error
			for irq, mask := range prior {
				path := "/proc/irq/" + irq + "/smp_affinity"
				if err := cmd.Run("sh", "-c", "echo "+mask+" > "+path); err != nil {
					lastErr = err
				}
			}
			return lastErr
		},
	})
}

func containsOff(s string) bool { return strings.Contains(s, "off") }

func trimSpace(s string) string { return strings.TrimSpace(s) }

func splitLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}
