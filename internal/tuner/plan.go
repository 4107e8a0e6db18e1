package tuner

import (
	"strings"

	"github.com/strct-org/hotspotd/internal/configstore"
	"github.com/strct-org/hotspotd/internal/inventory"
)

// PlanFromConfig is the production TunerPlanFactory: it translates the
// persisted config's tuning toggles (spec §4.6) into a Plan for the
// adapter the current attempt selected. Only the toggles wired here
// have a concrete knob; USBParentPath is left empty since nothing in
// inventory resolves a USB adapter's sysfs parent path yet (see
// DESIGN.md).
func PlanFromConfig(cfg configstore.Config, adapter inventory.Adapter) Plan {
	p := Plan{}

	if cfg.WifiPowerSaveDisable {
		p.RadioIfname = adapter.Ifname
	}
	p.SetGovernor = cfg.CPUGovernorPerformance
	if cfg.SysctlTuning {
		p.SysctlBlock = sysctlBlockFor(cfg)
	}
	p.CPUAffinity = cfg.CPUAffinityMask
	if cfg.IRQAffinityMask != "" {
		p.IRQAffinity = irqAffinityFor(cfg.IRQAffinityMask)
	}
	p.QosPreset = cfg.QosPreset
	p.APInterface = adapter.Ifname
	return p
}

// sysctlBlockFor expands the config's coarse tuning toggles into the
// concrete sysctl keys they stand for.
func sysctlBlockFor(cfg configstore.Config) map[string]string {
	block := map[string]string{}
	if cfg.TCPLowLatency {
		block["net.ipv4.tcp_low_latency"] = "1"
		block["net.ipv4.tcp_fastopen"] = "3"
	}
	if cfg.MemoryTuning {
		block["vm.swappiness"] = "10"
		block["net.core.rmem_max"] = "16777216"
		block["net.core.wmem_max"] = "16777216"
	}
	if cfg.InterruptCoalescing {
		block["net.core.netdev_budget"] = "600"
	}
	return block
}

// irqAffinityFor parses "irq:mask,irq:mask" into the map applyIRQAffinity
// expects.
func irqAffinityFor(mask string) map[string]string {
	out := map[string]string{}
	for _, pair := range strings.Split(mask, ",") {
		irq, m, ok := strings.Cut(strings.TrimSpace(pair), ":")
		if !ok || irq == "" || m == "" {
			continue
		}
		out[irq] = m
	}
	return out
}
