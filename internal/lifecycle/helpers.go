package lifecycle

import (
	"context"
	"strings"
	"time"

	"github.com/strct-org/hotspotd/internal/configstore"
	"github.com/strct-org/hotspotd/internal/engine"
	"github.com/strct-org/hotspotd/internal/errs"
	"github.com/strct-org/hotspotd/internal/firewall"
	"github.com/strct-org/hotspotd/internal/inventory"
	"github.com/strct-org/hotspotd/internal/readiness"
	"github.com/strct-org/hotspotd/internal/telemetry"
)

// bandPrefToInvBand maps the persisted config's band preference onto
// inventory's adapter-capability band enum.
func bandPrefToInvBand(b configstore.BandPreference) inventory.Band {
	switch b {
	case configstore.Band24GHz:
		return inventory.Band24
	case configstore.Band5GHz:
		return inventory.Band5
	case configstore.Band6GHz:
		return inventory.Band6
	default:
		return inventory.BandRec
	}
}

// resolveBand picks the effective band an adapter will actually run at
// when the preference is "recommended": 6 > 5 > 2.4 GHz (spec §4.1).
func resolveBand(pref configstore.BandPreference, a inventory.Adapter) configstore.BandPreference {
	if pref != configstore.BandRecommended {
		return pref
	}
	switch {
	case a.Supports6GHz:
		return configstore.Band6GHz
	case a.Supports5GHz:
		return configstore.Band5GHz
	default:
		return configstore.Band24GHz
	}
}

// buildPlan constructs the initial Effective Plan for a start attempt,
// before any fallback-chain mutation (spec §4.7 step 5).
func buildPlan(cfg configstore.Config, adapter inventory.Adapter, band configstore.BandPreference, security configstore.APSecurity, daemonID string) engine.Plan {
	channel := channelFor(cfg, band)

	dnsServers := []string{cfg.LANGatewayIP}
	if cfg.DHCPDns != "" && cfg.DHCPDns != "gateway" {
		dnsServers = strings.Split(cfg.DHCPDns, ",")
		for i := range dnsServers {
			dnsServers[i] = strings.TrimSpace(dnsServers[i])
		}
	}

	return engine.Plan{
		APInterface:   adapter.Ifname,
		AdapterIfname: adapter.Ifname,

		SSID:       cfg.SSID,
		Passphrase: "", // populated by the caller from configstore.GetPassphrase, never logged
		Security:   security,

		Band:         band,
		Country:      cfg.Country,
		Channel:      channel,
		ChannelWidth: cfg.ChannelWidth,

		GatewayIP:      cfg.LANGatewayIP,
		DHCPStartIP:    cfg.DHCPStartIP,
		DHCPEndIP:      cfg.DHCPEndIP,
		DNSServers:     dnsServers,
		EnableInternet: cfg.EnableInternet,

		BridgeMode:         cfg.BridgeMode,
		BridgeName:         cfg.BridgeName,
		BridgeUplinkIfname: cfg.BridgeUplinkIfname,
		UplinkIfname:       cfg.BridgeUplinkIfname,

		DaemonID: daemonID,
	}
}

func channelFor(cfg configstore.Config, band configstore.BandPreference) int {
	switch band {
	case configstore.Band5GHz:
		if cfg.Channel5G != nil {
			return *cfg.Channel5G
		}
		return 36
	case configstore.Band6GHz:
		if cfg.Channel6G != nil {
			return *cfg.Channel6G
		}
		return 37
	default:
		return clamp(cfg.Channel2GFallback, 1, 11)
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// firewallProfileFor translates the persisted config + effective plan
// into a firewall.Profile for this attempt (spec §4.5).
func firewallProfileFor(cfg configstore.Config, plan engine.Plan) firewall.Profile {
	lanCIDR := cfg.LANGatewayIP + "/24"
	return firewall.Profile{
		APInterface:  plan.APInterface,
		LANCIDR:      lanCIDR,
		UplinkIfname: plan.UplinkIfname,
		Masquerade:   cfg.FirewallEnableMasquerade && !plan.BridgeMode,
		Forward:      cfg.FirewallEnableForward,
		Zone:         cfg.FirewallZone,
		DaemonID:     plan.DaemonID,
	}
}

// readinessTargetFor builds the readiness.Target for one attempt.
func readinessTargetFor(plan engine.Plan) readiness.Target {
	return readiness.Target{
		APInterface:     plan.APInterface,
		GatewayIP:       plan.GatewayIP,
		ExpectedSSID:    plan.SSID,
		DNSResolverAddr: plan.GatewayIP + ":53",
	}
}

// waitForConfigDir polls the handle for its discovered config dir (set
// asynchronously by RealSpawner once the backend drops its runtime
// files) up to timeout; some backends (direct6) never set one.
func waitForConfigDir(handle engine.EngineHandle, timeout time.Duration) (string, bool) {
	deadline := time.Now().Add(timeout)
	for {
		if dir, ok := handle.DiscoveredConfigDir(); ok {
			return dir, true
		}
		if time.Now().After(deadline) {
			return "", false
		}
		time.Sleep(20 * time.Millisecond)
	}
}

// validCountryCode reports whether code is a plausible two-letter
// ISO 3166-1 alpha-2 country code (spec §4.7 step 6's
// hostapd_invalid_country_code_for_80211d check).
func validCountryCode(code string) bool {
	if len(code) != 2 {
		return false
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

// applyOverrides merges a small, documented subset of fields a single
// Start call may override without persisting them (spec §6's "start
// accepts an optional one-shot config override"). Full merge-patch
// semantics live in configstore.Store.Save and are intentionally not
// reused here: a one-shot override must never touch the persisted
// passphrase or unrelated fields a caller didn't mention.
func applyOverrides(base, overrides configstore.Config) configstore.Config {
	out := base
	if overrides.SSID != "" {
		out.SSID = overrides.SSID
	}
	if overrides.BandPreference != "" {
		out.BandPreference = overrides.BandPreference
	}
	if overrides.APSecurity != "" {
		out.APSecurity = overrides.APSecurity
	}
	if overrides.Country != "" {
		out.Country = overrides.Country
	}
	if overrides.APAdapterIfname != "" {
		out.APAdapterIfname = overrides.APAdapterIfname
	}
	return out
}

func (c *Core) buildRunningStatus(plan engine.Plan, correlationID, fallbackReason string, warnings []string, handle engine.EngineHandle) *Status {
	mode := ModeNAT
	if plan.BridgeMode {
		mode = ModeBridge
	}

	stdoutTail, stderrTail, apLogsTail := handle.TailLogs()

	return &Status{
		Running: true,
		Phase:   PhaseRunning,

		Adapter:         plan.AdapterIfname,
		APInterface:     plan.APInterface,
		Band:            string(plan.Band),
		Mode:            mode,
		ChannelWidthMHz: plan.ChannelWidth,

		SelectedBand:     string(plan.Band),
		SelectedWidthMHz: plan.ChannelWidth,
		SelectedChannel:  plan.Channel,
		SelectedCountry:  plan.Country,

		FallbackReason: fallbackReason,

		LastOp:            "start",
		LastOpTS:          time.Now(),
		LastCorrelationID: correlationID,

		Engine: &EngineStatus{
			PID:         handle.PID(),
			RedactedCmd: handle.RedactedArgv(),
			StdoutTail:  stdoutTail,
			StderrTail:  stderrTail,
			APLogsTail:  apLogsTail,
		},

		Warnings: warnings,
		Platform: PlatformInfo{ZoneFirewallUsed: c.deps.FWDetect != nil && c.deps.FWDetect()},
	}
}

func (c *Core) buildErrorStatus(correlationID string, err error, warnings []string) *Status {
	status := newStoppedStatus()
	status.Phase = PhaseError
	status.LastOp = "start"
	status.LastOpTS = time.Now()
	status.LastCorrelationID = correlationID
	status.Warnings = warnings
	if err != nil {
		status.LastError = err.Error()
		status.LastErrorDetail = errs.DetailOf(err)
	}
	return status
}

func (c *Core) startBackgroundTasks(cfg configstore.Config, plan engine.Plan) {
	ctx, cancel := context.WithCancel(context.Background())
	c.bgCancel = cancel

	if cfg.TelemetryEnable && c.deps.StationReaderFor != nil {
		sampler := c.deps.TelemetryFactory(c.deps.StationReaderFor(plan), plan.APInterface, time.Duration(cfg.TelemetryIntervalS*float64(time.Second)))
		sampler.WithGatewayIP(plan.GatewayIP)
		c.sampler = sampler
		go sampler.Run(ctx)
	}

	if cfg.WatchdogEnable {
		wd := c.deps.WatchdogFactory(time.Duration(cfg.WatchdogIntervalS*float64(time.Second)), c.currentHandleChecker, c.onEngineDeath)
		go wd.Run(ctx)
	}
}

func (c *Core) stopBackgroundTasks() {
	if c.bgCancel != nil {
		c.bgCancel()
		c.bgCancel = nil
	}
	c.sampler = nil
}

func (c *Core) onEngineDeath(ctx context.Context) error {
	return c.RestartWithLastPlan(ctx)
}

// currentHandleChecker snapshots the current engine handle as a
// telemetry.AliveChecker; the watchdog never holds c.mu while polling.
func (c *Core) currentHandleChecker() telemetry.AliveChecker {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.handle == nil {
		return nil
	}
	return handleAliveAdapter{c.handle}
}

type handleAliveAdapter struct{ h engine.EngineHandle }

func (a handleAliveAdapter) IsAlive() bool { return a.h.IsAlive() }
