package configstore

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"github.com/strct-org/hotspotd/internal/errs"
)

const configFilename = "hotspot-config.json"

// Store is the host-local, file-backed Config record (spec §4.2).
type Store struct {
	dir string
}

func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) configPath() string {
	return filepath.Join(s.dir, configFilename)
}

// Dir returns the store's backing directory, for callers (lifecycle's
// Start) that need to reach the passphrase side-store directly.
func (s *Store) Dir() string {
	return s.dir
}

// Load returns the persisted record, or defaults when the file is
// absent (spec §4.2). Keys absent from the saved file take defaults
// because json.Unmarshal decodes over an already-defaulted value.
func (s *Store) Load() (Config, error) {
	const op = errs.Op("configstore.Load")
	cfg := New()

	b, err := os.ReadFile(s.configPath())
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, errs.E(op, errs.KindIO, err)
	}
	if err := json.Unmarshal(b, &cfg); err != nil {
		return cfg, errs.E(op, errs.KindInvalid, errs.CodeConfigInvalid, err, "malformed config record")
	}
	return cfg, nil
}

// Save merges patch over the current record, validates the full
// result, and atomically persists it (write-temp-then-rename) under an
// exclusive advisory lock on the store directory (spec §4.2, §4.9).
// The passphrase, if non-nil, is routed to its own side-store; the main
// record never carries it.
func (s *Store) Save(patch Config, passphrase *string) (Config, error) {
	const op = errs.Op("configstore.Save")

	unlock, err := s.lockDir()
	if err != nil {
		return Config{}, errs.E(op, errs.KindIO, err)
	}
	defer unlock()

	current, err := s.Load()
	if err != nil {
		return Config{}, err
	}
	merged := mergePatch(current, patch)

	passSet := false
	passLen := 0
	if existing := ViewPassphrase(s.dir); existing.Set {
		passSet, passLen = true, existing.Len
	}
	if passphrase != nil {
		passSet, passLen = true, len(*passphrase)
	}

	if fieldErrs := Validate(merged, passSet, passLen); len(fieldErrs) > 0 {
		msgs := make([]string, len(fieldErrs))
		for i, fe := range fieldErrs {
			msgs[i] = fe.Error()
		}
		return Config{}, errs.E(op, errs.KindInvalid, errs.CodeConfigInvalid,
			&errs.Detail{Title: "config_invalid", Errors: msgs}, "config failed validation")
	}

	if passphrase != nil {
		if err := writePassphrase(s.dir, *passphrase); err != nil {
			return Config{}, err
		}
	}

	b, err := json.MarshalIndent(merged, "", "  ")
	if err != nil {
		return Config{}, errs.E(op, errs.KindIO, err)
	}

	final := s.configPath()
	tmp := final + ".tmp"
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return Config{}, errs.E(op, errs.KindIO, err)
	}
	if err := os.WriteFile(tmp, b, 0644); err != nil {
		return Config{}, errs.E(op, errs.KindIO, err)
	}
	if err := os.Rename(tmp, final); err != nil {
		return Config{}, errs.E(op, errs.KindIO, err)
	}

	return merged, nil
}

// lockDir takes an exclusive advisory flock on the store directory for
// the duration of a save, per spec §4.9. Returns an unlock func.
func (s *Store) lockDir() (func(), error) {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return nil, err
	}
	f, err := os.Open(s.dir)
	if err != nil {
		return nil, err
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX); err != nil {
		f.Close()
		return nil, err
	}
	return func() {
		if err := unix.Flock(int(f.Fd()), unix.LOCK_UN); err != nil {
			slog.Warn("configstore: failed to release directory lock", "err", err)
		}
		f.Close()
	}, nil
}

// mergePatch overlays patch on base. Scalar strings/numbers/enums only
// override when non-zero (a patch omitting a field round-trips the
// current value); booleans and optional pointer fields always take the
// patch's value, since a patch is expected to carry the full set of
// toggles it wants applied.
func mergePatch(base, patch Config) Config {
	merged := base
	z := Config{}

	if patch.SSID != z.SSID {
		merged.SSID = patch.SSID
	}
	if patch.BandPreference != z.BandPreference {
		merged.BandPreference = patch.BandPreference
	}
	if patch.APSecurity != z.APSecurity {
		merged.APSecurity = patch.APSecurity
	}
	if patch.Country != z.Country {
		merged.Country = patch.Country
	}
	if patch.Channel2GFallback != z.Channel2GFallback {
		merged.Channel2GFallback = patch.Channel2GFallback
	}
	if patch.Channel5G != nil {
		merged.Channel5G = patch.Channel5G
	}
	if patch.Channel6G != nil {
		merged.Channel6G = patch.Channel6G
	}
	if patch.ChannelWidth != z.ChannelWidth {
		merged.ChannelWidth = patch.ChannelWidth
	}
	if patch.BeaconIntervalMs != nil {
		merged.BeaconIntervalMs = patch.BeaconIntervalMs
	}
	if patch.DTIMPeriod != nil {
		merged.DTIMPeriod = patch.DTIMPeriod
	}
	if patch.ShortGuardInterval != nil {
		merged.ShortGuardInterval = patch.ShortGuardInterval
	}
	if patch.TxPowerDBm != nil {
		merged.TxPowerDBm = patch.TxPowerDBm
	}
	if patch.APAdapterIfname != z.APAdapterIfname {
		merged.APAdapterIfname = patch.APAdapterIfname
	}
	if patch.LANGatewayIP != z.LANGatewayIP {
		merged.LANGatewayIP = patch.LANGatewayIP
	}
	if patch.DHCPStartIP != z.DHCPStartIP {
		merged.DHCPStartIP = patch.DHCPStartIP
	}
	if patch.DHCPEndIP != z.DHCPEndIP {
		merged.DHCPEndIP = patch.DHCPEndIP
	}
	if patch.DHCPDns != z.DHCPDns {
		merged.DHCPDns = patch.DHCPDns
	}
	if patch.QosPreset != z.QosPreset {
		merged.QosPreset = patch.QosPreset
	}
	if patch.FirewallZone != z.FirewallZone {
		merged.FirewallZone = patch.FirewallZone
	}
	if patch.BridgeName != z.BridgeName {
		merged.BridgeName = patch.BridgeName
	}
	if patch.BridgeUplinkIfname != z.BridgeUplinkIfname {
		merged.BridgeUplinkIfname = patch.BridgeUplinkIfname
	}
	if patch.CPUAffinityMask != z.CPUAffinityMask {
		merged.CPUAffinityMask = patch.CPUAffinityMask
	}
	if patch.IRQAffinityMask != z.IRQAffinityMask {
		merged.IRQAffinityMask = patch.IRQAffinityMask
	}
	if patch.APReadyTimeoutS != z.APReadyTimeoutS {
		merged.APReadyTimeoutS = patch.APReadyTimeoutS
	}
	if patch.TelemetryIntervalS != z.TelemetryIntervalS {
		merged.TelemetryIntervalS = patch.TelemetryIntervalS
	}
	if patch.WatchdogIntervalS != z.WatchdogIntervalS {
		merged.WatchdogIntervalS = patch.WatchdogIntervalS
	}

	merged.ChannelAutoSelect = patch.ChannelAutoSelect
	merged.EnableInternet = patch.EnableInternet
	merged.BridgeMode = patch.BridgeMode
	merged.WifiPowerSaveDisable = patch.WifiPowerSaveDisable
	merged.USBAutosuspendDisable = patch.USBAutosuspendDisable
	merged.CPUGovernorPerformance = patch.CPUGovernorPerformance
	merged.SysctlTuning = patch.SysctlTuning
	merged.InterruptCoalescing = patch.InterruptCoalescing
	merged.TCPLowLatency = patch.TCPLowLatency
	merged.MemoryTuning = patch.MemoryTuning
	merged.IOSchedulerOptimize = patch.IOSchedulerOptimize
	merged.FirewallEnabled = patch.FirewallEnabled
	merged.FirewallEnableMasquerade = patch.FirewallEnableMasquerade
	merged.FirewallEnableForward = patch.FirewallEnableForward
	merged.FirewallCleanupOnStop = patch.FirewallCleanupOnStop
	merged.NatAccel = patch.NatAccel
	merged.TelemetryEnable = patch.TelemetryEnable
	merged.WatchdogEnable = patch.WatchdogEnable
	merged.Autostart = patch.Autostart
	merged.Debug = patch.Debug

	return merged
}
