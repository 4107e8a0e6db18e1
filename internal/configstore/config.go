// Package configstore is the typed, persisted settings record for the
// hotspot (spec §3 "Configuration", §4.2 "Config store"). The record
// itself never carries the passphrase — that lives in a sibling
// 0600 file, read and written only through GetPassphrase/Save.
package configstore

type BandPreference string

const (
	BandRecommended BandPreference = "recommended"
	Band24GHz       BandPreference = "2.4ghz"
	Band5GHz        BandPreference = "5ghz"
	Band6GHz        BandPreference = "6ghz"
)

type APSecurity string

const (
	SecurityWPA2     APSecurity = "wpa2"
	SecurityWPA3_SAE APSecurity = "wpa3_sae"
)

type QoSPreset string

const (
	QoSOff             QoSPreset = "off"
	QoSVR              QoSPreset = "vr"
	QoSBalanced        QoSPreset = "balanced"
	QoSUltraLowLatency QoSPreset = "ultra_low_latency"
	QoSHighThroughput  QoSPreset = "high_throughput"
)

// Config is the full persisted hotspot record (spec §3). JSON tags use
// the spec's snake_case field names directly; keys absent from a saved
// file take the defaults in New() on load.
type Config struct {
	// Identity. Passphrase is never a field here — see passphrase.go.
	SSID string `json:"ssid"`

	// Radio.
	BandPreference     BandPreference `json:"band_preference"`
	APSecurity         APSecurity     `json:"ap_security"`
	Country            string         `json:"country"`
	Channel2GFallback  int            `json:"channel_2g_fallback"`
	Channel5G          *int           `json:"channel_5g,omitempty"`
	Channel6G          *int           `json:"channel_6g,omitempty"`
	ChannelWidth       int            `json:"channel_width"`
	BeaconIntervalMs   *int           `json:"beacon_interval_ms,omitempty"`
	DTIMPeriod         *int           `json:"dtim_period,omitempty"`
	ShortGuardInterval *bool          `json:"short_guard_interval,omitempty"`
	TxPowerDBm         *int           `json:"tx_power_dbm,omitempty"`
	ChannelAutoSelect  bool           `json:"channel_auto_select"`

	// Adapter.
	APAdapterIfname string `json:"ap_adapter_ifname"`

	// Network plane.
	LANGatewayIP       string `json:"lan_gateway_ip"`
	DHCPStartIP        string `json:"dhcp_start_ip"`
	DHCPEndIP          string `json:"dhcp_end_ip"`
	DHCPDns            string `json:"dhcp_dns"` // "gateway" or literal comma-separated server list
	EnableInternet     bool   `json:"enable_internet"`
	BridgeMode         bool   `json:"bridge_mode"`
	BridgeName         string `json:"bridge_name,omitempty"`
	BridgeUplinkIfname string `json:"bridge_uplink_ifname,omitempty"`

	// Tuning toggles.
	WifiPowerSaveDisable  bool   `json:"wifi_power_save_disable"`
	USBAutosuspendDisable bool   `json:"usb_autosuspend_disable"`
	CPUGovernorPerformance bool  `json:"cpu_governor_performance"`
	SysctlTuning          bool   `json:"sysctl_tuning"`
	InterruptCoalescing   bool   `json:"interrupt_coalescing"`
	TCPLowLatency         bool   `json:"tcp_low_latency"`
	MemoryTuning          bool   `json:"memory_tuning"`
	IOSchedulerOptimize   bool   `json:"io_scheduler_optimize"`
	CPUAffinityMask       string `json:"cpu_affinity_mask,omitempty"`
	IRQAffinityMask       string `json:"irq_affinity_mask,omitempty"`

	// Firewall.
	FirewallEnabled          bool   `json:"firewall_enabled"`
	FirewallEnableMasquerade bool   `json:"firewall_enable_masquerade"`
	FirewallEnableForward    bool   `json:"firewall_enable_forward"`
	FirewallCleanupOnStop    bool   `json:"firewall_cleanup_on_stop"`
	FirewallZone             string `json:"firewall_zone"`

	// QoS.
	QosPreset QoSPreset `json:"qos_preset"`
	NatAccel  bool      `json:"nat_accel"`

	// Timing.
	APReadyTimeoutS     float64 `json:"ap_ready_timeout_s"`
	TelemetryEnable     bool    `json:"telemetry_enable"`
	TelemetryIntervalS  float64 `json:"telemetry_interval_s"`
	WatchdogEnable      bool    `json:"watchdog_enable"`
	WatchdogIntervalS   float64 `json:"watchdog_interval_s"`
	Autostart           bool    `json:"autostart"`

	// Diagnostics.
	Debug bool `json:"debug"`
}

// PassphraseView is what persisted snapshots and Status carry instead
// of the passphrase itself (spec §3 invariant, §8 property 8).
type PassphraseView struct {
	Set bool `json:"wpa2_passphrase_set"`
	Len int  `json:"wpa2_passphrase_len"`
}

// New returns the default record the teacher's wifi.go shipped as
// RouterConfig defaults, generalized to the full field set.
func New() Config {
	return Config{
		SSID:              "VR-NET",
		BandPreference:    BandRecommended,
		APSecurity:        SecurityWPA2,
		Country:           "",
		Channel2GFallback: 6,
		ChannelWidth:      80,
		ChannelAutoSelect: true,

		LANGatewayIP:   "192.168.100.1",
		DHCPStartIP:    "192.168.100.50",
		DHCPEndIP:      "192.168.100.150",
		DHCPDns:        "gateway",
		EnableInternet: true,
		FirewallZone:   "trusted",

		FirewallEnabled:          true,
		FirewallEnableMasquerade: true,
		FirewallEnableForward:    true,
		FirewallCleanupOnStop:    true,

		QosPreset: QoSVR,

		APReadyTimeoutS:    12.0,
		TelemetryEnable:    true,
		TelemetryIntervalS: 2.0,
		WatchdogEnable:     true,
		WatchdogIntervalS:  5.0,
		Autostart:          false,
	}
}

// FieldError is one entry of a Validate() report (spec §4.2 "returns
// the full list rather than first failure").
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (f FieldError) Error() string { return f.Field + ": " + f.Message }
