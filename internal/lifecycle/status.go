package lifecycle

import (
	"time"

	"github.com/strct-org/hotspotd/internal/configstore"
	"github.com/strct-org/hotspotd/internal/errs"
	"github.com/strct-org/hotspotd/internal/telemetry"
)

// Phase is the lifecycle state machine's five states (spec §4.7).
type Phase string

const (
	PhaseStopped  Phase = "stopped"
	PhaseStarting Phase = "starting"
	PhaseRunning  Phase = "running"
	PhaseStopping Phase = "stopping"
	PhaseError    Phase = "error"
)

// Mode mirrors spec §3's Status.mode.
type Mode string

const (
	ModeNAT    Mode = "nat"
	ModeBridge Mode = "bridge"
)

// EngineStatus is the redacted subset of an EngineHandle spec §3
// exposes on Status: pid and cmd (redacted), plus log tails.
type EngineStatus struct {
	PID           int      `json:"pid"`
	RedactedCmd   []string `json:"cmd"`
	StdoutTail    []string `json:"stdout_tail"`
	StderrTail    []string `json:"stderr_tail"`
	APLogsTail    []string `json:"ap_logs_tail"`
}

// Status is the observable state published to the control plane (spec
// §3). Core owns one via atomic.Pointer so readers never block a
// Start/Stop/Repair/Restart in progress.
type Status struct {
	Running bool  `json:"running"`
	Phase   Phase `json:"phase"`

	Adapter         string `json:"adapter"`
	APInterface     string `json:"ap_interface"`
	Band            string `json:"band"`
	Mode            Mode   `json:"mode"`
	ChannelWidthMHz int    `json:"channel_width_mhz"`

	SelectedBand    string `json:"selected_band"`
	SelectedWidthMHz int   `json:"selected_width_mhz"`
	SelectedChannel int    `json:"selected_channel"`
	SelectedCountry string `json:"selected_country"`

	FallbackReason string `json:"fallback_reason,omitempty"`

	LastOp            string    `json:"last_op"`
	LastOpTS          time.Time `json:"last_op_ts"`
	LastCorrelationID string    `json:"last_correlation_id"`

	LastError       string       `json:"last_error,omitempty"`
	LastErrorDetail *errs.Detail `json:"last_error_detail,omitempty"`

	Engine *EngineStatus `json:"engine,omitempty"`

	Telemetry telemetry.Summary `json:"telemetry"`
	Warnings  []string          `json:"warnings"`

	Platform  PlatformInfo `json:"platform"`
	Preflight Preflight    `json:"preflight"`
}

// PlatformInfo is the "OS label + integration flags" spec §3 mentions.
type PlatformInfo struct {
	OSLabel          string `json:"os_label"`
	ZoneFirewallUsed bool   `json:"zone_firewall_used"`
}

// Preflight is a short sub-report of the platform facts consulted
// before the most recent Start attempt.
type Preflight struct {
	AdapterCount int      `json:"adapter_count"`
	Warnings     []string `json:"warnings,omitempty"`
}

func newStoppedStatus() *Status {
	return &Status{Phase: PhaseStopped, Running: false}
}

// LifecycleResult is the uniform return shape of every control-plane
// operation (spec §6).
type LifecycleResult struct {
	OK            bool      `json:"ok"`
	ResultCode    errs.Code `json:"result_code"`
	CorrelationID string    `json:"correlation_id"`
	Data          Status    `json:"data"`
}

// PassphraseView embeds the redacted config view alongside a Config
// snapshot returned by GetConfig.
type ConfigView struct {
	configstore.Config
	Passphrase configstore.PassphraseView `json:"passphrase"`
}
