// Package engine abstracts hostapd + dnsmasq + the NAT/bridge glue
// behind one EngineHandle contract, with three interchangeable backends
// (spec §4.3). Nothing here knows about the lifecycle state machine;
// it only spawns, supervises, and classifies the exit of one attempt.
package engine

import "github.com/strct-org/hotspotd/internal/configstore"

// Backend selects which concrete pipeline Spawn builds (spec §4.3,
// §4.7 step 4).
type Backend string

const (
	BackendOrchestrator Backend = "orchestrator" // 2.4/5 GHz NAT
	BackendDirect6      Backend = "direct6"      // 6 GHz WPA3-SAE
	BackendBridge       Backend = "bridge"       // kernel bridge, no NAT
)

// Plan is the Effective Plan glossary term: the post-resolution,
// post-validation parameter set handed to one engine backend attempt.
type Plan struct {
	Backend Backend

	APInterface   string // kernel interface the AP is raised on (may be a virtual child)
	AdapterIfname string // underlying physical adapter the AP interface belongs to

	SSID       string
	Passphrase string
	Security   configstore.APSecurity

	Band         configstore.BandPreference
	Country      string
	Channel      int
	ChannelWidth int
	MaxClients   int

	// OptimizedNoVirt tells the backend not to clone a virtual AP
	// interface — spec §4.7 fallback rule for driver_rejected_channel.
	OptimizedNoVirt bool

	GatewayIP      string
	DHCPStartIP    string
	DHCPEndIP      string
	DNSServers     []string
	EnableInternet bool

	BridgeMode         bool
	BridgeName         string
	BridgeUplinkIfname string

	UplinkIfname string // for NAT masquerade target

	DaemonID string // tags spawned processes / config dirs for repair() cleanup
}

// SelectBackend implements spec §4.7 step 4's engine-backend rule.
func SelectBackend(band configstore.BandPreference, security configstore.APSecurity, bridgeMode bool) Backend {
	if band == configstore.Band6GHz || security == configstore.SecurityWPA3_SAE {
		return BackendDirect6
	}
	if bridgeMode {
		return BackendBridge
	}
	return BackendOrchestrator
}

// Enable80211D reports whether the generated AP config writes
// ieee80211d=1 (spec §4.7 step 6). This is unconditional — every
// backend enables it regardless of whether Country happens to be
// set, so an empty Country still reaches the step-6 enforcement
// check (spec §8 scenario S3) instead of silently skipping it.
func (p Plan) Enable80211D() bool {
	return true
}
