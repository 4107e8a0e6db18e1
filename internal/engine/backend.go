package engine

import (
	"fmt"
	"strings"

	"github.com/strct-org/hotspotd/internal/configstore"
)

// hostapdConf renders a hostapd-style config for the plan. Generalizes
// the teacher's writeHostapdConf (internal/features/wifi/wifi.go) from
// a single hard-coded 5 GHz/WPA2 shape to every band/security
// combination the plan can carry.
func hostapdConf(p Plan) string {
	hwMode := "a"
	switch p.Band {
	case configstore.Band24GHz:
		hwMode = "g"
	case configstore.Band6GHz:
		hwMode = "a" // 6 GHz AP mode still advertises hw_mode=a to hostapd
	}

	maxClients := p.MaxClients
	if maxClients == 0 {
		maxClients = 20
	}

	var b strings.Builder
	fmt.Fprintf(&b, "interface=%s\n", p.APInterface)
	fmt.Fprintf(&b, "driver=nl80211\n")
	fmt.Fprintf(&b, "ssid=%s\n", p.SSID)
	fmt.Fprintf(&b, "hw_mode=%s\n", hwMode)
	fmt.Fprintf(&b, "channel=%d\n", p.Channel)
	fmt.Fprintf(&b, "ieee80211n=1\n")
	fmt.Fprintf(&b, "ieee80211ac=1\n")
	fmt.Fprintf(&b, "wmm_enabled=1\n")
	fmt.Fprintf(&b, "max_num_sta=%d\n", maxClients)

	if p.Enable80211D() {
		fmt.Fprintf(&b, "country_code=%s\n", p.Country)
		fmt.Fprintf(&b, "ieee80211d=1\n")
	}

	fmt.Fprintf(&b, "ctrl_interface=%s\n", hostapdRunDir(p))

	switch p.Security {
	case configstore.SecurityWPA3_SAE:
		fmt.Fprintf(&b, "wpa=2\n")
		fmt.Fprintf(&b, "wpa_key_mgmt=SAE\n")
		fmt.Fprintf(&b, "sae_password=%s\n", p.Passphrase)
		fmt.Fprintf(&b, "ieee80211w=2\n")
		fmt.Fprintf(&b, "ieee80211ax=1\n")
		fmt.Fprintf(&b, "he_su_beamformer=1\n")
	default: // wpa2
		fmt.Fprintf(&b, "wpa=2\n")
		fmt.Fprintf(&b, "wpa_key_mgmt=WPA-PSK\n")
		fmt.Fprintf(&b, "wpa_passphrase=%s\n", p.Passphrase)
		fmt.Fprintf(&b, "rsn_pairwise=CCMP\n")
		fmt.Fprintf(&b, "ieee80211w=1\n")
	}

	fmt.Fprintf(&b, "ignore_broadcast_ssid=0\n")
	return b.String()
}

// dnsmasqConf generalizes the teacher's writeDnsmasqConf DNS-provider
// table into the spec's dhcp_dns field (spec §6 "SUPPLEMENTED
// FEATURES").
var dnsProviders = map[string][2]string{
	"cloudflare": {"1.1.1.1", "1.0.0.1"},
	"google":     {"8.8.8.8", "8.8.4.4"},
	"adguard":    {"94.140.14.14", "94.140.15.15"},
	"quad9":      {"9.9.9.9", "149.112.112.112"},
}

func dnsmasqConf(p Plan) string {
	servers := p.DNSServers
	if len(servers) == 0 {
		if pair, ok := dnsProviders["cloudflare"]; ok {
			servers = []string{pair[0], pair[1]}
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "interface=%s\n", p.APInterface)
	fmt.Fprintf(&b, "bind-interfaces\n")
	fmt.Fprintf(&b, "dhcp-range=%s,%s,24h\n", p.DHCPStartIP, p.DHCPEndIP)
	fmt.Fprintf(&b, "dhcp-option=3,%s\n", p.GatewayIP)
	fmt.Fprintf(&b, "dhcp-option=6,%s\n", p.GatewayIP)
	for _, s := range servers {
		fmt.Fprintf(&b, "server=%s\n", s)
	}
	fmt.Fprintf(&b, "no-resolv\n")
	return b.String()
}

// argv builds the spawned command for the plan's backend. The
// passphrase argument is always returned redacted in redactedArgv, per
// spec §6 ("Passphrase must be redacted in the argv copy held in
// Status").
func argv(p Plan) (binary string, args []string, redactedArgv []string) {
	switch p.Backend {
	case BackendDirect6:
		binary = "hostapd"
		args = []string{"-B", hostapdConfPathFor(p)}
	case BackendBridge:
		binary = "hotspotd-orchestrator"
		args = []string{
			"--mode", "bridge",
			"--ap-interface", p.APInterface,
			"--bridge-name", p.BridgeName,
			"--uplink", p.BridgeUplinkIfname,
			"--ssid", p.SSID,
			"--passphrase", p.Passphrase,
		}
	default: // orchestrator
		binary = "hotspotd-orchestrator"
		args = []string{
			"--mode", "nat",
			"--ap-interface", p.APInterface,
			"--uplink", p.UplinkIfname,
			"--ssid", p.SSID,
			"--passphrase", p.Passphrase,
			"--channel", fmt.Sprintf("%d", p.Channel),
		}
		if p.OptimizedNoVirt {
			args = append(args, "--no-virt")
		}
	}

	redactedArgv = make([]string, len(args))
	copy(redactedArgv, args)
	for i, a := range redactedArgv {
		if a == p.Passphrase {
			redactedArgv[i] = "***REDACTED***"
		}
	}
	return binary, args, redactedArgv
}

func hostapdConfPathFor(p Plan) string {
	return hostapdRunDir(p) + "/hostapd.conf"
}

// hostapdRunDir is also where hostapd's ctrl_interface socket (named
// after the AP interface) lands, so readiness's UnixControlSocket can
// find it once RealSpawner reports this dir as DiscoveredConfigDir.
func hostapdRunDir(p Plan) string {
	return "/run/hotspotd/" + p.DaemonID
}

// ConfigDirFor is RealSpawner's ConfigDirFor for production wiring:
// only the direct6 (hostapd-only) backend drops a discoverable runtime
// dir; the orchestrator binary manages its own config path out of
// process and never surfaces one here.
func ConfigDirFor(p Plan) (string, bool) {
	if p.Backend == BackendDirect6 {
		return hostapdRunDir(p), true
	}
	return "", false
}
