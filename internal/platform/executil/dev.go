// internal/platform/executil/dev.go
//
// DevRunner wraps Real{} and stubs the hardware-only commands that don't
// exist (or can't be run unprivileged) on a dev laptop: hostapd,
// dnsmasq, iw, iptables, firewall-cmd, rfkill, sysctl writes.
//
// Commands that need to return data (iw phy, iw reg get, arp -a, iw dev
// station dump) return realistic fake output so the parsers in
// internal/probes and internal/telemetry behave identically to
// production — callers never special-case dev mode.
//
// Commands that are pure side-effects (iptables rules, firewall-cmd,
// systemctl) are logged at DEBUG level and silently succeed.
//
// Nothing in this file is imported by production code — it is selected
// only when cfg.IsDev == true at the composition root.
package executil

import (
	"log/slog"
	"strings"
)

// DevRunner satisfies Runner. Wrap it around Real{} so any command we
// don't explicitly stub falls through to the real binary.
type DevRunner struct{ real Runner }

func NewDevRunner() Runner { return &DevRunner{real: Real{}} }

// silentOK — pure side-effect commands on real hardware. On a dev
// machine they either don't exist or fail with permission denied. We
// log at DEBUG and return nil so callers never see an error.
var silentOK = map[string]bool{
	"iptables":     true,
	"ip6tables":    true,
	"firewall-cmd": true,
	"hostapd":      true,
	"dnsmasq":      true,
	"iw":           true,
	"rfkill":       true,
	"sysctl":       true,
	"tc":           true,
	"killall":      true,
	"brctl":        true,
}

var silentOKSystemctlUnits = map[string]bool{
	"hostapd":   true,
	"dnsmasq":   true,
	"firewalld": true,
}

func (d *DevRunner) Run(name string, args ...string) error {
	if d.shouldStub(name, args) {
		slog.Debug("dev: stubbed (no-op)", "cmd", name, "args", strings.Join(args, " "))
		return nil
	}
	return d.real.Run(name, args...)
}

func (d *DevRunner) Output(name string, args ...string) ([]byte, error) {
	if out, ok := d.fakeOutput(name, args); ok {
		slog.Debug("dev: stubbed with fake output", "cmd", name)
		return out, nil
	}
	return d.real.Output(name, args...)
}

func (d *DevRunner) CombinedOutput(name string, args ...string) ([]byte, error) {
	if out, ok := d.fakeOutput(name, args); ok {
		slog.Debug("dev: stubbed with fake output", "cmd", name)
		return out, nil
	}
	return d.real.CombinedOutput(name, args...)
}

func (d *DevRunner) shouldStub(name string, args []string) bool {
	if silentOK[name] {
		return true
	}
	if name == "systemctl" && len(args) >= 2 {
		unit := args[len(args)-1]
		action := args[0]
		hardwareAction := action == "start" || action == "stop" ||
			action == "restart" || action == "kill" || action == "is-active"
		if hardwareAction && silentOKSystemctlUnits[unit] {
			return true
		}
	}
	if name == "sh" && len(args) >= 2 && strings.Contains(args[1], "/proc/sys") {
		return true
	}
	return false
}

// fakeOutput returns realistic stub data for commands whose output is
// parsed by internal/probes, internal/inventory, or internal/telemetry.
func (d *DevRunner) fakeOutput(name string, args []string) ([]byte, bool) {
	switch name {
	case "hostapd":
		if len(args) >= 1 && args[0] == "-v" {
			return []byte("hostapd v2.10-devbuild"), true
		}
	case "dnsmasq":
		if len(args) >= 1 && args[0] == "--version" {
			return []byte("Dnsmasq version 2.90"), true
		}
	case "iw":
		switch {
		case len(args) >= 1 && args[0] == "dev":
			return []byte(fakeIwDev), true
		case len(args) >= 1 && args[0] == "phy":
			return []byte(fakeIwPhy), true
		case len(args) >= 2 && args[0] == "reg" && args[1] == "get":
			return []byte(fakeIwReg), true
		case len(args) >= 4 && args[0] == "dev" && args[2] == "station":
			return []byte(fakeStation), true
		}
		return []byte(""), true
	case "rfkill":
		return []byte(fakeRfkill), true
	case "arp":
		return []byte(fakeARP), true
	case "ip":
		if len(args) >= 1 && args[0] == "route" {
			return []byte(fakeIPRoute), true
		}
		return []byte(""), true
	case "systemctl":
		if len(args) >= 2 && args[0] == "is-active" {
			return []byte("inactive\n"), true
		}
	}
	return nil, false
}

// fakeIwDev — one physical radio, no AP currently raised.
const fakeIwDev = `phy#0
	Interface wlan0vr
		ifindex 3
		wdev 0x1
		addr de:ad:be:ef:00:01
		type managed
`

// fakeIwPhy — 2.4/5 GHz capable, 80 MHz, 802.11ax.
const fakeIwPhy = `Wiphy phy0
	Band 1:
		Capabilities: 0x1 HT20/HT40
	Band 2:
		VHT Capabilities
	Supported interface modes:
		 * AP
	HE Iftypes: AP
`

const fakeIwReg = `country US: DFS-FCC
`

const fakeRfkill = `0: hotspotd-radio: Wireless LAN
	Soft blocked: no
	Hard blocked: no
`

const fakeARP = `? (192.168.66.50) at a1:b2:c3:d4:e5:f6 [ether] on wlan0vr
? (192.168.66.51) at de:ad:be:ef:ca:fe [ether] on wlan0vr
`

const fakeIPRoute = `default via 192.168.1.1 dev eth0 proto dhcp metric 100
`

const fakeStation = `Station a1:b2:c3:d4:e5:f6 (on wlan0vr)
	signal:  	-52 dBm
	tx bitrate:	433.3 MBit/s
	rx bitrate:	433.3 MBit/s
	tx retries:	12
	tx failed:	0
Station de:ad:be:ef:ca:fe (on wlan0vr)
	signal:  	-68 dBm
	tx bitrate:	86.7 MBit/s
	rx bitrate:	72.2 MBit/s
	tx retries:	340
	tx failed:	4
`
