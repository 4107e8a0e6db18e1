// Package readiness implements the two-signal readiness check spec
// §4.4 requires after the engine is spawned: a primary hostapd
// control-socket PING, cross-checked with an ICMP probe to the AP's
// own gateway IP, falling back to a weaker process/interface/SSID
// check plus a DNS resolver probe against dnsmasq. Grounded on the
// teacher's monitor.go pro-bing usage and setup/dns.go's miekg/dns
// usage, redirected from their original purposes (WAN health, DNS
// spoofing) to hotspot readiness signals.
package readiness

import (
	"context"
	"errors"
	"time"

	"github.com/miekg/dns"
	ping "github.com/prometheus-community/pro-bing"

	"github.com/strct-org/hotspotd/internal/errs"
)

const pollInterval = 100 * time.Millisecond

// ControlSocket is the narrow contract for hostapd's unix control
// interface; satisfied by a real dgram dial in production and a fake in
// tests.
type ControlSocket interface {
	// Ping sends the literal "PING" control command and reports
	// whether hostapd answered "PONG" within deadline.
	Ping(ctx context.Context) (bool, error)
}

// StateReader backs the fallback signal: is a daemon process alive, is
// the interface administratively up, does the kernel report it as AP
// type, and (if requested) does the advertised SSID match.
type StateReader interface {
	ProcessAlive() bool
	InterfaceUp(ifname string) (bool, error)
	InterfaceIsAPType(ifname string) (bool, error)
	AdvertisedSSID(ifname string) (string, error)
}

// Target describes what readiness is being checked for one engine
// attempt.
type Target struct {
	APInterface     string
	GatewayIP       string // used for the pro-bing ICMP cross-check
	ExpectedSSID    string // empty means don't check
	DNSResolverAddr string // dnsmasq's listen addr, e.g. "192.168.66.1:53"
}

const opAwait errs.Op = "readiness.Await"

// Await polls until the primary or fallback signal succeeds, or ctx/
// timeout expires. It never modifies host state (spec §4.4).
func Await(ctx context.Context, timeout time.Duration, sock ControlSocket, state StateReader, target Target) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		ok, err := checkOnce(ctx, sock, state, target)
		if err == nil && ok {
			return nil
		}

		select {
		case <-ctx.Done():
			return errs.E(opAwait, errs.KindReadiness, errs.CodeAPReadyTimeout, ctx.Err(), "AP did not become ready within the configured timeout")
		case <-ticker.C:
		}
	}
}

func checkOnce(ctx context.Context, sock ControlSocket, state StateReader, target Target) (bool, error) {
	if primaryReady(ctx, sock, target) {
		return true, nil
	}
	return fallbackReady(state, target)
}

// primaryReady is the control-socket PING, cross-checked against an
// ICMP ping to the AP's own gateway IP — a genuinely alive control
// socket without the kernel actually forwarding packets on the AP
// interface is not "ready" for a VR headset to join.
func primaryReady(ctx context.Context, sock ControlSocket, target Target) bool {
	if sock == nil {
		return false
	}
	pongOK, err := sock.Ping(ctx)
	if err != nil || !pongOK {
		return false
	}
	if target.GatewayIP == "" {
		return true
	}
	return icmpCrossCheck(target.GatewayIP)
}

func icmpCrossCheck(gatewayIP string) bool {
	pinger, err := ping.NewPinger(gatewayIP)
	if err != nil {
		return false
	}
	pinger.SetPrivileged(true)
	pinger.Count = 1
	pinger.Timeout = 300 * time.Millisecond
	if err := pinger.Run(); err != nil {
		return false
	}
	return pinger.Statistics().PacketsRecv > 0
}

// fallbackReady implements spec §4.4's weaker signal: process alive,
// interface up, kernel-reported AP type, and (if requested) matching
// SSID — plus a DNS resolver probe confirming dnsmasq actually
// answers, since an interface can be "up" with hostapd wedged.
func fallbackReady(state StateReader, target Target) (bool, error) {
	if state == nil {
		return false, errors.New("readiness: no fallback state reader configured")
	}
	if !state.ProcessAlive() {
		return false, nil
	}
	up, err := state.InterfaceUp(target.APInterface)
	if err != nil || !up {
		return false, err
	}
	isAP, err := state.InterfaceIsAPType(target.APInterface)
	if err != nil || !isAP {
		return false, err
	}
	if target.ExpectedSSID != "" {
		ssid, err := state.AdvertisedSSID(target.APInterface)
		if err != nil || ssid != target.ExpectedSSID {
			return false, err
		}
	}
	if target.DNSResolverAddr != "" && !dnsResolverAnswers(target.DNSResolverAddr) {
		return false, nil
	}
	return true, nil
}

// dnsResolverAnswers sends a minimal A-record query for a well-known
// name against the dnsmasq resolver bound to the AP interface,
// confirming the DHCP/DNS half of the pipeline independent of
// hostapd's own control socket.
func dnsResolverAnswers(resolverAddr string) bool {
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn("captive.hotspotd.internal"), dns.TypeA)

	c := &dns.Client{Timeout: 300 * time.Millisecond, Net: "udp"}
	reply, _, err := c.Exchange(m, resolverAddr)
	if err != nil {
		return false
	}
	// Any reply at all — even NXDOMAIN for an unknown name — proves
	// the resolver is alive and listening; only a transport failure
	// above means it isn't.
	return reply != nil
}
