// Package probes implements the read-only host inspectors the rest of
// hotspotd builds on: kernel network devices, iw/nl80211 capability,
// regulatory domain, rfkill state, the default route/uplink interface,
// and whether a zone-based firewall manager is active. Nothing here
// mutates host state (spec §2 item 1, §9 "PlatformFacts").
package probes

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/blang/semver"
	"golang.org/x/sync/errgroup"
)

// commander is the subset of executil.Runner probes needs.
type commander interface {
	Output(name string, args ...string) ([]byte, error)
	CombinedOutput(name string, args ...string) ([]byte, error)
}

// RadioFacts is everything probes can learn about one physical radio
// without mutating it.
type RadioFacts struct {
	Phy            string
	Ifname         string
	MAC            string
	Driver         string
	Bus            string // "usb", "pci", "embedded", or "unknown"
	SupportsAP     bool
	Supports24GHz  bool
	Supports5GHz   bool
	Supports6GHz   bool
	Supports80MHz  bool
	Supports80211ax bool
	RegDomain      string
	RfkillBlocked  bool
}

// PlatformFacts is the value computed once per lifecycle call (spec §9
// design note) and handed to every decision point downstream instead of
// each component re-probing the host independently.
type PlatformFacts struct {
	Radios           []RadioFacts
	DefaultRouteIf   string
	FirewalldActive  bool
	HostapdVersion   semver.Version
	DnsmasqVersion   semver.Version
	SupportsWPA3SAE  bool // hostapd >= 2.9 per upstream SAE support
}

// Prober computes PlatformFacts. It is constructed once with the
// executil.Runner the daemon was configured with (Real in production,
// DevRunner or Mock in tests).
type Prober struct {
	cmd commander
}

func New(cmd commander) *Prober {
	return &Prober{cmd: cmd}
}

// FirewalldActive is firewalldActive exported as a zero-arg closure
// target, for callers (firewall.Detector wiring) that want this one
// signal without paying for a full Snapshot fan-out.
func (p *Prober) FirewalldActive(ctx context.Context) bool {
	active, _ := p.firewalldActive(ctx)
	return active
}

// Snapshot fans the independent probes out concurrently and joins them
// under ctx's deadline, per spec §5 ("platform probes bounded per
// invocation; stale inventory preferred to a hung start").
func (p *Prober) Snapshot(ctx context.Context) (PlatformFacts, error) {
	var facts PlatformFacts
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		radios, err := p.radios(ctx)
		facts.Radios = radios
		return err
	})
	g.Go(func() error {
		ifname, err := p.defaultRouteInterface(ctx)
		facts.DefaultRouteIf = ifname
		return err
	})
	g.Go(func() error {
		active, err := p.firewalldActive(ctx)
		facts.FirewalldActive = active
		return err
	})
	g.Go(func() error {
		v, err := p.binaryVersion(ctx, "hostapd", "-v")
		facts.HostapdVersion = v
		return err
	})
	g.Go(func() error {
		v, err := p.binaryVersion(ctx, "dnsmasq", "--version")
		facts.DnsmasqVersion = v
		return err
	})

	if err := g.Wait(); err != nil {
		return facts, fmt.Errorf("probes: platform_probe_failed: %w", err)
	}

	minSAE := semver.MustParse("2.9.0")
	facts.SupportsWPA3SAE = facts.HostapdVersion.GE(minSAE)
	return facts, nil
}

// radios enumerates `iw dev` interfaces, then fills in per-phy
// capability, regdom, and rfkill state.
func (p *Prober) radios(ctx context.Context) ([]RadioFacts, error) {
	out, err := p.cmd.Output("iw", "dev")
	if err != nil {
		return nil, fmt.Errorf("iw dev: %w", err)
	}

	var radios []RadioFacts
	var cur *RadioFacts
	phyRe := regexp.MustCompile(`^phy#(\d+)`)
	ifaceRe := regexp.MustCompile(`^\s*Interface (\S+)`)
	addrRe := regexp.MustCompile(`^\s*addr ([0-9a-f:]{17})`)

	for _, line := range strings.Split(string(out), "\n") {
		switch {
		case phyRe.MatchString(line):
			m := phyRe.FindStringSubmatch(line)
			cur = &RadioFacts{Phy: "phy" + m[1]}
			radios = append(radios, *cur)
			cur = &radios[len(radios)-1]
		case cur != nil && ifaceRe.MatchString(line):
			cur.Ifname = ifaceRe.FindStringSubmatch(line)[1]
		case cur != nil && addrRe.MatchString(line):
			cur.MAC = addrRe.FindStringSubmatch(line)[1]
		}
	}

	regdom, _ := p.regDomain(ctx)
	rfBlocked, _ := p.rfkillBlocked(ctx)

	for i := range radios {
		caps, err := p.phyCapability(ctx, radios[i].Phy)
		if err != nil {
			return nil, err
		}
		radios[i].SupportsAP = caps.supportsAP
		radios[i].Supports24GHz = caps.supports24
		radios[i].Supports5GHz = caps.supports5
		radios[i].Supports6GHz = caps.supports6
		radios[i].Supports80MHz = caps.supports80mhz
		radios[i].Supports80211ax = caps.supports80211ax
		radios[i].RegDomain = regdom
		radios[i].RfkillBlocked = rfBlocked
		radios[i].Bus = p.busFor(ctx, radios[i].Ifname)
	}

	return radios, nil
}

// busFor resolves the interface's sysfs "device" symlink target to tell
// a USB radio apart from a PCI or embedded one (spec §3's Adapter.bus),
// the same sysfs-inspection idiom the rest of this package uses instead
// of a netlink library.
func (p *Prober) busFor(ctx context.Context, ifname string) string {
	out, err := p.cmd.Output("readlink", "-f", "/sys/class/net/"+ifname+"/device")
	if err != nil {
		return "unknown"
	}
	path := strings.TrimSpace(string(out))
	switch {
	case path == "":
		return "unknown"
	case strings.Contains(path, "/usb"):
		return "usb"
	case strings.Contains(path, "/pci"):
		return "pci"
	default:
		return "embedded"
	}
}

type phyCaps struct {
	supportsAP, supports24, supports5, supports6, supports80mhz, supports80211ax bool
}

func (p *Prober) phyCapability(ctx context.Context, phy string) (phyCaps, error) {
	out, err := p.cmd.Output("iw", "phy", phy, "info")
	if err != nil {
		return phyCaps{}, fmt.Errorf("iw phy %s info: %w", phy, err)
	}
	s := string(out)
	return phyCaps{
		supportsAP:      strings.Contains(s, "* AP"),
		supports24:      strings.Contains(s, "Band 1:"),
		supports5:       strings.Contains(s, "Band 2:"),
		supports6:       strings.Contains(s, "Band 4:"),
		supports80mhz:   strings.Contains(s, "VHT Capabilities") || strings.Contains(s, "HE"),
		supports80211ax: strings.Contains(s, "HE Iftypes") || strings.Contains(s, "HE PHY Capabilities"),
	}, nil
}

func (p *Prober) regDomain(ctx context.Context) (string, error) {
	out, err := p.cmd.Output("iw", "reg", "get")
	if err != nil {
		return "00", fmt.Errorf("iw reg get: %w", err)
	}
	re := regexp.MustCompile(`country (\w\w):`)
	if m := re.FindStringSubmatch(string(out)); len(m) == 2 {
		return m[1], nil
	}
	return "00", nil
}

func (p *Prober) rfkillBlocked(ctx context.Context) (bool, error) {
	out, err := p.cmd.Output("rfkill", "list")
	if err != nil {
		return false, fmt.Errorf("rfkill list: %w", err)
	}
	return strings.Contains(string(out), "Soft blocked: yes") ||
		strings.Contains(string(out), "Hard blocked: yes"), nil
}

func (p *Prober) defaultRouteInterface(ctx context.Context) (string, error) {
	out, err := p.cmd.Output("ip", "route")
	if err != nil {
		return "", fmt.Errorf("ip route: %w", err)
	}
	re := regexp.MustCompile(`^default via \S+ dev (\S+)`)
	for _, line := range strings.Split(string(out), "\n") {
		if m := re.FindStringSubmatch(line); len(m) == 2 {
			return m[1], nil
		}
	}
	return "", nil
}

func (p *Prober) firewalldActive(ctx context.Context) (bool, error) {
	out, err := p.cmd.CombinedOutput("firewall-cmd", "--state")
	if err != nil {
		// Absent firewall-cmd or "not running" both mean: use the
		// direct-rules backend. Not a probe failure.
		return false, nil
	}
	return strings.TrimSpace(string(out)) == "running", nil
}

// binaryVersion runs `<bin> <versionFlag>` and parses the first
// semver-shaped token out of the output. Missing binaries return a
// zero version, not an error — capability gating treats that as
// "feature unavailable", and engine spawn is where missing_binary is
// actually surfaced.
func (p *Prober) binaryVersion(ctx context.Context, bin string, versionFlag string) (semver.Version, error) {
	out, err := p.cmd.CombinedOutput(bin, versionFlag)
	if err != nil {
		return semver.Version{}, nil
	}
	re := regexp.MustCompile(`(\d+)\.(\d+)(?:\.(\d+))?`)
	m := re.FindStringSubmatch(string(out))
	if m == nil {
		return semver.Version{}, nil
	}
	patch := "0"
	if m[3] != "" {
		patch = m[3]
	}
	v, err := semver.Parse(fmt.Sprintf("%s.%s.%s", m[1], m[2], patch))
	if err != nil {
		return semver.Version{}, nil
	}
	return v, nil
}
