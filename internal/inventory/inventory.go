// Package inventory turns probes.PlatformFacts into a scored,
// band-annotated adapter list and picks a recommended adapter (spec
// §4.1). A snapshot is never mutated in place — each read replaces the
// prior one with a fresh value.
package inventory

import (
	"context"
	"fmt"
	"sort"

	"github.com/strct-org/hotspotd/internal/errs"
	"github.com/strct-org/hotspotd/internal/platform/probes"
)

type Bus string

const (
	BusUSB      Bus = "usb"
	BusPCI      Bus = "pci"
	BusEmbedded Bus = "embedded"
	BusUnknown  Bus = "unknown"
)

type Band string

const (
	Band24  Band = "2.4ghz"
	Band5   Band = "5ghz"
	Band6   Band = "6ghz"
	BandRec Band = "recommended"
)

// Adapter is a single scored, band-annotated radio snapshot (spec §3).
type Adapter struct {
	Ifname string
	Phy    string
	Bus    Bus
	Driver string
	MAC    string

	SupportsAP      bool
	Supports24GHz   bool
	Supports5GHz    bool
	Supports6GHz    bool
	Supports80MHz   bool
	Supports80211ax bool

	RegDomain string
	Score     int
}

// Snapshot is the read-only result of one inventory read: the ranked
// adapter list plus a pointer at the single recommended one.
type Snapshot struct {
	Adapters    []Adapter
	Recommended string // ifname, empty if none qualify
	Warnings    []string
}

const opSnapshot errs.Op = "inventory.Snapshot"
const opSelectFor errs.Op = "inventory.SelectFor"

// Prober is the subset of *probes.Prober inventory depends on.
type Prober interface {
	Snapshot(ctx context.Context) (probes.PlatformFacts, error)
}

type Inventory struct {
	prober Prober
}

func New(prober Prober) *Inventory {
	return &Inventory{prober: prober}
}

// TakeSnapshot reads the host's current radio inventory. Read-only, no
// retries — probe failures become a platform_probe_failed warning
// rather than an error, since a stale/partial inventory is still useful
// (spec §4.1).
func (inv *Inventory) TakeSnapshot(ctx context.Context) Snapshot {
	facts, err := inv.prober.Snapshot(ctx)
	var snap Snapshot
	if err != nil {
		snap.Warnings = append(snap.Warnings, fmt.Sprintf("platform_probe_failed: %v", err))
	}

	for _, r := range facts.Radios {
		if r.RfkillBlocked {
			snap.Warnings = append(snap.Warnings, fmt.Sprintf("adapter %s rfkill-blocked, excluded", r.Ifname))
			continue
		}
		a := Adapter{
			Ifname:          r.Ifname,
			Phy:             r.Phy,
			Bus:             classifyBus(r.Bus),
			Driver:          r.Driver,
			MAC:             r.MAC,
			SupportsAP:      r.SupportsAP,
			Supports24GHz:   r.Supports24GHz,
			Supports5GHz:    r.Supports5GHz,
			Supports6GHz:    r.Supports6GHz,
			Supports80MHz:   r.Supports80MHz,
			Supports80211ax: r.Supports80211ax,
			RegDomain:       r.RegDomain,
		}
		a.Score = score(a)
		snap.Adapters = append(snap.Adapters, a)
	}

	sortAdapters(snap.Adapters)
	if len(snap.Adapters) > 0 && snap.Adapters[0].SupportsAP {
		snap.Recommended = snap.Adapters[0].Ifname
	}
	return snap
}

// score is deterministic: identical probe output always yields an
// identical order (spec §4.1). Tie-break: supports_ap > supports_5ghz >
// bus=usb > higher-score radios first > stable sort on ifname.
func score(a Adapter) int {
	s := 0
	if a.SupportsAP {
		s += 1000
	}
	if a.Supports6GHz {
		s += 400
	}
	if a.Supports5GHz {
		s += 200
	}
	if a.Supports24GHz {
		s += 50
	}
	if a.Bus == BusUSB {
		s += 100
	}
	if a.Supports80MHz {
		s += 20
	}
	if a.Supports80211ax {
		s += 10
	}
	return s
}

func sortAdapters(a []Adapter) {
	sort.SliceStable(a, func(i, j int) bool {
		if a[i].SupportsAP != a[j].SupportsAP {
			return a[i].SupportsAP
		}
		if a[i].Supports5GHz != a[j].Supports5GHz {
			return a[i].Supports5GHz
		}
		if (a[i].Bus == BusUSB) != (a[j].Bus == BusUSB) {
			return a[i].Bus == BusUSB
		}
		if a[i].Score != a[j].Score {
			return a[i].Score > a[j].Score
		}
		return a[i].Ifname < a[j].Ifname
	})
}

// classifyBus maps probes.RadioFacts.Bus (itself derived from the
// sysfs "device" symlink target, see probes.Prober.busFor) onto the
// inventory's own Bus enum.
func classifyBus(busFact string) Bus {
	switch busFact {
	case "usb":
		return BusUSB
	case "pci":
		return BusPCI
	case "embedded":
		return BusEmbedded
	default:
		return BusUnknown
	}
}

// SelectFor resolves a requested band against the inventory, returning
// either the explicitly requested adapter (if it supports the band in
// AP mode) or the best qualifying alternative (spec §4.1).
func (inv *Inventory) SelectFor(ctx context.Context, band Band, requestedIfname string) (Adapter, error) {
	snap := inv.TakeSnapshot(ctx)

	if requestedIfname != "" {
		for _, a := range snap.Adapters {
			if a.Ifname == requestedIfname {
				if !a.SupportsAP {
					return Adapter{}, errs.E(opSelectFor, errs.KindAdapter, errs.CodeAdapterNoAPMode,
						fmt.Sprintf("adapter %s does not support AP mode", requestedIfname))
				}
				if !supportsBand(a, band) {
					return Adapter{}, errs.E(opSelectFor, errs.KindAdapter, errs.CodeAdapterNoAPMode,
						fmt.Sprintf("adapter %s does not support band %s", requestedIfname, band))
				}
				return a, nil
			}
		}
		return Adapter{}, errs.E(opSelectFor, errs.KindAdapter, errs.CodeAdapterNotFound,
			fmt.Sprintf("adapter %s not found", requestedIfname))
	}

	for _, a := range snap.Adapters {
		if a.SupportsAP && (band == BandRec || supportsBand(a, band)) {
			return a, nil
		}
	}

	if band == Band6 {
		return Adapter{}, errs.E(opSelectFor, errs.KindAdapter, errs.CodeNo6GHzAPAdapter,
			"no 6 GHz-capable AP adapter available")
	}
	return Adapter{}, errs.E(opSelectFor, errs.KindAdapter, errs.CodeAdapterNotFound,
		"no AP-capable adapter available")
}

func supportsBand(a Adapter, band Band) bool {
	switch band {
	case Band24:
		return a.Supports24GHz
	case Band5:
		return a.Supports5GHz
	case Band6:
		return a.Supports6GHz
	case BandRec:
		return true
	default:
		return false
	}
}
