package inventory

import (
	"context"
	"testing"

	"github.com/strct-org/hotspotd/internal/platform/probes"
)

type fakeProber struct {
	facts probes.PlatformFacts
	err   error
}

func (f *fakeProber) Snapshot(ctx context.Context) (probes.PlatformFacts, error) {
	return f.facts, f.err
}

func TestTakeSnapshot_RanksAPAndFiveGHzFirst(t *testing.T) {
	fp := &fakeProber{facts: probes.PlatformFacts{
		Radios: []probes.RadioFacts{
			{Ifname: "wlan1", Phy: "phy1", SupportsAP: false, Supports24GHz: true},
			{Ifname: "wlan0", Phy: "phy0", SupportsAP: true, Supports5GHz: true, Supports24GHz: true},
		},
	}}

	inv := New(fp)
	snap := inv.TakeSnapshot(context.Background())

	if len(snap.Adapters) != 2 {
		t.Fatalf("expected 2 adapters, got %d", len(snap.Adapters))
	}
	if snap.Adapters[0].Ifname != "wlan0" {
		t.Errorf("Adapters[0] = %q, want wlan0 (AP+5GHz) ranked first", snap.Adapters[0].Ifname)
	}
	if snap.Recommended != "wlan0" {
		t.Errorf("Recommended = %q, want wlan0", snap.Recommended)
	}
}

func TestTakeSnapshot_DeterministicOrderForIdenticalInput(t *testing.T) {
	facts := probes.PlatformFacts{
		Radios: []probes.RadioFacts{
			{Ifname: "wlan0", Phy: "phy0", SupportsAP: true, Supports5GHz: true},
			{Ifname: "wlan1", Phy: "phy1", SupportsAP: true, Supports5GHz: true},
		},
	}

	inv := New(&fakeProber{facts: facts})
	snap1 := inv.TakeSnapshot(context.Background())
	snap2 := inv.TakeSnapshot(context.Background())

	if snap1.Adapters[0].Ifname != snap2.Adapters[0].Ifname {
		t.Errorf("non-deterministic order: %q vs %q", snap1.Adapters[0].Ifname, snap2.Adapters[0].Ifname)
	}
	// Tied on everything but ifname: stable sort on ifname breaks the tie.
	if snap1.Adapters[0].Ifname != "wlan0" {
		t.Errorf("expected tie-break on ifname to prefer wlan0, got %q", snap1.Adapters[0].Ifname)
	}
}

func TestTakeSnapshot_ExcludesRfkillBlocked(t *testing.T) {
	fp := &fakeProber{facts: probes.PlatformFacts{
		Radios: []probes.RadioFacts{
			{Ifname: "wlan0", Phy: "phy0", SupportsAP: true, RfkillBlocked: true},
		},
	}}
	inv := New(fp)
	snap := inv.TakeSnapshot(context.Background())
	if len(snap.Adapters) != 0 {
		t.Errorf("expected rfkill-blocked adapter excluded, got %d adapters", len(snap.Adapters))
	}
	if len(snap.Warnings) == 0 {
		t.Error("expected a warning about the excluded adapter")
	}
}

func TestTakeSnapshot_USBOutranksEmbeddedOfEqualBandSupport(t *testing.T) {
	fp := &fakeProber{facts: probes.PlatformFacts{
		Radios: []probes.RadioFacts{
			{Ifname: "wlan0", Phy: "phy0", SupportsAP: true, Supports5GHz: true, Bus: "embedded"},
			{Ifname: "wlan1", Phy: "phy1", SupportsAP: true, Supports5GHz: true, Bus: "usb"},
		},
	}}
	inv := New(fp)
	snap := inv.TakeSnapshot(context.Background())
	if snap.Adapters[0].Ifname != "wlan1" {
		t.Errorf("Adapters[0] = %q, want wlan1 (usb outranks embedded of equal band support)", snap.Adapters[0].Ifname)
	}
	if snap.Adapters[0].Bus != BusUSB {
		t.Errorf("Adapters[0].Bus = %q, want %q", snap.Adapters[0].Bus, BusUSB)
	}
}

func TestSelectFor_No6GHzAdapterReturnsSpecificError(t *testing.T) {
	fp := &fakeProber{facts: probes.PlatformFacts{
		Radios: []probes.RadioFacts{
			{Ifname: "wlan0", Phy: "phy0", SupportsAP: true, Supports5GHz: true},
		},
	}}
	inv := New(fp)
	_, err := inv.SelectFor(context.Background(), Band6, "")
	if err == nil {
		t.Fatal("expected no_6ghz_ap_adapter error")
	}
}

func TestSelectFor_RequestedIfnameNotFound(t *testing.T) {
	fp := &fakeProber{facts: probes.PlatformFacts{
		Radios: []probes.RadioFacts{
			{Ifname: "wlan0", Phy: "phy0", SupportsAP: true, Supports5GHz: true},
		},
	}}
	inv := New(fp)
	_, err := inv.SelectFor(context.Background(), Band5, "wlan9")
	if err == nil {
		t.Fatal("expected adapter_not_found error")
	}
}

func TestSelectFor_RequestedIfnameWithoutAPMode(t *testing.T) {
	fp := &fakeProber{facts: probes.PlatformFacts{
		Radios: []probes.RadioFacts{
			{Ifname: "wlan0", Phy: "phy0", SupportsAP: false, Supports5GHz: true},
		},
	}}
	inv := New(fp)
	_, err := inv.SelectFor(context.Background(), Band5, "wlan0")
	if err == nil {
		t.Fatal("expected adapter_no_ap_mode error")
	}
}

func TestSelectFor_PicksBestAlternativeWhenNoneRequested(t *testing.T) {
	fp := &fakeProber{facts: probes.PlatformFacts{
		Radios: []probes.RadioFacts{
			{Ifname: "wlan0", Phy: "phy0", SupportsAP: true, Supports5GHz: true},
		},
	}}
	inv := New(fp)
	a, err := inv.SelectFor(context.Background(), Band5, "")
	if err != nil {
		t.Fatalf("SelectFor() error = %v", err)
	}
	if a.Ifname != "wlan0" {
		t.Errorf("SelectFor() = %q, want wlan0", a.Ifname)
	}
}
