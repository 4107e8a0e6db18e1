package probes

import (
	"context"
	"testing"

	"github.com/strct-org/hotspotd/internal/platform/executil"
)

func TestSnapshot_ParsesDevStubs(t *testing.T) {
	m := &executil.Mock{}
	m.Expect("hostapd -v", executil.MockResult{Output: []byte("hostapd v2.10-devbuild")})
	m.Expect("dnsmasq --version", executil.MockResult{Output: []byte("Dnsmasq version 2.90")})
	m.Expect("iw dev", executil.MockResult{Output: []byte(fakeIwDev)})
	m.Expect("iw phy phy0 info", executil.MockResult{Output: []byte(fakeIwPhy)})
	m.Expect("iw reg get", executil.MockResult{Output: []byte(fakeIwReg)})
	m.Expect("rfkill list", executil.MockResult{Output: []byte(fakeRfkill)})
	m.Expect("ip route", executil.MockResult{Output: []byte(fakeIPRoute)})
	m.Expect("firewall-cmd --state", executil.MockResult{Output: []byte("running\n")})
	m.Expect("readlink -f /sys/class/net/wlan0vr/device", executil.MockResult{Output: []byte("/sys/devices/pci0000:00/0000:00:14.0/usb1/1-2/1-2:1.0/net/wlan0vr\n")})

	p := New(m)
	facts, err := p.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}

	if len(facts.Radios) != 1 {
		t.Fatalf("expected 1 radio, got %d", len(facts.Radios))
	}
	r := facts.Radios[0]
	if r.Ifname != "wlan0vr" {
		t.Errorf("Ifname = %q, want wlan0vr", r.Ifname)
	}
	if r.MAC != "de:ad:be:ef:00:01" {
		t.Errorf("MAC = %q, want de:ad:be:ef:00:01", r.MAC)
	}
	if !r.SupportsAP {
		t.Error("expected SupportsAP = true")
	}
	if !r.Supports24GHz || !r.Supports5GHz {
		t.Error("expected both 2.4 and 5 GHz bands")
	}
	if r.Supports6GHz {
		t.Error("fake phy has no Band 4, expected Supports6GHz = false")
	}
	if r.RegDomain != "US" {
		t.Errorf("RegDomain = %q, want US", r.RegDomain)
	}
	if r.RfkillBlocked {
		t.Error("expected RfkillBlocked = false")
	}
	if r.Bus != "usb" {
		t.Errorf("Bus = %q, want usb (sysfs device path contains /usb1/)", r.Bus)
	}

	if facts.DefaultRouteIf != "eth0" {
		t.Errorf("DefaultRouteIf = %q, want eth0", facts.DefaultRouteIf)
	}
	if !facts.FirewalldActive {
		t.Error("expected FirewalldActive = true")
	}
	if facts.HostapdVersion.String() != "2.10.0" {
		t.Errorf("HostapdVersion = %v, want 2.10.0", facts.HostapdVersion)
	}
	if !facts.SupportsWPA3SAE {
		t.Error("hostapd 2.10 should satisfy SAE >= 2.9.0")
	}
}

func TestSnapshot_OldHostapdHasNoSAE(t *testing.T) {
	m := &executil.Mock{}
	m.Expect("hostapd -v", executil.MockResult{Output: []byte("hostapd v2.6")})
	m.Expect("dnsmasq --version", executil.MockResult{Output: []byte("Dnsmasq version 2.75")})
	m.Expect("iw dev", executil.MockResult{Output: []byte("")})
	m.Expect("iw reg get", executil.MockResult{Output: []byte(fakeIwReg)})
	m.Expect("rfkill list", executil.MockResult{Output: []byte(fakeRfkill)})
	m.Expect("ip route", executil.MockResult{Output: []byte("")})

	p := New(m)
	facts, err := p.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if facts.SupportsWPA3SAE {
		t.Error("hostapd 2.6 should not satisfy SAE >= 2.9.0")
	}
}

func TestBinaryVersion_MissingBinaryReturnsZeroVersion(t *testing.T) {
	m := &executil.Mock{}
	m.Expect("hostapd -v", executil.MockResult{Err: context.DeadlineExceeded})

	p := New(m)
	v, err := p.binaryVersion(context.Background(), "hostapd", "-v")
	if err != nil {
		t.Fatalf("binaryVersion() error = %v, want nil (missing binary is not a probe failure)", err)
	}
	if v.String() != "0.0.0" {
		t.Errorf("version = %v, want zero value", v)
	}
}

func TestFirewalldActive_AbsentBinaryIsFalseNotError(t *testing.T) {
	m := &executil.Mock{}
	m.Expect("firewall-cmd --state", executil.MockResult{Err: context.DeadlineExceeded})

	p := New(m)
	active, err := p.firewalldActive(context.Background())
	if err != nil {
		t.Fatalf("firewalldActive() error = %v", err)
	}
	if active {
		t.Error("expected false when firewall-cmd is unavailable")
	}
}
