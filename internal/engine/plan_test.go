package engine

import (
	"strings"
	"testing"

	"github.com/strct-org/hotspotd/internal/configstore"
)

func TestSelectBackend(t *testing.T) {
	tests := []struct {
		name       string
		band       configstore.BandPreference
		security   configstore.APSecurity
		bridgeMode bool
		want       Backend
	}{
		{"6ghz forces direct", configstore.Band6GHz, configstore.SecurityWPA2, false, BackendDirect6},
		{"wpa3 sae forces direct regardless of band", configstore.Band5GHz, configstore.SecurityWPA3_SAE, false, BackendDirect6},
		{"bridge mode", configstore.Band5GHz, configstore.SecurityWPA2, true, BackendBridge},
		{"default orchestrator", configstore.Band5GHz, configstore.SecurityWPA2, false, BackendOrchestrator},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SelectBackend(tt.band, tt.security, tt.bridgeMode)
			if got != tt.want {
				t.Errorf("SelectBackend() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestArgv_RedactsPassphrase(t *testing.T) {
	p := Plan{
		Backend:      BackendOrchestrator,
		APInterface:  "wlan0",
		UplinkIfname: "eth0",
		SSID:         "VR-NET",
		Passphrase:   "correcthorse",
		Channel:      36,
	}
	_, args, redacted := argv(p)

	found := false
	for _, a := range args {
		if a == "correcthorse" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected real argv to contain the plaintext passphrase")
	}
	for _, a := range redacted {
		if a == "correcthorse" {
			t.Error("redacted argv leaks the passphrase")
		}
	}
	if !strings.Contains(strings.Join(redacted, " "), "REDACTED") {
		t.Error("redacted argv should contain a placeholder")
	}
}

func TestHostapdConf_WPA3SAEUsesSAEKeyMgmt(t *testing.T) {
	p := Plan{
		Backend:     BackendDirect6,
		APInterface: "wlan0",
		SSID:        "VR-NET",
		Passphrase:  "correcthorse",
		Security:    configstore.SecurityWPA3_SAE,
		Country:     "US",
		Channel:     37,
	}
	conf := hostapdConf(p)
	if !strings.Contains(conf, "wpa_key_mgmt=SAE") {
		t.Errorf("expected SAE key mgmt in conf:\n%s", conf)
	}
	if !strings.Contains(conf, "country_code=US") || !strings.Contains(conf, "ieee80211d=1") {
		t.Errorf("expected country/80211d directives in conf:\n%s", conf)
	}
}

func TestHostapdConf_NoCountryOmits80211D(t *testing.T) {
	p := Plan{APInterface: "wlan0", SSID: "VR-NET", Passphrase: "correcthorse", Security: configstore.SecurityWPA2}
	conf := hostapdConf(p)
	if strings.Contains(conf, "ieee80211d=1") {
		t.Errorf("expected no ieee80211d directive without a country, got:\n%s", conf)
	}
}

func TestDnsmasqConf_DefaultsToCloudflare(t *testing.T) {
	p := Plan{APInterface: "wlan0", GatewayIP: "192.168.100.1", DHCPStartIP: "192.168.100.50", DHCPEndIP: "192.168.100.150"}
	conf := dnsmasqConf(p)
	if !strings.Contains(conf, "server=1.1.1.1") {
		t.Errorf("expected default cloudflare resolver, got:\n%s", conf)
	}
}
