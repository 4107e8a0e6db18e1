package configstore

import (
	"net"
	"regexp"
	"unicode"
)

var ssidControlChar = regexp.MustCompile(`[\x00-\x1f\x7f]`)

// Validate enforces every invariant in spec §3 and returns the full
// list of violations rather than stopping at the first (spec §4.2).
func Validate(cfg Config, passphraseSet bool, passphraseLen int) []FieldError {
	var errs []FieldError

	if len(cfg.SSID) == 0 || len(cfg.SSID) > 32 {
		errs = append(errs, FieldError{"ssid", "must be 1..32 octets"})
	} else if ssidControlChar.MatchString(cfg.SSID) {
		errs = append(errs, FieldError{"ssid", "must not contain control characters"})
	}

	if passphraseSet && (passphraseLen < 8 || passphraseLen > 63) {
		errs = append(errs, FieldError{"wpa2_passphrase", "must be 8..63 printable octets"})
	}

	switch cfg.BandPreference {
	case BandRecommended, Band24GHz, Band5GHz, Band6GHz:
	default:
		errs = append(errs, FieldError{"band_preference", "invalid band"})
	}

	switch cfg.APSecurity {
	case SecurityWPA2, SecurityWPA3_SAE:
	default:
		errs = append(errs, FieldError{"ap_security", "invalid security mode"})
	}

	// 6 GHz band forces ap_security = wpa3_sae.
	if cfg.BandPreference == Band6GHz && cfg.APSecurity != SecurityWPA3_SAE {
		errs = append(errs, FieldError{"ap_security", "6 GHz requires wpa3_sae"})
	}

	if cfg.Country != "" && !regexp.MustCompile(`^[A-Z]{2}$`).MatchString(cfg.Country) {
		errs = append(errs, FieldError{"country", "must be two uppercase letters"})
	}

	if cfg.Channel2GFallback < 1 || cfg.Channel2GFallback > 14 {
		errs = append(errs, FieldError{"channel_2g_fallback", "must be in [1, 14]"})
	}

	switch cfg.ChannelWidth {
	case 20, 40, 80:
	default:
		errs = append(errs, FieldError{"channel_width", "must be 20, 40, or 80"})
	}

	gw := net.ParseIP(cfg.LANGatewayIP)
	if gw == nil {
		errs = append(errs, FieldError{"lan_gateway_ip", "must be a valid IPv4 address"})
	} else {
		errs = append(errs, validateDHCPRange(cfg, gw)...)
	}

	switch cfg.QosPreset {
	case QoSOff, QoSVR, QoSBalanced, QoSUltraLowLatency, QoSHighThroughput:
	default:
		errs = append(errs, FieldError{"qos_preset", "invalid preset"})
	}

	if cfg.APReadyTimeoutS < 1.0 || cfg.APReadyTimeoutS > 30.0 {
		errs = append(errs, FieldError{"ap_ready_timeout_s", "must be in [1.0, 30.0]"})
	}
	if cfg.TelemetryEnable && cfg.TelemetryIntervalS < 0.5 {
		errs = append(errs, FieldError{"telemetry_interval_s", "must be >= 0.5"})
	}
	if cfg.WatchdogEnable && cfg.WatchdogIntervalS < 0.5 {
		errs = append(errs, FieldError{"watchdog_interval_s", "must be >= 0.5"})
	}

	if cfg.BridgeMode && cfg.BridgeUplinkIfname == "" {
		errs = append(errs, FieldError{"bridge_uplink_ifname", "required when bridge_mode is set"})
	}

	return errs
}

// validateDHCPRange enforces "dhcp_start_ip and dhcp_end_ip must lie in
// the /24 of lan_gateway_ip and not equal the gateway" (spec §3).
func validateDHCPRange(cfg Config, gw net.IP) []FieldError {
	var errs []FieldError
	_, cidr, err := net.ParseCIDR(gw.String() + "/24")
	if err != nil {
		return errs
	}

	start := net.ParseIP(cfg.DHCPStartIP)
	end := net.ParseIP(cfg.DHCPEndIP)

	if start == nil || !cidr.Contains(start) || start.Equal(gw) {
		errs = append(errs, FieldError{"dhcp_start_ip", "must lie in the gateway's /24 and differ from the gateway"})
	}
	if end == nil || !cidr.Contains(end) || end.Equal(gw) {
		errs = append(errs, FieldError{"dhcp_end_ip", "must lie in the gateway's /24 and differ from the gateway"})
	}
	return errs
}

// isPrintable reports whether every rune in s is a printable,
// non-control character — used when validating a passphrase's actual
// content (not just its length) before it is persisted.
func isPrintable(s string) bool {
	for _, r := range s {
		if !unicode.IsPrint(r) || unicode.IsControl(r) {
			return false
		}
	}
	return true
}
