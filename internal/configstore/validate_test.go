package configstore

import "testing"

func TestValidate_ValidDefaultConfigHasNoErrors(t *testing.T) {
	cfg := New()
	if errs := Validate(cfg, true, 12); len(errs) != 0 {
		t.Errorf("Validate(defaults) = %+v, want no errors", errs)
	}
}

func TestValidate_SSIDTooLong(t *testing.T) {
	cfg := New()
	cfg.SSID = ""
	for i := 0; i < 40; i++ {
		cfg.SSID += "x"
	}
	errs := Validate(cfg, true, 12)
	if !hasField(errs, "ssid") {
		t.Errorf("expected ssid field error, got %+v", errs)
	}
}

func TestValidate_PassphraseLength(t *testing.T) {
	cfg := New()
	errs := Validate(cfg, true, 4)
	if !hasField(errs, "wpa2_passphrase") {
		t.Errorf("expected wpa2_passphrase field error for too-short passphrase, got %+v", errs)
	}
}

func TestValidate_ChannelFallbackOutOfRange(t *testing.T) {
	cfg := New()
	cfg.Channel2GFallback = 0
	errs := Validate(cfg, true, 12)
	if !hasField(errs, "channel_2g_fallback") {
		t.Errorf("expected channel_2g_fallback field error, got %+v", errs)
	}
}

func TestValidate_ReturnsFullListNotFirstFailure(t *testing.T) {
	cfg := New()
	cfg.SSID = ""
	cfg.Channel2GFallback = 99
	cfg.LANGatewayIP = "not-an-ip"

	errs := Validate(cfg, true, 12)
	if len(errs) < 3 {
		t.Errorf("expected at least 3 field errors accumulated, got %d: %+v", len(errs), errs)
	}
}

func hasField(errs []FieldError, field string) bool {
	for _, e := range errs {
		if e.Field == field {
			return true
		}
	}
	return false
}
