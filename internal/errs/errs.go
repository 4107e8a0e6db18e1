// Package errs defines the single error sum type every hotspotd package
// constructs on failure. It descends from the Op/Kind/Err/Message shape,
// extended with Code (the stable result_code surfaced to the control
// plane) and Detail (remediation + accumulated warnings, spec §3/§7/§9).
package errs

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
)

type Kind uint8

const (
	KindOther        Kind = iota // Unclassified — maps to 500
	KindIO                       // Disk / filesystem issues — 500
	KindNetwork                  // DNS, ping, readiness — 503
	KindInvalid                  // Validation / bad config — 400
	KindUnauthorized             // reserved for the (external) control plane
	KindNotFound                 // adapter / config / route not found — 404
	KindSystem                   // OS-level failures (exec, mount) — 500

	KindLifecycle  // already_running, already_stopped, lifecycle_busy — 409
	KindAdapter    // adapter_not_found, adapter_no_ap_mode, no_6ghz_ap_adapter — 404
	KindRegulatory // hostapd_invalid_country_code_for_80211d, country_not_set — 400
	KindEngine     // missing_binary, dependency_missing, engine_*, driver_rejected_channel — 500
	KindReadiness  // ap_ready_timeout, ap_interface_not_up, ap_type_mismatch, ssid_not_advertised — 503
	KindFirewall   // firewall_apply_failed, firewall_revert_incomplete — 500
	KindTuning     // tuning_partially_applied (warning-class, never fatal) — 500
)

// Code is the stable result_code string surfaced on LifecycleResult.
type Code string

const (
	CodeOK                  Code = "ok"
	CodeStarted             Code = "started"
	CodeStartedWithFallback Code = "started_with_fallback"
	CodeStopped             Code = "stopped"
	CodeRepaired            Code = "repaired"
	CodeRestarted           Code = "restarted"

	CodeAlreadyRunning Code = "already_running"
	CodeAlreadyStopped Code = "already_stopped"
	CodeLifecycleBusy  Code = "lifecycle_busy"
	CodeCanceled       Code = "canceled"

	CodeConfigInvalid           Code = "config_invalid"
	CodePassphraseNotSet        Code = "passphrase_not_set"
	CodePassphraseInvalidLength Code = "passphrase_invalid_length"
	CodeConfirmationRequired    Code = "confirmation_required"

	CodeAdapterNotFound Code = "adapter_not_found"
	CodeAdapterNoAPMode Code = "adapter_no_ap_mode"
	CodeNo6GHzAPAdapter Code = "no_6ghz_ap_adapter"

	CodeInvalidCountryFor80211d Code = "hostapd_invalid_country_code_for_80211d"
	CodeCountryNotSet           Code = "country_not_set"

	CodeMissingBinary         Code = "missing_binary"
	CodeDependencyMissing     Code = "dependency_missing"
	CodeEngineSpawnFailed     Code = "engine_spawn_failed"
	CodeEngineCrashEarly      Code = "engine_crash_early"
	CodeEngineCrashLate       Code = "engine_crash_late"
	CodeDriverRejectedChannel Code = "driver_rejected_channel"

	CodeAPReadyTimeout   Code = "ap_ready_timeout"
	CodeAPInterfaceNotUp Code = "ap_interface_not_up"
	CodeAPTypeMismatch   Code = "ap_type_mismatch"
	CodeSSIDNotAdvertised Code = "ssid_not_advertised"

	CodeFirewallApplyFailed      Code = "firewall_apply_failed"
	CodeFirewallRevertIncomplete Code = "firewall_revert_incomplete"

	CodeTuningPartiallyApplied Code = "tuning_partially_applied"
	CodeInternalError          Code = "internal_error"
)

type Op string

// Detail is Status.last_error_detail: a short remediation sentence plus
// the warnings accumulated across fallback attempts.
type Detail struct {
	Title       string   `json:"title"`
	Remediation string   `json:"remediation,omitempty"`
	Errors      []string `json:"errors,omitempty"`
}

// Error is hotspotd's error sum type.
type Error struct {
	Op      Op
	Kind    Kind
	Code    Code
	Err     error
	Message string
	Detail  *Detail
}

// E builds an *Error from a mix of typed arguments.
//
//	errs.E(opStart, errs.KindEngine, errs.CodeMissingBinary, err, "hostapd not found")
func E(args ...any) error {
	e := &Error{}
	for _, arg := range args {
		switch v := arg.(type) {
		case Op:
			e.Op = v
		case Kind:
			e.Kind = v
		case Code:
			e.Code = v
		case error:
			e.Err = v
		case string:
			e.Message = v
		case *Detail:
			e.Detail = v
		case *Error:
			cp := *v
			e.Err = &cp
		}
	}
	return e
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(string(e.Op))
	}
	if e.Message != "" {
		if b.Len() > 0 {
			b.WriteString(": ")
		}
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		if b.Len() > 0 {
			b.WriteString(": ")
		}
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// As reports whether err is (or wraps) an *Error.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// CodeOf returns the result_code attached to err, or internal_error if
// err doesn't carry one.
func CodeOf(err error) Code {
	if err == nil {
		return CodeOK
	}
	if e, ok := As(err); ok && e.Code != "" {
		return e.Code
	}
	return CodeInternalError
}

// DetailOf returns the Detail attached to err, or a bare one built from
// err.Error() if none was set.
func DetailOf(err error) *Detail {
	if e, ok := As(err); ok {
		if e.Detail != nil {
			return e.Detail
		}
		return &Detail{Title: e.Error()}
	}
	return &Detail{Title: err.Error()}
}

func kindToStatus(k Kind) int {
	switch k {
	case KindInvalid, KindRegulatory:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindNotFound, KindAdapter:
		return http.StatusNotFound
	case KindNetwork, KindReadiness:
		return http.StatusServiceUnavailable
	case KindLifecycle:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// HTTPResponse is kept for the (external, out-of-scope) control plane's
// convenience when it wraps one of our errors — the core itself never
// listens on HTTP.
func HTTPResponse(w http.ResponseWriter, err error) {
	slog.Error("errs: request failed", "err", err)

	code := http.StatusInternalServerError
	msg := "internal server error"

	if e, ok := As(err); ok {
		code = kindToStatus(e.Kind)
		if e.Message != "" {
			msg = e.Message
		} else if code != http.StatusInternalServerError && e.Err != nil {
			msg = e.Err.Error()
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
