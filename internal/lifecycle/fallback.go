package lifecycle

import (
	"github.com/strct-org/hotspotd/internal/configstore"
	"github.com/strct-org/hotspotd/internal/engine"
	"github.com/strct-org/hotspotd/internal/errs"
)

// fallbackDecision is the outcome of consulting the fallback chain
// (spec §4.7) for one failed Starting attempt.
type fallbackDecision struct {
	retry  bool
	reason string
	band   configstore.BandPreference
	plan   engine.Plan // mutated fields only; caller re-resolves the adapter/backend
}

// maxFallbackAttempts bounds the number of backend attempts per start
// call (spec §8 property 7).
const maxFallbackAttempts = 3

// decideFallback implements spec §4.7's fallback chain. band is the
// band the failed attempt actually ran at (not necessarily the
// configured preference, since earlier retries may have already
// downgraded it).
func decideFallback(code errs.Code, band configstore.BandPreference, plan engine.Plan) fallbackDecision {
	switch code {
	case errs.CodeDriverRejectedChannel:
		if !plan.OptimizedNoVirt {
			next := plan
			next.OptimizedNoVirt = true
			return fallbackDecision{retry: true, reason: "driver_rejected_channel_retry_no_virt", band: band, plan: next}
		}
		if band == configstore.Band5GHz {
			return downgradeTo24(plan)
		}
		return fallbackDecision{}

	case errs.CodeAPReadyTimeout:
		if band == configstore.Band6GHz {
			next := plan
			next.Band = configstore.Band5GHz
			return fallbackDecision{retry: true, reason: "ap_ready_timeout_6ghz", band: configstore.Band5GHz, plan: next}
		}
		if band == configstore.Band5GHz {
			return downgradeTo24(plan)
		}
		return fallbackDecision{}

	case errs.CodeInvalidCountryFor80211d, errs.CodeMissingBinary, errs.CodeDependencyMissing:
		return fallbackDecision{}

	default:
		return fallbackDecision{}
	}
}

func downgradeTo24(plan engine.Plan) fallbackDecision {
	next := plan
	next.Band = configstore.Band24GHz
	next.Channel = 6
	return fallbackDecision{retry: true, reason: "fallback_to_2_4ghz", band: configstore.Band24GHz, plan: next}
}
