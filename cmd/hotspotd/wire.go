//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/strct-org/hotspotd/internal/config"
	"github.com/strct-org/hotspotd/internal/lifecycle"
	"github.com/strct-org/hotspotd/internal/wiring"
)

// initializeCore is the wire injector main would call if `go generate`
// ran; wire_gen.go is the hand-written expansion actually compiled,
// since nothing here invokes the wire binary (spec §2's DI wiring
// ambient-stack item).
func initializeCore(cfg *config.Config) (*lifecycle.Core, error) {
	wire.Build(
		wiring.ProvideRunner,
		wiring.ProvideProber,
		wiring.ProvideInventory,
		wiring.ProvideFirewallDetector,
		wiring.ProvideTuner,
		wiring.ProvideStore,
		wiring.ProvideSpawner,
		wiring.ProvideReadinessFactory,
		wiring.ProvideStationReaderFactory,
		wiring.ProvideTunerPlanFactory,
		wiring.ProvideDeps,
		lifecycle.New,
	)
	return nil, nil
}
