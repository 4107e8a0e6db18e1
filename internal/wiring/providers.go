// Package wiring documents the provider graph cmd/hotspotd assembles
// into a *lifecycle.Core (spec §2's dependency-injection wiring item),
// following the teacher's internal/config.ProvideDataDir/ProvideAppDir
// naming convention for wire provider functions.
package wiring

import (
	"context"
	"path/filepath"

	"github.com/strct-org/hotspotd/internal/config"
	"github.com/strct-org/hotspotd/internal/configstore"
	"github.com/strct-org/hotspotd/internal/engine"
	"github.com/strct-org/hotspotd/internal/firewall"
	"github.com/strct-org/hotspotd/internal/inventory"
	"github.com/strct-org/hotspotd/internal/lifecycle"
	"github.com/strct-org/hotspotd/internal/platform/executil"
	"github.com/strct-org/hotspotd/internal/platform/probes"
	"github.com/strct-org/hotspotd/internal/readiness"
	"github.com/strct-org/hotspotd/internal/telemetry"
	"github.com/strct-org/hotspotd/internal/tuner"
)

// ProvideRunner picks the command runner: DevRunner stubs the
// hardware-only commands in dev mode (see executil/dev.go), Real runs
// them for true.
func ProvideRunner(cfg *config.Config) executil.Runner {
	if cfg.IsDev {
		return executil.NewDevRunner()
	}
	return executil.Real{}
}

func ProvideProber(runner executil.Runner) *probes.Prober {
	return probes.New(runner)
}

func ProvideInventory(prober *probes.Prober) *inventory.Inventory {
	return inventory.New(prober)
}

func ProvideFirewallDetector(prober *probes.Prober) firewall.Detector {
	return func() bool { return prober.FirewalldActive(context.Background()) }
}

func ProvideTuner(runner executil.Runner) *tuner.Tuner {
	return tuner.New(runner)
}

func ProvideStore(cfg *config.Config) *configstore.Store {
	return configstore.NewStore(cfg.DataDir)
}

func ProvideSpawner() engine.Spawner {
	return &engine.RealSpawner{ConfigDirFor: engine.ConfigDirFor}
}

// ProvideReadinessFactory builds the per-attempt readiness ports: the
// control socket only once the engine has actually discovered a config
// dir (direct6 backend), the command-based fallback state reader
// always.
func ProvideReadinessFactory(runner executil.Runner, cfg *config.Config) lifecycle.ReadinessFactory {
	return func(plan engine.Plan, configDir string) lifecycle.ReadinessPorts {
		ports := lifecycle.ReadinessPorts{
			State: readiness.NewCommandStateReader(runner, cfg.DaemonID),
		}
		if configDir != "" {
			ports.Socket = &readiness.UnixControlSocket{ServerPath: filepath.Join(configDir, plan.APInterface)}
		}
		return ports
	}
}

func ProvideStationReaderFactory(runner executil.Runner) lifecycle.StationReaderFactory {
	return func(plan engine.Plan) telemetry.StationReader {
		return &telemetry.CommandStationReader{Cmd: runner}
	}
}

func ProvideTunerPlanFactory() lifecycle.TunerPlanFactory {
	return tuner.PlanFromConfig
}

func ProvideDeps(
	cfg *config.Config,
	store *configstore.Store,
	inv *inventory.Inventory,
	spawner engine.Spawner,
	runner executil.Runner,
	detect firewall.Detector,
	tu *tuner.Tuner,
	readinessFor lifecycle.ReadinessFactory,
	stationReaderFor lifecycle.StationReaderFactory,
	tunerPlanFor lifecycle.TunerPlanFactory,
) lifecycle.Deps {
	return lifecycle.Deps{
		Store:    store,
		Inv:      inv,
		Spawner:  spawner,
		FWCmd:    runner,
		FWDetect: detect,
		Tuner:    tu,

		TunerPlanFor:     tunerPlanFor,
		ReadinessFor:     readinessFor,
		StationReaderFor: stationReaderFor,

		DaemonID: cfg.DaemonID,
	}
}
