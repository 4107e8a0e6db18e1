// Package lifecycle owns the Start/Stop/Repair/Restart state machine
// (spec §4.7), serializing every call behind a single lock and
// publishing a Status snapshot observers can read without blocking. It
// is the composition point for every other component package.
package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/strct-org/hotspotd/internal/configstore"
	"github.com/strct-org/hotspotd/internal/engine"
	"github.com/strct-org/hotspotd/internal/errs"
	"github.com/strct-org/hotspotd/internal/firewall"
	"github.com/strct-org/hotspotd/internal/inventory"
	"github.com/strct-org/hotspotd/internal/readiness"
	"github.com/strct-org/hotspotd/internal/telemetry"
	"github.com/strct-org/hotspotd/internal/tuner"
)

const opStart errs.Op = "lifecycle.Start"

// ReadinessPorts bundles the two collaborators readiness.Await needs
// for one attempt; built per-attempt since they depend on the plan's
// interface and discovered config dir.
type ReadinessPorts struct {
	Socket readiness.ControlSocket
	State  readiness.StateReader
}

type (
	ReadinessFactory     func(plan engine.Plan, configDir string) ReadinessPorts
	StationReaderFactory func(plan engine.Plan) telemetry.StationReader
	TunerPlanFactory     func(cfg configstore.Config, adapter inventory.Adapter) tuner.Plan
)

// firewallCommander is the narrow subset of executil.Runner the
// firewall reconciler needs; threaded through so Core can build a
// fresh firewall.Reconciler per attempt (spec §4.5's backend choice is
// re-evaluated "at the moment of Start").
type firewallCommander interface {
	Run(name string, args ...string) error
	Output(name string, args ...string) ([]byte, error)
}

// Deps is every collaborator Core needs. Production wiring builds one
// from real implementations; tests build one from fakes/mocks.
type Deps struct {
	Store    *configstore.Store
	Inv      *inventory.Inventory
	Spawner  engine.Spawner
	FWCmd    firewallCommander
	FWDetect firewall.Detector
	Tuner    *tuner.Tuner

	TunerPlanFor     TunerPlanFactory
	ReadinessFor     ReadinessFactory
	StationReaderFor StationReaderFactory

	// AwaitReadiness defaults to readiness.Await; overridable so tests
	// can swap in a fast fake instead of driving a real ICMP/DNS round
	// trip against the readiness ports' control socket and state reader.
	AwaitReadiness   func(ctx context.Context, timeout time.Duration, sock readiness.ControlSocket, state readiness.StateReader, target readiness.Target) error
	TelemetryFactory func(reader telemetry.StationReader, ifname string, interval time.Duration) *telemetry.Sampler
	WatchdogFactory  func(interval time.Duration, checker func() telemetry.AliveChecker, onDeath func(ctx context.Context) error) *telemetry.Watchdog

	DaemonID  string
	StopGrace time.Duration
}

// Core is the lifecycle state machine (spec §4.7). One Core per
// daemon instance; tests instantiate several independent ones (spec §9
// design note on module-level singletons).
type Core struct {
	deps Deps
	sem  *semaphore.Weighted

	statusPtr atomic.Pointer[Status]

	mu           sync.Mutex
	handle       engine.EngineHandle
	fwReconciler firewall.Reconciler
	fwToken      firewall.RevertToken
	tunerLedger  *tuner.Ledger
	lastPlan     *engine.Plan

	bgCancel context.CancelFunc
	sampler  *telemetry.Sampler
}

func New(deps Deps) *Core {
	if deps.StopGrace == 0 {
		deps.StopGrace = 3 * time.Second
	}
	if deps.TelemetryFactory == nil {
		deps.TelemetryFactory = telemetry.New
	}
	if deps.WatchdogFactory == nil {
		deps.WatchdogFactory = func(interval time.Duration, checker func() telemetry.AliveChecker, onDeath func(ctx context.Context) error) *telemetry.Watchdog {
			return telemetry.NewWatchdog(interval, checker, onDeath)
		}
	}
	if deps.AwaitReadiness == nil {
		deps.AwaitReadiness = readiness.Await
	}
	c := &Core{deps: deps, sem: semaphore.NewWeighted(1)}
	c.statusPtr.Store(newStoppedStatus())
	return c
}

// Status returns a point-in-time copy of the published status. Safe
// to call concurrently with any in-flight lifecycle call.
func (c *Core) Status() Status { return *c.statusPtr.Load() }

func (c *Core) phase() Phase { return c.statusPtr.Load().Phase }

func (c *Core) publish(s *Status) { c.statusPtr.Store(s) }

func newCorrelationID(given string) string {
	if given != "" {
		return given
	}
	return uuid.NewString()
}

func busyResult(correlationID string, current Status) LifecycleResult {
	return LifecycleResult{OK: false, ResultCode: errs.CodeLifecycleBusy, CorrelationID: correlationID, Data: current}
}

func canceledResult(correlationID string, current Status) LifecycleResult {
	return LifecycleResult{OK: false, ResultCode: errs.CodeCanceled, CorrelationID: correlationID, Data: current}
}

// Start implements spec §4.7's start pseudo-protocol.
func (c *Core) Start(ctx context.Context, correlationID string, overrides configstore.Config) LifecycleResult {
	correlationID = newCorrelationID(correlationID)

	if !c.sem.TryAcquire(1) {
		return busyResult(correlationID, c.Status())
	}
	defer c.sem.Release(1)

	if c.phase() == PhaseRunning {
		return LifecycleResult{OK: false, ResultCode: errs.CodeAlreadyRunning, CorrelationID: correlationID, Data: c.Status()}
	}

	return c.startLocked(ctx, correlationID, overrides)
}

func (c *Core) startLocked(ctx context.Context, correlationID string, overrides configstore.Config) LifecycleResult {
	cfg, err := c.deps.Store.Load()
	if err != nil {
		status := c.buildErrorStatus(correlationID, err, nil)
		c.publish(status)
		return LifecycleResult{OK: false, ResultCode: errs.CodeOf(err), CorrelationID: correlationID, Data: *status}
	}
	cfg = applyOverrides(cfg, overrides)

	c.publish(&Status{Phase: PhaseStarting, LastOp: "start", LastOpTS: time.Now(), LastCorrelationID: correlationID})

	adapter, err := c.deps.Inv.SelectFor(ctx, bandPrefToInvBand(cfg.BandPreference), cfg.APAdapterIfname)
	if err != nil {
		status := c.buildErrorStatus(correlationID, err, nil)
		c.publish(status)
		return LifecycleResult{OK: false, ResultCode: errs.CodeOf(err), CorrelationID: correlationID, Data: *status}
	}

	band := resolveBand(cfg.BandPreference, adapter)
	security := cfg.APSecurity
	if band == configstore.Band6GHz {
		security = configstore.SecurityWPA3_SAE
	}

	plan := buildPlan(cfg, adapter, band, security, c.deps.DaemonID)

	passphrase, err := configstore.GetPassphrase(c.deps.Store.Dir(), true)
	if err != nil {
		status := c.buildErrorStatus(correlationID, err, nil)
		c.publish(status)
		return LifecycleResult{OK: false, ResultCode: errs.CodeOf(err), CorrelationID: correlationID, Data: *status}
	}
	plan.Passphrase = passphrase

	var warnings []string
	var fallbackReason string
	var lastErr error

	for attempt := 1; attempt <= maxFallbackAttempts; attempt++ {
		plan.Backend = engine.SelectBackend(plan.Band, plan.Security, plan.BridgeMode)

		tunerLedger := c.deps.Tuner.Apply(c.deps.TunerPlanFor(cfg, adapter))
		warnings = append(warnings, tunerLedger.Warnings...)

		fw := firewall.New(c.deps.FWCmd, c.deps.FWDetect)
		fwToken, fwErr := fw.Apply(firewallProfileFor(cfg, plan))
		if fwErr != nil {
			c.deps.Tuner.Revert(tunerLedger)
			lastErr = fwErr
			break
		}

		handle, spawnErr := c.deps.Spawner.Spawn(ctx, plan)
		if spawnErr != nil {
			_ = fw.Revert(fwToken)
			c.deps.Tuner.Revert(tunerLedger)

			code := errs.CodeOf(spawnErr)
			decision := decideFallback(code, plan.Band, plan)
			if !decision.retry || attempt == maxFallbackAttempts {
				lastErr = spawnErr
				break
			}
			warnings = append(warnings, fmt.Sprintf("%s: %v", code, spawnErr))
			fallbackReason = decision.reason
			plan = decision.plan
			continue
		}

		configDir, _ := waitForConfigDir(handle, time.Second)

		if plan.Enable80211D() && !validCountryCode(plan.Country) {
			_ = handle.Stop(ctx, c.deps.StopGrace)
			_ = fw.Revert(fwToken)
			c.deps.Tuner.Revert(tunerLedger)
			lastErr = errs.E(opStart, errs.KindRegulatory, errs.CodeInvalidCountryFor80211d,
				"generated AP config enables ieee80211d without a valid two-letter country code")
			break
		}

		ports := c.deps.ReadinessFor(plan, configDir)
		timeout := time.Duration(cfg.APReadyTimeoutS * float64(time.Second))
		readyErr := c.deps.AwaitReadiness(ctx, timeout, ports.Socket, ports.State, readinessTargetFor(plan))
		if readyErr != nil {
			_ = handle.Stop(ctx, c.deps.StopGrace)
			_ = fw.Revert(fwToken)
			c.deps.Tuner.Revert(tunerLedger)

			code := errs.CodeOf(readyErr)
			decision := decideFallback(code, plan.Band, plan)
			if !decision.retry || attempt == maxFallbackAttempts {
				lastErr = readyErr
				break
			}
			warnings = append(warnings, fmt.Sprintf("%s: %v", code, readyErr))
			fallbackReason = decision.reason
			plan = decision.plan
			continue
		}

		c.mu.Lock()
		c.handle = handle
		c.fwReconciler = fw
		c.fwToken = fwToken
		c.tunerLedger = tunerLedger
		planCopy := plan
		c.lastPlan = &planCopy
		c.mu.Unlock()

		resultCode := errs.CodeStarted
		if fallbackReason != "" {
			resultCode = errs.CodeStartedWithFallback
		}

		status := c.buildRunningStatus(plan, correlationID, fallbackReason, warnings, handle)
		c.publish(status)
		c.startBackgroundTasks(cfg, plan)

		return LifecycleResult{OK: true, ResultCode: resultCode, CorrelationID: correlationID, Data: *status}
	}

	status := c.buildErrorStatus(correlationID, lastErr, warnings)
	c.publish(status)
	return LifecycleResult{OK: false, ResultCode: errs.CodeOf(lastErr), CorrelationID: correlationID, Data: *status}
}

// Stop implements spec §4.7's stop pseudo-protocol. Unlike Start, a
// stop that arrives mid-Start must wait for the in-progress call to
// reach a terminal state rather than fast-failing (spec §5's
// concurrency contract), so it blocks on a cancellable Acquire instead
// of Start's TryAcquire.
func (c *Core) Stop(ctx context.Context, correlationID string) LifecycleResult {
	correlationID = newCorrelationID(correlationID)

	if err := c.sem.Acquire(ctx, 1); err != nil {
		return canceledResult(correlationID, c.Status())
	}
	defer c.sem.Release(1)

	if c.phase() == PhaseStopped {
		return LifecycleResult{OK: false, ResultCode: errs.CodeAlreadyStopped, CorrelationID: correlationID, Data: c.Status()}
	}

	status := c.stopLocked(ctx, correlationID)
	return LifecycleResult{OK: true, ResultCode: errs.CodeStopped, CorrelationID: correlationID, Data: *status}
}

func (c *Core) stopLocked(ctx context.Context, correlationID string) *Status {
	c.publish(&Status{Phase: PhaseStopping, LastOp: "stop", LastOpTS: time.Now(), LastCorrelationID: correlationID})
	c.stopBackgroundTasks()

	c.mu.Lock()
	handle := c.handle
	fw := c.fwReconciler
	fwToken := c.fwToken
	ledger := c.tunerLedger
	c.mu.Unlock()

	var warnings []string
	if handle != nil {
		if err := handle.Stop(ctx, c.deps.StopGrace); err != nil {
			warnings = append(warnings, "engine stop: "+err.Error())
		}
	}
	if fw != nil {
		if err := fw.Revert(fwToken); err != nil {
			warnings = append(warnings, err.Error())
		}
	}
	if ledger != nil {
		out := c.deps.Tuner.Revert(ledger)
		warnings = append(warnings, out.Warnings...)
	}

	c.mu.Lock()
	c.handle = nil
	c.fwReconciler = nil
	c.tunerLedger = nil
	c.mu.Unlock()

	status := newStoppedStatus()
	status.LastOp = "stop"
	status.LastOpTS = time.Now()
	status.LastCorrelationID = correlationID
	status.Warnings = warnings
	c.publish(status)
	return status
}

// Repair implements spec §4.7's repair pseudo-protocol: equivalent to
// Stop from any state, plus stray-process and tagged-artifact cleanup.
func (c *Core) Repair(ctx context.Context, correlationID string) LifecycleResult {
	correlationID = newCorrelationID(correlationID)

	if err := c.sem.Acquire(ctx, 1); err != nil {
		return canceledResult(correlationID, c.Status())
	}
	defer c.sem.Release(1)

	status := c.stopLocked(ctx, correlationID)
	c.cleanupStray(ctx)

	return LifecycleResult{OK: true, ResultCode: errs.CodeRepaired, CorrelationID: correlationID, Data: *status}
}

// cleanupStray kills any stray AP/DHCP daemon processes and firewall
// artifacts tagged with this daemon's identity that repair's plain
// Stop wouldn't have reached (e.g. a crashed engine's orphaned child).
func (c *Core) cleanupStray(ctx context.Context) {
	if c.deps.FWCmd == nil {
		return
	}
	if err := c.deps.FWCmd.Run("pkill", "-f", "hotspotd-"+c.deps.DaemonID); err != nil {
		slog.Debug("repair: pkill found nothing to clean up", "err", err)
	}
}

// Restart implements spec §4.7's restart: stop then start under one
// continuous serialization window.
func (c *Core) Restart(ctx context.Context, correlationID string) LifecycleResult {
	correlationID = newCorrelationID(correlationID)

	if err := c.sem.Acquire(ctx, 1); err != nil {
		return canceledResult(correlationID, c.Status())
	}
	defer c.sem.Release(1)

	if c.phase() != PhaseStopped {
		c.stopLocked(ctx, correlationID)
	}

	res := c.startLocked(ctx, correlationID, configstore.Config{})
	if res.OK {
		res.ResultCode = errs.CodeRestarted
	}
	return res
}

// RestartWithLastPlan is the watchdog's supervised restart (spec §4.8):
// it restarts using the last effective plan rather than the configured
// plan, skipping adapter re-selection and the fallback chain entirely.
func (c *Core) RestartWithLastPlan(ctx context.Context) error {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return errs.E(opStart, errs.KindLifecycle, errs.CodeCanceled, err, "canceled while waiting for the lifecycle lock")
	}
	defer c.sem.Release(1)

	c.mu.Lock()
	plan := c.lastPlan
	c.mu.Unlock()
	if plan == nil {
		return errs.E(opStart, errs.KindLifecycle, errs.CodeInternalError, "no prior effective plan to restart from")
	}

	// Only the dead engine process is stopped here. Firewall rules and
	// tuning knobs stay applied; the respawned engine needs the same
	// host network state the crashed one was using (spec §4.8's
	// supervised restart never re-walks the fallback chain).
	c.stopBackgroundTasks()
	c.mu.Lock()
	handle := c.handle
	c.mu.Unlock()
	if handle != nil {
		_ = handle.Stop(ctx, c.deps.StopGrace)
	}

	c.publish(&Status{Phase: PhaseStarting, LastOp: "watchdog-restart", LastOpTS: time.Now()})

	handle, err := c.deps.Spawner.Spawn(ctx, *plan)
	if err != nil {
		status := c.buildErrorStatus("watchdog-restart", err, nil)
		c.publish(status)
		return err
	}

	c.mu.Lock()
	c.handle = handle
	c.mu.Unlock()

	status := c.buildRunningStatus(*plan, "watchdog-restart", "", nil, handle)
	c.publish(status)

	if cfg, cfgErr := c.deps.Store.Load(); cfgErr == nil {
		c.startBackgroundTasks(cfg, *plan)
	}
	return nil
}
