package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/strct-org/hotspotd/internal/configstore"
	"github.com/strct-org/hotspotd/internal/engine"
	"github.com/strct-org/hotspotd/internal/errs"
	"github.com/strct-org/hotspotd/internal/inventory"
	"github.com/strct-org/hotspotd/internal/platform/executil"
	"github.com/strct-org/hotspotd/internal/platform/probes"
	"github.com/strct-org/hotspotd/internal/readiness"
	"github.com/strct-org/hotspotd/internal/telemetry"
	"github.com/strct-org/hotspotd/internal/tuner"
)

type fakeProber struct {
	facts probes.PlatformFacts
}

func (f *fakeProber) Snapshot(ctx context.Context) (probes.PlatformFacts, error) {
	return f.facts, nil
}

func singleAdapterFacts(ifname string) probes.PlatformFacts {
	return probes.PlatformFacts{
		Radios: []probes.RadioFacts{
			{Ifname: ifname, Phy: "phy0", SupportsAP: true, Supports24GHz: true, Supports5GHz: true},
		},
	}
}

type fakeHandle struct {
	pid      int
	alive    bool
	exitCls  engine.ExitClass
	exited   bool
	configOK bool
	configDir string
}

func (h *fakeHandle) IsAlive() bool                  { return h.alive }
func (h *fakeHandle) ExitReason() (engine.ExitClass, bool) { return h.exitCls, h.exited }
func (h *fakeHandle) Stop(ctx context.Context, grace time.Duration) error {
	h.alive = false
	h.exited = true
	return nil
}
func (h *fakeHandle) TailLogs() (stdoutTail, stderrTail, apLogsTail []string) { return nil, nil, nil }
func (h *fakeHandle) DiscoveredConfigDir() (string, bool)                    { return h.configDir, h.configOK }
func (h *fakeHandle) PID() int                                               { return h.pid }
func (h *fakeHandle) RedactedArgv() []string                                 { return []string{"hostapd", "-B", "<config>"} }

type fakeSpawner struct {
	handle *fakeHandle
	err    error
	calls  int
}

func (s *fakeSpawner) Spawn(ctx context.Context, plan engine.Plan) (engine.EngineHandle, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	h := *s.handle
	h.alive = true
	h.pid = 1000 + s.calls
	return &h, nil
}

type fakeSocket struct{ ok bool }

func (f fakeSocket) Ping(ctx context.Context) (bool, error) { return f.ok, nil }

type fakeState struct{ ifname, ssid string }

func (f fakeState) ProcessAlive() bool                             { return true }
func (f fakeState) InterfaceUp(ifname string) (bool, error)        { return true, nil }
func (f fakeState) InterfaceIsAPType(ifname string) (bool, error)  { return true, nil }
func (f fakeState) AdvertisedSSID(ifname string) (string, error)   { return f.ssid, nil }

// baseTestConfig is the default seed every test builds from; Country
// is valid here because country enforcement is unconditional (spec
// §4.7 step 6, §8 scenario S3) — tests that need to exercise an
// invalid/empty country override this field via newTestCoreSeeded.
func baseTestConfig() configstore.Config {
	return configstore.Config{
		SSID:              "VR-NET",
		BandPreference:    configstore.BandRecommended,
		APSecurity:        configstore.SecurityWPA2,
		Country:           "US",
		Channel2GFallback: 6,
		ChannelWidth:      80,
		LANGatewayIP:      "192.168.66.1",
		DHCPStartIP:       "192.168.66.50",
		DHCPEndIP:         "192.168.66.150",
		DHCPDns:           "gateway",
		EnableInternet:    true,
		BridgeUplinkIfname: "eth0",
		FirewallZone:      "trusted",
		FirewallEnableMasquerade: true,
		FirewallEnableForward:    true,
		APReadyTimeoutS:   1,
		TelemetryIntervalS: 0.05,
		WatchdogIntervalS:  0.05,
	}
}

func newTestCore(t *testing.T, spawner *fakeSpawner, fwCmd *executil.Mock) (*Core, *configstore.Store) {
	t.Helper()
	return newTestCoreSeeded(t, spawner, fwCmd, baseTestConfig())
}

func newTestCoreSeeded(t *testing.T, spawner *fakeSpawner, fwCmd *executil.Mock, seed configstore.Config) (*Core, *configstore.Store) {
	t.Helper()
	dir := t.TempDir()
	store := configstore.NewStore(dir)
	passphrase := "vr-headset-pass"
	_, err := store.Save(seed, &passphrase)
	if err != nil {
		t.Fatalf("seed config: %v", err)
	}

	inv := inventory.New(&fakeProber{facts: singleAdapterFacts("wlan0")})
	tu := tuner.New(fwCmd)

	deps := Deps{
		Store:   store,
		Inv:     inv,
		Spawner: spawner,
		FWCmd:   fwCmd,
		FWDetect: func() bool { return false },
		Tuner:   tu,
		TunerPlanFor: func(cfg configstore.Config, adapter inventory.Adapter) tuner.Plan {
			return tuner.Plan{RadioIfname: adapter.Ifname}
		},
		ReadinessFor: func(plan engine.Plan, configDir string) ReadinessPorts {
			return ReadinessPorts{Socket: fakeSocket{ok: true}, State: fakeState{ifname: plan.APInterface, ssid: plan.SSID}}
		},
		StationReaderFor: func(plan engine.Plan) telemetry.StationReader {
			return stubStationReader{}
		},
		AwaitReadiness: func(ctx context.Context, timeout time.Duration, sock readiness.ControlSocket, state readiness.StateReader, target readiness.Target) error {
			return nil
		},
		DaemonID:  "test-daemon",
		StopGrace: 20 * time.Millisecond,
	}
	return New(deps), store
}

type stubStationReader struct{}

func (stubStationReader) StationDump(ctx context.Context, ifname string) ([]telemetry.Station, error) {
	return nil, nil
}

func TestStart_SucceedsAndPublishesRunningStatus(t *testing.T) {
	spawner := &fakeSpawner{handle: &fakeHandle{configOK: true, configDir: "/tmp/doesnotmatter"}}
	core, _ := newTestCore(t, spawner, &executil.Mock{})

	res := core.Start(context.Background(), "", configstore.Config{})
	if !res.OK {
		t.Fatalf("expected OK start, got %+v", res)
	}
	if res.ResultCode != errs.CodeStarted {
		t.Errorf("result_code = %v, want started", res.ResultCode)
	}
	if !res.Data.Running || res.Data.Phase != PhaseRunning {
		t.Errorf("status = %+v, want running", res.Data)
	}
	if res.Data.APInterface != "wlan0" {
		t.Errorf("ap_interface = %q, want wlan0", res.Data.APInterface)
	}

	core.stopBackgroundTasks()
}

func TestStart_AlreadyRunningOnSecondCall(t *testing.T) {
	spawner := &fakeSpawner{handle: &fakeHandle{configOK: true}}
	core, _ := newTestCore(t, spawner, &executil.Mock{})

	first := core.Start(context.Background(), "", configstore.Config{})
	if !first.OK {
		t.Fatalf("first start failed: %+v", first)
	}

	second := core.Start(context.Background(), "", configstore.Config{})
	if second.OK || second.ResultCode != errs.CodeAlreadyRunning {
		t.Errorf("second start = %+v, want already_running", second)
	}

	core.stopBackgroundTasks()
}

// TestStart_ConcurrentCallReturnsBusy exercises spec §8 scenario S5: a
// concurrent call during an in-progress Start must return
// lifecycle_busy without modifying host state.
func TestStart_ConcurrentCallReturnsBusy(t *testing.T) {
	spawner := &fakeSpawner{handle: &fakeHandle{configOK: true}}
	core, _ := newTestCore(t, spawner, &executil.Mock{})

	if !core.sem.TryAcquire(1) {
		t.Fatal("failed to simulate an in-progress operation")
	}

	res := core.Start(context.Background(), "", configstore.Config{})
	if res.OK || res.ResultCode != errs.CodeLifecycleBusy {
		t.Errorf("concurrent start = %+v, want lifecycle_busy", res)
	}

	core.sem.Release(1)
}

func TestStop_AlreadyStoppedWhenNeverStarted(t *testing.T) {
	spawner := &fakeSpawner{handle: &fakeHandle{}}
	core, _ := newTestCore(t, spawner, &executil.Mock{})

	res := core.Stop(context.Background(), "")
	if res.OK || res.ResultCode != errs.CodeAlreadyStopped {
		t.Errorf("stop on a never-started core = %+v, want already_stopped", res)
	}
}

func TestStop_RevertsEngineFirewallAndTuner(t *testing.T) {
	spawner := &fakeSpawner{handle: &fakeHandle{configOK: true}}
	mock := &executil.Mock{}
	core, _ := newTestCore(t, spawner, mock)

	start := core.Start(context.Background(), "", configstore.Config{})
	if !start.OK {
		t.Fatalf("start failed: %+v", start)
	}

	stop := core.Stop(context.Background(), "")
	if !stop.OK || stop.ResultCode != errs.CodeStopped {
		t.Fatalf("stop = %+v, want stopped", stop)
	}
	if stop.Data.Running {
		t.Error("expected stopped status to report running=false")
	}
}

func TestStart_FallsBackToDirectRulesWhenZoneManagerAbsent(t *testing.T) {
	spawner := &fakeSpawner{handle: &fakeHandle{configOK: true}}
	mock := &executil.Mock{}
	core, _ := newTestCore(t, spawner, mock)

	res := core.Start(context.Background(), "", configstore.Config{})
	if !res.OK {
		t.Fatalf("start failed: %+v", res)
	}
	sawIptables := false
	for _, c := range mock.Calls {
		if c.Name == "iptables" {
			sawIptables = true
			break
		}
	}
	if !sawIptables {
		t.Errorf("expected the direct firewall backend to shell out to iptables, calls: %+v", mock.Calls)
	}

	core.stopBackgroundTasks()
}

func TestStart_RetriesOnDriverRejectedChannelThenSucceeds(t *testing.T) {
	spawner := &fakeSpawner{handle: &fakeHandle{configOK: true}}
	core, _ := newTestCore(t, spawner, &executil.Mock{})

	originalSpawn := spawner
	attempt := 0
	wrapped := &wrappingSpawner{
		spawn: func(ctx context.Context, plan engine.Plan) (engine.EngineHandle, error) {
			attempt++
			if attempt == 1 {
				return nil, errs.E(errs.Op("test"), errs.KindEngine, errs.CodeDriverRejectedChannel, "simulated driver rejection")
			}
			return originalSpawn.Spawn(ctx, plan)
		},
	}
	core.deps.Spawner = wrapped

	res := core.Start(context.Background(), "", configstore.Config{})
	if !res.OK {
		t.Fatalf("expected eventual success after fallback retry, got %+v", res)
	}
	if res.ResultCode != errs.CodeStartedWithFallback {
		t.Errorf("result_code = %v, want started_with_fallback", res.ResultCode)
	}
	if res.Data.FallbackReason != "driver_rejected_channel_retry_no_virt" {
		t.Errorf("fallback_reason = %q", res.Data.FallbackReason)
	}

	core.stopBackgroundTasks()
}

type wrappingSpawner struct {
	spawn func(ctx context.Context, plan engine.Plan) (engine.EngineHandle, error)
}

func (w *wrappingSpawner) Spawn(ctx context.Context, plan engine.Plan) (engine.EngineHandle, error) {
	return w.spawn(ctx, plan)
}

// TestStart_EmptyCountryIsFatalNoRetry is spec §8 scenario S3 literally:
// a persisted config with country="" still reaches Start (country is
// only rejected, never required, by configstore.Validate), and the
// engine unconditionally writes ieee80211d=1 (engine.Plan.Enable80211D
// is no longer conditional on Country being set), so the empty country
// must be caught by the step-6 enforcement check, not silently skipped.
func TestStart_EmptyCountryIsFatalNoRetry(t *testing.T) {
	spawner := &fakeSpawner{handle: &fakeHandle{configOK: true}}
	seed := baseTestConfig()
	seed.Country = ""
	core, _ := newTestCoreSeeded(t, spawner, &executil.Mock{}, seed)

	res := core.Start(context.Background(), "", configstore.Config{})
	if res.OK {
		t.Fatalf("expected a fatal result for an empty country code, got %+v", res)
	}
	if res.ResultCode != errs.CodeInvalidCountryFor80211d {
		t.Errorf("result_code = %v, want hostapd_invalid_country_code_for_80211d", res.ResultCode)
	}
	if res.Data.Phase != PhaseError {
		t.Errorf("phase = %v, want error", res.Data.Phase)
	}
	if spawner.calls != 1 {
		t.Errorf("expected exactly one spawn attempt (no retry), got %d", spawner.calls)
	}
}

// TestStart_InvalidCountryCodeIsFatalNoRetry exercises the same
// step-6 enforcement via a one-shot override that bypasses
// configstore.Validate's own country format check (overrides are
// never persisted or validated the way a save_config patch is).
func TestStart_InvalidCountryCodeIsFatalNoRetry(t *testing.T) {
	spawner := &fakeSpawner{handle: &fakeHandle{configOK: true}}
	core, _ := newTestCore(t, spawner, &executil.Mock{})

	res := core.Start(context.Background(), "", configstore.Config{Country: "zz"})
	if res.OK {
		t.Fatalf("expected a fatal result for an invalid country code, got %+v", res)
	}
	if res.ResultCode != errs.CodeInvalidCountryFor80211d {
		t.Errorf("result_code = %v, want hostapd_invalid_country_code_for_80211d", res.ResultCode)
	}
	if spawner.calls != 1 {
		t.Errorf("expected exactly one spawn attempt (no retry), got %d", spawner.calls)
	}
}

func TestGetConfig_RedactsPassphrase(t *testing.T) {
	spawner := &fakeSpawner{handle: &fakeHandle{}}
	core, _ := newTestCore(t, spawner, &executil.Mock{})

	view, err := core.GetConfig()
	if err != nil {
		t.Fatalf("GetConfig: %v", err)
	}
	if !view.Passphrase.Set || view.Passphrase.Len != len("vr-headset-pass") {
		t.Errorf("passphrase view = %+v", view.Passphrase)
	}
}

func TestRevealPassphrase_RequiresConfirmation(t *testing.T) {
	spawner := &fakeSpawner{handle: &fakeHandle{}}
	core, _ := newTestCore(t, spawner, &executil.Mock{})

	if _, err := core.RevealPassphrase(false); err == nil {
		t.Error("expected confirmation_required without confirm=true")
	}
	pass, err := core.RevealPassphrase(true)
	if err != nil || pass != "vr-headset-pass" {
		t.Errorf("RevealPassphrase(true) = (%q, %v)", pass, err)
	}
}

func TestListAdapters_ReturnsInventorySnapshot(t *testing.T) {
	spawner := &fakeSpawner{handle: &fakeHandle{}}
	core, _ := newTestCore(t, spawner, &executil.Mock{})

	inv := core.ListAdapters(context.Background())
	if len(inv.Adapters) != 1 || inv.Recommended != "wlan0" {
		t.Errorf("inventory = %+v", inv)
	}
}
