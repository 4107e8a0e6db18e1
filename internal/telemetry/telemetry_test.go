package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"
)

const fakeStationDump = `Station a1:b2:c3:d4:e5:f6 (on wlan0vr)
	signal:  	-52 dBm
	tx bitrate:	433.3 MBit/s
	rx bitrate:	433.3 MBit/s
	tx retries:	12
	tx failed:	0
Station de:ad:be:ef:ca:fe (on wlan0vr)
	signal:  	-68 dBm
	tx bitrate:	86.7 MBit/s
	rx bitrate:	72.2 MBit/s
	tx retries:	340
	tx failed:	4
`

func TestParseStationDump_TwoStations(t *testing.T) {
	stations := parseStationDump(fakeStationDump)
	if len(stations) != 2 {
		t.Fatalf("got %d stations, want 2", len(stations))
	}
	if stations[0].MAC != "a1:b2:c3:d4:e5:f6" || stations[0].RSSIDBm != -52 {
		t.Errorf("stations[0] = %+v", stations[0])
	}
	if stations[1].TxFailed != 4 || stations[1].TxRetries != 340 {
		t.Errorf("stations[1] = %+v", stations[1])
	}
}

func TestSummarize_NoClientsIsZeroValue(t *testing.T) {
	sum := summarize(nil)
	if sum.ClientCount != 0 || sum.RSSIAvgDBm != 0 {
		t.Errorf("summarize(nil) = %+v, want zero value", sum)
	}
}

func TestSummarize_AveragesAcrossStations(t *testing.T) {
	stations := parseStationDump(fakeStationDump)
	sum := summarize(stations)
	if sum.ClientCount != 2 {
		t.Fatalf("ClientCount = %d, want 2", sum.ClientCount)
	}
	if sum.RSSIAvgDBm != -60 {
		t.Errorf("RSSIAvgDBm = %v, want -60", sum.RSSIAvgDBm)
	}
	if sum.TxMbpsTotal <= 0 || sum.RxMbpsTotal <= 0 {
		t.Errorf("expected nonzero tx/rx totals, got %+v", sum)
	}
}

type fakeReader struct {
	stations []Station
	err      error
}

func (f *fakeReader) StationDump(ctx context.Context, ifname string) ([]Station, error) {
	return f.stations, f.err
}

func TestSampler_RaisesLowSignalAfterSustainedBreach(t *testing.T) {
	s := New(&fakeReader{stations: []Station{{MAC: "a", RSSIDBm: -80}}}, "wlan0vr", 10*time.Millisecond)
	for i := 0; i < 5; i++ {
		s.sampleOnce(context.Background())
	}
	_, warnings := s.Snapshot()
	if !contains(warnings, "low_signal") {
		t.Errorf("expected low_signal warning, got %v", warnings)
	}
}

func TestSampler_RaisesSamplingDegradedAfterConsecutiveFailures(t *testing.T) {
	s := New(&fakeReader{err: errors.New("iw: device busy")}, "wlan0vr", 10*time.Millisecond)
	for i := 0; i < 4; i++ {
		s.sampleOnce(context.Background())
	}
	_, warnings := s.Snapshot()
	if !contains(warnings, "sampling_degraded") {
		t.Errorf("expected sampling_degraded warning, got %v", warnings)
	}
}

func TestSampler_NoWarningsOnHealthySamples(t *testing.T) {
	s := New(&fakeReader{stations: []Station{{MAC: "a", RSSIDBm: -40}}}, "wlan0vr", 10*time.Millisecond)
	for i := 0; i < 5; i++ {
		s.sampleOnce(context.Background())
	}
	_, warnings := s.Snapshot()
	if len(warnings) != 0 {
		t.Errorf("expected no warnings, got %v", warnings)
	}
}

type fakeAliveChecker struct{ alive bool }

func (f *fakeAliveChecker) IsAlive() bool { return f.alive }

func TestWatchdog_TriggersRestartOnDeath(t *testing.T) {
	restarted := make(chan struct{}, 1)
	checker := &fakeAliveChecker{alive: false}
	w := NewWatchdog(10*time.Millisecond, func() AliveChecker { return checker }, func(ctx context.Context) error {
		restarted <- struct{}{}
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	go w.Run(ctx)

	select {
	case <-restarted:
	case <-time.After(200 * time.Millisecond):
		t.Fatal("expected supervised restart to be triggered")
	}
}

func TestWatchdog_DoesNothingWhenAlive(t *testing.T) {
	checker := &fakeAliveChecker{alive: true}
	called := false
	w := NewWatchdog(10*time.Millisecond, func() AliveChecker { return checker }, func(ctx context.Context) error {
		called = true
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	w.Run(ctx)

	if called {
		t.Error("expected no restart while the engine is alive")
	}
}

func contains(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}
