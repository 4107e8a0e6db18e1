// Package telemetry samples per-connected-station link stats while the
// AP is Running and rolls them into a Summary (spec §4.8). The sampler
// is a cooperative periodic task, grounded on the teacher's monitor.go
// ticker-driven NetworkMonitor — redirected from WAN latency/bandwidth
// polling to AP client-link polling — reading "iw dev <if> station
// dump" output shaped like the dev.go fakeStation fixture.
package telemetry

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	ping "github.com/prometheus-community/pro-bing"
)

// Station is one connected client's link stats for a single sample.
type Station struct {
	MAC       string
	RSSIDBm   int
	TxMbps    float64
	RxMbps    float64
	TxRetries int
	TxFailed  int
	IP        string
}

// Summary is the rolling aggregate published to Status.telemetry.
type Summary struct {
	ClientCount     int
	RSSIAvgDBm      float64
	QualityScoreAvg float64
	LossPctAvg      float64
	TxMbpsTotal     float64
	RxMbpsTotal     float64

	// UplinkRTTMs is a supplemental stat: round-trip latency from the
	// host to the AP's own gateway IP, sampled with the same pro-bing
	// pinger readiness.icmpCrossCheck uses. Zero when no gateway IP was
	// configured for this sampler.
	UplinkRTTMs float64
}

// StationReader abstracts "iw dev <if> station dump" so the sampler is
// testable without root or real hardware.
type StationReader interface {
	StationDump(ctx context.Context, ifname string) ([]Station, error)
}

const (
	lowSignalThresholdDBm = -75
	highLossThresholdPct  = 5.0
	breachStreakToWarn    = 3
)

// Sampler owns the rolling window spec §4.8 needs to debounce
// low_signal/high_loss warnings across samples rather than firing on a
// single noisy reading.
type Sampler struct {
	reader    StationReader
	ifname    string
	interval  time.Duration
	gatewayIP string

	mu                  sync.RWMutex
	summary             Summary
	warnings            map[string]bool
	rssiBreachStreak    int
	lossBreachStreak    int
	consecutiveFailures int
}

func New(reader StationReader, ifname string, interval time.Duration) *Sampler {
	return &Sampler{reader: reader, ifname: ifname, interval: interval, warnings: map[string]bool{}}
}

// WithGatewayIP enables the supplemental uplink_rtt_ms stat, pinging
// the AP's own gateway IP once per sample.
func (s *Sampler) WithGatewayIP(gatewayIP string) *Sampler {
	s.gatewayIP = gatewayIP
	return s
}

// Run blocks, sampling every interval until ctx is cancelled. It never
// blocks the lifecycle lock — callers run it in its own goroutine,
// reading a snapshot of the current engine handle per tick rather than
// holding any lifecycle state.
func (s *Sampler) Run(ctx context.Context) {
	s.sampleOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sampleOnce(ctx)
		}
	}
}

func (s *Sampler) sampleOnce(ctx context.Context) {
	stations, err := s.reader.StationDump(ctx, s.ifname)
	if err != nil {
		s.mu.Lock()
		s.consecutiveFailures++
		if s.consecutiveFailures >= breachStreakToWarn {
			s.warnings["sampling_degraded"] = true
		}
		s.mu.Unlock()
		slog.Warn("telemetry: station dump sample failed", "ifname", s.ifname, "err", err)
		return
	}

	summary := summarize(stations)
	if s.gatewayIP != "" {
		summary.UplinkRTTMs = uplinkRTT(s.gatewayIP)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.consecutiveFailures = 0
	s.summary = summary

	if summary.ClientCount > 0 && summary.RSSIAvgDBm < lowSignalThresholdDBm {
		s.rssiBreachStreak++
	} else {
		s.rssiBreachStreak = 0
	}
	if summary.ClientCount > 0 && summary.LossPctAvg > highLossThresholdPct {
		s.lossBreachStreak++
	} else {
		s.lossBreachStreak = 0
	}
	if s.rssiBreachStreak > breachStreakToWarn {
		s.warnings["low_signal"] = true
	}
	if s.lossBreachStreak > breachStreakToWarn {
		s.warnings["high_loss"] = true
	}
}

// Snapshot returns the latest summary and the set of warnings raised
// so far.
func (s *Sampler) Snapshot() (Summary, []string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	warnings := make([]string, 0, len(s.warnings))
	for w := range s.warnings {
		warnings = append(warnings, w)
	}
	return s.summary, warnings
}

func summarize(stations []Station) Summary {
	var sum Summary
	sum.ClientCount = len(stations)
	if sum.ClientCount == 0 {
		return sum
	}

	var rssiTotal, qualityTotal, lossTotal float64
	for _, st := range stations {
		rssiTotal += float64(st.RSSIDBm)
		lossPct := retryLossPct(st)
		lossTotal += lossPct
		qualityTotal += qualityScore(st.RSSIDBm, lossPct)
		sum.TxMbpsTotal += st.TxMbps
		sum.RxMbpsTotal += st.RxMbps
	}
	n := float64(sum.ClientCount)
	sum.RSSIAvgDBm = rssiTotal / n
	sum.LossPctAvg = lossTotal / n
	sum.QualityScoreAvg = qualityTotal / n
	return sum
}

// uplinkRTT reports round-trip latency to gatewayIP in milliseconds, 0
// if the ping fails. Grounded on readiness.icmpCrossCheck's pro-bing
// usage, redirected here to a standing latency stat instead of a
// one-shot readiness signal.
func uplinkRTT(gatewayIP string) float64 {
	pinger, err := ping.NewPinger(gatewayIP)
	if err != nil {
		return 0
	}
	pinger.SetPrivileged(true)
	pinger.Count = 1
	pinger.Timeout = 300 * time.Millisecond
	if err := pinger.Run(); err != nil {
		return 0
	}
	stats := pinger.Statistics()
	if stats.PacketsRecv == 0 {
		return 0
	}
	return float64(stats.AvgRtt.Microseconds()) / 1000.0
}

// retryLossPct approximates loss ratio from retries+failures against
// total attempted frames; iw doesn't expose attempted-frame counts
// directly, so failed+retries over itself plus an assumed successful
// baseline is the closest proxy available from station dump fields.
func retryLossPct(st Station) float64 {
	attempted := st.TxRetries + st.TxFailed + 100
	if attempted == 0 {
		return 0
	}
	return 100 * float64(st.TxFailed) / float64(attempted)
}

// qualityScore is the glossary's "0-100 composite of signal strength,
// retry ratio, and loss ratio, normalized so 100 corresponds to
// rssi >= -55 dBm with negligible retries and loss."
func qualityScore(rssiDBm int, lossPct float64) float64 {
	signalScore := 100.0
	if rssiDBm < -55 {
		signalScore = 100.0 - float64(-55-rssiDBm)*2
	}
	if signalScore < 0 {
		signalScore = 0
	}
	lossScore := 100.0 - lossPct*10
	if lossScore < 0 {
		lossScore = 0
	}
	score := (signalScore + lossScore) / 2
	if score > 100 {
		score = 100
	}
	return score
}

// parseStationDump parses "iw dev <if> station dump" output shaped
// like dev.go's fakeStation fixture.
func parseStationDump(output string) []Station {
	var stations []Station
	var cur *Station

	for _, line := range strings.Split(output, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "Station "):
			if cur != nil {
				stations = append(stations, *cur)
			}
			fields := strings.Fields(trimmed)
			cur = &Station{}
			if len(fields) >= 2 {
				cur.MAC = fields[1]
			}
		case cur == nil:
			continue
		case strings.HasPrefix(trimmed, "signal:"):
			cur.RSSIDBm = parseLeadingInt(strings.TrimPrefix(trimmed, "signal:"))
		case strings.HasPrefix(trimmed, "tx bitrate:"):
			cur.TxMbps = parseLeadingFloat(strings.TrimPrefix(trimmed, "tx bitrate:"))
		case strings.HasPrefix(trimmed, "rx bitrate:"):
			cur.RxMbps = parseLeadingFloat(strings.TrimPrefix(trimmed, "rx bitrate:"))
		case strings.HasPrefix(trimmed, "tx retries:"):
			cur.TxRetries = parseLeadingInt(strings.TrimPrefix(trimmed, "tx retries:"))
		case strings.HasPrefix(trimmed, "tx failed:"):
			cur.TxFailed = parseLeadingInt(strings.TrimPrefix(trimmed, "tx failed:"))
		}
	}
	if cur != nil {
		stations = append(stations, *cur)
	}
	return stations
}

func parseLeadingInt(s string) int {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return 0
	}
	n, _ := strconv.Atoi(fields[0])
	return n
}

func parseLeadingFloat(s string) float64 {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return 0
	}
	f, _ := strconv.ParseFloat(fields[0], 64)
	return f
}
