package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// writeFakeBinary writes a shell script standing in for the real AP
// backend binary so Spawn can start and stop a real process group
// without any hostapd/dnsmasq on the test host (teacher's pattern in
// the now-superseded internal/platform/tunnel test file).
func writeFakeBinary(t *testing.T, dir, name, script string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0755); err != nil {
		t.Fatalf("writing fake binary: %v", err)
	}
	return path
}

func TestSpawn_LongRunningProcessReportsAlive(t *testing.T) {
	dir := t.TempDir()
	writeFakeBinary(t, dir, "hotspotd-orchestrator", "sleep 30")
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))

	s := &RealSpawner{}
	h, err := s.Spawn(context.Background(), Plan{Backend: BackendOrchestrator, APInterface: "wlan0", UplinkIfname: "eth0"})
	if err != nil {
		t.Fatalf("Spawn() error = %v", err)
	}
	defer h.Stop(context.Background(), time.Second)

	time.Sleep(50 * time.Millisecond)
	if !h.IsAlive() {
		t.Error("expected handle to report alive")
	}
	if h.PID() <= 0 {
		t.Error("expected a positive PID")
	}
}

func TestSpawn_StopReapsProcessGroup(t *testing.T) {
	dir := t.TempDir()
	writeFakeBinary(t, dir, "hotspotd-orchestrator", "trap 'exit 0' TERM\nsleep 30 &\nwait")
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))

	s := &RealSpawner{}
	h, err := s.Spawn(context.Background(), Plan{Backend: BackendOrchestrator, APInterface: "wlan0", UplinkIfname: "eth0"})
	if err != nil {
		t.Fatalf("Spawn() error = %v", err)
	}

	time.Sleep(50 * time.Millisecond)
	if err := h.Stop(context.Background(), 2*time.Second); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if h.IsAlive() {
		t.Error("expected handle to report not alive after Stop")
	}
}

func TestSpawn_ExitClassCleanOnZeroExit(t *testing.T) {
	dir := t.TempDir()
	writeFakeBinary(t, dir, "hotspotd-orchestrator", "exit 0")
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))

	s := &RealSpawner{}
	h, err := s.Spawn(context.Background(), Plan{Backend: BackendOrchestrator, APInterface: "wlan0", UplinkIfname: "eth0"})
	if err != nil {
		t.Fatalf("Spawn() error = %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for h.IsAlive() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	class, exited := h.ExitReason()
	if !exited {
		t.Fatal("expected process to have exited")
	}
	if class != ExitClean {
		t.Errorf("ExitReason() = %v, want clean", class)
	}
}

func TestSpawn_MissingBinaryReturnsError(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PATH", dir)

	s := &RealSpawner{}
	_, err := s.Spawn(context.Background(), Plan{Backend: BackendOrchestrator, APInterface: "wlan0"})
	if err == nil {
		t.Fatal("expected error when the backend binary is absent from PATH")
	}
	se, ok := err.(*spawnError)
	if !ok {
		t.Fatalf("expected *spawnError, got %T", err)
	}
	if se.Class() != ExitMissingBinary {
		t.Errorf("Class() = %v, want missing_binary", se.Class())
	}
}

func TestSpawn_RedactsPassphraseInArgv(t *testing.T) {
	dir := t.TempDir()
	writeFakeBinary(t, dir, "hotspotd-orchestrator", "sleep 30")
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))

	s := &RealSpawner{}
	h, err := s.Spawn(context.Background(), Plan{
		Backend: BackendOrchestrator, APInterface: "wlan0", UplinkIfname: "eth0",
		Passphrase: "correcthorse",
	})
	if err != nil {
		t.Fatalf("Spawn() error = %v", err)
	}
	defer h.Stop(context.Background(), time.Second)

	for _, a := range h.RedactedArgv() {
		if a == "correcthorse" {
			t.Fatal("RedactedArgv() leaks the passphrase")
		}
	}
}
