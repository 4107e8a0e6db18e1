package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/strct-org/hotspotd/internal/config"
	"github.com/strct-org/hotspotd/internal/configstore"
	"github.com/strct-org/hotspotd/internal/logger"
)

func main() {
	devMode := flag.Bool("dev", false, "Run in development mode (stubbed hardware commands)")
	doStart := flag.Bool("start", false, "Start the hotspot")
	doStop := flag.Bool("stop", false, "Stop the hotspot")
	doStatus := flag.Bool("status", false, "Print the current lifecycle status")
	doRepair := flag.Bool("repair", false, "Stop and clean up stray artifacts from a previous run")
	doRestart := flag.Bool("restart", false, "Stop then start under one serialization window")
	ssid := flag.String("ssid", "", "One-shot SSID override for -start")
	country := flag.String("country", "", "One-shot country code override for -start")
	flag.Parse()

	logger.Init(*devMode)

	cfg := config.Load(*devMode)
	slog.Info("hotspotd: config loaded",
		"daemonID", cfg.DaemonID,
		"dev", cfg.IsDev,
		"dataDir", cfg.DataDir,
	)

	core, err := initializeCore(cfg)
	if err != nil {
		log.Fatalf("hotspotd: wiring failed: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var result any
	switch {
	case *doStart:
		overrides := configstore.Config{SSID: *ssid, Country: *country}
		result = core.Start(ctx, "", overrides)
	case *doStop:
		result = core.Stop(ctx, "")
	case *doRepair:
		result = core.Repair(ctx, "")
	case *doRestart:
		result = core.Restart(ctx, "")
	case *doStatus:
		result = core.GetStatus(true)
	default:
		fmt.Fprintln(os.Stderr, "usage: hotspotd [-dev] -start|-stop|-status|-repair|-restart [-ssid SSID] [-country CC]")
		os.Exit(2)
	}

	b, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		log.Fatalf("hotspotd: encoding result: %v", err)
	}
	fmt.Println(string(b))
}
