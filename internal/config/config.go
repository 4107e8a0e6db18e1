// Package config loads the daemon-level process configuration (not the
// persisted hotspot Config of internal/configstore) plus the daemon's
// own identity, used to tag firewall rules and spawned processes so
// repair() can recognize and clean up after itself.
package config

import (
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// IsDev runs the daemon against executil.DevRunner stubs instead of
	// real hostapd/dnsmasq/iptables/firewall-cmd, so the lifecycle core
	// can be exercised on a laptop with no Wi-Fi adapter attached.
	IsDev bool

	// AppDir is the root used to resolve vendored binaries:
	// $AppDir/vendor/bin/<os_profile>/, then $AppDir/vendor/bin/, then $PATH.
	AppDir string

	// DataDir holds the runtime state dir (discovered engine config
	// dirs, persisted hotspot Config, passphrase side-store).
	DataDir string

	// VendorOnly forces binary resolution to the vendored directories,
	// refusing a $PATH fallback.
	VendorOnly bool

	// DaemonID tags every firewall rule/zone membership and spawned
	// process group hotspotd creates, so repair() can find and remove
	// exactly what this daemon (and no other process) is responsible
	// for, even across restarts.
	DaemonID string
}

// Load reads environment variables and returns a Config. devMode is
// passed in from main so flag parsing stays in main.
func Load(devMode bool) *Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("config: no .env file found, relying on system env vars")
	}

	cfg := &Config{
		IsDev:      devMode,
		AppDir:     getEnv("HOTSPOTD_APP_DIR", "/opt/hotspotd"),
		VendorOnly: getEnvAsBool("HOTSPOTD_VENDOR_ONLY", false),
	}

	if devMode {
		cfg.DataDir = "./data"
	} else {
		cfg.DataDir = getEnv("HOTSPOTD_DATA_DIR", "/var/lib/hotspotd")
	}

	cfg.DaemonID = getOrGenerateDaemonID(cfg.DataDir, cfg.IsDev)

	return cfg
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		slog.Warn("config: invalid integer env var, using default",
			"key", key, "value", raw, "default", fallback)
		return fallback
	}
	return v
}

func getEnvAsBool(key string, fallback bool) bool {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		slog.Warn("config: invalid bool env var, using default",
			"key", key, "value", raw, "default", fallback)
		return fallback
	}
	return v
}

type DataDir string
type AppDir string

func ProvideDataDir(cfg *Config) DataDir { return DataDir(cfg.DataDir) }
func ProvideAppDir(cfg *Config) AppDir   { return AppDir(cfg.AppDir) }
