package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// getOrGenerateDaemonID persists a stable identifier for this daemon
// instance under dataDir, generating one on first run. The firewall
// reconciler tags every rule/zone membership it creates with this ID so
// repair() can recognize stray artifacts left by a previous crashed run
// without touching anything another process on the host owns.
func getOrGenerateDaemonID(dataDir string, isDev bool) string {
	filePath := filepath.Join(dataDir, "daemon-id.lock")
	if !isDev {
		filePath = "/etc/hotspotd/daemon-id.lock"
	}

	if content, err := os.ReadFile(filePath); err == nil {
		return strings.TrimSpace(string(content))
	}

	newID := "hotspotd-" + uuid.New().String()
	slog.Info("config: generated new daemon id", "id", newID)

	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		slog.Warn("config: could not create daemon id directory", "dir", dir, "err", err)
		return newID
	}
	if err := os.WriteFile(filePath, []byte(newID), 0644); err != nil {
		slog.Warn("config: could not persist daemon id", "path", filePath, "err", err)
	}
	return newID
}
