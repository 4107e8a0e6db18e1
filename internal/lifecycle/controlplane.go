package lifecycle

import (
	"context"

	"github.com/strct-org/hotspotd/internal/configstore"
	"github.com/strct-org/hotspotd/internal/inventory"
)

// GetStatus returns the current published Status (spec §6
// get_status). includeLogs controls whether the engine's captured log
// tails are included; omitting them keeps routine polling cheap.
func (c *Core) GetStatus(includeLogs bool) Status {
	status := c.Status()
	if !includeLogs && status.Engine != nil {
		trimmed := *status.Engine
		trimmed.StdoutTail = nil
		trimmed.StderrTail = nil
		trimmed.APLogsTail = nil
		status.Engine = &trimmed
	}
	return status
}

// GetConfig returns the persisted config with the passphrase redacted
// to its view (spec §6 get_config, spec §3's redaction invariant).
func (c *Core) GetConfig() (ConfigView, error) {
	cfg, err := c.deps.Store.Load()
	if err != nil {
		return ConfigView{}, err
	}
	return ConfigView{Config: cfg, Passphrase: configstore.ViewPassphrase(c.deps.Store.Dir())}, nil
}

// SaveConfig merges patch over the persisted record and validates it
// (spec §6 save_config). passphrase is nil when the caller isn't
// changing it.
func (c *Core) SaveConfig(patch configstore.Config, passphrase *string) (ConfigView, error) {
	merged, err := c.deps.Store.Save(patch, passphrase)
	if err != nil {
		return ConfigView{}, err
	}
	return ConfigView{Config: merged, Passphrase: configstore.ViewPassphrase(c.deps.Store.Dir())}, nil
}

// RevealPassphrase returns the plaintext passphrase, gated by an
// explicit confirmation flag (spec §6 reveal_passphrase).
func (c *Core) RevealPassphrase(confirm bool) (string, error) {
	return configstore.GetPassphrase(c.deps.Store.Dir(), confirm)
}

// AdapterInventory is spec §6's list_adapters return shape.
type AdapterInventory struct {
	Adapters    []inventory.Adapter `json:"adapters"`
	Recommended string              `json:"recommended"`
	Warnings    []string            `json:"warnings"`
}

// ListAdapters takes a fresh inventory snapshot (spec §6 list_adapters).
func (c *Core) ListAdapters(ctx context.Context) AdapterInventory {
	snap := c.deps.Inv.TakeSnapshot(ctx)
	return AdapterInventory{Adapters: snap.Adapters, Recommended: snap.Recommended, Warnings: snap.Warnings}
}
