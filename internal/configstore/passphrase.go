package configstore

import (
	"crypto/sha1"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/crypto/pbkdf2"

	"github.com/strct-org/hotspotd/internal/errs"
)

const pbkdf2Iterations = 4096
const pbkdf2KeyLen = 32

// passphraseFilename is the sibling 0600 file; the main Config record
// never carries the passphrase (spec §3 invariant).
const passphraseFilename = "wpa2-passphrase"

func passphrasePath(dir string) string {
	return filepath.Join(dir, passphraseFilename)
}

// readPassphrase loads the raw passphrase, returning ("", false, nil)
// when the file is absent.
func readPassphrase(dir string) (string, bool, error) {
	b, err := os.ReadFile(passphrasePath(dir))
	if os.IsNotExist(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return string(b), true, nil
}

// writePassphrase persists the passphrase to its 0600 sibling file via
// write-temp-then-rename (spec §4.9).
func writePassphrase(dir, passphrase string) error {
	if len(passphrase) < 8 || len(passphrase) > 63 {
		return errs.E(errs.Op("configstore.writePassphrase"), errs.KindInvalid, errs.CodePassphraseInvalidLength,
			"wpa2_passphrase must be 8..63 printable octets")
	}
	if !isPrintable(passphrase) {
		return errs.E(errs.Op("configstore.writePassphrase"), errs.KindInvalid, errs.CodeConfigInvalid,
			"wpa2_passphrase must contain only printable characters")
	}

	final := passphrasePath(dir)
	tmp := final + ".tmp"
	if err := os.WriteFile(tmp, []byte(passphrase), 0600); err != nil {
		return fmt.Errorf("write passphrase temp file: %w", err)
	}
	if err := os.Rename(tmp, final); err != nil {
		return fmt.Errorf("rename passphrase file: %w", err)
	}
	return nil
}

// GetPassphrase reveals the stored passphrase, guarded by an explicit
// confirmation flag (spec §4.2). Returns passphrase_not_set when the
// side-store file is absent, confirmation_required when confirm=false.
func GetPassphrase(dir string, confirm bool) (string, error) {
	const op = errs.Op("configstore.GetPassphrase")
	if !confirm {
		return "", errs.E(op, errs.KindInvalid, errs.CodeConfirmationRequired,
			"reveal_passphrase requires confirm=true")
	}
	pass, ok, err := readPassphrase(dir)
	if err != nil {
		return "", errs.E(op, errs.KindIO, err)
	}
	if !ok {
		return "", errs.E(op, errs.KindInvalid, errs.CodePassphraseNotSet, "no passphrase has been set")
	}
	return pass, nil
}

// ViewPassphrase returns the redacted view for Status/serialized Config
// snapshots (spec §3 invariant, §8 property 8: the passphrase string
// must never appear in any snapshot).
func ViewPassphrase(dir string) PassphraseView {
	pass, ok, err := readPassphrase(dir)
	if err != nil || !ok {
		return PassphraseView{}
	}
	return PassphraseView{Set: true, Len: len(pass)}
}

// DerivePSK computes the WPA2 4096-round PBKDF2 PSK hostapd derives
// internally from ssid/passphrase — used for pre-validating the
// passphrase's effective strength and for the direct (6 GHz) backend's
// pre-generated config, which takes a raw PSK instead of a plaintext
// passphrase line.
func DerivePSK(ssid, passphrase string) []byte {
	return pbkdf2.Key([]byte(passphrase), []byte(ssid), pbkdf2Iterations, pbkdf2KeyLen, sha1.New)
}
