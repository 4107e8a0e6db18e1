package readiness

import (
	"regexp"
	"strings"
)

// commander is the narrow executil.Runner subset CommandStateReader
// needs; mirrors probes.commander so the same Real/Mock/DevRunner
// implementations satisfy it.
type commander interface {
	Output(name string, args ...string) ([]byte, error)
}

var ssidLine = regexp.MustCompile(`(?m)^\s*ssid (.+)$`)

// CommandStateReader implements StateReader's fallback signal with
// iw/ip/pgrep output, parsed the way probes.go parses iw/ip output for
// PlatformFacts rather than linking a netlink library.
type CommandStateReader struct {
	cmd      commander
	daemonID string
}

func NewCommandStateReader(cmd commander, daemonID string) *CommandStateReader {
	return &CommandStateReader{cmd: cmd, daemonID: daemonID}
}

// ProcessAlive reports whether any process tagged with this daemon's
// identity (spec §4.5's tagging convention, shared with cleanupStray)
// is still running.
func (r *CommandStateReader) ProcessAlive() bool {
	out, err := r.cmd.Output("pgrep", "-f", "hotspotd-"+r.daemonID)
	return err == nil && strings.TrimSpace(string(out)) != ""
}

func (r *CommandStateReader) InterfaceUp(ifname string) (bool, error) {
	out, err := r.cmd.Output("ip", "-o", "link", "show", ifname)
	if err != nil {
		return false, err
	}
	return strings.Contains(string(out), "UP"), nil
}

func (r *CommandStateReader) InterfaceIsAPType(ifname string) (bool, error) {
	out, err := r.cmd.Output("iw", "dev", ifname, "info")
	if err != nil {
		return false, err
	}
	return strings.Contains(string(out), "type AP"), nil
}

func (r *CommandStateReader) AdvertisedSSID(ifname string) (string, error) {
	out, err := r.cmd.Output("iw", "dev", ifname, "info")
	if err != nil {
		return "", err
	}
	m := ssidLine.FindStringSubmatch(string(out))
	if m == nil {
		return "", nil
	}
	return strings.TrimSpace(m[1]), nil
}
