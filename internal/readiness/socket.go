package readiness

import (
	"context"
	"fmt"
	"net"
	"os"
	"time"
)

// UnixControlSocket talks hostapd's control interface protocol: a unix
// datagram socket where the client binds its own throwaway path, sends
// a command, and reads the reply off the same fd. No library in the
// example pack speaks this protocol, so it is built directly on
// net.DialUnix/net.ListenUnixgram rather than adapted from a teacher
// file (see DESIGN.md).
type UnixControlSocket struct {
	ServerPath string
}

func (u *UnixControlSocket) Ping(ctx context.Context) (bool, error) {
	clientPath := fmt.Sprintf("/tmp/hotspotd-ctrl-%d.sock", os.Getpid())
	_ = os.Remove(clientPath)
	laddr := &net.UnixAddr{Name: clientPath, Net: "unixgram"}
	conn, err := net.ListenUnixgram("unixgram", laddr)
	if err != nil {
		return false, err
	}
	defer conn.Close()
	defer os.Remove(clientPath)

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else {
		_ = conn.SetDeadline(time.Now().Add(300 * time.Millisecond))
	}

	raddr := &net.UnixAddr{Name: u.ServerPath, Net: "unixgram"}
	if _, err := conn.WriteToUnix([]byte("PING"), raddr); err != nil {
		return false, err
	}

	buf := make([]byte, 64)
	n, err := conn.Read(buf)
	if err != nil {
		return false, err
	}
	return string(buf[:n]) == "PONG", nil
}
