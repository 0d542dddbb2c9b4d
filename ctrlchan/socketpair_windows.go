//go:build windows

// Windows has no fork/exec descriptor inheritance story as simple as
// POSIX's socketpair + ExtraFiles (exec.Cmd.ExtraFiles is a POSIX-only
// mechanism), so the control channel there is a loopback TCP connection
// instead: the daemon listens on an ephemeral 127.0.0.1 port and passes
// the address to the worker it spawns via an environment variable, which
// is the same "typed handoff through the child's environment" mechanism
// the daemon already uses to tell a re-exec'd process it's a worker.
package ctrlchan

import (
	"fmt"
	"net"
)

// NewSocketPair starts a loopback listener and returns it unaccepted; the
// caller passes addr to the worker and calls Accept to obtain daemonConn
// once the worker dials in.
func NewSocketPair() (listener net.Listener, addr string, err error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, "", fmt.Errorf("ctrlchan: loopback listen: %w", err)
	}
	return l, l.Addr().String(), nil
}

// DialWorkerEnd connects to the daemon's loopback listener at addr, the
// worker-side counterpart of NewSocketPair. cmd/serverinod's worker mode
// does not call it; it recovers its control channel from fd 3 only.
func DialWorkerEnd(addr string) (net.Conn, error) {
	return net.Dial("tcp", addr)
}
