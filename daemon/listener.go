package daemon

import (
	"errors"
	"net"
	"strings"
)

// ErrListenerClosed mirrors the teacher's internal/transport sentinel:
// Accept on a closed Listener returns this instead of the raw net error
// text so callers can match it reliably.
var ErrListenerClosed = errors.New("daemon: listener closed")

// Listener wraps a net.Listener the way the teacher's
// internal/transport.WebSocketListener wraps one: TCP accept with
// Nagle's algorithm disabled, but stopping short of a handshake (§4.2 —
// framing and upgrade negotiation are the Daemon Poller's job, driven
// off the fd this Listener exposes, not something done inline in Accept).
type Listener struct {
	ln     net.Listener
	closed bool
}

// NewListener binds addr for plain TCP.
func NewListener(addr string) (*Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Listener{ln: ln}, nil
}

// Accept blocks for the next inbound TCP connection and disables
// Nagle's algorithm on it before returning, same as the teacher does.
func (l *Listener) Accept() (*net.TCPConn, error) {
	if l.closed {
		return nil, ErrListenerClosed
	}
	conn, err := l.ln.Accept()
	if err != nil {
		if strings.Contains(err.Error(), "closed network connection") {
			return nil, ErrListenerClosed
		}
		return nil, err
	}
	tc, ok := conn.(*net.TCPConn)
	if !ok {
		conn.Close()
		return nil, errors.New("daemon: non-TCP connection accepted")
	}
	tc.SetNoDelay(true)
	return tc, nil
}

// Addr returns the bound address.
func (l *Listener) Addr() net.Addr {
	return l.ln.Addr()
}

// Close stops accepting new connections.
func (l *Listener) Close() error {
	l.closed = true
	return l.ln.Close()
}

// FD exposes the listener's own raw file descriptor, so the Scheduler
// can register the accept-readiness event alongside client sockets
// instead of running a separate accept goroutine.
func (l *Listener) FD() (uintptr, func() error, error) {
	tl, ok := l.ln.(*net.TCPListener)
	if !ok {
		return 0, nil, errors.New("daemon: listener is not a TCP listener")
	}
	raw, err := tl.SyscallConn()
	if err != nil {
		return 0, nil, err
	}
	var fd uintptr
	if err := raw.Control(func(f uintptr) { fd = f }); err != nil {
		return 0, nil, err
	}
	return fd, func() error { return nil }, nil
}

// FD extracts the raw file descriptor backing an accepted TCP connection
// so the Scheduler can register it with the Poller directly, bypassing
// net's own internal goroutine-per-read model.
func FD(conn *net.TCPConn) (uintptr, func() error, error) {
	raw, err := conn.SyscallConn()
	if err != nil {
		return 0, nil, err
	}
	var fd uintptr
	ctrlErr := raw.Control(func(f uintptr) { fd = f })
	if ctrlErr != nil {
		return 0, nil, ctrlErr
	}
	return fd, conn.Close, nil
}
