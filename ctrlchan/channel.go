package ctrlchan

import (
	"net"
	"sync"
)

// Channel is one daemon↔worker control connection: a Frame codec layered
// over whatever net.Conn backs the per-worker socket pair. Writes are
// serialized (the daemon and a worker may each emit HEARTBEAT/LOG frames
// from a different goroutine than their main request path); reads are not,
// since each side only ever has one reader loop per spec §5 (single
// reactor thread per process).
type Channel struct {
	conn net.Conn
	mu   sync.Mutex
	dead bool
}

// NewChannel wraps an already-connected net.Conn.
func NewChannel(conn net.Conn) *Channel {
	return &Channel{conn: conn}
}

// Send serializes and writes f. A write error marks the channel dead.
func (c *Channel) Send(f Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := WriteFrame(c.conn, f); err != nil {
		c.dead = true
		return err
	}
	return nil
}

// Recv reads the next frame. A malformed frame marks the channel dead, per
// §4.7: "a malformed frame closes the channel and marks the worker Dead."
func (c *Channel) Recv() (Frame, error) {
	f, err := ReadFrame(c.conn)
	if err != nil {
		c.mu.Lock()
		c.dead = true
		c.mu.Unlock()
	}
	return f, err
}

// Dead reports whether a prior Send or Recv observed a fatal error.
func (c *Channel) Dead() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dead
}

// Conn exposes the underlying connection for descriptor-handoff helpers
// that need the raw fd (see fdpass_unix.go).
func (c *Channel) Conn() net.Conn { return c.conn }

// Close closes the underlying connection.
func (c *Channel) Close() error { return c.conn.Close() }
