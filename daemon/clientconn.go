package daemon

import (
	"net"
	"time"
)

// ClientConn is the Daemon Poller's per-connection state (§4.2): a raw
// client socket plus the ingress/egress buffers and bookkeeping the
// Scheduler needs to frame requests and track which worker a connection
// is currently pinned to.
type ClientConn struct {
	FD     uintptr
	Conn   *net.TCPConn
	Remote string
	TLS    bool

	Ingress []byte // bytes read but not yet a complete request
	Egress  []byte // bytes queued to write, for partial-write resumption

	KeepAlive    bool
	HTTPVersion  string
	WorkerID     uint64 // 0 means unbound
	LastActivity time.Time
	Deadline     time.Time

	// Upgraded is set once a WebSocket handshake on this connection has
	// succeeded and the underlying fd has been handed off to a worker;
	// the Scheduler stops polling it directly once this is true.
	Upgraded bool

	closeFn func() error
}

// NewClientConn wraps a freshly accepted connection.
func NewClientConn(fd uintptr, conn *net.TCPConn, closeFn func() error) *ClientConn {
	remote := ""
	if conn != nil {
		remote = conn.RemoteAddr().String()
	}
	return &ClientConn{
		FD:           fd,
		Conn:         conn,
		Remote:       remote,
		LastActivity: time.Now(),
		closeFn:      closeFn,
	}
}

// Touch refreshes the last-activity timestamp and recomputes Deadline
// from maxRequestTime.
func (c *ClientConn) Touch(maxRequestTime time.Duration) {
	c.LastActivity = time.Now()
	if maxRequestTime > 0 {
		c.Deadline = c.LastActivity.Add(maxRequestTime)
	}
}

// Expired reports whether this connection's current request has run
// past its deadline.
func (c *ClientConn) Expired(now time.Time) bool {
	return !c.Deadline.IsZero() && now.After(c.Deadline)
}

// ResetForNextRequest clears per-request state after a keep-alive
// response has been flushed, leaving the connection ready for the next
// pipelined or sequential request on the same socket.
func (c *ClientConn) ResetForNextRequest() {
	c.Ingress = c.Ingress[:0]
	c.Egress = nil
	c.WorkerID = 0
	c.Deadline = time.Time{}
}

// Close releases the underlying socket.
func (c *ClientConn) Close() error {
	if c.closeFn == nil {
		return nil
	}
	return c.closeFn()
}
