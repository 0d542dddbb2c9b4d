// Package wire implements the byte-level HTTP/1.x request framer and the
// RFC 6455 WebSocket frame codec and handshake. Every exported function in
// this package is a pure function over buffers: no sockets, no goroutines,
// no pooling. The daemon and worker packages own the I/O; wire only turns
// bytes into structured values and back.
package wire
