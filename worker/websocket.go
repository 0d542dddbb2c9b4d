package worker

import (
	"errors"
	"net"

	"github.com/momentics/serverino/wire"
)

// ErrSessionClosed is returned from Receive/Send once the session has
// seen a close frame or the underlying connection has failed.
var ErrSessionClosed = errors.New("worker: websocket session closed")

// Message is one complete, reassembled WebSocket message: either a text
// or binary payload spanning one or more wire frames joined by
// continuation frames (RFC 6455 fragmentation, §4.4).
type Message struct {
	Opcode  wire.Opcode // OpText or OpBinary
	Payload []byte
}

// Session is the worker-side WebSocket handle handed to an endpoint
// registered with a (*Request, *Session) signature. It owns the
// connection after a successful upgrade handoff and is the only thing
// on the worker side still reading/writing that socket directly; the
// wire package supplies the frame codec, this type supplies the
// message-level reassembly and send-side framing on top of it. The
// ingress buffer grows on demand rather than through a fixed-size
// bufio.Reader, since a single frame's payload can legitimately exceed
// any reasonable static buffer size (maxPayload defaults to 16 MiB).
type Session struct {
	conn       net.Conn
	buf        []byte
	maxPayload int
	rnd        wire.RandomSource
	closed     bool
}

// NewSession wraps conn, freshly handed off from the daemon after a
// successful WebSocket handshake.
func NewSession(conn net.Conn, maxPayload int) *Session {
	if maxPayload <= 0 {
		maxPayload = wire.DefaultMaxFramePayload
	}
	return &Session{
		conn:       conn,
		maxPayload: maxPayload,
		rnd:        wire.CryptoRandSource{},
	}
}

// Receive blocks for the next complete message, transparently answering
// pings with pongs and reassembling fragmented messages (§4.4: "a
// fragmented message is reassembled before being delivered to the
// application; the application never sees raw continuation frames").
func (s *Session) Receive() (Message, error) {
	if s.closed {
		return Message{}, ErrSessionClosed
	}

	var assembled []byte
	var msgOpcode wire.Opcode
	fragmenting := false

	for {
		frame, err := s.readFrame()
		if err != nil {
			s.closed = true
			return Message{}, err
		}

		switch {
		case frame.Opcode == wire.OpPing:
			if err := s.writeFrame(wire.Frame{Fin: true, Opcode: wire.OpPong, Payload: frame.Payload}); err != nil {
				s.closed = true
				return Message{}, err
			}
			continue
		case frame.Opcode == wire.OpPong:
			continue
		case frame.Opcode == wire.OpClose:
			s.closed = true
			s.writeFrame(wire.Frame{Fin: true, Opcode: wire.OpClose, Payload: frame.Payload})
			return Message{}, ErrSessionClosed
		case frame.Opcode == wire.OpContinuation:
			if !fragmenting {
				s.closed = true
				return Message{}, errors.New("worker: continuation frame with no preceding fragment")
			}
			assembled = append(assembled, frame.Payload...)
		default: // OpText or OpBinary starts a (possibly fragmented) message
			if fragmenting {
				s.closed = true
				return Message{}, errors.New("worker: new message started before prior fragment finished")
			}
			msgOpcode = frame.Opcode
			assembled = append(assembled, frame.Payload...)
			fragmenting = true
		}

		if frame.Fin {
			return Message{Opcode: msgOpcode, Payload: assembled}, nil
		}
	}
}

// Send writes a single-frame (unfragmented) message.
func (s *Session) Send(opcode wire.Opcode, payload []byte) error {
	if s.closed {
		return ErrSessionClosed
	}
	return s.writeFrame(wire.Frame{Fin: true, Opcode: opcode, Payload: payload})
}

// Close sends a close frame with code and reason, then marks the
// session unusable for further Send/Receive calls.
func (s *Session) Close(code wire.CloseCode, reason string) error {
	if s.closed {
		return nil
	}
	s.closed = true
	payload := make([]byte, 2+len(reason))
	payload[0] = byte(code >> 8)
	payload[1] = byte(code)
	copy(payload[2:], reason)
	return s.writeFrame(wire.Frame{Fin: true, Opcode: wire.OpClose, Payload: payload})
}

// readFrame decodes the next frame out of s.buf, reading more bytes from
// the connection whenever wire.DecodeFrame reports an incomplete frame.
func (s *Session) readFrame() (*wire.Frame, error) {
	for {
		frame, consumed, err := wire.DecodeFrame(s.buf, s.maxPayload, true)
		if err != nil {
			return nil, err
		}
		if frame != nil {
			s.buf = s.buf[consumed:]
			return frame, nil
		}
		chunk := make([]byte, 64*1024)
		n, err := s.conn.Read(chunk)
		if n > 0 {
			s.buf = append(s.buf, chunk[:n]...)
		}
		if err != nil {
			return nil, err
		}
	}
}

func (s *Session) writeFrame(f wire.Frame) error {
	out, err := wire.EncodeFrame(nil, f, false, s.rnd)
	if err != nil {
		return err
	}
	_, err = s.conn.Write(out)
	return err
}

// Conn exposes the underlying connection for deadline management.
func (s *Session) Conn() net.Conn { return s.conn }
