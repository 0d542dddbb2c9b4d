package ctrlchan

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// FrameType identifies the kind of payload a Frame carries.
type FrameType byte

const (
	// FrameRequest carries the raw HTTP request bytes plus a trailing
	// meta block (remote address, TLS flag, arrival timestamp).
	FrameRequest FrameType = 0x01
	// FrameResponse carries raw HTTP response bytes plus trailing flags
	// (keep-alive, did-upgrade).
	FrameResponse FrameType = 0x02
	// FrameUpgradeHandoff announces that an accompanying out-of-band
	// descriptor transfer carries the client socket.
	FrameUpgradeHandoff FrameType = 0x03
	// FrameLog carries a UTF-8 log line.
	FrameLog FrameType = 0x04
	// FrameShutdown asks the worker to exit after its current request.
	FrameShutdown FrameType = 0x05
	// FrameReady signals the worker's Starting → Idle transition.
	FrameReady FrameType = 0x06
	// FrameHeartbeat is an optional worker-initiated liveness ping.
	FrameHeartbeat FrameType = 0x07
)

func (t FrameType) String() string {
	switch t {
	case FrameRequest:
		return "REQUEST"
	case FrameResponse:
		return "RESPONSE"
	case FrameUpgradeHandoff:
		return "UPGRADE_HANDOFF"
	case FrameLog:
		return "LOG"
	case FrameShutdown:
		return "SHUTDOWN"
	case FrameReady:
		return "READY"
	case FrameHeartbeat:
		return "HEARTBEAT"
	default:
		return fmt.Sprintf("FRAME(0x%02x)", byte(t))
	}
}

// MaxFramePayload bounds a single control-channel frame so a malformed
// length prefix can't make a reader allocate unbounded memory.
const MaxFramePayload = 64 * 1024 * 1024

// ErrMalformedFrame marks a length prefix or type byte that can't be
// trusted; per §4.7, "a malformed frame closes the channel and marks the
// worker Dead" — callers should treat this as channel-fatal.
var ErrMalformedFrame = errors.New("ctrlchan: malformed frame")

// Frame is one control-channel message: <u32 length><u8 type><payload>.
// length counts the type byte plus payload, so a reader needs only the
// first four bytes to know how much more to read.
type Frame struct {
	Type    FrameType
	Payload []byte
}

// WriteFrame serializes f to w. Both sides tolerate partial writes by
// virtue of io.Writer's contract (short writes return an error rather
// than silently truncating), so no additional buffering is needed here.
func WriteFrame(w io.Writer, f Frame) error {
	if len(f.Payload) > MaxFramePayload {
		return fmt.Errorf("ctrlchan: payload of %d bytes exceeds max %d", len(f.Payload), MaxFramePayload)
	}
	var hdr [5]byte
	binary.BigEndian.PutUint32(hdr[:4], uint32(len(f.Payload)+1))
	hdr[4] = byte(f.Type)
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	if len(f.Payload) == 0 {
		return nil
	}
	_, err := w.Write(f.Payload)
	return err
}

// ReadFrame reads one frame from r, tolerating partial reads via
// io.ReadFull — the length prefix governs reassembly regardless of how
// many underlying Read calls it takes to arrive (§4.7: "Both sides
// tolerate partial reads; length prefix governs reassembly").
func ReadFrame(r io.Reader) (Frame, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return Frame{}, err
	}
	length := binary.BigEndian.Uint32(hdr[:])
	if length == 0 || length > MaxFramePayload+1 {
		return Frame{}, ErrMalformedFrame
	}
	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return Frame{}, err
	}
	return Frame{Type: FrameType(body[0]), Payload: body[1:]}, nil
}
