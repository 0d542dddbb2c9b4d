package ctrlchan

import (
	"encoding/binary"
	"errors"
	"time"
)

// RequestPayload is the decoded body of a FrameRequest: the raw bytes as
// seen on the wire plus the trailing meta block §4.7 describes (remote
// address, whether TLS, arrival timestamp).
type RequestPayload struct {
	RawBytes   []byte
	RemoteAddr string
	TLS        bool
	ArrivedAt  time.Time
}

// EncodeRequestPayload serializes p as: u32 len(RawBytes), RawBytes,
// u16 len(RemoteAddr), RemoteAddr, u8 TLS, i64 ArrivedAt (unix nanos).
func EncodeRequestPayload(p RequestPayload) []byte {
	out := make([]byte, 0, len(p.RawBytes)+len(p.RemoteAddr)+16)
	out = appendUint32Prefixed(out, p.RawBytes)
	out = appendUint16Prefixed(out, []byte(p.RemoteAddr))
	if p.TLS {
		out = append(out, 1)
	} else {
		out = append(out, 0)
	}
	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], uint64(p.ArrivedAt.UnixNano()))
	return append(out, ts[:]...)
}

// DecodeRequestPayload reverses EncodeRequestPayload.
func DecodeRequestPayload(buf []byte) (RequestPayload, error) {
	raw, rest, err := readUint32Prefixed(buf)
	if err != nil {
		return RequestPayload{}, err
	}
	addr, rest2, err := readUint16Prefixed(rest)
	if err != nil {
		return RequestPayload{}, err
	}
	if len(rest2) < 9 {
		return RequestPayload{}, errors.New("ctrlchan: truncated request payload tail")
	}
	tls := rest2[0] != 0
	nanos := int64(binary.BigEndian.Uint64(rest2[1:9]))
	return RequestPayload{
		RawBytes:   raw,
		RemoteAddr: string(addr),
		TLS:        tls,
		ArrivedAt:  time.Unix(0, nanos),
	}, nil
}

// ResponsePayload is the decoded body of a FrameResponse.
type ResponsePayload struct {
	RawBytes   []byte
	KeepAlive  bool
	DidUpgrade bool
}

// EncodeResponsePayload serializes p as: u32 len(RawBytes), RawBytes,
// u8 KeepAlive, u8 DidUpgrade.
func EncodeResponsePayload(p ResponsePayload) []byte {
	out := appendUint32Prefixed(nil, p.RawBytes)
	out = append(out, boolByte(p.KeepAlive), boolByte(p.DidUpgrade))
	return out
}

// DecodeResponsePayload reverses EncodeResponsePayload.
func DecodeResponsePayload(buf []byte) (ResponsePayload, error) {
	raw, rest, err := readUint32Prefixed(buf)
	if err != nil {
		return ResponsePayload{}, err
	}
	if len(rest) < 2 {
		return ResponsePayload{}, errors.New("ctrlchan: truncated response payload tail")
	}
	return ResponsePayload{
		RawBytes:   raw,
		KeepAlive:  rest[0] != 0,
		DidUpgrade: rest[1] != 0,
	}, nil
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

func appendUint32Prefixed(dst []byte, data []byte) []byte {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(data)))
	dst = append(dst, lenBuf[:]...)
	return append(dst, data...)
}

func appendUint16Prefixed(dst []byte, data []byte) []byte {
	var lenBuf [2]byte
	binary.BigEndian.PutUint16(lenBuf[:], uint16(len(data)))
	dst = append(dst, lenBuf[:]...)
	return append(dst, data...)
}

func readUint32Prefixed(buf []byte) (data, rest []byte, err error) {
	if len(buf) < 4 {
		return nil, nil, errors.New("ctrlchan: truncated u32-prefixed field")
	}
	n := binary.BigEndian.Uint32(buf[:4])
	if uint64(len(buf)-4) < uint64(n) {
		return nil, nil, errors.New("ctrlchan: truncated u32-prefixed field body")
	}
	return buf[4 : 4+n], buf[4+n:], nil
}

func readUint16Prefixed(buf []byte) (data, rest []byte, err error) {
	if len(buf) < 2 {
		return nil, nil, errors.New("ctrlchan: truncated u16-prefixed field")
	}
	n := binary.BigEndian.Uint16(buf[:2])
	if uint64(len(buf)-2) < uint64(n) {
		return nil, nil, errors.New("ctrlchan: truncated u16-prefixed field body")
	}
	return buf[2 : 2+n], buf[2+n:], nil
}
