package wire

import (
	"bytes"
	"strconv"
)

// decodeChunkedBody decodes an RFC 7230 §4.1 chunked body, stopping at the
// zero-length chunk. Trailers after the zero chunk are not supported
// (Non-goal: "chunked request decoding of trailers") — the terminating
// CRLF after the zero chunk is consumed and anything after is left alone.
//
// Returns (nil, 0, nil) when buf does not yet hold a complete chunked
// body. Returns a non-nil *FramingError for malformed chunk syntax or a
// body that would exceed maxSize once reassembled.
func decodeChunkedBody(buf []byte, maxSize int) ([]byte, int, *FramingError) {
	var out []byte
	pos := 0
	for {
		lineEnd := bytes.Index(buf[pos:], crlf)
		if lineEnd < 0 {
			return nil, 0, nil
		}
		sizeLine := buf[pos : pos+lineEnd]
		if semi := bytes.IndexByte(sizeLine, ';'); semi >= 0 {
			sizeLine = sizeLine[:semi] // chunk-extensions are ignored
		}
		size, err := strconv.ParseInt(string(bytes.TrimSpace(sizeLine)), 16, 64)
		if err != nil || size < 0 {
			return nil, 0, newFramingError(KindMalformed, "invalid chunk size")
		}
		pos += lineEnd + 2

		if size == 0 {
			// Terminating chunk: expect the trailing CRLF that ends the body.
			if len(buf) < pos+2 {
				return nil, 0, nil
			}
			if !bytes.Equal(buf[pos:pos+2], crlf) {
				return nil, 0, newFramingError(KindMalformed, "missing final chunked CRLF")
			}
			pos += 2
			return out, pos, nil
		}

		if len(out)+int(size) > maxSize {
			return nil, 0, newFramingError(KindTooLarge, "chunked body exceeds maxRequestSize")
		}
		if len(buf) < pos+int(size)+2 {
			return nil, 0, nil
		}
		out = append(out, buf[pos:pos+int(size)]...)
		pos += int(size)
		if !bytes.Equal(buf[pos:pos+2], crlf) {
			return nil, 0, newFramingError(KindMalformed, "malformed chunk terminator")
		}
		pos += 2
	}
}
