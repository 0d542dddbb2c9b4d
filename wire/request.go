// File: wire/request.go
// Byte-level HTTP/1.0 and HTTP/1.1 request-line and header parser.
// Adapted from the teacher's protocol handshake reader (bufio.Reader over
// a growable buffer), generalized from WebSocket-only upgrade parsing to
// the full request-framing state machine spec.md §4.1 requires.
package wire

import (
	"bytes"
	"strconv"
	"strings"
)

// ParseStatus reports how far TryParseRequest got.
type ParseStatus int

const (
	// StatusIncomplete means buf does not yet contain a full request;
	// the caller should keep reading into buf and retry.
	StatusIncomplete ParseStatus = iota
	// StatusComplete means buf[:Consumed] is one full HTTP message.
	StatusComplete
	// StatusInvalid means buf contains a malformed request; Err explains why.
	StatusInvalid
)

// RequestMeta is everything the framer extracts from the wire before a
// worker ever sees the bytes. RawTarget is intentionally left
// percent-encoded — decoding is deferred to Request construction on the
// worker side, per §4.1.
type RequestMeta struct {
	Method     string
	RawTarget  string
	Version    string // "HTTP/1.0" or "HTTP/1.1"
	Header     *Header
	BodyOffset int // offset into the framed buffer where the body begins
	BodyLen    int
	KeepAlive  bool
	// DecodedBody holds the reassembled body when the request used
	// chunked transfer-encoding, since chunk-size headers are not
	// contiguous with the payload in the original framed bytes. Nil for
	// Content-Length-framed requests; callers should slice
	// buf[BodyOffset:BodyOffset+BodyLen] instead in that case.
	DecodedBody []byte
}

// ParseResult is the outcome of TryParseRequest.
type ParseResult struct {
	Status   ParseStatus
	Consumed int
	Meta     *RequestMeta
	Err      *FramingError
}

// Limits bounds the framer against resource-exhaustion attacks (§4.1,
// §8: "For any request exceeding maxRequestSize, the server responds 413
// and does not invoke any endpoint").
type Limits struct {
	MaxHeaderBlock int // bytes, request line + headers
	MaxRequestSize int // bytes, body only
}

// DefaultLimits returns a 16 KiB header-block cap and a 10 MiB body cap.
func DefaultLimits() Limits {
	return Limits{
		MaxHeaderBlock: 16 * 1024,
		MaxRequestSize: 10 * 1024 * 1024,
	}
}

var crlf = []byte("\r\n")

// TryParseRequest attempts to frame one HTTP request out of buf. It never
// mutates buf. Incomplete is not an error: the scheduler keeps reading
// into its per-connection ingress buffer and calls again.
func TryParseRequest(buf []byte, lim Limits) ParseResult {
	headerEnd := bytes.Index(buf, []byte("\r\n\r\n"))
	if headerEnd < 0 {
		if len(buf) > lim.MaxHeaderBlock {
			return ParseResult{Status: StatusInvalid, Err: newFramingError(KindMalformed, "header block exceeds limit")}
		}
		return ParseResult{Status: StatusIncomplete}
	}
	if headerEnd > lim.MaxHeaderBlock {
		return ParseResult{Status: StatusInvalid, Err: newFramingError(KindMalformed, "header block exceeds limit")}
	}

	headBlock := buf[:headerEnd]
	lines := bytes.Split(headBlock, crlf)
	if len(lines) == 0 || len(lines[0]) == 0 {
		return ParseResult{Status: StatusInvalid, Err: newFramingError(KindMalformed, "empty request line")}
	}

	method, target, version, ferr := parseRequestLine(lines[0])
	if ferr != nil {
		return ParseResult{Status: StatusInvalid, Err: ferr}
	}
	if version != "HTTP/1.0" && version != "HTTP/1.1" {
		return ParseResult{Status: StatusInvalid, Err: newFramingError(KindUnsupportedVersion, "unsupported HTTP version: "+version)}
	}

	hdr := NewHeader()
	for _, line := range lines[1:] {
		if len(line) == 0 {
			continue
		}
		name, value, ferr := parseHeaderLine(line)
		if ferr != nil {
			return ParseResult{Status: StatusInvalid, Err: ferr}
		}
		hdr.Add(name, value)
	}

	cl, hasCL := hdr.Get("content-length")
	te, hasTE := hdr.Get("transfer-encoding")
	chunked := hasTE && strings.EqualFold(strings.TrimSpace(te), "chunked")

	if hasCL && chunked {
		return ParseResult{Status: StatusInvalid, Err: newFramingError(KindMalformed, "both content-length and chunked transfer-encoding present")}
	}

	bodyStart := headerEnd + 4

	if chunked {
		decoded, consumedBody, ferr := decodeChunkedBody(buf[bodyStart:], lim.MaxRequestSize)
		if ferr != nil {
			return ParseResult{Status: StatusInvalid, Err: ferr}
		}
		if consumedBody == 0 {
			return ParseResult{Status: StatusIncomplete}
		}
		meta := buildMeta(method, target, version, hdr, bodyStart, len(decoded))
		meta.DecodedBody = decoded
		return ParseResult{Status: StatusComplete, Consumed: bodyStart + consumedBody, Meta: meta}
	}

	bodyLen := 0
	if hasCL {
		n, err := strconv.Atoi(strings.TrimSpace(cl))
		if err != nil || n < 0 {
			return ParseResult{Status: StatusInvalid, Err: newFramingError(KindMalformed, "invalid content-length")}
		}
		bodyLen = n
	}
	if bodyLen > lim.MaxRequestSize {
		return ParseResult{Status: StatusInvalid, Err: newFramingError(KindTooLarge, "request body exceeds maxRequestSize")}
	}
	if len(buf) < bodyStart+bodyLen {
		return ParseResult{Status: StatusIncomplete}
	}

	meta := buildMeta(method, target, version, hdr, bodyStart, bodyLen)
	return ParseResult{Status: StatusComplete, Consumed: bodyStart + bodyLen, Meta: meta}
}

func buildMeta(method, target, version string, hdr *Header, bodyOffset, bodyLen int) *RequestMeta {
	keepAlive := version == "HTTP/1.1"
	if conn, ok := hdr.Get("connection"); ok {
		switch strings.ToLower(strings.TrimSpace(conn)) {
		case "close":
			keepAlive = false
		case "keep-alive":
			keepAlive = true
		}
	}
	return &RequestMeta{
		Method:     method,
		RawTarget:  target,
		Version:    version,
		Header:     hdr,
		BodyOffset: bodyOffset,
		BodyLen:    bodyLen,
		KeepAlive:  keepAlive,
	}
}

// parseRequestLine splits "METHOD SP target SP version" with no leniency
// for extra whitespace, matching the data model's exact token/SP/CRLF grammar.
func parseRequestLine(line []byte) (method, target, version string, ferr *FramingError) {
	parts := bytes.SplitN(line, []byte(" "), 3)
	if len(parts) != 3 {
		return "", "", "", newFramingError(KindMalformed, "malformed request line")
	}
	m := string(parts[0])
	if !isValidToken(m) {
		return "", "", "", newFramingError(KindMalformed, "invalid method token")
	}
	t := string(parts[1])
	if t == "" {
		return "", "", "", newFramingError(KindMalformed, "empty request-target")
	}
	v := string(parts[2])
	return m, t, v, nil
}

// parseHeaderLine splits "name: value", rejecting control characters and
// separator characters in the name per the token grammar. Line folding
// (LWS continuation) is explicitly not supported, per §4.1.
func parseHeaderLine(line []byte) (name, value string, ferr *FramingError) {
	idx := bytes.IndexByte(line, ':')
	if idx <= 0 {
		return "", "", newFramingError(KindMalformed, "malformed header line")
	}
	n := string(line[:idx])
	if !isValidToken(n) {
		return "", "", newFramingError(KindMalformed, "invalid header name")
	}
	v := strings.TrimLeft(string(line[idx+1:]), " \t")
	return n, v, nil
}

const tokenSeparators = "()<>@,;:\\\"/[]?={} \t"

func isValidToken(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r <= 0x1F || r == 0x7F {
			return false
		}
		if strings.ContainsRune(tokenSeparators, r) {
			return false
		}
	}
	return true
}
