// File: wire/handshake.go
// WebSocket upgrade handshake validation and Sec-WebSocket-Accept
// computation. Adapted from the teacher's protocol/handshake.go, which
// read a whole HTTP request via net/http and validated Upgrade/Connection
// tokens the same way; here it operates on the Header already parsed by
// TryParseRequest instead of re-reading the wire.
package wire

import (
	"crypto/sha1"
	"encoding/base64"
	"errors"
	"strings"
)

// WebSocketGUID is the fixed accept-hash suffix from RFC 6455 §1.3.
const WebSocketGUID = "258EAFA5-E914-47DA-95CA-C5AB0DC85B11"

var (
	ErrNotUpgradeRequest  = errors.New("wire: missing Upgrade/Connection handshake headers")
	ErrMissingWSKey       = errors.New("wire: missing Sec-WebSocket-Key")
	ErrUnsupportedWSVersion = errors.New("wire: unsupported Sec-WebSocket-Version, only 13 is supported")
)

// IsUpgradeRequest reports whether hdr carries the headers required to
// recognize a WebSocket upgrade attempt, before full handshake validation.
func IsUpgradeRequest(hdr *Header) bool {
	return headerContainsToken(hdr, "upgrade", "websocket") &&
		headerContainsToken(hdr, "connection", "upgrade")
}

// ValidateHandshake checks the full handshake precondition set from §4.2
// and returns the Sec-WebSocket-Accept value to echo back on success.
func ValidateHandshake(hdr *Header) (accept string, err error) {
	if !IsUpgradeRequest(hdr) {
		return "", ErrNotUpgradeRequest
	}
	if v, ok := hdr.Get("sec-websocket-version"); !ok || strings.TrimSpace(v) != "13" {
		return "", ErrUnsupportedWSVersion
	}
	key, ok := hdr.Get("sec-websocket-key")
	if !ok || strings.TrimSpace(key) == "" {
		return "", ErrMissingWSKey
	}
	return AcceptHash(strings.TrimSpace(key)), nil
}

// AcceptHash computes base64(SHA1(key ‖ WebSocketGUID)), the literal
// algorithm behind §8 scenario 4 (dGhlIHNhbXBsZSBub25jZQ== → s3pPLMBiTxaQ9kYGzzhZRbK+xOo=).
func AcceptHash(key string) string {
	h := sha1.New()
	h.Write([]byte(key))
	h.Write([]byte(WebSocketGUID))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

func headerContainsToken(hdr *Header, name, token string) bool {
	v, ok := hdr.Get(name)
	if !ok {
		return false
	}
	token = strings.ToLower(token)
	for _, part := range strings.Split(v, ",") {
		if strings.ToLower(strings.TrimSpace(part)) == token {
			return true
		}
	}
	return false
}
