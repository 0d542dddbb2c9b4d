// request_test.go — HTTP request framer round-trip and boundary tests.
package wire_test

import (
	"strings"
	"testing"

	"github.com/momentics/serverino/wire"
)

func TestTryParseRequest_SimpleGET(t *testing.T) {
	raw := "GET /simple HTTP/1.0\r\n\r\n"
	res := wire.TryParseRequest([]byte(raw), wire.DefaultLimits())
	if res.Status != wire.StatusComplete {
		t.Fatalf("expected complete, got status=%v err=%v", res.Status, res.Err)
	}
	if res.Meta.Method != "GET" || res.Meta.RawTarget != "/simple" || res.Meta.Version != "HTTP/1.0" {
		t.Fatalf("unexpected meta: %+v", res.Meta)
	}
	if res.Meta.KeepAlive {
		t.Error("HTTP/1.0 with no Connection header must default to close")
	}
	if res.Consumed != len(raw) {
		t.Errorf("consumed = %d, want %d", res.Consumed, len(raw))
	}
}

func TestTryParseRequest_KeepAliveDefaults(t *testing.T) {
	res := wire.TryParseRequest([]byte("GET / HTTP/1.1\r\n\r\n"), wire.DefaultLimits())
	if res.Status != wire.StatusComplete || !res.Meta.KeepAlive {
		t.Fatalf("HTTP/1.1 must default to keep-alive, got %+v", res)
	}

	res = wire.TryParseRequest([]byte("GET / HTTP/1.1\r\nConnection: close\r\n\r\n"), wire.DefaultLimits())
	if res.Status != wire.StatusComplete || res.Meta.KeepAlive {
		t.Fatalf("explicit Connection: close must override default, got %+v", res)
	}
}

func TestTryParseRequest_Incomplete(t *testing.T) {
	res := wire.TryParseRequest([]byte("GET / HTTP/1.1\r\nHost: x"), wire.DefaultLimits())
	if res.Status != wire.StatusIncomplete {
		t.Fatalf("expected incomplete, got %v", res.Status)
	}
}

func TestTryParseRequest_ContentLengthBody(t *testing.T) {
	raw := "POST /echo HTTP/1.1\r\nContent-Length: 5\r\n\r\nhello"
	res := wire.TryParseRequest([]byte(raw), wire.DefaultLimits())
	if res.Status != wire.StatusComplete {
		t.Fatalf("expected complete, got %v err=%v", res.Status, res.Err)
	}
	body := raw[res.Meta.BodyOffset : res.Meta.BodyOffset+res.Meta.BodyLen]
	if body != "hello" {
		t.Errorf("body = %q, want %q", body, "hello")
	}
}

func TestTryParseRequest_BodyWaitsForMoreBytes(t *testing.T) {
	raw := "POST /echo HTTP/1.1\r\nContent-Length: 5\r\n\r\nhel"
	res := wire.TryParseRequest([]byte(raw), wire.DefaultLimits())
	if res.Status != wire.StatusIncomplete {
		t.Fatalf("expected incomplete while body still arriving, got %v", res.Status)
	}
}

func TestTryParseRequest_BothLengthAndChunkedInvalid(t *testing.T) {
	raw := "POST /x HTTP/1.1\r\nContent-Length: 5\r\nTransfer-Encoding: chunked\r\n\r\nhello"
	res := wire.TryParseRequest([]byte(raw), wire.DefaultLimits())
	if res.Status != wire.StatusInvalid || res.Err.Kind != wire.KindMalformed {
		t.Fatalf("expected malformed, got %+v", res)
	}
}

func TestTryParseRequest_ChunkedBody(t *testing.T) {
	raw := "POST /x HTTP/1.1\r\nTransfer-Encoding: chunked\r\n\r\n5\r\nhello\r\n6\r\n world\r\n0\r\n\r\n"
	res := wire.TryParseRequest([]byte(raw), wire.DefaultLimits())
	if res.Status != wire.StatusComplete {
		t.Fatalf("expected complete, got %v err=%v", res.Status, res.Err)
	}
	if string(res.Meta.DecodedBody) != "hello world" {
		t.Errorf("decoded body = %q, want %q", res.Meta.DecodedBody, "hello world")
	}
	if res.Consumed != len(raw) {
		t.Errorf("consumed = %d, want %d", res.Consumed, len(raw))
	}
}

func TestTryParseRequest_TooLargeBody(t *testing.T) {
	body := strings.Repeat("hello", 5000)
	raw := "POST /x HTTP/1.1\r\nContent-Length: " + itoa(len(body)) + "\r\n\r\n" + body
	res := wire.TryParseRequest([]byte(raw), wire.Limits{MaxHeaderBlock: 16 * 1024, MaxRequestSize: 2000})
	if res.Status != wire.StatusInvalid || res.Err.Kind != wire.KindTooLarge {
		t.Fatalf("expected too-large, got %+v", res)
	}
}

func TestTryParseRequest_WithinLimit(t *testing.T) {
	body := strings.Repeat("hello", 100)
	raw := "POST /x HTTP/1.1\r\nContent-Length: " + itoa(len(body)) + "\r\n\r\n" + body
	res := wire.TryParseRequest([]byte(raw), wire.Limits{MaxHeaderBlock: 16 * 1024, MaxRequestSize: 2000})
	if res.Status != wire.StatusComplete {
		t.Fatalf("expected complete within limit, got %+v", res)
	}
}

func TestTryParseRequest_UnsupportedVersion(t *testing.T) {
	res := wire.TryParseRequest([]byte("GET / HTTP/2.0\r\n\r\n"), wire.DefaultLimits())
	if res.Status != wire.StatusInvalid || res.Err.Kind != wire.KindUnsupportedVersion {
		t.Fatalf("expected unsupported version, got %+v", res)
	}
}

func TestTryParseRequest_DuplicateHeadersFolded(t *testing.T) {
	raw := "GET / HTTP/1.1\r\nX-Tag: a\r\nX-Tag: b\r\n\r\n"
	res := wire.TryParseRequest([]byte(raw), wire.DefaultLimits())
	if res.Status != wire.StatusComplete {
		t.Fatalf("expected complete, got %+v", res)
	}
	v, ok := res.Meta.Header.Get("x-tag")
	if !ok || v != "a, b" {
		t.Errorf("duplicate headers not folded: got %q", v)
	}
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := []byte{}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}
