package wire_test

import (
	"strings"
	"testing"

	"github.com/momentics/serverino/wire"
)

func TestSerializeResponse_LiteralScenario1(t *testing.T) {
	// Content-type is left to the endpoint in this scenario (text/plain),
	// matching §8 scenario 1's literal expected response.
	hdr := wire.NewHeader()
	hdr.Set("content-type", "text/plain")
	out := wire.SerializeResponse(nil, wire.ResponseSpec{
		Version:   "HTTP/1.0",
		Status:    200,
		Header:    hdr,
		Body:      []byte("simple"),
		KeepAlive: false,
	})
	want := "HTTP/1.0 200 OK\r\nconnection: close\r\ncontent-length: 6\r\ncontent-type: text/plain\r\n\r\nsimple"
	if string(out) != want {
		t.Errorf("got:\n%q\nwant:\n%q", out, want)
	}
}

func TestSerializeResponse_HeadSuppressesBody(t *testing.T) {
	out := wire.SerializeResponse(nil, wire.ResponseSpec{
		Version:      "HTTP/1.1",
		Status:       200,
		Header:       wire.NewHeader(),
		Body:         []byte("hello"),
		SuppressBody: true,
		KeepAlive:    true,
	})
	s := string(out)
	if !strings.Contains(s, "content-length: 5") {
		t.Errorf("HEAD response must still report the real content-length: %q", s)
	}
	if strings.HasSuffix(s, "hello") {
		t.Errorf("HEAD response must not include the body: %q", s)
	}
}

func TestSerializeResponse_SetCookieOrderPreserved(t *testing.T) {
	out := wire.SerializeResponse(nil, wire.ResponseSpec{
		Version: "HTTP/1.1",
		Status:  200,
		Header:  wire.NewHeader(),
		Cookies: []wire.Cookie{{Line: "a=1"}, {Line: "b=2"}},
		KeepAlive: true,
	})
	s := string(out)
	ia := strings.Index(s, "Set-Cookie: a=1")
	ib := strings.Index(s, "Set-Cookie: b=2")
	if ia < 0 || ib < 0 || ia > ib {
		t.Errorf("Set-Cookie insertion order not preserved: %q", s)
	}
}

func TestShortErrorBody(t *testing.T) {
	body := wire.ShortErrorBody(404)
	if !strings.Contains(string(body), "404") {
		t.Errorf("expected body to mention status code: %q", body)
	}
}
