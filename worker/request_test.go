package worker_test

import (
	"testing"

	"github.com/momentics/serverino/wire"
	"github.com/momentics/serverino/worker"
)

func metaFor(method, target string, hdr *wire.Header) *wire.RequestMeta {
	if hdr == nil {
		hdr = wire.NewHeader()
	}
	return &wire.RequestMeta{Method: method, RawTarget: target, Version: "HTTP/1.1", Header: hdr}
}

func TestNewRequest_SplitsQueryAndDecodesPath(t *testing.T) {
	req := worker.NewRequest(metaFor("GET", "/a%20b?x=1&y=2", nil), nil, "1.2.3.4:555", false, nil)

	if req.Path != "/a b" {
		t.Fatalf("Path = %q, want %q", req.Path, "/a b")
	}
	if req.RawPath != "/a%20b" {
		t.Fatalf("RawPath = %q, want %q", req.RawPath, "/a%20b")
	}
	if got := req.Query.Get("x"); got != "1" {
		t.Fatalf("Query[x] = %q, want 1", got)
	}
}

func TestNewRequest_ExtractsBasicAuth(t *testing.T) {
	hdr := wire.NewHeader()
	hdr.Set("authorization", "Basic YWxpY2U6c2VjcmV0") // alice:secret
	req := worker.NewRequest(metaFor("GET", "/", hdr), nil, "", false, nil)

	if !req.Auth.Present {
		t.Fatal("expected Auth.Present")
	}
	if req.Auth.User != "alice" || req.Auth.Password != "secret" {
		t.Fatalf("got %+v", req.Auth)
	}
}

func TestRequest_CookiesParsed(t *testing.T) {
	hdr := wire.NewHeader()
	hdr.Set("cookie", "a=1; b=2")
	req := worker.NewRequest(metaFor("GET", "/", hdr), nil, "", false, nil)

	cookies := req.Cookies()
	if cookies["a"] != "1" || cookies["b"] != "2" {
		t.Fatalf("got %+v", cookies)
	}
}

func TestRequest_FormNilDecoderReturnsEmpty(t *testing.T) {
	req := worker.NewRequest(metaFor("POST", "/", nil), []byte("x=1"), "", false, nil)
	if len(req.Form()) != 0 {
		t.Fatalf("expected empty form, got %+v", req.Form())
	}
}
