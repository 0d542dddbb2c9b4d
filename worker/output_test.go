package worker_test

import (
	"testing"

	"github.com/momentics/serverino/worker"
)

func TestOutput_NewDefaults(t *testing.T) {
	out := worker.NewOutput()
	if out.Status != 200 {
		t.Fatalf("Status = %d, want 200", out.Status)
	}
	if out.Header == nil {
		t.Fatal("Header should be pre-seeded")
	}
}

func TestOutput_WriteAppendsBody(t *testing.T) {
	out := worker.NewOutput()
	out.Write([]byte("hello "))
	out.Write([]byte("world"))
	if string(out.Body) != "hello world" {
		t.Fatalf("Body = %q", out.Body)
	}
}

func TestOutput_SetCookieKeepsOrder(t *testing.T) {
	out := worker.NewOutput()
	out.SetCookie("a=1")
	out.SetCookie("b=2")
	cookies := out.Cookies()
	if len(cookies) != 2 || cookies[0].Line != "a=1" || cookies[1].Line != "b=2" {
		t.Fatalf("got %+v", cookies)
	}
}

func TestOutput_ResetRestoresDefaults(t *testing.T) {
	out := worker.NewOutput()
	out.Status = 500
	out.Write([]byte("x"))
	out.Deleted = true
	out.Mute = true
	out.Continue = true
	out.SetCookie("a=1")

	out.Reset()

	if out.Status != 200 || out.Body != nil || out.Deleted || out.Mute || out.Continue {
		t.Fatalf("Reset left stale state: %+v", out)
	}
	if len(out.Cookies()) != 0 {
		t.Fatalf("expected cookies cleared, got %+v", out.Cookies())
	}
}

func TestOutput_ToResponseSpecCarriesMute(t *testing.T) {
	out := worker.NewOutput()
	out.Mute = true
	out.Write([]byte("body"))

	spec := out.ToResponseSpec("HTTP/1.1", true)
	if !spec.SuppressBody {
		t.Fatal("expected SuppressBody true")
	}
	if string(spec.Body) != "body" {
		t.Fatalf("expected Body preserved for content-length accounting, got %q", spec.Body)
	}
}
