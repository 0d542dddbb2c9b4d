package ctrlchan_test

import (
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/momentics/serverino/ctrlchan"
)

func TestWriteReadFrame_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	want := ctrlchan.Frame{Type: ctrlchan.FrameReady, Payload: []byte("hello")}
	if err := ctrlchan.WriteFrame(&buf, want); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := ctrlchan.ReadFrame(&buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.Type != want.Type || !bytes.Equal(got.Payload, want.Payload) {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestReadFrame_PartialReads(t *testing.T) {
	var full bytes.Buffer
	ctrlchan.WriteFrame(&full, ctrlchan.Frame{Type: ctrlchan.FrameLog, Payload: []byte("partial-read line")})
	data := full.Bytes()

	pr, pw := io.Pipe()
	go func() {
		for i := 0; i < len(data); i += 3 {
			end := i + 3
			if end > len(data) {
				end = len(data)
			}
			pw.Write(data[i:end])
			time.Sleep(time.Millisecond)
		}
		pw.Close()
	}()

	f, err := ctrlchan.ReadFrame(pr)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if f.Type != ctrlchan.FrameLog || string(f.Payload) != "partial-read line" {
		t.Errorf("got %+v", f)
	}
}

func TestReadFrame_Malformed(t *testing.T) {
	// Declares a length of zero, which is invalid: every frame has at
	// least the type byte.
	buf := bytes.NewBuffer([]byte{0, 0, 0, 0})
	_, err := ctrlchan.ReadFrame(buf)
	if err != ctrlchan.ErrMalformedFrame {
		t.Fatalf("expected ErrMalformedFrame, got %v", err)
	}
}

func TestRequestPayload_RoundTrip(t *testing.T) {
	want := ctrlchan.RequestPayload{
		RawBytes:   []byte("GET / HTTP/1.1\r\n\r\n"),
		RemoteAddr: "127.0.0.1:54321",
		TLS:        true,
		ArrivedAt:  time.Unix(1700000000, 0),
	}
	got, err := ctrlchan.DecodeRequestPayload(ctrlchan.EncodeRequestPayload(want))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(got.RawBytes) != string(want.RawBytes) || got.RemoteAddr != want.RemoteAddr ||
		got.TLS != want.TLS || !got.ArrivedAt.Equal(want.ArrivedAt) {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestResponsePayload_RoundTrip(t *testing.T) {
	want := ctrlchan.ResponsePayload{RawBytes: []byte("HTTP/1.1 200 OK\r\n\r\n"), KeepAlive: true, DidUpgrade: false}
	got, err := ctrlchan.DecodeResponsePayload(ctrlchan.EncodeResponsePayload(want))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(got.RawBytes) != string(want.RawBytes) || got.KeepAlive != want.KeepAlive || got.DidUpgrade != want.DidUpgrade {
		t.Errorf("got %+v, want %+v", got, want)
	}
}
