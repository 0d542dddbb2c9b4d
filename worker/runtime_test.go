package worker_test

import (
	"net"
	"strings"
	"testing"
	"time"

	"github.com/momentics/serverino/ctrlchan"
	"github.com/momentics/serverino/wire"
	"github.com/momentics/serverino/worker"
)

func TestRuntime_ServesOneRequestThenShutsDown(t *testing.T) {
	daemonSide, workerSide := net.Pipe()
	daemonSide.SetDeadline(time.Now().Add(5 * time.Second))
	workerSide.SetDeadline(time.Now().Add(5 * time.Second))

	reg := worker.NewRegistry()
	reg.Register(0, worker.PathEquals("/hello"), "hello", worker.OutputOnlyFunc(func(o *worker.Output) {
		o.Write([]byte("world"))
	}))
	rt := worker.NewRuntime(reg)

	done := make(chan error, 1)
	go func() { done <- rt.Run(ctrlchan.NewChannel(workerSide)) }()

	daemonChan := ctrlchan.NewChannel(daemonSide)

	ready, err := daemonChan.Recv()
	if err != nil || ready.Type != ctrlchan.FrameReady {
		t.Fatalf("expected READY, got %+v err=%v", ready, err)
	}

	reqPayload := ctrlchan.EncodeRequestPayload(ctrlchan.RequestPayload{
		RawBytes:   []byte("GET /hello HTTP/1.1\r\nHost: x\r\n\r\n"),
		RemoteAddr: "127.0.0.1:1",
		ArrivedAt:  time.Unix(0, 1),
	})
	if err := daemonChan.Send(ctrlchan.Frame{Type: ctrlchan.FrameRequest, Payload: reqPayload}); err != nil {
		t.Fatalf("send request: %v", err)
	}

	resp, err := daemonChan.Recv()
	if err != nil || resp.Type != ctrlchan.FrameResponse {
		t.Fatalf("expected RESPONSE, got %+v err=%v", resp, err)
	}
	decoded, err := ctrlchan.DecodeResponsePayload(resp.Payload)
	if err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !strings.Contains(string(decoded.RawBytes), "world") {
		t.Fatalf("expected body to contain world, got %q", decoded.RawBytes)
	}
	if !strings.HasPrefix(string(decoded.RawBytes), "HTTP/1.1 200") {
		t.Fatalf("expected 200 status line, got %q", decoded.RawBytes)
	}

	if err := daemonChan.Send(ctrlchan.Frame{Type: ctrlchan.FrameShutdown}); err != nil {
		t.Fatalf("send shutdown: %v", err)
	}

	if err := <-done; err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
}

func TestRuntime_UnmatchedRouteReturns404(t *testing.T) {
	daemonSide, workerSide := net.Pipe()
	daemonSide.SetDeadline(time.Now().Add(5 * time.Second))
	workerSide.SetDeadline(time.Now().Add(5 * time.Second))

	rt := worker.NewRuntime(worker.NewRegistry())
	go rt.Run(ctrlchan.NewChannel(workerSide))

	daemonChan := ctrlchan.NewChannel(daemonSide)
	if _, err := daemonChan.Recv(); err != nil {
		t.Fatalf("recv ready: %v", err)
	}

	reqPayload := ctrlchan.EncodeRequestPayload(ctrlchan.RequestPayload{
		RawBytes: []byte("GET /missing HTTP/1.1\r\nHost: x\r\n\r\n"),
	})
	daemonChan.Send(ctrlchan.Frame{Type: ctrlchan.FrameRequest, Payload: reqPayload})

	resp, err := daemonChan.Recv()
	if err != nil {
		t.Fatalf("recv response: %v", err)
	}
	decoded, _ := ctrlchan.DecodeResponsePayload(resp.Payload)
	if !strings.HasPrefix(string(decoded.RawBytes), "HTTP/1.1 404") {
		t.Fatalf("expected 404 status line, got %q", decoded.RawBytes)
	}

	daemonChan.Send(ctrlchan.Frame{Type: ctrlchan.FrameShutdown})
}

func TestRuntime_HandlerPanicReturns500AndShutsDown(t *testing.T) {
	daemonSide, workerSide := net.Pipe()
	daemonSide.SetDeadline(time.Now().Add(5 * time.Second))
	workerSide.SetDeadline(time.Now().Add(5 * time.Second))

	reg := worker.NewRegistry()
	reg.Register(0, nil, "boom", worker.OutputOnlyFunc(func(*worker.Output) { panic("nope") }))
	rt := worker.NewRuntime(reg)

	done := make(chan error, 1)
	go func() { done <- rt.Run(ctrlchan.NewChannel(workerSide)) }()

	daemonChan := ctrlchan.NewChannel(daemonSide)
	daemonChan.Recv() // READY

	reqPayload := ctrlchan.EncodeRequestPayload(ctrlchan.RequestPayload{
		RawBytes: []byte("GET / HTTP/1.1\r\nHost: x\r\n\r\n"),
	})
	daemonChan.Send(ctrlchan.Frame{Type: ctrlchan.FrameRequest, Payload: reqPayload})

	// The worker forwards a LOG line about the fault before its RESPONSE.
	resp, err := daemonChan.Recv()
	for err == nil && resp.Type == ctrlchan.FrameLog {
		resp, err = daemonChan.Recv()
	}
	if err != nil {
		t.Fatalf("recv response: %v", err)
	}
	decoded, _ := ctrlchan.DecodeResponsePayload(resp.Payload)
	if !strings.HasPrefix(string(decoded.RawBytes), "HTTP/1.1 500") {
		t.Fatalf("expected 500 status line, got %q", decoded.RawBytes)
	}

	shutdown, err := daemonChan.Recv()
	if err != nil || shutdown.Type != ctrlchan.FrameShutdown {
		t.Fatalf("expected worker to self-shutdown after a fault, got %+v err=%v", shutdown, err)
	}

	if err := <-done; err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
}

var _ = wire.StatusComplete // keep wire imported for readability of payload assertions above
