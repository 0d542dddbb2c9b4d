package worker_test

import (
	"net"
	"testing"
	"time"

	"github.com/momentics/serverino/wire"
	"github.com/momentics/serverino/worker"
)

func writeClientFrame(t *testing.T, conn net.Conn, f wire.Frame) {
	t.Helper()
	out, err := wire.EncodeFrame(nil, f, true, wire.CryptoRandSource{})
	if err != nil {
		t.Fatalf("EncodeFrame: %v", err)
	}
	if _, err := conn.Write(out); err != nil {
		t.Fatalf("Write: %v", err)
	}
}

func TestSession_ReceiveSingleFrameMessage(t *testing.T) {
	clientSide, serverSide := net.Pipe()
	defer clientSide.Close()
	sess := worker.NewSession(serverSide, 0)

	go writeClientFrame(t, clientSide, wire.Frame{Fin: true, Opcode: wire.OpText, Payload: []byte("hi")})

	msg, err := sess.Receive()
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if msg.Opcode != wire.OpText || string(msg.Payload) != "hi" {
		t.Fatalf("got %+v", msg)
	}
}

func TestSession_ReceiveReassemblesFragments(t *testing.T) {
	clientSide, serverSide := net.Pipe()
	defer clientSide.Close()
	sess := worker.NewSession(serverSide, 0)

	go func() {
		writeClientFrame(t, clientSide, wire.Frame{Fin: false, Opcode: wire.OpText, Payload: []byte("hello ")})
		writeClientFrame(t, clientSide, wire.Frame{Fin: true, Opcode: wire.OpContinuation, Payload: []byte("world")})
	}()

	msg, err := sess.Receive()
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if string(msg.Payload) != "hello world" {
		t.Fatalf("got %q", msg.Payload)
	}
}

func TestSession_ReceiveAutoPongsPing(t *testing.T) {
	clientSide, serverSide := net.Pipe()
	defer clientSide.Close()
	sess := worker.NewSession(serverSide, 0)

	done := make(chan struct{})
	go func() {
		defer close(done)
		writeClientFrame(t, clientSide, wire.Frame{Fin: true, Opcode: wire.OpPing, Payload: []byte("ping")})
		frame, _, err := wire.DecodeFrame(readAll(t, clientSide), 0, false)
		if err != nil {
			t.Errorf("decoding pong: %v", err)
			return
		}
		if frame == nil || frame.Opcode != wire.OpPong {
			t.Errorf("expected pong frame, got %+v", frame)
		}
		writeClientFrame(t, clientSide, wire.Frame{Fin: true, Opcode: wire.OpText, Payload: []byte("after")})
	}()

	msg, err := sess.Receive()
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if string(msg.Payload) != "after" {
		t.Fatalf("got %q", msg.Payload)
	}
	<-done
}

func readAll(t *testing.T, conn net.Conn) []byte {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(time.Second))
	buf := make([]byte, 256)
	n, err := conn.Read(buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	return buf[:n]
}

func TestSession_SendWritesUnmaskedServerFrame(t *testing.T) {
	clientSide, serverSide := net.Pipe()
	defer clientSide.Close()
	sess := worker.NewSession(serverSide, 0)

	done := make(chan struct{})
	var got *wire.Frame
	go func() {
		defer close(done)
		buf := readAll(t, clientSide)
		f, _, err := wire.DecodeFrame(buf, 0, false)
		if err != nil {
			t.Errorf("DecodeFrame: %v", err)
			return
		}
		got = f
	}()

	if err := sess.Send(wire.OpBinary, []byte("data")); err != nil {
		t.Fatalf("Send: %v", err)
	}
	<-done

	if got == nil || got.Masked {
		t.Fatalf("expected unmasked server frame, got %+v", got)
	}
	if string(got.Payload) != "data" {
		t.Fatalf("payload = %q", got.Payload)
	}
}
