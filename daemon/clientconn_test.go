package daemon_test

import (
	"testing"
	"time"

	"github.com/momentics/serverino/daemon"
)

func TestClientConn_TouchAndExpired(t *testing.T) {
	cc := daemon.NewClientConn(7, nil, nil)
	cc.Touch(10 * time.Millisecond)

	if cc.Expired(time.Now()) {
		t.Fatal("should not be expired immediately after Touch")
	}
	if !cc.Expired(time.Now().Add(50 * time.Millisecond)) {
		t.Fatal("should be expired once the deadline has passed")
	}
}

func TestClientConn_ResetForNextRequest(t *testing.T) {
	cc := daemon.NewClientConn(7, nil, nil)
	cc.Ingress = []byte("leftover")
	cc.Egress = []byte("pending")
	cc.WorkerID = 42
	cc.Touch(time.Second)

	cc.ResetForNextRequest()

	if len(cc.Ingress) != 0 {
		t.Errorf("expected Ingress cleared, got %q", cc.Ingress)
	}
	if cc.Egress != nil {
		t.Errorf("expected Egress cleared, got %q", cc.Egress)
	}
	if cc.WorkerID != 0 {
		t.Errorf("expected WorkerID reset, got %d", cc.WorkerID)
	}
	if !cc.Deadline.IsZero() {
		t.Errorf("expected Deadline cleared")
	}
}

func TestClientConn_CloseNilFuncIsNoop(t *testing.T) {
	cc := daemon.NewClientConn(1, nil, nil)
	if err := cc.Close(); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}
