package daemon_test

import (
	"sync"
	"testing"
	"time"

	"github.com/momentics/serverino/daemon"
)

func TestRuntimeConfig_UpdateFiresHooks(t *testing.T) {
	rc := daemon.NewRuntimeConfig(daemon.DefaultConfig())

	var mu sync.Mutex
	var seen map[string]any
	done := make(chan struct{})
	rc.OnUpdate(func(snapshot map[string]any) {
		mu.Lock()
		seen = snapshot
		mu.Unlock()
		close(done)
	})

	rc.Update(map[string]any{"maxWorkers": 16})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("hook was not called")
	}

	mu.Lock()
	defer mu.Unlock()
	if seen["maxWorkers"] != 16 {
		t.Errorf("got maxWorkers=%v, want 16", seen["maxWorkers"])
	}
}

func TestRuntimeConfig_GetAndSnapshot(t *testing.T) {
	cfg := daemon.DefaultConfig()
	cfg.MinWorkers = 3
	rc := daemon.NewRuntimeConfig(cfg)

	v, ok := rc.Get("minWorkers")
	if !ok || v != 3 {
		t.Fatalf("got %v, %v; want 3, true", v, ok)
	}

	snap := rc.Snapshot()
	if snap["minWorkers"] != 3 {
		t.Errorf("snapshot missing minWorkers")
	}
}

func TestRecycleBroadcast_TriggerRunsAllHooks(t *testing.T) {
	rb := daemon.NewRecycleBroadcast()
	count := 0
	rb.Register(func() { count++ })
	rb.Register(func() { count++ })
	rb.Trigger()
	if count != 2 {
		t.Fatalf("got %d hook calls, want 2", count)
	}
}
