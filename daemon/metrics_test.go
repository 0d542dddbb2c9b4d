package daemon_test

import (
	"testing"

	"github.com/momentics/serverino/daemon"
)

func TestMetrics_AddAndSnapshot(t *testing.T) {
	m := daemon.NewMetrics()
	m.Add("requestsDispatched", 3)
	m.Add("requestsDispatched", 2)
	m.Set("idleWorkers", 4)

	snap := m.Snapshot()
	if snap["requestsDispatched"] != 5 {
		t.Errorf("got %d, want 5", snap["requestsDispatched"])
	}
	if snap["idleWorkers"] != 4 {
		t.Errorf("got %d, want 4", snap["idleWorkers"])
	}
}

func TestDebug_RegisterAndDump(t *testing.T) {
	d := daemon.NewDebug()
	d.Register("answer", func() any { return 42 })
	dump := d.Dump()
	if dump["answer"] != 42 {
		t.Errorf("got %v, want 42", dump["answer"])
	}
}
