package daemon

import (
	"fmt"
	"os"
	"sync/atomic"

	"github.com/momentics/serverino/workerpool"
)

// WorkerEnvVar, when set to "1" in a child's environment, tells
// cmd/serverinod to run the worker main loop instead of the daemon (§3.3,
// §9's self-reexec pattern). There is no command-line flag equivalent.
const WorkerEnvVar = "SERVERINO_WORKER"

var workerIDCounter uint64

// Spawner starts worker processes by re-executing the daemon's own
// binary with WorkerEnvVar set, handing each child its control-channel
// descriptor the platform-appropriate way (ExtraFiles + fd inheritance on
// POSIX, a loopback address baked into the environment on Windows).
type Spawner struct {
	BinaryPath string
	ExtraArgs  []string
}

// NewSpawner stores the worker binary path and extra arguments as given;
// the caller resolves the path (cmd/serverinod passes os.Executable()).
func NewSpawner(binaryPath string, extraArgs []string) *Spawner {
	return &Spawner{BinaryPath: binaryPath, ExtraArgs: extraArgs}
}

// Spawn launches one worker process and returns a workerpool.Worker
// bound to a live control channel, in the Starting state until the
// worker's READY frame arrives.
func (s *Spawner) Spawn(generation int) (*workerpool.Worker, error) {
	id := atomic.AddUint64(&workerIDCounter, 1)
	ctrl, cmd, err := s.launch()
	if err != nil {
		return nil, fmt.Errorf("spawn worker %d: %w", id, err)
	}
	return workerpool.NewWorker(id, ctrl, cmd, generation), nil
}

func (s *Spawner) env() []string {
	return append(os.Environ(), WorkerEnvVar+"=1")
}
