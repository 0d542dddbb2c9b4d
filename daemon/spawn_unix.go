//go:build !windows

package daemon

import (
	"os"
	"os/exec"

	"github.com/momentics/serverino/ctrlchan"
)

// launch spawns the worker with its end of a freshly created socketpair
// passed through ExtraFiles. The child recovers it as fd 3 (the first
// slot after stdin/stdout/stderr) and wraps it with net.FileConn itself
// (runWorker in cmd/serverinod does this on startup).
func (s *Spawner) launch() (*ctrlchan.Channel, *exec.Cmd, error) {
	daemonConn, workerFile, err := ctrlchan.NewSocketPair()
	if err != nil {
		return nil, nil, err
	}

	cmd := exec.Command(s.BinaryPath, s.ExtraArgs...)
	cmd.Env = s.env()
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.ExtraFiles = []*os.File{workerFile}

	if err := cmd.Start(); err != nil {
		daemonConn.Close()
		workerFile.Close()
		return nil, nil, err
	}
	// The daemon no longer needs its own copy of the raw file once the
	// child has inherited it.
	workerFile.Close()

	return ctrlchan.NewChannel(daemonConn), cmd, nil
}
