//go:build windows

package daemon

import (
	"os"
	"os/exec"

	"github.com/momentics/serverino/ctrlchan"
)

// WorkerControlAddrEnvVar carries the loopback address the worker should
// dial to establish its control channel, since Windows has no
// ExtraFiles-style descriptor inheritance for arbitrary sockets (§9).
const WorkerControlAddrEnvVar = "SERVERINO_CONTROL_ADDR"

// launch spawns the worker pointed at a loopback listener instead of
// inheriting a socketpair descriptor. launch blocks in Accept until the
// worker dials in, so Spawn on Windows returns only after that
// connection exists, unlike the POSIX path where the Channel is ready as
// soon as the child starts.
func (s *Spawner) launch() (*ctrlchan.Channel, *exec.Cmd, error) {
	listener, addr, err := ctrlchan.NewSocketPair()
	if err != nil {
		return nil, nil, err
	}
	defer listener.Close()

	cmd := exec.Command(s.BinaryPath, s.ExtraArgs...)
	cmd.Env = append(s.env(), WorkerControlAddrEnvVar+"="+addr)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return nil, nil, err
	}

	conn, err := listener.Accept()
	if err != nil {
		cmd.Process.Kill()
		return nil, nil, err
	}

	return ctrlchan.NewChannel(conn), cmd, nil
}
