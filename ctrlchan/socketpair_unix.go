//go:build !windows

// Descriptor-level socket pair creation for the daemon↔worker control
// channel. Grounded in the teacher's own use of golang.org/x/sys/unix for
// raw socket syscalls (internal/transport/transport_linux.go).
package ctrlchan

import (
	"fmt"
	"net"
	"os"

	"golang.org/x/sys/unix"
)

// NewSocketPair creates a connected AF_UNIX SOCK_STREAM pair. daemonConn
// is ready to use in this process. workerFile is the raw, un-dup'd other
// end: the daemon passes it to the spawned worker via exec.Cmd.ExtraFiles
// and closes its own handle once the child has inherited it — the worker
// process wraps the inherited descriptor with net.FileConn on its own
// side (see runWorker in cmd/serverinod).
func NewSocketPair() (daemonConn net.Conn, workerFile *os.File, err error) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("ctrlchan: socketpair: %w", err)
	}

	daemonFile := os.NewFile(uintptr(fds[0]), "serverino-ctrl-daemon")
	workerFile = os.NewFile(uintptr(fds[1]), "serverino-ctrl-worker")

	daemonConn, err = net.FileConn(daemonFile)
	if err != nil {
		daemonFile.Close()
		workerFile.Close()
		return nil, nil, fmt.Errorf("ctrlchan: FileConn: %w", err)
	}
	// net.FileConn dup'd the fd into daemonConn; the original descriptor
	// is no longer needed on this side.
	daemonFile.Close()

	return daemonConn, workerFile, nil
}
