//go:build !windows

// Out-of-band descriptor passing for WebSocket upgrade handoff (§9:
// "on POSIX use sendmsg with SCM_RIGHTS"). Grounded in the teacher's
// direct use of golang.org/x/sys/unix for socket-level syscalls
// (internal/transport/transport_linux.go uses SendmsgBuffers/RecvmsgBuffers
// from the same package for its zero-copy data path).
package ctrlchan

import (
	"errors"
	"net"

	"golang.org/x/sys/unix"
)

var ErrNotUnixConn = errors.New("ctrlchan: descriptor passing requires a *net.UnixConn control channel")

// SendFD passes fd as an SCM_RIGHTS ancillary message over conn, which
// must be the *net.UnixConn backing a Channel created via NewSocketPair.
// The caller still owns fd after this call and must close its own copy;
// the receiver gets a dup, per the ownership-transfer contract in §5
// ("upgrade handoff moves ownership atomically").
func SendFD(conn net.Conn, fd int) error {
	uc, ok := conn.(*net.UnixConn)
	if !ok {
		return ErrNotUnixConn
	}
	rights := unix.UnixRights(fd)
	_, _, err := uc.WriteMsgUnix([]byte{0}, rights, nil)
	return err
}

// RecvFD reads one SCM_RIGHTS ancillary message from conn and returns the
// received descriptor.
func RecvFD(conn net.Conn) (int, error) {
	uc, ok := conn.(*net.UnixConn)
	if !ok {
		return -1, ErrNotUnixConn
	}
	buf := make([]byte, 1)
	oob := make([]byte, unix.CmsgSpace(4))
	_, oobn, _, _, err := uc.ReadMsgUnix(buf, oob)
	if err != nil {
		return -1, err
	}
	msgs, err := unix.ParseSocketControlMessage(oob[:oobn])
	if err != nil {
		return -1, err
	}
	if len(msgs) == 0 {
		return -1, errors.New("ctrlchan: no control message received")
	}
	fds, err := unix.ParseUnixRights(&msgs[0])
	if err != nil {
		return -1, err
	}
	if len(fds) == 0 {
		return -1, errors.New("ctrlchan: no descriptor in control message")
	}
	return fds[0], nil
}
