//go:build windows

// Windows has no SCM_RIGHTS equivalent; a socket handle is transferred
// between processes via WSADuplicateSocket producing a WSAPROTOCOL_INFO
// blob that the target process feeds to WSASocket (§9). The control
// channel on Windows is a loopback TCP connection rather than a pipe
// carrying ancillary data (see socketpair_windows.go). This file only
// produces the blob; nothing in the module sends it to a worker.
package ctrlchan

import (
	"errors"

	"golang.org/x/sys/windows"
)

// ErrHandoffNotImplemented reports that the upgrade handoff is not
// implemented on Windows: WSADuplicateSocket needs the target process id
// at call time, and the loopback control channel carries no path for the
// resulting blob.
var ErrHandoffNotImplemented = errors.New("ctrlchan: windows upgrade handoff not implemented")

// DuplicateSocketInfo produces the WSAPROTOCOL_INFO blob that would let
// targetPID reconstruct a handle to sock via WSASocket.
func DuplicateSocketInfo(sock windows.Handle, targetPID uint32) (windows.WSAProtocolInfo, error) {
	var info windows.WSAProtocolInfo
	err := windows.WSADuplicateSocket(sock, targetPID, &info)
	return info, err
}
