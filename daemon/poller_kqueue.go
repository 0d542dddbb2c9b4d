//go:build darwin || dragonfly || freebsd || netbsd || openbsd

package daemon

import (
	"sync"

	"golang.org/x/sys/unix"
)

// kqueuePoller backs Poller with BSD/Darwin kqueue. Read and write
// interest are tracked as independent kevent filters, mirroring the
// two-filter model kqueue itself uses; UserData is kept in a side map
// the same way poller_linux.go sidesteps EpollEvent's arch-specific Pad
// layout.
type kqueuePoller struct {
	kq int

	mu    sync.RWMutex
	udata map[int32]uintptr
}

func NewPoller() (Poller, error) {
	kq, err := unix.Kqueue()
	if err != nil {
		return nil, err
	}
	return &kqueuePoller{kq: kq, udata: make(map[int32]uintptr)}, nil
}

func (p *kqueuePoller) Add(fd uintptr, interest Interest, udata uintptr) error {
	var changes []unix.Kevent_t
	readFlag := uint16(unix.EV_DELETE)
	if interest&InterestRead != 0 {
		readFlag = unix.EV_ADD | unix.EV_ENABLE
	}
	writeFlag := uint16(unix.EV_DELETE)
	if interest&InterestWrite != 0 {
		writeFlag = unix.EV_ADD | unix.EV_ENABLE
	}
	changes = append(changes,
		unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_READ, Flags: readFlag},
		unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_WRITE, Flags: writeFlag},
	)
	if _, err := unix.Kevent(p.kq, changes, nil, nil); err != nil {
		return err
	}
	p.mu.Lock()
	p.udata[int32(fd)] = udata
	p.mu.Unlock()
	return nil
}

func (p *kqueuePoller) Modify(fd uintptr, interest Interest, udata uintptr) error {
	return p.Add(fd, interest, udata)
}

func (p *kqueuePoller) Remove(fd uintptr) error {
	changes := []unix.Kevent_t{
		{Ident: uint64(fd), Filter: unix.EVFILT_READ, Flags: unix.EV_DELETE},
		{Ident: uint64(fd), Filter: unix.EVFILT_WRITE, Flags: unix.EV_DELETE},
	}
	unix.Kevent(p.kq, changes, nil, nil)
	p.mu.Lock()
	delete(p.udata, int32(fd))
	p.mu.Unlock()
	return nil
}

func (p *kqueuePoller) Wait(events []Event, timeoutMs int) (int, error) {
	raw := make([]unix.Kevent_t, len(events))
	var ts *unix.Timespec
	if timeoutMs >= 0 {
		t := unix.NsecToTimespec(int64(timeoutMs) * int64(1e6))
		ts = &t
	}
	n, err := unix.Kevent(p.kq, nil, raw, ts)
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	for i := 0; i < n; i++ {
		fd := int32(raw[i].Ident)
		events[i] = Event{
			Fd:       uintptr(fd),
			UserData: p.udata[fd],
			Readable: raw[i].Filter == unix.EVFILT_READ,
			Writable: raw[i].Filter == unix.EVFILT_WRITE,
			Error:    raw[i].Flags&unix.EV_ERROR != 0,
			HangUp:   raw[i].Flags&unix.EV_EOF != 0,
		}
	}
	return n, nil
}

func (p *kqueuePoller) Close() error {
	return unix.Close(p.kq)
}
