//go:build linux

package daemon

import (
	"sync"

	"golang.org/x/sys/unix"
)

// epollPoller backs Poller with Linux epoll, the same family of syscalls
// the teacher's reactor/reactor_linux.go wraps. unix.EpollEvent's layout
// varies by arch (the teacher works around this with unsafe.Pointer into
// the Pad field), so instead UserData is kept in an ordinary map keyed by
// fd, sidestepping the arch-specific struct packing entirely.
type epollPoller struct {
	epfd int

	mu    sync.RWMutex
	udata map[int32]uintptr
}

// NewPoller constructs the Linux epoll-backed Poller.
func NewPoller() (Poller, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}
	return &epollPoller{epfd: epfd, udata: make(map[int32]uintptr)}, nil
}

func toEpollEvents(interest Interest) uint32 {
	var ev uint32
	if interest&InterestRead != 0 {
		ev |= unix.EPOLLIN
	}
	if interest&InterestWrite != 0 {
		ev |= unix.EPOLLOUT
	}
	return ev
}

func (p *epollPoller) Add(fd uintptr, interest Interest, udata uintptr) error {
	ev := &unix.EpollEvent{Events: toEpollEvents(interest), Fd: int32(fd)}
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, int(fd), ev); err != nil {
		return err
	}
	p.mu.Lock()
	p.udata[int32(fd)] = udata
	p.mu.Unlock()
	return nil
}

func (p *epollPoller) Modify(fd uintptr, interest Interest, udata uintptr) error {
	ev := &unix.EpollEvent{Events: toEpollEvents(interest), Fd: int32(fd)}
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_MOD, int(fd), ev); err != nil {
		return err
	}
	p.mu.Lock()
	p.udata[int32(fd)] = udata
	p.mu.Unlock()
	return nil
}

func (p *epollPoller) Remove(fd uintptr) error {
	err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, int(fd), nil)
	p.mu.Lock()
	delete(p.udata, int32(fd))
	p.mu.Unlock()
	if err == unix.ENOENT {
		return nil
	}
	return err
}

func (p *epollPoller) Wait(events []Event, timeoutMs int) (int, error) {
	raw := make([]unix.EpollEvent, len(events))
	n, err := unix.EpollWait(p.epfd, raw, timeoutMs)
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, err
	}
	p.mu.RLock()
	for i := 0; i < n; i++ {
		events[i] = Event{
			Fd:       uintptr(raw[i].Fd),
			UserData: p.udata[raw[i].Fd],
			Readable: raw[i].Events&unix.EPOLLIN != 0,
			Writable: raw[i].Events&unix.EPOLLOUT != 0,
			Error:    raw[i].Events&unix.EPOLLERR != 0,
			HangUp:   raw[i].Events&(unix.EPOLLHUP|unix.EPOLLRDHUP) != 0,
		}
	}
	p.mu.RUnlock()
	return n, nil
}

func (p *epollPoller) Close() error {
	return unix.Close(p.epfd)
}
