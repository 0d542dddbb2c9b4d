//go:build windows

package daemon

import (
	"sync"

	"golang.org/x/sys/windows"
)

// wsaPollPoller backs Poller with Windows WSAPoll, a single-shot poll(2)
// analogue: unlike epoll/kqueue there is no persistent kernel-side
// registration, so the fd set is rebuilt from the registration map on
// every Wait call, so each Wait costs time proportional to the number of
// registered sockets.
type wsaPollPoller struct {
	mu    sync.Mutex
	regs  map[windows.Handle]regEntry
}

type regEntry struct {
	interest Interest
	udata    uintptr
}

func NewPoller() (Poller, error) {
	return &wsaPollPoller{regs: make(map[windows.Handle]regEntry)}, nil
}

func (p *wsaPollPoller) Add(fd uintptr, interest Interest, udata uintptr) error {
	p.mu.Lock()
	p.regs[windows.Handle(fd)] = regEntry{interest: interest, udata: udata}
	p.mu.Unlock()
	return nil
}

func (p *wsaPollPoller) Modify(fd uintptr, interest Interest, udata uintptr) error {
	return p.Add(fd, interest, udata)
}

func (p *wsaPollPoller) Remove(fd uintptr) error {
	p.mu.Lock()
	delete(p.regs, windows.Handle(fd))
	p.mu.Unlock()
	return nil
}

func (p *wsaPollPoller) Wait(events []Event, timeoutMs int) (int, error) {
	p.mu.Lock()
	fds := make([]windows.WSAPollFd, 0, len(p.regs))
	handles := make([]windows.Handle, 0, len(p.regs))
	udatas := make([]uintptr, 0, len(p.regs))
	for h, reg := range p.regs {
		var events int16
		if reg.interest&InterestRead != 0 {
			events |= windows.POLLRDNORM
		}
		if reg.interest&InterestWrite != 0 {
			events |= windows.POLLWRNORM
		}
		fds = append(fds, windows.WSAPollFd{Fd: windows.Handle(h), Events: events})
		handles = append(handles, h)
		udatas = append(udatas, reg.udata)
	}
	p.mu.Unlock()

	if len(fds) == 0 {
		return 0, nil
	}

	timeout := int32(timeoutMs)
	if timeoutMs < 0 {
		timeout = -1
	}
	n, err := windows.WSAPoll(fds, timeout)
	if err != nil {
		return 0, err
	}

	count := 0
	for i, pf := range fds {
		if pf.REvents == 0 || count >= len(events) {
			continue
		}
		events[count] = Event{
			Fd:       uintptr(handles[i]),
			UserData: udatas[i],
			Readable: pf.REvents&(windows.POLLRDNORM|windows.POLLIN) != 0,
			Writable: pf.REvents&(windows.POLLWRNORM|windows.POLLOUT) != 0,
			Error:    pf.REvents&windows.POLLERR != 0,
			HangUp:   pf.REvents&(windows.POLLHUP|windows.POLLNVAL) != 0,
		}
		count++
	}
	_ = n
	return count, nil
}

func (p *wsaPollPoller) Close() error {
	return nil
}
