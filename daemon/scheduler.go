package daemon

import (
	"sync"
	"time"

	"github.com/momentics/serverino/ctrlchan"
	"github.com/momentics/serverino/wire"
	"github.com/momentics/serverino/workerpool"
)

// pendingRequest is a fully-framed request waiting for an idle worker
// because none was available at arrival time.
type pendingRequest struct {
	conn    *ClientConn
	payload ctrlchan.RequestPayload
}

// workerEvent is what a per-worker reader goroutine pushes back to the
// Scheduler's select loop: either a decoded RESPONSE, a LOG line to
// forward to the Logger, or a terminal error that means the worker (and
// whatever client connection it was bound to) needs cleanup.
type workerEvent struct {
	workerID uint64
	response *ctrlchan.ResponsePayload
	logLine  string
	err      error
}

// Scheduler is the Daemon Poller's event loop (§4.6): it owns the
// Listener, the Poller driving client-socket readiness, the worker fleet
// Table, and the glue between wire framing and ctrlchan dispatch. Its
// shape is grounded in the teacher's server/server.go Serve loop — accept
// in one place, hand off to a per-connection reader — generalized from a
// single in-process handler to a process-boundary dispatch over
// ctrlchan, and from a goroutine-per-connection model to a poller-driven
// one so a stalled worker never blocks an unrelated client.
type Scheduler struct {
	cfg     *Config
	rt      *RuntimeConfig
	metrics *Metrics
	log     Logger

	listener *Listener
	poller   Poller
	table    *workerpool.Table
	spawner  *Spawner
	recycle  *RecycleBroadcast

	mu       sync.Mutex
	conns    map[uintptr]*ClientConn
	byWorker map[uint64]uintptr // workerID -> client fd currently pinned
	pending  []pendingRequest

	events    chan workerEvent
	shutdown  chan struct{}
	closeOnce sync.Once
}

// NewScheduler wires up a Scheduler ready to Run.
func NewScheduler(cfg *Config, rt *RuntimeConfig, metrics *Metrics, logger Logger, listener *Listener, poller Poller, table *workerpool.Table, spawner *Spawner, recycle *RecycleBroadcast) *Scheduler {
	s := &Scheduler{
		cfg:      cfg,
		rt:       rt,
		metrics:  metrics,
		log:      logger,
		listener: listener,
		poller:   poller,
		table:    table,
		spawner:  spawner,
		recycle:  recycle,
		conns:    make(map[uintptr]*ClientConn),
		byWorker: make(map[uint64]uintptr),
		events:   make(chan workerEvent, 256),
		shutdown: make(chan struct{}),
	}
	recycle.Register(func() { s.table.RecycleAll() })
	return s
}

// Run drives the event loop until Shutdown is called. It also owns
// accepting new connections: the listener fd itself is registered with
// the poller alongside client sockets.
func (s *Scheduler) Run() error {
	listenerFD, _, err := s.listener.FD()
	if err != nil {
		return err
	}
	if err := s.poller.Add(listenerFD, InterestRead, 0); err != nil {
		return err
	}

	if err := s.ensureMinWorkers(); err != nil {
		s.log.Errorf("initial worker spawn: %v", err)
	}

	events := make([]Event, 256)
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-s.shutdown:
			return nil
		default:
		}

		n, err := s.poller.Wait(events, 200)
		if err != nil {
			s.log.Errorf("poller wait: %v", err)
			continue
		}
		for i := 0; i < n; i++ {
			ev := events[i]
			if ev.Fd == listenerFD {
				s.acceptAll()
				continue
			}
			if ev.Error || ev.HangUp {
				s.closeClient(ev.Fd, "peer closed")
				continue
			}
			if ev.Readable {
				s.handleClientReadable(ev.Fd)
			}
		}

		s.drainWorkerEvents()
		s.runMaintenance()
	}
}

// Shutdown stops the Run loop. Idempotent.
func (s *Scheduler) Shutdown() {
	s.closeOnce.Do(func() { close(s.shutdown) })
}

func (s *Scheduler) acceptAll() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		fd, closeFn, err := FD(conn)
		if err != nil {
			conn.Close()
			continue
		}
		cc := NewClientConn(fd, conn, closeFn)
		s.mu.Lock()
		s.conns[fd] = cc
		s.mu.Unlock()
		if err := s.poller.Add(fd, InterestRead, fd); err != nil {
			s.log.Errorf("register client fd: %v", err)
			s.closeClient(fd, "register failed")
			continue
		}
		s.metrics.Add("connectionsAccepted", 1)
	}
}

func (s *Scheduler) handleClientReadable(fd uintptr) {
	s.mu.Lock()
	cc := s.conns[fd]
	s.mu.Unlock()
	if cc == nil || cc.Upgraded {
		return
	}

	buf := make([]byte, 64*1024)
	n, err := cc.Conn.Read(buf)
	if err != nil {
		s.closeClient(fd, "read error")
		return
	}
	cc.Ingress = append(cc.Ingress, buf[:n]...)

	limits := wire.Limits{MaxHeaderBlock: s.cfg.MaxHeaderBytes, MaxRequestSize: s.cfg.MaxBodyBytes}
	result := wire.TryParseRequest(cc.Ingress, limits)

	switch result.Status {
	case wire.StatusIncomplete:
		return
	case wire.StatusInvalid:
		s.writeErrorAndClose(cc, result.Err)
		return
	case wire.StatusComplete:
		meta := result.Meta
		rawReq := append([]byte(nil), cc.Ingress[:result.Consumed]...)
		cc.Ingress = cc.Ingress[result.Consumed:]
		cc.KeepAlive = meta.KeepAlive
		cc.HTTPVersion = meta.Version
		cc.Touch(s.cfg.MaxRequestTime)

		payload := ctrlchan.RequestPayload{RawBytes: rawReq, RemoteAddr: cc.Remote, TLS: cc.TLS, ArrivedAt: time.Now()}
		s.dispatchOrQueue(cc, payload)
	}
}

func (s *Scheduler) dispatchOrQueue(cc *ClientConn, payload ctrlchan.RequestPayload) {
	// Stop polling the client socket while a worker owns the request;
	// it is re-added once the response is relayed (or on upgrade, never,
	// since the fd is hand off to the worker instead).
	s.poller.Remove(cc.FD)

	if w, ok := s.table.AcquireIdle(); ok {
		s.bindAndSend(w, cc, payload)
		return
	}
	s.mu.Lock()
	s.pending = append(s.pending, pendingRequest{conn: cc, payload: payload})
	s.mu.Unlock()
}

func (s *Scheduler) bindAndSend(w *workerpool.Worker, cc *ClientConn, payload ctrlchan.RequestPayload) {
	cc.WorkerID = w.ID
	w.ConnFD = cc.FD
	s.mu.Lock()
	s.byWorker[w.ID] = cc.FD
	s.mu.Unlock()

	if w.Control == nil {
		s.failInFlight(cc, w, "worker has no control channel")
		return
	}
	go s.readWorkerFrames(w)

	frame := ctrlchan.Frame{Type: ctrlchan.FrameRequest, Payload: ctrlchan.EncodeRequestPayload(payload)}
	if err := w.Control.Send(frame); err != nil {
		s.failInFlight(cc, w, "send request: "+err.Error())
		return
	}
	s.metrics.Add("requestsDispatched", 1)
}

// readWorkerFrames runs for the lifetime of one request-worker binding,
// reading exactly the frames that binding can produce (RESPONSE, LOG,
// or a channel death) and forwarding them to the Scheduler's select loop
// via the events channel rather than touching shared state directly.
func (s *Scheduler) readWorkerFrames(w *workerpool.Worker) {
	for {
		f, err := w.Control.Recv()
		if err != nil {
			s.events <- workerEvent{workerID: w.ID, err: err}
			return
		}
		switch f.Type {
		case ctrlchan.FrameResponse:
			resp, err := ctrlchan.DecodeResponsePayload(f.Payload)
			if err != nil {
				s.events <- workerEvent{workerID: w.ID, err: err}
				return
			}
			s.events <- workerEvent{workerID: w.ID, response: &resp}
			return
		case ctrlchan.FrameLog:
			s.events <- workerEvent{workerID: w.ID, logLine: string(f.Payload)}
		case ctrlchan.FrameHeartbeat:
			continue
		default:
			continue
		}
	}
}

func (s *Scheduler) drainWorkerEvents() {
	for {
		select {
		case ev := <-s.events:
			s.handleWorkerEvent(ev)
		default:
			return
		}
	}
}

func (s *Scheduler) handleWorkerEvent(ev workerEvent) {
	if ev.logLine != "" && ev.err == nil && ev.response == nil {
		s.log.Infof("worker %d: %s", ev.workerID, ev.logLine)
		return
	}

	w, ok := s.table.Get(ev.workerID)
	s.mu.Lock()
	fd, hadConn := s.byWorker[ev.workerID]
	delete(s.byWorker, ev.workerID)
	var cc *ClientConn
	if hadConn {
		cc = s.conns[fd]
	}
	s.mu.Unlock()

	if ev.err != nil {
		if ok {
			w.MarkDead()
		}
		if cc != nil {
			s.closeClient(cc.FD, "worker crashed")
		}
		return
	}

	if !ok || cc == nil {
		return
	}
	s.relayResponse(w, cc, *ev.response)
}

func (s *Scheduler) relayResponse(w *workerpool.Worker, cc *ClientConn, resp ctrlchan.ResponsePayload) {
	if _, err := cc.Conn.Write(resp.RawBytes); err != nil {
		s.table.MarkIdleAndEnqueue(w)
		s.closeClient(cc.FD, "write error")
		s.serviceNextPending()
		return
	}
	s.metrics.Add("requestsCompleted", 1)

	if resp.DidUpgrade {
		cc.Upgraded = true
		s.table.MarkIdleAndEnqueue(w) // the worker goes back to the idle
		// pool only in the sense of accepting new requests elsewhere;
		// the fd itself has already moved to the worker out-of-band via
		// an UPGRADE_HANDOFF frame sent by worker.Run before RESPONSE.
		s.serviceNextPending()
		return
	}

	s.table.MarkIdleAndEnqueue(w)

	if !resp.KeepAlive {
		s.closeClient(cc.FD, "connection: close")
		s.serviceNextPending()
		return
	}

	cc.ResetForNextRequest()
	if err := s.poller.Add(cc.FD, InterestRead, cc.FD); err != nil {
		s.closeClient(cc.FD, "re-register failed")
	}
	s.serviceNextPending()
}

// serviceNextPending tries to hand the oldest queued request to whatever
// worker just freed up.
func (s *Scheduler) serviceNextPending() {
	s.mu.Lock()
	if len(s.pending) == 0 {
		s.mu.Unlock()
		return
	}
	next := s.pending[0]
	s.pending = s.pending[1:]
	s.mu.Unlock()

	if w, ok := s.table.AcquireIdle(); ok {
		s.bindAndSend(w, next.conn, next.payload)
		return
	}
	s.mu.Lock()
	s.pending = append([]pendingRequest{next}, s.pending...)
	s.mu.Unlock()
}

func (s *Scheduler) failInFlight(cc *ClientConn, w *workerpool.Worker, reason string) {
	s.log.Errorf("worker %d: %s", w.ID, reason)
	w.MarkDead()
	spec := wire.ResponseSpec{Version: cc.HTTPVersion, Status: 502, Header: wire.NewHeader(), Body: wire.ShortErrorBody(502)}
	out := wire.SerializeResponse(nil, spec)
	cc.Conn.Write(out)
	s.closeClient(cc.FD, "worker unavailable")
}

func (s *Scheduler) writeErrorAndClose(cc *ClientConn, ferr *wire.FramingError) {
	status := 400
	switch ferr.Kind {
	case wire.KindTooLarge:
		status = 413
	case wire.KindUnsupportedVersion:
		status = 505
	case wire.KindNotFound:
		status = 404
	}
	spec := wire.ResponseSpec{Version: "HTTP/1.1", Status: status, Header: wire.NewHeader(), Body: wire.ShortErrorBody(status)}
	out := wire.SerializeResponse(nil, spec)
	cc.Conn.Write(out)
	s.closeClient(cc.FD, "framing error: "+ferr.Error())
}

func (s *Scheduler) closeClient(fd uintptr, reason string) {
	s.mu.Lock()
	cc, ok := s.conns[fd]
	if ok {
		delete(s.conns, fd)
	}
	s.mu.Unlock()
	if !ok {
		return
	}
	s.poller.Remove(fd)
	cc.Close()
}

func (s *Scheduler) runMaintenance() {
	now := time.Now()

	for _, w := range s.table.Snapshot() {
		if w.State() == workerpool.Processing {
			s.mu.Lock()
			fd, hasConn := s.byWorker[w.ID]
			cc := s.conns[fd]
			s.mu.Unlock()
			if hasConn && cc != nil && cc.Expired(now) {
				s.timeoutInFlight(w, cc)
			}
		}
	}

	for _, dead := range s.table.ReapDead() {
		s.metrics.Add("workersReaped", 1)
		_ = dead
	}

	for _, w := range s.table.OverIdleWorkers(now) {
		s.retireWorker(w)
	}

	if err := s.ensureMinWorkers(); err != nil {
		s.log.Errorf("scale-up spawn: %v", err)
	}
}

func (s *Scheduler) timeoutInFlight(w *workerpool.Worker, cc *ClientConn) {
	spec := wire.ResponseSpec{Version: cc.HTTPVersion, Status: 504, Header: wire.NewHeader(), Body: wire.ShortErrorBody(504)}
	out := wire.SerializeResponse(nil, spec)
	cc.Conn.Write(out)
	s.closeClient(cc.FD, "request timeout")
	w.MarkDead()
	s.metrics.Add("requestsTimedOut", 1)
}

func (s *Scheduler) retireWorker(w *workerpool.Worker) {
	if w.Control != nil {
		w.Control.Send(ctrlchan.Frame{Type: ctrlchan.FrameShutdown})
	}
	w.MarkStopping()
}

func (s *Scheduler) ensureMinWorkers() error {
	gen := s.table.Generation()
	for s.table.Count() < s.table.MinWorkers {
		w, err := s.spawner.Spawn(gen)
		if err != nil {
			return err
		}
		s.table.Add(w)
		go s.awaitReady(w)
	}
	if pendingDepth := s.pendingDepth(); s.table.NeedsSpawn(pendingDepth) {
		w, err := s.spawner.Spawn(gen)
		if err != nil {
			return err
		}
		s.table.Add(w)
		go s.awaitReady(w)
	}
	return nil
}

func (s *Scheduler) pendingDepth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// awaitReady blocks on a freshly spawned worker's first frame, expected
// to be READY, then folds it into the idle pool and hands it any pending
// request. Per-request frame readers are started by bindAndSend.
func (s *Scheduler) awaitReady(w *workerpool.Worker) {
	f, err := w.Control.Recv()
	if err != nil || f.Type != ctrlchan.FrameReady {
		w.MarkDead()
		return
	}
	w.MarkReady()
	s.table.MarkIdleAndEnqueue(w)
	s.serviceNextPending()
}
