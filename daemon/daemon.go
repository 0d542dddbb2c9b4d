package daemon

import (
	"fmt"
	"time"

	"github.com/momentics/serverino/ctrlchan"
	"github.com/momentics/serverino/workerpool"
)

func shutdownFrame() ctrlchan.Frame {
	return ctrlchan.Frame{Type: ctrlchan.FrameShutdown}
}

// Daemon is the top-level supervisor object (§4): an owned handle over a
// Listener, Poller, worker Table, and Scheduler, constructed explicitly
// by NewDaemon rather than held as package-level global state — unlike
// the teacher's control package, which keeps its registries as
// process-wide singletons, a long-running supervisor benefits from being
// able to stand up more than one in tests.
type Daemon struct {
	cfg     *Config
	rt      *RuntimeConfig
	metrics *Metrics
	debug   *Debug
	log     Logger
	recycle *RecycleBroadcast

	listener  *Listener
	poller    Poller
	table     *workerpool.Table
	spawner   *Spawner
	scheduler *Scheduler

	runErr chan error
}

// NewDaemon wires every collaborator but does not start serving.
func NewDaemon(cfg *Config, logger Logger) (*Daemon, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = NewStdLogger()
	}

	listener, err := NewListener(cfg.ListenAddr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", cfg.ListenAddr, err)
	}

	poller, err := NewPoller()
	if err != nil {
		listener.Close()
		return nil, fmt.Errorf("new poller: %w", err)
	}

	table := workerpool.NewTable(cfg.MaxWorkers, cfg.MinWorkers, cfg.IdleHangoverTime, cfg.MaxRequestsPerProc, cfg.MaxWorkerLifetime)
	spawner := NewSpawner(cfg.WorkerBinaryPath, cfg.WorkerExtraArgs)
	rt := NewRuntimeConfig(cfg)
	metrics := NewMetrics()
	debug := NewDebug()
	recycle := NewRecycleBroadcast()

	d := &Daemon{
		cfg:      cfg,
		rt:       rt,
		metrics:  metrics,
		debug:    debug,
		log:      logger,
		recycle:  recycle,
		listener: listener,
		poller:   poller,
		table:    table,
		spawner:  spawner,
		runErr:   make(chan error, 1),
	}

	d.scheduler = NewScheduler(cfg, rt, metrics, logger, listener, poller, table, spawner, recycle)
	d.installDebugProbes()
	return d, nil
}

func (d *Daemon) installDebugProbes() {
	d.debug.Register("workers", func() any {
		out := make([]map[string]any, 0)
		for _, w := range d.table.Snapshot() {
			out = append(out, map[string]any{
				"id":           w.ID,
				"pid":          w.Pid(),
				"state":        w.State().String(),
				"requestCount": w.RequestCount(),
				"generation":   w.Generation(),
				"startedAt":    w.StartedAt(),
			})
		}
		return out
	})
	d.debug.Register("idleCount", func() any { return d.table.IdleCount() })
	d.debug.Register("metrics", func() any { return d.metrics.Snapshot() })
	d.debug.Register("runtimeConfig", func() any { return d.rt.Snapshot() })
}

// Serve starts the event loop. It blocks until Shutdown is called or the
// loop returns an unrecoverable error.
func (d *Daemon) Serve() error {
	go func() { d.runErr <- d.scheduler.Run() }()
	return <-d.runErr
}

// Shutdown asks the Scheduler to stop and tells every worker to exit
// after its current request, waiting up to cfg.ShutdownTimeout before
// giving up on stragglers.
func (d *Daemon) Shutdown() error {
	d.scheduler.Shutdown()

	deadline := time.Now().Add(d.cfg.ShutdownTimeout)
	for _, w := range d.table.Snapshot() {
		d.retireWorkerNow(w)
	}
	for time.Now().Before(deadline) {
		stillRunning := false
		for _, w := range d.table.Snapshot() {
			if w.State() != workerpool.Dead {
				stillRunning = true
				break
			}
		}
		if !stillRunning {
			break
		}
		time.Sleep(100 * time.Millisecond)
	}

	d.poller.Close()
	return d.listener.Close()
}

func (d *Daemon) retireWorkerNow(w *workerpool.Worker) {
	if w.Control != nil {
		w.Control.Send(shutdownFrame())
	}
	w.MarkStopping()
}

// RecycleAll triggers the "recycle every worker" broadcast (SIGUSR1 on
// POSIX, canary-file deletion on Windows).
func (d *Daemon) RecycleAll() {
	d.recycle.Trigger()
}

// Metrics exposes the daemon's counter registry for an operator-facing
// status endpoint or CLI.
func (d *Daemon) Metrics() *Metrics { return d.metrics }

// Debug exposes the probe registry.
func (d *Daemon) Debug() *Debug { return d.debug }

// RuntimeConfig exposes the mutable config store.
func (d *Daemon) RuntimeConfig() *RuntimeConfig { return d.rt }
