// Command serverinod is both the daemon and the worker: the same binary
// re-execs itself with SERVERINO_WORKER=1 set (daemon.WorkerEnvVar) to run
// the worker main loop, mirroring the teacher's single-binary examples
// (examples/echo/main.go) rather than shipping a second entry point.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"time"

	"github.com/momentics/serverino/ctrlchan"
	"github.com/momentics/serverino/daemon"
	"github.com/momentics/serverino/worker"
)

func main() {
	if os.Getenv(daemon.WorkerEnvVar) == "1" {
		if err := runWorker(); err != nil {
			fmt.Fprintln(os.Stderr, "serverino worker:", err)
			os.Exit(1)
		}
		return
	}
	if err := runDaemon(); err != nil {
		fmt.Fprintln(os.Stderr, "serverino daemon:", err)
		os.Exit(2)
	}
}

func runDaemon() error {
	listenAddr := flag.String("listen", ":8080", "address to listen on")
	minWorkers := flag.Int("min-workers", 1, "minimum idle worker fleet size")
	maxWorkers := flag.Int("max-workers", 0, "maximum worker fleet size (0 = default: 4x NumCPU)")
	maxRequestsPerWorker := flag.Int("max-requests-per-worker", 0, "per-worker request limit stored in the worker table (0 = unlimited); workers are not recycled on it")
	maxWorkerLifetime := flag.Duration("max-worker-lifetime", 0, "per-worker lifetime limit stored in the worker table (0 = unlimited); workers are not recycled on it")
	maxRequestTime := flag.Duration("max-request-time", 30*time.Second, "504 and recycle a worker exceeding this wall-clock budget")
	maxHeaderBytes := flag.Int("max-header-bytes", 16*1024, "maximum header block size before a 400")
	maxBodyBytes := flag.Int("max-body-bytes", 10*1024*1024, "maximum request body size before a 413")
	idleHangover := flag.Duration("idle-hangover", 30*time.Second, "idle hangover stored in the worker table; idle workers above minWorkers are stopped on the next maintenance tick regardless of it")
	shutdownTimeout := flag.Duration("shutdown-timeout", 30*time.Second, "grace period for in-flight requests on SIGTERM/SIGINT")
	canaryPath := flag.String("canary-file", "", "path polled for deletion as a recycle-all trigger (Windows; empty disables)")
	flag.Parse()

	self, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve own executable: %w", err)
	}

	cfg := daemon.DefaultConfig()
	cfg.ListenAddr = *listenAddr
	cfg.MinWorkers = *minWorkers
	if *maxWorkers > 0 {
		cfg.MaxWorkers = *maxWorkers
	}
	cfg.MaxRequestsPerProc = *maxRequestsPerWorker
	cfg.MaxWorkerLifetime = *maxWorkerLifetime
	cfg.MaxRequestTime = *maxRequestTime
	cfg.MaxHeaderBytes = *maxHeaderBytes
	cfg.MaxBodyBytes = *maxBodyBytes
	cfg.IdleHangoverTime = *idleHangover
	cfg.ShutdownTimeout = *shutdownTimeout
	cfg.WorkerBinaryPath = self
	cfg.CanaryFilePath = *canaryPath

	logger := daemon.NewStdLogger()
	d, err := daemon.NewDaemon(cfg, logger)
	if err != nil {
		return err
	}

	stopSignals := d.WatchSignals()
	defer stopSignals()

	stopCanary := d.WatchCanaryFile(time.Second)
	defer stopCanary()

	logger.Infof("serverino listening on %s (min=%d max=%d)", cfg.ListenAddr, cfg.MinWorkers, cfg.MaxWorkers)
	return d.Serve()
}

// runWorker recovers the control-channel descriptor the daemon passed via
// exec.Cmd.ExtraFiles (fd 3, the first slot after stdin/stdout/stderr on
// POSIX) and runs the worker main loop against a demonstration Registry.
// A real deployment builds its Registry from the out-of-scope
// configuration DSL; this one registers the handful of endpoints spec.md
// §8's literal end-to-end scenarios name, so the binary is runnable
// out of the box the way the teacher's examples/echo is.
func runWorker() error {
	ctrlFile := os.NewFile(3, "serverino-ctrl")
	conn, err := net.FileConn(ctrlFile)
	ctrlFile.Close()
	if err != nil {
		return fmt.Errorf("recover control channel: %w", err)
	}
	ch := ctrlchan.NewChannel(conn)

	reg := worker.NewRegistry()
	registerDemoEndpoints(reg)

	rt := worker.NewRuntime(reg)
	rt.Fault = func(req *worker.Request, out *worker.Output, faultValue any) {
		out.Status = 500
		out.Header.Set("content-type", "text/plain")
		out.Write([]byte(fmt.Sprintf("internal error: %v", faultValue)))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	runErr := make(chan error, 1)
	go func() { runErr <- rt.Run(ch) }()

	select {
	case <-ctx.Done():
		ch.Close()
		return nil
	case err := <-runErr:
		return err
	}
}

func registerDemoEndpoints(reg *worker.Registry) {
	reg.Register(0, worker.PathEquals("/simple"), "simple", func(req *worker.Request, out *worker.Output) {
		out.Header.Set("content-type", "text/plain")
		out.Write([]byte("simple"))
	})
	reg.Register(0, worker.PathEquals("/sleep"), "sleep", func(req *worker.Request, out *worker.Output) {
		time.Sleep(600 * time.Millisecond)
		out.Header.Set("content-type", "text/plain")
		out.Write([]byte("slept"))
	})
	reg.Register(0, worker.PathPrefix("/echo/"), "echo", func(req *worker.Request, out *worker.Output) {
		suffix := req.Path[len("/echo/"):]
		out.Header.Set("content-type", "text/plain")
		out.Write([]byte(suffix))
	})
}
