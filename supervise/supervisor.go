// Package supervise owns the lifecycle of the local inference daemon: it
// starts the daemon with its output redirected to a log file, polls its
// HTTP endpoint until it accepts connections, and tears it down when the
// audit is finished. It can also run an arbitrary argument vector as a
// monitored child, forwarding signals and relaying the child's exit code.
package supervise

import (
	"context"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"

	"github.com/consentio/gdprscan/log"
)

type Config struct {
	// Command and Args form the daemon command line, e.g. "ollama serve".
	Command string
	Args    []string

	// LogPath is where the daemon's stdout and stderr are written.
	LogPath string

	// ReadyURL is polled until it answers; any HTTP response counts as
	// ready, since the daemon answering at all means it is listening.
	ReadyURL string

	PollInterval time.Duration
	ReadyTimeout time.Duration

	// Warmup is an extra delay after readiness so a cold model load does
	// not eat into the first request's timeout.
	Warmup time.Duration

	// StopTimeout bounds how long Stop waits after SIGTERM before SIGKILL.
	StopTimeout time.Duration
}

type Supervisor struct {
	log zerolog.Logger
	cfg Config

	mu        sync.Mutex
	cmd       *exec.Cmd
	logFile   *os.File
	startedAt time.Time
	ready     bool

	// waitCh is closed once the daemon process has been reaped.
	waitCh  chan struct{}
	waitErr error
}

func New(cfg Config) *Supervisor {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 500 * time.Millisecond
	}
	if cfg.ReadyTimeout <= 0 {
		cfg.ReadyTimeout = time.Minute
	}
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = 10 * time.Second
	}

	return &Supervisor{
		log: log.NewLogger("supervise"),
		cfg: cfg,
	}
}

// Start launches the daemon in its own process group with stdout and
// stderr redirected to the configured log file. It does not wait for
// readiness; call AwaitReady afterwards.
func (s *Supervisor) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cmd != nil {
		return errors.New("daemon already started")
	}

	if dir := filepath.Dir(s.cfg.LogPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.Wrap(err, "failed to create daemon log directory")
		}
	}

	f, err := os.Create(s.cfg.LogPath)
	if err != nil {
		return errors.Wrap(err, "failed to create daemon log file")
	}

	cmd := exec.Command(s.cfg.Command, s.cfg.Args...)
	cmd.Stdout = f
	cmd.Stderr = f
	// Own process group, so Stop can signal the daemon and anything it
	// spawned without touching the supervisor itself.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		f.Close()
		return errors.Wrapf(err, "failed to start daemon %s", s.cfg.Command)
	}

	s.cmd = cmd
	s.logFile = f
	s.startedAt = time.Now()
	s.waitCh = make(chan struct{})

	go func() {
		s.waitErr = cmd.Wait()
		close(s.waitCh)
	}()

	s.log.Info().Str("command", s.cfg.Command).Strs("args", s.cfg.Args).
		Int("pid", cmd.Process.Pid).Str("logfile", s.cfg.LogPath).Msg("Daemon started")

	return nil
}

// AwaitReady polls the daemon's endpoint until it answers, bounded by the
// configured timeout, then waits out the warm-up delay. It fails fast if
// the daemon exits before becoming ready.
func (s *Supervisor) AwaitReady(ctx context.Context) error {
	s.mu.Lock()
	waitCh := s.waitCh
	s.mu.Unlock()

	if waitCh == nil {
		return errors.New("daemon not started")
	}

	client := &http.Client{Timeout: 2 * time.Second}
	deadline := time.Now().Add(s.cfg.ReadyTimeout)
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		resp, err := client.Get(s.cfg.ReadyURL)
		if err == nil {
			resp.Body.Close()
			break
		}

		if time.Now().After(deadline) {
			return errors.Wrapf(err, "daemon not ready at %s after %s", s.cfg.ReadyURL, s.cfg.ReadyTimeout)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-waitCh:
			return errors.Wrap(s.waitErr, "daemon exited before becoming ready")
		case <-ticker.C:
		}
	}

	s.log.Info().Dur("elapsed", time.Since(s.startedAt)).Msg("Daemon is accepting connections")

	if s.cfg.Warmup > 0 {
		s.log.Debug().Dur("warmup", s.cfg.Warmup).Msg("Waiting out warm-up delay")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.cfg.Warmup):
		}
	}

	s.mu.Lock()
	s.ready = true
	s.mu.Unlock()

	return nil
}

// Ready reports whether AwaitReady has completed.
func (s *Supervisor) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

// Stop terminates the daemon's process group with SIGTERM, escalating to
// SIGKILL if it has not exited within the stop timeout.
func (s *Supervisor) Stop() error {
	s.mu.Lock()
	cmd := s.cmd
	waitCh := s.waitCh
	f := s.logFile
	s.cmd = nil
	s.logFile = nil
	s.ready = false
	s.mu.Unlock()

	if cmd == nil {
		return nil
	}
	defer f.Close()

	pid := cmd.Process.Pid

	select {
	case <-waitCh:
		// Already gone.
		s.log.Debug().Int("pid", pid).Msg("Daemon had already exited")
		return nil
	default:
	}

	s.log.Info().Int("pid", pid).Msg("Stopping daemon")

	if err := unix.Kill(-pid, unix.SIGTERM); err != nil {
		return errors.Wrap(err, "failed to signal daemon process group")
	}

	select {
	case <-waitCh:
		s.log.Info().Int("pid", pid).Msg("Daemon stopped")
	case <-time.After(s.cfg.StopTimeout):
		s.log.Warn().Int("pid", pid).Msg("Daemon did not stop in time, killing")
		if err := unix.Kill(-pid, unix.SIGKILL); err != nil {
			return errors.Wrap(err, "failed to kill daemon process group")
		}
		<-waitCh
	}

	return nil
}

// Run starts the daemon, waits for readiness, then runs argv as a
// monitored child with the arguments passed through unchanged. SIGINT and
// SIGTERM received while the child runs are forwarded to it. The child's
// exit code is returned and the daemon is stopped before Run returns.
func (s *Supervisor) Run(ctx context.Context, argv []string) (int, error) {
	if len(argv) == 0 {
		return -1, errors.New("no workload command given")
	}

	if err := s.Start(); err != nil {
		return -1, err
	}
	defer func() {
		if err := s.Stop(); err != nil {
			s.log.Error().Err(err).Msg("Failed to stop daemon")
		}
	}()

	if err := s.AwaitReady(ctx); err != nil {
		return -1, err
	}

	return s.runChild(ctx, argv)
}

func (s *Supervisor) runChild(ctx context.Context, argv []string) (int, error) {
	child := exec.Command(argv[0], argv[1:]...)
	child.Stdin = os.Stdin
	child.Stdout = os.Stdout
	child.Stderr = os.Stderr

	if err := child.Start(); err != nil {
		return -1, errors.Wrapf(err, "failed to start workload %s", argv[0])
	}

	s.log.Info().Strs("argv", argv).Int("pid", child.Process.Pid).Msg("Workload started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, unix.SIGINT, unix.SIGTERM)
	defer signal.Stop(sigCh)

	done := make(chan error, 1)
	go func() { done <- child.Wait() }()

	// A canceled context (e.g. a signal caught by the caller) asks the
	// workload to stop gracefully rather than killing it outright.
	ctxDone := ctx.Done()

	for {
		select {
		case sig := <-sigCh:
			s.log.Debug().Str("signal", sig.String()).Msg("Forwarding signal to workload")
			_ = child.Process.Signal(sig)
		case <-ctxDone:
			ctxDone = nil
			s.log.Debug().Msg("Context canceled, terminating workload")
			_ = child.Process.Signal(unix.SIGTERM)
		case err := <-done:
			if err == nil {
				return 0, nil
			}
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				return exitErr.ExitCode(), nil
			}
			return -1, errors.Wrap(err, "workload failed")
		}
	}
}
