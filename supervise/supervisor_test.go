package supervise

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func testConfig(t *testing.T, readyURL string) Config {
	t.Helper()
	dir := t.TempDir()
	return Config{
		Command:      "sleep",
		Args:         []string{"60"},
		LogPath:      filepath.Join(dir, "daemon.log"),
		ReadyURL:     readyURL,
		PollInterval: 10 * time.Millisecond,
		ReadyTimeout: 5 * time.Second,
		StopTimeout:  2 * time.Second,
	}
}

func readyServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestArgPassthrough(t *testing.T) {
	srv := readyServer(t)
	cfg := testConfig(t, srv.URL)

	out := filepath.Join(t.TempDir(), "args.txt")
	sup := New(cfg)

	code, err := sup.Run(context.Background(), []string{
		"/bin/sh", "-c", `printf '%s\n' "$@" > ` + out, "sh", "microsoft.com",
	})
	if err != nil {
		t.Fatal(err)
	}
	if code != 0 {
		t.Fatalf("unexpected exit code: %d", code)
	}

	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(string(got)) != "microsoft.com" {
		t.Errorf("workload received unexpected arguments: %q", got)
	}
}

func TestExitCodeRelay(t *testing.T) {
	srv := readyServer(t)
	sup := New(testConfig(t, srv.URL))

	code, err := sup.Run(context.Background(), []string{"/bin/sh", "-c", "exit 42"})
	if err != nil {
		t.Fatal(err)
	}
	if code != 42 {
		t.Errorf("unexpected exit code: %d", code)
	}
}

func TestDaemonLogFileCreated(t *testing.T) {
	srv := readyServer(t)
	cfg := testConfig(t, srv.URL)
	sup := New(cfg)

	if err := sup.Start(); err != nil {
		t.Fatal(err)
	}
	defer sup.Stop()

	if err := sup.AwaitReady(context.Background()); err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(cfg.LogPath); err != nil {
		t.Errorf("daemon log file missing: %v", err)
	}
	if !sup.Ready() {
		t.Error("supervisor should report ready")
	}
}

func TestWarmupDelayRespected(t *testing.T) {
	srv := readyServer(t)
	cfg := testConfig(t, srv.URL)
	cfg.Warmup = 200 * time.Millisecond
	sup := New(cfg)

	if err := sup.Start(); err != nil {
		t.Fatal(err)
	}
	defer sup.Stop()

	start := time.Now()
	if err := sup.AwaitReady(context.Background()); err != nil {
		t.Fatal(err)
	}

	if elapsed := time.Since(start); elapsed < cfg.Warmup {
		t.Errorf("readiness returned before warm-up elapsed: %s", elapsed)
	}
}

func TestReadyTimeout(t *testing.T) {
	// Nothing listens here.
	cfg := testConfig(t, "http://127.0.0.1:1/")
	cfg.ReadyTimeout = 200 * time.Millisecond
	sup := New(cfg)

	if err := sup.Start(); err != nil {
		t.Fatal(err)
	}
	defer sup.Stop()

	if err := sup.AwaitReady(context.Background()); err == nil {
		t.Error("expected a readiness timeout error")
	}
}

func TestDaemonExitBeforeReady(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1/")
	cfg.Command = "/bin/sh"
	cfg.Args = []string{"-c", "exit 1"}
	sup := New(cfg)

	if err := sup.Start(); err != nil {
		t.Fatal(err)
	}
	defer sup.Stop()

	err := sup.AwaitReady(context.Background())
	if err == nil {
		t.Fatal("expected an error for a daemon that died")
	}
	if !strings.Contains(err.Error(), "exited before becoming ready") &&
		!strings.Contains(err.Error(), "not ready") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestStopTerminatesDaemon(t *testing.T) {
	srv := readyServer(t)
	sup := New(testConfig(t, srv.URL))

	if err := sup.Start(); err != nil {
		t.Fatal(err)
	}

	waitCh := sup.waitCh
	if err := sup.Stop(); err != nil {
		t.Fatal(err)
	}

	select {
	case <-waitCh:
	case <-time.After(5 * time.Second):
		t.Error("daemon still running after Stop")
	}
}

func TestRunStopsDaemonWhenCanceledBeforeReady(t *testing.T) {
	// Nothing listens here, so readiness polling spins until the context
	// is canceled.
	cfg := testConfig(t, "http://127.0.0.1:1/")
	cfg.ReadyTimeout = 10 * time.Second
	sup := New(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	if _, err := sup.Run(ctx, []string{"/bin/sh", "-c", "exit 0"}); err == nil {
		t.Fatal("expected an error when canceled before readiness")
	}

	select {
	case <-sup.waitCh:
	case <-time.After(5 * time.Second):
		t.Error("daemon still running after canceled run")
	}
}

func TestRunForwardsCancelToWorkload(t *testing.T) {
	srv := readyServer(t)
	sup := New(testConfig(t, srv.URL))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(300 * time.Millisecond)
		cancel()
	}()

	code, err := sup.Run(ctx, []string{
		"/bin/sh", "-c", `trap 'exit 7' TERM; sleep 60 & wait $!`,
	})
	if err != nil {
		t.Fatal(err)
	}
	if code != 7 {
		t.Errorf("workload did not see a graceful termination: exit code %d", code)
	}
}

func TestRunRejectsEmptyArgv(t *testing.T) {
	sup := New(testConfig(t, "http://127.0.0.1:1/"))
	if _, err := sup.Run(context.Background(), nil); err == nil {
		t.Error("expected an error for an empty argument vector")
	}
}
