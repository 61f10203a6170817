// Package status exposes the scanner's health and progress over HTTP for
// container orchestration and long bulk runs.
package status

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/consentio/gdprscan/log"
)

// Tracker accumulates scan progress and knows whether the inference daemon
// is ready.
type Tracker struct {
	mu          sync.Mutex
	total       int
	done        int
	failed      int
	started     time.Time
	daemonReady func() bool
}

func NewTracker(daemonReady func() bool) *Tracker {
	return &Tracker{
		started:     time.Now(),
		daemonReady: daemonReady,
	}
}

func (t *Tracker) SetTotal(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.total = n
}

// Done records one finished site.
func (t *Tracker) Done(failed bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.done++
	if failed {
		t.failed++
	}
}

type healthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

type statusResponse struct {
	Total  int    `json:"total"`
	Done   int    `json:"done"`
	Failed int    `json:"failed"`
	Uptime string `json:"uptime"`
	Daemon string `json:"daemon"`
}

func (t *Tracker) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "healthy",
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

func (t *Tracker) ready(w http.ResponseWriter, r *http.Request) {
	if !t.daemonReady() {
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{
			Status:    "waiting for daemon",
			Timestamp: time.Now().Format(time.RFC3339),
		})
		return
	}

	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "ready",
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

func (t *Tracker) status(w http.ResponseWriter, r *http.Request) {
	t.mu.Lock()
	resp := statusResponse{
		Total:  t.total,
		Done:   t.done,
		Failed: t.failed,
		Uptime: time.Since(t.started).Round(time.Second).String(),
	}
	t.mu.Unlock()

	resp.Daemon = "starting"
	if t.daemonReady() {
		resp.Daemon = "ready"
	}

	writeJSON(w, http.StatusOK, resp)
}

// Router builds the HTTP routes for the tracker.
func (t *Tracker) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", t.health).Methods(http.MethodGet)
	r.HandleFunc("/ready", t.ready).Methods(http.MethodGet)
	r.HandleFunc("/status", t.status).Methods(http.MethodGet)
	return r
}

// Serve starts the status server in the background and returns it so the
// caller can shut it down.
func Serve(addr string, t *Tracker) *http.Server {
	logger := log.NewLogger("status")

	srv := &http.Server{
		Addr:         addr,
		Handler:      t.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", addr).Msg("Status server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("Status server failed")
		}
	}()

	return srv
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
