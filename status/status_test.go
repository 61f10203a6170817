package status

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHealth(t *testing.T) {
	tr := NewTracker(func() bool { return false })
	srv := httptest.NewServer(tr.Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("unexpected status: %d", resp.StatusCode)
	}
}

func TestReadyFollowsDaemon(t *testing.T) {
	ready := false
	tr := NewTracker(func() bool { return ready })
	srv := httptest.NewServer(tr.Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/ready")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("unexpected status before readiness: %d", resp.StatusCode)
	}

	ready = true

	resp, err = http.Get(srv.URL + "/ready")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("unexpected status after readiness: %d", resp.StatusCode)
	}
}

func TestStatusProgress(t *testing.T) {
	tr := NewTracker(func() bool { return true })
	tr.SetTotal(4)
	tr.Done(false)
	tr.Done(true)

	srv := httptest.NewServer(tr.Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/status")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var body struct {
		Total  int    `json:"total"`
		Done   int    `json:"done"`
		Failed int    `json:"failed"`
		Daemon string `json:"daemon"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}

	if body.Total != 4 || body.Done != 2 || body.Failed != 1 {
		t.Errorf("unexpected progress: %+v", body)
	}
	if body.Daemon != "ready" {
		t.Errorf("unexpected daemon state: %s", body.Daemon)
	}
}
