package cache

import (
	"path/filepath"
	"testing"
	"time"
)

func TestScanCache(t *testing.T) {
	c, err := NewScanCache(filepath.Join(t.TempDir(), "scan.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	if c.IsDone("example.com", "accept") {
		t.Error("fresh cache should be empty")
	}

	if err := c.MarkDone("example.com", "accept", time.Now()); err != nil {
		t.Fatal(err)
	}

	if !c.IsDone("example.com", "accept") {
		t.Error("completed pair not recorded")
	}
	if c.IsDone("example.com", "reject") {
		t.Error("scenarios must be tracked independently")
	}
	if c.IsDone("other.com", "accept") {
		t.Error("sites must be tracked independently")
	}

	if c.Len() != 1 {
		t.Errorf("unexpected length: %d", c.Len())
	}
}
