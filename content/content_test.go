package content

import (
	"strings"
	"testing"

	"github.com/consentio/gdprscan/document"
)

func TestSnapshot(t *testing.T) {
	page := []byte(`<html><body>
<h1>Privacy Policy</h1>
<p>We retain data for 30 days.</p>
<a href="/privacy/contact">Privacy contacts</a>
</body></html>`)

	doc, err := Snapshot(page, document.Metadata{
		Site:     "example.com",
		Scenario: "accept",
		Source:   "https://example.com/privacy",
		Kind:     document.KindPrivacyPolicy,
	})
	if err != nil {
		t.Fatal(err)
	}

	if doc.Metadata.Title != "Privacy Policy" {
		t.Errorf("unexpected title: %s", doc.Metadata.Title)
	}
	if len(doc.Metadata.PrivacyLinks) != 1 || doc.Metadata.PrivacyLinks[0] != "/privacy/contact" {
		t.Errorf("unexpected privacy links: %v", doc.Metadata.PrivacyLinks)
	}
	if !strings.Contains(string(doc.Content), "We retain data for 30 days.") {
		t.Errorf("body missing from markdown: %s", doc.Content)
	}
	if doc.Metadata.RetrievedTime == "" {
		t.Error("retrieved time should be stamped")
	}
}

func TestSnapshotTitleFallsBackToSite(t *testing.T) {
	page := []byte(`<html><body><p>nothing here</p></body></html>`)

	doc, err := Snapshot(page, document.Metadata{Site: "example.com"})
	if err != nil {
		t.Fatal(err)
	}

	if doc.Metadata.Title != "example.com" {
		t.Errorf("unexpected title: %s", doc.Metadata.Title)
	}
}
