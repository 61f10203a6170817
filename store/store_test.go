package store

import (
	"io"
	"strings"
	"testing"

	"github.com/consentio/gdprscan/document"
)

func TestFileStoreRoundTrip(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	if err := fs.Store("a.txt", strings.NewReader("hello")); err != nil {
		t.Fatal(err)
	}

	ok, err := fs.Contains("a.txt")
	if err != nil || !ok {
		t.Fatalf("Contains = %v, %v", ok, err)
	}

	ok, err = fs.Contains("missing.txt")
	if err != nil || ok {
		t.Fatalf("Contains(missing) = %v, %v", ok, err)
	}

	r, err := fs.Get("a.txt")
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "hello" {
		t.Errorf("unexpected content: %q", data)
	}

	names, err := fs.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 1 || names[0] != "a.txt" {
		t.Errorf("unexpected listing: %v", names)
	}
}

func TestStoreDocument(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	doc := &document.Document{
		Content: []byte("# Privacy Policy\n"),
		Metadata: document.Metadata{
			Site:          "example.com",
			Scenario:      "accept",
			Kind:          document.KindPrivacyPolicy,
			Source:        "https://example.com/privacy",
			RetrievedTime: "2025-01-01T00:00:00Z",
		},
	}

	name, err := fs.StoreDocument(doc)
	if err != nil {
		t.Fatal(err)
	}
	if name != "example.com-accept-privacy-policy.md" {
		t.Errorf("unexpected name: %s", name)
	}

	ok, err := fs.Contains(name)
	if err != nil || !ok {
		t.Errorf("stored document not found: %v, %v", ok, err)
	}
}
