package analyze

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/consentio/gdprscan/cookie"
	"github.com/consentio/gdprscan/llm"
)

// fakeQuerier answers every query with a canned JSON payload and records
// the last user prompt.
type fakeQuerier struct {
	payload    string
	err        error
	lastPrompt string
}

func (f *fakeQuerier) QueryJSON(ctx context.Context, systemPrompt, userPrompt string, out any) error {
	f.lastPrompt = userPrompt
	if f.err != nil {
		return f.err
	}
	return json.Unmarshal([]byte(f.payload), out)
}

func TestFindPrivacyPolicy(t *testing.T) {
	q := &fakeQuerier{payload: `{
		"result_found": true,
		"privacy_policy_url": "https://example.com/privacy",
		"reasoning": "footer link",
		"confidence_score": 0.9
	}`}
	a := New(q)

	res, err := a.FindPrivacyPolicy(context.Background(), "<html></html>", "https://example.com")
	if err != nil {
		t.Fatal(err)
	}
	if !res.ResultFound || res.PrivacyPolicyURL != "https://example.com/privacy" {
		t.Errorf("unexpected result: %+v", res)
	}
	if !strings.Contains(q.lastPrompt, "https://example.com") {
		t.Error("prompt should carry the page URL")
	}
}

func TestFindPrivacyPolicyMalformed(t *testing.T) {
	q := &fakeQuerier{err: llm.ErrMalformedJSON}
	a := New(q)

	res, err := a.FindPrivacyPolicy(context.Background(), "<html></html>", "https://example.com")
	if err == nil {
		t.Fatal("expected an error")
	}
	if res.Reasoning != "model returned malformed JSON" {
		t.Errorf("unexpected reasoning: %s", res.Reasoning)
	}
}

func TestWantsHop(t *testing.T) {
	if (DPOResult{DPOFound: true, SubLink: "/contact"}).WantsHop() {
		t.Error("no hop needed when the DPO was found")
	}
	if (DPOResult{}).WantsHop() {
		t.Error("no hop possible without a sub-link")
	}
	if !(DPOResult{SubLink: "/privacy/contact"}).WantsHop() {
		t.Error("expected a hop")
	}
}

func TestSameLink(t *testing.T) {
	if !SameLink("https://example.com/privacy/", "https://example.com/privacy") {
		t.Error("trailing slashes should not matter")
	}
	if SameLink("https://example.com/privacy", "https://example.com/privacy/contact") {
		t.Error("different pages reported as the same")
	}
}

func TestDPOContactInfo(t *testing.T) {
	r := DPOResult{EmailAddress: "dpo@example.com", PostalAddress: "1 Main St"}
	if r.ContactInfo() != "dpo@example.com" {
		t.Errorf("email should win: %s", r.ContactInfo())
	}

	r = DPOResult{PostalAddress: "1 Main St"}
	if r.ContactInfo() != "1 Main St" {
		t.Errorf("postal should be the fallback: %s", r.ContactInfo())
	}
}

func TestCategorizeCookies(t *testing.T) {
	q := &fakeQuerier{payload: `{"Analytical": ["_ga"], "Strictly Necessary": ["session"]}`}
	a := New(q)

	cats, err := a.CategorizeCookies(context.Background(), []cookie.Cookie{
		{Name: "_ga", Domain: ".google-analytics.com", Value: "GA1.2"},
		{Name: "session", Domain: "example.com"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(cats) != 2 {
		t.Errorf("unexpected categories: %+v", cats)
	}
	if !strings.Contains(q.lastPrompt, "_ga") {
		t.Error("prompt should carry cookie names")
	}
	if strings.Contains(q.lastPrompt, "GA1.2") {
		t.Error("prompt should not carry cookie values")
	}
}

func TestCategorizeCookiesEmptyJar(t *testing.T) {
	q := &fakeQuerier{payload: `{}`}
	a := New(q)

	cats, err := a.CategorizeCookies(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(cats) != 0 {
		t.Errorf("unexpected categories: %+v", cats)
	}
	if q.lastPrompt != "" {
		t.Error("no query should be made for an empty jar")
	}
}
