package cookie

import "testing"

func TestCountThirdParty(t *testing.T) {
	tests := []struct {
		name     string
		siteURL  string
		cookies  []Cookie
		expected int
	}{
		{
			name:     "empty jar",
			siteURL:  "https://example.com",
			cookies:  nil,
			expected: 0,
		},
		{
			name:    "first party only",
			siteURL: "https://www.example.com/shop",
			cookies: []Cookie{
				{Name: "session", Domain: "example.com"},
				{Name: "lang", Domain: ".example.com"},
				{Name: "cart", Domain: "shop.example.com"},
			},
			expected: 0,
		},
		{
			name:    "trackers",
			siteURL: "https://example.com",
			cookies: []Cookie{
				{Name: "session", Domain: "example.com"},
				{Name: "_ga", Domain: ".google-analytics.com"},
				{Name: "fr", Domain: ".facebook.com"},
			},
			expected: 2,
		},
		{
			name:    "similar but distinct domain",
			siteURL: "https://example.com",
			cookies: []Cookie{
				{Name: "x", Domain: "notexample.com"},
			},
			expected: 1,
		},
		{
			name:    "missing domain ignored",
			siteURL: "https://example.com",
			cookies: []Cookie{
				{Name: "x", Domain: ""},
			},
			expected: 0,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, err := CountThirdParty(test.siteURL, test.cookies)
			if err != nil {
				t.Fatal(err)
			}
			if got != test.expected {
				t.Errorf("unexpected count: %d", got)
			}
		})
	}
}

func TestCountThirdPartyBadURL(t *testing.T) {
	if _, err := CountThirdParty("://nope", nil); err == nil {
		t.Error("expected an error for an unparsable URL")
	}
}

func TestSimplify(t *testing.T) {
	cookies := []Cookie{
		{Name: "session", Value: "secret", Domain: "example.com", Path: "/", Secure: true},
	}

	simple := Simplify(cookies)
	if len(simple) != 1 {
		t.Fatalf("unexpected length: %d", len(simple))
	}
	if simple[0].Name != "session" || simple[0].Domain != "example.com" {
		t.Errorf("unexpected simplification: %+v", simple[0])
	}
}

func TestBaseDomain(t *testing.T) {
	base, err := BaseDomain("https://www.example.co.uk/path?q=1")
	if err != nil {
		t.Fatal(err)
	}
	if base != "example.co.uk" {
		t.Errorf("unexpected base domain: %s", base)
	}
}
