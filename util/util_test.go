package util

import "testing"

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		bytes    int64
		expected string
	}{
		{512, "512B"},
		{2048, "2.0KiB"},
		{3 * MiB, "3.0MiB"},
		{5 * GiB, "5.0GiB"},
	}

	for _, test := range tests {
		if got := FormatBytes(test.bytes); got != test.expected {
			t.Errorf("FormatBytes(%d) = %s", test.bytes, got)
		}
	}
}

func TestNormalizeSiteURL(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"microsoft.com", "https://microsoft.com"},
		{"http://example.com", "http://example.com"},
		{"https://example.com", "https://example.com"},
	}

	for _, test := range tests {
		if got := NormalizeSiteURL(test.in); got != test.expected {
			t.Errorf("NormalizeSiteURL(%s) = %s", test.in, got)
		}
	}
}
