// Package cookie models the cookies captured from a browsing session and
// the domain arithmetic the audit needs.
package cookie

import (
	"net/url"
	"strings"

	"github.com/pkg/errors"
)

// Cookie is a browser cookie as observed after a consent interaction.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value,omitempty"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path,omitempty"`
	Expires  float64 `json:"expires,omitempty"`
	HTTPOnly bool    `json:"httpOnly,omitempty"`
	Secure   bool    `json:"secure,omitempty"`
	SameSite string  `json:"sameSite,omitempty"`
}

// Simple is the reduced form sent to the model for categorization: name and
// domain carry the signal, the rest is noise and tokens.
type Simple struct {
	Name   string `json:"name"`
	Domain string `json:"domain"`
}

func Simplify(cookies []Cookie) []Simple {
	simplified := make([]Simple, 0, len(cookies))
	for _, c := range cookies {
		simplified = append(simplified, Simple{Name: c.Name, Domain: c.Domain})
	}
	return simplified
}

// BaseDomain returns the site's host with any www. prefix stripped.
func BaseDomain(siteURL string) (string, error) {
	u, err := url.Parse(siteURL)
	if err != nil {
		return "", errors.Wrapf(err, "failed to parse site URL %s", siteURL)
	}

	host := u.Hostname()
	if host == "" {
		return "", errors.Errorf("no host in site URL %s", siteURL)
	}

	return strings.TrimPrefix(host, "www."), nil
}

// CountThirdParty counts cookies whose domain does not belong to the site.
// A cookie is first-party when its domain, with leading dots stripped,
// suffix-matches the site's base domain, which keeps subdomain cookies
// (".shop.example.com" on example.com) first-party.
func CountThirdParty(siteURL string, cookies []Cookie) (int, error) {
	base, err := BaseDomain(siteURL)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, c := range cookies {
		if c.Domain == "" {
			continue
		}
		domain := strings.TrimPrefix(c.Domain, ".")
		if domain != base && !strings.HasSuffix(domain, "."+base) {
			count++
		}
	}

	return count, nil
}
