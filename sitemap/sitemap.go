// Package sitemap discovers a site's page URLs through robots.txt and
// sitemap.xml, expanding nested sitemap indexes.
package sitemap

import (
	"context"
	"encoding/xml"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/consentio/gdprscan/log"
	"github.com/consentio/gdprscan/util"
)

const maxSitemapBytes = 16 * 1024 * 1024

type Finder struct {
	log    zerolog.Logger
	client *http.Client
}

func NewFinder() *Finder {
	return &Finder{
		log:    log.NewLogger("sitemap"),
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

type loc struct {
	Loc string `xml:"loc"`
}

type sitemapIndex struct {
	XMLName  xml.Name `xml:"sitemapindex"`
	Sitemaps []loc    `xml:"sitemap"`
}

type urlSet struct {
	XMLName xml.Name `xml:"urlset"`
	URLs    []loc    `xml:"url"`
}

// PageURLs returns all unique page URLs reachable from the site's
// sitemap(s). It first checks robots.txt for Sitemap lines and falls back
// to /sitemap.xml, then walks nested indexes breadth-first.
func (f *Finder) PageURLs(ctx context.Context, siteURL string) ([]string, error) {
	u, err := url.Parse(util.NormalizeSiteURL(siteURL))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse site URL %s", siteURL)
	}

	base := &url.URL{Scheme: u.Scheme, Host: u.Host}

	queue := f.fromRobots(ctx, base)
	if len(queue) == 0 {
		fallback := base.JoinPath("/sitemap.xml").String()
		f.log.Debug().Str("sitemap", fallback).Msg("No sitemap in robots.txt, trying default")
		queue = append(queue, fallback)
	}

	visited := make(map[string]struct{})
	pages := make(map[string]struct{})
	var ordered []string

	for len(queue) > 0 {
		sm := queue[0]
		queue = queue[1:]

		if _, ok := visited[sm]; ok {
			continue
		}
		visited[sm] = struct{}{}

		f.log.Debug().Str("sitemap", sm).Msg("Processing sitemap")

		content, err := f.fetch(ctx, sm)
		if err != nil {
			f.log.Warn().Err(err).Str("sitemap", sm).Msg("Failed to fetch sitemap")
			continue
		}

		found, nested, err := Parse(content)
		if err != nil {
			f.log.Warn().Err(err).Str("sitemap", sm).Msg("Failed to parse sitemap")
			continue
		}

		queue = append(queue, nested...)
		for _, page := range found {
			// Sitemap entries sometimes point at further sitemap files.
			if strings.HasSuffix(page, ".xml") {
				queue = append(queue, page)
				continue
			}
			if _, dup := pages[page]; !dup {
				pages[page] = struct{}{}
				ordered = append(ordered, page)
			}
		}
	}

	f.log.Info().Int("pages", len(ordered)).Int("sitemaps", len(visited)).Msg("Sitemap discovery complete")

	return ordered, nil
}

// Parse parses one sitemap document, returning page URLs and nested
// sitemap URLs (when the document is a sitemap index).
func Parse(content string) (pages, nested []string, err error) {
	var idx sitemapIndex
	if err := xml.Unmarshal([]byte(content), &idx); err == nil {
		for _, s := range idx.Sitemaps {
			if v := strings.TrimSpace(s.Loc); v != "" {
				nested = append(nested, v)
			}
		}
		return nil, nested, nil
	}

	var set urlSet
	if err := xml.Unmarshal([]byte(content), &set); err != nil {
		return nil, nil, errors.Wrap(err, "content is neither a sitemap index nor a URL set")
	}

	for _, u := range set.URLs {
		if v := strings.TrimSpace(u.Loc); v != "" {
			pages = append(pages, v)
		}
	}

	return pages, nil, nil
}

// fromRobots extracts sitemap URLs advertised in robots.txt.
func (f *Finder) fromRobots(ctx context.Context, base *url.URL) []string {
	robotsURL := base.JoinPath("/robots.txt").String()

	content, err := f.fetch(ctx, robotsURL)
	if err != nil {
		f.log.Debug().Err(err).Str("url", robotsURL).Msg("No robots.txt")
		return nil
	}

	var sitemaps []string
	for _, line := range strings.Split(content, "\n") {
		if strings.HasPrefix(strings.ToLower(line), "sitemap:") {
			if v := strings.TrimSpace(line[len("sitemap:"):]); v != "" {
				f.log.Debug().Str("sitemap", v).Msg("Found sitemap in robots.txt")
				sitemaps = append(sitemaps, v)
			}
		}
	}

	return sitemaps
}

func (f *Finder) fetch(ctx context.Context, rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", errors.Wrapf(err, "failed to parse URL %s", rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", errors.Wrap(err, "failed to build request")
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", errors.Wrapf(err, "request failed for %s", rawURL)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", errors.Errorf("unexpected status %d for %s", resp.StatusCode, rawURL)
	}

	// Sitemaps can be big; cap what we are willing to hold.
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSitemapBytes))
	if err != nil {
		return "", errors.Wrapf(err, "failed to read %s", rawURL)
	}

	return string(body), nil
}
