package scrape

import (
	"context"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/consentio/gdprscan/cookie"
	"github.com/consentio/gdprscan/log"
	"github.com/consentio/gdprscan/util"
)

// HTTPScraper fetches pages over plain HTTP. It cannot execute scripts or
// click consent banners, so the observed cookie jar is limited to cookies
// set by the server across the redirect chain. Useful for environments
// without a browser and for the policy page hops.
type HTTPScraper struct {
	log     zerolog.Logger
	timeout time.Duration
}

func NewHTTPScraper(timeout time.Duration) *HTTPScraper {
	return &HTTPScraper{
		log:     log.NewLogger("scrape"),
		timeout: timeout,
	}
}

func (s *HTTPScraper) Scrape(ctx context.Context, rawURL string, action Action) (*Page, error) {
	uri, err := url.Parse(rawURL)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse URL %s", rawURL)
	}

	// One jar per scrape, so runs stay independent.
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create cookie jar")
	}

	client := &http.Client{Timeout: s.timeout, Jar: jar}

	body, ct, err := util.DownloadContent(ctx, client, uri)
	if err != nil {
		return nil, err
	}
	if ct != "text/html" && ct != "application/xhtml+xml" {
		return nil, errors.Errorf("unsupported content type %s for %s", ct, rawURL)
	}

	var cookies []cookie.Cookie
	for _, c := range jar.Cookies(uri) {
		cookies = append(cookies, cookie.Cookie{
			Name:   c.Name,
			Value:  c.Value,
			Domain: uri.Hostname(),
		})
	}

	if action != ActionNone {
		s.log.Warn().Str("url", rawURL).Str("action", string(action)).
			Msg("HTTP engine cannot interact with consent banners")
	}

	s.log.Debug().Str("url", rawURL).Int("cookies", len(cookies)).Msg("Page fetched")

	return &Page{
		URL:       rawURL,
		HTML:      string(body),
		Cookies:   cookies,
		FetchedAt: time.Now(),
	}, nil
}
