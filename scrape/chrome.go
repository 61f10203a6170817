package scrape

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/consentio/gdprscan/cookie"
	"github.com/consentio/gdprscan/log"
)

// ChromeScraper drives a headless browser. Each Scrape call runs in a
// fresh tab with an isolated cookie jar via an incognito-style context, so
// accept and reject scenarios do not contaminate each other.
type ChromeScraper struct {
	log zerolog.Logger

	allocCtx    context.Context
	allocCancel context.CancelFunc

	settle     time.Duration
	navTimeout time.Duration
}

func NewChromeScraper(settle, navTimeout time.Duration) *ChromeScraper {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		// Container images run as root.
		chromedp.Flag("no-sandbox", true),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &ChromeScraper{
		log:         log.NewLogger("scrape"),
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
		settle:      settle,
		navTimeout:  navTimeout,
	}
}

// Close tears down the browser allocator and any remaining tabs.
func (s *ChromeScraper) Close() {
	s.allocCancel()
}

func (s *ChromeScraper) Scrape(ctx context.Context, rawURL string, action Action) (*Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tabCtx, cancelTab := chromedp.NewContext(s.allocCtx)
	defer cancelTab()

	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, s.navTimeout)
	defer cancelTimeout()

	var (
		pageHTML string
		clicked  bool
		raw      []*network.Cookie
	)

	// A fresh jar per scrape keeps accept and reject runs independent.
	tasks := chromedp.Tasks{
		network.ClearBrowserCookies(),
		chromedp.Navigate(rawURL),
	}

	if labels := action.Labels(); len(labels) > 0 {
		// Give late-loading consent frameworks a moment to render.
		tasks = append(tasks,
			chromedp.Sleep(time.Second),
			chromedp.Evaluate(clickBannerJS(labels), &clicked),
		)
	}

	tasks = append(tasks,
		chromedp.Sleep(s.settle),
		chromedp.OuterHTML("html", &pageHTML, chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			raw, err = storage.GetCookies().Do(ctx)
			return err
		}),
	)

	if err := chromedp.Run(tabCtx, tasks); err != nil {
		return nil, errors.Wrapf(err, "failed to scrape %s", rawURL)
	}

	cookies := make([]cookie.Cookie, 0, len(raw))
	for _, c := range raw {
		cookies = append(cookies, cookie.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  c.Expires,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
			SameSite: string(c.SameSite),
		})
	}

	s.log.Debug().Str("url", rawURL).Str("action", string(action)).
		Bool("banner_clicked", clicked).Int("cookies", len(cookies)).Msg("Page scraped")

	return &Page{
		URL:           rawURL,
		HTML:          pageHTML,
		Cookies:       cookies,
		BannerClicked: clicked,
		FetchedAt:     time.Now(),
	}, nil
}

// clickBannerJS builds a script that clicks the first visible clickable
// element whose trimmed text matches one of the labels, case-insensitively.
// Labels are tried in order, so "Accept All" wins over a bare "Accept".
func clickBannerJS(labels []string) string {
	quoted := make([]string, len(labels))
	for i, l := range labels {
		quoted[i] = fmt.Sprintf("%q", strings.ToLower(l))
	}

	return fmt.Sprintf(`(() => {
	const labels = [%s];
	const candidates = Array.from(document.querySelectorAll('button, a, input[type="button"], input[type="submit"], [role="button"]'));
	const textOf = (el) => ((el.innerText || el.value || '')).trim().toLowerCase();
	const visible = (el) => { const r = el.getBoundingClientRect(); return r.width > 0 && r.height > 0; };
	for (const label of labels) {
		for (const el of candidates) {
			if (textOf(el) === label && visible(el)) {
				el.click();
				return true;
			}
		}
	}
	return false;
})()`, strings.Join(quoted, ", "))
}
