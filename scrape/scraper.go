package scrape

import (
	"context"
	"time"

	"github.com/consentio/gdprscan/cookie"
)

// Action is what to do with a cookie-consent banner after navigation.
type Action string

const (
	ActionAccept Action = "accept"
	ActionReject Action = "reject"
	// ActionNone leaves the banner alone; used for the policy page hops.
	ActionNone Action = "none"
)

// Labels returns the button labels that express this action, in the order
// they are tried.
func (a Action) Labels() []string {
	switch a {
	case ActionAccept:
		return []string{"Accept All", "Accept", "OK"}
	case ActionReject:
		return []string{"Reject All", "Reject", "Deny"}
	default:
		return nil
	}
}

// Page is what an engine observed after navigating to a URL and applying
// the consent action.
type Page struct {
	URL           string
	HTML          string
	Cookies       []cookie.Cookie
	BannerClicked bool
	FetchedAt     time.Time
}

// Scraper navigates to a URL, optionally interacting with the consent
// banner, and returns the rendered page with its cookie jar.
type Scraper interface {
	Scrape(ctx context.Context, rawURL string, action Action) (*Page, error)
}
