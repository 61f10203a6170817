// Package audit drives the per-site consent audit: scrape the site under
// both consent scenarios, run the model analyses, snapshot the policy
// pages, and assemble the report rows.
package audit

import (
	"context"
	"encoding/json"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/consentio/gdprscan/analyze"
	"github.com/consentio/gdprscan/cache"
	"github.com/consentio/gdprscan/content"
	"github.com/consentio/gdprscan/cookie"
	"github.com/consentio/gdprscan/document"
	"github.com/consentio/gdprscan/htmlutil"
	"github.com/consentio/gdprscan/log"
	"github.com/consentio/gdprscan/report"
	"github.com/consentio/gdprscan/scrape"
	"github.com/consentio/gdprscan/store"
)

const noPolicyReason = "No privacy policy URL found."

type Auditor struct {
	log      zerolog.Logger
	scraper  scrape.Scraper
	analyzer *analyze.Analyzer
	store    store.LocalStore
	cache    *cache.ScanCache
	resume   bool
}

func New(scraper scrape.Scraper, analyzer *analyze.Analyzer, st store.LocalStore, c *cache.ScanCache, resume bool) *Auditor {
	return &Auditor{
		log:      log.NewLogger("audit"),
		scraper:  scraper,
		analyzer: analyzer,
		store:    st,
		cache:    c,
		resume:   resume,
	}
}

// AuditSite audits one site under the accept and reject scenarios and
// returns a result row per scenario run. Scenarios already recorded in the
// cache are skipped when resuming.
func (a *Auditor) AuditSite(ctx context.Context, site string) []report.Result {
	results := make([]report.Result, 0, 2)

	for _, action := range []scrape.Action{scrape.ActionAccept, scrape.ActionReject} {
		scenario := string(action)

		if a.resume && a.cache.IsDone(site, scenario) {
			a.log.Info().Str("site", site).Str("scenario", scenario).Msg("Already audited, skipping")
			continue
		}

		res := a.auditScenario(ctx, site, action)
		if res.Error == "" {
			if err := a.cache.MarkDone(site, scenario, time.Now()); err != nil {
				a.log.Warn().Err(err).Str("site", site).Msg("Failed to record audit in cache")
			}
		}

		results = append(results, res)
	}

	return results
}

func (a *Auditor) auditScenario(ctx context.Context, site string, action scrape.Action) report.Result {
	scenario := string(action)
	logger := a.log.With().Str("site", site).Str("scenario", scenario).Logger()

	logger.Info().Msg("Auditing site")

	page, err := a.scraper.Scrape(ctx, site, action)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to scrape site")
		return report.FailedResult(site, scenario, err)
	}

	res := report.Result{
		WebsiteURL:         site,
		Scenario:           scenario,
		RawCookiesData:     "[]",
		CategorizedCookies: "{}",
	}

	cookies := page.Cookies
	if cookies == nil {
		cookies = []cookie.Cookie{}
	}

	res.CookiesCount = len(cookies)
	if raw, err := json.Marshal(cookies); err == nil {
		res.RawCookiesData = string(raw)
	}

	if n, err := cookie.CountThirdParty(site, cookies); err != nil {
		logger.Warn().Err(err).Msg("Failed to count third-party cookies")
	} else {
		res.ThirdPartyCookiesCount = n
	}

	if links, err := htmlutil.PrivacyLinks(page.HTML); err == nil && len(links) > 0 {
		logger.Debug().Int("candidates", len(links)).Str("first", links[0]).
			Msg("Found privacy link candidates in page")
	}

	if cats, err := a.analyzer.CategorizeCookies(ctx, cookies); err != nil {
		logger.Warn().Err(err).Msg("Cookie categorization failed")
	} else if data, err := json.Marshal(cats); err == nil {
		res.CategorizedCookies = string(data)
	}

	stripped, err := htmlutil.StripScripts(page.HTML)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to strip scripts, analyzing raw HTML")
		stripped = page.HTML
	}

	policy, err := a.analyzer.FindPrivacyPolicy(ctx, stripped, site)
	res.LLMFound = policy.ResultFound
	res.LLMReasoning = policy.Reasoning
	if err != nil || !policy.ResultFound || policy.PrivacyPolicyURL == "" {
		res.DPOReasoning = noPolicyReason
		res.RetentionReasoning = noPolicyReason
		return res
	}

	policyURL := resolveURL(site, policy.PrivacyPolicyURL)
	res.PrivacyPolicyURL = policyURL

	a.analyzePolicy(ctx, logger, &res, site, scenario, policyURL)

	return res
}

// analyzePolicy fetches the privacy policy page and fills in the retention
// and DPO sections of the result. The DPO extraction follows at most one
// sub-link when the model suggests a more specific page.
func (a *Auditor) analyzePolicy(ctx context.Context, logger zerolog.Logger, res *report.Result, site, scenario, policyURL string) {
	policyPage, err := a.scraper.Scrape(ctx, policyURL, scrape.ActionNone)
	if err != nil {
		logger.Error().Err(err).Str("url", policyURL).Msg("Failed to fetch privacy policy page")
		msg := "Failed to fetch privacy policy page."
		res.DPOReasoning = msg
		res.RetentionReasoning = msg
		return
	}

	a.snapshot(logger, policyPage, site, scenario, document.KindPrivacyPolicy)

	text, err := htmlutil.CleanForText(policyPage.HTML)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to clean policy page, analyzing raw HTML")
		text = policyPage.HTML
	}

	ret, err := a.analyzer.AnalyzeRetention(ctx, text)
	if err != nil {
		logger.Warn().Err(err).Msg("Retention analysis failed")
	}
	res.RetentionFound = ret.RetentionFound
	res.RetentionPolicySummary = ret.RetentionPolicySummary
	res.RetentionReasoning = ret.Reasoning

	dpo, err := a.analyzer.FindDPO(ctx, text, policyURL)
	if err != nil {
		logger.Warn().Err(err).Msg("DPO extraction failed")
	} else if dpo.WantsHop() {
		if hopped, ok := a.followDPOHop(ctx, logger, dpo.SubLink, policyURL, site, scenario); ok {
			dpo = hopped
		}
	}
	res.DPOFound = dpo.DPOFound
	res.DPOContactInfo = dpo.ContactInfo()
	res.DPOReasoning = dpo.Reasoning
}

// followDPOHop fetches the sub-link suggested by the model and re-runs the
// DPO extraction there. Self-referencing links are ignored. Once the hop
// page has been analyzed, its result replaces the first pass even when it
// comes up empty: the more specific page is authoritative.
func (a *Auditor) followDPOHop(ctx context.Context, logger zerolog.Logger, subLink, policyURL, site, scenario string) (analyze.DPOResult, bool) {
	hopURL := resolveURL(policyURL, subLink)
	if analyze.SameLink(hopURL, policyURL) {
		logger.Debug().Str("url", hopURL).Msg("DPO sub-link points back at the policy page, ignoring")
		return analyze.DPOResult{}, false
	}

	logger.Info().Str("url", hopURL).Msg("Following DPO sub-link")

	subPage, err := a.scraper.Scrape(ctx, hopURL, scrape.ActionNone)
	if err != nil {
		logger.Warn().Err(err).Str("url", hopURL).Msg("Failed to fetch DPO sub-link")
		return analyze.DPOResult{}, false
	}

	a.snapshot(logger, subPage, site, scenario, document.KindPolicySubPage)

	text, err := htmlutil.CleanForText(subPage.HTML)
	if err != nil {
		text = subPage.HTML
	}

	second, err := a.analyzer.FindDPO(ctx, text, hopURL)
	if err != nil {
		logger.Warn().Err(err).Str("url", hopURL).Msg("DPO extraction on sub-link failed")
		return analyze.DPOResult{}, false
	}

	return second, true
}

// snapshot persists a markdown capture of the page in the local store.
// Snapshot failures are logged but never fail the audit.
func (a *Auditor) snapshot(logger zerolog.Logger, page *scrape.Page, site, scenario string, kind document.Kind) {
	host, err := cookie.BaseDomain(site)
	if err != nil {
		host = site
	}

	doc, err := content.Snapshot([]byte(page.HTML), document.Metadata{
		Site:     host,
		Scenario: scenario,
		Source:   page.URL,
		Kind:     kind,
	})
	if err != nil {
		logger.Warn().Err(err).Str("url", page.URL).Msg("Failed to build page snapshot")
		return
	}

	name, err := a.store.StoreDocument(doc)
	if err != nil {
		logger.Warn().Err(err).Str("url", page.URL).Msg("Failed to store page snapshot")
		return
	}

	logger.Debug().Str("file", name).Msg("Stored page snapshot")
}

func resolveURL(base, ref string) string {
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}

	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}

	return b.ResolveReference(r).String()
}
