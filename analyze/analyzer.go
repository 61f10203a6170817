// Package analyze runs the GDPR analyses against the local model: privacy
// policy discovery, DPO contact extraction, retention policy summarization,
// and cookie categorization.
package analyze

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/consentio/gdprscan/cookie"
	"github.com/consentio/gdprscan/llm"
	"github.com/consentio/gdprscan/log"
	"github.com/consentio/gdprscan/prompt"
)

// PolicyResult is the model's verdict on where the privacy policy lives.
type PolicyResult struct {
	ResultFound      bool    `json:"result_found"`
	PrivacyPolicyURL string  `json:"privacy_policy_url"`
	Reasoning        string  `json:"reasoning"`
	ConfidenceScore  float64 `json:"confidence_score"`
}

// DPOResult holds extracted Data Protection Officer contact details. When
// the DPO was not found, SubLink may name a more specific page to try.
type DPOResult struct {
	DPOFound      bool   `json:"dpo_found"`
	EmailAddress  string `json:"email_address"`
	PostalAddress string `json:"postal_address"`
	SubLink       string `json:"sub_link"`
	Reasoning     string `json:"reasoning"`
}

// ContactInfo flattens the best contact detail for reporting.
func (r DPOResult) ContactInfo() string {
	if r.EmailAddress != "" {
		return r.EmailAddress
	}
	return r.PostalAddress
}

// RetentionResult summarizes the data retention policy, if one was found.
type RetentionResult struct {
	RetentionFound         bool   `json:"retention_found"`
	RetentionPolicySummary string `json:"retention_policy_summary"`
	Reasoning              string `json:"reasoning"`
}

// Categories maps a category name ("Marketing", "Analytical", ...) to the
// cookies the model placed in it. The value shape is model-determined, so
// it stays loose.
type Categories map[string]any

type Analyzer struct {
	log zerolog.Logger
	llm llm.Querier
}

func New(querier llm.Querier) *Analyzer {
	return &Analyzer{
		log: log.NewLogger("analyze"),
		llm: querier,
	}
}

// FindPrivacyPolicy asks the model for the privacy policy URL given the
// site's cleaned HTML.
func (a *Analyzer) FindPrivacyPolicy(ctx context.Context, html, url string) (PolicyResult, error) {
	var res PolicyResult
	err := a.llm.QueryJSON(ctx, prompt.SYSTEM_PROMPT, prompt.CreateFindPolicyPrompt(html, url), &res)
	if err != nil {
		return PolicyResult{Reasoning: reasonFor(err)}, errors.Wrap(err, "privacy policy discovery failed")
	}

	a.log.Debug().Str("url", url).Bool("found", res.ResultFound).
		Str("policy_url", res.PrivacyPolicyURL).Float64("confidence", res.ConfidenceScore).
		Msg("Privacy policy discovery complete")

	return res, nil
}

// FindDPO extracts DPO contact details from a privacy policy page.
func (a *Analyzer) FindDPO(ctx context.Context, html, url string) (DPOResult, error) {
	var res DPOResult
	err := a.llm.QueryJSON(ctx, prompt.SYSTEM_PROMPT, prompt.CreateDPOPrompt(html, url), &res)
	if err != nil {
		return DPOResult{Reasoning: reasonFor(err)}, errors.Wrap(err, "DPO extraction failed")
	}

	a.log.Debug().Str("url", url).Bool("found", res.DPOFound).Str("sub_link", res.SubLink).
		Msg("DPO extraction complete")

	return res, nil
}

// WantsHop reports whether a second DPO extraction pass is worth making:
// the DPO was not found but the model suggested a sub-link to follow.
func (r DPOResult) WantsHop() bool {
	return !r.DPOFound && r.SubLink != ""
}

// SameLink reports whether two URLs point at the same page modulo a
// trailing slash; it guards against the model handing back the page it
// was already given.
func SameLink(a, b string) bool {
	return strings.TrimRight(a, "/") == strings.TrimRight(b, "/")
}

// AnalyzeRetention summarizes the data retention terms of a policy page.
func (a *Analyzer) AnalyzeRetention(ctx context.Context, html string) (RetentionResult, error) {
	var res RetentionResult
	err := a.llm.QueryJSON(ctx, prompt.SYSTEM_PROMPT, prompt.CreateRetentionPrompt(html), &res)
	if err != nil {
		return RetentionResult{Reasoning: reasonFor(err)}, errors.Wrap(err, "retention analysis failed")
	}

	a.log.Debug().Bool("found", res.RetentionFound).Msg("Retention analysis complete")

	return res, nil
}

// CategorizeCookies asks the model to sort the captured cookies into the
// five consent categories.
func (a *Analyzer) CategorizeCookies(ctx context.Context, cookies []cookie.Cookie) (Categories, error) {
	if len(cookies) == 0 {
		return Categories{}, nil
	}

	simplified, err := json.MarshalIndent(cookie.Simplify(cookies), "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode cookies for categorization")
	}

	var res Categories
	err = a.llm.QueryJSON(ctx, prompt.SYSTEM_PROMPT, prompt.CreateCategorizeCookiesPrompt(string(simplified)), &res)
	if err != nil {
		return nil, errors.Wrap(err, "cookie categorization failed")
	}

	a.log.Debug().Int("cookies", len(cookies)).Int("categories", len(res)).Msg("Cookie categorization complete")

	return res, nil
}

func reasonFor(err error) string {
	if errors.Is(err, llm.ErrMalformedJSON) {
		return "model returned malformed JSON"
	}
	return "model query failed"
}
