// Package report assembles and persists the audit results.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
)

// Result is one row of the audit output: a single site under a single
// consent scenario.
type Result struct {
	WebsiteURL string `json:"website_url"`
	Scenario   string `json:"scenario"`

	PrivacyPolicyURL string `json:"privacy_policy_url"`
	LLMFound         bool   `json:"llm_found"`
	LLMReasoning     string `json:"llm_reasoning"`

	DPOContactInfo string `json:"dpo_contact_info"`
	DPOFound       bool   `json:"dpo_found"`
	DPOReasoning   string `json:"dpo_reasoning"`

	RetentionPolicySummary string `json:"retention_policy_summary"`
	RetentionFound         bool   `json:"retention_found"`
	RetentionReasoning     string `json:"retention_reasoning"`

	CookiesCount           int    `json:"cookies_count"`
	ThirdPartyCookiesCount int    `json:"third_party_cookies_count"`
	RawCookiesData         string `json:"raw_cookies_data"`
	CategorizedCookies     string `json:"categorized_cookies"`

	Error string `json:"error,omitempty"`
}

// FailedResult builds the row recorded when a site/scenario could not be
// processed at all. Unknowable string fields carry "N/A" so downstream
// consumers can tell "not found" from "never looked".
func FailedResult(site, scenario string, err error) Result {
	msg := fmt.Sprintf("Failed to process: %s", err)
	return Result{
		WebsiteURL:             site,
		Scenario:               scenario,
		PrivacyPolicyURL:       "N/A",
		LLMReasoning:           msg,
		DPOContactInfo:         "N/A",
		DPOReasoning:           msg,
		RetentionPolicySummary: "N/A",
		RetentionReasoning:     msg,
		RawCookiesData:         "[]",
		CategorizedCookies:     "[]",
		Error:                  msg,
	}
}

// Write stores the results as a timestamped JSON artifact in dir and
// returns the file path.
func Write(dir string, results []Result) (string, error) {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "failed to encode results")
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05")
	path := filepath.Join(dir, fmt.Sprintf("analysis_results_%s.json", timestamp))

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", errors.Wrap(err, "failed to write results file")
	}

	return path, nil
}
