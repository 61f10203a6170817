package prompt

import "fmt"

const SYSTEM_PROMPT = "You are a helpful assistant that provides JSON output."

const FIND_POLICY_PROMPT = `You are an expert web analysis agent. Your task is to find the URL of the privacy policy page for the given website.
This page is often linked from the footer, but can also be in a cookie banner, "About Us" section, or other legal notices.
Analyze the provided HTML content and find the most likely URL for the privacy policy.
Look for links containing keywords like 'privacy', 'policy', 'GDPR', 'data protection', 'cookie policy', or 'legal notice'.
The result must be returned as a JSON object.

The HTML content to analyze is below:
---
%s
---

The URL of the page is: %s

Return your answer as a single JSON object with the following structure:
{
  "result_found": <boolean>,
  "privacy_policy_url": <string>,
  "reasoning": <string>,
  "confidence_score": <number>
}
privacy_policy_url must be the full URL to the privacy page.
If no URL is found, set "result_found" to false and "privacy_policy_url" to null.
Just return the JSON object, with no introduction or other text in the response.`

func CreateFindPolicyPrompt(html, url string) string {
	return fmt.Sprintf(FIND_POLICY_PROMPT, html, url)
}

const DPO_PROMPT = `You are an expert in GDPR compliance and a pure text extractor.

STRICT RULE: YOU MUST ONLY USE THE TEXT PROVIDED IN THE HTML CONTENT BELOW. DO NOT USE ANY EXTERNAL KNOWLEDGE.

Your task is to find the official contact details for the Data Protection Officer (DPO).

1. STRICT SUCCESS CONDITION: only set "dpo_found": true if you find an email address containing 'dpo@' or a clear, dedicated DPO postal address.
2. PRIORITY EXTRACTION: search for email addresses containing 'dpo@' first, then 'privacy@', then 'legal@'. Extract the single best email and the main postal address found.
3. SUB-LINK IMPERATIVE: if the STRICT SUCCESS CONDITION is false, you MUST look for the single most promising relative URL sub-link on the page that mentions 'Governance', 'Contact', 'Rights', or 'Data Inquiries'.

Privacy policy HTML content:
---
%s
---

The URL of the page is: %s

Return your answer as a single JSON object with the following structure:
{
  "dpo_found": <boolean>,
  "email_address": <string>,
  "postal_address": <string>,
  "sub_link": <string>,
  "reasoning": <string>
}
If you cannot find ANY email address in the provided HTML text, you MUST set email_address to null and explain in the reasoning why it was not found.
Just return the JSON object, with no introduction or other text in the response.`

func CreateDPOPrompt(html, url string) string {
	return fmt.Sprintf(DPO_PROMPT, html, url)
}

const RETENTION_PROMPT = `You are an expert in GDPR compliance. Your task is to find and summarize the data retention policy in the provided privacy policy HTML.
Look for keywords and phrases related to data retention, such as "data retention", "how long we keep your data", "storage period", or "period for which data is stored".
Extract and summarize the key information about how long personal data is kept and any conditions for its retention.

If you find the data retention policy, return a JSON object with "retention_found": true and a summary of the policy.
If you do NOT find a clear retention policy, return a JSON object with "retention_found": false.

Privacy policy HTML content:
---
%s
---

Return your answer as a single JSON object with the following structure:
{
  "retention_found": <boolean>,
  "retention_policy_summary": <string>,
  "reasoning": <string>
}
If no retention policy is found, set "retention_found" to false and "retention_policy_summary" to null.
Just return the JSON object, with no introduction or other text in the response.`

func CreateRetentionPrompt(html string) string {
	return fmt.Sprintf(RETENTION_PROMPT, html)
}

const CATEGORIZE_COOKIES_PROMPT = `You are an expert in GDPR cookie compliance. Your task is to categorize a list of cookies based on their name and properties.
Categorize each cookie into one of the following types:
- "Strictly Necessary": essential for the website's basic function (e.g., sessions, shopping cart).
- "Functional": remembers user choices (e.g., language, preferences).
- "Analytical": collects data on user behavior to improve the site (e.g., Google Analytics).
- "Marketing": tracks users for advertising and personalization.
- "Uncategorized": no clear purpose can be determined.

Return a JSON object with the website's cookies categorized into these types.

Cookies to categorize:
%s`

func CreateCategorizeCookiesPrompt(cookiesJSON string) string {
	return fmt.Sprintf(CATEGORIZE_COOKIES_PROMPT, cookiesJSON)
}
