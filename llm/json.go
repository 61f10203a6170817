package llm

import (
	"strings"

	"github.com/pkg/errors"
)

// ExtractJSON salvages a JSON object from raw model output. JSON mode
// should make the reply a bare object, but smaller models still wrap it in
// markdown fences or prose, so fenced blocks are preferred and otherwise
// everything between the first '{' and the last '}' is taken.
func ExtractJSON(raw string) (string, error) {
	const startMarker = "```json"
	const endMarker = "```"

	if idx := strings.Index(raw, startMarker); idx >= 0 {
		rest := raw[idx+len(startMarker):]
		if end := strings.Index(rest, endMarker); end >= 0 {
			rest = rest[:end]
		}
		return strings.TrimSpace(rest), nil
	}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end < start {
		return "", errors.New("no JSON object found in the response")
	}

	return raw[start : end+1], nil
}
