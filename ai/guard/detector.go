// Package guard screens final responses for unsupported claims and decides
// whether a disclaimer must be prepended.
package guard

import (
	"regexp"
	"strings"
)

const (
	urlWarning = "⚠️ **Note:** This response was generated without researching " +
		"the mentioned website. For accurate information, please ask me to search for it."

	recencyWarning = "⚠️ **Note:** This response is based on my training data. " +
		"For the most current information, please ask me to search the web."

	claimWarning = "⚠️ **Accuracy Warning:** The details above are based on general patterns, " +
		"not specific research. For verified information, please ask me to search for this topic."
)

var (
	queryURLRegex    = regexp.MustCompile(`(?i)(https?://|www\.)\S+`)
	queryDomainRegex = regexp.MustCompile(`(?i)\b[a-z0-9-]+\.(com|org|net|io|ai|dev|co|app|tech|xyz)\b`)

	recencyKeywords = []string{"latest", "recent", "current", "2024", "2025", "2026"}

	// Confident phrasings about entities the model cannot have verified without
	// a search. Matched against the lowercased response.
	specificClaimRegexes = []*regexp.Regexp{
		regexp.MustCompile(`is a (company|product|service|platform|website) (that|which)`),
		regexp.MustCompile(`offers the following (features|services|products)`),
		regexp.MustCompile(`was founded (in|by)`),
		regexp.MustCompile(`is based in`),
		regexp.MustCompile(`provides \d+ (features|services|tools)`),
	}
)

// DetectRisk inspects the final response against the original query and the
// tools actually invoked. It returns a warning to prepend, or "" when the
// response needs no disclaimer. Rules are evaluated in order and the first
// match wins; they are not cumulative.
func DetectRisk(query, response string, toolsUsed map[string]bool) string {
	if toolsUsed["web_search"] {
		return ""
	}

	queryLower := strings.ToLower(query)

	if queryURLRegex.MatchString(query) || queryDomainRegex.MatchString(queryLower) {
		return urlWarning
	}

	for _, kw := range recencyKeywords {
		if strings.Contains(queryLower, kw) {
			return recencyWarning
		}
	}

	responseLower := strings.ToLower(response)
	for _, re := range specificClaimRegexes {
		if re.MatchString(responseLower) {
			return claimWarning
		}
	}

	return ""
}

// PrependWarning concatenates the warning and the response, separated by a
// blank line.
func PrependWarning(response, warning string) string {
	return warning + "\n\n" + response
}
