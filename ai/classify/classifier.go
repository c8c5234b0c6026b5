// Package classify determines when tools are mandatory vs optional for a user query.
package classify

import (
	"regexp"
	"strings"
)

// QueryType is the coarse category of a user query.
type QueryType string

const (
	QueryTypeURLLookup         QueryType = "url_lookup"
	QueryTypeWebSearchRequired QueryType = "web_search_required"
	QueryTypeCurrentEvents     QueryType = "current_events"
	QueryTypeCalculation       QueryType = "calculation"
	QueryTypeCreative          QueryType = "creative"
	QueryTypeGeneralKnowledge  QueryType = "general_knowledge"
)

// ToolRequirement is the tool usage enforcement level for a query.
type ToolRequirement string

const (
	ToolRequired    ToolRequirement = "required"
	ToolRecommended ToolRequirement = "recommended"
	ToolOptional    ToolRequirement = "optional"
	ToolNone        ToolRequirement = "none"
)

var (
	schemeRegex = regexp.MustCompile(`(?i)https?://`)
	wwwRegex    = regexp.MustCompile(`(?i)\bwww\.`)

	// Bare word.TLD or word.word.TLD tokens. The TLD set deliberately includes
	// short suffixes ("ly", "sh", "to") that also terminate ordinary English
	// words, so every candidate is checked against commonWordDenylist below.
	domainRegex = regexp.MustCompile(`(?i)\b([a-z0-9-]+(?:\.[a-z0-9-]+)?\.(?:com|org|net|io|ai|dev|co|me|info|app|edu|gov|tech|xyz|site|online|ly|sh|gg|to))\b`)

	schemeExtractRegex = regexp.MustCompile(`(?i)https?://(\S+)`)
	wwwExtractRegex    = regexp.MustCompile(`(?i)www\.(\S+)`)

	calcRegex = regexp.MustCompile(`\d+\s*[-+*/^]\s*\d+`)
)

// commonWordDenylist holds English words that a naive domain regex mistakes for
// a host when they are written with an inner dot ("final.ly"). A candidate
// whose dot-stripped form appears here never counts as a domain.
var commonWordDenylist = map[string]bool{
	"already": true,
	"barely":  true,
	"daily":   true,
	"early":   true,
	"finally": true,
	"likely":  true,
	"lively":  true,
	"lonely":  true,
	"namely":  true,
	"nearly":  true,
	"rarely":  true,
	"really":  true,
}

var searchPhrases = []string{
	"search for", "look up", "find information about",
	"what is the latest", "recent news", "current",
	"tell me about the website", "information about",
}

var currentIndicators = []string{
	"latest", "recent", "current", "today", "this week",
	"this month", "2024", "2025", "2026", "now", "currently",
}

var calcKeywords = []string{"calculate", "compute", "solve"}

var creativeIndicators = []string{
	"write a story", "create a poem", "imagine",
	"make up", "brainstorm", "creative writing",
}

// Classify maps a raw user message to a query category and a tool requirement
// level. It is a pure function, first matching rule wins.
func Classify(message string) (QueryType, ToolRequirement) {
	lower := strings.ToLower(message)

	if DetectURLPatterns(message) {
		return QueryTypeURLLookup, ToolRequired
	}

	for _, phrase := range searchPhrases {
		if strings.Contains(lower, phrase) {
			return QueryTypeWebSearchRequired, ToolRequired
		}
	}

	for _, indicator := range currentIndicators {
		if strings.Contains(lower, indicator) {
			return QueryTypeCurrentEvents, ToolRecommended
		}
	}

	if calcRegex.MatchString(lower) {
		return QueryTypeCalculation, ToolRequired
	}
	for _, kw := range calcKeywords {
		if strings.Contains(lower, kw) {
			return QueryTypeCalculation, ToolRequired
		}
	}

	for _, indicator := range creativeIndicators {
		if strings.Contains(lower, indicator) {
			return QueryTypeCreative, ToolNone
		}
	}

	return QueryTypeGeneralKnowledge, ToolOptional
}

// DetectURLPatterns reports whether the message contains a URL or domain.
func DetectURLPatterns(message string) bool {
	if schemeRegex.MatchString(message) {
		return true
	}
	if wwwRegex.MatchString(message) {
		return true
	}
	return firstDomainMatch(message) != ""
}

// ExtractURLOrDomain returns the primary URL or domain from the message, for
// use as the literal search query when a forced search triggers. Full URLs are
// stripped of their scheme and trailing slash. With no match it is the
// identity on the input.
func ExtractURLOrDomain(message string) string {
	if m := schemeExtractRegex.FindStringSubmatch(message); m != nil {
		return strings.TrimRight(m[1], "/")
	}
	if m := wwwExtractRegex.FindStringSubmatch(message); m != nil {
		return strings.TrimRight(m[1], "/")
	}
	if domain := firstDomainMatch(message); domain != "" {
		return domain
	}
	return message
}

// firstDomainMatch returns the first bare-domain token that survives the
// common-word denylist, or "".
func firstDomainMatch(message string) string {
	for _, m := range domainRegex.FindAllString(message, -1) {
		stripped := strings.ToLower(strings.ReplaceAll(m, ".", ""))
		if commonWordDenylist[stripped] {
			continue
		}
		return m
	}
	return ""
}
