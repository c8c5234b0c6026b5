package agent

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildSystemPromptWithTools(t *testing.T) {
	got := BuildSystemPrompt("March 14, 2026", "", []string{"web_search", "calculator"}, "biology")

	assert.Contains(t, got, "Current date: March 14, 2026")
	assert.Contains(t, got, "TOOL USAGE (CRITICAL)")
	assert.Contains(t, got, "HALLUCINATION PREVENTION")
	assert.NotContains(t, got, "You don't have access to web search")
	assert.Contains(t, got, "You are a helpful study assistant focused on biology.")
}

func TestBuildSystemPromptWithoutTools(t *testing.T) {
	got := BuildSystemPrompt("March 14, 2026", "", nil, "")

	assert.Contains(t, got, "You don't have access to web search or calculator tools")
	assert.NotContains(t, got, "TOOL USAGE (CRITICAL)")
	assert.Contains(t, got, "You are a helpful study assistant focused on various subjects.")
}

func TestBuildSystemPromptProjectInstructionsLast(t *testing.T) {
	got := BuildSystemPrompt("March 14, 2026", "Answer in Spanish.", []string{"calculator"}, "math")

	assert.True(t, strings.HasSuffix(got, "PROJECT INSTRUCTIONS:\nAnswer in Spanish."))
	// Project instructions replace the subject fallback.
	assert.NotContains(t, got, "helpful study assistant focused on")
}

func TestForcedSearchInstruction(t *testing.T) {
	got := forcedSearchInstruction("zapagi.com")

	assert.Contains(t, got, "zapagi.com")
	assert.Contains(t, got, "ONLY on these search results")
}
