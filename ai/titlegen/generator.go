// Package titlegen generates short conversation titles from the first user
// message.
package titlegen

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Study-Buddy-University/study-buddy-backend/ai/core/llm"
	"github.com/Study-Buddy-University/study-buddy-backend/internal/strutil"
)

const (
	titleTimeout     = 15 * time.Second
	promptMessageLen = 200
	titleMaxRunes    = 100
)

// Generator asks the model for a concise conversation title.
type Generator struct {
	llm llm.Service
}

// NewGenerator creates a title generator.
func NewGenerator(service llm.Service) *Generator {
	return &Generator{llm: service}
}

// Generate returns a 3-6 word title derived from the first user message.
// Callers fall back to a truncated message prefix on error.
func (g *Generator) Generate(ctx context.Context, firstMessage string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, titleTimeout)
	defer cancel()

	prompt := fmt.Sprintf(
		"Generate a short, concise 3-6 word title for a conversation that starts with: '%s'. "+
			"Reply with ONLY the title, no quotes or punctuation.",
		strutil.Prefix(firstMessage, promptMessageLen),
	)

	result, err := g.llm.Generate(ctx, []llm.Message{llm.UserMessage(prompt)}, nil)
	if err != nil {
		return "", fmt.Errorf("generate title: %w", err)
	}

	title := strings.TrimSpace(result.Text)
	title = strings.Trim(title, `"'`)
	if title == "" {
		return "", fmt.Errorf("empty title from model")
	}
	if len([]rune(title)) > titleMaxRunes {
		title = strutil.Prefix(title, titleMaxRunes-3) + "..."
	}
	return title, nil
}
