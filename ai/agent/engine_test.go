package agent

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Study-Buddy-University/study-buddy-backend/ai/core/llm"
	"github.com/Study-Buddy-University/study-buddy-backend/ai/tools"
)

// mockLLM is a configurable llm.Service for loop tests.
type mockLLM struct {
	generateFunc func(ctx context.Context, messages []llm.Message, descriptors []llm.ToolDescriptor) (*llm.Result, error)
	streamFunc   func(ctx context.Context, messages []llm.Message) (<-chan string, <-chan error)
}

func (m *mockLLM) Generate(ctx context.Context, messages []llm.Message, descriptors []llm.ToolDescriptor) (*llm.Result, error) {
	return m.generateFunc(ctx, messages, descriptors)
}

func (m *mockLLM) GenerateStream(ctx context.Context, messages []llm.Message) (<-chan string, <-chan error) {
	return m.streamFunc(ctx, messages)
}

// staticStream returns a stream function that emits the given chunks and a
// clean termination.
func staticStream(chunks ...string) func(context.Context, []llm.Message) (<-chan string, <-chan error) {
	return func(context.Context, []llm.Message) (<-chan string, <-chan error) {
		contentCh := make(chan string, len(chunks))
		errCh := make(chan error, 1)
		for _, c := range chunks {
			contentCh <- c
		}
		close(contentCh)
		close(errCh)
		return contentCh, errCh
	}
}

// fakeTool is a canned tool for registry wiring in loop tests.
type fakeTool struct {
	name        string
	executeFunc func(ctx context.Context, args map[string]any) (*tools.Result, error)
	calls       int
}

func (f *fakeTool) Name() string        { return f.name }
func (f *fakeTool) Description() string { return "fake tool" }
func (f *fakeTool) Parameters() map[string]any {
	return map[string]any{"type": "object", "properties": map[string]any{}}
}
func (f *fakeTool) Execute(ctx context.Context, args map[string]any) (*tools.Result, error) {
	f.calls++
	return f.executeFunc(ctx, args)
}

func newFakeWebSearch(resultText string, hits []tools.SearchResult) *fakeTool {
	return &fakeTool{
		name: "web_search",
		executeFunc: func(_ context.Context, args map[string]any) (*tools.Result, error) {
			query, _ := args["query"].(string)
			return &tools.Result{
				Success: true,
				Result:  resultText,
				Metadata: map[string]any{
					"query":   query,
					"results": hits,
				},
			}, nil
		},
	}
}

func fixedClock() time.Time {
	return time.Date(2026, time.March, 14, 12, 0, 0, 0, time.UTC)
}

func TestRunPlainAnswer(t *testing.T) {
	var gotMessages []llm.Message
	var gotDescriptors []llm.ToolDescriptor
	engine := NewEngine(Config{
		LLM: &mockLLM{
			generateFunc: func(_ context.Context, messages []llm.Message, descriptors []llm.ToolDescriptor) (*llm.Result, error) {
				gotMessages = messages
				gotDescriptors = descriptors
				return &llm.Result{Text: "Plants convert light into chemical energy."}, nil
			},
		},
		Registry: tools.NewRegistry(),
		Now:      fixedClock,
	})

	answer, err := engine.Run(context.Background(), &Request{
		ProjectID: 1,
		Message:   "how does photosynthesis work",
		History: []llm.Message{
			{Role: "user", Content: "hi"},
			{Role: "assistant", Content: "hello"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Plants convert light into chemical energy.", answer)

	require.Len(t, gotMessages, 4)
	assert.Equal(t, "system", gotMessages[0].Role)
	assert.Contains(t, gotMessages[0].Content, "March 14, 2026")
	assert.Equal(t, "hi", gotMessages[1].Content)
	assert.Equal(t, "hello", gotMessages[2].Content)
	assert.Equal(t, "how does photosynthesis work", gotMessages[3].Content)
	assert.Empty(t, gotDescriptors, "no enabled tools means no schemas")
}

func TestRunDocumentContextPrefixesPrompt(t *testing.T) {
	var lastContent string
	engine := NewEngine(Config{
		LLM: &mockLLM{
			generateFunc: func(_ context.Context, messages []llm.Message, _ []llm.ToolDescriptor) (*llm.Result, error) {
				lastContent = messages[len(messages)-1].Content
				return &llm.Result{Text: "answer"}, nil
			},
		},
		Registry: tools.NewRegistry(),
		Now:      fixedClock,
	})

	_, err := engine.Run(context.Background(), &Request{
		Message:         "summarize the notes",
		DocumentContext: "Based on the following document: notes.md",
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(lastContent, "Context from uploaded documents:\nBased on the following document: notes.md\n\n"))
	assert.True(t, strings.HasSuffix(lastContent, "summarize the notes"))
}

func TestRunToolRoundTrip(t *testing.T) {
	calc := &fakeTool{
		name: "calculator",
		executeFunc: func(context.Context, map[string]any) (*tools.Result, error) {
			return &tools.Result{Success: true, Result: "555"}, nil
		},
	}

	generateCalls := 0
	var secondCallContent string
	engine := NewEngine(Config{
		LLM: &mockLLM{
			generateFunc: func(_ context.Context, messages []llm.Message, descriptors []llm.ToolDescriptor) (*llm.Result, error) {
				generateCalls++
				if generateCalls == 1 {
					require.Len(t, descriptors, 1)
					assert.Equal(t, "calculator", descriptors[0].Name)
					return &llm.Result{ToolCall: &llm.ToolCall{Name: "calculator", Arguments: map[string]any{"expression": "15 * 37"}}}, nil
				}
				secondCallContent = messages[len(messages)-1].Content
				return &llm.Result{Text: "15 * 37 is 555."}, nil
			},
		},
		Registry: tools.NewRegistry(calc),
		Now:      fixedClock,
	})

	answer, err := engine.Run(context.Background(), &Request{
		Message:      "what is 15 * 37",
		EnabledTools: []string{"calculator"},
	})
	require.NoError(t, err)
	assert.Equal(t, "15 * 37 is 555.", answer)
	assert.Equal(t, 1, calc.calls)
	assert.Contains(t, secondCallContent, "Tool calculator returned: 555")
	assert.Contains(t, secondCallContent, "Based on this information")
}

func TestRunIterationCap(t *testing.T) {
	calc := &fakeTool{
		name: "calculator",
		executeFunc: func(context.Context, map[string]any) (*tools.Result, error) {
			return &tools.Result{Success: true, Result: "42"}, nil
		},
	}

	generateCalls := 0
	engine := NewEngine(Config{
		LLM: &mockLLM{
			generateFunc: func(context.Context, []llm.Message, []llm.ToolDescriptor) (*llm.Result, error) {
				generateCalls++
				return &llm.Result{ToolCall: &llm.ToolCall{Name: "calculator", Arguments: map[string]any{}}}, nil
			},
		},
		Registry: tools.NewRegistry(calc),
		Now:      fixedClock,
	})

	answer, err := engine.Run(context.Background(), &Request{
		Message:      "compute this forever",
		EnabledTools: []string{"calculator"},
	})
	require.NoError(t, err, "exhaustion is a fallback, never an error")
	assert.Equal(t, apologyMessage, answer)
	assert.Equal(t, 5, generateCalls)
	assert.Equal(t, 5, calc.calls)
}

func TestRunModelError(t *testing.T) {
	engine := NewEngine(Config{
		LLM: &mockLLM{
			generateFunc: func(context.Context, []llm.Message, []llm.ToolDescriptor) (*llm.Result, error) {
				return nil, errors.New("provider timeout")
			},
		},
		Registry: tools.NewRegistry(),
		Now:      fixedClock,
	})

	_, err := engine.Run(context.Background(), &Request{Message: "hello"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "provider timeout")
}

func TestRunPrependsWarning(t *testing.T) {
	engine := NewEngine(Config{
		LLM: &mockLLM{
			generateFunc: func(context.Context, []llm.Message, []llm.ToolDescriptor) (*llm.Result, error) {
				return &llm.Result{Text: "Go 1.22 is the newest release."}, nil
			},
		},
		Registry: tools.NewRegistry(),
		Now:      fixedClock,
	})

	answer, err := engine.Run(context.Background(), &Request{Message: "what is the latest Go release"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(answer, "⚠️"))
	assert.True(t, strings.HasSuffix(answer, "Go 1.22 is the newest release."))
}

func TestRunForcedSearch(t *testing.T) {
	webSearch := newFakeWebSearch("Zapagi builds scheduling tools.", []tools.SearchResult{
		{Title: "Zapagi", URL: "https://zapagi.com", Snippet: "Scheduling tools.", Engine: "google"},
	})

	var hookProjectID int32
	var hookQuery string
	var hookHits []tools.SearchResult

	generateCalls := 0
	var gotMessages []llm.Message
	var gotDescriptors []llm.ToolDescriptor
	engine := NewEngine(Config{
		LLM: &mockLLM{
			generateFunc: func(_ context.Context, messages []llm.Message, descriptors []llm.ToolDescriptor) (*llm.Result, error) {
				generateCalls++
				gotMessages = messages
				gotDescriptors = descriptors
				return &llm.Result{Text: "Zapagi is a scheduling platform."}, nil
			},
		},
		Registry: tools.NewRegistry(webSearch),
		OnSearchResults: func(projectID int32, query string, results []tools.SearchResult) {
			hookProjectID = projectID
			hookQuery = query
			hookHits = results
		},
		Now: fixedClock,
	})

	answer, err := engine.Run(context.Background(), &Request{
		ProjectID:    7,
		Message:      "what is zapagi.com",
		EnabledTools: []string{"web_search"},
	})
	require.NoError(t, err)

	// The search ran before any model call and the single model call carries
	// no tool schemas.
	assert.Equal(t, 1, webSearch.calls)
	assert.Equal(t, 1, generateCalls)
	assert.Empty(t, gotDescriptors)

	systemPrompt := gotMessages[0].Content
	assert.Contains(t, systemPrompt, "CRITICAL INSTRUCTION")
	assert.Contains(t, systemPrompt, "zapagi.com")

	userContent := gotMessages[len(gotMessages)-1].Content
	assert.Contains(t, userContent, "=== WEB SEARCH RESULTS FOR zapagi.com ===")
	assert.Contains(t, userContent, "Zapagi builds scheduling tools.")
	assert.Contains(t, userContent, "=== END SEARCH RESULTS ===")

	// Search ran, so the answer needs no disclaimer.
	assert.Equal(t, "Zapagi is a scheduling platform.", answer)

	assert.Equal(t, int32(7), hookProjectID)
	assert.Equal(t, "zapagi.com", hookQuery)
	require.Len(t, hookHits, 1)
	assert.Equal(t, "https://zapagi.com", hookHits[0].URL)
}

func TestRunForcedSearchSkippedWithoutTool(t *testing.T) {
	generateCalls := 0
	engine := NewEngine(Config{
		LLM: &mockLLM{
			generateFunc: func(_ context.Context, _ []llm.Message, descriptors []llm.ToolDescriptor) (*llm.Result, error) {
				generateCalls++
				assert.Empty(t, descriptors)
				return &llm.Result{Text: "I cannot browse the web."}, nil
			},
		},
		Registry: tools.NewRegistry(),
		Now:      fixedClock,
	})

	answer, err := engine.Run(context.Background(), &Request{Message: "what is zapagi.com"})
	require.NoError(t, err)
	assert.Equal(t, 1, generateCalls)
	// Without a search the URL answer carries the disclaimer.
	assert.True(t, strings.HasPrefix(answer, "⚠️"))
}

func TestRunForcedSearchFailureFallsBackToLoop(t *testing.T) {
	webSearch := &fakeTool{
		name: "web_search",
		executeFunc: func(context.Context, map[string]any) (*tools.Result, error) {
			return tools.Failure("network down"), nil
		},
	}

	var gotDescriptors []llm.ToolDescriptor
	engine := NewEngine(Config{
		LLM: &mockLLM{
			generateFunc: func(_ context.Context, _ []llm.Message, descriptors []llm.ToolDescriptor) (*llm.Result, error) {
				gotDescriptors = descriptors
				return &llm.Result{Text: "I could not reach the site."}, nil
			},
		},
		Registry: tools.NewRegistry(webSearch),
		Now:      fixedClock,
	})

	answer, err := engine.Run(context.Background(), &Request{
		Message:      "what is zapagi.com",
		EnabledTools: []string{"web_search"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, webSearch.calls)
	// The loop keeps tool schemas so the model can retry the search itself.
	require.Len(t, gotDescriptors, 1)
	assert.Equal(t, "web_search", gotDescriptors[0].Name)
	assert.Equal(t, "I could not reach the site.", answer)
}

func collectEvents(ch <-chan Event) []Event {
	var events []Event
	for ev := range ch {
		events = append(events, ev)
	}
	return events
}

func TestRunStreamPlainAnswer(t *testing.T) {
	engine := NewEngine(Config{
		LLM: &mockLLM{
			generateFunc: func(context.Context, []llm.Message, []llm.ToolDescriptor) (*llm.Result, error) {
				return &llm.Result{Text: "buffered decision text"}, nil
			},
			streamFunc: staticStream("Plants convert ", "light into energy."),
		},
		Registry: tools.NewRegistry(),
		Now:      fixedClock,
	})

	events := collectEvents(engine.RunStream(context.Background(), &Request{
		Message: "how does photosynthesis work",
	}))

	require.Len(t, events, 2)
	assert.Equal(t, EventTypeChunk, events[0].Type)
	assert.Equal(t, "Plants convert ", events[0].Text)
	assert.Equal(t, "light into energy.", events[1].Text)
	// The buffered decision text never reaches the client.
	for _, ev := range events {
		assert.NotContains(t, ev.Text, "buffered decision")
	}
}

func TestRunStreamToolEventsThenChunks(t *testing.T) {
	calc := &fakeTool{
		name: "calculator",
		executeFunc: func(context.Context, map[string]any) (*tools.Result, error) {
			return &tools.Result{Success: true, Result: "555"}, nil
		},
	}

	generateCalls := 0
	engine := NewEngine(Config{
		LLM: &mockLLM{
			generateFunc: func(context.Context, []llm.Message, []llm.ToolDescriptor) (*llm.Result, error) {
				generateCalls++
				if generateCalls == 1 {
					return &llm.Result{ToolCall: &llm.ToolCall{Name: "calculator", Arguments: map[string]any{"expression": "15 * 37"}}}, nil
				}
				return &llm.Result{Text: "decision"}, nil
			},
			streamFunc: staticStream("15 * 37 is 555."),
		},
		Registry: tools.NewRegistry(calc),
		Now:      fixedClock,
	})

	events := collectEvents(engine.RunStream(context.Background(), &Request{
		Message:      "what is 15 * 37",
		EnabledTools: []string{"calculator"},
	}))

	require.Len(t, events, 3)
	assert.Equal(t, EventTypeToolExecution, events[0].Type)
	assert.Equal(t, "calculator", events[0].Tool)
	assert.Equal(t, "executing", events[0].Status)
	assert.Equal(t, EventTypeToolResult, events[1].Type)
	assert.Equal(t, "success", events[1].Status)
	assert.Equal(t, "555", events[1].Result)
	assert.Equal(t, EventTypeChunk, events[2].Type)
	assert.Equal(t, "15 * 37 is 555.", events[2].Text)
}

func TestRunStreamForcedSearchEventOrder(t *testing.T) {
	webSearch := newFakeWebSearch("Zapagi builds scheduling tools.", nil)

	generateCalls := 0
	engine := NewEngine(Config{
		LLM: &mockLLM{
			generateFunc: func(context.Context, []llm.Message, []llm.ToolDescriptor) (*llm.Result, error) {
				generateCalls++
				return &llm.Result{Text: "unused"}, nil
			},
			streamFunc: staticStream("Zapagi is ", "a scheduling platform."),
		},
		Registry: tools.NewRegistry(webSearch),
		Now:      fixedClock,
	})

	events := collectEvents(engine.RunStream(context.Background(), &Request{
		Message:      "check out zapagi.com",
		EnabledTools: []string{"web_search"},
	}))

	// Exactly one execution/result pair, then the streamed answer. The forced
	// path never consults the model for a tool decision.
	require.Len(t, events, 4)
	assert.Equal(t, EventTypeToolExecution, events[0].Type)
	assert.Equal(t, "web_search", events[0].Tool)
	assert.Equal(t, "zapagi.com", events[0].Args["query"])
	assert.Equal(t, EventTypeToolResult, events[1].Type)
	assert.Equal(t, "success", events[1].Status)
	assert.Equal(t, EventTypeChunk, events[2].Type)
	assert.Equal(t, EventTypeChunk, events[3].Type)
	assert.Equal(t, 0, generateCalls)
	assert.Equal(t, 1, webSearch.calls)
}

func TestRunStreamTruncatesResultDisplay(t *testing.T) {
	long := strings.Repeat("x", 300)
	echo := &fakeTool{
		name: "echo",
		executeFunc: func(context.Context, map[string]any) (*tools.Result, error) {
			return &tools.Result{Success: true, Result: long}, nil
		},
	}

	generateCalls := 0
	var secondCallContent string
	engine := NewEngine(Config{
		LLM: &mockLLM{
			generateFunc: func(_ context.Context, messages []llm.Message, _ []llm.ToolDescriptor) (*llm.Result, error) {
				generateCalls++
				if generateCalls == 1 {
					return &llm.Result{ToolCall: &llm.ToolCall{Name: "echo", Arguments: map[string]any{}}}, nil
				}
				secondCallContent = messages[len(messages)-1].Content
				return &llm.Result{Text: "done"}, nil
			},
			streamFunc: staticStream("done"),
		},
		Registry: tools.NewRegistry(echo),
		Now:      fixedClock,
	})

	events := collectEvents(engine.RunStream(context.Background(), &Request{
		Message:      "run echo",
		EnabledTools: []string{"echo"},
	}))

	require.Len(t, events, 3)
	assert.Len(t, events[1].Result, 200, "status events truncate the result")
	assert.Contains(t, secondCallContent, long, "the prompt carries the full result")
}

func TestDisplayKeepsMultiByteRunesIntact(t *testing.T) {
	long := strings.Repeat("算", resultDisplayLen+50)

	got := display(long)

	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, resultDisplayLen, len([]rune(got)))
	assert.Equal(t, "short", display("short"))
}

func TestRunStreamModelErrorEmitsErrorEvent(t *testing.T) {
	engine := NewEngine(Config{
		LLM: &mockLLM{
			generateFunc: func(context.Context, []llm.Message, []llm.ToolDescriptor) (*llm.Result, error) {
				return nil, errors.New("provider timeout")
			},
		},
		Registry: tools.NewRegistry(),
		Now:      fixedClock,
	})

	events := collectEvents(engine.RunStream(context.Background(), &Request{Message: "hello"}))
	require.Len(t, events, 1)
	assert.Equal(t, EventTypeError, events[0].Type)
	assert.Contains(t, events[0].Text, "provider timeout")
}

func TestRunStreamIterationCap(t *testing.T) {
	calc := &fakeTool{
		name: "calculator",
		executeFunc: func(context.Context, map[string]any) (*tools.Result, error) {
			return &tools.Result{Success: true, Result: "42"}, nil
		},
	}

	engine := NewEngine(Config{
		LLM: &mockLLM{
			generateFunc: func(context.Context, []llm.Message, []llm.ToolDescriptor) (*llm.Result, error) {
				return &llm.Result{ToolCall: &llm.ToolCall{Name: "calculator", Arguments: map[string]any{}}}, nil
			},
		},
		Registry: tools.NewRegistry(calc),
		Now:      fixedClock,
	})

	events := collectEvents(engine.RunStream(context.Background(), &Request{
		Message:      "compute this forever",
		EnabledTools: []string{"calculator"},
	}))

	// Five execution/result pairs, then the apology as a plain chunk.
	require.Len(t, events, 11)
	last := events[len(events)-1]
	assert.Equal(t, EventTypeChunk, last.Type)
	assert.Equal(t, apologyMessage, last.Text)
	assert.Equal(t, 5, calc.calls)
}

func TestRunStreamWarningEvent(t *testing.T) {
	engine := NewEngine(Config{
		LLM: &mockLLM{
			generateFunc: func(context.Context, []llm.Message, []llm.ToolDescriptor) (*llm.Result, error) {
				return &llm.Result{Text: "decision"}, nil
			},
			streamFunc: staticStream("Go 1.22 is the newest release."),
		},
		Registry: tools.NewRegistry(),
		Now:      fixedClock,
	})

	events := collectEvents(engine.RunStream(context.Background(), &Request{
		Message: "what is the latest Go release",
	}))

	require.Len(t, events, 2)
	assert.Equal(t, EventTypeChunk, events[0].Type)
	assert.Equal(t, EventTypeWarning, events[1].Type)
	assert.Contains(t, events[1].Text, "⚠️")
}
