package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatMessages(t *testing.T) {
	history := []Message{
		UserMessage("hi"),
		AssistantMessage("hello"),
	}

	got := FormatMessages("be helpful", "what's up", history)
	require.Len(t, got, 4)
	assert.Equal(t, Message{Role: "system", Content: "be helpful"}, got[0])
	assert.Equal(t, "hi", got[1].Content)
	assert.Equal(t, "hello", got[2].Content)
	assert.Equal(t, Message{Role: "user", Content: "what's up"}, got[3])
}

func TestFormatMessagesNoSystemPrompt(t *testing.T) {
	got := FormatMessages("", "question", nil)
	require.Len(t, got, 1)
	assert.Equal(t, "user", got[0].Role)
}

// completionRequest captures the parts of the OpenAI request we assert on.
type completionRequest struct {
	Model       string  `json:"model"`
	Temperature float32 `json:"temperature"`
	Messages    []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
	Tools []struct {
		Function struct {
			Name string `json:"name"`
		} `json:"function"`
	} `json:"tools"`
}

func newCompletionServer(t *testing.T, lastReq *completionRequest, response string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		if lastReq != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(lastReq))
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, response)
	}))
}

func newTestService(t *testing.T, baseURL string) Service {
	t.Helper()
	svc, err := NewService(&Config{
		Provider: "openai",
		Model:    "gpt-4o-mini",
		APIKey:   "test-key",
		BaseURL:  baseURL + "/v1",
	})
	require.NoError(t, err)
	return svc
}

func TestGenerateText(t *testing.T) {
	var gotReq completionRequest
	srv := newCompletionServer(t, &gotReq,
		`{"choices":[{"message":{"role":"assistant","content":"Hello there."}}]}`)
	defer srv.Close()

	svc := newTestService(t, srv.URL)
	result, err := svc.Generate(context.Background(), []Message{
		SystemPrompt("be brief"),
		UserMessage("hi"),
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Hello there.", result.Text)
	assert.Nil(t, result.ToolCall)

	require.Len(t, gotReq.Messages, 2)
	assert.Equal(t, "system", gotReq.Messages[0].Role)
	assert.Equal(t, "user", gotReq.Messages[1].Role)
	assert.InDelta(t, 0.7, gotReq.Temperature, 0.001)
	assert.Empty(t, gotReq.Tools)
}

func TestGenerateToolCall(t *testing.T) {
	var gotReq completionRequest
	srv := newCompletionServer(t, &gotReq,
		`{"choices":[{"message":{"role":"assistant","tool_calls":[
			{"id":"call_1","type":"function","function":{"name":"web_search","arguments":"{\"query\":\"zapagi.com\",\"num_results\":5}"}}
		]}}]}`)
	defer srv.Close()

	svc := newTestService(t, srv.URL)
	result, err := svc.Generate(context.Background(), []Message{UserMessage("check zapagi.com")}, []ToolDescriptor{
		{Name: "web_search", Description: "search", Parameters: `{"type":"object"}`},
	})
	require.NoError(t, err)

	require.NotNil(t, result.ToolCall)
	assert.Equal(t, "call_1", result.ToolCall.ID)
	assert.Equal(t, "web_search", result.ToolCall.Name)
	assert.Equal(t, "zapagi.com", result.ToolCall.Arguments["query"])
	assert.Equal(t, float64(5), result.ToolCall.Arguments["num_results"])

	// Tool decisions run at a deterministic temperature.
	assert.InDelta(t, 0.1, gotReq.Temperature, 0.001)
	require.Len(t, gotReq.Tools, 1)
	assert.Equal(t, "web_search", gotReq.Tools[0].Function.Name)
}

func TestGenerateEmptyChoices(t *testing.T) {
	srv := newCompletionServer(t, nil, `{"choices":[]}`)
	defer srv.Close()

	svc := newTestService(t, srv.URL)
	_, err := svc.Generate(context.Background(), []Message{UserMessage("hi")}, nil)
	assert.Error(t, err)
}

func TestGenerateServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	svc := newTestService(t, srv.URL)
	_, err := svc.Generate(context.Background(), []Message{UserMessage("hi")}, nil)
	assert.Error(t, err)
}

func TestGenerateStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		w.Header().Set("Content-Type", "text/event-stream")
		for _, delta := range []string{"Hello ", "world."} {
			fmt.Fprintf(w, `data: {"choices":[{"delta":{"content":%q}}]}`+"\n\n", delta)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	svc := newTestService(t, srv.URL)
	contentCh, errCh := svc.GenerateStream(context.Background(), []Message{UserMessage("hi")})

	var chunks []string
	for chunk := range contentCh {
		chunks = append(chunks, chunk)
	}
	require.NoError(t, <-errCh)
	assert.Equal(t, []string{"Hello ", "world."}, chunks)
}
