// Package agent implements the agentic tool-calling loop that drives a chat
// turn: classify the query, optionally force a web search for URL-shaped
// input, then iterate model call / tool call rounds until the model answers
// with text or the iteration cap trips.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Study-Buddy-University/study-buddy-backend/ai/classify"
	"github.com/Study-Buddy-University/study-buddy-backend/ai/core/llm"
	"github.com/Study-Buddy-University/study-buddy-backend/ai/guard"
	"github.com/Study-Buddy-University/study-buddy-backend/ai/metrics"
	"github.com/Study-Buddy-University/study-buddy-backend/ai/tools"
	"github.com/Study-Buddy-University/study-buddy-backend/internal/strutil"
)

const (
	// maxToolIterations is the circuit breaker against runaway tool cycles.
	maxToolIterations = 5
	// resultDisplayLen truncates tool results in status events. The full
	// result still goes into the prompt.
	resultDisplayLen = 200
	// forcedSearchResults is the result count requested by a forced search.
	forcedSearchResults = 5
)

// apologyMessage is returned when the iteration cap is reached without a
// text answer. Exhaustion is a defined fallback, not an error.
const apologyMessage = "I apologize, but I reached the maximum number of steps while processing your request. Please try rephrasing your question."

const webSearchToolName = "web_search"

// Request carries the inputs of one loop invocation. History holds prior
// turns oldest first; DocumentContext is the retrieval gateway's context
// block (may be empty); SystemPrompt is the project-specific instruction
// string, not the composed system prompt.
type Request struct {
	ProjectID       int32
	Message         string
	History         []llm.Message
	DocumentContext string
	SystemPrompt    string
	ProjectName     string
	EnabledTools    []string
}

// SearchResultsHook observes successful web search invocations so callers can
// persist the structured hits. It must not block; failures stay on the hook's
// side of the fence.
type SearchResultsHook func(projectID int32, query string, results []tools.SearchResult)

// Config configures an Engine.
type Config struct {
	LLM      llm.Service
	Registry *tools.Registry
	Metrics  *metrics.Exporter

	// MaxIterations overrides the default iteration cap when > 0.
	MaxIterations int

	// OnSearchResults, when set, receives the structured hits of every
	// successful web search.
	OnSearchResults SearchResultsHook

	// Now overrides the clock used for the current-date prompt injection.
	Now func() time.Time
}

// Engine drives the iterative model call / tool call cycle for one turn, in
// buffered and streaming variants.
type Engine struct {
	llm             llm.Service
	registry        *tools.Registry
	metrics         *metrics.Exporter
	maxIterations   int
	onSearchResults SearchResultsHook
	now             func() time.Time
}

// NewEngine creates a loop engine.
func NewEngine(cfg Config) *Engine {
	maxIterations := cfg.MaxIterations
	if maxIterations <= 0 {
		maxIterations = maxToolIterations
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{
		llm:             cfg.LLM,
		registry:        cfg.Registry,
		metrics:         cfg.Metrics,
		maxIterations:   maxIterations,
		onSearchResults: cfg.OnSearchResults,
		now:             now,
	}
}

// turnState is the per-invocation loop state. tools_used feeds hallucination
// detection; prompt accumulates tool results between iterations.
type turnState struct {
	prompt       string
	systemPrompt string
	toolsUsed    map[string]bool
	descriptors  []llm.ToolDescriptor
	forced       bool
}

// Run executes the buffered loop and returns the final answer text. Model
// provider failures surface as errors; tool failures never do.
func (e *Engine) Run(ctx context.Context, req *Request) (string, error) {
	state := e.prepare(ctx, req, nil)

	messages := func() []llm.Message {
		return llm.FormatMessages(state.systemPrompt, state.prompt, req.History)
	}

	// A successful forced search already answered the "which tool" question;
	// go straight to the final answer without tool schemas.
	if state.forced {
		result, err := e.llm.Generate(ctx, messages(), nil)
		if err != nil {
			return "", err
		}
		e.observeIterations(1)
		return e.screen(req.Message, result.Text, state.toolsUsed), nil
	}

	for iteration := 1; iteration <= e.maxIterations; iteration++ {
		slog.Info("agent: loop iteration", "iteration", iteration, "max", e.maxIterations)

		result, err := e.llm.Generate(ctx, messages(), state.descriptors)
		if err != nil {
			return "", err
		}

		if result.ToolCall != nil {
			e.handleToolCall(ctx, req, state, result.ToolCall, nil)
			continue
		}

		slog.Info("agent: final response generated", "iteration", iteration)
		e.observeIterations(iteration)
		return e.screen(req.Message, result.Text, state.toolsUsed), nil
	}

	slog.Warn("agent: iteration cap reached", "max", e.maxIterations)
	e.observeIterations(e.maxIterations)
	return apologyMessage, nil
}

// RunStream executes the streaming loop. Tool decisions use the non-streaming
// model entry point; only the final, tool-free answer is streamed. The
// returned channel is closed when the turn ends; a model failure yields a
// terminal error event instead of an error.
func (e *Engine) RunStream(ctx context.Context, req *Request) <-chan Event {
	out := make(chan Event, 16)

	go func() {
		defer close(out)

		emit := func(ev Event) bool {
			select {
			case out <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}

		state := e.prepare(ctx, req, emit)

		messages := func() []llm.Message {
			return llm.FormatMessages(state.systemPrompt, state.prompt, req.History)
		}

		if state.forced {
			slog.Info("agent: skipping tool loop after forced search")
			e.streamFinal(ctx, req, state, messages(), emit)
			e.observeIterations(1)
			return
		}

		for iteration := 1; iteration <= e.maxIterations; iteration++ {
			slog.Info("agent: loop iteration", "iteration", iteration, "max", e.maxIterations)

			result, err := e.llm.Generate(ctx, messages(), state.descriptors)
			if err != nil {
				slog.Error("agent: model call failed", "error", err)
				emit(errorEvent(err.Error()))
				return
			}

			if result.ToolCall != nil {
				if !e.handleToolCall(ctx, req, state, result.ToolCall, emit) {
					return
				}
				continue
			}

			// Text decision: stream a fresh tool-free call for the answer.
			slog.Info("agent: streaming final response", "iteration", iteration)
			e.streamFinal(ctx, req, state, messages(), emit)
			e.observeIterations(iteration)
			return
		}

		slog.Warn("agent: iteration cap reached", "max", e.maxIterations)
		e.observeIterations(e.maxIterations)
		emit(chunkEvent(apologyMessage))
	}()

	return out
}

// prepare classifies the message, runs the forced-search override when it
// applies, and assembles the initial prompt state. emit is nil in buffered
// mode; in streaming mode it receives the forced search's status events.
func (e *Engine) prepare(ctx context.Context, req *Request, emit func(Event) bool) *turnState {
	state := &turnState{
		systemPrompt: req.SystemPrompt,
		toolsUsed:    map[string]bool{},
		descriptors:  describeTools(e.registry.ByNames(req.EnabledTools)),
	}

	documentContext := req.DocumentContext

	queryType, requirement := classify.Classify(req.Message)
	slog.Info("agent: query classified",
		"query_type", queryType,
		"tool_requirement", requirement,
		"enabled_tools", req.EnabledTools,
	)

	if queryType == classify.QueryTypeURLLookup &&
		requirement == classify.ToolRequired &&
		containsString(req.EnabledTools, webSearchToolName) {
		target := classify.ExtractURLOrDomain(req.Message)
		slog.Info("agent: URL detected, forcing web search", "target", target)

		args := map[string]any{"query": target, "num_results": forcedSearchResults}
		if emit != nil && !emit(toolExecutionEvent(webSearchToolName, args)) {
			return state
		}

		result := e.registry.Execute(ctx, webSearchToolName, args)
		state.toolsUsed[webSearchToolName] = true
		e.countToolCall(webSearchToolName, result.Success)

		if result.Success {
			state.forced = true
			if emit != nil {
				emit(toolResultEvent(webSearchToolName, "success", display(result.Result)))
			}
			documentContext = fmt.Sprintf(
				"\n\n=== WEB SEARCH RESULTS FOR %s ===\n%s\n=== END SEARCH RESULTS ===\n",
				target, result.Result,
			) + documentContext
			e.notifySearchResults(req.ProjectID, target, result.Metadata)

			instruction := forcedSearchInstruction(target)
			if state.systemPrompt != "" {
				state.systemPrompt += "\n\n" + instruction
			} else {
				state.systemPrompt = instruction
			}
		} else {
			slog.Warn("agent: forced search failed, continuing without results", "error", result.Error)
			if emit != nil {
				emit(toolResultEvent(webSearchToolName, "error", result.Error))
			}
		}
	}

	currentDate := e.now().Format("January 2, 2006")
	state.systemPrompt = BuildSystemPrompt(currentDate, state.systemPrompt, req.EnabledTools, req.ProjectName)
	state.prompt = buildUserContent(req.Message, documentContext)
	return state
}

// handleToolCall dispatches one tool call and folds its result into the
// prompt. Returns false only when a streaming emit failed (context gone).
func (e *Engine) handleToolCall(ctx context.Context, req *Request, state *turnState, call *llm.ToolCall, emit func(Event) bool) bool {
	if call.ID == "" {
		call.ID = "call_" + call.Name
	}
	slog.Info("agent: tool call", "tool", call.Name, "call_id", call.ID, "args", call.Arguments)
	state.toolsUsed[call.Name] = true

	if emit != nil && !emit(toolExecutionEvent(call.Name, call.Arguments)) {
		return false
	}

	result := e.registry.Execute(ctx, call.Name, call.Arguments)
	e.countToolCall(call.Name, result.Success)

	var resultText, status string
	if result.Success {
		resultText = result.Result
		status = "success"
		if call.Name == webSearchToolName {
			query, _ := result.Metadata["query"].(string)
			e.notifySearchResults(req.ProjectID, query, result.Metadata)
		}
	} else {
		resultText = fmt.Sprintf("Error executing %s: %s", call.Name, result.Error)
		status = "error"
		slog.Error("agent: tool failed", "tool", call.Name, "error", result.Error)
	}

	if emit != nil && !emit(toolResultEvent(call.Name, status, display(resultText))) {
		return false
	}

	// Web search continuations compel markdown citations; everything else
	// gets the generic continuation.
	if call.Name == webSearchToolName {
		state.prompt += fmt.Sprintf(
			"\n\nTool %s returned: %s\n\nIMPORTANT: In your response, cite the URLs from the search results. "+
				"Format each source as a markdown link: [Title](URL). "+
				"Provide a comprehensive answer with clickable source links.",
			call.Name, resultText,
		)
	} else {
		state.prompt += fmt.Sprintf(
			"\n\nTool %s returned: %s\n\nBased on this information, provide your response to the user:",
			call.Name, resultText,
		)
	}
	return true
}

// streamFinal streams the tool-free final answer and screens the accumulated
// text for hallucination risk afterwards.
func (e *Engine) streamFinal(ctx context.Context, req *Request, state *turnState, messages []llm.Message, emit func(Event) bool) {
	contentCh, errCh := e.llm.GenerateStream(ctx, messages)

	var full strings.Builder
	for chunk := range contentCh {
		full.WriteString(chunk)
		if !emit(chunkEvent(chunk)) {
			return
		}
	}
	if err := <-errCh; err != nil {
		slog.Error("agent: streaming failed", "error", err)
		emit(errorEvent(err.Error()))
		return
	}

	if warning := guard.DetectRisk(req.Message, full.String(), state.toolsUsed); warning != "" {
		slog.Warn("agent: hallucination risk detected")
		e.countWarning()
		emit(warningEvent(warning))
	}
}

// screen applies hallucination detection to a buffered answer.
func (e *Engine) screen(message, response string, toolsUsed map[string]bool) string {
	if warning := guard.DetectRisk(message, response, toolsUsed); warning != "" {
		slog.Warn("agent: hallucination risk detected")
		e.countWarning()
		return guard.PrependWarning(response, warning)
	}
	return response
}

// notifySearchResults forwards structured web search hits to the configured
// hook, if any.
func (e *Engine) notifySearchResults(projectID int32, query string, metadata map[string]any) {
	if e.onSearchResults == nil || metadata == nil {
		return
	}
	hits, ok := metadata["results"].([]tools.SearchResult)
	if !ok || len(hits) == 0 {
		return
	}
	e.onSearchResults(projectID, query, hits)
}

func (e *Engine) countToolCall(name string, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	e.metrics.CountToolCall(name, status)
}

func (e *Engine) countWarning() {
	e.metrics.CountWarning()
}

func (e *Engine) observeIterations(n int) {
	e.metrics.ObserveLoopIterations(n)
}

// buildUserContent prefixes the question with the retrieval context block.
func buildUserContent(message, documentContext string) string {
	if documentContext == "" {
		return message
	}
	return fmt.Sprintf("Context from uploaded documents:\n%s\n\n%s", documentContext, message)
}

// describeTools converts registered tools into function schemas for the model.
func describeTools(enabled []tools.Tool) []llm.ToolDescriptor {
	if len(enabled) == 0 {
		return nil
	}
	out := make([]llm.ToolDescriptor, 0, len(enabled))
	for _, t := range enabled {
		params, err := json.Marshal(t.Parameters())
		if err != nil {
			params = []byte("{}")
		}
		out = append(out, llm.ToolDescriptor{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  string(params),
		})
	}
	return out
}

func display(s string) string {
	return strutil.Prefix(s, resultDisplayLen)
}

func containsString(list []string, target string) bool {
	for _, s := range list {
		if s == target {
			return true
		}
	}
	return false
}
