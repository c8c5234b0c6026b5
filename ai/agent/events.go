package agent

// EventType identifies a streaming event.
type EventType string

const (
	// EventTypeChunk carries a text fragment of the final answer.
	EventTypeChunk EventType = "chunk"
	// EventTypeToolExecution announces a tool invocation about to run.
	EventTypeToolExecution EventType = "tool_execution"
	// EventTypeToolResult reports the outcome of a tool invocation.
	EventTypeToolResult EventType = "tool_result"
	// EventTypeWarning carries a hallucination disclaimer for the answer.
	EventTypeWarning EventType = "warning"
	// EventTypeError is terminal; the stream stops after emitting it.
	EventTypeError EventType = "error"
)

// Event is one item of the streaming loop's output sequence. Chunk events
// carry Text; tool events carry Tool, Status and either Args or Result;
// warning and error events carry Text.
type Event struct {
	Type   EventType      `json:"type"`
	Text   string         `json:"text,omitempty"`
	Tool   string         `json:"tool,omitempty"`
	Status string         `json:"status,omitempty"`
	Args   map[string]any `json:"args,omitempty"`
	Result string         `json:"result,omitempty"`
}

func chunkEvent(text string) Event {
	return Event{Type: EventTypeChunk, Text: text}
}

func toolExecutionEvent(tool string, args map[string]any) Event {
	return Event{Type: EventTypeToolExecution, Tool: tool, Status: "executing", Args: args}
}

func toolResultEvent(tool, status, result string) Event {
	return Event{Type: EventTypeToolResult, Tool: tool, Status: status, Result: result}
}

func warningEvent(text string) Event {
	return Event{Type: EventTypeWarning, Text: text}
}

func errorEvent(message string) Event {
	return Event{Type: EventTypeError, Text: message}
}
