package store

// Message roles. Only user input and final assistant output are persisted;
// intermediate tool calls are ephemeral.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one stored turn. Content is set at creation and never mutated.
type Message struct {
	ID             int32
	ConversationID int32
	Role           string
	Content        string
	TokenCount     int32
	CreatedTs      int64
}

type FindMessage struct {
	ConversationID *int32

	// Limit bounds the result count when > 0.
	Limit int
	// OrderDesc returns newest messages first. Used for the bounded history
	// window; callers reverse for chronological order.
	OrderDesc bool
}
