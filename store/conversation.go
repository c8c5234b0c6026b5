package store

// Conversation is an ordered sequence of messages within a project. Title is
// nil until the first exchange completes; TotalTokens only ever increases, by
// the estimated token counts of newly created messages.
type Conversation struct {
	ID          int32
	UID         string
	ProjectID   int32
	Title       *string
	TotalTokens int32
	CreatedTs   int64
	UpdatedTs   int64
}

type FindConversation struct {
	ID        *int32
	UID       *string
	ProjectID *int32
}

type UpdateConversation struct {
	ID          int32
	Title       *string
	TotalTokens *int32
	UpdatedTs   *int64
}

type DeleteConversation struct {
	ID int32
}
