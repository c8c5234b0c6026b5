package store

// Project groups documents and conversations under one study subject. Its
// configuration is read-only input to a chat turn: a system prompt, the
// enabled tool names, and a display name used as the fallback subject line.
type Project struct {
	ID           int32
	Name         string
	SystemPrompt *string
	Tools        []string
	CreatedTs    int64
}

type FindProject struct {
	ID *int32
}
