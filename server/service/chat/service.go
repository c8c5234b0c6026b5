// Package chat implements the conversation/turn orchestrator: it wraps the
// loop engine with the persistence concerns that affect its observable
// behavior, message token accounting, auto-titling, and the running
// total-token counter.
package chat

import (
	"context"
	"log/slog"
	"time"

	"github.com/lithammer/shortuuid/v4"
	"github.com/pkg/errors"

	"github.com/Study-Buddy-University/study-buddy-backend/ai/agent"
	"github.com/Study-Buddy-University/study-buddy-backend/ai/core/llm"
	"github.com/Study-Buddy-University/study-buddy-backend/ai/metrics"
	"github.com/Study-Buddy-University/study-buddy-backend/ai/retrieval"
	"github.com/Study-Buddy-University/study-buddy-backend/ai/titlegen"
	"github.com/Study-Buddy-University/study-buddy-backend/internal/strutil"
	"github.com/Study-Buddy-University/study-buddy-backend/store"
)

const (
	// conversationHistoryLimit bounds the prior-turn window fed to the model.
	conversationHistoryLimit = 10
	// autoTitleFallbackLen is the title prefix length when AI titling fails.
	autoTitleFallbackLen = 50
)

// Request is one chat turn request.
type Request struct {
	ProjectID      int32
	ConversationID *int32
	Message        string
	DocumentIDs    []int32
}

// Response is the persisted outcome of a buffered chat turn.
type Response struct {
	ConversationID  int32
	ConversationUID string
	Message         *store.Message
	Reply           *store.Message
}

// Service orchestrates chat turns.
type Service struct {
	store   *store.Store
	engine  *agent.Engine
	gateway *retrieval.Gateway
	titles  *titlegen.Generator
	metrics *metrics.Exporter
	now     func() time.Time
}

// Config configures the chat service. Titles and Metrics are optional.
type Config struct {
	Store   *store.Store
	Engine  *agent.Engine
	Gateway *retrieval.Gateway
	Titles  *titlegen.Generator
	Metrics *metrics.Exporter
	Now     func() time.Time
}

// NewService creates a chat service.
func NewService(cfg Config) *Service {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		store:   cfg.Store,
		engine:  cfg.Engine,
		gateway: cfg.Gateway,
		titles:  cfg.Titles,
		metrics: cfg.Metrics,
		now:     now,
	}
}

// Chat runs one buffered turn: persist the user message, assemble context,
// run the loop, persist the reply, update counters. The user message is
// persisted before any model call so it survives downstream failures.
func (s *Service) Chat(ctx context.Context, req *Request) (*Response, error) {
	start := s.now()

	conversation, isNew, err := s.getOrCreateConversation(ctx, req)
	if err != nil {
		s.metrics.ObserveChat("buffered", "error", time.Since(start))
		return nil, err
	}

	userMessage, err := s.store.CreateMessage(ctx, &store.Message{
		ConversationID: conversation.ID,
		Role:           store.RoleUser,
		Content:        req.Message,
		TokenCount:     estimateTokens(req.Message),
		CreatedTs:      s.now().Unix(),
	})
	if err != nil {
		s.metrics.ObserveChat("buffered", "error", time.Since(start))
		return nil, errors.Wrap(err, "persist user message")
	}

	agentReq, err := s.buildAgentRequest(ctx, req, conversation, userMessage.ID)
	if err != nil {
		s.metrics.ObserveChat("buffered", "error", time.Since(start))
		return nil, err
	}

	answer, err := s.engine.Run(ctx, agentReq)
	if err != nil {
		s.metrics.ObserveChat("buffered", "error", time.Since(start))
		return nil, errors.Wrap(err, "run agent loop")
	}

	reply, err := s.finishTurn(ctx, conversation, isNew, req.Message, answer)
	if err != nil {
		s.metrics.ObserveChat("buffered", "error", time.Since(start))
		return nil, err
	}

	s.metrics.ObserveChat("buffered", "success", time.Since(start))
	return &Response{
		ConversationID:  conversation.ID,
		ConversationUID: conversation.UID,
		Message:         userMessage,
		Reply:           reply,
	}, nil
}

// ChatStream runs one streaming turn, forwarding every loop event to sink.
// The assistant message is persisted only when the stream finishes without a
// terminal error; the already-persisted user message stays either way.
func (s *Service) ChatStream(ctx context.Context, req *Request, sink func(agent.Event) error) (*Response, error) {
	start := s.now()

	conversation, isNew, err := s.getOrCreateConversation(ctx, req)
	if err != nil {
		s.metrics.ObserveChat("stream", "error", time.Since(start))
		return nil, err
	}

	userMessage, err := s.store.CreateMessage(ctx, &store.Message{
		ConversationID: conversation.ID,
		Role:           store.RoleUser,
		Content:        req.Message,
		TokenCount:     estimateTokens(req.Message),
		CreatedTs:      s.now().Unix(),
	})
	if err != nil {
		s.metrics.ObserveChat("stream", "error", time.Since(start))
		return nil, errors.Wrap(err, "persist user message")
	}

	agentReq, err := s.buildAgentRequest(ctx, req, conversation, userMessage.ID)
	if err != nil {
		s.metrics.ObserveChat("stream", "error", time.Since(start))
		return nil, err
	}

	var full []byte
	sawError := false
	for event := range s.engine.RunStream(ctx, agentReq) {
		if event.Type == agent.EventTypeChunk {
			full = append(full, event.Text...)
		}
		if event.Type == agent.EventTypeError {
			sawError = true
		}
		if err := sink(event); err != nil {
			s.metrics.ObserveChat("stream", "error", time.Since(start))
			return nil, errors.Wrap(err, "write stream event")
		}
	}

	if sawError {
		s.metrics.ObserveChat("stream", "error", time.Since(start))
		return &Response{
			ConversationID:  conversation.ID,
			ConversationUID: conversation.UID,
			Message:         userMessage,
		}, nil
	}

	reply, err := s.finishTurn(ctx, conversation, isNew, req.Message, string(full))
	if err != nil {
		s.metrics.ObserveChat("stream", "error", time.Since(start))
		return nil, err
	}

	s.metrics.ObserveChat("stream", "success", time.Since(start))
	return &Response{
		ConversationID:  conversation.ID,
		ConversationUID: conversation.UID,
		Message:         userMessage,
		Reply:           reply,
	}, nil
}

// getOrCreateConversation reuses an existing conversation when an id is given
// and found, otherwise creates a fresh one with a nil title. The returned
// flag reports whether the caller started the conversation without supplying
// an id; auto-titling is reserved for those turns, so a stale supplied id
// gets a new conversation but no generated title.
func (s *Service) getOrCreateConversation(ctx context.Context, req *Request) (*store.Conversation, bool, error) {
	if req.ConversationID != nil {
		conversation, err := s.store.GetConversation(ctx, *req.ConversationID)
		if err != nil {
			return nil, false, errors.Wrap(err, "get conversation")
		}
		if conversation != nil {
			return conversation, false, nil
		}
	}

	nowTs := s.now().Unix()
	conversation, err := s.store.CreateConversation(ctx, &store.Conversation{
		UID:       shortuuid.New(),
		ProjectID: req.ProjectID,
		CreatedTs: nowTs,
		UpdatedTs: nowTs,
	})
	if err != nil {
		return nil, false, errors.Wrap(err, "create conversation")
	}
	return conversation, req.ConversationID == nil, nil
}

// buildAgentRequest loads project configuration, the bounded history window
// and the document context for the loop engine.
func (s *Service) buildAgentRequest(ctx context.Context, req *Request, conversation *store.Conversation, currentMessageID int32) (*agent.Request, error) {
	project, err := s.store.GetProject(ctx, req.ProjectID)
	if err != nil {
		return nil, errors.Wrap(err, "get project")
	}

	history, err := s.recentHistory(ctx, conversation.ID, currentMessageID)
	if err != nil {
		return nil, err
	}

	documentContext := s.gateway.DocumentContext(ctx, req.ProjectID, req.Message, req.DocumentIDs)

	agentReq := &agent.Request{
		ProjectID:       req.ProjectID,
		Message:         req.Message,
		History:         history,
		DocumentContext: documentContext,
	}
	if project != nil {
		if project.SystemPrompt != nil {
			agentReq.SystemPrompt = *project.SystemPrompt
		}
		agentReq.ProjectName = project.Name
		agentReq.EnabledTools = project.Tools
	}
	return agentReq, nil
}

// recentHistory returns the last turns oldest first, excluding the current
// user message which goes into the prompt separately.
func (s *Service) recentHistory(ctx context.Context, conversationID, currentMessageID int32) ([]llm.Message, error) {
	messages, err := s.store.ListMessages(ctx, &store.FindMessage{
		ConversationID: &conversationID,
		Limit:          conversationHistoryLimit + 1,
		OrderDesc:      true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "list messages")
	}

	history := make([]llm.Message, 0, len(messages))
	for i := len(messages) - 1; i >= 0; i-- {
		m := messages[i]
		if m.ID == currentMessageID {
			continue
		}
		history = append(history, llm.Message{Role: m.Role, Content: m.Content})
	}
	if len(history) > conversationHistoryLimit {
		history = history[len(history)-conversationHistoryLimit:]
	}
	return history, nil
}

// finishTurn persists the assistant message, bumps the token counter, and
// kicks off best-effort auto-titling for fresh conversations.
func (s *Service) finishTurn(ctx context.Context, conversation *store.Conversation, isNew bool, userContent, answer string) (*store.Message, error) {
	reply, err := s.store.CreateMessage(ctx, &store.Message{
		ConversationID: conversation.ID,
		Role:           store.RoleAssistant,
		Content:        answer,
		TokenCount:     estimateTokens(answer),
		CreatedTs:      s.now().Unix(),
	})
	if err != nil {
		return nil, errors.Wrap(err, "persist assistant message")
	}

	totalTokens := conversation.TotalTokens + estimateTokens(userContent) + estimateTokens(answer)
	updatedTs := s.now().Unix()
	if _, err := s.store.UpdateConversation(ctx, &store.UpdateConversation{
		ID:          conversation.ID,
		TotalTokens: &totalTokens,
		UpdatedTs:   &updatedTs,
	}); err != nil {
		return nil, errors.Wrap(err, "update conversation tokens")
	}

	if isNew && conversation.Title == nil {
		s.autoTitle(ctx, conversation, userContent)
	}

	return reply, nil
}

// autoTitle sets the conversation title once, after the first exchange. AI
// titling falls back to a deterministic message prefix; failure never
// propagates to the turn.
func (s *Service) autoTitle(ctx context.Context, conversation *store.Conversation, firstMessage string) {
	title := ""
	if s.titles != nil {
		generated, err := s.titles.Generate(ctx, firstMessage)
		if err != nil {
			slog.Warn("chat: AI title generation failed, using fallback", "error", err)
		} else {
			title = generated
		}
	}
	if title == "" {
		title = strutil.Prefix(firstMessage, autoTitleFallbackLen)
	}

	updatedTs := s.now().Unix()
	if _, err := s.store.UpdateConversation(ctx, &store.UpdateConversation{
		ID:        conversation.ID,
		Title:     &title,
		UpdatedTs: &updatedTs,
	}); err != nil {
		slog.Warn("chat: failed to set conversation title", "error", err)
	}
}
