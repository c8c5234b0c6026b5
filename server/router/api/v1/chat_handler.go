package v1

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Study-Buddy-University/study-buddy-backend/ai/agent"
	"github.com/Study-Buddy-University/study-buddy-backend/server/service/chat"
	"github.com/Study-Buddy-University/study-buddy-backend/store"
)

type chatRequest struct {
	ProjectID      int32   `json:"project_id"`
	ConversationID *int32  `json:"conversation_id,omitempty"`
	Message        string  `json:"message"`
	DocumentIDs    []int32 `json:"document_ids,omitempty"`
}

type messagePayload struct {
	ID         int32  `json:"id"`
	Role       string `json:"role"`
	Content    string `json:"content"`
	TokenCount int32  `json:"token_count"`
	CreatedTs  int64  `json:"created_ts"`
}

type chatResponse struct {
	ConversationID  int32           `json:"conversation_id"`
	ConversationUID string          `json:"conversation_uid"`
	Message         *messagePayload `json:"message"`
	Response        *messagePayload `json:"response"`
}

func convertMessagePayload(m *store.Message) *messagePayload {
	if m == nil {
		return nil
	}
	return &messagePayload{
		ID:         m.ID,
		Role:       m.Role,
		Content:    m.Content,
		TokenCount: m.TokenCount,
		CreatedTs:  m.CreatedTs,
	}
}

func (s *APIV1Service) handleChat(c echo.Context) error {
	req := &chatRequest{}
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Message == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "message is required")
	}

	resp, err := s.Chat.Chat(c.Request().Context(), &chat.Request{
		ProjectID:      req.ProjectID,
		ConversationID: req.ConversationID,
		Message:        req.Message,
		DocumentIDs:    req.DocumentIDs,
	})
	if err != nil {
		slog.Error("chat request failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "chat failed")
	}

	return c.JSON(http.StatusOK, &chatResponse{
		ConversationID:  resp.ConversationID,
		ConversationUID: resp.ConversationUID,
		Message:         convertMessagePayload(resp.Message),
		Response:        convertMessagePayload(resp.Reply),
	})
}

// handleChatStream serves the streaming variant over SSE. Text fragments are
// framed as {"chunk": ...}; tool, warning and error events keep their
// structured shape; a final {"done": true} closes the turn.
func (s *APIV1Service) handleChatStream(c echo.Context) error {
	req := &chatRequest{}
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Message == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "message is required")
	}

	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "text/event-stream")
	resp.Header().Set("Cache-Control", "no-cache")
	resp.Header().Set("Connection", "keep-alive")
	resp.WriteHeader(http.StatusOK)

	writeEvent := func(payload any) error {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(resp, "data: %s\n\n", data); err != nil {
			return err
		}
		resp.Flush()
		return nil
	}

	result, err := s.Chat.ChatStream(c.Request().Context(), &chat.Request{
		ProjectID:      req.ProjectID,
		ConversationID: req.ConversationID,
		Message:        req.Message,
		DocumentIDs:    req.DocumentIDs,
	}, func(event agent.Event) error {
		if event.Type == agent.EventTypeChunk {
			return writeEvent(map[string]string{"chunk": event.Text})
		}
		return writeEvent(event)
	})
	if err != nil {
		slog.Error("chat stream failed", "error", err)
		// Headers are already written; report through the stream.
		_ = writeEvent(map[string]string{"type": "error", "text": "chat failed"})
		return nil
	}

	return writeEvent(map[string]any{"done": true, "conversation_id": result.ConversationID})
}
