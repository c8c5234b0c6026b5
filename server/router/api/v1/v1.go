// Package v1 exposes the HTTP API: chat (buffered and SSE streaming),
// conversation and document listing and project management. Framing stays
// thin; all turn
// semantics live in the chat service.
package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Study-Buddy-University/study-buddy-backend/ai/metrics"
	"github.com/Study-Buddy-University/study-buddy-backend/internal/profile"
	"github.com/Study-Buddy-University/study-buddy-backend/server/service/chat"
	"github.com/Study-Buddy-University/study-buddy-backend/store"
)

type APIV1Service struct {
	Profile *profile.Profile
	Store   *store.Store
	Chat    *chat.Service
	Metrics *metrics.Exporter
}

func NewAPIV1Service(profile *profile.Profile, store *store.Store, chatService *chat.Service, exporter *metrics.Exporter) *APIV1Service {
	return &APIV1Service{
		Profile: profile,
		Store:   store,
		Chat:    chatService,
		Metrics: exporter,
	}
}

// Register wires the routes into the echo server.
func (s *APIV1Service) Register(e *echo.Echo) {
	e.GET("/healthz", s.health)
	e.GET("/metrics", echo.WrapHandler(s.Metrics.Handler()))

	g := e.Group("/api/v1")
	g.POST("/chat", s.handleChat)
	g.POST("/chat/stream", s.handleChatStream)

	g.POST("/projects", s.createProject)
	g.GET("/projects", s.listProjects)
	g.GET("/projects/:id/documents", s.listProjectDocuments)

	g.GET("/conversations", s.listConversations)
	g.GET("/conversations/:id/messages", s.listConversationMessages)
	g.DELETE("/conversations/:id", s.deleteConversation)
}

func (s *APIV1Service) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ok",
		"version": s.Profile.Version,
	})
}
