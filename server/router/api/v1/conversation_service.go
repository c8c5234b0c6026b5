package v1

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/ast"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/Study-Buddy-University/study-buddy-backend/store"
)

type conversationPayload struct {
	ID          int32   `json:"id"`
	UID         string  `json:"uid"`
	ProjectID   int32   `json:"project_id"`
	Title       *string `json:"title"`
	TotalTokens int32   `json:"total_tokens"`
	CreatedTs   int64   `json:"created_ts"`
	UpdatedTs   int64   `json:"updated_ts"`
}

func convertConversationPayload(c *store.Conversation) *conversationPayload {
	return &conversationPayload{
		ID:          c.ID,
		UID:         c.UID,
		ProjectID:   c.ProjectID,
		Title:       c.Title,
		TotalTokens: c.TotalTokens,
		CreatedTs:   c.CreatedTs,
		UpdatedTs:   c.UpdatedTs,
	}
}

// listConversations lists conversations, optionally restricted by a filter
// expression like `project_id == 1`.
func (s *APIV1Service) listConversations(c echo.Context) error {
	find := &store.FindConversation{}

	if filter := c.QueryParam("filter"); filter != "" {
		projectID, err := extractProjectIDFromFilter(filter)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid filter: "+err.Error())
		}
		if projectID != nil {
			find.ProjectID = projectID
		}
	}

	conversations, err := s.Store.ListConversations(c.Request().Context(), find)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list conversations")
	}

	payload := make([]*conversationPayload, 0, len(conversations))
	for _, conversation := range conversations {
		payload = append(payload, convertConversationPayload(conversation))
	}
	return c.JSON(http.StatusOK, payload)
}

func (s *APIV1Service) listConversationMessages(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid conversation id")
	}
	conversationID := int32(id)

	messages, err := s.Store.ListMessages(c.Request().Context(), &store.FindMessage{
		ConversationID: &conversationID,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list messages")
	}

	payload := make([]*messagePayload, 0, len(messages))
	for _, message := range messages {
		payload = append(payload, convertMessagePayload(message))
	}
	return c.JSON(http.StatusOK, payload)
}

func (s *APIV1Service) deleteConversation(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid conversation id")
	}

	if err := s.Store.DeleteConversation(c.Request().Context(), &store.DeleteConversation{ID: int32(id)}); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to delete conversation")
	}
	return c.NoContent(http.StatusNoContent)
}

// extractProjectIDFromFilter extracts the project id from a CEL filter
// expression. Supported format: "project_id == 1". Returns nil when the
// filter is empty.
func extractProjectIDFromFilter(filterStr string) (*int32, error) {
	filterStr = strings.TrimSpace(filterStr)
	if filterStr == "" {
		return nil, nil
	}

	env, err := cel.NewEnv(
		cel.Variable("project_id", cel.IntType),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create CEL environment")
	}

	celAST, issues := env.Compile(filterStr)
	if issues != nil && issues.Err() != nil {
		return nil, errors.Wrapf(issues.Err(), "invalid filter expression: %s", filterStr)
	}

	return extractProjectIDFromAST(celAST.NativeRep().Expr())
}

func extractProjectIDFromAST(expr ast.Expr) (*int32, error) {
	if expr == nil {
		return nil, errors.New("empty expression")
	}

	if expr.Kind() != ast.CallKind {
		return nil, errors.New("filter must be a comparison expression (e.g., project_id == 1)")
	}

	call := expr.AsCall()
	if call.FunctionName() != "_==_" {
		return nil, errors.Errorf("unsupported operator: %s (only '==' is supported)", call.FunctionName())
	}

	args := call.Args()
	if len(args) != 2 {
		return nil, errors.New("invalid comparison expression")
	}

	if id, ok := extractProjectIDFromComparison(args[0], args[1]); ok {
		return &id, nil
	}
	if id, ok := extractProjectIDFromComparison(args[1], args[0]); ok {
		return &id, nil
	}

	return nil, errors.New("filter must compare 'project_id' field with an integer constant")
}

func extractProjectIDFromComparison(left, right ast.Expr) (int32, bool) {
	if left.Kind() != ast.IdentKind || left.AsIdent() != "project_id" {
		return 0, false
	}
	if right.Kind() != ast.LiteralKind {
		return 0, false
	}
	value, ok := right.AsLiteral().Value().(int64)
	if !ok {
		return 0, false
	}
	return int32(value), true
}
