package v1

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Study-Buddy-University/study-buddy-backend/store"
)

type createProjectRequest struct {
	Name         string   `json:"name"`
	SystemPrompt *string  `json:"system_prompt,omitempty"`
	Tools        []string `json:"tools,omitempty"`
}

type projectPayload struct {
	ID           int32    `json:"id"`
	Name         string   `json:"name"`
	SystemPrompt *string  `json:"system_prompt"`
	Tools        []string `json:"tools"`
	CreatedTs    int64    `json:"created_ts"`
}

func convertProjectPayload(p *store.Project) *projectPayload {
	return &projectPayload{
		ID:           p.ID,
		Name:         p.Name,
		SystemPrompt: p.SystemPrompt,
		Tools:        p.Tools,
		CreatedTs:    p.CreatedTs,
	}
}

func (s *APIV1Service) createProject(c echo.Context) error {
	req := &createProjectRequest{}
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name is required")
	}

	project, err := s.Store.CreateProject(c.Request().Context(), &store.Project{
		Name:         req.Name,
		SystemPrompt: req.SystemPrompt,
		Tools:        req.Tools,
		CreatedTs:    time.Now().Unix(),
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to create project")
	}
	return c.JSON(http.StatusOK, convertProjectPayload(project))
}

func (s *APIV1Service) listProjects(c echo.Context) error {
	projects, err := s.Store.ListProjects(c.Request().Context(), &store.FindProject{})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list projects")
	}

	payload := make([]*projectPayload, 0, len(projects))
	for _, project := range projects {
		payload = append(payload, convertProjectPayload(project))
	}
	return c.JSON(http.StatusOK, payload)
}
