package v1

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Study-Buddy-University/study-buddy-backend/store"
)

type documentPayload struct {
	ID        int32  `json:"id"`
	ProjectID int32  `json:"project_id"`
	Filename  string `json:"filename"`
	FileType  string `json:"file_type"`
	Content   string `json:"content"`
	CreatedTs int64  `json:"created_ts"`
}

func convertDocumentPayload(d *store.Document) *documentPayload {
	return &documentPayload{
		ID:        d.ID,
		ProjectID: d.ProjectID,
		Filename:  d.Filename,
		FileType:  d.FileType,
		Content:   d.Content,
		CreatedTs: d.CreatedTs,
	}
}

// listProjectDocuments lists the documents of one project, newest first.
func (s *APIV1Service) listProjectDocuments(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid project id")
	}
	projectID := int32(id)

	documents, err := s.Store.ListDocuments(c.Request().Context(), &store.FindDocument{
		ProjectID: &projectID,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list documents")
	}

	payload := make([]*documentPayload, 0, len(documents))
	for _, document := range documents {
		payload = append(payload, convertDocumentPayload(document))
	}
	return c.JSON(http.StatusOK, payload)
}
