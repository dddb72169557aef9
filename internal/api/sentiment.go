package api

import (
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/bakkerme/polaris/internal/core"
	"github.com/bakkerme/polaris/internal/sentiment"
)

const (
	invalidCommentsMessage = "Invalid input. Expected JSON: {'comments': [...]}"
	noCommentsMessage      = "No comments provided."
)

type commentsResponse struct {
	Comments []string `json:"comments"`
}

type analyzeResponse struct {
	Results []sentiment.Result `json:"results"`
}

func (s *Server) handleComments(c echo.Context) error {
	return c.JSON(http.StatusOK, commentsResponse{Comments: s.sentiment.Comments()})
}

func (s *Server) handleAnalyze(c echo.Context) error {
	ctx := c.Request().Context()
	logger := core.LoggerFromContext(ctx)

	fields, err := s.readJSONObject(c)
	if err != nil {
		logger.Warn("failed to read comments", "error", err)
		return badBody(c, err, invalidCommentsMessage)
	}
	raw, ok := fields["comments"]
	if !ok {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: invalidCommentsMessage})
	}
	var comments []string
	if err := json.Unmarshal(raw, &comments); err != nil || comments == nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: invalidCommentsMessage})
	}
	if len(comments) == 0 {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: noCommentsMessage})
	}

	logger.Info("analyzing comments", "count", len(comments))
	return c.JSON(http.StatusOK, analyzeResponse{Results: s.sentiment.Analyze(ctx, comments)})
}
