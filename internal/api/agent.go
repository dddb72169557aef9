package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/bakkerme/polaris/internal/core"
)

const (
	missingQueryMessage = "Invalid request. 'query' field is missing."
	emptyQueryMessage   = "Invalid request. 'query' cannot be empty."
	agentFailureMessage = "An internal server error occurred."
	bodyTooLargeMessage = "Request body is too large."
)

type agentChatResponse struct {
	Response string `json:"response"`
}

func (s *Server) handleAgentChat(c echo.Context) error {
	ctx := c.Request().Context()
	logger := core.LoggerFromContext(ctx)

	fields, err := s.readJSONObject(c)
	if err != nil {
		logger.Warn("failed to read agent query", "error", err)
		return badBody(c, err, missingQueryMessage)
	}
	raw, ok := fields["query"]
	if !ok {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: missingQueryMessage})
	}
	var query string
	if err := json.Unmarshal(raw, &query); err != nil || query == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: emptyQueryMessage})
	}

	logger.Info("agent query received", "query", query)
	answer, err := s.agent.Respond(ctx, query)
	if err != nil {
		logger.Error("agent workflow failed", "error", err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: agentFailureMessage})
	}
	return c.JSON(http.StatusOK, agentChatResponse{Response: answer})
}

// readJSONObject decodes a bounded JSON object body into its raw fields.
func (s *Server) readJSONObject(c echo.Context) (map[string]json.RawMessage, error) {
	req := c.Request()
	body, err := io.ReadAll(http.MaxBytesReader(c.Response(), req.Body, s.config.MaxUploadBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("decode body: %w", err)
	}
	if fields == nil {
		return nil, errors.New("body is not a JSON object")
	}
	return fields, nil
}

// badBody answers an unreadable body with 413 when it was too large and 400
// with message otherwise.
func badBody(c echo.Context, err error, message string) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return c.JSON(http.StatusRequestEntityTooLarge, errorResponse{Error: bodyTooLargeMessage})
	}
	return c.JSON(http.StatusBadRequest, errorResponse{Error: message})
}
