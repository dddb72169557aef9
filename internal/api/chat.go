package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/bakkerme/polaris/internal/core"
	"github.com/bakkerme/polaris/internal/relay"
)

const (
	fieldPrompt      = "prompt"
	fieldHistory     = "history"
	fieldAttachments = "attachments"

	// UpstreamFailureMessage is the only upstream failure detail a caller sees.
	UpstreamFailureMessage = "Failed to get response from LLM via HF Router."
	invalidRequestMessage  = "Failed to read chat submission."
	tooLargeMessage        = "Chat submission is too large."
)

type chatResponse struct {
	Result string `json:"result"`
}

func (s *Server) handleChat(c echo.Context) error {
	ctx := c.Request().Context()
	logger := core.LoggerFromContext(ctx)

	sub, err := s.readSubmission(c)
	if err != nil {
		logger.Warn("failed to read chat submission", "error", err)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return c.JSON(http.StatusRequestEntityTooLarge, errorResponse{Error: tooLargeMessage})
		}
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: invalidRequestMessage})
	}

	answer, err := s.relay.Complete(ctx, sub)
	if err != nil {
		logger.Error("chat completion failed", "error", err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: UpstreamFailureMessage})
	}
	return c.JSON(http.StatusOK, chatResponse{Result: answer})
}

// readSubmission decodes multipart/form-data (the Composer's format), JSON
// bodies and urlencoded forms. Uploads are buffered in memory only.
func (s *Server) readSubmission(c echo.Context) (relay.Submission, error) {
	req := c.Request()
	req.Body = http.MaxBytesReader(c.Response(), req.Body, s.config.MaxUploadBytes)

	mediaType, _, err := mime.ParseMediaType(req.Header.Get(echo.HeaderContentType))
	if err != nil {
		mediaType = ""
	}
	switch mediaType {
	case echo.MIMEMultipartForm:
		return readMultipart(req)
	case echo.MIMEApplicationJSON:
		return readJSON(req)
	default:
		if err := req.ParseForm(); err != nil {
			return relay.Submission{}, fmt.Errorf("parse form: %w", err)
		}
		sub := relay.Submission{Prompt: req.PostFormValue(fieldPrompt)}
		if _, ok := req.PostForm[fieldHistory]; ok {
			sub.History = req.PostFormValue(fieldHistory)
		}
		return sub, nil
	}
}

// readMultipart walks the parts in order so attachments keep upload order.
// Unknown fields are ignored.
func readMultipart(req *http.Request) (relay.Submission, error) {
	reader, err := req.MultipartReader()
	if err != nil {
		return relay.Submission{}, fmt.Errorf("open multipart body: %w", err)
	}

	var sub relay.Submission
	for {
		part, err := reader.NextPart()
		// A clean end is a bare io.EOF; a truncated body wraps it.
		if err == io.EOF {
			return sub, nil
		}
		if err != nil {
			return relay.Submission{}, fmt.Errorf("read multipart part: %w", err)
		}

		data, err := io.ReadAll(part)
		_ = part.Close()
		if err != nil {
			return relay.Submission{}, fmt.Errorf("read part %q: %w", part.FormName(), err)
		}

		switch part.FormName() {
		case fieldPrompt:
			sub.Prompt = string(data)
		case fieldHistory:
			sub.History = string(data)
		case fieldAttachments:
			if part.FileName() == "" {
				continue
			}
			sub.Uploads = append(sub.Uploads, relay.Upload{
				Filename: part.FileName(),
				MIMEType: part.Header.Get(echo.HeaderContentType),
				Data:     data,
			})
		}
	}
}

type jsonSubmission struct {
	Prompt  string          `json:"prompt"`
	History json.RawMessage `json:"history"`
}

// readJSON accepts history either as a JSON-encoded string or as an inline
// array; both are handed to the relay undecoded beyond the first level.
func readJSON(req *http.Request) (relay.Submission, error) {
	var body jsonSubmission
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return relay.Submission{}, fmt.Errorf("decode json body: %w", err)
	}
	sub := relay.Submission{Prompt: body.Prompt}
	raw := strings.TrimSpace(string(body.History))
	if raw == "" || raw == "null" {
		return sub, nil
	}
	var history any
	if err := json.Unmarshal(body.History, &history); err != nil {
		return relay.Submission{}, fmt.Errorf("decode history: %w", err)
	}
	sub.History = history
	return sub, nil
}
