package relay

import (
	"context"
	"errors"
	"strings"

	"github.com/bakkerme/polaris/internal/core"
	"github.com/bakkerme/polaris/internal/llm"
)

const (
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 2048
)

// DefaultSystemPrompt is the first turn of every conversation.
const DefaultSystemPrompt = `You are a helpful AI assistant and a helper/mentor.
- If images are provided, analyze them based on the user's prompt.
- If code or text files are provided, use their content as context to answer.
- Be specific and answer every question (don't say i can't answer this question)
- use emojis, be genz`

// ErrUpstream is returned for every failed upstream completion. The cause is
// logged, not wrapped, so callers cannot leak it. The HTTP API answers it with
// api.UpstreamFailureMessage, never with this text.
var ErrUpstream = errors.New("failed to get response from LLM via HF Router")

type Config struct {
	Model        string
	SystemPrompt string
	Temperature  float64
	MaxTokens    int
}

// Submission is one decoded chat request from the Composer.
type Submission struct {
	Prompt string
	// History is the raw submitted history: a JSON string, an already decoded
	// array, or nil when absent.
	History any
	Uploads []Upload
}

// Relay turns submissions into a single upstream completion each. It holds
// no per-request state and is safe for concurrent use.
type Relay struct {
	client llm.Client
	cfg    Config
}

func New(client llm.Client, cfg Config) *Relay {
	if strings.TrimSpace(cfg.SystemPrompt) == "" {
		cfg.SystemPrompt = DefaultSystemPrompt
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = DefaultTemperature
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	return &Relay{client: client, cfg: cfg}
}

// BuildRequest assembles the upstream request for sub. The result depends
// only on sub and the relay configuration.
func (r *Relay) BuildRequest(ctx context.Context, sub Submission) llm.ChatRequest {
	logger := core.LoggerFromContext(ctx)

	history := ParseHistory(ctx, sub.History)
	parts, dropped := UserParts(sub.Prompt, sub.Uploads)
	for _, upload := range dropped {
		logger.Debug("ignoring unsupported attachment", "filename", upload.Filename, "mime_type", upload.MIMEType)
	}

	return llm.ChatRequest{
		Model:       r.cfg.Model,
		Messages:    BuildMessages(r.cfg.SystemPrompt, history, llm.Message{Role: llm.RoleUser, Parts: parts}),
		Temperature: r.cfg.Temperature,
		MaxTokens:   r.cfg.MaxTokens,
	}
}

// Complete performs exactly one upstream call and returns the first choice's
// text. Any failure is logged with its cause and reported as ErrUpstream.
func (r *Relay) Complete(ctx context.Context, sub Submission) (string, error) {
	logger := core.LoggerFromContext(ctx)
	request := r.BuildRequest(ctx, sub)

	logger.Info("llm chat completion",
		"model", request.Model,
		"messages", len(request.Messages),
		"attachments", len(sub.Uploads),
	)
	response, err := r.client.ChatCompletion(ctx, request)
	if err != nil {
		logger.Error("upstream completion failed", "model", request.Model, "error", err)
		return "", ErrUpstream
	}
	return response.Content, nil
}
