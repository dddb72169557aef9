package agentic

import (
	"context"

	"github.com/bakkerme/polaris/internal/core"
	"github.com/bakkerme/polaris/internal/llm"
)

const answererPrompt = "You are a helpful, friendly assistant. Provide concise, accurate, and conversational responses to user queries. Be polite and helpful."

// AnswerUnavailable replaces the answer when the upstream call fails.
const AnswerUnavailable = "Sorry, I'm having trouble connecting right now."

const (
	answererTemperature = 0.7
	answererMaxTokens   = 200
)

// Answerer replies to general conversation.
type Answerer struct {
	client llm.Client
	model  string
}

func NewAnswerer(client llm.Client, model string) *Answerer {
	return &Answerer{client: client, model: model}
}

func (a *Answerer) Answer(ctx context.Context, query string) string {
	response, err := a.client.ChatCompletion(ctx, llm.ChatRequest{
		Model: a.model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: answererPrompt},
			{Role: llm.RoleUser, Content: query},
		},
		Temperature: answererTemperature,
		MaxTokens:   answererMaxTokens,
	})
	if err != nil {
		core.LoggerFromContext(ctx).Error("answer completion failed", "error", err)
		return AnswerUnavailable
	}
	return response.Content
}
