package agentic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/bakkerme/polaris/internal/core"
	"github.com/bakkerme/polaris/internal/llm"
)

type Action string

const (
	ActionRAGSearch       Action = "RAG_SEARCH"
	ActionNaturalLanguage Action = "NATURAL_LANGUAGE"
)

// Decision routes one query. Query is the refined search terms for
// ActionRAGSearch and the original query otherwise.
type Decision struct {
	Action Action `json:"action"`
	Query  string `json:"query"`
}

const deciderPrompt = `You are an intent classification assistant. Your job is to analyze user queries and determine if they are:
1. RAG_SEARCH - Questions about events, schedules, locations, recommendations, or anything event-related
2. NATURAL_LANGUAGE - General conversation, greetings, factual questions not related to events

You MUST respond with ONLY a JSON object in this exact format:
{"action": "RAG_SEARCH", "query": "refined search terms"}
OR
{"action": "NATURAL_LANGUAGE", "query": "original user query"}

For RAG_SEARCH, extract and refine the key search terms. For NATURAL_LANGUAGE, keep the original query.

Examples:
User: "What events are happening in December?"
Response: {"action": "RAG_SEARCH", "query": "events December"}

User: "Hello, how are you?"
Response: {"action": "NATURAL_LANGUAGE", "query": "Hello, how are you?"}

User: "Find me a workshop on machine learning"
Response: {"action": "RAG_SEARCH", "query": "machine learning workshop"}`

const (
	deciderTemperature = 0.1
	deciderMaxTokens   = 150
)

var errInvalidDecision = errors.New("invalid decision")

// Decider classifies queries with a JSON-mode completion.
type Decider struct {
	client llm.Client
	model  string
}

func NewDecider(client llm.Client, model string) *Decider {
	return &Decider{client: client, model: model}
}

// Decide never fails: an upstream error or an unusable answer routes the
// original query to ActionNaturalLanguage.
func (d *Decider) Decide(ctx context.Context, query string) Decision {
	logger := core.LoggerFromContext(ctx)
	fallback := Decision{Action: ActionNaturalLanguage, Query: query}

	response, err := d.client.ChatCompletion(ctx, llm.ChatRequest{
		Model: d.model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: deciderPrompt},
			{Role: llm.RoleUser, Content: query},
		},
		Temperature: deciderTemperature,
		MaxTokens:   deciderMaxTokens,
		JSONMode:    true,
	})
	if err != nil {
		logger.Warn("decider completion failed, answering directly", "error", err)
		return fallback
	}

	decision, err := parseDecision(response.Content)
	if err != nil {
		logger.Warn("decider answer unusable, answering directly", "error", err, "raw", response.Content)
		return fallback
	}
	logger.Info("query routed", "action", decision.Action, "query", decision.Query)
	return decision
}

func parseDecision(raw string) (Decision, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &fields); err != nil {
		return Decision{}, fmt.Errorf("%w: %w", errInvalidDecision, err)
	}
	var decision Decision
	rawAction, hasAction := fields["action"]
	rawQuery, hasQuery := fields["query"]
	if !hasAction || !hasQuery {
		return Decision{}, fmt.Errorf("%w: missing required fields", errInvalidDecision)
	}
	if err := json.Unmarshal(rawAction, &decision.Action); err != nil {
		return Decision{}, fmt.Errorf("%w: action: %w", errInvalidDecision, err)
	}
	if err := json.Unmarshal(rawQuery, &decision.Query); err != nil {
		return Decision{}, fmt.Errorf("%w: query: %w", errInvalidDecision, err)
	}
	switch decision.Action {
	case ActionRAGSearch, ActionNaturalLanguage:
		return decision, nil
	default:
		return Decision{}, fmt.Errorf("%w: action %q", errInvalidDecision, decision.Action)
	}
}
