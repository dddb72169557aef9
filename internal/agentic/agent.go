// Package agentic answers free-form queries by routing each one either to
// an event search over a vector index or to a conversational completion.
package agentic

import (
	"context"

	"github.com/bakkerme/polaris/internal/config"
	"github.com/bakkerme/polaris/internal/llm"
)

type Config struct {
	Model string
	TopK  int
}

type Agent struct {
	decider  *Decider
	answerer *Answerer
	index    *Index
	topK     int
}

// New builds an agent. A nil index answers every event search with no hits.
func New(client llm.Client, index *Index, cfg Config) *Agent {
	topK := cfg.TopK
	if topK <= 0 {
		topK = config.DefaultAgenticTopK
	}
	return &Agent{
		decider:  NewDecider(client, cfg.Model),
		answerer: NewAnswerer(client, cfg.Model),
		index:    index,
		topK:     topK,
	}
}

// Respond returns the formatted reply for query. Only a failed event search
// is an error; completion failures degrade to fallback text.
func (a *Agent) Respond(ctx context.Context, query string) (string, error) {
	decision := a.decider.Decide(ctx, query)
	if decision.Action == ActionRAGSearch {
		events, err := a.index.Search(ctx, decision.Query, a.topK)
		if err != nil {
			return "", err
		}
		return formatEvents(events), nil
	}
	return formatAnswer(a.answerer.Answer(ctx, decision.Query)), nil
}
