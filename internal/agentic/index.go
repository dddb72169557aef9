package agentic

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/philippgille/chromem-go"

	"github.com/bakkerme/polaris/internal/core"
	"github.com/bakkerme/polaris/internal/llm"
)

// E5 embedding models expect these prefixes on indexed passages and queries.
const (
	passagePrefix = "passage: "
	queryPrefix   = "query: "
)

var ErrZeroEmbedding = errors.New("embedding is all zeros")

// Index is an in-memory vector index over events.
type Index struct {
	collection *chromem.Collection
	events     map[string]Event
}

// NewIndex embeds every usable event. Events without a title or description,
// and events whose embedding fails, are skipped with a warning.
func NewIndex(ctx context.Context, embedder llm.Embedder, model string, events []Event) (*Index, error) {
	logger := core.LoggerFromContext(ctx)

	db := chromem.NewDB()
	collection, err := db.CreateCollection("events", nil, embeddingFunc(embedder, model))
	if err != nil {
		return nil, fmt.Errorf("create events collection: %w", err)
	}

	ix := &Index{collection: collection, events: make(map[string]Event, len(events))}
	for i, event := range events {
		text, ok := event.passage()
		if !ok {
			logger.Warn("skipping event without title or description", "index", i)
			continue
		}
		id := strconv.Itoa(i)
		if err := collection.AddDocument(ctx, chromem.Document{ID: id, Content: passagePrefix + text}); err != nil {
			logger.Warn("skipping event, embedding failed", "index", i, "title", event.Title, "error", err)
			continue
		}
		ix.events[id] = event
	}
	logger.Info("event index ready", "indexed", len(ix.events), "submitted", len(events))
	return ix, nil
}

func embeddingFunc(embedder llm.Embedder, model string) chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		vectors, err := embedder.Embed(ctx, model, []string{text})
		if err != nil {
			return nil, err
		}
		if len(vectors) != 1 {
			return nil, fmt.Errorf("embed: %d vectors for one input", len(vectors))
		}
		for _, v := range vectors[0] {
			if v != 0 {
				return vectors[0], nil
			}
		}
		return nil, ErrZeroEmbedding
	}
}

func (ix *Index) Len() int {
	if ix == nil {
		return 0
	}
	return len(ix.events)
}

// Search returns up to topK events ordered by similarity to query.
func (ix *Index) Search(ctx context.Context, query string, topK int) ([]Event, error) {
	n := min(topK, ix.Len())
	if n <= 0 {
		return nil, nil
	}
	results, err := ix.collection.Query(ctx, queryPrefix+query, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("search events: %w", err)
	}
	logger := core.LoggerFromContext(ctx)
	events := make([]Event, 0, len(results))
	for _, result := range results {
		event := ix.events[result.ID]
		logger.Debug("event match", "title", event.Title, "similarity", result.Similarity)
		events = append(events, event)
	}
	return events, nil
}
