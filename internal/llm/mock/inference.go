package mock

import (
	"context"
	"sync"

	"github.com/bakkerme/polaris/internal/llm"
)

// Embedder answers each text with Vectors[text], or Err when set. Texts
// without a vector get Default.
type Embedder struct {
	Vectors map[string][]float32
	Default []float32
	Err     error
	Texts   []string

	mu sync.Mutex
}

func (e *Embedder) Embed(ctx context.Context, model string, texts []string) ([][]float32, error) {
	_ = ctx
	_ = model
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Texts = append(e.Texts, texts...)
	if e.Err != nil {
		return nil, e.Err
	}
	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		if v, ok := e.Vectors[text]; ok {
			out = append(out, v)
			continue
		}
		out = append(out, e.Default)
	}
	return out, nil
}

// Classifier answers each text with Labels[text], or with Errs[text] when set.
type Classifier struct {
	Labels map[string][]llm.Label
	Errs   map[string]error
	Texts  []string

	mu sync.Mutex
}

func (c *Classifier) Classify(ctx context.Context, model string, text string) ([]llm.Label, error) {
	_ = ctx
	_ = model
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Texts = append(c.Texts, text)
	if err := c.Errs[text]; err != nil {
		return nil, err
	}
	return c.Labels[text], nil
}
