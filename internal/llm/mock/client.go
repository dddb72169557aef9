package mock

import (
	"context"
	"sync"

	"github.com/bakkerme/polaris/internal/llm"
)

// Client replays Responses in order, repeating the last one once the queue is
// down to a single entry. Every request is recorded in Calls.
type Client struct {
	Responses []llm.ChatResponse
	Err       error
	Calls     []llm.ChatRequest

	mu sync.Mutex
}

func (c *Client) ChatCompletion(ctx context.Context, request llm.ChatRequest) (llm.ChatResponse, error) {
	_ = ctx
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Calls = append(c.Calls, request)
	if c.Err != nil {
		return llm.ChatResponse{}, c.Err
	}
	if len(c.Responses) == 0 {
		return llm.ChatResponse{}, nil
	}
	response := c.Responses[0]
	if len(c.Responses) > 1 {
		c.Responses = c.Responses[1:]
	}
	return response, nil
}

// LastCall returns the most recent request and whether one was made.
func (c *Client) LastCall() (llm.ChatRequest, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.Calls) == 0 {
		return llm.ChatRequest{}, false
	}
	return c.Calls[len(c.Calls)-1], true
}
