package llm

import "context"

type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// Valid reports whether r is one of the roles accepted upstream.
func (r MessageRole) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	default:
		return false
	}
}

type MessagePartType string

const (
	MessagePartText     MessagePartType = "text"
	MessagePartImageURL MessagePartType = "image_url"
)

// MessagePart is one element of a multimodal message. Text parts carry Text,
// image parts carry ImageURL (an http(s) or data: URL).
type MessagePart struct {
	Type     MessagePartType `json:"type"`
	Text     string          `json:"text,omitempty"`
	ImageURL string          `json:"image_url,omitempty"`
}

// Message is a single chat turn. When Parts is non-empty it takes precedence
// over Content.
type Message struct {
	Role    MessageRole   `json:"role"`
	Content string        `json:"content,omitempty"`
	Parts   []MessagePart `json:"parts,omitempty"`
}

// HistoryTurn is the text-only wire shape of a prior conversation turn, as
// sent by chat clients alongside a new prompt.
type HistoryTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatRequest struct {
	Model       string
	Messages    []Message
	Temperature float64
	MaxTokens   int
	// JSONMode asks the provider for a single JSON object as the answer.
	JSONMode bool
}

type ChatResponse struct {
	Content string
}

type Client interface {
	ChatCompletion(ctx context.Context, request ChatRequest) (ChatResponse, error)
}

// Embedder turns texts into dense vectors, one per input, in input order.
type Embedder interface {
	Embed(ctx context.Context, model string, texts []string) ([][]float32, error)
}

// Label is one class assigned by a text classification model.
type Label struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Classifier assigns labels to a single text, highest score first.
type Classifier interface {
	Classify(ctx context.Context, model string, text string) ([]Label, error)
}
