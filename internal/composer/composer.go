package composer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"sync"

	"github.com/bakkerme/polaris/internal/llm"
)

const (
	// NoResponseText is shown when the relay answered without any text.
	NoResponseText = "No response text"

	fieldPrompt      = "prompt"
	fieldHistory     = "history"
	fieldAttachments = "attachments"

	maxErrorBody = 4 << 10
)

var (
	ErrNothingToSend = errors.New("nothing to send")
	ErrBusy          = errors.New("a message is already being sent")
	ErrRequestFailed = errors.New("chat request failed")
)

// ConnectionError is the notification shown when a send fails.
var ConnectionError = Notification{
	Title:       "Connection Error",
	Description: "Could not connect. Ensure Backend is running and 'HF_MODEL' supports vision.",
}

type Notification struct {
	Title       string
	Description string
}

// Notifier surfaces transient, user-visible messages.
type Notifier interface {
	Notify(Notification)
}

type NotifierFunc func(Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }

type Config struct {
	// URL is the relay chat endpoint, e.g. http://localhost:5000/api/llm/chat.
	URL        string
	HTTPClient *http.Client
	Notifier   Notifier
	Logger     *slog.Logger
}

// Composer turns prompts and attachments into relay submissions and keeps the
// visible transcript. At most one send is in flight at a time.
type Composer struct {
	url        string
	httpClient *http.Client
	notifier   Notifier
	logger     *slog.Logger

	transcript Transcript
	pending    Pending

	mu   sync.Mutex
	busy bool
}

func New(cfg Config) *Composer {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	if cfg.Notifier == nil {
		cfg.Notifier = NotifierFunc(func(Notification) {})
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Composer{
		url:        cfg.URL,
		httpClient: cfg.HTTPClient,
		notifier:   cfg.Notifier,
		logger:     cfg.Logger,
	}
}

func (c *Composer) Transcript() *Transcript { return &c.transcript }

func (c *Composer) Pending() *Pending { return &c.pending }

func (c *Composer) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

// Submit sends prompt together with the pending attachments. The pending list
// is released only when the send succeeds.
func (c *Composer) Submit(ctx context.Context, prompt string) (Turn, error) {
	turn, err := c.Send(ctx, prompt, c.pending.Attachments())
	if err == nil {
		c.pending.Clear()
	}
	return turn, err
}

// Send posts one message to the relay and returns the assistant turn.
//
// An empty prompt without attachments, or a call while another send is in
// flight, is a no-op. Otherwise the user turn is appended before the request
// is made and stays in the transcript whatever the outcome; the assistant turn
// is appended only on success.
func (c *Composer) Send(ctx context.Context, prompt string, attachments []Attachment) (Turn, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" && len(attachments) == 0 {
		return Turn{}, ErrNothingToSend
	}
	if !c.acquire() {
		return Turn{}, ErrBusy
	}
	defer c.release()

	history := c.transcript.History()
	c.transcript.Append(userTurn(prompt, attachments))

	answer, err := c.post(ctx, prompt, history, attachments)
	if err != nil {
		c.logger.Error("chat request failed", "error", err)
		c.notifier.Notify(ConnectionError)
		return Turn{}, err
	}

	turn := Turn{Role: RoleAssistant, Content: answer}
	c.transcript.Append(turn)
	return turn, nil
}

func (c *Composer) acquire() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busy {
		return false
	}
	c.busy = true
	return true
}

func (c *Composer) release() {
	c.mu.Lock()
	c.busy = false
	c.mu.Unlock()
}

func userTurn(prompt string, attachments []Attachment) Turn {
	turn := Turn{Role: RoleUser, Content: prompt}
	for _, att := range attachments {
		turn.Attachments = append(turn.Attachments, AttachmentRef{
			Kind:       att.Kind,
			Name:       att.Name,
			PreviewURL: att.PreviewURL,
		})
	}
	return turn
}

func (c *Composer) post(ctx context.Context, prompt string, history []llm.HistoryTurn, attachments []Attachment) (string, error) {
	body, contentType, err := encodeSubmission(prompt, history, attachments)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, body)
	if err != nil {
		return "", fmt.Errorf("%w: new request: %w", ErrRequestFailed, err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", fmt.Errorf("%w: server error: %s: %s", ErrRequestFailed, resp.Status, strings.TrimSpace(string(detail)))
	}

	var payload answerPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("%w: decode response: %w", ErrRequestFailed, err)
	}
	return c.extractAnswer(payload), nil
}

type answerPayload struct {
	Result string `json:"result"`
	Answer string `json:"answer"`
}

// extractAnswer prefers result, the relay's canonical field. answer is
// accepted from older relays and logged as a deviation.
func (c *Composer) extractAnswer(p answerPayload) string {
	switch {
	case p.Result != "":
		return p.Result
	case p.Answer != "":
		c.logger.Warn("relay answered without result field, using answer")
		return p.Answer
	default:
		c.logger.Warn("relay answered without any text")
		return NoResponseText
	}
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func encodeSubmission(prompt string, history []llm.HistoryTurn, attachments []Attachment) (*bytes.Buffer, string, error) {
	historyJSON, err := json.Marshal(history)
	if err != nil {
		return nil, "", fmt.Errorf("encode history: %w", err)
	}

	body := &bytes.Buffer{}
	mp := multipart.NewWriter(body)
	if err := mp.WriteField(fieldPrompt, prompt); err != nil {
		return nil, "", err
	}
	if err := mp.WriteField(fieldHistory, string(historyJSON)); err != nil {
		return nil, "", err
	}
	for _, att := range attachments {
		mimeType := att.MIMEType
		if mimeType == "" {
			mimeType = "application/octet-stream"
		}
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
			fieldAttachments, quoteEscaper.Replace(att.Name)))
		h.Set("Content-Type", mimeType)
		part, err := mp.CreatePart(h)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(att.Data); err != nil {
			return nil, "", err
		}
	}
	if err := mp.Close(); err != nil {
		return nil, "", err
	}
	return body, mp.FormDataContentType(), nil
}
