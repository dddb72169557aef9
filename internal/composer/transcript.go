package composer

import (
	"bytes"
	"fmt"
	"html"
	"io"
	"strings"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"

	"github.com/bakkerme/polaris/internal/llm"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// AttachmentRef is what the transcript remembers about a sent attachment.
type AttachmentRef struct {
	Kind       AttachmentKind
	Name       string
	PreviewURL string
}

type Turn struct {
	Role        Role
	Content     string
	Attachments []AttachmentRef
}

// Transcript is the visible conversation, in display order.
type Transcript struct {
	mu    sync.RWMutex
	turns []Turn
}

func (t *Transcript) Append(turn Turn) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.turns = append(t.turns, turn)
}

func (t *Transcript) Turns() []Turn {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]Turn(nil), t.turns...)
}

func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.turns)
}

func (t *Transcript) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.turns = nil
}

// History is the text-only view sent upstream. Attachments of earlier turns
// are never resent.
func (t *Transcript) History() []llm.HistoryTurn {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]llm.HistoryTurn, 0, len(t.turns))
	for _, turn := range t.turns {
		out = append(out, llm.HistoryTurn{Role: string(turn.Role), Content: turn.Content})
	}
	return out
}

// WriteText prints the transcript for a terminal.
func (t *Transcript) WriteText(w io.Writer) error {
	for _, turn := range t.Turns() {
		if _, err := io.WriteString(w, formatTurn(turn)); err != nil {
			return err
		}
	}
	return nil
}

func formatTurn(turn Turn) string {
	var b strings.Builder
	label := "you"
	if turn.Role == RoleAssistant {
		label = "polaris"
	}
	fmt.Fprintf(&b, "%s> %s\n", label, turn.Content)
	for _, att := range turn.Attachments {
		fmt.Fprintf(&b, "  [%s] %s\n", att.Kind, att.Name)
	}
	return b.String()
}

const htmlHead = `<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>Polaris transcript</title></head>
<body>
`

// WriteHTML renders the transcript as a standalone page. User turns are shown
// verbatim; assistant turns are rendered as GitHub-flavoured markdown.
func (t *Transcript) WriteHTML(w io.Writer) error {
	md := newMarkdown()
	var b bytes.Buffer
	b.WriteString(htmlHead)
	for _, turn := range t.Turns() {
		switch turn.Role {
		case RoleAssistant:
			b.WriteString(`<div class="turn assistant">`)
			if err := md.Convert([]byte(turn.Content), &b); err != nil {
				return fmt.Errorf("render assistant turn: %w", err)
			}
			b.WriteString("</div>\n")
		default:
			b.WriteString(`<div class="turn user"><p>`)
			b.WriteString(html.EscapeString(turn.Content))
			b.WriteString("</p>")
			for _, att := range turn.Attachments {
				if att.Kind == AttachmentImage && att.PreviewURL != "" {
					fmt.Fprintf(&b, `<img src="%s" alt="%s">`, html.EscapeString(att.PreviewURL), html.EscapeString(att.Name))
					continue
				}
				fmt.Fprintf(&b, `<span class="file">%s</span>`, html.EscapeString(att.Name))
			}
			b.WriteString("</div>\n")
		}
	}
	b.WriteString("</body>\n</html>\n")
	_, err := w.Write(b.Bytes())
	return err
}

func newMarkdown() goldmark.Markdown {
	return goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
	)
}
