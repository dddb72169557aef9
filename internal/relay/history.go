package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bakkerme/polaris/internal/core"
	"github.com/bakkerme/polaris/internal/llm"
)

// ParseHistory turns the submitted history into prior turns. It never fails:
// anything it cannot use degrades to an empty history and a warning log.
//
// Accepted inputs are a JSON array encoded as string or []byte,
// []llm.HistoryTurn, []llm.Message and []any of {role, content} objects.
// Content is either a string or an array of text/image_url parts. Entries with
// a role other than user or assistant are skipped, as are entries whose
// content carries nothing usable.
func ParseHistory(ctx context.Context, raw any) []llm.Message {
	logger := core.LoggerFromContext(ctx)

	var entries []any
	switch v := raw.(type) {
	case nil:
		return []llm.Message{}
	case string:
		return parseHistoryJSON(ctx, []byte(v))
	case []byte:
		return parseHistoryJSON(ctx, v)
	case []llm.HistoryTurn:
		for _, turn := range v {
			entries = append(entries, map[string]any{"role": turn.Role, "content": turn.Content})
		}
	case []llm.Message:
		return historyFromMessages(ctx, v)
	case []any:
		entries = v
	default:
		logger.Warn("history has unsupported shape, using empty history", "type", fmt.Sprintf("%T", raw))
		return []llm.Message{}
	}
	return historyFromEntries(ctx, entries)
}

func parseHistoryJSON(ctx context.Context, data []byte) []llm.Message {
	if strings.TrimSpace(string(data)) == "" {
		return []llm.Message{}
	}
	var decoded any
	if err := json.Unmarshal(data, &decoded); err != nil {
		core.LoggerFromContext(ctx).Warn("failed to parse history, using empty history", "error", err)
		return []llm.Message{}
	}
	entries, ok := decoded.([]any)
	if !ok {
		core.LoggerFromContext(ctx).Warn("history is not a JSON array, using empty history", "type", fmt.Sprintf("%T", decoded))
		return []llm.Message{}
	}
	return historyFromEntries(ctx, entries)
}

func historyFromMessages(ctx context.Context, messages []llm.Message) []llm.Message {
	out := make([]llm.Message, 0, len(messages))
	for _, msg := range messages {
		if msg.Role == llm.RoleUser || msg.Role == llm.RoleAssistant {
			out = append(out, msg)
		}
	}
	logSkipped(ctx, len(messages)-len(out), len(out))
	return out
}

func historyFromEntries(ctx context.Context, entries []any) []llm.Message {
	out := make([]llm.Message, 0, len(entries))
	for _, entry := range entries {
		if msg, ok := historyEntry(entry); ok {
			out = append(out, msg)
		}
	}
	logSkipped(ctx, len(entries)-len(out), len(out))
	return out
}

func historyEntry(entry any) (llm.Message, bool) {
	obj, ok := entry.(map[string]any)
	if !ok {
		return llm.Message{}, false
	}
	role, _ := obj["role"].(string)
	msg := llm.Message{Role: llm.MessageRole(role)}
	if msg.Role != llm.RoleUser && msg.Role != llm.RoleAssistant {
		return llm.Message{}, false
	}
	switch content := obj["content"].(type) {
	case string:
		msg.Content = content
	case []any:
		msg.Parts = historyParts(content)
		if len(msg.Parts) == 0 {
			return llm.Message{}, false
		}
	default:
		return llm.Message{}, false
	}
	return msg, true
}

// historyParts decodes OpenAI-style content parts. image_url may be an object
// with a url field or a bare string. Unknown part types are dropped.
func historyParts(raw []any) []llm.MessagePart {
	parts := make([]llm.MessagePart, 0, len(raw))
	for _, item := range raw {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		switch llm.MessagePartType(fmt.Sprint(obj["type"])) {
		case llm.MessagePartText:
			if text, ok := obj["text"].(string); ok {
				parts = append(parts, llm.MessagePart{Type: llm.MessagePartText, Text: text})
			}
		case llm.MessagePartImageURL:
			url, _ := obj["image_url"].(string)
			if ref, ok := obj["image_url"].(map[string]any); ok {
				url, _ = ref["url"].(string)
			}
			if url != "" {
				parts = append(parts, llm.MessagePart{Type: llm.MessagePartImageURL, ImageURL: url})
			}
		}
	}
	return parts
}

func logSkipped(ctx context.Context, skipped, kept int) {
	if skipped > 0 {
		core.LoggerFromContext(ctx).Warn("skipped unusable history entries", "skipped", skipped, "kept", kept)
	}
}
