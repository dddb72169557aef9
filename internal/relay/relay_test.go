package relay

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/bakkerme/polaris/internal/llm"
	"github.com/bakkerme/polaris/internal/llm/mock"
)

func newTestRelay(client llm.Client) *Relay {
	return New(client, Config{Model: "vision-model", SystemPrompt: "SYSTEM"})
}

func TestNewAppliesDefaults(t *testing.T) {
	r := New(&mock.Client{}, Config{Model: "m"})
	if r.cfg.SystemPrompt != DefaultSystemPrompt {
		t.Errorf("expected default system prompt")
	}
	if r.cfg.Temperature != 0.7 || r.cfg.MaxTokens != 2048 {
		t.Errorf("unexpected defaults: %+v", r.cfg)
	}
}

func TestBuildRequestPromptOnly(t *testing.T) {
	r := newTestRelay(&mock.Client{})

	got := r.BuildRequest(context.Background(), Submission{Prompt: "hello"})
	want := llm.ChatRequest{
		Model: "vision-model",
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: "SYSTEM"},
			{Role: llm.RoleUser, Parts: []llm.MessagePart{{Type: llm.MessagePartText, Text: "hello"}}},
		},
		Temperature: 0.7,
		MaxTokens:   2048,
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v\nwant %+v", got, want)
	}
}

func TestBuildRequestWithImage(t *testing.T) {
	r := newTestRelay(&mock.Client{})
	image := []byte{0x89, 'P', 'N', 'G', 0x00, 0xff}

	got := r.BuildRequest(context.Background(), Submission{
		Prompt:  "describe this",
		Uploads: []Upload{{Filename: "photo.png", MIMEType: "image/png", Data: image}},
	})
	user := got.Messages[len(got.Messages)-1]
	want := []llm.MessagePart{
		{Type: llm.MessagePartText, Text: "describe this"},
		{Type: llm.MessagePartImageURL, ImageURL: "data:image/png;base64," + base64.StdEncoding.EncodeToString(image)},
	}
	if !reflect.DeepEqual(user.Parts, want) {
		t.Fatalf("got %+v want %+v", user.Parts, want)
	}
}

func TestImagePartDecodesToOriginalBytes(t *testing.T) {
	for _, mime := range []string{"image/png", "image/jpeg", "image/webp", "image/svg+xml"} {
		data := []byte("payload-for-" + mime)
		parts, dropped := UserParts("", []Upload{{Filename: "f", MIMEType: mime, Data: data}})
		if len(dropped) != 0 || len(parts) != 2 {
			t.Fatalf("%s: unexpected parts=%d dropped=%d", mime, len(parts), len(dropped))
		}
		prefix := "data:" + mime + ";base64,"
		url := parts[1].ImageURL
		if !strings.HasPrefix(url, prefix) {
			t.Fatalf("%s: url %q lacks prefix %q", mime, url, prefix)
		}
		decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(url, prefix))
		if err != nil {
			t.Fatalf("%s: decode: %v", mime, err)
		}
		if !bytes.Equal(decoded, data) {
			t.Fatalf("%s: round trip mismatch", mime)
		}
	}
}

func TestTextLikeUploadsAreInlinedWithDelimiters(t *testing.T) {
	uploads := []Upload{
		{Filename: "notes.txt", MIMEType: "text/plain", Data: []byte("line one\nline two")},
		{Filename: "data.json", MIMEType: "application/json", Data: []byte(`{"k":"v"}`)},
		{Filename: "app.js", MIMEType: "application/javascript", Data: []byte("console.log('é')")},
		{Filename: "feed.xml", MIMEType: "application/xml", Data: []byte("<a/>")},
	}
	parts, dropped := UserParts("look", uploads)
	if len(dropped) != 0 {
		t.Fatalf("expected nothing dropped, got %d", len(dropped))
	}
	if len(parts) != len(uploads)+1 {
		t.Fatalf("expected %d parts, got %d", len(uploads)+1, len(parts))
	}
	for i, upload := range uploads {
		part := parts[i+1]
		if part.Type != llm.MessagePartText {
			t.Fatalf("%s: expected text part, got %s", upload.Filename, part.Type)
		}
		want := "\n\n--- FILE CONTENT (" + upload.Filename + ") ---\n" + string(upload.Data) + "\n--- END FILE ---\n"
		if part.Text != want {
			t.Fatalf("%s: got %q want %q", upload.Filename, part.Text, want)
		}
	}
}

func TestInlineFileTextReplacesInvalidUTF8(t *testing.T) {
	got := InlineFileText("bin.txt", []byte{'a', 0xff, 'b'})
	if !strings.Contains(got, "a�b") {
		t.Fatalf("expected replacement character, got %q", got)
	}
}

func TestUnsupportedUploadsAreDroppedInOrder(t *testing.T) {
	r := newTestRelay(&mock.Client{})
	got := r.BuildRequest(context.Background(), Submission{
		Prompt: "mix",
		Uploads: []Upload{
			{Filename: "a.pdf", MIMEType: "application/pdf", Data: []byte("%PDF")},
			{Filename: "b.txt", MIMEType: "text/plain", Data: []byte("b")},
			{Filename: "c.zip", MIMEType: "application/zip", Data: []byte("PK")},
			{Filename: "d.gif", MIMEType: "image/gif", Data: []byte("GIF8")},
		},
	})
	parts := got.Messages[len(got.Messages)-1].Parts
	if len(parts) != 3 {
		t.Fatalf("expected 3 parts, got %d: %+v", len(parts), parts)
	}
	if !strings.Contains(parts[1].Text, "(b.txt)") {
		t.Fatalf("expected b.txt second, got %+v", parts[1])
	}
	if !strings.HasPrefix(parts[2].ImageURL, "data:image/gif;base64,") {
		t.Fatalf("expected gif third, got %+v", parts[2])
	}
}

func TestBuildRequestKeepsHistoryBetweenSystemAndUser(t *testing.T) {
	r := newTestRelay(&mock.Client{})
	got := r.BuildRequest(context.Background(), Submission{
		Prompt:  "and now?",
		History: `[{"role":"user","content":"first"},{"role":"assistant","content":"reply"}]`,
	})
	roles := make([]llm.MessageRole, 0, len(got.Messages))
	for _, m := range got.Messages {
		roles = append(roles, m.Role)
	}
	want := []llm.MessageRole{llm.RoleSystem, llm.RoleUser, llm.RoleAssistant, llm.RoleUser}
	if !reflect.DeepEqual(roles, want) {
		t.Fatalf("got roles %v want %v", roles, want)
	}
	if got.Messages[1].Content != "first" || got.Messages[2].Content != "reply" {
		t.Fatalf("history not preserved: %+v", got.Messages)
	}
}

func TestMalformedHistoryYieldsSystemAndUserOnly(t *testing.T) {
	client := &mock.Client{Responses: []llm.ChatResponse{{Content: "fine"}}}
	r := newTestRelay(client)

	answer, err := r.Complete(context.Background(), Submission{Prompt: "hi", History: "not json"})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if answer != "fine" {
		t.Fatalf("unexpected answer %q", answer)
	}
	call, ok := client.LastCall()
	if !ok {
		t.Fatal("expected upstream call")
	}
	if len(call.Messages) != 2 || call.Messages[0].Role != llm.RoleSystem || call.Messages[1].Role != llm.RoleUser {
		t.Fatalf("expected [system, user], got %+v", call.Messages)
	}
}

func TestCompleteUpstreamFailureIsOpaque(t *testing.T) {
	ctx, logs := captureLogs(t)
	client := &mock.Client{Err: errors.New("401 invalid token hf_secret")}
	r := newTestRelay(client)

	answer, err := r.Complete(ctx, Submission{Prompt: "hi"})
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
	if strings.Contains(err.Error(), "hf_secret") {
		t.Fatalf("upstream detail leaked into error: %v", err)
	}
	if answer != "" {
		t.Fatalf("expected no answer, got %q", answer)
	}
	if !strings.Contains(logs.String(), "hf_secret") {
		t.Fatalf("expected original error in server log, got %q", logs.String())
	}
	if len(client.Calls) != 1 {
		t.Fatalf("expected a single attempt, got %d", len(client.Calls))
	}
}
