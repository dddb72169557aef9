package composer

import (
	"reflect"
	"strings"
	"testing"

	"github.com/bakkerme/polaris/internal/llm"
)

func sampleTranscript() *Transcript {
	t := &Transcript{}
	t.Append(Turn{
		Role:    RoleUser,
		Content: "what is <b>this</b>?",
		Attachments: []AttachmentRef{
			{Kind: AttachmentImage, Name: "photo.png", PreviewURL: "data:image/png;base64,AQID"},
			{Kind: AttachmentFile, Name: "notes.txt"},
		},
	})
	t.Append(Turn{Role: RoleAssistant, Content: "A **cat**.\n\n| a | b |\n|---|---|\n| 1 | 2 |\n"})
	return t
}

func TestTranscriptHistoryIsTextOnly(t *testing.T) {
	got := sampleTranscript().History()
	want := []llm.HistoryTurn{
		{Role: "user", Content: "what is <b>this</b>?"},
		{Role: "assistant", Content: "A **cat**.\n\n| a | b |\n|---|---|\n| 1 | 2 |\n"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v want %+v", got, want)
	}
}

func TestTranscriptWriteText(t *testing.T) {
	var b strings.Builder
	if err := sampleTranscript().WriteText(&b); err != nil {
		t.Fatal(err)
	}
	out := b.String()
	for _, want := range []string{"you> what is <b>this</b>?\n", "  [image] photo.png\n", "  [file] notes.txt\n", "polaris> A **cat**."} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in %q", want, out)
		}
	}
}

func TestTranscriptWriteHTML(t *testing.T) {
	var b strings.Builder
	if err := sampleTranscript().WriteHTML(&b); err != nil {
		t.Fatal(err)
	}
	out := b.String()
	if strings.Contains(out, "<b>this</b>") {
		t.Error("user content must be escaped")
	}
	for _, want := range []string{
		"what is &lt;b&gt;this&lt;/b&gt;?",
		`<img src="data:image/png;base64,AQID" alt="photo.png">`,
		`<span class="file">notes.txt</span>`,
		"<strong>cat</strong>",
		"<table>",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in output", want)
		}
	}
}

func TestTranscriptReset(t *testing.T) {
	tr := sampleTranscript()
	tr.Reset()
	if tr.Len() != 0 || len(tr.History()) != 0 {
		t.Fatal("expected empty transcript")
	}
}
