package composer

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func TestNewAttachmentDetectsKind(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		data     []byte
		kind     AttachmentKind
		mimeType string
	}{
		{name: "png", file: "photo.png", data: pngHeader, kind: AttachmentImage, mimeType: "image/png"},
		{name: "png without extension", file: "photo", data: pngHeader, kind: AttachmentImage, mimeType: "image/png"},
		{name: "go source", file: "main.go", data: []byte("package main\n"), kind: AttachmentFile, mimeType: "text/x-go"},
		{name: "yaml", file: "cfg.YML", data: []byte("a: 1\n"), kind: AttachmentFile, mimeType: "text/yaml"},
		{name: "json", file: "data.json", data: []byte(`{"a":1}`), kind: AttachmentFile, mimeType: "application/json"},
		{name: "unknown binary", file: "blob.bin", data: []byte{0, 1, 2, 3}, kind: AttachmentFile, mimeType: "application/octet-stream"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			att := NewAttachment(tt.file, tt.data)
			if att.Kind != tt.kind {
				t.Errorf("kind = %s, want %s", att.Kind, tt.kind)
			}
			if att.MIMEType != tt.mimeType {
				t.Errorf("mime = %q, want %q", att.MIMEType, tt.mimeType)
			}
			if tt.kind == AttachmentImage {
				if !strings.HasPrefix(att.PreviewURL, "data:image/png;base64,") {
					t.Errorf("unexpected preview %q", att.PreviewURL)
				}
			} else if att.PreviewURL != "" {
				t.Errorf("files have no preview, got %q", att.PreviewURL)
			}
		})
	}
}

func TestNewAttachmentPlainText(t *testing.T) {
	att := NewAttachment("notes.txt", []byte("just words"))
	if !strings.HasPrefix(att.MIMEType, "text/plain") {
		t.Fatalf("expected text/plain, got %q", att.MIMEType)
	}
}

func TestLoadAttachment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "photo.png")
	if err := os.WriteFile(path, pngHeader, 0o600); err != nil {
		t.Fatal(err)
	}

	att, err := LoadAttachment(path)
	if err != nil {
		t.Fatalf("LoadAttachment: %v", err)
	}
	if att.Name != "photo.png" || att.Kind != AttachmentImage {
		t.Fatalf("unexpected attachment %+v", att)
	}

	if _, err := LoadAttachment(dir); err == nil {
		t.Fatal("expected error for directory")
	}
	if _, err := LoadAttachment(filepath.Join(dir, "missing")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not exist, got %v", err)
	}
}

func TestPendingRemoveAndClear(t *testing.T) {
	var p Pending
	p.Add(NewAttachment("a.png", pngHeader), NewAttachment("b.txt", []byte("b")), NewAttachment("c.txt", []byte("c")))

	removed, err := p.Remove(1)
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if removed.Name != "b.txt" || removed.Data != nil {
		t.Fatalf("removed attachment should be released, got %+v", removed)
	}
	names := []string{}
	for _, a := range p.Attachments() {
		names = append(names, a.Name)
	}
	if strings.Join(names, ",") != "a.png,c.txt" {
		t.Fatalf("unexpected order %v", names)
	}

	if _, err := p.Remove(5); !errors.Is(err, ErrNoSuchAttachment) {
		t.Fatalf("expected ErrNoSuchAttachment, got %v", err)
	}

	snapshot := p.Attachments()
	p.Clear()
	if p.Len() != 0 {
		t.Fatalf("expected empty pending list, got %d", p.Len())
	}
	if snapshot[0].PreviewURL == "" {
		t.Fatal("snapshots taken before Clear keep their own copy")
	}
}
