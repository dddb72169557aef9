package composer

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/gabriel-vasile/mimetype"
)

type AttachmentKind string

const (
	AttachmentImage AttachmentKind = "image"
	AttachmentFile  AttachmentKind = "file"
)

// Attachment is a file selected for the next message. PreviewURL is only set
// for images.
type Attachment struct {
	Kind       AttachmentKind
	Name       string
	MIMEType   string
	Data       []byte
	PreviewURL string
}

// Release drops the attachment's bytes and preview.
func (a *Attachment) Release() {
	a.Data = nil
	a.PreviewURL = ""
}

// NewAttachment classifies data by its content. Names ending in a known text
// extension keep a text MIME type even when sniffing only sees plain bytes.
func NewAttachment(name string, data []byte) Attachment {
	mt := detectMIME(name, data)
	att := Attachment{
		Kind:     AttachmentFile,
		Name:     filepath.Base(name),
		MIMEType: mt,
		Data:     data,
	}
	if strings.HasPrefix(mt, "image/") {
		att.Kind = AttachmentImage
		att.PreviewURL = "data:" + mt + ";base64," + base64.StdEncoding.EncodeToString(data)
	}
	return att
}

// LoadAttachment reads a local file into an Attachment.
func LoadAttachment(path string) (Attachment, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Attachment{}, fmt.Errorf("attach %s: %w", path, err)
	}
	if info.IsDir() {
		return Attachment{}, fmt.Errorf("attach %s: is a directory", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Attachment{}, fmt.Errorf("attach %s: %w", path, err)
	}
	return NewAttachment(path, data), nil
}

func detectMIME(name string, data []byte) string {
	detected := mimetype.Detect(data)
	// Sniffing cannot tell source code from prose; trust the extension for
	// anything that sniffs as generic text or binary.
	if detected.Is("text/plain") || detected.Is("application/octet-stream") {
		if mt, ok := extensionTypes[strings.ToLower(filepath.Ext(name))]; ok {
			return mt
		}
	}
	return detected.String()
}

var extensionTypes = map[string]string{
	".json": "application/json",
	".js":   "text/javascript",
	".mjs":  "text/javascript",
	".xml":  "text/xml",
	".html": "text/html",
	".csv":  "text/csv",
	".md":   "text/markdown",
	".go":   "text/x-go",
	".py":   "text/x-python",
	".ts":   "text/typescript",
	".yaml": "text/yaml",
	".yml":  "text/yaml",
}

// ErrNoSuchAttachment is returned when removing an index that is not pending.
var ErrNoSuchAttachment = errors.New("no such attachment")

// Pending holds the attachments chosen for the next message.
type Pending struct {
	mu    sync.Mutex
	items []Attachment
}

func (p *Pending) Add(atts ...Attachment) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.items = append(p.items, atts...)
}

// Remove releases and drops the attachment at index.
func (p *Pending) Remove(index int) (Attachment, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if index < 0 || index >= len(p.items) {
		return Attachment{}, fmt.Errorf("%w: %d", ErrNoSuchAttachment, index)
	}
	removed := p.items[index]
	p.items = slices.Delete(p.items, index, index+1)
	removed.Release()
	return removed, nil
}

// Clear releases every pending attachment.
func (p *Pending) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.items {
		p.items[i].Release()
	}
	p.items = nil
}

// Attachments returns a copy of the pending list in selection order.
func (p *Pending) Attachments() []Attachment {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Attachment(nil), p.items...)
}

func (p *Pending) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.items)
}
