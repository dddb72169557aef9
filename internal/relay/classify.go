package relay

import "strings"

// Kind is how an uploaded attachment is folded into the user turn.
type Kind int

const (
	KindUnsupported Kind = iota
	KindImage
	KindTextLike
)

func (k Kind) String() string {
	switch k {
	case KindImage:
		return "image"
	case KindTextLike:
		return "text"
	default:
		return "unsupported"
	}
}

// Classify maps a declared MIME type to a Kind. Rules are checked in order and
// the first match wins. Matching is case sensitive, as declared by the upload.
func Classify(mimeType string) Kind {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return KindImage
	case strings.HasPrefix(mimeType, "text/"),
		strings.Contains(mimeType, "json"),
		strings.Contains(mimeType, "javascript"),
		strings.Contains(mimeType, "xml"):
		return KindTextLike
	default:
		return KindUnsupported
	}
}
