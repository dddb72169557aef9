package relay

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/bakkerme/polaris/internal/llm"
)

// Upload is one attachment received with a chat submission. Bytes live only
// for the duration of the request.
type Upload struct {
	Filename string
	MIMEType string
	Data     []byte
}

// ImageDataURL encodes an image upload as an inline data URL.
func ImageDataURL(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// InlineFileText wraps decoded file content in delimiters naming the file, so
// the model can tell injected file content from the user's own prose.
func InlineFileText(filename string, data []byte) string {
	text := strings.ToValidUTF8(string(data), "�")
	return fmt.Sprintf("\n\n--- FILE CONTENT (%s) ---\n%s\n--- END FILE ---\n", filename, text)
}

// UserParts returns the content parts of the user turn: the prompt first, then
// one part per usable upload in upload order. Unsupported uploads are returned
// separately and contribute nothing.
func UserParts(prompt string, uploads []Upload) (parts []llm.MessagePart, dropped []Upload) {
	parts = make([]llm.MessagePart, 0, len(uploads)+1)
	parts = append(parts, llm.MessagePart{Type: llm.MessagePartText, Text: prompt})
	for _, upload := range uploads {
		switch Classify(upload.MIMEType) {
		case KindImage:
			parts = append(parts, llm.MessagePart{
				Type:     llm.MessagePartImageURL,
				ImageURL: ImageDataURL(upload.MIMEType, upload.Data),
			})
		case KindTextLike:
			parts = append(parts, llm.MessagePart{
				Type: llm.MessagePartText,
				Text: InlineFileText(upload.Filename, upload.Data),
			})
		default:
			dropped = append(dropped, upload)
		}
	}
	return parts, dropped
}

// BuildMessages orders the conversation as [system, ...history, user].
func BuildMessages(systemPrompt string, history []llm.Message, user llm.Message) []llm.Message {
	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: systemPrompt})
	messages = append(messages, history...)
	messages = append(messages, user)
	return messages
}
