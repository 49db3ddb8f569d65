package a2a

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// TextPart creates a text content part.
func TextPart(text string) Part {
	return Part{Type: PartTypeText, Text: text}
}

// DataPart creates a structured data content part.
func DataPart(data any) Part {
	return Part{Type: PartTypeData, Data: data}
}

// FilePart creates a binary reference content part.
func FilePart(name, mimeType, uri string) Part {
	return Part{Type: PartTypeFile, File: &FileRef{Name: name, MimeType: mimeType, URI: uri}}
}

func newMessage(role MessageRole, text string) Message {
	return Message{
		ID:        uuid.New().String(),
		Role:      role,
		Parts:     []Part{TextPart(text)},
		Timestamp: time.Now().UTC(),
	}
}

// NewUserMessage creates a user message with a single text part.
func NewUserMessage(text string) Message {
	return newMessage(MessageRoleUser, text)
}

// NewAgentMessage creates an agent message with a single text part.
func NewAgentMessage(text string) Message {
	return newMessage(MessageRoleAgent, text)
}

// NewSystemMessage creates a system message with a single text part.
func NewSystemMessage(text string) Message {
	return newMessage(MessageRoleSystem, text)
}

// ExtractText returns the first text part of a message, or "".
func ExtractText(msg Message) string {
	for _, part := range msg.Parts {
		if part.Type == PartTypeText {
			return part.Text
		}
	}
	return ""
}

// ExtractAllText concatenates every text part with newlines.
func ExtractAllText(msg Message) string {
	var texts []string
	for _, part := range msg.Parts {
		if part.Type == PartTypeText {
			texts = append(texts, part.Text)
		}
	}
	return strings.Join(texts, "\n")
}

// LastMessageByRole returns the most recent message with the given role.
func LastMessageByRole(messages []Message, role MessageRole) (Message, bool) {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == role {
			return messages[i], true
		}
	}
	return Message{}, false
}
