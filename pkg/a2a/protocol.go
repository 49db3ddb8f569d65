// Package a2a implements the core agent-to-agent protocol data model:
// messages, parts, artifacts, tasks with their lifecycle state machine,
// and agent cards used for discovery.
package a2a

import (
	"time"

	"github.com/google/uuid"
)

const (
	ProtocolVersion = "1.0" // protocol version advertised by agent cards

	// DefaultCardVersion is used when an AgentCard is built without an
	// explicit version.
	DefaultCardVersion = "1.0.0"
)

// ============================================================================
// MESSAGE - Conversation Messages
// ============================================================================

// MessageRole identifies the sender of a message.
type MessageRole string

const (
	MessageRoleUser   MessageRole = "user"
	MessageRoleAgent  MessageRole = "agent"
	MessageRoleSystem MessageRole = "system"
)

// Message is a single conversation message with an ordered list of parts.
type Message struct {
	ID        string      `json:"id"`
	Role      MessageRole `json:"role"`
	Parts     []Part      `json:"parts"`
	Timestamp time.Time   `json:"timestamp"`
}

// ============================================================================
// PART - Message Content Parts
// ============================================================================

// PartType discriminates the Part union.
type PartType string

const (
	PartTypeText PartType = "text"
	PartTypeData PartType = "data"
	PartTypeFile PartType = "file"
)

// Part is one piece of message or artifact content (union type).
// Exactly one of Text, Data, or File is populated, selected by Type.
type Part struct {
	Type PartType `json:"type"`

	// Text part
	Text string `json:"text,omitempty"`

	// Structured data part
	Data any `json:"data,omitempty"`

	// Binary reference part
	File *FileRef `json:"file,omitempty"`
}

// FileRef points at binary content by URI rather than embedding it.
type FileRef struct {
	Name     string `json:"name"`
	MimeType string `json:"mimeType,omitempty"`
	URI      string `json:"uri"`
	Size     int64  `json:"size,omitempty"`
}

// ============================================================================
// ARTIFACT - Task Output Artifacts
// ============================================================================

// Artifact is an output produced while handling a task.
type Artifact struct {
	ID        string         `json:"artifact_id"`
	Parts     []Part         `json:"parts"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// NewArtifact creates an artifact from the given parts.
func NewArtifact(parts ...Part) Artifact {
	return Artifact{
		ID:        uuid.New().String(),
		Parts:     parts,
		Metadata:  make(map[string]any),
		CreatedAt: time.Now().UTC(),
	}
}

// ============================================================================
// AGENT CARD - Discovery & Capability Advertisement
// ============================================================================

// AgentCard describes an agent: identity, endpoint, capabilities, and the
// security requirements for calling it. Served at /.well-known/agent.json.
type AgentCard struct {
	Name            string                    `json:"name"`
	Description     string                    `json:"description"`
	URL             string                    `json:"url"`
	Version         string                    `json:"version"`
	Capabilities    map[string]bool           `json:"capabilities"`
	SecuritySchemes map[string]SecurityScheme `json:"securitySchemes,omitempty"`
	RequiredScopes  []string                  `json:"requiredScopes,omitempty"`
}

// SecurityScheme describes one way to authenticate against an agent.
type SecurityScheme struct {
	Type   string `json:"type"`             // "bearer", "apiKey", "oauth2"
	Scheme string `json:"scheme,omitempty"` // "Bearer", etc.
	In     string `json:"in,omitempty"`     // "header", "query"
	Name   string `json:"name,omitempty"`   // header/query param name
}

// NewAgentCard creates a card with the default version and capability set.
func NewAgentCard(name, description, url string) *AgentCard {
	return &AgentCard{
		Name:        name,
		Description: description,
		URL:         url,
		Version:     DefaultCardVersion,
		Capabilities: map[string]bool{
			"streaming": false,
			"tasks":     true,
		},
	}
}

// Capability reports whether the named capability flag is set.
func (c *AgentCard) Capability(name string) bool {
	return c.Capabilities[name]
}
