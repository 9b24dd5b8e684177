// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package council

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/council-tui/internal/api"
)

// DefaultTitle is the placeholder before the backend generates a real title.
const DefaultTitle = "New Conversation"

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Role identifies the author of a message.
type Role string

const (
	// RoleUser is a message typed by the user.
	RoleUser Role = "user"

	// RoleAssistant is a deliberation result from the council.
	RoleAssistant Role = "assistant"
)

// Message is one turn of a conversation. User messages carry Content and
// nothing else; assistant messages accumulate the three stage payloads as
// the stream delivers them.
type Message struct {
	// ID identifies the message locally; rollback removes by ID.
	ID   string
	Role Role

	// Content is the user's prompt text. Immutable once created.
	Content string

	// Stage payloads, opaque to the client. Nil until delivered.
	Stage1 json.RawMessage
	Stage2 json.RawMessage
	Stage3 json.RawMessage

	// Metadata is the ranking de-anonymization info from stage 2.
	Metadata *api.StageMetadata

	// Per-stage loading flags, set on stage start, cleared on stage
	// completion and on stream termination.
	Stage1Loading bool
	Stage2Loading bool
	Stage3Loading bool
}

// NewUserMessage creates a user message.
func NewUserMessage(content string) *Message {
	return &Message{
		ID:      uuid.NewString(),
		Role:    RoleUser,
		Content: content,
	}
}

// NewAssistantMessage creates an empty assistant message awaiting the
// deliberation stream.
func NewAssistantMessage() *Message {
	return &Message{
		ID:   uuid.NewString(),
		Role: RoleAssistant,
	}
}

// Loading reports whether any stage of this message is still running.
func (m *Message) Loading() bool {
	return m.Stage1Loading || m.Stage2Loading || m.Stage3Loading
}

// HasStages reports whether any stage payload has arrived.
func (m *Message) HasStages() bool {
	return m.Stage1 != nil || m.Stage2 != nil || m.Stage3 != nil
}

// FinalAnswer returns the chairman synthesis text, or "" while pending.
// Stage 3 arrives as {"model": ..., "response": ...}.
func (m *Message) FinalAnswer() string {
	if m.Stage3 == nil {
		return ""
	}
	var payload struct {
		Response string `json:"response"`
	}
	if err := json.Unmarshal(m.Stage3, &payload); err != nil {
		return ""
	}
	return payload.Response
}

// clone returns a copy of the message. Stage payloads are shared: they are
// never mutated after assignment.
func (m *Message) clone() *Message {
	cp := *m
	return &cp
}

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation holds one deliberation thread.
type Conversation struct {
	ID        string
	Title     string
	CreatedAt time.Time
	Messages  []*Message
}

// NewConversation creates an empty local conversation shell. The ID is
// assigned by the backend when the conversation is created server-side.
func NewConversation(id string) *Conversation {
	return &Conversation{
		ID:        id,
		Title:     DefaultTitle,
		CreatedAt: time.Now(),
		Messages:  make([]*Message, 0),
	}
}

// GetLastMessage returns the most recent message, or nil if empty.
func (c *Conversation) GetLastMessage() *Message {
	if len(c.Messages) == 0 {
		return nil
	}
	return c.Messages[len(c.Messages)-1]
}

// MessageCount returns the number of messages.
func (c *Conversation) MessageCount() int {
	return len(c.Messages)
}

// Clone creates a copy with a fresh message slice. Individual messages are
// shared; callers must clone a message before mutating it.
func (c *Conversation) Clone() *Conversation {
	clone := &Conversation{
		ID:        c.ID,
		Title:     c.Title,
		CreatedAt: c.CreatedAt,
		Messages:  make([]*Message, len(c.Messages)),
	}
	copy(clone.Messages, c.Messages)
	return clone
}

// RemoveMessage removes a message by ID, returning whether it was found.
func (c *Conversation) RemoveMessage(id string) bool {
	for i, msg := range c.Messages {
		if msg.ID == id {
			c.Messages = append(c.Messages[:i], c.Messages[i+1:]...)
			return true
		}
	}
	return false
}

// =============================================================================
// WIRE CONVERSION
// =============================================================================

// FromWire converts a fetched conversation into local state. Messages get
// fresh local IDs; the backend does not expose per-message IDs.
func FromWire(w *api.Conversation) *Conversation {
	conv := &Conversation{
		ID:       w.ID,
		Title:    w.Title,
		Messages: make([]*Message, 0, len(w.Messages)),
	}
	if conv.Title == "" {
		conv.Title = DefaultTitle
	}
	if t, err := time.Parse(time.RFC3339, w.CreatedAt); err == nil {
		conv.CreatedAt = t
	}

	for _, wm := range w.Messages {
		switch wm.Role {
		case "user":
			conv.Messages = append(conv.Messages, NewUserMessage(wm.Content))
		case "assistant":
			msg := NewAssistantMessage()
			msg.Stage1 = wm.Stage1
			msg.Stage2 = wm.Stage2
			msg.Stage3 = wm.Stage3
			if len(wm.Metadata) > 0 {
				var meta api.StageMetadata
				if err := json.Unmarshal(wm.Metadata, &meta); err == nil {
					msg.Metadata = &meta
				}
			}
			conv.Messages = append(conv.Messages, msg)
		}
	}
	return conv
}

// Summary is a lightweight conversation listing entry.
type Summary struct {
	ID           string
	Title        string
	MessageCount int
	CreatedAt    string
}

// SummaryFromWire converts an API summary row.
func SummaryFromWire(w api.ConversationSummary) Summary {
	title := w.Title
	if title == "" {
		title = DefaultTitle
	}
	return Summary{
		ID:           w.ID,
		Title:        title,
		MessageCount: w.MessageCount,
		CreatedAt:    w.CreatedAt,
	}
}
