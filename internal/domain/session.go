package domain

import (
	"time"
)

// Role identifies who authored a message.
type Role string

const (
	// RoleUser marks a message typed by the user.
	RoleUser Role = "user"
	// RoleBot marks a message produced by the assistant.
	RoleBot Role = "bot"
	// RoleSystem marks synthetic entries that only exist while summarizing.
	RoleSystem Role = "system"
)

// Message is a single chat entry. Messages are append-only.
type Message struct {
	Role          Role      `json:"sender"`
	Text          string    `json:"message"`
	Timestamp     time.Time `json:"timestamp"`
	SelectedJobID string    `json:"selected_job_id,omitempty"`
}

// ChatContext is the bounded context artifact carried between turns.
//
// PermanentContext is written once when the session is created.
// ConversationSummary is replaced wholesale on every compaction.
// RecentWindow holds at most the configured window size at rest.
type ChatContext struct {
	PermanentContext    string    `json:"permanent_context"`
	ConversationSummary string    `json:"conversation_summary"`
	RecentWindow        []Message `json:"recent_messages"`
}

// Clone returns a copy whose window can be appended to without aliasing.
func (c ChatContext) Clone() ChatContext {
	window := make([]Message, len(c.RecentWindow))
	copy(window, c.RecentWindow)
	c.RecentWindow = window
	return c
}

// ChatSession is one conversation owned by a user key.
type ChatSession struct {
	ID          string      `json:"chat_id"`
	UserKey     string      `json:"-"`
	DisplayName string      `json:"chat_name"`
	Messages    []Message   `json:"messages"`
	Context     ChatContext `json:"-"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// ChatSessionSummary is the list view of a session.
type ChatSessionSummary struct {
	ID           string    `json:"chat_id"`
	DisplayName  string    `json:"chat_name"`
	MessageCount int       `json:"message_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// SessionUpdate carries the three fields a turn writes. Stores must apply
// them together or not at all.
type SessionUpdate struct {
	Messages    []Message
	Context     ChatContext
	DisplayName string
}
