package models

import "time"

// MessageRole identifies the author of a message
type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
	MessageRoleSystem    MessageRole = "system"
)

// Message is one persisted conversation message. Messages are append-only;
// the short-term buffer is the last K messages of a session.
type Message struct {
	ID        string
	SessionID string
	Role      MessageRole
	Content   string
	CreatedAt time.Time
}

func NewMessage(id, sessionID string, role MessageRole, content string) *Message {
	return &Message{
		ID:        id,
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
	}
}

func NewUserMessage(id, sessionID, content string) *Message {
	return NewMessage(id, sessionID, MessageRoleUser, content)
}

func NewAssistantMessage(id, sessionID, content string) *Message {
	return NewMessage(id, sessionID, MessageRoleAssistant, content)
}

// Session groups messages under one conversation.
type Session struct {
	ID        string
	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewSession(id, title string) *Session {
	now := time.Now()
	return &Session{
		ID:        id,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
