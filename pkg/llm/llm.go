// Package llm defines the chat-completion contract used by the query
// pipeline and an OpenAI-compatible HTTP client (OpenRouter by default).
package llm

import (
	"context"
	"errors"
)

// Role is the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one chat turn.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Chatter sends a conversation and returns the assistant's reply text.
type Chatter interface {
	Chat(ctx context.Context, msgs []Message) (string, error)
}

// ChatterFunc adapts a function to Chatter.
type ChatterFunc func(ctx context.Context, msgs []Message) (string, error)

func (f ChatterFunc) Chat(ctx context.Context, msgs []Message) (string, error) {
	return f(ctx, msgs)
}

var (
	ErrEmptyReply = errors.New("llm: empty reply")
	ErrNoAPIKey   = errors.New("llm: api key not set")
)

// System and User build messages.
func System(content string) Message { return Message{Role: RoleSystem, Content: content} }

func User(content string) Message { return Message{Role: RoleUser, Content: content} }
