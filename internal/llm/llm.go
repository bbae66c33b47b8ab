// Package llm defines the language-model call used by extraction and
// question answering, with an OpenAI-compatible implementation.
package llm

import "context"

// Role is the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of a chat conversation.
type Message struct {
	Role    Role
	Content string
}

// Request is a single chat completion request.
type Request struct {
	Messages []Message
	// Temperature controls determinism; lower is more deterministic.
	Temperature float64
	// Model overrides the client's default model when set.
	Model string
}

// ChatModel issues a chat completion and returns the assistant's text.
type ChatModel interface {
	Chat(ctx context.Context, req Request) (string, error)
}

// System builds a system message.
func System(content string) Message { return Message{Role: RoleSystem, Content: content} }

// User builds a user message.
func User(content string) Message { return Message{Role: RoleUser, Content: content} }
