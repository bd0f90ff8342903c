// Package llm provides streaming text generation over a small closed set of
// hosted models.
package llm

import (
	"context"
	"errors"
)

// ErrEmptyResponse is returned when a stream ends without any text.
var ErrEmptyResponse = errors.New("llm: empty response")

// Role is the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of the conversation history.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// User returns a user message.
func User(content string) Message { return Message{Role: RoleUser, Content: content} }

// Assistant returns an assistant message.
func Assistant(content string) Message { return Message{Role: RoleAssistant, Content: content} }

// Request is a single chat completion request.
type Request struct {
	System    string    `json:"system,omitempty"`
	Messages  []Message `json:"messages"`
	MaxTokens int       `json:"max_tokens"`
}

// Response is the complete result of a request.
type Response struct {
	Text         string `json:"text"`
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`
}

// Model generates text. Generate calls onDelta with each text fragment as it
// arrives, in order, from the calling goroutine, and returns the accumulated
// result once the stream ends. onDelta may be nil.
type Model interface {
	Name() string
	Generate(ctx context.Context, req Request, onDelta func(string)) (*Response, error)
}
