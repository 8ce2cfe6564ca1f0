// Package llm defines the structured-completion boundary: a prompt model
// shared by every provider and a Client interface that returns an instance
// of a caller-supplied schema rather than free text.
package llm

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/jsonschema"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single conversation turn. Images are base64 data URIs.
type Message struct {
	ID      string   `json:"id,omitempty"`
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

// Prompt is an ordered message sequence sent to a model. The first message
// may carry the system instruction; providers map roles to their own wire
// formats.
type Prompt struct {
	Messages []Message `json:"messages"`
}

// Text joins all message contents, used for token accounting.
func (p Prompt) Text() string {
	var out string
	for _, m := range p.Messages {
		out += m.Content + "\n"
	}
	return out
}

// Client is a structured-completion client. Invoke returns the raw JSON of
// an instance conforming to the target schema, or an error. Provider and
// network failures propagate; recovery policy belongs to the caller.
type Client interface {
	Invoke(ctx context.Context, prompt Prompt, target *jsonschema.Schema) (json.RawMessage, error)
}

// TokenCounter approximates the token count of a piece of text.
type TokenCounter func(text string) int

// CountChars is the character-count fallback counter. A real tokenizer is
// preferred when the provider exposes one.
func CountChars(text string) int { return len(text) }
