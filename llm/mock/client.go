// Package mock provides a scripted structured-completion client for tests
// and offline demos.
package mock

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/jsonschema"

	"savouragent/llm"
)

// Reply is one scripted Invoke outcome.
type Reply struct {
	Payload json.RawMessage
	Err     error
}

// Client replays scripted replies in order and records every prompt it sees.
// For concurrent callers an order-independent ReplyFunc can be set instead.
type Client struct {
	mu      sync.Mutex
	replies []Reply
	calls   int

	// ReplyFunc, when set, computes the reply from the call context and
	// prompt instead of consuming the scripted sequence. It runs outside the
	// client's lock, so it may block on the context to model a hung call.
	ReplyFunc func(ctx context.Context, prompt llm.Prompt) (json.RawMessage, error)

	// Prompts holds every prompt passed to Invoke, in call order.
	Prompts []llm.Prompt
}

func NewClient(replies ...Reply) *Client {
	return &Client{replies: replies}
}

// ReplyWith is a convenience constructor that marshals v into a Reply.
func ReplyWith(v any) Reply {
	b, err := json.Marshal(v)
	if err != nil {
		return Reply{Err: err}
	}
	return Reply{Payload: b}
}

// ReplyErr scripts a failing call.
func ReplyErr(err error) Reply { return Reply{Err: err} }

func (c *Client) Invoke(ctx context.Context, prompt llm.Prompt, target *jsonschema.Schema) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.Prompts = append(c.Prompts, prompt)
	c.calls++
	n := c.calls
	fn := c.ReplyFunc
	c.mu.Unlock()

	if fn != nil {
		return fn(ctx, prompt)
	}
	if n > len(c.replies) {
		return nil, fmt.Errorf("mock: no reply scripted for call %d", n)
	}
	r := c.replies[n-1]
	return r.Payload, r.Err
}

// Calls reports how many times Invoke ran.
func (c *Client) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}
