package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"savouragent/llm"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(ClientOpts{
		BaseEndpoint: server.URL,
		ModelID:      "test-model",
		AccessToken:  "test-token",
		HTTPClient:   server.Client(),
	})
	require.NoError(t, err)
	return client
}

func candidateResponse(text string) string {
	b, _ := json.Marshal(map[string]any{
		"candidates": []map[string]any{{
			"content":      map[string]any{"parts": []map[string]any{{"text": text}}},
			"finishReason": "STOP",
		}},
	})
	return string(b)
}

func TestClientInvoke(t *testing.T) {
	var captured wireRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &captured))
		fmt.Fprint(w, candidateResponse(`{"ok":true}`))
	})

	prompt := llm.Prompt{Messages: []llm.Message{
		{Role: llm.RoleSystem, Content: "be helpful"},
		{Role: llm.RoleUser, Content: "hello", Images: []string{"data:image/png;base64,AAAA"}},
		{Role: llm.RoleAssistant, Content: "hi"},
	}}

	raw, err := client.Invoke(context.Background(), prompt, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(raw))

	// System message travels separately; user and assistant stay in contents.
	require.NotNil(t, captured.SystemInstruction)
	assert.Equal(t, "be helpful", captured.SystemInstruction.Parts[0].Text)
	require.Len(t, captured.Contents, 2)
	assert.Equal(t, "user", captured.Contents[0].Role)
	assert.Equal(t, "model", captured.Contents[1].Role)

	// The image rides as inline data next to the text part.
	require.Len(t, captured.Contents[0].Parts, 2)
	require.NotNil(t, captured.Contents[0].Parts[1].InlineData)
	assert.Equal(t, "image/png", captured.Contents[0].Parts[1].InlineData.MIMEType)
	assert.Equal(t, "AAAA", captured.Contents[0].Parts[1].InlineData.Data)

	assert.Equal(t, "application/json", captured.GenerationConfig.ResponseMIMEType)

	// Safety filtering defaults to BLOCK_NONE across all categories.
	require.Len(t, captured.SafetySettings, len(harmCategories))
	for _, s := range captured.SafetySettings {
		assert.Equal(t, "BLOCK_NONE", s.Threshold)
	}
}

func TestClientInvokeAttachesSchema(t *testing.T) {
	var captured map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		fmt.Fprint(w, candidateResponse(`{}`))
	})

	target := &jsonschema.Schema{
		Type:     "object",
		Required: []string{"ok"},
		Properties: map[string]*jsonschema.Schema{
			"ok": {Type: "boolean"},
		},
	}
	_, err := client.Invoke(context.Background(), llm.Prompt{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "hi"}},
	}, target)
	require.NoError(t, err)

	gen, ok := captured["generationConfig"].(map[string]any)
	require.True(t, ok)
	assert.NotNil(t, gen["responseSchema"])
}

func TestClientInvokeErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		errText string
	}{
		{
			name: "non-200 status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "quota exhausted", http.StatusTooManyRequests)
			},
			errText: "429",
		},
		{
			name: "no candidates",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{"candidates":[]}`)
			},
			errText: "no candidates",
		},
		{
			name: "candidate is not JSON",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, candidateResponse("sorry, I can't do that"))
			},
			errText: "not valid JSON",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, tt.handler)
			_, err := client.Invoke(context.Background(), llm.Prompt{
				Messages: []llm.Message{{Role: llm.RoleUser, Content: "hi"}},
			}, nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errText)
		})
	}
}

func TestNewClientValidation(t *testing.T) {
	_, err := NewClient(ClientOpts{})
	assert.Error(t, err)

	_, err = NewClient(ClientOpts{HTTPClient: http.DefaultClient})
	assert.ErrorContains(t, err, "project id")
}
