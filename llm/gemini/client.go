// Package gemini implements the structured-completion client against the
// Vertex AI Gemini generateContent REST API. Responses are constrained to a
// caller-supplied JSON schema, requests pass through a token-bucket rate
// limiter, and safety filtering defaults to BLOCK_NONE because ingredient
// imagery trips false positives on the stricter thresholds.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/jsonschema"
	"golang.org/x/time/rate"

	"savouragent"
	"savouragent/llm"
)

const (
	defaultModelID           = "gemini-2.0-flash-exp"
	defaultLocation          = "us-central1"
	defaultMaxOutputTokens   = 8192
	defaultTemperature       = 0.5
	defaultRequestsPerSecond = 5
	defaultMaxBucketSize     = 5
)

// harmCategories lists every configurable Gemini harm category.
var harmCategories = []string{
	"HARM_CATEGORY_DANGEROUS_CONTENT",
	"HARM_CATEGORY_HATE_SPEECH",
	"HARM_CATEGORY_HARASSMENT",
	"HARM_CATEGORY_SEXUALLY_EXPLICIT",
}

type Client struct {
	endpoint    string
	modelID     string
	accessToken string
	httpClient  savouragent.HTTPClient
	limiter     *rate.Limiter
	generation  generationConfig
	safety      []safetySetting
}

type ClientOpts struct {
	// BaseEndpoint overrides the computed Vertex AI endpoint (used in tests).
	BaseEndpoint string
	ProjectID    string
	Location     string
	ModelID      string
	AccessToken  string
	HTTPClient   savouragent.HTTPClient

	MaxOutputTokens int32
	Temperature     float32
	TopP            float32

	// Token-bucket rate limiting: sustained requests per second and burst size.
	RequestsPerSecond float64
	MaxBucketSize     int

	// SafetyThresholds maps harm categories to block thresholds. Categories
	// not present default to BLOCK_NONE.
	SafetyThresholds map[string]string
}

func NewClient(opts ClientOpts) (*Client, error) {
	if opts.HTTPClient == nil {
		return nil, fmt.Errorf("http client is required")
	}
	if opts.ModelID == "" {
		opts.ModelID = defaultModelID
	}
	if opts.Location == "" {
		opts.Location = defaultLocation
	}
	if opts.MaxOutputTokens == 0 {
		opts.MaxOutputTokens = defaultMaxOutputTokens
	}
	if opts.Temperature == 0 {
		opts.Temperature = defaultTemperature
	}
	if opts.RequestsPerSecond == 0 {
		opts.RequestsPerSecond = defaultRequestsPerSecond
	}
	if opts.MaxBucketSize == 0 {
		opts.MaxBucketSize = defaultMaxBucketSize
	}

	endpoint := opts.BaseEndpoint
	if endpoint == "" {
		if opts.ProjectID == "" {
			return nil, fmt.Errorf("project id is required")
		}
		endpoint = fmt.Sprintf(
			"https://%s-aiplatform.googleapis.com/v1/projects/%s/locations/%s/publishers/google/models/%s:generateContent",
			opts.Location, opts.ProjectID, opts.Location, opts.ModelID,
		)
	}

	safety := make([]safetySetting, 0, len(harmCategories))
	for _, cat := range harmCategories {
		threshold := "BLOCK_NONE"
		if t, ok := opts.SafetyThresholds[cat]; ok {
			threshold = t
		}
		safety = append(safety, safetySetting{Category: cat, Threshold: threshold})
	}

	return &Client{
		endpoint:    endpoint,
		modelID:     opts.ModelID,
		accessToken: opts.AccessToken,
		httpClient:  opts.HTTPClient,
		limiter:     rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), opts.MaxBucketSize),
		generation: generationConfig{
			Temperature:      opts.Temperature,
			TopP:             opts.TopP,
			MaxOutputTokens:  opts.MaxOutputTokens,
			ResponseMIMEType: "application/json",
		},
		safety: safety,
	}, nil
}

type safetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

type generationConfig struct {
	Temperature      float32            `json:"temperature"`
	TopP             float32            `json:"topP"`
	MaxOutputTokens  int32              `json:"maxOutputTokens,omitempty"`
	ResponseMIMEType string             `json:"responseMimeType,omitempty"`
	ResponseSchema   *jsonschema.Schema `json:"responseSchema,omitempty"`
}

type wirePart struct {
	Text       string          `json:"text,omitempty"`
	InlineData *wireInlineData `json:"inlineData,omitempty"`
}

type wireInlineData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

type wireContent struct {
	Role  string     `json:"role,omitempty"`
	Parts []wirePart `json:"parts"`
}

type wireRequest struct {
	Contents          []wireContent    `json:"contents"`
	SystemInstruction *wireContent     `json:"systemInstruction,omitempty"`
	GenerationConfig  generationConfig `json:"generationConfig"`
	SafetySettings    []safetySetting  `json:"safetySettings,omitempty"`
}

type wireResponse struct {
	Candidates []struct {
		Content struct {
			Parts []wirePart `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
}

// Invoke sends the prompt with the target schema attached as a structured
// output constraint and returns the model's JSON payload.
func (c *Client) Invoke(ctx context.Context, prompt llm.Prompt, target *jsonschema.Schema) (json.RawMessage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	slog.Info("LLM_CLIENT: Invoked", "model", c.modelID, "messages_len", len(prompt.Messages))

	gen := c.generation
	gen.ResponseSchema = target

	body := wireRequest{
		GenerationConfig: gen,
		SafetySettings:   c.safety,
	}

	for _, m := range prompt.Messages {
		content := wireContent{Parts: []wirePart{}}
		if m.Content != "" {
			content.Parts = append(content.Parts, wirePart{Text: m.Content})
		}
		for _, img := range m.Images {
			mime, data := llm.SplitDataURI(img)
			content.Parts = append(content.Parts, wirePart{
				InlineData: &wireInlineData{MIMEType: mime, Data: data},
			})
		}
		if len(content.Parts) == 0 {
			continue
		}

		switch m.Role {
		case llm.RoleSystem:
			content.Role = ""
			body.SystemInstruction = &content
		case llm.RoleAssistant:
			content.Role = "model"
			body.Contents = append(body.Contents, content)
		default:
			content.Role = "user"
			body.Contents = append(body.Contents, content)
		}
	}

	reqBytes, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(reqBytes))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("generateContent: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("LLM_CLIENT: %s: %s", resp.Status, string(respBody))
	}

	var wr wireResponse
	if err := json.Unmarshal(respBody, &wr); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(wr.Candidates) == 0 || len(wr.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("no candidates in response")
	}

	text := wr.Candidates[0].Content.Parts[0].Text
	if !json.Valid([]byte(text)) {
		return nil, fmt.Errorf("candidate is not valid JSON: %q", text)
	}

	slog.Info("LLM_CLIENT: Structured response received",
		"model", c.modelID,
		"finish_reason", wr.Candidates[0].FinishReason,
		"payload_len", len(text),
	)

	return json.RawMessage(text), nil
}
