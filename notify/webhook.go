// Package notify posts end-of-turn session summaries to a webhook so a human
// can keep an eye on what the assistant concluded and what it cost.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"savouragent/schema"
)

type doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Summary is the per-turn digest sent to the webhook.
type Summary struct {
	SessionID     string                        `json:"session_id"`
	Status        string                        `json:"status"`
	Ingredients   []string                      `json:"ingredients,omitempty"`
	Assessments   []schema.IngredientAssessment `json:"assessments,omitempty"`
	EstimatedCost float64                       `json:"estimated_cost"`
}

// Text renders the summary as a human-readable message body.
func (s Summary) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Session %s finished with status %s.\n", s.SessionID, s.Status)
	if len(s.Ingredients) > 0 {
		fmt.Fprintf(&b, "Ingredients: %s.\n", strings.Join(s.Ingredients, ", "))
	}
	for _, a := range s.Assessments {
		safety := "safe"
		if !a.IsSafeToConsume {
			safety = "NOT safe"
		}
		fmt.Fprintf(&b, "- %s: %s, shelf life %s\n", a.Ingredient, safety, a.RemainingShelfLife)
	}
	fmt.Fprintf(&b, "Estimated cost: %.4f", s.EstimatedCost)
	return b.String()
}

// Webhook posts summaries as JSON to a single configured URL.
type Webhook struct {
	url        string
	httpClient doer
}

func NewWebhook(url string, httpClient doer) *Webhook {
	return &Webhook{
		url:        url,
		httpClient: httpClient,
	}
}

// PostSummary sends the summary; a non-200 response is an error.
func (w *Webhook) PostSummary(ctx context.Context, summary Summary) error {
	payload, err := json.Marshal(map[string]any{
		"text":    summary.Text(),
		"summary": summary,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(payload))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to post summary: %s", resp.Status)
	}

	return nil
}
