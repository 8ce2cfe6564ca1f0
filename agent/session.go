package agent

import (
	"encoding/json"
	"fmt"

	"savouragent/llm"
	"savouragent/schema"
)

// Session is the durable state of one conversation. It is snapshotted to the
// checkpoint store after every step so a later invocation with the same
// session identifier picks up where this one stopped.
type Session struct {
	Messages      []llm.Message                 `json:"messages"`
	IsClearEnough bool                          `json:"is_clear_enough"`
	Ingredients   []string                      `json:"ingredients"`
	Quantities    []string                      `json:"quantities"`
	Assessments   []schema.IngredientAssessment `json:"assessments"`
}

// ResetExtraction clears extraction-derived state. Called when a turn brings
// new images: previous ingredient lists and assessments describe photos that
// no longer define the session.
func (s *Session) ResetExtraction() {
	s.IsClearEnough = false
	s.Ingredients = nil
	s.Quantities = nil
	s.Assessments = nil
}

// Snapshot serializes the session for the checkpoint store.
func (s *Session) Snapshot() ([]byte, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal session: %w", err)
	}
	return b, nil
}

// RestoreSession decodes a checkpoint snapshot.
func RestoreSession(snapshot []byte) (*Session, error) {
	var s Session
	if err := json.Unmarshal(snapshot, &s); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &s, nil
}
