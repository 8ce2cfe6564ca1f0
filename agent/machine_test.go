package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"savouragent"
	"savouragent/batch"
	"savouragent/checkpoint"
	"savouragent/llm"
	"savouragent/llm/mock"
	"savouragent/schema"
)

const testImage = "data:image/jpeg;base64,dGVzdA=="

// scriptedClient routes replies by pipeline step, keyed off the system
// prompt, so the concurrent assessment fan-out stays order-independent.
func scriptedClient(check schema.ClarityCheck, extraction schema.IngredientExtraction, assess func(userMsg string) (schema.IngredientAssessment, error)) *mock.Client {
	client := mock.NewClient()
	client.ReplyFunc = func(_ context.Context, p llm.Prompt) (json.RawMessage, error) {
		system := p.Messages[0].Content
		switch {
		case system == clarityPrompt:
			return json.Marshal(check)
		case system == extractionPrompt:
			return json.Marshal(extraction)
		default:
			a, err := assess(p.Messages[len(p.Messages)-1].Content)
			if err != nil {
				return nil, err
			}
			return json.Marshal(a)
		}
	}
	return client
}

func assessByName(userMsg string) (schema.IngredientAssessment, error) {
	// The user message is "Ingredient: <name>\nEstimated quantity: <qty>".
	name := strings.TrimPrefix(strings.SplitN(userMsg, "\n", 2)[0], "Ingredient: ")
	return schema.IngredientAssessment{
		Ingredient:         name,
		IsSafeToConsume:    true,
		RemainingShelfLife: "5 days",
		Reasoning:          "looks fresh",
	}, nil
}

func newTestMachine(t *testing.T, client llm.Client, store checkpoint.Store) *Machine {
	t.Helper()
	runner := batch.NewRunner()
	machine, err := NewMachine(MachineOpts{
		Client: client,
		Runner: runner,
		Store:  store,
		Now:    func() time.Time { return time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)
	return machine
}

func TestResumeAwaitsHumanWhenUnclear(t *testing.T) {
	client := scriptedClient(schema.ClarityCheck{
		IsClearEnough:   false,
		MissingInfo:     "photo is blurry",
		FollowUpMessage: "Could you retake the photo a little closer?",
	}, schema.IngredientExtraction{}, assessByName)

	store := checkpoint.NewMemoryStore()
	machine := newTestMachine(t, client, store)

	result, err := machine.Resume(context.Background(), "s1", Turn{Text: "what can I cook?", Images: []string{testImage}})
	require.NoError(t, err)
	assert.Equal(t, StatusAwaitingInput, result.Status)
	assert.Equal(t, "Could you retake the photo a little closer?", result.Message)
	assert.Empty(t, result.Ingredients)
	assert.Equal(t, 1, client.Calls())

	// The parked session is checkpointed with both turns of the exchange.
	snapshot, err := store.Load(context.Background(), "s1")
	require.NoError(t, err)
	session, err := RestoreSession(snapshot)
	require.NoError(t, err)
	assert.False(t, session.IsClearEnough)
	require.Len(t, session.Messages, 2)
	assert.Equal(t, llm.RoleUser, session.Messages[0].Role)
	assert.Equal(t, llm.RoleAssistant, session.Messages[1].Role)
}

func TestResumeExtractsAndAssessesWhenClear(t *testing.T) {
	client := scriptedClient(
		schema.ClarityCheck{IsClearEnough: true, FollowUpMessage: "I can see everything, on it!"},
		schema.IngredientExtraction{
			Ingredients: []string{"tomatoes", "onions"},
			Quantities:  []string{"500 g", "3"},
		},
		assessByName,
	)

	store := checkpoint.NewMemoryStore()
	machine := newTestMachine(t, client, store)

	result, err := machine.Resume(context.Background(), "s1", Turn{Text: "here you go", Images: []string{testImage}})
	require.NoError(t, err)
	assert.Equal(t, StatusExtracted, result.Status)
	assert.Equal(t, []string{"tomatoes", "onions"}, result.Ingredients)
	assert.Equal(t, []string{"500 g", "3"}, result.Quantities)
	require.Len(t, result.Assessments, 2)
	assert.Equal(t, "tomatoes", result.Assessments[0].Ingredient)
	assert.Equal(t, "onions", result.Assessments[1].Ingredient)
	assert.True(t, result.Assessments[0].IsSafeToConsume)
	assert.Greater(t, result.EstimatedCost, 0.0)

	// clarity + extraction + one assessment per ingredient
	assert.Equal(t, 4, client.Calls())

	snapshot, err := store.Load(context.Background(), "s1")
	require.NoError(t, err)
	session, err := RestoreSession(snapshot)
	require.NoError(t, err)
	assert.True(t, session.IsClearEnough)
	assert.Len(t, session.Assessments, 2)
}

func TestResumeContinuesFromCheckpoint(t *testing.T) {
	store := checkpoint.NewMemoryStore()

	unclear := scriptedClient(schema.ClarityCheck{
		IsClearEnough:   false,
		FollowUpMessage: "How much of each do you have?",
	}, schema.IngredientExtraction{}, assessByName)
	machine := newTestMachine(t, unclear, store)

	_, err := machine.Resume(context.Background(), "s1", Turn{Text: "dinner ideas?", Images: []string{testImage}})
	require.NoError(t, err)

	// A new machine (fresh process) picks the same session back up.
	clear := scriptedClient(
		schema.ClarityCheck{IsClearEnough: true, FollowUpMessage: "Great, thanks!"},
		schema.IngredientExtraction{Ingredients: []string{"eggs"}, Quantities: []string{"6"}},
		assessByName,
	)
	machine = newTestMachine(t, clear, store)

	result, err := machine.Resume(context.Background(), "s1", Turn{Text: "about 6 eggs"})
	require.NoError(t, err)
	assert.Equal(t, StatusExtracted, result.Status)

	snapshot, err := store.Load(context.Background(), "s1")
	require.NoError(t, err)
	session, err := RestoreSession(snapshot)
	require.NoError(t, err)
	// Both exchanges survive in the history.
	require.Len(t, session.Messages, 4)
	assert.Equal(t, "dinner ideas?", session.Messages[0].Content)
	assert.Equal(t, "about 6 eggs", session.Messages[2].Content)

	// Extraction sees the clarifying exchange, not just the photos: the
	// quantity the user typed has to reach the model.
	require.Len(t, clear.Prompts, 3)
	extractionCall := clear.Prompts[1]
	require.Equal(t, extractionPrompt, extractionCall.Messages[0].Content)
	assert.Contains(t, extractionCall.Text(), "How much of each do you have?")
	assert.Contains(t, extractionCall.Text(), "about 6 eggs")
	// Images from the first turn still feed extraction on the second.
	last := extractionCall.Messages[len(extractionCall.Messages)-1]
	assert.Equal(t, []string{testImage}, last.Images)
}

func TestResumeResetsExtractionOnNewImages(t *testing.T) {
	store := checkpoint.NewMemoryStore()

	// Seed a session that already finished extraction.
	seeded := &Session{
		Messages:      []llm.Message{{Role: llm.RoleUser, Content: "old", Images: []string{testImage}}},
		IsClearEnough: true,
		Ingredients:   []string{"bread"},
		Quantities:    []string{"1 loaf"},
		Assessments:   []schema.IngredientAssessment{{Ingredient: "bread", IsSafeToConsume: true}},
	}
	snapshot, err := seeded.Snapshot()
	require.NoError(t, err)
	require.NoError(t, store.Save(context.Background(), "s1", snapshot))

	client := scriptedClient(
		schema.ClarityCheck{IsClearEnough: false, FollowUpMessage: "What is in the jar on the left?"},
		schema.IngredientExtraction{},
		assessByName,
	)
	machine := newTestMachine(t, client, store)

	result, err := machine.Resume(context.Background(), "s1", Turn{Text: "new haul", Images: []string{testImage}})
	require.NoError(t, err)
	assert.Equal(t, StatusAwaitingInput, result.Status)

	snapshot, err = store.Load(context.Background(), "s1")
	require.NoError(t, err)
	session, err := RestoreSession(snapshot)
	require.NoError(t, err)
	assert.Empty(t, session.Ingredients)
	assert.Empty(t, session.Assessments)
	assert.False(t, session.IsClearEnough)
}

func TestResumeMisalignedExtractionFails(t *testing.T) {
	client := scriptedClient(
		schema.ClarityCheck{IsClearEnough: true, FollowUpMessage: "On it!"},
		schema.IngredientExtraction{
			Ingredients: []string{"tomatoes", "onions"},
			Quantities:  []string{"500 g"},
		},
		assessByName,
	)
	machine := newTestMachine(t, client, checkpoint.NewMemoryStore())

	_, err := machine.Resume(context.Background(), "s1", Turn{Text: "go", Images: []string{testImage}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "misaligned")
}

func TestResumeFailedAssessmentKeepsAlignment(t *testing.T) {
	client := scriptedClient(
		schema.ClarityCheck{IsClearEnough: true, FollowUpMessage: "On it!"},
		schema.IngredientExtraction{
			Ingredients: []string{"milk", "cheese"},
			Quantities:  []string{"1 L", "200 g"},
		},
		func(userMsg string) (schema.IngredientAssessment, error) {
			if strings.Contains(userMsg, "milk") {
				return schema.IngredientAssessment{}, fmt.Errorf("provider timeout")
			}
			return assessByName(userMsg)
		},
	)
	machine := newTestMachine(t, client, checkpoint.NewMemoryStore())

	result, err := machine.Resume(context.Background(), "s1", Turn{Text: "go", Images: []string{testImage}})
	require.NoError(t, err)
	require.Len(t, result.Assessments, 2)

	// The degraded slot still names its ingredient and reads as unsafe.
	assert.Equal(t, "milk", result.Assessments[0].Ingredient)
	assert.False(t, result.Assessments[0].IsSafeToConsume)
	assert.Equal(t, "cheese", result.Assessments[1].Ingredient)
	assert.True(t, result.Assessments[1].IsSafeToConsume)
}

func TestResumeLogsSteps(t *testing.T) {
	client := scriptedClient(
		schema.ClarityCheck{IsClearEnough: true, FollowUpMessage: "On it!"},
		schema.IngredientExtraction{Ingredients: []string{"eggs"}, Quantities: []string{"6"}},
		assessByName,
	)

	steps := &recordingStepLogger{}
	runner := batch.NewRunner()
	machine, err := NewMachine(MachineOpts{
		Client: client,
		Runner: runner,
		Steps:  steps,
	})
	require.NoError(t, err)

	_, err = machine.Resume(context.Background(), "s1", Turn{Text: "go", Images: []string{testImage}})
	require.NoError(t, err)

	require.Len(t, steps.logs, 3)
	assert.Equal(t, stepGatherInfo, steps.logs[0].Step)
	assert.Equal(t, stepExtract, steps.logs[1].Step)
	assert.Equal(t, stepAssess, steps.logs[2].Step)
	for _, entry := range steps.logs {
		assert.Equal(t, "s1", entry.SessionID)
		assert.NotEmpty(t, entry.Input)
		assert.Empty(t, entry.Error)
	}
	// The assessment entry records the rendered per-ingredient inputs.
	assert.Contains(t, steps.logs[2].Input, "Ingredient: eggs")
	assert.Contains(t, steps.logs[2].Input, "Estimated quantity: 6")
}

type recordingStepLogger struct {
	logs []savouragent.StepLog
}

func (r *recordingStepLogger) LogStep(step savouragent.StepLog) error {
	r.logs = append(r.logs, step)
	return nil
}
