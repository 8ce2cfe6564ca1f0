// Package agent drives the conversational ingredient pipeline: gather enough
// photographic context from the customer, extract the ingredient inventory,
// then assess each ingredient concurrently. The machine is resumable; all
// state lives in the checkpoint store between turns.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/jsonschema"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"savouragent"
	"savouragent/batch"
	"savouragent/checkpoint"
	"savouragent/llm"
	"savouragent/schema"
)

// Status reports where the machine stopped for this turn.
type Status string

const (
	// StatusAwaitingInput means the images were not clear enough; the
	// follow-up question has been recorded and the machine is parked until
	// the customer replies.
	StatusAwaitingInput Status = "awaiting_input"
	// StatusExtracted means extraction and assessment both completed.
	StatusExtracted Status = "extracted"
)

const (
	stepGatherInfo = "gather_info"
	stepExtract    = "extract_ingredients"
	stepAssess     = "assess_ingredients"
)

const defaultHistoryTokenBudget = 250

// Turn is one customer input: a text message and optional photos as base64
// data URIs.
type Turn struct {
	Text   string
	Images []string
}

// Result is what the caller shows the customer after a turn.
type Result struct {
	SessionID     string                        `json:"session_id"`
	Status        Status                        `json:"status"`
	Message       string                        `json:"message"`
	Ingredients   []string                      `json:"ingredients,omitempty"`
	Quantities    []string                      `json:"quantities,omitempty"`
	Assessments   []schema.IngredientAssessment `json:"assessments,omitempty"`
	EstimatedCost float64                       `json:"estimated_cost"`
}

// MachineOpts configures a Machine. Client is required; everything else has
// a usable default.
type MachineOpts struct {
	Client             llm.Client
	Runner             *batch.Runner
	Store              checkpoint.Store
	Steps              savouragent.StepLogger
	HistoryTokenBudget int
	CallTimeout        time.Duration
	Now                func() time.Time
}

// Machine executes turns against durable sessions.
type Machine struct {
	client        llm.Client
	runner        *batch.Runner
	store         checkpoint.Store
	steps         savouragent.StepLogger
	tracer        trace.Tracer
	historyBudget int
	callTimeout   time.Duration
	now           func() time.Time
}

func NewMachine(opts MachineOpts) (*Machine, error) {
	if opts.Client == nil {
		return nil, fmt.Errorf("agent: client is required")
	}
	m := &Machine{
		client:        opts.Client,
		runner:        opts.Runner,
		store:         opts.Store,
		steps:         opts.Steps,
		tracer:        otel.Tracer(savouragent.TracerNameAgent),
		historyBudget: opts.HistoryTokenBudget,
		callTimeout:   opts.CallTimeout,
		now:           opts.Now,
	}
	if m.runner == nil {
		m.runner = batch.NewRunner()
	}
	if m.store == nil {
		m.store = checkpoint.NewMemoryStore()
	}
	if m.steps == nil {
		m.steps = savouragent.NewNoOpStepLogger()
	}
	if m.historyBudget <= 0 {
		m.historyBudget = defaultHistoryTokenBudget
	}
	if m.now == nil {
		m.now = time.Now
	}
	return m, nil
}

// Resume applies one customer turn to the session, creating the session if no
// checkpoint exists. The session is saved after every step, so a crash
// mid-turn loses at most the step in flight.
func (m *Machine) Resume(ctx context.Context, sessionID string, turn Turn) (*Result, error) {
	ctx, span := m.tracer.Start(ctx, "agent.resume",
		trace.WithAttributes(
			attribute.String("session.id", sessionID),
			attribute.Int("turn.images", len(turn.Images)),
		))
	defer span.End()

	session, err := m.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	// New photos invalidate whatever was extracted from the old ones.
	if len(turn.Images) > 0 && (len(session.Ingredients) > 0 || session.IsClearEnough) {
		slog.Info("AGENT: New images received, resetting extraction state", "session_id", sessionID)
		session.ResetExtraction()
	}

	session.Messages = append(session.Messages, llm.Message{
		Role:    llm.RoleUser,
		Content: turn.Text,
		Images:  turn.Images,
	})

	check, checkCost, err := m.gatherInfo(ctx, sessionID, session)
	if err != nil {
		return nil, err
	}
	totalCost := checkCost

	session.IsClearEnough = check.IsClearEnough
	session.Messages = append(session.Messages, llm.Message{
		Role:    llm.RoleAssistant,
		Content: check.FollowUpMessage,
	})
	if err := m.saveSession(ctx, sessionID, session); err != nil {
		return nil, err
	}

	if !check.IsClearEnough {
		slog.Info("AGENT: Awaiting clearer input", "session_id", sessionID, "missing_info", check.MissingInfo)
		return &Result{
			SessionID:     sessionID,
			Status:        StatusAwaitingInput,
			Message:       check.FollowUpMessage,
			EstimatedCost: totalCost,
		}, nil
	}

	extraction, extractCost, err := m.extract(ctx, sessionID, session)
	if err != nil {
		return nil, err
	}
	totalCost += extractCost

	session.Ingredients = extraction.Ingredients
	session.Quantities = extraction.Quantities
	if err := m.saveSession(ctx, sessionID, session); err != nil {
		return nil, err
	}

	assessments, assessCost, err := m.assess(ctx, sessionID, session)
	if err != nil {
		return nil, err
	}
	totalCost += assessCost

	session.Assessments = assessments
	if err := m.saveSession(ctx, sessionID, session); err != nil {
		return nil, err
	}

	slog.Info("AGENT: Turn complete",
		"session_id", sessionID,
		"ingredients", len(session.Ingredients),
		"estimated_cost", totalCost,
	)
	return &Result{
		SessionID:     sessionID,
		Status:        StatusExtracted,
		Message:       check.FollowUpMessage,
		Ingredients:   session.Ingredients,
		Quantities:    session.Quantities,
		Assessments:   assessments,
		EstimatedCost: totalCost,
	}, nil
}

func (m *Machine) loadSession(ctx context.Context, sessionID string) (*Session, error) {
	snapshot, err := m.store.Load(ctx, sessionID)
	if errors.Is(err, checkpoint.ErrNotFound) {
		slog.Info("AGENT: Starting new session", "session_id", sessionID)
		return &Session{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load checkpoint: %w", err)
	}
	session, err := RestoreSession(snapshot)
	if err != nil {
		return nil, fmt.Errorf("restore session %s: %w", sessionID, err)
	}
	return session, nil
}

func (m *Machine) saveSession(ctx context.Context, sessionID string, session *Session) error {
	snapshot, err := session.Snapshot()
	if err != nil {
		return err
	}
	if err := m.store.Save(ctx, sessionID, snapshot); err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	return nil
}

// gatherInfo runs the clarity check over the trimmed history. The full image
// set travels with each message; only text is trimmed.
func (m *Machine) gatherInfo(ctx context.Context, sessionID string, session *Session) (schema.ClarityCheck, float64, error) {
	ctx, span := m.tracer.Start(ctx, "agent.gather_info")
	defer span.End()

	msgs := append([]llm.Message{{Role: llm.RoleSystem, Content: clarityPrompt}}, session.Messages...)
	prompt := llm.Prompt{Messages: llm.Trim(msgs, m.historyBudget, m.runner.Counter)}

	var check schema.ClarityCheck
	raw, cost, err := m.invoke(ctx, prompt, schema.ClarityCheckSchema())
	if err != nil {
		m.logStep(sessionID, stepGatherInfo, prompt.Text(), nil, cost, err)
		return check, cost, fmt.Errorf("clarity check: %w", err)
	}
	if err := json.Unmarshal(raw, &check); err != nil {
		m.logStep(sessionID, stepGatherInfo, prompt.Text(), nil, cost, err)
		return check, cost, fmt.Errorf("decode clarity check: %w", err)
	}
	m.logStep(sessionID, stepGatherInfo, prompt.Text(), check, cost, nil)
	return check, cost, nil
}

// extract identifies the ingredient inventory from the session's images and
// the trimmed conversation history, so clarifications collected during
// gathering (quantities, what's in the jar) inform the extraction.
func (m *Machine) extract(ctx context.Context, sessionID string, session *Session) (schema.IngredientExtraction, float64, error) {
	ctx, span := m.tracer.Start(ctx, "agent.extract")
	defer span.End()

	msgs := make([]llm.Message, 0, len(session.Messages)+2)
	msgs = append(msgs, llm.Message{Role: llm.RoleSystem, Content: extractionPrompt})
	for _, msg := range session.Messages {
		// The trailing instruction carries the full image set; history
		// contributes text only.
		msg.Images = nil
		msgs = append(msgs, msg)
	}
	msgs = llm.Trim(msgs, m.historyBudget, m.runner.Counter)
	msgs = append(msgs, llm.Message{
		Role:    llm.RoleUser,
		Content: "Identify the ingredients in these photos.",
		Images:  sessionImages(session),
	})
	prompt := llm.Prompt{Messages: msgs}

	var extraction schema.IngredientExtraction
	raw, cost, err := m.invoke(ctx, prompt, schema.IngredientExtractionSchema())
	if err != nil {
		m.logStep(sessionID, stepExtract, prompt.Text(), nil, cost, err)
		return extraction, cost, fmt.Errorf("extract ingredients: %w", err)
	}
	if err := json.Unmarshal(raw, &extraction); err != nil {
		m.logStep(sessionID, stepExtract, prompt.Text(), nil, cost, err)
		return extraction, cost, fmt.Errorf("decode extraction: %w", err)
	}
	if len(extraction.Ingredients) != len(extraction.Quantities) {
		err := fmt.Errorf("extraction misaligned: %d ingredients, %d quantities",
			len(extraction.Ingredients), len(extraction.Quantities))
		m.logStep(sessionID, stepExtract, prompt.Text(), extraction, cost, err)
		return extraction, cost, err
	}
	m.logStep(sessionID, stepExtract, prompt.Text(), extraction, cost, nil)
	return extraction, cost, nil
}

// assess fans one safety assessment out per extracted ingredient. A failed
// call degrades to a default assessment carrying the ingredient name, so the
// result stays aligned with the session's ingredient list.
func (m *Machine) assess(ctx context.Context, sessionID string, session *Session) ([]schema.IngredientAssessment, float64, error) {
	ctx, span := m.tracer.Start(ctx, "agent.assess")
	defer span.End()

	if len(session.Ingredients) != len(session.Quantities) {
		return nil, 0, fmt.Errorf("session misaligned: %d ingredients, %d quantities",
			len(session.Ingredients), len(session.Quantities))
	}
	if len(session.Ingredients) == 0 {
		return []schema.IngredientAssessment{}, 0, nil
	}

	system := assessmentPrompt(m.now())
	images := sessionImages(session)
	inputs := make([]batch.Input, len(session.Ingredients))
	var inputLog strings.Builder
	inputLog.WriteString(system)
	for i, name := range session.Ingredients {
		inputs[i] = batch.Input{
			"ingredient": name,
			"quantity":   session.Quantities[i],
		}
		fmt.Fprintf(&inputLog, "\nIngredient: %s\nEstimated quantity: %s", name, session.Quantities[i])
	}

	chain := &batch.Chain[schema.IngredientAssessment]{
		Client: m.client,
		Render: func(in batch.Input) (llm.Prompt, error) {
			name, _ := in["ingredient"].(string)
			quantity, _ := in["quantity"].(string)
			return llm.Prompt{Messages: []llm.Message{
				{Role: llm.RoleSystem, Content: system},
				{Role: llm.RoleUser, Content: fmt.Sprintf("Ingredient: %s\nEstimated quantity: %s", name, quantity), Images: images},
			}}, nil
		},
		Schema:  schema.IngredientAssessmentSchema(),
		Default: schema.DefaultIngredientAssessment,
	}

	assessments, cost, err := batch.Run(ctx, m.runner, chain, inputs)
	if err != nil {
		m.logStep(sessionID, stepAssess, inputLog.String(), nil, cost.Estimated, err)
		return nil, cost.Estimated, fmt.Errorf("assess ingredients: %w", err)
	}

	// Defaulted items come back with an empty name; restore it from the
	// aligned input so downstream consumers always see which ingredient the
	// slot describes.
	for i := range assessments {
		if assessments[i].Ingredient == "" {
			assessments[i].Ingredient = session.Ingredients[i]
		}
	}

	m.logStep(sessionID, stepAssess, inputLog.String(), assessments, cost.Estimated, nil)
	return assessments, cost.Estimated, nil
}

// invoke wraps a single completion call with the per-call timeout and prices
// it from the counted prompt and response text.
func (m *Machine) invoke(ctx context.Context, prompt llm.Prompt, target *jsonschema.Schema) (json.RawMessage, float64, error) {
	if m.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.callTimeout)
		defer cancel()
	}

	raw, err := m.client.Invoke(ctx, prompt, target)

	count := m.runner.Counter
	if count == nil {
		count = llm.CountChars
	}
	cost := m.runner.Pricing.Total(count(prompt.Text()), count(string(raw)))
	return raw, cost, err
}

func (m *Machine) logStep(sessionID, step, input string, output any, cost float64, stepErr error) {
	entry := savouragent.StepLog{
		SessionID:     sessionID,
		Step:          step,
		Timestamp:     m.now(),
		Input:         input,
		Output:        output,
		EstimatedCost: cost,
	}
	if stepErr != nil {
		entry.Error = stepErr.Error()
	}
	if err := m.steps.LogStep(entry); err != nil {
		slog.Warn("AGENT: Failed to record step log", "step", step, "error", err)
	}
}

// sessionImages collects every image attached across the conversation, oldest
// first. Trimming never drops images because they live on the session, not in
// the token budget.
func sessionImages(session *Session) []string {
	var images []string
	for _, msg := range session.Messages {
		images = append(images, msg.Images...)
	}
	return images
}
