// Package batch runs one structured-completion chain over many inputs
// concurrently. Every input yields exactly one output at the same index: a
// failed call is logged and replaced with the chain's default instance, so
// positional alignment holds for the rest of the pipeline. Aggregate token
// cost is extrapolated from a random sample of rendered prompts and outputs.
package batch

import (
	"context"
	"encoding/json"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/jsonschema"
	"go.opentelemetry.io/otel/metric"

	"savouragent/llm"
)

const defaultMaxConcurrency = 10

// Input is one parameter map fed to a chain's prompt template.
type Input map[string]any

// Chain binds a prompt template to a client, a target schema, and an explicit
// default constructor used when a call for one input fails.
type Chain[T any] struct {
	Client  llm.Client
	Render  func(Input) (llm.Prompt, error)
	Schema  *jsonschema.Schema
	Default func() T
}

// apply runs the chain on a single input. Any failure (render, invoke,
// decode) degrades to the default instance; alignment is never broken by a
// single bad item.
func (c *Chain[T]) apply(ctx context.Context, in Input) T {
	prompt, err := c.Render(in)
	if err != nil {
		slog.Error("BATCH: Failed to render prompt, returning default", "error", err)
		return c.Default()
	}

	raw, err := c.Client.Invoke(ctx, prompt, c.Schema)
	if err != nil {
		slog.Error("BATCH: Completion failed, returning default", "error", err)
		return c.Default()
	}

	out := c.Default()
	if err := json.Unmarshal(raw, &out); err != nil {
		slog.Error("BATCH: Failed to decode completion, returning default", "error", err)
		return c.Default()
	}
	return out
}

// Runner carries the fan-out policy shared by all batches: bounded
// concurrency, a per-call timeout, the token counter, and pricing.
type Runner struct {
	MaxConcurrency int
	// Timeout bounds each completion call; expiry counts as an ordinary
	// completion failure so the item degrades to its default.
	Timeout time.Duration
	Counter llm.TokenCounter
	Pricing Pricing

	// Meter, when set, records batch metrics.
	Meter metric.Meter

	// Rand drives cost-estimation sampling; tests may seed it.
	Rand *rand.Rand
}

// NewRunner returns a Runner with corpus defaults.
func NewRunner() *Runner {
	return &Runner{
		MaxConcurrency: defaultMaxConcurrency,
		Counter:        llm.CountChars,
		Pricing:        DefaultPricing(),
	}
}

// Run fans the chain out over all inputs with bounded concurrency and waits
// for every item. Results are positionally aligned with inputs. A zero-item
// batch short-circuits to an empty result with zero cost.
func Run[T any](ctx context.Context, r *Runner, chain *Chain[T], inputs []Input) ([]T, Cost, error) {
	if len(inputs) == 0 {
		return []T{}, Cost{}, nil
	}

	maxConc := r.MaxConcurrency
	if maxConc <= 0 {
		maxConc = defaultMaxConcurrency
	}

	start := time.Now()
	results := make([]T, len(inputs))
	sem := make(chan struct{}, maxConc)
	var wg sync.WaitGroup

	for i, in := range inputs {
		wg.Add(1)
		go func(i int, in Input) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			callCtx := ctx
			if r.Timeout > 0 {
				var cancel context.CancelFunc
				callCtx, cancel = context.WithTimeout(ctx, r.Timeout)
				defer cancel()
			}
			results[i] = chain.apply(callCtx, in)
		}(i, in)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return results, Cost{}, err
	}

	cost := estimate(r, chain, inputs, results)

	slog.Info("BATCH: Run complete",
		"items", len(inputs),
		"estimated_cost", cost.Estimated,
		"estimated_input_tokens", cost.InputTokens,
		"estimated_output_tokens", cost.OutputTokens,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	r.recordMetrics(ctx, len(inputs), cost, time.Since(start))

	return results, cost, nil
}

func (r *Runner) recordMetrics(ctx context.Context, items int, cost Cost, d time.Duration) {
	if r.Meter == nil {
		return
	}
	itemsCounter, _ := r.Meter.Int64Counter("batch_items_total",
		metric.WithDescription("Total number of batch items processed"))
	inputTokensCounter, _ := r.Meter.Int64Counter("batch_estimated_input_tokens_total",
		metric.WithDescription("Estimated input tokens across batches"))
	outputTokensCounter, _ := r.Meter.Int64Counter("batch_estimated_output_tokens_total",
		metric.WithDescription("Estimated output tokens across batches"))
	costCounter, _ := r.Meter.Float64Counter("batch_estimated_cost_total",
		metric.WithDescription("Estimated monetary cost across batches"))
	durationHist, _ := r.Meter.Float64Histogram("batch_duration_seconds",
		metric.WithDescription("Duration of batch runs in seconds"))

	itemsCounter.Add(ctx, int64(items))
	inputTokensCounter.Add(ctx, int64(cost.InputTokens))
	outputTokensCounter.Add(ctx, int64(cost.OutputTokens))
	costCounter.Add(ctx, cost.Estimated)
	durationHist.Record(ctx, d.Seconds())
}
