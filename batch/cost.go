package batch

import (
	"encoding/json"
	"math/rand"

	"savouragent/llm"
)

const maxSampleSize = 100

// Pricing converts token counts to money: fixed per-million-token rates plus
// a fixed currency conversion multiplier applied to the USD total.
type Pricing struct {
	InputPerMillion  float64
	OutputPerMillion float64
	FXRate           float64
}

// DefaultPricing matches the Gemini Flash rates the service is billed at,
// converted to AUD.
func DefaultPricing() Pricing {
	return Pricing{
		InputPerMillion:  0.075,
		OutputPerMillion: 0.30,
		FXRate:           1.5,
	}
}

// Total returns the converted cost for the given token counts.
func (p Pricing) Total(inputTokens, outputTokens int) float64 {
	usd := float64(inputTokens)/1_000_000*p.InputPerMillion +
		float64(outputTokens)/1_000_000*p.OutputPerMillion
	return usd * p.FXRate
}

// Cost is a statistical estimate of what a batch cost, for observability.
// It is extrapolated from a sample, not an exact accounting.
type Cost struct {
	Estimated    float64 `json:"estimated_cost"`
	InputTokens  int     `json:"estimated_input_tokens"`
	OutputTokens int     `json:"estimated_output_tokens"`
}

// estimate samples up to maxSampleSize (input, output) pairs without
// replacement, counts tokens of the rendered prompts and marshaled outputs,
// and scales by total/sample to extrapolate the full batch.
func estimate[T any](r *Runner, chain *Chain[T], inputs []Input, outputs []T) Cost {
	total := len(inputs)
	if total == 0 {
		return Cost{}
	}

	count := r.Counter
	if count == nil {
		count = llm.CountChars
	}

	sampleSize := total
	if sampleSize > maxSampleSize {
		sampleSize = maxSampleSize
	}

	indices := samplePerm(r.Rand, total)[:sampleSize]

	inputTokens, outputTokens := 0, 0
	for _, i := range indices {
		if prompt, err := chain.Render(inputs[i]); err == nil {
			inputTokens += count(prompt.Text())
		}
		if b, err := json.Marshal(outputs[i]); err == nil {
			outputTokens += count(string(b))
		}
	}

	scale := float64(total) / float64(sampleSize)
	estIn := int(float64(inputTokens) * scale)
	estOut := int(float64(outputTokens) * scale)

	return Cost{
		Estimated:    r.Pricing.Total(estIn, estOut),
		InputTokens:  estIn,
		OutputTokens: estOut,
	}
}

func samplePerm(rng *rand.Rand, n int) []int {
	if rng != nil {
		return rng.Perm(n)
	}
	return rand.Perm(n)
}
