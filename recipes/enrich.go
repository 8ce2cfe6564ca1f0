package recipes

import (
	"context"
	"fmt"
	"log/slog"

	"savouragent/batch"
	"savouragent/llm"
	"savouragent/schema"
)

const enrichSystemPrompt = `-- Role --
You are an expert chef with a deep understanding of recipes and ingredients.

-- Task --
You are given the raw text of a scraped recipe. Extract the requested fields.
Think step by step about the text before answering. Estimate anything the
text does not state outright.`

// Enricher turns raw scraped recipe text into structured records by running
// one extraction chain per concern over the whole corpus. Rows stay aligned
// with the input texts; a failed item yields defaulted fields for that row.
type Enricher struct {
	client llm.Client
	runner *batch.Runner
}

func NewEnricher(client llm.Client, runner *batch.Runner) *Enricher {
	return &Enricher{client: client, runner: runner}
}

func renderRaw(in batch.Input) (llm.Prompt, error) {
	raw, ok := in["raw_text"].(string)
	if !ok {
		return llm.Prompt{}, fmt.Errorf("input missing raw_text")
	}
	return llm.Prompt{Messages: []llm.Message{
		{Role: llm.RoleSystem, Content: enrichSystemPrompt},
		{Role: llm.RoleUser, Content: "Here is the text containing the recipe:\n\n" + raw},
	}}, nil
}

// Enrich extracts titles, times, parts, tags, and descriptions for every raw
// text and assembles aligned records. The returned cost aggregates all
// extraction passes.
func (e *Enricher) Enrich(ctx context.Context, rawTexts []string) ([]Record, batch.Cost, error) {
	inputs := make([]batch.Input, len(rawTexts))
	for i, raw := range rawTexts {
		inputs[i] = batch.Input{"raw_text": raw}
	}

	var total batch.Cost
	add := func(c batch.Cost) {
		total.Estimated += c.Estimated
		total.InputTokens += c.InputTokens
		total.OutputTokens += c.OutputTokens
	}

	titles, cost, err := batch.Run(ctx, e.runner, &batch.Chain[schema.ExtractedTitle]{
		Client:  e.client,
		Render:  renderRaw,
		Schema:  schema.ExtractedTitleSchema(),
		Default: schema.DefaultExtractedTitle,
	}, inputs)
	if err != nil {
		return nil, total, fmt.Errorf("extract titles: %w", err)
	}
	add(cost)

	times, cost, err := batch.Run(ctx, e.runner, &batch.Chain[schema.ExtractedTimes]{
		Client:  e.client,
		Render:  renderRaw,
		Schema:  schema.ExtractedTimesSchema(),
		Default: schema.DefaultExtractedTimes,
	}, inputs)
	if err != nil {
		return nil, total, fmt.Errorf("extract times: %w", err)
	}
	add(cost)

	parts, cost, err := batch.Run(ctx, e.runner, &batch.Chain[schema.RecipeParts]{
		Client:  e.client,
		Render:  renderRaw,
		Schema:  schema.RecipePartsSchema(),
		Default: schema.DefaultRecipeParts,
	}, inputs)
	if err != nil {
		return nil, total, fmt.Errorf("extract parts: %w", err)
	}
	add(cost)

	tags, cost, err := batch.Run(ctx, e.runner, &batch.Chain[schema.RecipeTags]{
		Client: e.client,
		Render: renderRaw,
		Schema: schema.RecipeTagsSchema(
			DifficultyLevels, CookingMethods, Equipment, CleanupEfforts,
			MealTypes, CourseTypes, DietaryRestrictions,
		),
		Default: schema.DefaultRecipeTags,
	}, inputs)
	if err != nil {
		return nil, total, fmt.Errorf("extract tags: %w", err)
	}
	add(cost)

	descriptions, cost, err := batch.Run(ctx, e.runner, &batch.Chain[schema.RecipeDescriptions]{
		Client:  e.client,
		Render:  renderRaw,
		Schema:  schema.RecipeDescriptionsSchema(),
		Default: schema.DefaultRecipeDescriptions,
	}, inputs)
	if err != nil {
		return nil, total, fmt.Errorf("extract descriptions: %w", err)
	}
	add(cost)

	records := make([]Record, len(rawTexts))
	for i, raw := range rawTexts {
		groups := make([]IngredientGroup, 0, len(parts[i].IngredientGroups))
		for _, g := range parts[i].IngredientGroups {
			groups = append(groups, IngredientGroup{Names: g.Names, Quantities: g.Quantities})
		}
		instructions := make([]InstructionGroup, 0, len(parts[i].InstructionGroups))
		for _, steps := range parts[i].InstructionGroups {
			instructions = append(instructions, InstructionGroup{Steps: steps})
		}

		records[i] = Record{
			ID:                  NewID(raw),
			Title:               titles[i].Title,
			IngredientGroups:    groups,
			InstructionGroups:   instructions,
			Servings:            parts[i].Servings,
			ActiveMinutes:       times[i].ActiveMinutes,
			InactiveMinutes:     times[i].InactiveMinutes,
			CookingMinutes:      times[i].CookingMinutes,
			Difficulty:          tags[i].Difficulty,
			CookingMethod:       tags[i].CookingMethod,
			Equipment:           tags[i].Equipment,
			CleanupEffort:       tags[i].CleanupEffort,
			MealTypes:           tags[i].MealTypes,
			CourseTypes:         tags[i].CourseTypes,
			DietaryRestrictions: tags[i].DietaryRestrictions,
			SearchDescription:   descriptions[i].SearchDescription,
			DisplayDescription:  descriptions[i].DisplayDescription,
			RawSource:           raw,
		}
	}

	slog.Info("INGEST: Enrichment complete",
		"records", len(records),
		"estimated_cost", total.Estimated,
	)

	return records, total, nil
}
