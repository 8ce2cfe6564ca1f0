package recipes

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"savouragent/batch"
	"savouragent/llm"
	"savouragent/schema"
)

// schemaDispatchClient answers each enrichment chain based on the target
// schema it was invoked with, since every chain renders the same prompt.
type schemaDispatchClient struct {
	reply func(target *jsonschema.Schema, raw string) (any, error)
}

func (c *schemaDispatchClient) Invoke(ctx context.Context, prompt llm.Prompt, target *jsonschema.Schema) (json.RawMessage, error) {
	raw := prompt.Messages[len(prompt.Messages)-1].Content
	v, err := c.reply(target, raw)
	if err != nil {
		return nil, err
	}
	return json.Marshal(v)
}

func hasProperty(target *jsonschema.Schema, name string) bool {
	_, ok := target.Properties[name]
	return ok
}

func enrichmentReply(target *jsonschema.Schema, raw string) (any, error) {
	switch {
	case hasProperty(target, "title"):
		return schema.ExtractedTitle{Title: "Tomato Soup"}, nil
	case hasProperty(target, "active_preparation_time"):
		return schema.ExtractedTimes{ActiveMinutes: 10, InactiveMinutes: 0, CookingMinutes: 20}, nil
	case hasProperty(target, "ingredient_groups"):
		return schema.RecipeParts{
			IngredientGroups: []schema.IngredientGroupParts{
				{Names: []string{"tomatoes", "onions"}, Quantities: []string{"500 g", "1"}},
			},
			InstructionGroups: [][]string{{"chop", "simmer"}},
			Servings:          2,
		}, nil
	case hasProperty(target, "difficulty_level"):
		return schema.RecipeTags{
			Difficulty:    "easy",
			CookingMethod: "stovetop",
			MealTypes:     []string{"dinner"},
			CourseTypes:   []string{"main"},
		}, nil
	case hasProperty(target, "search_description"):
		return schema.RecipeDescriptions{
			SearchDescription:  "tomato onion soup",
			DisplayDescription: "A cozy tomato soup.",
		}, nil
	default:
		return nil, fmt.Errorf("unexpected schema")
	}
}

func TestEnrichAssemblesAlignedRecords(t *testing.T) {
	client := &schemaDispatchClient{reply: enrichmentReply}
	enricher := NewEnricher(client, batch.NewRunner())

	rawTexts := []string{"Tomato Soup recipe text...", "Another recipe text..."}
	records, cost, err := enricher.Enrich(context.Background(), rawTexts)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Greater(t, cost.Estimated, 0.0)

	r := records[0]
	assert.Equal(t, NewID(rawTexts[0]), r.ID)
	assert.Equal(t, "Tomato Soup", r.Title)
	assert.Equal(t, 2, r.Servings)
	assert.Equal(t, 30, r.TotalMinutes())
	assert.Equal(t, []string{"tomatoes", "onions"}, r.IngredientNames())
	assert.Equal(t, "easy", r.Difficulty)
	assert.Equal(t, "tomato onion soup", r.SearchDescription)
	assert.Equal(t, rawTexts[0], r.RawSource)
	assert.True(t, r.Valid())

	// Distinct sources get distinct deterministic IDs.
	assert.NotEqual(t, records[0].ID, records[1].ID)
}

func TestEnrichFailedChainItemYieldsInvalidRecord(t *testing.T) {
	client := &schemaDispatchClient{reply: func(target *jsonschema.Schema, raw string) (any, error) {
		if hasProperty(target, "ingredient_groups") && strings.Contains(raw, "broken") {
			return nil, fmt.Errorf("provider error")
		}
		return enrichmentReply(target, raw)
	}}
	enricher := NewEnricher(client, batch.NewRunner())

	records, _, err := enricher.Enrich(context.Background(), []string{"good recipe", "broken recipe"})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.True(t, records[0].Valid())
	// The failed parts extraction defaults to empty groups, so the record is
	// filtered later by the loader.
	assert.False(t, records[1].Valid())
}

type captureSink struct {
	records []Record
	err     error
}

func (c *captureSink) Upsert(ctx context.Context, records []Record) error {
	c.records = append(c.records, records...)
	return c.err
}

func TestLoaderFiltersInvalidRecords(t *testing.T) {
	client := &schemaDispatchClient{reply: func(target *jsonschema.Schema, raw string) (any, error) {
		if hasProperty(target, "ingredient_groups") && strings.Contains(raw, "broken") {
			return nil, fmt.Errorf("provider error")
		}
		return enrichmentReply(target, raw)
	}}

	sink := &captureSink{}
	loader := NewLoader(NewEnricher(client, batch.NewRunner()), sink)

	stats, err := loader.Load(context.Background(), []string{"good recipe", "broken recipe"})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Scanned)
	assert.Equal(t, 1, stats.Loaded)
	assert.Equal(t, 1, stats.Filtered)
	require.Len(t, sink.records, 1)
	assert.Equal(t, "Tomato Soup", sink.records[0].Title)
}

func TestLoaderEmptyInput(t *testing.T) {
	sink := &captureSink{}
	loader := NewLoader(NewEnricher(&schemaDispatchClient{reply: enrichmentReply}, batch.NewRunner()), sink)

	stats, err := loader.Load(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, stats.Scanned)
	assert.Empty(t, sink.records)
}

func TestReadRawTexts(t *testing.T) {
	input := strings.Join([]string{
		`{"raw_text":"recipe one"}`,
		``,
		`{"raw_text":""}`,
		`{"raw_text":"recipe two"}`,
	}, "\n")

	texts, err := ReadRawTexts(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, []string{"recipe one", "recipe two"}, texts)
}

func TestReadRawTextsBadJSON(t *testing.T) {
	_, err := ReadRawTexts(strings.NewReader("{not json}"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 1")
}
