// Package retrieve combines cheap hybrid retrieval with an expensive LLM
// re-ranking pass applied only to the shortlist.
package retrieve

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"savouragent/batch"
	"savouragent/llm"
	"savouragent/schema"
	"savouragent/search"
)

const defaultK = 10

const matchSystemPrompt = `-- Role --
You are an expert chef working for an online recipe recommendation service.

-- Task --
You are given a customer request and a recipe candidate. Determine whether
the recipe is a good match for the request.

-- Instructions --
- is_match: the recipe is a match if it contains ANY of the requested
  ingredients; if none are present it is not a match.
- match_score (0-100, higher is better):
  1. Match on ingredients, ingredient state, and ingredient quantity.
     Pay attention to ingredient state: if the customer requests "tomatoes"
     and the recipe uses "tomato sauce", that is NOT a good match.
     More of the requested ingredients present means a higher score.
     If the recipe uses MORE of an ingredient than the customer has
     available, the score should be lower.
  2. Match on description: the description should be relevant to the
     customer query.`

// Options are the caller's optional retrieval constraints.
type Options struct {
	K                   int
	Servings            int
	MaxTotalTime        int
	Ingredients         []string
	MealTypes           []string
	CourseTypes         []string
	DietaryRestrictions []string
	DifficultyLevels    []string
}

func (o Options) filters() search.Filters {
	return search.Filters{
		Servings:            o.Servings,
		MaxTotalTime:        o.MaxTotalTime,
		Ingredients:         o.Ingredients,
		MealTypes:           o.MealTypes,
		CourseTypes:         o.CourseTypes,
		DietaryRestrictions: o.DietaryRestrictions,
		DifficultyLevels:    o.DifficultyLevels,
	}
}

// Candidate is a retrieved document plus its query-specific scoring fields.
// Scores are transient; they are never written back to the corpus.
type Candidate struct {
	search.Document
	Reasoning  string
	MatchScore float64
}

// Retriever wires the hybrid searcher to the re-ranking chain.
type Retriever struct {
	searcher search.Searcher
	client   llm.Client
	runner   *batch.Runner
}

func NewRetriever(searcher search.Searcher, client llm.Client, runner *batch.Runner) *Retriever {
	return &Retriever{searcher: searcher, client: client, runner: runner}
}

// Retrieve runs the two-phase pipeline: hybrid search under the constructed
// pre-filters, then one RecipeMatch completion per hit. Non-matches are
// dropped and the rest sorted by match score descending; ties keep their
// retrieval order.
func (r *Retriever) Retrieve(ctx context.Context, query string, opts Options) ([]Candidate, batch.Cost, error) {
	k := opts.K
	if k <= 0 {
		k = defaultK
	}

	slog.Info("RETRIEVE: Searching corpus", "query", query, "k", k)
	docs, err := r.searcher.Search(ctx, query, k, opts.filters())
	if err != nil {
		return nil, batch.Cost{}, fmt.Errorf("hybrid search: %w", err)
	}
	if len(docs) == 0 {
		return nil, batch.Cost{}, nil
	}

	inputs := make([]batch.Input, len(docs))
	for i, doc := range docs {
		inputs[i] = batch.Input{
			"query":            query,
			"recipe_candidate": candidateSummary(doc),
		}
	}

	chain := &batch.Chain[schema.RecipeMatch]{
		Client:  r.client,
		Render:  renderMatch,
		Schema:  schema.RecipeMatchSchema(),
		Default: schema.DefaultRecipeMatch,
	}

	matches, cost, err := batch.Run(ctx, r.runner, chain, inputs)
	if err != nil {
		return nil, cost, fmt.Errorf("re-rank candidates: %w", err)
	}

	kept := make([]Candidate, 0, len(docs))
	for i, doc := range docs {
		doc.Metadata["reasoning"] = matches[i].Reasoning
		doc.Metadata["match_score"] = matches[i].MatchScore
		if !matches[i].IsMatch {
			continue
		}
		kept = append(kept, Candidate{
			Document:   doc,
			Reasoning:  matches[i].Reasoning,
			MatchScore: matches[i].MatchScore,
		})
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].MatchScore > kept[j].MatchScore
	})

	slog.Info("RETRIEVE: Re-ranking complete",
		"retrieved", len(docs),
		"matched", len(kept),
		"estimated_cost", cost.Estimated,
	)
	return kept, cost, nil
}

func renderMatch(in batch.Input) (llm.Prompt, error) {
	query, ok := in["query"].(string)
	if !ok {
		return llm.Prompt{}, fmt.Errorf("input missing query")
	}
	candidate, ok := in["recipe_candidate"].(string)
	if !ok {
		return llm.Prompt{}, fmt.Errorf("input missing recipe_candidate")
	}
	return llm.Prompt{Messages: []llm.Message{
		{Role: llm.RoleSystem, Content: matchSystemPrompt},
		{Role: llm.RoleUser, Content: fmt.Sprintf("Customer query: %s\nRecipe details: %s", query, candidate)},
	}}, nil
}

// candidateSummary renders the candidate the way the re-ranking prompt
// expects it: title, snippet, then display description.
func candidateSummary(doc search.Document) string {
	display, _ := doc.Metadata["display_description"].(string)
	return doc.Title() + "\n\n" + doc.Content + "\n\n" + display
}
