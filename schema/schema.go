// Package schema holds the named response schemas used across the pipeline.
// Each type is bound once to a jsonschema definition and an explicit default
// constructor; defaults are a contract, not something inferred by reflection,
// so the batch runner can substitute a schema-valid empty instance when a
// completion call fails.
package schema

import "github.com/modelcontextprotocol/go-sdk/jsonschema"

// ClarityCheck reports whether the images and messages are sufficient to
// identify all ingredients and estimate their quantities.
type ClarityCheck struct {
	IsClearEnough   bool   `json:"is_clear_enough"`
	MissingInfo     string `json:"missing_info"`
	Reasoning       string `json:"reasoning"`
	FollowUpMessage string `json:"follow_up_message"`
}

func ClarityCheckSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:        "object",
		Description: "Determines if ingredients can be identified and quantities estimated from the provided images and messages.",
		Properties: map[string]*jsonschema.Schema{
			"is_clear_enough": {
				Type:        "boolean",
				Description: "Whether the images and messages are clear enough to identify all ingredients and estimate quantities.",
			},
			"missing_info": {
				Type:        "string",
				Description: "What additional information would be helpful, if any.",
			},
			"reasoning": {
				Type:        "string",
				Description: "Explanation of why the current information is or isn't sufficient.",
			},
			"follow_up_message": {
				Type:        "string",
				Description: "A message to send back to the user.",
			},
		},
		Required: []string{"is_clear_enough", "missing_info", "reasoning", "follow_up_message"},
	}
}

func DefaultClarityCheck() ClarityCheck { return ClarityCheck{} }

// IngredientExtraction lists the ingredients seen in the images together with
// positionally aligned quantity estimates.
type IngredientExtraction struct {
	Ingredients []string `json:"ingredients"`
	Quantities  []string `json:"quantities"`
	Reasoning   string   `json:"reasoning"`
}

func IngredientExtractionSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"ingredients": {
				Type:        "array",
				Description: "Unique names of ingredients seen in the images.",
				Items:       &jsonschema.Schema{Type: "string"},
			},
			"quantities": {
				Type:        "array",
				Description: "Quantities for each ingredient, in standard metric units, aligned with the ingredients list.",
				Items:       &jsonschema.Schema{Type: "string"},
			},
			"reasoning": {
				Type:        "string",
				Description: "How ingredients were identified and any assumptions made about quantities.",
			},
		},
		Required: []string{"ingredients", "quantities", "reasoning"},
	}
}

func DefaultIngredientExtraction() IngredientExtraction {
	return IngredientExtraction{Ingredients: []string{}, Quantities: []string{}}
}

// IngredientAssessment is the safety and shelf-life judgment for one
// ingredient. Assessments are immutable once created.
type IngredientAssessment struct {
	Ingredient         string `json:"ingredient"`
	IsSafeToConsume    bool   `json:"is_safe_to_consume"`
	RemainingShelfLife string `json:"remaining_shelf_life"`
	Reasoning          string `json:"reasoning"`
}

func IngredientAssessmentSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"ingredient": {
				Type:        "string",
				Description: "The name of the ingredient being assessed.",
			},
			"is_safe_to_consume": {
				Type:        "boolean",
				Description: "Whether the ingredient appears safe to consume based on visual inspection.",
			},
			"remaining_shelf_life": {
				Type:        "string",
				Description: "Remaining shelf life under standard storage conditions, with number and units.",
			},
			"reasoning": {
				Type:        "string",
				Description: "Explanation of any decisions made about safety and shelf life.",
			},
		},
		Required: []string{"ingredient", "is_safe_to_consume", "remaining_shelf_life", "reasoning"},
	}
}

func DefaultIngredientAssessment() IngredientAssessment { return IngredientAssessment{} }

// RecipeMatch scores a retrieved recipe candidate against the user's query.
// A candidate matches if it contains any requested ingredient; the score
// rewards overlap breadth and penalizes quantity overshoot and mismatched
// ingredient state (tomato sauce does not satisfy tomatoes).
type RecipeMatch struct {
	Reasoning  string  `json:"reasoning"`
	IsMatch    bool    `json:"is_match"`
	MatchScore float64 `json:"match_score"`
}

func RecipeMatchSchema() *jsonschema.Schema {
	minScore := 0.0
	maxScore := 100.0
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"reasoning": {
				Type:        "string",
				Description: "A short explanation of the match decision for the customer to read.",
			},
			"is_match": {
				Type:        "boolean",
				Description: "True if any requested ingredient is present in the recipe, false otherwise.",
			},
			"match_score": {
				Type:        "number",
				Minimum:     &minScore,
				Maximum:     &maxScore,
				Description: "Match quality between 0 and 100, higher is better.",
			},
		},
		Required: []string{"reasoning", "is_match", "match_score"},
	}
}

func DefaultRecipeMatch() RecipeMatch { return RecipeMatch{} }
