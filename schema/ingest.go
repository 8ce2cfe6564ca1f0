package schema

import "github.com/modelcontextprotocol/go-sdk/jsonschema"

// Schemas used by the offline corpus enrichment pass. Raw scraped recipe text
// goes through one chain per schema; rows stay positionally aligned with the
// input texts throughout.

// ExtractedTitle is the inferred title of a scraped recipe.
type ExtractedTitle struct {
	Title string `json:"title"`
}

func ExtractedTitleSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"title": {
				Type:        "string",
				Description: "The title of the recipe. Short and descriptive, inferred when not stated.",
			},
		},
		Required: []string{"title"},
	}
}

func DefaultExtractedTitle() ExtractedTitle { return ExtractedTitle{} }

// ExtractedTimes holds the recipe's time breakdown in minutes. Total time is
// the sum of all three.
type ExtractedTimes struct {
	ActiveMinutes   int `json:"active_preparation_time"`
	InactiveMinutes int `json:"inactive_preparation_time"`
	CookingMinutes  int `json:"cooking_time"`
}

func ExtractedTimesSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"active_preparation_time": {
				Type:        "integer",
				Description: "Minutes of active preparation (chopping, kneading). Estimated when not stated.",
			},
			"inactive_preparation_time": {
				Type:        "integer",
				Description: "Minutes of waiting (rising, marinating). Estimated when not stated.",
			},
			"cooking_time": {
				Type:        "integer",
				Description: "Minutes of cooking (baking, boiling, frying). Estimated when not stated.",
			},
		},
		Required: []string{"active_preparation_time", "inactive_preparation_time", "cooking_time"},
	}
}

func DefaultExtractedTimes() ExtractedTimes { return ExtractedTimes{} }

// RecipeParts is the structured ingredient and instruction breakdown of a
// scraped recipe.
type RecipeParts struct {
	IngredientGroups  []IngredientGroupParts `json:"ingredient_groups"`
	InstructionGroups [][]string             `json:"instruction_groups"`
	Servings          int                    `json:"servings"`
}

// IngredientGroupParts pairs ingredient names with aligned quantities inside
// one recipe section.
type IngredientGroupParts struct {
	Names      []string `json:"names"`
	Quantities []string `json:"quantities"`
}

func RecipePartsSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"ingredient_groups": {
				Type:        "array",
				Description: "Ingredient sections; names and quantities are positionally aligned within each group.",
				Items: &jsonschema.Schema{
					Type: "object",
					Properties: map[string]*jsonschema.Schema{
						"names":      {Type: "array", Items: &jsonschema.Schema{Type: "string"}},
						"quantities": {Type: "array", Items: &jsonschema.Schema{Type: "string"}},
					},
					Required: []string{"names", "quantities"},
				},
			},
			"instruction_groups": {
				Type:        "array",
				Description: "Ordered instruction sections, each an ordered list of steps.",
				Items: &jsonschema.Schema{
					Type:  "array",
					Items: &jsonschema.Schema{Type: "string"},
				},
			},
			"servings": {
				Type:        "integer",
				Description: "Number of servings the recipe makes. Estimated when not stated.",
			},
		},
		Required: []string{"ingredient_groups", "instruction_groups", "servings"},
	}
}

func DefaultRecipeParts() RecipeParts {
	return RecipeParts{IngredientGroups: []IngredientGroupParts{}, InstructionGroups: [][]string{}}
}

// RecipeTags is the categorical labeling of a scraped recipe.
type RecipeTags struct {
	Difficulty          string   `json:"difficulty_level"`
	CookingMethod       string   `json:"cooking_method"`
	Equipment           []string `json:"equipment"`
	CleanupEffort       string   `json:"cleanup_effort"`
	MealTypes           []string `json:"meal_types"`
	CourseTypes         []string `json:"course_types"`
	DietaryRestrictions []string `json:"dietary_restrictions"`
}

// RecipeTagsSchema constrains every tag field to the given vocabularies.
func RecipeTagsSchema(difficulties, methods, equipment, cleanup, mealTypes, courseTypes, dietary []string) *jsonschema.Schema {
	enum := func(vals []string) []any {
		out := make([]any, len(vals))
		for i, v := range vals {
			out[i] = v
		}
		return out
	}
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"difficulty_level": {Type: "string", Enum: enum(difficulties)},
			"cooking_method":   {Type: "string", Enum: enum(methods)},
			"equipment": {
				Type:  "array",
				Items: &jsonschema.Schema{Type: "string", Enum: enum(equipment)},
			},
			"cleanup_effort": {Type: "string", Enum: enum(cleanup)},
			"meal_types": {
				Type:  "array",
				Items: &jsonschema.Schema{Type: "string", Enum: enum(mealTypes)},
			},
			"course_types": {
				Type:  "array",
				Items: &jsonschema.Schema{Type: "string", Enum: enum(courseTypes)},
			},
			"dietary_restrictions": {
				Type:  "array",
				Items: &jsonschema.Schema{Type: "string", Enum: enum(dietary)},
			},
		},
		Required: []string{
			"difficulty_level", "cooking_method", "equipment", "cleanup_effort",
			"meal_types", "course_types", "dietary_restrictions",
		},
	}
}

func DefaultRecipeTags() RecipeTags {
	return RecipeTags{
		Equipment:           []string{},
		MealTypes:           []string{},
		CourseTypes:         []string{},
		DietaryRestrictions: []string{},
	}
}

// RecipeDescriptions carries the two description strings: one optimized for
// embedding and search, one for display.
type RecipeDescriptions struct {
	SearchDescription  string `json:"search_description"`
	DisplayDescription string `json:"display_description"`
}

func RecipeDescriptionsSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"search_description": {
				Type:        "string",
				Description: "A dense factual description of the dish for embedding and search.",
			},
			"display_description": {
				Type:        "string",
				Description: "An appetizing description of the dish for display to customers.",
			},
		},
		Required: []string{"search_description", "display_description"},
	}
}

func DefaultRecipeDescriptions() RecipeDescriptions { return RecipeDescriptions{} }
