// Package recipes models the recipe corpus records produced by the offline
// ingestion pipeline and read by retrieval.
package recipes

import (
	"github.com/google/uuid"
)

// Record is one corpus recipe. Records are read-only once ingested; scoring
// fields added during a query live on retrieval candidates, never here.
type Record struct {
	ID                uuid.UUID          `json:"uuid"`
	Title             string             `json:"title"`
	IngredientGroups  []IngredientGroup  `json:"ingredient_groups"`
	InstructionGroups []InstructionGroup `json:"instruction_groups"`

	Servings        int `json:"servings"`
	ActiveMinutes   int `json:"active_preparation_time"`
	InactiveMinutes int `json:"inactive_preparation_time"`
	CookingMinutes  int `json:"cooking_time"`

	Difficulty          string   `json:"difficulty_level"`
	CookingMethod       string   `json:"cooking_method"`
	Equipment           []string `json:"equipment"`
	CleanupEffort       string   `json:"cleanup_effort"`
	MealTypes           []string `json:"meal_types"`
	CourseTypes         []string `json:"course_types"`
	DietaryRestrictions []string `json:"dietary_restrictions"`

	SearchDescription  string `json:"search_description"`
	DisplayDescription string `json:"display_description"`

	// RawSource is the scraped text the record was extracted from; it seeds
	// the deterministic ID.
	RawSource string `json:"raw_source,omitempty"`
}

// IngredientGroup is one recipe section with positionally aligned names and
// quantities.
type IngredientGroup struct {
	Names      []string `json:"names"`
	Quantities []string `json:"quantities"`
}

// InstructionGroup is one ordered block of instruction steps.
type InstructionGroup struct {
	Steps []string `json:"steps"`
}

// NewID derives the record's UUID from a seed string with a namespace hash,
// so re-ingesting the same source yields the same ID.
func NewID(seed string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceDNS, []byte(seed))
}

// TotalMinutes is active + inactive + cooking time.
func (r *Record) TotalMinutes() int {
	return r.ActiveMinutes + r.InactiveMinutes + r.CookingMinutes
}

// IngredientNames flattens all ingredient groups into one name list.
func (r *Record) IngredientNames() []string {
	var names []string
	for _, g := range r.IngredientGroups {
		names = append(names, g.Names...)
	}
	return names
}

// Quantities flattens all ingredient groups into one quantity list, aligned
// with IngredientNames.
func (r *Record) Quantities() []string {
	var quantities []string
	for _, g := range r.IngredientGroups {
		quantities = append(quantities, g.Quantities...)
	}
	return quantities
}

// Valid reports whether the record belongs in the corpus. Records with no
// instructions or no ingredient groups are filtered out at ingestion.
func (r *Record) Valid() bool {
	if len(r.IngredientGroups) == 0 || len(r.InstructionGroups) == 0 {
		return false
	}
	hasNames := false
	for _, g := range r.IngredientGroups {
		if len(g.Names) > 0 {
			hasNames = true
			break
		}
	}
	if !hasNames {
		return false
	}
	for _, g := range r.InstructionGroups {
		if len(g.Steps) > 0 {
			return true
		}
	}
	return false
}
