// Package search defines the hybrid-search boundary: a query plus metadata
// pre-filters in, ranked documents with metadata out.
package search

import "context"

// Filters are the optional hard constraints applied alongside similarity
// ranking. Zero values mean "no constraint" and are omitted from the
// rendered filter map.
type Filters struct {
	Servings            int      // recipes serving more than this
	MaxTotalTime        int      // total_time strictly under this, minutes
	Ingredients         []string // ingredient name inclusion
	MealTypes           []string
	CourseTypes         []string
	DietaryRestrictions []string
	DifficultyLevels    []string
}

// Map renders the filters in operator form. Only supplied constraints appear:
// servings uses $gt, total time uses $lt, the list filters use $in.
func (f Filters) Map() map[string]any {
	pre := map[string]any{}
	if f.Servings > 0 {
		pre["servings"] = map[string]any{"$gt": f.Servings}
	}
	if f.MaxTotalTime > 0 {
		pre["total_time"] = map[string]any{"$lt": f.MaxTotalTime}
	}
	if len(f.MealTypes) > 0 {
		pre["meal_types"] = map[string]any{"$in": f.MealTypes}
	}
	if len(f.CourseTypes) > 0 {
		pre["course_types"] = map[string]any{"$in": f.CourseTypes}
	}
	if len(f.DietaryRestrictions) > 0 {
		pre["dietary_restrictions"] = map[string]any{"$in": f.DietaryRestrictions}
	}
	if len(f.Ingredients) > 0 {
		pre["ingredient_names"] = map[string]any{"$in": f.Ingredients}
	}
	if len(f.DifficultyLevels) > 0 {
		pre["difficulty_level"] = map[string]any{"$in": f.DifficultyLevels}
	}
	return pre
}

// Document is one ranked hit: a content snippet plus its metadata map.
type Document struct {
	Content  string
	Metadata map[string]any
}

// Title returns the metadata title, if present.
func (d Document) Title() string {
	if t, ok := d.Metadata["title"].(string); ok {
		return t
	}
	return ""
}

// Searcher is the hybrid (vector + full text) retrieval boundary.
type Searcher interface {
	Search(ctx context.Context, query string, k int, filters Filters) ([]Document, error)
}
