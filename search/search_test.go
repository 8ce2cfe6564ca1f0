package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFiltersMap(t *testing.T) {
	tests := []struct {
		name     string
		filters  Filters
		expected map[string]any
	}{
		{
			name:     "empty filters render nothing",
			filters:  Filters{},
			expected: map[string]any{},
		},
		{
			name:    "pasta dinner under 30 minutes",
			filters: Filters{MaxTotalTime: 30, Ingredients: []string{"pasta"}},
			expected: map[string]any{
				"total_time":       map[string]any{"$lt": 30},
				"ingredient_names": map[string]any{"$in": []string{"pasta"}},
			},
		},
		{
			name: "all constraints",
			filters: Filters{
				Servings:            2,
				MaxTotalTime:        45,
				Ingredients:         []string{"tomatoes", "onions"},
				MealTypes:           []string{"dinner"},
				CourseTypes:         []string{"main"},
				DietaryRestrictions: []string{"vegetarian"},
				DifficultyLevels:    []string{"easy", "medium"},
			},
			expected: map[string]any{
				"servings":             map[string]any{"$gt": 2},
				"total_time":           map[string]any{"$lt": 45},
				"ingredient_names":     map[string]any{"$in": []string{"tomatoes", "onions"}},
				"meal_types":           map[string]any{"$in": []string{"dinner"}},
				"course_types":         map[string]any{"$in": []string{"main"}},
				"dietary_restrictions": map[string]any{"$in": []string{"vegetarian"}},
				"difficulty_level":     map[string]any{"$in": []string{"easy", "medium"}},
			},
		},
		{
			name:     "zero servings is no constraint",
			filters:  Filters{Servings: 0},
			expected: map[string]any{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.filters.Map())
		})
	}
}

func TestDocumentTitle(t *testing.T) {
	assert.Equal(t, "Shakshuka", Document{Metadata: map[string]any{"title": "Shakshuka"}}.Title())
	assert.Equal(t, "", Document{Metadata: map[string]any{}}.Title())
	assert.Equal(t, "", Document{Metadata: map[string]any{"title": 7}}.Title())
}
