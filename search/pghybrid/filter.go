package pghybrid

import (
	"fmt"
	"strings"

	"savouragent/search"
)

// buildFilterClause renders the metadata pre-filters as a SQL WHERE clause.
// Placeholders start at startArg because the surrounding query already binds
// the embedding, limit, and query text. Unset filters contribute nothing.
func buildFilterClause(f search.Filters, startArg int) (string, []any) {
	var conds []string
	var args []any
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", startArg+len(args)-1)
	}

	if f.Servings > 0 {
		conds = append(conds, fmt.Sprintf("servings > %s", next(f.Servings)))
	}
	if f.MaxTotalTime > 0 {
		conds = append(conds, fmt.Sprintf("total_time < %s", next(f.MaxTotalTime)))
	}
	if len(f.MealTypes) > 0 {
		conds = append(conds, fmt.Sprintf("meal_types && %s", next(f.MealTypes)))
	}
	if len(f.CourseTypes) > 0 {
		conds = append(conds, fmt.Sprintf("course_types && %s", next(f.CourseTypes)))
	}
	if len(f.DietaryRestrictions) > 0 {
		conds = append(conds, fmt.Sprintf("dietary_restrictions && %s", next(f.DietaryRestrictions)))
	}
	if len(f.Ingredients) > 0 {
		conds = append(conds, fmt.Sprintf("ingredient_names && %s", next(f.Ingredients)))
	}
	if len(f.DifficultyLevels) > 0 {
		conds = append(conds, fmt.Sprintf("difficulty_level = ANY(%s)", next(f.DifficultyLevels)))
	}

	if len(conds) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}
