package recipes

// Controlled vocabularies for categorical recipe tags. The enrichment
// schemas constrain model output to these values.

var DifficultyLevels = []string{"easy", "moderate", "challenging", "expert"}

var CookingMethods = []string{
	"bake", "broil", "grill", "fry", "saute", "roast", "steam", "boil",
	"simmer", "slow_cook", "pressure_cook", "no_cook", "smoke", "ferment",
}

var Equipment = []string{
	"oven", "stovetop", "microwave", "grill", "slow_cooker", "pressure_cooker",
	"blender", "food_processor", "mixer", "baking_dish", "cutting_board",
	"knife", "pot", "pan", "sheet_pan",
}

var CleanupEfforts = []string{"minimal", "moderate", "significant"}

var MealTypes = []string{"breakfast", "brunch", "lunch", "dinner", "snack", "dessert"}

var CourseTypes = []string{"appetizer", "main", "side", "salad", "soup", "dessert", "beverage"}

var DietaryRestrictions = []string{
	"vegetarian", "vegan", "gluten_free", "dairy_free", "nut_free",
	"low_carb", "keto", "paleo", "halal", "kosher",
}
