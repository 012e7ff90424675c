package recipes

// Mode selects how strictly a recipe sticks to the on-hand ingredients.
type Mode string

const (
	// ModeUseItUp builds a recipe from the listed ingredients only.
	ModeUseItUp Mode = "use-it-up"
	// ModeBestFit uses most of the listed ingredients and names the few
	// missing ones.
	ModeBestFit Mode = "best-fit"
)

// Preferences narrow the generated recipe. Empty fields are unconstrained.
type Preferences struct {
	CookingTime string   `json:"cooking_time,omitempty"`
	Flavor      string   `json:"flavor,omitempty"`
	Cuisine     string   `json:"cuisine,omitempty"`
	Difficulty  string   `json:"difficulty,omitempty"`
	Dietary     []string `json:"dietary,omitempty"`
}

// Ingredient is one recipe ingredient with its amount.
type Ingredient struct {
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit"`
}

// Recipe is a generated recipe with per-serving macros.
type Recipe struct {
	Name               string       `json:"name"`
	Ingredients        []Ingredient `json:"ingredients"`
	Instructions       []string     `json:"instructions"`
	CaloriesPerServing float64      `json:"calories_per_serving"`
	ProteinPerServing  float64      `json:"protein_per_serving"`
	CarbsPerServing    float64      `json:"carbs_per_serving"`
	FatsPerServing     float64      `json:"fats_per_serving"`
	Servings           int          `json:"servings"`
	AppliancesRequired []string     `json:"appliances_required,omitempty"`
	MissingIngredients []string     `json:"missing_ingredients,omitempty"`
	CookingTime        int          `json:"cooking_time,omitempty"`
	PrepTime           int          `json:"prep_time,omitempty"`
	TotalTime          int          `json:"total_time,omitempty"`
	Difficulty         string       `json:"difficulty,omitempty"`
	CuisineType        string       `json:"cuisine_type,omitempty"`
	DietaryTags        []string     `json:"dietary_tags,omitempty"`
	Tips               []string     `json:"tips,omitempty"`
}
