package recipes

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/zombor/pantry-tracker/internal/scanning"
)

// Generator produces recipes from on-hand ingredient names via a text
// generation service.
type Generator struct {
	generator scanning.TextGenerator
}

// NewGenerator creates a Generator.
func NewGenerator(generator scanning.TextGenerator) *Generator {
	return &Generator{generator: generator}
}

// Generate builds and runs the recipe prompt. Unlike receipt extraction a
// recipe has no meaningful empty value, so an undecodable response is an
// error here.
func (g *Generator) Generate(ctx context.Context, ingredients []string, mode Mode, appliances []string, prefs Preferences) (*Recipe, error) {
	if len(ingredients) == 0 {
		return nil, fmt.Errorf("at least one ingredient is required")
	}
	if mode != ModeUseItUp && mode != ModeBestFit {
		return nil, fmt.Errorf("unknown recipe mode %q", mode)
	}

	raw, err := g.generator.Generate(ctx, buildPrompt(ingredients, mode, appliances, prefs))
	if err != nil {
		return nil, fmt.Errorf("generating recipe: %w", err)
	}

	recipe, err := parseRecipe(raw)
	if err != nil {
		return nil, err
	}
	return recipe, nil
}

func parseRecipe(raw string) (*Recipe, error) {
	text := scanning.StripCodeFences(raw)

	var recipe Recipe
	if err := json.Unmarshal([]byte(text), &recipe); err != nil {
		embedded, found := scanning.FirstPayload(text)
		if !found || !strings.HasPrefix(embedded, "{") {
			return nil, fmt.Errorf("no recipe payload in response")
		}
		if err := json.Unmarshal([]byte(embedded), &recipe); err != nil {
			return nil, fmt.Errorf("decoding recipe: %w", err)
		}
	}

	if strings.TrimSpace(recipe.Name) == "" {
		return nil, fmt.Errorf("recipe payload has no name")
	}
	return &recipe, nil
}

func buildPrompt(ingredients []string, mode Mode, appliances []string, prefs Preferences) string {
	var modePrompt string
	if mode == ModeUseItUp {
		modePrompt = fmt.Sprintf("Create a recipe using ONLY these ingredients: %s. Do not suggest any additional ingredients.", strings.Join(ingredients, ", "))
	} else {
		modePrompt = fmt.Sprintf("Create a recipe that uses approximately 80%% of these ingredients: %s. List the 2-3 missing ingredients needed.", strings.Join(ingredients, ", "))
	}

	var applianceContext string
	if len(appliances) > 0 {
		applianceContext = fmt.Sprintf(" The user has these appliances available: %s. Prioritize recipes that use these appliances.", strings.Join(appliances, ", "))
	}

	var constraints []string
	if prefs.CookingTime != "" {
		constraints = append(constraints, "Cooking time preference: "+prefs.CookingTime)
	}
	if prefs.Flavor != "" {
		constraints = append(constraints, "Flavor preference: "+prefs.Flavor)
	}
	if prefs.Cuisine != "" {
		constraints = append(constraints, "Preferred cuisine: "+prefs.Cuisine)
	}
	if prefs.Difficulty != "" {
		constraints = append(constraints, "Difficulty level: "+prefs.Difficulty)
	}
	if len(prefs.Dietary) > 0 {
		constraints = append(constraints, "Dietary requirements: "+strings.Join(prefs.Dietary, ", "))
	}
	var preferencesText string
	if len(constraints) > 0 {
		preferencesText = fmt.Sprintf("\n\nUser preferences:\n%s\n\nPlease ensure the recipe matches these preferences.", strings.Join(constraints, "\n"))
	}

	return fmt.Sprintf(`You are a professional chef and nutritionist. %s%s%s

Return the recipe as JSON in this exact format:
{
  "name": "Recipe Name",
  "ingredients": [
    {
      "name": "ingredient name",
      "quantity": number,
      "unit": "unit type"
    }
  ],
  "instructions": ["step 1", "step 2"],
  "calories_per_serving": number,
  "protein_per_serving": number,
  "carbs_per_serving": number,
  "fats_per_serving": number,
  "servings": number,
  "appliances_required": ["appliance1", "appliance2"],
  "missing_ingredients": ["item1", "item2"] (only if some ingredients are missing),
  "cooking_time": number (total cooking time in minutes),
  "prep_time": number (preparation time in minutes),
  "total_time": number (prep_time + cooking_time in minutes),
  "difficulty": "Easy" | "Medium" | "Hard",
  "cuisine_type": "string (e.g., Italian, Asian, American)",
  "dietary_tags": ["Vegetarian", "Gluten-Free"] (if applicable),
  "tips": ["helpful tip 1", "helpful tip 2"] (2-3 cooking tips)
}

Only return valid JSON, no additional text`, modePrompt, applianceContext, preferencesText)
}
