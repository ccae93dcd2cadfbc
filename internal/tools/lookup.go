package tools

import (
	"context"
	"strings"

	"github.com/kalambet/heracles/internal/catalog"
	"github.com/kalambet/heracles/internal/state"
)

// Catalog is the exercise and ingredient source used by the lookups.
// Implemented by catalog.Client.
type Catalog interface {
	SearchExercises(ctx context.Context, term string) ([]catalog.Exercise, error)
	SearchIngredients(ctx context.Context, term string) ([]catalog.Ingredient, error)
}

func newFitness(c Catalog) (Tool, error) {
	return New(Config{
		Name:        FitnessName,
		Description: "Finds suitable exercises based on goals, fitness level and equipment, e.g. query=\"beginner dumbbell exercises for chest\".",
	}, func(ctx context.Context, _ *state.Store, args QueryArgs) Result {
		return FindExercises(ctx, c, args.Query)
	})
}

func newNutrition(c Catalog) (Tool, error) {
	return New(Config{
		Name:        NutritionName,
		Description: "Gets meal and snack suggestions aligned with dietary needs and goals, e.g. query=\"vegetarian high-protein snacks\".",
	}, func(ctx context.Context, _ *state.Store, args QueryArgs) Result {
		return FindMeals(ctx, c, args.Query)
	})
}

// FindExercises searches the catalog. Without a catalog it returns the
// simulated status.
func FindExercises(ctx context.Context, c Catalog, query string) Result {
	query = strings.TrimSpace(query)
	if c == nil {
		return Status("Simulated finding exercises for: %s", query)
	}

	found, err := c.SearchExercises(ctx, query)
	if err != nil {
		return Error("Exercise lookup failed: %s", err)
	}
	items := make([]any, 0, len(found))
	for _, e := range found {
		item := map[string]any{"name": e.Name}
		if e.Category != "" {
			item["category"] = e.Category
		}
		if len(e.Equipment) > 0 {
			item["equipment"] = toAnySlice(e.Equipment)
		}
		if len(e.Muscles) > 0 {
			item["muscles"] = toAnySlice(e.Muscles)
		}
		items = append(items, item)
	}
	res := Status("Found %d exercises for: %s", len(items), query)
	res["exercises"] = items
	return res
}

// FindMeals searches catalog ingredients. Without a catalog it returns the
// simulated status.
func FindMeals(ctx context.Context, c Catalog, query string) Result {
	query = strings.TrimSpace(query)
	if c == nil {
		return Status("Simulated finding meal suggestions for: %s", query)
	}

	found, err := c.SearchIngredients(ctx, ingredientTerm(query))
	if err != nil {
		return Error("Meal lookup failed: %s", err)
	}
	items := make([]any, 0, len(found))
	for _, ing := range found {
		items = append(items, map[string]any{
			"name":          ing.Name,
			"energy_kcal":   ing.Energy,
			"protein":       ing.Protein,
			"carbohydrates": ing.Carbs,
			"fat":           ing.Fat,
		})
	}
	res := Status("Found %d ingredients for: %s", len(items), query)
	res["ingredients"] = items
	return res
}

// Names extracts the "name" fields of a lookup result's exercises or
// ingredients list.
func Names(res Result, listKey string) []string {
	list, _ := res[listKey].([]any)
	var names []string
	for _, item := range list {
		if m, ok := item.(map[string]any); ok {
			if name, ok := m["name"].(string); ok && name != "" {
				names = append(names, name)
			}
		}
	}
	return names
}

var mealNoise = map[string]bool{
	"breakfast": true, "lunch": true, "dinner": true, "snack": true, "snacks": true,
	"ideas": true, "idea": true, "meal": true, "meals": true, "high-protein": true,
	"around": true, "calories": true, "kcal": true, "for": true, "with": true,
}

// ingredientTerm reduces a meal request to its food words so the ingredient
// search has something to match on.
func ingredientTerm(query string) string {
	var words []string
	for _, w := range strings.Fields(strings.ToLower(query)) {
		if mealNoise[w] || isNumber(w) {
			continue
		}
		words = append(words, w)
	}
	if len(words) == 0 {
		return query
	}
	return strings.Join(words, " ")
}

func isNumber(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

func toAnySlice(items []string) []any {
	out := make([]any, len(items))
	for i, s := range items {
		out[i] = s
	}
	return out
}
