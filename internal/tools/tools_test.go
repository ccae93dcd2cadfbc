package tools

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kalambet/heracles/internal/catalog"
	"github.com/kalambet/heracles/internal/plan"
	"github.com/kalambet/heracles/internal/state"
)

func registry(t *testing.T, c Catalog) *Registry {
	t.Helper()
	r, err := Default(Deps{Catalog: c, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	require.NoError(t, err)
	return r
}

func call(t *testing.T, r *Registry, st *state.Store, name string, args map[string]any) Result {
	t.Helper()
	return r.Invoke(context.Background(), st, name, args)
}

func strPtr(s string) *string { return &s }

func TestDefault_Names(t *testing.T) {
	r := registry(t, nil)
	var names []string
	for _, tool := range r.List() {
		names = append(names, tool.Name())
	}
	assert.Equal(t, []string{
		"memorize", "memorize_list", "forget",
		"calories_macro_calculator_tool", "fitness", "nutrition",
	}, names)
}

func TestSchema_Required(t *testing.T) {
	r := registry(t, nil)

	mem, _ := r.Get(MemorizeName)
	assert.Equal(t, "object", mem.Schema()["type"])
	assert.ElementsMatch(t, []any{"key", "value"}, mem.Schema()["required"])

	forget, _ := r.Get(ForgetName)
	assert.Equal(t, []any{"key"}, forget.Schema()["required"])
	props := forget.Schema()["properties"].(map[string]any)
	assert.Contains(t, props, "value")
}

func TestMemorize(t *testing.T) {
	st := state.New()
	res := Memorize(context.Background(), st, MemorizeArgs{Key: "favourite_food", Value: "pasta"})
	assert.Equal(t, `Stored "favourite_food": "pasta"`, res.Message())

	v, _ := st.GetString("favourite_food")
	assert.Equal(t, "pasta", v)

	res = Memorize(context.Background(), st, MemorizeArgs{Key: "favourite_food", Value: "rice"})
	assert.False(t, res.IsError())
	v, _ = st.GetString("favourite_food")
	assert.Equal(t, "rice", v)
}

func TestMemorize_ProfileField(t *testing.T) {
	st := state.New()
	res := Memorize(context.Background(), st, MemorizeArgs{Key: "user_profile.age", Value: "30"})
	require.False(t, res.IsError(), res.Message())

	age, _ := st.GetString("user_profile.age")
	assert.Equal(t, "30", age)
}

func TestMemorize_ReservedAndKinds(t *testing.T) {
	st := state.New()
	res := Memorize(context.Background(), st, MemorizeArgs{Key: "_time", Value: "now"})
	assert.True(t, res.IsError())
	assert.False(t, st.Has("_time"))

	res = Memorize(context.Background(), st, MemorizeArgs{Key: "user_profile", Value: "flat"})
	assert.True(t, res.IsError())

	res = Memorize(context.Background(), st, MemorizeArgs{Key: "", Value: "x"})
	assert.True(t, res.IsError())
}

func TestMemorize_PlanDocument(t *testing.T) {
	st := state.New()

	res := Memorize(context.Background(), st, MemorizeArgs{Key: "diet_plan", Value: `{"target_calories": 2000}`})
	assert.True(t, res.IsError(), "incomplete plan must be rejected")
	assert.False(t, st.Has("diet_plan"), "nothing is written on failure")

	doc := plan.DietPlan{
		TargetCalories: 2000,
		Meals:          []plan.Meal{{Name: "Lunch", Calories: 2000}},
	}
	raw, _ := json.Marshal(doc)
	res = Memorize(context.Background(), st, MemorizeArgs{Key: "diet_plan", Value: string(raw)})
	require.False(t, res.IsError(), res.Message())

	stored, ok := st.GetObject("diet_plan")
	require.True(t, ok)
	_, err := plan.DecodeDiet(stored)
	assert.NoError(t, err)
}

func TestMemorizeList_Idempotent(t *testing.T) {
	r := registry(t, nil)
	st := state.New()
	args := map[string]any{"key": "dietary_restrictions", "value": "nuts"}

	first := call(t, r, st, MemorizeListName, args)
	assert.Equal(t, `Added "nuts" to list "dietary_restrictions"`, first.Message())

	second := call(t, r, st, MemorizeListName, args)
	assert.Equal(t, `"nuts" already exists in list "dietary_restrictions"`, second.Message())

	v, _ := st.Get("dietary_restrictions")
	assert.Equal(t, []any{"nuts"}, v)
}

func TestMemorizeList_WrapsScalar(t *testing.T) {
	st := state.New()
	require.NoError(t, st.Set("equipment", "dumbbells"))

	res := MemorizeList(context.Background(), st, MemorizeArgs{Key: "equipment", Value: "bands"})
	assert.False(t, res.IsError())
	v, _ := st.Get("equipment")
	assert.Equal(t, []any{"dumbbells", "bands"}, v)

	require.NoError(t, st.Set("sport", "tennis"))
	res = MemorizeList(context.Background(), st, MemorizeArgs{Key: "sport", Value: "tennis"})
	assert.Equal(t, `"tennis" already exists in list "sport"`, res.Message())
	v, _ = st.Get("sport")
	assert.Equal(t, []any{"tennis"}, v)
}

func TestMemorizeList_ProfileList(t *testing.T) {
	st := state.New()
	MemorizeList(context.Background(), st, MemorizeArgs{Key: "user_profile.available_equipment", Value: "dumbbells"})
	MemorizeList(context.Background(), st, MemorizeArgs{Key: "user_profile.available_equipment", Value: "bench"})

	v, _ := st.Get("user_profile.available_equipment")
	assert.Equal(t, []any{"dumbbells", "bench"}, v)
}

func TestForget(t *testing.T) {
	st := state.New()
	ctx := context.Background()

	res := Forget(ctx, st, ForgetArgs{Key: "missing"})
	assert.Equal(t, `Key "missing" not found in memory.`, res.Message())

	require.NoError(t, st.Set("goal", "lose"))
	res = Forget(ctx, st, ForgetArgs{Key: "goal"})
	assert.Equal(t, `Removed key "goal"`, res.Message())
	assert.False(t, st.Has("goal"))

	require.NoError(t, st.Set("note", "x"))
	res = Forget(ctx, st, ForgetArgs{Key: "note", Value: strPtr("x")})
	assert.Equal(t, `Cannot remove specific value from non-list key "note"`, res.Message())
	assert.True(t, st.Has("note"))
}

func TestForget_ListValues(t *testing.T) {
	st := state.New()
	ctx := context.Background()
	require.NoError(t, st.Set("dietary_restrictions", []any{"nuts", "dairy", "nuts"}))

	res := Forget(ctx, st, ForgetArgs{Key: "dietary_restrictions", Value: strPtr("nuts")})
	assert.Equal(t, `Removed value "nuts" from list "dietary_restrictions"`, res.Message())
	v, _ := st.Get("dietary_restrictions")
	assert.Equal(t, []any{"dairy", "nuts"}, v, "only the first match is removed")

	res = Forget(ctx, st, ForgetArgs{Key: "dietary_restrictions", Value: strPtr("gluten")})
	assert.Equal(t, `Value "gluten" not found in list "dietary_restrictions"`, res.Message())

	Forget(ctx, st, ForgetArgs{Key: "dietary_restrictions", Value: strPtr("dairy")})
	res = Forget(ctx, st, ForgetArgs{Key: "dietary_restrictions", Value: strPtr("nuts")})
	assert.Equal(t, `Removed value "nuts" from "dietary_restrictions" and the key itself as it became empty.`, res.Message())
	assert.False(t, st.Has("dietary_restrictions"))
}

func TestForget_Reserved(t *testing.T) {
	st := state.FromMap(map[string]any{"_program_initialized": true})
	res := Forget(context.Background(), st, ForgetArgs{Key: "_program_initialized"})
	assert.True(t, res.IsError())
	assert.True(t, st.Has("_program_initialized"))
}

func TestForget_OptionalValueThroughRegistry(t *testing.T) {
	r := registry(t, nil)
	st := state.New()
	require.NoError(t, st.Set("dietary_restrictions", []any{"nuts"}))

	res := call(t, r, st, ForgetName, map[string]any{"key": "dietary_restrictions", "value": "nuts"})
	assert.Contains(t, res.Message(), "the key itself as it became empty")

	require.NoError(t, st.Set("dietary_restrictions", []any{"nuts"}))
	res = call(t, r, st, ForgetName, map[string]any{"key": "dietary_restrictions"})
	assert.Equal(t, `Removed key "dietary_restrictions"`, res.Message())
}

func TestCalculatorTool(t *testing.T) {
	r := registry(t, nil)
	st := state.New()

	res := call(t, r, st, CalculatorName, map[string]any{"query": "weight loss"})
	assert.True(t, res.IsError())
	assert.Contains(t, res.Message(), "user profile not found")

	require.NoError(t, st.Set("user_profile", map[string]any{
		"age": "30", "sex": "male", "height_cm": "180", "weight_kg": "80",
		"activity_level": "moderately_active", "fitness_goals": "lose weight",
	}))
	res = call(t, r, st, CalculatorName, map[string]any{"query": "weight loss"})
	require.False(t, res.IsError(), res.Message())
	assert.Equal(t, 2259, res["estimated_daily_calories"])
	assert.Equal(t, 277, res["carbohydrate_grams"])

	require.NoError(t, st.Set("user_profile.age", ""))
	res = call(t, r, st, CalculatorName, map[string]any{"query": "weight loss"})
	assert.True(t, res.IsError())
	assert.Contains(t, res.Message(), "age")
}

func TestInvoke_UnknownAndBadArgs(t *testing.T) {
	r := registry(t, nil)
	st := state.New()

	res := call(t, r, st, "teleport", nil)
	assert.True(t, res.IsError())
	assert.Contains(t, res.Message(), "unknown tool")

	res = call(t, r, st, MemorizeName, map[string]any{"key": 42, "value": "x"})
	assert.True(t, res.IsError())
	assert.Contains(t, res.Message(), "invalid arguments")
}

func TestLookups_Simulated(t *testing.T) {
	r := registry(t, nil)
	st := state.New()

	res := call(t, r, st, FitnessName, map[string]any{"query": "beginner dumbbell chest"})
	assert.Equal(t, "Simulated finding exercises for: beginner dumbbell chest", res.Message())

	res = call(t, r, st, NutritionName, map[string]any{"query": "vegetarian snacks"})
	assert.Equal(t, "Simulated finding meal suggestions for: vegetarian snacks", res.Message())
}

type fakeCatalog struct {
	exercises   []catalog.Exercise
	ingredients []catalog.Ingredient
	err         error
	lastTerm    string
}

func (f *fakeCatalog) SearchExercises(_ context.Context, term string) ([]catalog.Exercise, error) {
	f.lastTerm = term
	return f.exercises, f.err
}

func (f *fakeCatalog) SearchIngredients(_ context.Context, term string) ([]catalog.Ingredient, error) {
	f.lastTerm = term
	return f.ingredients, f.err
}

func TestLookups_Catalog(t *testing.T) {
	fc := &fakeCatalog{
		exercises:   []catalog.Exercise{{Name: "Bench Press", Category: "Chest", Equipment: []string{"Barbell"}}},
		ingredients: []catalog.Ingredient{{Name: "Oats", Energy: 389, Protein: 16.9}},
	}
	r := registry(t, fc)
	st := state.New()

	res := call(t, r, st, FitnessName, map[string]any{"query": "chest"})
	assert.Equal(t, "Found 1 exercises for: chest", res.Message())
	assert.Equal(t, []string{"Bench Press"}, Names(res, "exercises"))

	res = call(t, r, st, NutritionName, map[string]any{"query": "oats breakfast ideas around 500 calories"})
	assert.Equal(t, "oats", fc.lastTerm)
	assert.Equal(t, []string{"Oats"}, Names(res, "ingredients"))
}

func TestLookups_CatalogFailure(t *testing.T) {
	fc := &fakeCatalog{err: errors.New("connection refused")}
	r := registry(t, fc)

	res := call(t, r, state.New(), FitnessName, map[string]any{"query": "legs"})
	assert.True(t, res.IsError())
	assert.Contains(t, res.Message(), "connection refused")
}
