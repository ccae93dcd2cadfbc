package plan

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kalambet/heracles/internal/nutrition"
	"github.com/kalambet/heracles/internal/profile"
	"github.com/kalambet/heracles/internal/state"
)

func targets() nutrition.Result {
	return nutrition.Result{Calories: 2000, Protein: 150, Carbs: 200, Fat: 60}
}

func TestBuildDiet_SplitsTargets(t *testing.T) {
	d := BuildDiet(targets(), nil, nil)
	require.NoError(t, d.Validate())
	require.Len(t, d.Meals, 4)
	assert.NotEmpty(t, d.ID)

	total := 0
	for _, m := range d.Meals {
		total += m.Calories
	}
	assert.Equal(t, 2000, total)
	assert.Equal(t, "Breakfast", d.Meals[0].Name)
	assert.Equal(t, 500, d.Meals[0].Calories)
}

func TestBuildDiet_Preferences(t *testing.T) {
	d := BuildDiet(targets(), []string{"Vegan", "no nuts"}, []string{"tempeh"})
	assert.Contains(t, d.Meals[0].Description, "soy yogurt")
	assert.Contains(t, d.Meals[0].Description, "tempeh")
	for _, m := range d.Meals {
		assert.NotContains(t, m.Description, "peanut")
	}

	d = BuildDiet(targets(), []string{"no nuts"}, nil)
	assert.NotContains(t, d.Meals[3].Description, "peanut")
}

func TestBuildFitness_GoalAndLevel(t *testing.T) {
	f := BuildFitness(profile.UserProfile{
		ActivityLevel:      "sedentary",
		FitnessGoals:       []string{"run a 5k", "lose weight"},
		AvailableEquipment: []string{"none"},
	}, nil)
	require.NoError(t, f.Validate())
	assert.Equal(t, nutrition.GoalLoseWeight, f.Goal)
	require.Len(t, f.Week, 7)

	training := 0
	for _, w := range f.Week {
		if w.Activity != Rest {
			training++
		}
	}
	assert.Equal(t, 3, training)
	assert.Equal(t, "Push-ups", f.Week[0].Exercises[2].Name)
}

func TestBuildFitness_CatalogExercises(t *testing.T) {
	f := BuildFitness(profile.UserProfile{
		ActivityLevel:      "very_active",
		FitnessGoals:       []string{"gain_weight"},
		AvailableEquipment: []string{"dumbbells"},
	}, []string{"Cable Fly", "Chin-up"})
	require.NoError(t, f.Validate())
	assert.Equal(t, "Cable Fly", f.Week[0].Exercises[0].Name)
	assert.Equal(t, "Chin-up", f.Week[0].Exercises[1].Name)
	assert.Equal(t, "Overhead Press", f.Week[0].Exercises[2].Name)
	assert.Equal(t, 60, f.Week[0].DurationMinutes)
}

func TestNormalize_RoundTrip(t *testing.T) {
	d := BuildDiet(targets(), nil, nil)
	raw, err := json.Marshal(d)
	require.NoError(t, err)

	stored, err := Normalize(state.DietPlanKey, string(raw))
	require.NoError(t, err)

	back, err := DecodeDiet(stored)
	require.NoError(t, err)
	if diff := cmp.Diff(d, back); diff != "" {
		t.Errorf("diet plan changed (-want +got):\n%s", diff)
	}
}

func TestNormalize_Rejects(t *testing.T) {
	tests := []struct {
		name string
		key  string
		raw  string
	}{
		{"not json", state.DietPlanKey, "a nice plan"},
		{"no meals", state.DietPlanKey, `{"target_calories": 2000}`},
		{"no calories", state.DietPlanKey, `{"meals": [{"name": "Lunch"}]}`},
		{"bad day", state.FitnessPlanKey, `{"weekly_fitness_plan": [{"day": "someday", "activity": "Run"}]}`},
		{"only rest", state.FitnessPlanKey, `{"weekly_fitness_plan": [{"day": "monday", "activity": "Rest"}]}`},
		{"twice", state.FitnessPlanKey, `{"weekly_fitness_plan": [{"day": "monday", "activity": "Run"}, {"day": "Monday", "activity": "Swim"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(tt.key, tt.raw)
			assert.True(t, errors.Is(err, ErrInvalid), "got %v", err)
		})
	}
}

func TestNormalize_WeakNumbers(t *testing.T) {
	stored, err := Normalize(state.FitnessPlanKey,
		`{"weekly_fitness_plan": [{"day": "tuesday", "activity": "Strength", "exercises": [{"name": "Squat", "sets": "3", "reps": "5"}]}]}`)
	require.NoError(t, err)

	f, err := DecodeFitness(stored)
	require.NoError(t, err)
	want := FitnessPlan{Week: []Workout{{
		Day: "tuesday", Activity: "Strength",
		Exercises: []Exercise{{Name: "Squat", Sets: 3, Reps: "5"}},
	}}}
	if diff := cmp.Diff(want, f, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestNormalize_UnknownKey(t *testing.T) {
	_, err := Normalize("shopping_list", `{}`)
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrInvalid))
}

func TestCombine(t *testing.T) {
	combined := Combine(map[string]any{"a": 1}, map[string]any{"b": 2})
	assert.Equal(t, Guidance, combined["overall_guidance"])
	out := Pretty(combined)
	assert.True(t, strings.Contains(out, `"nutrition_plan"`))
	assert.True(t, strings.Contains(out, `"fitness_plan"`))
}
