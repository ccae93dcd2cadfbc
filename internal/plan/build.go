package plan

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"

	"github.com/kalambet/heracles/internal/nutrition"
	"github.com/kalambet/heracles/internal/profile"
)

// Guidance is attached to every combined plan.
const Guidance = "This integrated plan combines your nutritional needs with a structured fitness routine to help you achieve your goals. " +
	"Consistency and adherence are key. Remember to consult with healthcare professionals for personalized advice."

const dietNotes = "This is a sample plan based on your goals and confirmed calculated needs. It can be adjusted. " +
	"Remember to consult with healthcare professionals."

const fitnessRecommendations = "Remember to warm up for 5-10 minutes before each session and cool down with stretching afterwards. " +
	"Stay hydrated and listen to your body. Adjust weights and intensity as needed."

type mealSlot struct {
	name  string
	share float64
	// options in order: default, vegetarian, vegan
	options [3]string
}

var mealSlots = []mealSlot{
	{"Breakfast", 0.25, [3]string{
		"Scrambled eggs with wholegrain toast and berries",
		"Greek yogurt with oats, berries and honey",
		"Oatmeal with soy yogurt, chia seeds and berries",
	}},
	{"Lunch", 0.35, [3]string{
		"Grilled chicken quinoa bowl with roasted vegetables",
		"Lentil and quinoa bowl with roasted vegetables and feta",
		"Chickpea and quinoa bowl with roasted vegetables and tahini",
	}},
	{"Dinner", 0.30, [3]string{
		"Baked salmon with brown rice and broccoli",
		"Paneer and vegetable curry with brown rice",
		"Tofu stir-fry with brown rice and greens",
	}},
	{"Snack", 0.10, [3]string{
		"Apple slices with peanut butter",
		"Cottage cheese with fruit",
		"Hummus with carrot and cucumber sticks",
	}},
}

// BuildDiet lays out a sample day sized to the confirmed targets. Suggestions
// (catalog ingredient or meal names) are folded into the meal descriptions.
func BuildDiet(targets nutrition.Result, preferences []string, suggestions []string) DietPlan {
	variant := 0
	nutFree := false
	for _, pref := range preferences {
		p := strings.ToLower(pref)
		switch {
		case strings.Contains(p, "vegan"):
			variant = 2
		case strings.Contains(p, "vegetarian") && variant < 1:
			variant = 1
		}
		if strings.Contains(p, "nut") {
			nutFree = true
		}
	}

	d := DietPlan{
		ID:             uuid.NewString(),
		TargetCalories: targets.Calories,
		TargetProtein:  targets.Protein,
		TargetCarbs:    targets.Carbs,
		TargetFat:      targets.Fat,
		Notes:          dietNotes,
	}
	for i, slot := range mealSlots {
		desc := slot.options[variant]
		if nutFree && strings.Contains(desc, "peanut") {
			desc = mealSlots[i].options[2]
		}
		if i < len(suggestions) && suggestions[i] != "" {
			desc = fmt.Sprintf("%s (try adding %s)", desc, suggestions[i])
		}
		d.Meals = append(d.Meals, Meal{
			Name:        slot.name,
			Description: desc,
			Calories:    share(targets.Calories, slot.share),
			Protein:     share(targets.Protein, slot.share),
			Carbs:       share(targets.Carbs, slot.share),
			Fat:         share(targets.Fat, slot.share),
		})
	}
	return d
}

type workoutKind int

const (
	rest workoutKind = iota
	upper
	lower
	full
	cardio
)

// schedules maps goal and training days per week onto weekday slots.
var schedules = map[string]map[int][7]workoutKind{
	nutrition.GoalLoseWeight: {
		3: {full, rest, cardio, rest, full, rest, rest},
		4: {upper, cardio, rest, lower, rest, cardio, rest},
		5: {upper, cardio, lower, rest, full, cardio, rest},
	},
	nutrition.GoalMaintainWeight: {
		3: {full, rest, cardio, rest, full, rest, rest},
		4: {upper, cardio, rest, lower, rest, full, rest},
		5: {upper, cardio, lower, rest, full, cardio, rest},
	},
	nutrition.GoalGainWeight: {
		3: {full, rest, full, rest, full, rest, rest},
		4: {upper, lower, rest, upper, lower, rest, rest},
		5: {upper, lower, cardio, upper, lower, rest, rest},
	},
}

var bodyweightPool = map[workoutKind][]Exercise{
	upper: {{"Push-ups", 3, "AMRAP"}, {"Inverted Rows", 3, "8-12"}, {"Pike Push-ups", 3, "8-10"}},
	lower: {{"Bodyweight Squats", 3, "15-20"}, {"Glute Bridges", 3, "12-15"}, {"Reverse Lunges", 3, "10 per leg"}},
	full:  {{"Burpees", 3, "10"}, {"Bodyweight Squats", 3, "15"}, {"Push-ups", 3, "AMRAP"}, {"Plank", 3, "45 seconds"}},
}

var equipmentPool = map[workoutKind][]Exercise{
	upper: {{"Dumbbell Bench Press", 3, "8-12"}, {"Bent-Over Dumbbell Rows", 3, "10-12"}, {"Overhead Press", 3, "8-10"}},
	lower: {{"Goblet Squats", 3, "10-12"}, {"Romanian Deadlifts", 3, "8-10"}, {"Walking Lunges", 3, "10 per leg"}},
	full:  {{"Dumbbell Thrusters", 3, "10"}, {"Goblet Squats", 3, "10-12"}, {"Dumbbell Rows", 3, "10-12"}, {"Plank", 3, "45 seconds"}},
}

// BuildFitness lays out a weekly schedule for the profile's goal and activity
// level. Catalog exercise names, when given, replace the default movements of
// the strength days in order.
func BuildFitness(p profile.UserProfile, catalog []string) FitnessPlan {
	goal := nutrition.GoalMaintainWeight
	for _, g := range p.FitnessGoals {
		if canonical, ok := profile.CanonicalGoal(g); ok {
			goal = canonical
			break
		}
	}

	days := 4
	switch p.ActivityLevel {
	case "sedentary", "lightly_active":
		days = 3
	case "very_active", "extra_active":
		days = 5
	}

	pool := bodyweightPool
	if hasEquipment(p.AvailableEquipment) {
		pool = equipmentPool
	}

	strengthMinutes := 45
	if goal == nutrition.GoalGainWeight {
		strengthMinutes = 60
	}
	cardioMinutes := 30
	if goal == nutrition.GoalLoseWeight {
		cardioMinutes = 40
	}

	f := FitnessPlan{
		ID:                     uuid.NewString(),
		Goal:                   goal,
		GeneralRecommendations: fitnessRecommendations,
	}
	next := 0
	for i, kind := range schedules[goal][days] {
		w := Workout{Day: Weekdays[i]}
		switch kind {
		case rest:
			w.Activity = Rest
		case cardio:
			w.Activity = "Cardio"
			w.DurationMinutes = cardioMinutes
			w.Intensity = "Moderate"
			w.Notes = "Running, cycling or brisk walking. Keep a pace you can talk at."
		default:
			w.Activity = activityName(kind)
			w.DurationMinutes = strengthMinutes
			w.Notes = "Focus on proper form. Rest 60-90 seconds between sets."
			for _, e := range pool[kind] {
				if next < len(catalog) {
					e.Name = catalog[next]
					next++
				}
				w.Exercises = append(w.Exercises, e)
			}
		}
		f.Week = append(f.Week, w)
	}
	return f
}

// Combine merges both stored plans into the presentation document.
func Combine(diet, fitness map[string]any) map[string]any {
	return map[string]any{
		"nutrition_plan":   diet,
		"fitness_plan":     fitness,
		"overall_guidance": Guidance,
	}
}

// Pretty renders v as indented JSON for chat output.
func Pretty(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

func activityName(k workoutKind) string {
	switch k {
	case upper:
		return "Strength Training - Upper Body"
	case lower:
		return "Strength Training - Lower Body"
	default:
		return "Strength Training - Full Body"
	}
}

func hasEquipment(items []string) bool {
	for _, item := range items {
		switch strings.ToLower(strings.TrimSpace(item)) {
		case "", "none", "bodyweight", "no equipment":
			continue
		}
		return true
	}
	return false
}

func share(total int, fraction float64) int {
	return int(math.Round(float64(total) * fraction))
}
