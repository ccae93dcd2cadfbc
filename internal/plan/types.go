// Package plan defines the diet and fitness plan documents that agents store
// under diet_plan and fitness_plan, along with their validation, builders
// and the combined presentation.
package plan

// Meal is one entry of a daily nutrition plan.
type Meal struct {
	Name        string `json:"name" mapstructure:"name"`
	Description string `json:"description" mapstructure:"description"`
	Calories    int    `json:"calories" mapstructure:"calories"`
	Protein     int    `json:"protein" mapstructure:"protein"`
	Carbs       int    `json:"carbs" mapstructure:"carbs"`
	Fat         int    `json:"fat" mapstructure:"fat"`
}

// DietPlan is a sample day of eating sized to confirmed daily targets.
type DietPlan struct {
	ID             string `json:"id,omitempty" mapstructure:"id"`
	TargetCalories int    `json:"target_calories" mapstructure:"target_calories"`
	TargetProtein  int    `json:"target_protein" mapstructure:"target_protein"`
	TargetCarbs    int    `json:"target_carbs" mapstructure:"target_carbs"`
	TargetFat      int    `json:"target_fat" mapstructure:"target_fat"`
	Meals          []Meal `json:"meals" mapstructure:"meals"`
	Notes          string `json:"notes,omitempty" mapstructure:"notes"`
}

// Exercise is a prescribed movement within a workout.
type Exercise struct {
	Name string `json:"name" mapstructure:"name"`
	Sets int    `json:"sets" mapstructure:"sets"`
	Reps string `json:"reps" mapstructure:"reps"`
}

// Workout is one day of the weekly schedule.
type Workout struct {
	Day             string     `json:"day" mapstructure:"day"`
	Activity        string     `json:"activity" mapstructure:"activity"`
	Exercises       []Exercise `json:"exercises,omitempty" mapstructure:"exercises"`
	DurationMinutes int        `json:"duration_minutes,omitempty" mapstructure:"duration_minutes"`
	Intensity       string     `json:"intensity,omitempty" mapstructure:"intensity"`
	Notes           string     `json:"notes,omitempty" mapstructure:"notes"`
}

// FitnessPlan is a weekly training schedule.
type FitnessPlan struct {
	ID                     string    `json:"id,omitempty" mapstructure:"id"`
	Goal                   string    `json:"goal,omitempty" mapstructure:"goal"`
	Week                   []Workout `json:"weekly_fitness_plan" mapstructure:"weekly_fitness_plan"`
	GeneralRecommendations string    `json:"general_recommendations,omitempty" mapstructure:"general_recommendations"`
}

// Rest is the activity name for a non-training day.
const Rest = "Rest"

// Weekdays in schedule order.
var Weekdays = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}
