package plan

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/kalambet/heracles/internal/state"
)

// ErrInvalid wraps every plan validation failure.
var ErrInvalid = errors.New("invalid plan document")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

// Validate reports whether d is a fully-formed diet plan.
func (d DietPlan) Validate() error {
	if d.TargetCalories <= 0 {
		return invalid("target_calories must be positive")
	}
	if d.TargetProtein < 0 || d.TargetCarbs < 0 || d.TargetFat < 0 {
		return invalid("macro targets cannot be negative")
	}
	if len(d.Meals) == 0 {
		return invalid("meals must list at least one meal")
	}
	for i, m := range d.Meals {
		if strings.TrimSpace(m.Name) == "" {
			return invalid("meals[%d].name is required", i)
		}
		if m.Calories < 0 || m.Protein < 0 || m.Carbs < 0 || m.Fat < 0 {
			return invalid("meals[%d] has negative values", i)
		}
	}
	return nil
}

// Validate reports whether f is a fully-formed fitness plan.
func (f FitnessPlan) Validate() error {
	if len(f.Week) == 0 {
		return invalid("weekly_fitness_plan must list at least one day")
	}
	seen := make(map[string]bool, len(f.Week))
	training := 0
	for i, w := range f.Week {
		day := strings.ToLower(strings.TrimSpace(w.Day))
		if !isWeekday(day) {
			return invalid("weekly_fitness_plan[%d].day %q is not a weekday", i, w.Day)
		}
		if seen[day] {
			return invalid("weekly_fitness_plan lists %s twice", day)
		}
		seen[day] = true
		if strings.TrimSpace(w.Activity) == "" {
			return invalid("weekly_fitness_plan[%d].activity is required", i)
		}
		if !strings.EqualFold(w.Activity, Rest) {
			training++
		}
		for j, e := range w.Exercises {
			if strings.TrimSpace(e.Name) == "" {
				return invalid("weekly_fitness_plan[%d].exercises[%d].name is required", i, j)
			}
			if e.Sets < 0 {
				return invalid("weekly_fitness_plan[%d].exercises[%d].sets cannot be negative", i, j)
			}
		}
	}
	if training == 0 {
		return invalid("weekly_fitness_plan has no training days")
	}
	return nil
}

// DecodeDiet decodes and validates a stored diet_plan object.
func DecodeDiet(m map[string]any) (DietPlan, error) {
	var d DietPlan
	if err := decode(m, &d); err != nil {
		return DietPlan{}, err
	}
	return d, d.Validate()
}

// DecodeFitness decodes and validates a stored fitness_plan object.
func DecodeFitness(m map[string]any) (FitnessPlan, error) {
	var f FitnessPlan
	if err := decode(m, &f); err != nil {
		return FitnessPlan{}, err
	}
	return f, f.Validate()
}

// Map returns d in its stored form.
func (d DietPlan) Map() map[string]any { return toMap(d) }

// Map returns f in its stored form.
func (f FitnessPlan) Map() map[string]any { return toMap(f) }

// Normalize parses raw as the plan document for key ("diet_plan" or
// "fitness_plan"), validates it, and returns the canonical stored object.
func Normalize(key, raw string) (map[string]any, error) {
	var m map[string]any
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, invalid("value must be a JSON object: %v", err)
	}
	return NormalizeMap(key, m)
}

// NormalizeMap is Normalize for an already decoded object.
func NormalizeMap(key string, m map[string]any) (map[string]any, error) {
	switch key {
	case state.DietPlanKey:
		d, err := DecodeDiet(m)
		if err != nil {
			return nil, err
		}
		return d.Map(), nil
	case state.FitnessPlanKey:
		f, err := DecodeFitness(m)
		if err != nil {
			return nil, err
		}
		return f.Map(), nil
	}
	return nil, fmt.Errorf("%q is not a plan key", key)
}

func decode(m map[string]any, out any) error {
	if m == nil {
		return invalid("document is empty")
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("creating plan decoder: %w", err)
	}
	if err := decoder.Decode(m); err != nil {
		return invalid("%v", err)
	}
	return nil
}

func toMap(v any) map[string]any {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil
	}
	return m
}

func isWeekday(day string) bool {
	for _, d := range Weekdays {
		if d == day {
			return true
		}
	}
	return false
}
