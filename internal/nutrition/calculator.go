// Package nutrition computes daily energy and macronutrient targets from a
// user profile using the Mifflin-St Jeor equation.
//
// Rounding follows round-half-to-even for every rounded quantity, so a carb
// value of 266.5 g rounds to 266 g and 267.5 g rounds to 268 g.
package nutrition

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
)

// Sex values accepted by the calculator.
const (
	SexMale   = "male"
	SexFemale = "female"
)

// Goals.
const (
	GoalLoseWeight     = "lose_weight"
	GoalMaintainWeight = "maintain_weight"
	GoalGainWeight     = "gain_weight"
)

// ActivityLevels lists the accepted activity levels in ascending order.
var ActivityLevels = []string{"sedentary", "lightly_active", "moderately_active", "very_active", "extra_active"}

// Goals lists the accepted goals.
var Goals = []string{GoalLoseWeight, GoalMaintainWeight, GoalGainWeight}

// Sexes lists the accepted sex values.
var Sexes = []string{SexMale, SexFemale}

var activityMultipliers = map[string]float64{
	"sedentary":         1.2,
	"lightly_active":    1.375,
	"moderately_active": 1.55,
	"very_active":       1.725,
	"extra_active":      1.9,
}

var goalAdjustments = map[string]int{
	GoalLoseWeight:     -500,
	GoalMaintainWeight: 0,
	GoalGainWeight:     500,
}

var (
	// ErrNoProfile is returned when the session holds no user profile.
	ErrNoProfile = errors.New("user profile not found in session state, please provide user profile information")
	// ErrMalformedProfile is returned when the profile is not an object.
	ErrMalformedProfile = errors.New("retrieved user profile is not in the expected format")
)

// ValidationError identifies a single offending profile field. Valid is set
// for enum fields and lists the accepted values.
type ValidationError struct {
	Field  string
	Reason string
	Valid  []string
}

func (e *ValidationError) Error() string {
	if len(e.Valid) > 0 {
		return fmt.Sprintf("%s: %s; valid values are: %s", e.Field, e.Reason, strings.Join(e.Valid, ", "))
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Input is a validated, normalized calculator input.
type Input struct {
	Age           int
	Sex           string
	HeightCm      float64
	WeightKg      float64
	ActivityLevel string
	Goal          string
}

// Details carries the intermediate values behind a Result.
type Details struct {
	BMR            float64 `json:"bmr"`
	TDEE           float64 `json:"tdee"`
	GoalAdjustment int     `json:"goal_adjustment"`
	ActivityLevel  string  `json:"activity_level"`
	Goal           string  `json:"goal"`
}

// Result holds daily targets.
type Result struct {
	Calories int     `json:"estimated_daily_calories"`
	Protein  int     `json:"protein_grams"`
	Carbs    int     `json:"carbohydrate_grams"`
	Fat      int     `json:"fat_grams"`
	Details  Details `json:"calculation_details"`
}

// Map returns r as a JSON-shaped map, the form stored in session state and
// returned from tools.
func (r Result) Map() map[string]any {
	return map[string]any{
		"estimated_daily_calories": r.Calories,
		"protein_grams":            r.Protein,
		"carbohydrate_grams":       r.Carbs,
		"fat_grams":                r.Fat,
		"calculation_details": map[string]any{
			"bmr":             r.Details.BMR,
			"tdee":            r.Details.TDEE,
			"goal_adjustment": r.Details.GoalAdjustment,
			"activity_level":  r.Details.ActivityLevel,
			"goal":            r.Details.Goal,
		},
	}
}

// Calculate validates the raw profile object and computes its targets.
// profile is the value stored under user_profile; a nil value yields
// ErrNoProfile and a non-object ErrMalformedProfile.
func Calculate(profile any) (Result, error) {
	if profile == nil {
		return Result{}, ErrNoProfile
	}
	m, ok := profile.(map[string]any)
	if !ok {
		return Result{}, ErrMalformedProfile
	}
	if len(m) == 0 {
		return Result{}, ErrNoProfile
	}
	in, err := ParseInput(m)
	if err != nil {
		return Result{}, err
	}
	return Compute(in)
}

// ParseInput extracts and normalizes calculator fields from a profile map.
// Presence of age, height and weight is checked before any conversion.
func ParseInput(m map[string]any) (Input, error) {
	for _, field := range []string{"age", "height_cm", "weight_kg"} {
		if isEmpty(m[field]) {
			return Input{}, &ValidationError{Field: field, Reason: "missing or empty"}
		}
	}

	var in Input
	var err error
	if in.Age, err = toInt(m["age"]); err != nil {
		return Input{}, &ValidationError{Field: "age", Reason: err.Error()}
	}
	if in.HeightCm, err = toFloat(m["height_cm"]); err != nil {
		return Input{}, &ValidationError{Field: "height_cm", Reason: err.Error()}
	}
	if in.WeightKg, err = toFloat(m["weight_kg"]); err != nil {
		return Input{}, &ValidationError{Field: "weight_kg", Reason: err.Error()}
	}

	in.Sex = NormalizeSex(asString(m["sex"]))
	in.ActivityLevel = NormalizeToken(asString(m["activity_level"]))

	goal, ok := m["fitness_goals"]
	if !ok || isEmpty(goal) {
		goal = m["goal"]
	}
	in.Goal = pickGoal(goal)

	return in, in.Validate()
}

// Validate checks ranges and enum membership.
func (in Input) Validate() error {
	if in.Age <= 0 {
		return &ValidationError{Field: "age", Reason: "must be a positive whole number"}
	}
	if !isFinite(in.HeightCm) {
		return &ValidationError{Field: "height_cm", Reason: "must be a finite number"}
	}
	if !isFinite(in.WeightKg) {
		return &ValidationError{Field: "weight_kg", Reason: "must be a finite number"}
	}
	if in.HeightCm <= 0 {
		return &ValidationError{Field: "height_cm", Reason: "must be a positive number"}
	}
	if in.WeightKg <= 0 {
		return &ValidationError{Field: "weight_kg", Reason: "must be a positive number"}
	}
	if in.Sex != SexMale && in.Sex != SexFemale {
		return &ValidationError{Field: "sex", Reason: fmt.Sprintf("invalid value %q", in.Sex), Valid: Sexes}
	}
	if _, ok := activityMultipliers[in.ActivityLevel]; !ok {
		reason := fmt.Sprintf("invalid value %q", in.ActivityLevel)
		if in.ActivityLevel == "" {
			reason = "missing or empty"
		}
		return &ValidationError{Field: "activity_level", Reason: reason, Valid: ActivityLevels}
	}
	if _, ok := goalAdjustments[in.Goal]; !ok {
		reason := fmt.Sprintf("invalid value %q", in.Goal)
		if in.Goal == "" {
			reason = "missing or empty"
		}
		return &ValidationError{Field: "goal", Reason: reason, Valid: Goals}
	}
	return nil
}

// Compute runs the calculation on a normalized input.
func Compute(in Input) (Result, error) {
	if in.Sex == "" {
		in.Sex = SexMale
	}
	if err := in.Validate(); err != nil {
		return Result{}, err
	}

	bmr := 10*in.WeightKg + 6.25*in.HeightCm - 5*float64(in.Age)
	if in.Sex == SexMale {
		bmr += 5
	} else {
		bmr -= 161
	}

	tdee := bmr * activityMultipliers[in.ActivityLevel]
	adjustment := goalAdjustments[in.Goal]
	calories := roundInt(tdee + float64(adjustment))

	protein := roundInt(1.6 * in.WeightKg)
	if in.Goal == GoalLoseWeight || in.Goal == GoalGainWeight {
		protein = roundInt(1.8 * in.WeightKg)
	}

	fat := roundInt(0.8 * in.WeightKg)
	if in.ActivityLevel == "sedentary" || in.ActivityLevel == "lightly_active" {
		fat = roundInt(1.0 * in.WeightKg)
	}

	carbs := roundInt(float64(calories-protein*4-fat*9) / 4)
	if carbs < 0 {
		carbs = 0
	}

	slog.Debug("nutrition targets computed",
		"age", in.Age, "sex", in.Sex, "height_cm", in.HeightCm, "weight_kg", in.WeightKg,
		"activity_level", in.ActivityLevel, "goal", in.Goal,
		"bmr", bmr, "tdee", tdee, "calories", calories)

	return Result{
		Calories: calories,
		Protein:  protein,
		Carbs:    carbs,
		Fat:      fat,
		Details: Details{
			BMR:            round2(bmr),
			TDEE:           round2(tdee),
			GoalAdjustment: adjustment,
			ActivityLevel:  in.ActivityLevel,
			Goal:           in.Goal,
		},
	}, nil
}

// NormalizeToken lowercases s and folds spaces and hyphens into underscores:
// "Lose Weight" becomes "lose_weight".
func NormalizeToken(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.Join(strings.Fields(s), "_")
	return strings.ReplaceAll(s, "-", "_")
}

// NormalizeSex lowercases s, defaulting to male when empty.
func NormalizeSex(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return SexMale
	}
	return s
}

// pickGoal accepts a goal string or a list of goals. From a list the first
// recognised goal wins; otherwise the first entry is used so the error names it.
func pickGoal(v any) string {
	switch g := v.(type) {
	case []any:
		first := ""
		for i, item := range g {
			norm := NormalizeToken(asString(item))
			if _, ok := goalAdjustments[norm]; ok {
				return norm
			}
			if i == 0 {
				first = norm
			}
		}
		return first
	case []string:
		items := make([]any, len(g))
		for i, s := range g {
			items[i] = s
		}
		return pickGoal(items)
	default:
		return NormalizeToken(asString(v))
	}
}

func isEmpty(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	case float64:
		return val == 0
	case int:
		return val == 0
	case bool:
		return !val
	}
	return false
}

func asString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	default:
		return fmt.Sprint(val)
	}
}

func toInt(v any) (int, error) {
	switch val := v.(type) {
	case int:
		return val, nil
	case int64:
		return int(val), nil
	case float64:
		if !isFinite(val) {
			return 0, errors.New("must be a finite number")
		}
		return int(val), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil {
			return 0, fmt.Errorf("%q is not a whole number", val)
		}
		return n, nil
	}
	return 0, fmt.Errorf("unsupported value type %T", v)
}

func toFloat(v any) (float64, error) {
	switch val := v.(type) {
	case float64:
		return checkFinite(val)
	case int:
		return float64(val), nil
	case int64:
		return float64(val), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0, fmt.Errorf("%q is not a number", val)
		}
		return checkFinite(f)
	}
	return 0, fmt.Errorf("unsupported value type %T", v)
}

func checkFinite(f float64) (float64, error) {
	if !isFinite(f) {
		return 0, errors.New("must be a finite number")
	}
	return f, nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func roundInt(f float64) int {
	return int(math.RoundToEven(f))
}

func round2(f float64) float64 {
	return math.RoundToEven(f*100) / 100
}
