// Package profile provides a typed, validated view over the user_profile
// state object and the ordered list of fields onboarding collects.
package profile

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/kalambet/heracles/internal/nutrition"
)

// Decode converts a raw user_profile object into a UserProfile. Inputs are
// weakly typed: "30" decodes into Age and a comma-separated string into a list.
func Decode(m map[string]any) (UserProfile, error) {
	var p UserProfile
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &p,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return UserProfile{}, fmt.Errorf("creating profile decoder: %w", err)
	}
	if err := decoder.Decode(m); err != nil {
		return UserProfile{}, fmt.Errorf("decoding user profile: %w", err)
	}

	p.Name = strings.TrimSpace(p.Name)
	p.FitnessGoals = trimAll(p.FitnessGoals)
	p.DietaryPreferences = trimAll(p.DietaryPreferences)
	p.AvailableEquipment = trimAll(p.AvailableEquipment)
	return p, nil
}

// Field is one profile attribute collected during onboarding.
type Field struct {
	Name     string
	Question string
	// List fields are stored as string lists and written item by item.
	List  bool
	parse func(answer string) ([]string, error)
}

// Parse validates and normalizes a user's answer. Scalar fields yield one
// value; list fields yield one value per item.
func (f Field) Parse(answer string) ([]string, error) {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return nil, fmt.Errorf("%s cannot be empty", f.Name)
	}
	return f.parse(answer)
}

// Fields is the onboarding order.
var Fields = []Field{
	{Name: FieldName, Question: "What's your name?", parse: scalar(parseName)},
	{Name: FieldAge, Question: "How old are you?", parse: scalar(parseAge)},
	{Name: FieldSex, Question: "What is your sex (male or female)? It is used for the metabolic formula.", parse: scalar(parseSex)},
	{Name: FieldHeightCm, Question: "How tall are you, in centimetres?", parse: scalar(measure("height_cm", "cm", 300))},
	{Name: FieldWeightKg, Question: "What is your current weight, in kilograms?", parse: scalar(measure("weight_kg", "kg", 500))},
	{Name: FieldActivityLevel, Question: "How active are you day to day? (sedentary, lightly active, moderately active, very active, extra active)", parse: scalar(parseActivity)},
	{Name: FieldFitnessGoals, Question: "What is your main goal: lose weight, maintain weight or gain weight? You can add other goals too, separated by commas.", List: true, parse: parseGoals},
	{Name: FieldDietaryPreferences, Question: "Any dietary preferences or restrictions? (e.g. vegetarian, no nuts, or none)", List: true, parse: parseList},
	{Name: FieldAvailableEquipment, Question: "What training equipment do you have access to? (e.g. dumbbells, full gym, or none)", List: true, parse: parseList},
}

// LookupField returns the onboarding field called name.
func LookupField(name string) (Field, bool) {
	name = nutrition.NormalizeToken(name)
	switch name {
	case "height":
		name = FieldHeightCm
	case "weight":
		name = FieldWeightKg
	case "goal", "goals":
		name = FieldFitnessGoals
	case "activity":
		name = FieldActivityLevel
	case "equipment":
		name = FieldAvailableEquipment
	case "diet", "dietary_restrictions":
		name = FieldDietaryPreferences
	}
	for _, f := range Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Missing returns the fields of m that are absent or empty, in onboarding order.
func Missing(m map[string]any) []Field {
	var out []Field
	for _, f := range Fields {
		if isBlank(m[f.Name]) {
			out = append(out, f)
		}
	}
	return out
}

// Complete reports whether every onboarding field of m is filled.
func Complete(m map[string]any) bool {
	return len(Missing(m)) == 0
}

// Summary renders the profile on a few lines for confirmation prompts and
// agent instructions.
func Summary(p UserProfile) string {
	var parts []string
	if p.Name != "" {
		parts = append(parts, fmt.Sprintf("Name: %s", p.Name))
	}

	var body []string
	if p.Age > 0 {
		body = append(body, fmt.Sprintf("%d years", p.Age))
	}
	if p.Sex != "" {
		body = append(body, p.Sex)
	}
	if p.HeightCm > 0 {
		body = append(body, fmt.Sprintf("%s cm", formatNumber(p.HeightCm)))
	}
	if p.WeightKg > 0 {
		body = append(body, fmt.Sprintf("%s kg", formatNumber(p.WeightKg)))
	}
	if len(body) > 0 {
		parts = append(parts, "Body: "+strings.Join(body, ", "))
	}

	if p.ActivityLevel != "" {
		parts = append(parts, "Activity level: "+humanize(p.ActivityLevel))
	}
	if len(p.FitnessGoals) > 0 {
		parts = append(parts, "Goals: "+joinHuman(p.FitnessGoals))
	}
	if len(p.DietaryPreferences) > 0 {
		parts = append(parts, "Dietary preferences: "+joinHuman(p.DietaryPreferences))
	}
	if len(p.AvailableEquipment) > 0 {
		parts = append(parts, "Equipment: "+joinHuman(p.AvailableEquipment))
	}

	if len(parts) == 0 {
		return "User profile: not yet provided."
	}
	return "- " + strings.Join(parts, "\n- ")
}

// SummaryOf decodes m and renders its summary. Undecodable profiles fall
// back to the generic placeholder.
func SummaryOf(m map[string]any) string {
	p, err := Decode(m)
	if err != nil {
		return "User profile: could not be read."
	}
	return Summary(p)
}

func scalar(fn func(string) (string, error)) func(string) ([]string, error) {
	return func(answer string) ([]string, error) {
		v, err := fn(answer)
		if err != nil {
			return nil, err
		}
		return []string{v}, nil
	}
}

func parseName(answer string) (string, error) {
	return strings.Join(strings.Fields(answer), " "), nil
}

func parseAge(answer string) (string, error) {
	fields := strings.Fields(answer)
	n, err := strconv.Atoi(strings.TrimSuffix(fields[0], ","))
	if err != nil {
		return "", fmt.Errorf("age must be a whole number of years, got %q", answer)
	}
	if n <= 0 || n > 120 {
		return "", fmt.Errorf("age must be between 1 and 120, got %d", n)
	}
	return strconv.Itoa(n), nil
}

func parseSex(answer string) (string, error) {
	switch strings.ToLower(answer) {
	case "m", "male", "man":
		return nutrition.SexMale, nil
	case "f", "female", "woman":
		return nutrition.SexFemale, nil
	}
	return "", fmt.Errorf("sex must be male or female, got %q", answer)
}

func measure(field, unit string, max float64) func(string) (string, error) {
	return func(answer string) (string, error) {
		s := strings.TrimSpace(strings.TrimSuffix(strings.ToLower(answer), unit))
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return "", fmt.Errorf("%s must be a number in %s, got %q", field, unit, answer)
		}
		if f <= 0 || f > max {
			return "", fmt.Errorf("%s must be between 0 and %s %s", field, formatNumber(max), unit)
		}
		return formatNumber(f), nil
	}
}

func parseActivity(answer string) (string, error) {
	norm := nutrition.NormalizeToken(answer)
	for _, level := range nutrition.ActivityLevels {
		if norm == level {
			return level, nil
		}
	}
	if len(norm) >= 4 {
		for _, level := range nutrition.ActivityLevels {
			if strings.HasPrefix(level, norm) {
				return level, nil
			}
		}
	}
	return "", fmt.Errorf("activity level must be one of: %s", joinHuman(nutrition.ActivityLevels))
}

var goalAliases = map[string]string{
	"lose":          nutrition.GoalLoseWeight,
	"lose_fat":      nutrition.GoalLoseWeight,
	"weight_loss":   nutrition.GoalLoseWeight,
	"cut":           nutrition.GoalLoseWeight,
	"maintain":      nutrition.GoalMaintainWeight,
	"maintenance":   nutrition.GoalMaintainWeight,
	"gain":          nutrition.GoalGainWeight,
	"build_muscle":  nutrition.GoalGainWeight,
	"bulk":          nutrition.GoalGainWeight,
	"muscle_gain":   nutrition.GoalGainWeight,
	"weight_gain":   nutrition.GoalGainWeight,
	"gain_muscle":   nutrition.GoalGainWeight,
	"lose_weight":   nutrition.GoalLoseWeight,
	"gain_weight":   nutrition.GoalGainWeight,
	"stay_the_same": nutrition.GoalMaintainWeight,
}

// CanonicalGoal maps a free-form goal onto a calculator goal.
func CanonicalGoal(s string) (string, bool) {
	norm := nutrition.NormalizeToken(s)
	if goal, ok := goalAliases[norm]; ok {
		return goal, true
	}
	for _, g := range nutrition.Goals {
		if norm == g {
			return g, true
		}
	}
	return "", false
}

// parseGoals requires at least one calculator goal and lists it first.
func parseGoals(answer string) ([]string, error) {
	items := splitList(answer)
	var primary string
	var rest []string
	for _, item := range items {
		if goal, ok := CanonicalGoal(item); ok && primary == "" {
			primary = goal
			continue
		}
		rest = append(rest, item)
	}
	if primary == "" {
		return nil, fmt.Errorf("goals must include one of: %s", joinHuman(nutrition.Goals))
	}
	return append([]string{primary}, rest...), nil
}

func parseList(answer string) ([]string, error) {
	items := splitList(answer)
	if len(items) == 1 {
		switch items[0] {
		case "no", "none", "nothing", "n/a", "nope":
			return []string{"none"}, nil
		}
	}
	return items, nil
}

func splitList(answer string) []string {
	answer = strings.ReplaceAll(answer, " and ", ",")
	answer = strings.ReplaceAll(answer, ";", ",")
	var out []string
	for _, item := range strings.Split(answer, ",") {
		item = strings.ToLower(strings.Join(strings.Fields(item), " "))
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

func isBlank(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	case []any:
		return len(val) == 0
	case []string:
		return len(val) == 0
	case map[string]any:
		return len(val) == 0
	}
	return false
}

func trimAll(items []string) []string {
	out := items[:0]
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func humanize(s string) string {
	return strings.ReplaceAll(s, "_", " ")
}

func joinHuman(items []string) string {
	out := make([]string, len(items))
	for i, s := range items {
		out[i] = humanize(s)
	}
	return strings.Join(out, ", ")
}
