package profile

import (
	"strings"
	"testing"
)

func TestDecode_WeakTypes(t *testing.T) {
	p, err := Decode(map[string]any{
		"name":                " Ada ",
		"age":                 "30",
		"sex":                 "female",
		"height_cm":           "170.5",
		"weight_kg":           65.0,
		"activity_level":      "very_active",
		"fitness_goals":       "lose_weight",
		"dietary_preferences": []any{"vegetarian", " no nuts "},
		"extra":               "ignored",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Name != "Ada" || p.Age != 30 || p.HeightCm != 170.5 || p.WeightKg != 65 {
		t.Errorf("unexpected scalars: %+v", p)
	}
	if len(p.FitnessGoals) != 1 || p.FitnessGoals[0] != "lose_weight" {
		t.Errorf("FitnessGoals = %v", p.FitnessGoals)
	}
	if len(p.DietaryPreferences) != 2 || p.DietaryPreferences[1] != "no nuts" {
		t.Errorf("DietaryPreferences = %v", p.DietaryPreferences)
	}
}

func TestDecode_BadAge(t *testing.T) {
	if _, err := Decode(map[string]any{"age": "thirty"}); err == nil {
		t.Error("expected error for non-numeric age")
	}
}

func TestMissing_Order(t *testing.T) {
	missing := Missing(map[string]any{
		"name":          "Ada",
		"age":           "30",
		"sex":           "",
		"fitness_goals": []any{},
	})
	if len(missing) == 0 || missing[0].Name != FieldSex {
		t.Fatalf("first missing = %v, want sex", missing)
	}
	for _, f := range missing {
		if f.Name == FieldName || f.Name == FieldAge {
			t.Errorf("%s should not be missing", f.Name)
		}
	}
	if Complete(map[string]any{}) {
		t.Error("empty profile should not be complete")
	}
}

func TestFieldParse(t *testing.T) {
	tests := []struct {
		field   string
		answer  string
		want    []string
		wantErr bool
	}{
		{FieldAge, "30 years", []string{"30"}, false},
		{FieldAge, "0", nil, true},
		{FieldAge, "old", nil, true},
		{FieldSex, "F", []string{"female"}, false},
		{FieldSex, "robot", nil, true},
		{FieldHeightCm, "180 cm", []string{"180"}, false},
		{FieldHeightCm, "-3", nil, true},
		{FieldWeightKg, "80.5kg", []string{"80.5"}, false},
		{FieldActivityLevel, "Moderately Active", []string{"moderately_active"}, false},
		{FieldActivityLevel, "very", []string{"very_active"}, false},
		{FieldActivityLevel, "extreme", nil, true},
		{FieldFitnessGoals, "run a marathon and lose weight", []string{"lose_weight", "run a marathon"}, false},
		{FieldFitnessGoals, "be happy", nil, true},
		{FieldDietaryPreferences, "Vegetarian, no nuts", []string{"vegetarian", "no nuts"}, false},
		{FieldAvailableEquipment, "None", []string{"none"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.field+"/"+tt.answer, func(t *testing.T) {
			f, ok := LookupField(tt.field)
			if !ok {
				t.Fatalf("unknown field %q", tt.field)
			}
			got, err := f.Parse(tt.answer)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if strings.Join(got, "|") != strings.Join(tt.want, "|") {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLookupField_Aliases(t *testing.T) {
	f, ok := LookupField("Weight")
	if !ok || f.Name != FieldWeightKg {
		t.Errorf("Weight -> %v, %v", f.Name, ok)
	}
	if _, ok := LookupField("shoe size"); ok {
		t.Error("unknown field should not resolve")
	}
}

func TestSummary_Empty(t *testing.T) {
	if got := Summary(UserProfile{}); got != "User profile: not yet provided." {
		t.Errorf("got %q", got)
	}
}

func TestSummary_Full(t *testing.T) {
	got := Summary(UserProfile{
		Name:               "Ada",
		Age:                30,
		Sex:                "female",
		HeightCm:           170,
		WeightKg:           65.5,
		ActivityLevel:      "lightly_active",
		FitnessGoals:       []string{"lose_weight"},
		DietaryPreferences: []string{"vegetarian"},
		AvailableEquipment: []string{"dumbbells", "bands"},
	})
	for _, want := range []string{
		"Name: Ada",
		"30 years, female, 170 cm, 65.5 kg",
		"Activity level: lightly active",
		"Goals: lose weight",
		"Equipment: dumbbells, bands",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("summary missing %q:\n%s", want, got)
		}
	}
}
