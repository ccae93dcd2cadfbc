package profile

// UserProfile is the typed view of the user_profile state object.
type UserProfile struct {
	Name               string   `mapstructure:"name" json:"name,omitempty"`
	Age                int      `mapstructure:"age" json:"age,omitempty"`
	Sex                string   `mapstructure:"sex" json:"sex,omitempty"`
	HeightCm           float64  `mapstructure:"height_cm" json:"height_cm,omitempty"`
	WeightKg           float64  `mapstructure:"weight_kg" json:"weight_kg,omitempty"`
	ActivityLevel      string   `mapstructure:"activity_level" json:"activity_level,omitempty"`
	FitnessGoals       []string `mapstructure:"fitness_goals" json:"fitness_goals,omitempty"`
	DietaryPreferences []string `mapstructure:"dietary_preferences" json:"dietary_preferences,omitempty"`
	AvailableEquipment []string `mapstructure:"available_equipment" json:"available_equipment,omitempty"`
}

// Field names inside user_profile.
const (
	FieldName               = "name"
	FieldAge                = "age"
	FieldSex                = "sex"
	FieldHeightCm           = "height_cm"
	FieldWeightKg           = "weight_kg"
	FieldActivityLevel      = "activity_level"
	FieldFitnessGoals       = "fitness_goals"
	FieldDietaryPreferences = "dietary_preferences"
	FieldAvailableEquipment = "available_equipment"
)
