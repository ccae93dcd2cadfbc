package state

import (
	"sort"
	"strings"
)

// Keys shared by every agent. These names are a public contract: collaborating
// agents and hosting runtimes read and write exactly these.
const (
	SystemTime         = "_time"
	ProgramInitialized = "_program_initialized"

	ProgramKey = "program"
	ProfileKey = "user_profile"

	DietPlanKey    = "diet_plan"
	FitnessPlanKey = "fitness_plan"

	ProgramStartDate = "program_start_date"
	ProgramEndDate   = "program_end_date"
	ProgramDatetime  = "program_datetime"

	DietaryRestrictions = "dietary_restrictions"
	AdherenceLog        = "adherence_log"

	// Sub-fields of the seeded program object.
	StartDate = "start_date"
	EndDate   = "end_date"
)

// Kind is the declared shape of a known key's value.
type Kind int

const (
	KindAny Kind = iota
	KindString
	KindBool
	KindObject
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindObject:
		return "object"
	case KindList:
		return "list"
	default:
		return "any"
	}
}

// keySchema is the closed set of known keys. Keys not listed are free-form.
var keySchema = map[string]Kind{
	SystemTime:          KindString,
	ProgramInitialized:  KindBool,
	ProgramKey:          KindObject,
	ProfileKey:          KindObject,
	DietPlanKey:         KindObject,
	FitnessPlanKey:      KindObject,
	ProgramStartDate:    KindString,
	ProgramEndDate:      KindString,
	ProgramDatetime:     KindString,
	DietaryRestrictions: KindList,
	AdherenceLog:        KindList,
}

// KnownKind returns the declared kind of key, or KindAny with ok=false for
// free-form keys.
func KnownKind(key string) (Kind, bool) {
	k, ok := keySchema[key]
	return k, ok
}

// IsReserved reports whether key belongs to the system namespace.
func IsReserved(key string) bool {
	return strings.HasPrefix(key, "_")
}

// IsPlanKey reports whether key holds a plan document.
func IsPlanKey(key string) bool {
	return key == DietPlanKey || key == FitnessPlanKey
}

// KnownKeys returns the contract keys in sorted order.
func KnownKeys() []string {
	keys := make([]string, 0, len(keySchema))
	for k := range keySchema {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
