package tools

import (
	"context"
	"log/slog"

	"github.com/kalambet/heracles/internal/nutrition"
	"github.com/kalambet/heracles/internal/state"
)

// QueryArgs is the single-argument shape shared by the calculator and lookups.
type QueryArgs struct {
	Query string `json:"query" jsonschema:"required,description=Free-text request, e.g. a goal or a description of what to look up"`
}

func newCalculator() (Tool, error) {
	return New(Config{
		Name: CalculatorName,
		Description: "Calculates estimated daily calorie and macronutrient needs from the user profile in session state " +
			"using the Mifflin-St Jeor formula. The query carries the goal being calculated for and is not used in the computation.",
	}, Calculate)
}

// Calculate runs the metabolic calculator over the session's user_profile.
func Calculate(_ context.Context, st *state.Store, args QueryArgs) Result {
	slog.Debug("calculator called", "query", args.Query)

	profile, _ := st.Get(state.ProfileKey)
	res, err := nutrition.Calculate(profile)
	if err != nil {
		return Error("%s", err)
	}
	return Result(res.Map())
}
