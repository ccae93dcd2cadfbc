package agents

import (
	"context"
	"strings"

	"github.com/kalambet/heracles/internal/agent"
	"github.com/kalambet/heracles/internal/profile"
	"github.com/kalambet/heracles/internal/state"
)

// Root dispatches each conversation to the specialist the user needs.
type Root struct{}

func (Root) Name() string { return agent.RootName }

func (Root) Handle(_ context.Context, inv *agent.Invocation) (agent.Action, error) {
	target := Route(inv.Input, inv.State)
	inv.Log().Debug("routing", "target", target)

	var greeting string
	switch {
	case !inv.State.Has(state.ProfileKey):
		greeting = say(inv, "welcome")
	case target == agent.MonitoringName || target == agent.FeedbackName:
		greeting = say(inv, "welcome_back")
	}
	return agent.Transfer(target).Saying(greeting), nil
}

// Route picks the specialist for input. Explicit requests win when the
// state allows them; otherwise the first unfinished stage is chosen.
func Route(input string, st *state.Store) string {
	text := strings.ToLower(input)
	complete := profile.Complete(profileMap(st))
	plans := hasPlans(st)

	switch {
	case plans && containsAny(text, "feedback", "how am i doing", "how am i going"):
		return agent.FeedbackName
	case plans && containsAny(text, "check-in", "check in", "checkin", "progress", "adherence"):
		return agent.MonitoringName
	case containsAny(text, "profile", "update my", "change my"):
		return agent.OnboardingName
	case complete && containsAny(text, "plan"):
		return agent.PlanningName
	}

	switch {
	case !complete:
		return agent.OnboardingName
	case !plans:
		return agent.PlanningName
	default:
		return agent.MonitoringName
	}
}
