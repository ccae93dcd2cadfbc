package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/kalambet/heracles/internal/agent"
	"github.com/kalambet/heracles/internal/plan"
	"github.com/kalambet/heracles/internal/profile"
	"github.com/kalambet/heracles/internal/tools"
)

// Coach shows the forwarded profile data and builds a weekly training plan.
type Coach struct{}

func (Coach) Name() string { return agent.CoachName }

func (c Coach) Handle(ctx context.Context, inv *agent.Invocation) (agent.Action, error) {
	switch inv.Step() {
	case stepProceed:
		switch agent.Classify(inv.Input) {
		case agent.Yes:
			return c.build(ctx, inv), nil
		case agent.No:
			return agent.Return(agent.Declined("User did not want a fitness plan", nil)).Saying(say(inv, "stopped")), nil
		}
		return agent.Reply(say(inv, "ask_proceed")), nil
	case stepAccept:
		switch agent.Classify(inv.Input) {
		case agent.Yes:
			draft, _ := inv.Recall("plan")
			return agent.Return(agent.Success(objectOf(draft))).Saying(say(inv, "sent")), nil
		case agent.No:
			return agent.Return(agent.Declined("User did not accept the fitness plan", nil)).Saying(say(inv, "stopped")), nil
		}
		return agent.Reply(say(inv, "ask_accept")), nil
	}

	p := userProfile(inv.State)
	inv.Goto(stepProceed)
	return agent.Reply(say(inv, "forwarded", "data", plan.Pretty(forwarded(p)))), nil
}

func (c Coach) build(ctx context.Context, inv *agent.Invocation) agent.Action {
	p := userProfile(inv.State)
	res := inv.Call(ctx, tools.FitnessName, map[string]any{"query": fitnessQuery(p)})
	if res.IsError() {
		inv.Log().Info("exercise lookup failed, using default exercises", "error", res.Message())
	}

	f := plan.BuildFitness(p, tools.Names(res, "exercises"))
	inv.Remember("plan", f.Map())
	inv.Goto(stepAccept)
	return agent.Reply(
		say(inv, "plan")+"\n"+plan.Pretty(f),
		say(inv, "ask_accept"),
	)
}

// forwarded is the profile data the coach shows back to the user.
func forwarded(p profile.UserProfile) map[string]any {
	data := map[string]any{}
	if goal := goalPhrase(p); goal != "" {
		data["goal"] = goal
	}
	data["fitness_level"] = fitnessLevel(p.ActivityLevel)
	if p.ActivityLevel != "" {
		data["activity_level"] = p.ActivityLevel
	}
	if eq := withoutNone(p.AvailableEquipment); len(eq) > 0 {
		data["available_equipment"] = eq
	} else {
		data["available_equipment"] = []string{"bodyweight"}
	}
	if p.Age > 0 {
		data["age"] = p.Age
	}
	if p.Sex != "" {
		data["sex"] = p.Sex
	}
	return data
}

func fitnessLevel(activity string) string {
	switch activity {
	case "very_active", "extra_active":
		return "advanced"
	case "moderately_active":
		return "intermediate"
	default:
		return "beginner"
	}
}

// fitnessQuery phrases the exercise lookup, e.g.
// "beginner dumbbells exercises for lose weight".
func fitnessQuery(p profile.UserProfile) string {
	equipment := "bodyweight"
	if eq := withoutNone(p.AvailableEquipment); len(eq) > 0 {
		equipment = eq[0]
	}
	goal := goalPhrase(p)
	if goal == "" {
		goal = "general fitness"
	}
	return strings.TrimSpace(fmt.Sprintf("%s %s exercises for %s", fitnessLevel(p.ActivityLevel), equipment, goal))
}
