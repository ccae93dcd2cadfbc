package agents

import (
	"context"

	"github.com/kalambet/heracles/internal/agent"
	"github.com/kalambet/heracles/internal/plan"
	"github.com/kalambet/heracles/internal/tools"
)

// NotConfirmed is the payload returned when the user rejects the numbers.
const NotConfirmed = "User did not confirm calculations"

// Calculator runs the calorie and macro calculator for the goal it was given
// and returns the results only once the user has confirmed them.
type Calculator struct{}

func (Calculator) Name() string { return agent.CalculatorName }

func (Calculator) Handle(ctx context.Context, inv *agent.Invocation) (agent.Action, error) {
	if inv.Step() == stepConfirm {
		results, _ := inv.Recall("results")
		if agent.Classify(inv.Input) == agent.Yes {
			return agent.Return(agent.Success(objectOf(results))).Saying(say(inv, "confirmed")), nil
		}
		return agent.Return(agent.Declined(NotConfirmed, map[string]any{"status": NotConfirmed})).
			Saying(say(inv, "declined")), nil
	}

	goal := inv.Request()
	res := inv.Call(ctx, tools.CalculatorName, map[string]any{"query": goal})
	if res.IsError() {
		payload := map[string]any(res)
		return agent.Return(agent.Failure(res.Message(), payload)).
			Saying(say(inv, "error", "error", plan.Pretty(payload))), nil
	}

	results := map[string]any(res)
	inv.Remember("results", results)
	inv.Goto(stepConfirm)
	return agent.Reply(say(inv, "results", "goal", goal, "results", plan.Pretty(results))), nil
}
