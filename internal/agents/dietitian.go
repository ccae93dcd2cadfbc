package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/kalambet/heracles/internal/agent"
	"github.com/kalambet/heracles/internal/plan"
	"github.com/kalambet/heracles/internal/profile"
	"github.com/kalambet/heracles/internal/state"
	"github.com/kalambet/heracles/internal/tools"
)

const (
	stepDetails = "details"
	stepProceed = "proceed"
	stepAccept  = "accept"
)

// Dietitian gathers dietary details, has the calculator confirm daily
// targets and builds a sample day of meals from them.
type Dietitian struct{}

func (Dietitian) Name() string { return agent.DietitianName }

func (d Dietitian) Handle(ctx context.Context, inv *agent.Invocation) (agent.Action, error) {
	if inv.Resumed != nil {
		return d.calculated(inv), nil
	}
	switch inv.Step() {
	case stepDetails:
		return d.details(ctx, inv), nil
	case stepProceed:
		switch agent.Classify(inv.Input) {
		case agent.Yes:
			return d.build(ctx, inv)
		case agent.No:
			return agent.Return(agent.Declined("User did not want a nutrition plan", nil)).Saying(say(inv, "stopped")), nil
		}
		return agent.Reply(say(inv, "ask_proceed")), nil
	case stepAccept:
		switch agent.Classify(inv.Input) {
		case agent.Yes:
			draft, _ := inv.Recall("plan")
			return agent.Return(agent.Success(objectOf(draft))).Saying(say(inv, "sent")), nil
		case agent.No:
			return agent.Return(agent.Declined("User did not accept the nutrition plan", nil)).Saying(say(inv, "stopped")), nil
		}
		return agent.Reply(say(inv, "ask_accept")), nil
	}

	inv.Goto(stepDetails)
	if goal := goalPhrase(userProfile(inv.State)); goal != "" {
		return agent.Reply(say(inv, "intro", "goal", goal)), nil
	}
	return agent.Reply(say(inv, "intro_sparse")), nil
}

// details records extra restrictions and hands the goal to the calculator.
func (d Dietitian) details(ctx context.Context, inv *agent.Invocation) agent.Action {
	var noted string
	if items := restrictions(inv.Input); len(items) > 0 {
		var added []string
		for _, item := range items {
			res := inv.Call(ctx, tools.MemorizeListName, map[string]any{"key": state.DietaryRestrictions, "value": item})
			if res.IsError() {
				inv.Log().Info("restriction not stored", "value", item, "error", res.Message())
				continue
			}
			added = append(added, item)
		}
		if len(added) > 0 {
			noted = say(inv, "noted", "items", strings.Join(added, ", "))
		}
	}

	goal := goalPhrase(userProfile(inv.State))
	if goal == "" {
		goal = "general fitness"
	}
	inv.Goto("")
	return agent.Delegate(agent.CalculatorName, goal).Saying(noted, say(inv, "delegating"))
}

// calculated handles the calculator's terminal result. Errors and
// non-confirmation are both passed up unchanged.
func (d Dietitian) calculated(inv *agent.Invocation) agent.Action {
	res := *inv.Resumed
	switch res.Kind {
	case agent.KindError:
		return agent.Return(agent.Failure(res.Message, res.Payload)).Saying(say(inv, "calc_error"))
	case agent.KindDeclined:
		return agent.Return(agent.Declined(res.Message, res.Payload)).Saying(say(inv, "calc_declined"))
	}
	inv.Remember("targets", res.Payload)
	inv.Goto(stepProceed)
	return agent.Reply(
		say(inv, "confirmed", "targets", plan.Pretty(res.Payload)),
		say(inv, "ask_proceed"),
	)
}

func (d Dietitian) build(ctx context.Context, inv *agent.Invocation) (agent.Action, error) {
	raw, _ := inv.Recall("targets")
	targets, err := targetsFrom(raw)
	if err != nil {
		return agent.Action{}, fmt.Errorf("dietitian: %w", err)
	}

	prefs := withoutNone(userProfile(inv.State).DietaryPreferences)
	if v, ok := inv.State.Get(state.DietaryRestrictions); ok {
		prefs = append(prefs, toStrings(v)...)
	}

	query := strings.TrimSpace(fmt.Sprintf("%s meal ideas around %d calories", strings.Join(prefs, " "), targets.Calories/3))
	res := inv.Call(ctx, tools.NutritionName, map[string]any{"query": query})
	if res.IsError() {
		inv.Log().Info("meal lookup failed, using default meals", "error", res.Message())
	}

	diet := plan.BuildDiet(targets, prefs, tools.Names(res, "ingredients"))
	inv.Remember("plan", diet.Map())
	inv.Goto(stepAccept)
	return agent.Reply(
		say(inv, "plan")+"\n"+plan.Pretty(diet),
		say(inv, "ask_accept"),
	), nil
}

var bareNegative = map[string]bool{
	"no": true, "none": true, "nope": true, "nah": true, "nothing": true, "not": true,
	"really": true, "thanks": true, "thank": true, "you": true, "i": true, "don't": true,
	"dont": true, "have": true, "any": true, "all": true, "good": true,
}

// restrictions reads a free-form answer about dislikes and allergies. An
// answer made only of refusals adds nothing.
func restrictions(answer string) []string {
	words := strings.Fields(strings.ToLower(strings.NewReplacer(",", " ", ".", " ", "!", " ").Replace(answer)))
	bare := true
	for _, w := range words {
		if !bareNegative[w] {
			bare = false
			break
		}
	}
	if bare {
		return nil
	}
	f, _ := profile.LookupField(profile.FieldDietaryPreferences)
	items, err := f.Parse(answer)
	if err != nil {
		return nil
	}
	return withoutNone(items)
}

func toStrings(v any) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		return []string{list}
	}
	return nil
}
