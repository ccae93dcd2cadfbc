package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kalambet/heracles/internal/agent"
	"github.com/kalambet/heracles/internal/plan"
	"github.com/kalambet/heracles/internal/profile"
	"github.com/kalambet/heracles/internal/state"
	"github.com/kalambet/heracles/internal/tools"
)

// Stage is the planning position inferred from which plans are stored.
type Stage int

const (
	// StageNoDiet: no diet_plan yet.
	StageNoDiet Stage = iota
	// StageNoFitness: diet_plan stored, fitness_plan missing.
	StageNoFitness
	// StageReady: both plans stored.
	StageReady
)

func (s Stage) String() string {
	switch s {
	case StageNoDiet:
		return "S0"
	case StageNoFitness:
		return "S1"
	default:
		return "S2"
	}
}

// StageOf computes the planning stage from st.
func StageOf(st *state.Store) Stage {
	switch {
	case !st.Has(state.DietPlanKey):
		return StageNoDiet
	case !st.Has(state.FitnessPlanKey):
		return StageNoFitness
	default:
		return StageReady
	}
}

const (
	stepReady     = "ready"
	stepQuestions = "questions"
)

// Planning orchestrates the dietitian and the coach, then presents the
// combined plan.
type Planning struct{}

func (Planning) Name() string { return agent.PlanningName }

func (p Planning) Handle(ctx context.Context, inv *agent.Invocation) (agent.Action, error) {
	if inv.Resumed != nil {
		return p.resume(ctx, inv), nil
	}

	stage := StageOf(inv.State)
	inv.Log().Debug("planning stage", "stage", stage, "step", inv.Step())
	switch {
	case stage == StageReady && inv.Step() == stepReady:
		if agent.Classify(inv.Input) != agent.Yes {
			return agent.Reply(say(inv, "waiting")), nil
		}
		inv.Remember("confirmed", true)
		return p.present(inv), nil
	case stage == StageReady && inv.Step() == stepQuestions:
		return p.questions(inv), nil
	}
	return p.advance(inv), nil
}

// advance runs the action for the current stage.
func (p Planning) advance(inv *agent.Invocation) agent.Action {
	switch StageOf(inv.State) {
	case StageNoDiet:
		inv.Goto("")
		inv.Remember("waiting_on", agent.DietitianName)
		return agent.Delegate(agent.DietitianName, "Create a nutrition plan for the user").Saying(
			say(inv, "summary", "summary", profile.SummaryOf(profileMap(inv.State))),
			say(inv, "consult_dietitian"),
		)
	case StageNoFitness:
		inv.Goto("")
		inv.Remember("waiting_on", agent.CoachName)
		return agent.Delegate(agent.CoachName, "Create a weekly fitness plan for the user").Saying(
			say(inv, "consult_coach"),
		)
	}
	// Confirmation already given in this frame is not asked again.
	if inv.Flag("confirmed") {
		return p.present(inv)
	}
	inv.Goto(stepReady)
	return agent.Reply(say(inv, "ready"))
}

// resume stores the plan a collaborator returned and moves on. Error and
// non-confirmation results stop the flow until the user drives it again.
func (p Planning) resume(ctx context.Context, inv *agent.Invocation) agent.Action {
	res := *inv.Resumed
	collaborator := stringOf(recalled(inv, "waiting_on"))
	inv.Remember("waiting_on", "")

	if !res.OK() {
		inv.Goto("")
		reason := res.Message
		if reason == "" {
			reason = string(res.Kind)
		}
		inv.Log().Info("planning halted", "collaborator", collaborator, "kind", res.Kind, "reason", reason)
		return agent.Reply(say(inv, "halted", "collaborator", humanAgent(collaborator), "reason", reason))
	}

	key := state.DietPlanKey
	if collaborator == agent.CoachName {
		key = state.FitnessPlanKey
	}
	raw, err := json.Marshal(res.Payload)
	if err != nil {
		inv.Goto("")
		return agent.Reply(say(inv, "store_failed", "plan_key", key, "reason", err.Error()))
	}
	out := inv.Call(ctx, tools.MemorizeName, map[string]any{"key": key, "value": string(raw)})
	if out.IsError() {
		inv.Goto("")
		return agent.Reply(say(inv, "store_failed", "plan_key", key, "reason", out.Message()))
	}
	return p.advance(inv)
}

func (p Planning) present(inv *agent.Invocation) agent.Action {
	diet, _ := inv.State.GetObject(state.DietPlanKey)
	fitness, _ := inv.State.GetObject(state.FitnessPlanKey)
	inv.Goto(stepQuestions)
	return agent.Reply(
		say(inv, "present")+"\n"+plan.Pretty(plan.Combine(diet, fitness)),
		say(inv, "questions"),
	)
}

func (p Planning) questions(inv *agent.Invocation) agent.Action {
	input := strings.TrimSpace(inv.Input)
	lower := strings.ToLower(input)
	asking := strings.Contains(input, "?")

	if !asking && (agent.Classify(input) == agent.No ||
		containsAny(lower, "no question", "that's all", "thats all", "nothing", "all good", "i'm good", "im good")) {
		return agent.Transfer(agent.MonitoringName).Saying(say(inv, "handoff"))
	}

	diet, _ := inv.State.GetObject(state.DietPlanKey)
	fitness, _ := inv.State.GetObject(state.FitnessPlanKey)
	if answer := AnswerQuestion(input, diet, fitness); answer != "" {
		return agent.Reply(answer, say(inv, "more"))
	}
	return agent.Reply(say(inv, "unanswered"))
}

// AnswerQuestion answers a question about the stored plans, or returns ""
// when the plans do not cover it.
func AnswerQuestion(question string, diet, fitness map[string]any) string {
	q := strings.ToLower(question)
	d, dietErr := plan.DecodeDiet(diet)
	f, fitErr := plan.DecodeFitness(fitness)

	if fitErr == nil {
		for _, w := range f.Week {
			if strings.Contains(q, w.Day) {
				return describeWorkout(w)
			}
		}
	}
	if dietErr == nil {
		for _, m := range d.Meals {
			if strings.Contains(q, strings.ToLower(m.Name)) {
				return describeMeal(m)
			}
		}
		if containsAny(q, "calorie", "kcal", "protein", "carb", "fat", "macro", "target") {
			return fmt.Sprintf("Your daily targets are %d kcal, %d g protein, %d g carbohydrates and %d g fat.",
				d.TargetCalories, d.TargetProtein, d.TargetCarbs, d.TargetFat)
		}
		if containsAny(q, "meal", "eat", "food", "diet") {
			lines := make([]string, 0, len(d.Meals))
			for _, m := range d.Meals {
				lines = append(lines, describeMeal(m))
			}
			return strings.Join(lines, "\n")
		}
	}
	if fitErr == nil && containsAny(q, "workout", "exercise", "train", "gym", "week", "schedule") {
		var days []string
		for _, w := range f.Week {
			if !strings.EqualFold(w.Activity, plan.Rest) {
				days = append(days, fmt.Sprintf("%s (%s)", capitalize(w.Day), w.Activity))
			}
		}
		return "You train on " + strings.Join(days, ", ") + ". The other days are rest days."
	}
	return ""
}

func describeWorkout(w plan.Workout) string {
	if strings.EqualFold(w.Activity, plan.Rest) {
		return capitalize(w.Day) + " is a rest day."
	}
	out := fmt.Sprintf("On %s: %s", capitalize(w.Day), w.Activity)
	if w.DurationMinutes > 0 {
		out += fmt.Sprintf(", %d minutes", w.DurationMinutes)
	}
	if len(w.Exercises) > 0 {
		parts := make([]string, 0, len(w.Exercises))
		for _, e := range w.Exercises {
			parts = append(parts, fmt.Sprintf("%s %dx%s", e.Name, e.Sets, e.Reps))
		}
		out += ". " + strings.Join(parts, ", ")
	}
	if w.Notes != "" {
		out += ". " + w.Notes
	}
	return out
}

func describeMeal(m plan.Meal) string {
	return fmt.Sprintf("%s: %s (%d kcal, %d g protein, %d g carbs, %d g fat)",
		m.Name, m.Description, m.Calories, m.Protein, m.Carbs, m.Fat)
}

func humanAgent(name string) string {
	switch name {
	case agent.DietitianName:
		return "Dietitian Agent"
	case agent.CoachName:
		return "Coach Agent"
	case agent.CalculatorName:
		return "Nutrition Calculator Agent"
	case agent.FeedbackName:
		return "Feedback Agent"
	}
	return name
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func recalled(inv *agent.Invocation, key string) any {
	v, _ := inv.Recall(key)
	return v
}
