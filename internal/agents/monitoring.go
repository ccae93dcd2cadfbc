package agents

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kalambet/heracles/internal/agent"
	"github.com/kalambet/heracles/internal/plan"
	"github.com/kalambet/heracles/internal/state"
	"github.com/kalambet/heracles/internal/tools"
)

const (
	stepChecking = "checking"
	stepDone     = "done"
)

// Check-in topics in the order they are asked. They prefix each
// adherence_log entry.
const (
	TopicWorkout = "workout"
	TopicMeals   = "meals"
	TopicEnergy  = "energy"
)

var checkins = []string{TopicWorkout, TopicMeals, TopicEnergy}

// Monitoring asks check-in questions about the stored plans and logs the
// answers, then hands over to feedback.
type Monitoring struct{}

func (Monitoring) Name() string { return agent.MonitoringName }

func (m Monitoring) Handle(ctx context.Context, inv *agent.Invocation) (agent.Action, error) {
	if inv.Resumed != nil {
		inv.Goto(stepDone)
		return agent.Reply(say(inv, "again")), nil
	}
	if !hasPlans(inv.State) {
		return agent.Transfer(agent.PlanningName).Saying(say(inv, "no_plan")), nil
	}
	if inv.Step() == stepChecking {
		return m.record(ctx, inv), nil
	}

	inv.Remember("question", 0)
	inv.Goto(stepChecking)
	return agent.Reply(m.question(inv, 0)), nil
}

func (m Monitoring) record(ctx context.Context, inv *agent.Invocation) agent.Action {
	idx, _ := inv.Recall("question")
	i := intOf(idx)
	if i >= len(checkins) {
		i = len(checkins) - 1
	}

	if answer := strings.TrimSpace(inv.Input); answer != "" {
		entry := LogEntry(inv.Now, checkins[i], answer)
		res := inv.Call(ctx, tools.MemorizeListName, map[string]any{"key": state.AdherenceLog, "value": entry})
		if res.IsError() {
			inv.Log().Info("check-in not logged", "topic", checkins[i], "error", res.Message())
		}
	}

	if i+1 < len(checkins) {
		inv.Remember("question", i+1)
		return agent.Reply(m.question(inv, i+1))
	}
	inv.Goto("")
	return agent.Delegate(agent.FeedbackName, "Review the latest check-in").Saying(say(inv, "to_feedback"))
}

func (m Monitoring) question(inv *agent.Invocation, i int) string {
	switch checkins[i] {
	case TopicWorkout:
		day, activity := "next", "training"
		if raw, ok := inv.State.GetObject(state.FitnessPlanKey); ok {
			if f, err := plan.DecodeFitness(raw); err == nil {
				for _, w := range f.Week {
					if !strings.EqualFold(w.Activity, plan.Rest) {
						day, activity = capitalize(w.Day), w.Activity
						break
					}
				}
			}
		}
		return say(inv, "workout", "day", day, "activity", activity)
	case TopicMeals:
		meal := "breakfast"
		if raw, ok := inv.State.GetObject(state.DietPlanKey); ok {
			if d, err := plan.DecodeDiet(raw); err == nil && len(d.Meals) > 0 {
				meal = strings.ToLower(d.Meals[0].Name)
			}
		}
		return say(inv, "meals", "meal", meal)
	default:
		return say(inv, "energy")
	}
}

// LogEntry formats one adherence_log entry: "<date> <topic>: <answer>".
func LogEntry(now time.Time, topic, answer string) string {
	if now.IsZero() {
		now = time.Now()
	}
	return fmt.Sprintf("%s %s: %s", now.Format(time.DateOnly), topic, answer)
}

// ParseLogEntry splits an adherence_log entry into topic and answer.
func ParseLogEntry(entry string) (topic, answer string, ok bool) {
	head, answer, found := strings.Cut(entry, ": ")
	if !found {
		return "", "", false
	}
	fields := strings.Fields(head)
	if len(fields) == 0 {
		return "", "", false
	}
	return fields[len(fields)-1], strings.TrimSpace(answer), true
}
