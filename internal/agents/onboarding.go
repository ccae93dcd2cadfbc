package agents

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kalambet/heracles/internal/agent"
	"github.com/kalambet/heracles/internal/profile"
	"github.com/kalambet/heracles/internal/state"
	"github.com/kalambet/heracles/internal/tools"
)

const (
	stepAsk     = "ask"
	stepConfirm = "confirm"
)

// errSave marks a tool failure while writing an answer, as opposed to an
// answer that did not parse.
var errSave = errors.New("save failed")

// Onboarding collects the user profile one field at a time.
type Onboarding struct{}

func (Onboarding) Name() string { return agent.OnboardingName }

func (o Onboarding) Handle(ctx context.Context, inv *agent.Invocation) (agent.Action, error) {
	switch inv.Step() {
	case stepAsk:
		return o.answer(ctx, inv), nil
	case stepConfirm:
		return o.confirm(ctx, inv), nil
	}
	var intro string
	if len(profileMap(inv.State)) == 0 {
		intro = say(inv, "intro")
	}
	return o.next(inv).Saying(intro), nil
}

// next asks for the first missing field, or for confirmation once the
// profile is complete.
func (o Onboarding) next(inv *agent.Invocation) agent.Action {
	missing := profile.Missing(profileMap(inv.State))
	if len(missing) == 0 {
		inv.Goto(stepConfirm)
		return agent.Reply(say(inv, "confirm", "summary", profile.SummaryOf(profileMap(inv.State))))
	}
	f := missing[0]
	inv.Goto(stepAsk)
	inv.Remember("field", f.Name)
	return agent.Reply(f.Question)
}

func (o Onboarding) answer(ctx context.Context, inv *agent.Invocation) agent.Action {
	name, _ := inv.Recall("field")
	f, ok := profile.LookupField(stringOf(name))
	if !ok {
		return o.next(inv)
	}
	if err := o.save(ctx, inv, f, inv.Input); err != nil {
		return agent.Reply(o.rejection(inv, f, err))
	}
	return o.next(inv)
}

func (o Onboarding) confirm(ctx context.Context, inv *agent.Invocation) agent.Action {
	if field, value, ok := splitCorrection(inv.Input); ok {
		f, found := profile.LookupField(field)
		if !found {
			return agent.Reply(say(inv, "unknown_field", "field", field, "fields", fieldNames()))
		}
		if err := o.save(ctx, inv, f, value); err != nil {
			return agent.Reply(o.rejection(inv, f, err))
		}
		return o.next(inv).Saying(say(inv, "corrected", "field", f.Name))
	}

	if agent.Classify(inv.Input) == agent.Yes {
		return agent.Transfer(agent.PlanningName).Saying(say(inv, "done"))
	}
	return agent.Reply(say(inv, "which_field"))
}

// save parses answer for f and writes it under user_profile. List fields are
// replaced item by item through memorize_list.
func (o Onboarding) save(ctx context.Context, inv *agent.Invocation, f profile.Field, answer string) error {
	values, err := f.Parse(answer)
	if err != nil {
		return err
	}
	key := state.ProfileKey + "." + f.Name

	if !f.List {
		return saved(inv.Call(ctx, tools.MemorizeName, map[string]any{"key": key, "value": values[0]}))
	}
	if inv.State.Has(key) {
		if err := saved(inv.Call(ctx, tools.ForgetName, map[string]any{"key": key})); err != nil {
			return err
		}
	}
	for _, v := range values {
		if err := saved(inv.Call(ctx, tools.MemorizeListName, map[string]any{"key": key, "value": v})); err != nil {
			return err
		}
	}
	return nil
}

func (o Onboarding) rejection(inv *agent.Invocation, f profile.Field, err error) string {
	if errors.Is(err, errSave) {
		return say(inv, "save_failed", "reason", err.Error(), "question", f.Question)
	}
	return say(inv, "invalid", "reason", err.Error(), "question", f.Question)
}

func saved(res tools.Result) error {
	if res.IsError() {
		return fmt.Errorf("%w: %s", errSave, res.Message())
	}
	return nil
}

// splitCorrection reads "field: value" replies.
func splitCorrection(input string) (string, string, bool) {
	field, value, ok := strings.Cut(input, ":")
	if !ok {
		return "", "", false
	}
	field = strings.TrimSpace(field)
	value = strings.TrimSpace(value)
	if field == "" || value == "" || len(strings.Fields(field)) > 3 {
		return "", "", false
	}
	return field, value, true
}

func fieldNames() string {
	names := make([]string, 0, len(profile.Fields))
	for _, f := range profile.Fields {
		names = append(names, f.Name)
	}
	return strings.Join(names, ", ")
}

func stringOf(v any) string {
	s, _ := v.(string)
	return s
}
