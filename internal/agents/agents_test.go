package agents

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kalambet/heracles/internal/agent"
	"github.com/kalambet/heracles/internal/engine"
	"github.com/kalambet/heracles/internal/nutrition"
	"github.com/kalambet/heracles/internal/plan"
	"github.com/kalambet/heracles/internal/profile"
	"github.com/kalambet/heracles/internal/state"
	"github.com/kalambet/heracles/internal/tools"
)

var testNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type harness struct {
	t      *testing.T
	set    *Set
	reg    *tools.Registry
	st     *state.Store
	frames map[string]*agent.Frame
}

func newHarness(t *testing.T, st *state.Store, deps Deps) *harness {
	t.Helper()
	set, err := New(deps)
	require.NoError(t, err)
	reg, err := tools.Default(tools.Deps{})
	require.NoError(t, err)
	if st == nil {
		st = state.New()
	}
	return &harness{t: t, set: set, reg: reg, st: st, frames: map[string]*agent.Frame{}}
}

// start resets name's frame with request.
func (h *harness) start(name, request string) {
	h.frames[name] = agent.NewFrame(name, request)
}

func (h *harness) hop(name, input string, resumed *agent.Result) agent.Action {
	h.t.Helper()
	a, spec, ok := h.set.Lookup(name)
	require.True(h.t, ok, name)
	fr, ok := h.frames[name]
	if !ok {
		fr = agent.NewFrame(name, "")
		h.frames[name] = fr
	}
	inv := &agent.Invocation{
		Input:   input,
		Resumed: resumed,
		Frame:   fr,
		State:   h.st,
		Spec:    spec,
		Tools:   h.reg,
		Now:     testNow,
	}
	act, err := a.Handle(context.Background(), inv)
	require.NoError(h.t, err)
	return act
}

func text(a agent.Action) string { return strings.Join(a.Messages, "\n") }

func exampleProfile() map[string]any {
	return map[string]any{
		"name":                "Alex",
		"age":                 30,
		"sex":                 "male",
		"height_cm":           180,
		"weight_kg":           80,
		"activity_level":      "moderately_active",
		"fitness_goals":       []any{"lose_weight"},
		"dietary_preferences": []any{"none"},
		"available_equipment": []any{"dumbbells"},
	}
}

func exampleTargets(t *testing.T) nutrition.Result {
	t.Helper()
	res, err := nutrition.Calculate(exampleProfile())
	require.NoError(t, err)
	return res
}

func storedPlans(t *testing.T) map[string]any {
	p, err := profile.Decode(exampleProfile())
	require.NoError(t, err)
	return map[string]any{
		state.ProfileKey:     exampleProfile(),
		state.DietPlanKey:    plan.BuildDiet(exampleTargets(t), nil, nil).Map(),
		state.FitnessPlanKey: plan.BuildFitness(p, nil).Map(),
	}
}

func TestNew_AllAgentsHaveSpecs(t *testing.T) {
	set, err := New(Deps{})
	require.NoError(t, err)
	for _, name := range set.Catalog().Names() {
		a, spec, ok := set.Lookup(name)
		require.True(t, ok, name)
		assert.Equal(t, name, a.Name())
		assert.Equal(t, name, spec.Name)
	}
	_, _, ok := set.Lookup("nobody")
	assert.False(t, ok)
}

func TestRoute(t *testing.T) {
	empty := state.New()
	assert.Equal(t, agent.OnboardingName, Route("hi", empty))
	assert.Equal(t, agent.OnboardingName, Route("give me feedback", empty))

	profiled := state.FromMap(map[string]any{state.ProfileKey: exampleProfile()})
	assert.Equal(t, agent.PlanningName, Route("hello", profiled))
	assert.Equal(t, agent.OnboardingName, Route("I want to update my profile", profiled))

	planned := state.FromMap(storedPlans(t))
	assert.Equal(t, agent.MonitoringName, Route("hey", planned))
	assert.Equal(t, agent.FeedbackName, Route("Can I get some feedback?", planned))
	assert.Equal(t, agent.MonitoringName, Route("time for a check-in", planned))
	assert.Equal(t, agent.PlanningName, Route("show me my plan", planned))
	assert.Equal(t, agent.PlanningName, Route("Can we revisit my plans?", planned))
	assert.Equal(t, agent.MonitoringName, Route("explain my macros", planned))
}

func TestContainsAny_WordBoundaries(t *testing.T) {
	tests := []struct {
		text   string
		needle string
		want   bool
	}{
		{"show me my plan", "plan", true},
		{"my plans, please", "plan", true},
		{"explain my macros", "plan", false},
		{"that's great!", "eat", false},
		{"what should i eat?", "eat", true},
		{"no, that's all", "that's all", true},
		{"no questions", "no question", true},
		{"time for a Check-In", "check-in", true},
		{"", "plan", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, containsAny(tt.text, tt.needle), "%q in %q", tt.needle, tt.text)
	}
}

func TestRoot_TransfersWithWelcome(t *testing.T) {
	h := newHarness(t, nil, Deps{})
	act := h.hop(agent.RootName, "hi", nil)
	assert.Equal(t, agent.ActTransfer, act.Kind)
	assert.Equal(t, agent.OnboardingName, act.Target)
	assert.Contains(t, text(act), "Heracles.AI")
}

func TestOnboarding_CollectsProfile(t *testing.T) {
	h := newHarness(t, nil, Deps{})

	act := h.hop(agent.OnboardingName, "hi", nil)
	assert.Equal(t, agent.ActReply, act.Kind)
	require.Len(t, act.Messages, 2)
	assert.Contains(t, act.Messages[0], "Onboarding Specialist")
	assert.Equal(t, "What's your name?", act.Messages[1])

	act = h.hop(agent.OnboardingName, "Ana", nil)
	assert.Contains(t, text(act), "How old are you?")

	act = h.hop(agent.OnboardingName, "thirty", nil)
	assert.Contains(t, text(act), "Sorry, I couldn't use that")
	assert.Contains(t, text(act), "How old are you?")
	assert.False(t, h.st.Has("user_profile.age"))

	for _, answer := range []string{"30", "female", "165", "60", "moderately active", "lose weight", "vegetarian", "dumbbells and bench"} {
		act = h.hop(agent.OnboardingName, answer, nil)
		require.Equal(t, agent.ActReply, act.Kind, answer)
	}
	assert.Contains(t, text(act), "Here is what I have")
	assert.Contains(t, text(act), "Ana")

	age, _ := h.st.GetString("user_profile.age")
	assert.Equal(t, "30", age)
	goals, _ := h.st.Get("user_profile.fitness_goals")
	assert.Equal(t, []any{"lose_weight"}, goals)
	equipment, _ := h.st.Get("user_profile.available_equipment")
	assert.Equal(t, []any{"dumbbells", "bench"}, equipment)

	act = h.hop(agent.OnboardingName, "weight: 58", nil)
	assert.Contains(t, text(act), "Updated weight_kg.")
	weight, _ := h.st.GetString("user_profile.weight_kg")
	assert.Equal(t, "58", weight)

	act = h.hop(agent.OnboardingName, "shoe size: 40", nil)
	assert.Contains(t, text(act), `I don't know a field called "shoe size"`)

	act = h.hop(agent.OnboardingName, "hmm", nil)
	assert.Contains(t, text(act), "Which detail should I change?")

	act = h.hop(agent.OnboardingName, "yes, that's right", nil)
	assert.Equal(t, agent.ActTransfer, act.Kind)
	assert.Equal(t, agent.PlanningName, act.Target)
	assert.Contains(t, text(act), "Thanks, Ana!")

	_, err := nutrition.Calculate(profileMap(h.st))
	assert.NoError(t, err, "collected profile must be calculable")
}

func TestCalculator_Handshake(t *testing.T) {
	st := state.FromMap(map[string]any{state.ProfileKey: exampleProfile()})
	h := newHarness(t, st, Deps{})

	h.start(agent.CalculatorName, "lose weight")
	act := h.hop(agent.CalculatorName, "", nil)
	assert.Equal(t, agent.ActReply, act.Kind)
	assert.Contains(t, text(act), "your goal of 'lose weight'")
	assert.Contains(t, text(act), `"estimated_daily_calories": 2259`)

	act = h.hop(agent.CalculatorName, "yes, correct", nil)
	require.Equal(t, agent.ActReturn, act.Kind)
	assert.Equal(t, agent.KindSuccess, act.Result.Kind)
	assert.EqualValues(t, 2259, act.Result.Payload["estimated_daily_calories"])
	assert.EqualValues(t, 277, act.Result.Payload["carbohydrate_grams"])
}

func TestCalculator_NotConfirmed(t *testing.T) {
	st := state.FromMap(map[string]any{state.ProfileKey: exampleProfile()})
	h := newHarness(t, st, Deps{})

	h.start(agent.CalculatorName, "lose weight")
	h.hop(agent.CalculatorName, "", nil)
	act := h.hop(agent.CalculatorName, "no, that seems too low", nil)
	require.Equal(t, agent.ActReturn, act.Kind)
	assert.Equal(t, agent.KindDeclined, act.Result.Kind)
	assert.Equal(t, map[string]any{"status": "User did not confirm calculations"}, act.Result.Payload)
	assert.Contains(t, text(act), "I cannot adjust the calculations myself")
}

func TestCalculator_ErrorReturnsImmediately(t *testing.T) {
	p := exampleProfile()
	delete(p, "age")
	h := newHarness(t, state.FromMap(map[string]any{state.ProfileKey: p}), Deps{})

	h.start(agent.CalculatorName, "lose weight")
	act := h.hop(agent.CalculatorName, "", nil)
	require.Equal(t, agent.ActReturn, act.Kind)
	assert.Equal(t, agent.KindError, act.Result.Kind)
	assert.Contains(t, act.Result.Message, "age")
	assert.Contains(t, text(act), "I encountered an error")
}

func TestDietitian_Flow(t *testing.T) {
	st := state.FromMap(map[string]any{state.ProfileKey: exampleProfile()})
	h := newHarness(t, st, Deps{})

	h.start(agent.DietitianName, "Create a nutrition plan")
	act := h.hop(agent.DietitianName, "", nil)
	assert.Contains(t, text(act), "lose weight plan")

	act = h.hop(agent.DietitianName, "no nuts", nil)
	require.Equal(t, agent.ActDelegate, act.Kind)
	assert.Equal(t, agent.CalculatorName, act.Target)
	assert.Equal(t, "lose weight", act.Request, "only the goal is passed on")
	restrictions, _ := st.Get(state.DietaryRestrictions)
	assert.Equal(t, []any{"no nuts"}, restrictions)

	confirmed := agent.Success(exampleTargets(t).Map())
	act = h.hop(agent.DietitianName, "", &confirmed)
	assert.Equal(t, agent.ActReply, act.Kind)
	assert.Contains(t, text(act), "confirmed the daily targets")
	assert.Contains(t, text(act), "Shall I proceed")

	act = h.hop(agent.DietitianName, "hmm", nil)
	assert.Contains(t, text(act), "Shall I proceed")

	act = h.hop(agent.DietitianName, "yes please", nil)
	assert.Contains(t, text(act), "sample nutrition plan")

	act = h.hop(agent.DietitianName, "looks good", nil)
	require.Equal(t, agent.ActReturn, act.Kind)
	require.True(t, act.Result.OK())
	d, err := plan.DecodeDiet(act.Result.Payload)
	require.NoError(t, err)
	assert.Equal(t, 2259, d.TargetCalories)
	assert.False(t, st.Has(state.DietPlanKey), "the dietitian does not store the plan itself")
}

func TestDietitian_CalculatorOutcomes(t *testing.T) {
	for _, tc := range []struct {
		name   string
		result agent.Result
		kind   agent.Kind
		says   string
	}{
		{"error", agent.Failure("age: missing or empty", nil), agent.KindError, "reported an issue"},
		{"declined", agent.Declined(NotConfirmed, map[string]any{"status": NotConfirmed}), agent.KindDeclined, "not confirmed"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t, state.FromMap(map[string]any{state.ProfileKey: exampleProfile()}), Deps{})
			h.start(agent.DietitianName, "")
			h.hop(agent.DietitianName, "", nil)
			h.hop(agent.DietitianName, "none", nil)

			act := h.hop(agent.DietitianName, "", &tc.result)
			require.Equal(t, agent.ActReturn, act.Kind)
			assert.Equal(t, tc.kind, act.Result.Kind)
			assert.Equal(t, tc.result.Message, act.Result.Message)
			assert.Contains(t, text(act), tc.says)
		})
	}
}

func TestCoach_Flow(t *testing.T) {
	st := state.FromMap(map[string]any{state.ProfileKey: exampleProfile()})
	h := newHarness(t, st, Deps{})

	h.start(agent.CoachName, "Create a weekly fitness plan")
	act := h.hop(agent.CoachName, "", nil)
	assert.Contains(t, text(act), "Hi Alex, our Planning Agent has forwarded me your data")
	assert.Contains(t, text(act), `"fitness_level": "intermediate"`)

	act = h.hop(agent.CoachName, "sure", nil)
	assert.Contains(t, text(act), "Here is your personalized fitness plan")

	act = h.hop(agent.CoachName, "yes", nil)
	require.Equal(t, agent.ActReturn, act.Kind)
	f, err := plan.DecodeFitness(act.Result.Payload)
	require.NoError(t, err)
	assert.Len(t, f.Week, 7)
}

func TestCoach_Declined(t *testing.T) {
	h := newHarness(t, state.FromMap(map[string]any{state.ProfileKey: exampleProfile()}), Deps{})
	h.start(agent.CoachName, "")
	h.hop(agent.CoachName, "", nil)
	act := h.hop(agent.CoachName, "not now", nil)
	require.Equal(t, agent.ActReturn, act.Kind)
	assert.Equal(t, agent.KindDeclined, act.Result.Kind)
}

func TestPlanning_Stages(t *testing.T) {
	st := state.FromMap(map[string]any{state.ProfileKey: exampleProfile()})
	h := newHarness(t, st, Deps{})
	plans := storedPlans(t)

	assert.Equal(t, StageNoDiet, StageOf(st))
	act := h.hop(agent.PlanningName, "yes", nil)
	require.Equal(t, agent.ActDelegate, act.Kind)
	assert.Equal(t, agent.DietitianName, act.Target)
	assert.Contains(t, text(act), "I have received your profile")

	diet := agent.Success(plans[state.DietPlanKey].(map[string]any))
	act = h.hop(agent.PlanningName, "", &diet)
	require.Equal(t, agent.ActDelegate, act.Kind)
	assert.Equal(t, agent.CoachName, act.Target)
	assert.Equal(t, StageNoFitness, StageOf(st))

	fitness := agent.Success(plans[state.FitnessPlanKey].(map[string]any))
	act = h.hop(agent.PlanningName, "", &fitness)
	assert.Equal(t, agent.ActReply, act.Kind)
	assert.Contains(t, text(act), "Please confirm that you are ready")
	assert.Equal(t, StageReady, StageOf(st))

	act = h.hop(agent.PlanningName, "not yet", nil)
	assert.Contains(t, text(act), "tell me when you are ready")

	act = h.hop(agent.PlanningName, "ok", nil)
	assert.Contains(t, text(act), "Here is your comprehensive nutrition and fitness plan")
	assert.Contains(t, text(act), `"overall_guidance"`)
	assert.Contains(t, text(act), "do you have any questions")

	act = h.hop(agent.PlanningName, "What do I do on monday?", nil)
	assert.Contains(t, text(act), "On Monday")
	assert.Contains(t, text(act), "Anything else")

	act = h.hop(agent.PlanningName, "How much protein should I eat?", nil)
	assert.Contains(t, text(act), "144 g protein")

	act = h.hop(agent.PlanningName, "Why is the sky blue?", nil)
	assert.Contains(t, text(act), "I can't answer that")

	act = h.hop(agent.PlanningName, "no, that's all", nil)
	assert.Equal(t, agent.ActTransfer, act.Kind)
	assert.Equal(t, agent.MonitoringName, act.Target)
}

func TestPlanning_ConfirmationNotAskedTwice(t *testing.T) {
	h := newHarness(t, state.FromMap(storedPlans(t)), Deps{})

	act := h.hop(agent.PlanningName, "", nil)
	assert.Contains(t, text(act), "Please confirm")
	h.hop(agent.PlanningName, "yes", nil)

	// Re-entering the ready stage in the same frame presents directly.
	h.frames[agent.PlanningName].Step = ""
	act = h.hop(agent.PlanningName, "", nil)
	assert.NotContains(t, text(act), "Please confirm")
	assert.Contains(t, text(act), "comprehensive nutrition and fitness plan")
}

func TestPlanning_HaltsOnDeclineAndError(t *testing.T) {
	st := state.FromMap(map[string]any{state.ProfileKey: exampleProfile()})
	h := newHarness(t, st, Deps{})

	h.hop(agent.PlanningName, "", nil)
	declined := agent.Declined(NotConfirmed, nil)
	act := h.hop(agent.PlanningName, "", &declined)
	assert.Equal(t, agent.ActReply, act.Kind)
	assert.Contains(t, text(act), "Dietitian Agent could not finish: "+NotConfirmed)
	assert.False(t, st.Has(state.DietPlanKey))

	// A new user turn drives the flow again.
	act = h.hop(agent.PlanningName, "let's try again", nil)
	assert.Equal(t, agent.ActDelegate, act.Kind)
	assert.Equal(t, agent.DietitianName, act.Target)

	broken := agent.Success(map[string]any{"target_calories": 0})
	act = h.hop(agent.PlanningName, "", &broken)
	assert.Contains(t, text(act), "could not store the diet_plan")
	assert.False(t, st.Has(state.DietPlanKey), "an invalid plan is never written")
}

func TestMonitoring_LogsCheckIns(t *testing.T) {
	st := state.FromMap(storedPlans(t))
	h := newHarness(t, st, Deps{})

	act := h.hop(agent.MonitoringName, "", nil)
	assert.Contains(t, text(act), "just checking in")
	assert.Contains(t, text(act), "Monday")

	act = h.hop(agent.MonitoringName, "yes, did it", nil)
	assert.Contains(t, text(act), "meal plan")
	act = h.hop(agent.MonitoringName, "no, too busy to cook", nil)
	assert.Contains(t, text(act), "energy levels")
	act = h.hop(agent.MonitoringName, "pretty good", nil)
	require.Equal(t, agent.ActDelegate, act.Kind)
	assert.Equal(t, agent.FeedbackName, act.Target)

	log, _ := st.Get(state.AdherenceLog)
	assert.Equal(t, []any{
		"2026-03-02 workout: yes, did it",
		"2026-03-02 meals: no, too busy to cook",
		"2026-03-02 energy: pretty good",
	}, log)

	done := agent.Success(map[string]any{"feedback": "nice"})
	act = h.hop(agent.MonitoringName, "", &done)
	assert.Contains(t, text(act), "check in again soon")
}

func TestMonitoring_WithoutPlans(t *testing.T) {
	h := newHarness(t, state.FromMap(map[string]any{state.ProfileKey: exampleProfile()}), Deps{})
	act := h.hop(agent.MonitoringName, "", nil)
	assert.Equal(t, agent.ActTransfer, act.Kind)
	assert.Equal(t, agent.PlanningName, act.Target)
}

func TestParseLogEntry(t *testing.T) {
	topic, answer, ok := ParseLogEntry(LogEntry(testNow, TopicMeals, "mostly: yes"))
	require.True(t, ok)
	assert.Equal(t, TopicMeals, topic)
	assert.Equal(t, "mostly: yes", answer)

	_, _, ok = ParseLogEntry("garbage")
	assert.False(t, ok)
}

type fakeChatter struct {
	reply string
	err   error
	got   []engine.Message
}

func (f *fakeChatter) Chat(_ context.Context, _ string, messages []engine.Message, _ *engine.Schema) (string, error) {
	f.got = messages
	return f.reply, f.err
}

func feedbackState() *state.Store {
	return state.FromMap(map[string]any{
		state.ProfileKey: map[string]any{"name": "Ana"},
		state.AdherenceLog: []any{
			"2026-03-02 workout: yes, did it",
			"2026-03-02 meals: no, too busy to cook",
			"2026-03-02 energy: hmm",
		},
	})
}

func TestFeedback_RuleBased(t *testing.T) {
	h := newHarness(t, feedbackState(), Deps{})
	act := h.hop(agent.FeedbackName, "", nil)
	require.Equal(t, agent.ActReturn, act.Kind)
	fb := act.Result.Payload["feedback"].(string)
	assert.Contains(t, fb, "Nice work on your workouts, Ana!")
	assert.Contains(t, fb, "the meal plan was a bit challenging")
	assert.Equal(t, []string{fb}, act.Messages)
}

func TestFeedback_Empty(t *testing.T) {
	h := newHarness(t, state.New(), Deps{})
	act := h.hop(agent.FeedbackName, "", nil)
	assert.Contains(t, act.Result.Payload["feedback"], "don't have any check-ins")
}

func TestFeedback_Engine(t *testing.T) {
	chat := &fakeChatter{reply: "  You're doing great, Ana.  "}
	h := newHarness(t, feedbackState(), Deps{Engine: chat, Model: "test"})
	act := h.hop(agent.FeedbackName, "", nil)
	assert.Equal(t, "You're doing great, Ana.", act.Result.Payload["feedback"])
	require.Len(t, chat.got, 2)
	assert.Contains(t, chat.got[0].Content, "Feedback Agent")
	assert.Contains(t, chat.got[1].Content, "meals: no, too busy to cook")

	failing := &fakeChatter{err: errors.New("engine down")}
	h = newHarness(t, feedbackState(), Deps{Engine: failing})
	act = h.hop(agent.FeedbackName, "", nil)
	assert.Contains(t, act.Result.Payload["feedback"], "Nice work on your workouts")
}
