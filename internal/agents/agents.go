// Package agents implements the coaching agents as step machines over the
// delegation protocol in package agent. Each agent derives its position from
// its frame step and from session state, so a restarted conversation picks
// up where the data says it is.
package agents

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"github.com/kalambet/heracles/internal/agent"
	"github.com/kalambet/heracles/internal/nutrition"
	"github.com/kalambet/heracles/internal/profile"
	"github.com/kalambet/heracles/internal/state"
)

// Deps are the collaborators of the agent set.
type Deps struct {
	// Catalog supplies specs; nil loads the embedded catalog.
	Catalog *agent.Catalog
	// Engine phrases feedback. Nil selects rule-based feedback.
	Engine Chatter
	Model  string
	Logger *slog.Logger
}

// Set holds every built-in agent with its spec.
type Set struct {
	catalog *agent.Catalog
	agents  map[string]agent.Agent
}

// New builds the agent set. Every agent must have a spec in the catalog.
func New(deps Deps) (*Set, error) {
	c := deps.Catalog
	if c == nil {
		var err error
		if c, err = agent.LoadCatalog(); err != nil {
			return nil, err
		}
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	all := []agent.Agent{
		Root{},
		Onboarding{},
		Planning{},
		Dietitian{},
		Calculator{},
		Coach{},
		Monitoring{},
		&Feedback{Engine: deps.Engine, Model: deps.Model, Logger: logger},
	}
	s := &Set{catalog: c, agents: make(map[string]agent.Agent, len(all))}
	for _, a := range all {
		if _, ok := c.Get(a.Name()); !ok {
			return nil, fmt.Errorf("agent %s has no catalog entry", a.Name())
		}
		s.agents[a.Name()] = a
	}
	return s, nil
}

// Lookup returns the agent called name and its spec.
func (s *Set) Lookup(name string) (agent.Agent, agent.Spec, bool) {
	a, ok := s.agents[name]
	if !ok {
		return nil, agent.Spec{}, false
	}
	spec, _ := s.catalog.Get(name)
	return a, spec, true
}

// Catalog returns the specs backing the set.
func (s *Set) Catalog() *agent.Catalog { return s.catalog }

// say renders message key with the user's display name and extra pairs.
func say(inv *agent.Invocation, key string, kv ...any) string {
	vars := map[string]any{"name": displayName(inv.State)}
	for i := 0; i+1 < len(kv); i += 2 {
		if k, ok := kv[i].(string); ok {
			vars[k] = kv[i+1]
		}
	}
	return inv.Say(key, vars)
}

func displayName(st *state.Store) string {
	if name, ok := st.GetString(state.ProfileKey + "." + profile.FieldName); ok {
		if name = strings.TrimSpace(name); name != "" {
			return name
		}
	}
	return "there"
}

func profileMap(st *state.Store) map[string]any {
	m, _ := st.GetObject(state.ProfileKey)
	return m
}

func userProfile(st *state.Store) profile.UserProfile {
	p, _ := profile.Decode(profileMap(st))
	return p
}

func hasPlans(st *state.Store) bool {
	return st.Has(state.DietPlanKey) && st.Has(state.FitnessPlanKey)
}

// goalPhrase is the user's primary goal in words, e.g. "lose weight".
func goalPhrase(p profile.UserProfile) string {
	for _, g := range p.FitnessGoals {
		if canonical, ok := profile.CanonicalGoal(g); ok {
			return strings.ReplaceAll(canonical, "_", " ")
		}
	}
	if len(p.FitnessGoals) > 0 {
		return p.FitnessGoals[0]
	}
	return ""
}

// targetsFrom decodes confirmed calculator output.
func targetsFrom(v any) (nutrition.Result, error) {
	var r nutrition.Result
	b, err := json.Marshal(v)
	if err != nil {
		return r, err
	}
	if err := json.Unmarshal(b, &r); err != nil {
		return r, fmt.Errorf("decoding targets: %w", err)
	}
	return r, nil
}

func objectOf(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func intOf(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	}
	return 0
}

// containsAny reports whether any needle starts at a word boundary in text,
// so "plan" matches "plans" but not "explain". Needles may span words.
func containsAny(text string, needles ...string) bool {
	padded := " " + strings.Join(words(text), " ")
	for _, n := range needles {
		if strings.Contains(padded, " "+n) {
			return true
		}
	}
	return false
}

// words lowercases text and splits it on anything but letters, digits,
// apostrophes and hyphens.
func words(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\'' && r != '-'
	})
}

func withoutNone(items []string) []string {
	var out []string
	for _, it := range items {
		if !strings.EqualFold(strings.TrimSpace(it), "none") && strings.TrimSpace(it) != "" {
			out = append(out, it)
		}
	}
	return out
}
