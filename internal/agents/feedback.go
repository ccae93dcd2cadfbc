package agents

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/kalambet/heracles/internal/agent"
	"github.com/kalambet/heracles/internal/engine"
	"github.com/kalambet/heracles/internal/state"
)

const feedbackTimeout = 20 * time.Second

// recentEntries bounds how much of the adherence log feedback reads.
const recentEntries = 9

// Chatter is the chat completion surface of a local inference engine.
type Chatter interface {
	Chat(ctx context.Context, model string, messages []engine.Message, jsonSchema *engine.Schema) (string, error)
}

// Feedback summarizes adherence from the check-in log. With an engine the
// summary is phrased by the model; any engine failure falls back to the
// rule-based summary.
type Feedback struct {
	Engine Chatter
	Model  string
	Logger *slog.Logger
}

func (*Feedback) Name() string { return agent.FeedbackName }

func (f *Feedback) Handle(ctx context.Context, inv *agent.Invocation) (agent.Action, error) {
	entries := recent(inv.State)
	text := f.summarize(inv, entries)
	if f.Engine != nil && len(entries) > 0 {
		if phrased, err := f.phrase(ctx, inv, entries); err != nil {
			f.logger().Warn("feedback phrasing failed, using rule-based feedback", "error", err)
		} else if phrased != "" {
			text = phrased
		}
	}
	return agent.Return(agent.Success(map[string]any{"feedback": text})).Saying(text), nil
}

// summarize sorts the logged topics into going well and hard, by how each
// answer reads.
func (f *Feedback) summarize(inv *agent.Invocation, entries []string) string {
	if len(entries) == 0 {
		return say(inv, "empty")
	}

	var good, hard []string
	seen := map[string]bool{}
	// Newest first so the latest answer per topic wins.
	for i := len(entries) - 1; i >= 0; i-- {
		topic, answer, ok := ParseLogEntry(entries[i])
		if !ok || seen[topic] {
			continue
		}
		seen[topic] = true
		switch agent.Classify(answer) {
		case agent.Yes:
			good = append(good, topicPhrase(topic))
		case agent.No:
			hard = append(hard, topicPhrase(topic))
		}
	}

	switch {
	case len(hard) == 0 && len(good) == 0:
		return say(inv, "all_good", "details", "Thanks for keeping me posted.")
	case len(hard) == 0:
		return say(inv, "all_good", "details", "You kept up with "+joinAnd(good)+".")
	case len(good) == 0:
		return say(inv, "struggling", "hard", joinAnd(hard))
	default:
		return say(inv, "mixed", "good", joinAnd(good), "hard", joinAnd(hard))
	}
}

func (f *Feedback) phrase(ctx context.Context, inv *agent.Invocation, entries []string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, feedbackTimeout)
	defer cancel()

	messages := []engine.Message{
		{Role: "system", Content: inv.Instruction()},
		{Role: "user", Content: "Latest check-ins:\n- " + strings.Join(entries, "\n- ") +
			"\n\nWrite the feedback for " + displayName(inv.State) + " in two or three sentences."},
	}
	out, err := f.Engine.Chat(ctx, f.Model, messages, nil)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func (f *Feedback) logger() *slog.Logger {
	if f.Logger == nil {
		return slog.Default()
	}
	return f.Logger
}

func recent(st *state.Store) []string {
	v, ok := st.Get(state.AdherenceLog)
	if !ok {
		return nil
	}
	entries := toStrings(v)
	if len(entries) > recentEntries {
		entries = entries[len(entries)-recentEntries:]
	}
	return entries
}

func topicPhrase(topic string) string {
	switch topic {
	case TopicWorkout:
		return "your workouts"
	case TopicMeals:
		return "the meal plan"
	case TopicEnergy:
		return "energy and recovery"
	}
	return topic
}

func joinAnd(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	}
	return strings.Join(items[:len(items)-1], ", ") + " and " + items[len(items)-1]
}
