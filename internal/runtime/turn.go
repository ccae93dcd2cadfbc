package runtime

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/kalambet/heracles/internal/storage"
)

// Message is one reply emitted during a turn.
type Message struct {
	Agent string `json:"agent"`
	Text  string `json:"text"`
}

// Turn is the outcome of one user input: every message the agents emitted
// in hop order, the agents that ran, and which agent awaits the next input.
type Turn struct {
	ID          string    `json:"id"`
	SessionID   string    `json:"session_id"`
	Seq         int       `json:"seq"`
	CreatedAt   time.Time `json:"created_at"`
	Input       string    `json:"input"`
	Messages    []Message `json:"messages"`
	Agents      []string  `json:"agents"`
	ActiveAgent string    `json:"active_agent"`
	Error       string    `json:"error,omitempty"`
}

// Text joins the turn's messages with blank lines.
func (t Turn) Text() string {
	parts := make([]string, 0, len(t.Messages))
	for _, m := range t.Messages {
		parts = append(parts, m.Text)
	}
	return strings.Join(parts, "\n\n")
}

func (t Turn) record() (storage.Turn, error) {
	msgs, err := json.Marshal(t.Messages)
	if err != nil {
		return storage.Turn{}, fmt.Errorf("encoding messages: %w", err)
	}
	agents, err := json.Marshal(t.Agents)
	if err != nil {
		return storage.Turn{}, fmt.Errorf("encoding agents: %w", err)
	}
	return storage.Turn{
		ID:           t.ID,
		SessionID:    t.SessionID,
		CreatedAt:    t.CreatedAt,
		Input:        t.Input,
		MessagesJSON: string(msgs),
		AgentsJSON:   string(agents),
		ActiveAgent:  t.ActiveAgent,
		Error:        t.Error,
	}, nil
}

func turnFromRecord(rec storage.Turn) (Turn, error) {
	t := Turn{
		ID:          rec.ID,
		SessionID:   rec.SessionID,
		Seq:         rec.Seq,
		CreatedAt:   rec.CreatedAt,
		Input:       rec.Input,
		ActiveAgent: rec.ActiveAgent,
		Error:       rec.Error,
	}
	if err := json.Unmarshal([]byte(rec.MessagesJSON), &t.Messages); err != nil {
		return Turn{}, fmt.Errorf("decoding messages of turn %s: %w", rec.ID, err)
	}
	if err := json.Unmarshal([]byte(rec.AgentsJSON), &t.Agents); err != nil {
		return Turn{}, fmt.Errorf("decoding agents of turn %s: %w", rec.ID, err)
	}
	return t, nil
}
