package runtime

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/kalambet/heracles/internal/agent"
	"github.com/kalambet/heracles/internal/state"
	"github.com/kalambet/heracles/internal/storage"
)

// Session is one conversation: its state store and the stack of active
// agent frames. The top frame receives the next user input.
type Session struct {
	ID        string
	CreatedAt time.Time
	UpdatedAt time.Time
	State     *state.Store

	mu      sync.Mutex
	stack   []*agent.Frame
	turns   int
	history []Turn
}

// Info is the read-only view of a session.
type Info struct {
	ID          string         `json:"id"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	ActiveAgent string         `json:"active_agent"`
	Turns       int            `json:"turns"`
	State       map[string]any `json:"state,omitempty"`
	Stack       []agent.Frame  `json:"stack,omitempty"`
}

func newSession(id string, now time.Time) *Session {
	return &Session{
		ID:        id,
		CreatedAt: now,
		UpdatedAt: now,
		State:     state.New(),
		stack:     []*agent.Frame{agent.NewFrame(agent.RootName, "")},
	}
}

// Info returns a copy of the session. With detail the state snapshot and
// frame stack are included.
func (s *Session) Info(detail bool) Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.info(detail)
}

func (s *Session) info(detail bool) Info {
	out := Info{
		ID:          s.ID,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
		ActiveAgent: s.active(),
		Turns:       s.turns,
	}
	if detail {
		out.State = s.State.Snapshot()
		for _, f := range s.stack {
			out.Stack = append(out.Stack, *f)
		}
	}
	return out
}

func (s *Session) active() string {
	if len(s.stack) == 0 {
		return agent.RootName
	}
	return s.stack[len(s.stack)-1].Agent
}

func (s *Session) top() *agent.Frame {
	if len(s.stack) == 0 {
		s.reset()
	}
	return s.stack[len(s.stack)-1]
}

func (s *Session) push(f *agent.Frame) { s.stack = append(s.stack, f) }

func (s *Session) replace(f *agent.Frame) { s.stack[len(s.stack)-1] = f }

// pop drops the top frame and reports whether a delegator is left.
func (s *Session) pop() bool {
	s.stack = s.stack[:len(s.stack)-1]
	return len(s.stack) > 0
}

func (s *Session) reset() {
	s.stack = []*agent.Frame{agent.NewFrame(agent.RootName, "")}
}

// record encodes the session for storage.
func (s *Session) record() (storage.Session, error) {
	st, err := json.Marshal(s.State.Snapshot())
	if err != nil {
		return storage.Session{}, fmt.Errorf("encoding state: %w", err)
	}
	stack, err := json.Marshal(s.stack)
	if err != nil {
		return storage.Session{}, fmt.Errorf("encoding stack: %w", err)
	}
	return storage.Session{
		ID:          s.ID,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
		ActiveAgent: s.active(),
		StateJSON:   string(st),
		StackJSON:   string(stack),
		TurnCount:   s.turns,
	}, nil
}

// restore decodes a stored session.
func restore(rec storage.Session) (*Session, error) {
	var data map[string]any
	if err := json.Unmarshal([]byte(rec.StateJSON), &data); err != nil {
		return nil, fmt.Errorf("decoding state of session %s: %w", rec.ID, err)
	}
	var stack []*agent.Frame
	if err := json.Unmarshal([]byte(rec.StackJSON), &stack); err != nil {
		return nil, fmt.Errorf("decoding stack of session %s: %w", rec.ID, err)
	}
	s := &Session{
		ID:        rec.ID,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
		State:     state.FromMap(data),
		stack:     stack,
		turns:     rec.TurnCount,
	}
	if len(s.stack) == 0 {
		s.reset()
	}
	return s, nil
}
