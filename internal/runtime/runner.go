// Package runtime runs conversations: it owns the sessions, seeds their
// state, and drives each user turn through the agents' delegation stack.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/kalambet/heracles/internal/agent"
	"github.com/kalambet/heracles/internal/composer"
	"github.com/kalambet/heracles/internal/storage"
	"github.com/kalambet/heracles/internal/tools"
)

var (
	// ErrSessionNotFound is returned for unknown session IDs.
	ErrSessionNotFound = errors.New("session not found")
	// ErrHopLimit ends a turn whose agents kept handing off without ever
	// waiting for the user.
	ErrHopLimit = errors.New("hop limit reached")
	// ErrUnknownAgent is returned when an action names an agent that does
	// not exist.
	ErrUnknownAgent = errors.New("unknown agent")
	// ErrNotSubAgent is returned when an agent delegates to an agent outside
	// its sub-agents.
	ErrNotSubAgent = errors.New("not a sub-agent")
)

const (
	DefaultMaxSessions = 256
	DefaultMaxHops     = 16
	// maxHistory bounds the in-memory turn history kept without a Store.
	maxHistory = 200
)

// Directory resolves agents by name.
type Directory interface {
	Lookup(name string) (agent.Agent, agent.Spec, bool)
}

// Store persists sessions and their turn log. *storage.Store implements it.
type Store interface {
	SaveSession(storage.Session) error
	GetSession(id string) (storage.Session, error)
	ListSessions(limit int) ([]storage.Session, error)
	DeleteSession(id string) error
	AppendTurn(storage.Turn) (int, error)
	ListTurns(sessionID string, limit int) ([]storage.Turn, error)
}

// Config wires a Runner.
type Config struct {
	Agents Directory
	Tools  *tools.Registry
	// Seed is merged into every new session's state by the seeding hook.
	Seed map[string]any
	// Store is optional. Without it sessions live only in memory and are
	// lost when evicted.
	Store       Store
	MaxSessions int
	MaxHops     int
	Logger      *slog.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

// Runner drives turns for a bounded set of live sessions.
type Runner struct {
	agents   Directory
	tools    *tools.Registry
	seed     map[string]any
	store    Store
	maxHops  int
	logger   *slog.Logger
	now      func() time.Time
	render   *composer.Composer
	sessions *lru.Cache[string, *Session]
	loads    singleflight.Group
}

// New returns a Runner for cfg.
func New(cfg Config) (*Runner, error) {
	if cfg.Agents == nil {
		return nil, errors.New("runtime: no agents configured")
	}
	if cfg.Tools == nil {
		return nil, errors.New("runtime: no tools configured")
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = DefaultMaxSessions
	}
	if cfg.MaxHops <= 0 {
		cfg.MaxHops = DefaultMaxHops
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	r := &Runner{
		agents:  cfg.Agents,
		tools:   cfg.Tools,
		seed:    cfg.Seed,
		store:   cfg.Store,
		maxHops: cfg.MaxHops,
		logger:  cfg.Logger,
		now:     cfg.Now,
		render:  composer.New(0),
	}
	cache, err := lru.NewWithEvict[string, *Session](cfg.MaxSessions, r.evicted)
	if err != nil {
		return nil, fmt.Errorf("runtime: session cache: %w", err)
	}
	r.sessions = cache
	return r, nil
}

// evicted runs when a session leaves the cache, on eviction or Delete.
func (r *Runner) evicted(id string, _ *Session) {
	r.logger.Debug("session left memory", "session", id, "persisted", r.store != nil)
}

// Create starts a new session at the root agent.
func (r *Runner) Create(_ context.Context) (*Session, error) {
	s := newSession(uuid.NewString(), r.now())
	r.seedSession(s, s.CreatedAt)
	if err := r.save(s); err != nil {
		return nil, err
	}
	r.sessions.Add(s.ID, s)
	r.logger.Info("session created", "session", s.ID)
	return s, nil
}

// Get returns the live session, loading it from the Store when it is not
// cached.
func (r *Runner) Get(id string) (*Session, error) {
	if s, ok := r.sessions.Get(id); ok {
		return s, nil
	}
	if r.store == nil {
		return nil, ErrSessionNotFound
	}

	v, err, _ := r.loads.Do(id, func() (any, error) {
		if s, ok := r.sessions.Get(id); ok {
			return s, nil
		}
		rec, err := r.store.GetSession(id)
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("loading session: %w", err)
		}
		s, err := restore(rec)
		if err != nil {
			return nil, err
		}
		r.seedSession(s, r.now())
		r.sessions.Add(id, s)
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Session), nil
}

// Delete drops the session from memory and the Store.
func (r *Runner) Delete(id string) error {
	cached := r.sessions.Remove(id)
	if r.store == nil {
		if !cached {
			return ErrSessionNotFound
		}
		return nil
	}
	err := r.store.DeleteSession(id)
	if errors.Is(err, storage.ErrNotFound) {
		if cached {
			return nil
		}
		return ErrSessionNotFound
	}
	if err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// List returns session summaries, most recently updated first.
func (r *Runner) List(limit int) ([]Info, error) {
	if limit <= 0 {
		limit = 50
	}
	if r.store == nil {
		var out []Info
		for _, s := range r.sessions.Values() {
			out = append(out, s.Info(false))
		}
		sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
		if len(out) > limit {
			out = out[:limit]
		}
		return out, nil
	}

	recs, err := r.store.ListSessions(limit)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	out := make([]Info, 0, len(recs))
	for _, rec := range recs {
		if s, ok := r.sessions.Peek(rec.ID); ok {
			out = append(out, s.Info(false))
			continue
		}
		out = append(out, Info{
			ID:          rec.ID,
			CreatedAt:   rec.CreatedAt,
			UpdatedAt:   rec.UpdatedAt,
			ActiveAgent: rec.ActiveAgent,
			Turns:       rec.TurnCount,
		})
	}
	return out, nil
}

// Turns returns the logged turns of a session in order.
func (r *Runner) Turns(id string, limit int) ([]Turn, error) {
	s, err := r.Get(id)
	if err != nil {
		return nil, err
	}
	if r.store == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		out := append([]Turn(nil), s.history...)
		if limit > 0 && len(out) > limit {
			out = out[:limit]
		}
		return out, nil
	}

	recs, err := r.store.ListTurns(id, limit)
	if err != nil {
		return nil, fmt.Errorf("listing turns: %w", err)
	}
	out := make([]Turn, 0, len(recs))
	for _, rec := range recs {
		t, err := turnFromRecord(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// seedSession applies the scenario seed to a new or restored session. The
// store ignores repeat seeding, so every surface sees the same initial state.
func (r *Runner) seedSession(s *Session, now time.Time) {
	if s.State.Seed(r.seed, now) {
		r.logger.Debug("session seeded", "session", s.ID, "keys", len(r.seed))
	}
}

// CallTool invokes a tool directly against the session's state.
func (r *Runner) CallTool(ctx context.Context, id, name string, args map[string]any) (tools.Result, error) {
	s, err := r.Get(id)
	if err != nil {
		return nil, err
	}
	if _, ok := r.tools.Get(name); !ok {
		return nil, fmt.Errorf("%w: %s", tools.ErrUnknownTool, name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	res := r.tools.Invoke(ctx, s.State, name, args)
	s.UpdatedAt = r.now()
	if err := r.save(s); err != nil {
		return nil, err
	}
	return res, nil
}

// Turn feeds input to the session's active agent and follows the agents'
// actions until one waits for the user. Agent failures and runaway
// delegation end the turn with Turn.Error set and the session back at the
// root agent; the returned error is reserved for session and storage
// failures.
func (r *Runner) Turn(ctx context.Context, id, input string) (Turn, error) {
	s, err := r.Get(id)
	if err != nil {
		return Turn{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := r.now()

	turn := Turn{
		ID:        uuid.NewString(),
		SessionID: s.ID,
		CreatedAt: now,
		Input:     input,
	}
	if err := r.run(ctx, s, &turn, strings.TrimSpace(input), now); err != nil {
		turn.Error = err.Error()
		r.logger.Warn("turn failed", "session", s.ID, "agents", turn.Agents, "error", err)
		s.reset()
	}
	turn.ActiveAgent = s.active()

	s.turns++
	s.UpdatedAt = now
	if err := r.log(s, &turn); err != nil {
		return turn, err
	}
	return turn, nil
}

func (r *Runner) run(ctx context.Context, s *Session, turn *Turn, input string, now time.Time) error {
	var resumed *agent.Result
	for hop := 0; ; hop++ {
		if hop >= r.maxHops {
			return fmt.Errorf("%w after %d hops", ErrHopLimit, hop)
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		frame := s.top()
		a, spec, ok := r.agents.Lookup(frame.Agent)
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownAgent, frame.Agent)
		}
		inv := &agent.Invocation{
			Input:   input,
			Resumed: resumed,
			Frame:   frame,
			State:   s.State,
			Spec:    spec,
			Tools:   r.tools,
			Render:  r.render,
			Logger:  r.logger.With("session", s.ID, "agent", frame.Agent),
			Now:     now,
		}
		turn.Agents = append(turn.Agents, frame.Agent)

		act, err := a.Handle(ctx, inv)
		if err != nil {
			return fmt.Errorf("%s: %w", frame.Agent, err)
		}
		for _, m := range act.Messages {
			if m = strings.TrimSpace(m); m != "" {
				turn.Messages = append(turn.Messages, Message{Agent: frame.Agent, Text: m})
			}
		}
		r.logger.Debug("agent action", "session", s.ID, "agent", frame.Agent, "action", act.Kind, "target", act.Target)

		resumed = nil
		switch act.Kind {
		case agent.ActReply:
			return nil

		case agent.ActDelegate:
			if !spec.CanDelegate(act.Target) {
				return fmt.Errorf("%s cannot delegate to %s: %w", frame.Agent, act.Target, ErrNotSubAgent)
			}
			if _, _, ok := r.agents.Lookup(act.Target); !ok {
				return fmt.Errorf("%w: %s", ErrUnknownAgent, act.Target)
			}
			s.push(agent.NewFrame(act.Target, act.Request))
			input = ""

		case agent.ActTransfer:
			if _, _, ok := r.agents.Lookup(act.Target); !ok {
				return fmt.Errorf("%w: %s", ErrUnknownAgent, act.Target)
			}
			s.replace(agent.NewFrame(act.Target, ""))

		case agent.ActReturn:
			res := act.Result
			if !s.pop() {
				// Nobody is waiting on this result: start over at the root.
				s.reset()
				return nil
			}
			resumed = &res
			input = ""

		default:
			return fmt.Errorf("%s: unknown action %v", frame.Agent, act.Kind)
		}
	}
}

func (r *Runner) save(s *Session) error {
	if r.store == nil {
		return nil
	}
	rec, err := s.record()
	if err != nil {
		return err
	}
	if err := r.store.SaveSession(rec); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}

func (r *Runner) log(s *Session, t *Turn) error {
	if r.store == nil {
		t.Seq = s.turns
		s.history = append(s.history, *t)
		if len(s.history) > maxHistory {
			s.history = s.history[len(s.history)-maxHistory:]
		}
		return nil
	}
	if err := r.save(s); err != nil {
		return err
	}
	rec, err := t.record()
	if err != nil {
		return err
	}
	seq, err := r.store.AppendTurn(rec)
	if err != nil {
		return fmt.Errorf("logging turn: %w", err)
	}
	t.Seq = seq
	return nil
}

