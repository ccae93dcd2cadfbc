// Package agent defines the delegation protocol shared by every coaching
// agent: what an agent receives on each hop, the actions it can take and the
// terminal result it hands back to its delegator.
//
// An agent never blocks waiting for the user. Each hop it returns an Action:
//
//	Reply     say something and wait for the next user message
//	Delegate  push a collaborator; this agent resumes when it returns
//	Transfer  hand the conversation to another agent for good
//	Return    finish with a Result for the delegator
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kalambet/heracles/internal/composer"
	"github.com/kalambet/heracles/internal/state"
	"github.com/kalambet/heracles/internal/tools"
)

// Agent handles one hop of conversation.
type Agent interface {
	Name() string
	Handle(ctx context.Context, inv *Invocation) (Action, error)
}

// Kind classifies a terminal result.
type Kind string

const (
	KindSuccess  Kind = "success"
	KindError    Kind = "error"
	KindDeclined Kind = "declined"
)

// Result is what a delegate returns to its delegator.
type Result struct {
	Kind    Kind           `json:"kind"`
	Payload map[string]any `json:"payload,omitempty"`
	Message string         `json:"message,omitempty"`
}

// Success returns a successful result carrying payload.
func Success(payload map[string]any) Result {
	return Result{Kind: KindSuccess, Payload: payload}
}

// Failure returns an error result.
func Failure(message string, payload map[string]any) Result {
	return Result{Kind: KindError, Message: message, Payload: payload}
}

// Declined returns a non-confirmation result.
func Declined(message string, payload map[string]any) Result {
	return Result{Kind: KindDeclined, Message: message, Payload: payload}
}

// OK reports whether r is a success.
func (r Result) OK() bool { return r.Kind == KindSuccess }

// ActionKind selects what the runtime does after a hop.
type ActionKind int

const (
	ActReply ActionKind = iota
	ActDelegate
	ActTransfer
	ActReturn
)

func (k ActionKind) String() string {
	switch k {
	case ActReply:
		return "reply"
	case ActDelegate:
		return "delegate"
	case ActTransfer:
		return "transfer"
	case ActReturn:
		return "return"
	default:
		return fmt.Sprintf("action(%d)", int(k))
	}
}

// Action is an agent's decision for one hop. Messages are shown to the user
// before the action takes effect.
type Action struct {
	Kind     ActionKind
	Messages []string
	// Target is the agent to delegate or transfer to.
	Target string
	// Request is passed to a delegate as its task description.
	Request string
	// Result is returned to the delegator.
	Result Result
}

// Reply waits for the next user message.
func Reply(messages ...string) Action {
	return Action{Kind: ActReply, Messages: nonEmpty(messages)}
}

// Delegate suspends the current agent and starts target with request.
func Delegate(target, request string) Action {
	return Action{Kind: ActDelegate, Target: target, Request: request}
}

// Transfer replaces the current agent with target.
func Transfer(target string) Action {
	return Action{Kind: ActTransfer, Target: target}
}

// Return finishes the current agent with res.
func Return(res Result) Action {
	return Action{Kind: ActReturn, Result: res}
}

// Saying prepends messages to a.
func (a Action) Saying(messages ...string) Action {
	a.Messages = append(nonEmpty(messages), a.Messages...)
	return a
}

func nonEmpty(messages []string) []string {
	out := make([]string, 0, len(messages))
	for _, m := range messages {
		if m != "" {
			out = append(out, m)
		}
	}
	return out
}

// Frame is one entry of the delegation stack. Step and Data are the agent's
// own scratch space and survive between hops of the same frame.
type Frame struct {
	Agent   string         `json:"agent"`
	Request string         `json:"request,omitempty"`
	Step    string         `json:"step,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
}

// NewFrame starts a frame for agent.
func NewFrame(agent, request string) *Frame {
	return &Frame{Agent: agent, Request: request, Data: make(map[string]any)}
}

// Invocation is everything an agent sees on one hop.
type Invocation struct {
	// Input is the user message for this hop. It is empty when the agent was
	// just started by a delegation or resumed by a returning delegate.
	Input string
	// Resumed is set when a delegate has just returned to this agent.
	Resumed *Result
	Frame   *Frame
	State   *state.Store
	Spec    Spec
	Tools   *tools.Registry
	Render  *composer.Composer
	Logger  *slog.Logger
	Now     time.Time
}

// Call invokes a tool bound to the agent. Tools outside the agent's binding
// are refused with an error result.
func (inv *Invocation) Call(ctx context.Context, name string, args map[string]any) tools.Result {
	if !inv.Spec.HasTool(name) {
		return tools.Error("tool %q is not available to %s", name, inv.Spec.Name)
	}
	if inv.Tools == nil {
		return tools.Error("%s: %s", tools.ErrUnknownTool, name)
	}
	return inv.Tools.Invoke(ctx, inv.State, name, args)
}

// Say renders the agent's message template key against session state.
// vars take precedence over state.
func (inv *Invocation) Say(key string, vars map[string]any) string {
	tmpl, ok := inv.Spec.Messages[key]
	if !ok {
		inv.Log().Warn("missing message template", "agent", inv.Spec.Name, "key", key)
		return ""
	}
	return inv.renderer().MustRender(tmpl, inv.State, vars)
}

// Instruction renders the agent's instruction against session state.
func (inv *Invocation) Instruction() string {
	return inv.renderer().MustRender(inv.Spec.Instruction, inv.State, nil)
}

// Step returns the frame's current step.
func (inv *Invocation) Step() string {
	if inv.Frame == nil {
		return ""
	}
	return inv.Frame.Step
}

// Goto sets the frame's step.
func (inv *Invocation) Goto(step string) {
	if inv.Frame != nil {
		inv.Frame.Step = step
	}
}

// Remember stores v in the frame's scratch data.
func (inv *Invocation) Remember(key string, v any) {
	if inv.Frame == nil {
		return
	}
	if inv.Frame.Data == nil {
		inv.Frame.Data = make(map[string]any)
	}
	inv.Frame.Data[key] = v
}

// Recall returns the frame's scratch value for key.
func (inv *Invocation) Recall(key string) (any, bool) {
	if inv.Frame == nil || inv.Frame.Data == nil {
		return nil, false
	}
	v, ok := inv.Frame.Data[key]
	return v, ok
}

// Flag reports whether the frame's scratch value for key is true.
func (inv *Invocation) Flag(key string) bool {
	v, _ := inv.Recall(key)
	b, _ := v.(bool)
	return b
}

// Request returns the task the delegator passed in.
func (inv *Invocation) Request() string {
	if inv.Frame == nil {
		return ""
	}
	return inv.Frame.Request
}

func (inv *Invocation) renderer() *composer.Composer {
	if inv.Render == nil {
		inv.Render = composer.New(0)
	}
	return inv.Render
}

// Log returns the invocation logger.
func (inv *Invocation) Log() *slog.Logger {
	if inv.Logger == nil {
		return slog.Default()
	}
	return inv.Logger
}
