package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/heracles/internal/agent"
	"github.com/kalambet/heracles/internal/composer"
	"github.com/kalambet/heracles/internal/runtime"
	"github.com/kalambet/heracles/internal/state"
	"github.com/kalambet/heracles/internal/tools"
)

// SendMessageTool feeds one user input to the bound session.
const SendMessageTool = "send_message"

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Runner *runtime.Runner
	Tools  *tools.Registry
	Agents *agent.Catalog
	// SessionID binds the server to an existing session. When empty, or
	// when the session is gone, a new one is created on first use.
	SessionID string
	Logger    *slog.Logger
}

// binding is the one session an MCP server works against.
type binding struct {
	runner *runtime.Runner
	logger *slog.Logger

	mu sync.Mutex
	id string
}

func (b *binding) session(ctx context.Context) (*runtime.Session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.id != "" {
		s, err := b.runner.Get(b.id)
		if err == nil {
			return s, nil
		}
		if !errors.Is(err, runtime.ErrSessionNotFound) {
			return nil, err
		}
	}
	s, err := b.runner.Create(ctx)
	if err != nil {
		return nil, err
	}
	b.id = s.ID
	b.logger.Info("MCP session bound", "session", s.ID)
	return s, nil
}

// NewMCPServer creates an MCP server exposing the tools, the session state
// keys as state:// resources, and one prompt per agent.
func NewMCPServer(deps MCPDeps) (*server.MCPServer, error) {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	b := &binding{runner: deps.Runner, logger: deps.Logger, id: deps.SessionID}

	s := server.NewMCPServer(
		"heracles",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(true),
		server.WithInstructions("heracles: fitness and nutrition coaching agents over a shared session state."),
		server.WithRecovery(),
	)

	for _, t := range deps.Tools.List() {
		schema, err := json.Marshal(t.Schema())
		if err != nil {
			return nil, fmt.Errorf("encoding schema of %s: %w", t.Name(), err)
		}
		s.AddTool(mcp.NewToolWithRawSchema(t.Name(), t.Description(), schema), mcpCallTool(b, t.Name()))
	}

	s.AddTool(
		mcp.NewTool(SendMessageTool,
			mcp.WithDescription("Send a user message to the coaching agents and return their replies."),
			mcp.WithString("input", mcp.Description("What the user says"), mcp.Required()),
		),
		mcpSendMessage(b),
	)

	for _, key := range state.KnownKeys() {
		s.AddResource(
			mcp.NewResource(
				"state://"+key,
				key,
				mcp.WithResourceDescription(fmt.Sprintf("Session state value %q as JSON", key)),
				mcp.WithMIMEType("application/json"),
			),
			mcpResourceState(b, key),
		)
	}

	if deps.Agents != nil {
		render := composer.New(0)
		for _, spec := range deps.Agents.Agents {
			s.AddPrompt(
				mcp.NewPrompt(spec.Name, mcp.WithPromptDescription(spec.Description)),
				mcpAgentPrompt(b, render, spec),
			)
		}
	}

	return s, nil
}

func mcpCallTool(b *binding, name string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sess, err := b.session(ctx)
		if err != nil {
			return mcpError(fmt.Sprintf("no session: %v", err)), nil
		}
		res, err := b.runner.CallTool(ctx, sess.ID, name, req.GetArguments())
		if err != nil {
			return mcpError(fmt.Sprintf("%s failed: %v", name, err)), nil
		}
		data, err := json.Marshal(res)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
		}
		if res.IsError() {
			return mcpError(string(data)), nil
		}
		return mcpText(string(data)), nil
	}
}

func mcpSendMessage(b *binding) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		input, err := req.RequireString("input")
		if err != nil {
			return mcpError("input is required"), nil
		}
		sess, err := b.session(ctx)
		if err != nil {
			return mcpError(fmt.Sprintf("no session: %v", err)), nil
		}
		turn, err := b.runner.Turn(ctx, sess.ID, input)
		if err != nil {
			return mcpError(fmt.Sprintf("turn failed: %v", err)), nil
		}
		if turn.Error != "" {
			return mcpError(turn.Error), nil
		}
		return mcpText(turn.Text()), nil
	}
}

func mcpResourceState(b *binding, key string) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		sess, err := b.session(ctx)
		if err != nil {
			return nil, fmt.Errorf("no session: %w", err)
		}
		v, _ := sess.State.Get(key)
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s: %w", key, err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(data),
			},
		}, nil
	}
}

func mcpAgentPrompt(b *binding, render *composer.Composer, spec agent.Spec) server.PromptHandlerFunc {
	return func(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		sess, err := b.session(ctx)
		if err != nil {
			return nil, fmt.Errorf("no session: %w", err)
		}
		text := render.MustRender(spec.Instruction, sess.State, nil)
		return mcp.NewGetPromptResult(spec.Description, []mcp.PromptMessage{
			mcp.NewPromptMessage(mcp.RoleUser, mcp.NewTextContent(text)),
		}), nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
