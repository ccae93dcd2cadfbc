package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/heracles/internal/agent"
	"github.com/kalambet/heracles/internal/nutrition"
	"github.com/kalambet/heracles/internal/runtime"
	"github.com/kalambet/heracles/internal/tools"
)

const maxRequestBodySize = 1 << 20 // 1MB

const defaultListLimit = 50

// Deps holds the collaborators of the HTTP API.
type Deps struct {
	Runner *runtime.Runner
	Tools  *tools.Registry
	Agents *agent.Catalog
	// Token enables bearer auth on everything but /health.
	Token  string
	Logger *slog.Logger
}

// TurnRequest is the body of POST /sessions/{id}/turns.
type TurnRequest struct {
	Input string `json:"input"`
}

// ToolInfo describes a registered tool.
type ToolInfo struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// NewHandler returns the HTTP API.
func NewHandler(deps Deps) http.Handler {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Get("/health", handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))

		r.Get("/agents", handleListAgents(deps))
		r.Get("/tools", handleListTools(deps))
		r.Post("/calculate", handleCalculate(deps))

		r.Get("/sessions", handleListSessions(deps))
		r.Post("/sessions", handleCreateSession(deps))
		r.Get("/sessions/{id}", handleGetSession(deps))
		r.Delete("/sessions/{id}", handleDeleteSession(deps))
		r.Get("/sessions/{id}/turns", handleListTurns(deps))
		r.Post("/sessions/{id}/turns", handleTurn(deps))
		r.Post("/sessions/{id}/tools/{name}", handleCallTool(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func handleListAgents(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		specs := []agent.Spec{}
		if deps.Agents != nil {
			specs = deps.Agents.Agents
		}
		writeJSON(w, http.StatusOK, specs)
	}
}

func handleListTools(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list := deps.Tools.List()
		out := make([]ToolInfo, 0, len(list))
		for _, t := range list {
			out = append(out, ToolInfo{Name: t.Name(), Description: t.Description(), Parameters: t.Schema()})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func handleCalculate(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var profile map[string]any
		if !decodeBody(w, r, &profile) {
			return
		}

		res, err := nutrition.Calculate(profile)
		if err != nil {
			var verr *nutrition.ValidationError
			switch {
			case errors.As(err, &verr):
				httpError(w, http.StatusUnprocessableEntity, "validation_error", "%s", verr.Error())
			case errors.Is(err, nutrition.ErrNoProfile), errors.Is(err, nutrition.ErrMalformedProfile):
				httpError(w, http.StatusBadRequest, "invalid_request_error", "%s", err.Error())
			default:
				httpError(w, http.StatusUnprocessableEntity, "validation_error", "%s", err.Error())
			}
			return
		}
		deps.Logger.Debug("targets calculated", "calories", res.Calories)
		writeJSON(w, http.StatusOK, res)
	}
}

func handleListSessions(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, ok := queryLimit(w, r)
		if !ok {
			return
		}
		sessions, err := deps.Runner.List(limit)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "listing sessions: %v", err)
			return
		}
		if sessions == nil {
			sessions = []runtime.Info{}
		}
		writeJSON(w, http.StatusOK, sessions)
	}
}

func handleCreateSession(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := deps.Runner.Create(r.Context())
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "creating session: %v", err)
			return
		}
		writeJSON(w, http.StatusCreated, s.Info(true))
	}
}

func handleGetSession(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := deps.Runner.Get(chi.URLParam(r, "id"))
		if err != nil {
			sessionError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, s.Info(true))
	}
}

func handleDeleteSession(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := deps.Runner.Delete(chi.URLParam(r, "id")); err != nil {
			sessionError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleListTurns(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, ok := queryLimit(w, r)
		if !ok {
			return
		}
		turns, err := deps.Runner.Turns(chi.URLParam(r, "id"), limit)
		if err != nil {
			sessionError(w, err)
			return
		}
		if turns == nil {
			turns = []runtime.Turn{}
		}
		writeJSON(w, http.StatusOK, turns)
	}
}

func handleTurn(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req TurnRequest
		if !decodeBody(w, r, &req) {
			return
		}
		turn, err := deps.Runner.Turn(r.Context(), chi.URLParam(r, "id"), req.Input)
		if err != nil {
			sessionError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, turn)
	}
}

func handleCallTool(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		args := map[string]any{}
		if r.ContentLength != 0 {
			if !decodeBody(w, r, &args) {
				return
			}
		}
		res, err := deps.Runner.CallTool(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "name"), args)
		if err != nil {
			sessionError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// sessionError maps runner errors to HTTP responses.
func sessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, runtime.ErrSessionNotFound):
		httpError(w, http.StatusNotFound, "not_found_error", "session not found")
	case errors.Is(err, tools.ErrUnknownTool):
		httpError(w, http.StatusNotFound, "not_found_error", "%v", err)
	default:
		httpError(w, http.StatusInternalServerError, "api_error", "%v", err)
	}
}

func queryLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultListLimit, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "limit must be a positive integer")
		return 0, false
	}
	return limit, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
