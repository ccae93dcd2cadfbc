package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/kalambet/heracles/internal/agents"
	"github.com/kalambet/heracles/internal/catalog"
	"github.com/kalambet/heracles/internal/config"
	"github.com/kalambet/heracles/internal/engine"
	"github.com/kalambet/heracles/internal/runtime"
	"github.com/kalambet/heracles/internal/scenario"
	"github.com/kalambet/heracles/internal/storage"
	"github.com/kalambet/heracles/internal/tools"
)

// app is the wired core shared by serve and chat.
type app struct {
	cfg    config.Config
	logger *slog.Logger
	store  *storage.Store
	agents *agents.Set
	tools  *tools.Registry
	runner *runtime.Runner
}

type appOptions struct {
	// memory keeps sessions in memory only.
	memory bool
	// progress receives model pull output while the engine is prepared.
	progress io.Writer
}

func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger, opts appOptions) (*app, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.progress == nil {
		opts.progress = io.Discard
	}
	a := &app{cfg: cfg, logger: logger}

	if !opts.memory {
		store, err := storage.Open(cfg.Storage.DataDir)
		if err != nil {
			return nil, fmt.Errorf("opening storage: %w", err)
		}
		a.store = store
	}

	toolDeps := tools.Deps{Logger: logger}
	switch {
	case cfg.Catalog.Enabled():
		client, err := catalog.NewClient(catalog.Config{
			BaseURL:        cfg.Catalog.BaseURL,
			APIKey:         cfg.Catalog.APIKey,
			LanguageID:     cfg.Catalog.Language,
			Timeout:        cfg.Catalog.Timeout,
			PageSize:       cfg.Catalog.PageSize,
			RequestsPerMin: cfg.Catalog.RequestsPerMin,
		}, logger.With("component", "catalog"))
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("building catalog client: %w", err)
		}
		toolDeps.Catalog = client
		logger.Info("exercise catalog enabled", "base_url", cfg.Catalog.BaseURL)
	case cfg.Catalog.BaseURL != "":
		logger.Warn("catalog base URL set without an API key, using simulated lookups")
	}

	reg, err := tools.Default(toolDeps)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("registering tools: %w", err)
	}
	a.tools = reg

	agentDeps := agents.Deps{Logger: logger}
	if cfg.Ollama.BaseURL != "" {
		ollama := engine.NewOllama(cfg.Ollama.BaseURL, logger.With("component", "engine"))
		if err := engine.EnsureReady(ctx, ollama, cfg.Ollama.Model, opts.progress); err != nil {
			logger.Warn("local model unavailable, using rule-based feedback", "error", err)
		} else {
			agentDeps.Engine = ollama
			agentDeps.Model = cfg.Ollama.Model
		}
	}
	set, err := agents.New(agentDeps)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("building agents: %w", err)
	}
	a.agents = set

	seed := scenario.LoadWithLogger(cfg.Scenario.Path, logger)

	rcfg := runtime.Config{
		Agents:      set,
		Tools:       reg,
		Seed:        seed.State,
		MaxSessions: cfg.Session.MaxSessions,
		MaxHops:     cfg.Session.MaxHops,
		Logger:      logger,
	}
	if a.store != nil {
		rcfg.Store = a.store
	}
	runner, err := runtime.New(rcfg)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("building runtime: %w", err)
	}
	a.runner = runner
	return a, nil
}

func (a *app) Close() error {
	if a.store == nil {
		return nil
	}
	return a.store.Close()
}
