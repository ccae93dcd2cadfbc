package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	probeTimeout = 2 * time.Second
	listTimeout  = 10 * time.Second
)

// Ollama is an Engine backed by an Ollama server.
type Ollama struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewOllama returns an Ollama engine for the server at baseURL. Chat calls
// are bounded by the caller's context only.
func NewOllama(baseURL string, logger *slog.Logger) *Ollama {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ollama{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		logger:     logger,
	}
}

type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// IsRunning reports whether GET /api/tags answers 200.
func (o *Ollama) IsRunning(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	resp, err := o.do(ctx, http.MethodGet, "/api/tags", nil)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// ListModels returns the names of the locally available models.
func (o *Ollama) ListModels(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()

	resp, err := o.do(ctx, http.MethodGet, "/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("listing models: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("listing models: unexpected status %d", resp.StatusCode)
	}

	var tags tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, fmt.Errorf("decoding model list: %w", err)
	}
	names := make([]string, len(tags.Models))
	for i, m := range tags.Models {
		names[i] = m.Name
	}
	return names, nil
}

// HasModel matches model with or without its ":tag" suffix.
func (o *Ollama) HasModel(ctx context.Context, model string) bool {
	models, err := o.ListModels(ctx)
	if err != nil {
		return false
	}
	for _, m := range models {
		if m == model || strings.HasPrefix(m, model+":") {
			return true
		}
	}
	return false
}

// PullModel downloads model, reading the streamed progress to the end.
func (o *Ollama) PullModel(ctx context.Context, model string, onProgress func(PullProgress)) error {
	resp, err := o.do(ctx, http.MethodPost, "/api/pull", map[string]any{"name": model, "stream": true})
	if err != nil {
		return fmt.Errorf("pulling %s: %w", model, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("pulling %s: unexpected status %d", model, resp.StatusCode)
	}

	dec := json.NewDecoder(resp.Body)
	for {
		var p PullProgress
		if err := dec.Decode(&p); err == io.EOF {
			return nil
		} else if err != nil {
			return fmt.Errorf("reading pull progress: %w", err)
		}
		if onProgress != nil {
			onProgress(p)
		}
	}
}

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
	Format   *Schema   `json:"format,omitempty"`
}

type chatResponse struct {
	Message Message `json:"message"`
}

// Chat posts a non-streaming /api/chat request.
func (o *Ollama) Chat(ctx context.Context, model string, messages []Message, jsonSchema *Schema) (string, error) {
	start := time.Now()
	resp, err := o.do(ctx, http.MethodPost, "/api/chat", chatRequest{
		Model:    model,
		Messages: messages,
		Format:   jsonSchema,
	})
	if err != nil {
		return "", fmt.Errorf("chat: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("chat: unexpected status %d", resp.StatusCode)
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding chat response: %w", err)
	}
	o.logger.Debug("engine chat", "model", model, "messages", len(messages), "duration_ms", time.Since(start).Milliseconds())
	return out.Message.Content, nil
}

func (o *Ollama) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		r = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, o.baseURL+path, r)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return o.httpClient.Do(req)
}
