// Package engine talks to the local inference backend that phrases
// free-form agent replies. Every agent works without it; the engine only
// changes how some replies are worded.
package engine

import "context"

// Engine is a local chat backend.
type Engine interface {
	// Chat sends messages to model and returns the assistant's reply.
	// A non-nil jsonSchema requests structured output.
	Chat(ctx context.Context, model string, messages []Message, jsonSchema *Schema) (string, error)

	// IsRunning reports whether the backend is reachable.
	IsRunning(ctx context.Context) bool

	// HasModel reports whether model is available locally.
	HasModel(ctx context.Context, model string) bool

	// PullModel downloads model. onProgress may be nil.
	PullModel(ctx context.Context, model string, onProgress func(PullProgress)) error
}

// Message is one chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Schema describes the JSON object a structured reply must match.
type Schema struct {
	Type       string                    `json:"type"`
	Properties map[string]SchemaProperty `json:"properties"`
	Required   []string                  `json:"required,omitempty"`
}

// SchemaProperty is one field of a Schema.
type SchemaProperty struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

// PullProgress is one progress update of a model download.
type PullProgress struct {
	Status    string `json:"status"`
	Total     int64  `json:"total,omitempty"`
	Completed int64  `json:"completed,omitempty"`
}
