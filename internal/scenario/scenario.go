// Package scenario loads the seed document applied to a new session.
package scenario

import (
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"os"
)

// DefaultPath is used when no path is configured.
const DefaultPath = "eval/program_empty_default.json"

// Document is a scenario file: {"state": {...}}.
type Document struct {
	State map[string]any `json:"state"`
}

// Load reads the scenario at path. A missing file or malformed JSON is not
// fatal: it is logged and an empty document is returned.
func Load(path string) Document {
	return LoadWithLogger(path, slog.Default())
}

// LoadWithLogger is Load with an explicit logger.
func LoadWithLogger(path string, logger *slog.Logger) Document {
	empty := Document{State: map[string]any{}}
	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Warn("scenario file not found, starting with empty state", "path", path)
		} else {
			logger.Warn("could not read scenario file, starting with empty state", "path", path, "error", err)
		}
		return empty
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		logger.Warn("could not decode scenario JSON, starting with empty state", "path", path, "error", err)
		return empty
	}
	if doc.State == nil {
		doc.State = map[string]any{}
	}

	logger.Info("loaded initial state", "path", path, "keys", len(doc.State))
	return doc
}
