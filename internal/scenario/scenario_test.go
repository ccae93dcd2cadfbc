package scenario

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_Valid(t *testing.T) {
	path := writeFile(t, `{"state": {"user_profile": {"name": "Ada", "age": 30}}}`)

	doc := LoadWithLogger(path, quietLogger())
	profile, ok := doc.State["user_profile"].(map[string]any)
	if !ok {
		t.Fatalf("user_profile missing or wrong type: %#v", doc.State)
	}
	if profile["name"] != "Ada" {
		t.Errorf("name = %v, want Ada", profile["name"])
	}
}

func TestLoad_MissingFile(t *testing.T) {
	doc := LoadWithLogger(filepath.Join(t.TempDir(), "nope.json"), quietLogger())
	if doc.State == nil || len(doc.State) != 0 {
		t.Errorf("expected empty state, got %#v", doc.State)
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	path := writeFile(t, `{"state": {`)

	doc := LoadWithLogger(path, quietLogger())
	if doc.State == nil || len(doc.State) != 0 {
		t.Errorf("expected empty state, got %#v", doc.State)
	}
}

func TestLoad_NoStateKey(t *testing.T) {
	path := writeFile(t, `{"other": 1}`)

	doc := LoadWithLogger(path, quietLogger())
	if doc.State == nil {
		t.Fatal("State should be non-nil")
	}
	if len(doc.State) != 0 {
		t.Errorf("expected empty state, got %#v", doc.State)
	}
}
