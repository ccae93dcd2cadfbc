package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
)

const exercisesJSON = `{
  "count": 2,
  "next": null,
  "results": [
    {
      "id": 1,
      "category": {"name": "Chest"},
      "equipment": [{"name": "Dumbbell"}],
      "muscles": [{"name": "Pectoralis major"}],
      "translations": [
        {"name": "Kurzhantel Bankdruecken", "language": 1, "description": "de"},
        {"name": "Dumbbell Bench Press", "language": 2, "description": "<p>Lie on a <b>flat</b> bench.</p>"}
      ]
    },
    {
      "id": 2,
      "category": {"name": "Legs"},
      "equipment": [],
      "muscles": [{"name": "Quadriceps"}],
      "translations": [{"name": "Bodyweight Squat", "language": 2, "description": ""}]
    }
  ]
}`

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testClient(t *testing.T, url string) *Client {
	t.Helper()
	c, err := NewClient(Config{BaseURL: url, APIKey: "test-key", RequestsPerMin: 60000}, quietLogger())
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestNewClient_NotConfigured(t *testing.T) {
	if _, err := NewClient(Config{BaseURL: "http://x"}, nil); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("missing key: err = %v, want ErrNotConfigured", err)
	}
	if _, err := NewClient(Config{APIKey: "k"}, nil); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("missing url: err = %v, want ErrNotConfigured", err)
	}
}

func TestFetch_HeadersAndParams(t *testing.T) {
	var gotAuth, gotAccept, gotLang, gotLimit, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotAccept = r.Header.Get("Accept")
		gotLang = r.URL.Query().Get("language")
		gotLimit = r.URL.Query().Get("limit")
		gotPath = r.URL.Path
		fmt.Fprint(w, `{"results": []}`)
	}))
	defer srv.Close()

	c := testClient(t, srv.URL+"/api/v2/")
	if _, err := c.Fetch(context.Background(), "/exerciseinfo/", nil); err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if gotAuth != "Token test-key" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotAccept != "application/json" {
		t.Errorf("Accept = %q", gotAccept)
	}
	if gotLang != "2" || gotLimit != "10" {
		t.Errorf("language=%q limit=%q, want 2 and 10", gotLang, gotLimit)
	}
	if gotPath != "/api/v2/exerciseinfo/" {
		t.Errorf("path = %q", gotPath)
	}
}

func TestFetch_RateLimitRetry(t *testing.T) {
	var attempt atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempt.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `{"results": []}`)
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	if _, err := c.Fetch(context.Background(), "/ingredient/", nil); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if got := attempt.Load(); got != 2 {
		t.Errorf("attempts = %d, want 2", got)
	}
}

func TestFetch_ServerErrorNotRetried(t *testing.T) {
	var attempt atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempt.Add(1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	_, err := c.Fetch(context.Background(), "/ingredient/", nil)
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusInternalServerError {
		t.Fatalf("err = %v, want StatusError 500", err)
	}
	if attempt.Load() != 1 {
		t.Errorf("attempts = %d, want 1", attempt.Load())
	}
}

func TestFetch_BreakerOpens(t *testing.T) {
	var attempt atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempt.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	for range 5 {
		c.Fetch(context.Background(), "/exerciseinfo/", nil)
	}
	if c.BreakerState() != gobreaker.StateOpen {
		t.Fatalf("breaker state = %v, want open", c.BreakerState())
	}

	_, err := c.Fetch(context.Background(), "/exerciseinfo/", nil)
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("err = %v, want ErrOpenState", err)
	}
	if attempt.Load() != 5 {
		t.Errorf("server hit %d times, want 5", attempt.Load())
	}
}

func TestFetch_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	if _, err := c.Fetch(ctx, "/exerciseinfo/", nil); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
}

func TestSearchExercises(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, exercisesJSON)
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	got, err := c.SearchExercises(context.Background(), "dumbbell chest")
	if err != nil {
		t.Fatalf("SearchExercises: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d exercises, want 1: %+v", len(got), got)
	}
	if got[0].Name != "Dumbbell Bench Press" {
		t.Errorf("Name = %q, want English translation", got[0].Name)
	}
	if got[0].Description != "Lie on a flat bench." {
		t.Errorf("Description = %q", got[0].Description)
	}

	all, err := c.SearchExercises(context.Background(), "kettlebell swing")
	if err != nil {
		t.Fatalf("SearchExercises: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("unmatched term should return the whole page, got %d", len(all))
	}
}

func TestSearchIngredients(t *testing.T) {
	var gotSearch string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSearch = r.URL.Query().Get("name__search")
		fmt.Fprint(w, `{"results": [
			{"id": 7, "name": "Oats", "energy": 389, "protein": "16.900", "carbohydrates": "66.300", "fat": "6.900", "fiber": null},
			{"id": 8, "name": " ", "energy": 1}
		]}`)
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	got, err := c.SearchIngredients(context.Background(), " oats ")
	if err != nil {
		t.Fatalf("SearchIngredients: %v", err)
	}
	if gotSearch != "oats" {
		t.Errorf("name__search = %q", gotSearch)
	}
	if len(got) != 1 {
		t.Fatalf("got %d ingredients, want 1", len(got))
	}
	if got[0].Energy != 389 || got[0].Protein != 16.9 || got[0].Fiber != 0 {
		t.Errorf("unexpected ingredient %+v", got[0])
	}
}
