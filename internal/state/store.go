// Package state holds the per-session key/value store shared by all agents.
//
// Values are JSON-shaped: strings, numbers, bools, []any and map[string]any.
// Keys may be dotted paths ("user_profile.age") that address fields inside
// object values. A closed set of known keys carries a declared Kind that is
// enforced on write; any other key is free-form.
package state

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	// ErrReservedKey is returned when a caller outside the seeding hook tries
	// to modify a system key (prefix "_").
	ErrReservedKey = errors.New("reserved key")
	// ErrNotObject is returned when a dotted path walks through a non-object value.
	ErrNotObject = errors.New("path does not address an object")
	// ErrEmptyKey is returned for "" or malformed dotted keys.
	ErrEmptyKey = errors.New("empty key")
)

// KindError reports a write whose value does not match the key's declared kind.
type KindError struct {
	Key  string
	Want Kind
	Got  any
}

func (e *KindError) Error() string {
	return fmt.Sprintf("key %q expects %s value, got %T", e.Key, e.Want, e.Got)
}

// Store is a single session's mutable state. The zero value is not usable;
// call New.
type Store struct {
	mu   sync.RWMutex
	data map[string]any
}

// New returns an empty store.
func New() *Store {
	return &Store{data: make(map[string]any)}
}

// FromMap returns a store holding a deep copy of m. Kinds are not checked.
func FromMap(m map[string]any) *Store {
	s := New()
	for k, v := range m {
		s.data[k] = normalize(v)
	}
	return s
}

// Get returns a deep copy of the value at key.
func (s *Store) Get(key string) (any, bool) {
	parts, err := splitPath(key)
	if err != nil {
		return nil, false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := lookup(s.data, parts)
	if !ok {
		return nil, false
	}
	return normalize(v), true
}

// GetString returns the value at key when it is a string.
func (s *Store) GetString(key string) (string, bool) {
	v, ok := s.Get(key)
	if !ok {
		return "", false
	}
	str, ok := v.(string)
	return str, ok
}

// GetObject returns the value at key when it is an object.
func (s *Store) GetObject(key string) (map[string]any, bool) {
	v, ok := s.Get(key)
	if !ok {
		return nil, false
	}
	m, ok := v.(map[string]any)
	return m, ok
}

// Has reports whether key is present.
func (s *Store) Has(key string) bool {
	parts, err := splitPath(key)
	if err != nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := lookup(s.data, parts)
	return ok
}

// Set writes value at key, creating intermediate objects for dotted paths.
// Known top-level keys must receive a value of their declared kind.
func (s *Store) Set(key string, value any) error {
	parts, err := splitPath(key)
	if err != nil {
		return err
	}
	value = normalize(value)

	if len(parts) == 1 {
		if err := checkKind(parts[0], value); err != nil {
			return err
		}
	} else if kind, ok := KnownKind(parts[0]); ok && kind != KindObject {
		return fmt.Errorf("%s: %w", key, ErrNotObject)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	m := s.data
	for i, p := range parts[:len(parts)-1] {
		next, ok := m[p]
		if !ok {
			child := make(map[string]any)
			m[p] = child
			m = child
			continue
		}
		child, ok := next.(map[string]any)
		if !ok {
			return fmt.Errorf("%s: %w", strings.Join(parts[:i+1], "."), ErrNotObject)
		}
		m = child
	}
	m[parts[len(parts)-1]] = value
	return nil
}

// Delete removes key and reports whether it was present.
func (s *Store) Delete(key string) bool {
	parts, err := splitPath(key)
	if err != nil {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	m := s.data
	for _, p := range parts[:len(parts)-1] {
		child, ok := m[p].(map[string]any)
		if !ok {
			return false
		}
		m = child
	}
	last := parts[len(parts)-1]
	if _, ok := m[last]; !ok {
		return false
	}
	delete(m, last)
	return true
}

// Keys returns the sorted top-level keys.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Snapshot returns a deep copy of the whole store.
func (s *Store) Snapshot() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]any, len(s.data))
	for k, v := range s.data {
		out[k] = normalize(v)
	}
	return out
}

// CheckWritable rejects keys a tool call may not touch.
func CheckWritable(key string) error {
	parts, err := splitPath(key)
	if err != nil {
		return err
	}
	if IsReserved(parts[0]) {
		return fmt.Errorf("%q: %w", key, ErrReservedKey)
	}
	return nil
}

func checkKind(key string, value any) error {
	kind, ok := KnownKind(key)
	if !ok {
		return nil
	}
	var match bool
	switch kind {
	case KindString:
		_, match = value.(string)
	case KindBool:
		_, match = value.(bool)
	case KindObject:
		_, match = value.(map[string]any)
	case KindList:
		_, match = value.([]any)
	default:
		match = true
	}
	if !match {
		return &KindError{Key: key, Want: kind, Got: value}
	}
	return nil
}

func splitPath(key string) ([]string, error) {
	if key == "" {
		return nil, ErrEmptyKey
	}
	parts := strings.Split(key, ".")
	for _, p := range parts {
		if p == "" {
			return nil, fmt.Errorf("%q: %w", key, ErrEmptyKey)
		}
	}
	return parts, nil
}

func lookup(m map[string]any, parts []string) (any, bool) {
	var cur any = m
	for _, p := range parts {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = obj[p]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// normalize deep-copies v, folding typed slices and maps into []any and
// map[string]any so every stored value has a JSON shape.
func normalize(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = normalize(item)
		}
		return out
	case map[string]string:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = item
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalize(item)
		}
		return out
	case []string:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = item
		}
		return out
	case []map[string]any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalize(item)
		}
		return out
	case int:
		return float64(val)
	case int64:
		return float64(val)
	default:
		return v
	}
}
