package tools

import (
	"context"
	"errors"
	"strings"

	"github.com/kalambet/heracles/internal/plan"
	"github.com/kalambet/heracles/internal/state"
)

// MemorizeArgs are the arguments of memorize and memorize_list.
type MemorizeArgs struct {
	Key   string `json:"key" jsonschema:"required,description=State key; dotted paths like user_profile.age address object fields"`
	Value string `json:"value" jsonschema:"required,description=Value to store"`
}

// ForgetArgs are the arguments of forget.
type ForgetArgs struct {
	Key   string  `json:"key" jsonschema:"required,description=State key to remove"`
	Value *string `json:"value,omitempty" jsonschema:"description=Remove only this value from the list at key"`
}

func newMemorize() (Tool, error) {
	return New(Config{
		Name:        MemorizeName,
		Description: "Memorizes a piece of information as a key-value pair in the session state. diet_plan and fitness_plan take a JSON plan document.",
	}, Memorize)
}

func newMemorizeList() (Tool, error) {
	return New(Config{
		Name:        MemorizeListName,
		Description: "Memorizes a piece of information by appending it to the list stored under key. Duplicate values are ignored.",
	}, MemorizeList)
}

func newForget() (Tool, error) {
	return New(Config{
		Name:        ForgetName,
		Description: "Forgets a piece of information. Without value the whole key is removed; with value only that entry is removed from the list at key.",
	}, Forget)
}

// Memorize upserts value at key. Plan keys are parsed and validated as plan
// documents and are only written when the whole document is valid.
func Memorize(_ context.Context, st *state.Store, args MemorizeArgs) Result {
	key := strings.TrimSpace(args.Key)
	if res, ok := checkKey(key); !ok {
		return res
	}

	if state.IsPlanKey(key) {
		doc, err := plan.Normalize(key, args.Value)
		if err != nil {
			return Error("Could not store %q: %s", key, err)
		}
		if err := st.Set(key, doc); err != nil {
			return Error("Could not store %q: %s", key, err)
		}
		return Status("Stored plan document %q", key)
	}

	if err := st.Set(key, args.Value); err != nil {
		return Error("Could not store %q under %q: %s", args.Value, key, err)
	}
	return Status("Stored %q: %q", key, args.Value)
}

// MemorizeList appends value to the list at key unless it is already there.
// A non-list value at key is first wrapped into a one-element list.
func MemorizeList(_ context.Context, st *state.Store, args MemorizeArgs) Result {
	key := strings.TrimSpace(args.Key)
	if res, ok := checkKey(key); !ok {
		return res
	}

	var list []any
	coerced := false
	if current, ok := st.Get(key); ok {
		if l, isList := current.([]any); isList {
			list = l
		} else {
			list = []any{current}
			coerced = true
		}
	}

	if contains(list, args.Value) {
		if coerced {
			if err := st.Set(key, list); err != nil {
				return Error("Could not store list %q: %s", key, err)
			}
		}
		return Status("%q already exists in list %q", args.Value, key)
	}

	list = append(list, args.Value)
	if err := st.Set(key, list); err != nil {
		return Error("Could not add %q to list %q: %s", args.Value, key, err)
	}
	return Status("Added %q to list %q", args.Value, key)
}

// Forget removes key, or a single value from the list at key.
func Forget(_ context.Context, st *state.Store, args ForgetArgs) Result {
	key := strings.TrimSpace(args.Key)
	if res, ok := checkKey(key); !ok {
		return res
	}

	current, ok := st.Get(key)
	if !ok {
		return Status("Key %q not found in memory.", key)
	}

	if args.Value == nil {
		st.Delete(key)
		return Status("Removed key %q", key)
	}
	value := *args.Value

	list, isList := current.([]any)
	if !isList {
		return Status("Cannot remove specific value from non-list key %q", key)
	}

	idx := index(list, value)
	if idx < 0 {
		return Status("Value %q not found in list %q", value, key)
	}
	list = append(list[:idx], list[idx+1:]...)

	if len(list) == 0 {
		st.Delete(key)
		return Status("Removed value %q from %q and the key itself as it became empty.", value, key)
	}
	if err := st.Set(key, list); err != nil {
		return Error("Could not update list %q: %s", key, err)
	}
	return Status("Removed value %q from list %q", value, key)
}

func checkKey(key string) (Result, bool) {
	err := state.CheckWritable(key)
	switch {
	case err == nil:
		return nil, true
	case errors.Is(err, state.ErrReservedKey):
		return Error("Cannot modify reserved key %q", key), false
	default:
		return Error("Invalid key %q: %s", key, err), false
	}
}

func contains(list []any, value string) bool {
	return index(list, value) >= 0
}

func index(list []any, value string) int {
	for i, item := range list {
		if s, ok := item.(string); ok && s == value {
			return i
		}
	}
	return -1
}
