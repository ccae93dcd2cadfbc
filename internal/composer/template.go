// Package composer renders agent instructions and message templates against
// session state.
//
// Placeholders:
//
//	{key}            value of key (extra vars first, then state)
//	{key?}           optional, empty when missing
//	{key[field]}     field of an object value, same as {key.field}
//	{{literal}}      rendered as {literal}
//
// Names that are not identifiers are left as-is, so JSON examples inside
// instructions survive rendering. Objects and lists render as JSON.
package composer

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

const defaultMaxValueTokens = 1500

// ErrMissingKey is returned when a required placeholder has no value.
var ErrMissingKey = errors.New("missing template value")

// Source is the state a template is rendered against.
type Source interface {
	Get(key string) (any, bool)
}

var placeholderRegex = regexp.MustCompile(`{+[^{}]*}+`)

// Composer renders templates. Every substituted value is capped at
// MaxValueTokens so a large plan document cannot crowd out an instruction.
type Composer struct {
	MaxValueTokens int
}

// New creates a Composer with the given per-value token budget.
// If maxValueTokens <= 0, the default (1500) is used.
func New(maxValueTokens int) *Composer {
	if maxValueTokens <= 0 {
		maxValueTokens = defaultMaxValueTokens
	}
	return &Composer{MaxValueTokens: maxValueTokens}
}

// Render resolves all placeholders in tmpl. vars take precedence over src;
// either may be nil.
func (c *Composer) Render(tmpl string, src Source, vars map[string]any) (string, error) {
	return c.render(tmpl, src, vars, false)
}

// MustRender is Render with every placeholder treated as optional.
func (c *Composer) MustRender(tmpl string, src Source, vars map[string]any) string {
	out, _ := c.render(tmpl, src, vars, true)
	return out
}

func (c *Composer) render(tmpl string, src Source, vars map[string]any, lenient bool) (string, error) {
	if tmpl == "" {
		return "", nil
	}

	var sb strings.Builder
	last := 0
	for _, idx := range placeholderRegex.FindAllStringIndex(tmpl, -1) {
		start, end := idx[0], idx[1]
		sb.WriteString(tmpl[last:start])

		repl, err := c.replace(tmpl[start:end], src, vars, lenient)
		if err != nil {
			return "", err
		}
		sb.WriteString(repl)
		last = end
	}
	sb.WriteString(tmpl[last:])
	return sb.String(), nil
}

func (c *Composer) replace(match string, src Source, vars map[string]any, lenient bool) (string, error) {
	if strings.HasPrefix(match, "{{") && strings.HasSuffix(match, "}}") {
		return match[1 : len(match)-1], nil
	}

	name := strings.TrimSpace(strings.Trim(match, "{}"))
	optional := lenient
	if strings.HasSuffix(name, "?") {
		optional = true
		name = strings.TrimSuffix(name, "?")
	}

	path, ok := parsePath(name)
	if !ok {
		return match, nil
	}

	v, found := resolve(path, src, vars)
	if !found {
		if optional {
			return "", nil
		}
		return "", fmt.Errorf("%w: %s", ErrMissingKey, name)
	}
	return c.truncate(FormatValue(v)), nil
}

// parsePath accepts "key", "key.field" and "key[field]".
func parsePath(name string) (string, bool) {
	name = strings.ReplaceAll(name, "[", ".")
	name = strings.ReplaceAll(name, "]", "")
	for _, part := range strings.Split(name, ".") {
		if !isIdentifier(part) {
			return "", false
		}
	}
	return name, true
}

func resolve(path string, src Source, vars map[string]any) (any, bool) {
	if vars != nil {
		if v, ok := lookupVars(vars, path); ok {
			return v, true
		}
	}
	if src != nil {
		return src.Get(path)
	}
	return nil, false
}

func lookupVars(vars map[string]any, path string) (any, bool) {
	if v, ok := vars[path]; ok {
		return v, true
	}
	var cur any = vars
	for _, p := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = m[p]; !ok {
			return nil, false
		}
	}
	return cur, true
}

func (c *Composer) truncate(s string) string {
	if EstimateTokens(s) <= c.MaxValueTokens {
		return s
	}
	end := c.MaxValueTokens * 4
	for end > 0 && !utf8.RuneStart(s[end]) {
		end--
	}
	return s[:end] + "..."
}

// FormatValue renders a state value for prompt text. Whole floats print
// without a fraction.
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool, int, int64:
		return fmt.Sprint(val)
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	}
}

// EstimateTokens provides a rough token count using 4 chars per token heuristic.
func EstimateTokens(text string) int {
	return (len(text) + 3) / 4
}

// ListPlaceholders returns the distinct placeholder names in tmpl.
func ListPlaceholders(tmpl string) []string {
	var names []string
	seen := make(map[string]bool)
	for _, match := range placeholderRegex.FindAllString(tmpl, -1) {
		if strings.HasPrefix(match, "{{") {
			continue
		}
		name := strings.TrimSuffix(strings.TrimSpace(strings.Trim(match, "{}")), "?")
		path, ok := parsePath(name)
		if !ok || seen[path] {
			continue
		}
		seen[path] = true
		names = append(names, path)
	}
	return names
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if i == 0 {
			if !unicode.IsLetter(r) && r != '_' {
				return false
			}
		} else if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			return false
		}
	}
	return true
}
