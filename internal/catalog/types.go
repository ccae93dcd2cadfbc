package catalog

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// Exercise is a catalog exercise with its English translation.
type Exercise struct {
	ID          int      `json:"id"`
	Name        string   `json:"name"`
	Category    string   `json:"category,omitempty"`
	Equipment   []string `json:"equipment,omitempty"`
	Muscles     []string `json:"muscles,omitempty"`
	Description string   `json:"description,omitempty"`
}

// Ingredient is a catalog food item. Nutrients are per 100 g.
type Ingredient struct {
	ID       int     `json:"id"`
	Name     string  `json:"name"`
	Energy   float64 `json:"energy_kcal"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbohydrates"`
	Fat      float64 `json:"fat"`
	Fiber    float64 `json:"fiber,omitempty"`
	Sodium   float64 `json:"sodium,omitempty"`
	Category string  `json:"category,omitempty"`
}

// page is the paginated envelope of list endpoints.
type page[T any] struct {
	Count   int    `json:"count"`
	Next    string `json:"next"`
	Results []T    `json:"results"`
}

type named struct {
	Name string `json:"name"`
}

type translation struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Language    int    `json:"language"`
}

type exerciseInfo struct {
	ID           int           `json:"id"`
	Category     named         `json:"category"`
	Equipment    []named       `json:"equipment"`
	Muscles      []named       `json:"muscles"`
	Translations []translation `json:"translations"`
}

type ingredientRecord struct {
	ID            int     `json:"id"`
	Name          string  `json:"name"`
	Energy        decimal `json:"energy"`
	Protein       decimal `json:"protein"`
	Carbohydrates decimal `json:"carbohydrates"`
	Fat           decimal `json:"fat"`
	Fiber         decimal `json:"fiber"`
	Sodium        decimal `json:"sodium"`
}

// decimal accepts both JSON numbers and the quoted decimals the API emits
// ("52.000"). null and empty strings decode as zero.
type decimal float64

func (d *decimal) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*d = 0
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("decoding decimal %s: %w", b, err)
	}
	*d = decimal(f)
	return nil
}

func (e exerciseInfo) toExercise(language int) (Exercise, bool) {
	var tr *translation
	for i := range e.Translations {
		if e.Translations[i].Language == language {
			tr = &e.Translations[i]
			break
		}
	}
	if tr == nil && len(e.Translations) > 0 {
		tr = &e.Translations[0]
	}
	if tr == nil || strings.TrimSpace(tr.Name) == "" {
		return Exercise{}, false
	}

	ex := Exercise{
		ID:          e.ID,
		Name:        strings.TrimSpace(tr.Name),
		Category:    e.Category.Name,
		Description: stripTags(tr.Description),
	}
	for _, eq := range e.Equipment {
		ex.Equipment = append(ex.Equipment, eq.Name)
	}
	for _, m := range e.Muscles {
		ex.Muscles = append(ex.Muscles, m.Name)
	}
	return ex, true
}

func (r ingredientRecord) toIngredient() Ingredient {
	return Ingredient{
		ID:      r.ID,
		Name:    strings.TrimSpace(r.Name),
		Energy:  float64(r.Energy),
		Protein: float64(r.Protein),
		Carbs:   float64(r.Carbohydrates),
		Fat:     float64(r.Fat),
		Fiber:   float64(r.Fiber),
		Sodium:  float64(r.Sodium),
	}
}

// matches reports whether every word of term appears in the exercise's
// name, category, equipment or muscles.
func (e Exercise) matches(term string) bool {
	words := strings.Fields(strings.ToLower(term))
	if len(words) == 0 {
		return true
	}
	hay := strings.ToLower(strings.Join(append(append([]string{e.Name, e.Category}, e.Equipment...), e.Muscles...), " "))
	for _, w := range words {
		if !strings.Contains(hay, w) {
			return false
		}
	}
	return true
}

// stripTags reduces an HTML catalog description to plain text.
func stripTags(s string) string {
	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(s))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.Join(strings.Fields(b.String()), " ")
		case html.TextToken:
			b.Write(z.Text())
			b.WriteByte(' ')
		}
	}
}
