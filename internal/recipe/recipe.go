package recipe

import (
	"fmt"
	"strings"
)

// Difficulty grades how demanding a recipe is.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// ParseDifficulty accepts the three known grades, case-insensitively.
func ParseDifficulty(s string) (Difficulty, error) {
	switch d := Difficulty(strings.ToLower(strings.TrimSpace(s))); d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return d, nil
	default:
		return "", fmt.Errorf("unknown difficulty %q", s)
	}
}

// Recipe is a recipe as served by the recipe backend. Ingredients are free
// text and are never normalized against pantry names.
type Recipe struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Description  string     `json:"description"`
	Ingredients  []string   `json:"ingredients"`
	Instructions string     `json:"instructions"`
	PrepTime     int        `json:"prepTime"`
	CookingTime  *int       `json:"cookingTime,omitempty"`
	CoversCount  *int       `json:"coversCount,omitempty"`
	Difficulty   Difficulty `json:"difficulty"`
	Image        string     `json:"image,omitempty"`
}

// TotalTime returns preparation plus cooking time in minutes.
func (r Recipe) TotalTime() int {
	total := r.PrepTime
	if r.CookingTime != nil {
		total += *r.CookingTime
	}
	return total
}

// FindByID returns the recipe with the given id.
func FindByID(recipes []Recipe, id string) (Recipe, bool) {
	for _, r := range recipes {
		if r.ID == id {
			return r, true
		}
	}
	return Recipe{}, false
}

// IntPtr is a convenience for the optional minute and serving fields.
func IntPtr(v int) *int {
	return &v
}
