// Package matching scores recipes against the pantry and classifies them for
// discovery. Everything here is a pure function of its inputs.
package matching

import (
	"math"
	"strings"

	"recipe-planner/internal/pantry"
	"recipe-planner/internal/recipe"
)

// Matches reports whether a pantry name and a recipe ingredient token match:
// either contains the other, ignoring case.
func Matches(pantryName, token string) bool {
	p := strings.ToLower(pantryName)
	t := strings.ToLower(token)
	return strings.Contains(p, t) || strings.Contains(t, p)
}

// IsAvailable reports whether some in-stock pantry item matches the token.
func IsAvailable(items []pantry.Ingredient, token string) bool {
	for _, it := range items {
		if it.Quantity > 0 && Matches(it.Name, token) {
			return true
		}
	}
	return false
}

// MatchPercentage returns the share of the recipe's ingredients available in
// the pantry, rounded half up to an integer in 0..100. A recipe without
// ingredients scores 0.
func MatchPercentage(items []pantry.Ingredient, r recipe.Recipe) int {
	total := len(r.Ingredients)
	if total == 0 {
		return 0
	}
	matched := 0
	for _, token := range r.Ingredients {
		if IsAvailable(items, token) {
			matched++
		}
	}
	return int(math.Floor(float64(matched)*100/float64(total) + 0.5))
}

// Missing returns the recipe ingredients not available in the pantry, in
// recipe order.
func Missing(items []pantry.Ingredient, r recipe.Recipe) []string {
	var out []string
	for _, token := range r.Ingredients {
		if !IsAvailable(items, token) {
			out = append(out, token)
		}
	}
	return out
}
