package app

import (
	"strings"

	"recipe-planner/internal/pantry"
)

// pantryQueryTerms is how many in-stock ingredients make up the fallback query.
const pantryQueryTerms = 3

// EffectiveQuery resolves the search sent to the recipe backend. A non-blank
// manual query wins verbatim; otherwise the names of the first in-stock pantry
// ingredients are used. An empty result means list everything.
func EffectiveQuery(manual string, items []pantry.Ingredient) string {
	if q := strings.TrimSpace(manual); q != "" {
		return q
	}

	names := make([]string, 0, pantryQueryTerms)
	for _, it := range items {
		if len(names) == pantryQueryTerms {
			break
		}
		if it.InStock() {
			names = append(names, it.Name)
		}
	}
	return strings.Join(names, " ")
}
