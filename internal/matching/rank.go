package matching

import (
	"sort"

	"recipe-planner/internal/pantry"
	"recipe-planner/internal/recipe"
)

// Scored is a recipe together with its transient match percentage.
type Scored struct {
	recipe.Recipe
	MatchPercentage int `json:"matchPercentage"`
}

// Options narrows and orders a ranking. Zero values disable a filter.
type Options struct {
	// MinMatch drops recipes scoring below it; 1 keeps only partial matches.
	MinMatch int
	Category Category
	// Keywords keeps recipes matching at least one keyword.
	Keywords       []string
	TieBreakByName bool
	Limit          int
}

// Rank scores every recipe against the pantry, applies the filters and
// sorts by descending score. Equal scores keep their input order unless
// TieBreakByName is set.
func Rank(items []pantry.Ingredient, recipes []recipe.Recipe, opts Options) []Scored {
	out := make([]Scored, 0, len(recipes))
	for _, r := range recipes {
		score := MatchPercentage(items, r)
		if score < opts.MinMatch {
			continue
		}
		if opts.Category != "" && !Has(r, opts.Category) {
			continue
		}
		if len(opts.Keywords) > 0 && !MatchesKeywords(r, opts.Keywords) {
			continue
		}
		out = append(out, Scored{Recipe: r, MatchPercentage: score})
	}

	sort.SliceStable(out, func(a, b int) bool {
		if out[a].MatchPercentage != out[b].MatchPercentage {
			return out[a].MatchPercentage > out[b].MatchPercentage
		}
		if opts.TieBreakByName {
			return out[a].Name < out[b].Name
		}
		return false
	})

	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out
}
