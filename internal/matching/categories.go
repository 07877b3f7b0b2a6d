package matching

import (
	"fmt"
	"strings"
	"time"

	"recipe-planner/internal/recipe"
)

// Category is a discovery filter. A recipe can belong to several.
type Category string

const (
	CategoryMeat       Category = "meat"
	CategoryFish       Category = "fish"
	CategoryPoultry    Category = "poultry"
	CategoryVegetarian Category = "vegetarian"
	CategoryVegan      Category = "vegan"
	CategoryQuick      Category = "quick"
	CategoryDessert    Category = "dessert"

	// Seasonal produce.
	CategorySpring Category = "spring"
	CategorySummer Category = "summer"
	CategoryAutumn Category = "autumn"
	CategoryWinter Category = "winter"

	// Ingredient families.
	CategoryBeef    Category = "beef"
	CategoryChicken Category = "chicken"
	CategoryPork    Category = "pork"
	CategorySeafood Category = "seafood"
	CategoryEgg     Category = "egg"
)

// QuickPrepMinutes is the longest prep time still counted as quick.
const QuickPrepMinutes = 15

var (
	meatKeywords    = []string{"bœuf", "porc", "agneau"}
	fishKeywords    = []string{"saumon", "thon", "poisson"}
	poultryKeywords = []string{"poulet", "canard", "volaille"}

	animalKeywords = []string{"viande", "poisson", "poulet", "bœuf", "porc", "saumon", "thon"}
	dairyKeywords  = []string{"fromage", "lait", "crème", "beurre", "œuf"}

	dessertNameKeywords = []string{"dessert", "gâteau", "tarte", "crème"}
)

var families = map[Category][]string{
	CategorySpring: {
		"asperge", "artichaut", "petits pois", "radis", "épinards", "laitue", "ail",
		"bette", "carotte", "chou", "fenouil", "rhubarbe", "avocat", "banane",
		"citron", "kiwi", "mangue", "fraise", "papaye",
	},
	CategorySummer: {
		"tomate", "courgette", "aubergine", "poivron", "concombre", "basilic",
		"brocoli", "haricot", "maïs", "pâtisson", "pomme de terre", "abricot",
		"cerise", "framboise", "groseille", "melon", "nectarine", "pêche",
		"pastèque", "mirabelle", "myrtille", "mûre", "cassis",
	},
	CategoryAutumn: {
		"potiron", "champignon", "châtaigne", "courge", "brocoli", "chou-fleur",
		"céleri", "betterave", "panais", "poireau", "citrouille", "amande",
		"figue", "noix", "noisette", "poire", "pomme", "prune", "quetsche",
		"raisin", "coing", "marron",
	},
	CategoryWinter: {
		"poireau", "chou", "navet", "carotte", "endive", "pomme de terre",
		"topinambour", "salsifis", "mâche", "cresson", "ananas", "clémentine",
		"orange", "mandarine", "pamplemousse", "kaki", "grenade", "datte",
		"litchi",
	},
	CategoryBeef: {
		"bœuf", "boeuf", "steak", "entrecôte", "filet de bœuf", "rôti de bœuf",
		"bavette", "rumsteck", "côte de bœuf", "bœuf bourguignon", "tartare",
		"carpaccio", "bœuf braisé", "pot-au-feu", "blanquette de veau",
	},
	CategoryChicken: {
		"poulet", "poule", "volaille", "blanc de poulet", "cuisse de poulet",
		"aile de poulet", "escalope de poulet", "nuggets", "cordon bleu",
		"poulet rôti", "coq au vin", "fricassée de poulet", "dinde", "canard",
	},
	CategoryPork: {
		"porc", "jambon", "lardons", "bacon", "saucisse", "saucisson",
		"boudin", "côte de porc", "filet de porc", "échine de porc",
		"poitrine de porc", "rôti de porc", "chorizo", "pancetta",
		"prosciutto", "coppa", "andouille", "merguez",
	},
	CategorySeafood: {
		"poisson", "saumon", "thon", "cabillaud", "morue", "sole", "turbot",
		"bar", "dorade", "truite", "sardine", "maquereau", "anchois",
		"crevette", "gambas", "homard", "crabe", "moules", "huîtres",
		"coquilles saint-jacques", "calamars", "poulpe", "seiche",
	},
	CategoryEgg: {
		"œuf", "oeuf", "œufs", "oeufs", "omelette", "œuf à la coque",
		"œuf dur", "œuf mollet", "œuf poché", "œuf brouillé",
		"œuf au plat", "quiche", "soufflé",
	},
}

// AllCategories lists every category in display order.
func AllCategories() []Category {
	return []Category{
		CategoryMeat, CategoryFish, CategoryPoultry, CategoryVegetarian, CategoryVegan,
		CategoryQuick, CategoryDessert,
		CategorySpring, CategorySummer, CategoryAutumn, CategoryWinter,
		CategoryBeef, CategoryChicken, CategoryPork, CategorySeafood, CategoryEgg,
	}
}

// ParseCategory accepts a category name case-insensitively.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllCategories() {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown category %q", s)
}

// SeasonOf maps a month to its produce season.
func SeasonOf(m time.Month) Category {
	switch {
	case m >= time.March && m <= time.May:
		return CategorySpring
	case m >= time.June && m <= time.August:
		return CategorySummer
	case m >= time.September && m <= time.November:
		return CategoryAutumn
	default:
		return CategoryWinter
	}
}

type haystack struct {
	name, description, ingredients string
}

func newHaystack(r recipe.Recipe) haystack {
	return haystack{
		name:        strings.ToLower(r.Name),
		description: strings.ToLower(r.Description),
		ingredients: strings.ToLower(strings.Join(r.Ingredients, " ")),
	}
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

func (h haystack) hasAnimal() bool {
	return containsAny(h.ingredients, animalKeywords) ||
		containsAny(h.name, animalKeywords) ||
		containsAny(h.description, animalKeywords)
}

// Has reports whether the recipe belongs to the category.
func Has(r recipe.Recipe, c Category) bool {
	h := newHaystack(r)
	switch c {
	case CategoryMeat:
		return containsAny(h.ingredients, meatKeywords) ||
			strings.Contains(h.name, "viande") || strings.Contains(h.description, "viande")
	case CategoryFish:
		return containsAny(h.ingredients, fishKeywords) ||
			strings.Contains(h.name, "poisson") || strings.Contains(h.description, "poisson")
	case CategoryPoultry:
		return containsAny(h.ingredients, poultryKeywords) ||
			strings.Contains(h.name, "poulet") || strings.Contains(h.name, "volaille")
	case CategoryVegetarian:
		return !h.hasAnimal()
	case CategoryVegan:
		return !h.hasAnimal() &&
			!containsAny(h.ingredients, dairyKeywords) && !containsAny(h.name, dairyKeywords)
	case CategoryQuick:
		return r.PrepTime <= QuickPrepMinutes
	case CategoryDessert:
		return containsAny(h.name, dessertNameKeywords) || strings.Contains(h.description, "dessert")
	default:
		keywords, ok := families[c]
		if !ok {
			return false
		}
		return MatchesKeywords(r, keywords)
	}
}

// Categories returns every category the recipe belongs to.
func Categories(r recipe.Recipe) []Category {
	var out []Category
	for _, c := range AllCategories() {
		if Has(r, c) {
			out = append(out, c)
		}
	}
	return out
}

// MatchesKeywords reports whether any keyword matches an ingredient in either
// direction, or appears in the recipe name or description.
func MatchesKeywords(r recipe.Recipe, keywords []string) bool {
	for _, ing := range r.Ingredients {
		for _, k := range keywords {
			if Matches(ing, k) {
				return true
			}
		}
	}
	h := newHaystack(r)
	for _, k := range keywords {
		k = strings.ToLower(k)
		if strings.Contains(h.name, k) || strings.Contains(h.description, k) {
			return true
		}
	}
	return false
}
