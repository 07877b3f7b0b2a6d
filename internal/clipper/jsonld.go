package clipper

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"recipe-planner/internal/recipe"

	"github.com/PuerkitoBio/goquery"
)

// FromJSONLD returns the first schema.org Recipe embedded in the page.
func FromJSONLD(doc *goquery.Document) (recipe.Recipe, bool) {
	var found recipe.Recipe
	ok := false
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var v interface{}
		if err := json.Unmarshal([]byte(s.Text()), &v); err != nil {
			return true
		}
		if obj := findRecipe(v); obj != nil {
			if r, valid := toRecipe(obj); valid {
				found, ok = r, true
				return false
			}
		}
		return true
	})
	return found, ok
}

func findRecipe(v interface{}) map[string]interface{} {
	switch t := v.(type) {
	case []interface{}:
		for _, item := range t {
			if obj := findRecipe(item); obj != nil {
				return obj
			}
		}
	case map[string]interface{}:
		if isRecipeType(t["@type"]) {
			return t
		}
		if graph, ok := t["@graph"]; ok {
			return findRecipe(graph)
		}
	}
	return nil
}

func isRecipeType(v interface{}) bool {
	switch t := v.(type) {
	case string:
		return t == "Recipe"
	case []interface{}:
		for _, item := range t {
			if s, ok := item.(string); ok && s == "Recipe" {
				return true
			}
		}
	}
	return false
}

func toRecipe(obj map[string]interface{}) (recipe.Recipe, bool) {
	name := strings.TrimSpace(str(obj["name"]))
	if name == "" {
		return recipe.Recipe{}, false
	}

	r := recipe.Recipe{
		Name:         name,
		Description:  strings.TrimSpace(str(obj["description"])),
		Ingredients:  stringList(obj["recipeIngredient"]),
		Instructions: instructions(obj["recipeInstructions"]),
		PrepTime:     ParseISODuration(str(obj["prepTime"])),
		Image:        image(obj["image"]),
	}
	if cook := ParseISODuration(str(obj["cookTime"])); cook > 0 {
		r.CookingTime = recipe.IntPtr(cook)
	}
	if covers := servings(obj["recipeYield"]); covers > 0 {
		r.CoversCount = recipe.IntPtr(covers)
	}
	r.Difficulty = EstimateDifficulty(r.TotalTime())
	return r, true
}

func str(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	return ""
}

func stringList(v interface{}) []string {
	var out []string
	switch t := v.(type) {
	case []interface{}:
		for _, item := range t {
			if s := strings.TrimSpace(str(item)); s != "" {
				out = append(out, s)
			}
		}
	case string:
		if s := strings.TrimSpace(t); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// instructions flattens text, HowToStep lists and HowToSection lists into
// one step per line.
func instructions(v interface{}) string {
	var steps []string
	var walk func(interface{})
	walk = func(v interface{}) {
		switch t := v.(type) {
		case string:
			if s := strings.TrimSpace(t); s != "" {
				steps = append(steps, s)
			}
		case []interface{}:
			for _, item := range t {
				walk(item)
			}
		case map[string]interface{}:
			if items, ok := t["itemListElement"]; ok {
				walk(items)
				return
			}
			walk(t["text"])
		}
	}
	walk(v)
	return strings.Join(steps, "\n")
}

func image(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case []interface{}:
		if len(t) > 0 {
			return image(t[0])
		}
	case map[string]interface{}:
		return str(t["url"])
	}
	return ""
}

var leadingNumber = regexp.MustCompile(`\d+`)

func servings(v interface{}) int {
	switch t := v.(type) {
	case float64:
		return int(t)
	case string:
		if m := leadingNumber.FindString(t); m != "" {
			n, _ := strconv.Atoi(m)
			return n
		}
	case []interface{}:
		for _, item := range t {
			if n := servings(item); n > 0 {
				return n
			}
		}
	}
	return 0
}

var isoDuration = regexp.MustCompile(`^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+(?:\.\d+)?)S)?)?$`)

// ParseISODuration converts an ISO 8601 duration such as "PT1H30M" to whole
// minutes. Unparseable input yields 0.
func ParseISODuration(s string) int {
	m := isoDuration.FindStringSubmatch(strings.ToUpper(strings.TrimSpace(s)))
	if m == nil {
		return 0
	}
	atoi := func(v string) int {
		n, _ := strconv.Atoi(v)
		return n
	}
	minutes := atoi(m[1])*24*60 + atoi(m[2])*60 + atoi(m[3])
	if secs, err := strconv.ParseFloat(m[4], 64); err == nil && secs >= 30 {
		minutes++
	}
	return minutes
}
