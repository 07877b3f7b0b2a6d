package recipe

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
	"time"

	"recipe-planner/internal/llm"
)

//go:embed extractor_prompt.md
var extractorPrompt string

// maxPageText bounds the page text sent to the model.
const maxPageText = 12000

// PageData is the cleaned content of a web page holding a recipe.
type PageData struct {
	URL   string
	Title string
	Text  string
}

type extractedRecipe struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Ingredients  []string `json:"ingredients"`
	Instructions string   `json:"instructions"`
	PrepTime     int      `json:"prepTime"`
	CookingTime  int      `json:"cookingTime"`
	CoversCount  int      `json:"coversCount"`
	Difficulty   string   `json:"difficulty"`
}

// Extract asks the model to structure the recipe found in a page. The returned
// recipe has no ID; callers assign one.
func Extract(ctx context.Context, textGen llm.TextGenerator, page PageData) (Recipe, llm.AgentMeta, error) {
	start := time.Now()
	meta := llm.AgentMeta{AgentName: "Extractor"}

	if len(page.Text) > maxPageText {
		page.Text = page.Text[:maxPageText]
	}

	prompt, err := buildExtractorPrompt(page)
	if err != nil {
		return Recipe{}, meta, err
	}

	resp, err := textGen.GenerateContent(ctx, prompt)
	if err != nil {
		return Recipe{}, meta, fmt.Errorf("failed to get LLM response: %w", err)
	}
	meta.Usage = resp.Usage
	meta.Latency = time.Since(start)

	var raw extractedRecipe
	if err := json.Unmarshal([]byte(llm.StripCodeFence(resp.Content)), &raw); err != nil {
		return Recipe{}, meta, fmt.Errorf("failed to unmarshal LLM response: %w", err)
	}
	if strings.TrimSpace(raw.Name) == "" {
		return Recipe{}, meta, fmt.Errorf("no recipe found on page")
	}

	r := Recipe{
		Name:         strings.TrimSpace(raw.Name),
		Description:  raw.Description,
		Ingredients:  raw.Ingredients,
		Instructions: raw.Instructions,
		PrepTime:     raw.PrepTime,
		Difficulty:   DifficultyMedium,
	}
	if raw.CookingTime > 0 {
		r.CookingTime = IntPtr(raw.CookingTime)
	}
	if raw.CoversCount > 0 {
		r.CoversCount = IntPtr(raw.CoversCount)
	}
	if d, err := ParseDifficulty(raw.Difficulty); err == nil {
		r.Difficulty = d
	}
	return r, meta, nil
}

func buildExtractorPrompt(page PageData) (string, error) {
	tmpl, err := template.New("extractor").Parse(extractorPrompt)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, page); err != nil {
		return "", err
	}

	return buf.String(), nil
}
