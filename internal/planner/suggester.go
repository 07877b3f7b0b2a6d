package planner

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
	"recipe-planner/internal/recipe"
)

//go:embed suggest_prompt.md
var suggestPrompt string

var suggestTemplate = template.Must(template.New("suggest").
	Funcs(template.FuncMap{"join": strings.Join}).
	Parse(suggestPrompt))

type suggestPromptData struct {
	Pantry     []string
	Candidates []recipe.Recipe
	Free       []SlotRef
}

// Assignment places one recipe in one slot.
type Assignment struct {
	Day      Day    `json:"day"`
	Slot     Slot   `json:"slot"`
	RecipeID string `json:"recipe_id"`
}

// SuggestRequest is the input of a plan suggestion.
type SuggestRequest struct {
	Plan       []Entry
	Candidates []recipe.Recipe
	Pantry     []string
}

// SuggestResult holds the validated assignments and execution metadata.
type SuggestResult struct {
	Assignments []Assignment
	Meta        llm.AgentMeta
}

type rawSuggestion struct {
	Assignments []struct {
		Day      string `json:"day"`
		Slot     string `json:"slot"`
		RecipeID string `json:"recipe_id"`
	} `json:"assignments"`
}

// Suggester proposes recipes for the free slots of a plan.
type Suggester struct {
	textGen llm.TextGenerator
}

// NewSuggester creates a new Suggester.
func NewSuggester(textGen llm.TextGenerator) *Suggester {
	return &Suggester{textGen: textGen}
}

// Suggest asks the model for assignments and keeps only those that name a
// candidate recipe and a slot that is free and not already taken by an
// earlier assignment.
func (s *Suggester) Suggest(ctx context.Context, req SuggestRequest) (SuggestResult, error) {
	meta := llm.AgentMeta{AgentName: "Suggester"}
	if len(req.Candidates) == 0 {
		return SuggestResult{Meta: meta}, fmt.Errorf("no recipes to plan with")
	}
	free := FreeSlots(req.Plan)
	if len(free) == 0 {
		return SuggestResult{Meta: meta}, nil
	}

	start := time.Now()
	var buf bytes.Buffer
	if err := suggestTemplate.Execute(&buf, suggestPromptData{
		Pantry:     req.Pantry,
		Candidates: req.Candidates,
		Free:       free,
	}); err != nil {
		return SuggestResult{Meta: meta}, fmt.Errorf("failed to build suggest prompt: %w", err)
	}

	resp, err := s.textGen.GenerateContent(ctx, buf.String())
	if err != nil {
		return SuggestResult{Meta: meta}, fmt.Errorf("failed to generate suggestions: %w", err)
	}
	meta.Usage = resp.Usage
	meta.Latency = time.Since(start)

	var raw rawSuggestion
	if err := json.Unmarshal([]byte(llm.StripCodeFence(resp.Content)), &raw); err != nil {
		return SuggestResult{Meta: meta}, fmt.Errorf("failed to parse suggestions: %w. Response: %s", err, resp.Content)
	}

	open := make(map[SlotRef]bool, len(free))
	for _, ref := range free {
		open[ref] = true
	}
	known := make(map[string]bool, len(req.Candidates))
	for _, r := range req.Candidates {
		known[r.ID] = true
	}

	var out []Assignment
	for _, a := range raw.Assignments {
		day, err := ParseDay(a.Day)
		if err != nil {
			continue
		}
		slot, err := ParseSlot(a.Slot)
		if err != nil {
			continue
		}
		ref := SlotRef{Day: day, Slot: slot}
		if !open[ref] || !known[a.RecipeID] {
			continue
		}
		open[ref] = false
		out = append(out, Assignment{Day: day, Slot: slot, RecipeID: a.RecipeID})
	}

	return SuggestResult{Assignments: out, Meta: meta}, nil
}
