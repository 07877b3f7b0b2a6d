package recipe

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"recipe-planner/internal/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockTextGenerator is a mock implementation of llm.TextGenerator for testing.
type mockTextGenerator struct {
	response    string
	shouldError bool
	lastPrompt  string
}

func (m *mockTextGenerator) GenerateContent(ctx context.Context, prompt string) (llm.ContentResponse, error) {
	m.lastPrompt = prompt
	if m.shouldError {
		return llm.ContentResponse{}, errors.New("LLM error")
	}
	return llm.ContentResponse{
		Content: m.response,
		Usage:   llm.TokenUsage{PromptTokens: 100, CompletionTokens: 20, Model: "mock"},
	}, nil
}

func TestRecipeJSON(t *testing.T) {
	raw := `{
		"id": "3",
		"name": "Omelette",
		"description": "Rapide",
		"ingredients": ["œufs", "beurre"],
		"instructions": "Battre les œufs.",
		"prepTime": 5,
		"cookingTime": 5,
		"difficulty": "easy"
	}`

	var r Recipe
	require.NoError(t, json.Unmarshal([]byte(raw), &r))
	assert.Equal(t, "3", r.ID)
	assert.Equal(t, []string{"œufs", "beurre"}, r.Ingredients)
	assert.Equal(t, DifficultyEasy, r.Difficulty)
	require.NotNil(t, r.CookingTime)
	assert.Nil(t, r.CoversCount)
	assert.Equal(t, 10, r.TotalTime())

	out, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"prepTime":5`)
	assert.NotContains(t, string(out), "coversCount")
}

func TestFindByID(t *testing.T) {
	recipes := []Recipe{{ID: "1", Name: "A"}, {ID: "2", Name: "B"}}

	r, ok := FindByID(recipes, "2")
	assert.True(t, ok)
	assert.Equal(t, "B", r.Name)

	_, ok = FindByID(recipes, "9")
	assert.False(t, ok)
}

func TestParseDifficulty(t *testing.T) {
	d, err := ParseDifficulty(" Hard ")
	require.NoError(t, err)
	assert.Equal(t, DifficultyHard, d)

	_, err = ParseDifficulty("extreme")
	assert.Error(t, err)
}

func TestExtract(t *testing.T) {
	ctx := context.Background()
	page := PageData{URL: "https://example.test/ratatouille", Title: "Ratatouille", Text: "Couper les légumes..."}

	t.Run("Success", func(t *testing.T) {
		gen := &mockTextGenerator{response: "```json\n" + `{
			"name": "Ratatouille",
			"description": "Légumes du soleil",
			"ingredients": ["courgette", "aubergine", "tomate"],
			"instructions": "Couper puis mijoter.",
			"prepTime": 20,
			"cookingTime": 45,
			"coversCount": 4,
			"difficulty": "medium"
		}` + "\n```"}

		r, meta, err := Extract(ctx, gen, page)
		require.NoError(t, err)
		assert.Equal(t, "Ratatouille", r.Name)
		assert.Len(t, r.Ingredients, 3)
		assert.Equal(t, 20, r.PrepTime)
		require.NotNil(t, r.CookingTime)
		assert.Equal(t, 45, *r.CookingTime)
		require.NotNil(t, r.CoversCount)
		assert.Equal(t, 4, *r.CoversCount)
		assert.Equal(t, DifficultyMedium, r.Difficulty)
		assert.Equal(t, "Extractor", meta.AgentName)
		assert.Equal(t, 100, meta.Usage.PromptTokens)
		assert.True(t, strings.Contains(gen.lastPrompt, "https://example.test/ratatouille"))
	})

	t.Run("LLMError", func(t *testing.T) {
		_, _, err := Extract(ctx, &mockTextGenerator{shouldError: true}, page)
		require.Error(t, err)
		assert.Equal(t, "failed to get LLM response: LLM error", err.Error())
	})

	t.Run("InvalidJSON", func(t *testing.T) {
		_, _, err := Extract(ctx, &mockTextGenerator{response: "this is not json"}, page)
		require.Error(t, err)
		assert.True(t, strings.HasPrefix(err.Error(), "failed to unmarshal LLM response"))
	})

	t.Run("NoRecipe", func(t *testing.T) {
		_, _, err := Extract(ctx, &mockTextGenerator{response: `{"name": ""}`}, page)
		assert.EqualError(t, err, "no recipe found on page")
	})

	t.Run("UnknownDifficultyDefaultsToMedium", func(t *testing.T) {
		r, _, err := Extract(ctx, &mockTextGenerator{response: `{"name": "Soupe", "difficulty": "??"}`}, page)
		require.NoError(t, err)
		assert.Equal(t, DifficultyMedium, r.Difficulty)
		assert.Nil(t, r.CookingTime)
	})
}
