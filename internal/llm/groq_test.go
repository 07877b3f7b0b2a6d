package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroqGenerateContent(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer groq_key", r.Header.Get("Authorization"))

			var body map[string]interface{}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, groqModel, body["model"])

			fmt.Fprintln(w, `{
				"choices": [{"message": {"content": "{\"ok\": true}"}}],
				"usage": {"prompt_tokens": 12, "completion_tokens": 5, "total_tokens": 17}
			}`)
		}))
		defer server.Close()

		client := NewGroqClient("groq_key").WithEndpoint(server.URL)
		resp, err := client.GenerateContent(context.Background(), "hello")
		require.NoError(t, err)
		assert.Equal(t, `{"ok": true}`, resp.Content)
		assert.Equal(t, TokenUsage{PromptTokens: 12, CompletionTokens: 5, TotalTokens: 17, Model: groqModel}, resp.Usage)
	})

	t.Run("ServerError", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			fmt.Fprint(w, "slow down")
		}))
		defer server.Close()

		_, err := NewGroqClient("k").WithEndpoint(server.URL).GenerateContent(context.Background(), "hello")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "status=429")
	})

	t.Run("NoChoices", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"choices": []}`)
		}))
		defer server.Close()

		_, err := NewGroqClient("k").WithEndpoint(server.URL).GenerateContent(context.Background(), "hello")
		assert.EqualError(t, err, "no content generated")
	})
}

func TestStripCodeFence(t *testing.T) {
	assert.Equal(t, `{"a":1}`, StripCodeFence("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, StripCodeFence(`  {"a":1} `))
}
