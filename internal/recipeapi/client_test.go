package recipeapi

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"recipe-planner/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(&config.Config{RecipeAPIURL: server.URL}, opts...)
}

const recipesJSON = `[
	{"id": "1", "name": "Pâtes bolognaise", "description": "", "ingredients": ["pâtes", "bœuf"], "instructions": "", "prepTime": 20, "difficulty": "easy"},
	{"id": "2", "name": "Omelette", "description": "", "ingredients": ["œufs"], "instructions": "", "prepTime": 5, "cookingTime": 5, "difficulty": "easy"}
]`

func TestListRecipes(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/recipes", r.URL.Path)
			assert.Equal(t, "50", r.URL.Query().Get("limit"))
			assert.Equal(t, "10", r.URL.Query().Get("offset"))
			assert.False(t, r.URL.Query().Has("search"), "empty search must not be sent")
			fmt.Fprintf(w, `{"success": true, "data": %s, "total": 2, "limit": 50, "offset": 10}`, recipesJSON)
		})

		page, err := client.ListRecipes(context.Background(), ListParams{Limit: 50, Offset: 10})
		require.NoError(t, err)
		require.Len(t, page.Recipes, 2)
		assert.Equal(t, "Pâtes bolognaise", page.Recipes[0].Name)
		assert.Equal(t, 2, page.Total)
		assert.Equal(t, 10, page.Offset)
	})

	t.Run("NoParams", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Empty(t, r.URL.RawQuery)
			fmt.Fprint(w, `{"success": true, "data": []}`)
		})

		page, err := client.ListRecipes(context.Background(), ListParams{})
		require.NoError(t, err)
		assert.Empty(t, page.Recipes)
	})

	t.Run("SuccessFlagFalseOn200", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"success": false, "error": "database unavailable"}`)
		})

		_, err := client.ListRecipes(context.Background(), ListParams{})
		require.Error(t, err)
		assert.Equal(t, KindServerRejected, KindOf(err))
		assert.Equal(t, "database unavailable", Message(err))
	})

	t.Run("MissingSuccessFlag", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprintf(w, `{"data": %s}`, recipesJSON)
		})

		_, err := client.ListRecipes(context.Background(), ListParams{})
		require.Error(t, err)
		assert.Equal(t, KindServerRejected, KindOf(err))
		assert.Equal(t, "API request failed", Message(err))
	})

	t.Run("ServerErrorWithMessage", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, `{"success": false, "message": "scraper crashed"}`)
		})

		_, err := client.ListRecipes(context.Background(), ListParams{})
		var apiErr *Error
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, KindServerRejected, apiErr.Kind)
		assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
		assert.Equal(t, "scraper crashed", apiErr.Message)
	})

	t.Run("ServerErrorWithoutBody", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		})

		_, err := client.ListRecipes(context.Background(), ListParams{})
		assert.Equal(t, KindServerRejected, KindOf(err))
		assert.Equal(t, "HTTP error! status: 502", Message(err))
	})

	t.Run("InvalidJSON", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `<html>oops</html>`)
		})

		_, err := client.ListRecipes(context.Background(), ListParams{})
		assert.Equal(t, KindUnknown, KindOf(err))
	})
}

func TestSearchRecipes(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "tomates pâtes", r.URL.Query().Get("search"))
		assert.Equal(t, "20", r.URL.Query().Get("limit"))
		fmt.Fprintf(w, `{"success": true, "data": %s, "query": "tomates pâtes", "total": 2}`, recipesJSON)
	})

	recipes, err := client.SearchRecipes(context.Background(), "tomates pâtes", 20)
	require.NoError(t, err)
	assert.Len(t, recipes, 2)
}

func TestGetRecipe(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/recipes/2", r.URL.Path)
			fmt.Fprint(w, `{"success": true, "data": {"id": "2", "name": "Omelette", "ingredients": ["œufs"], "prepTime": 5, "difficulty": "easy"}}`)
		})

		r, err := client.GetRecipe(context.Background(), "2")
		require.NoError(t, err)
		assert.Equal(t, "Omelette", r.Name)
	})

	t.Run("NotFoundStatus", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"success": false, "error": "Recipe not found"}`)
		})

		_, err := client.GetRecipe(context.Background(), "404")
		require.Error(t, err)
		assert.True(t, IsNotFound(err))
		assert.Equal(t, "Recipe not found", Message(err))
	})

	t.Run("NullData", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"success": true, "data": null}`)
		})

		_, err := client.GetRecipe(context.Background(), "x")
		assert.True(t, IsNotFound(err))
	})
}

func TestHealthCheck(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		fmt.Fprint(w, `{"success": true, "data": {"status": "healthy", "timestamp": "2024-06-10T12:00:00", "service": "recipes"}}`)
	})

	h, err := client.HealthCheck(context.Background())
	require.NoError(t, err)
	assert.True(t, h.Healthy())
	assert.Equal(t, "recipes", h.Service)
}

func TestTransportFailures(t *testing.T) {
	t.Run("Timeout", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		}, WithTimeout(50*time.Millisecond))

		_, err := client.ListRecipes(context.Background(), ListParams{})
		require.Error(t, err)
		assert.True(t, IsTimeout(err))
		assert.Equal(t, "request timed out - please try again", Message(err))
	})

	t.Run("Network", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		addr := server.URL
		server.Close()

		client := NewClient(&config.Config{RecipeAPIURL: addr})
		_, err := client.HealthCheck(context.Background())
		require.Error(t, err)
		assert.Equal(t, KindNetwork, KindOf(err))
		assert.False(t, IsTimeout(err))
	})

	t.Run("CallerCancellation", func(t *testing.T) {
		started := make(chan struct{})
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			close(started)
			<-r.Context().Done()
		})

		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			<-started
			cancel()
		}()

		_, err := client.ListRecipes(ctx, ListParams{})
		assert.ErrorIs(t, err, context.Canceled)
		assert.False(t, IsTimeout(err))
	})
}

func TestAPIKeyToken(t *testing.T) {
	secret := []byte("0123456789abcdef")
	key := "key-id:" + hex.EncodeToString(secret)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		require.True(t, strings.HasPrefix(auth, "Bearer "))

		token, err := jwt.Parse(strings.TrimPrefix(auth, "Bearer "), func(tok *jwt.Token) (interface{}, error) {
			assert.Equal(t, "key-id", tok.Header["kid"])
			return secret, nil
		}, jwt.WithAudience("/api/"))
		require.NoError(t, err)
		assert.True(t, token.Valid)

		fmt.Fprint(w, `{"success": true, "data": {"status": "healthy"}}`)
	}))
	defer server.Close()

	client := NewClient(&config.Config{RecipeAPIURL: server.URL, RecipeAPIKey: key})
	_, err := client.HealthCheck(context.Background())
	require.NoError(t, err)

	bad := NewClient(&config.Config{RecipeAPIURL: server.URL, RecipeAPIKey: "no-secret"})
	_, err = bad.HealthCheck(context.Background())
	assert.Equal(t, KindUnknown, KindOf(err))
}
