package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"recipe-planner/internal/recipe"
	"recipe-planner/internal/recipeapi"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockClient is a scripted recipeapi.Client. Each list or search call takes
// the next error from errs; once exhausted, calls succeed with recipes.
type mockClient struct {
	mu       sync.Mutex
	errs     []error
	recipes  []recipe.Recipe
	lists    []recipeapi.ListParams
	searches []string
	limits   []int

	getRecipe func(id string) (*recipe.Recipe, error)
	health    func() (*recipeapi.Health, error)
}

func (m *mockClient) next() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.errs) == 0 {
		return nil
	}
	err := m.errs[0]
	m.errs = m.errs[1:]
	return err
}

func (m *mockClient) ListRecipes(ctx context.Context, params recipeapi.ListParams) (*recipeapi.RecipePage, error) {
	m.mu.Lock()
	m.lists = append(m.lists, params)
	m.mu.Unlock()
	if err := m.next(); err != nil {
		return nil, err
	}
	return &recipeapi.RecipePage{Recipes: m.recipes, Total: len(m.recipes), Limit: params.Limit}, nil
}

func (m *mockClient) SearchRecipes(ctx context.Context, query string, limit int) ([]recipe.Recipe, error) {
	m.mu.Lock()
	m.searches = append(m.searches, query)
	m.limits = append(m.limits, limit)
	m.mu.Unlock()
	if err := m.next(); err != nil {
		return nil, err
	}
	return m.recipes, nil
}

func (m *mockClient) GetRecipe(ctx context.Context, id string) (*recipe.Recipe, error) {
	if m.getRecipe == nil {
		return nil, &recipeapi.Error{Kind: recipeapi.KindNotFound, Message: "Recipe not found"}
	}
	return m.getRecipe(id)
}

func (m *mockClient) HealthCheck(ctx context.Context) (*recipeapi.Health, error) {
	if m.health == nil {
		return &recipeapi.Health{Status: "healthy"}, nil
	}
	return m.health()
}

// fakeTimer fires immediately and records every requested wait.
type fakeTimer struct {
	waits *[]time.Duration
	c     chan time.Time
}

func newFakeTimer(waits *[]time.Duration) func() backoff.Timer {
	return func() backoff.Timer {
		return &fakeTimer{waits: waits}
	}
}

func (t *fakeTimer) Start(d time.Duration) {
	*t.waits = append(*t.waits, d)
	t.c = make(chan time.Time, 1)
	t.c <- time.Now()
}

func (t *fakeTimer) Stop() {}

func (t *fakeTimer) C() <-chan time.Time {
	return t.c
}

func timeoutErr() error {
	return &recipeapi.Error{Kind: recipeapi.KindTimeout, Op: "ListRecipes", Message: "request timed out - please try again"}
}

func TestRecipeFeed(t *testing.T) {
	ctx := context.Background()
	sample := []recipe.Recipe{{ID: "1", Name: "Ratatouille"}}

	t.Run("ThreeTimeoutsSurfaceAfterTwoRetries", func(t *testing.T) {
		client := &mockClient{errs: []error{timeoutErr(), timeoutErr(), timeoutErr()}}
		var waits []time.Duration
		feed := NewRecipeFeed(client, 50, WithRetryTimer(newFakeTimer(&waits)))

		recipes, attempts, err := feed.Fetch(ctx, "")
		require.Error(t, err)
		assert.True(t, recipeapi.IsTimeout(err))
		assert.Nil(t, recipes)
		assert.Equal(t, 3, attempts)
		assert.Len(t, client.lists, 3)
		assert.Equal(t, []time.Duration{time.Second, time.Second}, waits)
	})

	t.Run("RecoversAfterTimeout", func(t *testing.T) {
		client := &mockClient{errs: []error{timeoutErr()}, recipes: sample}
		var waits []time.Duration
		feed := NewRecipeFeed(client, 50, WithRetryTimer(newFakeTimer(&waits)))

		recipes, attempts, err := feed.Fetch(ctx, "")
		require.NoError(t, err)
		assert.Equal(t, sample, recipes)
		assert.Equal(t, 2, attempts)
		assert.Equal(t, []time.Duration{time.Second}, waits)
	})

	t.Run("OtherErrorsAreNotRetried", func(t *testing.T) {
		rejected := &recipeapi.Error{Kind: recipeapi.KindServerRejected, Message: "boom"}
		client := &mockClient{errs: []error{rejected}}
		var waits []time.Duration
		feed := NewRecipeFeed(client, 50, WithRetryTimer(newFakeTimer(&waits)))

		_, attempts, err := feed.Fetch(ctx, "")
		require.Error(t, err)
		assert.Equal(t, recipeapi.KindServerRejected, recipeapi.KindOf(err))
		assert.Equal(t, 1, attempts)
		assert.Empty(t, waits)
	})

	t.Run("QuerySearches", func(t *testing.T) {
		client := &mockClient{recipes: sample}
		feed := NewRecipeFeed(client, 20)

		recipes, attempts, err := feed.Fetch(ctx, "tomate oignon")
		require.NoError(t, err)
		assert.Equal(t, sample, recipes)
		assert.Equal(t, 1, attempts)
		assert.Equal(t, []string{"tomate oignon"}, client.searches)
		assert.Equal(t, []int{20}, client.limits)
		assert.Empty(t, client.lists)
	})

	t.Run("EmptyQueryLists", func(t *testing.T) {
		client := &mockClient{}
		feed := NewRecipeFeed(client, 20)

		recipes, _, err := feed.Fetch(ctx, "")
		require.NoError(t, err)
		assert.NotNil(t, recipes)
		assert.Empty(t, recipes)
		assert.Equal(t, []recipeapi.ListParams{{Limit: 20}}, client.lists)
	})

	t.Run("CancelledContextStopsRetrying", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		client := &mockClient{errs: []error{timeoutErr(), timeoutErr(), timeoutErr()}}
		var waits []time.Duration
		feed := NewRecipeFeed(client, 50, WithRetryTimer(func() backoff.Timer {
			cancel()
			return &fakeTimer{waits: &waits}
		}))

		_, _, err := feed.Fetch(cctx, "")
		assert.True(t, errors.Is(err, context.Canceled))
		assert.Len(t, client.lists, 1)
	})
}
