package app

import (
	"context"
	"time"

	"recipe-planner/internal/recipe"
	"recipe-planner/internal/recipeapi"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

const (
	// DefaultFetchRetries is how many times a timed-out fetch is retried.
	DefaultFetchRetries = 2
	// DefaultRetryInterval is the fixed pause between fetch attempts.
	DefaultRetryInterval = time.Second
)

// Feed loads the recipe collection for a query.
type Feed interface {
	Fetch(ctx context.Context, query string) ([]recipe.Recipe, int, error)
}

// RecipeFeed fetches recipes from the backend, retrying timeouts a bounded
// number of times at a constant interval. Other failures are returned at once.
type RecipeFeed struct {
	client   recipeapi.Client
	limit    int
	retries  uint64
	interval time.Duration
	newTimer func() backoff.Timer
	logger   *zap.Logger
}

// FeedOption configures a RecipeFeed.
type FeedOption func(*RecipeFeed)

// WithRetries overrides the retry count and interval.
func WithRetries(retries uint64, interval time.Duration) FeedOption {
	return func(f *RecipeFeed) {
		f.retries = retries
		f.interval = interval
	}
}

// WithRetryTimer sets the timer used to wait between attempts.
func WithRetryTimer(newTimer func() backoff.Timer) FeedOption {
	return func(f *RecipeFeed) { f.newTimer = newTimer }
}

// WithFeedLogger sets the logger used to report retries.
func WithFeedLogger(l *zap.Logger) FeedOption {
	return func(f *RecipeFeed) { f.logger = l }
}

// NewRecipeFeed creates a feed reading at most limit recipes per fetch.
func NewRecipeFeed(client recipeapi.Client, limit int, opts ...FeedOption) *RecipeFeed {
	f := &RecipeFeed{
		client:   client,
		limit:    limit,
		retries:  DefaultFetchRetries,
		interval: DefaultRetryInterval,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch lists recipes when query is empty and searches otherwise. It returns
// the number of attempts made alongside the result.
func (f *RecipeFeed) Fetch(ctx context.Context, query string) ([]recipe.Recipe, int, error) {
	var (
		recipes  []recipe.Recipe
		attempts int
	)

	op := func() error {
		attempts++
		var err error
		if query == "" {
			var page *recipeapi.RecipePage
			page, err = f.client.ListRecipes(ctx, recipeapi.ListParams{Limit: f.limit})
			if err == nil {
				recipes = page.Recipes
			}
		} else {
			recipes, err = f.client.SearchRecipes(ctx, query, f.limit)
		}
		if err != nil && !recipeapi.IsTimeout(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, wait time.Duration) {
		f.logger.Warn("recipe fetch timed out, retrying",
			zap.String("query", query),
			zap.Int("attempt", attempts),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	}

	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(f.interval), f.retries), ctx)

	var timer backoff.Timer
	if f.newTimer != nil {
		timer = f.newTimer()
	}

	if err := backoff.RetryNotifyWithTimer(op, b, notify, timer); err != nil {
		return nil, attempts, err
	}
	if recipes == nil {
		recipes = []recipe.Recipe{}
	}
	return recipes, attempts, nil
}
