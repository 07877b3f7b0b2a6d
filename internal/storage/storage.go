package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"recipe-planner/internal/pantry"
	"recipe-planner/internal/planner"
	"recipe-planner/internal/recipe"
)

// Collection keys.
const (
	KeyIngredients = "ingredients"
	KeyRecipes     = "recipes"
	KeyWeeklyPlan  = "weeklyPlan"
	KeySelected    = "selectedRecipes"
)

// Store holds the four persisted collections. Every change replaces a whole
// collection: the new value is computed from the old one, saved, then
// swapped in. Slices returned by the getters are never mutated afterwards
// and must be treated as read-only by callers.
type Store struct {
	backend Backend

	mu          sync.RWMutex
	ingredients []pantry.Ingredient
	recipes     []recipe.Recipe
	plan        []planner.Entry
	selected    []recipe.Recipe
}

// Option configures Open.
type Option func(*openOptions)

type openOptions struct {
	seed func() []pantry.Ingredient
}

// WithSeedIngredients stores seed() as the pantry when no pantry has ever
// been saved.
func WithSeedIngredients(seed func() []pantry.Ingredient) Option {
	return func(o *openOptions) { o.seed = seed }
}

// Open loads every collection from the backend. Missing collections start
// empty.
func Open(ctx context.Context, backend Backend, opts ...Option) (*Store, error) {
	var o openOptions
	for _, opt := range opts {
		opt(&o)
	}

	s := &Store{backend: backend}

	found, err := load(ctx, backend, KeyIngredients, &s.ingredients)
	if err != nil {
		return nil, err
	}
	if !found && o.seed != nil {
		if err := save(ctx, backend, KeyIngredients, o.seed(), &s.ingredients); err != nil {
			return nil, err
		}
	}
	if _, err := load(ctx, backend, KeyRecipes, &s.recipes); err != nil {
		return nil, err
	}
	if _, err := load(ctx, backend, KeyWeeklyPlan, &s.plan); err != nil {
		return nil, err
	}
	if _, err := load(ctx, backend, KeySelected, &s.selected); err != nil {
		return nil, err
	}
	return s, nil
}

func load[T any](ctx context.Context, backend Backend, key string, dst *[]T) (bool, error) {
	data, err := backend.Load(ctx, key)
	if errors.Is(err, ErrNotFound) {
		*dst = []T{}
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to load %s: %w", key, err)
	}
	var v []T
	if err := json.Unmarshal(data, &v); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	if v == nil {
		v = []T{}
	}
	*dst = v
	return true, nil
}

func save[T any](ctx context.Context, backend Backend, key string, next []T, dst *[]T) error {
	if next == nil {
		next = []T{}
	}
	data, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	if err := backend.Save(ctx, key, data); err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	*dst = next
	return nil
}

// update runs fn under the write lock. The collection is left untouched when
// saving fails.
func update[T any](ctx context.Context, s *Store, key string, cur *[]T, fn func([]T) []T) ([]T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := save(ctx, s.backend, key, fn(*cur), cur); err != nil {
		return *cur, err
	}
	return *cur, nil
}

// Ingredients returns the pantry.
func (s *Store) Ingredients() []pantry.Ingredient {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ingredients
}

// Recipes returns the cached recipe list.
func (s *Store) Recipes() []recipe.Recipe {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.recipes
}

// WeeklyPlan returns the weekly plan.
func (s *Store) WeeklyPlan() []planner.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.plan
}

// SelectedRecipes returns the to-cook selection.
func (s *Store) SelectedRecipes() []recipe.Recipe {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected
}

// UpdateIngredients replaces the pantry with fn(current).
func (s *Store) UpdateIngredients(ctx context.Context, fn func([]pantry.Ingredient) []pantry.Ingredient) ([]pantry.Ingredient, error) {
	return update(ctx, s, KeyIngredients, &s.ingredients, fn)
}

// UpdateRecipes replaces the recipe cache with fn(current).
func (s *Store) UpdateRecipes(ctx context.Context, fn func([]recipe.Recipe) []recipe.Recipe) ([]recipe.Recipe, error) {
	return update(ctx, s, KeyRecipes, &s.recipes, fn)
}

// UpdateWeeklyPlan replaces the weekly plan with fn(current).
func (s *Store) UpdateWeeklyPlan(ctx context.Context, fn func([]planner.Entry) []planner.Entry) ([]planner.Entry, error) {
	return update(ctx, s, KeyWeeklyPlan, &s.plan, fn)
}

// UpdateSelectedRecipes replaces the selection with fn(current).
func (s *Store) UpdateSelectedRecipes(ctx context.Context, fn func([]recipe.Recipe) []recipe.Recipe) ([]recipe.Recipe, error) {
	return update(ctx, s, KeySelected, &s.selected, fn)
}
