package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"recipe-planner/internal/clipper"
	"recipe-planner/internal/config"
	"recipe-planner/internal/llm"
	"recipe-planner/internal/matching"
	"recipe-planner/internal/metrics"
	"recipe-planner/internal/pantry"
	"recipe-planner/internal/planner"
	"recipe-planner/internal/recipe"
	"recipe-planner/internal/recipeapi"
	"recipe-planner/internal/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// OpFetchRecipes is the operation name recorded for recipe fetches.
const OpFetchRecipes = "FetchRecipes"

// autoPlanCandidates bounds the ranked recipes offered to the suggester.
const autoPlanCandidates = 20

var (
	// ErrSuggestionsDisabled is returned by AutoPlan when no model is configured.
	ErrSuggestionsDisabled = errors.New("plan suggestions are not configured")
	// ErrClippingDisabled is returned by ClipRecipe when no clipper is configured.
	ErrClippingDisabled = errors.New("recipe clipping is not configured")
)

// Recorder persists execution metrics.
type Recorder interface {
	Record(m metrics.ExecutionMetric) error
}

// Suggester proposes recipes for free plan slots.
type Suggester interface {
	Suggest(ctx context.Context, req planner.SuggestRequest) (planner.SuggestResult, error)
}

// Clipper imports a recipe from a web page.
type Clipper interface {
	Clip(ctx context.Context, url string) (*clipper.Result, error)
}

// Status is the phase of the recipe fetch machine.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
)

// FetchState describes the latest recipe fetch. Err is set when the last
// completed fetch failed; the recipe cache then still holds older results.
type FetchState struct {
	Status    Status
	Query     string
	Err       error
	Attempts  int
	UpdatedAt time.Time
}

// RecipeLookup is the outcome of a lookup by id. NotFound is a state, not an
// error.
type RecipeLookup struct {
	Recipe   *recipe.Recipe
	NotFound bool
}

// Options holds the optional collaborators of a Coordinator.
type Options struct {
	Logger    *zap.Logger
	Feed      Feed
	Suggester Suggester
	Clipper   Clipper
	Metrics   Recorder
	Now       func() time.Time
	NewID     func() string
}

// Coordinator is the single owner of application state. Every intent runs
// under one lock, so collections are always replaced as a whole and readers
// never see a partial update.
type Coordinator struct {
	store     *storage.Store
	client    recipeapi.Client
	feed      Feed
	suggester Suggester
	clipper   Clipper
	recorder  Recorder
	logger    *zap.Logger
	now       func() time.Time
	newID     func() string

	ctx  context.Context
	stop context.CancelFunc
	wg   sync.WaitGroup

	mu          sync.Mutex
	searchQuery string
	state       FetchState
	generation  uint64
	cancelFetch context.CancelFunc
	fetchDone   chan struct{}
	apiHealthy  bool
}

// NewCoordinator creates a Coordinator over an opened store.
func NewCoordinator(store *storage.Store, client recipeapi.Client, opts Options) *Coordinator {
	c := &Coordinator{
		store:     store,
		client:    client,
		feed:      opts.Feed,
		suggester: opts.Suggester,
		clipper:   opts.Clipper,
		recorder:  opts.Metrics,
		logger:    opts.Logger,
		now:       opts.Now,
		newID:     opts.NewID,
		state:     FetchState{Status: StatusIdle},
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	if c.feed == nil {
		c.feed = NewRecipeFeed(client, config.DefaultFetchLimit, WithFeedLogger(c.logger))
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.newID == nil {
		c.newID = uuid.NewString
	}
	c.ctx, c.stop = context.WithCancel(context.Background())
	return c
}

// Start probes the backend health and runs the first recipe fetch
// concurrently. It returns once both are done.
func (c *Coordinator) Start(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c.CheckHealth(gctx)
		return nil
	})
	g.Go(func() error {
		c.Refresh()
		return c.Wait(gctx)
	})
	return g.Wait()
}

// Close cancels any running fetch and waits for it to finish.
func (c *Coordinator) Close() {
	c.stop()
	c.wg.Wait()
}

// --- Pantry ---

// Ingredients returns the pantry. The slice must not be modified.
func (c *Coordinator) Ingredients() []pantry.Ingredient {
	return c.store.Ingredients()
}

// AddIngredient validates the payload, assigns an id and added date, and
// appends the ingredient to the pantry.
func (c *Coordinator) AddIngredient(ctx context.Context, n pantry.NewIngredient) (pantry.Ingredient, error) {
	if err := n.Validate(); err != nil {
		return pantry.Ingredient{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	ing := n.Build(c.newID(), c.now())
	_, err := c.store.UpdateIngredients(ctx, func(cur []pantry.Ingredient) []pantry.Ingredient {
		next := make([]pantry.Ingredient, len(cur), len(cur)+1)
		copy(next, cur)
		return append(next, ing)
	})
	if err != nil {
		return pantry.Ingredient{}, fmt.Errorf("failed to add ingredient: %w", err)
	}
	c.queryChangedLocked()
	return ing, nil
}

// RemoveIngredient deletes an ingredient by id and reports whether it existed.
func (c *Coordinator) RemoveIngredient(ctx context.Context, id string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := pantry.Find(c.store.Ingredients(), id); !ok {
		return false, nil
	}
	_, err := c.store.UpdateIngredients(ctx, func(cur []pantry.Ingredient) []pantry.Ingredient {
		next := make([]pantry.Ingredient, 0, len(cur))
		for _, it := range cur {
			if it.ID != id {
				next = append(next, it)
			}
		}
		return next
	})
	if err != nil {
		return false, fmt.Errorf("failed to remove ingredient: %w", err)
	}
	c.queryChangedLocked()
	return true, nil
}

// UpdateIngredient merges a patch into the ingredient with the given id. An
// unknown id is a no-op and reports false.
func (c *Coordinator) UpdateIngredient(ctx context.Context, id string, p pantry.Patch) (pantry.Ingredient, bool, error) {
	if err := p.Validate(); err != nil {
		return pantry.Ingredient{}, false, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	cur, ok := pantry.Find(c.store.Ingredients(), id)
	if !ok {
		return pantry.Ingredient{}, false, nil
	}
	updated := cur.Apply(p)
	_, err := c.store.UpdateIngredients(ctx, func(items []pantry.Ingredient) []pantry.Ingredient {
		next := make([]pantry.Ingredient, len(items))
		for i, it := range items {
			if it.ID == id {
				it = updated
			}
			next[i] = it
		}
		return next
	})
	if err != nil {
		return pantry.Ingredient{}, false, fmt.Errorf("failed to update ingredient: %w", err)
	}
	c.queryChangedLocked()
	return updated, true, nil
}

// --- Selection ---

// SelectedRecipes returns the to-cook list in insertion order.
func (c *Coordinator) SelectedRecipes() []recipe.Recipe {
	return c.store.SelectedRecipes()
}

// SelectRecipe adds a recipe to the selection. Selecting an id that is
// already present is a no-op and reports false.
func (c *Coordinator) SelectRecipe(ctx context.Context, r recipe.Recipe) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selectLocked(ctx, r)
}

func (c *Coordinator) selectLocked(ctx context.Context, r recipe.Recipe) (bool, error) {
	if _, ok := recipe.FindByID(c.store.SelectedRecipes(), r.ID); ok {
		return false, nil
	}
	_, err := c.store.UpdateSelectedRecipes(ctx, func(cur []recipe.Recipe) []recipe.Recipe {
		next := make([]recipe.Recipe, len(cur), len(cur)+1)
		copy(next, cur)
		return append(next, r)
	})
	if err != nil {
		return false, fmt.Errorf("failed to select recipe: %w", err)
	}
	return true, nil
}

// DeselectRecipe removes a recipe from the selection by id.
func (c *Coordinator) DeselectRecipe(ctx context.Context, id string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := recipe.FindByID(c.store.SelectedRecipes(), id); !ok {
		return false, nil
	}
	_, err := c.store.UpdateSelectedRecipes(ctx, func(cur []recipe.Recipe) []recipe.Recipe {
		next := make([]recipe.Recipe, 0, len(cur))
		for _, r := range cur {
			if r.ID != id {
				next = append(next, r)
			}
		}
		return next
	})
	if err != nil {
		return false, fmt.Errorf("failed to deselect recipe: %w", err)
	}
	return true, nil
}

// ClipRecipe imports the recipe published at url and adds it to the
// selection.
func (c *Coordinator) ClipRecipe(ctx context.Context, url string) (recipe.Recipe, error) {
	if c.clipper == nil {
		return recipe.Recipe{}, ErrClippingDisabled
	}

	res, err := c.clipper.Clip(ctx, url)
	if res != nil && res.Meta != nil {
		outcome := metrics.OutcomeSuccess
		if err != nil {
			outcome = metrics.OutcomeError
		}
		c.recordMeta(*res.Meta, outcome)
	}
	if err != nil {
		return recipe.Recipe{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.selectLocked(ctx, res.Recipe); err != nil {
		return recipe.Recipe{}, err
	}
	c.logger.Info("recipe clipped",
		zap.String("url", url),
		zap.String("id", res.Recipe.ID),
		zap.String("source", string(res.Source)),
	)
	return res.Recipe, nil
}

// --- Weekly plan ---

// WeeklyPlan returns the plan entries in creation order.
func (c *Coordinator) WeeklyPlan() []planner.Entry {
	return c.store.WeeklyPlan()
}

// UpdateWeeklyPlan upserts the entry for the update's day.
func (c *Coordinator) UpdateWeeklyPlan(ctx context.Context, u planner.Update) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := c.store.UpdateWeeklyPlan(ctx, func(cur []planner.Entry) []planner.Entry {
		return planner.Upsert(cur, u, c.newID)
	})
	if err != nil {
		return fmt.Errorf("failed to update weekly plan: %w", err)
	}
	return nil
}

// AssignRecipe places a recipe in one meal slot, keeping the other slot.
func (c *Coordinator) AssignRecipe(ctx context.Context, r recipe.Recipe, day planner.Day, slot planner.Slot) error {
	return c.UpdateWeeklyPlan(ctx, planner.Assign(day, slot, r))
}

// ClearSlot empties one meal slot. The day entry is kept even when both
// slots end up empty.
func (c *Coordinator) ClearSlot(ctx context.Context, day planner.Day, slot planner.Slot) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := c.store.UpdateWeeklyPlan(ctx, func(cur []planner.Entry) []planner.Entry {
		return planner.ClearSlot(cur, day, slot)
	})
	if err != nil {
		return fmt.Errorf("failed to clear slot: %w", err)
	}
	return nil
}

// AutoPlan asks the suggester to fill the free slots of the week from the
// selection and the best matching cached recipes, then applies the result.
func (c *Coordinator) AutoPlan(ctx context.Context) ([]planner.Assignment, error) {
	if c.suggester == nil {
		return nil, ErrSuggestionsDisabled
	}

	items := c.store.Ingredients()
	candidates := append([]recipe.Recipe(nil), c.store.SelectedRecipes()...)
	for _, s := range matching.Rank(items, c.store.Recipes(), matching.Options{Limit: autoPlanCandidates}) {
		if _, dup := recipe.FindByID(candidates, s.ID); !dup {
			candidates = append(candidates, s.Recipe)
		}
	}

	var names []string
	for _, it := range pantry.Available(items) {
		names = append(names, it.Name)
	}

	res, err := c.suggester.Suggest(ctx, planner.SuggestRequest{
		Plan:       c.store.WeeklyPlan(),
		Candidates: candidates,
		Pantry:     names,
	})
	if err != nil {
		c.recordMeta(res.Meta, metrics.OutcomeError)
		return nil, fmt.Errorf("failed to suggest plan: %w", err)
	}
	if res.Meta.Usage.TotalTokens > 0 || res.Meta.Latency > 0 {
		c.recordMeta(res.Meta, metrics.OutcomeSuccess)
	}
	if len(res.Assignments) == 0 {
		return nil, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	applied := make([]planner.Assignment, 0, len(res.Assignments))
	_, err = c.store.UpdateWeeklyPlan(ctx, func(cur []planner.Entry) []planner.Entry {
		next := cur
		for _, a := range res.Assignments {
			r, ok := recipe.FindByID(candidates, a.RecipeID)
			if !ok {
				continue
			}
			if e, found := planner.Find(next, a.Day); found && e.Get(a.Slot) != nil {
				continue
			}
			next = planner.Upsert(next, planner.Assign(a.Day, a.Slot, r), c.newID)
			applied = append(applied, a)
		}
		return next
	})
	if err != nil {
		return nil, fmt.Errorf("failed to apply suggested plan: %w", err)
	}
	c.logger.Info("weekly plan suggested", zap.Int("assigned", len(applied)))
	return applied, nil
}

// --- Search ---

// SearchQuery returns the manual search query.
func (c *Coordinator) SearchQuery() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.searchQuery
}

// SetSearchQuery replaces the manual search query. An empty query falls back
// to the pantry-derived one.
func (c *Coordinator) SetSearchQuery(q string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.searchQuery = q
	c.queryChangedLocked()
}

// EffectiveQuery returns the query the next fetch will use.
func (c *Coordinator) EffectiveQuery() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return EffectiveQuery(c.searchQuery, c.store.Ingredients())
}

// --- Recipes ---

// Recipes returns the last successfully fetched recipe collection.
func (c *Coordinator) Recipes() []recipe.Recipe {
	return c.store.Recipes()
}

// RecipesState returns the state of the recipe fetch machine.
func (c *Coordinator) RecipesState() FetchState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Discover scores the cached recipes against the pantry.
func (c *Coordinator) Discover(opts matching.Options) []matching.Scored {
	return matching.Rank(c.store.Ingredients(), c.store.Recipes(), opts)
}

// Refresh starts a fetch for the effective query, superseding any pending one.
func (c *Coordinator) Refresh() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.startFetchLocked(EffectiveQuery(c.searchQuery, c.store.Ingredients()))
}

// Wait blocks until the latest fetch has been applied. Fetches started while
// waiting are waited for too.
func (c *Coordinator) Wait(ctx context.Context) error {
	for {
		c.mu.Lock()
		done, gen := c.fetchDone, c.generation
		c.mu.Unlock()

		if done == nil {
			return nil
		}
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}

		c.mu.Lock()
		same := gen == c.generation
		c.mu.Unlock()
		if same {
			return nil
		}
	}
}

// queryChangedLocked refetches when the effective query moved away from the
// one of the latest fetch. Nothing is fetched before the machine has started.
func (c *Coordinator) queryChangedLocked() {
	if c.state.Status == StatusIdle {
		return
	}
	q := EffectiveQuery(c.searchQuery, c.store.Ingredients())
	if q == c.state.Query {
		return
	}
	c.startFetchLocked(q)
}

func (c *Coordinator) startFetchLocked(query string) {
	if c.cancelFetch != nil {
		c.cancelFetch()
	}
	c.generation++
	gen := c.generation

	ctx, cancel := context.WithCancel(c.ctx)
	done := make(chan struct{})
	c.cancelFetch = cancel
	c.fetchDone = done
	c.state = FetchState{Status: StatusLoading, Query: query}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer close(done)
		defer cancel()

		start := c.now()
		recipes, attempts, err := c.feed.Fetch(ctx, query)
		c.finishFetch(ctx, gen, query, recipes, attempts, err, c.now().Sub(start))
	}()
}

func (c *Coordinator) finishFetch(ctx context.Context, gen uint64, query string, recipes []recipe.Recipe, attempts int, err error, latency time.Duration) {
	m := metrics.ExecutionMetric{
		Operation: OpFetchRecipes,
		Detail:    query,
		Attempts:  attempts,
		LatencyMS: latency.Milliseconds(),
	}

	c.mu.Lock()
	if gen != c.generation || ctx.Err() != nil {
		c.mu.Unlock()
		c.logger.Debug("discarding superseded recipe fetch", zap.String("query", query))
		m.Outcome = metrics.OutcomeSuperseded
		c.record(m)
		return
	}

	if err == nil {
		_, err = c.store.UpdateRecipes(ctx, func([]recipe.Recipe) []recipe.Recipe { return recipes })
	}
	c.state = FetchState{
		Status:    StatusReady,
		Query:     query,
		Err:       err,
		Attempts:  attempts,
		UpdatedAt: c.now(),
	}
	c.mu.Unlock()

	if err != nil {
		c.logger.Warn("recipe fetch failed",
			zap.String("query", query),
			zap.Int("attempts", attempts),
			zap.String("kind", string(recipeapi.KindOf(err))),
			zap.Error(err),
		)
		m.Outcome = metrics.OutcomeError
	} else {
		c.logger.Info("recipes fetched",
			zap.String("query", query),
			zap.Int("count", len(recipes)),
			zap.Int("attempts", attempts),
		)
		m.Outcome = metrics.OutcomeSuccess
	}
	c.record(m)
}

// LookupRecipe fetches one recipe by id. Clipped recipes are served from the
// selection since the backend does not know them.
func (c *Coordinator) LookupRecipe(ctx context.Context, id string) (RecipeLookup, error) {
	if strings.HasPrefix(id, clipper.IDPrefix) {
		if r, ok := recipe.FindByID(c.store.SelectedRecipes(), id); ok {
			return RecipeLookup{Recipe: &r}, nil
		}
		return RecipeLookup{NotFound: true}, nil
	}

	r, err := c.client.GetRecipe(ctx, id)
	if err != nil {
		if recipeapi.IsNotFound(err) {
			return RecipeLookup{NotFound: true}, nil
		}
		return RecipeLookup{}, err
	}
	return RecipeLookup{Recipe: r}, nil
}

// --- Health ---

// CheckHealth probes the backend and updates the health flag. Failures are
// logged and never returned.
func (c *Coordinator) CheckHealth(ctx context.Context) bool {
	h, err := c.client.HealthCheck(ctx)
	healthy := err == nil && h.Healthy()
	if !healthy {
		fields := []zap.Field{}
		if err != nil {
			fields = append(fields, zap.Error(err))
		} else {
			fields = append(fields, zap.String("status", h.Status))
		}
		c.logger.Warn("recipe backend degraded", fields...)
	}

	c.mu.Lock()
	c.apiHealthy = healthy
	c.mu.Unlock()
	return healthy
}

// APIHealthy reports the result of the last health probe.
func (c *Coordinator) APIHealthy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.apiHealthy
}

// --- Metrics ---

func (c *Coordinator) record(m metrics.ExecutionMetric) {
	if c.recorder == nil {
		return
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = c.now()
	}
	if err := c.recorder.Record(m); err != nil {
		c.logger.Warn("failed to record metric", zap.String("operation", m.Operation), zap.Error(err))
	}
}

func (c *Coordinator) recordMeta(meta llm.AgentMeta, outcome string) {
	c.record(metrics.MapUsage(meta.AgentName, meta.Usage, meta.Latency, outcome))
}
