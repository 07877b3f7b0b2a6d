package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"recipe-planner/internal/clipper"
	"recipe-planner/internal/config"
	"recipe-planner/internal/database"
	"recipe-planner/internal/llm"
	"recipe-planner/internal/metrics"
	"recipe-planner/internal/pantry"
	"recipe-planner/internal/planner"
	"recipe-planner/internal/recipeapi"
	"recipe-planner/internal/storage"

	"go.uber.org/zap"
)

// Runtime holds the application's dependencies, built from configuration.
type Runtime struct {
	Config      *config.Config
	Logger      *zap.Logger
	Client      recipeapi.Client
	Coordinator *Coordinator
	// Metrics is nil when the file store driver is used.
	Metrics *metrics.Store

	closers []func() error
}

// NewRuntime opens storage, builds the backend and model clients, and
// assembles the coordinator. The coordinator is not started.
func NewRuntime(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Runtime, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	rt := &Runtime{Config: cfg, Logger: logger}

	// 1. Storage
	var backend storage.Backend
	switch cfg.StoreDriver {
	case config.DriverFile:
		fb, err := storage.NewFileBackend(cfg.DataDir)
		if err != nil {
			return nil, err
		}
		backend = fb
	default:
		db, err := database.NewDB(cfg.DatabasePath, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		rt.closers = append(rt.closers, db.Close)
		backend = database.NewCollectionRepository(db.SQL)
		rt.Metrics = metrics.NewStore(db.SQL)
	}

	var opts []storage.Option
	if cfg.SeedPantry {
		opts = append(opts, storage.WithSeedIngredients(func() []pantry.Ingredient {
			return pantry.DefaultIngredients(time.Now())
		}))
	}
	store, err := storage.Open(ctx, backend, opts...)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	// 2. Recipe backend
	rt.Client = recipeapi.NewClient(cfg)

	// 3. Optional model
	textGen, err := newTextGenerator(ctx, cfg)
	if err != nil {
		rt.Close()
		return nil, err
	}
	if c, ok := textGen.(llm.Closer); ok {
		rt.closers = append(rt.closers, c.Close)
	}

	coordOpts := Options{
		Logger:  logger,
		Feed:    NewRecipeFeed(rt.Client, cfg.RecipeFetchLimit, WithFeedLogger(logger)),
		Clipper: clipper.NewClipper(textGen),
	}
	if textGen != nil {
		coordOpts.Suggester = planner.NewSuggester(textGen)
	}
	if rt.Metrics != nil {
		coordOpts.Metrics = rt.Metrics
	}
	rt.Coordinator = NewCoordinator(store, rt.Client, coordOpts)

	logger.Info("runtime ready",
		zap.String("store", cfg.StoreDriver),
		zap.String("recipe_api", cfg.RecipeAPIURL),
		zap.String("llm", cfg.LLMProvider),
	)
	return rt, nil
}

func newTextGenerator(ctx context.Context, cfg *config.Config) (llm.TextGenerator, error) {
	switch cfg.LLMProvider {
	case config.ProviderGemini:
		c, err := llm.NewGeminiClient(ctx, cfg.GeminiAPIKey)
		if err != nil {
			return nil, err
		}
		return c, nil
	case config.ProviderGroq:
		return llm.NewGroqClient(cfg.GroqAPIKey), nil
	default:
		return nil, nil
	}
}

// Close stops the coordinator and releases every resource, in reverse order
// of acquisition.
func (rt *Runtime) Close() error {
	if rt.Coordinator != nil {
		rt.Coordinator.Close()
	}
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	rt.closers = nil
	return errors.Join(errs...)
}
