package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"recipe-planner/internal/app"
	"recipe-planner/internal/config"
	"recipe-planner/internal/logger"
	"recipe-planner/internal/matching"
	"recipe-planner/internal/pantry"
	"recipe-planner/internal/planner"
	"recipe-planner/internal/recipeapi"

	flag "github.com/spf13/pflag"
	"go.uber.org/zap"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.NewFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log, os.Args[1], os.Args[2:]); err != nil {
		log.Error("command failed", zap.String("command", os.Args[1]), zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger, cmd string, args []string) error {
	switch cmd {
	case "help", "-h", "--help":
		printUsage()
		return nil
	case "health":
		return runHealth(ctx, cfg)
	}

	rt, err := app.NewRuntime(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer rt.Close()

	switch cmd {
	case "recipes":
		return runRecipes(ctx, rt.Coordinator, args)
	case "pantry":
		printPantry(rt.Coordinator.Ingredients(), time.Now())
		return nil
	case "plan":
		printPlan(rt.Coordinator.WeeklyPlan())
		return nil
	case "todo":
		for _, r := range rt.Coordinator.SelectedRecipes() {
			fmt.Printf("%-8s %-40s %3d%%  %d min\n", r.ID, r.Name,
				matching.MatchPercentage(rt.Coordinator.Ingredients(), r), r.TotalTime())
		}
		return nil
	case "metrics-cleanup":
		cleanupCmd := flag.NewFlagSet("metrics-cleanup", flag.ExitOnError)
		days := cleanupCmd.Int("days", 30, "Keep records for the last N days")
		cleanupCmd.Parse(args)

		if rt.Metrics == nil {
			return fmt.Errorf("metrics require the %s store driver", config.DriverSQLite)
		}
		affected, err := rt.Metrics.Cleanup(*days)
		if err != nil {
			return fmt.Errorf("cleanup failed: %w", err)
		}
		fmt.Printf("Successfully removed %d old metric records.\n", affected)
		return nil
	default:
		printUsage()
		return fmt.Errorf("unknown command: %s", cmd)
	}
}

func runHealth(ctx context.Context, cfg *config.Config) error {
	client := recipeapi.NewClient(cfg)
	h, err := client.HealthCheck(ctx)
	if err != nil {
		fmt.Printf("degraded: %s\n", recipeapi.Message(err))
		return err
	}
	fmt.Printf("%s (%s at %s)\n", h.Status, h.Service, h.Timestamp)
	if !h.Healthy() {
		return fmt.Errorf("recipe backend reports %q", h.Status)
	}
	return nil
}

func runRecipes(ctx context.Context, coord *app.Coordinator, args []string) error {
	fs := flag.NewFlagSet("recipes", flag.ExitOnError)
	minMatch := fs.Int("min-match", 0, "Only show recipes matching at least this percentage")
	category := fs.String("category", "", "Only show recipes in this category")
	limit := fs.Int("limit", 20, "Maximum number of recipes to show")
	fs.Parse(args)

	opts := matching.Options{MinMatch: *minMatch, Limit: *limit, TieBreakByName: true}
	if *category != "" {
		c, err := matching.ParseCategory(*category)
		if err != nil {
			return err
		}
		opts.Category = c
	}

	coord.SetSearchQuery(strings.Join(fs.Args(), " "))
	coord.Refresh()
	if err := coord.Wait(ctx); err != nil {
		return err
	}

	st := coord.RecipesState()
	if st.Err != nil {
		return fmt.Errorf("failed to fetch recipes after %d attempts: %w", st.Attempts, st.Err)
	}

	scored := coord.Discover(opts)
	if len(scored) == 0 {
		fmt.Println("No recipes match. Try other search words or add ingredients to your pantry.")
		return nil
	}
	if st.Query != "" {
		fmt.Printf("Results for %q\n\n", st.Query)
	}
	for _, s := range scored {
		fmt.Printf("%-8s %-40s %3d%%  %d min  %s\n", s.ID, s.Name, s.MatchPercentage, s.TotalTime(), s.Difficulty)
	}
	return nil
}

func printPantry(items []pantry.Ingredient, now time.Time) {
	for _, it := range pantry.SortByExpiration(items) {
		fmt.Printf("%-8s %-24s %8.2f %-6s %s (%s)\n", it.ID, it.Name, it.Quantity, it.Unit,
			it.ExpirationDate.Format("2006-01-02"), it.Status(now))
	}
}

func printPlan(plan []planner.Entry) {
	for _, e := range planner.Sorted(plan) {
		fmt.Printf("%-10s lunch: %-30s dinner: %s\n", e.Day.Title(), recipeName(e, planner.Lunch), recipeName(e, planner.Dinner))
	}
	fmt.Printf("\n%d meals, %d min prep\n", planner.TotalMeals(plan), planner.TotalPrepTime(plan))
}

func recipeName(e planner.Entry, s planner.Slot) string {
	if r := e.Get(s); r != nil {
		return r.Name
	}
	return "-"
}

func printUsage() {
	fmt.Println("Usage: recipe-planner <command> [arguments]")
	fmt.Println("\nCommands:")
	fmt.Println("  health             Check the recipe backend")
	fmt.Println("  recipes [query]    Fetch and rank recipes (--min-match, --category, --limit)")
	fmt.Println("  pantry             List pantry ingredients by expiration")
	fmt.Println("  plan               Show the weekly plan")
	fmt.Println("  todo               Show the recipes selected to cook")
	fmt.Println("  metrics-cleanup    Remove old metric records (--days)")
}
