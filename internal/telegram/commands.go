package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"recipe-planner/internal/app"
	"recipe-planner/internal/matching"
	"recipe-planner/internal/metrics"
	"recipe-planner/internal/pantry"
	"recipe-planner/internal/planner"
	"recipe-planner/internal/recipe"
	"recipe-planner/internal/recipeapi"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const (
	callbackSelect = "sel"
	callbackAssign = "asg"
)

func selectData(id string) string {
	return callbackSelect + ":" + id
}

func assignData(day planner.Day, slot planner.Slot, id string) string {
	return fmt.Sprintf("%s:%s:%s:%s", callbackAssign, string(day)[:3], slot, id)
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) reply {
	if !msg.IsCommand() {
		text := strings.TrimSpace(msg.Text)
		if strings.HasPrefix(text, "http://") || strings.HasPrefix(text, "https://") {
			return b.cmdClip(ctx, text)
		}
		return reply{text: "Send /help to see what I can do."}
	}

	args := strings.TrimSpace(msg.CommandArguments())
	b.logger.Debug("command received", zap.String("command", msg.Command()), zap.String("args", args))

	switch msg.Command() {
	case "start", "help":
		return reply{text: helpText}
	case "pantry":
		return reply{text: formatPantry(b.coord.Ingredients(), b.now())}
	case "add":
		return b.cmdAdd(ctx, args)
	case "use":
		return b.cmdUse(ctx, args)
	case "remove":
		return b.cmdRemove(ctx, args)
	case "search":
		return b.cmdSearch(args)
	case "recipes":
		return b.cmdRecipes(args)
	case "recipe":
		return b.cmdRecipe(ctx, args)
	case "select":
		return b.cmdSelect(ctx, args)
	case "unselect":
		return b.cmdUnselect(ctx, args)
	case "todo":
		selected := b.coord.SelectedRecipes()
		return reply{text: formatTodo(selected, b.coord.Ingredients()), keyboard: planKeyboard(selected)}
	case "plan":
		return reply{text: formatPlan(b.coord.WeeklyPlan())}
	case "assign":
		return b.cmdAssign(ctx, args)
	case "clear":
		return b.cmdClear(ctx, args)
	case "autoplan":
		return b.cmdAutoPlan(ctx)
	case "refresh":
		return b.cmdRefresh(ctx)
	case "status":
		return b.cmdStatus()
	case "clip":
		return b.cmdClip(ctx, args)
	default:
		return reply{text: fmt.Sprintf("Unknown command /%s. Send /help.", esc(msg.Command()))}
	}
}

func errorReply(action string, err error) reply {
	safeErr := strings.ReplaceAll(err.Error(), "`", "'")
	return reply{text: fmt.Sprintf("❌ *Error %s:*\n```\n%s\n```", action, safeErr)}
}

// parseAdd reads "<name...> <qty> <unit> <YYYY-MM-DD>".
func parseAdd(args string) (pantry.NewIngredient, error) {
	fields := strings.Fields(args)
	if len(fields) < 4 {
		return pantry.NewIngredient{}, errors.New("usage: /add <name> <qty> <unit> <YYYY-MM-DD>")
	}
	n := len(fields)

	qty, err := parseQuantity(fields[n-3])
	if err != nil {
		return pantry.NewIngredient{}, err
	}
	unit, err := pantry.ParseUnit(fields[n-2])
	if err != nil {
		return pantry.NewIngredient{}, err
	}
	expires, err := time.Parse("2006-01-02", fields[n-1])
	if err != nil {
		return pantry.NewIngredient{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", fields[n-1])
	}

	return pantry.NewIngredient{
		Name:           strings.Join(fields[:n-3], " "),
		Quantity:       qty,
		Unit:           unit,
		ExpirationDate: expires,
	}, nil
}

func parseQuantity(s string) (float64, error) {
	q, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid quantity %q", s)
	}
	return q, nil
}

func (b *Bot) cmdAdd(ctx context.Context, args string) reply {
	n, err := parseAdd(args)
	if err != nil {
		return reply{text: esc(err.Error())}
	}
	ing, err := b.coord.AddIngredient(ctx, n)
	if err != nil {
		return errorReply("adding ingredient", err)
	}
	return reply{text: fmt.Sprintf("✅ Added *%s* (%s %s), id `%s`", esc(ing.Name), formatQuantity(ing.Quantity), ing.Unit, ing.ID)}
}

func (b *Bot) cmdUse(ctx context.Context, args string) reply {
	fields := strings.Fields(args)
	if len(fields) != 2 {
		return reply{text: "Usage: /use <id> <qty>"}
	}
	qty, err := parseQuantity(fields[1])
	if err != nil {
		return reply{text: esc(err.Error())}
	}
	ing, ok, err := b.coord.UpdateIngredient(ctx, fields[0], pantry.Patch{Quantity: &qty})
	if err != nil {
		return errorReply("updating ingredient", err)
	}
	if !ok {
		return reply{text: fmt.Sprintf("No ingredient with id `%s`.", fields[0])}
	}
	return reply{text: fmt.Sprintf("✅ *%s* now at %s %s", esc(ing.Name), formatQuantity(ing.Quantity), ing.Unit)}
}

func (b *Bot) cmdRemove(ctx context.Context, args string) reply {
	if args == "" {
		return reply{text: "Usage: /remove <id>"}
	}
	ok, err := b.coord.RemoveIngredient(ctx, args)
	if err != nil {
		return errorReply("removing ingredient", err)
	}
	if !ok {
		return reply{text: fmt.Sprintf("No ingredient with id `%s`.", args)}
	}
	return reply{text: "🗑 Ingredient removed."}
}

func (b *Bot) cmdSearch(args string) reply {
	b.coord.SetSearchQuery(args)
	q := b.coord.EffectiveQuery()
	switch {
	case args != "":
		return reply{text: fmt.Sprintf("🔎 Searching for \"%s\". See /recipes.", esc(q))}
	case q != "":
		return reply{text: fmt.Sprintf("Search cleared, using your pantry: \"%s\". See /recipes.", esc(q))}
	default:
		return reply{text: "Search cleared, listing all recipes. See /recipes."}
	}
}

func (b *Bot) cmdRecipes(args string) reply {
	var cat matching.Category
	if args != "" {
		c, err := matching.ParseCategory(args)
		if err != nil {
			names := make([]string, 0, len(matching.AllCategories()))
			for _, c := range matching.AllCategories() {
				names = append(names, string(c))
			}
			return reply{text: fmt.Sprintf("Unknown category. Try one of: %s", strings.Join(names, ", "))}
		}
		cat = c
	}

	scored := b.coord.Discover(matching.Options{Category: cat, TieBreakByName: true})
	text := formatRecipeList(scored, b.coord.RecipesState(), b.coord.APIHealthy(), cat)

	recipes := make([]recipe.Recipe, len(scored))
	for i, s := range scored {
		recipes[i] = s.Recipe
	}
	return reply{text: text, keyboard: selectKeyboard(recipes)}
}

// findRecipe resolves an id against the selection, the cache and finally
// the backend.
func (b *Bot) findRecipe(ctx context.Context, id string) (recipe.Recipe, bool, error) {
	if r, ok := recipe.FindByID(b.coord.SelectedRecipes(), id); ok {
		return r, true, nil
	}
	if r, ok := recipe.FindByID(b.coord.Recipes(), id); ok {
		return r, true, nil
	}
	res, err := b.coord.LookupRecipe(ctx, id)
	if err != nil {
		return recipe.Recipe{}, false, err
	}
	if res.NotFound {
		return recipe.Recipe{}, false, nil
	}
	return *res.Recipe, true, nil
}

func notFoundReply(id string) reply {
	return reply{text: fmt.Sprintf("🤷 Recipe `%s` not found.", id), notice: "Recipe not found"}
}

func lookupErrorReply(err error) reply {
	return reply{text: fmt.Sprintf("❌ %s\nTry again later.", esc(recipeapi.Message(err))), notice: "Lookup failed"}
}

func (b *Bot) cmdRecipe(ctx context.Context, id string) reply {
	if id == "" {
		return reply{text: "Usage: /recipe <id>"}
	}
	res, err := b.coord.LookupRecipe(ctx, id)
	if err != nil {
		return lookupErrorReply(err)
	}
	if res.NotFound {
		return notFoundReply(id)
	}
	return reply{
		text:     formatRecipe(*res.Recipe, b.coord.Ingredients()),
		keyboard: selectKeyboard([]recipe.Recipe{*res.Recipe}),
	}
}

func (b *Bot) cmdSelect(ctx context.Context, id string) reply {
	if id == "" {
		return reply{text: "Usage: /select <id>"}
	}
	r, ok, err := b.findRecipe(ctx, id)
	if err != nil {
		return lookupErrorReply(err)
	}
	if !ok {
		return notFoundReply(id)
	}
	added, err := b.coord.SelectRecipe(ctx, r)
	if err != nil {
		return errorReply("selecting recipe", err)
	}

	text := fmt.Sprintf("📝 *%s* is already on your list.", esc(r.Name))
	notice := "Already selected"
	if added {
		text = fmt.Sprintf("📝 Added *%s* to your list.", esc(r.Name))
		notice = "Added"
	}
	if kb := assignKeyboard(b.coord.WeeklyPlan(), r.ID); kb != nil {
		text += "\nPick a slot to plan it:"
		return reply{text: text, keyboard: kb, notice: notice}
	}
	return reply{text: text, notice: notice}
}

func (b *Bot) cmdUnselect(ctx context.Context, id string) reply {
	if id == "" {
		return reply{text: "Usage: /unselect <id>"}
	}
	ok, err := b.coord.DeselectRecipe(ctx, id)
	if err != nil {
		return errorReply("removing recipe", err)
	}
	if !ok {
		return reply{text: fmt.Sprintf("Recipe `%s` is not on your list.", id)}
	}
	return reply{text: "🗑 Removed from your list."}
}

func parseDaySlot(day, slot string) (planner.Day, planner.Slot, error) {
	d, err := planner.ParseDay(day)
	if err != nil {
		return "", "", err
	}
	s, err := planner.ParseSlot(slot)
	if err != nil {
		return "", "", err
	}
	return d, s, nil
}

func (b *Bot) assign(ctx context.Context, day planner.Day, slot planner.Slot, id string) reply {
	r, ok, err := b.findRecipe(ctx, id)
	if err != nil {
		return lookupErrorReply(err)
	}
	if !ok {
		return notFoundReply(id)
	}
	if err := b.coord.AssignRecipe(ctx, r, day, slot); err != nil {
		return errorReply("updating plan", err)
	}
	return reply{
		text:   fmt.Sprintf("📅 *%s* planned for %s %s.", esc(r.Name), day.Title(), slot),
		notice: "Planned",
	}
}

func (b *Bot) cmdAssign(ctx context.Context, args string) reply {
	fields := strings.Fields(args)
	if len(fields) != 3 {
		return reply{text: "Usage: /assign <day> <lunch|dinner> <id>"}
	}
	day, slot, err := parseDaySlot(fields[0], fields[1])
	if err != nil {
		return reply{text: esc(err.Error())}
	}
	return b.assign(ctx, day, slot, fields[2])
}

func (b *Bot) cmdClear(ctx context.Context, args string) reply {
	fields := strings.Fields(args)
	if len(fields) != 2 {
		return reply{text: "Usage: /clear <day> <lunch|dinner>"}
	}
	day, slot, err := parseDaySlot(fields[0], fields[1])
	if err != nil {
		return reply{text: esc(err.Error())}
	}
	if err := b.coord.ClearSlot(ctx, day, slot); err != nil {
		return errorReply("updating plan", err)
	}
	return reply{text: fmt.Sprintf("🧹 %s %s is free.", day.Title(), slot)}
}

func (b *Bot) cmdAutoPlan(ctx context.Context) reply {
	applied, err := b.coord.AutoPlan(ctx)
	if errors.Is(err, app.ErrSuggestionsDisabled) {
		return reply{text: "Plan suggestions are not configured. Set LLM\\_PROVIDER to enable them."}
	}
	if err != nil {
		return errorReply("suggesting plan", err)
	}
	if len(applied) == 0 {
		return reply{text: "🤔 No suggestions for the free slots. Select more recipes with /select."}
	}
	return reply{text: fmt.Sprintf("🧑‍🍳 Planned %d meals.\n\n%s", len(applied), formatPlan(b.coord.WeeklyPlan()))}
}

func (b *Bot) cmdRefresh(ctx context.Context) reply {
	b.coord.Refresh()
	b.coord.CheckHealth(ctx)
	if err := b.coord.Wait(ctx); err != nil {
		return reply{text: "⏳ Still loading recipes. Check /recipes in a moment."}
	}
	return b.cmdRecipes("")
}

func (b *Bot) cmdStatus() reply {
	var usage []metrics.DailyUsage
	if b.metrics != nil {
		var err error
		usage, err = b.metrics.GetDailyUsage(7)
		if err != nil {
			b.logger.Warn("failed to read metrics", zap.Error(err))
			usage = nil
		} else if usage == nil {
			usage = []metrics.DailyUsage{}
		}
	}
	return reply{text: formatStatus(b.coord.APIHealthy(), b.coord.RecipesState(), usage, metrics.GetSysHealth(b.cfg.DataDir))}
}

func (b *Bot) cmdClip(ctx context.Context, url string) reply {
	if url == "" {
		return reply{text: "Usage: /clip <url>"}
	}
	r, err := b.coord.ClipRecipe(ctx, url)
	if errors.Is(err, app.ErrClippingDisabled) {
		return reply{text: "Recipe clipping is not configured."}
	}
	if err != nil {
		b.logger.Warn("error clipping recipe", zap.String("url", url), zap.Error(err))
		return errorReply("clipping recipe", err)
	}
	text := fmt.Sprintf("✂️ *Recipe saved!*\n\n*Title:* %s\n*Id:* `%s`", esc(r.Name), r.ID)
	return reply{text: text, keyboard: assignKeyboard(b.coord.WeeklyPlan(), r.ID)}
}

// planKeyboard offers a plan button per selected recipe.
func planKeyboard(selected []recipe.Recipe) *tgbotapi.InlineKeyboardMarkup {
	if len(selected) == 0 {
		return nil
	}
	var rows [][]tgbotapi.InlineKeyboardButton
	for i, r := range selected {
		if i == maxListed {
			break
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📅 "+truncate(r.Name, 40), selectData(r.ID)),
		))
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &kb
}

// handleCallback runs the select-then-assign flow driven by inline buttons.
func (b *Bot) handleCallback(ctx context.Context, data string) reply {
	kind, rest, _ := strings.Cut(data, ":")
	switch kind {
	case callbackSelect:
		if rest == "" {
			break
		}
		return b.cmdSelect(ctx, rest)
	case callbackAssign:
		parts := strings.SplitN(rest, ":", 3)
		if len(parts) != 3 {
			break
		}
		day, slot, err := parseDaySlot(parts[0], parts[1])
		if err != nil {
			break
		}
		return b.assign(ctx, day, slot, parts[2])
	}
	b.logger.Warn("unknown callback data", zap.String("data", data))
	return reply{notice: "Unknown action"}
}
