package telegram

import (
	"fmt"
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
)

// maxListed bounds the recipes listed in one message.
const maxListed = 10

const helpText = `🍳 *Recipe Planner*

*Pantry*
/pantry - list ingredients by expiration
/add <name> <qty> <unit> <YYYY-MM-DD> - add an ingredient
/use <id> <qty> - set the remaining quantity
/remove <id> - delete an ingredient

*Recipes*
/search <words> - search recipes (empty clears)
/recipes [category] - best matches for your pantry
/recipe <id> - recipe details
/clip <url> - import a recipe from a web page
/refresh - reload recipes

*To cook & plan*
/select <id>, /unselect <id>, /todo
/plan, /assign <day> <lunch|dinner> <id>, /clear <day> <lunch|dinner>
/autoplan - fill free slots
/status - service status`

func esc(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, s)
}

func formatQuantity(q float64) string {
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.2f", q), "0"), ".")
}

func statusIcon(s pantry.ExpirationStatus) string {
	switch s {
	case pantry.StatusExpired:
		return "⛔"
	case pantry.StatusCritical:
		return "🔴"
	case pantry.StatusWarning:
		return "🟠"
	default:
		return "🟢"
	}
}

func formatDaysLeft(days int) string {
	switch {
	case days < 0:
		return fmt.Sprintf("expired %dd ago", -days)
	case days == 0:
		return "expires today"
	case days == 1:
		return "1 day left"
	default:
		return fmt.Sprintf("%d days left", days)
	}
}

// formatPantry lists the pantry soonest-expiring first.
func formatPantry(items []pantry.Ingredient, now time.Time) string {
	if len(items) == 0 {
		return "🧺 Your pantry is empty. Add something with /add."
	}

	var sb strings.Builder
	sb.WriteString("🧺 *Pantry*\n\n")
	for _, it := range pantry.SortByExpiration(items) {
		sb.WriteString(fmt.Sprintf("%s `%s` *%s*: %s %s (%s)\n",
			statusIcon(it.Status(now)), it.ID, esc(it.Name),
			formatQuantity(it.Quantity), it.Unit, formatDaysLeft(it.DaysUntilExpiration(now))))
	}

	soon := pantry.ExpiringSoon(items, now)
	expired := pantry.Expired(items, now)
	sb.WriteString(fmt.Sprintf("\n%d items, %d expiring this week, %d expired", len(items), len(soon), len(expired)))
	return sb.String()
}

// formatFetchBanner describes the fetch machine when it is not simply ready.
func formatFetchBanner(st app.FetchState, healthy bool) string {
	var sb strings.Builder
	if !healthy {
		sb.WriteString("⚠️ _Recipe service degraded, results may be out of date._\n")
	}
	switch {
	case st.Status == app.StatusLoading:
		if st.Query == "" {
			sb.WriteString("⏳ Loading recipes...\n")
		} else {
			sb.WriteString(fmt.Sprintf("⏳ Searching recipes for \"%s\"...\n", esc(st.Query)))
		}
	case st.Err != nil:
		sb.WriteString(fmt.Sprintf("❌ %s\nUse /refresh to retry.\n", esc(recipeapi.Message(st.Err))))
	}
	return sb.String()
}

// formatRecipeList renders ranked recipes under the fetch banner. An empty
// ready result gets guidance rather than an error.
func formatRecipeList(scored []matching.Scored, st app.FetchState, healthy bool, category matching.Category) string {
	var sb strings.Builder
	sb.WriteString(formatFetchBanner(st, healthy))

	if st.Status == app.StatusIdle {
		sb.WriteString("Recipes are not loaded yet. Use /refresh.")
		return sb.String()
	}
	if len(scored) == 0 {
		if st.Status == app.StatusReady && st.Err == nil {
			sb.WriteString("🔍 No recipes match. Try /search with other words or add ingredients with /add.")
		}
		return strings.TrimSpace(sb.String())
	}

	title := "📖 *Recipes*"
	if category != "" {
		title = fmt.Sprintf("📖 *Recipes: %s*", category)
	}
	if st.Query != "" {
		title += fmt.Sprintf(" for \"%s\"", esc(st.Query))
	}
	sb.WriteString(title + "\n\n")

	for i, s := range scored {
		if i == maxListed {
			sb.WriteString(fmt.Sprintf("_...and %d more_\n", len(scored)-maxListed))
			break
		}
		sb.WriteString(fmt.Sprintf("%d. *%s* `%s` (%d%% match, %d min)\n",
			i+1, esc(s.Name), s.ID, s.MatchPercentage, s.TotalTime()))
	}
	return strings.TrimSpace(sb.String())
}

// formatRecipe renders one recipe with the ingredients missing from the pantry.
func formatRecipe(r recipe.Recipe, items []pantry.Ingredient) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🍽 *%s*\n", esc(r.Name)))
	if r.Description != "" {
		sb.WriteString(fmt.Sprintf("_%s_\n", esc(r.Description)))
	}

	meta := []string{fmt.Sprintf("⏱ %d min prep", r.PrepTime)}
	if r.CookingTime != nil {
		meta = append(meta, fmt.Sprintf("%d min cooking", *r.CookingTime))
	}
	if r.CoversCount != nil {
		meta = append(meta, fmt.Sprintf("%d servings", *r.CoversCount))
	}
	meta = append(meta, string(r.Difficulty))
	sb.WriteString(strings.Join(meta, " · ") + "\n")

	if cats := matching.Categories(r); len(cats) > 0 {
		names := make([]string, len(cats))
		for i, c := range cats {
			names[i] = string(c)
		}
		sb.WriteString("🏷 " + strings.Join(names, ", ") + "\n")
	}

	missing := matching.Missing(items, r)
	sb.WriteString(fmt.Sprintf("\n*Ingredients* (%d%% in pantry, %d missing)\n", matching.MatchPercentage(items, r), len(missing)))
	for _, ing := range r.Ingredients {
		mark := "✅"
		if !matching.IsAvailable(items, ing) {
			mark = "▫️"
		}
		sb.WriteString(fmt.Sprintf("%s %s\n", mark, esc(ing)))
	}

	if r.Instructions != "" {
		sb.WriteString("\n*Instructions*\n" + esc(r.Instructions) + "\n")
	}
	return strings.TrimSpace(sb.String())
}

// formatTodo renders the to-cook list with its totals.
func formatTodo(selected []recipe.Recipe, items []pantry.Ingredient) string {
	if len(selected) == 0 {
		return "📝 Nothing to cook yet. Pick recipes from /recipes."
	}

	var sb strings.Builder
	sb.WriteString("📝 *To cook*\n\n")
	total, ready := 0, 0
	for _, r := range selected {
		pct := matching.MatchPercentage(items, r)
		if pct == 100 {
			ready++
		}
		total += r.TotalTime()
		sb.WriteString(fmt.Sprintf("• *%s* `%s` (%d%% match, %d min)\n", esc(r.Name), r.ID, pct, r.TotalTime()))
	}
	sb.WriteString(fmt.Sprintf("\n%d recipes, %d ready to cook, %d min in total", len(selected), ready, total))
	return sb.String()
}

// formatPlan renders the week in order with its totals.
func formatPlan(plan []planner.Entry) string {
	var sb strings.Builder
	sb.WriteString("📅 *Weekly Plan*\n\n")
	for _, d := range planner.Days() {
		e, _ := planner.Find(plan, d)
		sb.WriteString(fmt.Sprintf("*%s*\n", d.Title()))
		for _, s := range []planner.Slot{planner.Lunch, planner.Dinner} {
			name := "_free_"
			if r := e.Get(s); r != nil {
				name = fmt.Sprintf("%s `%s`", esc(r.Name), r.ID)
			}
			sb.WriteString(fmt.Sprintf("  %s: %s\n", s, name))
		}
	}
	sb.WriteString(fmt.Sprintf("\n🍽 %d meals planned, ⏱ %d min prep in total", planner.TotalMeals(plan), planner.TotalPrepTime(plan)))
	return sb.String()
}

// formatStatus renders service health, fetch state, model usage and process
// health. usage is nil when metrics are not stored.
func formatStatus(healthy bool, st app.FetchState, usage []metrics.DailyUsage, health metrics.SysHealth) string {
	var sb strings.Builder
	sb.WriteString("📊 *Status*\n\n")

	if healthy {
		sb.WriteString("✅ Recipe service healthy\n")
	} else {
		sb.WriteString("⚠️ Recipe service degraded\n")
	}

	sb.WriteString(fmt.Sprintf("📖 Recipes: %s", st.Status))
	if st.Query != "" {
		sb.WriteString(fmt.Sprintf(" (query \"%s\")", esc(st.Query)))
	}
	if !st.UpdatedAt.IsZero() {
		sb.WriteString(fmt.Sprintf(", updated %s", st.UpdatedAt.Format("15:04:05")))
	}
	sb.WriteString("\n")
	if st.Err != nil {
		sb.WriteString(fmt.Sprintf("❌ Last error after %d attempts: %s\n", st.Attempts, esc(recipeapi.Message(st.Err))))
	}

	if usage != nil {
		sb.WriteString("\n🗓 *Recent activity*\n")
		if len(usage) == 0 {
			sb.WriteString("_No data yet_\n")
		}
		for _, d := range usage {
			sb.WriteString(fmt.Sprintf("• *%s*: %d tokens (%d execs, %d failed)\n",
				d.Date, d.TotalPrompt+d.TotalCompletion, d.TotalExecution, d.Failures))
		}
	}

	sb.WriteString("\n🧠 *System Health*\n")
	sb.WriteString(fmt.Sprintf("• RAM: %dMB (Alloc) / %dMB (Sys)\n", health.AllocMB, health.SysMB))
	sb.WriteString(fmt.Sprintf("• Goroutines: %d\n", health.Goroutines))
	sb.WriteString(fmt.Sprintf("• Uptime: %s\n", health.Uptime))
	sb.WriteString(fmt.Sprintf("• Disk Data: %s", health.DataDiskSize))
	return sb.String()
}

// selectKeyboard offers one select button per recipe.
func selectKeyboard(recipes []recipe.Recipe) *tgbotapi.InlineKeyboardMarkup {
	if len(recipes) == 0 {
		return nil
	}
	var rows [][]tgbotapi.InlineKeyboardButton
	for i, r := range recipes {
		if i == maxListed {
			break
		}
		label := "➕ " + truncate(r.Name, 40)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, selectData(r.ID)),
		))
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &kb
}

// assignKeyboard offers the free slots of the week for one recipe.
func assignKeyboard(plan []planner.Entry, recipeID string) *tgbotapi.InlineKeyboardMarkup {
	free := planner.FreeSlots(plan)
	if len(free) == 0 {
		return nil
	}
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for _, ref := range free {
		label := fmt.Sprintf("%s %s", string(ref.Day.Title()[:3]), ref.Slot)
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, assignData(ref.Day, ref.Slot, recipeID)))
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &kb
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
