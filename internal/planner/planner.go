// Package planner models the weekly meal board: one entry per day with an
// optional lunch and dinner recipe.
package planner

import (
	"fmt"
	"strings"

	"recipe-planner/internal/recipe"
)

// Day is a day of the week as stored in the plan.
type Day string

const (
	Monday    Day = "monday"
	Tuesday   Day = "tuesday"
	Wednesday Day = "wednesday"
	Thursday  Day = "thursday"
	Friday    Day = "friday"
	Saturday  Day = "saturday"
	Sunday    Day = "sunday"
)

// Days returns the week in order, Monday first.
func Days() []Day {
	return []Day{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}
}

// ParseDay accepts full or three-letter English day names, any case.
func ParseDay(s string) (Day, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	for _, d := range Days() {
		if v == string(d) || (len(v) == 3 && strings.HasPrefix(string(d), v)) {
			return d, nil
		}
	}
	return "", fmt.Errorf("unknown day %q", s)
}

// Title returns the capitalized day name.
func (d Day) Title() string {
	if d == "" {
		return ""
	}
	return strings.ToUpper(string(d[:1])) + string(d[1:])
}

// Slot is a meal of the day.
type Slot string

const (
	Lunch  Slot = "lunch"
	Dinner Slot = "dinner"
)

// ParseSlot accepts "lunch" or "dinner", any case.
func ParseSlot(s string) (Slot, error) {
	switch v := Slot(strings.ToLower(strings.TrimSpace(s))); v {
	case Lunch, Dinner:
		return v, nil
	default:
		return "", fmt.Errorf("unknown meal slot %q", s)
	}
}

// Entry is the plan for one day. A day appears at most once in a plan.
type Entry struct {
	ID     string         `json:"id"`
	Day    Day            `json:"day"`
	Lunch  *recipe.Recipe `json:"lunch,omitempty"`
	Dinner *recipe.Recipe `json:"dinner,omitempty"`
}

// Get returns the recipe in a slot, or nil.
func (e Entry) Get(s Slot) *recipe.Recipe {
	if s == Lunch {
		return e.Lunch
	}
	return e.Dinner
}

// Empty reports whether both slots are free.
func (e Entry) Empty() bool {
	return e.Lunch == nil && e.Dinner == nil
}

// Update describes an upsert for one day. Nil slots keep their current value.
type Update struct {
	Day    Day
	Lunch  *recipe.Recipe
	Dinner *recipe.Recipe
}

// Assign builds the update placing a recipe in one slot.
func Assign(day Day, slot Slot, r recipe.Recipe) Update {
	u := Update{Day: day}
	if slot == Lunch {
		u.Lunch = &r
	} else {
		u.Dinner = &r
	}
	return u
}

// Find returns the entry for a day.
func Find(plan []Entry, day Day) (Entry, bool) {
	for _, e := range plan {
		if e.Day == day {
			return e, true
		}
	}
	return Entry{}, false
}

// Upsert returns a new plan with the update applied. An existing entry for
// the day is replaced in place and keeps its id; otherwise a new entry with
// newID() is appended. The input slice is not modified.
func Upsert(plan []Entry, u Update, newID func() string) []Entry {
	out := make([]Entry, len(plan), len(plan)+1)
	copy(out, plan)

	for i, e := range out {
		if e.Day != u.Day {
			continue
		}
		if u.Lunch != nil {
			e.Lunch = u.Lunch
		}
		if u.Dinner != nil {
			e.Dinner = u.Dinner
		}
		out[i] = e
		return out
	}

	return append(out, Entry{ID: newID(), Day: u.Day, Lunch: u.Lunch, Dinner: u.Dinner})
}

// ClearSlot returns a new plan with one slot emptied. An entry whose slots
// are both empty stays in the plan.
func ClearSlot(plan []Entry, day Day, slot Slot) []Entry {
	out := make([]Entry, len(plan))
	copy(out, plan)
	for i, e := range out {
		if e.Day != day {
			continue
		}
		if slot == Lunch {
			e.Lunch = nil
		} else {
			e.Dinner = nil
		}
		out[i] = e
	}
	return out
}

// Sorted returns a copy of the plan in week order.
func Sorted(plan []Entry) []Entry {
	out := make([]Entry, 0, len(plan))
	for _, d := range Days() {
		if e, ok := Find(plan, d); ok {
			out = append(out, e)
		}
	}
	return out
}

// TotalMeals counts the filled slots.
func TotalMeals(plan []Entry) int {
	n := 0
	for _, e := range plan {
		if e.Lunch != nil {
			n++
		}
		if e.Dinner != nil {
			n++
		}
	}
	return n
}

// TotalPrepTime sums the prep time of every planned meal, in minutes.
func TotalPrepTime(plan []Entry) int {
	total := 0
	for _, e := range plan {
		if e.Lunch != nil {
			total += e.Lunch.PrepTime
		}
		if e.Dinner != nil {
			total += e.Dinner.PrepTime
		}
	}
	return total
}

// SlotRef names one meal of the week.
type SlotRef struct {
	Day  Day  `json:"day"`
	Slot Slot `json:"slot"`
}

// FreeSlots lists the unassigned meals of the week in order.
func FreeSlots(plan []Entry) []SlotRef {
	var out []SlotRef
	for _, d := range Days() {
		e, _ := Find(plan, d)
		for _, s := range []Slot{Lunch, Dinner} {
			if e.Get(s) == nil {
				out = append(out, SlotRef{Day: d, Slot: s})
			}
		}
	}
	return out
}
