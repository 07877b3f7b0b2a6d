package pantry

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)

func TestNewIngredientValidate(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		n := NewIngredient{Name: "  Tomates ", Quantity: 500, Unit: UnitGram, ExpirationDate: now}
		require.NoError(t, n.Validate())
		assert.Equal(t, "Tomates", n.Name)
	})

	t.Run("Invalid", func(t *testing.T) {
		n := NewIngredient{Name: " ", Quantity: 0, Unit: "cups"}
		err := n.Validate()
		require.Error(t, err)

		var ve *ValidationError
		require.True(t, errors.As(err, &ve))
		assert.Len(t, ve.Fields, 4)
		assert.Contains(t, err.Error(), "Name (required)")
		assert.Contains(t, err.Error(), "Quantity (gt)")
		assert.Contains(t, err.Error(), "Unit (oneof)")
		assert.Contains(t, err.Error(), "ExpirationDate (required)")
	})
}

func TestPatch(t *testing.T) {
	base := Ingredient{ID: "1", Name: "Tomates", Quantity: 500, Unit: UnitGram, ExpirationDate: now, AddedDate: now}

	t.Run("ApplyMergesOnlySetFields", func(t *testing.T) {
		qty := 250.0
		p := Patch{Quantity: &qty}
		require.NoError(t, p.Validate())

		got := base.Apply(p)
		assert.Equal(t, 250.0, got.Quantity)
		assert.Equal(t, "Tomates", got.Name)
		assert.Equal(t, UnitGram, got.Unit)
		assert.Equal(t, 500.0, base.Quantity, "original must not change")
	})

	t.Run("ZeroQuantityAllowed", func(t *testing.T) {
		zero := 0.0
		p := Patch{Quantity: &zero}
		assert.NoError(t, p.Validate())
	})

	t.Run("Invalid", func(t *testing.T) {
		neg := -1.0
		empty := "   "
		unit := Unit("cups")
		p := Patch{Name: &empty, Quantity: &neg, Unit: &unit}
		err := p.Validate()
		require.Error(t, err)
		var ve *ValidationError
		require.True(t, errors.As(err, &ve))
		assert.Len(t, ve.Fields, 3)
	})
}

func TestBuildRoundTrip(t *testing.T) {
	exp := now.Add(72 * time.Hour)
	n := NewIngredient{Name: "Tomates", Quantity: 500, Unit: UnitGram, ExpirationDate: exp}
	ing := n.Build("abc", now)

	data, err := json.Marshal([]Ingredient{ing})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"expirationDate"`)
	assert.Contains(t, string(data), `"addedDate"`)

	var back []Ingredient
	require.NoError(t, json.Unmarshal(data, &back))
	require.Len(t, back, 1)
	assert.Equal(t, "abc", back[0].ID)
	assert.Equal(t, "Tomates", back[0].Name)
	assert.Equal(t, 500.0, back[0].Quantity)
	assert.Equal(t, UnitGram, back[0].Unit)
	assert.True(t, exp.Equal(back[0].ExpirationDate))
	assert.True(t, now.Equal(back[0].AddedDate))
}

func TestParseUnit(t *testing.T) {
	for in, want := range map[string]Unit{"KG": UnitKilogram, "g": UnitGram, "ml": UnitMilliliter, "piece": UnitPieces, "pieces": UnitPieces} {
		got, err := ParseUnit(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseUnit("cup")
	assert.Error(t, err)
}

func TestExpiration(t *testing.T) {
	at := func(d time.Duration) Ingredient {
		return Ingredient{Name: "x", Quantity: 1, ExpirationDate: now.Add(d)}
	}

	t.Run("DaysRoundUp", func(t *testing.T) {
		assert.Equal(t, 1, at(2*time.Hour).DaysUntilExpiration(now))
		assert.Equal(t, 0, at(0).DaysUntilExpiration(now))
		assert.Equal(t, -1, at(-25*time.Hour).DaysUntilExpiration(now))
	})

	t.Run("Status", func(t *testing.T) {
		assert.Equal(t, StatusExpired, at(-48*time.Hour).Status(now))
		assert.Equal(t, StatusCritical, at(0).Status(now))
		assert.Equal(t, StatusCritical, at(3*24*time.Hour).Status(now))
		assert.Equal(t, StatusWarning, at(4*24*time.Hour).Status(now))
		assert.Equal(t, StatusWarning, at(7*24*time.Hour).Status(now))
		assert.Equal(t, StatusGood, at(8*24*time.Hour).Status(now))
	})

	t.Run("Buckets", func(t *testing.T) {
		items := DefaultIngredients(now)
		items = append(items, Ingredient{ID: "6", Name: "Lait", Quantity: 1, Unit: UnitLiter, ExpirationDate: now.Add(-48 * time.Hour)})

		soon := ExpiringSoon(items, now)
		var names []string
		for _, it := range soon {
			names = append(names, it.Name)
		}
		assert.Equal(t, []string{"Tomates", "Œufs", "Bœuf haché"}, names)

		expired := Expired(items, now)
		require.Len(t, expired, 1)
		assert.Equal(t, "Lait", expired[0].Name)
	})

	t.Run("SortByExpiration", func(t *testing.T) {
		sorted := SortByExpiration(DefaultIngredients(now))
		var ids []string
		for _, it := range sorted {
			ids = append(ids, it.ID)
		}
		assert.Equal(t, []string{"4", "1", "3", "5", "2"}, ids)
	})
}

func TestAvailable(t *testing.T) {
	items := []Ingredient{
		{ID: "1", Name: "Tomates", Quantity: 0},
		{ID: "2", Name: "Pâtes", Quantity: 400},
	}
	got := Available(items)
	require.Len(t, got, 1)
	assert.Equal(t, "2", got[0].ID)

	found, ok := Find(items, "1")
	assert.True(t, ok)
	assert.Equal(t, "Tomates", found.Name)
	_, ok = Find(items, "9")
	assert.False(t, ok)
}
