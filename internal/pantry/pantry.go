package pantry

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Unit is the measure an ingredient quantity is expressed in.
type Unit string

const (
	UnitKilogram   Unit = "kg"
	UnitGram       Unit = "g"
	UnitLiter      Unit = "l"
	UnitMilliliter Unit = "ml"
	UnitPieces     Unit = "pieces"
)

// Units lists the accepted units in display order.
func Units() []Unit {
	return []Unit{UnitKilogram, UnitGram, UnitLiter, UnitMilliliter, UnitPieces}
}

// ParseUnit accepts a unit name case-insensitively; "piece" and "pcs" are
// accepted for pieces.
func ParseUnit(s string) (Unit, error) {
	switch v := strings.ToLower(strings.TrimSpace(s)); v {
	case "piece", "pcs", "pc":
		return UnitPieces, nil
	default:
		for _, u := range Units() {
			if Unit(v) == u {
				return u, nil
			}
		}
	}
	return "", fmt.Errorf("unknown unit %q", s)
}

// Ingredient is one pantry line.
type Ingredient struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Quantity       float64   `json:"quantity"`
	Unit           Unit      `json:"unit"`
	ExpirationDate time.Time `json:"expirationDate"`
	AddedDate      time.Time `json:"addedDate"`
}

// NewIngredient is the payload for adding an ingredient. The id and added
// date are assigned by the pantry owner.
type NewIngredient struct {
	Name           string    `validate:"required"`
	Quantity       float64   `validate:"gt=0"`
	Unit           Unit      `validate:"oneof=kg g l ml pieces"`
	ExpirationDate time.Time `validate:"required"`
}

// Patch holds the fields of a partial update; nil fields are left unchanged.
type Patch struct {
	Name           *string  `validate:"omitnil,min=1"`
	Quantity       *float64 `validate:"omitnil,gte=0"`
	Unit           *Unit    `validate:"omitnil,oneof=kg g l ml pieces"`
	ExpirationDate *time.Time
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidationError lists the fields that failed validation.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid ingredient: %s", strings.Join(e.Fields, ", "))
}

func toValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	ve := &ValidationError{}
	for _, fe := range verrs {
		ve.Fields = append(ve.Fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
	}
	return ve
}

// Validate checks an add payload. Names are trimmed before checking.
func (n *NewIngredient) Validate() error {
	n.Name = strings.TrimSpace(n.Name)
	if err := validate.Struct(n); err != nil {
		return toValidationError(err)
	}
	return nil
}

// Validate checks a partial update.
func (p *Patch) Validate() error {
	if p.Name != nil {
		trimmed := strings.TrimSpace(*p.Name)
		p.Name = &trimmed
	}
	if err := validate.Struct(p); err != nil {
		return toValidationError(err)
	}
	return nil
}

// Build turns a validated payload into an ingredient.
func (n NewIngredient) Build(id string, addedAt time.Time) Ingredient {
	return Ingredient{
		ID:             id,
		Name:           n.Name,
		Quantity:       n.Quantity,
		Unit:           n.Unit,
		ExpirationDate: n.ExpirationDate,
		AddedDate:      addedAt,
	}
}

// Apply returns a copy of the ingredient with the patch merged in.
func (i Ingredient) Apply(p Patch) Ingredient {
	if p.Name != nil {
		i.Name = *p.Name
	}
	if p.Quantity != nil {
		i.Quantity = *p.Quantity
	}
	if p.Unit != nil {
		i.Unit = *p.Unit
	}
	if p.ExpirationDate != nil {
		i.ExpirationDate = *p.ExpirationDate
	}
	return i
}

// InStock reports whether the ingredient has a positive quantity.
func (i Ingredient) InStock() bool {
	return i.Quantity > 0
}

// Available returns the ingredients with a positive quantity, in order.
func Available(items []Ingredient) []Ingredient {
	out := make([]Ingredient, 0, len(items))
	for _, it := range items {
		if it.InStock() {
			out = append(out, it)
		}
	}
	return out
}

// Find returns the ingredient with the given id.
func Find(items []Ingredient, id string) (Ingredient, bool) {
	for _, it := range items {
		if it.ID == id {
			return it, true
		}
	}
	return Ingredient{}, false
}

// ExpirationStatus buckets an ingredient by how close it is to expiring.
type ExpirationStatus string

const (
	StatusExpired  ExpirationStatus = "expired"
	StatusCritical ExpirationStatus = "critical"
	StatusWarning  ExpirationStatus = "warning"
	StatusGood     ExpirationStatus = "good"
)

// DaysUntilExpiration counts whole days left, rounding partial days up.
func (i Ingredient) DaysUntilExpiration(now time.Time) int {
	return int(math.Ceil(i.ExpirationDate.Sub(now).Hours() / 24))
}

// Status classifies the ingredient relative to now.
func (i Ingredient) Status(now time.Time) ExpirationStatus {
	days := i.DaysUntilExpiration(now)
	switch {
	case days < 0:
		return StatusExpired
	case days <= 3:
		return StatusCritical
	case days <= 7:
		return StatusWarning
	default:
		return StatusGood
	}
}

// ExpiringSoon returns the ingredients that expire within the next 7 days
// and have not expired yet.
func ExpiringSoon(items []Ingredient, now time.Time) []Ingredient {
	var out []Ingredient
	for _, it := range items {
		if d := it.DaysUntilExpiration(now); d >= 0 && d <= 7 {
			out = append(out, it)
		}
	}
	return out
}

// Expired returns the ingredients past their expiration date.
func Expired(items []Ingredient, now time.Time) []Ingredient {
	var out []Ingredient
	for _, it := range items {
		if it.DaysUntilExpiration(now) < 0 {
			out = append(out, it)
		}
	}
	return out
}

// SortByExpiration returns a copy ordered by expiration date, soonest first.
func SortByExpiration(items []Ingredient) []Ingredient {
	out := make([]Ingredient, len(items))
	copy(out, items)
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].ExpirationDate.Before(out[b].ExpirationDate)
	})
	return out
}

// DefaultIngredients is the sample pantry stored on first run.
func DefaultIngredients(now time.Time) []Ingredient {
	day := 24 * time.Hour
	return []Ingredient{
		{ID: "1", Name: "Tomates", Quantity: 500, Unit: UnitGram, ExpirationDate: now.Add(5 * day), AddedDate: now},
		{ID: "2", Name: "Pâtes", Quantity: 400, Unit: UnitGram, ExpirationDate: now.Add(30 * day), AddedDate: now},
		{ID: "3", Name: "Œufs", Quantity: 6, Unit: UnitPieces, ExpirationDate: now.Add(7 * day), AddedDate: now},
		{ID: "4", Name: "Bœuf haché", Quantity: 500, Unit: UnitGram, ExpirationDate: now.Add(3 * day), AddedDate: now},
		{ID: "5", Name: "Oignons", Quantity: 2, Unit: UnitPieces, ExpirationDate: now.Add(14 * day), AddedDate: now},
	}
}
