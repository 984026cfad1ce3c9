// Package directory holds the static list of nearby safe places and the
// query/category filter over it.
package directory

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/starford/haven/internal/models"
)

// Default returns a fresh copy of the built-in directory.
func Default() []models.SafePlace {
	return []models.SafePlace{
		{ID: "1", Name: "Central Police Station", Address: "123 Safety Ave, Downtown", Distance: "0.8 miles", Type: models.PlacePolice, Phone: "(555) 123-4567", Hours: "24 hours"},
		{ID: "2", Name: "Memorial Hospital", Address: "456 Health Dr, Midtown", Distance: "1.2 miles", Type: models.PlaceHospital, Phone: "(555) 987-6543", Hours: "24 hours"},
		{ID: "3", Name: "Women's Support Center", Address: "789 Haven St, Eastside", Distance: "1.5 miles", Type: models.PlaceShelter, Phone: "(555) 234-5678", Hours: "8am - 8pm"},
		{ID: "4", Name: "City Library", Address: "101 Knowledge Rd, Westside", Distance: "0.5 miles", Type: models.PlacePublic, Phone: "(555) 345-6789", Hours: "9am - 9pm"},
		{ID: "5", Name: "Community Center", Address: "202 Gathering Pl, Northside", Distance: "1.7 miles", Type: models.PlacePublic, Phone: "(555) 456-7890", Hours: "7am - 10pm"},
	}
}

// Filter keeps the places whose name or address contains query (case
// insensitive, untrimmed) and whose type equals category. An empty query or
// category matches everything. Order is preserved and places is not modified.
func Filter(places []models.SafePlace, query string, category models.PlaceType) []models.SafePlace {
	// cases.Caser is stateful; use a fresh one per call.
	fold := cases.Fold()
	q := fold.String(query)

	out := make([]models.SafePlace, 0, len(places))
	for _, p := range places {
		if category != "" && p.Type != category {
			continue
		}
		if q != "" &&
			!strings.Contains(fold.String(p.Name), q) &&
			!strings.Contains(fold.String(p.Address), q) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Lookup returns the place with id.
func Lookup(places []models.SafePlace, id string) (models.SafePlace, bool) {
	for _, p := range places {
		if p.ID == id {
			return p, true
		}
	}
	return models.SafePlace{}, false
}

// Category is a selectable place type with its display label.
type Category struct {
	Type  models.PlaceType `json:"type"`
	Label string           `json:"label"`
}

// Categories lists every place type in display order.
func Categories() []Category {
	out := make([]Category, 0, len(models.PlaceTypes))
	for _, t := range models.PlaceTypes {
		out = append(out, Category{Type: t, Label: t.Label()})
	}
	return out
}
