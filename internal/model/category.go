package model

import "strings"

// Category is a listing's kind.  It decides which pair of statuses the
// listing moves between.
type Category string

const (
	CategoryBoarding Category = "boarding" // legacy default for rows predating categories
	CategoryRent     Category = "rent"
	CategorySale     Category = "sale"
)

// Status values.  Available is shared by every category; the other value of
// each pair depends on the category.
const (
	StatusAvailable = "Available"
	StatusFull      = "Full"
	StatusOccupied  = "Occupied"
	StatusSold      = "Sold"
)

// StatusPair is the two states a listing of one category toggles between.
type StatusPair struct {
	Open  string
	Taken string
}

var statusPairs = map[Category]StatusPair{
	CategoryRent: {StatusAvailable, StatusOccupied},
	CategorySale: {StatusAvailable, StatusSold},
}

var boardingPair = StatusPair{StatusAvailable, StatusFull}

// ParseCategory normalizes user input.  Empty input yields the legacy
// default; unknown values are kept as-is and behave like boarding.
func ParseCategory(s string) Category {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return CategoryBoarding
	}
	return Category(s)
}

// Statuses returns the category's pair.
func (c Category) Statuses() StatusPair {
	if p, ok := statusPairs[c]; ok {
		return p
	}
	return boardingPair
}

// Toggle returns the other member of the pair.  A status outside the pair
// is treated as Available.
func (c Category) Toggle(status string) string {
	p := c.Statuses()
	if status == p.Taken {
		return p.Open
	}
	return p.Taken
}

// Normalize maps status onto the category's pair: Available stays, anything
// else becomes the category's taken value.  It keeps edits that change the
// category from leaving a status the new category cannot have.
func (c Category) Normalize(status string) string {
	p := c.Statuses()
	if strings.EqualFold(strings.TrimSpace(status), p.Open) || strings.TrimSpace(status) == "" {
		return p.Open
	}
	return p.Taken
}
