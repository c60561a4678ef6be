// Package queue defines message payloads exchanged over the message broker.
package queue

// Routing keys (queue names) for engagement events.
const (
	ListingClickedQueue = "listing.clicked"
	ListingCreatedQueue = "listing.created"
)

// ListingClickedEvent is published after a contact click has been counted.
// It carries enough for downstream analytics without querying the database.
type ListingClickedEvent struct {
	ListingID  uint64 `json:"listing_id"`
	LandlordID uint64 `json:"landlord_id"`
	Name       string `json:"name"`
	Category   string `json:"category"`
	Clicks     int64  `json:"clicks"`
	ClickedAt  string `json:"clicked_at"`
}

// ListingCreatedEvent is published when a landlord or the admin uploads a
// listing.
type ListingCreatedEvent struct {
	ListingID    uint64   `json:"listing_id"`
	LandlordID   uint64   `json:"landlord_id"`
	Name         string   `json:"name"`
	Category     string   `json:"category"`
	Institutions []string `json:"institutions"`
	Images       int      `json:"images"`
	CreatedAt    string   `json:"created_at"`
}
