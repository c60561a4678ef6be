// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ListingClicks counts contact clicks recorded against listings.
	ListingClicks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "myway",
		Name:      "listing_clicks_total",
		Help:      "Contact clicks recorded against listings.",
	})

	// ImagesProcessed counts uploaded files by outcome (stored, rejected, timeout).
	ImagesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "myway",
		Name:      "images_processed_total",
		Help:      "Uploaded images by processing outcome.",
	}, []string{"outcome"})

	// Logins counts credential checks by actor (landlord, admin) and outcome.
	Logins = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "myway",
		Name:      "logins_total",
		Help:      "Credential checks by actor and outcome.",
	}, []string{"actor", "outcome"})

	// ListingsCreated counts listings created by landlords or the admin.
	ListingsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "myway",
		Name:      "listings_created_total",
		Help:      "Listings created by landlords or the admin.",
	})
)
