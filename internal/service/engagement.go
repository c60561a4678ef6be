package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/myway/internal/metrics"
	"github.com/iliyamo/myway/internal/model"
	"github.com/iliyamo/myway/internal/queue"
	"github.com/iliyamo/myway/internal/repository"
)

// EventPublisher is satisfied by *Publisher.  A nil EventPublisher drops
// events.
type EventPublisher interface {
	Publish(ctx context.Context, queue string, event any) error
}

// Engagement counts contact clicks and builds the messaging deep link the
// visitor is redirected to.
type Engagement struct {
	Listings    *repository.ListingRepo
	Host        string // e.g. wa.me
	CountryCode string // e.g. 260
	SiteName    string
	Events      EventPublisher
	Log         *zap.Logger
}

func NewEngagement(listings *repository.ListingRepo, host, countryCode, siteName string, events EventPublisher, log *zap.Logger) *Engagement {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engagement{
		Listings:    listings,
		Host:        host,
		CountryCode: countryCode,
		SiteName:    siteName,
		Events:      events,
		Log:         log,
	}
}

// Track records one click on listing id and returns the contact link.
// found is false for an unknown id, in which case nothing is counted.
func (e *Engagement) Track(ctx context.Context, id uint64) (link string, found bool, err error) {
	found, err = e.Listings.IncrementClicks(ctx, id)
	if err != nil || !found {
		return "", false, err
	}
	metrics.ListingClicks.Inc()

	l, err := e.Listings.GetByID(ctx, id)
	if err != nil {
		return "", false, err
	}
	if l == nil {
		// deleted between the increment and the read
		return "", false, nil
	}
	e.publish(ctx, l)
	return ContactLink(e.Host, NormalizePhone(l.Phone, e.CountryCode), e.Message(l)), true, nil
}

func (e *Engagement) publish(ctx context.Context, l *model.Listing) {
	if e.Events == nil {
		return
	}
	ev := queue.ListingClickedEvent{
		ListingID:  l.ID,
		LandlordID: l.LandlordID,
		Name:       l.Name,
		Category:   string(l.Category),
		Clicks:     l.Clicks,
		ClickedAt:  time.Now().UTC().Format(time.RFC3339),
	}
	if err := e.Events.Publish(ctx, queue.ListingClickedQueue, ev); err != nil {
		e.Log.Debug("click event dropped", zap.Uint64("listing_id", l.ID), zap.Error(err))
	}
}

// Message is the text pre-filled in the visitor's chat with the landlord.
func (e *Engagement) Message(l *model.Listing) string {
	site := e.SiteName
	if site == "" {
		site = "MyWay"
	}
	switch l.Category {
	case model.CategorySale:
		return fmt.Sprintf("Hello, I saw your property '%s' for sale on %s. Is it still available?", l.Name, site)
	case model.CategoryRent:
		return fmt.Sprintf("Hello, I saw your property '%s' for rent on %s. Is it still available?", l.Name, site)
	default:
		return fmt.Sprintf("Hello, I saw your room at '%s' on %s. Is it still available?", l.Name, site)
	}
}

var phoneStripper = strings.NewReplacer(" ", "", "+", "", "-", "", "(", "", ")", "")

// NormalizePhone strips formatting from a contact number and replaces a
// leading trunk zero with countryCode.
func NormalizePhone(phone, countryCode string) string {
	p := phoneStripper.Replace(strings.TrimSpace(phone))
	if strings.HasPrefix(p, "0") && countryCode != "" {
		p = countryCode + p[1:]
	}
	return p
}

// ContactLink builds https://<host>/<phone>?text=<message> with the
// message percent-encoded and spaces as %20.
func ContactLink(host, phone, message string) string {
	text := strings.ReplaceAll(url.QueryEscape(message), "+", "%20")
	return "https://" + host + "/" + phone + "?text=" + text
}
