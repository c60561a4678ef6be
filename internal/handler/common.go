// Package handler exposes the HTTP surface: public browsing and click
// tracking, landlord and admin authentication, and listing management.
// Handlers answer with JSON; authorization failures never reach them
// because the router's middleware redirects first.
package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/myway/internal/model"
)

const requestTimeout = 5 * time.Second

// reqCtx bounds database work for one request.
func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// parseID reads the :id path parameter.
func parseID(c echo.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	return id, err == nil && id > 0
}

func badID(c echo.Context) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
}

func dbError(c echo.Context) error {
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
}

// formList returns every value submitted for key, dropping blanks.  Values
// may also arrive as one comma separated field.
func formList(c echo.Context, key string) []string {
	params, err := c.FormParams()
	if err != nil {
		return nil
	}
	var out []string
	for _, v := range params[key] {
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

// ListingView is the public representation of a listing.
type ListingView struct {
	ID           uint64   `json:"id"`
	Name         string   `json:"name"`
	Location     string   `json:"location"`
	Price        string   `json:"price"`
	Institutions []string `json:"institutions"`
	Distance     string   `json:"distance"`
	Images       []string `json:"images"`
	MapURL       string   `json:"map_url,omitempty"`
	Amenities    []string `json:"amenities"`
	Status       string   `json:"status"`
	Category     string   `json:"category"`
	Details      string   `json:"details,omitempty"`
	ContactURL   string   `json:"contact_url"`
}

// OwnedListingView adds the fields only the owner and the admin see.
type OwnedListingView struct {
	ListingView
	LandlordID uint64 `json:"landlord_id"`
	Phone      string `json:"phone"`
	Clicks     int64  `json:"clicks"`
}

// imageURL maps a stored file name onto the static route.
func imageURL(name string) string { return "/static/uploads/" + name }

func toView(l *model.Listing) ListingView {
	images := make([]string, 0, len(l.Images))
	for _, n := range l.Images {
		images = append(images, imageURL(n))
	}
	return ListingView{
		ID:           l.ID,
		Name:         l.Name,
		Location:     l.Location,
		Price:        l.Price,
		Institutions: nonNil(l.Institutions),
		Distance:     l.Distance,
		Images:       images,
		MapURL:       l.MapURL,
		Amenities:    nonNil(l.Amenities),
		Status:       l.Status,
		Category:     string(l.Category),
		Details:      l.Details,
		ContactURL:   "/track_click/" + strconv.FormatUint(l.ID, 10),
	}
}

func toOwnedView(l *model.Listing) OwnedListingView {
	return OwnedListingView{ListingView: toView(l), LandlordID: l.LandlordID, Phone: l.Phone, Clicks: l.Clicks}
}

func toViews(ls []*model.Listing) []ListingView {
	out := make([]ListingView, 0, len(ls))
	for _, l := range ls {
		out = append(out, toView(l))
	}
	return out
}

func toOwnedViews(ls []*model.Listing) []OwnedListingView {
	out := make([]OwnedListingView, 0, len(ls))
	for _, l := range ls {
		out = append(out, toOwnedView(l))
	}
	return out
}

// SchoolView is the public representation of a school.
type SchoolView struct {
	ID     uint64 `json:"id"`
	Name   string `json:"name"`
	MapURL string `json:"map_url,omitempty"`
}

func toSchoolViews(ss []*model.School) []SchoolView {
	out := make([]SchoolView, 0, len(ss))
	for _, s := range ss {
		out = append(out, SchoolView{ID: s.ID, Name: s.Name, MapURL: s.MapURL})
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
