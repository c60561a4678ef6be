package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/myway/internal/model"
	"github.com/iliyamo/myway/internal/repository"
	"github.com/iliyamo/myway/internal/service"
)

// PublicHandler serves anonymous visitors: the filtered listing index,
// listing detail, the school directory and click tracking.
type PublicHandler struct {
	Listings   *repository.ListingRepo
	Schools    *repository.SchoolRepo
	Engagement *service.Engagement
	Log        *zap.Logger
}

func NewPublicHandler(listings *repository.ListingRepo, schools *repository.SchoolRepo, engagement *service.Engagement, log *zap.Logger) *PublicHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &PublicHandler{Listings: listings, Schools: schools, Engagement: engagement, Log: log}
}

// Index lists available listings first, newest first within each group.
// ?school= matches any listing serving that institution; ?category=
// restricts to one category.  Both accept the "all" sentinels.
func (h *PublicHandler) Index(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	f := model.ListingFilter{Institution: c.QueryParam("school"), Category: c.QueryParam("category")}
	listings, err := h.Listings.List(ctx, f)
	if err != nil {
		h.Log.Error("list listings", zap.Error(err))
		return dbError(c)
	}
	schools, err := h.Schools.List(ctx)
	if err != nil {
		h.Log.Error("list schools", zap.Error(err))
		return dbError(c)
	}

	selected := f.Institution
	if selected == "" {
		selected = "All Institutions"
	}
	return c.JSON(http.StatusOK, echo.Map{
		"items":           toViews(listings),
		"schools":         toSchoolViews(schools),
		"selected_school": selected,
		"category":        f.Category,
	})
}

// GetListing returns one listing.
func (h *PublicHandler) GetListing(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return badID(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	l, err := h.Listings.GetByID(ctx, id)
	if err != nil {
		h.Log.Error("get listing", zap.Uint64("listing_id", id), zap.Error(err))
		return dbError(c)
	}
	if l == nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "listing not found"})
	}
	return c.JSON(http.StatusOK, toView(l))
}

// ListSchools returns the institution directory by name.
func (h *PublicHandler) ListSchools(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	schools, err := h.Schools.List(ctx)
	if err != nil {
		h.Log.Error("list schools", zap.Error(err))
		return dbError(c)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": toSchoolViews(schools)})
}

// TrackClick counts a contact click and redirects to the messaging link.
// Unknown or malformed ids go back to the index.
func (h *PublicHandler) TrackClick(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return c.Redirect(http.StatusFound, "/")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	link, found, err := h.Engagement.Track(ctx, id)
	if err != nil {
		h.Log.Error("track click", zap.Uint64("listing_id", id), zap.Error(err))
		return c.Redirect(http.StatusFound, "/")
	}
	if !found {
		return c.Redirect(http.StatusFound, "/")
	}
	return c.Redirect(http.StatusFound, link)
}
