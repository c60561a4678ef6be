package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/myway/internal/model"
	"github.com/iliyamo/myway/internal/repository"
	"github.com/iliyamo/myway/internal/service"
	"github.com/iliyamo/myway/internal/session"
)

// ListingHandler manages listings on behalf of a landlord or the admin.
// Landlord requests are always scoped to the landlord's own rows; the
// admin may act on any listing.
type ListingHandler struct {
	Listings *service.Listings
	Repo     *repository.ListingRepo
	Log      *zap.Logger
}

func NewListingHandler(listings *service.Listings, repo *repository.ListingRepo, log *zap.Logger) *ListingHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &ListingHandler{Listings: listings, Repo: repo, Log: log}
}

// Dashboard shows the landlord's listings newest first with their totals.
func (h *ListingHandler) Dashboard(c echo.Context) error {
	st := session.From(c)
	ctx, cancel := reqCtx(c)
	defer cancel()

	listings, err := h.Repo.ListByOwner(ctx, st.LandlordID)
	if err != nil {
		h.Log.Error("list owner listings", zap.Uint64("landlord_id", st.LandlordID), zap.Error(err))
		return dbError(c)
	}
	stats, err := h.Repo.OwnerStats(ctx, st.LandlordID)
	if err != nil {
		h.Log.Error("owner stats", zap.Uint64("landlord_id", st.LandlordID), zap.Error(err))
		return dbError(c)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"landlord":     landlordPart{ID: st.LandlordID, Name: st.LandlordName},
		"items":        toOwnedViews(listings),
		"count":        stats.Listings,
		"total_clicks": stats.TotalClicks,
	})
}

// Upload creates a listing from a multipart form.  Photos arrive as
// repeated "photos" parts; undecodable ones are dropped and the listing is
// still created.  Admin uploads are unowned.
func (h *ListingHandler) Upload(c echo.Context) error {
	form, err := c.MultipartForm()
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid multipart form"})
	}
	owner := session.From(c).LandlordID

	in := service.NewListing{
		Name:         c.FormValue("name"),
		Location:     c.FormValue("location"),
		Price:        c.FormValue("price"),
		Phone:        c.FormValue("phone"),
		Institutions: formList(c, "schools"),
		Distance:     c.FormValue("distance"),
		MapURL:       c.FormValue("map_url"),
		Amenities:    form.Value["amenities"],
		Category:     c.FormValue("category"),
		Details:      c.FormValue("details"),
	}

	// image work is bounded per file by the pipeline, not by requestTimeout
	l, err := h.Listings.Create(c.Request().Context(), owner, in, form.File["photos"])
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrTooManyImages):
		return c.JSON(http.StatusRequestEntityTooLarge, echo.Map{"error": "too many photos"})
	case err != nil:
		h.Log.Error("create listing", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create listing failed"})
	}
	return c.JSON(http.StatusCreated, toOwnedView(l))
}

// Edit changes name, price, location, details, status and category.  The
// status is normalized against the category, so an impossible pair is
// never stored.
func (h *ListingHandler) Edit(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return badID(c)
	}
	st := session.From(c)
	ctx, cancel := reqCtx(c)
	defer cancel()

	var current *model.Listing
	var err error
	if st.IsAdmin() {
		current, err = h.Repo.GetByID(ctx, id)
	} else {
		current, err = h.Repo.GetByIDAndOwner(ctx, id, st.LandlordID)
	}
	if err != nil {
		h.Log.Error("get listing", zap.Uint64("listing_id", id), zap.Error(err))
		return dbError(c)
	}
	if current == nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "listing not found"})
	}

	u := model.ListingUpdate{
		Name:     formOr(c, "name", current.Name),
		Price:    formOr(c, "price", current.Price),
		Location: formOr(c, "location", current.Location),
		Details:  formOr(c, "details", current.Details),
		Status:   formOr(c, "status", current.Status),
		Category: model.Category(formOr(c, "category", string(current.Category))),
	}
	if st.IsAdmin() {
		err = h.Repo.Update(ctx, id, u)
	} else {
		err = h.Repo.UpdateOwned(ctx, id, st.LandlordID, u)
	}
	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "listing not found"})
	}
	if err != nil {
		h.Log.Error("update listing", zap.Uint64("listing_id", id), zap.Error(err))
		return dbError(c)
	}

	updated, err := h.Repo.GetByID(ctx, id)
	if err != nil || updated == nil {
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSON(http.StatusOK, toOwnedView(updated))
}

// Toggle flips a listing between its category's two statuses.
func (h *ListingHandler) Toggle(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return badID(c)
	}
	st := session.From(c)
	ctx, cancel := reqCtx(c)
	defer cancel()

	var status string
	var err error
	if st.IsAdmin() {
		status, err = h.Repo.ToggleStatus(ctx, id)
	} else {
		status, err = h.Repo.ToggleStatusOwned(ctx, id, st.LandlordID)
	}
	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "listing not found"})
	}
	if err != nil {
		h.Log.Error("toggle status", zap.Uint64("listing_id", id), zap.Error(err))
		return dbError(c)
	}
	return c.JSON(http.StatusOK, echo.Map{"id": id, "status": status})
}

// Delete removes one of the landlord's own listings.
func (h *ListingHandler) Delete(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return badID(c)
	}
	st := session.From(c)
	ctx, cancel := reqCtx(c)
	defer cancel()

	err := h.Listings.Delete(ctx, id, st.LandlordID)
	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "listing not found"})
	}
	if err != nil {
		h.Log.Error("delete listing", zap.Uint64("listing_id", id), zap.Error(err))
		return dbError(c)
	}
	return c.NoContent(http.StatusNoContent)
}

// formOr returns the submitted value for key, or def when the field was
// not sent at all.
func formOr(c echo.Context, key, def string) string {
	params, err := c.FormParams()
	if err != nil {
		return def
	}
	if vs, ok := params[key]; ok && len(vs) > 0 {
		return vs[0]
	}
	return def
}
