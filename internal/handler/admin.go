package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/myway/internal/model"
	"github.com/iliyamo/myway/internal/repository"
	"github.com/iliyamo/myway/internal/service"
)

// AdminHandler is the master console: every listing, the school directory,
// and deletion of either.
type AdminHandler struct {
	Listings *service.Listings
	Repo     *repository.ListingRepo
	Schools  *repository.SchoolRepo
	// SchoolsChanged runs after the directory is modified, e.g. to purge a
	// response cache.  May be nil.
	SchoolsChanged func(ctx context.Context)
	Log            *zap.Logger
}

func NewAdminHandler(listings *service.Listings, repo *repository.ListingRepo, schools *repository.SchoolRepo, log *zap.Logger) *AdminHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AdminHandler{Listings: listings, Repo: repo, Schools: schools, Log: log}
}

// Console lists every listing, available first, and every school.
func (h *AdminHandler) Console(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	listings, err := h.Repo.List(ctx, model.ListingFilter{})
	if err != nil {
		h.Log.Error("list listings", zap.Error(err))
		return dbError(c)
	}
	schools, err := h.Schools.List(ctx)
	if err != nil {
		h.Log.Error("list schools", zap.Error(err))
		return dbError(c)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"items":   toOwnedViews(listings),
		"schools": toSchoolViews(schools),
	})
}

// CreateSchool adds an institution.  A duplicate name is reported and
// nothing is inserted.
func (h *AdminHandler) CreateSchool(c echo.Context) error {
	name := strings.TrimSpace(c.FormValue("school_name"))
	if name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "school name required"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	s, err := h.Schools.Create(ctx, name, c.FormValue("school_map"))
	if errors.Is(err, repository.ErrSchoolExists) {
		return c.JSON(http.StatusConflict, echo.Map{"error": "school already exists"})
	}
	if err != nil {
		h.Log.Error("create school", zap.Error(err))
		return dbError(c)
	}
	h.changed(ctx)
	return c.JSON(http.StatusCreated, SchoolView{ID: s.ID, Name: s.Name, MapURL: s.MapURL})
}

// DeleteSchool removes an institution.  Listings naming it keep the name.
func (h *AdminHandler) DeleteSchool(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return badID(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	err := h.Schools.Delete(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "school not found"})
	}
	if err != nil {
		h.Log.Error("delete school", zap.Uint64("school_id", id), zap.Error(err))
		return dbError(c)
	}
	h.changed(ctx)
	return c.NoContent(http.StatusNoContent)
}

// DeleteListing removes any listing regardless of owner.
func (h *AdminHandler) DeleteListing(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return badID(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	err := h.Listings.Delete(ctx, id, 0)
	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "listing not found"})
	}
	if err != nil {
		h.Log.Error("admin delete listing", zap.Uint64("listing_id", id), zap.Error(err))
		return dbError(c)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *AdminHandler) changed(ctx context.Context) {
	if h.SchoolsChanged != nil {
		h.SchoolsChanged(ctx)
	}
}
