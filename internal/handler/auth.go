package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/myway/internal/repository"
	"github.com/iliyamo/myway/internal/service"
	"github.com/iliyamo/myway/internal/session"
)

// AuthHandler covers landlord registration and login, the admin login,
// logout and the two-step password reset.  Every successful login replaces
// the whole session, so landlord and admin access never coexist.
type AuthHandler struct {
	Identity *service.Identity
	Sessions *session.Manager
	Log      *zap.Logger
}

func NewAuthHandler(identity *service.Identity, sessions *session.Manager, log *zap.Logger) *AuthHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthHandler{Identity: identity, Sessions: sessions, Log: log}
}

type landlordPart struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
}

// Register creates a landlord account.  It does not log the landlord in.
func (h *AuthHandler) Register(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	l, err := h.Identity.Register(ctx, service.Registration{
		Name:     c.FormValue("name"),
		Phone:    c.FormValue("phone"),
		Password: c.FormValue("password"),
		Question: c.FormValue("security_question"),
		Answer:   c.FormValue("security_answer"),
	})
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrPhoneExists):
		return c.JSON(http.StatusConflict, echo.Map{"error": "phone number already registered"})
	case err != nil:
		h.Log.Error("register landlord", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "registration failed"})
	}
	return c.JSON(http.StatusCreated, landlordPart{ID: l.ID, Name: l.Name})
}

// Login authenticates a landlord by phone and password.
func (h *AuthHandler) Login(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	st, err := h.Identity.Login(ctx, c.FormValue("phone"), c.FormValue("password"))
	if errors.Is(err, service.ErrInvalidCredentials) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	if err != nil {
		h.Log.Error("landlord login", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "login failed"})
	}
	if err := h.Sessions.Save(c, st); err != nil {
		h.Log.Error("save session", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "login failed"})
	}
	return c.JSON(http.StatusOK, landlordPart{ID: st.LandlordID, Name: st.LandlordName})
}

// Logout clears every session tier and returns to the index.
func (h *AuthHandler) Logout(c echo.Context) error {
	h.Sessions.Clear(c)
	return c.Redirect(http.StatusFound, "/")
}

// AdminEntry is the admin login surface.  Visiting it drops any landlord
// session so the two tiers cannot be held at once.
func (h *AuthHandler) AdminEntry(c echo.Context) error {
	if session.From(c).IsLandlord() {
		h.Sessions.Clear(c)
	}
	return c.JSON(http.StatusOK, echo.Map{"admin": session.From(c).IsAdmin()})
}

// AdminLogin checks the master passphrase.
func (h *AuthHandler) AdminLogin(c echo.Context) error {
	h.Sessions.Clear(c)
	st, err := h.Identity.AdminLogin(c.FormValue("pass"))
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized access"})
	}
	if err := h.Sessions.Save(c, st); err != nil {
		h.Log.Error("save session", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "login failed"})
	}
	return c.Redirect(http.StatusFound, "/admin_console")
}

// ResetLookup is the first reset step: it returns the security question
// for a phone and remembers the phone in the session.
func (h *AuthHandler) ResetLookup(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	q, st, err := h.Identity.BeginReset(ctx, c.FormValue("phone"))
	if errors.Is(err, service.ErrNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "phone number not found"})
	}
	if err != nil {
		h.Log.Error("reset lookup", zap.Error(err))
		return dbError(c)
	}
	if err := h.Sessions.Save(c, st); err != nil {
		h.Log.Error("save session", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "reset failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"question": q})
}

// ResetConfirm is the second step: a matching answer replaces the password
// of the phone remembered by ResetLookup.
func (h *AuthHandler) ResetConfirm(c echo.Context) error {
	phone := session.From(c).ResetPhone
	if phone == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "start the reset with your phone number"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	err := h.Identity.CompleteReset(ctx, phone, c.FormValue("answer"), c.FormValue("new_password"))
	switch {
	case errors.Is(err, service.ErrIncorrectAnswer):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "incorrect answer"})
	case errors.Is(err, service.ErrInvalidInput):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrNotFound):
		h.Sessions.Clear(c)
		return c.JSON(http.StatusNotFound, echo.Map{"error": "phone number not found"})
	case err != nil:
		h.Log.Error("reset confirm", zap.Error(err))
		return dbError(c)
	}
	h.Sessions.Clear(c)
	return c.JSON(http.StatusOK, echo.Map{"message": "password updated"})
}
