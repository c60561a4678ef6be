package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/myway/internal/session"
)

// Session decodes the session cookie once per request and stores the State
// under session.ContextKey.  A bad cookie reads as anonymous rather than
// failing the request.
func Session(m *session.Manager) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(session.ContextKey, m.Load(c))
			return next(c)
		}
	}
}

// RequireLandlord lets only landlord sessions through.  Anyone else is
// redirected to the landlord login, never shown an error, so the response
// does not reveal whether the target exists.
func RequireLandlord() echo.MiddlewareFunc {
	return requireTier("/login", session.State.IsLandlord)
}

// RequireAdmin lets only the admin through and redirects others to the
// admin login.
func RequireAdmin() echo.MiddlewareFunc {
	return requireTier("/admin", session.State.IsAdmin)
}

// RequireLandlordOrAdmin accepts either tier.
func RequireLandlordOrAdmin() echo.MiddlewareFunc {
	return requireTier("/login", func(s session.State) bool { return s.IsLandlord() || s.IsAdmin() })
}

func requireTier(loginPath string, allowed func(session.State) bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !allowed(session.From(c)) {
				return c.Redirect(http.StatusFound, loginPath)
			}
			return next(c)
		}
	}
}
