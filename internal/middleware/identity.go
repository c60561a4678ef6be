package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/myway/internal/session"
)

// actorID names the caller for rate limit keys: "landlord:<id>", "admin"
// or "anon".
func actorID(c echo.Context) string {
	s := session.From(c)
	switch {
	case s.IsAdmin():
		return "admin"
	case s.IsLandlord():
		return "landlord:" + strconv.FormatUint(s.LandlordID, 10)
	}
	return "anon"
}
