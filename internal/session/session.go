// Package session carries per-browser state in a signed cookie.  A state
// is exactly one of anonymous, landlord or admin; the constructors are the
// only way to build one, so establishing a tier always drops the others.
package session

import (
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// ContextKey is where the session middleware stores the request's State.
const ContextKey = "session"

const cookieName = "myway_session"

// State is the decoded session.  ResetPhone marks an anonymous visitor who
// passed the first password-reset step.
type State struct {
	LandlordID   uint64
	LandlordName string
	Admin        bool
	ResetPhone   string
}

func Anonymous() State { return State{} }

func ForLandlord(id uint64, name string) State {
	return State{LandlordID: id, LandlordName: name}
}

func ForAdmin() State { return State{Admin: true} }

// ForReset is an anonymous state remembering which phone is being reset.
func ForReset(phone string) State { return State{ResetPhone: phone} }

func (s State) IsLandlord() bool  { return s.LandlordID != 0 && !s.Admin }
func (s State) IsAdmin() bool     { return s.Admin && s.LandlordID == 0 }
func (s State) IsAnonymous() bool { return !s.IsLandlord() && !s.IsAdmin() }

// From returns the State the middleware attached to c, or Anonymous.
func From(c echo.Context) State {
	if s, ok := c.Get(ContextKey).(State); ok {
		return s
	}
	return Anonymous()
}

type claims struct {
	LandlordID   uint64 `json:"lid,omitempty"`
	LandlordName string `json:"lname,omitempty"`
	Admin        bool   `json:"admin,omitempty"`
	ResetPhone   string `json:"reset,omitempty"`
	jwt.RegisteredClaims
}

// Manager signs and verifies session cookies with HS256.
type Manager struct {
	secret []byte
	ttl    time.Duration
	secure bool
	now    func() time.Time
}

func NewManager(secret string, ttl time.Duration, secure bool) *Manager {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Manager{secret: []byte(secret), ttl: ttl, secure: secure, now: time.Now}
}

// Encode signs s.
func (m *Manager) Encode(s State) (string, error) {
	now := m.now().UTC()
	c := claims{
		LandlordID:   s.LandlordID,
		LandlordName: s.LandlordName,
		Admin:        s.Admin,
		ResetPhone:   s.ResetPhone,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(m.secret)
}

// Decode verifies raw and rebuilds the State through the constructors.  A
// token claiming both tiers is rejected.
func (m *Manager) Decode(raw string) (State, error) {
	var c claims
	tok, err := jwt.ParseWithClaims(raw, &c, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now))
	if err != nil {
		return Anonymous(), err
	}
	if !tok.Valid {
		return Anonymous(), errors.New("invalid session token")
	}
	switch {
	case c.Admin && c.LandlordID != 0:
		return Anonymous(), errors.New("session claims both landlord and admin")
	case c.Admin:
		return ForAdmin(), nil
	case c.LandlordID != 0:
		return ForLandlord(c.LandlordID, c.LandlordName), nil
	case c.ResetPhone != "":
		return ForReset(c.ResetPhone), nil
	}
	return Anonymous(), nil
}

// Load reads the request cookie.  Missing, tampered or expired cookies
// read as Anonymous.
func (m *Manager) Load(c echo.Context) State {
	ck, err := c.Cookie(cookieName)
	if err != nil || ck.Value == "" {
		return Anonymous()
	}
	s, err := m.Decode(ck.Value)
	if err != nil {
		return Anonymous()
	}
	return s
}

// Save replaces the session with s.  Saving an empty state clears the
// cookie.  The context copy is updated so later handlers see s.
func (m *Manager) Save(c echo.Context, s State) error {
	c.Set(ContextKey, s)
	if s == Anonymous() {
		m.Clear(c)
		return nil
	}
	raw, err := m.Encode(s)
	if err != nil {
		return err
	}
	c.SetCookie(&http.Cookie{
		Name:     cookieName,
		Value:    raw,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  m.now().Add(m.ttl),
	})
	return nil
}

// Clear drops every session tier.
func (m *Manager) Clear(c echo.Context) {
	c.Set(ContextKey, Anonymous())
	c.SetCookie(&http.Cookie{
		Name:     cookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
	})
}
