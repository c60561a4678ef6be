package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/myway/internal/config"
	"github.com/iliyamo/myway/internal/session"
)

func serve(t *testing.T, st session.State, mw echo.MiddlewareFunc) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set(session.ContextKey, st)
	err := mw(func(c echo.Context) error { return c.String(http.StatusOK, "in") })(c)
	require.NoError(t, err)
	return rec
}

func TestRequireRedirects(t *testing.T) {
	landlord := session.ForLandlord(3, "Banda")
	admin := session.ForAdmin()
	anon := session.Anonymous()

	cases := []struct {
		name     string
		mw       echo.MiddlewareFunc
		state    session.State
		code     int
		location string
	}{
		{"landlord ok", RequireLandlord(), landlord, http.StatusOK, ""},
		{"landlord anon", RequireLandlord(), anon, http.StatusFound, "/login"},
		{"landlord as admin", RequireLandlord(), admin, http.StatusFound, "/login"},
		{"admin ok", RequireAdmin(), admin, http.StatusOK, ""},
		{"admin as landlord", RequireAdmin(), landlord, http.StatusFound, "/admin"},
		{"admin reset visitor", RequireAdmin(), session.ForReset("0977"), http.StatusFound, "/admin"},
		{"either landlord", RequireLandlordOrAdmin(), landlord, http.StatusOK, ""},
		{"either admin", RequireLandlordOrAdmin(), admin, http.StatusOK, ""},
		{"either anon", RequireLandlordOrAdmin(), anon, http.StatusFound, "/login"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := serve(t, tc.state, tc.mw)
			assert.Equal(t, tc.code, rec.Code)
			assert.Equal(t, tc.location, rec.Header().Get("Location"))
		})
	}
}

func TestSessionLoader(t *testing.T) {
	m := session.NewManager("secret", 0, false)
	e := echo.New()

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/login", nil), rec)
	require.NoError(t, m.Save(c, session.ForLandlord(9, "Phiri")))

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	for _, ck := range rec.Result().Cookies() {
		req.AddCookie(ck)
	}
	c = e.NewContext(req, httptest.NewRecorder())
	var got session.State
	err := Session(m)(func(c echo.Context) error {
		got = session.From(c)
		return nil
	})(c)
	require.NoError(t, err)
	assert.Equal(t, uint64(9), got.LandlordID)
}

func TestRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.Header.Set(echo.HeaderXRealIP, "10.0.0.1")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/login")
	c.Set(session.ContextKey, session.ForLandlord(4, "x"))

	cfg := config.RateLimitConfig{Prefix: "rl", KeyStrategy: "ip_route"}
	assert.Equal(t, "rl:ip:10.0.0.1:route:POST /login", rateKey(cfg, c))

	cfg.KeyStrategy = "user"
	assert.Equal(t, "rl:user:landlord:4", rateKey(cfg, c))

	cfg.KeyStrategy = ""
	assert.Equal(t, "rl:ip:10.0.0.1:user:landlord:4:route:POST /login", rateKey(cfg, c))
}

func TestDisabledMiddlewarePassThrough(t *testing.T) {
	rl := NewTokenBucket(config.RateLimitConfig{Enabled: true}, nil, zap.NewNop())
	assert.Equal(t, http.StatusOK, serve(t, session.Anonymous(), rl).Code)

	cache := NewRedisCache(config.CacheConfig{Enabled: false}, nil, nil)
	assert.Equal(t, http.StatusOK, serve(t, session.Anonymous(), cache).Code)
}

func TestPayloadRoundTrip(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodePayload(http.StatusOK, hdr, []byte(`[{"name":"UNZA"}]`))
	require.NoError(t, err)

	status, got, body, ok := decodePayload(bs)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "application/json", got.Get("Content-Type"))
	assert.Equal(t, `[{"name":"UNZA"}]`, string(body))

	_, _, _, ok = decodePayload(bs[:5])
	assert.False(t, ok)
	_, _, _, ok = decodePayload(append([]byte{0, 0, 0, 200, 0, 0, 1, 0}, 'x'))
	assert.False(t, ok)
}

func TestCaptureWriterStopsAtLimit(t *testing.T) {
	rec := httptest.NewRecorder()
	w := &captureWriter{ResponseWriter: rec, limit: 4}
	_, _ = w.Write([]byte("abc"))
	_, _ = w.Write([]byte("def"))
	assert.True(t, w.truncated)
	assert.Equal(t, "abc", w.buf.String())
	assert.Equal(t, "abcdef", rec.Body.String())
}
