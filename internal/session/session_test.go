package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatesAreExclusive(t *testing.T) {
	l := ForLandlord(3, "Ann")
	assert.True(t, l.IsLandlord())
	assert.False(t, l.IsAdmin())

	a := ForAdmin()
	assert.True(t, a.IsAdmin())
	assert.False(t, a.IsLandlord())
	assert.Zero(t, a.LandlordID)

	r := ForReset("0977")
	assert.True(t, r.IsAnonymous())
	assert.True(t, Anonymous().IsAnonymous())
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	m := NewManager("secret", time.Hour, false)
	for _, s := range []State{ForLandlord(9, "Bo"), ForAdmin(), ForReset("0977"), Anonymous()} {
		raw, err := m.Encode(s)
		require.NoError(t, err)
		got, err := m.Decode(raw)
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}
}

func TestDecodeRejectsTamperingAndExpiry(t *testing.T) {
	m := NewManager("secret", time.Hour, false)
	raw, err := NewManager("other", time.Hour, false).Encode(ForAdmin())
	require.NoError(t, err)
	_, err = m.Decode(raw)
	assert.Error(t, err)

	past := time.Now().Add(-2 * time.Hour)
	old := NewManager("secret", time.Hour, false)
	old.now = func() time.Time { return past }
	raw, err = old.Encode(ForLandlord(1, "x"))
	require.NoError(t, err)
	s, err := m.Decode(raw)
	assert.Error(t, err)
	assert.Equal(t, Anonymous(), s)
}

func TestDecodeRejectsDualTier(t *testing.T) {
	m := NewManager("secret", time.Hour, false)
	raw, err := m.Encode(State{LandlordID: 1, Admin: true})
	require.NoError(t, err)
	_, err = m.Decode(raw)
	assert.Error(t, err)
}

func TestSaveLoadClearCookie(t *testing.T) {
	e := echo.New()
	m := NewManager("secret", time.Hour, true)

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	require.NoError(t, m.Save(c, ForLandlord(4, "Cy")))
	assert.Equal(t, ForLandlord(4, "Cy"), From(c))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.True(t, cookies[0].HttpOnly)
	assert.True(t, cookies[0].Secure)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	c2 := e.NewContext(req, httptest.NewRecorder())
	assert.Equal(t, ForLandlord(4, "Cy"), m.Load(c2))

	rec3 := httptest.NewRecorder()
	c3 := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec3)
	m.Clear(c3)
	cleared := rec3.Result().Cookies()
	require.Len(t, cleared, 1)
	assert.Empty(t, cleared[0].Value)
	assert.Equal(t, Anonymous(), From(c3))
}

func TestLoadGarbageIsAnonymous(t *testing.T) {
	e := echo.New()
	m := NewManager("secret", time.Hour, false)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: cookieName, Value: "not-a-jwt"})
	assert.Equal(t, Anonymous(), m.Load(e.NewContext(req, httptest.NewRecorder())))
}
