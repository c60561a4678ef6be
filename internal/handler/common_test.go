package handler

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/myway/internal/model"
)

func formContext(form url.Values) echo.Context {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	return echo.New().NewContext(req, httptest.NewRecorder())
}

func TestFormList(t *testing.T) {
	c := formContext(url.Values{"schools": {"UNZA", " ", "CBU, Evelyn Hone"}})
	assert.Equal(t, []string{"UNZA", "CBU", "Evelyn Hone"}, formList(c, "schools"))
	assert.Nil(t, formList(c, "missing"))
}

func TestFormOr(t *testing.T) {
	c := formContext(url.Values{"name": {""}, "price": {"900"}})
	assert.Equal(t, "", formOr(c, "name", "old"), "a sent empty field is kept")
	assert.Equal(t, "900", formOr(c, "price", "100"))
	assert.Equal(t, "Lusaka", formOr(c, "location", "Lusaka"))
}

func TestParseID(t *testing.T) {
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.SetParamNames("id")
	for in, ok := range map[string]bool{"12": true, "0": false, "-1": false, "x": false} {
		c.SetParamValues(in)
		_, got := parseID(c)
		assert.Equal(t, ok, got, in)
	}
}

func TestToViewHidesOwnerFields(t *testing.T) {
	l := &model.Listing{ID: 4, Name: "Sunrise", Images: []string{"a.webp"}, Phone: "0977", LandlordID: 2, Clicks: 9}
	v := toView(l)
	assert.Equal(t, []string{"/static/uploads/a.webp"}, v.Images)
	assert.Equal(t, "/track_click/4", v.ContactURL)
	assert.Equal(t, []string{}, v.Institutions)

	o := toOwnedView(l)
	assert.Equal(t, "0977", o.Phone)
	assert.Equal(t, int64(9), o.Clicks)
}
