package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/myway/internal/database/dbtest"
	"github.com/iliyamo/myway/internal/model"
)

func TestSchoolDirectory(t *testing.T) {
	db := dbtest.New(t)
	schools := NewSchoolRepo(db)
	listings := NewListingRepo(db)
	ctx := context.Background()

	unza, err := schools.Create(ctx, " UNZA ", "https://maps.example/unza")
	require.NoError(t, err)
	assert.Equal(t, "UNZA", unza.Name)
	_, err = schools.Create(ctx, "CBU", "")
	require.NoError(t, err)

	_, err = schools.Create(ctx, "UNZA", "")
	assert.ErrorIs(t, err, ErrSchoolExists)

	list, err := schools.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "CBU", list[0].Name)

	l := &model.Listing{Name: "Near UNZA", Institutions: []string{"UNZA"}}
	require.NoError(t, listings.Create(ctx, l))

	require.NoError(t, schools.Delete(ctx, unza.ID))
	assert.ErrorIs(t, schools.Delete(ctx, unza.ID), ErrNotFound)

	got, err := listings.GetByID(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"UNZA"}, got.Institutions, "listings keep orphaned school names")
}

func TestCodecRoundTrip(t *testing.T) {
	assert.Equal(t, "UNZA, CBU", joinInstitutions([]string{" UNZA", "", "CBU "}))
	assert.Equal(t, []string{"UNZA", "CBU"}, splitInstitutions("UNZA, CBU"))
	assert.Equal(t, "Standard Room", joinAmenities(nil))
	assert.Equal(t, []string{"WiFi", "Water"}, splitAmenities("WiFi • Water"))
	assert.Nil(t, splitImages(""))
}
