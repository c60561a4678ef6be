package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/myway/internal/database/dbtest"
	"github.com/iliyamo/myway/internal/model"
)

func TestLandlordCreateDuplicatePhone(t *testing.T) {
	repo := NewLandlordRepo(dbtest.New(t))
	ctx := context.Background()

	id, err := repo.Create(ctx, &model.Landlord{Name: "Ann", Phone: " 0977000111 ", PasswordHash: "h"})
	require.NoError(t, err)
	assert.NotZero(t, id)

	_, err = repo.Create(ctx, &model.Landlord{Name: "Bob", Phone: "0977000111", PasswordHash: "h2"})
	assert.ErrorIs(t, err, ErrPhoneExists)

	got, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Ann", got.Name)
}

func TestLandlordLookupAndPasswordUpdate(t *testing.T) {
	repo := NewLandlordRepo(dbtest.New(t))
	ctx := context.Background()

	id, err := repo.Create(ctx, &model.Landlord{
		Name: "Ann", Phone: "0977000111", PasswordHash: "old",
		SecurityQuestion: "First pet?", SecurityAnswer: "ans",
	})
	require.NoError(t, err)

	got, err := repo.GetByPhone(ctx, "0977000111")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "First pet?", got.SecurityQuestion)

	require.NoError(t, repo.UpdatePassword(ctx, id, "new"))
	got, err = repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "new", got.PasswordHash)

	missing, err := repo.GetByPhone(ctx, "000")
	require.NoError(t, err)
	assert.Nil(t, missing)

	assert.ErrorIs(t, repo.UpdatePassword(ctx, 999, "x"), ErrNotFound)
}
