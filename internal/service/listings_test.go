package service

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/myway/internal/database/dbtest"
	"github.com/iliyamo/myway/internal/model"
	"github.com/iliyamo/myway/internal/queue"
	"github.com/iliyamo/myway/internal/repository"
	"github.com/iliyamo/myway/internal/upload"
)

func newListings(t *testing.T, events EventPublisher) *Listings {
	t.Helper()
	p, err := upload.New(filepath.Join(t.TempDir(), "uploads"), 1000, 75, 10*time.Second, nil)
	require.NoError(t, err)
	db := dbtest.New(t)
	return NewListings(repository.NewListingRepo(db), repository.NewLandlordRepo(db), p, 3, events, nil)
}

func pngFile(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 40, 30))
	for x := 0; x < 40; x++ {
		img.Set(x, 10, color.RGBA{10, 20, 30, 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func photos(t *testing.T, contents ...[]byte) []*multipart.FileHeader {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for i, c := range contents {
		fw, err := mw.CreateFormFile("photos", "photo"+string(rune('a'+i))+".png")
		require.NoError(t, err)
		_, err = fw.Write(c)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	form, err := multipart.NewReader(&body, mw.Boundary()).ReadForm(32 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })
	return form.File["photos"]
}

func TestCreateListing(t *testing.T) {
	rec := &recorder{}
	s := newListings(t, rec)
	ctx := context.Background()

	l, err := s.Create(ctx, 5, NewListing{
		Name:         " Sunrise ",
		Price:        "K1500",
		Institutions: []string{"UNZA", " ", "CBU"},
		Category:     "rent",
	}, photos(t, pngFile(t), []byte("not an image"), pngFile(t)))
	require.NoError(t, err)

	assert.Equal(t, "Sunrise", l.Name)
	assert.Len(t, l.Images, 2)
	assert.Equal(t, []string{"UNZA", "CBU"}, l.Institutions)
	assert.Equal(t, []string{"Standard Room"}, l.Amenities)
	assert.Equal(t, model.StatusAvailable, l.Status)
	for _, name := range l.Images {
		_, err := os.Stat(filepath.Join(s.Images.Dir, name))
		assert.NoError(t, err)
	}

	require.Len(t, rec.events, 1)
	assert.Equal(t, queue.ListingCreatedQueue, rec.queues[0])
	assert.Equal(t, 2, rec.events[0].(queue.ListingCreatedEvent).Images)
}

func TestCreateListingLimits(t *testing.T) {
	s := newListings(t, nil)
	ctx := context.Background()

	_, err := s.Create(ctx, 5, NewListing{Name: "  "}, nil)
	assert.ErrorIs(t, err, ErrInvalidInput)

	img := pngFile(t)
	_, err = s.Create(ctx, 5, NewListing{Name: "Big"}, photos(t, img, img, img, img))
	assert.ErrorIs(t, err, ErrTooManyImages)

	l, err := s.Create(ctx, 5, NewListing{Name: "Bare"}, nil)
	require.NoError(t, err)
	assert.Empty(t, l.Images)
}

func TestDeleteListingRemovesImages(t *testing.T) {
	s := newListings(t, nil)
	ctx := context.Background()

	l, err := s.Create(ctx, 5, NewListing{Name: "Sunrise"}, photos(t, pngFile(t)))
	require.NoError(t, err)
	require.Len(t, l.Images, 1)
	path := filepath.Join(s.Images.Dir, l.Images[0])

	assert.ErrorIs(t, s.Delete(ctx, l.ID, 6), repository.ErrNotFound)
	_, err = os.Stat(path)
	require.NoError(t, err, "a foreign delete must not touch the files")

	require.NoError(t, s.Delete(ctx, l.ID, 5))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	assert.ErrorIs(t, s.Delete(ctx, l.ID, 0), repository.ErrNotFound)
}

func TestAdminDeletesAnyListing(t *testing.T) {
	s := newListings(t, nil)
	ctx := context.Background()

	l, err := s.Create(ctx, 5, NewListing{Name: "Sunrise"}, nil)
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, l.ID, 0))

	got, err := s.Repo.GetByID(ctx, l.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCreateListingFallsBackToLandlordPhone(t *testing.T) {
	s := newListings(t, nil)
	ctx := context.Background()

	owner, err := s.Landlords.Create(ctx, &model.Landlord{Name: "Ann", Phone: "0977000111", PasswordHash: "h"})
	require.NoError(t, err)

	l, err := s.Create(ctx, owner, NewListing{Name: "Blank phone"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "0977000111", l.Phone)

	l, err = s.Create(ctx, owner, NewListing{Name: "Own phone", Phone: " 0966000222 "}, nil)
	require.NoError(t, err)
	assert.Equal(t, "0966000222", l.Phone)

	l, err = s.Create(ctx, 0, NewListing{Name: "Admin post"}, nil)
	require.NoError(t, err)
	assert.Empty(t, l.Phone)
}
