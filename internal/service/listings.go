package service

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/myway/internal/metrics"
	"github.com/iliyamo/myway/internal/model"
	"github.com/iliyamo/myway/internal/queue"
	"github.com/iliyamo/myway/internal/repository"
	"github.com/iliyamo/myway/internal/upload"
)

// ErrTooManyImages is returned when an upload carries more files than the
// configured cap.
var ErrTooManyImages = errors.New("too many images")

// Listings creates and removes listings together with their image files.
// Simple reads and edits go to the repository directly.
type Listings struct {
	Repo      *repository.ListingRepo
	Landlords *repository.LandlordRepo
	Images    *upload.Pipeline
	MaxImages int
	Events    EventPublisher
	Log       *zap.Logger
}

func NewListings(repo *repository.ListingRepo, landlords *repository.LandlordRepo, images *upload.Pipeline, maxImages int, events EventPublisher, log *zap.Logger) *Listings {
	if log == nil {
		log = zap.NewNop()
	}
	return &Listings{Repo: repo, Landlords: landlords, Images: images, MaxImages: maxImages, Events: events, Log: log}
}

// NewListing is the form input for Create.
type NewListing struct {
	Name         string
	Location     string
	Price        string
	Phone        string
	Institutions []string
	Distance     string
	MapURL       string
	Amenities    []string
	Category     string
	Details      string
}

// Create runs every file through the image pipeline and inserts the listing
// owned by landlordID (0 for the admin).  Files that fail to process are
// skipped; the listing is created with whatever images survived.  If the
// insert fails the stored images are removed again.  A landlord who leaves
// the contact phone blank gets the phone they registered with.
func (s *Listings) Create(ctx context.Context, landlordID uint64, in NewListing, files []*multipart.FileHeader) (*model.Listing, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if s.MaxImages > 0 && len(files) > s.MaxImages {
		return nil, ErrTooManyImages
	}
	in.Phone = strings.TrimSpace(in.Phone)
	if in.Phone == "" && landlordID != 0 && s.Landlords != nil {
		owner, err := s.Landlords.GetByID(ctx, landlordID)
		if err != nil {
			return nil, err
		}
		if owner != nil {
			in.Phone = owner.Phone
		}
	}

	names, errs := s.Images.SaveAll(ctx, files)

	l := &model.Listing{
		LandlordID:   landlordID,
		Name:         in.Name,
		Location:     strings.TrimSpace(in.Location),
		Price:        strings.TrimSpace(in.Price),
		Phone:        in.Phone,
		Institutions: trimAll(in.Institutions),
		Distance:     strings.TrimSpace(in.Distance),
		Images:       names,
		MapURL:       strings.TrimSpace(in.MapURL),
		Amenities:    trimAll(in.Amenities),
		Category:     model.ParseCategory(in.Category),
		Details:      strings.TrimSpace(in.Details),
	}
	if err := s.Repo.Create(ctx, l); err != nil {
		s.Images.Remove(names...)
		return nil, err
	}
	metrics.ListingsCreated.Inc()
	s.Log.Info("listing created",
		zap.Uint64("listing_id", l.ID),
		zap.Uint64("landlord_id", landlordID),
		zap.Int("images", len(names)),
		zap.Int("skipped", len(errs)))

	if s.Events != nil {
		ev := queue.ListingCreatedEvent{
			ListingID:    l.ID,
			LandlordID:   l.LandlordID,
			Name:         l.Name,
			Category:     string(l.Category),
			Institutions: l.Institutions,
			Images:       len(l.Images),
			CreatedAt:    time.Now().UTC().Format(time.RFC3339),
		}
		if err := s.Events.Publish(ctx, queue.ListingCreatedQueue, ev); err != nil {
			s.Log.Debug("create event dropped", zap.Uint64("listing_id", l.ID), zap.Error(err))
		}
	}
	return l, nil
}

// Delete removes a listing and its image files.  landlordID 0 means the
// admin, who may delete any listing; otherwise only an owned listing is
// removed and anything else yields repository.ErrNotFound.
func (s *Listings) Delete(ctx context.Context, id, landlordID uint64) error {
	var (
		l   *model.Listing
		err error
	)
	if landlordID == 0 {
		l, err = s.Repo.GetByID(ctx, id)
	} else {
		l, err = s.Repo.GetByIDAndOwner(ctx, id, landlordID)
	}
	if err != nil {
		return err
	}
	if l == nil {
		return repository.ErrNotFound
	}

	if landlordID == 0 {
		err = s.Repo.Delete(ctx, id)
	} else {
		err = s.Repo.DeleteOwned(ctx, id, landlordID)
	}
	if err != nil {
		return err
	}
	s.Images.Remove(l.Images...)
	s.Log.Info("listing deleted", zap.Uint64("listing_id", id), zap.Uint64("landlord_id", landlordID))
	return nil
}

// trimAll trims each element and drops empties.
func trimAll(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
