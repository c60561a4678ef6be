// Package repository contains data access logic separated from HTTP handlers.
// This file holds the listing store: CRUD, filtered queries and the status
// toggle over the `boarding` table.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/myway/internal/model"
)

const listingColumns = `id, landlord_id, name, location, price, phone, institution, distance,
	images, map_url, amenities, verified, clicks, status, category, details`

// Available rows first, then everything else; newest first within a group.
const listingOrder = ` ORDER BY CASE WHEN status = 'Available' THEN 0 ELSE 1 END, id DESC`

// ListingRepo encapsulates all queries over listings.  Ownership-scoped
// variants put the landlord id in the WHERE clause of the statement that
// does the work, so no separate ownership check can race with it.
type ListingRepo struct {
	db *sql.DB
}

func NewListingRepo(db *sql.DB) *ListingRepo {
	return &ListingRepo{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanListing(s rowScanner) (*model.Listing, error) {
	var l model.Listing
	var landlordID, clicks sql.NullInt64
	var verified sql.NullBool
	var name, location, price, phone, institution sql.NullString
	var distance, images, mapURL, amenities, status sql.NullString
	var category, details sql.NullString
	if err := s.Scan(&l.ID, &landlordID, &name, &location, &price, &phone, &institution, &distance,
		&images, &mapURL, &amenities, &verified, &clicks, &status, &category, &details); err != nil {
		return nil, err
	}
	if landlordID.Int64 > 0 {
		l.LandlordID = uint64(landlordID.Int64)
	}
	l.Name = name.String
	l.Location = location.String
	l.Price = price.String
	l.Phone = phone.String
	l.Institutions = splitInstitutions(institution.String)
	l.Distance = distance.String
	l.Images = splitImages(images.String)
	l.MapURL = mapURL.String
	l.Amenities = splitAmenities(amenities.String)
	l.Verified = !verified.Valid || verified.Bool
	l.Clicks = clicks.Int64
	l.Category = model.ParseCategory(category.String)
	l.Status = l.Category.Normalize(status.String)
	l.Details = details.String
	return &l, nil
}

// Create inserts a listing with status Available.  landlordID is 0 for
// admin-authored listings.  On success ID, Status, Category and Verified
// are populated on l.
func (r *ListingRepo) Create(ctx context.Context, l *model.Listing) error {
	l.Category = model.ParseCategory(string(l.Category))
	l.Status = model.StatusAvailable
	l.Verified = true
	l.Clicks = 0
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO boarding (landlord_id, name, location, price, phone, institution, distance,
			images, map_url, amenities, verified, clicks, status, category, details)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		l.LandlordID, l.Name, l.Location, l.Price, l.Phone, joinInstitutions(l.Institutions), l.Distance,
		joinImages(l.Images), l.MapURL, joinAmenities(l.Amenities), 1, 0, l.Status, string(l.Category), l.Details)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	l.ID = uint64(id)
	l.Amenities = splitAmenities(joinAmenities(l.Amenities))
	return nil
}

// isAll reports whether a filter value means "no restriction".
func isAll(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all", "all institutions", "all categories":
		return true
	}
	return false
}

// likeEscaper quotes LIKE wildcards with '!', which reads the same in
// SQLite and MySQL string literals.
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// List returns listings matching f.  The institution filter is a
// case-insensitive substring match against the joined institution column;
// the category filter is exact.  LIKE wildcards in the filter match
// literally.
func (r *ListingRepo) List(ctx context.Context, f model.ListingFilter) ([]*model.Listing, error) {
	query := "SELECT " + listingColumns + " FROM boarding WHERE 1=1"
	var args []any
	if !isAll(f.Institution) {
		query += " AND LOWER(institution) LIKE ? ESCAPE '!'"
		args = append(args, "%"+likeEscaper.Replace(strings.ToLower(strings.TrimSpace(f.Institution)))+"%")
	}
	if !isAll(f.Category) {
		query += " AND category = ?"
		args = append(args, string(model.ParseCategory(f.Category)))
	}
	return r.query(ctx, query+listingOrder, args...)
}

// ListByOwner returns a landlord's listings, newest first.
func (r *ListingRepo) ListByOwner(ctx context.Context, landlordID uint64) ([]*model.Listing, error) {
	return r.query(ctx, "SELECT "+listingColumns+" FROM boarding WHERE landlord_id = ? ORDER BY id DESC", landlordID)
}

func (r *ListingRepo) query(ctx context.Context, q string, args ...any) ([]*model.Listing, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetByID fetches a listing regardless of owner.  A miss returns nil, nil.
func (r *ListingRepo) GetByID(ctx context.Context, id uint64) (*model.Listing, error) {
	l, err := scanListing(r.db.QueryRowContext(ctx,
		"SELECT "+listingColumns+" FROM boarding WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return l, err
}

// GetByIDAndOwner fetches a listing only if it belongs to landlordID.  A
// listing owned by someone else is indistinguishable from a missing one.
func (r *ListingRepo) GetByIDAndOwner(ctx context.Context, id, landlordID uint64) (*model.Listing, error) {
	l, err := scanListing(r.db.QueryRowContext(ctx,
		"SELECT "+listingColumns+" FROM boarding WHERE id = ? AND landlord_id = ?", id, landlordID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return l, err
}

// Update changes the editable fields of any listing.  Images, phone and
// owner are never touched.  The status is normalized against the category
// so a category change cannot leave an impossible status behind.
func (r *ListingRepo) Update(ctx context.Context, id uint64, u model.ListingUpdate) error {
	return r.update(ctx, "UPDATE boarding SET name=?, price=?, location=?, details=?, status=?, category=? WHERE id=?",
		u, id)
}

// UpdateOwned is Update restricted to the landlord's own listing.
func (r *ListingRepo) UpdateOwned(ctx context.Context, id, landlordID uint64, u model.ListingUpdate) error {
	return r.update(ctx, "UPDATE boarding SET name=?, price=?, location=?, details=?, status=?, category=? WHERE id=? AND landlord_id=?",
		u, id, landlordID)
}

func (r *ListingRepo) update(ctx context.Context, q string, u model.ListingUpdate, where ...any) error {
	c := model.ParseCategory(string(u.Category))
	args := append([]any{u.Name, u.Price, u.Location, u.Details, c.Normalize(u.Status), string(c)}, where...)
	res, err := r.db.ExecContext(ctx, q, args...)
	return affected(res, err)
}

// ToggleStatus flips a listing between its category's two statuses and
// returns the new status.  There is no version check: concurrent toggles
// both succeed and the last write wins.
func (r *ListingRepo) ToggleStatus(ctx context.Context, id uint64) (string, error) {
	return r.toggle(ctx, "SELECT status, category FROM boarding WHERE id = ?",
		"UPDATE boarding SET status = ? WHERE id = ?", id)
}

// ToggleStatusOwned is ToggleStatus restricted to the landlord's own listing.
func (r *ListingRepo) ToggleStatusOwned(ctx context.Context, id, landlordID uint64) (string, error) {
	return r.toggle(ctx, "SELECT status, category FROM boarding WHERE id = ? AND landlord_id = ?",
		"UPDATE boarding SET status = ? WHERE id = ? AND landlord_id = ?", id, landlordID)
}

func (r *ListingRepo) toggle(ctx context.Context, sel, upd string, where ...any) (string, error) {
	var status, category sql.NullString
	if err := r.db.QueryRowContext(ctx, sel, where...).Scan(&status, &category); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	c := model.ParseCategory(category.String)
	next := c.Toggle(c.Normalize(status.String))
	res, err := r.db.ExecContext(ctx, upd, append([]any{next}, where...)...)
	if err := affected(res, err); err != nil {
		return "", err
	}
	return next, nil
}

// Delete removes any listing.  Only the admin path may call it.
func (r *ListingRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM boarding WHERE id = ?", id)
	return affected(res, err)
}

// DeleteOwned removes a listing only when both id and landlord match.
func (r *ListingRepo) DeleteOwned(ctx context.Context, id, landlordID uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM boarding WHERE id = ? AND landlord_id = ?", id, landlordID)
	return affected(res, err)
}

// IncrementClicks adds one to the click counter in a single statement and
// reports whether the listing exists.
func (r *ListingRepo) IncrementClicks(ctx context.Context, id uint64) (bool, error) {
	res, err := r.db.ExecContext(ctx, "UPDATE boarding SET clicks = clicks + 1 WHERE id = ?", id)
	if err := affected(res, err); err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// OwnerStats counts a landlord's listings and sums their clicks.
func (r *ListingRepo) OwnerStats(ctx context.Context, landlordID uint64) (model.OwnerStats, error) {
	var s model.OwnerStats
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*), COALESCE(SUM(clicks), 0) FROM boarding WHERE landlord_id = ?", landlordID).
		Scan(&s.Listings, &s.TotalClicks)
	return s, err
}

// affected converts a zero-row write into ErrNotFound.
func affected(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
