package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/myway/internal/model"
)

// SchoolRepo manages the institution directory.  Listings reference
// schools by name, so deleting one leaves existing listings untouched.
type SchoolRepo struct {
	db *sql.DB
}

func NewSchoolRepo(db *sql.DB) *SchoolRepo { return &SchoolRepo{db: db} }

// Create inserts a school.  A taken name yields ErrSchoolExists and no row.
func (r *SchoolRepo) Create(ctx context.Context, name, mapURL string) (*model.School, error) {
	s := &model.School{Name: strings.TrimSpace(name), MapURL: strings.TrimSpace(mapURL)}
	res, err := r.db.ExecContext(ctx, "INSERT INTO schools (name, map_url) VALUES (?, ?)", s.Name, s.MapURL)
	if err != nil {
		if isDuplicate(err) {
			return nil, ErrSchoolExists
		}
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	s.ID = uint64(id)
	return s, nil
}

// List returns all schools by name.
func (r *SchoolRepo) List(ctx context.Context) ([]*model.School, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, name, map_url FROM schools ORDER BY name ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.School
	for rows.Next() {
		s := new(model.School)
		var mapURL sql.NullString
		if err := rows.Scan(&s.ID, &s.Name, &mapURL); err != nil {
			return nil, err
		}
		s.MapURL = mapURL.String
		out = append(out, s)
	}
	return out, rows.Err()
}

// Delete removes a school by id.
func (r *SchoolRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM schools WHERE id = ?", id)
	return affected(res, err)
}
