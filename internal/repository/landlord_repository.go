package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/myway/internal/model"
)

// LandlordRepo persists landlord identities.  Hashing happens in the
// identity service; this layer stores whatever hash it is given.
type LandlordRepo struct{ DB *sql.DB }

func NewLandlordRepo(db *sql.DB) *LandlordRepo { return &LandlordRepo{DB: db} }

// NormalizePhone trims the login handle.
func NormalizePhone(phone string) string { return strings.TrimSpace(phone) }

// Create inserts a landlord and returns its ID.
func (r *LandlordRepo) Create(ctx context.Context, l *model.Landlord) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO landlords (name, phone, password, security_question, security_answer) VALUES (?,?,?,?,?)",
		strings.TrimSpace(l.Name), NormalizePhone(l.Phone), l.PasswordHash, l.SecurityQuestion, l.SecurityAnswer)
	if err != nil {
		if isDuplicate(err) {
			return 0, ErrPhoneExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	l.ID = uint64(id)
	return l.ID, nil
}

const landlordColumns = "id, name, phone, password, security_question, security_answer"

func scanLandlord(row *sql.Row) (*model.Landlord, error) {
	var l model.Landlord
	var name, password, question, answer sql.NullString
	err := row.Scan(&l.ID, &name, &l.Phone, &password, &question, &answer)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	l.Name = name.String
	l.PasswordHash = password.String
	l.SecurityQuestion = question.String
	l.SecurityAnswer = answer.String
	return &l, nil
}

// GetByPhone fetches a landlord by login handle.  A miss returns nil, nil.
func (r *LandlordRepo) GetByPhone(ctx context.Context, phone string) (*model.Landlord, error) {
	return scanLandlord(r.DB.QueryRowContext(ctx,
		"SELECT "+landlordColumns+" FROM landlords WHERE phone=? LIMIT 1", NormalizePhone(phone)))
}

// GetByID fetches a landlord by id.  A miss returns nil, nil.
func (r *LandlordRepo) GetByID(ctx context.Context, id uint64) (*model.Landlord, error) {
	return scanLandlord(r.DB.QueryRowContext(ctx,
		"SELECT "+landlordColumns+" FROM landlords WHERE id=? LIMIT 1", id))
}

// UpdatePassword replaces the stored password hash.
func (r *LandlordRepo) UpdatePassword(ctx context.Context, id uint64, hash string) error {
	res, err := r.DB.ExecContext(ctx, "UPDATE landlords SET password=? WHERE id=?", hash, id)
	return affected(res, err)
}

// UpdateSecurityAnswer replaces the stored answer hash.  Used to upgrade
// rows that still hold a plaintext answer.
func (r *LandlordRepo) UpdateSecurityAnswer(ctx context.Context, id uint64, hash string) error {
	res, err := r.DB.ExecContext(ctx, "UPDATE landlords SET security_answer=? WHERE id=?", hash, id)
	return affected(res, err)
}
