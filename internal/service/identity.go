// Package service holds the operations that span more than one repository
// or need policy beyond a single query: identity and sessions, listing
// creation with image ingestion, and engagement tracking.
package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/iliyamo/myway/internal/metrics"
	"github.com/iliyamo/myway/internal/model"
	"github.com/iliyamo/myway/internal/repository"
	"github.com/iliyamo/myway/internal/session"
	"github.com/iliyamo/myway/internal/utils"
)

var (
	// ErrInvalidCredentials covers both an unknown phone and a wrong
	// password so login does not reveal which accounts exist.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidInput wraps missing required fields.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound is returned by the reset flow for an unknown phone.
	ErrNotFound = repository.ErrNotFound
	// ErrIncorrectAnswer is returned when the security answer does not match.
	ErrIncorrectAnswer = errors.New("incorrect answer")
)

// NormalizeAnswer folds case and trims whitespace so security answers
// compare case and whitespace insensitively.
func NormalizeAnswer(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// Identity implements registration, landlord and admin login, and the
// two-step security question password reset.  Attempts are not limited
// here; the credential routes sit behind the rate limiter.
type Identity struct {
	Landlords       *repository.LandlordRepo
	AdminPassphrase string
	BcryptCost      int
	Log             *zap.Logger

	dummyOnce sync.Once
	dummyHash string
}

func NewIdentity(landlords *repository.LandlordRepo, adminPassphrase string, cost int, log *zap.Logger) *Identity {
	if log == nil {
		log = zap.NewNop()
	}
	return &Identity{Landlords: landlords, AdminPassphrase: adminPassphrase, BcryptCost: cost, Log: log}
}

// Registration is the input to Register.
type Registration struct {
	Name     string
	Phone    string
	Password string
	Question string
	Answer   string
}

// Register creates a landlord.  The password and the normalized answer are
// stored as bcrypt hashes.  A taken phone yields repository.ErrPhoneExists.
func (s *Identity) Register(ctx context.Context, r Registration) (*model.Landlord, error) {
	r.Name = strings.TrimSpace(r.Name)
	r.Phone = repository.NormalizePhone(r.Phone)
	r.Question = strings.TrimSpace(r.Question)
	answer := NormalizeAnswer(r.Answer)
	switch {
	case r.Name == "", r.Phone == "", r.Password == "":
		return nil, fmt.Errorf("%w: name, phone and password are required", ErrInvalidInput)
	case r.Question == "", answer == "":
		return nil, fmt.Errorf("%w: security question and answer are required", ErrInvalidInput)
	}

	pw, err := utils.HashPassword(r.Password, s.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	ans, err := utils.HashPassword(answer, s.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash answer: %w", err)
	}
	l := &model.Landlord{
		Name:             r.Name,
		Phone:            r.Phone,
		PasswordHash:     pw,
		SecurityQuestion: r.Question,
		SecurityAnswer:   ans,
	}
	if _, err := s.Landlords.Create(ctx, l); err != nil {
		return nil, err
	}
	s.Log.Info("landlord registered", zap.Uint64("landlord_id", l.ID))
	return l, nil
}

// Login checks phone and password and returns a landlord session.  The
// returned state replaces whatever the browser held before.
func (s *Identity) Login(ctx context.Context, phone, password string) (session.State, error) {
	l, err := s.Landlords.GetByPhone(ctx, phone)
	if err != nil {
		return session.Anonymous(), err
	}
	if l == nil {
		s.burn(password)
		metrics.Logins.WithLabelValues("landlord", "failure").Inc()
		return session.Anonymous(), ErrInvalidCredentials
	}
	ok, legacy := utils.VerifyStored(l.PasswordHash, password)
	if !ok {
		metrics.Logins.WithLabelValues("landlord", "failure").Inc()
		return session.Anonymous(), ErrInvalidCredentials
	}
	if legacy {
		s.upgradePassword(ctx, l.ID, password)
	}
	metrics.Logins.WithLabelValues("landlord", "success").Inc()
	return session.ForLandlord(l.ID, l.Name), nil
}

// burn spends the same bcrypt work as a real comparison so an unknown
// phone is not distinguishable by timing.
func (s *Identity) burn(password string) {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = utils.HashPassword("myway-dummy", s.BcryptCost)
	})
	if s.dummyHash != "" {
		utils.VerifyPassword(s.dummyHash, password)
	}
}

func (s *Identity) upgradePassword(ctx context.Context, id uint64, password string) {
	h, err := utils.HashPassword(password, s.BcryptCost)
	if err == nil {
		err = s.Landlords.UpdatePassword(ctx, id, h)
	}
	if err != nil {
		s.Log.Warn("legacy password upgrade failed", zap.Uint64("landlord_id", id), zap.Error(err))
		return
	}
	s.Log.Info("legacy password upgraded", zap.Uint64("landlord_id", id))
}

// AdminLogin checks the shared admin passphrase.
func (s *Identity) AdminLogin(passphrase string) (session.State, error) {
	if s.AdminPassphrase == "" ||
		subtle.ConstantTimeCompare([]byte(passphrase), []byte(s.AdminPassphrase)) != 1 {
		metrics.Logins.WithLabelValues("admin", "failure").Inc()
		return session.Anonymous(), ErrInvalidCredentials
	}
	metrics.Logins.WithLabelValues("admin", "success").Inc()
	return session.ForAdmin(), nil
}

// BeginReset is step one of the password reset: it looks up phone and
// returns its security question with a session remembering the phone.
func (s *Identity) BeginReset(ctx context.Context, phone string) (string, session.State, error) {
	phone = repository.NormalizePhone(phone)
	if phone == "" {
		return "", session.Anonymous(), ErrNotFound
	}
	l, err := s.Landlords.GetByPhone(ctx, phone)
	if err != nil {
		return "", session.Anonymous(), err
	}
	if l == nil {
		return "", session.Anonymous(), ErrNotFound
	}
	return l.SecurityQuestion, session.ForReset(l.Phone), nil
}

// CompleteReset is step two: on a matching answer the password is replaced.
// A wrong answer leaves the stored password untouched.
func (s *Identity) CompleteReset(ctx context.Context, phone, answer, newPassword string) error {
	if newPassword == "" {
		return fmt.Errorf("%w: new password is required", ErrInvalidInput)
	}
	l, err := s.Landlords.GetByPhone(ctx, phone)
	if err != nil {
		return err
	}
	if l == nil {
		return ErrNotFound
	}
	ok, legacy := utils.VerifyStored(l.SecurityAnswer, NormalizeAnswer(answer))
	if !ok && !utils.IsHash(l.SecurityAnswer) {
		// plaintext answers from older rows may not be normalized
		ok, legacy = utils.VerifyStored(NormalizeAnswer(l.SecurityAnswer), NormalizeAnswer(answer))
	}
	if !ok {
		return ErrIncorrectAnswer
	}

	h, err := utils.HashPassword(newPassword, s.BcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.Landlords.UpdatePassword(ctx, l.ID, h); err != nil {
		return err
	}
	if legacy {
		if ah, err := utils.HashPassword(NormalizeAnswer(answer), s.BcryptCost); err == nil {
			if err := s.Landlords.UpdateSecurityAnswer(ctx, l.ID, ah); err != nil {
				s.Log.Warn("legacy answer upgrade failed", zap.Uint64("landlord_id", l.ID), zap.Error(err))
			}
		}
	}
	s.Log.Info("password reset", zap.Uint64("landlord_id", l.ID))
	return nil
}
