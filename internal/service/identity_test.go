package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/myway/internal/database/dbtest"
	"github.com/iliyamo/myway/internal/model"
	"github.com/iliyamo/myway/internal/repository"
	"github.com/iliyamo/myway/internal/utils"
)

func newIdentity(t *testing.T) *Identity {
	t.Helper()
	return NewIdentity(repository.NewLandlordRepo(dbtest.New(t)), "letmein", bcrypt.MinCost, nil)
}

func register(t *testing.T, s *Identity, phone string) *model.Landlord {
	t.Helper()
	l, err := s.Register(context.Background(), Registration{
		Name:     "Mr Banda",
		Phone:    phone,
		Password: "secret1",
		Question: "First pet?",
		Answer:   "  Rex ",
	})
	require.NoError(t, err)
	return l
}

func TestRegisterHashesSecrets(t *testing.T) {
	s := newIdentity(t)
	l := register(t, s, "0977000111")

	stored, err := s.Landlords.GetByID(context.Background(), l.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.True(t, utils.IsHash(stored.PasswordHash))
	assert.True(t, utils.IsHash(stored.SecurityAnswer))
	assert.True(t, utils.VerifyPassword(stored.SecurityAnswer, "rex"))
	assert.Equal(t, "First pet?", stored.SecurityQuestion)
}

func TestRegisterDuplicatePhone(t *testing.T) {
	s := newIdentity(t)
	register(t, s, "0977000111")

	_, err := s.Register(context.Background(), Registration{
		Name: "Other", Phone: " 0977000111 ", Password: "x", Question: "q", Answer: "a",
	})
	assert.ErrorIs(t, err, repository.ErrPhoneExists)
}

func TestRegisterRequiresFields(t *testing.T) {
	s := newIdentity(t)
	_, err := s.Register(context.Background(), Registration{Name: "A", Phone: "1", Password: "p"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestLogin(t *testing.T) {
	s := newIdentity(t)
	l := register(t, s, "0977000111")
	ctx := context.Background()

	st, err := s.Login(ctx, "0977000111", "secret1")
	require.NoError(t, err)
	assert.True(t, st.IsLandlord())
	assert.Equal(t, l.ID, st.LandlordID)
	assert.Equal(t, "Mr Banda", st.LandlordName)

	st, err = s.Login(ctx, "0977000111", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.True(t, st.IsAnonymous())

	_, err = s.Login(ctx, "0960000000", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginUpgradesLegacyPassword(t *testing.T) {
	s := newIdentity(t)
	ctx := context.Background()
	id, err := s.Landlords.Create(ctx, &model.Landlord{
		Name: "Old", Phone: "0955", PasswordHash: "plain", SecurityQuestion: "q", SecurityAnswer: "Blue",
	})
	require.NoError(t, err)

	st, err := s.Login(ctx, "0955", "plain")
	require.NoError(t, err)
	assert.Equal(t, id, st.LandlordID)

	stored, err := s.Landlords.GetByID(ctx, id)
	require.NoError(t, err)
	assert.True(t, utils.IsHash(stored.PasswordHash))

	_, err = s.Login(ctx, "0955", "plain")
	assert.NoError(t, err)
}

func TestAdminLogin(t *testing.T) {
	s := newIdentity(t)

	st, err := s.AdminLogin("letmein")
	require.NoError(t, err)
	assert.True(t, st.IsAdmin())
	assert.Zero(t, st.LandlordID)

	_, err = s.AdminLogin("LETMEIN")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	s.AdminPassphrase = ""
	_, err = s.AdminLogin("")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestPasswordReset(t *testing.T) {
	s := newIdentity(t)
	register(t, s, "0977000111")
	ctx := context.Background()

	_, _, err := s.BeginReset(ctx, "0000")
	assert.ErrorIs(t, err, ErrNotFound)

	q, st, err := s.BeginReset(ctx, " 0977000111")
	require.NoError(t, err)
	assert.Equal(t, "First pet?", q)
	assert.Equal(t, "0977000111", st.ResetPhone)
	assert.True(t, st.IsAnonymous())

	err = s.CompleteReset(ctx, st.ResetPhone, "Max", "newpass")
	assert.ErrorIs(t, err, ErrIncorrectAnswer)
	_, err = s.Login(ctx, "0977000111", "secret1")
	require.NoError(t, err, "a wrong answer must leave the password unchanged")

	require.NoError(t, s.CompleteReset(ctx, st.ResetPhone, "  REX", "newpass"))

	_, err = s.Login(ctx, "0977000111", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = s.Login(ctx, "0977000111", "newpass")
	assert.NoError(t, err)
}

func TestPasswordResetLegacyAnswer(t *testing.T) {
	s := newIdentity(t)
	ctx := context.Background()
	id, err := s.Landlords.Create(ctx, &model.Landlord{
		Name: "Old", Phone: "0955", PasswordHash: "plain", SecurityQuestion: "q", SecurityAnswer: "Blue ",
	})
	require.NoError(t, err)

	require.NoError(t, s.CompleteReset(ctx, "0955", "blue", "fresh"))

	stored, err := s.Landlords.GetByID(ctx, id)
	require.NoError(t, err)
	assert.True(t, utils.IsHash(stored.SecurityAnswer))
	assert.True(t, utils.VerifyPassword(stored.PasswordHash, "fresh"))
}
