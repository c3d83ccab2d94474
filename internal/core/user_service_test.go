package core

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/harshchoudhary100/my-chat-box/internal/store"
)

func newTestUserService(t *testing.T) *UserService {
	t.Helper()
	db, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewUserService(db, bcrypt.MinCost)
}

func TestSignupThenLogin(t *testing.T) {
	svc := newTestUserService(t)

	require.NoError(t, svc.Signup("Ann", "ann@x.com", "pw1"))

	userID, err := svc.Login("ann@x.com", "pw1")
	require.NoError(t, err)
	require.NotEmpty(t, userID)
}

func TestSignup_DuplicateEmail(t *testing.T) {
	svc := newTestUserService(t)

	require.NoError(t, svc.Signup("Ann", "ann@x.com", "pw1"))

	err := svc.Signup("Another Ann", "ann@x.com", "pw2")
	require.ErrorIs(t, err, ErrEmailTaken)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	svc := newTestUserService(t)

	require.NoError(t, svc.Signup("Ann", "ann@x.com", "pw1"))

	// Unknown email and wrong password fail identically.
	_, err := svc.Login("nobody@x.com", "pw1")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login("ann@x.com", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}
