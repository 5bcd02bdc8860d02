package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/aanand-mishra/students-api/internal/security"
	"github.com/aanand-mishra/students-api/internal/types"
)

type authFixture struct {
	svc     *AuthService
	store   *memStore
	revoked *memRevocations
	now     time.Time
}

func newAuthFixture(t *testing.T, withRevocation bool) *authFixture {
	t.Helper()
	f := &authFixture{store: newMemStore(), now: time.Now()}
	tokens := security.NewTokenManager("test-secret", 24*time.Hour, func() time.Time { return f.now })

	var rs RevocationStore
	if withRevocation {
		f.revoked = newMemRevocations()
		rs = f.revoked
	}
	f.svc = NewAuthService(f.store, security.NewHasher(bcrypt.MinCost), tokens, rs, discardLogger())
	return f
}

var ana = types.RegisterInput{Email: "ana@example.com", Name: "Ana", Password: "secret123"}

func TestRegister(t *testing.T) {
	f := newAuthFixture(t, false)
	ctx := context.Background()

	res, err := f.svc.Register(ctx, ana)
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, "ana@example.com", res.User.Email)
	assert.Equal(t, "Ana", res.User.Name)
	assert.NotEmpty(t, res.User.ID)

	stored := f.store.users["ana@example.com"]
	assert.NotEqual(t, ana.Password, stored.PasswordHash)
	assert.True(t, strings.HasPrefix(stored.PasswordHash, "$2a$"))

	id, err := f.svc.Verify(ctx, res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, id.UserID)
	assert.Equal(t, "Ana", id.Name)
}

func TestRegister_Duplicate(t *testing.T) {
	f := newAuthFixture(t, false)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, ana)
	require.NoError(t, err)

	_, err = f.svc.Register(ctx, ana)
	assert.ErrorIs(t, err, ErrDuplicateEmail)
	assert.Equal(t, 1, f.store.calls["CreateUser"], "second registration must not insert")
}

func TestRegister_StorageFailure(t *testing.T) {
	f := newAuthFixture(t, false)
	f.store.failWith = errBoom

	_, err := f.svc.Register(context.Background(), ana)
	assert.ErrorIs(t, err, errBoom)
	assert.NotErrorIs(t, err, ErrDuplicateEmail)
}

func TestLogin(t *testing.T) {
	f := newAuthFixture(t, false)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, ana)
	require.NoError(t, err)

	res, err := f.svc.Login(ctx, types.LoginInput{Email: ana.Email, Password: ana.Password})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, "Ana", res.User.Name)

	_, wrongPassword := f.svc.Login(ctx, types.LoginInput{Email: ana.Email, Password: "wrong-password"})
	_, unknownEmail := f.svc.Login(ctx, types.LoginInput{Email: "ghost@example.com", Password: ana.Password})
	assert.ErrorIs(t, wrongPassword, ErrInvalidCredentials)
	assert.ErrorIs(t, unknownEmail, ErrInvalidCredentials)
	assert.Equal(t, wrongPassword.Error(), unknownEmail.Error())
}

func TestVerify(t *testing.T) {
	f := newAuthFixture(t, false)
	ctx := context.Background()

	res, err := f.svc.Register(ctx, ana)
	require.NoError(t, err)

	t.Run("tampered", func(t *testing.T) {
		_, err := f.svc.Verify(ctx, res.Token+"x")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := f.svc.Verify(ctx, "garbage")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		f.now = f.now.Add(25 * time.Hour)
		t.Cleanup(func() { f.now = f.now.Add(-25 * time.Hour) })

		_, err := f.svc.Verify(ctx, res.Token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestLogout(t *testing.T) {
	f := newAuthFixture(t, true)
	ctx := context.Background()
	require.True(t, f.svc.SupportsLogout())

	res, err := f.svc.Register(ctx, ana)
	require.NoError(t, err)

	id, err := f.svc.Verify(ctx, res.Token)
	require.NoError(t, err)
	require.NotEmpty(t, id.TokenID)

	require.NoError(t, f.svc.Logout(ctx, id))
	assert.Contains(t, f.revoked.ids, id.TokenID)

	_, err = f.svc.Verify(ctx, res.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	// A fresh login yields a new, usable token.
	again, err := f.svc.Login(ctx, types.LoginInput{Email: ana.Email, Password: ana.Password})
	require.NoError(t, err)
	_, err = f.svc.Verify(ctx, again.Token)
	assert.NoError(t, err)
}

func TestVerify_RevocationStoreDown(t *testing.T) {
	f := newAuthFixture(t, true)
	ctx := context.Background()

	res, err := f.svc.Register(ctx, ana)
	require.NoError(t, err)

	f.revoked.failErr = errBoom
	_, err = f.svc.Verify(ctx, res.Token)
	assert.ErrorIs(t, err, errBoom)
	assert.NotErrorIs(t, err, ErrInvalidToken)
}

func TestLogout_WithoutStore(t *testing.T) {
	f := newAuthFixture(t, false)
	assert.False(t, f.svc.SupportsLogout())
	assert.Error(t, f.svc.Logout(context.Background(), types.Identity{TokenID: "x"}))
}
