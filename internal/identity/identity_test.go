package identity

import (
	"context"
	"testing"
	"time"

	"bitwise74/filehub-api/db"
	"bitwise74/filehub-api/internal/apperr"
	"bitwise74/filehub-api/internal/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newResolver(t *testing.T) *JWTResolver {
	t.Helper()

	gdb, err := db.Open("sqlite", ":memory:")
	require.NoError(t, err)

	return NewJWTResolver(gdb, "test-secret", time.Hour)
}

func TestResolve_VerifiedUser(t *testing.T) {
	r := newResolver(t)
	u := &model.User{ID: "u1", Email: "a@example.com", PasswordHash: "x", Verified: true}
	require.NoError(t, r.DB.Create(u).Error)

	token, err := r.Issue(u)
	require.NoError(t, err)

	caller, err := r.Resolve(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, Caller{ID: "u1", Email: "a@example.com"}, caller)
	assert.True(t, caller.Authenticated())
}

func TestResolve_Rejections(t *testing.T) {
	r := newResolver(t)

	unverified := &model.User{ID: "u2", Email: "b@example.com", PasswordHash: "x"}
	require.NoError(t, r.DB.Create(unverified).Error)

	token, err := r.Issue(unverified)
	require.NoError(t, err)

	_, err = r.Resolve(context.Background(), token)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = r.Resolve(context.Background(), "")
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)

	_, err = r.Resolve(context.Background(), "garbage")
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)

	ghost, err := r.Issue(&model.User{ID: "missing"})
	require.NoError(t, err)
	_, err = r.Resolve(context.Background(), ghost)
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)

	other := NewJWTResolver(r.DB, "another-secret", time.Hour)
	forged, err := other.Issue(unverified)
	require.NoError(t, err)
	_, err = r.Resolve(context.Background(), forged)
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
}

func TestResolve_ExpiredToken(t *testing.T) {
	r := newResolver(t)
	u := &model.User{ID: "u3", Email: "c@example.com", PasswordHash: "x", Verified: true}
	require.NoError(t, r.DB.Create(u).Error)

	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": u.ID,
		"type":    "auth",
		"exp":     time.Now().Add(-time.Minute).Unix(),
	}).SignedString(r.Secret)
	require.NoError(t, err)

	_, err = r.Resolve(context.Background(), expired)
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
}
