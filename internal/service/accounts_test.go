package service

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"bitwise74/filehub-api/internal/apperr"
	"bitwise74/filehub-api/internal/identity"
	"bitwise74/filehub-api/internal/model"
	"bitwise74/filehub-api/internal/notify"
	"bitwise74/filehub-api/pkg/security"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestAccounts(t *testing.T) (*Accounts, *recordingSender, *gorm.DB) {
	t.Helper()

	d := newTestDB(t)
	sender := &recordingSender{}
	argon := &security.ArgonHash{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

	a := NewAccounts(
		d,
		argon,
		identity.NewJWTResolver(d, "test-secret", time.Hour),
		notify.NewDispatcher(sender, "https://files.example.com", 1, time.Second),
		1<<20,
	)

	return a, sender, d
}

func TestAccounts_RegisterVerifyLogin(t *testing.T) {
	ctx := context.Background()
	a, sender, _ := newTestAccounts(t)

	user, err := a.Register(ctx, "New.User@Example.com", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, "new.user@example.com", user.Email)
	assert.False(t, user.Verified)
	require.NotNil(t, user.ExpiresAt)

	_, err = a.Register(ctx, "new.user@example.com", "hunter22")
	assert.ErrorIs(t, err, apperr.ErrConflict)

	require.Len(t, sender.sent, 1)
	link, err := url.Parse(sender.sent[0].Link)
	require.NoError(t, err)
	assert.Equal(t, user.ID, link.Query().Get("user_id"))
	token := link.Query().Get("token")

	// Unverified users get a token but can't use it
	_, tok, err := a.Login(ctx, "new.user@example.com", "hunter22")
	require.NoError(t, err)
	_, err = a.Tokens.Resolve(ctx, tok)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	assert.ErrorIs(t, a.Verify(ctx, user.ID, "wrong"), apperr.ErrNotFound)
	require.NoError(t, a.Verify(ctx, user.ID, token))
	assert.ErrorIs(t, a.Verify(ctx, user.ID, token), apperr.ErrBadRequest, "tokens are single use")

	_, tok, err = a.Login(ctx, "NEW.USER@example.com", "hunter22")
	require.NoError(t, err)

	caller, err := a.Tokens.Resolve(ctx, tok)
	require.NoError(t, err)
	assert.Equal(t, user.ID, caller.ID)

	_, _, err = a.Login(ctx, "new.user@example.com", "wrong-password")
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)

	_, _, err = a.Login(ctx, "nobody@example.com", "hunter22")
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)

	u, stats, err := a.Profile(ctx, caller)
	require.NoError(t, err)
	assert.True(t, u.Verified)
	assert.Nil(t, u.ExpiresAt)
	assert.Equal(t, int64(1<<20), stats.MaxStorage)
}

func TestAccounts_RegisterMailFailure(t *testing.T) {
	ctx := context.Background()
	a, sender, d := newTestAccounts(t)
	sender.err = errors.New("smtp down")

	_, err := a.Register(ctx, "new@example.com", "hunter22")
	require.Error(t, err)

	var count int64
	require.NoError(t, d.Model(model.User{}).Count(&count).Error)
	assert.Zero(t, count, "account is rolled back when the mail can't be sent")
}

func TestAccounts_RegisterValidation(t *testing.T) {
	a, _, _ := newTestAccounts(t)

	_, err := a.Register(context.Background(), "nope", "hunter22")
	assert.ErrorIs(t, err, apperr.ErrBadRequest)

	_, err = a.Register(context.Background(), "ok@example.com", "123")
	assert.ErrorIs(t, err, apperr.ErrBadRequest)
}

func TestAccounts_CreateAdmin(t *testing.T) {
	ctx := context.Background()
	a, sender, _ := newTestAccounts(t)

	_, err := a.CreateAdmin(ctx, "root@example.com", " ", "hunter22")
	assert.ErrorIs(t, err, apperr.ErrBadRequest)

	admin, err := a.CreateAdmin(ctx, "Root@Example.com", "Root", "hunter22")
	require.NoError(t, err)
	assert.True(t, admin.Admin)
	assert.True(t, admin.Verified)
	assert.Empty(t, sender.sent)

	_, err = a.CreateAdmin(ctx, "root@example.com", "Root", "hunter22")
	assert.ErrorIs(t, err, apperr.ErrConflict)

	_, tok, err := a.Login(ctx, "root@example.com", "hunter22")
	require.NoError(t, err)

	caller, err := a.Tokens.Resolve(ctx, tok)
	require.NoError(t, err)
	assert.True(t, caller.Admin)
}
