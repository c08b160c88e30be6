package service

import (
	"context"
	"testing"
	"time"

	"bitwise74/filehub-api/internal/model"
	"bitwise74/filehub-api/internal/storage/storagetest"
	"bitwise74/filehub-api/pkg/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweeper_Objects(t *testing.T) {
	ctx := context.Background()
	d := newTestDB(t)
	store := storagetest.NewMemory()
	uploads := NewUploads(d, store, 0, nil)
	alice := seedUser(t, d, "alice@example.com")

	kept := seedUpload(t, uploads, store, alice, "kept.txt", "kept")
	store.SeedAt("uploads/"+alice.ID+"/old-orphan", []byte("x"), "text/plain", time.Now().Add(-2*time.Hour))
	store.SeedAt("uploads/"+alice.ID+"/fresh-orphan", []byte("x"), "text/plain", time.Now())

	s := NewSweeper(d, store, time.Hour, time.Hour)
	require.NoError(t, s.Objects(ctx))

	assert.True(t, store.Has(kept.StorageID))
	assert.False(t, store.Has("uploads/"+alice.ID+"/old-orphan"))
	assert.True(t, store.Has("uploads/"+alice.ID+"/fresh-orphan"), "still inside the grace period")
}

func TestSweeper_MembershipsAndInvites(t *testing.T) {
	ctx := context.Background()
	d := newTestDB(t)
	store := storagetest.NewMemory()
	uploads := NewUploads(d, store, 0, nil)
	hubs := NewHubs(d, store)
	invites := NewInvites(d, 0)
	alice := seedUser(t, d, "alice@example.com")

	up := seedUpload(t, uploads, store, alice, "a.txt", "a")
	hub, err := hubs.Create(ctx, alice, "Docs", "")
	require.NoError(t, err)
	_, err = hubs.AddFile(ctx, alice, hub.ID, up.ID)
	require.NoError(t, err)

	// Rows left behind by a crash between statements
	require.NoError(t, d.Create(&model.HubFile{HubID: "gone", UploadID: up.ID}).Error)
	require.NoError(t, d.Create(&model.Invite{
		OwnerID:  alice.ID,
		UploadID: "gone",
		Emails:   model.StringSlice{"alice@example.com", "bob@example.com"},
		Link:     "https://files.example.com/f/x",
	}).Error)

	live, err := invites.Create(ctx, alice, CreateInvite{
		StorageID: up.StorageID,
		Emails:    []string{"bob@example.com"},
		Link:      "https://files.example.com/f/a",
	})
	require.NoError(t, err)

	stale, err := invites.Create(ctx, alice, CreateInvite{
		StorageID: up.StorageID,
		Emails:    []string{"bob@example.com"},
		Link:      "https://files.example.com/f/a",
	})
	require.NoError(t, err)
	_, err = invites.Revoke(ctx, alice, stale.ID)
	require.NoError(t, err)

	s := NewSweeper(d, store, time.Hour, time.Hour)
	s.Now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	require.NoError(t, s.Memberships(ctx))
	require.NoError(t, s.Invites(ctx))

	files, err := hubs.Files(ctx, alice, hub.ID)
	require.NoError(t, err)
	assert.Len(t, files, 1)

	var hubFiles int64
	require.NoError(t, d.Model(model.HubFile{}).Count(&hubFiles).Error)
	assert.Equal(t, int64(1), hubFiles)

	var ids []string
	require.NoError(t, d.Model(model.Invite{}).Pluck("id", &ids).Error)
	assert.Equal(t, []string{live.ID}, ids)
}

func TestSweeper_AccountsAndTokens(t *testing.T) {
	ctx := context.Background()
	d := newTestDB(t)
	store := storagetest.NewMemory()
	uploads := NewUploads(d, store, 0, nil)
	alice := seedUser(t, d, "alice@example.com")
	up := seedUpload(t, uploads, store, alice, "a.txt", "a")

	past := time.Now().Add(-time.Hour)
	stale := model.User{ID: util.NewID(), Email: "stale@example.com", PasswordHash: "x", ExpiresAt: &past}
	require.NoError(t, d.Create(&stale).Error)

	staleUpload := model.Upload{UploaderID: stale.ID, StorageID: "uploads/" + stale.ID + "/f", Name: "f", Size: 1}
	require.NoError(t, d.Create(&staleUpload).Error)
	store.Seed(staleUpload.StorageID, []byte("f"), "text/plain")

	require.NoError(t, d.Create(&model.VerificationToken{UserID: alice.ID, Token: "old", ExpiresAt: past, CleanupAt: &past}).Error)
	future := time.Now().Add(time.Hour)
	require.NoError(t, d.Create(&model.VerificationToken{UserID: alice.ID, Token: "new", ExpiresAt: future, CleanupAt: &future}).Error)

	s := NewSweeper(d, store, time.Hour, time.Hour)
	require.NoError(t, s.Run(ctx))

	var users []string
	require.NoError(t, d.Model(model.User{}).Pluck("id", &users).Error)
	assert.Equal(t, []string{alice.ID}, users)

	assert.False(t, store.Has(staleUpload.StorageID))
	assert.True(t, store.Has(up.StorageID))

	var tokens []string
	require.NoError(t, d.Model(model.VerificationToken{}).Pluck("token", &tokens).Error)
	assert.Equal(t, []string{"new"}, tokens)
}
