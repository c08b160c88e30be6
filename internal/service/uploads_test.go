package service

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"bitwise74/filehub-api/internal/apperr"
	"bitwise74/filehub-api/internal/identity"
	"bitwise74/filehub-api/internal/model"
	"bitwise74/filehub-api/internal/storage/storagetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploads_CreateUploadURL(t *testing.T) {
	d := newTestDB(t)
	s := NewUploads(d, storagetest.NewMemory(), 0, nil)
	alice := seedUser(t, d, "alice@example.com")

	_, err := s.CreateUploadURL(context.Background(), identity.Caller{}, "text/plain")
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)

	h, err := s.CreateUploadURL(context.Background(), alice, "text/plain")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(h.StorageID, "uploads/"+alice.ID+"/"))
	assert.NotEmpty(t, h.URL)
}

func TestUploads_Record(t *testing.T) {
	ctx := context.Background()
	d := newTestDB(t)
	store := storagetest.NewMemory()
	s := NewUploads(d, store, 0, nil)
	alice := seedUser(t, d, "alice@example.com")
	bob := seedUser(t, d, "bob@example.com")

	key := storagePrefix(alice.ID) + "obj-1"
	store.Seed(key, []byte("hello world"), "text/plain")

	t.Run("unauthenticated", func(t *testing.T) {
		_, err := s.Record(ctx, identity.Caller{}, key, "a.txt")
		assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
	})

	t.Run("foreign namespace", func(t *testing.T) {
		_, err := s.Record(ctx, bob, key, "a.txt")
		assert.ErrorIs(t, err, apperr.ErrForbidden)
	})

	t.Run("missing object", func(t *testing.T) {
		_, err := s.Record(ctx, alice, storagePrefix(alice.ID)+"nope", "a.txt")
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("empty name", func(t *testing.T) {
		_, err := s.Record(ctx, alice, key, "  ")
		assert.ErrorIs(t, err, apperr.ErrBadRequest)
	})

	t.Run("records metadata from storage", func(t *testing.T) {
		up, err := s.Record(ctx, alice, key, "a.txt")
		require.NoError(t, err)
		assert.Equal(t, alice.ID, up.UploaderID)
		assert.Equal(t, int64(11), up.Size)
		assert.Equal(t, "text/plain", up.ContentType)

		again, err := s.Record(ctx, alice, key, "a.txt")
		require.NoError(t, err)
		assert.Equal(t, up.ID, again.ID)

		var stats model.Stats
		require.NoError(t, d.Where("user_id = ?", alice.ID).First(&stats).Error)
		assert.Equal(t, int64(11), stats.UsedStorage)
		assert.Equal(t, 1, stats.UploadedFiles)
	})
}

func TestUploads_Quota(t *testing.T) {
	ctx := context.Background()
	d := newTestDB(t)
	store := storagetest.NewMemory()
	s := NewUploads(d, store, 10, nil)
	alice := seedUser(t, d, "alice@example.com")

	seedUpload(t, s, store, alice, "small.txt", "12345678")

	key := storagePrefix(alice.ID) + "big"
	store.Seed(key, []byte("12345"), "text/plain")

	_, err := s.Record(ctx, alice, key, "big.txt")
	assert.ErrorIs(t, err, apperr.ErrQuotaExceeded)
	assert.Equal(t, 409, apperr.Status(err))
}

func TestUploads_Upload(t *testing.T) {
	ctx := context.Background()
	d := newTestDB(t)
	store := storagetest.NewMemory()
	s := NewUploads(d, store, 0, []string{"text/*"})
	alice := seedUser(t, d, "alice@example.com")

	body := []byte("just some notes\n")
	up, err := s.Upload(ctx, alice, "notes.txt", bytes.NewReader(body), int64(len(body)))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(up.ContentType, "text/plain"))
	assert.True(t, store.Has(up.StorageID))

	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	_, err = s.Upload(ctx, alice, "img.png", bytes.NewReader(png), int64(len(png)))
	assert.ErrorIs(t, err, apperr.ErrBadRequest)

	_, err = s.Upload(ctx, alice, "empty.txt", bytes.NewReader(nil), 0)
	assert.ErrorIs(t, err, apperr.ErrBadRequest)
}

func TestUploads_ListAndReadURL(t *testing.T) {
	ctx := context.Background()
	d := newTestDB(t)
	store := storagetest.NewMemory()
	s := NewUploads(d, store, 0, nil)
	alice := seedUser(t, d, "alice@example.com")
	bob := seedUser(t, d, "bob@example.com")

	a1 := seedUpload(t, s, store, alice, "a1.txt", "a1")
	a2 := seedUpload(t, s, store, alice, "a2.txt", "a2")
	seedUpload(t, s, store, bob, "b1.txt", "b1")

	list, err := s.List(ctx, alice)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.ElementsMatch(t, []string{a1.ID, a2.ID}, []string{list[0].ID, list[1].ID})

	url, err := s.ReadURL(ctx, alice, a1.StorageID)
	require.NoError(t, err)
	assert.Contains(t, url, a1.StorageID)

	_, err = s.ReadURL(ctx, bob, a1.StorageID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestUploads_Delete(t *testing.T) {
	ctx := context.Background()
	d := newTestDB(t)
	store := storagetest.NewMemory()
	uploads := NewUploads(d, store, 0, nil)
	hubs := NewHubs(d, store)
	invites := NewInvites(d, 0)
	alice := seedUser(t, d, "alice@example.com")
	bob := seedUser(t, d, "bob@example.com")

	up := seedUpload(t, uploads, store, alice, "report.txt", "quarterly numbers")

	hub, err := hubs.Create(ctx, alice, "Reports", "")
	require.NoError(t, err)
	_, err = hubs.AddFile(ctx, alice, hub.ID, up.ID)
	require.NoError(t, err)

	inv, err := invites.Create(ctx, alice, CreateInvite{
		StorageID: up.StorageID,
		Emails:    []string{"bob@example.com"},
		Link:      "https://files.example.com/f/1",
	})
	require.NoError(t, err)

	t.Run("not found", func(t *testing.T) {
		err := uploads.Delete(ctx, alice, "uploads/nope")
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("non owner is forbidden", func(t *testing.T) {
		err := uploads.Delete(ctx, bob, up.StorageID)
		assert.ErrorIs(t, err, apperr.ErrForbidden)
		assert.True(t, store.Has(up.StorageID))
	})

	t.Run("owner cascades", func(t *testing.T) {
		require.NoError(t, uploads.Delete(ctx, alice, up.StorageID))
		assert.False(t, store.Has(up.StorageID))

		files, err := hubs.Files(ctx, alice, hub.ID)
		require.NoError(t, err)
		assert.Empty(t, files)

		_, err = invites.Get(ctx, alice, inv.ID)
		assert.ErrorIs(t, err, apperr.ErrNotFound)

		var stats model.Stats
		require.NoError(t, d.Where("user_id = ?", alice.ID).First(&stats).Error)
		assert.Zero(t, stats.UsedStorage)
		assert.Zero(t, stats.UploadedFiles)
	})
}
