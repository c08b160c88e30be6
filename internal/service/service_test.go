package service

import (
	"context"
	"sync"
	"testing"

	"bitwise74/filehub-api/db"
	"bitwise74/filehub-api/internal/identity"
	"bitwise74/filehub-api/internal/model"
	"bitwise74/filehub-api/internal/notify"
	"bitwise74/filehub-api/internal/storage/storagetest"
	"bitwise74/filehub-api/pkg/util"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	d, err := db.Open("sqlite", ":memory:")
	require.NoError(t, err)

	t.Cleanup(func() {
		if sqlDB, err := d.DB(); err == nil {
			sqlDB.Close()
		}
	})

	return d
}

func seedUser(t *testing.T, d *gorm.DB, email string) identity.Caller {
	t.Helper()

	u := model.User{
		ID:           util.NewID(),
		Email:        email,
		PasswordHash: "x",
		Verified:     true,
	}
	require.NoError(t, d.Create(&u).Error)

	return identity.Caller{ID: u.ID, Email: u.Email}
}

// seedUpload puts data into the store the way a client would through a
// write handle and records it
func seedUpload(t *testing.T, s *Uploads, store *storagetest.Memory, caller identity.Caller, name, data string) *model.Upload {
	t.Helper()

	key := storagePrefix(caller.ID) + uuid.NewString()
	store.Seed(key, []byte(data), "text/plain")

	up, err := s.Record(context.Background(), caller, key, name)
	require.NoError(t, err)

	return up
}

type recordingSender struct {
	mu   sync.Mutex
	err  error
	sent []notify.Message
}

func (r *recordingSender) Send(_ context.Context, m notify.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.err != nil {
		return r.err
	}

	r.sent = append(r.sent, m)
	return nil
}
