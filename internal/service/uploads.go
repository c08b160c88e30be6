// Package service holds the registries behind every endpoint. Each operation
// receives the caller explicitly and returns apperr errors.
package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"bitwise74/filehub-api/internal/apperr"
	"bitwise74/filehub-api/internal/identity"
	"bitwise74/filehub-api/internal/model"
	"bitwise74/filehub-api/internal/storage"

	"github.com/chenyahui/gin-cache/persist"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Bytes mimetype needs to sniff the content type of a direct upload
const sniffSize = 3072

type Uploads struct {
	DB    *gorm.DB
	Store storage.Store
	// MaxStorage is the quota given to users that have no stats row yet.
	// Zero means unlimited
	MaxStorage int64
	// AllowedTypes limits direct uploads. Entries may end in /* to allow a
	// whole family. Empty allows anything
	AllowedTypes []string
	// Cache is the store hub documents are cached in, evicted when an
	// upload leaves its hubs
	Cache persist.CacheStore
}

func NewUploads(db *gorm.DB, s storage.Store, maxStorage int64, allowedTypes []string) *Uploads {
	return &Uploads{
		DB:           db,
		Store:        s,
		MaxStorage:   maxStorage,
		AllowedTypes: allowedTypes,
	}
}

func storagePrefix(userID string) string {
	return "uploads/" + userID + "/"
}

func requireCaller(c identity.Caller) error {
	if !c.Authenticated() {
		return apperr.Unauthenticated()
	}

	return nil
}

// CreateUploadURL returns a write handle the client uploads bytes to before
// calling Record
func (s *Uploads) CreateUploadURL(ctx context.Context, caller identity.Caller, contentType string) (*storage.WriteHandle, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}

	h, err := s.Store.PresignPut(ctx, storagePrefix(caller.ID)+uuid.NewString(), contentType)
	if err != nil {
		return nil, fmt.Errorf("failed to create write handle, %w", err)
	}

	return h, nil
}

// Record creates the metadata row for bytes already transferred to
// storageID. Recording the same storage ID twice returns the first record
func (s *Uploads) Record(ctx context.Context, caller identity.Caller, storageID, name string) (*model.Upload, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}

	if storageID == "" {
		return nil, apperr.BadRequest("No storage ID provided")
	}

	if !strings.HasPrefix(storageID, storagePrefix(caller.ID)) {
		return nil, apperr.Forbidden("This storage handle wasn't issued to you")
	}

	var existing model.Upload
	err := s.DB.WithContext(ctx).
		Where("storage_id = ?", storageID).
		First(&existing).
		Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to look up upload, %w", err)
	}

	obj, err := s.Store.Head(ctx, storageID)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, apperr.NotFound("stored object", storageID)
		}

		return nil, err
	}

	up, err := model.NewUpload(caller.ID, storageID, name, obj.Size, obj.ContentType)
	if err != nil {
		return nil, err
	}

	if err := s.create(ctx, up); err != nil {
		return nil, err
	}

	return up, nil
}

// Upload streams r to storage and records it in one step. The content type
// is sniffed from the bytes, the client supplied one is ignored
func (s *Uploads) Upload(ctx context.Context, caller identity.Caller, name string, r io.Reader, size int64) (*model.Upload, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}

	if size <= 0 {
		return nil, apperr.BadRequest("Empty file provided")
	}

	header := make([]byte, sniffSize)
	n, err := io.ReadFull(r, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to read upload, %w", err)
	}
	header = header[:n]

	mime := mimetype.Detect(header)
	if !s.allowed(mime) {
		return nil, apperr.BadRequest("Unsupported file type " + mime.String())
	}

	key := storagePrefix(caller.ID) + uuid.NewString()

	up, err := model.NewUpload(caller.ID, key, name, size, mime.String())
	if err != nil {
		return nil, err
	}

	if err := s.checkQuota(ctx, caller.ID, size); err != nil {
		return nil, err
	}

	err = s.Store.Put(ctx, key, io.MultiReader(bytes.NewReader(header), r), size, mime.String())
	if err != nil {
		return nil, err
	}

	if err := s.create(ctx, up); err != nil {
		if delErr := s.Store.Delete(context.WithoutCancel(ctx), key); delErr != nil {
			zap.L().Error("Failed to cleanup after failed upload", zap.String("key", key), zap.Error(delErr))
		}

		return nil, err
	}

	return up, nil
}

func (s *Uploads) allowed(m *mimetype.MIME) bool {
	if len(s.AllowedTypes) == 0 {
		return true
	}

	for _, t := range s.AllowedTypes {
		if family, ok := strings.CutSuffix(t, "/*"); ok {
			if strings.HasPrefix(m.String(), family+"/") {
				return true
			}
			continue
		}

		if m.Is(t) {
			return true
		}
	}

	return false
}

func (s *Uploads) checkQuota(ctx context.Context, userID string, size int64) error {
	var stats model.Stats

	err := s.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Limit(1).
		Find(&stats).
		Error
	if err != nil {
		return fmt.Errorf("failed to load stats, %w", err)
	}

	if stats.UserID == "" {
		stats.MaxStorage = s.MaxStorage
	}

	if !stats.Allows(size) {
		return apperr.QuotaExceeded("Not enough storage space left")
	}

	return nil
}

// create inserts up and consumes its size from the owner's quota atomically
func (s *Uploads) create(ctx context.Context, up *model.Upload) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		stats := model.Stats{UserID: up.UploaderID, MaxStorage: s.MaxStorage}

		if err := tx.Where("user_id = ?", up.UploaderID).FirstOrCreate(&stats).Error; err != nil {
			return fmt.Errorf("failed to load stats, %w", err)
		}

		if !stats.Allows(up.Size) {
			return apperr.QuotaExceeded("Not enough storage space left")
		}

		if err := tx.Create(up).Error; err != nil {
			return fmt.Errorf("failed to create upload, %w", err)
		}

		return tx.
			Model(model.Stats{}).
			Where("user_id = ?", up.UploaderID).
			Updates(map[string]any{
				"used_storage":   gorm.Expr("used_storage + ?", up.Size),
				"uploaded_files": gorm.Expr("uploaded_files + ?", 1),
			}).
			Error
	})
}

// List returns every upload the caller owns
func (s *Uploads) List(ctx context.Context, caller identity.Caller) ([]model.Upload, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}

	uploads := []model.Upload{}

	err := s.DB.WithContext(ctx).
		Where("uploader_id = ?", caller.ID).
		Order("created_at asc, id asc").
		Find(&uploads).
		Error
	if err != nil {
		return nil, fmt.Errorf("failed to list uploads, %w", err)
	}

	return uploads, nil
}

// ReadURL resolves a short lived download URL for one of the caller's uploads
func (s *Uploads) ReadURL(ctx context.Context, caller identity.Caller, storageID string) (string, error) {
	up, err := s.owned(ctx, caller, storageID)
	if err != nil {
		return "", err
	}

	return s.Store.PresignGet(ctx, up.StorageID)
}

// Delete removes the upload along with its hub memberships and invites. The
// stored bytes are removed after the records; if that fails the sweeper
// picks the object up later
func (s *Uploads) Delete(ctx context.Context, caller identity.Caller, storageID string) error {
	up, err := s.owned(ctx, caller, storageID)
	if err != nil {
		return err
	}

	var hubIDs []string

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.HubFile{}).Where("upload_id = ?", up.ID).Pluck("hub_id", &hubIDs).Error; err != nil {
			return err
		}

		if err := tx.Where("upload_id = ?", up.ID).Delete(&model.HubFile{}).Error; err != nil {
			return err
		}

		if err := tx.Where("upload_id = ?", up.ID).Delete(&model.Invite{}).Error; err != nil {
			return err
		}

		if err := tx.Delete(up).Error; err != nil {
			return err
		}

		return tx.
			Model(model.Stats{}).
			Where("user_id = ?", up.UploaderID).
			Updates(map[string]any{
				"used_storage":   gorm.Expr("used_storage - ?", up.Size),
				"uploaded_files": gorm.Expr("uploaded_files - ?", 1),
			}).
			Error
	})
	if err != nil {
		return fmt.Errorf("failed to delete upload, %w", err)
	}

	forgetDocuments(s.Cache, hubIDs...)

	if err := s.Store.Delete(ctx, up.StorageID); err != nil {
		zap.L().Error("Failed to delete object, leaving it to the sweeper", zap.String("key", up.StorageID), zap.Error(err))
	}

	return nil
}

func (s *Uploads) owned(ctx context.Context, caller identity.Caller, storageID string) (*model.Upload, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}

	var up model.Upload

	err := s.DB.WithContext(ctx).
		Where("storage_id = ?", storageID).
		First(&up).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("upload", storageID)
		}

		return nil, fmt.Errorf("failed to look up upload, %w", err)
	}

	if up.UploaderID != caller.ID {
		return nil, apperr.Forbidden("You don't own this file")
	}

	return &up, nil
}
