package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bitwise74/filehub-api/internal/apperr"
	"bitwise74/filehub-api/internal/identity"
	"bitwise74/filehub-api/internal/model"
	"bitwise74/filehub-api/internal/storage"

	"github.com/chenyahui/gin-cache/persist"
	"github.com/gabriel-vasile/mimetype"
	"github.com/jellydator/ttlcache/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	// Text read per file when a hub is exported as documents
	maxDocumentSize = 1 << 20
	// Assistants tend to ask about the same hub several times in one call
	documentsCacheTTL = 15 * time.Second
)

type Hubs struct {
	DB    *gorm.DB
	Store storage.Store
	// Cache holds exported documents per hub. Nil disables caching
	Cache persist.CacheStore
}

func NewHubs(db *gorm.DB, s storage.Store) *Hubs {
	return &Hubs{DB: db, Store: s}
}

// Document is the text of one hub file as handed to the voice assistant
type Document struct {
	Content string `json:"content"`
	UUID    string `json:"uuid"`
}

func (s *Hubs) Create(ctx context.Context, caller identity.Caller, name, description string) (*model.Hub, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}

	hub, err := model.NewHub(caller.ID, name, description)
	if err != nil {
		return nil, err
	}

	if err := s.DB.WithContext(ctx).Create(hub).Error; err != nil {
		return nil, fmt.Errorf("failed to create hub, %w", err)
	}

	return hub, nil
}

func (s *Hubs) List(ctx context.Context, caller identity.Caller) ([]model.Hub, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}

	hubs := []model.Hub{}

	err := s.DB.WithContext(ctx).
		Where("owner_id = ?", caller.ID).
		Order("created_at asc, id asc").
		Find(&hubs).
		Error
	if err != nil {
		return nil, fmt.Errorf("failed to list hubs, %w", err)
	}

	return hubs, nil
}

// Delete removes the hub and every membership row in one transaction
func (s *Hubs) Delete(ctx context.Context, caller identity.Caller, hubID string) error {
	hub, err := s.owned(ctx, caller, hubID)
	if err != nil {
		return err
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("hub_id = ?", hub.ID).Delete(&model.HubFile{}).Error; err != nil {
			return err
		}

		return tx.Delete(hub).Error
	})
	if err != nil {
		return fmt.Errorf("failed to delete hub, %w", err)
	}

	forgetDocuments(s.Cache, hub.ID)
	return nil
}

// AddFile attaches one of the caller's uploads to one of the caller's hubs.
// Adding a file twice returns the existing membership
func (s *Hubs) AddFile(ctx context.Context, caller identity.Caller, hubID, uploadID string) (*model.HubFile, error) {
	hub, err := s.owned(ctx, caller, hubID)
	if err != nil {
		return nil, err
	}

	var up model.Upload

	err = s.DB.WithContext(ctx).
		Where("id = ?", uploadID).
		First(&up).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("upload", uploadID)
		}

		return nil, fmt.Errorf("failed to look up upload, %w", err)
	}

	if up.UploaderID != caller.ID {
		return nil, apperr.Forbidden("You can only add your own files to a hub")
	}

	hf := model.HubFile{}

	err = s.DB.WithContext(ctx).
		Where(model.HubFile{HubID: hub.ID, UploadID: up.ID}).
		FirstOrCreate(&hf).
		Error
	if err != nil {
		return nil, fmt.Errorf("failed to add file to hub, %w", err)
	}

	forgetDocuments(s.Cache, hub.ID)

	hf.Upload = &up
	return &hf, nil
}

func (s *Hubs) RemoveFile(ctx context.Context, caller identity.Caller, hubFileID string) error {
	if err := requireCaller(caller); err != nil {
		return err
	}

	var hf model.HubFile

	err := s.DB.WithContext(ctx).
		Where("id = ?", hubFileID).
		First(&hf).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("hub file", hubFileID)
		}

		return fmt.Errorf("failed to look up hub file, %w", err)
	}

	if _, err := s.owned(ctx, caller, hf.HubID); err != nil {
		return err
	}

	if err := s.DB.WithContext(ctx).Delete(&hf).Error; err != nil {
		return fmt.Errorf("failed to remove file from hub, %w", err)
	}

	forgetDocuments(s.Cache, hf.HubID)
	return nil
}

// Files lists the memberships of a hub with their uploads loaded
func (s *Hubs) Files(ctx context.Context, caller identity.Caller, hubID string) ([]model.HubFile, error) {
	hub, err := s.owned(ctx, caller, hubID)
	if err != nil {
		return nil, err
	}

	return s.files(ctx, hub.ID)
}

func (s *Hubs) files(ctx context.Context, hubID string) ([]model.HubFile, error) {
	files := []model.HubFile{}

	err := s.DB.WithContext(ctx).
		Preload("Upload").
		Where("hub_id = ?", hubID).
		Order("created_at asc, id asc").
		Find(&files).
		Error
	if err != nil {
		return nil, fmt.Errorf("failed to list hub files, %w", err)
	}

	return files, nil
}

// Documents returns the text of every file in the hub. It performs no
// ownership check and must only be reachable by trusted integrations.
// Binary files are described by name, type and size instead of content
func (s *Hubs) Documents(ctx context.Context, hubID string) ([]Document, error) {
	key := documentsKey(hubID)

	if s.Cache != nil {
		var docs []Document

		err := s.Cache.Get(key, &docs)
		if err == nil {
			return docs, nil
		}

		if !errors.Is(err, persist.ErrCacheMiss) {
			zap.L().Warn("Failed to read documents cache", zap.String("hubID", hubID), zap.Error(err))
		}
	}

	docs, err := s.documents(ctx, hubID)
	if err != nil {
		return nil, err
	}

	if s.Cache != nil {
		if err := s.Cache.Set(key, docs, documentsCacheTTL); err != nil {
			zap.L().Warn("Failed to write documents cache", zap.String("hubID", hubID), zap.Error(err))
		}
	}

	return docs, nil
}

func (s *Hubs) documents(ctx context.Context, hubID string) ([]Document, error) {
	var hub model.Hub

	err := s.DB.WithContext(ctx).
		Where("id = ?", hubID).
		First(&hub).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("hub", hubID)
		}

		return nil, fmt.Errorf("failed to look up hub, %w", err)
	}

	files, err := s.files(ctx, hub.ID)
	if err != nil {
		return nil, err
	}

	docs := make([]Document, 0, len(files))

	for _, f := range files {
		if f.Upload == nil {
			continue
		}

		content, err := s.documentContent(ctx, f.Upload)
		if err != nil {
			return nil, err
		}

		docs = append(docs, Document{Content: content, UUID: f.Upload.ID})
	}

	return docs, nil
}

func (s *Hubs) documentContent(ctx context.Context, up *model.Upload) (string, error) {
	describe := fmt.Sprintf("%s (%s, %d bytes)", up.Name, up.ContentType, up.Size)

	if !maybeText(up.ContentType) {
		return describe, nil
	}

	data, err := s.Store.Get(ctx, up.StorageID, maxDocumentSize)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			zap.L().Warn("Hub file has no stored object", zap.String("key", up.StorageID))
			return describe, nil
		}

		return "", err
	}

	for m := mimetype.Detect(data); m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return string(data), nil
		}
	}

	return describe, nil
}

func maybeText(contentType string) bool {
	ct, _, _ := strings.Cut(contentType, ";")

	switch {
	case strings.HasPrefix(ct, "text/"):
		return true
	case ct == "application/json", ct == "application/xml", ct == "application/octet-stream", ct == "":
		return true
	default:
		return false
	}
}

func (s *Hubs) owned(ctx context.Context, caller identity.Caller, hubID string) (*model.Hub, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}

	var hub model.Hub

	err := s.DB.WithContext(ctx).
		Where("id = ?", hubID).
		First(&hub).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("hub", hubID)
		}

		return nil, fmt.Errorf("failed to look up hub, %w", err)
	}

	if hub.OwnerID != caller.ID {
		return nil, apperr.Forbidden("You don't own this hub")
	}

	return &hub, nil
}

func documentsKey(hubID string) string {
	return "vapi:documents:" + hubID
}

// forgetDocuments evicts the cached documents of the given hubs. Every change
// to a hub's membership must call it after the change is committed
func forgetDocuments(c persist.CacheStore, hubIDs ...string) {
	if c == nil {
		return
	}

	for _, id := range hubIDs {
		err := c.Delete(documentsKey(id))
		if err != nil && !errors.Is(err, ttlcache.ErrNotFound) && !errors.Is(err, persist.ErrCacheMiss) {
			zap.L().Error("Failed to evict hub documents", zap.String("hubID", id), zap.Error(err))
		}
	}
}
