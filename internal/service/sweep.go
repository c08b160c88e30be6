package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitwise74/filehub-api/internal/model"
	"bitwise74/filehub-api/internal/storage"

	"github.com/chenyahui/gin-cache/persist"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Sweeper removes what request handlers leave behind: objects that were
// never recorded or whose delete failed, memberships and invites pointing at
// vanished records, stale verification tokens and accounts that were never
// verified
type Sweeper struct {
	DB    *gorm.DB
	Store storage.Store
	// Grace is how old an unrecorded object must be before it is deleted.
	// Clients need time to call Record after uploading through a write handle
	Grace time.Duration
	// Retention is how long expired or revoked invites are kept around
	Retention time.Duration
	// Cache is the hub documents store, evicted for every hub a sweep touches
	Cache persist.CacheStore
	Now   func() time.Time
}

func NewSweeper(db *gorm.DB, s storage.Store, grace, retention time.Duration) *Sweeper {
	return &Sweeper{
		DB:        db,
		Store:     s,
		Grace:     grace,
		Retention: retention,
		Now:       time.Now,
	}
}

// Start runs the sweeper every t until ctx is cancelled
func (s *Sweeper) Start(ctx context.Context, t time.Duration) {
	ticker := time.NewTicker(t)

	zap.L().Debug("Sweeper attached", zap.Duration("tick_every", t))

	go func() {
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := s.Run(ctx); err != nil {
					zap.L().Error("Sweep finished with errors", zap.Error(err))
					continue
				}

				zap.L().Debug("Sweep finished")
			}
		}
	}()
}

// Run performs one pass. Every step runs even when an earlier one fails
func (s *Sweeper) Run(ctx context.Context) error {
	return errors.Join(
		s.Accounts(ctx),
		s.Tokens(ctx),
		s.Memberships(ctx),
		s.Invites(ctx),
		s.Objects(ctx),
	)
}

func (s *Sweeper) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}

	return s.Now()
}

// Accounts deletes users whose verification window passed along with
// everything they own
func (s *Sweeper) Accounts(ctx context.Context) error {
	var userIDs []string

	err := s.DB.WithContext(ctx).
		Model(model.User{}).
		Where("expires_at < ?", s.now()).
		Pluck("id", &userIDs).
		Error
	if err != nil {
		return fmt.Errorf("failed to query db for users to clean, %w", err)
	}

	if len(userIDs) == 0 {
		return nil
	}

	var keys []string

	err = s.DB.WithContext(ctx).
		Model(model.Upload{}).
		Where("uploader_id IN ?", userIDs).
		Pluck("storage_id", &keys).
		Error
	if err != nil {
		return fmt.Errorf("failed to query db for uploads to clean, %w", err)
	}

	// Hubs only hold their owner's uploads, so these are all the hubs affected
	var hubIDs []string

	err = s.DB.WithContext(ctx).
		Model(model.Hub{}).
		Where("owner_id IN ?", userIDs).
		Pluck("id", &hubIDs).
		Error
	if err != nil {
		return fmt.Errorf("failed to query db for hubs to clean, %w", err)
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		hubs := tx.Model(model.Hub{}).Select("id").Where("owner_id IN ?", userIDs)
		uploads := tx.Model(model.Upload{}).Select("id").Where("uploader_id IN ?", userIDs)

		if err := tx.Where("hub_id IN (?) OR upload_id IN (?)", hubs, uploads).Delete(&model.HubFile{}).Error; err != nil {
			return err
		}

		if err := tx.Where("owner_id IN ? OR upload_id IN (?)", userIDs, uploads).Delete(&model.Invite{}).Error; err != nil {
			return err
		}

		if err := tx.Where("owner_id IN ?", userIDs).Delete(&model.Hub{}).Error; err != nil {
			return err
		}

		if err := tx.Where("uploader_id IN ?", userIDs).Delete(&model.Upload{}).Error; err != nil {
			return err
		}

		if err := tx.Where("user_id IN ?", userIDs).Delete(&model.VerificationToken{}).Error; err != nil {
			return err
		}

		if err := tx.Where("user_id IN ?", userIDs).Delete(&model.Stats{}).Error; err != nil {
			return err
		}

		return tx.Where("id IN ?", userIDs).Delete(&model.User{}).Error
	})
	if err != nil {
		return fmt.Errorf("failed to delete users from database, %w", err)
	}

	forgetDocuments(s.Cache, hubIDs...)

	if len(keys) > 0 {
		if err := s.Store.Delete(ctx, keys...); err != nil {
			return err
		}
	}

	zap.L().Debug("Cleaned up unverified accounts", zap.Int("count", len(userIDs)))
	return nil
}

// Tokens deletes verification tokens past their cleanup time, or past their
// expiry when no cleanup time was set
func (s *Sweeper) Tokens(ctx context.Context) error {
	now := s.now()

	res := s.DB.WithContext(ctx).
		Where("cleanup_at < ? OR (cleanup_at IS NULL AND expires_at < ?)", now, now).
		Delete(&model.VerificationToken{})
	if res.Error != nil {
		return fmt.Errorf("failed to cleanup tokens, %w", res.Error)
	}

	if res.RowsAffected > 0 {
		zap.L().Debug("Cleaned up expired tokens", zap.Int64("count", res.RowsAffected))
	}

	return nil
}

// Memberships deletes hub files whose hub or upload no longer exists
func (s *Sweeper) Memberships(ctx context.Context) error {
	hubs := s.DB.Model(model.Hub{}).Select("id")
	uploads := s.DB.Model(model.Upload{}).Select("id")

	var hubIDs []string

	err := s.DB.WithContext(ctx).
		Model(model.HubFile{}).
		Where("hub_id NOT IN (?) OR upload_id NOT IN (?)", hubs, uploads).
		Distinct().
		Pluck("hub_id", &hubIDs).
		Error
	if err != nil {
		return fmt.Errorf("failed to query db for orphaned hub files, %w", err)
	}

	res := s.DB.WithContext(ctx).
		Where("hub_id NOT IN (?) OR upload_id NOT IN (?)", hubs, uploads).
		Delete(&model.HubFile{})
	if res.Error != nil {
		return fmt.Errorf("failed to cleanup hub files, %w", res.Error)
	}

	forgetDocuments(s.Cache, hubIDs...)

	if res.RowsAffected > 0 {
		zap.L().Debug("Cleaned up orphaned hub files", zap.Int64("count", res.RowsAffected))
	}

	return nil
}

// Invites deletes invites whose upload vanished and invites that expired or
// were revoked longer than the retention window ago
func (s *Sweeper) Invites(ctx context.Context) error {
	cutoff := s.now().Add(-s.Retention)
	uploads := s.DB.Model(model.Upload{}).Select("id")

	res := s.DB.WithContext(ctx).
		Where("upload_id NOT IN (?) OR expires_at < ? OR revoked_at < ?", uploads, cutoff, cutoff).
		Delete(&model.Invite{})
	if res.Error != nil {
		return fmt.Errorf("failed to cleanup invites, %w", res.Error)
	}

	if res.RowsAffected > 0 {
		zap.L().Debug("Cleaned up stale invites", zap.Int64("count", res.RowsAffected))
	}

	return nil
}

// Objects deletes stored objects no upload references once they are older
// than the grace period
func (s *Sweeper) Objects(ctx context.Context) error {
	objects, err := s.Store.List(ctx, "uploads/")
	if err != nil {
		return err
	}

	if len(objects) == 0 {
		return nil
	}

	var known []string

	err = s.DB.WithContext(ctx).
		Model(model.Upload{}).
		Pluck("storage_id", &known).
		Error
	if err != nil {
		return fmt.Errorf("failed to query db for uploads, %w", err)
	}

	recorded := make(map[string]struct{}, len(known))
	for _, k := range known {
		recorded[k] = struct{}{}
	}

	cutoff := s.now().Add(-s.Grace)
	var orphans []string

	for _, o := range objects {
		if _, ok := recorded[o.Key]; ok {
			continue
		}

		if o.LastModified.Before(cutoff) {
			orphans = append(orphans, o.Key)
		}
	}

	if len(orphans) == 0 {
		return nil
	}

	if err := s.Store.Delete(ctx, orphans...); err != nil {
		return err
	}

	zap.L().Debug("Cleaned up orphaned objects", zap.Int("count", len(orphans)))
	return nil
}
