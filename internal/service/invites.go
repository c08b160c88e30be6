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

	"gorm.io/gorm"
)

type Invites struct {
	DB *gorm.DB
	// DefaultTTL applies when CreateInvite.TTL is zero. Zero here means
	// invites never expire by default
	DefaultTTL time.Duration
	Now        func() time.Time
}

func NewInvites(db *gorm.DB, defaultTTL time.Duration) *Invites {
	return &Invites{DB: db, DefaultTTL: defaultTTL, Now: time.Now}
}

type CreateInvite struct {
	StorageID string
	Emails    []string
	Link      string
	// FileName defaults to the upload's name
	FileName string
	// TTL of zero uses the default, a negative TTL never expires
	TTL time.Duration
}

// Create grants the given addresses access to one of the caller's uploads.
// The caller's own address is always part of the grant
func (s *Invites) Create(ctx context.Context, caller identity.Caller, in CreateInvite) (*model.Invite, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}

	if in.StorageID == "" {
		return nil, apperr.BadRequest("No storage ID provided")
	}

	var up model.Upload

	err := s.DB.WithContext(ctx).
		Where("uploader_id = ? AND storage_id = ?", caller.ID, in.StorageID).
		First(&up).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Forbidden("You can only share your own files")
		}

		return nil, fmt.Errorf("failed to look up upload, %w", err)
	}

	name := in.FileName
	if name == "" {
		name = up.Name
	}

	inv, err := model.NewInvite(model.InviteOpts{
		OwnerID:    caller.ID,
		OwnerEmail: caller.Email,
		UploadID:   up.ID,
		FileName:   name,
		Link:       in.Link,
		Emails:     in.Emails,
		ExpiresAt:  s.expiry(in.TTL),
	})
	if err != nil {
		return nil, err
	}

	if err := s.DB.WithContext(ctx).Create(inv).Error; err != nil {
		return nil, fmt.Errorf("failed to create invite, %w", err)
	}

	return inv, nil
}

func (s *Invites) expiry(ttl time.Duration) *time.Time {
	if ttl == 0 {
		ttl = s.DefaultTTL
	}

	if ttl <= 0 {
		return nil
	}

	t := s.now().Add(ttl)
	return &t
}

func (s *Invites) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}

	return s.Now()
}

// Get returns the invite to its owner or to one of its recipients while it
// is active
func (s *Invites) Get(ctx context.Context, caller identity.Caller, inviteID string) (*model.Invite, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}

	inv, err := s.find(ctx, inviteID)
	if err != nil {
		return nil, err
	}

	if inv.OwnerID == caller.ID {
		return inv, nil
	}

	if !inv.Emails.Contains(strings.ToLower(caller.Email)) {
		return nil, apperr.Forbidden("You weren't invited to view this file")
	}

	switch inv.Status(s.now()) {
	case model.InviteRevoked:
		return nil, apperr.Forbidden("This invite was revoked")
	case model.InviteExpired:
		return nil, apperr.Forbidden("This invite has expired")
	}

	return inv, nil
}

// List returns every invite the caller created, newest first
func (s *Invites) List(ctx context.Context, caller identity.Caller) ([]model.Invite, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}

	invites := []model.Invite{}

	err := s.DB.WithContext(ctx).
		Where("owner_id = ?", caller.ID).
		Order("created_at desc, id asc").
		Find(&invites).
		Error
	if err != nil {
		return nil, fmt.Errorf("failed to list invites, %w", err)
	}

	return invites, nil
}

// SharedWith returns the active invites other users created for the caller
func (s *Invites) SharedWith(ctx context.Context, caller identity.Caller) ([]model.Invite, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}

	var candidates []model.Invite

	// The LIKE only narrows the scan, membership is checked on the decoded
	// slice below
	err := s.DB.WithContext(ctx).
		Where("owner_id <> ? AND revoked_at IS NULL AND emails LIKE ?", caller.ID, "%"+strings.ToLower(caller.Email)+"%").
		Order("created_at desc, id asc").
		Find(&candidates).
		Error
	if err != nil {
		return nil, fmt.Errorf("failed to list shared invites, %w", err)
	}

	now := s.now()
	invites := make([]model.Invite, 0, len(candidates))

	for _, inv := range candidates {
		if inv.Emails.Contains(strings.ToLower(caller.Email)) && inv.Status(now) == model.InviteActive {
			invites = append(invites, inv)
		}
	}

	return invites, nil
}

// Revoke ends the invite for every recipient. Revoking twice keeps the first
// revocation time
func (s *Invites) Revoke(ctx context.Context, caller identity.Caller, inviteID string) (*model.Invite, error) {
	inv, err := s.owned(ctx, caller, inviteID)
	if err != nil {
		return nil, err
	}

	if inv.RevokedAt != nil {
		return inv, nil
	}

	now := s.now()

	err = s.DB.WithContext(ctx).
		Model(inv).
		Update("revoked_at", now).
		Error
	if err != nil {
		return nil, fmt.Errorf("failed to revoke invite, %w", err)
	}

	inv.RevokedAt = &now
	return inv, nil
}

func (s *Invites) Delete(ctx context.Context, caller identity.Caller, inviteID string) error {
	inv, err := s.owned(ctx, caller, inviteID)
	if err != nil {
		return err
	}

	if err := s.DB.WithContext(ctx).Delete(inv).Error; err != nil {
		return fmt.Errorf("failed to delete invite, %w", err)
	}

	return nil
}

func (s *Invites) owned(ctx context.Context, caller identity.Caller, inviteID string) (*model.Invite, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}

	inv, err := s.find(ctx, inviteID)
	if err != nil {
		return nil, err
	}

	if inv.OwnerID != caller.ID {
		return nil, apperr.Forbidden("Only the owner can manage this invite")
	}

	return inv, nil
}

func (s *Invites) find(ctx context.Context, inviteID string) (*model.Invite, error) {
	var inv model.Invite

	err := s.DB.WithContext(ctx).
		Where("id = ?", inviteID).
		First(&inv).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("invite", inviteID)
		}

		return nil, fmt.Errorf("failed to look up invite, %w", err)
	}

	return &inv, nil
}
