package model

import (
	"strings"
	"time"

	"bitwise74/filehub-api/internal/apperr"
	"bitwise74/filehub-api/pkg/util"

	"gorm.io/gorm"
)

const (
	MaxHubNameSize        = 100
	MaxHubDescriptionSize = 1000
)

// Hub is a named collection of uploads owned by one user
type Hub struct {
	ID          string    `gorm:"primaryKey" json:"id"`
	OwnerID     string    `gorm:"not null;index" json:"ownerId"`
	Name        string    `gorm:"not null" json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

// HubFile joins a hub and an upload. One row per (hub, upload) pair
type HubFile struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	HubID     string    `gorm:"not null;index;uniqueIndex:idx_hub_upload" json:"hubId"`
	UploadID  string    `gorm:"not null;index;uniqueIndex:idx_hub_upload" json:"uploadId"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`

	Upload *Upload `gorm:"foreignKey:UploadID" json:"upload,omitempty"`
}

func NewHub(ownerID, name, description string) (*Hub, error) {
	name = strings.TrimSpace(name)
	description = strings.TrimSpace(description)

	switch {
	case ownerID == "":
		return nil, apperr.Unauthenticated()
	case name == "":
		return nil, apperr.BadRequest("Hub name can't be empty")
	case len(name) > MaxHubNameSize:
		return nil, apperr.BadRequest("Hub name is too long")
	case len(description) > MaxHubDescriptionSize:
		return nil, apperr.BadRequest("Hub description is too long")
	}

	return &Hub{
		ID:          util.NewID(),
		OwnerID:     ownerID,
		Name:        name,
		Description: description,
	}, nil
}

func (h *Hub) BeforeCreate(tx *gorm.DB) error {
	if h.ID == "" {
		h.ID = util.NewID()
	}

	return nil
}

func (f *HubFile) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = util.NewID()
	}

	return nil
}
