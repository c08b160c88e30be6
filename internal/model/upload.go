package model

import (
	"strings"
	"time"

	"bitwise74/filehub-api/internal/apperr"
	"bitwise74/filehub-api/pkg/util"

	"gorm.io/gorm"
)

const MaxFileNameSize = 255

// Upload is the metadata record of one binary held in object storage
type Upload struct {
	ID          string    `gorm:"primaryKey" json:"id"`
	UploaderID  string    `gorm:"not null;index;index:idx_uploader_storage,priority:1" json:"uploaderId"`
	StorageID   string    `gorm:"not null;uniqueIndex;index:idx_uploader_storage,priority:2" json:"storageId"`
	Name        string    `gorm:"not null" json:"name"`
	Size        int64     `json:"size"`
	ContentType string    `json:"contentType"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

// NewUpload validates the attributes of an upload record and returns it
// ready for insertion
func NewUpload(uploaderID, storageID, name string, size int64, contentType string) (*Upload, error) {
	name = strings.TrimSpace(name)

	switch {
	case uploaderID == "":
		return nil, apperr.Unauthenticated()
	case storageID == "":
		return nil, apperr.BadRequest("No storage ID provided")
	case name == "":
		return nil, apperr.BadRequest("No file name provided")
	case len(name) > MaxFileNameSize:
		return nil, apperr.BadRequest("File name is too long")
	case size < 0:
		return nil, apperr.BadRequest("Invalid file size")
	}

	if contentType == "" {
		contentType = "application/octet-stream"
	}

	return &Upload{
		ID:          util.NewID(),
		UploaderID:  uploaderID,
		StorageID:   storageID,
		Name:        name,
		Size:        size,
		ContentType: contentType,
	}, nil
}

func (u *Upload) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = util.NewID()
	}

	return nil
}
