package model

import (
	"strings"
	"time"

	"bitwise74/filehub-api/internal/apperr"
	"bitwise74/filehub-api/pkg/validators"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	InviteActive  = "active"
	InviteRevoked = "revoked"
	InviteExpired = "expired"

	MaxInviteRecipients = 50
)

// Invite grants a set of email addresses access to one upload through a link.
// Emails always contains the owner's address.
type Invite struct {
	ID        string      `gorm:"primaryKey" json:"id"`
	OwnerID   string      `gorm:"not null;index" json:"ownerId"`
	UploadID  string      `gorm:"not null;index" json:"uploadId"`
	Emails    StringSlice `gorm:"type:text" json:"emails"`
	Link      string      `gorm:"not null" json:"link"`
	FileName  string      `json:"fileName"`
	CreatedAt time.Time   `gorm:"autoCreateTime" json:"createdAt"`
	ExpiresAt *time.Time  `json:"expiresAt,omitempty"`
	RevokedAt *time.Time  `json:"revokedAt,omitempty"`
}

type InviteOpts struct {
	OwnerID    string
	OwnerEmail string
	UploadID   string
	FileName   string
	Link       string
	Emails     []string
	ExpiresAt  *time.Time
}

// NewInvite validates o and builds the grant. Recipient addresses are
// normalized and deduplicated and the owner's address is added exactly once.
func NewInvite(o InviteOpts) (*Invite, error) {
	if o.OwnerID == "" || o.OwnerEmail == "" {
		return nil, apperr.Unauthenticated()
	}

	if o.UploadID == "" {
		return nil, apperr.BadRequest("No file provided")
	}

	if err := validators.LinkValidator(o.Link); err != nil {
		return nil, apperr.BadRequest(err.Error())
	}

	owner, err := validators.NormalizeEmail(o.OwnerEmail)
	if err != nil {
		return nil, apperr.BadRequest("Owner email is invalid")
	}

	emails, err := normalizeRecipients(o.Emails, owner)
	if err != nil {
		return nil, err
	}

	if o.ExpiresAt != nil && !o.ExpiresAt.After(time.Now()) {
		return nil, apperr.BadRequest("Expiry must be in the future")
	}

	return &Invite{
		ID:        uuid.NewString(),
		OwnerID:   o.OwnerID,
		UploadID:  o.UploadID,
		Emails:    emails,
		Link:      o.Link,
		FileName:  strings.TrimSpace(o.FileName),
		ExpiresAt: o.ExpiresAt,
	}, nil
}

func normalizeRecipients(in []string, owner string) (StringSlice, error) {
	out := make(StringSlice, 0, len(in)+1)
	seen := make(map[string]struct{}, len(in)+1)

	for _, e := range in {
		n, err := validators.NormalizeEmail(e)
		if err != nil {
			return nil, apperr.BadRequest("Invalid email address: " + e)
		}

		if _, ok := seen[n]; ok {
			continue
		}

		seen[n] = struct{}{}
		out = append(out, n)
	}

	if _, ok := seen[owner]; !ok {
		out = append(out, owner)
	}

	switch {
	case len(out) < 2:
		return nil, apperr.BadRequest("At least one recipient is required")
	case len(out) > MaxInviteRecipients:
		return nil, apperr.BadRequest("Too many recipients")
	}

	return out, nil
}

// Status returns the lifecycle state of the invite at time now
func (i *Invite) Status(now time.Time) string {
	switch {
	case i.RevokedAt != nil:
		return InviteRevoked
	case i.ExpiresAt != nil && !now.Before(*i.ExpiresAt):
		return InviteExpired
	default:
		return InviteActive
	}
}

// Recipients returns every address on the invite except the owner's
func (i *Invite) Recipients(ownerEmail string) []string {
	owner := strings.ToLower(ownerEmail)
	out := make([]string, 0, len(i.Emails))

	for _, e := range i.Emails {
		if e != owner {
			out = append(out, e)
		}
	}

	return out
}

func (i *Invite) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}

	return nil
}
