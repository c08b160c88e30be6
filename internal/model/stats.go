package model

// Stats is the per-user storage quota. UsedStorage is consumed when an upload
// is recorded and released when it is deleted.
type Stats struct {
	UserID        string `gorm:"primaryKey" json:"-"`
	MaxStorage    int64  `json:"maxStorage"`
	UsedStorage   int64  `json:"usedStorage"`
	UploadedFiles int    `json:"uploadedFiles"`
}

// Allows reports whether size more bytes fit into the quota. A zero
// MaxStorage means unlimited.
func (s Stats) Allows(size int64) bool {
	if s.MaxStorage <= 0 {
		return true
	}

	return s.UsedStorage+size <= s.MaxStorage
}
