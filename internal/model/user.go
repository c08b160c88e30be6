// Package model defines database models
package model

import "time"

type User struct {
	ID           string     `gorm:"primaryKey" json:"id"`
	Email        string     `gorm:"unique;not null" json:"email"`
	Name         string     `json:"name"`
	PasswordHash string     `gorm:"not null" json:"-"`
	Verified     bool       `gorm:"default:false" json:"verified"`
	Admin        bool       `gorm:"default:false" json:"admin"`
	ExpiresAt    *time.Time `json:"-"` // Unverified accounts are removed after this point

	VerificationTokens []VerificationToken `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Uploads            []Upload            `gorm:"foreignKey:UploaderID" json:"-"`
	Stats              Stats               `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}
