package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID          string         `gorm:"primaryKey;size:36" json:"id"`
	DisplayName string         `gorm:"size:100;not null;default:''" json:"display_name"`
	FCMToken    string         `gorm:"size:512" json:"-"` // For push notifications
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// Name returns the display name, falling back to a short id.
func (u *User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	if len(u.ID) > 8 {
		return "user " + u.ID[:8]
	}
	return "user " + u.ID
}
