package models

import "time"

// UserPresence holds one row per user, upserted by the user's own sessions.
type UserPresence struct {
	UserID      string    `gorm:"primaryKey;size:36" json:"user_id"`
	Status      string    `gorm:"size:20;not null;index" json:"status"` // online, away, busy, offline
	LastSeen    time.Time `gorm:"not null;index" json:"last_seen"`
	IsAvailable bool      `gorm:"not null" json:"is_available"`
	UpdatedAt   time.Time `json:"-"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

func (UserPresence) TableName() string {
	return "user_presence"
}
