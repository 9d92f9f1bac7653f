package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Notification is one physical row. Triggers may write several rows for one logical
// event; those share Type, TargetURL and CreatedAt.
type Notification struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	UserID    string    `gorm:"size:36;not null;index:idx_notifications_user_created" json:"user_id"`
	Type      string    `gorm:"size:50;not null;index" json:"type"`
	Message   string    `gorm:"type:text" json:"message"`
	Category  string    `gorm:"size:20" json:"category,omitempty"`
	TargetURL string    `gorm:"size:255" json:"target_url,omitempty"`
	IsRead    bool      `gorm:"default:false;index" json:"is_read"`
	CreatedAt time.Time `gorm:"index:idx_notifications_user_created" json:"created_at"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

func (Notification) TableName() string {
	return "notifications"
}

func (n *Notification) BeforeCreate(*gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	return nil
}
