package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ChatMessage struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	BookingID   string    `gorm:"size:36;not null;index:idx_messages_booking_created" json:"booking_id"`
	SenderID    string    `gorm:"size:36;not null;index" json:"sender_id"`
	ReceiverID  string    `gorm:"size:36;not null;index" json:"receiver_id"`
	Content     string    `gorm:"type:text" json:"content"`
	MessageType string    `gorm:"size:20;not null;default:'text'" json:"message_type"`
	IsRead      bool      `gorm:"default:false" json:"is_read"`
	ClientRef   *string   `gorm:"uniqueIndex;size:36" json:"client_ref,omitempty"` // nil for server-authored messages
	CreatedAt   time.Time `gorm:"index:idx_messages_booking_created" json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Booking Booking `gorm:"foreignKey:BookingID" json:"-"`
}

func (ChatMessage) TableName() string {
	return "messages"
}

func (m *ChatMessage) BeforeCreate(*gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}
