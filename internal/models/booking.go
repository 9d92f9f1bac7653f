package models

import (
	"time"

	"marketsync/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Booking is a client's request to a provider. Its id scopes the chat thread.
type Booking struct {
	ID         string         `gorm:"primaryKey;size:36" json:"id"`
	ClientID   string         `gorm:"size:36;not null;index" json:"client_id"`
	ProviderID string         `gorm:"size:36;not null;index" json:"provider_id"`
	Status     string         `gorm:"size:20;not null;index" json:"status"` // requested, quoted, confirmed, cancelled
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`

	Client   User `gorm:"foreignKey:ClientID" json:"-"`
	Provider User `gorm:"foreignKey:ProviderID" json:"-"`
}

func (Booking) TableName() string {
	return "bookings"
}

func (b *Booking) BeforeCreate(*gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.Status == "" {
		b.Status = domain.BookingStatusRequested
	}
	return nil
}

func (b *Booking) HasParticipant(userID string) bool {
	return userID != "" && (b.ClientID == userID || b.ProviderID == userID)
}

// Counterpart returns the other participant of the booking.
func (b *Booking) Counterpart(userID string) string {
	if b.ClientID == userID {
		return b.ProviderID
	}
	return b.ClientID
}
