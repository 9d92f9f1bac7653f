package realtime

import (
	"strconv"
	"time"
)

// Notification is one physical notification row. Several rows may describe one logical event.
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Category  string    `json:"category,omitempty"`
	TargetURL string    `json:"target_url,omitempty"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

// GroupKey identifies the notification group: rows sharing (type, target url, created at)
// are one logical event. Timestamps must match exactly.
func (n Notification) GroupKey() string {
	return n.Type + "|" + n.TargetURL + "|" + strconv.FormatInt(n.CreatedAt.UnixNano(), 10)
}

// NotificationGroup is the grouped view of rows sharing a GroupKey.
type NotificationGroup struct {
	Key     string
	Latest  Notification
	Members []Notification
	Unread  bool
}

type Message struct {
	ID          string    `json:"id"`
	BookingID   string    `json:"booking_id"`
	SenderID    string    `json:"sender_id"`
	ReceiverID  string    `json:"receiver_id"`
	Content     string    `json:"content"`
	MessageType string    `json:"message_type"`
	IsRead      bool      `json:"is_read"`
	ClientRef   string    `json:"client_ref,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewMessage is the insert payload of a send. ClientRef is the idempotency key the server
// echoes back on the canonical record.
type NewMessage struct {
	BookingID   string `json:"-" validate:"required"`
	ReceiverID  string `json:"receiver_id" validate:"required"`
	Content     string `json:"content" validate:"required"`
	MessageType string `json:"message_type" validate:"oneof=text image file system"`
	ClientRef   string `json:"client_ref" validate:"required,uuid"`
}

type Presence struct {
	UserID      string    `json:"user_id"`
	Status      string    `json:"status" validate:"oneof=online away busy offline"`
	LastSeen    time.Time `json:"last_seen"`
	IsAvailable bool      `json:"is_available"`
}
