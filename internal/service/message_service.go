package service

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"marketsync/internal/domain"
	"marketsync/internal/models"

	"gorm.io/gorm"
)

type MessageStore interface {
	Create(m *models.ChatMessage) error
	GetByClientRef(ref string) (*models.ChatMessage, error)
	ListByBookingID(bookingID string, limit int) ([]models.ChatMessage, error)
	MarkThreadRead(bookingID, senderID, receiverID string) ([]models.ChatMessage, error)
}

// SendMessageInput is one client send. ClientRef makes retries idempotent.
type SendMessageInput struct {
	ReceiverID  string
	Content     string
	MessageType string
	ClientRef   string
}

type MessageService struct {
	repo     MessageStore
	bookings *BookingService
	notif    *NotificationService
	hub      Publisher
}

func NewMessageService(repo MessageStore, bookings *BookingService, notif *NotificationService, hub Publisher) *MessageService {
	return &MessageService{repo: repo, bookings: bookings, notif: notif, hub: hub}
}

func (s *MessageService) List(bookingID, userID string, limit int) ([]models.ChatMessage, error) {
	if _, err := s.bookings.Participant(bookingID, userID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 500 {
		limit = 200
	}
	list, err := s.repo.ListByBookingID(bookingID, limit)
	if list == nil {
		list = []models.ChatMessage{}
	}
	return list, err
}

// Send stores a message and pushes it to the thread. A resend with a known client_ref
// returns the stored row with created=false and pushes nothing.
func (s *MessageService) Send(bookingID, senderID string, in SendMessageInput) (msg *models.ChatMessage, created bool, err error) {
	b, err := s.bookings.Participant(bookingID, senderID)
	if err != nil {
		return nil, false, err
	}
	if in.ReceiverID != b.Counterpart(senderID) {
		return nil, false, fmt.Errorf("%w: receiver_id is not the other participant", ErrInvalidInput)
	}
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, false, fmt.Errorf("%w: content", ErrInvalidInput)
	}
	if in.MessageType == "" {
		in.MessageType = domain.MessageTypeText
	}

	if in.ClientRef != "" {
		if existing, err := s.byClientRef(in.ClientRef, senderID); existing != nil || err != nil {
			return existing, false, err
		}
	}

	at := now()
	m := &models.ChatMessage{
		BookingID:   bookingID,
		SenderID:    senderID,
		ReceiverID:  in.ReceiverID,
		Content:     content,
		MessageType: in.MessageType,
		CreatedAt:   at,
		UpdatedAt:   at,
	}
	if in.ClientRef != "" {
		ref := in.ClientRef
		m.ClientRef = &ref
	}
	if err := s.repo.Create(m); err != nil {
		// a concurrent retry may have won the unique index
		if in.ClientRef != "" {
			if existing, lookupErr := s.byClientRef(in.ClientRef, senderID); existing != nil || lookupErr != nil {
				return existing, false, lookupErr
			}
		}
		return nil, false, err
	}

	s.hub.Publish(domain.TableMessages, bookingID, domain.EventInsert, *m)
	if err := s.notif.NotifyNewMessage(m.ReceiverID, displayName(s.bookings.userRepo, senderID), bookingID, preview(m)); err != nil {
		log.Printf("[chat] notify %s: %v", m.ReceiverID, err)
	}
	return m, true, nil
}

func (s *MessageService) byClientRef(ref, senderID string) (*models.ChatMessage, error) {
	existing, err := s.repo.GetByClientRef(ref)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if existing.SenderID != senderID {
		return nil, fmt.Errorf("%w: client_ref already used", ErrInvalidInput)
	}
	return existing, nil
}

// MarkThreadRead marks every unread message from senderID to the caller as read and
// pushes an update per changed row.
func (s *MessageService) MarkThreadRead(bookingID, readerID, senderID string) (int, error) {
	b, err := s.bookings.Participant(bookingID, readerID)
	if err != nil {
		return 0, err
	}
	if senderID != b.Counterpart(readerID) {
		return 0, fmt.Errorf("%w: sender_id is not the other participant", ErrInvalidInput)
	}
	changed, err := s.repo.MarkThreadRead(bookingID, senderID, readerID)
	if err != nil {
		return 0, err
	}
	for i := range changed {
		s.hub.Publish(domain.TableMessages, bookingID, domain.EventUpdate, changed[i])
	}
	return len(changed), nil
}

func preview(m *models.ChatMessage) string {
	switch m.MessageType {
	case domain.MessageTypeImage:
		return "sent a photo"
	case domain.MessageTypeFile:
		return "sent a file"
	}
	return m.Content
}
