package service

import (
	"context"
	"log"
	"time"

	"marketsync/internal/domain"
	"marketsync/internal/models"
)

// Publisher pushes one change to the feed subscribers of (table, scope).
type Publisher interface {
	Publish(table, scope, kind string, record interface{})
}

type NotificationStore interface {
	CreateBatch(list []models.Notification) error
	ListRecentByUserID(userID string, limit int) ([]models.Notification, error)
	SetRead(userID string, ids []string, read bool) ([]models.Notification, error)
	MarkAllRead(userID string) ([]models.Notification, error)
}

type UserLookup interface {
	GetByID(id string) (*models.User, error)
}

// Pusher delivers a device push. *FCMService implements it and is nil-safe.
type Pusher interface {
	SendToUser(ctx context.Context, fcmToken string, notifType, title, body string, data map[string]interface{}) error
}

type NotificationService struct {
	repo     NotificationStore
	userRepo UserLookup
	fcm      Pusher
	hub      Publisher
	now      func() time.Time
}

func NewNotificationService(repo NotificationStore, userRepo UserLookup, fcm Pusher, hub Publisher) *NotificationService {
	return &NotificationService{repo: repo, userRepo: userRepo, fcm: fcm, hub: hub, now: now}
}

// now is the storage clock: UTC at millisecond precision, so a row read back from
// the database carries the same created_at that was pushed on the feed.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// Notify writes one notification row for userID.
func (s *NotificationService) Notify(userID, notifType, message, category, targetURL string) error {
	return s.trigger(userID, notifType, message, category, targetURL, 1)
}

// trigger writes copies rows for one logical event. All copies share created_at, which
// is what the client groups on.
func (s *NotificationService) trigger(userID, notifType, message, category, targetURL string, copies int) error {
	at := s.now()
	rows := make([]models.Notification, copies)
	for i := range rows {
		rows[i] = models.Notification{
			UserID:    userID,
			Type:      notifType,
			Message:   message,
			Category:  category,
			TargetURL: targetURL,
			CreatedAt: at,
		}
	}
	if err := s.repo.CreateBatch(rows); err != nil {
		return err
	}
	for i := range rows {
		s.hub.Publish(domain.TableNotifications, userID, domain.EventInsert, rows[i])
	}
	s.sendPush(rows[0])
	return nil
}

func (s *NotificationService) sendPush(n models.Notification) {
	if s.fcm == nil || s.userRepo == nil {
		return
	}
	u, err := s.userRepo.GetByID(n.UserID)
	if err != nil || u == nil || u.FCMToken == "" {
		return
	}
	data := map[string]interface{}{"notification_id": n.ID, "target_url": n.TargetURL}
	if err := s.fcm.SendToUser(context.Background(), u.FCMToken, n.Type, pushTitle(n.Type), n.Message, data); err != nil {
		log.Printf("[FCM] push %s to %s: %v", n.Type, n.UserID, err)
	}
}

func pushTitle(notifType string) string {
	switch notifType {
	case domain.NotifBookingRequested:
		return "New booking request"
	case domain.NotifQuoteReceived:
		return "New quote"
	case domain.NotifBookingConfirmed:
		return "Booking confirmed"
	case domain.NotifNewMessage:
		return "New message"
	}
	return "Notification"
}

func (s *NotificationService) NotifyBookingRequested(providerID, clientName, bookingID string) error {
	return s.Notify(providerID, domain.NotifBookingRequested, clientName+" requested a booking", domain.CategoryBooking, bookingURL(bookingID))
}

// NotifyQuoteReceived runs both quote triggers: the booking status trigger and the quote
// insert trigger each notify the recipient, producing two rows for one quote.
func (s *NotificationService) NotifyQuoteReceived(userID, fromName, bookingID, message string) error {
	text := fromName + " sent you a quote"
	if message != "" {
		text += ": " + message
	}
	return s.trigger(userID, domain.NotifQuoteReceived, text, domain.CategoryBooking, bookingURL(bookingID), 2)
}

func (s *NotificationService) NotifyNewMessage(receiverID, senderName, bookingID, preview string) error {
	return s.Notify(receiverID, domain.NotifNewMessage, senderName+": "+truncate(preview, 80), domain.CategoryChat, "/chat/"+bookingID)
}

func (s *NotificationService) List(userID string, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	list, err := s.repo.ListRecentByUserID(userID, limit)
	if list == nil {
		list = []models.Notification{}
	}
	return list, err
}

// SetRead flips the caller's rows and pushes an update per changed row.
func (s *NotificationService) SetRead(userID string, ids []string, read bool) (int, error) {
	changed, err := s.repo.SetRead(userID, ids, read)
	if err != nil {
		return 0, err
	}
	s.publishUpdates(userID, changed)
	return len(changed), nil
}

func (s *NotificationService) MarkAllRead(userID string) (int, error) {
	changed, err := s.repo.MarkAllRead(userID)
	if err != nil {
		return 0, err
	}
	s.publishUpdates(userID, changed)
	return len(changed), nil
}

func (s *NotificationService) publishUpdates(userID string, rows []models.Notification) {
	for i := range rows {
		s.hub.Publish(domain.TableNotifications, userID, domain.EventUpdate, rows[i])
	}
}

func bookingURL(bookingID string) string { return "/bookings/" + bookingID }

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
