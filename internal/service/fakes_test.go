package service

import (
	"context"
	"sync"

	"marketsync/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type published struct {
	Table, Scope, Kind string
	Record             interface{}
}

type fakeHub struct {
	mu   sync.Mutex
	sent []published
}

func (h *fakeHub) Publish(table, scope, kind string, record interface{}) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sent = append(h.sent, published{table, scope, kind, record})
}

func (h *fakeHub) on(table string) []published {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []published
	for _, p := range h.sent {
		if p.Table == table {
			out = append(out, p)
		}
	}
	return out
}

type fakeNotifStore struct {
	rows []models.Notification
}

func (s *fakeNotifStore) CreateBatch(list []models.Notification) error {
	for i := range list {
		list[i].ID = uuid.NewString()
	}
	s.rows = append(s.rows, list...)
	return nil
}

func (s *fakeNotifStore) ListRecentByUserID(userID string, limit int) ([]models.Notification, error) {
	var out []models.Notification
	for _, n := range s.rows {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (s *fakeNotifStore) SetRead(userID string, ids []string, read bool) ([]models.Notification, error) {
	want := map[string]bool{}
	for _, id := range ids {
		want[id] = true
	}
	var changed []models.Notification
	for i := range s.rows {
		n := &s.rows[i]
		if n.UserID == userID && want[n.ID] && n.IsRead != read {
			n.IsRead = read
			changed = append(changed, *n)
		}
	}
	return changed, nil
}

func (s *fakeNotifStore) MarkAllRead(userID string) ([]models.Notification, error) {
	var changed []models.Notification
	for i := range s.rows {
		n := &s.rows[i]
		if n.UserID == userID && !n.IsRead {
			n.IsRead = true
			changed = append(changed, *n)
		}
	}
	return changed, nil
}

type fakeUsers struct {
	users map[string]*models.User
}

func newFakeUsers(users ...models.User) *fakeUsers {
	f := &fakeUsers{users: map[string]*models.User{}}
	for i := range users {
		u := users[i]
		f.users[u.ID] = &u
	}
	return f
}

func (f *fakeUsers) GetByID(id string) (*models.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUsers) EnsureExists(id, displayName string) (*models.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	u := &models.User{ID: id, DisplayName: displayName}
	f.users[id] = u
	return u, nil
}

type push struct {
	Token, Type, Title, Body string
}

type fakePusher struct {
	sent []push
}

func (p *fakePusher) SendToUser(_ context.Context, token, notifType, title, body string, _ map[string]interface{}) error {
	p.sent = append(p.sent, push{token, notifType, title, body})
	return nil
}

type fakeBookings struct {
	rows map[string]*models.Booking
}

func (f *fakeBookings) Create(b *models.Booking) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	f.rows[b.ID] = b
	return nil
}

func (f *fakeBookings) GetByID(id string) (*models.Booking, error) {
	if b, ok := f.rows[id]; ok {
		cp := *b
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeBookings) UpdateStatus(id, status string) error {
	if b, ok := f.rows[id]; ok {
		b.Status = status
		return nil
	}
	return gorm.ErrRecordNotFound
}

type fakeMessages struct {
	rows []models.ChatMessage
}

func (f *fakeMessages) Create(m *models.ChatMessage) error {
	m.ID = uuid.NewString()
	f.rows = append(f.rows, *m)
	return nil
}

func (f *fakeMessages) GetByClientRef(ref string) (*models.ChatMessage, error) {
	for i := range f.rows {
		if f.rows[i].ClientRef != nil && *f.rows[i].ClientRef == ref {
			m := f.rows[i]
			return &m, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeMessages) ListByBookingID(bookingID string, limit int) ([]models.ChatMessage, error) {
	var out []models.ChatMessage
	for _, m := range f.rows {
		if m.BookingID == bookingID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeMessages) MarkThreadRead(bookingID, senderID, receiverID string) ([]models.ChatMessage, error) {
	var changed []models.ChatMessage
	for i := range f.rows {
		m := &f.rows[i]
		if m.BookingID == bookingID && m.SenderID == senderID && m.ReceiverID == receiverID && !m.IsRead {
			m.IsRead = true
			changed = append(changed, *m)
		}
	}
	return changed, nil
}

type fakePresence struct {
	rows map[string]models.UserPresence
}

func (f *fakePresence) Upsert(p *models.UserPresence) (bool, error) {
	_, existed := f.rows[p.UserID]
	f.rows[p.UserID] = *p
	return !existed, nil
}

func (f *fakePresence) List() ([]models.UserPresence, error) {
	var out []models.UserPresence
	for _, p := range f.rows {
		out = append(out, p)
	}
	return out, nil
}

// world wires every service over in-memory stores.
type world struct {
	hub      *fakeHub
	users    *fakeUsers
	pusher   *fakePusher
	notifs   *fakeNotifStore
	bookings *fakeBookings
	messages *fakeMessages

	notif   *NotificationService
	booking *BookingService
	chat    *MessageService
}

func newWorld() *world {
	w := &world{
		hub:      &fakeHub{},
		users:    newFakeUsers(models.User{ID: "client", DisplayName: "Ann", FCMToken: "tok-client"}, models.User{ID: "provider", DisplayName: "Bob"}),
		pusher:   &fakePusher{},
		notifs:   &fakeNotifStore{},
		bookings: &fakeBookings{rows: map[string]*models.Booking{}},
		messages: &fakeMessages{},
	}
	w.notif = NewNotificationService(w.notifs, w.users, w.pusher, w.hub)
	w.booking = NewBookingService(w.bookings, w.users, w.notif)
	w.chat = NewMessageService(w.messages, w.booking, w.notif, w.hub)
	return w
}
