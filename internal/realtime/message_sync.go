package realtime

import (
	"context"
	"io"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"marketsync/internal/domain"
)

type MessageWriter interface {
	Insert(ctx context.Context, m NewMessage) (Message, error)
	// MarkThreadRead marks every unread message from senderID to the caller in bookingID read.
	MarkThreadRead(ctx context.Context, bookingID, senderID string) error
}

// Uploader stores an attachment and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, r io.Reader, filename string) (string, error)
}

type MessageSyncConfig struct {
	ReadReceiptDelay time.Duration
	PendingWindow    time.Duration
	// ReceiptTimeout bounds the delayed read-receipt RPC.
	ReceiptTimeout time.Duration
	// OnAnomaly receives own-sender inserts that match no in-flight send. Defaults to logging.
	OnAnomaly func(err error)
}

type inflightSend struct {
	bookingID string
	content   string
	startedAt time.Time
}

// MessageSync keeps one booking thread. Sends are confirmed by the backend before they
// enter the store, keyed by the server id, so the later feed echo is an in-place update.
type MessageSync struct {
	*Controller[Message]
	self     string
	writer   MessageWriter
	uploader Uploader
	cfg      MessageSyncConfig
	receipts *Scheduler

	mu       sync.Mutex
	focused  bool
	inflight map[string]inflightSend // by client ref
}

func NewMessageSync(self string, query Query[Message], feed Feed[Message], writer MessageWriter, uploader Uploader, cfg MessageSyncConfig) *MessageSync {
	if cfg.ReadReceiptDelay <= 0 {
		cfg.ReadReceiptDelay = time.Second
	}
	if cfg.PendingWindow <= 0 {
		cfg.PendingWindow = 10 * time.Second
	}
	if cfg.ReceiptTimeout <= 0 {
		cfg.ReceiptTimeout = 10 * time.Second
	}
	if cfg.OnAnomaly == nil {
		cfg.OnAnomaly = func(err error) { log.Printf("[sync:%s] %v", domain.TableMessages, err) }
	}
	s := &MessageSync{
		self:     self,
		writer:   writer,
		uploader: uploader,
		cfg:      cfg,
		receipts: NewScheduler(),
		focused:  true,
		inflight: make(map[string]inflightSend),
	}
	s.Controller = NewController(ControllerConfig[Message]{
		Name:     domain.TableMessages,
		Query:    query,
		Feed:     feed,
		Key:      func(m Message) string { return m.ID },
		Merge:    newerMessage,
		OnMerged: s.merged,
	})
	return s
}

// newerMessage keeps the held record when the incoming one was written earlier, so a
// send's RPC result cannot undo a read receipt the feed already delivered. Messages are
// never marked unread, so read state also survives a same-millisecond tie.
func newerMessage(existing, incoming Message) Message {
	if incoming.UpdatedAt.Before(existing.UpdatedAt) {
		return existing
	}
	incoming.IsRead = incoming.IsRead || existing.IsRead
	return incoming
}

// Deactivate cancels pending read receipts and detaches the thread.
func (s *MessageSync) Deactivate() {
	s.receipts.CancelAll()
	s.Controller.Deactivate()
}

// SetFocused records whether the thread view has focus. Regaining focus schedules
// read receipts for anything that arrived unread meanwhile.
func (s *MessageSync) SetFocused(focused bool) {
	s.mu.Lock()
	s.focused = focused
	s.mu.Unlock()
	if !focused {
		return
	}
	senders := make(map[string]struct{})
	for _, m := range s.store.Snapshot() {
		if m.ReceiverID == s.self && !m.IsRead {
			senders[m.SenderID] = struct{}{}
		}
	}
	for sender := range senders {
		s.scheduleReceipt(sender)
	}
}

// Send persists a message in the active thread and merges the canonical record.
// Nothing is stored locally if the backend rejects it.
func (s *MessageSync) Send(ctx context.Context, content, receiverID, messageType string) (Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return Message{}, &ValidationError{Field: "content", Reason: "empty"}
	}
	bookingID := s.Scope()
	if bookingID == "" {
		return Message{}, &ValidationError{Field: "booking_id", Reason: "no active thread"}
	}
	if messageType == "" {
		messageType = domain.MessageTypeText
	}
	nm := NewMessage{
		BookingID:   bookingID,
		ReceiverID:  receiverID,
		Content:     content,
		MessageType: messageType,
		ClientRef:   uuid.NewString(),
	}
	if err := check(nm); err != nil {
		return Message{}, err
	}

	s.mu.Lock()
	s.inflight[nm.ClientRef] = inflightSend{bookingID: bookingID, content: content, startedAt: time.Now()}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.inflight, nm.ClientRef)
		s.mu.Unlock()
	}()

	msg, err := s.writer.Insert(ctx, nm)
	if err != nil {
		return Message{}, asTransport(domain.TableMessages+".insert", err)
	}
	s.commit(bookingID, msg)
	if cur, ok := s.store.Get(msg.ID); ok {
		msg = cur
	}
	return msg, nil
}

// SendAttachment uploads r and sends its URL as an image or file message.
func (s *MessageSync) SendAttachment(ctx context.Context, r io.Reader, filename, receiverID, messageType string) (Message, error) {
	if messageType != domain.MessageTypeImage && messageType != domain.MessageTypeFile {
		return Message{}, &ValidationError{Field: "message_type", Reason: "attachments are image or file"}
	}
	if s.Scope() == "" {
		return Message{}, &ValidationError{Field: "booking_id", Reason: "no active thread"}
	}
	if s.uploader == nil {
		return Message{}, &ValidationError{Field: "attachment", Reason: "uploads not configured"}
	}
	url, err := s.uploader.Upload(ctx, r, filename)
	if err != nil {
		return Message{}, asTransport("uploads.chat", err)
	}
	return s.Send(ctx, url, receiverID, messageType)
}

// MarkThreadRead marks everything senderID sent to the local user in this thread as read.
// The local records flip once the backend confirms.
func (s *MessageSync) MarkThreadRead(ctx context.Context, senderID string) error {
	bookingID := s.Scope()
	if bookingID == "" {
		return &ValidationError{Field: "booking_id", Reason: "no active thread"}
	}
	if err := s.writer.MarkThreadRead(ctx, bookingID, senderID); err != nil {
		return asTransport(domain.TableMessages+".mark_read", err)
	}
	s.store.UpdateWhere(func(m Message) bool {
		return m.BookingID == bookingID && m.SenderID == senderID && m.ReceiverID == s.self && !m.IsRead
	}, func(m *Message) { m.IsRead = true })
	return nil
}

// Thread returns the messages ascending by creation time.
func (s *MessageSync) Thread() []Message {
	msgs := s.store.Snapshot()
	sort.SliceStable(msgs, func(i, j int) bool { return msgs[i].CreatedAt.Before(msgs[j].CreatedAt) })
	return msgs
}

func (s *MessageSync) UnreadCount() int {
	return s.store.Count(func(m Message) bool { return m.ReceiverID == s.self && !m.IsRead })
}

func (s *MessageSync) merged(ev Event[Message], out Outcome) {
	if ev.Kind != KindInsert {
		return
	}
	m := ev.Record
	if out == Inserted && m.SenderID == s.self && !s.matchInflight(m) {
		s.cfg.OnAnomaly(&ReconciliationAnomaly{Table: domain.TableMessages, Key: m.ID, Kind: ev.Kind})
	}
	if m.ReceiverID != s.self || m.IsRead {
		return
	}
	s.mu.Lock()
	focused := s.focused
	s.mu.Unlock()
	if focused {
		s.scheduleReceipt(m.SenderID)
	}
}

// matchInflight reports whether m is the echo of a send still waiting on its RPC:
// same client ref, or same booking and content within the pending window.
func (s *MessageSync) matchInflight(m Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.inflight[m.ClientRef]; ok && m.ClientRef != "" {
		return true
	}
	for _, p := range s.inflight {
		if p.bookingID == m.BookingID && p.content == m.Content && time.Since(p.startedAt) <= s.cfg.PendingWindow {
			return true
		}
	}
	return false
}

func (s *MessageSync) scheduleReceipt(senderID string) {
	bookingID := s.Scope()
	if bookingID == "" {
		return
	}
	s.receipts.Schedule("read:"+senderID, s.cfg.ReadReceiptDelay, func() {
		if s.Scope() != bookingID {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ReceiptTimeout)
		defer cancel()
		if err := s.MarkThreadRead(ctx, senderID); err != nil {
			log.Printf("[sync:%s] read receipt for %s in %s: %v", domain.TableMessages, senderID, bookingID, err)
		}
	})
}
