package realtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"
)

var errBoom = errors.New("boom")

type fakeQuery[T any] struct {
	mu      sync.Mutex
	records []T
	err     error
	gate    chan struct{} // when set, Fetch blocks until it is closed
	calls   int
	scopes  []string
}

func (q *fakeQuery[T]) Fetch(ctx context.Context, scope string) ([]T, error) {
	q.mu.Lock()
	q.calls++
	q.scopes = append(q.scopes, scope)
	gate := q.gate
	q.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return nil, q.err
	}
	out := make([]T, len(q.records))
	copy(out, q.records)
	return out, nil
}

func (q *fakeQuery[T]) Calls() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.calls
}

func (q *fakeQuery[T]) set(records []T, err error) {
	q.mu.Lock()
	q.records = records
	q.err = err
	q.mu.Unlock()
}

type fakeFeed[T any] struct {
	mu       sync.Mutex
	err      error
	listener *Listener[T]
	scope    string
	subs     int
	closed   int
}

type fakeSub[T any] struct {
	feed *fakeFeed[T]
	once sync.Once
}

func (s *fakeSub[T]) Close() error {
	s.once.Do(func() {
		s.feed.mu.Lock()
		s.feed.listener = nil
		s.feed.closed++
		s.feed.mu.Unlock()
	})
	return nil
}

func (f *fakeFeed[T]) Subscribe(_ context.Context, scope string, l Listener[T]) (Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.listener = &l
	f.scope = scope
	f.subs++
	return &fakeSub[T]{feed: f}, nil
}

// emit delivers an event synchronously, as the transport's read loop would.
func (f *fakeFeed[T]) emit(kind Kind, rec T) bool {
	f.mu.Lock()
	l := f.listener
	f.mu.Unlock()
	if l == nil {
		return false
	}
	l.OnEvent(Event[T]{Kind: kind, Record: rec})
	return true
}

func (f *fakeFeed[T]) reconnect() {
	f.mu.Lock()
	l := f.listener
	f.mu.Unlock()
	if l != nil && l.OnReconnect != nil {
		l.OnReconnect()
	}
}

func (f *fakeFeed[T]) attached() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listener != nil
}

type fakeNotificationWriter struct {
	mu       sync.Mutex
	err      error
	setRead  [][]string
	allCalls int
	onCall   func() // runs while the call is pending, e.g. to deliver a feed event
}

func (w *fakeNotificationWriter) SetRead(_ context.Context, ids []string, _ bool) error {
	w.mu.Lock()
	w.setRead = append(w.setRead, ids)
	err, hook := w.err, w.onCall
	w.mu.Unlock()
	if hook != nil {
		hook()
	}
	return err
}

func (w *fakeNotificationWriter) MarkAllRead(context.Context) error {
	w.mu.Lock()
	w.allCalls++
	err, hook := w.err, w.onCall
	w.mu.Unlock()
	if hook != nil {
		hook()
	}
	return err
}

type threadRead struct {
	bookingID string
	senderID  string
}

type fakeMessageWriter struct {
	mu       sync.Mutex
	err      error
	seq      int
	inserts  []NewMessage
	reads    []threadRead
	readErr  error
	sender   string
	clock    time.Time
	onInsert func(Message) // runs before Insert returns, e.g. to deliver the echo early
}

func (w *fakeMessageWriter) Insert(_ context.Context, nm NewMessage) (Message, error) {
	w.mu.Lock()
	w.inserts = append(w.inserts, nm)
	if w.err != nil {
		err := w.err
		w.mu.Unlock()
		return Message{}, err
	}
	w.seq++
	w.clock = w.clock.Add(time.Second)
	m := Message{
		ID:          fmt.Sprintf("m-%d", w.seq),
		BookingID:   nm.BookingID,
		SenderID:    w.sender,
		ReceiverID:  nm.ReceiverID,
		Content:     nm.Content,
		MessageType: nm.MessageType,
		ClientRef:   nm.ClientRef,
		CreatedAt:   w.clock,
		UpdatedAt:   w.clock,
	}
	hook := w.onInsert
	w.mu.Unlock()
	if hook != nil {
		hook(m)
	}
	return m, nil
}

func (w *fakeMessageWriter) MarkThreadRead(_ context.Context, bookingID, senderID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.reads = append(w.reads, threadRead{bookingID, senderID})
	return w.readErr
}

func (w *fakeMessageWriter) Reads() []threadRead {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]threadRead(nil), w.reads...)
}

type fakeUploader struct {
	url  string
	err  error
	name string
}

func (u *fakeUploader) Upload(_ context.Context, _ io.Reader, filename string) (string, error) {
	u.name = filename
	return u.url, u.err
}

type fakePresenceWriter struct {
	mu      sync.Mutex
	err     error
	updates []Presence
}

func (w *fakePresenceWriter) Update(_ context.Context, p Presence) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.updates = append(w.updates, p)
	return w.err
}

func (w *fakePresenceWriter) statuses() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, len(w.updates))
	for i, p := range w.updates {
		out[i] = p.Status
	}
	return out
}

type alertLog struct {
	mu  sync.Mutex
	ids []string
}

func (a *alertLog) Alert(n Notification) {
	a.mu.Lock()
	a.ids = append(a.ids, n.ID)
	a.mu.Unlock()
}

func (a *alertLog) got() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.ids...)
}
