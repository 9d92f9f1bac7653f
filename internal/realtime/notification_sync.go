package realtime

import (
	"context"
	"sort"
	"sync"

	"marketsync/internal/domain"
)

// NotificationWriter is the backend side of read-state changes.
type NotificationWriter interface {
	SetRead(ctx context.Context, ids []string, read bool) error
	MarkAllRead(ctx context.Context) error
}

// Alerter surfaces a newly arrived notification to the user (sound, toast, bell).
type Alerter interface {
	Alert(n Notification)
}

type AlertFunc func(Notification)

func (f AlertFunc) Alert(n Notification) { f(n) }

// NotificationSync keeps the signed-in user's notifications. The store is keyed by row id;
// grouping by GroupKey is derived, so duplicate rows from one logical event count once.
type NotificationSync struct {
	*Controller[Notification]
	writer  NotificationWriter
	alerter Alerter

	mu         sync.Mutex
	foreground bool
	// inflight maps rows flipped by a pending RPC to whether a feed event touched them since.
	inflight map[string]bool
}

func NewNotificationSync(query Query[Notification], feed Feed[Notification], writer NotificationWriter, alerter Alerter) *NotificationSync {
	s := &NotificationSync{writer: writer, alerter: alerter, foreground: true, inflight: make(map[string]bool)}
	s.Controller = NewController(ControllerConfig[Notification]{
		Name:     domain.TableNotifications,
		Query:    query,
		Feed:     feed,
		Key:      func(n Notification) string { return n.ID },
		OnMerged: s.merged,
	})
	return s
}

// SetForeground records whether the viewing context is visible. Background contexts never alert.
func (s *NotificationSync) SetForeground(fg bool) {
	s.mu.Lock()
	s.foreground = fg
	s.mu.Unlock()
}

func (s *NotificationSync) merged(ev Event[Notification], out Outcome) {
	s.mu.Lock()
	if _, ok := s.inflight[ev.Record.ID]; ok {
		s.inflight[ev.Record.ID] = true
	}
	s.mu.Unlock()
	if ev.Kind != KindInsert || out != Inserted || s.alerter == nil {
		return
	}
	// only the group's first row in append order alerts; later duplicates and rows of a
	// group already loaded by the fetch stay silent
	key := ev.Record.GroupKey()
	first, ok := s.store.Find(func(n Notification) bool { return n.GroupKey() == key })
	if !ok || first.ID != ev.Record.ID {
		return
	}
	s.mu.Lock()
	fg := s.foreground
	s.mu.Unlock()
	if fg {
		s.alerter.Alert(ev.Record)
	}
}

// Groups returns one entry per logical notification, newest first.
func (s *NotificationSync) Groups() []NotificationGroup {
	var groups []NotificationGroup
	pos := make(map[string]int)
	for _, n := range s.store.Snapshot() {
		k := n.GroupKey()
		i, ok := pos[k]
		if !ok {
			pos[k] = len(groups)
			groups = append(groups, NotificationGroup{Key: k, Latest: n})
			i = len(groups) - 1
		}
		g := &groups[i]
		g.Members = append(g.Members, n)
		g.Latest = n
		if !n.IsRead {
			g.Unread = true
		}
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Latest.CreatedAt.After(groups[j].Latest.CreatedAt)
	})
	return groups
}

// UnreadCount is the number of groups with at least one unread member.
func (s *NotificationSync) UnreadCount() int {
	n := 0
	for _, g := range s.Groups() {
		if g.Unread {
			n++
		}
	}
	return n
}

// MarkRead flips exactly one row. The local flip happens before the RPC and is
// rolled back if the RPC fails.
func (s *NotificationSync) MarkRead(ctx context.Context, id string) error {
	if _, ok := s.store.Get(id); !ok {
		return &ValidationError{Field: "id", Reason: "unknown notification"}
	}
	return s.flip(ctx, func(n Notification) bool { return n.ID == id })
}

// MarkGroupRead flips every current member of the group id belongs to.
func (s *NotificationSync) MarkGroupRead(ctx context.Context, id string) error {
	n, ok := s.store.Get(id)
	if !ok {
		return &ValidationError{Field: "id", Reason: "unknown notification"}
	}
	key := n.GroupKey()
	return s.flip(ctx, func(n Notification) bool { return n.GroupKey() == key })
}

func (s *NotificationSync) flip(ctx context.Context, pred func(Notification) bool) error {
	ids := s.store.UpdateWhere(func(n Notification) bool { return !n.IsRead && pred(n) }, setRead(true))
	if len(ids) == 0 {
		return nil
	}
	s.track(ids)
	err := s.writer.SetRead(ctx, ids, true)
	s.settle(ids, err != nil)
	if err != nil {
		return asTransport(domain.TableNotifications+".set_read", err)
	}
	return nil
}

// MarkAllRead flips every unread row and notifies the backend in one batched call.
// On failure the flipped rows are restored to unread, except those the feed updated
// while the call was pending.
func (s *NotificationSync) MarkAllRead(ctx context.Context) error {
	ids := s.store.UpdateWhere(func(n Notification) bool { return !n.IsRead }, setRead(true))
	if len(ids) == 0 {
		return nil
	}
	s.track(ids)
	err := s.writer.MarkAllRead(ctx)
	s.settle(ids, err != nil)
	if err != nil {
		return asTransport(domain.TableNotifications+".mark_all_read", err)
	}
	return nil
}

func (s *NotificationSync) track(ids []string) {
	s.mu.Lock()
	for _, id := range ids {
		s.inflight[id] = false
	}
	s.mu.Unlock()
}

// settle ends tracking for ids and, on failure, reverts the rows no feed event has
// spoken for since the flip.
func (s *NotificationSync) settle(ids []string, failed bool) {
	set := make(map[string]struct{}, len(ids))
	s.mu.Lock()
	for _, id := range ids {
		if touched := s.inflight[id]; failed && !touched {
			set[id] = struct{}{}
		}
		delete(s.inflight, id)
	}
	s.mu.Unlock()
	if len(set) == 0 {
		return
	}
	s.store.UpdateWhere(func(n Notification) bool {
		_, ok := set[n.ID]
		return ok
	}, setRead(false))
}

func setRead(read bool) func(*Notification) {
	return func(n *Notification) { n.IsRead = read }
}
