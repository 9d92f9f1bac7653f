package realtime

import (
	"context"
	"log"
	"sync"
	"time"

	"marketsync/internal/domain"
)

type PresenceWriter interface {
	// Update upserts the caller's own presence row.
	Update(ctx context.Context, p Presence) error
}

// PresenceSync tracks every user's presence on the global scope and authors the local
// user's own record. Remote records only change through the feed.
type PresenceSync struct {
	*Controller[Presence]
	self           string
	writer         PresenceWriter
	offlineTimeout time.Duration
	now            func() time.Time

	mu        sync.Mutex
	local     string
	available bool
}

func NewPresenceSync(self string, query Query[Presence], feed Feed[Presence], writer PresenceWriter, offlineTimeout time.Duration) *PresenceSync {
	if offlineTimeout <= 0 {
		offlineTimeout = 3 * time.Second
	}
	s := &PresenceSync{
		self:           self,
		writer:         writer,
		offlineTimeout: offlineTimeout,
		now:            time.Now,
		local:          domain.PresenceOffline,
		available:      true,
	}
	s.Controller = NewController(ControllerConfig[Presence]{
		Name:  domain.TablePresence,
		Query: query,
		Feed:  feed,
		Key:   func(p Presence) string { return p.UserID },
		Merge: s.merge,
	})
	return s
}

// merge orders the local user's own row by last_seen, since this process wrote it and
// echoes may lag. Remote rows carry other devices' clocks, so they follow delivery order.
func (s *PresenceSync) merge(existing, incoming Presence) Presence {
	if existing.UserID == s.self {
		return newerPresence(existing, incoming)
	}
	return incoming
}

// newerPresence keeps the held record when the incoming one is older, so a stale
// echo never reverts a later local transition.
func newerPresence(existing, incoming Presence) Presence {
	if incoming.LastSeen.Before(existing.LastSeen) {
		return existing
	}
	return incoming
}

// Activate loads the global presence table and marks the local user online.
func (s *PresenceSync) Activate(ctx context.Context) error {
	if err := s.Controller.Activate(ctx, domain.PresenceScopeGlobal); err != nil {
		return err
	}
	s.mu.Lock()
	if p, ok := s.store.Get(s.self); ok {
		s.available = p.IsAvailable
	}
	s.mu.Unlock()
	s.transition(ctx, func(string) (string, bool) { return domain.PresenceOnline, true })
	return nil
}

// Deactivate records the local user offline, pushes that to the backend before
// detaching, and is a no-op once the user is already offline.
func (s *PresenceSync) Deactivate() {
	ctx, cancel := context.WithTimeout(context.Background(), s.offlineTimeout)
	defer cancel()
	s.transition(ctx, func(cur string) (string, bool) {
		return domain.PresenceOffline, cur != domain.PresenceOffline
	})
	s.Controller.Deactivate()
}

// VisibilityChanged toggles between online and away. A user-set busy is left alone.
func (s *PresenceSync) VisibilityChanged(ctx context.Context, visible bool) {
	s.transition(ctx, func(cur string) (string, bool) {
		switch {
		case !visible && cur == domain.PresenceOnline:
			return domain.PresenceAway, true
		case visible && cur == domain.PresenceAway:
			return domain.PresenceOnline, true
		}
		return cur, false
	})
}

// SetStatus is the explicit user-invoked transition, typically to or from busy.
func (s *PresenceSync) SetStatus(ctx context.Context, status string) error {
	if err := check(Presence{UserID: s.self, Status: status}); err != nil {
		return err
	}
	if s.Scope() == "" {
		return &ValidationError{Field: "status", Reason: "presence not active"}
	}
	s.transition(ctx, func(string) (string, bool) { return status, true })
	return nil
}

func (s *PresenceSync) SetAvailability(ctx context.Context, available bool) error {
	if s.Scope() == "" {
		return &ValidationError{Field: "is_available", Reason: "presence not active"}
	}
	s.mu.Lock()
	s.available = available
	s.mu.Unlock()
	s.transition(ctx, func(cur string) (string, bool) { return cur, true })
	return nil
}

// transition applies next to the local status, upserts the local record and then
// issues a best-effort RPC. A failed RPC is logged and the local state stands.
func (s *PresenceSync) transition(ctx context.Context, next func(cur string) (string, bool)) {
	s.mu.Lock()
	status, ok := next(s.local)
	if !ok {
		s.mu.Unlock()
		return
	}
	s.local = status
	rec := Presence{UserID: s.self, Status: status, LastSeen: s.now().UTC(), IsAvailable: s.available}
	s.commit(domain.PresenceScopeGlobal, rec)
	s.mu.Unlock()

	if err := s.writer.Update(ctx, rec); err != nil {
		log.Printf("[sync:%s] set %s for %s: %v", domain.TablePresence, status, s.self, asTransport(domain.TablePresence+".update", err))
	}
}

// GetStatus returns the last observed status of userID, offline if never seen.
func (s *PresenceSync) GetStatus(userID string) string {
	if p, ok := s.store.Get(userID); ok {
		return p.Status
	}
	return domain.PresenceOffline
}

func (s *PresenceSync) IsAvailable(userID string) bool {
	p, ok := s.store.Get(userID)
	return ok && p.IsAvailable && p.Status != domain.PresenceOffline
}

// LocalStatus is the local user's own status as last transitioned.
func (s *PresenceSync) LocalStatus() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.local
}
