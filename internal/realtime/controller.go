package realtime

import (
	"context"
	"log"
	"sync"
	"time"
)

// State is the lifecycle of a controller: Idle -> Loading -> Active -> Suspended.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateActive
	StateSuspended
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateActive:
		return "active"
	case StateSuspended:
		return "suspended"
	}
	return "unknown"
}

type ControllerConfig[T any] struct {
	// Name is the table name, used in logs and anomaly reports.
	Name  string
	Query Query[T]
	Feed  Feed[T]
	Key   KeyFunc[T]
	// Merge resolves an incoming record against the member holding its key; nil replaces.
	Merge MergeFunc[T]
	// FetchTimeout bounds the resync fetch that follows a reconnect.
	FetchTimeout time.Duration
	// OnMerged runs after a feed event has been merged, outside the controller lock.
	// Records loaded by a bulk fetch are not reported.
	OnMerged func(ev Event[T], out Outcome)
	// OnAnomaly receives non-fatal reconciliation anomalies. Defaults to logging.
	OnAnomaly func(err error)
}

type merged[T any] struct {
	ev  Event[T]
	out Outcome
}

// Controller keeps one Store consistent with a server scope: a bulk fetch followed by
// incremental merges of feed events. Events that arrive while a fetch is in flight are
// buffered and replayed after the fetch result, so a fetch never overwrites a newer push.
type Controller[T any] struct {
	cfg   ControllerConfig[T]
	store *Store[T]

	mu        sync.Mutex
	state     State
	scope     string
	gen       uint64 // bumped on every activate/deactivate; stale callbacks compare against it
	buffering bool
	pending   []Event[T]
	sub       Subscription

	// resyncPending records a reconnect seen while a fetch was in flight; that fetch
	// may predate the gap, so one more runs after it lands.
	resyncPending bool
}

func NewController[T any](cfg ControllerConfig[T]) *Controller[T] {
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 15 * time.Second
	}
	if cfg.OnAnomaly == nil {
		name := cfg.Name
		cfg.OnAnomaly = func(err error) { log.Printf("[sync:%s] %v", name, err) }
	}
	return &Controller[T]{
		cfg:   cfg,
		store: NewStore(cfg.Key, cfg.Merge),
	}
}

// Activate attaches the feed listener, performs the bulk fetch of scope and goes Active.
// On failure the controller returns to Idle and the caller may retry.
func (c *Controller[T]) Activate(ctx context.Context, scope string) error {
	c.mu.Lock()
	if c.state == StateLoading || c.state == StateActive {
		c.mu.Unlock()
		return ErrInvalidState
	}
	if c.scope != scope {
		c.store.Reset()
	}
	c.gen++
	gen := c.gen
	c.state = StateLoading
	c.scope = scope
	c.buffering = true
	c.pending = nil
	c.resyncPending = false
	c.mu.Unlock()

	sub, err := c.cfg.Feed.Subscribe(ctx, scope, Listener[T]{
		OnEvent:     func(ev Event[T]) { c.receive(gen, ev) },
		OnReconnect: func() { go c.resync(gen) },
	})
	if err != nil {
		c.abort(gen)
		return asTransport(c.cfg.Name+".subscribe", err)
	}

	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		sub.Close()
		return ErrDeactivated
	}
	c.sub = sub
	c.mu.Unlock()

	records, err := c.cfg.Query.Fetch(ctx, scope)
	if err != nil {
		if c.abort(gen) {
			log.Printf("[sync:%s] activate %q: fetch failed: %v", c.cfg.Name, scope, err)
			return asTransport(c.cfg.Name+".fetch", err)
		}
		return ErrDeactivated
	}

	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return ErrDeactivated
	}
	done := c.applyFetchLocked(records)
	c.state = StateActive
	again := c.takeResyncLocked()
	c.mu.Unlock()

	c.report(done)
	if again {
		go c.resync(gen)
	}
	return nil
}

// abort returns a failed activation to Idle. It reports false if the activation was
// already superseded by a deactivate.
func (c *Controller[T]) abort(gen uint64) bool {
	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return false
	}
	c.gen++
	sub := c.sub
	c.sub = nil
	c.state = StateIdle
	c.buffering = false
	c.pending = nil
	c.resyncPending = false
	c.mu.Unlock()
	if sub != nil {
		sub.Close()
	}
	return true
}

// Deactivate detaches the feed listener and moves to Suspended. It is safe in any state,
// including mid-fetch: a fetch that resolves afterwards is discarded. The store is kept.
func (c *Controller[T]) Deactivate() {
	c.mu.Lock()
	c.gen++
	sub := c.sub
	c.sub = nil
	c.state = StateSuspended
	c.buffering = false
	c.pending = nil
	c.resyncPending = false
	c.mu.Unlock()
	if sub != nil {
		if err := sub.Close(); err != nil {
			log.Printf("[sync:%s] close subscription: %v", c.cfg.Name, err)
		}
	}
}

func (c *Controller[T]) receive(gen uint64, ev Event[T]) {
	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return
	}
	if c.buffering {
		c.pending = append(c.pending, ev)
		c.mu.Unlock()
		return
	}
	m := merged[T]{ev: ev, out: c.store.Upsert(ev.Record)}
	c.mu.Unlock()
	c.report([]merged[T]{m})
}

// resync re-runs the bulk fetch once after the transport reconnected, closing any gap
// left while the connection was down. Feed events keep being accepted meanwhile.
// A reconnect during a fetch is deferred until that fetch has been applied.
func (c *Controller[T]) resync(gen uint64) {
	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return
	}
	if c.state == StateLoading || c.buffering {
		c.resyncPending = true
		c.mu.Unlock()
		return
	}
	if c.state != StateActive {
		c.mu.Unlock()
		return
	}
	c.buffering = true
	scope := c.scope
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.FetchTimeout)
	records, err := c.cfg.Query.Fetch(ctx, scope)
	cancel()
	if err != nil {
		log.Printf("[sync:%s] resync %q: %v", c.cfg.Name, scope, asTransport(c.cfg.Name+".fetch", err))
		records = nil
	}

	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return
	}
	done := c.applyFetchLocked(records)
	again := c.takeResyncLocked()
	c.mu.Unlock()
	c.report(done)
	if again {
		c.resync(gen)
	}
}

func (c *Controller[T]) takeResyncLocked() bool {
	again := c.resyncPending
	c.resyncPending = false
	return again
}

// applyFetchLocked loads fetched records, then replays the events buffered during the fetch.
func (c *Controller[T]) applyFetchLocked(records []T) []merged[T] {
	c.store.UpsertAll(records)
	done := make([]merged[T], 0, len(c.pending))
	for _, ev := range c.pending {
		done = append(done, merged[T]{ev: ev, out: c.store.Upsert(ev.Record)})
	}
	c.pending = nil
	c.buffering = false
	return done
}

func (c *Controller[T]) report(done []merged[T]) {
	for _, m := range done {
		if m.ev.Kind == KindUpdate && m.out == Inserted {
			c.cfg.OnAnomaly(&ReconciliationAnomaly{Table: c.cfg.Name, Key: c.cfg.Key(m.ev.Record), Kind: m.ev.Kind})
		}
		if c.cfg.OnMerged != nil {
			c.cfg.OnMerged(m.ev, m.out)
		}
	}
}

// commit upserts a record produced by a local write, provided the controller still serves scope.
func (c *Controller[T]) commit(scope string, rec T) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.scope != scope || (c.state != StateLoading && c.state != StateActive) {
		return false
	}
	c.store.Upsert(rec)
	return true
}

func (c *Controller[T]) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Scope returns the scope being served, or "" unless Loading or Active.
func (c *Controller[T]) Scope() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateLoading && c.state != StateActive {
		return ""
	}
	return c.scope
}

func (c *Controller[T]) Snapshot() []T { return c.store.Snapshot() }
