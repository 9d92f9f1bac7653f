package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"marketsync/internal/realtime"
)

const (
	// the server pings every 30s; two missed pings drop the connection
	pongWait  = 70 * time.Second
	writeWait = 5 * time.Second
)

// envelope is the wire shape of one push channel change.
type envelope struct {
	Table  string          `json:"table"`
	Scope  string          `json:"scope"`
	Kind   string          `json:"kind"`
	Record json.RawMessage `json:"record"`
}

// Feed subscribes to one table of the push channel. Each subscription owns one websocket
// and redials it with exponential backoff until closed.
type Feed[T any] struct {
	c      *Client
	table  string
	dialer *websocket.Dialer
}

func NewFeed[T any](c *Client, table string) *Feed[T] {
	return &Feed[T]{c: c, table: table, dialer: websocket.DefaultDialer}
}

func (f *Feed[T]) feedURL(scope string) (string, error) {
	u, err := url.Parse(f.c.baseURL)
	if err != nil {
		return "", err
	}
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws/feed"
	q := url.Values{}
	q.Set("token", f.c.token)
	q.Set("table", f.table)
	q.Set("scope", scope)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (f *Feed[T]) dial(ctx context.Context, scope string) (*websocket.Conn, error) {
	target, err := f.feedURL(scope)
	if err != nil {
		return nil, err
	}
	conn, resp, err := f.dialer.DialContext(ctx, target, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("%w (status %d)", err, resp.StatusCode)
		}
		return nil, err
	}
	return conn, nil
}

// Subscribe dials the channel for scope. Only the first dial is bounded by ctx;
// later redials run in the background and end in l.OnReconnect.
func (f *Feed[T]) Subscribe(ctx context.Context, scope string, l realtime.Listener[T]) (realtime.Subscription, error) {
	conn, err := f.dial(ctx, scope)
	if err != nil {
		return nil, &realtime.TransportError{Op: "subscribe " + f.table + "/" + scope, Err: err}
	}
	s := &subscription[T]{
		feed:     f,
		scope:    scope,
		listener: l,
		conn:     conn,
		done:     make(chan struct{}),
	}
	go s.run(conn)
	return s, nil
}

type subscription[T any] struct {
	feed     *Feed[T]
	scope    string
	listener realtime.Listener[T]

	mu   sync.Mutex
	conn *websocket.Conn
	done chan struct{}
	once sync.Once
}

func (s *subscription[T]) closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Close stops the subscription. It does not wait for the read loop, so it is safe
// to call from inside a listener callback.
func (s *subscription[T]) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		s.mu.Lock()
		conn := s.conn
		s.mu.Unlock()
		if conn == nil {
			return
		}
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
		err = conn.Close()
	})
	return err
}

func (s *subscription[T]) run(conn *websocket.Conn) {
	for {
		s.read(conn)
		conn.Close()
		if s.closed() {
			return
		}
		log.Printf("[feed] %s/%s: connection lost, reconnecting", s.feed.table, s.scope)
		conn = s.redial()
		if conn == nil {
			return
		}
		log.Printf("[feed] %s/%s: reconnected", s.feed.table, s.scope)
		if s.listener.OnReconnect != nil {
			s.listener.OnReconnect()
		}
	}
}

func (s *subscription[T]) redial() *websocket.Conn {
	c := s.feed.c
	delay := c.reconnectMin
	for {
		select {
		case <-s.done:
			return nil
		case <-time.After(delay):
		}
		ctx, cancel := context.WithTimeout(context.Background(), c.http.Timeout)
		conn, err := s.feed.dial(ctx, s.scope)
		cancel()
		if err == nil {
			s.mu.Lock()
			if s.closed() {
				s.mu.Unlock()
				conn.Close()
				return nil
			}
			s.conn = conn
			s.mu.Unlock()
			return conn
		}
		log.Printf("[feed] %s/%s: redial failed (next in %s): %v", s.feed.table, s.scope, delay, err)
		delay *= 2
		if delay > c.reconnectMax {
			delay = c.reconnectMax
		}
	}
}

func (s *subscription[T]) read(conn *websocket.Conn) {
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPingHandler(func(data string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(writeWait))
	})
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !s.closed() && !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				log.Printf("[feed] %s/%s: read: %v", s.feed.table, s.scope, err)
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))
		ev, err := decodeEvent[T](data, s.feed.table, s.scope)
		if err != nil {
			log.Printf("[feed] %s/%s: dropped payload: %v", s.feed.table, s.scope, err)
			continue
		}
		if s.closed() {
			return
		}
		s.listener.OnEvent(ev)
	}
}

var errEmptyRecord = errors.New("empty record")

// decodeEvent narrows a raw envelope to a typed event for table and scope.
func decodeEvent[T any](data []byte, table, scope string) (realtime.Event[T], error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return realtime.Event[T]{}, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Table != table || env.Scope != scope {
		return realtime.Event[T]{}, fmt.Errorf("envelope for %s/%s", env.Table, env.Scope)
	}
	kind, err := realtime.ParseKind(env.Kind)
	if err != nil {
		return realtime.Event[T]{}, err
	}
	if len(env.Record) == 0 || bytes.Equal(env.Record, []byte("null")) {
		return realtime.Event[T]{}, errEmptyRecord
	}
	var rec T
	if err := json.Unmarshal(env.Record, &rec); err != nil {
		return realtime.Event[T]{}, fmt.Errorf("decode record: %w", err)
	}
	return realtime.Event[T]{Kind: kind, Record: rec}, nil
}
