package realtime

import (
	"context"
	"fmt"

	"marketsync/internal/domain"
)

// Kind tags a change event.
type Kind string

const (
	KindInsert Kind = domain.EventInsert
	KindUpdate Kind = domain.EventUpdate
)

// ParseKind narrows a raw transport tag to a Kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindInsert, KindUpdate:
		return Kind(s), nil
	}
	return "", fmt.Errorf("unknown event kind %q", s)
}

// Event is one change delivered by a feed, in commit order for its scope.
type Event[T any] struct {
	Kind   Kind
	Record T
}

// Listener receives a subscription's events. OnReconnect is invoked after the transport
// re-establishes a dropped connection; events may have been missed in between.
type Listener[T any] struct {
	OnEvent     func(Event[T])
	OnReconnect func()
}

type Subscription interface {
	Close() error
}

// Feed subscribes to the push channel of one table. Delivery is at-least-once.
// The context bounds establishing the subscription only, not its lifetime.
type Feed[T any] interface {
	Subscribe(ctx context.Context, scope string, l Listener[T]) (Subscription, error)
}

// Query performs the bulk fetch of a scope, ascending by creation time where applicable.
type Query[T any] interface {
	Fetch(ctx context.Context, scope string) ([]T, error)
}
