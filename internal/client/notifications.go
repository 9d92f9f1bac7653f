package client

import (
	"context"
	"fmt"

	"marketsync/internal/realtime"
)

// Notifications is the notification table collaborator: bulk fetch plus read-state writes.
// The scope of a fetch is always the signed-in user, so the scope argument is not sent.
type Notifications struct {
	c     *Client
	limit int
}

func (c *Client) Notifications(limit int) *Notifications {
	if limit <= 0 {
		limit = 50
	}
	return &Notifications{c: c, limit: limit}
}

func (n *Notifications) Fetch(ctx context.Context, _ string) ([]realtime.Notification, error) {
	var out struct {
		Notifications []realtime.Notification `json:"notifications"`
	}
	if err := n.c.get(ctx, fmt.Sprintf("/api/v1/notifications?limit=%d", n.limit), &out); err != nil {
		return nil, err
	}
	return out.Notifications, nil
}

func (n *Notifications) SetRead(ctx context.Context, ids []string, read bool) error {
	body := map[string]interface{}{"ids": ids, "is_read": read}
	return n.c.put(ctx, "/api/v1/notifications/read", body, nil)
}

func (n *Notifications) MarkAllRead(ctx context.Context) error {
	return n.c.put(ctx, "/api/v1/notifications/read-all", nil, nil)
}
