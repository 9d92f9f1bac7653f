package client

import (
	"context"

	"marketsync/internal/realtime"
)

type Presence struct {
	c *Client
}

func (c *Client) Presence() *Presence { return &Presence{c: c} }

// Fetch returns every presence row; the table has only the global scope.
func (p *Presence) Fetch(ctx context.Context, _ string) ([]realtime.Presence, error) {
	var out struct {
		Presence []realtime.Presence `json:"presence"`
	}
	if err := p.c.get(ctx, "/api/v1/presence", &out); err != nil {
		return nil, err
	}
	return out.Presence, nil
}

// Update upserts the caller's own row. The user id is taken from the token.
func (p *Presence) Update(ctx context.Context, rec realtime.Presence) error {
	body := map[string]interface{}{
		"status":       rec.Status,
		"is_available": rec.IsAvailable,
		"last_seen":    rec.LastSeen,
	}
	return p.c.put(ctx, "/api/v1/presence", body, nil)
}
