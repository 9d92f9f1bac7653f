package client

import (
	"context"
	"net/url"

	"marketsync/internal/realtime"
)

// Messages is the chat collaborator, scoped by booking id.
type Messages struct {
	c *Client
}

func (c *Client) Messages() *Messages { return &Messages{c: c} }

func threadPath(bookingID string) string {
	return "/api/v1/bookings/" + url.PathEscape(bookingID) + "/messages"
}

func (m *Messages) Fetch(ctx context.Context, bookingID string) ([]realtime.Message, error) {
	var out struct {
		Messages []realtime.Message `json:"messages"`
	}
	if err := m.c.get(ctx, threadPath(bookingID), &out); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

// Insert persists nm and returns the canonical record. Retrying with the same
// ClientRef returns the original row.
func (m *Messages) Insert(ctx context.Context, nm realtime.NewMessage) (realtime.Message, error) {
	var out struct {
		Message realtime.Message `json:"message"`
	}
	if err := m.c.post(ctx, threadPath(nm.BookingID), nm, &out); err != nil {
		return realtime.Message{}, err
	}
	return out.Message, nil
}

func (m *Messages) MarkThreadRead(ctx context.Context, bookingID, senderID string) error {
	body := map[string]string{"sender_id": senderID}
	return m.c.put(ctx, threadPath(bookingID)+"/read", body, nil)
}
