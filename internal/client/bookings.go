package client

import (
	"context"
	"net/url"
	"time"
)

type Booking struct {
	ID         string    `json:"id"`
	ClientID   string    `json:"client_id"`
	ProviderID string    `json:"provider_id"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

// CreateBooking opens a booking thread with a provider.
func (c *Client) CreateBooking(ctx context.Context, providerID string) (Booking, error) {
	var out struct {
		Booking Booking `json:"booking"`
	}
	err := c.post(ctx, "/api/v1/bookings", map[string]string{"provider_id": providerID}, &out)
	return out.Booking, err
}

// SendQuote quotes on a booking; the backend notifies the other participant.
func (c *Client) SendQuote(ctx context.Context, bookingID, message string) error {
	return c.post(ctx, "/api/v1/bookings/"+url.PathEscape(bookingID)+"/quotes", map[string]string{"message": message}, nil)
}

// RegisterDevice stores the FCM token used to reach this user while backgrounded.
func (c *Client) RegisterDevice(ctx context.Context, token string) error {
	return c.post(ctx, "/api/v1/me/fcm-token", map[string]string{"token": token}, nil)
}

func (c *Client) Booking(ctx context.Context, id string) (Booking, error) {
	var out struct {
		Booking Booking `json:"booking"`
	}
	err := c.get(ctx, "/api/v1/bookings/"+url.PathEscape(id), &out)
	return out.Booking, err
}

type User struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// Me returns the user the access token belongs to.
func (c *Client) Me(ctx context.Context) (User, error) {
	var out struct {
		User User `json:"user"`
	}
	err := c.get(ctx, "/api/v1/me", &out)
	return out.User, err
}

// Counterpart returns the other participant of b.
func (b Booking) Counterpart(userID string) string {
	if b.ClientID == userID {
		return b.ProviderID
	}
	return b.ClientID
}
