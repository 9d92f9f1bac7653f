package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"marketsync/internal/realtime"
)

// Uploads stores chat attachments and returns their public URL.
type Uploads struct {
	c *Client
}

func (c *Client) Uploads() *Uploads { return &Uploads{c: c} }

func (u *Uploads) Upload(ctx context.Context, r io.Reader, filename string) (string, error) {
	const path = "/api/v1/uploads/chat"
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return "", &realtime.TransportError{Op: "POST " + path, Err: err}
	}
	if _, err := io.Copy(part, r); err != nil {
		return "", &realtime.TransportError{Op: "POST " + path, Err: fmt.Errorf("read attachment: %w", err)}
	}
	if err := w.Close(); err != nil {
		return "", &realtime.TransportError{Op: "POST " + path, Err: err}
	}

	var out struct {
		URL string `json:"url"`
	}
	if err := u.c.send(ctx, http.MethodPost, path, w.FormDataContentType(), &buf, &out); err != nil {
		return "", err
	}
	return out.URL, nil
}
