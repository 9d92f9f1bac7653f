package cloudinary

import (
	"context"
	"io"

	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/cloudinary/cloudinary-go/v2/config"
)

// Client uploads chat attachments and returns their delivery URL.
type Client interface {
	UploadImage(ctx context.Context, file io.Reader, folder, publicID string) (string, error)
	UploadFile(ctx context.Context, file io.Reader, folder, publicID string) (string, error)
}

// Eager transformation for chat images: auto quality and format, bounded width.
const imageEager = "q_auto,f_auto,w_1280,c_limit"

var eagerAsyncFalse = false

type clientImpl struct {
	uploader *uploader.API
}

// UploadImage uploads an image and prefers the optimized eager rendition's URL.
func (c *clientImpl) UploadImage(ctx context.Context, file io.Reader, folder, publicID string) (string, error) {
	result, err := c.uploader.Upload(ctx, file, uploader.UploadParams{
		Folder:     folder,
		PublicID:   publicID,
		Eager:      imageEager,
		EagerAsync: &eagerAsyncFalse,
	})
	if err != nil {
		return "", err
	}
	if len(result.Eager) > 0 && result.Eager[0].SecureURL != "" {
		return result.Eager[0].SecureURL, nil
	}
	return result.SecureURL, nil
}

// UploadFile stores any other attachment as a raw resource.
func (c *clientImpl) UploadFile(ctx context.Context, file io.Reader, folder, publicID string) (string, error) {
	result, err := c.uploader.Upload(ctx, file, uploader.UploadParams{
		Folder:       folder,
		PublicID:     publicID,
		ResourceType: "raw",
	})
	if err != nil {
		return "", err
	}
	return result.SecureURL, nil
}

// NewClientFromParams builds a Client from Cloudinary cloud name, API key, and secret.
func NewClientFromParams(cloudName, apiKey, apiSecret string) (Client, error) {
	cfg, err := config.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, err
	}
	up, err := uploader.NewWithConfiguration(cfg)
	if err != nil {
		return nil, err
	}
	return &clientImpl{uploader: up}, nil
}
