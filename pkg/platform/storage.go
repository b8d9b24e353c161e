package platform

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"path"
	"strings"
)

type StorageBucket struct {
	client *Client
	bucket string
}

type UploadResult struct {
	Key       string `json:"Key"`
	PublicURL string `json:"public_url"`
}

func (c *Client) Storage(bucket string) *StorageBucket {
	return &StorageBucket{client: c, bucket: bucket}
}

// Upload sends r as the multipart field "file" and returns the stored
// object's key and public URL.
func (b *StorageBucket) Upload(ctx context.Context, objectPath string, r io.Reader) (*UploadResult, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", path.Base(objectPath))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	h := b.client.authHeader()
	h.Set("Content-Type", mw.FormDataContentType())

	p := "/storage/v1/object/" + b.bucket + "/" + strings.TrimPrefix(objectPath, "/")
	var res UploadResult
	if err := b.client.do(ctx, http.MethodPost, p, nil, &buf, h, &res); err != nil {
		return nil, err
	}
	return &res, nil
}
