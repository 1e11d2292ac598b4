package objectstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/storage"
	"github.com/rs/zerolog"
)

// signedURLTTL is how long a signed PUT URL stays valid.
const signedURLTTL = 15 * time.Minute

// GCS stores objects in a single Cloud Storage bucket.
// It assumes Application Default Credentials are configured.
type GCS struct {
	client *storage.Client
	bucket string
	log    zerolog.Logger
}

// NewGCS opens a storage client for bucket.
func NewGCS(ctx context.Context, bucket string, log zerolog.Logger) (*GCS, error) {
	if bucket == "" {
		return nil, fmt.Errorf("NewGCS: bucket is required")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("NewGCS: create storage client: %w", err)
	}
	return &GCS{client: client, bucket: bucket, log: log}, nil
}

// Close releases the storage client.
func (g *GCS) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

// SignedUploadURL signs a V4 PUT URL for key.
func (g *GCS) SignedUploadURL(_ context.Context, key, contentType string) (string, error) {
	opts := &storage.SignedURLOptions{
		Method:      "PUT",
		Expires:     time.Now().Add(signedURLTTL),
		ContentType: contentType,
		Scheme:      storage.SigningSchemeV4,
	}

	u, err := g.client.Bucket(g.bucket).SignedURL(key, opts)
	if err != nil {
		return "", fmt.Errorf("sign upload url for %q: %w", key, err)
	}
	return u, nil
}

// Put streams r into the bucket under key.
func (g *GCS) Put(ctx context.Context, key, contentType string, r io.Reader) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := g.client.Bucket(g.bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return fmt.Errorf("copy object to GCS writer: %w", err)
	}

	// Close finalizes the upload.
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize upload of %q: %w", key, err)
	}

	g.log.Debug().Str("bucket", g.bucket).Str("key", key).Msg("object stored")
	return nil
}

// PutJSON writes v as an application/json object.
func (g *GCS) PutJSON(ctx context.Context, key string, v interface{}) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %q: %w", key, err)
	}
	return g.Put(ctx, key, "application/json", bytes.NewReader(body))
}
