// Package uploads sends batches of files to object storage and keeps an
// advisory per-slot history of what was sent.
package uploads

import (
	"context"
	"io"
	"time"

	"github.com/dvloznov/acct-ai/internal/apiclient"
)

// Status represents the current state of one upload.
type Status string

const (
	// StatusPending indicates the file is queued but not started.
	StatusPending Status = "pending"
	// StatusUploading indicates the file is in flight.
	StatusUploading Status = "uploading"
	// StatusSynced indicates the object store accepted the file.
	StatusSynced Status = "synced"
	// StatusFailed indicates the upload failed. Error holds the reason.
	StatusFailed Status = "failed"
)

// Item is one tracked upload.
type Item struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	Key         string    `json:"key,omitempty"`
	Status      Status    `json:"status"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// File is an upload source. Open is called once, from the uploading goroutine.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

// Store persists upload history per slot. The history is advisory: losing it
// never affects uploaded objects.
type Store interface {
	// LoadPersistedUploads returns the slot's items, newest first.
	LoadPersistedUploads(ctx context.Context, slot string) ([]Item, error)

	// SavePersistedUploads replaces the slot's items.
	SavePersistedUploads(ctx context.Context, slot string, items []Item) error
}

// Uploader is the remote side of an upload: obtain a destination, then PUT.
type Uploader interface {
	RequestUploadURL(ctx context.Context, filename, contentType string) (apiclient.UploadTarget, error)
	PutObject(ctx context.Context, uploadURL, contentType string, body io.Reader, size int64) error
}

var _ Uploader = (*apiclient.Client)(nil)
