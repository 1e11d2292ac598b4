package objectstore

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// UploadPrefix is the folder every statement upload lands under.
const UploadPrefix = "uploads"

// Store holds uploaded statements and persisted summaries.
type Store interface {
	// SignedUploadURL returns a URL the caller can PUT the object body to.
	SignedUploadURL(ctx context.Context, key, contentType string) (string, error)
	// Put writes the object body under key.
	Put(ctx context.Context, key, contentType string, r io.Reader) error
	// PutJSON marshals v and writes it under key.
	PutJSON(ctx context.Context, key string, v interface{}) error
}

// UploadKey builds uploads/YYYY/MM/DD/<uuid>-<filename>.
func UploadKey(now time.Time, filename string) string {
	return fmt.Sprintf("%s/%s/%s-%s", UploadPrefix, now.UTC().Format("2006/01/02"), uuid.New().String(), cleanFilename(filename))
}

// SummaryKey builds <prefix>summary-YYYYmmddHHMMSS.json.
func SummaryKey(prefix string, now time.Time) string {
	return fmt.Sprintf("%ssummary-%s.json", prefix, now.UTC().Format("20060102150405"))
}

func cleanFilename(name string) string {
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "file"
	}
	return name
}
