package objectstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strings"
	"sync"
)

// Object is a stored blob.
type Object struct {
	ContentType string
	Body        []byte
}

// Memory keeps objects in process. Its upload URLs point back at the
// ledger API's own PUT route, so it is only useful for local runs and tests.
type Memory struct {
	mu      sync.RWMutex
	objects map[string]Object
	baseURL string
}

// NewMemory creates an empty store. baseURL prefixes the upload URLs it
// hands out; leave it empty for relative URLs.
func NewMemory(baseURL string) *Memory {
	return &Memory{
		objects: make(map[string]Object),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// SignedUploadURL returns <baseURL>/<key>.
func (m *Memory) SignedUploadURL(_ context.Context, key, _ string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("empty object key")
	}
	escaped := (&url.URL{Path: "/" + key}).EscapedPath()
	return m.baseURL + escaped, nil
}

// Put stores the body of r under key.
func (m *Memory) Put(_ context.Context, key, contentType string, r io.Reader) error {
	if key == "" {
		return fmt.Errorf("empty object key")
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read object %q: %w", key, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = Object{ContentType: contentType, Body: body}
	return nil
}

// PutJSON marshals v and stores it under key.
func (m *Memory) PutJSON(ctx context.Context, key string, v interface{}) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %q: %w", key, err)
	}
	return m.Put(ctx, key, "application/json", bytes.NewReader(body))
}

// Get returns the object stored under key.
func (m *Memory) Get(key string) (Object, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key]
	return obj, ok
}

// Keys lists stored keys in order.
func (m *Memory) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
