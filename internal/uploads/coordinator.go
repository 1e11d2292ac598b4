package uploads

import (
	"context"
	"fmt"
	"mime"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/dvloznov/acct-ai/internal/logger"
)

const (
	defaultConcurrency = 4
	defaultHistoryCap  = 50
	defaultContentType = "application/octet-stream"
)

// Batch is the outcome of UploadAll. Items keep the input order.
type Batch struct {
	Items  []Item `json:"items"`
	Synced int    `json:"synced"`
	Failed int    `json:"failed"`
}

// Coordinator fans a batch of files out to the Uploader.
// Every file succeeds or fails on its own; a failure never stops its siblings.
type Coordinator struct {
	uploader    Uploader
	store       Store
	log         zerolog.Logger
	concurrency int
	historyCap  int
	now         func() time.Time
	newID       func() string

	// slotLocks serializes history load-merge-save per slot.
	slotLocksMu sync.Mutex
	slotLocks   map[string]*sync.Mutex
}

// Option customises a Coordinator.
type Option func(*Coordinator)

// WithConcurrency caps the number of simultaneous uploads.
func WithConcurrency(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// WithHistoryCap caps how many items a slot keeps.
func WithHistoryCap(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.historyCap = n
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// NewCoordinator creates a coordinator. store may be nil to skip history.
func NewCoordinator(uploader Uploader, store Store, log zerolog.Logger, opts ...Option) *Coordinator {
	c := &Coordinator{
		uploader:    uploader,
		store:       store,
		log:         logger.Component(log, "uploads"),
		concurrency: defaultConcurrency,
		historyCap:  defaultHistoryCap,
		now:         time.Now,
		newID:       uuid.NewString,
		slotLocks:   make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// UploadAll uploads files concurrently and waits for all of them.
func (c *Coordinator) UploadAll(ctx context.Context, slot string, files []File) Batch {
	now := c.now()
	items := make([]Item, len(files))
	for i, f := range files {
		items[i] = Item{
			ID:          c.newID(),
			Filename:    f.Name,
			ContentType: contentTypeFor(f),
			Size:        f.Size,
			Status:      StatusPending,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
	}
	if len(items) == 0 {
		return Batch{Items: items}
	}

	c.persist(ctx, slot, items)

	var g errgroup.Group
	g.SetLimit(c.concurrency)
	for i := range files {
		g.Go(func() error {
			// Each goroutine owns items[i] and nothing else.
			items[i].Status = StatusUploading
			key, err := c.uploadOne(ctx, items[i], files[i])
			items[i].UpdatedAt = c.now()
			if err != nil {
				items[i].Status = StatusFailed
				items[i].Error = err.Error()
				c.log.Warn().Err(err).Str("file", items[i].Filename).Str("id", items[i].ID).Msg("upload failed")
				return nil
			}
			items[i].Status = StatusSynced
			items[i].Key = key
			return nil
		})
	}
	_ = g.Wait()

	batch := Batch{Items: items}
	for _, item := range items {
		if item.Status == StatusSynced {
			batch.Synced++
		} else {
			batch.Failed++
		}
	}

	c.persist(ctx, slot, items)
	c.log.Info().
		Str("slot", slot).
		Int("files", len(items)).
		Int("synced", batch.Synced).
		Int("failed", batch.Failed).
		Msg("upload batch finished")
	return batch
}

// History returns the slot's persisted items, newest first.
func (c *Coordinator) History(ctx context.Context, slot string) ([]Item, error) {
	if c.store == nil {
		return []Item{}, nil
	}
	items, err := c.store.LoadPersistedUploads(ctx, slot)
	if err != nil {
		return nil, fmt.Errorf("History: %w", err)
	}
	return items, nil
}

func (c *Coordinator) uploadOne(ctx context.Context, item Item, f File) (string, error) {
	if f.Open == nil {
		return "", fmt.Errorf("%s: no content", f.Name)
	}

	target, err := c.uploader.RequestUploadURL(ctx, item.Filename, item.ContentType)
	if err != nil {
		return "", fmt.Errorf("request upload url: %w", err)
	}

	body, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("open %s: %w", f.Name, err)
	}
	defer body.Close()

	if err := c.uploader.PutObject(ctx, target.UploadURL, item.ContentType, body, item.Size); err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}
	return target.Key, nil
}

// persist merges batch into the slot history. Failures are logged only.
func (c *Coordinator) persist(ctx context.Context, slot string, batch []Item) {
	if c.store == nil {
		return
	}

	lock := c.slotLock(slot)
	lock.Lock()
	defer lock.Unlock()

	existing, err := c.store.LoadPersistedUploads(ctx, slot)
	if err != nil {
		c.log.Warn().Err(err).Str("slot", slot).Msg("could not load upload history")
		existing = nil
	}

	inBatch := make(map[string]struct{}, len(batch))
	merged := make([]Item, 0, len(batch)+len(existing))
	for _, item := range batch {
		inBatch[item.ID] = struct{}{}
		merged = append(merged, item)
	}
	for _, item := range existing {
		if _, dup := inBatch[item.ID]; !dup {
			merged = append(merged, item)
		}
	}
	if len(merged) > c.historyCap {
		merged = merged[:c.historyCap]
	}

	if err := c.store.SavePersistedUploads(ctx, slot, merged); err != nil {
		c.log.Warn().Err(err).Str("slot", slot).Msg("could not save upload history")
	}
}

func (c *Coordinator) slotLock(slot string) *sync.Mutex {
	c.slotLocksMu.Lock()
	defer c.slotLocksMu.Unlock()
	lock, ok := c.slotLocks[slot]
	if !ok {
		lock = &sync.Mutex{}
		c.slotLocks[slot] = lock
	}
	return lock
}

func contentTypeFor(f File) string {
	if f.ContentType != "" {
		return f.ContentType
	}
	if byExt := mime.TypeByExtension(filepath.Ext(f.Name)); byExt != "" {
		return byExt
	}
	return defaultContentType
}
