package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/timmy/picseek/internal/domain"
	"github.com/timmy/picseek/internal/repository"
	"github.com/timmy/picseek/internal/storage"
)

// encodePNG renders a small solid-color PNG for upload fixtures.
func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 100, B: 50, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// memCatalog is an in-memory Catalog for service tests.
type memCatalog struct {
	mu   sync.Mutex
	recs map[string]*domain.ImageRecord
}

var _ repository.Catalog = (*memCatalog)(nil)

func newMemCatalog() *memCatalog {
	return &memCatalog{recs: make(map[string]*domain.ImageRecord)}
}

func (c *memCatalog) Create(_ context.Context, rec *domain.ImageRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if rec.ID == "" {
		rec.ID = fmt.Sprintf("gen-%d", len(c.recs)+1)
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	clone := *rec
	c.recs[rec.ID] = &clone
	return nil
}

func (c *memCatalog) GetByID(_ context.Context, id string) (*domain.ImageRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.recs[id]
	if !ok {
		return nil, &domain.NotFoundError{Resource: "image", ID: id}
	}
	clone := *rec
	return &clone, nil
}

func (c *memCatalog) List(_ context.Context, page, pageSize int, tagFilter string) ([]domain.ImageRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var all []domain.ImageRecord
	for _, rec := range c.recs {
		if tagFilter != "" && !strings.Contains(rec.Tags, tagFilter) {
			continue
		}
		all = append(all, *rec)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID < all[j].ID
	})
	start := (page - 1) * pageSize
	if start >= len(all) {
		return []domain.ImageRecord{}, nil
	}
	end := start + pageSize
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], nil
}

func (c *memCatalog) Count(_ context.Context, tagFilter string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var n int64
	for _, rec := range c.recs {
		if tagFilter != "" && !strings.Contains(rec.Tags, tagFilter) {
			continue
		}
		n++
	}
	return n, nil
}

func (c *memCatalog) Update(_ context.Context, rec *domain.ImageRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.recs[rec.ID]; !ok {
		return &domain.NotFoundError{Resource: "image", ID: rec.ID}
	}
	rec.UpdatedAt = time.Now().UTC()
	clone := *rec
	c.recs[rec.ID] = &clone
	return nil
}

func (c *memCatalog) Delete(_ context.Context, id string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.recs[id]; !ok {
		return false, nil
	}
	delete(c.recs, id)
	return true, nil
}

func (c *memCatalog) SearchText(_ context.Context, query string, limit int) ([]domain.ImageRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	q := strings.ToLower(query)
	var out []domain.ImageRecord
	for _, rec := range c.recs {
		haystack := strings.ToLower(rec.DisplayName + " " + rec.Description + " " + rec.Tags)
		if strings.Contains(haystack, q) {
			out = append(out, *rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// failingCatalog makes Create fail to exercise blob rollback.
type failingCatalog struct {
	*memCatalog
}

func (c *failingCatalog) Create(context.Context, *domain.ImageRecord) error {
	return errors.New("catalog unavailable")
}

// cancelingCatalog cancels the request context before failing Create,
// simulating a request that times out mid-registration.
type cancelingCatalog struct {
	*memCatalog
	cancel context.CancelFunc
}

func (c *cancelingCatalog) Create(context.Context, *domain.ImageRecord) error {
	c.cancel()
	return errors.New("catalog unavailable")
}

// outageCatalog fails every read, simulating a catalog backend outage.
type outageCatalog struct {
	*memCatalog
}

func (c *outageCatalog) GetByID(context.Context, string) (*domain.ImageRecord, error) {
	return nil, errors.New("catalog connection refused")
}

// memBlobs is an in-memory BlobStore for service tests.
type memBlobs struct {
	mu      sync.Mutex
	objects map[string][]byte
}

var _ storage.BlobStore = (*memBlobs)(nil)

func newMemBlobs() *memBlobs {
	return &memBlobs{objects: make(map[string][]byte)}
}

func (b *memBlobs) Put(ctx context.Context, key string, data []byte, _ string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[key] = append([]byte(nil), data...)
	return nil
}

func (b *memBlobs) PresignURL(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://blobs.test/" + key + "?sig=abc", nil
}

// Delete honors context cancellation the way a real backend client would.
func (b *memBlobs) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.objects, key)
	return nil
}

func (b *memBlobs) Exists(_ context.Context, key string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.objects[key]
	return ok, nil
}

func (b *memBlobs) Namespace() string { return "test-bucket" }

func (b *memBlobs) EnsureBucket(context.Context) error { return nil }

func (b *memBlobs) size() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.objects)
}

func (b *memBlobs) object(key string) []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]byte(nil), b.objects[key]...)
}

// stubExtractor returns a fixed vector for every image.
type stubExtractor struct {
	vec []float32
}

func (e *stubExtractor) Extract(context.Context, []byte, string) ([]float32, error) {
	return append([]float32(nil), e.vec...), nil
}

func (e *stubExtractor) Dimensions() int { return len(e.vec) }

// failingExtractor simulates an inference backend rejecting the image.
type failingExtractor struct{}

func (failingExtractor) Extract(context.Context, []byte, string) ([]float32, error) {
	return nil, errors.New("inference backend rejected the image")
}

func (failingExtractor) Dimensions() int { return 4 }
