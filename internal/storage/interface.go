package storage

import (
	"context"
	"fmt"
	"time"
)

// BlobStore is the object storage contract for raw image bytes. Keys are
// generated from the image id (see ObjectKey), never from content, so the
// store cannot deduplicate two logically distinct uploads. Only the key is
// persisted; retrieval URLs are minted on demand and expire.
type BlobStore interface {
	// Put stores data under key with the given content type.
	Put(ctx context.Context, key string, data []byte, contentType string) error

	// PresignURL returns a retrieval URL valid for ttl. Repeated calls may
	// return different URLs for the same key.
	PresignURL(ctx context.Context, key string, ttl time.Duration) (string, error)

	// Delete removes an object; deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Exists reports whether an object is stored under key.
	Exists(ctx context.Context, key string) (bool, error)

	// Namespace returns the bucket name recorded on catalog rows.
	Namespace() string

	// EnsureBucket creates the backing bucket if it does not exist.
	EnsureBucket(ctx context.Context) error
}

// ObjectKey derives the storage key for an image id. Id-derived keys are
// collision-resistant without leaking anything about the content.
func ObjectKey(id, ext string) string {
	return fmt.Sprintf("images/%s.%s", id, ext)
}
