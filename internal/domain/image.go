package domain

import (
	"strings"
	"time"
)

// ImageRecord represents a registered image in the catalog.
// ID is the join key shared with the vector index; BlobKey/BlobNamespace
// locate the raw bytes in object storage and are immutable once set.
type ImageRecord struct {
	ID            string    `gorm:"type:text;primaryKey" json:"id"`
	BlobKey       string    `gorm:"type:text;not null" json:"blob_key"`
	BlobNamespace string    `gorm:"type:text;not null" json:"blob_namespace"`
	FileName      string    `gorm:"type:text;not null" json:"file_name"`
	FileSize      int64     `gorm:"not null" json:"file_size"`
	MimeType      string    `gorm:"type:text;not null" json:"mime_type"`
	Width         int       `json:"width,omitempty"`
	Height        int       `json:"height,omitempty"`
	DisplayName   string    `gorm:"type:text;not null;index:idx_images_display_name" json:"display_name"`
	Description   string    `gorm:"type:text" json:"description,omitempty"`
	Tags          string    `gorm:"type:text;index:idx_images_tags" json:"tags,omitempty"`
	CreatedAt     time.Time `gorm:"index:idx_images_created_at" json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TableName returns the database table name for ImageRecord.
func (ImageRecord) TableName() string {
	return "images"
}

// TagList splits the stored comma-delimited tag string back into a slice.
func (r *ImageRecord) TagList() []string {
	if r.Tags == "" {
		return nil
	}
	parts := strings.Split(r.Tags, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			tags = append(tags, p)
		}
	}
	return tags
}

// JoinTags normalizes a tag slice into the stored comma-delimited form:
// trimmed, empties dropped, single comma separator.
func JoinTags(tags []string) string {
	cleaned := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			cleaned = append(cleaned, t)
		}
	}
	return strings.Join(cleaned, ",")
}

// ImageDetail is an ImageRecord hydrated with a time-limited retrieval URL.
// The URL is generated on demand and must not be persisted.
type ImageDetail struct {
	ImageRecord
	URL string `json:"url"`
}

// ImageMatch is a similarity search hit: a hydrated record plus its
// cosine similarity score against the query image.
type ImageMatch struct {
	ImageRecord
	URL   string  `json:"url"`
	Score float32 `json:"score"`
}
