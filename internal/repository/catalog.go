package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/timmy/picseek/internal/domain"
	"gorm.io/gorm"
)

// Catalog is the metadata store contract. Two implementations exist, one per
// database backend, selected by NewCatalog from the connection's dialect.
// Every write keeps the full-text index in step with the primary table, so
// SearchText never surfaces deleted or uncommitted rows.
type Catalog interface {
	// Create persists a new record, assigning an id when rec.ID is empty.
	Create(ctx context.Context, rec *domain.ImageRecord) error

	// GetByID retrieves a record or a NotFoundError.
	GetByID(ctx context.Context, id string) (*domain.ImageRecord, error)

	// List returns one page ordered by created_at descending, id ascending
	// on ties. tagFilter is a substring match on the stored tag string.
	List(ctx context.Context, page, pageSize int, tagFilter string) ([]domain.ImageRecord, error)

	// Count returns the total under the same predicate List uses.
	Count(ctx context.Context, tagFilter string) (int64, error)

	// Update saves mutated metadata fields and bumps UpdatedAt.
	Update(ctx context.Context, rec *domain.ImageRecord) error

	// Delete removes a record, reporting whether it existed.
	Delete(ctx context.Context, id string) (bool, error)

	// SearchText returns up to limit records ranked by relevance against
	// displayName, description, and tags; ties break by created_at descending.
	SearchText(ctx context.Context, query string, limit int) ([]domain.ImageRecord, error)
}

// NewCatalog builds the Catalog implementation matching the connected
// database and installs its text-index schema.
func NewCatalog(db *gorm.DB) (Catalog, error) {
	switch db.Dialector.Name() {
	case "sqlite":
		return NewSQLiteCatalog(db)
	case "postgres":
		return NewPostgresCatalog(db)
	default:
		return nil, fmt.Errorf("no catalog implementation for dialect %q", db.Dialector.Name())
	}
}

// gormCatalog carries the operations shared by both backends.
type gormCatalog struct {
	db *gorm.DB
}

func (c *gormCatalog) Create(ctx context.Context, rec *domain.ImageRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	return c.db.WithContext(ctx).Create(rec).Error
}

func (c *gormCatalog) GetByID(ctx context.Context, id string) (*domain.ImageRecord, error) {
	var rec domain.ImageRecord
	if err := c.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &domain.NotFoundError{Resource: "image", ID: id}
		}
		return nil, err
	}
	return &rec, nil
}

func (c *gormCatalog) List(ctx context.Context, page, pageSize int, tagFilter string) ([]domain.ImageRecord, error) {
	var recs []domain.ImageRecord
	query := c.db.WithContext(ctx)
	if tagFilter != "" {
		query = query.Where("tags LIKE ?", "%"+tagFilter+"%")
	}
	// id ascending keeps pagination stable when created_at collides
	if err := query.
		Order("created_at DESC").
		Order("id ASC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&recs).Error; err != nil {
		return nil, err
	}
	return recs, nil
}

func (c *gormCatalog) Count(ctx context.Context, tagFilter string) (int64, error) {
	var count int64
	query := c.db.WithContext(ctx).Model(&domain.ImageRecord{})
	if tagFilter != "" {
		query = query.Where("tags LIKE ?", "%"+tagFilter+"%")
	}
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (c *gormCatalog) Update(ctx context.Context, rec *domain.ImageRecord) error {
	rec.UpdatedAt = time.Now().UTC()
	return c.db.WithContext(ctx).Save(rec).Error
}

func (c *gormCatalog) Delete(ctx context.Context, id string) (bool, error) {
	res := c.db.WithContext(ctx).Delete(&domain.ImageRecord{}, "id = ?", id)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// tokenize splits a raw query into lowercase terms, dropping punctuation-only
// fragments so backend query builders receive clean input.
func tokenize(query string) []string {
	fields := strings.FieldsFunc(query, func(r rune) bool {
		switch r {
		case ' ', '\t', '\n', ',', ';', '"', '\'':
			return true
		}
		return false
	})
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			tokens = append(tokens, strings.ToLower(f))
		}
	}
	return tokens
}
