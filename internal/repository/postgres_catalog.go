package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/timmy/picseek/internal/domain"
	"gorm.io/gorm"
)

// PostgresCatalog backs the catalog with PostgreSQL. A stored tsvector
// column is maintained by a native BEFORE INSERT OR UPDATE trigger, so the
// text index commits or rolls back together with the row it derives from.
type PostgresCatalog struct {
	gormCatalog
}

// NewPostgresCatalog creates the catalog and installs the tsvector schema.
func NewPostgresCatalog(db *gorm.DB) (*PostgresCatalog, error) {
	c := &PostgresCatalog{gormCatalog{db: db}}
	if err := c.initTextIndex(); err != nil {
		return nil, fmt.Errorf("failed to init postgres text index: %w", err)
	}
	return c, nil
}

func (c *PostgresCatalog) initTextIndex() error {
	stmts := []string{
		`ALTER TABLE images ADD COLUMN IF NOT EXISTS search_vector tsvector`,
		`CREATE INDEX IF NOT EXISTS idx_images_search_vector ON images USING gin(search_vector)`,
		`CREATE OR REPLACE FUNCTION images_search_vector_update() RETURNS trigger AS $$
		BEGIN
			NEW.search_vector :=
				setweight(to_tsvector('simple', coalesce(NEW.display_name, '')), 'A') ||
				setweight(to_tsvector('simple', translate(coalesce(NEW.tags, ''), ',', ' ')), 'B') ||
				setweight(to_tsvector('simple', coalesce(NEW.description, '')), 'C');
			RETURN NEW;
		END
		$$ LANGUAGE plpgsql`,
		`DROP TRIGGER IF EXISTS images_search_vector_trigger ON images`,
		`CREATE TRIGGER images_search_vector_trigger
			BEFORE INSERT OR UPDATE ON images
			FOR EACH ROW EXECUTE FUNCTION images_search_vector_update()`,
	}
	for _, stmt := range stmts {
		if err := c.db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}

// SearchText ranks matches with ts_rank over the stored search_vector.
func (c *PostgresCatalog) SearchText(ctx context.Context, query string, limit int) ([]domain.ImageRecord, error) {
	tokens := tokenize(query)
	if len(tokens) == 0 {
		return []domain.ImageRecord{}, nil
	}
	// websearch_to_tsquery tolerates arbitrary user input; OR semantics
	// across terms matches the sqlite backend's contract
	tsquery := strings.Join(tokens, " OR ")

	var recs []domain.ImageRecord
	err := c.db.WithContext(ctx).Raw(`
		SELECT id, blob_key, blob_namespace, file_name, file_size, mime_type,
		       width, height, display_name, description, tags, created_at, updated_at
		FROM images
		WHERE search_vector @@ websearch_to_tsquery('simple', ?)
		ORDER BY ts_rank(search_vector, websearch_to_tsquery('simple', ?)) DESC, created_at DESC
		LIMIT ?`, tsquery, tsquery, limit).Scan(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("tsquery search failed: %w", err)
	}
	return recs, nil
}
