package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/timmy/picseek/internal/domain"
	"gorm.io/gorm"
)

// SQLiteCatalog backs the catalog with SQLite and an FTS5 external-content
// table. Triggers keep images_fts in the same transaction as every write to
// images, so the index can never be observed out of sync.
type SQLiteCatalog struct {
	gormCatalog
}

// NewSQLiteCatalog creates the catalog and installs the FTS5 schema.
func NewSQLiteCatalog(db *gorm.DB) (*SQLiteCatalog, error) {
	c := &SQLiteCatalog{gormCatalog{db: db}}
	if err := c.initTextIndex(); err != nil {
		return nil, fmt.Errorf("failed to init sqlite text index: %w", err)
	}
	return c, nil
}

func (c *SQLiteCatalog) initTextIndex() error {
	stmts := []string{
		`CREATE VIRTUAL TABLE IF NOT EXISTS images_fts USING fts5(
			display_name,
			description,
			tags,
			content='images',
			content_rowid='rowid'
		)`,
		`CREATE TRIGGER IF NOT EXISTS images_fts_ai AFTER INSERT ON images BEGIN
			INSERT INTO images_fts(rowid, display_name, description, tags)
			VALUES (new.rowid, new.display_name, new.description, new.tags);
		END`,
		`CREATE TRIGGER IF NOT EXISTS images_fts_ad AFTER DELETE ON images BEGIN
			INSERT INTO images_fts(images_fts, rowid, display_name, description, tags)
			VALUES ('delete', old.rowid, old.display_name, old.description, old.tags);
		END`,
		`CREATE TRIGGER IF NOT EXISTS images_fts_au AFTER UPDATE ON images BEGIN
			INSERT INTO images_fts(images_fts, rowid, display_name, description, tags)
			VALUES ('delete', old.rowid, old.display_name, old.description, old.tags);
			INSERT INTO images_fts(rowid, display_name, description, tags)
			VALUES (new.rowid, new.display_name, new.description, new.tags);
		END`,
	}
	for _, stmt := range stmts {
		if err := c.db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}

// SearchText ranks matches with FTS5's bm25-based rank (lower is better).
func (c *SQLiteCatalog) SearchText(ctx context.Context, query string, limit int) ([]domain.ImageRecord, error) {
	match := ftsMatchQuery(query)
	if match == "" {
		return []domain.ImageRecord{}, nil
	}

	var recs []domain.ImageRecord
	err := c.db.WithContext(ctx).Raw(`
		SELECT images.*
		FROM images
		JOIN images_fts ON images.rowid = images_fts.rowid
		WHERE images_fts MATCH ?
		ORDER BY images_fts.rank, images.created_at DESC
		LIMIT ?`, match, limit).Scan(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("fts search failed: %w", err)
	}
	return recs, nil
}

// ftsMatchQuery quotes each token and OR-joins them so user input cannot
// inject FTS5 query syntax.
func ftsMatchQuery(query string) string {
	tokens := tokenize(query)
	if len(tokens) == 0 {
		return ""
	}
	quoted := make([]string, len(tokens))
	for i, tok := range tokens {
		quoted[i] = `"` + strings.ReplaceAll(tok, `"`, `""`) + `"`
	}
	return strings.Join(quoted, " OR ")
}
