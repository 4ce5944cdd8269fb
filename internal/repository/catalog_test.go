package repository

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/timmy/picseek/internal/config"
	"github.com/timmy/picseek/internal/domain"
)

func newTestCatalog(t *testing.T) Catalog {
	t.Helper()

	db, err := InitDB(&config.DatabaseConfig{
		Driver:       "sqlite",
		Path:         filepath.Join(t.TempDir(), "catalog_test.db"),
		MaxIdleConns: 1,
		MaxOpenConns: 1,
		AutoMigrate:  true,
	})
	require.NoError(t, err)

	catalog, err := NewCatalog(db)
	require.NoError(t, err)
	return catalog
}

func testRecord(id, name string, tags ...string) *domain.ImageRecord {
	return &domain.ImageRecord{
		ID:            id,
		BlobKey:       "images/" + id + ".jpg",
		BlobNamespace: "images",
		FileName:      name + ".jpg",
		FileSize:      1024,
		MimeType:      "image/jpeg",
		DisplayName:   name,
		Tags:          domain.JoinTags(tags),
	}
}

func TestCatalogCreateAndGet(t *testing.T) {
	ctx := context.Background()
	catalog := newTestCatalog(t)

	rec := testRecord("", "sunset at the beach", "sunset", "beach")
	rec.Description = "orange sky over calm water"
	require.NoError(t, catalog.Create(ctx, rec))
	require.NotEmpty(t, rec.ID, "Create should assign an id")
	require.False(t, rec.CreatedAt.IsZero())

	got, err := catalog.GetByID(ctx, rec.ID)
	require.NoError(t, err)
	require.Equal(t, rec.DisplayName, got.DisplayName)
	require.Equal(t, rec.Description, got.Description)
	require.Equal(t, []string{"sunset", "beach"}, got.TagList())
}

func TestCatalogGetMissing(t *testing.T) {
	catalog := newTestCatalog(t)

	_, err := catalog.GetByID(context.Background(), "no-such-id")
	require.Error(t, err)
	require.True(t, domain.IsNotFound(err), "expected NotFoundError, got %v", err)
}

func TestCatalogListOrderAndPagination(t *testing.T) {
	ctx := context.Background()
	catalog := newTestCatalog(t)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		rec := testRecord(fmt.Sprintf("id-%d", i), fmt.Sprintf("image %d", i))
		rec.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, catalog.Create(ctx, rec))
	}

	// newest first
	page1, err := catalog.List(ctx, 1, 2, "")
	require.NoError(t, err)
	require.Len(t, page1, 2)
	require.Equal(t, "id-4", page1[0].ID)
	require.Equal(t, "id-3", page1[1].ID)

	page2, err := catalog.List(ctx, 2, 2, "")
	require.NoError(t, err)
	require.Len(t, page2, 2)
	require.Equal(t, "id-2", page2[0].ID)
	require.Equal(t, "id-1", page2[1].ID)

	page3, err := catalog.List(ctx, 3, 2, "")
	require.NoError(t, err)
	require.Len(t, page3, 1)
	require.Equal(t, "id-0", page3[0].ID)

	// pages beyond the data are empty, not errors
	page4, err := catalog.List(ctx, 4, 2, "")
	require.NoError(t, err)
	require.Empty(t, page4)
}

func TestCatalogListStableOnEqualTimestamps(t *testing.T) {
	ctx := context.Background()
	catalog := newTestCatalog(t)

	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for _, id := range []string{"b", "c", "a"} {
		rec := testRecord(id, "same moment")
		rec.CreatedAt = ts
		require.NoError(t, catalog.Create(ctx, rec))
	}

	recs, err := catalog.List(ctx, 1, 10, "")
	require.NoError(t, err)
	require.Len(t, recs, 3)
	require.Equal(t, "a", recs[0].ID)
	require.Equal(t, "b", recs[1].ID)
	require.Equal(t, "c", recs[2].ID)
}

func TestCatalogTagFilter(t *testing.T) {
	ctx := context.Background()
	catalog := newTestCatalog(t)

	require.NoError(t, catalog.Create(ctx, testRecord("1", "tabby", "cat", "indoor")))
	require.NoError(t, catalog.Create(ctx, testRecord("2", "retriever", "dog", "outdoor")))
	require.NoError(t, catalog.Create(ctx, testRecord("3", "kitten", "cat")))

	cats, err := catalog.List(ctx, 1, 10, "cat")
	require.NoError(t, err)
	require.Len(t, cats, 2)
	for _, rec := range cats {
		require.Contains(t, rec.Tags, "cat")
	}

	catCount, err := catalog.Count(ctx, "cat")
	require.NoError(t, err)
	require.EqualValues(t, 2, catCount)

	all, err := catalog.Count(ctx, "")
	require.NoError(t, err)
	require.EqualValues(t, 3, all)

	none, err := catalog.List(ctx, 1, 10, "bird")
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestCatalogDelete(t *testing.T) {
	ctx := context.Background()
	catalog := newTestCatalog(t)

	require.NoError(t, catalog.Create(ctx, testRecord("del-1", "ephemeral")))

	existed, err := catalog.Delete(ctx, "del-1")
	require.NoError(t, err)
	require.True(t, existed)

	existed, err = catalog.Delete(ctx, "del-1")
	require.NoError(t, err)
	require.False(t, existed, "second delete should report absence")

	_, err = catalog.GetByID(ctx, "del-1")
	require.True(t, domain.IsNotFound(err))
}

func TestCatalogSearchText(t *testing.T) {
	ctx := context.Background()
	catalog := newTestCatalog(t)

	sunset := testRecord("s1", "golden sunset", "sunset", "sky")
	sunset.Description = "a golden sunset over the mountains"
	require.NoError(t, catalog.Create(ctx, sunset))

	city := testRecord("c1", "city lights")
	city.Description = "skyline at night"
	require.NoError(t, catalog.Create(ctx, city))

	recs, err := catalog.SearchText(ctx, "sunset", 10)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, "s1", recs[0].ID)

	// matches in description count too
	recs, err = catalog.SearchText(ctx, "skyline", 10)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, "c1", recs[0].ID)

	recs, err = catalog.SearchText(ctx, "nothing matches this", 10)
	require.NoError(t, err)
	require.Empty(t, recs)
}

func TestCatalogSearchTextExcludesDeleted(t *testing.T) {
	ctx := context.Background()
	catalog := newTestCatalog(t)

	rec := testRecord("gone", "vanishing act", "magic")
	require.NoError(t, catalog.Create(ctx, rec))

	recs, err := catalog.SearchText(ctx, "vanishing", 10)
	require.NoError(t, err)
	require.Len(t, recs, 1)

	_, err = catalog.Delete(ctx, "gone")
	require.NoError(t, err)

	recs, err = catalog.SearchText(ctx, "vanishing", 10)
	require.NoError(t, err)
	require.Empty(t, recs, "deleted records must not be searchable")
}

func TestCatalogUpdateReindexes(t *testing.T) {
	ctx := context.Background()
	catalog := newTestCatalog(t)

	rec := testRecord("u1", "old title")
	require.NoError(t, catalog.Create(ctx, rec))

	rec.DisplayName = "brand new title"
	require.NoError(t, catalog.Update(ctx, rec))

	recs, err := catalog.SearchText(ctx, "brand", 10)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, "u1", recs[0].ID)

	recs, err = catalog.SearchText(ctx, "old", 10)
	require.NoError(t, err)
	require.Empty(t, recs, "stale terms must stop matching after update")

	got, err := catalog.GetByID(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, "brand new title", got.DisplayName)
}

func TestCatalogSearchTextLimit(t *testing.T) {
	ctx := context.Background()
	catalog := newTestCatalog(t)

	for i := 0; i < 5; i++ {
		require.NoError(t, catalog.Create(ctx, testRecord(fmt.Sprintf("m-%d", i), "forest trail", "forest")))
	}

	recs, err := catalog.SearchText(ctx, "forest", 3)
	require.NoError(t, err)
	require.Len(t, recs, 3)
}
