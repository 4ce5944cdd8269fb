package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/timmy/picseek/internal/domain"
	"github.com/timmy/picseek/internal/repository"
	"github.com/timmy/picseek/internal/vector"
)

type searchFixture struct {
	catalog repository.Catalog
	index   vector.Index
	blobs   *memBlobs
	ingest  *IngestService
	svc     *SearchService
}

func newSearchFixture(t *testing.T) *searchFixture {
	t.Helper()
	catalog := newMemCatalog()
	index := vector.NewMemoryIndex(4)
	blobs := newMemBlobs()
	ext := &stubExtractor{vec: []float32{1, 2, 3, 4}}
	log := quietLogger()

	ingest := NewIngestService(catalog, index, blobs, ext, log, &IngestConfig{
		MaxSizeBytes: 10 * 1024 * 1024,
		URLTTL:       time.Hour,
	})
	svc := NewSearchService(catalog, index, blobs, ext, log, &SearchConfig{
		MaxSizeBytes: 10 * 1024 * 1024,
		DefaultLimit: 10,
		MaxLimit:     100,
		URLTTL:       time.Hour,
	})
	return &searchFixture{catalog: catalog, index: index, blobs: blobs, ingest: ingest, svc: svc}
}

func TestGetImage(t *testing.T) {
	ctx := context.Background()
	f := newSearchFixture(t)

	created, err := f.ingest.CreateImage(ctx, pngInput(t, "lookup"))
	require.NoError(t, err)

	detail, err := f.svc.GetImage(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, created.ID, detail.ID)
	require.Contains(t, detail.URL, created.BlobKey)

	_, err = f.svc.GetImage(ctx, "missing")
	require.True(t, domain.IsNotFound(err))
}

func TestListImages(t *testing.T) {
	ctx := context.Background()
	f := newSearchFixture(t)

	for _, name := range []string{"one", "two", "three"} {
		in := pngInput(t, name)
		if name == "two" {
			in.Tags = []string{"special"}
		}
		_, err := f.ingest.CreateImage(ctx, in)
		require.NoError(t, err)
	}

	page, err := f.svc.ListImages(ctx, 1, 2, "")
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	require.EqualValues(t, 3, page.Total)
	require.Equal(t, 1, page.Page)
	require.Equal(t, 2, page.PageSize)
	for _, item := range page.Items {
		require.NotEmpty(t, item.URL)
	}

	// tag filter narrows both the page and the total
	filtered, err := f.svc.ListImages(ctx, 1, 10, "special")
	require.NoError(t, err)
	require.Len(t, filtered.Items, 1)
	require.EqualValues(t, 1, filtered.Total)
	require.Equal(t, "two", filtered.Items[0].DisplayName)

	// zero page size falls back to the default
	page, err = f.svc.ListImages(ctx, 0, 0, "")
	require.NoError(t, err)
	require.Equal(t, 1, page.Page)
	require.Equal(t, 10, page.PageSize)

	_, err = f.svc.ListImages(ctx, 1, 101, "")
	require.True(t, domain.IsValidation(err))
}

func TestSearchByText(t *testing.T) {
	ctx := context.Background()
	f := newSearchFixture(t)

	in := pngInput(t, "red barn")
	in.Description = "a barn in a field"
	_, err := f.ingest.CreateImage(ctx, in)
	require.NoError(t, err)

	items, err := f.svc.SearchByText(ctx, "barn", 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.NotEmpty(t, items[0].URL)

	items, err = f.svc.SearchByText(ctx, "unrelated", 10)
	require.NoError(t, err)
	require.Empty(t, items)

	_, err = f.svc.SearchByText(ctx, "   ", 10)
	require.True(t, domain.IsValidation(err))

	_, err = f.svc.SearchByText(ctx, "barn", 101)
	require.True(t, domain.IsValidation(err))
}

func TestSearchByImage(t *testing.T) {
	ctx := context.Background()
	f := newSearchFixture(t)

	created, err := f.ingest.CreateImage(ctx, pngInput(t, "target"))
	require.NoError(t, err)

	matches, err := f.svc.SearchByImage(ctx, encodePNG(t, 8, 8), "image/png", 5)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	require.Equal(t, created.ID, matches[0].ID)
	// stub extractor returns the same vector, so the match is exact
	require.InDelta(t, 1.0, float64(matches[0].Score), 1e-5)
	require.NotEmpty(t, matches[0].URL)
}

func TestSearchByImageEmptyIndex(t *testing.T) {
	f := newSearchFixture(t)

	matches, err := f.svc.SearchByImage(context.Background(), encodePNG(t, 8, 8), "image/png", 5)
	require.NoError(t, err)
	require.Empty(t, matches)
}

func TestSearchByImageValidatesQuery(t *testing.T) {
	f := newSearchFixture(t)

	_, err := f.svc.SearchByImage(context.Background(), []byte("not an image"), "image/png", 5)
	require.True(t, domain.IsValidation(err))

	_, err = f.svc.SearchByImage(context.Background(), encodePNG(t, 8, 8), "image/png", 500)
	require.True(t, domain.IsValidation(err))
}

func TestSearchByImageExtractionFailureIsValidation(t *testing.T) {
	f := newSearchFixture(t)
	svc := NewSearchService(f.catalog, f.index, f.blobs, failingExtractor{}, quietLogger(), &SearchConfig{
		MaxSizeBytes: 10 * 1024 * 1024,
		DefaultLimit: 10,
		MaxLimit:     100,
		URLTTL:       time.Hour,
	})

	_, err := svc.SearchByImage(context.Background(), encodePNG(t, 8, 8), "image/png", 5)
	require.Error(t, err)
	require.True(t, domain.IsValidation(err), "extraction failure should be a ValidationError, got %T: %v", err, err)
}

func TestSearchByImageCatalogOutageFails(t *testing.T) {
	ctx := context.Background()
	f := newSearchFixture(t)

	_, err := f.ingest.CreateImage(ctx, pngInput(t, "indexed"))
	require.NoError(t, err)

	// same index, but every catalog read now fails
	broken := NewSearchService(&outageCatalog{memCatalog: newMemCatalog()}, f.index, f.blobs, &stubExtractor{vec: []float32{1, 2, 3, 4}}, quietLogger(), &SearchConfig{
		MaxSizeBytes: 10 * 1024 * 1024,
		DefaultLimit: 10,
		MaxLimit:     100,
		URLTTL:       time.Hour,
	})

	_, err = broken.SearchByImage(ctx, encodePNG(t, 8, 8), "image/png", 5)
	require.Error(t, err, "a catalog outage must fail the request, not drop hits")
	require.True(t, domain.IsStorage(err), "expected StorageError, got %T: %v", err, err)
}

func TestSearchByImageDropsOrphanedHits(t *testing.T) {
	ctx := context.Background()
	f := newSearchFixture(t)

	kept, err := f.ingest.CreateImage(ctx, pngInput(t, "kept"))
	require.NoError(t, err)

	// plant an index entry with no catalog row
	require.NoError(t, f.index.Upsert(ctx, "orphan", []float32{0.5, 0.5, 0.5, 0.5}))

	matches, err := f.svc.SearchByImage(ctx, encodePNG(t, 8, 8), "image/png", 10)
	require.NoError(t, err)
	require.Len(t, matches, 1, "orphaned hit must be dropped, not fail the request")
	require.Equal(t, kept.ID, matches[0].ID)
}
