package service

import (
	"context"
	"strings"
	"time"

	"github.com/timmy/picseek/internal/domain"
	"github.com/timmy/picseek/internal/extractor"
	"github.com/timmy/picseek/internal/imaging"
	"github.com/timmy/picseek/internal/logger"
	"github.com/timmy/picseek/internal/repository"
	"github.com/timmy/picseek/internal/storage"
	"github.com/timmy/picseek/internal/vector"
)

// SearchService serves the read side: point lookups, paginated listings,
// text relevance search, and image similarity search.
type SearchService struct {
	catalog   repository.Catalog
	index     vector.Index
	blobs     storage.BlobStore
	extractor extractor.FeatureExtractor
	logger    *logger.Logger

	maxSizeBytes int64
	defaultLimit int
	maxLimit     int
	urlTTL       time.Duration
}

// SearchConfig holds configuration for the search service.
type SearchConfig struct {
	MaxSizeBytes int64
	DefaultLimit int
	MaxLimit     int
	URLTTL       time.Duration
}

// NewSearchService creates a new search service.
func NewSearchService(
	catalog repository.Catalog,
	index vector.Index,
	blobs storage.BlobStore,
	ext extractor.FeatureExtractor,
	log *logger.Logger,
	cfg *SearchConfig,
) *SearchService {
	return &SearchService{
		catalog:      catalog,
		index:        index,
		blobs:        blobs,
		extractor:    ext,
		logger:       log,
		maxSizeBytes: cfg.MaxSizeBytes,
		defaultLimit: cfg.DefaultLimit,
		maxLimit:     cfg.MaxLimit,
		urlTTL:       cfg.URLTTL,
	}
}

func (s *SearchService) log(ctx context.Context) *logger.Logger {
	if l, ok := logger.Attached(ctx); ok {
		return l
	}
	return s.logger
}

// clampLimit applies the default for zero and the ceiling for excess.
func (s *SearchService) clampLimit(limit int) (int, error) {
	if limit == 0 {
		return s.defaultLimit, nil
	}
	if limit < 1 || limit > s.maxLimit {
		return 0, domain.NewValidationError("limit must be between 1 and %d", s.maxLimit)
	}
	return limit, nil
}

// GetImage returns one record hydrated with a fresh retrieval URL.
func (s *SearchService) GetImage(ctx context.Context, id string) (*domain.ImageDetail, error) {
	rec, err := s.catalog.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	url, err := s.blobs.PresignURL(ctx, rec.BlobKey, s.urlTTL)
	if err != nil {
		s.log(ctx).WithField(logger.FieldImageID, id).WithError(err).Warn("Failed to presign URL")
	}

	return &domain.ImageDetail{ImageRecord: *rec, URL: url}, nil
}

// ImagePage is one page of a catalog listing.
type ImagePage struct {
	Items    []domain.ImageDetail `json:"items"`
	Total    int64                `json:"total"`
	Page     int                  `json:"page"`
	PageSize int                  `json:"page_size"`
}

// ListImages returns a page of records newest first, optionally narrowed to
// those whose tags contain tagFilter.
func (s *SearchService) ListImages(ctx context.Context, page, pageSize int, tagFilter string) (*ImagePage, error) {
	if page < 1 {
		page = 1
	}
	pageSize, err := s.clampLimit(pageSize)
	if err != nil {
		return nil, err
	}

	recs, err := s.catalog.List(ctx, page, pageSize, tagFilter)
	if err != nil {
		return nil, &domain.StorageError{Op: "catalog list", Err: err}
	}
	total, err := s.catalog.Count(ctx, tagFilter)
	if err != nil {
		return nil, &domain.StorageError{Op: "catalog count", Err: err}
	}

	items := make([]domain.ImageDetail, 0, len(recs))
	for i := range recs {
		items = append(items, domain.ImageDetail{
			ImageRecord: recs[i],
			URL:         s.presign(ctx, recs[i].ID, recs[i].BlobKey),
		})
	}

	return &ImagePage{Items: items, Total: total, Page: page, PageSize: pageSize}, nil
}

// SearchByText returns up to limit records ranked by text relevance against
// display name, description, and tags.
func (s *SearchService) SearchByText(ctx context.Context, query string, limit int) ([]domain.ImageDetail, error) {
	if strings.TrimSpace(query) == "" {
		return nil, domain.NewValidationError("query cannot be empty")
	}
	limit, err := s.clampLimit(limit)
	if err != nil {
		return nil, err
	}

	recs, err := s.catalog.SearchText(ctx, query, limit)
	if err != nil {
		return nil, &domain.StorageError{Op: "text search", Err: err}
	}

	items := make([]domain.ImageDetail, 0, len(recs))
	for i := range recs {
		items = append(items, domain.ImageDetail{
			ImageRecord: recs[i],
			URL:         s.presign(ctx, recs[i].ID, recs[i].BlobKey),
		})
	}
	return items, nil
}

// SearchByImage finds the stored images most similar to the query image.
// Hits whose catalog row has vanished are dropped rather than failing the
// whole request; the gap is logged for operators.
func (s *SearchService) SearchByImage(ctx context.Context, data []byte, mimeType string, limit int) ([]domain.ImageMatch, error) {
	if _, err := imaging.Validate(data, mimeType, s.maxSizeBytes); err != nil {
		return nil, err
	}
	limit, err := s.clampLimit(limit)
	if err != nil {
		return nil, err
	}

	// a query image the extractor cannot handle is unprocessable input
	vec, err := s.extractor.Extract(ctx, data, mimeType)
	if err != nil {
		return nil, domain.NewValidationError("image features could not be extracted: %v", err)
	}
	vec, err = extractor.Normalize(vec)
	if err != nil {
		return nil, domain.NewValidationError("image features could not be normalized: %v", err)
	}

	hits, err := s.index.Search(ctx, vec, limit)
	if err != nil {
		return nil, &domain.StorageError{Op: "vector search", Err: err}
	}

	return s.hydrate(ctx, hits)
}

// hydrate joins index hits against the catalog, preserving score order.
// Only the documented inconsistency (a hit whose catalog row is gone) is
// dropped silently; a catalog failure fails the whole request.
func (s *SearchService) hydrate(ctx context.Context, hits []vector.Hit) ([]domain.ImageMatch, error) {
	matches := make([]domain.ImageMatch, 0, len(hits))
	for _, hit := range hits {
		rec, err := s.catalog.GetByID(ctx, hit.ID)
		if err != nil {
			if domain.IsNotFound(err) {
				cerr := &domain.ConsistencyError{ID: hit.ID, Missing: "catalog"}
				s.log(ctx).WithField(logger.FieldImageID, hit.ID).WithError(cerr).Warn("Dropping index hit without catalog row")
				continue
			}
			return nil, &domain.StorageError{Op: "hit hydration", Err: err}
		}
		matches = append(matches, domain.ImageMatch{
			ImageRecord: *rec,
			URL:         s.presign(ctx, rec.ID, rec.BlobKey),
			Score:       hit.Score,
		})
	}
	return matches, nil
}

func (s *SearchService) presign(ctx context.Context, id, key string) string {
	url, err := s.blobs.PresignURL(ctx, key, s.urlTTL)
	if err != nil {
		s.log(ctx).WithField(logger.FieldImageID, id).WithError(err).Warn("Failed to presign URL")
		return ""
	}
	return url
}
