package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/timmy/picseek/internal/domain"
	"github.com/timmy/picseek/internal/extractor"
	"github.com/timmy/picseek/internal/imaging"
	"github.com/timmy/picseek/internal/logger"
	"github.com/timmy/picseek/internal/repository"
	"github.com/timmy/picseek/internal/storage"
	"github.com/timmy/picseek/internal/vector"
)

// IngestService orchestrates image registration across the blob store, the
// metadata catalog, and the vector index. The three stores fail independently;
// writes happen blob first, then catalog, then index, and a failure at any
// step deletes what the earlier steps wrote before the error is returned.
type IngestService struct {
	catalog   repository.Catalog
	index     vector.Index
	blobs     storage.BlobStore
	extractor extractor.FeatureExtractor
	logger    *logger.Logger

	maxSizeBytes int64
	maxWidth     int
	maxHeight    int
	urlTTL       time.Duration
}

// IngestConfig holds configuration for the ingest service.
type IngestConfig struct {
	MaxSizeBytes int64
	MaxWidth     int
	MaxHeight    int
	URLTTL       time.Duration
}

// NewIngestService creates a new ingest service.
func NewIngestService(
	catalog repository.Catalog,
	index vector.Index,
	blobs storage.BlobStore,
	ext extractor.FeatureExtractor,
	log *logger.Logger,
	cfg *IngestConfig,
) *IngestService {
	return &IngestService{
		catalog:      catalog,
		index:        index,
		blobs:        blobs,
		extractor:    ext,
		logger:       log,
		maxSizeBytes: cfg.MaxSizeBytes,
		maxWidth:     cfg.MaxWidth,
		maxHeight:    cfg.MaxHeight,
		urlTTL:       cfg.URLTTL,
	}
}

// log returns the request-scoped logger when one is attached to ctx,
// otherwise the service logger.
func (s *IngestService) log(ctx context.Context) *logger.Logger {
	if l, ok := logger.Attached(ctx); ok {
		return l
	}
	return s.logger
}

// CreateImageInput carries one upload plus its caller-supplied metadata.
type CreateImageInput struct {
	Data        []byte
	FileName    string
	MimeType    string
	DisplayName string
	Description string
	Tags        []string
}

// CreateImage registers a new image: validate, extract features, store the
// bytes, record metadata, index the vector. Either every store ends up with
// the image or none does.
func (s *IngestService) CreateImage(ctx context.Context, in *CreateImageInput) (*domain.ImageDetail, error) {
	if strings.TrimSpace(in.DisplayName) == "" {
		return nil, domain.NewValidationError("display_name is required")
	}

	info, err := imaging.Validate(in.Data, in.MimeType, s.maxSizeBytes)
	if err != nil {
		return nil, err
	}

	// External inference happens before any persistence so a failure here
	// needs no rollback. An image the extractor cannot handle is rejected
	// as unprocessable input, not an internal failure.
	vec, err := s.extractor.Extract(ctx, in.Data, in.MimeType)
	if err != nil {
		return nil, domain.NewValidationError("image features could not be extracted: %v", err)
	}
	vec, err = extractor.Normalize(vec)
	if err != nil {
		return nil, domain.NewValidationError("image features could not be normalized: %v", err)
	}

	// Downscale oversized uploads; keep the original bytes on any failure.
	data := in.Data
	if resized, rerr := imaging.Resize(in.Data, s.maxWidth, s.maxHeight); rerr == nil {
		data = resized
	} else {
		s.log(ctx).WithError(rerr).Warn("Failed to resize image, storing original")
	}

	id := uuid.New().String()
	key := storage.ObjectKey(id, info.Ext)

	rec := &domain.ImageRecord{
		ID:            id,
		BlobKey:       key,
		BlobNamespace: s.blobs.Namespace(),
		FileName:      in.FileName,
		FileSize:      int64(len(in.Data)), // size of the upload, not the stored rendition
		MimeType:      in.MimeType,
		Width:         info.Width,
		Height:        info.Height,
		DisplayName:   strings.TrimSpace(in.DisplayName),
		Description:   in.Description,
		Tags:          domain.JoinTags(in.Tags),
	}

	if err := s.blobs.Put(ctx, key, data, in.MimeType); err != nil {
		return nil, &domain.StorageError{Op: "blob upload", Err: err}
	}

	if err := s.catalog.Create(ctx, rec); err != nil {
		s.rollbackBlob(ctx, key)
		return nil, &domain.StorageError{Op: "catalog create", Err: err}
	}

	if err := s.index.Upsert(ctx, id, vec); err != nil {
		s.rollbackCatalog(ctx, id)
		s.rollbackBlob(ctx, key)
		return nil, &domain.StorageError{Op: "vector upsert", Err: err}
	}

	url, err := s.blobs.PresignURL(ctx, key, s.urlTTL)
	if err != nil {
		// The image is fully registered; a presign failure only costs the
		// caller the immediate URL.
		s.log(ctx).WithField(logger.FieldImageID, id).WithError(err).Warn("Failed to presign URL for new image")
	}

	s.log(ctx).WithFields(logger.Fields{
		logger.FieldImageID: id,
		logger.FieldSize:    rec.FileSize,
	}).Info("Image registered")

	return &domain.ImageDetail{ImageRecord: *rec, URL: url}, nil
}

// Compensation must still run when the request context is already canceled;
// cancellation is one of the failure modes that triggers it.
func (s *IngestService) rollbackBlob(ctx context.Context, key string) {
	if err := s.blobs.Delete(context.WithoutCancel(ctx), key); err != nil {
		s.log(ctx).WithField("blob_key", key).WithError(err).Error("Failed to rollback blob upload")
	}
}

func (s *IngestService) rollbackCatalog(ctx context.Context, id string) {
	if _, err := s.catalog.Delete(context.WithoutCancel(ctx), id); err != nil {
		s.log(ctx).WithField(logger.FieldImageID, id).WithError(err).Error("Failed to rollback catalog record")
	}
}

// UpdateImageInput carries the mutable metadata fields; nil means unchanged.
type UpdateImageInput struct {
	DisplayName *string
	Description *string
	Tags        []string
}

// UpdateImage rewrites caller-editable metadata. The blob and the vector are
// derived from the image bytes and never change here.
func (s *IngestService) UpdateImage(ctx context.Context, id string, in *UpdateImageInput) (*domain.ImageDetail, error) {
	rec, err := s.catalog.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.DisplayName != nil {
		name := strings.TrimSpace(*in.DisplayName)
		if name == "" {
			return nil, domain.NewValidationError("display_name cannot be empty")
		}
		rec.DisplayName = name
	}
	if in.Description != nil {
		rec.Description = *in.Description
	}
	if in.Tags != nil {
		rec.Tags = domain.JoinTags(in.Tags)
	}

	if err := s.catalog.Update(ctx, rec); err != nil {
		return nil, &domain.StorageError{Op: "catalog update", Err: err}
	}

	url, err := s.blobs.PresignURL(ctx, rec.BlobKey, s.urlTTL)
	if err != nil {
		s.log(ctx).WithField(logger.FieldImageID, id).WithError(err).Warn("Failed to presign URL")
	}

	return &domain.ImageDetail{ImageRecord: *rec, URL: url}, nil
}

// DeleteImage removes an image from all three stores. The catalog row goes
// first so the image stops being listable immediately; index and blob
// removals are idempotent and follow.
func (s *IngestService) DeleteImage(ctx context.Context, id string) error {
	rec, err := s.catalog.GetByID(ctx, id)
	if err != nil {
		return err
	}

	existed, err := s.catalog.Delete(ctx, id)
	if err != nil {
		return &domain.StorageError{Op: "catalog delete", Err: err}
	}
	if !existed {
		return &domain.NotFoundError{Resource: "image", ID: id}
	}

	if err := s.index.Delete(ctx, id); err != nil {
		return &domain.StorageError{Op: "vector delete", Err: err}
	}

	if err := s.blobs.Delete(ctx, rec.BlobKey); err != nil {
		return &domain.StorageError{Op: "blob delete", Err: err}
	}

	s.log(ctx).WithField(logger.FieldImageID, id).Info("Image deleted")
	return nil
}

// IngestStats holds statistics for a bulk ingestion run.
type IngestStats struct {
	TotalItems     int64
	ProcessedItems int64
	FailedItems    int64
	StartTime      time.Time
	EndTime        time.Time
}

var supportedUploadExts = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
}

// IngestDirectory registers every supported image file under dir using a
// fixed-size worker pool. Failures are counted and logged, not fatal.
func (s *IngestService) IngestDirectory(ctx context.Context, dir string, workers int) (*IngestStats, error) {
	if workers < 1 {
		workers = 1
	}

	stats := &IngestStats{StartTime: time.Now()}

	var paths []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if _, ok := supportedUploadExts[strings.ToLower(filepath.Ext(path))]; ok {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}

	stats.TotalItems = int64(len(paths))

	s.log(ctx).WithFields(logger.Fields{
		"dir":   dir,
		"files": len(paths),
	}).Info("Starting bulk ingestion")

	pathsChan := make(chan string, workers*2)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range pathsChan {
				if ctx.Err() != nil {
					return
				}
				if err := s.ingestFile(ctx, path); err != nil {
					atomic.AddInt64(&stats.FailedItems, 1)
					s.log(ctx).WithField("path", path).WithError(err).Error("Failed to ingest file")
					continue
				}
				atomic.AddInt64(&stats.ProcessedItems, 1)
			}
		}()
	}

	for _, path := range paths {
		select {
		case pathsChan <- path:
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}
	}
	close(pathsChan)
	wg.Wait()

	stats.EndTime = time.Now()

	s.log(ctx).WithFields(logger.Fields{
		"total":     stats.TotalItems,
		"processed": stats.ProcessedItems,
		"failed":    stats.FailedItems,
		"duration":  stats.EndTime.Sub(stats.StartTime).String(),
	}).Info("Bulk ingestion completed")

	return stats, nil
}

func (s *IngestService) ingestFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	base := filepath.Base(path)
	name := strings.TrimSuffix(base, filepath.Ext(base))

	_, err = s.CreateImage(ctx, &CreateImageInput{
		Data:        data,
		FileName:    base,
		MimeType:    supportedUploadExts[strings.ToLower(filepath.Ext(path))],
		DisplayName: name,
	})
	return err
}
