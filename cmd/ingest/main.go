package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/timmy/picseek/internal/config"
	"github.com/timmy/picseek/internal/extractor"
	"github.com/timmy/picseek/internal/logger"
	"github.com/timmy/picseek/internal/repository"
	"github.com/timmy/picseek/internal/service"
	"github.com/timmy/picseek/internal/storage"
	"github.com/timmy/picseek/internal/vector"
)

func main() {
	appLogger := logger.New(&logger.Config{
		Level:       "info",
		Format:      "json",
		ServiceName: "picseek-ingest",
	})
	logger.SetDefaultLogger(appLogger)

	dir := flag.String("dir", "", "Directory of images to ingest (required)")
	workers := flag.Int("workers", 4, "Number of concurrent ingestion workers")
	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	if *dir == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}

	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize database")
	}

	catalog, err := repository.NewCatalog(db)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize catalog")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	index, err := vector.New(ctx, &cfg.Vector)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize vector index")
	}
	defer index.Close()

	blobs, err := storage.NewBlobStore(&cfg.Storage)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize blob storage")
	}
	if err := blobs.EnsureBucket(ctx); err != nil {
		appLogger.WithError(err).Fatal("Failed to ensure storage bucket")
	}

	features := extractor.NewBounded(
		extractor.NewHTTPExtractor(&extractor.HTTPConfig{
			Endpoint:   cfg.Extractor.Endpoint,
			Model:      cfg.Extractor.Model,
			APIKey:     cfg.Extractor.APIKey,
			Timeout:    cfg.Extractor.Timeout,
			Dimensions: cfg.Vector.Dimensions,
		}),
		cfg.Extractor.MaxConcurrent,
	)

	ingestService := service.NewIngestService(catalog, index, blobs, features, appLogger, &service.IngestConfig{
		MaxSizeBytes: cfg.Upload.MaxSizeBytes,
		MaxWidth:     cfg.Upload.MaxWidth,
		MaxHeight:    cfg.Upload.MaxHeight,
		URLTTL:       cfg.Storage.URLTTL,
	})

	// Cancel the run on interrupt so workers drain cleanly
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		appLogger.Info("Interrupt received, stopping ingestion")
		cancel()
	}()

	stats, err := ingestService.IngestDirectory(ctx, *dir, *workers)
	if err != nil {
		appLogger.WithError(err).Fatal("Ingestion failed")
	}

	appLogger.WithFields(logger.Fields{
		"total":     stats.TotalItems,
		"processed": stats.ProcessedItems,
		"failed":    stats.FailedItems,
		"duration":  stats.EndTime.Sub(stats.StartTime).String(),
	}).Info("Ingestion finished")

	if stats.FailedItems > 0 {
		os.Exit(1)
	}
}
