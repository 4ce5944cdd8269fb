package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/timmy/picseek/internal/api"
	"github.com/timmy/picseek/internal/config"
	"github.com/timmy/picseek/internal/extractor"
	"github.com/timmy/picseek/internal/logger"
	"github.com/timmy/picseek/internal/repository"
	"github.com/timmy/picseek/internal/service"
	"github.com/timmy/picseek/internal/storage"
	"github.com/timmy/picseek/internal/vector"
)

func main() {
	// CONFIG_PATH overrides the default lookup for production deployments
	configPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(&logger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		File:        cfg.Log.File,
		ServiceName: "picseek-api",
	})
	logger.SetDefaultLogger(log)

	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize database")
	}

	catalog, err := repository.NewCatalog(db)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize catalog")
	}

	ctx := context.Background()

	index, err := vector.New(ctx, &cfg.Vector)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize vector index")
	}
	defer index.Close()

	blobs, err := storage.NewBlobStore(&cfg.Storage)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize blob storage")
	}
	if err := blobs.EnsureBucket(ctx); err != nil {
		log.WithError(err).Fatal("Failed to ensure storage bucket")
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

	ingestService := service.NewIngestService(catalog, index, blobs, features, log, &service.IngestConfig{
		MaxSizeBytes: cfg.Upload.MaxSizeBytes,
		MaxWidth:     cfg.Upload.MaxWidth,
		MaxHeight:    cfg.Upload.MaxHeight,
		URLTTL:       cfg.Storage.URLTTL,
	})

	searchService := service.NewSearchService(catalog, index, blobs, features, log, &service.SearchConfig{
		MaxSizeBytes: cfg.Upload.MaxSizeBytes,
		DefaultLimit: cfg.Search.DefaultLimit,
		MaxLimit:     cfg.Search.MaxLimit,
		URLTTL:       cfg.Storage.URLTTL,
	})

	router := api.SetupRouter(ingestService, searchService, &cfg.Server)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.WithFields(logger.Fields{
			"port": cfg.Server.Port,
			"mode": cfg.Server.Mode,
		}).Info("Starting API server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Fatal("Server forced to shutdown")
	}

	log.Info("Server exited")
}
