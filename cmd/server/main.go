package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/markoub/power-it-sub001/internal/api"
	"github.com/markoub/power-it-sub001/internal/infra/config"
	"github.com/markoub/power-it-sub001/internal/infra/httpclient"
	"github.com/markoub/power-it-sub001/internal/infra/limiter"
	"github.com/markoub/power-it-sub001/internal/infra/logger"
	"github.com/markoub/power-it-sub001/internal/pipeline"
	"github.com/markoub/power-it-sub001/internal/service/content"
	"github.com/markoub/power-it-sub001/internal/service/images"
	"github.com/markoub/power-it-sub001/internal/service/renderer"
	"github.com/markoub/power-it-sub001/internal/service/storage"
	"github.com/markoub/power-it-sub001/internal/store"
)

func main() {
	// Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Init logger
	zapLogger, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer zapLogger.Sync()

	// Init store
	db, err := store.Open(cfg.Database.Path)
	if err != nil {
		zapLogger.Error("failed to open store", "path", cfg.Database.Path, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Init HTTP client
	httpClient := httpclient.New(httpclient.Options{
		Timeout:    time.Duration(cfg.HTTPClient.TimeoutSeconds) * time.Second,
		MaxRetries: cfg.HTTPClient.MaxRetries,
	})

	// Init limiter for image generation
	lim := limiter.New(cfg.Pipeline.ImageWorkers, cfg.Pipeline.ImageRatePerSecond)

	// Init services
	contentSvc := content.New(cfg.Gemini.APIKey, cfg.Gemini.Model, httpClient, zapLogger)
	imagesSvc := images.New(cfg.ImageGen.APIKey, cfg.ImageGen.Model, httpClient, zapLogger)
	storageSvc := storage.New(cfg.Storage.BasePath, zapLogger)
	rendererSvc := renderer.New(renderer.Config{
		TemplatePath:       cfg.Template.Path,
		TOCLayoutIndex:     cfg.Template.TOCLayoutIndex,
		DefaultLayoutIndex: cfg.Template.DefaultLayoutIndex,
		TOCMaxSections:     cfg.Template.TOCMaxSections,
		PreviewEnabled:     cfg.Pipeline.PreviewEnabled,
	}, storageSvc, zapLogger)

	// Init pipeline runner
	runner := pipeline.New(db, contentSvc, imagesSvc, storageSvc, rendererSvc, lim, pipeline.Options{
		ImageWorkers:      cfg.Pipeline.ImageWorkers,
		ImageRetries:      cfg.Pipeline.ImageRetries,
		ImageBatchTimeout: time.Duration(cfg.Pipeline.ImageBatchTimeoutSecs) * time.Second,
		TargetSlideCount:  cfg.Pipeline.TargetSlideCount,
		StepTimeout:       time.Duration(cfg.Pipeline.StepTimeoutSeconds) * time.Second,
		ResearchTimeout:   time.Duration(cfg.Pipeline.ResearchTimeoutSeconds) * time.Second,
	}, zapLogger)

	// Init router
	router := api.NewRouter(db, runner, storageSvc, zapLogger)

	// Create server
	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
	}

	// Start server
	go func() {
		zapLogger.Info("starting server", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Error("server error", "error", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("server forced to shutdown", "error", err)
	}
	zapLogger.Info("server stopped")
}
