package main

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/patrickmn/go-cache"
	"github.com/username/smepulse/backend/src/config"
	"github.com/username/smepulse/backend/src/database"
	"github.com/username/smepulse/backend/src/handlers"
	"github.com/username/smepulse/backend/src/jobs"
	"github.com/username/smepulse/backend/src/logger"
	"github.com/username/smepulse/backend/src/parsers"
	"github.com/username/smepulse/backend/src/processors"
	"github.com/username/smepulse/backend/src/services"
	"github.com/username/smepulse/backend/src/utils"
)

func proxyHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Forwarded-Proto") == "https" {
			r.URL.Scheme = "https"
			r.TLS = &tls.ConnectionState{}
		}
		next.ServeHTTP(w, r)
	})
}

func main() {
	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel)

	logger.L.Info("SMEPulse backend server starting...")

	logger.L.Info("Loading industry benchmarks...", "path", config.Cfg.BenchmarksPath)
	benchmarks, err := processors.LoadBenchmarks(config.Cfg.BenchmarksPath)
	if err != nil {
		logger.L.Error("Failed to load benchmarks", "error", err)
		os.Exit(1)
	}

	logger.L.Info("Initializing database...", "path", config.Cfg.DatabasePath)
	database.InitDB(config.Cfg.DatabasePath)
	defer database.DB.Close()
	if err := database.RunMigrations(database.DB); err != nil {
		logger.L.Error("Database migrations failed", "error", err)
		os.Exit(1)
	}

	reportCache := cache.New(config.Cfg.CacheTTL, services.CacheCleanupInterval)
	registry := parsers.NewDefaultRegistry()
	transactionProcessor := processors.NewTransactionProcessor()

	companyService := services.NewCompanyService(database.DB)
	documentService := services.NewDocumentService(database.DB, registry, transactionProcessor, config.Cfg.MaxUploadSizeBytes)
	analysisService := services.NewAnalysisService(
		database.DB,
		benchmarks,
		config.Cfg.EstimatorSeed,
		config.Cfg.DefaultWindowDays,
		reportCache,
	)

	if _, err := documentService.FailAbandonedExtractions(context.Background()); err != nil {
		logger.L.Error("Failed to recover abandoned extractions", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	extractionQueue := jobs.NewQueue(documentService, config.Cfg.ExtractionWorkers, config.Cfg.ExtractionQueueSize)
	extractionQueue.Start(ctx)

	companyHandler := handlers.NewCompanyHandler(companyService)
	documentHandler := handlers.NewDocumentHandler(documentService, extractionQueue, config.Cfg.MaxUploadSizeBytes)
	analysisHandler := handlers.NewAnalysisHandler(analysisService)

	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(handlers.ContextualLoggerMiddleware)
	r.Use(proxyHeadersMiddleware)
	r.Use(handlers.RateLimitMiddleware(config.Cfg.RateLimitRPS, config.Cfg.RateLimitBurst))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"message": "SMEPulse Backend is running"})
	})

	handlers.RegisterRoutes(r, companyHandler, documentHandler, analysisHandler)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") {
			utils.SendJSONError(w, "route not found", http.StatusNotFound)
			return
		}
		http.NotFound(w, r)
	})

	serverAddr := ":" + config.Cfg.Port
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		logger.L.Info("Shutdown signal received, draining connections...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.L.Error("Server shutdown failed", "error", err)
		}
	}()

	logger.L.Info("Server starting", "address", serverAddr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		stdlog.Fatalf("Failed to start server: %v", err)
	}

	// Workers stop taking new jobs once ctx is cancelled; wait for in-flight extractions.
	extractionQueue.Stop()
	logger.L.Info("Server stopped")
}
