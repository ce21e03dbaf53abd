package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/synaptica-ai/clinextract/pkg/common/config"
	"github.com/synaptica-ai/clinextract/pkg/common/database"
	"github.com/synaptica-ai/clinextract/pkg/common/kafka"
	"github.com/synaptica-ai/clinextract/pkg/common/logger"
	"github.com/synaptica-ai/clinextract/pkg/common/middleware"
	"github.com/synaptica-ai/clinextract/pkg/engine"
	"github.com/synaptica-ai/clinextract/pkg/extraction"
	"github.com/synaptica-ai/clinextract/pkg/ingestion"
	"github.com/synaptica-ai/clinextract/pkg/observability/metrics"
	"github.com/synaptica-ai/clinextract/pkg/pipeline"
	"github.com/synaptica-ai/clinextract/pkg/records"
	"github.com/synaptica-ai/clinextract/pkg/status"
)

func main() {
	logger.Init()
	cfg := config.Load()

	svc, err := engine.Build(cfg)
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to assemble extraction engine")
	}

	initCtx, initCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	if err := svc.Init(initCtx); err != nil {
		// Unavailable backends fall back per request; the service still starts.
		logger.Log.WithError(err).Warn("some extraction backends failed to initialise")
	}
	initCancel()

	router := mux.NewRouter()
	router.Use(middleware.Recovery)
	router.Use(middleware.Logging)
	router.Use(middleware.CORS(cfg.CORSOrigins))
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	}).Methods(http.MethodGet)

	router.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ready"}`))
	}).Methods(http.MethodGet)

	router.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		metrics.WritePrometheus(w)
	}).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))
	extraction.NewHTTPHandler(svc, cfg.MaxRequestBody).Register(api)

	var repo *records.Repository
	if cfg.PersistenceEnabled {
		db, err := database.Get(cfg)
		if err != nil {
			logger.Log.WithError(err).Fatal("failed to connect to database")
		}
		defer database.Close()

		repo = records.NewRepository(db)
		if err := repo.AutoMigrate(); err != nil {
			logger.Log.WithError(err).Fatal("failed to migrate extraction tables")
		}
		records.NewHTTPHandler(repo).Register(api)
	}

	var tracker status.Tracker
	if cfg.StatusTrackingEnabled {
		tracker = status.NewRedisTracker(database.GetRedis(cfg), cfg.StatusTTL)
		defer database.CloseRedis()
	} else {
		tracker = status.NewMemoryTracker()
	}
	status.NewHTTPHandler(tracker).Register(api)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.WorkerEnabled {
		output := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaOutputTopic)
		defer output.Close()

		var dlq kafka.Publisher
		if cfg.KafkaDLQTopic != "" {
			dlqProducer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaDLQTopic)
			defer dlqProducer.Close()
			dlq = dlqProducer
		}

		intake := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaInputTopic)
		defer intake.Close()
		validator := ingestion.NewValidator(cfg.IngestionAllowedSources, cfg.MaxTranscriptChars)
		ingestion.NewHTTPHandler(ingestion.NewService(validator, tracker, intake, dlq), cfg.MaxRequestBody).Register(api)

		consumer := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaInputTopic, cfg.KafkaGroupID)
		defer consumer.Close()

		masker, err := engine.NewMasker(cfg)
		if err != nil {
			logger.Log.WithError(err).Fatal("failed to load DLP rules")
		}
		catalog, err := engine.NewCatalog(cfg)
		if err != nil {
			logger.Log.WithError(err).Fatal("failed to load terminology catalog")
		}

		var store pipeline.RecordStore
		if repo != nil {
			store = repo
		}
		worker := pipeline.NewWorker(svc, store, tracker, output, dlq, pipeline.Options{
			ClaimTimeout: cfg.ClaimTimeout,
			Masker:       masker,
			Catalog:      catalog,
		})
		go func() {
			if err := worker.Run(ctx, consumer); err != nil {
				logger.Log.WithError(err).Error("extraction worker stopped")
			}
		}()
	}

	if repo != nil && cfg.StatusTTL > 0 {
		go func() {
			ticker := time.NewTicker(12 * time.Hour)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					removed, err := repo.CleanupExpired(context.Background(), cfg.StatusTTL)
					if err != nil {
						logger.Log.WithError(err).Warn("cleanup job failed")
						continue
					}
					logger.Log.WithField("removed", removed).Info("expired extraction records removed")
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host":   cfg.ServerHost,
			"port":   cfg.ServerPort,
			"worker": cfg.WorkerEnabled,
		}).Info("Extraction Service started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down Extraction Service...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Log.WithError(err).Error("server forced to shutdown")
	}
	if err := svc.Shutdown(shutdownCtx); err != nil {
		logger.Log.WithError(err).Warn("backend shutdown reported errors")
	}

	logger.Log.Info("Extraction Service stopped")
}
