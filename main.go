package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"dicombridge-rest/orthanc"
)

func main() {
	cfg := LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	logger := newLogger(cfg.LogLevel)
	ctx := context.Background()

	db, err := NewStudyDB(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("failed to init study database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("error closing study database: %v", err)
		}
	}()

	archive, err := newArchiveStore(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("failed to init archive backend (%s): %v", cfg.StorageBackend, err)
	}

	publisher := NewPublisher(cfg.KafkaBootstrapServers, cfg.KafkaTopic, cfg.KafkaDLQTopic, logger)
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Printf("error closing Kafka writers: %v", err)
		}
	}()

	source := orthanc.NewClient(cfg.OrthancURL, cfg.OrthancUsername, cfg.OrthancPassword)

	pipeline := &Pipeline{
		Source:    source,
		Store:     db,
		Archive:   archive,
		Publisher: publisher,
		Logger:    logger,
	}

	poller := &Poller{
		Source:   source,
		Store:    db,
		Pipeline: pipeline,
		Interval: cfg.PollInterval,
		Logger:   logger,
	}
	pollCtx, stopPoller := context.WithCancel(ctx)
	go poller.Run(pollCtx)

	h := &Handlers{
		Cfg:      cfg,
		Pipeline: pipeline,
		Logger:   logger,
	}

	mux := http.NewServeMux()

	// Ingestion webhook (Orthanc notification or manual POST)
	mux.HandleFunc("/api/v1/studies", h.IngestStudyHandler)

	// Probes and metrics
	mux.HandleFunc("/health", h.HealthHandler)
	mux.HandleFunc("/ready", h.ReadyHandler)
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: withCORS(withCorrelationID(mux)),
	}

	go func() {
		logger.Info("dicombridge REST server listening",
			"addr", cfg.ListenAddr,
			"storage_backend", cfg.StorageBackend,
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM: stop the poller first so no new
	// cycle starts, drain in-flight requests, then the deferred closes
	// release the broker and store.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	stopPoller()
	if err := server.Shutdown(context.Background()); err != nil {
		log.Printf("server shutdown error: %v", err)
	}
}
