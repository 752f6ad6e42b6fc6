package main

import (
	"context"
	"flag"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"wa-relay/internal/api"
	"wa-relay/internal/config"
	"wa-relay/internal/inbox"
	"wa-relay/internal/logging"
	"wa-relay/internal/messaging"
	"wa-relay/internal/metrics"
	"wa-relay/internal/storage"
	"wa-relay/internal/stream"
	"wa-relay/internal/whatsapp"
	"wa-relay/internal/worker"
)

// @title WhatsApp Relay API
// @version 1.0
// @description Relay between the WhatsApp Business Cloud API and a local application
// @host localhost:8000
// @BasePath /
// @schemes http

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization
func main() {
	configPath := flag.String("config", "config.yaml", "path to YAML or TOML config file")
	flag.Parse()

	// Init Metrics
	metrics.Init()

	// Load Configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}
	log := logging.Init(cfg.Log.Level, cfg.Server.Debug)
	log.WithField("path", *configPath).Info("configuration loaded")

	if missing := cfg.Validate(); len(missing) > 0 {
		log.WithField("missing", missing).Error("WhatsApp configuration is incomplete, sends and verification will fail")
	} else {
		log.Info("WhatsApp configuration validated")
	}

	// Provider client
	client := whatsapp.NewClient(whatsapp.Options{
		BaseURL:       cfg.WhatsApp.APIBaseURL,
		PhoneNumberID: cfg.WhatsApp.PhoneNumberID,
		AccessToken:   cfg.WhatsApp.AccessToken,
		Logger:        log,
	})

	// Storage
	store := storage.NewMemoryStore()
	files, err := storage.NewFileStore(cfg.Media.UploadDir, cfg.MediaBaseURL(log))
	if err != nil {
		log.Fatalf("Failed to init upload dir: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mgr := inbox.NewManager(store, log)

	// Media worker pool
	pool := worker.NewWorkerPool(client, files, cfg.Media.Workers, cfg.Media.QueueSize, log)
	pool.OnSaved(func(job worker.MediaJob, f storage.StoredFile) {
		log.WithFields(logrus.Fields{
			"message_id": job.MessageID,
			"media_url":  f.URL,
			"size":       f.Size,
		}).Info("inbound media stored")
	})
	pool.Start(ctx)
	mgr.SetMediaQueue(pool)

	// Live feed
	hub := stream.NewHub(log)
	mgr.SetFeed(hub)

	// RabbitMQ (optional)
	var rabbitClient *messaging.RabbitClient
	if cfg.RabbitMQ.URL != "" {
		rabbitClient, err = messaging.NewRabbitClient(cfg.RabbitMQ.URL, cfg.RabbitMQ.Queue, log)
		if err != nil {
			log.WithError(err).Error("RabbitMQ unavailable, inbound messages will not be published")
		} else {
			defer rabbitClient.Close()
			mgr.SetPublisher(rabbitClient)
			log.WithField("queue", rabbitClient.Queue).Info("RabbitMQ connected")

			// Start background loop for updating queue depth metrics
			go func() {
				ticker := time.NewTicker(10 * time.Second)
				defer ticker.Stop()

				for {
					select {
					case <-ctx.Done():
						return
					case <-ticker.C:
						rabbitClient.UpdateQueueDepth()
					}
				}
			}()
		}
	}

	// Init API
	apiHandler := api.NewAPI(cfg, client, store, mgr, files, log)
	apiHandler.Feed = hub
	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           apiHandler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithField("addr", server.Addr).Info("starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-ctx.Done() // Wait for interrupt signal
	log.Info("shutdown initiated")

	// Shutdown sequence
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Stop HTTP server
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("HTTP shutdown error")
	}

	hub.Close()
	pool.Stop()

	log.Info("graceful shutdown complete")
}
