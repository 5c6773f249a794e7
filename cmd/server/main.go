package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mariyam933/fyp/internal/auth"
	"github.com/mariyam933/fyp/internal/config"
	"github.com/mariyam933/fyp/internal/database"
	"github.com/mariyam933/fyp/internal/events"
	"github.com/mariyam933/fyp/internal/handlers"
	"github.com/mariyam933/fyp/internal/jobs"
	"github.com/mariyam933/fyp/internal/logging"
	"github.com/mariyam933/fyp/internal/notify"
	"github.com/mariyam933/fyp/internal/ocr"
	"github.com/mariyam933/fyp/internal/router"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", ".", "directory containing config.yaml")
	flag.Parse()

	// 1. Configuration and logging
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	gin.SetMode(cfg.Server.Mode)

	// 2. Database
	db, err := database.Open(cfg.Database, logger)
	if err != nil {
		logger.Fatal("Failed to open database", zap.Error(err))
	}

	settings := database.NewSettingsStore(db)
	bills := database.NewBillStore(db, cfg.Billing.DueDays)
	users := database.NewUserStore(db)
	reports := database.NewReportStore(db)

	if _, err := settings.Get(context.Background()); err != nil {
		logger.Fatal("Failed to initialise tariff settings", zap.Error(err))
	}

	// 3. Optional collaborators
	var publisher events.Publisher = events.Noop{}
	if cfg.Kafka.Enabled {
		publisher = events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		logger.Info("Publishing bill events", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Error("Error closing event publisher", zap.Error(err))
		}
	}()

	var mailer notify.Mailer = notify.Noop{}
	if cfg.Mail.Enabled {
		smtp, err := notify.NewSMTPMailer(cfg.Mail)
		if err != nil {
			logger.Fatal("Failed to configure mail", zap.Error(err))
		}
		mailer = smtp
	}

	var reader ocr.Reader
	if cfg.Gemini.APIKey != "" {
		gemini, err := ocr.NewGeminiReader(context.Background(), cfg.Gemini.APIKey, cfg.Gemini.Model)
		if err != nil {
			logger.Fatal("Failed to create meter reader client", zap.Error(err))
		}
		defer gemini.Close()
		reader = gemini
	} else {
		logger.Warn("Gemini API key not set, meter scanning is disabled")
	}

	// 4. Background jobs
	sweeper := jobs.NewOverdueSweeper(bills, logger)
	scheduler, err := sweeper.Start(cfg.Billing.OverdueSchedule)
	if err != nil {
		logger.Fatal("Failed to start overdue sweeper", zap.Error(err))
	}

	// 5. HTTP
	tokens := auth.NewTokenManager(cfg.JWT.Secret, time.Duration(cfg.JWT.ExpireHours)*time.Hour)
	uploads := handlers.Uploads{
		Dir:      cfg.Uploads.Dir,
		BaseURL:  cfg.Server.BaseURL,
		MaxBytes: cfg.Uploads.MaxBytes,
	}
	engine := router.Setup(cfg, router.Handlers{
		Auth:     handlers.NewAuthHandler(users, tokens, logger),
		Accounts: handlers.NewAccountHandler(users, mailer, cfg.Billing.DefaultPassword, logger),
		Bills:    handlers.NewBillHandler(bills, settings, publisher, uploads, logger),
		Settings: handlers.NewSettingsHandler(settings, logger),
		Uploads:  handlers.NewUploadHandler(uploads, reader, logger),
		Reports:  handlers.NewReportHandler(reports, logger),
	}, tokens, logger)

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("Server starting", zap.String("addr", srv.Addr), zap.String("base_url", cfg.Server.BaseURL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// 6. Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	logger.Info("Shutdown signal received", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Error during HTTP server shutdown", zap.Error(err))
	}
	<-scheduler.Stop().Done()

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	logger.Info("Server stopped")
}
