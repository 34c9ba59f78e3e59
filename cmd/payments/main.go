package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/omaguva-store/payments-service/internal/clients"
	"github.com/omaguva-store/payments-service/internal/config"
	"github.com/omaguva-store/payments-service/internal/events"
	"github.com/omaguva-store/payments-service/internal/handlers"
	"github.com/omaguva-store/payments-service/internal/logging"
	"github.com/omaguva-store/payments-service/internal/repository"
	"github.com/omaguva-store/payments-service/internal/server"
	"github.com/omaguva-store/payments-service/internal/service"
	"github.com/omaguva-store/payments-service/internal/session"

	_ "github.com/lib/pq"
)

func main() {
	cfg := config.Load()

	logger := logging.New("payments-service")
	defer logger.Sync()

	logger.Info("Starting payments-service", logging.Fields{
		"port":             cfg.Server.Port,
		"skip_ledger_sync": cfg.Features.SkipLedgerSync,
		"gateway_debug":    cfg.Features.GatewayDebug,
	})

	db, err := initDatabase(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", logging.Fields{"error": err.Error()})
	}
	defer db.Close()

	orderRepo := repository.NewPostgresOrderRepository(db, logger)
	orderCache := repository.NewRedisOrderCache(cfg.Redis)
	snapshotStore := session.NewRedisStore(cfg.Redis, cfg.Verification.SnapshotTTL)

	phonePeClient := clients.NewHTTPPhonePeClient(cfg.PhonePe, logger)
	notificationClient := clients.NewHTTPNotificationClient(cfg.NotificationService, logger)

	eventPublisher := events.NewKafkaPublisher(cfg.Kafka, logger)
	defer eventPublisher.Close()

	invoiceService := service.NewInvoiceService(logger)
	reconciliation := service.NewReconciliationService(
		orderRepo,
		orderCache,
		snapshotStore,
		phonePeClient,
		notificationClient,
		eventPublisher,
		invoiceService,
		cfg,
		logger,
	)

	h := handlers.NewHandlers(reconciliation, phonePeClient, cfg)

	srv := server.New(h, cfg)

	go func() {
		logger.Info("Server starting", logging.Fields{"port": cfg.Server.Port})
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", logging.Fields{"error": err.Error()})
		}
	}()

	// Webhook events delivered via Kafka are applied to the ledger by
	// the same path the HTTP webhook uses.
	eventConsumer := events.NewKafkaConsumer(cfg.Kafka, reconciliation, logger)
	go func() {
		if err := eventConsumer.Start(context.Background()); err != nil {
			logger.Error("Event consumer failed", logging.Fields{"error": err.Error()})
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	eventConsumer.Stop()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", logging.Fields{"error": err.Error()})
	}

	logger.Info("Server exited")
}

func initDatabase(cfg *config.Config, logger *logging.Logger) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.Database.ConnectionString())
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.MaxLifetime)

	if err := db.Ping(); err != nil {
		return nil, err
	}

	logger.Info("Database connected", logging.Fields{
		"host": cfg.Database.Host,
		"name": cfg.Database.Name,
	})

	return db, nil
}
