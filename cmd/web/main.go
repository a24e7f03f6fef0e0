package main

import (
	"context"
	"log"
	"os"

	"log/slog"

	"github.com/joho/godotenv"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"astrovani.com/app/internal/config"
	apphttp "astrovani.com/app/internal/http"
	"astrovani.com/app/internal/http/handlers"
	"astrovani.com/app/internal/mailer"
	"astrovani.com/app/internal/modules/gateway"
	"astrovani.com/app/internal/modules/notify"
	"astrovani.com/app/internal/modules/orders"
	"astrovani.com/app/internal/modules/payments"
	"astrovani.com/app/internal/storage"
)

func main() {
	// Load .env file (ignore error if not found - prod uses real env vars)
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()

	// Without DB_DSN the side tables fall back to in-memory stores:
	// fine for local dev, but the email idempotency guarantee then only
	// holds for one process lifetime.
	var (
		metaStore  orders.MetaStore
		sendLedger notify.Ledger
		eventStore payments.EventStore
	)
	if cfg.DBDSN != "" {
		db, err := gorm.Open(mysql.Open(cfg.DBDSN), &gorm.Config{TranslateError: true})
		if err != nil {
			log.Fatalf("failed to connect to database: %v", err)
		}
		if err := db.AutoMigrate(&orders.Meta{}, &notify.SendRecord{}, &payments.ProviderEvent{}); err != nil {
			log.Fatalf("migrate: %v", err)
		}
		metaStore = orders.NewMetaRepo(db)
		sendLedger = notify.NewGormLedger(db)
		eventStore = payments.NewEventRepo(db)
	} else {
		logger.Warn("DB_DSN not set, using in-memory stores")
		metaStore = orders.NewMemoryMetaStore()
		sendLedger = notify.NewMemoryLedger()
		eventStore = payments.NewMemoryEventStore()
	}

	archive, err := storage.FromConfig(ctx, cfg.Storage)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}

	gw := gateway.NewClient(cfg.Cashfree)
	orderSvc := orders.NewService(gw, metaStore, logger, cfg.FrontendURL, cfg.BackendURL, !cfg.Cashfree.IsProd())

	smtp := mailer.NewSMTPMailer(cfg.SMTP)
	dispatcher := notify.NewDispatcher(sendLedger, metaStore, gw, smtp, logger,
		cfg.SMTP.FromAddr, cfg.SMTP.FromName)

	poller := payments.NewPoller(gw, dispatcher, logger)
	verifier := payments.NewVerifier(cfg.Cashfree.WebhookSecret)
	webhookSvc := payments.NewWebhookService(eventStore, archive.Archive, logger)

	environment := "TEST"
	if cfg.Cashfree.IsProd() {
		environment = "PROD"
	}

	ph := handlers.NewPaymentHandler(orderSvc, gw, dispatcher, poller, logger, environment)
	wh := handlers.NewWebhookHandler(verifier, webhookSvc, logger)

	r := apphttp.NewRouter(logger, ph, wh, cfg.CORSOrigins)

	logger.Info("server starting",
		"port", cfg.Port, "environment", environment,
		"archive_driver", archive.Driver)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server: %v", err)
	}
}
