package main

import (
	"context"
	"database/sql"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"
	"github.com/wantam-ink/pledge-backend/config"
	"github.com/wantam-ink/pledge-backend/database"
	"github.com/wantam-ink/pledge-backend/handlers"
	"github.com/wantam-ink/pledge-backend/jobs"
	"github.com/wantam-ink/pledge-backend/services"
	"github.com/wantam-ink/pledge-backend/shared"
)

func main() {
	// Load config
	cfg := config.LoadConfig()
	cfg.ConfigureLogging()
	cfg.LogStartupWarnings()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to the record store when one is configured. A configured store
	// that cannot be reached is fatal rather than a silent fallback.
	var (
		db        *sql.DB
		dbMetrics *shared.DatabaseMetrics
		store     = services.UnavailableStore()
	)
	if cfg.StoreConfigured() {
		conn, dialect, err := database.Open(cfg.Database)
		if err != nil {
			logrus.Fatalf("Failed to connect to database: %v", err)
		}
		db = conn
		defer database.Close(db)

		if err := database.Migrate(ctx, db, dialect); err != nil {
			logrus.Fatalf("Failed to migrate database: %v", err)
		}

		dbMetrics = shared.NewDatabaseMetrics(cfg.Database.SlowQueryThreshold)
		store = services.LiveStore(database.NewPledgeRepository(db, dialect, dbMetrics))
	}

	// Initialize services
	httpClients := shared.NewHTTPClientFactory(cfg.Gateway.HTTPRequestTimeout)
	defer httpClients.CloseIdleConnections()

	gateway := services.NewGatewayClient(cfg.Gateway, httpClients)
	verifier := services.NewWebhookVerifier(cfg.Webhook)
	pledgeService := services.NewPledgeService(store, services.NewPledgeAuditLogger())
	aggregation := services.NewAggregationService(store)
	tipService := services.NewTipService(cfg.Tip)

	logrus.WithFields(logrus.Fields{
		"store_mode":       store.Mode(),
		"gateway_base_url": cfg.Gateway.BaseURL,
		"gateway_timeout":  cfg.Gateway.HTTPRequestTimeout,
		"tip_recipient":    tipService.Recipient(),
	}).Info("Pledge backend services initialized")

	// Background metrics summary
	metricsJob := jobs.NewMetricsSummaryJob(15*time.Minute, gateway.Metrics(), dbMetrics,
		verifier.Metrics(), pledgeService.Metrics(), aggregation.Metrics())
	metricsJob.Start(ctx)

	// Initialize handlers
	h := &handlers.Handlers{
		Status:  handlers.NewStatusHandler(),
		Pledge:  handlers.NewPledgeHandler(verifier, pledgeService, aggregation),
		Tip:     handlers.NewTipHandler(tipService),
		Payment: handlers.NewPaymentHandler(gateway),
		Health: handlers.NewHealthHandler(db, dbMetrics, cfg.DegradedComponents(),
			verifier, pledgeService, aggregation, gateway),
	}

	// Setup Fiber
	app := fiber.New(fiber.Config{
		AppName:      "WANTAM.INK API",
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.Server.CORSAllowOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, " + handlers.SignatureHeader,
	}))

	handlers.RegisterRoutes(app, h)

	go func() {
		<-ctx.Done()
		logrus.Info("Shutting down server")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			logrus.Errorf("Server shutdown failed: %v", err)
		}
	}()

	logrus.Infof("Server starting on port %s", cfg.Server.Port)
	if err := app.Listen(":" + cfg.Server.Port); err != nil {
		logrus.Fatalf("Server failed: %v", err)
	}
}
