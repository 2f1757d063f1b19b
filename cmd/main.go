package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"restaurante-pedidos/internal/config"
	"restaurante-pedidos/internal/database"
	"restaurante-pedidos/internal/logger"
	"restaurante-pedidos/internal/messaging"
	"restaurante-pedidos/internal/services/api"
	"restaurante-pedidos/internal/services/kitchen"
	"restaurante-pedidos/internal/services/notifier"
	"restaurante-pedidos/internal/services/order"
	"restaurante-pedidos/internal/services/payment"
	"restaurante-pedidos/internal/services/stock"
)

func main() {
	var (
		mode  = flag.String("mode", "", "Service mode (order-service, notification-subscriber)")
		port  = flag.Int("port", 0, "HTTP port (overrides config)")
		orgID = flag.Int64("org", 0, "Organization id (required for notification-subscriber mode)")
	)
	flag.Parse()

	if *mode == "" {
		fmt.Fprintf(os.Stderr, "Error: --mode flag is required\n")
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load("config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *port != 0 {
		cfg.App.Port = *port
	}

	log := logger.New(*mode)
	requestID := logger.GenerateRequestID()

	log.Info("service_started", fmt.Sprintf("Starting %s", *mode), requestID, map[string]any{
		"mode": *mode,
		"port": cfg.App.Port,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info("graceful_shutdown", "Received shutdown signal", requestID, nil)
		cancel()
	}()

	switch *mode {
	case "order-service":
		if err := runOrderService(ctx, cfg, log); err != nil {
			log.Error("service_failed", "Order service failed", requestID, err, nil)
			os.Exit(1)
		}
	case "notification-subscriber":
		if *orgID <= 0 {
			log.Error("validation_failed", "--org is required for notification-subscriber mode", requestID, nil, nil)
			os.Exit(1)
		}
		if err := runNotificationSubscriber(ctx, cfg, log, *orgID); err != nil {
			log.Error("service_failed", "Notification subscriber failed", requestID, err, nil)
			os.Exit(1)
		}
	default:
		log.Error("validation_failed", fmt.Sprintf("Unknown mode: %s", *mode), requestID, nil, nil)
		os.Exit(1)
	}

	log.Info("service_stopped", "Service stopped gracefully", requestID, nil)
}

// runOrderService wires the database, broker and domain services under
// one HTTP server and blocks until shutdown.
func runOrderService(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	requestID := logger.GenerateRequestID()

	db, err := database.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	log.Info("db_connected", "Connected to PostgreSQL database", requestID, nil)

	if err := db.RunMigrations(ctx, cfg.App.MigrationsPath); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	conn, err := messaging.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize messaging: %w", err)
	}
	defer conn.Close()

	log.Info("rabbitmq_connected", "Connected to RabbitMQ", requestID, nil)

	publisher := messaging.NewPublisher(conn, log)
	events := notifier.New(publisher, log)

	ledger := stock.NewLedger(db, log)
	orders := order.NewService(db, ledger, events, log)
	kitchenSvc := kitchen.NewService(db, events, log)
	payments := payment.NewService(db, events, log, cfg.App.DefaultTipPercent)

	handler := api.NewHandler(orders, kitchenSvc, payments, ledger, db, conn, log)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.App.Port),
		Handler: handler.SetupRoutes(),
	}

	go func() {
		log.Info("service_started", fmt.Sprintf("Order service listening on port %d", cfg.App.Port), requestID, map[string]any{
			"port": cfg.App.Port,
		})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server_failed", "HTTP server failed", requestID, err, nil)
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	return server.Shutdown(shutdownCtx)
}

// runNotificationSubscriber consumes one organization's change events
// and logs the authoritative order state after each one.
func runNotificationSubscriber(ctx context.Context, cfg *config.Config, log *logger.Logger, orgID int64) error {
	requestID := logger.GenerateRequestID()

	db, err := database.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	conn, err := messaging.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize messaging: %w", err)
	}
	defer conn.Close()

	log.Info("subscriber_started", fmt.Sprintf("Subscribed to change events for org %d", orgID), requestID, map[string]any{
		"org_id": orgID,
	})

	ledger := stock.NewLedger(db, log)
	orders := order.NewService(db, ledger, notifier.New(nil, log), log)

	sub := notifier.NewSubscriber(conn, log)
	return sub.RunStatusView(ctx, orgID, orders)
}
