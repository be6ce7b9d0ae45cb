package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/shopspring/decimal"

	"github.com/egannguyen/microshop/internal/config"
	httpDelivery "github.com/egannguyen/microshop/internal/delivery/http"
	"github.com/egannguyen/microshop/internal/messaging"
	"github.com/egannguyen/microshop/internal/messaging/kafka"
	"github.com/egannguyen/microshop/internal/messaging/watermill"
	"github.com/egannguyen/microshop/internal/repository"
	"github.com/egannguyen/microshop/internal/repository/memory"
	"github.com/egannguyen/microshop/internal/repository/postgres"
	"github.com/egannguyen/microshop/internal/service"
)

type stores struct {
	users   repository.UserRepository
	catalog repository.Catalog
	orders  repository.OrderRepository
	events  repository.EventStore
	db      *sql.DB
}

// useNumericDecimals makes prices and totals encode as JSON numbers.
func useNumericDecimals() {
	decimal.MarshalJSONWithoutQuotes = true
}

func main() {
	useNumericDecimals()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load config", "err", err)
		os.Exit(1)
	}
	logger := newLogger(cfg)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		slog.Error("Server stopped", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// --- Storage ---
	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	if st.db != nil {
		defer st.db.Close()
	}

	// --- Broker ---
	broker, err := openBroker(cfg, logger)
	if err != nil {
		return err
	}
	defer broker.Close()

	// --- Services ---
	userSvc := service.NewUserService(st.users)
	productSvc := service.NewProductService(st.catalog)
	orderSvc := service.NewOrderService(st.orders, st.catalog, userSvc, st.events, broker)
	notificationSvc := service.NewNotificationService(broker)

	if cfg.SeedData {
		if err := seedData(ctx, st.users, st.catalog); err != nil {
			return fmt.Errorf("failed to seed data: %w", err)
		}
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		notificationSvc.Run(ctx)
	}()
	slog.Info("Notification consumers started", "broker", cfg.Broker)

	// --- HTTP API ---
	handler := httpDelivery.NewHandler(userSvc, productSvc, orderSvc, notificationSvc)
	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: handler.Router(),
	}

	go func() {
		slog.Info("HTTP server starting", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down HTTP server: %w", err)
	}
	wg.Wait()
	return nil
}

func newLogger(cfg config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.LogFormat, "text") {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func openStores(ctx context.Context, cfg config.Config) (stores, error) {
	if cfg.Storage != config.StoragePostgres {
		return stores{
			users:   memory.NewUserRepository(),
			catalog: memory.NewCatalog(),
			orders:  memory.NewOrderRepository(),
			events:  memory.NewEventStore(),
		}, nil
	}

	db, err := postgres.InitDB(ctx, cfg.DatabaseURL)
	if err != nil {
		return stores{}, fmt.Errorf("failed to init database: %w", err)
	}
	return stores{
		users:   postgres.NewUserRepository(db),
		catalog: postgres.NewCatalog(db),
		orders:  postgres.NewOrderRepository(db),
		events:  postgres.NewEventStore(db),
		db:      db,
	}, nil
}

func openBroker(cfg config.Config, logger *slog.Logger) (messaging.Broker, error) {
	switch cfg.Broker {
	case config.BrokerNone:
		return messaging.Discard{}, nil
	case config.BrokerKafka:
		return kafka.NewKafkaBroker(cfg.KafkaBrokers), nil
	case config.BrokerWatermillKafka:
		b, err := watermill.NewKafkaBroker(cfg.KafkaBrokers, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create watermill kafka broker: %w", err)
		}
		return b, nil
	default:
		return watermill.NewGoChannelBroker(logger), nil
	}
}
