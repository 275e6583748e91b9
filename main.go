package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"ms-inventory/internal/auth"
	"ms-inventory/internal/catalog"
	catalog_db "ms-inventory/internal/catalog/db"
	"ms-inventory/internal/catalog/event_api"
	"ms-inventory/internal/config"
	"ms-inventory/internal/database/migrations"
	"ms-inventory/internal/inventory"
	inventory_db "ms-inventory/internal/inventory/db"
	"ms-inventory/internal/inventory/inventory_api"
	"ms-inventory/internal/kafka"
	"ms-inventory/internal/logger"
	"ms-inventory/internal/monitoring"
	"ms-inventory/internal/notifier"
)

func verifyConnections(ctx context.Context, cfg *config.Config, logger *logger.Logger) (*bun.DB, *redis.Client) {
	if cfg.Database.DSN == "" {
		logger.Fatal("CONFIG", "POSTGRES_DSN not set")
	}

	var sqldb *sql.DB
	var err error
	maxRetries := 5

	for i := 0; i < maxRetries; i++ {
		logger.Info("DATABASE", fmt.Sprintf("Attempting to connect to PostgreSQL (attempt %d/%d)", i+1, maxRetries))
		sqldb, err = sql.Open("postgres", cfg.Database.DSN)
		if err != nil {
			logger.Error("DATABASE", fmt.Sprintf("Failed to open PostgreSQL: %v", err))
			time.Sleep(2 * time.Second)
			continue
		}

		err = sqldb.Ping()
		if err == nil {
			break
		}

		logger.Error("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL: %v", err))
		if i < maxRetries-1 {
			time.Sleep(2 * time.Second)
		}
	}

	if err != nil {
		logger.Fatal("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL after %d attempts: %v", maxRetries, err))
	}

	sqldb.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.Database.MaxLifetime)

	logger.Info("DATABASE", "✅ PostgreSQL connection successful")

	bunDB := bun.NewDB(sqldb, pgdialect.New())

	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Addr,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal("DATABASE", fmt.Sprintf("Redis connection error: %v", err))
	}
	logger.Info("DATABASE", fmt.Sprintf("✅ Redis connection successful to %s", cfg.Redis.Addr))

	return bunDB, redisClient
}

func runMigrations(bunDB *bun.DB, cfg *config.Config, logger *logger.Logger) {
	runner := migrations.NewRunner(bunDB, migrations.MigrateOptions{
		MigrationsDir: cfg.Database.MigrationsDir,
		AutoMigrate:   cfg.Database.AutoMigrate,
	})
	defer runner.Close()

	if err := runner.RunMigrations(); err != nil {
		logger.Fatal("DATABASE", fmt.Sprintf("Migration failed: %v", err))
	}

	if version, err := runner.Version(); err == nil {
		logger.Info("DATABASE", fmt.Sprintf("Schema at version %d", version))
	}
}

func main() {
	logger := logger.NewLogger()
	defer logger.Close()

	logger.Info("APP", "Starting Inventory Service initialization")

	if err := godotenv.Load(); err != nil {
		logger.Warn("CONFIG", ".env file not found, using environment variables")
	} else {
		logger.Info("CONFIG", "Loaded environment variables from .env file")
	}

	cfg := config.Load()
	ctx := context.Background()

	logger.Info("APP", "Verifying database connections")
	bunDB, redisClient := verifyConnections(ctx, cfg, logger)
	defer bunDB.Close()
	defer redisClient.Close()

	if cfg.Database.AutoMigrate {
		logger.Info("DATABASE", "Running schema migrations")
		runMigrations(bunDB, cfg, logger)
	}

	var producer *kafka.Producer
	if cfg.Kafka.Enabled {
		logger.Info("KAFKA", fmt.Sprintf("Using Kafka brokers: %v", cfg.Kafka.Brokers))
		producer = kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topics)
		defer producer.Close()

		requiredTopics := []string{
			cfg.Kafka.Topics.BookingCompleted,
			cfg.Kafka.Topics.BookingCancelled,
			cfg.Kafka.Topics.TicketsCreated,
			cfg.Kafka.Topics.EventSoldOut,
		}
		if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, requiredTopics); err != nil {
			logger.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
		} else {
			logger.Info("KAFKA", "Required topics ensured successfully")
		}
	} else {
		logger.Warn("KAFKA", "Kafka disabled, lifecycle events will not be streamed")
	}

	monitor := monitoring.NewMonitor()
	store := &inventory_db.DB{Bun: bunDB}

	catalogService := catalog.NewService(&catalog_db.DB{Bun: bunDB}, logger)

	soldOutNotifier := notifier.NewNotifier(
		store,
		&notifier.RedisPublisher{Client: redisClient},
		cfg.Notifier.Channel,
		logger,
	)
	soldOutNotifier.Metrics = monitor
	if producer != nil {
		soldOutNotifier.Stream = producer
	}

	var publisher inventory.EventPublisher
	if producer != nil {
		publisher = producer
	}
	inventoryService := inventory.NewService(store, catalogService, publisher, soldOutNotifier, monitor, logger)

	inventoryHandler := inventory_api.NewHandler(inventoryService, soldOutNotifier, logger)
	eventHandler := event_api.NewHandler(catalogService, logger)

	logger.Info("HTTP", "Setting up router and middleware")
	r := chi.NewRouter()

	// --- Public Routes ---
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/api/events", eventHandler.ListEvents)
	r.Get("/api/events/{eventId}", eventHandler.GetEvent)
	r.Get("/api/tickets", inventoryHandler.ListTickets)
	r.Get("/api/tickets/all", inventoryHandler.ListAllTickets)
	logger.Info("ROUTER", "Public catalog and listing endpoints registered")

	// --- Protected Routes ---
	r.Group(func(r chi.Router) {
		if cfg.Auth.OIDCIssuer != "" {
			r.Use(auth.Middleware(cfg.Auth.OIDCIssuer))
			logger.Info("AUTH", "OIDC middleware applied to protected API routes")
		} else {
			r.Use(auth.DevMiddleware())
			logger.Warn("AUTH", "No OIDC issuer configured, using unverified token parsing")
		}

		r.Route("/api", func(r chi.Router) {
			r.Post("/bookings", inventoryHandler.BookOrCancel)
			logger.Info("ROUTER", "Booking endpoint registered at /api/bookings")

			r.Route("/tickets", func(r chi.Router) {
				r.Post("/", inventoryHandler.CreateTickets)
				r.Delete("/", inventoryHandler.DeleteTickets)
				r.Post("/availability-check", inventoryHandler.AvailabilityCheck)
				r.Delete("/{ticketId}", inventoryHandler.DeleteTicket)
			})
			logger.Info("ROUTER", "Ticket admin routes registered under /api/tickets")

			r.Get("/users/{userId}/tickets", inventoryHandler.UserTickets)

			r.Route("/events", func(r chi.Router) {
				r.Post("/", eventHandler.CreateEvent)
				r.Put("/{eventId}", eventHandler.UpsertEvent)
				r.Delete("/{eventId}", eventHandler.DeleteEvent)
			})
			logger.Info("ROUTER", "Event admin routes registered under /api/events")
		})
	})

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("HTTP", fmt.Sprintf("🚀 Inventory Service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	logger.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-stop

	logger.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	ctxShutdown, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		logger.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
	} else {
		logger.Info("HTTP", "✅ Inventory Service shutdown complete")
	}
}
