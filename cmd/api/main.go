package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-scan-pos/internal/config"
	"go-scan-pos/internal/eventbus"
	"go-scan-pos/internal/handler"
	"go-scan-pos/internal/idempotency"
	"go-scan-pos/internal/observability"
	"go-scan-pos/internal/repository"
	"go-scan-pos/internal/repository/memory"
	"go-scan-pos/internal/service"
	"go-scan-pos/internal/ws"
	"go-scan-pos/pkg/database"
	"go-scan-pos/pkg/jwt"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	observability.SetupLogger(cfg.LogLevel, !cfg.IsProduction())
	jwt.Configure(cfg.JWTSecret, cfg.JWTTTL)

	ctx := context.Background()
	shutdownTracing, err := observability.SetupTracingSDK(ctx, cfg)
	if err != nil {
		log.Warn().Err(err).Msg("Tracing disabled")
	}

	// 2. Setup store
	store := openStore(cfg)
	defer store.Close()

	// 3. Seed default roles and the manager account
	authService := service.NewAuthService(store.Users(), store.Roles())
	if err := authService.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		log.Warn().Err(err).Msg("Failed to seed roles and admin operator")
	}

	// 4. Setup WebSocket hub and domain event publishers
	wsHub := ws.NewHub()
	go wsHub.Run()
	publisher, closePublishers := setupPublishers(cfg, wsHub)

	// 5. Dependency injection
	guard := setupGuard(cfg)
	ledger := service.NewStockLedger()
	recorder := service.NewAdjustmentRecorder(nil)

	productService := service.NewProductService(store.Products(), publisher)
	adjustmentService := service.NewAdjustmentService(store, ledger, recorder, publisher)
	orderService := service.NewOrderService(store, ledger, recorder, guard, publisher)
	outboundService := service.NewOutboundService(store.Outbound(), store.Products(), publisher)
	dashService := service.NewDashboardService(store, cfg.LowStockThreshold)
	userService := service.NewUserService(store.Users(), store.Roles())

	// 6. Setup Fiber
	app := fiber.New(fiber.Config{
		AppName: cfg.AppName,
	})

	app.Use(logger.New())  // Logging request
	app.Use(recover.New()) // Panic recovery
	app.Use(cors.New())    // CORS

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "store": cfg.StoreDriver, "ws_clients": wsHub.ClientCount()})
	})

	// 7. Routes
	handler.Register(app, handler.Handlers{
		Auth:      handler.NewAuthHandler(authService),
		Inventory: handler.NewInventoryHandler(productService, adjustmentService),
		Orders:    handler.NewOrderHandler(orderService),
		Outbound:  handler.NewOutboundHandler(outboundService),
		Dashboard: handler.NewDashboardHandler(dashService),
		Users:     handler.NewUserHandler(userService),
		Roles:     handler.NewRoleHandler(store.Roles(), store.Privileges()),
	}, store.Users())

	// WebSocket Route
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return c.SendStatus(fiber.StatusUpgradeRequired)
	})
	app.Get("/ws", websocket.New(wsHub.Handler))

	// 8. Graceful shutdown
	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Panic().Err(err).Msg("Server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	closePublishers(shutdownCtx)
	wsHub.Stop()
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("Tracer shutdown failed")
	}

	log.Info().Msg("Server exited")
}

func openStore(cfg *config.Config) repository.Store {
	if cfg.StoreDriver == config.DriverMemory {
		log.Warn().Msg("Using in-memory store, data is lost on restart")
		return memory.New(cfg.LockTimeout)
	}

	db, err := database.ConnectDB(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	store := repository.NewGormStore(db, cfg.LockTimeout)
	if cfg.DBAutoMigrate {
		if err := store.AutoMigrate(); err != nil {
			log.Fatal().Err(err).Msg("Auto migration failed")
		}
	}
	return store
}

// setupPublishers fans events out to websocket clients and, when configured,
// RabbitMQ and Kafka. Delivery runs off the request path.
func setupPublishers(cfg *config.Config, hub *ws.Hub) (*eventbus.Async, func(context.Context)) {
	targets := eventbus.Multi{hub}
	var closers []func() error

	if cfg.RabbitMQURL != "" {
		rabbit, err := eventbus.NewRabbitMQPublisher(cfg.RabbitMQURL, cfg.RabbitMQExchange)
		if err != nil {
			log.Warn().Err(err).Msg("RabbitMQ publisher disabled")
		} else {
			targets = append(targets, rabbit)
			closers = append(closers, rabbit.Close)
			log.Info().Str("exchange", cfg.RabbitMQExchange).Msg("RabbitMQ publisher enabled")
		}
	}
	if len(cfg.KafkaBrokers) > 0 {
		kafka := eventbus.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		targets = append(targets, kafka)
		closers = append(closers, kafka.Close)
		log.Info().Strs("brokers", cfg.KafkaBrokers).Str("topic", cfg.KafkaTopic).Msg("Kafka publisher enabled")
	}

	async := eventbus.NewAsync(targets, cfg.EventBuffer, 5*time.Second)
	return async, func(ctx context.Context) {
		if err := async.Close(ctx); err != nil {
			log.Warn().Err(err).Msg("Event queue not fully drained")
		}
		for _, closeFn := range closers {
			if err := closeFn(); err != nil {
				log.Warn().Err(err).Msg("Failed to close publisher")
			}
		}
	}
}

func setupGuard(cfg *config.Config) idempotency.Guard {
	if cfg.RedisAddr == "" {
		return idempotency.NewLocalGuard()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	log.Info().Str("addr", cfg.RedisAddr).Msg("Redis idempotency guard enabled")
	return idempotency.NewRedisGuard(client, cfg.IdempotencyTTL)
}
