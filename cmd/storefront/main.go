// Command storefront serves the hoja restaurant storefront: catalog, cart, checkout,
// proofs of purchase and reviews.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"hoja/internal/catalog"
	"hoja/internal/chain"
	"hoja/internal/handler"
	"hoja/internal/middleware"
	"hoja/internal/payment"
	"hoja/internal/repository/postgres"
	"hoja/internal/review"
	"hoja/internal/session"
	"hoja/internal/wallet"
	"hoja/internal/zk"
	"hoja/pkg/config"
	"hoja/pkg/kv"
	"hoja/pkg/logger"
	"hoja/pkg/validator"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.New("storefront")

	if err := cfg.ValidateCore(); err != nil {
		log.Fatal("Invalid configuration", map[string]interface{}{"error": err.Error()})
	}

	log.Info("Starting storefront", map[string]interface{}{
		"port":     cfg.Server.Port,
		"storage":  cfg.Storage.Backend,
		"executor": cfg.Checkout.Executor,
	})

	ctx := context.Background()
	checks := map[string]handler.Check{}

	// Redis backs idempotency and rate limiting whenever it is configured, and the
	// proof store when selected.
	var redisClient *redis.Client
	if cfg.Redis.URL != "" {
		client, err := kv.DialRedis(ctx, cfg.Redis.URL, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			if cfg.Storage.Backend == config.StorageRedis {
				log.Fatal("Failed to connect to Redis", map[string]interface{}{"error": err.Error()})
			}
			log.Warn("Redis unavailable, idempotency and rate limiting disabled", map[string]interface{}{"error": err.Error()})
		} else {
			redisClient = client
			defer redisClient.Close()
			checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
			log.Info("Redis connected", nil)
		}
	}

	var db *sqlx.DB
	if cfg.Storage.Backend == config.StoragePostgres {
		var err error
		db, err = postgres.Connect(ctx, cfg.Database)
		if err != nil {
			log.Fatal("Failed to connect to database", map[string]interface{}{"error": err.Error()})
		}
		defer db.Close()
		checks["database"] = db.PingContext
		log.Info("Database connected", nil)
	}

	store, err := openStore(cfg, db, redisClient)
	if err != nil {
		log.Fatal("Failed to open proof storage", map[string]interface{}{"error": err.Error()})
	}

	// Repositories
	var (
		catalogRepo catalog.Repository
		reviewRepo  review.Repository
	)
	if db != nil {
		catalogRepo = postgres.NewCatalogRepository(db)
		reviewRepo = postgres.NewReviewRepository(db)
	} else {
		catalogRepo = catalog.NewMemoryRepository(catalog.Seed())
		reviewRepo = review.NewMemoryRepository()
	}

	executor, err := buildExecutor(cfg, log)
	if err != nil {
		log.Fatal("Failed to create payment executor", map[string]interface{}{"error": err.Error()})
	}

	// Services
	catalogService := catalog.NewService(catalogRepo, reviewRepo, log)
	reviewService := review.NewService(reviewRepo, catalogService, cfg.Review.RequireProof, log)

	registry := session.NewRegistry(session.Options{
		Store:           store,
		ProofKeyPrefix:  cfg.Storage.ProofKey,
		Catalog:         catalogService,
		Executor:        executor,
		Issuer:          zk.NewIssuer(cfg.Checkout.ProofLatency),
		PaymentTimeout:  cfg.Checkout.PaymentTimeout,
		IdleTTL:         cfg.Session.IdleTTL,
		JanitorInterval: cfg.Session.JanitorInterval,
	}, log)
	registry.Start()

	// Handlers
	val := validator.New()
	routes := handler.Routes{
		System:   handler.NewSystemHandler(checks, log),
		Catalog:  handler.NewCatalogHandler(catalogService, log),
		Cart:     handler.NewCartHandler(registry, catalogService, val, log),
		Checkout: handler.NewCheckoutHandler(registry, val, log),
		Proofs:   handler.NewProofHandler(registry, reviewService, log),
		Reviews:  handler.NewReviewHandler(registry, reviewService, val, log),
	}
	if redisClient != nil {
		routes.PayGuard = middleware.NewIdempotencyMiddleware(redisClient, cfg.Checkout.IdempotencyWindow, log).Dedupe
	}

	// Setup router
	r := mux.NewRouter()

	// Middleware
	r.Use(middleware.CORS)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.Recovery(log))
	r.Use(middleware.CorrelationID)
	r.Use(middleware.NewLoggingMiddleware(log).Log)
	r.Use(middleware.BodyLimit(1 << 20)) // 1MB global cap

	api := routes.Register(r)
	api.Use(middleware.NewProfileMiddleware(cfg.Session.Secret, cfg.Session.TokenTTL, cfg.Session.SecureCookie, log).Identify)
	if redisClient != nil {
		api.Use(middleware.NewRateLimiter(redisClient, 120, time.Minute, log).Limit)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      otelhttp.NewHandler(r, "storefront"),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Graceful shutdown
	go func() {
		log.Info("Storefront started", map[string]interface{}{"address": srv.Addr})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed to start", map[string]interface{}{"error": err.Error()})
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down storefront...", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Storefront forced to shutdown", map[string]interface{}{"error": err.Error()})
	}
	if err := registry.Close(shutdownCtx); err != nil {
		log.Error("Failed to flush sessions", map[string]interface{}{"error": err.Error()})
	}

	log.Info("Storefront stopped gracefully", nil)
}

// openStore selects the durable backend for proof stores.
func openStore(cfg *config.Config, db *sqlx.DB, redisClient *redis.Client) (kv.Store, error) {
	switch cfg.Storage.Backend {
	case config.StorageMemory:
		return kv.NewMemoryStore(), nil
	case config.StorageFile:
		return kv.NewFileStore(cfg.Storage.FileDir)
	case config.StorageRedis:
		if redisClient == nil {
			return nil, fmt.Errorf("redis storage selected but REDIS_URL is not reachable")
		}
		return kv.NewRedisStore(redisClient, 0), nil
	case config.StoragePostgres:
		return postgres.NewBlobStore(db), nil
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.Storage.Backend)
	}
}

func buildExecutor(cfg *config.Config, log logger.Logger) (payment.Executor, error) {
	if cfg.Checkout.Executor == config.ExecutorWallet {
		node, err := chain.NewClient(cfg.Wallet.RPCURL, cfg.Breaker, log)
		if err != nil {
			return nil, err
		}
		provider := wallet.NewRPCProvider(node, cfg.Wallet.PollInterval, log)
		return payment.NewWalletExecutor(provider, cfg.Wallet.RecipientAddress, cfg.Wallet.ChainID, log), nil
	}
	return payment.NewSimulatedExecutor(cfg.Checkout.SimulatedLatency, log), nil
}
