// Command verifier serves the identity-verification callback used by the hoja frontend.
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
	"github.com/joho/godotenv"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"hoja/internal/chain"
	"hoja/internal/handler"
	"hoja/internal/middleware"
	"hoja/internal/verification"
	"hoja/pkg/config"
	"hoja/pkg/kv"
	"hoja/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.New("verifier")

	if err := cfg.ValidateVerifier(); err != nil {
		log.Fatal("Invalid configuration", map[string]interface{}{"error": err.Error()})
	}

	// Verification outcomes live in Redis when configured, otherwise in memory.
	var status kv.Store = kv.NewMemoryStore()
	if cfg.Redis.URL != "" {
		client, err := kv.DialRedis(context.Background(), cfg.Redis.URL, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Fatal("Failed to connect to Redis", map[string]interface{}{"error": err.Error()})
		}
		defer client.Close()
		status = kv.NewRedisStore(client, 0)
	}

	node, err := chain.NewClient(cfg.Verifier.ChainRPCURL, cfg.Breaker, log)
	if err != nil {
		log.Fatal("Failed to create chain client", map[string]interface{}{"error": err.Error()})
	}
	defer node.Close()
	contract := verification.NewRelayerCaller(cfg.Verifier, cfg.Breaker, node, log)

	var verifier verification.Verifier
	if cfg.Verifier.SDKURL != "" {
		verifier = verification.NewHTTPVerifier(cfg.Verifier.SDKURL, cfg.Verifier.Scope)
	}

	service := verification.NewService(
		contract,
		verifier,
		verification.NewStatusStore(status),
		cfg.Verifier.IdentifierIndex,
		log,
	)
	verifyHandler := handler.NewVerifyHandler(service, log)

	r := mux.NewRouter()
	r.Use(middleware.CORS)
	r.Use(middleware.Recovery(log))
	r.Use(middleware.CorrelationID)
	r.Use(middleware.NewLoggingMiddleware(log).Log)
	r.Use(middleware.BodyLimit(1 << 20))

	r.Handle("/api/verify", verifyHandler)
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"healthy","service":"verifier"}`))
	}).Methods(http.MethodGet)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Verifier.Port),
		Handler:      otelhttp.NewHandler(r, "verifier"),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Verifier.CallTimeout + 30*time.Second,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("Verifier started", map[string]interface{}{
			"address":  srv.Addr,
			"contract": cfg.Verifier.ContractAddress,
		})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed to start", map[string]interface{}{"error": err.Error()})
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down verifier...", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Verifier forced to shutdown", map[string]interface{}{"error": err.Error()})
	}

	log.Info("Verifier stopped gracefully", nil)
}
