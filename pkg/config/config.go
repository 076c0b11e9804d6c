// Package config loads and validates service configuration from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Session  SessionConfig
	Storage  StorageConfig
	Checkout CheckoutConfig
	Wallet   WalletConfig
	Review   ReviewConfig
	Verifier VerifierConfig
	Breaker  BreakerConfig
}

type ServerConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL      string
	Password string
	DB       int
}

// SessionConfig controls browser-profile tokens and the lifetime of idle sessions.
type SessionConfig struct {
	Secret          string
	SecureCookie    bool
	TokenTTL        time.Duration
	IdleTTL         time.Duration
	JanitorInterval time.Duration
}

// Storage backends for the proof store.
const (
	StorageMemory   = "memory"
	StorageFile     = "file"
	StorageRedis    = "redis"
	StoragePostgres = "postgres"
)

type StorageConfig struct {
	Backend  string
	FileDir  string
	ProofKey string
}

// Checkout executors.
const (
	ExecutorSimulated = "simulated"
	ExecutorWallet    = "wallet"
)

type CheckoutConfig struct {
	Executor          string
	PaymentTimeout    time.Duration
	SimulatedLatency  time.Duration
	ProofLatency      time.Duration
	DefaultNetwork    string
	IdempotencyWindow time.Duration
}

type WalletConfig struct {
	RPCURL           string
	RecipientAddress string
	ChainID          int64
	PollInterval     time.Duration
}

type ReviewConfig struct {
	RequireProof bool
}

type VerifierConfig struct {
	Port            string
	SDKURL          string
	Scope           string
	IdentifierIndex int
	RelayerURL      string
	ChainRPCURL     string
	ContractAddress string
	PollInterval    time.Duration
	CallTimeout     time.Duration
}

type BreakerConfig struct {
	MaxRequests         uint32
	Interval            time.Duration
	Timeout             time.Duration
	ConsecutiveFailures uint32
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 90*time.Second),
			IdleTimeout:  getDurationEnv("SERVER_IDLE_TIMEOUT", 120*time.Second),
		},
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxOpenConns:    getIntEnv("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getIntEnv("DB_MAX_IDLE_CONNS", 25),
			ConnMaxLifetime: getDurationEnv("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL:      normalizeRedisURL(getEnv("REDIS_URL", "")),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		Session: SessionConfig{
			Secret:          getEnv("SESSION_SECRET", "change-this-secret"),
			SecureCookie:    getBoolEnv("SESSION_SECURE_COOKIE", false),
			TokenTTL:        getDurationEnv("SESSION_TOKEN_TTL", 365*24*time.Hour),
			IdleTTL:         getDurationEnv("SESSION_IDLE_TTL", 30*time.Minute),
			JanitorInterval: getDurationEnv("SESSION_JANITOR_INTERVAL", time.Minute),
		},
		Storage: StorageConfig{
			Backend:  strings.ToLower(getEnv("STORAGE_BACKEND", StorageFile)),
			FileDir:  getEnv("STORAGE_FILE_DIR", "./data"),
			ProofKey: getEnv("STORAGE_PROOF_KEY", "hoja-proofs"),
		},
		Checkout: CheckoutConfig{
			Executor:          strings.ToLower(getEnv("CHECKOUT_EXECUTOR", ExecutorSimulated)),
			PaymentTimeout:    getDurationEnv("CHECKOUT_PAYMENT_TIMEOUT", 60*time.Second),
			SimulatedLatency:  getDurationEnv("CHECKOUT_SIMULATED_LATENCY", 2*time.Second),
			ProofLatency:      getDurationEnv("CHECKOUT_PROOF_LATENCY", 2*time.Second),
			DefaultNetwork:    getEnv("CHECKOUT_DEFAULT_NETWORK", "ethereum"),
			IdempotencyWindow: getDurationEnv("CHECKOUT_IDEMPOTENCY_WINDOW", 24*time.Hour),
		},
		Wallet: WalletConfig{
			RPCURL:           getEnv("WALLET_RPC_URL", ""),
			RecipientAddress: getEnv("WALLET_RECIPIENT_ADDRESS", ""),
			ChainID:          int64(getIntEnv("WALLET_CHAIN_ID", 44787)),
			PollInterval:     getDurationEnv("WALLET_POLL_INTERVAL", 2*time.Second),
		},
		Review: ReviewConfig{
			RequireProof: getBoolEnv("REVIEW_REQUIRE_PROOF", false),
		},
		Verifier: VerifierConfig{
			Port:            getEnv("VERIFIER_PORT", "8081"),
			SDKURL:          getEnv("VERIFIER_SDK_URL", ""),
			Scope:           getEnv("VERIFIER_SCOPE", "birthday_verification"),
			IdentifierIndex: getIntEnv("VERIFIER_IDENTIFIER_INDEX", 20),
			RelayerURL:      getEnv("VERIFIER_RELAYER_URL", ""),
			ChainRPCURL:     getEnv("VERIFIER_CHAIN_RPC_URL", "https://alfajores-forno.celo-testnet.org/"),
			ContractAddress: getEnv("VERIFIER_CONTRACT_ADDRESS", "0x3c0EB6B70214447DC9Da98166caDb067Eb185a7d"),
			PollInterval:    getDurationEnv("VERIFIER_POLL_INTERVAL", 2*time.Second),
			CallTimeout:     getDurationEnv("VERIFIER_CALL_TIMEOUT", 60*time.Second),
		},
		Breaker: BreakerConfig{
			MaxRequests:         uint32(getIntEnv("CIRCUIT_BREAKER_MAX_REQUESTS", 1)),
			Interval:            getDurationEnv("CIRCUIT_BREAKER_INTERVAL", time.Minute),
			Timeout:             getDurationEnv("CIRCUIT_BREAKER_TIMEOUT", 60*time.Second),
			ConsecutiveFailures: uint32(getIntEnv("CIRCUIT_BREAKER_THRESHOLD", 5)),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func normalizeRedisURL(url string) string {
	// Strip redis:// or redis+tls:// scheme if present
	if strings.HasPrefix(url, "redis+tls://") {
		return url[len("redis+tls://"):]
	}
	if strings.HasPrefix(url, "redis://") {
		return url[len("redis://"):]
	}
	return url
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		switch strings.ToLower(strings.TrimSpace(value)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return defaultValue
}
