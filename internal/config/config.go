package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the application
type Config struct {
	// Chain RPC endpoints
	Chains ChainsConfig

	// Block explorer (log search, block by time, token transfers)
	Explorer ExplorerConfig

	// Price feed and price cache
	Price PriceConfig

	// Net-transfer computation
	Transfer TransferConfig

	// Token, exclusion and market catalog
	Registry RegistryConfig

	// Database configuration
	Database DatabaseConfig

	// Redis configuration
	Redis RedisConfig

	// API server configuration
	API APIConfig

	// Logging configuration
	Log LogConfig
}

// ChainsConfig holds RPC connection settings for every supported chain
type ChainsConfig struct {
	// RPCURLs maps chain ID to endpoint, e.g. "1:https://eth.llamarpc.com,8453:https://mainnet.base.org"
	RPCURLs        map[int64]string `envconfig:"CHAIN_RPC_URLS"`
	RequestTimeout time.Duration    `envconfig:"CHAIN_REQUEST_TIMEOUT" default:"30s"`
	MaxRetries     int              `envconfig:"CHAIN_MAX_RETRIES" default:"3"`
	RetryDelay     time.Duration    `envconfig:"CHAIN_RETRY_DELAY" default:"1s"`
}

// ExplorerConfig holds settings for the Etherscan-compatible explorer API
type ExplorerConfig struct {
	BaseURL        string        `envconfig:"EXPLORER_BASE_URL" default:"https://api.etherscan.io/v2/api"`
	APIKey         string        `envconfig:"EXPLORER_API_KEY"`
	RequestsPerSec float64       `envconfig:"EXPLORER_RPS" default:"5"`
	Burst          int           `envconfig:"EXPLORER_BURST" default:"1"`
	Timeout        time.Duration `envconfig:"EXPLORER_TIMEOUT" default:"20s"`
}

// PriceConfig holds price feed settings
type PriceConfig struct {
	BaseURL        string        `envconfig:"PRICE_BASE_URL" default:"https://coins.llama.fi"`
	CacheTTL       time.Duration `envconfig:"PRICE_CACHE_TTL" default:"60s"`
	Timeout        time.Duration `envconfig:"PRICE_TIMEOUT" default:"10s"`
	RequestsPerSec float64       `envconfig:"PRICE_RPS" default:"10"`
}

// TransferConfig holds net-transfer settings
type TransferConfig struct {
	MaxBlockSpan     uint64        `envconfig:"TRANSFER_MAX_BLOCK_SPAN" default:"5000"`
	MinBlockSpan     uint64        `envconfig:"TRANSFER_MIN_BLOCK_SPAN" default:"20"`
	PageSize         int           `envconfig:"TRANSFER_PAGE_SIZE" default:"1000"`
	ZeroBlockIsMiss  bool          `envconfig:"TRANSFER_ZERO_BLOCK_IS_MISS" default:"true"`
	TokenConcurrency int           `envconfig:"TRANSFER_TOKEN_CONCURRENCY" default:"2"`
	ResultCacheTTL   time.Duration `envconfig:"TRANSFER_RESULT_CACHE_TTL" default:"10m"`
}

// RegistryConfig points at an optional YAML catalog merged over the built-in one
type RegistryConfig struct {
	Path string `envconfig:"REGISTRY_PATH"`
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	Enabled         bool          `envconfig:"DB_ENABLED" default:"false"`
	Host            string        `envconfig:"DB_HOST" default:"localhost"`
	Port            int           `envconfig:"DB_PORT" default:"5432"`
	User            string        `envconfig:"DB_USER" default:"reconciler"`
	Password        string        `envconfig:"DB_PASSWORD" default:"reconciler"`
	Name            string        `envconfig:"DB_NAME" default:"holdings_reconciler"`
	SSLMode         string        `envconfig:"DB_SSL_MODE" default:"disable"`
	MaxOpenConns    int           `envconfig:"DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"5m"`
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Enabled  bool   `envconfig:"REDIS_ENABLED" default:"true"`
	Host     string `envconfig:"REDIS_HOST" default:"localhost"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD" default:""`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

// APIConfig holds API server settings
type APIConfig struct {
	Host            string        `envconfig:"API_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"API_PORT" default:"8081"`
	ReadTimeout     time.Duration `envconfig:"API_READ_TIMEOUT" default:"10s"`
	WriteTimeout    time.Duration `envconfig:"API_WRITE_TIMEOUT" default:"120s"`
	ShutdownTimeout time.Duration `envconfig:"API_SHUTDOWN_TIMEOUT" default:"30s"`
	RateLimitRPS    int           `envconfig:"API_RATE_LIMIT_RPS" default:"20"`
	CacheTTL        time.Duration `envconfig:"API_CACHE_TTL" default:"30s"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Format string `envconfig:"LOG_FORMAT" default:"json"`
}

// Load reads an optional .env file and then the environment
func Load() (*Config, error) {
	// A missing .env is normal outside local development
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the reconciler cannot run with
func (c *Config) Validate() error {
	if c.Transfer.MinBlockSpan == 0 {
		return fmt.Errorf("TRANSFER_MIN_BLOCK_SPAN must be positive")
	}
	if c.Transfer.MaxBlockSpan < c.Transfer.MinBlockSpan {
		return fmt.Errorf("TRANSFER_MAX_BLOCK_SPAN (%d) is below TRANSFER_MIN_BLOCK_SPAN (%d)",
			c.Transfer.MaxBlockSpan, c.Transfer.MinBlockSpan)
	}
	if c.Transfer.PageSize <= 0 {
		return fmt.Errorf("TRANSFER_PAGE_SIZE must be positive")
	}
	if c.Transfer.TokenConcurrency <= 0 {
		c.Transfer.TokenConcurrency = 1
	}
	return nil
}

// DSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}
