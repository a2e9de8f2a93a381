package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates all runtime settings required by the storefront.
type Config struct {
	AppName     string
	Environment string
	Ledger      LedgerConfig
	Catalog     CatalogConfig
	Content     ContentConfig
	Simulator   SimulatorConfig
	Context     ContextConfig
	Logger      LoggerConfig
}

type LedgerConfig struct {
	// Backend selects the key-value driver: "bolt", "redis" or "memory".
	Backend string
	Path    string
	Bucket  string
	Redis   RedisConfig
}

type RedisConfig struct {
	URL string
}

type CatalogConfig struct {
	BaseURL string
	Timeout time.Duration
}

type ContentConfig struct {
	PurchasesDir string
}

type SimulatorConfig struct {
	TickInterval time.Duration
	ContentRoot  string
}

type ContextConfig struct {
	ShutdownTimeout time.Duration
}

type LoggerConfig struct {
	Level    string
	Encoding string
}

// Load reads configuration from environment variables (optionally .env)
// and applies sane defaults so the storefront can boot in any environment.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := &Config{
		AppName:     getString("APP_NAME", "storefront"),
		Environment: getString("APP_ENV", "development"),
		Ledger: LedgerConfig{
			Backend: getString("LEDGER_BACKEND", "bolt"),
			Path:    getString("LEDGER_BOLT_PATH", "./data/purchases.db"),
			Bucket:  getString("LEDGER_BOLT_BUCKET", "purchases"),
			Redis: RedisConfig{
				URL: getString("LEDGER_REDIS_URL", "redis://localhost:6379"),
			},
		},
		Catalog: CatalogConfig{
			BaseURL: getString("CATALOG_BASE_URL", "http://localhost:8081"),
			Timeout: getDuration("CATALOG_TIMEOUT_SECONDS", 5*time.Second),
		},
		Content: ContentConfig{
			PurchasesDir: getString("PURCHASES_DIR", "./data/purchases"),
		},
		Simulator: SimulatorConfig{
			TickInterval: getDuration("SIMULATOR_TICK_SECONDS", time.Second),
			ContentRoot:  getString("SIMULATOR_CONTENT_ROOT", "./data/simulator"),
		},
		Context: ContextConfig{
			ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT_SECONDS", 15*time.Second),
		},
		Logger: LoggerConfig{
			Level:    getString("LOG_LEVEL", "info"),
			Encoding: getString("LOG_ENCODING", "json"),
		},
	}

	return cfg, nil
}

// MustLoad panics if configuration cannot be loaded.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

func getString(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
		if seconds, err := strconv.Atoi(val); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}
