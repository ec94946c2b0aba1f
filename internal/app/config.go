package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Config holds the complete application configuration, loadable from
// environment variables (BREAD_ prefix), flags, or YAML config files.
type Config struct {
	Addr        string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL string `usage:"PostgreSQL connection URL (BREAD_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	RedisAddr   string `default:"" usage:"Redis address for the price quote cache; empty disables caching" flag:"redis-addr"`
	WeeklyCap   int    `default:"10" usage:"Baked goods sold per rolling 7-day window" flag:"weekly-cap"`
	Chain       ChainConfig
	Mail        MailConfig
	RateLimit   RateLimitConfig
	CORS        CORSConfig
	Graceful    GracefulConfig
}

// ChainConfig controls on-chain payment verification. With no RPC endpoints
// configured the server skips verification and trusts submitted tx hashes.
type ChainConfig struct {
	EthereumRPC   string        `default:"" usage:"Ethereum mainnet RPC endpoint" flag:"ethereum-rpc"`
	BaseRPC       string        `default:"" usage:"Base RPC endpoint" flag:"base-rpc"`
	Confirmations uint64        `default:"1"   usage:"Blocks required before a payment counts as settled"`
	PollInterval  time.Duration `default:"3s"  usage:"Receipt polling interval" flag:"poll-interval"`
	SettleTimeout time.Duration `default:"90s" usage:"Maximum time to wait for payment confirmation" flag:"settle-timeout"`
}

// MailConfig controls post-order email notifications via Resend. An empty
// API key disables all email sending.
type MailConfig struct {
	ResendAPIKey  string `default:"" usage:"Resend API key; empty disables email" flag:"resend-api-key"`
	From          string `default:"orders@breadstore.example" usage:"Sender address for order emails" flag:"mail-from"`
	MerchantEmail string `default:"" usage:"Merchant address for new-order notifications" flag:"merchant-email"`
}

// RateLimitConfig controls the per-client rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config files,
// and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "BREAD",
		Files:     []string{"config.yaml", "/etc/breadstore/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if cfg.DatabaseURL == "" {
		return nil, errors.New("database URL is required: set BREAD_DATABASE_URL or DATABASE_URL")
	}
	if cfg.WeeklyCap <= 0 {
		return nil, errors.New("weekly cap must be positive")
	}

	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's BREAD_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if c.RedisAddr == "" {
		if v := os.Getenv("REDIS_URL"); v != "" {
			c.RedisAddr = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}
