// Package config defines the top-level configuration for the order bot and
// provides validation helpers.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/orderbot/internal/domain"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by ORDERBOT_* environment variables.
type Config struct {
	Environment string            `toml:"environment"`
	LogLevel    string            `toml:"log_level"`
	Exchange    ExchangeConfig    `toml:"exchange"`
	Wallet      WalletConfig      `toml:"wallet"`
	Profiles    []ProfileConfig   `toml:"profiles"`
	Persistence PersistenceConfig `toml:"persistence"`
	Postgres    PostgresConfig    `toml:"postgres"`
	Redis       RedisConfig       `toml:"redis"`
	S3          S3Config          `toml:"s3"`
	Notify      NotifyConfig      `toml:"notify"`
	Metrics     MetricsConfig     `toml:"metrics"`
	Server      ServerConfig      `toml:"server"`
	Health      HealthConfig      `toml:"health"`
	Profiling   ProfilingConfig   `toml:"profiling"`
}

// ExchangeConfig holds exchange endpoints and API credentials.
type ExchangeConfig struct {
	MainnetURL     string   `toml:"mainnet_url"`
	TestnetURL     string   `toml:"testnet_url"`
	IsMainnet      bool     `toml:"is_mainnet"`
	APIKey         string   `toml:"api_key"`
	APISecret      string   `toml:"api_secret"`
	Timeout        duration `toml:"timeout"`
	SubmitAttempts int      `toml:"submit_attempts"`
	RetryDelay     duration `toml:"retry_delay"`
}

// WalletConfig holds the signing key sources.
type WalletConfig struct {
	PrivateKey       string `toml:"private_key"`
	EncryptedKeyPath string `toml:"encrypted_key_path"`
	KeyPassword      string `toml:"key_password"`
}

// HasKey reports whether any signing key source is configured.
func (w WalletConfig) HasKey() bool {
	return w.PrivateKey != "" || w.EncryptedKeyPath != ""
}

// ProfileConfig declares one bot loop.
type ProfileConfig struct {
	Name           string         `toml:"name"`
	Symbols        []string       `toml:"symbols"`
	Strategy       string         `toml:"strategy"`
	Params         map[string]any `toml:"params"`
	PaperTrading   bool           `toml:"paper_trading"`
	Interval       duration       `toml:"interval"`
	Cooldown       duration       `toml:"cooldown"`
	SimulatedDelay duration       `toml:"simulated_delay"`
	Risk           RiskConfig     `toml:"risk"`
}

// RiskConfig holds the per-profile risk limits.
type RiskConfig struct {
	MaxPositionSize      float64 `toml:"max_position_size"`
	RiskLimit            float64 `toml:"risk_limit"`
	MaxConsecutiveErrors int     `toml:"max_consecutive_errors"`
	DevQuantityCap       float64 `toml:"dev_quantity_cap"`
}

// PersistenceConfig selects the order store.
type PersistenceConfig struct {
	Driver string `toml:"driver"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters. Redis is optional; when
// disabled the bot runs without a lease, position mirror or event bus.
type RedisConfig struct {
	Enabled     bool     `toml:"enabled"`
	URL         string   `toml:"url"`
	Addr        string   `toml:"addr"`
	Password    string   `toml:"password"`
	DB          int      `toml:"db"`
	PoolSize    int      `toml:"pool_size"`
	MaxRetries  int      `toml:"max_retries"`
	TLSEnabled  bool     `toml:"tls_enabled"`
	LeaseTTL    duration `toml:"lease_ttl"`
	PositionTTL duration `toml:"position_ttl"`
}

// S3Config holds S3-compatible object storage parameters used for run
// archives.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
	Prefix         string `toml:"prefix"`
}

// NotifyConfig holds notification channel credentials. A channel without
// credentials is skipped.
type NotifyConfig struct {
	SlackWebhookURL   string   `toml:"slack_webhook_url"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	Timeout           duration `toml:"timeout"`
}

// MetricsConfig selects the metrics sink.
type MetricsConfig struct {
	Driver string `toml:"driver"`
}

// ServerConfig holds the ops HTTP server parameters.
type ServerConfig struct {
	Enabled bool   `toml:"enabled"`
	Port    int    `toml:"port"`
	APIKey  string `toml:"api_key"`
}

// HealthConfig holds heartbeat parameters.
type HealthConfig struct {
	StaleThreshold duration `toml:"stale_threshold"`
	CheckInterval  duration `toml:"check_interval"`
}

// ProfilingConfig enables continuous profiling pushed to a Pyroscope server.
type ProfilingConfig struct {
	Enabled         bool   `toml:"enabled"`
	ServerAddress   string `toml:"server_address"`
	ApplicationName string `toml:"application_name"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Environment: string(domain.EnvDevelopment),
		LogLevel:    "info",
		Exchange: ExchangeConfig{
			MainnetURL:     "https://api.hyperliquid.xyz",
			TestnetURL:     "https://api.hyperliquid-testnet.xyz",
			Timeout:        duration{10 * time.Second},
			SubmitAttempts: 2,
			RetryDelay:     duration{500 * time.Millisecond},
		},
		Persistence: PersistenceConfig{Driver: "memory"},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "orderbot",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:        "localhost:6379",
			PoolSize:    20,
			MaxRetries:  3,
			LeaseTTL:    duration{30 * time.Second},
			PositionTTL: duration{24 * time.Hour},
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "orderbot-runs",
			ForcePathStyle: true,
			Prefix:         "runs",
		},
		Notify:  NotifyConfig{Timeout: duration{5 * time.Second}},
		Metrics: MetricsConfig{Driver: "prometheus"},
		Server:  ServerConfig{Enabled: true, Port: 8000},
		Health: HealthConfig{
			StaleThreshold: duration{5 * time.Minute},
			CheckInterval:  duration{30 * time.Second},
		},
		Profiling: ProfilingConfig{
			ServerAddress:   "http://localhost:4040",
			ApplicationName: "orderbot",
		},
	}
}

// DefaultProfile is used when the file declares no [[profiles]].
func DefaultProfile() ProfileConfig {
	return ProfileConfig{
		Name:           "default",
		Symbols:        []string{"BTC"},
		Strategy:       "noop",
		PaperTrading:   true,
		Interval:       duration{time.Second},
		Cooldown:       duration{5 * time.Second},
		SimulatedDelay: duration{100 * time.Millisecond},
		Risk:           defaultRisk(),
	}
}

func defaultRisk() RiskConfig {
	return RiskConfig{
		MaxPositionSize:      0.01,
		RiskLimit:            1000,
		MaxConsecutiveErrors: 10,
		DevQuantityCap:       0.001,
	}
}

// fillProfileDefaults completes the zero fields of every profile.
func (c *Config) fillProfileDefaults() {
	if len(c.Profiles) == 0 {
		c.Profiles = []ProfileConfig{DefaultProfile()}
		return
	}
	def := DefaultProfile()
	for i := range c.Profiles {
		p := &c.Profiles[i]
		if p.Strategy == "" {
			p.Strategy = def.Strategy
		}
		if p.Interval.Duration == 0 {
			p.Interval = def.Interval
		}
		if p.Cooldown.Duration == 0 {
			p.Cooldown = def.Cooldown
		}
		if p.SimulatedDelay.Duration == 0 {
			p.SimulatedDelay = def.SimulatedDelay
		}
		if p.Risk.MaxPositionSize == 0 {
			p.Risk.MaxPositionSize = def.Risk.MaxPositionSize
		}
		if p.Risk.RiskLimit == 0 {
			p.Risk.RiskLimit = def.Risk.RiskLimit
		}
		if p.Risk.MaxConsecutiveErrors == 0 {
			p.Risk.MaxConsecutiveErrors = def.Risk.MaxConsecutiveErrors
		}
		if p.Risk.DevQuantityCap == 0 {
			p.Risk.DevQuantityCap = def.Risk.DevQuantityCap
		}
	}
}

// Env returns the parsed environment. Call after Validate.
func (c Config) Env() domain.Environment {
	env, _ := domain.ParseEnvironment(c.Environment)
	return env
}

// Limits converts a profile's risk table into domain limits.
func (c Config) Limits(p ProfileConfig) domain.RiskLimits {
	return domain.RiskLimits{
		MaxPositionSize:      decimal.NewFromFloat(p.Risk.MaxPositionSize),
		RiskLimitValue:       decimal.NewFromFloat(p.Risk.RiskLimit),
		Environment:          c.Env(),
		MaxConsecutiveErrors: p.Risk.MaxConsecutiveErrors,
		DevQuantityCap:       decimal.NewFromFloat(p.Risk.DevQuantityCap),
	}
}

// Mode returns the trading mode of a profile.
func (p ProfileConfig) Mode() domain.Mode {
	if p.PaperTrading {
		return domain.ModePaper
	}
	return domain.ModeLive
}

// Durations exposed to wiring code.

func (e ExchangeConfig) TimeoutDuration() time.Duration    { return e.Timeout.Duration }
func (e ExchangeConfig) RetryDelayDuration() time.Duration { return e.RetryDelay.Duration }
func (p ProfileConfig) IntervalDuration() time.Duration    { return p.Interval.Duration }
func (p ProfileConfig) CooldownDuration() time.Duration    { return p.Cooldown.Duration }
func (p ProfileConfig) SimulatedDelayDuration() time.Duration {
	return p.SimulatedDelay.Duration
}
func (r RedisConfig) LeaseTTLDuration() time.Duration        { return r.LeaseTTL.Duration }
func (r RedisConfig) PositionTTLDuration() time.Duration     { return r.PositionTTL.Duration }
func (n NotifyConfig) TimeoutDuration() time.Duration        { return n.Timeout.Duration }
func (h HealthConfig) StaleThresholdDuration() time.Duration { return h.StaleThreshold.Duration }
func (h HealthConfig) CheckIntervalDuration() time.Duration  { return h.CheckInterval.Duration }

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var (
	validPersistence = map[string]bool{"postgres": true, "memory": true}
	validMetrics     = map[string]bool{"prometheus": true, "memory": true, "none": true}
)

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found. The error wraps
// domain.ErrConfiguration.
func (c *Config) Validate() error {
	var errs []string

	if _, err := domain.ParseEnvironment(c.Environment); err != nil {
		errs = append(errs, fmt.Sprintf("unknown environment %q (valid: development, staging, production)", c.Environment))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Exchange
	if c.Exchange.MainnetURL == "" || c.Exchange.TestnetURL == "" {
		errs = append(errs, "exchange: mainnet_url and testnet_url must not be empty")
	}
	if c.Exchange.SubmitAttempts < 1 {
		errs = append(errs, "exchange: submit_attempts must be >= 1")
	}
	if c.Exchange.Timeout.Duration <= 0 {
		errs = append(errs, "exchange: timeout must be > 0")
	}

	// Wallet
	if c.Wallet.EncryptedKeyPath != "" && c.Wallet.KeyPassword == "" {
		errs = append(errs, "wallet: key_password is required when encrypted_key_path is set")
	}

	// Profiles
	seen := make(map[string]bool, len(c.Profiles))
	for i, p := range c.Profiles {
		label := fmt.Sprintf("profiles[%d]", i)
		if p.Name == "" {
			errs = append(errs, label+": name must not be empty")
		} else {
			label = "profile " + p.Name
			if seen[p.Name] {
				errs = append(errs, label+": duplicate name")
			}
			seen[p.Name] = true
		}
		if len(p.Symbols) == 0 {
			errs = append(errs, label+": symbols must not be empty")
		}
		if p.Risk.MaxPositionSize <= 0 {
			errs = append(errs, label+": risk.max_position_size must be > 0")
		}
		if p.Risk.RiskLimit <= 0 {
			errs = append(errs, label+": risk.risk_limit must be > 0")
		}
		if p.Risk.MaxConsecutiveErrors < 0 {
			errs = append(errs, label+": risk.max_consecutive_errors must be >= 0")
		}
		if p.Risk.DevQuantityCap <= 0 {
			errs = append(errs, label+": risk.dev_quantity_cap must be > 0")
		}
		if p.Interval.Duration <= 0 || p.Cooldown.Duration <= 0 {
			errs = append(errs, label+": interval and cooldown must be > 0")
		}
	}

	// Persistence
	if !validPersistence[c.Persistence.Driver] {
		errs = append(errs, fmt.Sprintf("persistence: unknown driver %q (valid: postgres, memory)", c.Persistence.Driver))
	}
	if c.Persistence.Driver == "postgres" && strings.TrimSpace(c.Postgres.DSN) == "" {
		if c.Postgres.Host == "" {
			errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
		}
		if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
			errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
		}
		if c.Postgres.Database == "" {
			errs = append(errs, "postgres: database must not be empty")
		}
	}
	if c.Persistence.Driver == "postgres" {
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns < 0 || c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must be between 0 and pool_max_conns")
		}
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" && c.Redis.URL == "" {
			errs = append(errs, "redis: addr or url must be set when enabled")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
		if c.Redis.LeaseTTL.Duration < time.Second {
			errs = append(errs, "redis: lease_ttl must be >= 1s")
		}
	}

	// S3
	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when enabled")
		}
		if c.S3.Region == "" {
			errs = append(errs, "s3: region must not be empty when enabled")
		}
	}

	// Metrics
	if !validMetrics[c.Metrics.Driver] {
		errs = append(errs, fmt.Sprintf("metrics: unknown driver %q (valid: prometheus, memory, none)", c.Metrics.Driver))
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	// Health
	if c.Health.StaleThreshold.Duration <= 0 {
		errs = append(errs, "health: stale_threshold must be > 0")
	}

	// Profiling
	if c.Profiling.Enabled && strings.TrimSpace(c.Profiling.ServerAddress) == "" {
		errs = append(errs, "profiling: server_address must not be empty when enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w:\n  - %s", domain.ErrConfiguration, strings.Join(errs, "\n  - "))
	}
	return nil
}

// IsConfigError reports whether err came from Validate or Load.
func IsConfigError(err error) bool {
	return errors.Is(err, domain.ErrConfiguration)
}
