package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/alanyoungcy/orderbot/internal/domain"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, loads the layered env files, applies ORDERBOT_* (and
// legacy) environment variable overrides, and returns the final Config. A
// missing file is tolerated so the bot can run from the environment alone.
// The returned Config has NOT been validated; the caller should invoke
// Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: decode %s: %v", domain.ErrConfiguration, path, err)
		}
	}

	loadEnvFiles(filepath.Dir(path))

	applyEnvOverrides(&cfg)
	cfg.fillProfileDefaults()
	applyProfileOverrides(&cfg)

	return &cfg, nil
}

// EnvFiles lists the env files read for the given environment, lowest
// priority first.
func EnvFiles(dir, env string) []string {
	return []string{
		filepath.Join(dir, ".env"),
		filepath.Join(dir, "config", env+".env"),
		filepath.Join(dir, ".env.local"),
		filepath.Join(dir, ".env.production"),
	}
}

// loadEnvFiles applies the env file layers. A later file overrides an earlier
// one; variables already set in the process environment win over all files.
// Missing files are skipped.
func loadEnvFiles(dir string) {
	env := firstEnv("ORDERBOT_ENVIRONMENT", "ENVIRONMENT")
	if env == "" {
		env = string(domain.EnvDevelopment)
	}

	merged := map[string]string{}
	for _, f := range EnvFiles(dir, env) {
		vals, err := godotenv.Read(f)
		if err != nil {
			continue
		}
		for k, v := range vals {
			merged[k] = v
		}
	}
	for k, v := range merged {
		if _, set := os.LookupEnv(k); !set {
			_ = os.Setenv(k, v)
		}
	}
}

// applyEnvOverrides reads well-known ORDERBOT_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). Unprefixed legacy names are accepted as aliases; the prefixed name
// wins when both are set.
func applyEnvOverrides(cfg *Config) {
	// ── Top-level ──
	setStr(&cfg.Environment, "ENVIRONMENT", "ORDERBOT_ENVIRONMENT")
	setStr(&cfg.LogLevel, "LOG_LEVEL", "ORDERBOT_LOG_LEVEL")

	// ── Exchange ──
	setStr(&cfg.Exchange.MainnetURL, "ORDERBOT_EXCHANGE_MAINNET_URL")
	setStr(&cfg.Exchange.TestnetURL, "ORDERBOT_EXCHANGE_TESTNET_URL")
	setBool(&cfg.Exchange.IsMainnet, "IS_MAINNET", "ORDERBOT_EXCHANGE_IS_MAINNET")
	setStr(&cfg.Exchange.APIKey, "API_KEY_BTC_JPY", "API_KEY", "ORDERBOT_EXCHANGE_API_KEY")
	setStr(&cfg.Exchange.APISecret, "ORDERBOT_EXCHANGE_API_SECRET")
	setDuration(&cfg.Exchange.Timeout, "ORDERBOT_EXCHANGE_TIMEOUT")
	setInt(&cfg.Exchange.SubmitAttempts, "ORDERBOT_EXCHANGE_SUBMIT_ATTEMPTS")
	setDuration(&cfg.Exchange.RetryDelay, "ORDERBOT_EXCHANGE_RETRY_DELAY")

	// ── Wallet ──
	setStr(&cfg.Wallet.PrivateKey, "PRIVATE_KEY_BTC_JPY", "PRIVATE_KEY", "ORDERBOT_WALLET_PRIVATE_KEY")
	setStr(&cfg.Wallet.EncryptedKeyPath, "ORDERBOT_WALLET_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Wallet.KeyPassword, "ORDERBOT_WALLET_KEY_PASSWORD")

	// ── Persistence ──
	setStr(&cfg.Persistence.Driver, "ORDERBOT_PERSISTENCE_DRIVER")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "ORDERBOT_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "DB_HOST", "ORDERBOT_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "DB_PORT", "ORDERBOT_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "DB_NAME", "ORDERBOT_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "DB_USER", "ORDERBOT_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "DB_PASSWORD", "ORDERBOT_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "ORDERBOT_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "ORDERBOT_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "ORDERBOT_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "ORDERBOT_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "ORDERBOT_REDIS_ENABLED")
	if setStr(&cfg.Redis.URL, "REDIS_URL", "ORDERBOT_REDIS_URL") {
		cfg.Redis.Enabled = true
	}
	setStr(&cfg.Redis.Addr, "ORDERBOT_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "ORDERBOT_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "ORDERBOT_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "ORDERBOT_REDIS_POOL_SIZE")
	setBool(&cfg.Redis.TLSEnabled, "ORDERBOT_REDIS_TLS_ENABLED")
	setDuration(&cfg.Redis.LeaseTTL, "ORDERBOT_REDIS_LEASE_TTL")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "ORDERBOT_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "ORDERBOT_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "ORDERBOT_S3_REGION")
	setStr(&cfg.S3.Bucket, "ORDERBOT_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "ORDERBOT_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "ORDERBOT_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "ORDERBOT_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "ORDERBOT_S3_FORCE_PATH_STYLE")

	// ── Notify ──
	setStr(&cfg.Notify.SlackWebhookURL, "SLACK_WEBHOOK_URL", "ORDERBOT_NOTIFY_SLACK_WEBHOOK_URL")
	setStr(&cfg.Notify.DiscordWebhookURL, "DISCORD_WEBHOOK_URL", "ORDERBOT_NOTIFY_DISCORD_WEBHOOK_URL")
	setStr(&cfg.Notify.TelegramToken, "ORDERBOT_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "ORDERBOT_NOTIFY_TELEGRAM_CHAT_ID")

	// ── Metrics / Server / Health ──
	setStr(&cfg.Metrics.Driver, "ORDERBOT_METRICS_DRIVER")
	setBool(&cfg.Server.Enabled, "ORDERBOT_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "ORDERBOT_SERVER_PORT")
	setStr(&cfg.Server.APIKey, "ORDERBOT_SERVER_API_KEY")
	setDuration(&cfg.Health.StaleThreshold, "ORDERBOT_HEALTH_STALE_THRESHOLD")
	setBool(&cfg.Profiling.Enabled, "ORDERBOT_PROFILING_ENABLED")
	setStr(&cfg.Profiling.ServerAddress, "PYROSCOPE_SERVER_ADDRESS", "ORDERBOT_PROFILING_SERVER_ADDRESS")
}

// applyProfileOverrides applies the single-bot variables to every profile.
func applyProfileOverrides(cfg *Config) {
	for i := range cfg.Profiles {
		p := &cfg.Profiles[i]
		setFloat64(&p.Risk.MaxPositionSize, "MAX_POSITION_SIZE", "ORDERBOT_MAX_POSITION_SIZE")
		setFloat64(&p.Risk.RiskLimit, "RISK_LIMIT", "ORDERBOT_RISK_LIMIT")
		setStringSlice(&p.Symbols, "SYMBOLS", "ORDERBOT_SYMBOLS")
		setBool(&p.PaperTrading, "ENABLE_PAPER_TRADING", "ORDERBOT_ENABLE_PAPER_TRADING")
	}
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Keys are tried in order and the last non-empty one
// wins. Each only mutates the target when a variable is present and parses.
// ---------------------------------------------------------------------------

func lastEnv(keys ...string) string {
	var out string
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			out = v
		}
	}
	return out
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

func setStr(dst *string, keys ...string) bool {
	if v := lastEnv(keys...); v != "" {
		*dst = v
		return true
	}
	return false
}

func setInt(dst *int, keys ...string) {
	if v := lastEnv(keys...); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, keys ...string) {
	if v := lastEnv(keys...); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, keys ...string) {
	if v := lastEnv(keys...); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, keys ...string) {
	if v := lastEnv(keys...); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, keys ...string) {
	if v := lastEnv(keys...); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
