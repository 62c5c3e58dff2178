package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/orderbot/internal/domain"
)

// unsetEnv clears keys for the duration of the test.
func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	unsetEnv(t, "ENVIRONMENT", "ORDERBOT_ENVIRONMENT", "RISK_LIMIT", "ORDERBOT_RISK_LIMIT", "SYMBOLS", "ENABLE_PAPER_TRADING")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	require.Len(t, cfg.Profiles, 1)
	p := cfg.Profiles[0]
	assert.Equal(t, "default", p.Name)
	assert.Equal(t, domain.ModePaper, p.Mode())
	assert.Equal(t, 1000.0, p.Risk.RiskLimit)
	assert.Equal(t, time.Second, p.IntervalDuration())
	assert.Equal(t, domain.EnvDevelopment, cfg.Env())
	assert.Equal(t, 5*time.Minute, cfg.Health.StaleThresholdDuration())
}

func TestLoad_TOMLProfiles(t *testing.T) {
	unsetEnv(t, "ENVIRONMENT", "ORDERBOT_ENVIRONMENT", "MAX_POSITION_SIZE", "RISK_LIMIT", "SYMBOLS", "ENABLE_PAPER_TRADING")
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	writeFile(t, path, `
environment = "prod"
log_level = "debug"

[exchange]
is_mainnet = true
submit_attempts = 3
retry_delay = "250ms"

[[profiles]]
name = "btc"
symbols = ["BTC"]
strategy = "sample"
interval = "2s"

[profiles.risk]
max_position_size = 0.5
risk_limit = 25000

[[profiles]]
name = "eth"
symbols = ["ETH"]
paper_trading = true
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, domain.EnvProduction, cfg.Env())
	assert.True(t, cfg.Exchange.IsMainnet)
	assert.Equal(t, 3, cfg.Exchange.SubmitAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.Exchange.RetryDelayDuration())

	require.Len(t, cfg.Profiles, 2)
	btc, eth := cfg.Profiles[0], cfg.Profiles[1]
	assert.Equal(t, domain.ModeLive, btc.Mode())
	assert.Equal(t, 2*time.Second, btc.IntervalDuration())
	assert.Equal(t, 5*time.Second, btc.CooldownDuration())
	assert.Equal(t, 0.5, btc.Risk.MaxPositionSize)
	assert.Equal(t, 10, btc.Risk.MaxConsecutiveErrors)
	assert.Equal(t, domain.ModePaper, eth.Mode())
	assert.Equal(t, "noop", eth.Strategy)

	limits := cfg.Limits(btc)
	assert.True(t, limits.MaxPositionSize.Equal(decimal.RequireFromString("0.5")))
	assert.True(t, limits.RiskLimitValue.Equal(decimal.NewFromInt(25000)))
	assert.Equal(t, domain.EnvProduction, limits.Environment)
}

func TestLoad_BadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, "environment = [")
	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, IsConfigError(err))
}

func TestLoad_EnvAliases(t *testing.T) {
	unsetEnv(t, "ORDERBOT_ENVIRONMENT", "ORDERBOT_EXCHANGE_API_KEY", "API_KEY_BTC_JPY", "PRIVATE_KEY_BTC_JPY",
		"ORDERBOT_WALLET_PRIVATE_KEY", "ORDERBOT_RISK_LIMIT", "ORDERBOT_SYMBOLS", "REDIS_URL", "ORDERBOT_REDIS_URL")
	t.Setenv("ENVIRONMENT", "staging")
	t.Setenv("API_KEY", "legacy-key")
	t.Setenv("PRIVATE_KEY", "0xabc")
	t.Setenv("IS_MAINNET", "true")
	t.Setenv("MAX_POSITION_SIZE", "0.2")
	t.Setenv("RISK_LIMIT", "500")
	t.Setenv("SYMBOLS", "BTC, ETH ,")
	t.Setenv("ENABLE_PAPER_TRADING", "false")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("SLACK_WEBHOOK_URL", "https://hooks.slack.test/x")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "staging", cfg.Environment)
	assert.Equal(t, "legacy-key", cfg.Exchange.APIKey)
	assert.Equal(t, "0xabc", cfg.Wallet.PrivateKey)
	assert.True(t, cfg.Wallet.HasKey())
	assert.True(t, cfg.Exchange.IsMainnet)
	assert.Equal(t, "db.internal", cfg.Postgres.Host)
	assert.Equal(t, 6543, cfg.Postgres.Port)
	assert.Equal(t, "https://hooks.slack.test/x", cfg.Notify.SlackWebhookURL)
	assert.False(t, cfg.Redis.Enabled)

	p := cfg.Profiles[0]
	assert.Equal(t, 0.2, p.Risk.MaxPositionSize)
	assert.Equal(t, 500.0, p.Risk.RiskLimit)
	assert.Equal(t, []string{"BTC", "ETH"}, p.Symbols)
	assert.Equal(t, domain.ModeLive, p.Mode())
}

func TestLoad_PrefixedNameWins(t *testing.T) {
	t.Setenv("API_KEY", "legacy")
	t.Setenv("API_KEY_BTC_JPY", "pair")
	t.Setenv("ORDERBOT_EXCHANGE_API_KEY", "prefixed")
	t.Setenv("REDIS_URL", "redis://cache:6379/0")
	unsetEnv(t, "ORDERBOT_REDIS_URL")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "prefixed", cfg.Exchange.APIKey)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "redis://cache:6379/0", cfg.Redis.URL)
}

func TestLoad_EnvFileLayering(t *testing.T) {
	unsetEnv(t, "ENVIRONMENT", "ORDERBOT_ENVIRONMENT", "ORDERBOT_NOTIFY_TELEGRAM_CHAT_ID",
		"ORDERBOT_NOTIFY_TELEGRAM_TOKEN", "ORDERBOT_S3_BUCKET", "ORDERBOT_SERVER_PORT")
	t.Setenv("ORDERBOT_SERVER_PORT", "9100")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	writeFile(t, path, `log_level = "info"`)
	writeFile(t, filepath.Join(dir, ".env"), "ORDERBOT_NOTIFY_TELEGRAM_CHAT_ID=base\nORDERBOT_S3_BUCKET=base-bucket\nORDERBOT_SERVER_PORT=1\n")
	writeFile(t, filepath.Join(dir, "config", "development.env"), "ORDERBOT_S3_BUCKET=dev-bucket\n")
	writeFile(t, filepath.Join(dir, ".env.local"), "ORDERBOT_NOTIFY_TELEGRAM_CHAT_ID=local\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "local", cfg.Notify.TelegramChatID)
	assert.Equal(t, "dev-bucket", cfg.S3.Bucket)
	assert.Equal(t, 9100, cfg.Server.Port, "process environment wins over env files")
}

func TestValidate_CollectsErrors(t *testing.T) {
	cfg := Defaults()
	cfg.Environment = "moon"
	cfg.LogLevel = "chatty"
	cfg.Exchange.SubmitAttempts = 0
	cfg.Persistence.Driver = "sqlite"
	cfg.Metrics.Driver = "statsd"
	cfg.Profiles = []ProfileConfig{DefaultProfile(), DefaultProfile()}
	cfg.Profiles[1].Symbols = nil
	cfg.Profiles[1].Risk.RiskLimit = -1

	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
	for _, want := range []string{
		"unknown environment",
		"unknown log_level",
		"submit_attempts",
		"duplicate name",
		"symbols must not be empty",
		"risk.risk_limit",
		"unknown driver \"sqlite\"",
		"unknown driver \"statsd\"",
	} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestValidate_Sections(t *testing.T) {
	tests := []struct {
		desc   string
		mutate func(*Config)
		want   string
	}{
		{"encrypted key without password", func(c *Config) { c.Wallet.EncryptedKeyPath = "/k.json" }, "key_password"},
		{"postgres without host", func(c *Config) {
			c.Persistence.Driver = "postgres"
			c.Postgres.Host = ""
		}, "postgres: host"},
		{"redis without address", func(c *Config) {
			c.Redis.Enabled = true
			c.Redis.Addr = ""
		}, "redis: addr or url"},
		{"s3 without bucket", func(c *Config) {
			c.S3.Enabled = true
			c.S3.Bucket = ""
		}, "s3: bucket"},
		{"server port", func(c *Config) { c.Server.Port = 70000 }, "server: port"},
		{"profiling without server", func(c *Config) {
			c.Profiling.Enabled = true
			c.Profiling.ServerAddress = " "
		}, "profiling: server_address"},
	}
	for _, tc := range tests {
		t.Run(tc.desc, func(t *testing.T) {
			cfg := Defaults()
			cfg.fillProfileDefaults()
			tc.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestRedactedConfig(t *testing.T) {
	cfg := Defaults()
	cfg.fillProfileDefaults()
	cfg.Exchange.APIKey = "key"
	cfg.Exchange.APISecret = "secret"
	cfg.Wallet.PrivateKey = "0xdeadbeef"
	cfg.Postgres.Password = "pw"
	cfg.Redis.URL = "redis://:pw@host"
	cfg.Notify.SlackWebhookURL = "https://hooks"
	cfg.Server.APIKey = "ops"

	out := RedactedConfig(&cfg)
	assert.Equal(t, "***", out.Exchange.APIKey)
	assert.Equal(t, "***", out.Exchange.APISecret)
	assert.Equal(t, "***", out.Wallet.PrivateKey)
	assert.Equal(t, "***", out.Postgres.Password)
	assert.Equal(t, "***", out.Redis.URL)
	assert.Equal(t, "***", out.Notify.SlackWebhookURL)
	assert.Equal(t, "***", out.Server.APIKey)
	assert.Empty(t, out.Notify.DiscordWebhookURL, "empty values stay empty")

	out.Profiles[0].Symbols[0] = "DOGE"
	assert.Equal(t, "BTC", cfg.Profiles[0].Symbols[0])
	assert.Equal(t, "key", cfg.Exchange.APIKey)
}
