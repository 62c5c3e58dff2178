package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/alanyoungcy/orderbot/internal/blob/s3"
	"github.com/alanyoungcy/orderbot/internal/cache/redis"
	"github.com/alanyoungcy/orderbot/internal/config"
	"github.com/alanyoungcy/orderbot/internal/crypto"
	"github.com/alanyoungcy/orderbot/internal/domain"
	"github.com/alanyoungcy/orderbot/internal/metrics"
	"github.com/alanyoungcy/orderbot/internal/notify"
	"github.com/alanyoungcy/orderbot/internal/platform/exchange"
	"github.com/alanyoungcy/orderbot/internal/store/memory"
	"github.com/alanyoungcy/orderbot/internal/store/postgres"
)

// Dependencies bundles the process-wide collaborators shared by every bot
// loop. Optional parts are nil when their backend is disabled.
type Dependencies struct {
	Store  domain.Persistence
	Orders domain.OrderLister

	// Redis
	Leases    domain.LeaseManager
	Positions domain.PositionCache
	Bus       *redis.EventBus

	Archiver domain.RunArchiver

	Signer   domain.Signer
	Exchange domain.ExchangeClient
	Nonces   *crypto.NonceSource

	Notifier *notify.Notifier
	Registry *metrics.Registry
}

// Wire constructs the concrete dependencies from cfg and returns them with a
// cleanup function that releases them in reverse order. Persistence is
// created unconnected; each loop connects it on start.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (*Dependencies, func(), error) {
		cleanup()
		return nil, nil, err
	}

	deps := &Dependencies{Nonces: crypto.NewNonceSource()}

	// --- Persistence ---
	switch cfg.Persistence.Driver {
	case "postgres":
		store := postgres.NewOrderStore(postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		}, cfg.Postgres.RunMigrations, logger)
		deps.Store, deps.Orders = store, store
	default:
		store := memory.NewOrderStore(0, logger)
		deps.Store, deps.Orders = store, store
	}

	// --- Redis ---
	if cfg.Redis.Enabled {
		client, err := redis.New(ctx, redis.ClientConfig{
			URL:        cfg.Redis.URL,
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			return fail(fmt.Errorf("wire: redis: %w", err))
		}
		closers = append(closers, func() { _ = client.Close() })

		deps.Leases = redis.NewLeaseManager(client)
		deps.Positions = redis.NewPositionCache(client, cfg.Redis.PositionTTLDuration())
		deps.Bus = redis.NewEventBus(client)
	}

	// --- S3 run archive ---
	if cfg.S3.Enabled {
		client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			return fail(fmt.Errorf("wire: s3: %w", err))
		}
		if err := client.Health(ctx); err != nil {
			logger.WarnContext(ctx, "wire: s3 bucket not reachable, archives may fail",
				slog.String("bucket", cfg.S3.Bucket),
				slog.String("error", err.Error()),
			)
		}
		deps.Archiver = s3blob.NewRunArchiver(s3blob.NewWriter(client), deps.Orders, cfg.S3.Prefix, logger)
	}

	// --- Exchange and signing ---
	client, err := exchange.NewClient(exchange.Config{
		MainnetURL: cfg.Exchange.MainnetURL,
		TestnetURL: cfg.Exchange.TestnetURL,
		IsMainnet:  cfg.Exchange.IsMainnet,
		APIKey:     cfg.Exchange.APIKey,
		APISecret:  cfg.Exchange.APISecret,
		Timeout:    cfg.Exchange.TimeoutDuration(),
	})
	if err != nil {
		return fail(fmt.Errorf("wire: exchange: %w", err))
	}
	deps.Exchange = client

	if cfg.Wallet.HasKey() {
		key, err := crypto.LoadKey(crypto.KeySource{
			RawPrivateKey:    cfg.Wallet.PrivateKey,
			EncryptedKeyPath: cfg.Wallet.EncryptedKeyPath,
			KeyPassword:      cfg.Wallet.KeyPassword,
		})
		if err != nil {
			return fail(fmt.Errorf("wire: wallet: %w", err))
		}
		signer, err := crypto.NewSigner(key, crypto.DefaultChainID)
		if err != nil {
			return fail(fmt.Errorf("wire: signer: %w", err))
		}
		logger.InfoContext(ctx, "signer ready", slog.String("address", signer.Address().Hex()))
		deps.Signer = signer
	}

	// --- Notifications ---
	timeout := cfg.Notify.TimeoutDuration()
	var senders []notify.Sender
	if cfg.Notify.SlackWebhookURL != "" {
		senders = append(senders, notify.NewSlackSender(cfg.Notify.SlackWebhookURL, timeout))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL, timeout))
	}
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID, timeout))
	}
	deps.Notifier = notify.NewNotifier(senders, timeout, logger)

	if cfg.Metrics.Driver == "prometheus" {
		deps.Registry = metrics.NewRegistry()
	}

	return deps, cleanup, nil
}

// sinkFor returns the metrics sink of one bot for the configured driver.
func (d *Dependencies) sinkFor(driver, bot string, logger *slog.Logger) domain.MetricsSink {
	switch driver {
	case "prometheus":
		return d.Registry.Sink(bot)
	case "memory":
		return metrics.NewCollector(bot, logger)
	default:
		return metrics.Nop{}
	}
}
