package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/orderbot/internal/domain"
)

// OrderStore implements domain.Persistence and domain.OrderLister. The pool
// is opened on the first Connect and closed when the last holder calls
// Close, so several bot loops can share one store.
type OrderStore struct {
	cfg        ClientConfig
	migrations bool
	logger     *slog.Logger

	mu     sync.Mutex
	refs   int
	client *Client
}

// NewOrderStore creates an unconnected store. When runMigrations is set the
// embedded migrations run on first connect.
func NewOrderStore(cfg ClientConfig, runMigrations bool, logger *slog.Logger) *OrderStore {
	return &OrderStore{
		cfg:        cfg,
		migrations: runMigrations,
		logger:     logger.With(slog.String("component", "postgres")),
	}
}

// Connect opens the pool if this is the first holder.
func (s *OrderStore) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.refs > 0 {
		s.refs++
		return nil
	}

	client, err := New(ctx, s.cfg)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}
	if s.migrations {
		n, err := client.RunMigrations(ctx)
		if err != nil {
			client.Close()
			return fmt.Errorf("%w: %w", domain.ErrPersistence, err)
		}
		s.logger.Info("migrations applied", slog.Int("count", n))
	}
	s.client = client
	s.refs = 1
	return nil
}

// Close releases one holder and closes the pool after the last. Closing an
// unconnected store is a no-op.
func (s *OrderStore) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.refs == 0 {
		return
	}
	s.refs--
	if s.refs == 0 {
		s.client.Close()
		s.client = nil
	}
}

func (s *OrderStore) conn() (*Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client == nil {
		return nil, fmt.Errorf("%w: postgres store not connected", domain.ErrPersistence)
	}
	return s.client, nil
}

// LogOrder inserts rec into the orders table.
func (s *OrderStore) LogOrder(ctx context.Context, rec domain.OrderRecord) error {
	c, err := s.conn()
	if err != nil {
		return err
	}

	var resp []byte
	if len(rec.ExchangeResponse) > 0 {
		resp = rec.ExchangeResponse
	}

	const query = `
		INSERT INTO orders (
			id, bot, intent_id, instrument, side, quantity, price,
			signature, nonce, status, exchange_response, environment,
			paper, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6::numeric, $7::numeric,
			$8, $9, $10, $11, $12,
			$13, $14
		)`

	_, err = c.pool.Exec(ctx, query,
		rec.ID, rec.Bot, rec.IntentID, rec.Instrument, string(rec.Side),
		rec.Quantity.String(), rec.Price.String(),
		rec.Signature, int64(rec.Nonce), string(rec.Status), resp,
		string(rec.Environment), rec.Paper, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("%w: postgres: insert order %s: %w", domain.ErrPersistence, rec.ID, err)
	}
	return nil
}

const selectOrders = `
	SELECT id, bot, intent_id, instrument, side, quantity::text, price::text,
		signature, nonce, status, exchange_response, environment, paper, created_at
	FROM orders`

// ListRecent returns the newest orders first, across all bots.
func (s *OrderStore) ListRecent(ctx context.Context, limit int) ([]domain.OrderRecord, error) {
	c, err := s.conn()
	if err != nil {
		return nil, err
	}
	rows, err := c.pool.Query(ctx, selectOrders+` ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list recent orders: %w", err)
	}
	return collectOrders(rows)
}

// ListSince returns a bot's orders created at or after since, oldest first.
func (s *OrderStore) ListSince(ctx context.Context, bot string, since time.Time) ([]domain.OrderRecord, error) {
	c, err := s.conn()
	if err != nil {
		return nil, err
	}
	rows, err := c.pool.Query(ctx, selectOrders+` WHERE bot = $1 AND created_at >= $2 ORDER BY created_at`, bot, since)
	if err != nil {
		return nil, fmt.Errorf("postgres: list orders for %s: %w", bot, err)
	}
	return collectOrders(rows)
}

func collectOrders(rows pgx.Rows) ([]domain.OrderRecord, error) {
	defer rows.Close()
	var out []domain.OrderRecord
	for rows.Next() {
		rec, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate orders: %w", err)
	}
	return out, nil
}

func scanOrder(row pgx.Row) (domain.OrderRecord, error) {
	var (
		rec      domain.OrderRecord
		side     string
		qty, px  string
		nonce    int64
		status   string
		env      string
		response []byte
	)
	if err := row.Scan(
		&rec.ID, &rec.Bot, &rec.IntentID, &rec.Instrument, &side, &qty, &px,
		&rec.Signature, &nonce, &status, &response, &env, &rec.Paper, &rec.CreatedAt,
	); err != nil {
		return rec, fmt.Errorf("postgres: scan order: %w", err)
	}
	var err error
	if rec.Quantity, err = decimal.NewFromString(qty); err != nil {
		return rec, fmt.Errorf("postgres: order %s quantity: %w", rec.ID, err)
	}
	if rec.Price, err = decimal.NewFromString(px); err != nil {
		return rec, fmt.Errorf("postgres: order %s price: %w", rec.ID, err)
	}
	rec.Side = domain.OrderSide(side)
	rec.Nonce = uint64(nonce)
	rec.Status = domain.OrderStatus(status)
	rec.Environment = domain.Environment(env)
	rec.ExchangeResponse = response
	return rec, nil
}
