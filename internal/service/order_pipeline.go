// Package service holds the order pipeline and position refresh logic that
// the control loop drives.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/orderbot/internal/domain"
	"github.com/alanyoungcy/orderbot/internal/ledger"
	"github.com/alanyoungcy/orderbot/internal/risk"
)

// NonceSource issues strictly increasing nonces.
type NonceSource interface {
	Next() uint64
}

// PipelineConfig holds the per-bot settings of an OrderPipeline.
type PipelineConfig struct {
	Bot       string
	Limits    domain.RiskLimits
	IsMainnet bool
	// SubmitAttempts is the total number of submissions tried for one
	// intent when the exchange fails at the transport level.
	SubmitAttempts int
	RetryDelay     time.Duration
	SimulatedDelay time.Duration
}

// OrderPipeline turns a trade intent into an OrderOutcome: risk check,
// signing, submission with one transport retry, ledger update and
// persistence. It never returns an error or panics to its caller.
type OrderPipeline struct {
	cfg      PipelineConfig
	gate     risk.Gate
	ledger   *ledger.Ledger
	state    *domain.RunState
	signer   domain.Signer
	exchange domain.ExchangeClient
	store    domain.Persistence
	notifier domain.Notifier
	metrics  domain.MetricsSink
	events   domain.EventPublisher
	nonces   NonceSource
	logger   *slog.Logger
	sleep    func(ctx context.Context, d time.Duration)
}

// NewOrderPipeline creates an OrderPipeline. signer may be nil when no
// private key is configured; live submissions then fail with
// ErrMissingCredential.
func NewOrderPipeline(
	cfg PipelineConfig,
	book *ledger.Ledger,
	state *domain.RunState,
	signer domain.Signer,
	exchange domain.ExchangeClient,
	store domain.Persistence,
	notifier domain.Notifier,
	metrics domain.MetricsSink,
	nonces NonceSource,
	logger *slog.Logger,
) *OrderPipeline {
	if cfg.SubmitAttempts < 1 {
		cfg.SubmitAttempts = 2
	}
	return &OrderPipeline{
		cfg:      cfg,
		gate:     risk.NewGate(),
		ledger:   book,
		state:    state,
		signer:   signer,
		exchange: exchange,
		store:    store,
		notifier: notifier,
		metrics:  metrics,
		nonces:   nonces,
		logger:   logger.With(slog.String("component", "order_pipeline"), slog.String("bot", cfg.Bot)),
		sleep:    sleepCtx,
	}
}

// WithEvents attaches a publisher for order lifecycle events.
func (p *OrderPipeline) WithEvents(pub domain.EventPublisher) *OrderPipeline {
	p.events = pub
	return p
}

// Submit processes one intent in the given mode.
func (p *OrderPipeline) Submit(ctx context.Context, intent domain.TradeIntent, mode domain.Mode) (out domain.OrderOutcome) {
	defer func() {
		if r := recover(); r != nil {
			out = p.fail(ctx, intent, fmt.Errorf("%w: panic: %v", domain.ErrUnknown, r))
		}
	}()

	if mode == domain.ModePaper {
		return p.simulate(ctx, intent)
	}

	pos := p.ledger.Position(intent.Instrument)
	decision := p.gate.Check(intent, pos, p.cfg.Limits, int(p.state.ConsecutiveErrors()))
	if !decision.Allowed {
		return p.reject(ctx, intent, decision)
	}

	out = p.execute(ctx, intent)
	if out.Kind == domain.OutcomeFailed {
		attempts := out.Attempts
		out = p.fail(ctx, intent, out.Err)
		out.Attempts = attempts
	}
	return out
}

func (p *OrderPipeline) simulate(ctx context.Context, intent domain.TradeIntent) domain.OrderOutcome {
	p.logger.InfoContext(ctx, "paper trading: simulating order",
		slog.String("intent_id", intent.ID),
		slog.String("instrument", intent.Instrument),
		slog.String("side", string(intent.Side)),
		slog.String("quantity", intent.Quantity.String()),
		slog.String("price", intent.LimitPrice.String()),
	)
	p.sleep(ctx, p.cfg.SimulatedDelay)

	net := p.ledger.Apply(intent.Instrument, intent.SignedDelta())
	rec := p.record(intent, domain.OrderStatusSimulated, true)
	p.persist(ctx, rec)

	p.state.RecordOrder()
	p.metrics.IncCounter("orders_simulated")
	p.publish(ctx, "order.simulated", rec)

	p.logger.InfoContext(ctx, "paper trading: simulated fill",
		slog.String("intent_id", intent.ID),
		slog.String("net_quantity", net.String()),
	)
	return domain.SimulatedFilled()
}

func (p *OrderPipeline) reject(ctx context.Context, intent domain.TradeIntent, d risk.Decision) domain.OrderOutcome {
	p.metrics.IncCounter("orders_rejected")
	p.metrics.IncCounter("orders_rejected_" + string(d.Reason))
	p.logger.WarnContext(ctx, "risk check failed, order rejected",
		slog.String("intent_id", intent.ID),
		slog.String("instrument", intent.Instrument),
		slog.String("reason", string(d.Reason)),
		slog.String("next_position", d.NextPos.String()),
		slog.String("notional", d.Notional.String()),
		slog.Int64("consecutive_errors", p.state.ConsecutiveErrors()),
	)

	evt, _ := json.Marshal(map[string]any{
		"event":      "order.rejected",
		"bot":        p.cfg.Bot,
		"intent_id":  intent.ID,
		"instrument": intent.Instrument,
		"reason":     d.Reason,
	})
	p.publishRaw(ctx, evt)
	return domain.Rejected(d.Reason)
}

// execute signs and submits. Every failure it returns wraps one of
// ErrMissingCredential, ErrSigning or ErrSubmission.
func (p *OrderPipeline) execute(ctx context.Context, intent domain.TradeIntent) domain.OrderOutcome {
	if p.signer == nil {
		return domain.Failed(fmt.Errorf("%w: no private key configured", domain.ErrMissingCredential))
	}

	action := domain.NewOrderAction(intent)

	var lastErr error
	for attempt := 1; attempt <= p.cfg.SubmitAttempts; attempt++ {
		nonce := p.nonces.Next()
		signed, err := p.signer.SignAction(action, nonce, p.cfg.IsMainnet)
		if err != nil {
			out := domain.Failed(fmt.Errorf("%w: %w", domain.ErrSigning, err))
			out.Attempts = attempt - 1
			return out
		}

		resp, err := p.exchange.SubmitOrder(ctx, signed)
		if err == nil {
			if !resp.OK() {
				out := domain.Failed(fmt.Errorf("%w: exchange returned status %q: %s", domain.ErrSubmission, resp.Status, resp.Body))
				out.Attempts = attempt
				return out
			}
			return p.accept(ctx, intent, signed, resp, attempt)
		}

		lastErr = err
		if !errors.Is(err, domain.ErrTransport) {
			out := domain.Failed(fmt.Errorf("%w: %w", domain.ErrSubmission, err))
			out.Attempts = attempt
			return out
		}

		p.metrics.IncCounter("submission_retries")
		p.logger.WarnContext(ctx, "order submission transport failure",
			slog.String("intent_id", intent.ID),
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", p.cfg.SubmitAttempts),
			slog.Uint64("nonce", nonce),
			slog.String("error", err.Error()),
		)
		if attempt < p.cfg.SubmitAttempts {
			p.sleep(ctx, p.cfg.RetryDelay)
		}
	}

	out := domain.Failed(fmt.Errorf("%w: %d attempts exhausted: %w", domain.ErrSubmission, p.cfg.SubmitAttempts, lastErr))
	out.Attempts = p.cfg.SubmitAttempts
	return out
}

func (p *OrderPipeline) accept(ctx context.Context, intent domain.TradeIntent, signed domain.SignedAction, resp domain.ExchangeResponse, attempt int) domain.OrderOutcome {
	net := p.ledger.Apply(intent.Instrument, intent.SignedDelta())

	rec := p.record(intent, domain.OrderStatusSubmitted, false)
	rec.Signature = signed.Hex
	rec.Nonce = signed.Nonce
	rec.ExchangeResponse = resp.Body
	p.persist(ctx, rec)

	orders := p.state.RecordOrder()
	p.metrics.IncCounter("orders_created")
	p.publish(ctx, "order.submitted", rec)

	p.logger.InfoContext(ctx, "order submitted",
		slog.String("order_id", rec.ID),
		slog.String("instrument", intent.Instrument),
		slog.String("side", string(intent.Side)),
		slog.String("quantity", intent.Quantity.String()),
		slog.String("price", intent.LimitPrice.String()),
		slog.Uint64("nonce", signed.Nonce),
		slog.Int("attempts", attempt),
		slog.String("net_quantity", net.String()),
		slog.Int64("order_count", orders),
	)

	out := domain.Submitted(signed.Hex, resp)
	out.Attempts = attempt
	return out
}

// fail counts the failure, alerts and converts err to a Failed outcome.
func (p *OrderPipeline) fail(ctx context.Context, intent domain.TradeIntent, err error) domain.OrderOutcome {
	errs := p.state.RecordError()
	p.metrics.IncCounter("orders_failed")
	p.logger.ErrorContext(ctx, "order failed",
		slog.String("intent_id", intent.ID),
		slog.String("instrument", intent.Instrument),
		slog.String("error", err.Error()),
		slog.Int64("error_count", errs),
	)
	p.notifier.SendAlert(ctx, fmt.Sprintf("order failed: %s %s %s @ %s: %v",
		intent.Side, intent.Quantity, intent.Instrument, intent.LimitPrice, err))
	return domain.Failed(err)
}

// persist logs the record; a failure never undoes the order.
func (p *OrderPipeline) persist(ctx context.Context, rec domain.OrderRecord) {
	if err := p.store.LogOrder(ctx, rec); err != nil {
		p.metrics.IncCounter("persistence_errors")
		p.logger.WarnContext(ctx, "order_pipeline: persist order failed",
			slog.String("order_id", rec.ID),
			slog.String("error", fmt.Errorf("%w: %w", domain.ErrPersistence, err).Error()),
		)
	}
}

func (p *OrderPipeline) record(intent domain.TradeIntent, status domain.OrderStatus, paper bool) domain.OrderRecord {
	return domain.OrderRecord{
		ID:          uuid.NewString(),
		Bot:         p.cfg.Bot,
		IntentID:    intent.ID,
		Instrument:  intent.Instrument,
		Side:        intent.Side,
		Quantity:    intent.Quantity,
		Price:       intent.LimitPrice,
		Status:      status,
		Environment: p.cfg.Limits.Environment,
		Paper:       paper,
		CreatedAt:   time.Now().UTC(),
	}
}

func (p *OrderPipeline) publish(ctx context.Context, event string, rec domain.OrderRecord) {
	if p.events == nil {
		return
	}
	evt, err := json.Marshal(map[string]any{
		"event": event,
		"bot":   p.cfg.Bot,
		"order": rec,
	})
	if err != nil {
		return
	}
	p.publishRaw(ctx, evt)
}

func (p *OrderPipeline) publishRaw(ctx context.Context, evt []byte) {
	if p.events == nil {
		return
	}
	if err := p.events.Publish(ctx, domain.ChannelOrders, evt); err != nil {
		p.logger.WarnContext(ctx, "order_pipeline: publish event failed",
			slog.String("error", err.Error()),
		)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
