// Package bot runs one trading profile: a timed loop that refreshes
// positions, asks the policy for intents and pushes each one through the
// order pipeline, followed by a one-shot drain on shutdown.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/orderbot/internal/domain"
	"github.com/alanyoungcy/orderbot/internal/strategy"
)

// Submitter runs one intent through risk, signing and submission.
type Submitter interface {
	Submit(ctx context.Context, intent domain.TradeIntent, mode domain.Mode) domain.OrderOutcome
}

// PositionRefresher recomputes the position snapshot for an iteration.
type PositionRefresher interface {
	Refresh(ctx context.Context) []domain.Position
}

// Heartbeat records loop liveness.
type Heartbeat interface {
	Beat(ctx context.Context)
}

// Deps are the collaborators a Loop drives. Leases and Archiver are
// optional.
type Deps struct {
	Pipeline  Submitter
	Positions PositionRefresher
	Health    Heartbeat
	State     *domain.RunState
	Store     domain.Persistence
	Notifier  domain.Notifier
	Metrics   domain.MetricsSink
	Leases    domain.LeaseManager
	Archiver  domain.RunArchiver
}

// Status is the ops view of a loop.
type Status struct {
	Name        string                  `json:"name"`
	State       State                   `json:"state"`
	Environment domain.Environment      `json:"environment"`
	Mode        domain.Mode             `json:"mode"`
	Mainnet     bool                    `json:"mainnet"`
	Policy      string                  `json:"policy"`
	RunID       string                  `json:"run_id"`
	StartedAt   time.Time               `json:"started_at"`
	Run         domain.RunStateSnapshot `json:"run"`
}

// drainTimeout bounds the whole shutdown sequence.
const drainTimeout = 15 * time.Second

// errStoppedDuringStart reports a Stop that arrived while Start was still
// acquiring resources.
var errStoppedDuringStart = errors.New("stopped during start")

// Loop is the control loop of one bot profile. A Loop runs at most once.
type Loop struct {
	profile Profile
	deps    Deps
	logger  *slog.Logger
	now     func() time.Time

	mu        sync.Mutex
	state     State
	runID     string
	startedAt time.Time
	lease     domain.Lease
	leasedAt  time.Time
	connected bool
	positions []domain.Position

	stopCh    chan struct{}
	stopOnce  sync.Once
	drainOnce sync.Once
}

// NewLoop creates a loop in the Created state.
func NewLoop(profile Profile, deps Deps, logger *slog.Logger) *Loop {
	profile = profile.withDefaults()
	if deps.State == nil {
		deps.State = &domain.RunState{}
	}
	return &Loop{
		profile: profile,
		deps:    deps,
		logger:  logger.With(slog.String("component", "loop"), slog.String("bot", profile.Name)),
		now:     func() time.Time { return time.Now().UTC() },
		state:   StateCreated,
		runID:   uuid.NewString(),
		stopCh:  make(chan struct{}),
	}
}

// Name returns the profile name.
func (l *Loop) Name() string { return l.profile.Name }

// State returns the current lifecycle stage.
func (l *Loop) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Status returns a snapshot for the ops API.
func (l *Loop) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Status{
		Name:        l.profile.Name,
		State:       l.state,
		Environment: l.profile.Environment,
		Mode:        l.profile.Mode,
		Mainnet:     l.profile.IsMainnet,
		Policy:      l.profile.Policy.Name(),
		RunID:       l.runID,
		StartedAt:   l.startedAt,
		Run:         l.deps.State.Snapshot(),
	}
}

// Positions returns the snapshot taken by the latest iteration.
func (l *Loop) Positions() []domain.Position {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]domain.Position(nil), l.positions...)
}

// transitionLocked moves to the next state. The caller holds l.mu.
func (l *Loop) transitionLocked(to State) error {
	if !canTransition(l.state, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, l.state, to)
	}
	l.logger.Debug("state transition", slog.String("from", l.state.String()), slog.String("to", to.String()))
	l.state = to
	return nil
}

// Start acquires the optional single-instance lease, connects persistence
// and announces the bot. A failed start leaves the loop Stopped with its
// resources released. A Stop that lands during Start is not an error.
func (l *Loop) Start(ctx context.Context) error {
	if l.State() != StateCreated {
		return ErrNotRestartable
	}
	if err := l.start(ctx); err != nil {
		if errors.Is(err, errStoppedDuringStart) {
			l.logger.Info("stop requested during startup")
			l.drain(ctx)
			return nil
		}
		l.logger.Error("startup failed", slog.String("error", err.Error()))
		l.deps.Notifier.SendAlert(ctx, fmt.Sprintf("Bot %s failed to start: %v", l.profile.Name, err))
		l.drain(ctx)
		return err
	}
	return nil
}

func (l *Loop) start(ctx context.Context) error {
	if l.deps.Leases != nil {
		lease, err := l.deps.Leases.Acquire(ctx, "bot:"+l.profile.Name, l.profile.LeaseTTL)
		if err != nil {
			return fmt.Errorf("acquire lease: %w", err)
		}
		l.mu.Lock()
		l.lease, l.leasedAt = lease, l.now()
		l.mu.Unlock()
	}
	if l.State() == StateStopped {
		return errStoppedDuringStart
	}
	if err := l.deps.Store.Connect(ctx); err != nil {
		return fmt.Errorf("connect persistence: %w", err)
	}

	l.mu.Lock()
	l.connected = true
	if l.state == StateStopped {
		l.mu.Unlock()
		return errStoppedDuringStart
	}
	if err := l.transitionLocked(StateRunning); err != nil {
		l.mu.Unlock()
		return err
	}
	l.startedAt = l.now()
	l.deps.State.SetRunning(true)
	l.mu.Unlock()
	l.deps.Metrics.Gauge("bot_status", 1)

	l.logger.Info("bot started",
		slog.String("run_id", l.runID),
		slog.String("environment", string(l.profile.Environment)),
		slog.String("mode", string(l.profile.Mode)),
		slog.Bool("mainnet", l.profile.IsMainnet),
		slog.String("policy", l.profile.Policy.Name()),
		slog.Any("symbols", l.profile.Symbols),
	)
	l.deps.Notifier.SendNotification(ctx, "Bot Started", fmt.Sprintf(
		"Bot %s started in %s (%s, %s)", l.profile.Name, l.profile.Environment, l.profile.Mode, network(l.profile.IsMainnet)))

	for _, w := range initialChecks(l.profile) {
		l.logger.Warn("initial check", slog.String("warning", w))
	}
	if l.profile.HasAPIKey {
		l.logger.Info("API credentials configured")
	}
	return nil
}

// Run starts the loop and iterates until Stop is called or ctx is
// cancelled, then drains. Iterations run detached from ctx so a shutdown
// never interrupts an in-flight submission.
func (l *Loop) Run(ctx context.Context) error {
	if err := l.Start(ctx); err != nil {
		return err
	}

	watchDone := make(chan struct{})
	defer close(watchDone)
	go func() {
		select {
		case <-ctx.Done():
			l.Stop("context cancelled")
		case <-watchDone:
		}
	}()

	work := context.WithoutCancel(ctx)
	for l.deps.State.Running() {
		wait := l.profile.Interval
		if err := l.iterate(work); err != nil {
			l.iterationFailed(work, err)
			wait = l.profile.Cooldown
		}
		if !l.deps.State.Running() {
			break
		}
		l.pause(wait)
	}

	l.drain(work)
	return nil
}

// Stop requests shutdown. The current iteration is allowed to finish; the
// drain runs once the loop observes the flag.
func (l *Loop) Stop(reason string) {
	l.stopOnce.Do(func() {
		l.logger.Info("stop requested", slog.String("reason", reason))
		l.mu.Lock()
		l.deps.State.SetRunning(false)
		switch l.state {
		case StateRunning:
			l.state = StateDraining
		case StateCreated:
			l.state = StateStopped
		}
		l.mu.Unlock()
		close(l.stopCh)
	})
}

// Done is closed once Stop has been requested.
func (l *Loop) Done() <-chan struct{} { return l.stopCh }

func (l *Loop) iterate(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: iteration panic: %v", domain.ErrUnknown, r)
		}
	}()

	n := l.deps.State.NextLoop()
	if l.deps.Health != nil {
		l.deps.Health.Beat(ctx)
	}
	l.deps.State.SetHeartbeat(l.now())

	if err := l.refreshLease(ctx); err != nil {
		return err
	}

	positions := l.deps.Positions.Refresh(ctx)
	l.mu.Lock()
	l.positions = positions
	l.mu.Unlock()

	intents, err := l.profile.Policy.Evaluate(ctx, strategy.View{
		Bot:         l.profile.Name,
		Environment: l.profile.Environment,
		Symbols:     l.profile.Symbols,
		Positions:   positions,
		Loop:        n,
		Now:         l.now(),
	})
	if err != nil {
		return fmt.Errorf("policy %s: %w", l.profile.Policy.Name(), err)
	}

	for _, intent := range intents {
		out := l.deps.Pipeline.Submit(ctx, intent, l.profile.Mode)
		l.logger.Debug("intent processed",
			slog.String("intent_id", intent.ID),
			slog.String("outcome", out.String()),
		)
	}

	if l.profile.Environment == domain.EnvDevelopment && n%l.profile.StatsEvery == 0 {
		s := l.deps.State.Snapshot()
		l.logger.Info("loop stats",
			slog.Int64("loops", s.LoopCount),
			slog.Int64("orders", s.OrderCount),
			slog.Int64("errors", s.ErrorCount),
			slog.Int("positions", len(positions)),
		)
	}
	return nil
}

func (l *Loop) iterationFailed(ctx context.Context, err error) {
	l.deps.State.RecordError()
	l.deps.Metrics.IncCounter("loop_errors")
	l.logger.Error("iteration failed", slog.String("error", err.Error()))
	l.deps.Notifier.SendAlert(ctx, fmt.Sprintf("Bot %s loop error: %v", l.profile.Name, err))
}

// refreshLease extends the lease once a third of its TTL has elapsed. A
// lost lease stops the loop.
func (l *Loop) refreshLease(ctx context.Context) error {
	l.mu.Lock()
	lease, leasedAt := l.lease, l.leasedAt
	l.mu.Unlock()
	if lease == nil || l.now().Sub(leasedAt) < l.profile.LeaseTTL/3 {
		return nil
	}
	if err := lease.Refresh(ctx); err != nil {
		if errors.Is(err, domain.ErrLockHeld) {
			l.Stop("lease lost")
		}
		return fmt.Errorf("refresh lease: %w", err)
	}
	l.mu.Lock()
	l.leasedAt = l.now()
	l.mu.Unlock()
	return nil
}

func (l *Loop) pause(d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-l.stopCh:
	}
}

// drain runs the shutdown sequence exactly once. Each step is isolated so a
// failing step never skips the rest.
func (l *Loop) drain(ctx context.Context) {
	l.drainOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), drainTimeout)
		defer cancel()

		l.mu.Lock()
		l.deps.State.SetRunning(false)
		started := !l.startedAt.IsZero()
		connected := l.connected
		l.connected = false
		l.mu.Unlock()

		l.step("flush metrics", func() error { return l.flushMetrics(ctx) })
		if started {
			l.step("archive run", func() error { return l.archive(ctx) })
			l.step("shutdown notification", func() error {
				l.deps.Notifier.SendNotification(ctx, "Bot Stopped", fmt.Sprintf(
					"Bot %s stopped. Orders: %d, Errors: %d",
					l.profile.Name, l.deps.State.OrderCount(), l.deps.State.ErrorCount()))
				return nil
			})
		}
		if connected {
			l.step("close persistence", func() error {
				l.deps.Store.Close()
				return nil
			})
		}
		l.step("release lease", func() error { return l.releaseLease(ctx) })

		l.mu.Lock()
		l.state = StateStopped
		l.mu.Unlock()
		l.stopOnce.Do(func() { close(l.stopCh) })
		l.logger.Info("bot stopped",
			slog.Int64("orders", l.deps.State.OrderCount()),
			slog.Int64("errors", l.deps.State.ErrorCount()),
		)
	})
}

func (l *Loop) step(name string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("shutdown step panicked", slog.String("step", name), slog.Any("panic", r))
		}
	}()
	if err := fn(); err != nil {
		l.logger.Error("shutdown step failed", slog.String("step", name), slog.String("error", err.Error()))
	}
}

func (l *Loop) flushMetrics(ctx context.Context) error {
	positions := l.deps.Positions.Refresh(ctx)
	l.mu.Lock()
	l.positions = positions
	l.mu.Unlock()

	l.deps.Metrics.Gauge("bot_status", 0)
	l.deps.Metrics.Gauge("final_order_count", float64(l.deps.State.OrderCount()))
	l.deps.Metrics.Gauge("final_error_count", float64(l.deps.State.ErrorCount()))
	if f, ok := l.deps.Metrics.(domain.Flusher); ok {
		return f.Flush(ctx)
	}
	return nil
}

func (l *Loop) archive(ctx context.Context) error {
	if l.deps.Archiver == nil {
		return nil
	}
	l.mu.Lock()
	summary := domain.RunSummary{
		RunID:       l.runID,
		Bot:         l.profile.Name,
		Environment: l.profile.Environment,
		Mode:        l.profile.Mode,
		StartedAt:   l.startedAt,
		StoppedAt:   l.now(),
		Loops:       l.deps.State.LoopCount(),
		Orders:      l.deps.State.OrderCount(),
		Errors:      l.deps.State.ErrorCount(),
		Positions:   make(map[string]decimal.Decimal, len(l.positions)),
	}
	for _, p := range l.positions {
		summary.Positions[p.Instrument] = p.NetQuantity
	}
	l.mu.Unlock()
	return l.deps.Archiver.ArchiveRun(ctx, summary)
}

func (l *Loop) releaseLease(ctx context.Context) error {
	l.mu.Lock()
	lease := l.lease
	l.lease = nil
	l.mu.Unlock()
	if lease == nil {
		return nil
	}
	return lease.Release(ctx)
}

func network(mainnet bool) string {
	if mainnet {
		return "mainnet"
	}
	return "testnet"
}
