package app

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/orderbot/internal/bot"
	"github.com/alanyoungcy/orderbot/internal/domain"
	"github.com/alanyoungcy/orderbot/internal/health"
	"github.com/alanyoungcy/orderbot/internal/ledger"
	"github.com/alanyoungcy/orderbot/internal/server"
	"github.com/alanyoungcy/orderbot/internal/server/handler"
	"github.com/alanyoungcy/orderbot/internal/server/ws"
	"github.com/alanyoungcy/orderbot/internal/service"
	"github.com/alanyoungcy/orderbot/internal/strategy"
)

// botUnit is one profile's loop and its heartbeat monitor. It is also the
// ops API's view of the bot.
type botUnit struct {
	*bot.Loop
	*health.Monitor
	pipeline *service.OrderPipeline
}

var _ handler.BotView = botUnit{}

// Stale reports a stale heartbeat only while the loop is meant to be beating.
func (u botUnit) Stale() bool {
	return u.Loop.State() == bot.StateRunning && u.Monitor.Stale()
}

// buildBots creates a loop per profile, each with its own ledger, run state
// and metrics sink.
func (a *App) buildBots(deps *Dependencies) ([]botUnit, error) {
	registry := strategy.DefaultRegistry()
	units := make([]botUnit, 0, len(a.cfg.Profiles))

	for _, pc := range a.cfg.Profiles {
		logger := a.logger.With(slog.String("bot", pc.Name))
		policy, err := registry.New(strategy.Config{Name: pc.Strategy, Symbols: pc.Symbols, Params: pc.Params})
		if err != nil {
			return nil, err
		}

		var (
			book     = ledger.New()
			state    = &domain.RunState{}
			sink     = deps.sinkFor(a.cfg.Metrics.Driver, pc.Name, logger)
			notifier = deps.Notifier.WithPrefix(pc.Name)
			limits   = a.cfg.Limits(pc)
		)
		pipeline := service.NewOrderPipeline(service.PipelineConfig{
			Bot:            pc.Name,
			Limits:         limits,
			IsMainnet:      a.cfg.Exchange.IsMainnet,
			SubmitAttempts: a.cfg.Exchange.SubmitAttempts,
			RetryDelay:     a.cfg.Exchange.RetryDelayDuration(),
			SimulatedDelay: pc.SimulatedDelayDuration(),
		}, book, state, deps.Signer, deps.Exchange, deps.Store, notifier, sink, deps.Nonces, logger)
		monitor := health.NewMonitor(pc.Name, a.cfg.Health.StaleThresholdDuration(), notifier, sink, logger)

		loop := bot.NewLoop(bot.Profile{
			Name:          pc.Name,
			Environment:   limits.Environment,
			Mode:          pc.Mode(),
			IsMainnet:     a.cfg.Exchange.IsMainnet,
			Limits:        limits,
			Symbols:       pc.Symbols,
			Policy:        policy,
			Interval:      pc.IntervalDuration(),
			Cooldown:      pc.CooldownDuration(),
			LeaseTTL:      a.cfg.Redis.LeaseTTLDuration(),
			HasPrivateKey: deps.Signer != nil,
			HasAPIKey:     a.cfg.Exchange.APIKey != "",
		}, bot.Deps{
			Pipeline:  pipeline,
			Positions: service.NewPositionService(pc.Name, book, state, deps.Positions, sink, logger),
			Health:    monitor,
			State:     state,
			Store:     deps.Store,
			Notifier:  notifier,
			Metrics:   sink,
			Leases:    deps.Leases,
			Archiver:  deps.Archiver,
		}, logger)

		units = append(units, botUnit{Loop: loop, Monitor: monitor, pipeline: pipeline})
	}
	return units, nil
}

// run drives the loops, their watchdogs, the event hub and the ops server.
// The auxiliary goroutines stop once every loop has returned.
func (a *App) run(ctx context.Context, deps *Dependencies, bots []botUnit) error {
	startedAt := time.Now().UTC()
	g, gctx := errgroup.WithContext(ctx)
	auxCtx, stopAux := context.WithCancel(gctx)
	defer stopAux()

	var events domain.EventPublisher
	var hub *ws.Hub
	if deps.Bus != nil {
		events = deps.Bus
	}
	if a.cfg.Server.Enabled {
		if deps.Bus != nil {
			hub = ws.NewHub(deps.Bus, deps.Bus, a.logger)
		} else {
			hub = ws.NewHub(nil, nil, a.logger)
			events = hub
		}
		g.Go(func() error { return hub.Run(auxCtx) })
	}

	views := make([]handler.BotView, 0, len(bots))
	var loops sync.WaitGroup
	for _, b := range bots {
		if events != nil {
			b.pipeline.WithEvents(events)
		}
		views = append(views, b)

		watchCtx, stopWatch := context.WithCancel(auxCtx)
		loops.Add(1)
		g.Go(func() error {
			defer loops.Done()
			defer stopWatch()
			return b.Loop.Run(gctx)
		})
		g.Go(func() error { return b.Monitor.Watch(watchCtx, a.cfg.Health.CheckIntervalDuration()) })
	}

	if a.cfg.Server.Enabled {
		var metricsHandler http.Handler
		if deps.Registry != nil {
			metricsHandler = deps.Registry.Handler()
		}
		srv := server.NewServer(server.Config{
			Port:   a.cfg.Server.Port,
			APIKey: a.cfg.Server.APIKey,
		}, server.Deps{
			Bots: handler.NewBots(views...),
			Info: handler.Info{
				Environment: a.cfg.Env(),
				Mainnet:     a.cfg.Exchange.IsMainnet,
				StartedAt:   startedAt,
			},
			Orders:  deps.Orders,
			Metrics: metricsHandler,
			Hub:     hub,
		}, a.logger)
		g.Go(func() error { return srv.Run(auxCtx) })
	}

	g.Go(func() error {
		loops.Wait()
		a.logger.Info("all bots stopped")
		stopAux()
		return nil
	})
	return g.Wait()
}
