package app

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/orderbot/internal/bot"
	"github.com/alanyoungcy/orderbot/internal/config"
	"github.com/alanyoungcy/orderbot/internal/domain"
)

func testConfig() *config.Config {
	cfg := config.Defaults()
	btc := config.DefaultProfile()
	btc.Name = "btc"
	eth := config.DefaultProfile()
	eth.Name, eth.Symbols = "eth", []string{"ETH"}
	cfg.Profiles = []config.ProfileConfig{btc, eth}
	cfg.Server.Enabled = false
	cfg.Metrics.Driver = "memory"
	return &cfg
}

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestRun_ContextCancelStopsAllBots(t *testing.T) {
	a := New(testConfig(), discard())
	defer a.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	assert.NoError(t, a.Run(ctx))
}

func TestRun_ReturnsWhenEveryBotIsStopped(t *testing.T) {
	cfg := testConfig()
	a := New(cfg, discard())
	deps, cleanup, err := Wire(context.Background(), cfg, discard())
	require.NoError(t, err)
	defer cleanup()

	bots, err := a.buildBots(deps)
	require.NoError(t, err)
	require.Len(t, bots, 2)

	done := make(chan error, 1)
	go func() { done <- a.run(context.Background(), deps, bots) }()

	for _, b := range bots {
		require.Eventually(t, func() bool { return b.State() == bot.StateRunning }, 2*time.Second, 10*time.Millisecond)
	}
	for _, b := range bots {
		b.Stop("test")
	}

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after every bot stopped")
	}
	for _, b := range bots {
		assert.Equal(t, bot.StateStopped, b.State())
		assert.False(t, b.Stale())
	}
}

func TestBuildBots(t *testing.T) {
	cfg := testConfig()
	cfg.Profiles[1].Strategy = "trend"
	a := New(cfg, discard())
	deps, cleanup, err := Wire(context.Background(), cfg, discard())
	require.NoError(t, err)
	defer cleanup()

	_, err = a.buildBots(deps)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "trend")

	cfg.Profiles[1].Strategy = "sample"
	bots, err := a.buildBots(deps)
	require.NoError(t, err)
	assert.Equal(t, "btc", bots[0].Name())
	assert.Equal(t, "sample", bots[1].Status().Policy)
	assert.Equal(t, domain.ModePaper, bots[1].Status().Mode)
}

func TestWire_Defaults(t *testing.T) {
	cfg := testConfig()
	deps, cleanup, err := Wire(context.Background(), cfg, discard())
	require.NoError(t, err)
	defer cleanup()

	assert.NotNil(t, deps.Store)
	assert.NotNil(t, deps.Orders)
	assert.NotNil(t, deps.Exchange)
	assert.Nil(t, deps.Signer, "no wallet key configured")
	assert.Nil(t, deps.Leases)
	assert.Nil(t, deps.Bus)
	assert.Nil(t, deps.Archiver)
	assert.Nil(t, deps.Registry)
}

func TestWire_BadWalletKey(t *testing.T) {
	cfg := testConfig()
	cfg.Wallet.PrivateKey = "not-hex"
	_, _, err := Wire(context.Background(), cfg, discard())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wallet")
}

func TestStartProfiler_Disabled(t *testing.T) {
	stop, err := startProfiler(testConfig(), discard())
	require.NoError(t, err)
	require.NotNil(t, stop)
	stop()
}
