package ws

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/orderbot/internal/domain"
)

type fakeHistory map[string][][]byte

func (f fakeHistory) Recent(_ context.Context, channel string, _ int64) ([][]byte, error) {
	return f[channel], nil
}

func dial(t *testing.T, h *Hub) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(h.HandleWS))
	t.Cleanup(srv.Close)
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readText(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	kind, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.TextMessage, kind)
	return string(msg)
}

func TestHub_ReplayThenLive(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := NewHub(nil, fakeHistory{
		domain.ChannelOrders: {[]byte(`{"n":1}`), []byte(`{"n":2}`)},
		domain.ChannelBot:    {[]byte(`{"n":3}`)},
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	go func() { _ = h.Run(ctx) }()

	conn := dial(t, h)
	assert.Equal(t, `{"n":1}`, readText(t, conn))
	assert.Equal(t, `{"n":2}`, readText(t, conn))
	assert.Equal(t, `{"n":3}`, readText(t, conn))

	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, time.Second, 10*time.Millisecond)
	require.NoError(t, h.Publish(ctx, domain.ChannelOrders, []byte(`{"live":true}`)))
	assert.Equal(t, `{"live":true}`, readText(t, conn))
}

func TestHub_ShutdownDisconnectsClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := NewHub(nil, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	done := make(chan error, 1)
	go func() { done <- h.Run(ctx) }()

	conn := dial(t, h)
	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
	assert.Zero(t, h.ClientCount())
}

func TestHub_PublishNeverBlocks(t *testing.T) {
	h := NewHub(nil, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	for range cap(h.broadcast) + 10 {
		require.NoError(t, h.Publish(context.Background(), domain.ChannelBot, []byte("x")))
	}
	assert.Len(t, h.broadcast, cap(h.broadcast))
}

func TestClient_Subscriptions(t *testing.T) {
	c := &client{subs: map[string]bool{domain.ChannelOrders: true}}
	assert.True(t, c.isSubscribed(domain.ChannelOrders))
	assert.False(t, c.isSubscribed(domain.ChannelBot))

	c.handleSubscription(subscribeMsg{Action: "subscribe", Channels: []string{"ch:*"}})
	assert.True(t, c.isSubscribed(domain.ChannelBot))

	c.handleSubscription(subscribeMsg{Action: "unsubscribe", Channels: []string{"ch:*", domain.ChannelOrders}})
	assert.False(t, c.isSubscribed(domain.ChannelOrders))
	assert.False(t, c.isSubscribed(domain.ChannelBot))
}
