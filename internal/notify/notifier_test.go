package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/orderbot/internal/domain"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type recordingSender struct {
	name string
	err  error
	wait time.Duration

	mu     sync.Mutex
	titles []string
}

func (r *recordingSender) Send(ctx context.Context, title, message string) error {
	if r.wait > 0 {
		select {
		case <-time.After(r.wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	r.mu.Lock()
	r.titles = append(r.titles, title)
	r.mu.Unlock()
	return r.err
}

func (r *recordingSender) Name() string { return r.name }

func TestDispatchReachesAllSendersDespiteFailure(t *testing.T) {
	ok := &recordingSender{name: "ok"}
	bad := &recordingSender{name: "bad", err: errors.New("boom")}
	n := NewNotifier([]Sender{bad, ok}, time.Second, discardLogger)

	err := n.Dispatch(context.Background(), "title", "msg")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotification))
	assert.Contains(t, err.Error(), "bad: boom")
	assert.Equal(t, []string{"title"}, ok.titles)
}

func TestSendAlertSwallowsErrorsAndPrefixes(t *testing.T) {
	s := &recordingSender{name: "s", err: errors.New("down")}
	n := NewNotifier([]Sender{s}, time.Second, discardLogger).WithPrefix("sherrinford")

	assert.NotPanics(t, func() { n.SendAlert(context.Background(), "heartbeat stale") })
	assert.Equal(t, []string{"[sherrinford] " + AlertTitle}, s.titles)
}

func TestDispatchTimeoutBoundsSlowSender(t *testing.T) {
	slow := &recordingSender{name: "slow", wait: time.Minute}
	n := NewNotifier([]Sender{slow}, 50*time.Millisecond, discardLogger)

	start := time.Now()
	err := n.Dispatch(context.Background(), "t", "m")
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestNoSendersIsNoop(t *testing.T) {
	n := NewNotifier(nil, 0, discardLogger)
	assert.NoError(t, n.Dispatch(context.Background(), "t", "m"))
}

func TestWebhookSenders(t *testing.T) {
	var (
		mu     sync.Mutex
		bodies = map[string]map[string]string{}
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]string
		_ = json.NewDecoder(r.Body).Decode(&payload)
		mu.Lock()
		bodies[r.URL.Path] = payload
		mu.Unlock()
		if r.URL.Path == "/discord" {
			w.WriteHeader(http.StatusNoContent)
		}
	}))
	defer srv.Close()

	tg := NewTelegramSender("TOKEN", "42", time.Second)
	tg.apiBase = srv.URL

	senders := []Sender{
		NewSlackSender(srv.URL+"/slack", time.Second),
		NewDiscordSender(srv.URL+"/discord", time.Second),
		tg,
	}
	require.NoError(t, NewNotifier(senders, time.Second, discardLogger).Dispatch(context.Background(), "Bot Started", "env: dev"))

	assert.Equal(t, "*Bot Started*\nenv: dev", bodies["/slack"]["text"])
	assert.Equal(t, "**Bot Started**\nenv: dev", bodies["/discord"]["content"])
	assert.Equal(t, "42", bodies["/botTOKEN/sendMessage"]["chat_id"])
}

func TestWebhookNon2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	err := NewSlackSender(srv.URL, time.Second).Send(context.Background(), "t", "m")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "slack: unexpected status 403")
}
