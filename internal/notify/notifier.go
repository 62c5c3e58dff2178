// Package notify delivers operator notifications to chat webhooks. Every
// configured sender receives every message; delivery is best-effort and
// failures are logged, never returned to callers of the domain.Notifier
// methods.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/orderbot/internal/domain"
)

// DefaultTimeout bounds a single dispatch across all senders.
const DefaultTimeout = 5 * time.Second

// AlertTitle is the title used for SendAlert.
const AlertTitle = "🚨 ALERT"

// Sender is the interface that each notification channel must implement.
type Sender interface {
	// Send delivers a notification with the given title and message body.
	Send(ctx context.Context, title, message string) error
	// Name returns a human-readable identifier for the sender (e.g. "slack").
	Name() string
}

// Notifier fans a message out to all senders concurrently. With no senders
// it is a no-op.
type Notifier struct {
	senders []Sender
	timeout time.Duration
	prefix  string
	logger  *slog.Logger
}

// NewNotifier creates a Notifier. A non-positive timeout means
// DefaultTimeout.
func NewNotifier(senders []Sender, timeout time.Duration, logger *slog.Logger) *Notifier {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Notifier{
		senders: senders,
		timeout: timeout,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// WithPrefix returns a copy of n that tags titles with prefix.
func (n *Notifier) WithPrefix(prefix string) *Notifier {
	cp := *n
	cp.prefix = prefix
	cp.logger = n.logger.With(slog.String("bot", prefix))
	return &cp
}

// SendNotification delivers title and message to every sender.
func (n *Notifier) SendNotification(ctx context.Context, title, message string) {
	if n.prefix != "" {
		title = "[" + n.prefix + "] " + title
	}
	if err := n.Dispatch(ctx, title, message); err != nil {
		n.logger.WarnContext(ctx, "notify: delivery incomplete",
			slog.String("title", title),
			slog.String("error", err.Error()),
		)
	}
}

// SendAlert is SendNotification with the alert title.
func (n *Notifier) SendAlert(ctx context.Context, message string) {
	n.SendNotification(ctx, AlertTitle, message)
}

// Dispatch sends to all senders in parallel under the notifier timeout and
// returns a combined error wrapping domain.ErrNotification if any failed. A
// single sender failure does not prevent delivery to the others.
func (n *Notifier) Dispatch(ctx context.Context, title, message string) error {
	if len(n.senders) == 0 {
		n.logger.DebugContext(ctx, "notification (no senders)",
			slog.String("title", title),
			slog.String("message", message),
		)
		return nil
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.timeout)
	defer cancel()

	var (
		mu   sync.Mutex
		errs []string
		g    errgroup.Group
	)
	for _, s := range n.senders {
		g.Go(func() error {
			if err := s.Send(ctx, title, message); err != nil {
				n.logger.ErrorContext(ctx, "sender failed",
					slog.String("sender", s.Name()),
					slog.String("error", err.Error()),
				)
				mu.Lock()
				errs = append(errs, fmt.Sprintf("%s: %v", s.Name(), err))
				mu.Unlock()
				return nil
			}
			n.logger.DebugContext(ctx, "notification sent",
				slog.String("sender", s.Name()),
				slog.String("title", title),
			)
			return nil
		})
	}
	_ = g.Wait()

	if len(errs) > 0 {
		return fmt.Errorf("%w: %d sender(s) failed: %s", domain.ErrNotification, len(errs), strings.Join(errs, "; "))
	}
	return nil
}

var _ domain.Notifier = (*Notifier)(nil)
