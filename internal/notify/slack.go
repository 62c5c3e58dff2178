package notify

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// SlackSender delivers notifications via a Slack incoming webhook.
type SlackSender struct {
	webhookURL string
	client     *http.Client
}

// NewSlackSender creates a SlackSender for the given webhook URL.
func NewSlackSender(webhookURL string, timeout time.Duration) *SlackSender {
	return &SlackSender{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: timeout},
	}
}

// Send posts "*title*\nmessage" as the webhook text.
func (s *SlackSender) Send(ctx context.Context, title, message string) error {
	return postJSON(ctx, s.client, s.Name(), s.webhookURL, map[string]string{
		"text": fmt.Sprintf("*%s*\n%s", title, message),
	})
}

// Name returns the sender identifier.
func (s *SlackSender) Name() string {
	return "slack"
}
