package notify

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"thera-watch/internal/metrics"
)

// Discord posts notifications to a Discord webhook as form-encoded "content".
type Discord struct {
	webhook string
	http    *http.Client
	sink    metrics.Sink
}

func NewDiscord(webhook string, timeout time.Duration, sink metrics.Sink) *Discord {
	if sink == nil {
		sink = metrics.Nop{}
	}
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Discord{
		webhook: webhook,
		http:    &http.Client{Timeout: timeout},
		sink:    sink,
	}
}

func (d *Discord) Notify(ctx context.Context, n Notification) {
	form := url.Values{}
	form.Set("content", n.Content)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhook, strings.NewReader(form.Encode()))
	if err != nil {
		slog.Error("failed to build Discord request", "err", err)
		return
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	d.sink.IncDiscordCalls()
	resp, err := d.http.Do(req)
	if err != nil {
		slog.Error("failed to post to Discord",
			"scout_id", n.ScoutID,
			"reference", n.Reference,
			"err", err,
		)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		slog.Warn("Discord rejected notification",
			"scout_id", n.ScoutID,
			"reference", n.Reference,
			"status", resp.StatusCode,
			"body", strings.TrimSpace(string(msg)),
		)
		return
	}

	slog.Debug("notification sent to Discord",
		"scout_id", n.ScoutID,
		"reference", n.Reference,
	)
}
