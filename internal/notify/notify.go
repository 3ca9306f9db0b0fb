package notify

import (
	"context"
	"fmt"
)

// Notification is one (wormhole, reference system) alert.
type Notification struct {
	ScoutID      int64
	Reference    string
	ReferenceID  int64
	System       string
	Region       string
	Jumps        int
	InSignature  string
	OutSignature string

	// Content is the rendered Discord message.
	Content string
}

// Notifier delivers notifications best-effort. Failures are logged by the
// implementation and never reach the caller.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// Fanout delivers to every notifier in order.
type Fanout []Notifier

func (f Fanout) Notify(ctx context.Context, n Notification) {
	for _, nt := range f {
		nt.Notify(ctx, n)
	}
}

const header = "**Новая WH в Thera**"

// Render builds the Discord message. dotlanURL is the route planner
// prefix, e.g. https://evemaps.dotlan.net/route/.
func Render(n Notification, dotlanURL string) string {
	return fmt.Sprintf("\n%s\n\n```\n%s < %s - %d от %s\n\nВход - %s / Выход - %s\n\n```\n[Маршрут на Dotlan](<%s%s:%s>)\n",
		header,
		n.System, n.Region, n.Jumps, n.Reference,
		n.InSignature, n.OutSignature,
		dotlanURL, n.Reference, n.System,
	)
}
